// Package classroom implements the authenticated HTTP client for the
// Transparent Classroom portal: the session login flow, the paginated
// posts listing endpoint and raw photo downloads.
package classroom

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/ratelimit"
	"tcgrabber/pkg/retry"
)

// requestsPerMinute caps how hard we hit the portal. The listing pages
// and photo downloads together stay well under this in a normal run.
const requestsPerMinute = 60

// Client is an authenticated session against the portal. One client is
// created per process; Login is called once and all later requests
// reuse the session cookies.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	schoolID   int
	childID    int
	limiter    ratelimit.Limiter
	logger     logger.Logger
	retryCfg   *retry.Config
}

// NewClient creates a portal client with a cookie jar and a bounded
// per-request timeout.
func NewClient(schoolID, childID int, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		baseURL: BaseURL,
		headers: map[string]string{
			"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
		},
		schoolID: schoolID,
		childID:  childID,
		limiter:  ratelimit.NewSlidingWindow(requestsPerMinute, time.Minute),
		logger:   log,
		retryCfg: &retry.Config{
			MaxAttempts: 3,
			Backoff:     retry.DefaultExponentialBackoff(),
			RetryIf:     retry.DefaultRetryIf,
			Context:     context.Background(),
			Logger:      log,
		},
	}
}

// SetBaseURL overrides the portal base URL. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimSuffix(base, "/")
}

// doRequest performs an HTTP request with the configured headers,
// waiting on the rate limiter first.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	c.limiter.Wait()

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Login establishes the authenticated session: fetch the sign-in page,
// extract the anti-forgery token, and submit the login form. Failure at
// any step is fatal for the run; no retry is attempted here.
func (c *Client) Login(email, password string) error {
	signInURL := c.baseURL + SignInPath

	req, err := http.NewRequest(http.MethodGet, signInURL, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "failed to build sign-in request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "failed to load sign-in page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.Newf(errs.ErrorTypeAuth, "sign-in page returned status %d", resp.StatusCode).WithCode(resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "failed to parse sign-in page", err)
	}

	token, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !ok || token == "" {
		return errs.New(errs.ErrorTypeAuth, "could not find CSRF token on sign-in page")
	}

	form := url.Values{
		"authenticity_token": {token},
		"soul[login]":        {email},
		"soul[password]":     {password},
		"soul[remember_me]":  {"0"},
		"commit":             {"Sign in"},
	}

	postReq, err := http.NewRequest(http.MethodPost, signInURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "failed to build login request", err)
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	postResp, err := c.doRequest(postReq)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "login request failed", err)
	}
	defer postResp.Body.Close()

	if postResp.StatusCode >= 400 {
		return errs.Newf(errs.ErrorTypeAuth, "login returned status %d", postResp.StatusCode).WithCode(postResp.StatusCode)
	}

	body, err := io.ReadAll(postResp.Body)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "failed to read login response", err)
	}

	if strings.Contains(string(body), "You need to sign in") {
		return errs.New(errs.ErrorTypeAuth, "invalid credentials")
	}

	c.logger.Info("Login successful")
	return nil
}

// GetPostsPage fetches one page of post records. It returns the raw
// JSON body alongside the decoded records so the caller can cache the
// response verbatim. Listing fetches are deliberately not retried.
func (c *Client) GetPostsPage(page int) ([]byte, []Post, error) {
	endpoint := c.baseURL + PostsPath(c.schoolID, c.childID)

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeTransientFetch, "failed to build posts request", err)
	}

	q := req.URL.Query()
	q.Set("locale", "en")
	q.Set("page", strconv.Itoa(page))
	req.URL.RawQuery = q.Encode()

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeTransientFetch, "posts request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, errs.Newf(errs.ErrorTypeTransientFetch, "posts endpoint returned status %d", resp.StatusCode).WithCode(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeTransientFetch, "failed to read posts response", err)
	}

	posts, err := ParsePosts(body)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrorTypeTransientFetch, "failed to parse posts response", err)
	}

	return body, posts, nil
}

// ParsePosts decodes a listing response body into post records
func ParsePosts(body []byte) ([]Post, error) {
	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DownloadPhoto downloads raw photo bytes through the authenticated
// session, retrying transient transport and server failures.
func (c *Client) DownloadPhoto(photoURL string) ([]byte, error) {
	return retry.DoWithResult(func() ([]byte, error) {
		return c.downloadPhotoOnce(photoURL)
	}, c.retryCfg)
}

func (c *Client) downloadPhotoOnce(photoURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, "failed to build photo request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errType := errs.ErrorTypeUnknown
		if errs.IsRetryableStatusCode(resp.StatusCode) {
			errType = errs.ErrorTypeServerError
		}
		return nil, errs.Newf(errType, "photo endpoint returned status %d", resp.StatusCode).WithCode(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "failed to read photo data", err)
	}

	c.logger.DebugWithFields("photo downloaded", map[string]interface{}{
		"url":  photoURL,
		"size": len(data),
	})

	return data, nil
}
