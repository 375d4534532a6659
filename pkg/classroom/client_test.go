package classroom

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tcgrabber/pkg/logger"
)

const signInPage = `<!DOCTYPE html>
<html>
<head>
<meta name="csrf-token" content="test-csrf-token-123" />
</head>
<body><form action="/souls/sign_in" method="post"></form></body>
</html>`

// newMockPortal builds a test server mimicking the portal's sign-in
// flow and posts listing endpoint.
func newMockPortal(t *testing.T, pages map[string]string, rejectLogin bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(SignInPath, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, signInPage)
			return
		}
		if r.FormValue("authenticity_token") != "test-csrf-token-123" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		if rejectLogin {
			fmt.Fprint(w, "<html><body>You need to sign in before continuing.</body></html>")
			return
		}
		fmt.Fprint(w, "<html><body>Welcome back</body></html>")
	})
	mux.HandleFunc(PostsPath(123, 456), func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if r.URL.Query().Get("locale") != "en" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, ok := pages[page]
		if !ok {
			body = "[]"
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client := NewClient(123, 456, 5*time.Second, logger.NewTestLogger())
	client.SetBaseURL(server.URL)
	return client
}

func TestLoginSuccess(t *testing.T) {
	server := newMockPortal(t, nil, false)
	defer server.Close()

	client := newTestClient(t, server)
	if err := client.Login("parent@example.com", "hunter2"); err != nil {
		t.Fatalf("Expected login to succeed, got %v", err)
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	server := newMockPortal(t, nil, true)
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Login("parent@example.com", "wrong")
	if err == nil {
		t.Fatal("Expected login to fail with rejected credentials")
	}
}

func TestLoginMissingCSRFToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><head></head><body>no token here</body></html>")
	}))
	defer server.Close()

	client := newTestClient(t, server)
	err := client.Login("parent@example.com", "hunter2")
	if err == nil {
		t.Fatal("Expected login to fail when CSRF token is missing")
	}
}

func TestGetPostsPage(t *testing.T) {
	pages := map[string]string{
		"1": `[{"id": 42, "original_photo_url": "https://cdn.example.com/p/42.jpg",
			"html": "<div>A fun day</div>", "author": "<span>Ms. Teacher</span>",
			"created_at": "2024-03-01T10:30:00Z"}]`,
	}
	server := newMockPortal(t, pages, false)
	defer server.Close()

	client := newTestClient(t, server)
	body, posts, err := client.GetPostsPage(1)
	if err != nil {
		t.Fatalf("Expected page fetch to succeed, got %v", err)
	}
	if len(body) == 0 {
		t.Error("Expected raw body to be returned")
	}
	if len(posts) != 1 {
		t.Fatalf("Expected 1 post, got %d", len(posts))
	}
	if posts[0].ID.String() != "42" {
		t.Errorf("Expected post id 42, got %s", posts[0].ID)
	}
	if posts[0].PhotoURL != "https://cdn.example.com/p/42.jpg" {
		t.Errorf("Unexpected photo URL: %s", posts[0].PhotoURL)
	}
}

func TestParsePostsAcceptsNumericAndStringIDs(t *testing.T) {
	body := []byte(`[
		{"id": 42, "original_photo_url": "https://cdn.example.com/p/42.jpg",
			"created_at": "2024-03-01T10:30:00Z"},
		{"id": "abc-43", "original_photo_url": "https://cdn.example.com/p/43.jpg",
			"created_at": "2024-03-01T11:00:00Z"}
	]`)

	posts, err := ParsePosts(body)
	if err != nil {
		t.Fatalf("Expected mixed id formats to parse, got %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(posts))
	}
	if posts[0].ID.String() != "42" {
		t.Errorf("Expected numeric id 42, got %s", posts[0].ID)
	}
	if posts[1].ID.String() != "abc-43" {
		t.Errorf("Expected string id abc-43, got %s", posts[1].ID)
	}
}

func TestGetPostsPageEmpty(t *testing.T) {
	server := newMockPortal(t, nil, false)
	defer server.Close()

	client := newTestClient(t, server)
	_, posts, err := client.GetPostsPage(7)
	if err != nil {
		t.Fatalf("Expected empty page fetch to succeed, got %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("Expected no posts, got %d", len(posts))
	}
}

func TestGetPostsPageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, _, err := client.GetPostsPage(1)
	if err == nil {
		t.Fatal("Expected error for 502 response")
	}
}

func TestDownloadPhoto(t *testing.T) {
	photo := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(photo)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	data, err := client.DownloadPhoto(server.URL + "/photo.jpg")
	if err != nil {
		t.Fatalf("Expected download to succeed, got %v", err)
	}
	if len(data) != len(photo) {
		t.Errorf("Expected %d bytes, got %d", len(photo), len(data))
	}
}

func TestDownloadPhotoRetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	// Speed up the test
	client.retryCfg.Backoff = &fastBackoff{}

	data, err := client.DownloadPhoto(server.URL + "/photo.jpg")
	if err != nil {
		t.Fatalf("Expected download to succeed after retries, got %v", err)
	}
	if string(data) != "ok" {
		t.Errorf("Unexpected data: %q", data)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

type fastBackoff struct{}

func (fastBackoff) NextDelay(int) time.Duration { return time.Millisecond }

func TestPostCreatedTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "with zone marker",
			raw:  "2024-03-01T10:30:00Z",
			want: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "without zone marker",
			raw:  "2024-03-01T10:30:00",
			want: time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "fractional seconds",
			raw:  "2024-03-01T10:30:00.123Z",
			want: time.Date(2024, 3, 1, 10, 30, 0, 123000000, time.UTC),
		},
		{
			name:    "garbage",
			raw:     "yesterday",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := &Post{CreatedAt: tt.raw}
			got, err := post.CreatedTime()
			if tt.wantErr {
				if err == nil {
					t.Error("Expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
