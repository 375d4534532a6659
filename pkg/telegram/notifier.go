// Package telegram delivers run summaries and photos to a Telegram
// chat through the Bot API, and answers a small set of chat commands.
package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"tcgrabber/pkg/grabber"
	"tcgrabber/pkg/logger"
)

const (
	defaultAPIBase = "https://api.telegram.org"

	// Telegram rejects captions over 1024 characters
	maxCaptionLen = 1024

	// photos per summary before the rest is elided
	maxBatchPhotos = 10
)

// Notifier sends messages and photos to a single chat
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	settings *Settings
	client   *http.Client
	logger   logger.Logger
}

// NewNotifier creates a notifier for the given bot and chat. The
// settings decide whether photos go out as documents or compressed
// images; pass nil to always send documents.
func NewNotifier(botToken, chatID string, settings *Settings, log logger.Logger) *Notifier {
	return &Notifier{
		apiBase:  defaultAPIBase,
		botToken: botToken,
		chatID:   chatID,
		settings: settings,
		client:   &http.Client{Timeout: 120 * time.Second},
		logger:   log,
	}
}

// SetAPIBase overrides the Bot API host, used by tests
func (n *Notifier) SetAPIBase(base string) {
	n.apiBase = base
}

func (n *Notifier) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", n.apiBase, n.botToken, method)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (n *Notifier) post(method string, payload interface{}) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.Post(n.methodURL(method), "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("telegram %s returned unparseable response: %w", method, err)
	}
	if !parsed.OK {
		return &parsed, fmt.Errorf("telegram %s failed: %s", method, parsed.Description)
	}
	return &parsed, nil
}

// SendMessage sends a Markdown-formatted text message. When Telegram
// rejects the formatting, the message is retried as plain text so a
// stray underscore in a description cannot lose a notification.
func (n *Notifier) SendMessage(text string) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	parsed, err := n.post("sendMessage", payload)
	if err == nil {
		return nil
	}
	if parsed != nil && strings.Contains(strings.ToLower(parsed.Description), "can't parse") {
		n.logger.Warn("Markdown parsing failed, retrying without formatting")
		delete(payload, "parse_mode")
		_, err = n.post("sendMessage", payload)
	}
	return err
}

// SendPhoto uploads a photo, as a document or a compressed image
// depending on the current settings.
func (n *Notifier) SendPhoto(path, caption string) error {
	sendAsFile := true
	if n.settings != nil {
		sendAsFile = n.settings.SendAsFile()
	}

	method, fileField := "sendDocument", "document"
	if !sendAsFile {
		method, fileField = "sendPhoto", "photo"
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open photo: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("chat_id", n.chatID); err != nil {
		return err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := writer.CreateFormFile(fileField, filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	resp, err := n.client.Post(n.methodURL(method), writer.FormDataContentType(), &buf)
	if err != nil {
		return fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("telegram %s returned unparseable response: %w", method, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram %s failed: %s", method, parsed.Description)
	}
	return nil
}

// Notify sends a run summary followed by the new photos. Runs with no
// downloads are silent. Implements grabber.Notifier.
func (n *Notifier) Notify(result *grabber.RunResult) error {
	if result.DownloadedCount == 0 {
		n.logger.Info("No new photos downloaded, skipping Telegram notification")
		return nil
	}

	saved := make([]grabber.Item, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Err == nil && item.Path != "" {
			saved = append(saved, item)
		}
	}

	message := fmt.Sprintf(
		"*Photo Sync Complete*\n\nNew photos downloaded: *%d*\nTotal posts scanned: %d",
		result.DownloadedCount, result.TotalPosts,
	)
	if len(saved) > 0 {
		count := len(saved)
		if count > maxBatchPhotos {
			count = maxBatchPhotos
		}
		message += fmt.Sprintf("\n\nSending %d photos...", count)
	}
	if err := n.SendMessage(message); err != nil {
		return err
	}

	sent := n.sendBatch(saved)
	n.logger.InfoWithFields("Sent photos to Telegram", map[string]interface{}{
		"sent":  sent,
		"total": len(saved),
	})
	return nil
}

// NotifyError reports a failed run. Implements grabber.Notifier.
func (n *Notifier) NotifyError(message string) error {
	return n.SendMessage("*Photo Sync Failed*\n\n" + message)
}

func (n *Notifier) sendBatch(items []grabber.Item) int {
	batch := items
	if len(batch) > maxBatchPhotos {
		batch = batch[:maxBatchPhotos]
	}

	sent := 0
	for _, item := range batch {
		if err := n.SendPhoto(item.Path, truncateCaption(item.Description)); err != nil {
			n.logger.WithError(err).WithField("path", item.Path).Error("Failed to send photo")
			continue
		}
		sent++
	}

	if remaining := len(items) - len(batch); remaining > 0 {
		msg := fmt.Sprintf("_%d more photos were downloaded but not sent to avoid spam._", remaining)
		if err := n.SendMessage(msg); err != nil {
			n.logger.WithError(err).Warn("Failed to send overflow notice")
		}
	}
	return sent
}

// TestConnection verifies the bot token against the getMe endpoint
func (n *Notifier) TestConnection() error {
	resp, err := n.client.Get(n.methodURL("getMe"))
	if err != nil {
		return fmt.Errorf("failed to reach Telegram: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("unparseable getMe response: %w", err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected the bot token")
	}

	n.logger.InfoWithFields("Connected to Telegram bot", map[string]interface{}{
		"bot":     "@" + parsed.Result.Username,
		"chat_id": n.chatID,
	})
	return nil
}

// truncateCaption bounds a caption to Telegram's limit, cutting on a
// rune boundary so multi-byte text is never split mid-character.
func truncateCaption(caption string) string {
	if utf8.RuneCountInString(caption) <= maxCaptionLen {
		return caption
	}
	runes := []rune(caption)
	return string(runes[:maxCaptionLen-4]) + "..."
}
