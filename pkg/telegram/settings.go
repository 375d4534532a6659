package telegram

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"tcgrabber/pkg/logger"
)

const settingsFileName = "telegram_settings.json"

// Settings persists user preferences for photo delivery across
// restarts. The file lives next to the page cache.
type Settings struct {
	path   string
	logger logger.Logger

	mu         sync.Mutex
	sendAsFile bool
}

type settingsFile struct {
	SendAsFile bool `json:"send_as_file"`
}

// NewSettings loads settings from cacheDir, creating the directory if
// needed. A missing or unreadable file yields the defaults.
func NewSettings(cacheDir string, log logger.Logger) (*Settings, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, err
	}

	s := &Settings{
		path:   filepath.Join(cacheDir, settingsFileName),
		logger: log,
		// sending as a document preserves the original resolution
		sendAsFile: true,
	}
	s.load()
	return s, nil
}

func (s *Settings) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.WithError(err).Warn("Failed to parse telegram settings, using defaults")
		return
	}
	s.sendAsFile = f.SendAsFile
}

// SendAsFile reports whether photos go out as documents
func (s *Settings) SendAsFile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendAsFile
}

// SetSendAsFile updates the preference and persists it
func (s *Settings) SetSendAsFile(value bool) {
	s.mu.Lock()
	s.sendAsFile = value
	data, err := json.MarshalIndent(settingsFile{SendAsFile: value}, "", "  ")
	path := s.path
	s.mu.Unlock()

	if err == nil {
		err = os.WriteFile(path, data, 0644)
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to save telegram settings")
		return
	}
	s.logger.InfoWithFields("Updated telegram settings", map[string]interface{}{
		"send_as_file": value,
	})
}
