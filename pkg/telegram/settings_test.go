package telegram

import (
	"os"
	"path/filepath"
	"testing"

	"tcgrabber/pkg/logger"
)

func TestSettingsDefault(t *testing.T) {
	s, err := NewSettings(t.TempDir(), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}
	if !s.SendAsFile() {
		t.Error("Expected send_as_file to default to true")
	}
}

func TestSettingsPersist(t *testing.T) {
	dir := t.TempDir()
	log := logger.NewTestLogger()

	s, err := NewSettings(dir, log)
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}
	s.SetSendAsFile(false)

	reloaded, err := NewSettings(dir, log)
	if err != nil {
		t.Fatalf("Failed to reload settings: %v", err)
	}
	if reloaded.SendAsFile() {
		t.Error("Expected persisted value to survive a reload")
	}
}

func TestSettingsCorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, settingsFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write corrupt settings: %v", err)
	}

	s, err := NewSettings(dir, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create settings: %v", err)
	}
	if !s.SendAsFile() {
		t.Error("Expected defaults when the file is unreadable")
	}
}

func TestSettingsCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if _, err := NewSettings(dir, logger.NewTestLogger()); err != nil {
		t.Fatalf("Expected cache dir to be created: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected directory on disk: %v", err)
	}
}
