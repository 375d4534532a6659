package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path := manager.PathFor("2024-03-01", "42", "jpg")
	expected := filepath.Join(tempDir, "2024-03-01_42.jpg")
	if path != expected {
		t.Errorf("Expected path %s, got %s", expected, path)
	}

	if manager.Exists(path) {
		t.Error("Expected Exists to return false for missing file")
	}

	testData := []byte("test photo data")
	if err := manager.Save(path, testData); err != nil {
		t.Fatalf("Failed to save photo: %v", err)
	}

	if !manager.Exists(path) {
		t.Error("Expected Exists to return true after save")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if string(content) != string(testData) {
		t.Error("File content does not match expected data")
	}

	// No stray temp file left behind
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temporary file to be gone after save")
	}
}

func TestSetTimes(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path := manager.PathFor("2024-03-01", "42", "jpg")
	if err := manager.Save(path, []byte("data")); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	taken := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if err := manager.SetTimes(path, taken); err != nil {
		t.Fatalf("Failed to set times: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat: %v", err)
	}
	if !info.ModTime().Equal(taken) {
		t.Errorf("Expected mtime %v, got %v", taken, info.ModTime())
	}
}

func TestListByDate(t *testing.T) {
	tempDir := t.TempDir()
	manager, err := NewManager(tempDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	for _, name := range []string{
		"2024-03-01_41.jpg",
		"2024-03-01_42.png",
		"2024-03-02_43.jpg",
	} {
		if err := manager.Save(filepath.Join(tempDir, name), []byte("x")); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
	}

	paths, err := manager.ListByDate("2024-03-01")
	if err != nil {
		t.Fatalf("ListByDate failed: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("Expected 2 photos for 2024-03-01, got %d", len(paths))
	}

	paths, err = manager.ListByDate("2024-04-01")
	if err != nil {
		t.Fatalf("ListByDate failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("Expected no photos for 2024-04-01, got %d", len(paths))
	}
}
