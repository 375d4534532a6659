package photo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tcgrabber/pkg/classroom"
	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/storage"
)

var (
	jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00}
	pngBytes  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
)

// fakeDownloader returns fixed bytes per URL
type fakeDownloader struct {
	data      map[string][]byte
	err       error
	downloads int
}

func (f *fakeDownloader) DownloadPhoto(url string) ([]byte, error) {
	f.downloads++
	if f.err != nil {
		return nil, f.err
	}
	return f.data[url], nil
}

// recordingWriter captures the metadata it was asked to embed
type recordingWriter struct {
	path string
	meta Metadata
	err  error
}

func (r *recordingWriter) Embed(path string, meta Metadata) error {
	r.path = path
	r.meta = meta
	return r.err
}

func testPost(id, url string) *classroom.Post {
	return &classroom.Post{
		ID:        classroom.PostID(id),
		PhotoURL:  url,
		HTML:      "<div>A fun day <b>outside</b></div>",
		Author:    "<span>Ms. Teacher</span>",
		CreatedAt: "2024-03-01T10:30:00Z",
	}
}

func newTestMaterializer(t *testing.T, dl *fakeDownloader, w MetadataWriter) (*Materializer, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}
	meta := SchoolMeta{Latitude: 52.52, Longitude: 13.405, Keywords: "school, montessori"}
	return NewMaterializer(dl, store, w, meta, logger.NewTestLogger()), dir
}

func TestMaterializeFirstRun(t *testing.T) {
	url := "https://cdn.example.com/p/42.jpg"
	dl := &fakeDownloader{data: map[string][]byte{url: jpegBytes}}
	writer := &recordingWriter{}
	m, dir := newTestMaterializer(t, dl, writer)

	saved, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected materialize to succeed, got %v", err)
	}
	if saved == nil {
		t.Fatal("Expected a saved photo, got skip")
	}

	expectedPath := filepath.Join(dir, "2024-03-01_42.jpg")
	if saved.Path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, saved.Path)
	}
	if saved.Description != "A fun day outside" {
		t.Errorf("Expected stripped description, got %q", saved.Description)
	}

	info, err := os.Stat(expectedPath)
	if err != nil {
		t.Fatalf("Expected file on disk: %v", err)
	}
	taken := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !info.ModTime().Equal(taken) {
		t.Errorf("Expected mtime %v, got %v", taken, info.ModTime())
	}

	if writer.path != expectedPath {
		t.Errorf("Expected metadata embed at %s, got %s", expectedPath, writer.path)
	}
	if writer.meta.Creator != "Ms. Teacher" {
		t.Errorf("Expected stripped author, got %q", writer.meta.Creator)
	}
	if !writer.meta.TakenAt.Equal(taken) {
		t.Errorf("Expected TakenAt %v, got %v", taken, writer.meta.TakenAt)
	}
	if writer.meta.Latitude != 52.52 || writer.meta.Longitude != 13.405 {
		t.Errorf("Expected school coordinates, got %f/%f", writer.meta.Latitude, writer.meta.Longitude)
	}
}

func TestMaterializeIdempotent(t *testing.T) {
	url := "https://cdn.example.com/p/42.jpg"
	dl := &fakeDownloader{data: map[string][]byte{url: jpegBytes}}
	m, _ := newTestMaterializer(t, dl, &recordingWriter{})

	first, err := m.Materialize(testPost("42", url))
	if err != nil || first == nil {
		t.Fatalf("Expected first run to save, got %v / %v", first, err)
	}

	second, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected second run to succeed, got %v", err)
	}
	if second != nil {
		t.Error("Expected second run to skip")
	}
	if dl.downloads != 1 {
		t.Errorf("Expected exactly one download, got %d", dl.downloads)
	}
}

func TestMaterializeSniffedExtensionWins(t *testing.T) {
	// URL says PNG, bytes say JPEG
	url := "https://cdn.example.com/p/42.png"
	dl := &fakeDownloader{data: map[string][]byte{url: jpegBytes}}
	m, dir := newTestMaterializer(t, dl, &recordingWriter{})

	saved, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected materialize to succeed, got %v", err)
	}
	if saved == nil {
		t.Fatal("Expected a saved photo")
	}

	if filepath.Ext(saved.Path) != ".jpg" {
		t.Errorf("Expected sniffed .jpg extension, got %s", saved.Path)
	}
	if _, err := os.Stat(filepath.Join(dir, "2024-03-01_42.png")); !os.IsNotExist(err) {
		t.Error("Expected no stray .png file")
	}
}

func TestMaterializeDedupAcrossExtensionSpellings(t *testing.T) {
	dl := &fakeDownloader{data: map[string][]byte{
		"https://cdn.example.com/p/42.png": jpegBytes,
	}}
	m, dir := newTestMaterializer(t, dl, &recordingWriter{})

	// The photo already exists under its true extension
	existing := filepath.Join(dir, "2024-03-01_42.jpg")
	if err := os.WriteFile(existing, jpegBytes, 0644); err != nil {
		t.Fatalf("Failed to seed existing file: %v", err)
	}

	saved, err := m.Materialize(testPost("42", "https://cdn.example.com/p/42.png"))
	if err != nil {
		t.Fatalf("Expected materialize to succeed, got %v", err)
	}
	if saved != nil {
		t.Error("Expected skip when the photo exists under the sniffed extension")
	}
}

func TestMaterializeNonImageSkipped(t *testing.T) {
	url := "https://cdn.example.com/p/42.jpg"
	dl := &fakeDownloader{data: map[string][]byte{url: []byte("<html>not found</html>")}}
	m, dir := newTestMaterializer(t, dl, &recordingWriter{})

	saved, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected non-image to be skipped without error, got %v", err)
	}
	if saved != nil {
		t.Error("Expected skip for non-image content")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files written, found %d", len(entries))
	}
}

func TestMaterializeDownloadFailure(t *testing.T) {
	dl := &fakeDownloader{err: errs.New(errs.ErrorTypeNetwork, "connection refused")}
	m, _ := newTestMaterializer(t, dl, &recordingWriter{})

	_, err := m.Materialize(testPost("42", "https://cdn.example.com/p/42.jpg"))
	if err == nil {
		t.Fatal("Expected materialize error on download failure")
	}
}

func TestMaterializeMetadataFailureKeepsFile(t *testing.T) {
	url := "https://cdn.example.com/p/42.jpg"
	dl := &fakeDownloader{data: map[string][]byte{url: jpegBytes}}
	writer := &recordingWriter{err: errs.New(errs.ErrorTypeMetadata, "exiftool not found")}
	m, _ := newTestMaterializer(t, dl, writer)

	saved, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected metadata failure to be non-fatal, got %v", err)
	}
	if saved == nil {
		t.Fatal("Expected photo to be saved despite metadata failure")
	}
	if _, err := os.Stat(saved.Path); err != nil {
		t.Errorf("Expected file to remain on disk: %v", err)
	}
}

func TestMaterializeUnrecognizedExtensionDefaultsToJpg(t *testing.T) {
	url := "https://cdn.example.com/p/42.axd?size=large"
	dl := &fakeDownloader{data: map[string][]byte{url: jpegBytes}}
	m, dir := newTestMaterializer(t, dl, &recordingWriter{})

	saved, err := m.Materialize(testPost("42", url))
	if err != nil {
		t.Fatalf("Expected materialize to succeed, got %v", err)
	}
	if saved == nil {
		t.Fatal("Expected a saved photo")
	}
	if saved.Path != filepath.Join(dir, "2024-03-01_42.jpg") {
		t.Errorf("Expected jpg default, got %s", saved.Path)
	}
}

func TestMaterializePNG(t *testing.T) {
	url := "https://cdn.example.com/p/43.png"
	dl := &fakeDownloader{data: map[string][]byte{url: pngBytes}}
	m, dir := newTestMaterializer(t, dl, &recordingWriter{})

	saved, err := m.Materialize(testPost("43", url))
	if err != nil {
		t.Fatalf("Expected materialize to succeed, got %v", err)
	}
	if saved == nil {
		t.Fatal("Expected a saved photo")
	}
	if saved.Path != filepath.Join(dir, "2024-03-01_43.png") {
		t.Errorf("Expected matching png path, got %s", saved.Path)
	}
}

func TestExtensionFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/p/42.jpg", "jpg"},
		{"https://cdn.example.com/p/42.PNG", "png"},
		{"https://cdn.example.com/p/42.jpeg?X-Amz-Signature=abc", "jpeg"},
		{"https://cdn.example.com/p/42.webp", "webp"},
	}
	for _, tt := range tests {
		if got := extensionFromURL(tt.url); got != tt.want {
			t.Errorf("extensionFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<div>Hello <b>world</b></div>", "Hello world"},
		{"plain text", "plain text"},
		{"<span>Ms. Teacher</span>", "Ms. Teacher"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
