package grabber

import (
	"errors"
	"strings"
	"testing"

	"tcgrabber/pkg/classroom"
	"tcgrabber/pkg/config"
	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/photo"
)

type fakeAuth struct {
	err    error
	logins int
	email  string
}

func (f *fakeAuth) Login(email, password string) error {
	f.logins++
	f.email = email
	return f.err
}

type fakeSource struct {
	posts []classroom.Post
}

func (f *fakeSource) CrawlAll() []classroom.Post { return f.posts }

// fakeMaterializer saves some posts, skips some, and fails some
type fakeMaterializer struct {
	skipIDs map[string]bool
	failIDs map[string]bool
	calls   []string
}

func (f *fakeMaterializer) Materialize(post *classroom.Post) (*photo.SavedPhoto, error) {
	id := post.ID.String()
	f.calls = append(f.calls, id)
	if f.failIDs[id] {
		return nil, errs.New(errs.ErrorTypeMaterialize, "download failed")
	}
	if f.skipIDs[id] {
		return nil, nil
	}
	return &photo.SavedPhoto{Path: "/photos/2024-03-01_" + id + ".jpg", Description: "post " + id}, nil
}

func validTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Classroom.Email = "parent@example.com"
	cfg.Classroom.Password = "secret"
	cfg.Classroom.SchoolID = 123
	cfg.Classroom.ChildID = 456
	return cfg
}

func posts(ids ...string) []classroom.Post {
	out := make([]classroom.Post, 0, len(ids))
	for _, id := range ids {
		out = append(out, classroom.Post{
			ID:        classroom.PostID(id),
			PhotoURL:  "https://cdn.example.com/" + id + ".jpg",
			CreatedAt: "2024-03-01T10:30:00Z",
		})
	}
	return out
}

func TestNewWiresComponents(t *testing.T) {
	cfg := validTestConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Output.CacheDir = t.TempDir()

	r, err := New(cfg, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Expected runner to assemble, got %v", err)
	}
	if r.auth == nil || r.source == nil || r.materializer == nil {
		t.Error("Expected all collaborators to be wired")
	}
}

func TestRunOnce(t *testing.T) {
	auth := &fakeAuth{}
	source := &fakeSource{posts: posts("1", "2", "3")}
	m := &fakeMaterializer{skipIDs: map[string]bool{"2": true}}
	r := NewWithComponents(validTestConfig(), auth, source, m, logger.NewTestLogger())

	result, err := r.RunOnce()
	if err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}

	if auth.logins != 1 {
		t.Errorf("Expected one login, got %d", auth.logins)
	}
	if auth.email != "parent@example.com" {
		t.Errorf("Expected configured email, got %s", auth.email)
	}
	if result.TotalPosts != 3 {
		t.Errorf("Expected 3 total posts, got %d", result.TotalPosts)
	}
	if result.DownloadedCount != 2 {
		t.Errorf("Expected 2 downloads (one skip), got %d", result.DownloadedCount)
	}
	if len(result.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result.Items))
	}
}

func TestRunOncePerPostErrorIsolation(t *testing.T) {
	auth := &fakeAuth{}
	source := &fakeSource{posts: posts("1", "2", "3", "4")}
	m := &fakeMaterializer{failIDs: map[string]bool{"2": true}}
	log := logger.NewTestLogger()
	r := NewWithComponents(validTestConfig(), auth, source, m, log)

	result, err := r.RunOnce()
	if err != nil {
		t.Fatalf("Expected run to succeed despite post failure, got %v", err)
	}

	if len(m.calls) != 4 {
		t.Errorf("Expected all 4 posts attempted, got %d", len(m.calls))
	}
	if result.DownloadedCount != 3 {
		t.Errorf("Expected 3 downloads, got %d", result.DownloadedCount)
	}

	var failed *Item
	for i := range result.Items {
		if result.Items[i].Err != nil {
			failed = &result.Items[i]
		}
	}
	if failed == nil || failed.PostID != "2" {
		t.Errorf("Expected a failed item for post 2, got %+v", failed)
	}
	if !log.HasMessage("ERROR", "Failed to materialize post") {
		t.Error("Expected the failure to be logged")
	}
}

func TestRunOnceInvalidConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.Classroom.Email = ""
	cfg.Classroom.SchoolID = 0
	auth := &fakeAuth{}
	r := NewWithComponents(cfg, auth, &fakeSource{}, &fakeMaterializer{}, logger.NewTestLogger())

	_, err := r.RunOnce()
	if err == nil {
		t.Fatal("Expected error for invalid config")
	}
	if auth.logins != 0 {
		t.Error("Expected no login attempt with invalid config")
	}
	if !strings.Contains(err.Error(), "email") || !strings.Contains(err.Error(), "school id") {
		t.Errorf("Expected error to name every missing field, got %v", err)
	}
}

func TestRunOnceLoginFailure(t *testing.T) {
	auth := &fakeAuth{err: errs.New(errs.ErrorTypeAuth, "rejected credentials")}
	source := &fakeSource{posts: posts("1")}
	m := &fakeMaterializer{}
	r := NewWithComponents(validTestConfig(), auth, source, m, logger.NewTestLogger())

	_, err := r.RunOnce()
	if err == nil {
		t.Fatal("Expected error on login failure")
	}
	var appErr *errs.Error
	if !errors.As(err, &appErr) || appErr.Type != errs.ErrorTypeAuth {
		t.Errorf("Expected auth error, got %v", err)
	}
	if len(m.calls) != 0 {
		t.Error("Expected no materialization after failed login")
	}
}

func TestRunOnceSecondRunSkipsEverything(t *testing.T) {
	auth := &fakeAuth{}
	source := &fakeSource{posts: posts("1", "2")}
	m := &fakeMaterializer{skipIDs: map[string]bool{"1": true, "2": true}}
	r := NewWithComponents(validTestConfig(), auth, source, m, logger.NewTestLogger())

	result, err := r.RunOnce()
	if err != nil {
		t.Fatalf("Expected run to succeed, got %v", err)
	}
	if result.DownloadedCount != 0 {
		t.Errorf("Expected 0 downloads when everything exists, got %d", result.DownloadedCount)
	}
	if result.TotalPosts != 2 {
		t.Errorf("Expected total posts still reported, got %d", result.TotalPosts)
	}
}

func TestDryRun(t *testing.T) {
	auth := &fakeAuth{}
	source := &fakeSource{posts: posts("1", "2", "3")}
	m := &fakeMaterializer{}
	r := NewWithComponents(validTestConfig(), auth, source, m, logger.NewTestLogger())

	result, err := r.DryRun()
	if err != nil {
		t.Fatalf("Expected dry run to succeed, got %v", err)
	}
	if result.TotalPosts != 3 {
		t.Errorf("Expected 3 posts, got %d", result.TotalPosts)
	}
	if len(m.calls) != 0 {
		t.Error("Expected dry run to materialize nothing")
	}
}
