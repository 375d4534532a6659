package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tcgrabber/pkg/classroom"
	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
)

// fakeFetcher serves canned pages and counts fetches
type fakeFetcher struct {
	pages   map[int][]classroom.Post
	errorOn map[int]bool
	fetches int
}

func (f *fakeFetcher) GetPostsPage(page int) ([]byte, []classroom.Post, error) {
	f.fetches++
	if f.errorOn[page] {
		return nil, nil, errs.New(errs.ErrorTypeTransientFetch, "connection reset")
	}
	posts := f.pages[page]
	if posts == nil {
		posts = []classroom.Post{}
	}
	raw, _ := json.Marshal(posts)
	return raw, posts, nil
}

func makePosts(ids ...int) []classroom.Post {
	posts := make([]classroom.Post, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, classroom.Post{
			ID:        classroom.PostID(fmt.Sprintf("%d", id)),
			PhotoURL:  fmt.Sprintf("https://cdn.example.com/%d.jpg", id),
			CreatedAt: "2024-03-01T10:30:00Z",
		})
	}
	return posts
}

func newTestCrawler(t *testing.T, fetcher PageFetcher, timeout time.Duration) *Crawler {
	t.Helper()
	c, err := New(fetcher, t.TempDir(), timeout, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}
	return c
}

func TestCrawlAllPaginationTermination(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{
			1: makePosts(1, 2, 3),
			2: makePosts(4, 5),
			3: {},
		},
	}
	c := newTestCrawler(t, fetcher, time.Hour)

	posts := c.CrawlAll()

	if len(posts) != 5 {
		t.Errorf("Expected 5 posts, got %d", len(posts))
	}
	if fetcher.fetches != 3 {
		t.Errorf("Expected 3 page fetches, got %d", fetcher.fetches)
	}
}

func TestCrawlAllStopsOnFetchError(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{
			1: makePosts(1, 2),
			3: makePosts(9), // never reached
		},
		errorOn: map[int]bool{2: true},
	}
	c := newTestCrawler(t, fetcher, time.Hour)

	posts := c.CrawlAll()

	if len(posts) != 2 {
		t.Errorf("Expected crawl to stop at failed page, got %d posts", len(posts))
	}
}

func TestFetchPageUsesCache(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{1: makePosts(1)},
	}
	c := newTestCrawler(t, fetcher, time.Hour)

	first, err := c.FetchPage(1)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	second, err := c.FetchPage(1)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if fetcher.fetches != 1 {
		t.Errorf("Expected exactly 1 network fetch, got %d", fetcher.fetches)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("Expected one post from both calls, got %d and %d", len(first), len(second))
	}
}

func TestFetchPageExpiredCache(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{1: makePosts(1)},
	}
	c, err := New(fetcher, dir, time.Second, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	if _, err := c.FetchPage(1); err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}

	// Age the cache entry one second past the timeout
	cachePath := filepath.Join(dir, "cache_page_1.json")
	old := time.Now().Add(-2 * time.Second)
	if err := os.Chtimes(cachePath, old, old); err != nil {
		t.Fatalf("Failed to age cache file: %v", err)
	}

	if _, err := c.FetchPage(1); err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if fetcher.fetches != 2 {
		t.Errorf("Expected expired cache to trigger a new fetch, got %d fetches", fetcher.fetches)
	}
}

func TestFetchPageCorruptCacheRefetches(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{1: makePosts(1)},
	}
	c, err := New(fetcher, dir, time.Hour, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	cachePath := filepath.Join(dir, "cache_page_1.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to plant corrupt cache: %v", err)
	}

	posts, err := c.FetchPage(1)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("Expected 1 post after refetch, got %d", len(posts))
	}
	if fetcher.fetches != 1 {
		t.Errorf("Expected corrupt cache to trigger a fetch, got %d", fetcher.fetches)
	}
}

func TestFetchPagePersistsCacheFile(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{
		pages: map[int][]classroom.Post{1: makePosts(7)},
	}
	c, err := New(fetcher, dir, time.Hour, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create crawler: %v", err)
	}

	if _, err := c.FetchPage(1); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "cache_page_1.json"))
	if err != nil {
		t.Fatalf("Expected cache file to exist: %v", err)
	}

	posts, err := classroom.ParsePosts(data)
	if err != nil {
		t.Fatalf("Cache file is not valid JSON: %v", err)
	}
	if len(posts) != 1 || posts[0].ID.String() != "7" {
		t.Errorf("Cache file content mismatch: %+v", posts)
	}
}
