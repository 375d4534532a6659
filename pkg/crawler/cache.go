package crawler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// pageCache is a time-boxed on-disk cache of raw listing responses,
// one JSON file per page.
type pageCache struct {
	dir     string
	timeout time.Duration
}

func newPageCache(dir string, timeout time.Duration) (*pageCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &pageCache{dir: dir, timeout: timeout}, nil
}

// path returns the cache file path for a page number
func (c *pageCache) path(page int) string {
	return filepath.Join(c.dir, fmt.Sprintf("cache_page_%d.json", page))
}

// get returns the cached body for a page if the entry is still fresh.
// An expired entry is deleted before being treated as absent.
func (c *pageCache) get(page int) ([]byte, bool) {
	path := c.path(page)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if time.Since(info.ModTime()) > c.timeout {
		os.Remove(path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	return data, true
}

// put persists the raw response body for a page
func (c *pageCache) put(page int, body []byte) error {
	return os.WriteFile(c.path(page), body, 0644)
}

// invalidate removes the cache entry for a page
func (c *pageCache) invalidate(page int) {
	os.Remove(c.path(page))
}
