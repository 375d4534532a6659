// Package crawler walks the portal's paginated posts listing, caching
// each page's raw response on disk for a configured freshness window.
package crawler

import (
	"time"

	"tcgrabber/pkg/classroom"
	"tcgrabber/pkg/logger"
)

// PageFetcher fetches one page of post records from the portal
type PageFetcher interface {
	GetPostsPage(page int) (raw []byte, posts []classroom.Post, err error)
}

// Crawler fetches post pages through a fetcher, consulting the page
// cache before touching the network.
type Crawler struct {
	fetcher PageFetcher
	cache   *pageCache
	logger  logger.Logger
}

// New creates a Crawler backed by an on-disk page cache
func New(fetcher PageFetcher, cacheDir string, cacheTimeout time.Duration, log logger.Logger) (*Crawler, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	cache, err := newPageCache(cacheDir, cacheTimeout)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		fetcher: fetcher,
		cache:   cache,
		logger:  log,
	}, nil
}

// FetchPage returns the post records for one page. A fresh cache entry
// is served without a network call; an expired entry is removed first.
// On any transport or HTTP failure the error is returned so the caller
// can decide how to treat it.
func (c *Crawler) FetchPage(page int) ([]classroom.Post, error) {
	if body, ok := c.cache.get(page); ok {
		posts, err := classroom.ParsePosts(body)
		if err == nil {
			c.logger.InfoWithFields("loaded page from cache", map[string]interface{}{
				"page":  page,
				"posts": len(posts),
			})
			return posts, nil
		}
		// Corrupt entry: drop it and fetch fresh
		c.logger.WarnWithFields("removing unreadable cache entry", map[string]interface{}{
			"page":  page,
			"error": err.Error(),
		})
		c.cache.invalidate(page)
	}

	body, posts, err := c.fetcher.GetPostsPage(page)
	if err != nil {
		return nil, err
	}

	if err := c.cache.put(page, body); err != nil {
		c.logger.WarnWithFields("failed to write page cache", map[string]interface{}{
			"page":  page,
			"error": err.Error(),
		})
	}

	return posts, nil
}

// CrawlAll walks pages starting at 1 and concatenates their records,
// stopping at the first page that yields no data. A failed fetch is
// logged and ends the crawl the same way an empty page does; the
// remote offers no way to tell the two apart.
func (c *Crawler) CrawlAll() []classroom.Post {
	var all []classroom.Post
	page := 0

	c.logger.Info("Starting to crawl all posts")

	for {
		page++

		posts, err := c.FetchPage(page)
		if err != nil {
			c.logger.WarnWithFields("page fetch failed, ending crawl", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})
			break
		}
		if len(posts) == 0 {
			break
		}

		all = append(all, posts...)
		c.logger.InfoWithFields("retrieved page", map[string]interface{}{
			"page":  page,
			"posts": len(posts),
		})
	}

	c.logger.InfoWithFields("crawl complete", map[string]interface{}{
		"total_posts": len(all),
		"pages":       page,
	})

	return all
}
