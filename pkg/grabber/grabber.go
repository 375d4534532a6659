// Package grabber orchestrates a full sync run: sign in, crawl the
// post feed, and materialize every photo that is not already on disk.
package grabber

import (
	"fmt"

	"tcgrabber/pkg/classroom"
	"tcgrabber/pkg/config"
	"tcgrabber/pkg/crawler"
	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/photo"
	"tcgrabber/pkg/storage"
)

// Authenticator signs a session in with the classroom portal
type Authenticator interface {
	Login(email, password string) error
}

// PostSource yields every post in the feed, newest first
type PostSource interface {
	CrawlAll() []classroom.Post
}

// PostMaterializer turns a single post into a photo on disk
type PostMaterializer interface {
	Materialize(post *classroom.Post) (*photo.SavedPhoto, error)
}

// Item records the outcome for one post in a run
type Item struct {
	PostID      string
	Path        string
	Description string
	Err         error
}

// RunResult summarizes a completed run
type RunResult struct {
	DownloadedCount int
	TotalPosts      int
	Items           []Item
}

// Runner executes sync runs against a configured portal account
type Runner struct {
	cfg          *config.Config
	auth         Authenticator
	source       PostSource
	materializer PostMaterializer
	logger       logger.Logger
}

// New assembles a Runner from configuration. The config must already
// be validated; New only wires the collaborators together.
func New(cfg *config.Config, log logger.Logger) (*Runner, error) {
	client := classroom.NewClient(cfg.Classroom.SchoolID, cfg.Classroom.ChildID, config.RequestTimeout, log)

	crawl, err := crawler.New(client, cfg.Output.CacheDir, cfg.CacheTimeoutDuration(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawler: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	meta := photo.SchoolMeta{
		Latitude:  cfg.School.Latitude,
		Longitude: cfg.School.Longitude,
		Keywords:  cfg.School.Keywords,
	}
	materializer := photo.NewMaterializer(client, store, photo.NewExifToolWriter(log), meta, log)

	return &Runner{
		cfg:          cfg,
		auth:         client,
		source:       crawl,
		materializer: materializer,
		logger:       log,
	}, nil
}

// NewWithComponents builds a Runner from explicit collaborators
func NewWithComponents(cfg *config.Config, auth Authenticator, source PostSource, m PostMaterializer, log logger.Logger) *Runner {
	return &Runner{
		cfg:          cfg,
		auth:         auth,
		source:       source,
		materializer: m,
		logger:       log,
	}
}

// RunOnce performs a single sync run. Authentication failure aborts
// the run; a failure on an individual post is recorded and the run
// moves on to the next post.
func (r *Runner) RunOnce() (*RunResult, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "invalid configuration", err)
	}

	if err := r.auth.Login(r.cfg.Classroom.Email, r.cfg.Classroom.Password); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeAuth, "sign in failed", err)
	}

	posts := r.source.CrawlAll()
	result := &RunResult{TotalPosts: len(posts)}

	for i := range posts {
		post := &posts[i]
		saved, err := r.materializer.Materialize(post)
		if err != nil {
			r.logger.ErrorWithFields("Failed to materialize post", map[string]interface{}{
				"post_id": post.ID.String(),
				"error":   err.Error(),
			})
			result.Items = append(result.Items, Item{PostID: post.ID.String(), Err: err})
			continue
		}
		if saved == nil {
			continue
		}
		result.DownloadedCount++
		result.Items = append(result.Items, Item{
			PostID:      post.ID.String(),
			Path:        saved.Path,
			Description: saved.Description,
		})
	}

	r.logger.InfoWithFields("Run complete", map[string]interface{}{
		"total_posts": result.TotalPosts,
		"downloaded":  result.DownloadedCount,
	})
	return result, nil
}

// DryRun crawls the feed and reports what a real run would download,
// without downloading or writing anything.
func (r *Runner) DryRun() (*RunResult, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "invalid configuration", err)
	}
	if err := r.auth.Login(r.cfg.Classroom.Email, r.cfg.Classroom.Password); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeAuth, "sign in failed", err)
	}
	posts := r.source.CrawlAll()
	return &RunResult{TotalPosts: len(posts)}, nil
}
