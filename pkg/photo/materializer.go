// Package photo turns post records into durable photo files: download,
// true-type detection, atomic write, metadata embedding and timestamp
// fixing.
package photo

import (
	"strings"

	"github.com/h2non/filetype"

	"tcgrabber/pkg/classroom"
	errs "tcgrabber/pkg/errors"
	"tcgrabber/pkg/logger"
	"tcgrabber/pkg/storage"
)

// Downloader fetches raw photo bytes through the authenticated session
type Downloader interface {
	DownloadPhoto(url string) ([]byte, error)
}

// SavedPhoto describes one newly materialized photo
type SavedPhoto struct {
	Path        string
	Description string
}

// validExtensions is the allow-list for URL-derived extensions
var validExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"tiff": true, "tif": true, "bmp": true, "webp": true,
}

// Materializer downloads one post's photo and writes it plus its
// metadata to the output directory.
type Materializer struct {
	downloader Downloader
	store      *storage.Manager
	writer     MetadataWriter
	meta       SchoolMeta
	logger     logger.Logger
}

// SchoolMeta holds the location and keywords embedded into every photo
type SchoolMeta struct {
	Latitude  float64
	Longitude float64
	Keywords  string
}

// NewMaterializer creates a Materializer
func NewMaterializer(downloader Downloader, store *storage.Manager, writer MetadataWriter, meta SchoolMeta, log logger.Logger) *Materializer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Materializer{
		downloader: downloader,
		store:      store,
		writer:     writer,
		meta:       meta,
		logger:     log,
	}
}

// Materialize downloads and persists one post's photo. It returns nil
// without error when the photo already exists or is not a usable image
// (skipped). Metadata embedding failures are logged but never fail the
// call; the file on disk is the primary success criterion.
func (m *Materializer) Materialize(post *classroom.Post) (*SavedPhoto, error) {
	id := post.ID.String()
	log := m.logger.WithField("post_id", id)

	description := StripHTML(post.HTML)
	creator := StripHTML(post.Author)

	createdAt, err := post.CreatedTime()
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMaterialize, "invalid created_at timestamp", err)
	}
	date := createdAt.Format("2006-01-02")

	urlExt := extensionFromURL(post.PhotoURL)
	if !validExtensions[urlExt] {
		log.WarnWithFields("unrecognized file extension, defaulting to jpg", map[string]interface{}{
			"extension": urlExt,
		})
		urlExt = "jpg"
	}

	path := m.store.PathFor(date, id, urlExt)
	if m.store.Exists(path) {
		log.Debug("photo already exists, skipping")
		return nil, nil
	}

	data, err := m.downloader.DownloadPhoto(post.PhotoURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMaterialize, "photo download failed", err)
	}

	// Trust the bytes, not the URL: detect the real image type from
	// the magic number.
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown || !strings.HasPrefix(kind.MIME.Value, "image/") {
		log.Warn("downloaded content is not a valid image, skipping")
		return nil, nil
	}
	actualExt := kind.Extension

	if normalizeExt(actualExt) != normalizeExt(urlExt) {
		log.WarnWithFields("URL extension does not match actual format", map[string]interface{}{
			"url_extension":    urlExt,
			"actual_extension": actualExt,
		})
		path = m.store.PathFor(date, id, actualExt)

		// A photo reached via two extension spellings must still
		// yield a single file.
		if m.store.Exists(path) {
			log.Debug("photo already exists with correct extension, skipping")
			return nil, nil
		}
	}

	if err := m.store.Save(path, data); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMaterialize, "failed to write photo", err)
	}

	if err := m.writer.Embed(path, Metadata{
		Title:     description,
		Creator:   creator,
		TakenAt:   createdAt,
		Latitude:  m.meta.Latitude,
		Longitude: m.meta.Longitude,
		Keywords:  m.meta.Keywords,
	}); err != nil {
		log.WithError(err).Warn("failed to embed metadata, keeping photo anyway")
	}

	if err := m.store.SetTimes(path, createdAt); err != nil {
		log.WithError(err).Warn("failed to set file timestamps")
	}

	log.InfoWithFields("photo materialized", map[string]interface{}{
		"path": path,
	})

	return &SavedPhoto{Path: path, Description: description}, nil
}

// extensionFromURL extracts a lower-cased extension from the URL path,
// ignoring any query string.
func extensionFromURL(rawURL string) string {
	path := rawURL
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if i := strings.LastIndex(path, "."); i >= 0 {
		return strings.ToLower(path[i+1:])
	}
	return "jpg"
}

// normalizeExt treats jpeg/jpg and tiff/tif as the same type
func normalizeExt(ext string) string {
	switch ext {
	case "jpeg", "jpg":
		return "jpg"
	case "tiff", "tif":
		return "tif"
	}
	return ext
}
