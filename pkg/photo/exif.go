package photo

import (
	"fmt"
	"os/exec"
	"time"

	"tcgrabber/pkg/logger"
)

// Metadata holds the fields embedded into a downloaded photo
type Metadata struct {
	Title     string
	Creator   string
	TakenAt   time.Time
	Latitude  float64
	Longitude float64
	Keywords  string
}

// MetadataWriter embeds metadata into an image file on disk
type MetadataWriter interface {
	Embed(path string, meta Metadata) error
}

// ExifToolWriter shells out to exiftool, which handles EXIF, IPTC and
// XMP tags uniformly across image formats.
type ExifToolWriter struct {
	logger logger.Logger
}

// NewExifToolWriter creates an exiftool-backed metadata writer
func NewExifToolWriter(log logger.Logger) *ExifToolWriter {
	if log == nil {
		log = logger.GetLogger()
	}
	return &ExifToolWriter{logger: log}
}

// Embed writes the metadata into the file in place
func (w *ExifToolWriter) Embed(path string, meta Metadata) error {
	latRef := "N"
	if meta.Latitude < 0 {
		latRef = "S"
	}
	lngRef := "E"
	if meta.Longitude < 0 {
		lngRef = "W"
	}

	args := []string{
		"-overwrite_original",
		"-ignoreMinorErrors",
		// EXIF tags (widely supported)
		fmt.Sprintf("-EXIF:ImageDescription=%s", meta.Title),
		fmt.Sprintf("-EXIF:Artist=%s", meta.Creator),
		fmt.Sprintf("-EXIF:DateTimeOriginal=%s", meta.TakenAt.Format("2006:01:02 15:04:05")),
		// GPS: magnitude stored, hemisphere via the ref letter
		fmt.Sprintf("-EXIF:GPSLatitude=%f", abs(meta.Latitude)),
		fmt.Sprintf("-EXIF:GPSLatitudeRef=%s", latRef),
		fmt.Sprintf("-EXIF:GPSLongitude=%f", abs(meta.Longitude)),
		fmt.Sprintf("-EXIF:GPSLongitudeRef=%s", lngRef),
		// IPTC tags (JPEG/TIFF; ignored for PNG)
		fmt.Sprintf("-IPTC:Caption-Abstract=%s", meta.Title),
		fmt.Sprintf("-IPTC:ObjectName=%s", meta.Title),
		fmt.Sprintf("-IPTC:By-line=%s", meta.Creator),
		fmt.Sprintf("-IPTC:Keywords=%s", meta.Keywords),
		// XMP tags (work for all formats)
		fmt.Sprintf("-XMP:Description=%s", meta.Title),
		fmt.Sprintf("-XMP:Title=%s", meta.Title),
		fmt.Sprintf("-XMP:Creator=%s", meta.Creator),
		fmt.Sprintf("-XMP:Subject=%s", meta.Keywords),
		path,
	}

	cmd := exec.Command("exiftool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("exiftool failed: %w (output: %s)", err, string(output))
	}

	if len(output) > 0 {
		w.logger.DebugWithFields("exiftool output", map[string]interface{}{
			"path":   path,
			"output": string(output),
		})
	}

	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NopMetadataWriter discards metadata. Used in tests and dry runs.
type NopMetadataWriter struct{}

func (NopMetadataWriter) Embed(string, Metadata) error { return nil }
