// package formatter provides functions to export album data to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
)

// Format names an export format
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported export formats
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat resolves a format name, accepting "md" and "text" as aliases
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, s)
}

// Ext returns the file extension for the format
func (f Format) Ext() string {
	if f == Markdown {
		return ".md"
	}
	return "." + string(f)
}

// ImageView is the public representation of an album item
type ImageView struct {
	ExternalID  int64  `json:"external_id"`
	URL         string `json:"url"`
	MediaURL    string `json:"media_url"`
	ExternalURL string `json:"external_url,omitempty"`
}

// AlbumView is the public representation of an album.
//
// MediaURL of every image is the stored blob when blobs are in use, otherwise the upstream media URL.
type AlbumView struct {
	ID        string      `json:"id"`
	Sequence  int64       `json:"pk"`
	Hashtag   string      `json:"hashtag"`
	Images    []ImageView `json:"images"`
	Preview   *ImageView  `json:"preview_image"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewAlbumView builds the public representation of album
func NewAlbumView(album *models.Album, useBlobs bool) AlbumView {
	view := AlbumView{
		ID:        album.ID,
		Sequence:  album.Sequence,
		Hashtag:   album.Hashtag,
		Images:    make([]ImageView, 0, album.Len()),
		CreatedAt: album.CreatedAt,
		UpdatedAt: album.UpdatedAt,
	}
	for _, item := range album.Items {
		view.Images = append(view.Images, newImageView(item, useBlobs))
	}
	if item, ok := album.Preview(); ok {
		preview := newImageView(item, useBlobs)
		view.Preview = &preview
	}
	return view
}

// NewAlbumViews builds public representations for a list of albums
func NewAlbumViews(albums []*models.Album, useBlobs bool) []AlbumView {
	views := make([]AlbumView, 0, len(albums))
	for _, album := range albums {
		views = append(views, NewAlbumView(album, useBlobs))
	}
	return views
}

func newImageView(item models.Item, useBlobs bool) ImageView {
	return ImageView{
		ExternalID:  item.ExternalID,
		URL:         item.URL,
		MediaURL:    item.DisplayURL(useBlobs),
		ExternalURL: item.ExternalURL,
	}
}

// ExportToJSON converts an album to indented JSON using [AlbumView]
func ExportToJSON(album *models.Album, useBlobs bool) ([]byte, error) {
	return shared.MarshalJSON(NewAlbumView(album, useBlobs), true)
}

// ExportToCSV converts an album to CSV format with columns: External ID, URL, Media URL, External URL, Blob
func ExportToCSV(album *models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"External ID", "URL", "Media URL", "External URL", "Blob"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range album.Items {
		record := []string{
			strconv.FormatInt(item.ExternalID, 10),
			item.URL,
			item.MediaURL,
			item.ExternalURL,
			item.Blob,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an album to Markdown format with the newest image as the cover
func ExportToMarkdown(album *models.Album, useBlobs bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", album.Hashtag))

	if item, ok := album.Preview(); ok {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", item.DisplayURL(useBlobs)))
	}

	buf.WriteString(fmt.Sprintf("**Images**: %d\n", album.Len()))
	if !album.UpdatedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Updated**: %s\n", album.UpdatedAt.Format(time.RFC3339)))
	}
	buf.WriteString("\n## Images\n\n")

	for i, item := range album.Items {
		source := ""
		if item.ExternalURL != "" {
			source = fmt.Sprintf(" ([source](%s))", item.ExternalURL)
		}
		buf.WriteString(fmt.Sprintf("%d. [%d](%s) ![](%s)%s\n", i+1, item.ExternalID, item.URL, item.DisplayURL(useBlobs), source))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an album to plain text format
func ExportToText(album *models.Album) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Album: %s\n", album.Hashtag))
	buf.WriteString(fmt.Sprintf("Images: %d\n\n", album.Len()))

	for i, item := range album.Items {
		buf.WriteString(fmt.Sprintf("%d. %d %s\n", i+1, item.ExternalID, item.MediaURL))
	}

	return buf.Bytes(), nil
}

// Export renders album in the given format
func Export(album *models.Album, format Format, useBlobs bool) ([]byte, error) {
	switch format {
	case JSON:
		return ExportToJSON(album, useBlobs)
	case CSV:
		return ExportToCSV(album)
	case Markdown:
		return ExportToMarkdown(album, useBlobs)
	case Text:
		return ExportToText(album)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, format)
}

// DefaultFilename derives an export filename from the hashtag and sequence, e.g. cats_3.csv
func DefaultFilename(album *models.Album, format Format) string {
	name := strings.TrimPrefix(album.Hashtag, "#")
	if name == "" {
		name = "album"
	}
	return fmt.Sprintf("%s_%d%s", name, album.Sequence, format.Ext())
}

// WriteExport exports an album to a file.
//
// Defaults to [DefaultFilename] when path is empty. Parent directories are created as needed.
func WriteExport(album *models.Album, format Format, path string, useBlobs bool) (string, error) {
	if path == "" {
		path = DefaultFilename(album, format)
	}

	data, err := Export(album, format, useBlobs)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}
