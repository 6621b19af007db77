// Search API response types based on https://developer.twitter.com/en/docs/twitter-api/v1/tweets/search/api-reference/get-search-tweets
package services

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/desertthunder/tagalbum/internal/models"
)

// CreatedAtLayout is the timestamp layout used by the search API, e.g. "Wed Aug 27 13:08:45 +0000 2008".
const CreatedAtLayout = time.RubyDate

type rawMedia struct {
	ID            int64  `json:"id"`
	DisplayURL    string `json:"display_url"`
	MediaURLHTTPS string `json:"media_url_https"`
	URL           string `json:"url"`
}

type rawURL struct {
	DisplayURL  string `json:"display_url"`
	ExpandedURL string `json:"expanded_url"`
}

type rawHashtag struct {
	Text string `json:"text"`
}

type rawEntities struct {
	Hashtags []rawHashtag `json:"hashtags"`
	URLs     []rawURL     `json:"urls"`
}

type rawExtendedEntities struct {
	Media []rawMedia `json:"media"`
}

type rawStatus struct {
	ID               int64                `json:"id"`
	CreatedAt        string               `json:"created_at"`
	Entities         rawEntities          `json:"entities"`
	ExtendedEntities *rawExtendedEntities `json:"extended_entities"`
}

type rawMetadata struct {
	Count       int    `json:"count"`
	MaxID       int64  `json:"max_id"`
	NextResults string `json:"next_results"`
}

type rawSearchResponse struct {
	Statuses []rawStatus  `json:"statuses"`
	Metadata *rawMetadata `json:"search_metadata"`
}

// Metadata is the paging information returned with a search.
type Metadata struct {
	Count       int
	MaxID       int64
	NextResults string
}

// Media is a single attachment on a status.
type Media struct {
	ID         int64
	DisplayURL string
	MediaURL   string // https media url
	URL        string // short link to the media page
}

// URL is a link found in the status text.
type URL struct {
	DisplayURL  string
	ExpandedURL string
}

// Status is a search hit that carries at least one media attachment.
type Status struct {
	ID           int64
	CreatedAt    time.Time // zero when CreatedAtRaw did not parse
	CreatedAtRaw string
	Hashtags     []string
	URLs         []URL
	Media        []Media
}

// ExternalURL returns the first expanded link of the status, or "" when it has none.
func (s Status) ExternalURL() string {
	if len(s.URLs) == 0 {
		return ""
	}
	return s.URLs[0].ExpandedURL
}

// Items converts each media attachment into an unsaved [models.Item].
func (s Status) Items() []models.Item {
	external := s.ExternalURL()
	items := make([]models.Item, 0, len(s.Media))
	for _, m := range s.Media {
		items = append(items, models.Item{
			ExternalID:  m.ID,
			URL:         m.URL,
			MediaURL:    m.MediaURL,
			ExternalURL: external,
		})
	}
	return items
}

// SearchResult is a mapped search response.
type SearchResult struct {
	Metadata Metadata
	Statuses []Status
}

// Len returns the number of statuses kept after mapping.
func (r *SearchResult) Len() int {
	return len(r.Statuses)
}

// All iterates statuses in source order. Each call starts a new pass.
func (r *SearchResult) All() iter.Seq[Status] {
	return slices.Values(r.Statuses)
}

// Items flattens the media of every status into items, in source order, without deduplication.
func (r *SearchResult) Items() []models.Item {
	var items []models.Item
	for status := range r.All() {
		items = append(items, status.Items()...)
	}
	return items
}

// MapSearchResponse decodes a raw search payload into a [SearchResult].
func MapSearchResponse(raw []byte) (*SearchResult, error) {
	var resp rawSearchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	result := &SearchResult{Statuses: make([]Status, 0, len(resp.Statuses))}
	if resp.Metadata != nil {
		result.Metadata = Metadata{
			Count:       resp.Metadata.Count,
			MaxID:       resp.Metadata.MaxID,
			NextResults: resp.Metadata.NextResults,
		}
	}

	for _, rs := range resp.Statuses {
		if rs.ExtendedEntities == nil || len(rs.ExtendedEntities.Media) == 0 {
			continue
		}
		result.Statuses = append(result.Statuses, mapStatus(rs))
	}

	return result, nil
}

func mapStatus(rs rawStatus) Status {
	status := Status{ID: rs.ID, CreatedAtRaw: rs.CreatedAt}

	if t, err := time.Parse(CreatedAtLayout, rs.CreatedAt); err == nil {
		status.CreatedAt = t
	}

	for _, h := range rs.Entities.Hashtags {
		status.Hashtags = append(status.Hashtags, h.Text)
	}
	for _, u := range rs.Entities.URLs {
		status.URLs = append(status.URLs, URL{DisplayURL: u.DisplayURL, ExpandedURL: u.ExpandedURL})
	}
	for _, m := range rs.ExtendedEntities.Media {
		status.Media = append(status.Media, Media{
			ID:         m.ID,
			DisplayURL: m.DisplayURL,
			MediaURL:   m.MediaURLHTTPS,
			URL:        m.URL,
		})
	}

	return status
}
