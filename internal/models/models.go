// package models defines the data model for hashtag albums
package models

import (
	"cmp"
	"slices"
	"time"
)

// MaxItems is the default number of items an album retains.
const MaxItems = 100

// Album is a named, capped collection of images found for a search tag.
type Album struct {
	ID        string    `json:"id"`
	Sequence  int64     `json:"sequence"`
	Hashtag   string    `json:"hashtag"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a single image taken from one upstream status.
type Item struct {
	ID          string    `json:"id"`
	AlbumID     string    `json:"album_id"`
	ExternalID  int64     `json:"external_id"`
	URL         string    `json:"url"`
	MediaURL    string    `json:"media_url"`
	ExternalURL string    `json:"external_url,omitempty"`
	Blob        string    `json:"blob,omitempty"` // local binary reference, empty until downloaded
	CreatedAt   time.Time `json:"created_at"`
}

// Persisted reports whether the item has been stored and assigned a row ID.
func (i Item) Persisted() bool {
	return i.ID != ""
}

// Same reports whether i and other refer to the same media.
//
// Any single matching non-empty URL is enough.
func (i Item) Same(other Item) bool {
	return sameURL(i.URL, other.URL) ||
		sameURL(i.MediaURL, other.MediaURL) ||
		sameURL(i.ExternalURL, other.ExternalURL)
}

func sameURL(a, b string) bool {
	return a != "" && a == b
}

// DisplayURL returns the stored blob reference when blobs are in use and present, otherwise the upstream media URL.
func (i Item) DisplayURL(useBlobs bool) string {
	if useBlobs && i.Blob != "" {
		return i.Blob
	}
	return i.MediaURL
}

// ContainsSame reports whether any item in items is the same media as item.
func ContainsSame(items []Item, item Item) bool {
	return slices.ContainsFunc(items, item.Same)
}

// SortNewestFirst orders items by external id descending.
//
// The sort is stable so items sharing an id keep their relative order.
func SortNewestFirst(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		return cmp.Compare(b.ExternalID, a.ExternalID)
	})
}

// MaxExternalID returns the largest external id in items, or 0 when empty.
func MaxExternalID(items []Item) int64 {
	var max int64
	for _, item := range items {
		if item.ExternalID > max {
			max = item.ExternalID
		}
	}
	return max
}

// Preview returns the newest item of the album.
func (a *Album) Preview() (Item, bool) {
	if len(a.Items) == 0 {
		return Item{}, false
	}
	newest := a.Items[0]
	for _, item := range a.Items[1:] {
		if item.ExternalID > newest.ExternalID {
			newest = item
		}
	}
	return newest, true
}

// Len returns the number of items in the album.
func (a *Album) Len() int {
	return len(a.Items)
}
