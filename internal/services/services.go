// package services defines interface Service for interacting with the image search API
package services

import (
	"context"
)

// Service defines the interface for search providers that return image-bearing statuses for a tag.
type Service interface {
	// Authenticate obtains a fresh access token, replacing any cached one.
	Authenticate(ctx context.Context) error

	// Search returns statuses matching tag with images attached.
	// When sinceID is non-zero only statuses newer than it are requested.
	Search(ctx context.Context, tag string, sinceID int64) (*SearchResult, error)

	// Name returns the name of the service (e.g., "Twitter")
	Name() string
}
