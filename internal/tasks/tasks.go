package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
)

// SyncEngine defines operations for building and refreshing albums.
type SyncEngine interface {
	// CreateAlbum searches for tag and stores a new album holding the newest results.
	CreateAlbum(ctx context.Context, progress chan<- ProgressUpdate, tag string) (*models.Album, error)

	// UpdateAlbum merges images newer than the album's newest item and drops the overflow past the cap.
	UpdateAlbum(ctx context.Context, progress chan<- ProgressUpdate, album *models.Album) (*models.Album, error)

	// DeleteAlbum removes an album, its items and any stored media.
	DeleteAlbum(ctx context.Context, id string) error
}

// Searcher is the part of [services.Service] the engine depends on.
type Searcher interface {
	Search(ctx context.Context, tag string, sinceID int64) (*services.SearchResult, error)
}

// Store is the persistence collaborator. Multi-row writes must be atomic.
type Store interface {
	CreateWithItems(ctx context.Context, album *models.Album) error
	ApplyChanges(ctx context.Context, albumID string, create []models.Item, deleteIDs []string) error
	Get(ctx context.Context, id string) (*models.Album, error)
	Items(ctx context.Context, albumID string) ([]models.Item, error)
	MaxExternalID(ctx context.Context, albumID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Fetcher downloads media for items lacking a blob. See [MediaFetcher].
type Fetcher interface {
	FetchAll(ctx context.Context, items []models.Item) error
}

// EngineOpts configures an [AlbumEngine].
type EngineOpts struct {
	MaxItems     int       // defaults to [models.MaxItems]
	PersistMedia bool      // download media for new items before saving
	Fetcher      Fetcher   // required when PersistMedia is set
	Blobs        BlobStore // used to remove media of dropped items
	Logger       *log.Logger
}

// AlbumEngine implements SyncEngine.
//
// Calls are serialized so two syncs never compute merges from the same stale snapshot.
type AlbumEngine struct {
	searcher Searcher
	store    Store
	fetcher  Fetcher
	blobs    BlobStore
	maxItems int
	persist  bool
	logger   *log.Logger

	mu sync.Mutex
}

// NewAlbumEngine creates a new AlbumEngine with the provided search service and store.
func NewAlbumEngine(searcher Searcher, store Store, opts EngineOpts) *AlbumEngine {
	if opts.MaxItems <= 0 {
		opts.MaxItems = models.MaxItems
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &AlbumEngine{
		searcher: searcher,
		store:    store,
		fetcher:  opts.Fetcher,
		blobs:    opts.Blobs,
		maxItems: opts.MaxItems,
		persist:  opts.PersistMedia,
		logger:   shared.WithLogger(opts.Logger, "component", "engine"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *AlbumEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func (e *AlbumEngine) checkReady() error {
	if e.searcher == nil {
		return fmt.Errorf("%w: search service not initialized", shared.ErrServiceUnavailable)
	}
	if e.store == nil {
		return fmt.Errorf("%w: store not initialized", shared.ErrServiceUnavailable)
	}
	if e.persist && e.fetcher == nil {
		return fmt.Errorf("%w: media persistence enabled without a fetcher", shared.ErrServiceUnavailable)
	}
	return nil
}

// CreateAlbum builds a new album for tag from a single search.
//
// Results are deduplicated, truncated to the cap in source order, then stored newest-first.
// Zero results fail with [shared.ErrNoResults] and nothing is stored.
func (e *AlbumEngine) CreateAlbum(ctx context.Context, progress chan<- ProgressUpdate, tag string) (*models.Album, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.sendProgress(progress, searchUpdate(tag, 0))

	result, err := e.searcher.Search(ctx, tag, 0)
	if err != nil {
		return nil, err
	}
	if result.Len() == 0 {
		e.logger.Info("no images found", "tag", tag)
		return nil, fmt.Errorf("%w for hashtag %s", shared.ErrNoResults, tag)
	}

	items := capItems(dedupBatch(result.Items()), e.maxItems)
	models.SortNewestFirst(items)
	e.sendProgress(progress, foundUpdate(result.Len(), len(items)))

	album := &models.Album{Hashtag: tag, Items: items}

	fetched, err := e.fetchMedia(ctx, progress, album.Items)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, persistUpdate(len(album.Items)))
	if err := e.store.CreateWithItems(ctx, album); err != nil {
		e.removeBlobs(fetched)
		return nil, fmt.Errorf("failed to save album: %w", err)
	}

	e.logger.Info("album created", "id", album.ID, "tag", tag, "items", album.Len())
	e.sendProgress(progress, doneUpdate(album))
	return album, nil
}

// UpdateAlbum searches for images newer than the album's newest stored item and merges them in.
//
// When nothing new is found it fails with [shared.ErrNoChange] and the stored items are left untouched.
// The returned album holds the retained window newest-first.
func (e *AlbumEngine) UpdateAlbum(ctx context.Context, progress chan<- ProgressUpdate, album *models.Album) (*models.Album, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	existing, err := e.store.Items(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load album items: %w", err)
	}

	sinceID, err := e.store.MaxExternalID(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load album cursor: %w", err)
	}

	e.sendProgress(progress, searchUpdate(album.Hashtag, sinceID))

	result, err := e.searcher.Search(ctx, album.Hashtag, sinceID)
	if err != nil {
		return nil, err
	}

	candidates := dedupBatch(result.Items())
	e.sendProgress(progress, foundUpdate(result.Len(), len(candidates)))

	// An empty search is also no change: refreshing never reports NoResults, so the
	// album stays readable and the caller gets a 200 "No new images".
	merged, changed := mergeItems(existing, candidates, e.maxItems)
	if !changed {
		e.logger.Info("no new images", "id", album.ID, "tag", album.Hashtag, "since_id", sinceID)
		return nil, fmt.Errorf("%w for hashtag %s", shared.ErrNoChange, album.Hashtag)
	}
	e.sendProgress(progress, mergeUpdate(merged))

	fetched, err := e.fetchMedia(ctx, progress, merged.Create)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, persistUpdate(len(merged.Create)))
	if err := e.store.ApplyChanges(ctx, album.ID, merged.Create, merged.DeleteIDs()); err != nil {
		e.removeBlobs(fetched)
		return nil, fmt.Errorf("failed to save album changes: %w", err)
	}

	var dropped []string
	for _, item := range merged.Delete {
		dropped = append(dropped, item.Blob)
	}
	e.removeBlobs(dropped)

	items, err := e.store.Items(ctx, album.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload album items: %w", err)
	}

	updated := *album
	updated.Items = items
	updated.UpdatedAt = time.Now().UTC()

	e.logger.Info("album updated",
		"id", album.ID, "tag", album.Hashtag, "created", len(merged.Create), "deleted", len(merged.Delete), "items", updated.Len())
	e.sendProgress(progress, doneUpdate(&updated))
	return &updated, nil
}

// DeleteAlbum removes the album and then the media blobs of its items.
func (e *AlbumEngine) DeleteAlbum(ctx context.Context, id string) error {
	if e.store == nil {
		return fmt.Errorf("%w: store not initialized", shared.ErrServiceUnavailable)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	album, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := e.store.Delete(ctx, id); err != nil {
		return err
	}

	var blobs []string
	for _, item := range album.Items {
		blobs = append(blobs, item.Blob)
	}
	e.removeBlobs(blobs)

	e.logger.Info("album deleted", "id", id, "tag", album.Hashtag)
	return nil
}

// fetchMedia downloads media for items without a blob when persistence is enabled.
//
// It returns the blobs stored by this call. On failure those blobs are removed before returning.
func (e *AlbumEngine) fetchMedia(ctx context.Context, progress chan<- ProgressUpdate, items []models.Item) ([]string, error) {
	if !e.persist {
		return nil, nil
	}

	var pending []int
	for i := range items {
		if items[i].Blob == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	e.sendProgress(progress, fetchMediaUpdate(len(pending)))

	err := e.fetcher.FetchAll(ctx, items)

	var fetched []string
	for _, i := range pending {
		if items[i].Blob != "" {
			fetched = append(fetched, items[i].Blob)
		}
	}

	if err != nil {
		e.logger.Error("media download failed", "error", err)
		e.removeBlobs(fetched)
		return nil, err
	}

	e.sendProgress(progress, fetchedMediaUpdate(len(fetched), len(pending)))
	return fetched, nil
}

func (e *AlbumEngine) removeBlobs(refs []string) {
	if e.blobs == nil {
		return
	}
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if err := e.blobs.Remove(ref); err != nil {
			e.logger.Warn("failed to remove media", "blob", ref, "error", err)
		}
	}
}
