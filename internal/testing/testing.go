// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
)

// MockService is a test double for [services.Service]
//
// Results are returned in order, one per Search call; the last one repeats.
type MockService struct {
	mu       sync.Mutex
	Results  []*services.SearchResult
	Err      error
	AuthErr  error
	Calls    int
	SinceIDs []int64
}

func (m *MockService) Authenticate(ctx context.Context) error {
	return m.AuthErr
}

func (m *MockService) Search(ctx context.Context, tag string, sinceID int64) (*services.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.SinceIDs = append(m.SinceIDs, sinceID)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Results) == 0 {
		return &services.SearchResult{}, nil
	}
	i := min(m.Calls-1, len(m.Results)-1)
	return m.Results[i], nil
}

func (m *MockService) Name() string { return "mock" }

// NewSearchResult builds a result with one status per id, newest first, each carrying perStatus media.
//
// Media ids are status*1000+n and every url is unique.
func NewSearchResult(perStatus int, statusIDs ...int64) *services.SearchResult {
	result := &services.SearchResult{}
	for _, id := range statusIDs {
		status := services.Status{ID: id}
		for n := range perStatus {
			mediaID := id*1000 + int64(n)
			status.Media = append(status.Media, services.Media{
				ID:       mediaID,
				URL:      fmt.Sprintf("https://t.co/%d", mediaID),
				MediaURL: fmt.Sprintf("https://pbs.twimg.com/media/%d.jpg", mediaID),
			})
		}
		result.Statuses = append(result.Statuses, status)
	}
	return result
}

// NewMediaResult builds a result with one status per media id, each carrying a single media entry.
func NewMediaResult(mediaIDs ...int64) *services.SearchResult {
	result := &services.SearchResult{}
	for _, id := range mediaIDs {
		result.Statuses = append(result.Statuses, services.Status{
			ID: id,
			Media: []services.Media{{
				ID:       id,
				URL:      fmt.Sprintf("https://t.co/%d", id),
				MediaURL: fmt.Sprintf("https://pbs.twimg.com/media/%d.jpg", id),
			}},
		})
	}
	return result
}

// MemoryStore is an in-memory album store with all-or-nothing writes.
type MemoryStore struct {
	mu        sync.Mutex
	albums    map[string]*models.Album
	seq       int64
	nextID    int
	CreateErr error
	ApplyErr  error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{albums: make(map[string]*models.Album)}
}

func (s *MemoryStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *MemoryStore) CreateWithItems(ctx context.Context, album *models.Album) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CreateErr != nil {
		return s.CreateErr
	}

	s.seq++
	stored := &models.Album{ID: s.id(), Sequence: s.seq, Hashtag: album.Hashtag}
	for _, item := range album.Items {
		item.ID = s.id()
		item.AlbumID = stored.ID
		stored.Items = append(stored.Items, item)
	}
	s.albums[stored.ID] = stored

	album.ID = stored.ID
	album.Sequence = stored.Sequence
	album.Items = slices.Clone(stored.Items)
	return nil
}

func (s *MemoryStore) ApplyChanges(ctx context.Context, albumID string, create []models.Item, deleteIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ApplyErr != nil {
		return s.ApplyErr
	}

	album, ok := s.albums[albumID]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
	}

	items := slices.DeleteFunc(slices.Clone(album.Items), func(item models.Item) bool {
		return slices.Contains(deleteIDs, item.ID)
	})
	for i := range create {
		create[i].ID = s.id()
		create[i].AlbumID = albumID
		items = append(items, create[i])
	}
	album.Items = items
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	album, ok := s.albums[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
	}
	clone := *album
	clone.Items = s.sorted(album)
	return &clone, nil
}

func (s *MemoryStore) GetBySequence(ctx context.Context, sequence int64) (*models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, album := range s.albums {
		if album.Sequence == sequence {
			clone := *album
			clone.Items = s.sorted(album)
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", shared.ErrAlbumNotFound, sequence)
}

func (s *MemoryStore) Items(ctx context.Context, albumID string) ([]models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	album, ok := s.albums[albumID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
	}
	return s.sorted(album), nil
}

func (s *MemoryStore) MaxExternalID(ctx context.Context, albumID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	album, ok := s.albums[albumID]
	if !ok {
		return 0, nil
	}
	return models.MaxExternalID(album.Items), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.albums[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
	}
	delete(s.albums, id)
	return nil
}

// List returns every album ordered by sequence.
func (s *MemoryStore) List(ctx context.Context) ([]*models.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	albums := make([]*models.Album, 0, len(s.albums))
	for _, album := range s.albums {
		clone := *album
		clone.Items = s.sorted(album)
		albums = append(albums, &clone)
	}
	slices.SortFunc(albums, func(a, b *models.Album) int { return int(a.Sequence - b.Sequence) })
	return albums, nil
}

// Len returns the number of stored albums.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.albums)
}

func (s *MemoryStore) sorted(album *models.Album) []models.Item {
	items := slices.Clone(album.Items)
	models.SortNewestFirst(items)
	return items
}

// MemoryBlobs is an in-memory blob store.
type MemoryBlobs struct {
	mu      sync.Mutex
	Blobs   map[string][]byte
	Removed []string
	PutErr  error
}

func NewMemoryBlobs() *MemoryBlobs {
	return &MemoryBlobs{Blobs: make(map[string][]byte)}
}

func (b *MemoryBlobs) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if b.PutErr != nil {
		return "", b.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ref := "mem://" + name
	b.Blobs[ref] = data
	return ref, nil
}

func (b *MemoryBlobs) Remove(ref string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Blobs, ref)
	b.Removed = append(b.Removed, ref)
	return nil
}

// Len returns the number of stored blobs.
func (b *MemoryBlobs) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Blobs)
}

// MockLock is an in-process stand-in for [shared.SyncLock].
type MockLock struct {
	Err      error
	Locked   int
	Unlocked int
}

func (l *MockLock) TryLock() error {
	if l.Err != nil {
		return l.Err
	}
	l.Locked++
	return nil
}

func (l *MockLock) Unlock() error {
	l.Unlocked++
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
