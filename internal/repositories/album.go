package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
)

const itemColumns = "id, album_id, external_id, url, media_url, external_url, blob, created_at"

// AlbumRepository persists albums and their items.
type AlbumRepository struct {
	db *sql.DB
}

// NewAlbumRepository creates a new AlbumRepository with the given database connection
func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// CreateWithItems inserts album and all of its items in one transaction.
//
// On success the album and every item carry their generated IDs, the album sequence and timestamps.
// On failure nothing is written and the album is left unchanged.
func (r *AlbumRepository) CreateWithItems(ctx context.Context, album *models.Album) error {
	now := time.Now().UTC()
	id := shared.GenerateID()
	items := make([]models.Item, len(album.Items))
	copy(items, album.Items)

	var sequence int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		sequence, err = nextSequence(ctx, tx, "albums")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO albums (id, sequence, hashtag, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			id, sequence, album.Hashtag, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert album: %w", err)
		}

		return insertItems(ctx, tx, id, items, now)
	})
	if err != nil {
		return err
	}

	album.ID = id
	album.Sequence = sequence
	album.CreatedAt = now
	album.UpdatedAt = now
	album.Items = items
	return nil
}

// ApplyChanges inserts create and deletes the items in deleteIDs for the album, in one transaction.
//
// Items in create are assigned IDs in place.
func (r *AlbumRepository) ApplyChanges(ctx context.Context, albumID string, create []models.Item, deleteIDs []string) error {
	now := time.Now().UTC()
	inserted := make([]models.Item, len(create))
	copy(inserted, create)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE albums SET updated_at = ? WHERE id = ?`, now, albumID)
		if err != nil {
			return fmt.Errorf("failed to touch album: %w", err)
		}
		if rows, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		} else if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, albumID)
		}

		if err := insertItems(ctx, tx, albumID, inserted, now); err != nil {
			return err
		}
		return deleteItems(ctx, tx, albumID, deleteIDs)
	})
	if err != nil {
		return err
	}

	copy(create, inserted)
	return nil
}

func insertItems(ctx context.Context, tx *sql.Tx, albumID string, items []models.Item, now time.Time) error {
	if len(items) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		item := &items[i]
		item.ID = shared.GenerateID()
		item.AlbumID = albumID
		item.CreatedAt = now

		if _, err := stmt.ExecContext(ctx,
			item.ID, item.AlbumID, item.ExternalID, item.URL, item.MediaURL, item.ExternalURL, item.Blob, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert item %d: %w", item.ExternalID, err)
		}
	}

	return nil
}

func deleteItems(ctx context.Context, tx *sql.Tx, albumID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, albumID)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"DELETE FROM items WHERE album_id = ? AND id IN (%s)",
		strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "),
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	return nil
}

// Get retrieves an album by ID with its items newest-first.
func (r *AlbumRepository) Get(ctx context.Context, id string) (*models.Album, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sequence, hashtag, created_at, updated_at FROM albums WHERE id = ?`, id,
	)
	return r.loadOne(ctx, row, id)
}

// GetBySequence retrieves an album by its sequence number with its items newest-first.
func (r *AlbumRepository) GetBySequence(ctx context.Context, sequence int64) (*models.Album, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sequence, hashtag, created_at, updated_at FROM albums WHERE sequence = ?`, sequence,
	)
	return r.loadOne(ctx, row, fmt.Sprintf("#%d", sequence))
}

func (r *AlbumRepository) loadOne(ctx context.Context, row *sql.Row, ref string) (*models.Album, error) {
	album, err := scanAlbum(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan album: %w", err)
	}

	album.Items, err = r.Items(ctx, album.ID)
	if err != nil {
		return nil, err
	}
	return album, nil
}

// List retrieves every album ordered by sequence, each with its items newest-first.
func (r *AlbumRepository) List(ctx context.Context) ([]*models.Album, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sequence, hashtag, created_at, updated_at FROM albums ORDER BY sequence`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}

	var albums []*models.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating albums: %w", err)
	}
	rows.Close()

	// items are loaded after the cursor is closed, the pool may hold a single connection
	for _, album := range albums {
		if album.Items, err = r.Items(ctx, album.ID); err != nil {
			return nil, err
		}
	}

	return albums, nil
}

// Items returns the items of an album, newest-first by external id.
func (r *AlbumRepository) Items(ctx context.Context, albumID string) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE album_id = ? ORDER BY external_id DESC, created_at`, albumID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(
			&item.ID, &item.AlbumID, &item.ExternalID, &item.URL, &item.MediaURL, &item.ExternalURL, &item.Blob, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

// MaxExternalID returns the largest external id stored for the album, or 0 when it has no items.
func (r *AlbumRepository) MaxExternalID(ctx context.Context, albumID string) (int64, error) {
	var max int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(external_id), 0) FROM items WHERE album_id = ?`, albumID,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max external id: %w", err)
	}
	return max, nil
}

// Delete removes an album and all of its items.
func (r *AlbumRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE album_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete items: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM albums WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete album: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: %s", shared.ErrAlbumNotFound, id)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlbum(s scanner) (*models.Album, error) {
	var album models.Album
	if err := s.Scan(&album.ID, &album.Sequence, &album.Hashtag, &album.CreatedAt, &album.UpdatedAt); err != nil {
		return nil, err
	}
	return &album, nil
}
