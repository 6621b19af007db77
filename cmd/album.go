package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/tagalbum/internal/formatter"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/urfave/cli/v3"
)

const timeLayout = "2006-01-02 15:04"

func (r *Runner) useBlobs() bool {
	return r.config.Album.PersistMedia
}

// resolveAlbum looks up an album by its numeric sequence or its row id.
func (r *Runner) resolveAlbum(ctx context.Context, id string) (*models.Album, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	albums, err := r.openStore()
	if err != nil {
		return nil, err
	}

	if sequence, err := strconv.ParseInt(id, 10, 64); err == nil {
		return albums.GetBySequence(ctx, sequence)
	}
	return albums.Get(ctx, id)
}

// AlbumList prints every stored album.
func (r *Runner) AlbumList(ctx context.Context, cmd *cli.Command) error {
	albums, err := r.openStore()
	if err != nil {
		return err
	}

	list, err := albums.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list albums: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.NewAlbumViews(list, r.useBlobs()), cmd.Bool("pretty"))
	}

	if len(list) == 0 {
		return r.writePlain("%s\n", styles.Help("No albums yet. Create one with: tagalbum album create \"#hashtag\""))
	}

	rows := make([][]string, 0, len(list))
	for _, album := range list {
		preview := ""
		if item, ok := album.Preview(); ok {
			preview = item.DisplayURL(r.useBlobs())
		}
		rows = append(rows, []string{
			strconv.FormatInt(album.Sequence, 10),
			album.Hashtag,
			strconv.Itoa(album.Len()),
			formatTime(album.UpdatedAt),
			preview,
		})
	}

	return r.writePlain("%s\n", renderTable(
		[]string{"ID", "Hashtag", "Images", "Updated", "Preview"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

// AlbumShow prints the images of one album, newest first.
func (r *Runner) AlbumShow(ctx context.Context, cmd *cli.Command) error {
	album, err := r.resolveAlbum(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.NewAlbumView(album, r.useBlobs()), cmd.Bool("pretty"))
	}

	return r.printAlbum(album)
}

// AlbumCreate searches for a hashtag and stores the results as a new album.
func (r *Runner) AlbumCreate(ctx context.Context, cmd *cli.Command) error {
	tag := cmd.StringArg("hashtag")
	if tag == "" {
		return fmt.Errorf("%w: hashtag", shared.ErrMissingArgument)
	}
	if err := shared.ValidateHashtag(tag); err != nil {
		return err
	}

	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	var album *models.Album
	err = r.withLock(func() error {
		album, err = engine.CreateAlbum(ctx, nil, tag)
		return err
	})
	if err != nil {
		return r.reportOutcome(err, tag)
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.NewAlbumView(album, r.useBlobs()), cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", styles.OK(fmt.Sprintf("Created album %d for %s with %d images", album.Sequence, album.Hashtag, album.Len())))
}

// AlbumRefresh merges images newer than the album's newest one.
func (r *Runner) AlbumRefresh(ctx context.Context, cmd *cli.Command) error {
	album, err := r.resolveAlbum(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	before := album.Len()
	var updated *models.Album
	err = r.withLock(func() error {
		updated, err = engine.UpdateAlbum(ctx, nil, album)
		return err
	})
	if err != nil {
		return r.reportOutcome(err, album.Hashtag)
	}

	if cmd.Bool("json") {
		return r.writeJSON(formatter.NewAlbumView(updated, r.useBlobs()), cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", styles.OK(fmt.Sprintf("Updated album %d for %s: %d -> %d images",
		updated.Sequence, updated.Hashtag, before, updated.Len())))
}

// AlbumExport writes an album to a file in the requested format.
func (r *Runner) AlbumExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	album, err := r.resolveAlbum(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(album, format, cmd.String("output"), r.useBlobs())
	if err != nil {
		return err
	}

	r.logger.Info("album exported", "album", album.Hashtag, "format", format, "path", path)
	return r.writePlain("%s\n", styles.OK(fmt.Sprintf("Exported %d images to %s", album.Len(), path)))
}

// AlbumDelete removes an album along with its items and stored media.
func (r *Runner) AlbumDelete(ctx context.Context, cmd *cli.Command) error {
	album, err := r.resolveAlbum(ctx, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	if err := r.withLock(func() error { return engine.DeleteAlbum(ctx, album.ID) }); err != nil {
		return err
	}
	return r.writePlain("%s\n", styles.OK(fmt.Sprintf("Deleted album %d for %s", album.Sequence, album.Hashtag)))
}

func (r *Runner) printAlbum(album *models.Album) error {
	r.writePlainHeader(fmt.Sprintf("Album %d: %s", album.Sequence, album.Hashtag))
	r.writePlain("Images:  %d\n", album.Len())
	r.writePlain("Created: %s\n", formatTime(album.CreatedAt))
	r.writePlain("Updated: %s\n", formatTime(album.UpdatedAt))

	if album.Len() == 0 {
		return nil
	}

	rows := make([][]string, 0, album.Len())
	for i, item := range album.Items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(item.ExternalID, 10),
			item.DisplayURL(r.useBlobs()),
			item.ExternalURL,
		})
	}

	return r.writePlainln("%s", renderTable(
		[]string{"#", "External ID", "Image", "Link"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
