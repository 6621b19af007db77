package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/urfave/cli/v3"
)

type searchMedia struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	MediaURL string `json:"media_url"`
}

type searchStatus struct {
	ID          int64         `json:"id"`
	CreatedAt   string        `json:"created_at"`
	Hashtags    []string      `json:"hashtags"`
	ExternalURL string        `json:"external_url,omitempty"`
	Media       []searchMedia `json:"media"`
}

type searchOutput struct {
	Query    string         `json:"query"`
	SinceID  int64          `json:"since_id,omitempty"`
	MaxID    int64          `json:"max_id"`
	Statuses []searchStatus `json:"statuses"`
}

func newSearchOutput(query string, sinceID int64, result *services.SearchResult) searchOutput {
	out := searchOutput{
		Query:    query,
		SinceID:  sinceID,
		MaxID:    result.Metadata.MaxID,
		Statuses: make([]searchStatus, 0, result.Len()),
	}
	for status := range result.All() {
		s := searchStatus{
			ID:          status.ID,
			CreatedAt:   status.CreatedAtRaw,
			Hashtags:    status.Hashtags,
			ExternalURL: status.ExternalURL(),
		}
		for _, m := range status.Media {
			s.Media = append(s.Media, searchMedia{ID: m.ID, URL: m.URL, MediaURL: m.MediaURL})
		}
		out.Statuses = append(out.Statuses, s)
	}
	return out
}

// Search queries the upstream API directly and prints the mapped statuses without storing anything.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	search, err := r.searchService()
	if err != nil {
		return err
	}

	sinceID := cmd.Int64("since")
	r.logger.Debug("searching", "service", search.Name(), "query", query, "since_id", sinceID)

	result, err := search.Search(ctx, query, sinceID)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(newSearchOutput(query, sinceID, result), cmd.Bool("pretty"))
	}

	if result.Len() == 0 {
		return r.writePlain("%s\n", styles.Warn(fmt.Sprintf("No images found for %s", query)))
	}

	rows := [][]string{}
	for status := range result.All() {
		for _, m := range status.Media {
			rows = append(rows, []string{
				strconv.FormatInt(status.ID, 10),
				strconv.FormatInt(m.ID, 10),
				m.MediaURL,
				status.ExternalURL(),
			})
		}
	}

	r.writePlainHeader(fmt.Sprintf("%s: %d statuses, %d images", query, result.Len(), len(rows)))
	return r.writePlain("%s\n", renderTable(
		[]string{"Status", "Media", "Image", "Link"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	))
}
