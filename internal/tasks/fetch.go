package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const defaultFetchWorkers = 8

// FetcherOpts configures a [MediaFetcher].
type FetcherOpts struct {
	Store      BlobStore
	HTTPClient *http.Client // defaults to [http.DefaultClient]
	Workers    int          // concurrent downloads, defaults to 8
	RateLimit  float64      // downloads started per second, 0 disables throttling
	Logger     *log.Logger
}

// MediaFetcher downloads media for items that have no stored blob yet.
type MediaFetcher struct {
	store   BlobStore
	client  *http.Client
	workers int
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewMediaFetcher creates a new MediaFetcher writing into opts.Store.
func NewMediaFetcher(opts FetcherOpts) *MediaFetcher {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultFetchWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &MediaFetcher{
		store:   opts.Store,
		client:  opts.HTTPClient,
		workers: opts.Workers,
		limiter: rate.NewLimiter(limit, 1),
		logger:  shared.WithLogger(opts.Logger, "component", "fetcher"),
	}
}

// FetchAll downloads the media of every item without a blob and sets [models.Item.Blob] in place.
//
// Downloads run on a bounded pool. A non-200 response leaves the item without a blob and is not an error.
// The first transport or storage failure is returned as a [shared.FetchError] and cancels the remaining downloads.
// Blobs stored before the failure are kept on the items so the caller can clean them up.
func (f *MediaFetcher) FetchAll(ctx context.Context, items []models.Item) error {
	var pending []int
	for i := range items {
		if items[i].Blob == "" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, i := range pending {
		g.Go(func() error {
			blob, err := f.fetch(gctx, items[i])
			if err != nil {
				return err
			}
			items[i].Blob = blob
			return nil
		})
	}

	return g.Wait()
}

func (f *MediaFetcher) fetch(ctx context.Context, item models.Item) (string, error) {
	fail := func(err error) error {
		return &shared.FetchError{ExternalID: item.ExternalID, URL: item.MediaURL, Err: err}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.MediaURL, nil)
	if err != nil {
		return "", fail(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("skipping media", "external_id", item.ExternalID, "status", resp.StatusCode)
		return "", nil
	}

	blob, err := f.store.Put(ctx, blobName(item), resp.Body)
	if err != nil {
		return "", fail(err)
	}

	f.logger.Debug("downloaded media", "external_id", item.ExternalID, "blob", blob)
	return blob, nil
}

// blobName derives a unique file name from the item id and the extension of its media URL.
func blobName(item models.Item) string {
	ext := ".jpg"
	if u, err := url.Parse(item.MediaURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%d_%s%s", item.ExternalID, shared.GenerateID()[:8], ext)
}
