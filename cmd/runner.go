package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/repositories"
	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/desertthunder/tagalbum/internal/tasks"
	"github.com/urfave/cli/v3"
)

// AlbumStore is the album persistence the CLI reads and syncs through.
type AlbumStore interface {
	tasks.Store
	List(ctx context.Context) ([]*models.Album, error)
	GetBySequence(ctx context.Context, sequence int64) (*models.Album, error)
}

// Locker serializes syncs across processes.
type Locker interface {
	TryLock() error
	Unlock() error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies not provided up front are built from the configuration on first use.
type Runner struct {
	config     *shared.Config
	configPath string
	search     services.Service
	albums     AlbumStore
	blobs      tasks.BlobStore
	engine     tasks.SyncEngine
	lock       Locker
	db         *sql.DB
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Search     services.Service
	Albums     AlbumStore
	Blobs      tasks.BlobStore
	Engine     tasks.SyncEngine
	Lock       Locker
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		search:     opts.Search,
		albums:     opts.Albums,
		blobs:      opts.Blobs,
		engine:     opts.Engine,
		lock:       opts.Lock,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, albumCommand, searchCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and anything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Before loads the configuration named by --config and applies --verbose.
//
// A missing config file falls back to defaults so commands that need no credentials still work.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	if path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else if r.configPath != "" {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	r.config.ApplyEnv()
	if err := r.config.Validate(); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// Close releases the database opened by the runner.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.albums = nil
	r.engine = nil
	return err
}

// openStore opens the configured database and migrates it to the latest schema.
func (r *Runner) openStore() (AlbumStore, error) {
	if r.albums != nil {
		return r.albums, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}

	r.db = db
	r.albums = repositories.NewAlbumRepository(db)
	return r.albums, nil
}

// searchService builds the search client from the configured credentials.
func (r *Runner) searchService() (services.Service, error) {
	if r.search != nil {
		return r.search, nil
	}

	creds := r.config.Credentials.Twitter
	client, err := r.client(creds.ProxyURL)
	if err != nil {
		return nil, err
	}

	search, err := services.NewTwitterClient(services.TwitterOpts{
		ConsumerKey:    creds.ConsumerKey,
		ConsumerSecret: creds.ConsumerSecret,
		SearchURL:      r.config.Search.SearchURL,
		TokenURL:       r.config.Search.TokenURL,
		Count:          r.config.Album.MaxItems,
		RateLimit:      r.config.Search.RateLimit,
		HTTPClient:     client,
		Logger:         r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.search = search
	return search, nil
}

func (r *Runner) client(proxyURL string) (*http.Client, error) {
	if r.httpClient != nil {
		return r.httpClient, nil
	}
	return shared.NewHTTPClient(proxyURL, r.config.Search.Timeout)
}

// blobStore opens the media directory when media persistence is enabled.
func (r *Runner) blobStore() (tasks.BlobStore, error) {
	if r.blobs != nil || !r.config.Album.PersistMedia {
		return r.blobs, nil
	}

	store, err := tasks.NewDirStore(r.config.Media.Dir, r.config.Media.BaseURL)
	if err != nil {
		return nil, err
	}
	r.blobs = store
	return store, nil
}

// syncEngine wires search, store and media into an [tasks.AlbumEngine].
func (r *Runner) syncEngine() (tasks.SyncEngine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	albums, err := r.openStore()
	if err != nil {
		return nil, err
	}
	search, err := r.searchService()
	if err != nil {
		return nil, err
	}
	blobs, err := r.blobStore()
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		MaxItems:     r.config.Album.MaxItems,
		PersistMedia: r.config.Album.PersistMedia,
		Blobs:        blobs,
		Logger:       r.logger,
	}
	if opts.PersistMedia {
		client, err := r.client(r.config.Credentials.Twitter.ProxyURL)
		if err != nil {
			return nil, err
		}
		opts.Fetcher = tasks.NewMediaFetcher(tasks.FetcherOpts{
			Store:      blobs,
			HTTPClient: client,
			Workers:    r.config.Media.Workers,
			RateLimit:  r.config.Media.RateLimit,
			Logger:     r.logger,
		})
	}

	r.engine = tasks.NewAlbumEngine(search, albums, opts)
	return r.engine, nil
}

func (r *Runner) syncLock() Locker {
	if r.lock == nil {
		r.lock = shared.NewSyncLock(shared.LockPath(r.config.Database.Path))
	}
	return r.lock
}

// withLock runs fn while holding the sync lock.
func (r *Runner) withLock(fn func() error) error {
	lock := r.syncLock()
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release sync lock", "error", err)
		}
	}()
	return fn()
}

// reportOutcome prints recoverable sync outcomes as warnings and passes other errors through.
func (r *Runner) reportOutcome(err error, tag string) error {
	switch {
	case errors.Is(err, shared.ErrNoResults):
		return r.writePlain("%s\n", styles.Warn(fmt.Sprintf("No images found for hashtag %s", tag)))
	case errors.Is(err, shared.ErrNoChange):
		return r.writePlain("%s\n", styles.Warn("No new images"))
	}
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
