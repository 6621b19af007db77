package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/formatter"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
	tu "github.com/desertthunder/tagalbum/internal/testing"
)

type fixture struct {
	runner *Runner
	search *tu.MockService
	store  *tu.MemoryStore
	lock   *tu.MockLock
	output *bytes.Buffer
}

func newFixture(t *testing.T, results ...*services.SearchResult) *fixture {
	t.Helper()
	t.Chdir(t.TempDir())

	f := &fixture{
		search: &tu.MockService{Results: results},
		store:  tu.NewMemoryStore(),
		lock:   &tu.MockLock{},
		output: &bytes.Buffer{},
	}
	f.runner = NewRunner(RunnerOpts{
		Search: f.search,
		Albums: f.store,
		Lock:   f.lock,
		Logger: log.New(io.Discard),
		Output: f.output,
	})
	return f
}

func (f *fixture) run(args ...string) error {
	return newApp(f.runner).Run(context.Background(), append([]string{"tagalbum"}, args...))
}

func (f *fixture) seed(t *testing.T, tag string, ids ...int64) *models.Album {
	t.Helper()
	album := &models.Album{Hashtag: tag, Items: tu.NewMediaResult(ids...).Items()}
	if err := f.store.CreateWithItems(context.Background(), album); err != nil {
		t.Fatalf("failed to seed album: %v", err)
	}
	return album
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			search := &tu.MockService{}
			store := tu.NewMemoryStore()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Search:     search,
				Albums:     store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.search != search {
				t.Error("expected search to be set")
			}
			if runner.albums != store {
				t.Error("expected albums to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.Album.MaxItems != models.MaxItems {
				t.Errorf("expected max_items %d, got %d", models.MaxItems, runner.config.Album.MaxItems)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("%s has %d images\n", "#cats", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "#cats has 3 images\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlainln("hello"); err == nil {
				t.Error("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make([]string, 0, len(commands))
		for _, c := range commands {
			names = append(names, c.Name)
		}
		for _, want := range []string{"setup", "album", "search", "serve", "tui"} {
			found := false
			for _, name := range names {
				found = found || name == want
			}
			if !found {
				t.Errorf("expected command %q in %v", want, names)
			}
		}
	})
}

func TestBefore(t *testing.T) {
	t.Run("Loads Config File", func(t *testing.T) {
		f := newFixture(t)
		conf := "[album]\nmax_items = 5\n\n[search]\ntimeout = \"5s\"\n"
		if err := os.WriteFile("custom.toml", []byte(conf), 0644); err != nil {
			t.Fatal(err)
		}

		if err := f.run("--config", "custom.toml", "album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.runner.config.Album.MaxItems != 5 {
			t.Errorf("expected max_items 5, got %d", f.runner.config.Album.MaxItems)
		}
		if f.runner.config.Search.Timeout.Seconds() != 5 {
			t.Errorf("expected 5s timeout, got %v", f.runner.config.Search.Timeout)
		}
		if f.runner.config.Database.Path != "./tagalbum.db" {
			t.Errorf("expected default database path, got %s", f.runner.config.Database.Path)
		}
	})

	t.Run("Missing Config Uses Defaults", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.runner.configPath != "config.toml" {
			t.Errorf("expected default config path, got %s", f.runner.configPath)
		}
	})

	t.Run("Invalid Config", func(t *testing.T) {
		f := newFixture(t)
		os.WriteFile("config.toml", []byte("[album]\nmax_items = 0\n"), 0644)

		err := f.run("album", "list")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Environment Credentials", func(t *testing.T) {
		f := newFixture(t)
		t.Setenv("TAGALBUM_CONSUMER_KEY", "env-key")

		if err := f.run("album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.runner.config.Credentials.Twitter.ConsumerKey != "env-key" {
			t.Errorf("expected env credentials, got %s", f.runner.config.Credentials.Twitter.ConsumerKey)
		}
	})

	t.Run("Verbose", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("--verbose", "album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.runner.logger.GetLevel() != log.DebugLevel {
			t.Errorf("expected debug level, got %v", f.runner.logger.GetLevel())
		}
	})
}

func TestSetup(t *testing.T) {
	t.Chdir(t.TempDir())
	runner := NewRunner(RunnerOpts{Logger: log.New(io.Discard), Output: &bytes.Buffer{}})

	if err := newApp(runner).Run(context.Background(), []string{"tagalbum", "setup"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, "config.toml")
	tu.AssertFileExists(t, "tagalbum.db")
	if runner.db != nil {
		t.Error("expected database to be closed after the command")
	}

	if err := newApp(runner).Run(context.Background(), []string{"tagalbum", "setup"}); err != nil {
		t.Fatalf("expected setup to be repeatable, got %v", err)
	}
}

func TestAlbumCommands(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		f := newFixture(t, tu.NewMediaResult(2, 1))

		if err := f.run("album", "create", "#cats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "Created album 1 for #cats with 2 images") {
			t.Errorf("unexpected output %q", f.output.String())
		}
		if f.store.Len() != 1 {
			t.Errorf("expected 1 stored album, got %d", f.store.Len())
		}
		if f.lock.Locked != 1 || f.lock.Unlocked != 1 {
			t.Errorf("expected lock to be taken and released, got %d/%d", f.lock.Locked, f.lock.Unlocked)
		}
	})

	t.Run("Create JSON", func(t *testing.T) {
		f := newFixture(t, tu.NewMediaResult(3, 2, 1))

		if err := f.run("album", "create", "--json", "#cats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var view formatter.AlbumView
		if err := json.Unmarshal(f.output.Bytes(), &view); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if view.Hashtag != "#cats" || len(view.Images) != 3 {
			t.Errorf("unexpected view %+v", view)
		}
		if view.Preview == nil || view.Preview.ExternalID != 3 {
			t.Errorf("expected newest image as preview, got %+v", view.Preview)
		}
	})

	t.Run("Create Validation", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
			want error
		}{
			{"missing hashtag", []string{"album", "create"}, shared.ErrMissingArgument},
			{"without hash sign", []string{"album", "create", "cats"}, shared.ErrInvalidInput},
			{"with whitespace", []string{"album", "create", "#big cats"}, shared.ErrInvalidInput},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)

				err := f.run(tt.args...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if f.search.Calls != 0 {
					t.Error("search should not be called for invalid input")
				}
			})
		}
	})

	t.Run("Create Without Results", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("album", "create", "#cats"); err != nil {
			t.Fatalf("expected no results to be reported, got %v", err)
		}
		if !strings.Contains(f.output.String(), "No images found for hashtag #cats") {
			t.Errorf("unexpected output %q", f.output.String())
		}
		if f.store.Len() != 0 {
			t.Error("nothing should be stored")
		}
	})

	t.Run("Create While Locked", func(t *testing.T) {
		f := newFixture(t, tu.NewMediaResult(1))
		f.lock.Err = shared.ErrLocked

		err := f.run("album", "create", "#cats")
		if !errors.Is(err, shared.ErrLocked) {
			t.Errorf("expected ErrLocked, got %v", err)
		}
		if f.search.Calls != 0 {
			t.Error("search should not run without the lock")
		}
	})

	t.Run("Create Upstream Failure", func(t *testing.T) {
		f := newFixture(t)
		f.search.Err = &shared.UpstreamError{Status: 503, Body: "over capacity"}

		err := f.run("album", "create", "#cats")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 2, 1)
		f.seed(t, "#dogs", 5)

		if err := f.run("album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := f.output.String()
		for _, want := range []string{"Hashtag", "#cats", "#dogs", "https://pbs.twimg.com/media/5.jpg"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %s", want, out)
			}
		}
	})

	t.Run("List Empty", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("album", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "No albums yet") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("List JSON", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 2, 1)

		if err := f.run("album", "list", "--json", "--pretty=false"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var views []formatter.AlbumView
		if err := json.Unmarshal(f.output.Bytes(), &views); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if len(views) != 1 || views[0].Sequence != 1 || len(views[0].Images) != 2 {
			t.Errorf("unexpected views %+v", views)
		}
	})

	t.Run("Show", func(t *testing.T) {
		f := newFixture(t)
		album := f.seed(t, "#cats", 1, 3, 2)

		for _, id := range []string{"1", album.ID} {
			f.output.Reset()
			if err := f.run("album", "show", id); err != nil {
				t.Fatalf("expected no error for %s, got %v", id, err)
			}

			out := f.output.String()
			if !strings.Contains(out, "Album 1: #cats") {
				t.Errorf("expected album header, got %s", out)
			}
			newest := strings.Index(out, "media/3.jpg")
			oldest := strings.Index(out, "media/1.jpg")
			if newest < 0 || oldest < 0 || newest > oldest {
				t.Errorf("expected images newest first, got %s", out)
			}
		}
	})

	t.Run("Show Unknown", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("album", "show", "9"); !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
		if err := f.run("album", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		f := newFixture(t, tu.NewMediaResult(4, 3))
		f.seed(t, "#cats", 2, 1)

		if err := f.run("album", "refresh", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.search.SinceIDs[0] != 2 {
			t.Errorf("expected since_id 2, got %d", f.search.SinceIDs[0])
		}
		if !strings.Contains(f.output.String(), "2 -> 4 images") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Refresh Without New Images", func(t *testing.T) {
		f := newFixture(t, tu.NewMediaResult(2, 1))
		f.seed(t, "#cats", 2, 1)

		if err := f.run("album", "refresh", "1"); err != nil {
			t.Fatalf("expected no change to be reported, got %v", err)
		}
		if !strings.Contains(f.output.String(), "No new images") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Export", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 2, 1)
		path := filepath.Join("exports", "cats.csv")

		if err := f.run("album", "export", "--format", "csv", "--output", path, "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		content := tu.MustReadFile(t, path)
		if !strings.HasPrefix(content, "External ID,URL,Media URL,External URL,Blob") {
			t.Errorf("unexpected csv %s", content)
		}
		if !strings.Contains(f.output.String(), "Exported 2 images to "+path) {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Export Default Filename", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 1)

		if err := f.run("album", "export", "--format", "md", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, "cats_1.md")
	})

	t.Run("Export Unknown Format", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 1)

		err := f.run("album", "export", "--format", "xml", "1")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, "#cats", 1)

		if err := f.run("album", "delete", "1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if f.store.Len() != 0 {
			t.Error("album should be removed")
		}
		if !strings.Contains(f.output.String(), "Deleted album 1 for #cats") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestSearch(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		f := newFixture(t, tu.NewSearchResult(2, 20, 10))

		if err := f.run("search", "--since", "5", "--json", "#cats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out searchOutput
		if err := json.Unmarshal(f.output.Bytes(), &out); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if out.Query != "#cats" || out.SinceID != 5 {
			t.Errorf("unexpected query echo %+v", out)
		}
		if len(out.Statuses) != 2 || len(out.Statuses[0].Media) != 2 {
			t.Errorf("unexpected statuses %+v", out.Statuses)
		}
		if f.search.SinceIDs[0] != 5 {
			t.Errorf("expected since_id 5, got %d", f.search.SinceIDs[0])
		}
		if f.store.Len() != 0 {
			t.Error("search should not store anything")
		}
	})

	t.Run("Table", func(t *testing.T) {
		f := newFixture(t, tu.NewSearchResult(1, 7))

		if err := f.run("search", "#cats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "#cats: 1 statuses, 1 images") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Empty", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("search", "#cats"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(f.output.String(), "No images found for #cats") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Missing Query", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run("search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestRouter(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "#cats", 1)

	router, err := f.runner.router()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/albums/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"hashtag":"#cats"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	t.Run("Serves Media", func(t *testing.T) {
		f := newFixture(t)
		f.runner.config.Album.PersistMedia = true
		f.runner.blobs = tu.NewMemoryBlobs()
		os.MkdirAll("media", 0755)
		os.WriteFile(filepath.Join("media", "1.jpg"), []byte("jpeg"), 0644)

		router, err := f.runner.router()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/1.jpg", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
			t.Errorf("expected stored media, got %d %q", rec.Code, rec.Body.String())
		}
	})
}
