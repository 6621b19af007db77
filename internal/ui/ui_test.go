package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/services"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/desertthunder/tagalbum/internal/tasks"
	tu "github.com/desertthunder/tagalbum/internal/testing"
)

type failingLister struct{ err error }

func (f failingLister) List(ctx context.Context) ([]*models.Album, error) { return nil, f.err }

func newTestModel(t *testing.T, results ...*services.SearchResult) (*Model, *tu.MemoryStore, *tu.MockService) {
	t.Helper()
	search := &tu.MockService{Results: results}
	store := tu.NewMemoryStore()
	engine := tasks.NewAlbumEngine(search, store, tasks.EngineOpts{Logger: log.New(io.Discard)})

	m := NewModel(context.Background(), Options{Albums: store, Engine: engine})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, store, search
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drive runs cmd and feeds the resulting messages back into m until the sync completes.
func drive(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		if cmd == nil {
			return
		}
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
		if m.view == ResultView {
			return
		}
	}
	t.Fatal("sync did not complete")
}

func load(t *testing.T, m *Model) {
	t.Helper()
	m.Update(m.Init()())
}

func TestModel(t *testing.T) {
	t.Run("Loads Albums", func(t *testing.T) {
		m, store, _ := newTestModel(t)
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#cats", Items: tu.NewMediaResult(2, 1).Items()})
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#dogs"})

		load(t, m)

		if got := len(m.albumList.Items()); got != 2 {
			t.Fatalf("expected 2 albums, got %d", got)
		}
		if view := m.View(); !strings.Contains(view, "#cats") {
			t.Errorf("expected album in view, got %s", view)
		}
	})

	t.Run("Load Error", func(t *testing.T) {
		m := NewModel(context.Background(), Options{Albums: failingLister{err: errors.New("database is locked")}})
		load(t, m)

		if !strings.Contains(m.View(), "database is locked") {
			t.Errorf("expected error in view, got %s", m.View())
		}
	})

	t.Run("Empty", func(t *testing.T) {
		m, _, _ := newTestModel(t)
		load(t, m)

		if !strings.Contains(m.View(), "No albums yet") {
			t.Errorf("expected empty hint, got %s", m.View())
		}
	})

	t.Run("Browse Items", func(t *testing.T) {
		m, store, _ := newTestModel(t)
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#cats", Items: tu.NewMediaResult(3, 2, 1).Items()})
		load(t, m)

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ItemListView {
			t.Fatalf("expected item list, got view %d", m.view)
		}
		if got := len(m.itemList.Items()); got != 3 {
			t.Errorf("expected 3 images, got %d", got)
		}
		if first, ok := m.itemList.Items()[0].(imageItem); !ok || first.item.ExternalID != 3 {
			t.Errorf("expected newest image first, got %+v", m.itemList.Items()[0])
		}

		m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		if m.view != AlbumListView {
			t.Errorf("expected album list after esc, got view %d", m.view)
		}
	})

	t.Run("Create Album", func(t *testing.T) {
		m, store, _ := newTestModel(t, tu.NewMediaResult(2, 1))
		load(t, m)

		m.Update(runes("a"))
		if m.view != NewAlbumView {
			t.Fatalf("expected new album view, got %d", m.view)
		}

		m.Update(runes("cats"))
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != NewAlbumView || m.input.Err == nil {
			t.Fatal("expected validation error for tag without #")
		}
		if !strings.Contains(m.View(), `must starts with "#" sign`) {
			t.Errorf("expected validation message, got %s", m.View())
		}

		m.input.SetValue("#cats")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != SyncView {
			t.Fatalf("expected sync view, got %d", m.view)
		}

		drive(t, m, cmd)

		if m.err != nil {
			t.Fatalf("expected no error, got %v", m.err)
		}
		if store.Len() != 1 {
			t.Errorf("expected album to be stored")
		}
		if !strings.Contains(m.View(), "Created album 1 for #cats") {
			t.Errorf("unexpected result view %s", m.View())
		}

		_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != AlbumListView {
			t.Fatalf("expected album list, got %d", m.view)
		}
		m.Update(cmd())
		if len(m.albumList.Items()) != 1 {
			t.Errorf("expected reloaded albums, got %d", len(m.albumList.Items()))
		}
	})

	t.Run("Refresh Without New Images", func(t *testing.T) {
		m, store, search := newTestModel(t, tu.NewMediaResult(2, 1))
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#cats", Items: tu.NewMediaResult(2, 1).Items()})
		load(t, m)

		m.Update(runes("r"))
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %d", m.view)
		}
		if !strings.Contains(m.View(), "Refresh album #cats?") {
			t.Errorf("unexpected confirm view %s", m.View())
		}

		_, cmd := m.Update(runes("y"))
		drive(t, m, cmd)

		if !errors.Is(m.err, shared.ErrNoChange) {
			t.Fatalf("expected ErrNoChange, got %v", m.err)
		}
		if !strings.Contains(m.View(), "No new images") {
			t.Errorf("expected no change message, got %s", m.View())
		}
		if search.SinceIDs[0] != 2 {
			t.Errorf("expected since_id 2, got %d", search.SinceIDs[0])
		}
	})

	t.Run("Cancel Confirm", func(t *testing.T) {
		m, store, search := newTestModel(t)
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#cats"})
		load(t, m)

		m.Update(runes("d"))
		m.Update(runes("n"))
		if m.view != AlbumListView {
			t.Errorf("expected album list, got %d", m.view)
		}
		if store.Len() != 1 || search.Calls != 0 {
			t.Error("nothing should change")
		}
	})

	t.Run("Delete Album", func(t *testing.T) {
		m, store, _ := newTestModel(t)
		store.CreateWithItems(context.Background(), &models.Album{Hashtag: "#cats"})
		load(t, m)

		m.Update(runes("d"))
		_, cmd := m.Update(runes("y"))
		drive(t, m, cmd)

		if store.Len() != 0 {
			t.Error("album should be removed")
		}
		if !strings.Contains(m.View(), "Deleted album #cats") {
			t.Errorf("unexpected result view %s", m.View())
		}
	})

	t.Run("Sync Failure", func(t *testing.T) {
		m, _, search := newTestModel(t)
		search.Err = &shared.UpstreamError{Status: 503, Body: "over capacity"}
		load(t, m)

		m.Update(runes("a"))
		m.input.SetValue("#cats")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		drive(t, m, cmd)

		if !strings.Contains(m.View(), "Create failed") {
			t.Errorf("expected failure in view, got %s", m.View())
		}
	})

	t.Run("Quit", func(t *testing.T) {
		m, _, _ := newTestModel(t)
		load(t, m)

		_, cmd := m.Update(runes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
