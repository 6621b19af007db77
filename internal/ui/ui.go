package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/desertthunder/tagalbum/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AlbumListView ViewState = iota
	ItemListView
	NewAlbumView
	ConfirmView
	SyncView
	ResultView
)

// operation is the album action being confirmed or run.
type operation int

const (
	opCreate operation = iota
	opRefresh
	opDelete
)

func (o operation) String() string {
	switch o {
	case opCreate:
		return "Create"
	case opRefresh:
		return "Refresh"
	case opDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// AlbumLister loads stored albums for browsing.
type AlbumLister interface {
	List(ctx context.Context) ([]*models.Album, error)
}

// Locker serializes syncs across processes.
type Locker interface {
	TryLock() error
	Unlock() error
}

// Options configures a [Model].
type Options struct {
	Albums   AlbumLister
	Engine   tasks.SyncEngine
	Lock     Locker // optional
	UseBlobs bool
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	albums   AlbumLister
	engine   tasks.SyncEngine
	lock     Locker
	useBlobs bool

	width     int
	height    int
	albumList list.Model
	itemList  list.Model
	input     textinput.Model
	selected  *models.Album

	op           operation
	tag          string
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	result       *models.Album
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "#hashtag"
	input.Prompt = "Hashtag: "
	input.CharLimit = 140

	albumList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	albumList.Title = "Albums"

	return &Model{
		ctx:       ctx,
		view:      AlbumListView,
		albums:    opts.Albums,
		engine:    opts.Engine,
		lock:      opts.Lock,
		useBlobs:  opts.UseBlobs,
		albumList: albumList,
		itemList:  list.New(nil, list.NewDefaultDelegate(), 0, 0),
		input:     input,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// Init initializes the TUI by loading stored albums.
func (m *Model) Init() tea.Cmd {
	return m.loadAlbums()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.albumList.SetSize(msg.Width-4, msg.Height-8)
		m.itemList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AlbumListView:
			return m.handleAlbumListKeys(msg)
		case ItemListView:
			return m.handleItemListKeys(msg)
		case NewAlbumView:
			return m.handleNewAlbumKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAlbumsLoaded:
		data := msg.data.(albumsLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(data.albums))
		for i, album := range data.albums {
			items[i] = albumItem{album: album}
		}
		return m, m.albumList.SetItems(items)

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.op = data.op
		m.result = data.album
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.Err(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case AlbumListView:
		return m.renderAlbumList()
	case ItemListView:
		return m.renderItemList()
	case NewAlbumView:
		return m.renderNewAlbum()
	case ConfirmView:
		return m.renderConfirm()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleAlbumListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.albumList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.albumList, cmd = m.albumList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if album := m.selectedAlbum(); album != nil {
			m.showItems(album)
			return m, nil
		}
	case key.Matches(msg, m.keys.create):
		m.input.Reset()
		m.view = NewAlbumView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.refresh):
		if album := m.selectedAlbum(); album != nil {
			m.confirm(album, opRefresh)
			return m, nil
		}
	case key.Matches(msg, m.keys.remove):
		if album := m.selectedAlbum(); album != nil {
			m.confirm(album, opDelete)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m *Model) handleItemListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = AlbumListView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		m.confirm(m.selected, opRefresh)
		return m, nil
	}

	var cmd tea.Cmd
	m.itemList, cmd = m.itemList.Update(msg)
	return m, cmd
}

func (m *Model) handleNewAlbumKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = AlbumListView
		return m, nil
	case tea.KeyEnter:
		tag := strings.TrimSpace(m.input.Value())
		if err := shared.ValidateHashtag(tag); err != nil {
			m.input.Err = err
			return m, nil
		}
		m.input.Blur()
		m.tag = tag
		m.op = opCreate
		m.view = SyncView
		return m, m.startSync()
	}

	m.input.Err = nil
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = AlbumListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = SyncView
		return m, m.startSync()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart), key.Matches(msg, m.keys.back):
		m.view = AlbumListView
		m.selected = nil
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.loadAlbums()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case AlbumListView:
		m.albumList, cmd = m.albumList.Update(msg)
	case ItemListView:
		m.itemList, cmd = m.itemList.Update(msg)
	case NewAlbumView:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedAlbum() *models.Album {
	if item, ok := m.albumList.SelectedItem().(albumItem); ok {
		return item.album
	}
	return nil
}

func (m *Model) showItems(album *models.Album) {
	m.selected = album
	items := make([]list.Item, len(album.Items))
	for i, item := range album.Items {
		items[i] = imageItem{item: item, useBlobs: m.useBlobs}
	}
	m.itemList.SetItems(items)
	m.itemList.Title = fmt.Sprintf("Images in %s", album.Hashtag)
	m.view = ItemListView
}

func (m *Model) confirm(album *models.Album, op operation) {
	m.selected = album
	m.tag = album.Hashtag
	m.op = op
	m.view = ConfirmView
}

func (m *Model) loadAlbums() tea.Cmd {
	return func() tea.Msg {
		albums, err := m.albums.List(m.ctx)
		return albumsLoadedMsg(albums, err)
	}
}

// startSync runs the pending operation in the background.
//
// The result is delivered on doneChan after the progress channel is drained, so [Model.waitForProgress]
// reads every update before the completion message.
func (m *Model) startSync() tea.Cmd {
	m.progress = tasks.ProgressUpdate{}
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan Msg, 1)

	op, tag, selected := m.op, m.tag, m.selected
	progress, done := m.progressChan, m.doneChan

	go func() {
		album, err := m.run(op, tag, selected, progress)
		done <- syncCompleteMsg(op, album, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) run(op operation, tag string, selected *models.Album, progress chan<- tasks.ProgressUpdate) (*models.Album, error) {
	if m.lock != nil {
		if err := m.lock.TryLock(); err != nil {
			return nil, err
		}
		defer m.lock.Unlock()
	}

	switch op {
	case opCreate:
		return m.engine.CreateAlbum(m.ctx, progress, tag)
	case opRefresh:
		return m.engine.UpdateAlbum(m.ctx, progress, selected)
	case opDelete:
		return selected, m.engine.DeleteAlbum(m.ctx, selected.ID)
	}
	return nil, fmt.Errorf("%w: operation %d", shared.ErrNotImplemented, op)
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return nil
		}

		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderAlbumList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.create, m.keys.refresh, m.keys.remove, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	if len(m.albumList.Items()) == 0 {
		return fmt.Sprintf("%s\n%s\n\n%s", styles.Title("Albums"), styles.Help("No albums yet. Press a to create one."), helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.albumList.View(), helpView)
}

func (m *Model) renderItemList() string {
	helpKeys := []key.Binding{m.keys.refresh, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.itemList.View(), helpView)
}

func (m *Model) renderNewAlbum() string {
	title := styles.Title("New Album")
	body := m.input.View()
	if m.input.Err != nil {
		body = fmt.Sprintf("%s\n\n%s", body, styles.Err(strings.TrimPrefix(m.input.Err.Error(), shared.ErrInvalidInput.Error()+": ")))
	}

	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create"))
	helpView := m.help.ShortHelpView([]key.Binding{submit, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.Title(fmt.Sprintf("%s album %s?", m.op, m.selected.Hashtag))
	info := fmt.Sprintf("\nAlbum: %d\nImages: %d\n", m.selected.Sequence, m.selected.Len())

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderSync() string {
	title := styles.Title(fmt.Sprintf("Syncing %s", m.tag))
	if m.op == opDelete {
		title = styles.Title(fmt.Sprintf("Deleting %s", m.tag))
	}

	var phase string
	switch m.progress.Phase {
	case tasks.Search:
		phase = "Searching..."
	case tasks.Merge:
		phase = "Merging images..."
	case tasks.FetchMedia:
		phase = fmt.Sprintf("Downloading media (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Persist:
		phase = "Saving album..."
	case tasks.Done:
		phase = "Done"
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.Help(m.progress.Message))
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		if shared.IsRecoverable(m.err) {
			return fmt.Sprintf("%s\n\n%s", styles.Warn(resultMessage(m.err, m.tag)), helpView)
		}
		return fmt.Sprintf("%s\n\n%s", styles.Err(fmt.Sprintf("%s failed: %v", m.op, m.err)), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.Err("No result available"), helpView)
	}

	var title string
	switch m.op {
	case opCreate:
		title = fmt.Sprintf("✓ Created album %d for %s", m.result.Sequence, m.result.Hashtag)
	case opRefresh:
		title = fmt.Sprintf("✓ Updated album %s", m.result.Hashtag)
	case opDelete:
		return fmt.Sprintf("%s\n\n%s", styles.OK(fmt.Sprintf("✓ Deleted album %s", m.result.Hashtag)), helpView)
	}

	info := fmt.Sprintf("\nImages: %d", m.result.Len())
	if preview, ok := m.result.Preview(); ok {
		info += fmt.Sprintf("\nNewest: %s", preview.DisplayURL(m.useBlobs))
	}

	return fmt.Sprintf("%s\n%s\n\n%s", styles.OK(title), info, helpView)
}

func resultMessage(err error, tag string) string {
	switch {
	case errors.Is(err, shared.ErrNoResults):
		return fmt.Sprintf("No images found for hashtag %s", tag)
	case errors.Is(err, shared.ErrNoChange):
		return "No new images"
	}
	return err.Error()
}
