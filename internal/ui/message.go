package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tagalbum/internal/models"
	"github.com/desertthunder/tagalbum/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAlbumsLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
)

type albumsLoaded struct {
	albums []*models.Album
	err    error
}

type syncComplete struct {
	op    operation
	album *models.Album
	err   error
}

// albumsLoadedMsg is the constructor for [MsgAlbumsLoaded]
func albumsLoadedMsg(albums []*models.Album, err error) Msg {
	return Msg{kind: MsgAlbumsLoaded, data: albumsLoaded{albums, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(op operation, album *models.Album, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{op, album, err}}
}
