// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing and syncing hashtag albums:
//  1. [AlbumListView] : Browse stored albums
//  2. [ItemListView] : Preview the images of an album, newest first
//  3. [NewAlbumView] : Enter a hashtag for a new album
//  4. [ConfirmView] : Confirm a refresh or delete
//  5. [SyncView] : Monitor real-time progress updates
//  6. [ResultView] : Display the outcome of the sync
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the AlbumEngine, providing non-blocking status reporting during syncs.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
