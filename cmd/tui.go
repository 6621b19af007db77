package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tagalbum/internal/shared"
	"github.com/desertthunder/tagalbum/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive album browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tagalbum-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	albums, err := r.openStore()
	if err != nil {
		return err
	}
	engine, err := r.syncEngine()
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Albums:   albums,
		Engine:   engine,
		Lock:     r.syncLock(),
		UseBlobs: r.useBlobs(),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
