// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/tagalbum/internal/ui"
	"github.com/urfave/cli/v3"
)

var styles = ui.Styles()

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
			Value: true,
		},
	}
}

// setupCommand initializes configuration, database and media directory.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config file, initialize database and run migrations",
		Action: r.Setup,
	}
}

// albumCommand handles album operations
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "album",
		Aliases: []string{"albums", "a"},
		Usage:   "Create, refresh and inspect hashtag albums",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List stored albums",
				Flags:   jsonFlags(),
				Action:  r.AlbumList,
			},
			{
				Name:      "show",
				Usage:     "Show the images of an album, newest first",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  jsonFlags(),
				Action: r.AlbumShow,
			},
			{
				Name:      "create",
				Usage:     "Create an album from a hashtag search",
				ArgsUsage: "<#hashtag>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "hashtag"},
				},
				Flags:  jsonFlags(),
				Action: r.AlbumCreate,
			},
			{
				Name:      "refresh",
				Aliases:   []string{"update"},
				Usage:     "Merge newer images into an album",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  jsonFlags(),
				Action: r.AlbumRefresh,
			},
			{
				Name:      "export",
				Usage:     "Export an album to JSON, CSV, Markdown or text",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (json, csv, markdown, txt)",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: <hashtag>_<id>.<ext>)",
					},
				},
				Action: r.AlbumExport,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete an album with its images and stored media",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.AlbumDelete,
			},
		},
	}
}

// searchCommand runs a raw search against the upstream API
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search for images without storing them",
		ArgsUsage: "<query>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "query"},
		},
		Flags: append([]cli.Flag{
			&cli.Int64Flag{
				Name:  "since",
				Usage: "Only return statuses newer than this id",
			},
		}, jsonFlags()...),
		Action: r.Search,
	}
}

// serveCommand starts the JSON API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the album JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive album management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing and syncing albums",
		Action:  r.TUI,
	}
}
