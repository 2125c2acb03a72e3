// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/desertthunder/dash/internal/formatter"
	"github.com/urfave/cli/v3"
)

func formatNames() string {
	var names []string
	for _, f := range formatter.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: " + formatNames(),
		Value:   value,
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Formats to write (" + formatNames() + "); repeat or comma-separate",
			Value:   []string{"json"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (default: dash_export_{epoch})",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent file writers",
			Value: 2,
		},
	}
}

// setupCommand creates the config file and migrates the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml if missing and run database migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration after migrating",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the web dashboard.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web dashboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the dashboard in a browser once listening",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to a rotating file instead of stderr (overrides log.file)",
			},
			&cli.DurationFlag{
				Name:  "maintenance-interval",
				Usage: "How often to warm content caches and purge expired rows (0 disables)",
				Value: 15 * time.Minute,
			},
		},
		Action: r.Serve,
	}
}

// habitsCommand handles habit CRUD and tracking.
func habitsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "habits",
		Aliases: []string{"habit", "h"},
		Usage:   "Manage and track habits",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List habits with their streaks",
				Flags:   []cli.Flag{formatFlag("txt")},
				Action:  r.HabitsList,
			},
			{
				Name:      "add",
				Usage:     "Create a habit",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Habit description",
					},
				},
				Action: r.HabitsAdd,
			},
			{
				Name:      "edit",
				Usage:     "Rename a habit or change its description",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "New name",
					},
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "New description",
					},
				},
				Action: r.HabitsEdit,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a habit",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.HabitsDelete,
			},
			{
				Name:      "done",
				Usage:     "Mark a habit completed now and update its streak",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.HabitsDone,
			},
			{
				Name:  "streak",
				Usage: "Preview the streak a completion now would produce",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "last",
						Usage:    "Last completion timestamp (RFC 3339, SQL timestamp, or YYYY-MM-DD)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "prior",
						Usage: "Streak before this completion",
					},
				},
				Action: r.HabitsStreak,
			},
			{
				Name:   "export",
				Usage:  "Export habits to files",
				Flags:  exportFlags(),
				Action: r.HabitsExport,
			},
		},
	}
}

// todoCommand handles the to-do list.
func todoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "todo",
		Aliases: []string{"todos", "t"},
		Usage:   "Manage the to-do list",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List todos",
				Flags:   []cli.Flag{formatFlag("txt")},
				Action:  r.TodoList,
			},
			{
				Name:      "add",
				Usage:     "Add a todo",
				Arguments: []cli.Argument{&cli.StringArg{Name: "title"}},
				Action:    r.TodoAdd,
			},
			{
				Name:      "edit",
				Usage:     "Change a todo's title",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "New title",
						Required: true,
					},
				},
				Action: r.TodoEdit,
			},
			{
				Name:      "done",
				Aliases:   []string{"toggle"},
				Usage:     "Toggle a todo's completed flag",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TodoDone,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a todo",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TodoDelete,
			},
			{
				Name:   "export",
				Usage:  "Export todos to files",
				Flags:  exportFlags(),
				Action: r.TodoExport,
			},
		},
	}
}

func contentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output the raw upstream JSON",
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Drop the cached response before fetching",
		},
	}
}

// newsCommand prints the cached headlines.
func newsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "news",
		Usage:  "Show top headlines",
		Flags:  contentFlags(),
		Action: r.News,
	}
}

// quoteCommand prints the quote of the day.
func quoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "quote",
		Usage:  "Show the quote of the day",
		Flags:  contentFlags(),
		Action: r.Quote,
	}
}

// spotifyCommand handles Spotify sign-in and listening data.
func spotifyCommand(r *Runner) *cli.Command {
	jsonFlag := func() cli.Flag {
		return &cli.BoolFlag{
			Name:  "json",
			Usage: "Output JSON",
		}
	}

	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify listening data",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify in the browser (stop `dash serve` first, it shares the callback port)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: 2 * time.Minute,
					},
				},
				Action: r.SpotifyLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify session",
				Action: r.SpotifyLogout,
			},
			{
				Name:  "top",
				Usage: "Show top tracks or artists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "tracks or artists",
						Value: "tracks",
					},
					&cli.StringFlag{
						Name:  "time-range",
						Usage: "short_term, medium_term, or long_term",
						Value: "short_term",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of items (1-50)",
						Value: 10,
					},
					jsonFlag(),
				},
				Action: r.SpotifyTop,
			},
			{
				Name:    "now-playing",
				Aliases: []string{"np"},
				Usage:   "Show the currently playing track",
				Flags:   []cli.Flag{jsonFlag()},
				Action:  r.SpotifyNowPlaying,
			},
			{
				Name:  "recent",
				Usage: "Show recently played tracks",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of items (1-50)",
						Value: 10,
					},
					jsonFlag(),
				},
				Action: r.SpotifyRecent,
			},
			{
				Name:  "playlists",
				Usage: "List your playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 20,
					},
					jsonFlag(),
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

// keyringCommand stores secrets in the OS keyring.
func keyringCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "keyring",
		Usage: "Store credentials in the OS keyring",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a secret (reads stdin when --value is omitted)",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "value",
						Usage: "Secret value",
					},
				},
				Action: r.KeyringSet,
			},
			{
				Name:      "get",
				Usage:     "Show a stored secret, masked unless --show is given",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "show",
						Usage: "Print the full value",
					},
				},
				Action: r.KeyringGet,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Remove a stored secret",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Action:    r.KeyringDelete,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List known secrets and whether they are stored",
				Action:  r.KeyringList,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the terminal dashboard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the terminal dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the TUI owns the terminal",
				Value: "./tmp/dash-tui.log",
			},
		},
		Action: r.TUI,
	}
}
