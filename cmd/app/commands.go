package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/magebay99/multiexporter-hack/internal"
	"github.com/magebay99/multiexporter-hack/internal/apperr"
	"github.com/magebay99/multiexporter-hack/internal/exportservice"
	"github.com/magebay99/multiexporter-hack/internal/watch"
)

func planCommand() *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Print the files an export would write",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Re-plan whenever the scene file changes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(ctx context.Context, cfg *internal.Config, c *internal.Components) error {
				view, err := c.Service.Plan(ctx)
				if err != nil {
					return err
				}
				printPlan(color.Output, view)
				if !cmd.Bool("watch") {
					return nil
				}
				return watch.Watch(ctx, cfg.Document.ScenePath, cfg.Document.Debounce, slog.Default(), func(ch watch.Change) {
					if ch.Removed {
						color.New(color.FgYellow).Fprintf(color.Output, "scene %s removed\n", ch.Path)
						return
					}
					view, err := c.Service.Plan(ctx)
					if err != nil {
						color.New(color.FgRed).Fprintf(color.Output, "plan failed: %v\n", err)
						return
					}
					fmt.Fprintln(color.Output)
					printPlan(color.Output, view)
				})
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the scene with its stored preferences",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "retry", Usage: "Retry failed jobs up to this many times (default export.retry)", Value: -1},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Retry failed jobs once"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "List the files without writing them"},
			&cli.StringSliceFlag{Name: "fail", Usage: "Make the encoder fail jobs with this label (rehearses the retry flow)"},
			&cli.IntFlag{Name: "fail-times", Usage: "How many times each --fail label fails", Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(ctx context.Context, cfg *internal.Config, c *internal.Components) error {
				req := exportservice.ExportRequest{
					Retry:      cfg.Export.Retry,
					DryRun:     cmd.Bool("dry-run"),
					FailLabels: cmd.StringSlice("fail"),
					FailTimes:  int(cmd.Int("fail-times")),
				}
				if n := int(cmd.Int("retry")); n >= 0 {
					req.Retry = n
				}
				if cmd.Bool("yes") && req.Retry < 1 {
					req.Retry = 1
				}

				view, err := c.Service.Plan(ctx)
				if err != nil {
					return err
				}
				color.New(color.Bold).Fprintln(color.Output, view.Summary)

				report, err := c.Service.Export(ctx, req)
				if err != nil {
					return err
				}
				printReport(color.Output, report)
				if !report.Result.OK() {
					return fmt.Errorf("export: %d jobs failed", len(report.Result.Failed))
				}
				return nil
			})
		},
	}
}

func prefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Show or change the preferences stored in the scene",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the stored preferences",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return withComponents(ctx, cmd, func(ctx context.Context, _ *internal.Config, c *internal.Components) error {
						cfg, err := c.Service.Preferences(ctx)
						if err != nil {
							return err
						}
						return printPrefs(color.Output, cfg)
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Set record keys, e.g. prefs set format=SVG layers=none",
				ArgsUsage: "key=value...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					updates, err := parseAssignments(cmd.Args().Slice())
					if err != nil {
						return err
					}
					return withComponents(ctx, cmd, func(ctx context.Context, _ *internal.Config, c *internal.Components) error {
						cfg, err := c.Service.SetPreferences(ctx, updates)
						if err != nil {
							return err
						}
						return printPrefs(color.Output, cfg)
					})
				},
			},
		},
	}
}

func formatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: "List the output formats",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(_ context.Context, _ *internal.Config, c *internal.Components) error {
				printFormats(color.Output, c.Service.Formats())
				return nil
			})
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded export runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Number of runs", Value: 20},
			&cli.StringFlag{Name: "search", Usage: "Search job outcomes by label, path or error"},
			&cli.BoolFlag{Name: "verify", Usage: "Report exported files that changed or disappeared"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(ctx context.Context, _ *internal.Config, c *internal.Components) error {
				limit := int(cmd.Int("limit"))
				switch {
				case cmd.String("search") != "":
					hits, err := c.Service.Search(ctx, cmd.String("search"), limit)
					if err != nil {
						return err
					}
					printOutcomes(color.Output, hits)
				case cmd.Bool("verify"):
					drift, err := c.Service.Verify(ctx, "")
					if err != nil {
						return err
					}
					printDrift(color.Output, drift)
				default:
					runs, total, err := c.Service.Runs(ctx, limit, 0)
					if err != nil {
						return err
					}
					printRuns(color.Output, runs, total)
				}
				return nil
			})
		},
	}
}

// parseAssignments turns ["k=v", ...] into a map.
func parseAssignments(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: expected key=value arguments", apperr.ErrInvalid)
	}
	out := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", apperr.ErrInvalid, a)
		}
		out[strings.TrimSpace(k)] = v
	}
	return out, nil
}
