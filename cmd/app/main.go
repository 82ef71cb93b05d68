package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/magebay99/multiexporter-hack/internal"
	pkgconfig "github.com/magebay99/multiexporter-hack/pkg/config"
)

// loadConfig reads the config file named by --config, falling back to the
// defaults when it does not exist. --scene overrides the scene path.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if scene := cmd.String("scene"); scene != "" {
		cfg.Document.ScenePath = scene
	}
	return cfg, nil
}

// withComponents loads the config, builds the logger and the export service,
// and runs fn with them.
func withComponents(ctx context.Context, cmd *cli.Command, fn func(context.Context, *internal.Config, *internal.Components) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closer := internal.NewLogger(cfg.App, os.Stderr)
	defer closer.Close()
	slog.SetDefault(logger)

	comps, err := internal.Open(cfg, logger, false)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, cfg, comps)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:  "multiexporter",
		Usage: "Export the artboards and layers of a vector scene to image and document files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "scene",
				Aliases: []string{"s"},
				Usage:   "Scene file (overrides document.scene_path)",
				Sources: cli.EnvVars("MULTIEXPORTER_SCENE"),
			},
		},
		Commands: []*cli.Command{
			planCommand(),
			exportCommand(),
			prefsCommand(),
			formatsCommand(),
			historyCommand(),
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API with live progress events and scene watching",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
