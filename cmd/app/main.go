package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	_ "time/tzdata"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/bilimsoz/internal"
	"github.com/starford/bilimsoz/internal/mcpserver"
	pkgconfig "github.com/starford/bilimsoz/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// withApp runs fn against a fully wired App whose log goes to stderr, so
// stdout carries only command output.
func withApp(fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		app, err := internal.NewApp(ctx,
			internal.WithConfig(cfg),
			internal.WithVersion(version),
			internal.WithLogOutput(os.Stderr))
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func syncCmd(ctx context.Context, _ *cli.Command, app *internal.App) error {
	report := app.Glossary.Sync(ctx)
	app.Glossary.Wait()
	if err := printJSON(report); err != nil {
		return err
	}
	if !report.Online {
		return errors.New("offline: sync skipped")
	}
	if !report.OK() {
		return fmt.Errorf("%d subjects failed", len(report.Failed))
	}
	return nil
}

func searchCmd(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	query := cmd.Args().First()
	if query == "" {
		return errors.New("search: query is required")
	}
	return printJSON(app.Glossary.Search(ctx, query))
}

func cacheInfoCmd(ctx context.Context, _ *cli.Command, app *internal.App) error {
	return printJSON(app.Glossary.CacheInfo(ctx))
}

func clearCacheCmd(ctx context.Context, _ *cli.Command, app *internal.App) error {
	app.Glossary.ClearCache(ctx)
	app.Glossary.Wait()
	return nil
}

func wordOfDayCmd(ctx context.Context, _ *cli.Command, app *internal.App) error {
	term, ok := app.Glossary.WordOfDay(ctx)
	if !ok {
		return errors.New("no terms available")
	}
	return printJSON(term)
}

func mcpCmd(_ context.Context, _ *cli.Command, app *internal.App) error {
	return mcpserver.New(app.Glossary, app.Version).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:    "bilimsoz",
		Usage:   "Trilingual school glossary synced from a spreadsheet, with an offline cache",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP API and event stream", Action: serve},
			{Name: "sync", Usage: "Force-refresh every subject and print the report", Action: withApp(syncCmd)},
			{Name: "search", Usage: "Search cached terms", ArgsUsage: "<query>", Action: withApp(searchCmd)},
			{Name: "cache-info", Usage: "Print cached counts and sync times", Action: withApp(cacheInfoCmd)},
			{Name: "clear-cache", Usage: "Drop every cached subject", Action: withApp(clearCacheCmd)},
			{Name: "word-of-day", Usage: "Print today's term", Action: withApp(wordOfDayCmd)},
			{Name: "mcp", Usage: "Serve glossary tools over MCP stdio", Action: withApp(mcpCmd)},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
