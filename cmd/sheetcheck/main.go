// Command sheetcheck loads game-system definitions, builds a fresh character for
// each one and prints every stat with its graph flags. With -persist the
// characters are stored in the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/udisondev/charsheet/internal/config"
	"github.com/udisondev/charsheet/internal/db"
	"github.com/udisondev/charsheet/internal/ruleset"
	"github.com/udisondev/charsheet/internal/sheet"
)

const defaultConfigPath = "config/sheetcheck.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sheetcheck", flag.ContinueOnError)
	cfgPath := fs.String("config", defaultConfigPath, "config file")
	persist := fs.Bool("persist", false, "store built characters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if p := os.Getenv("CHARSHEET_CONFIG"); p != "" && *cfgPath == defaultConfigPath {
		*cfgPath = p
	}

	cfg, err := config.LoadSheetcheck(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("sheetcheck starting", "log_level", cfg.LogLevel, "workers", cfg.Workers, "storage", cfg.Storage.Driver)

	sources, err := collectSources(fs.Args(), cfg.SystemsDir)
	if err != nil {
		return err
	}

	reports, err := checkAll(ctx, sources, cfg.Workers)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if _, err := io.WriteString(out, r.String()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	if !*persist {
		return nil
	}
	return persistAll(ctx, cfg.Storage, reports)
}

func persistAll(ctx context.Context, storage config.Storage, reports []*report) error {
	store, err := db.Open(ctx, storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	if store == nil {
		slog.Warn("persist requested but storage driver is none")
		return nil
	}
	defer store.Close()

	svc := db.NewSheetService(store, func(system string) (sheet.Policy, error) {
		for _, r := range reports {
			if r.system.Name == system {
				return r.system.Policy(), nil
			}
		}
		s, err := ruleset.Builtin(system)
		if err != nil {
			return nil, err
		}
		return s.Policy(), nil
	})
	for _, r := range reports {
		if err := svc.SaveCharacter(ctx, r.system.Name, r.character); err != nil {
			return err
		}
	}
	return nil
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
