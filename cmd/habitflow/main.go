// Command habitflow is a terminal habit tracker with RPG-style progression:
// recurring habits and one-off todos feed an XP/gold/stat engine, with a
// local-first cache reconciled against an optional remote store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tvu/habitflow/internal/app"
	"github.com/tvu/habitflow/internal/engine"
	"github.com/tvu/habitflow/internal/model"
	"github.com/tvu/habitflow/internal/remote"
	"github.com/tvu/habitflow/internal/securestore"
	"github.com/tvu/habitflow/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "habitflow:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	// First run: mint a user ID and persist it so cache keys stay stable.
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
		if err := model.SaveConfig(*configPath, cfg); err != nil {
			return fmt.Errorf("saving generated user id: %w", err)
		}
	}

	logger, err := openLogger(cfg.CachePath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	cache, err := store.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer cache.Close()

	secure, err := securestore.Open()
	if err != nil {
		// The keyring is an offline mirror; running without it only costs
		// offline stats reads.
		logger.Warn("keyring unavailable", zap.Error(err))
		secure = nil
	}

	ctx := context.Background()

	var client remote.Client
	profile := model.Profile{UID: cfg.UserID, Username: "offline", CreatedAt: time.Now().UTC()}
	if cfg.Remote.DSN != "" {
		pg, err := remote.NewPostgresClient(cfg.Remote.DSN)
		if err != nil {
			logger.Warn("remote store unavailable, running offline", zap.Error(err))
		} else {
			client = pg
			defer pg.Close()

			p, err := remote.EnsureProfile(ctx, client, cfg.UserID)
			if err != nil {
				return fmt.Errorf("ensuring profile: %w", err)
			}
			profile = *p
		}
	}

	eng, err := engine.New(engine.Options{
		UserID:        cfg.UserID,
		CreatedAt:     profile.CreatedAt,
		Cache:         cache,
		Remote:        client,
		Secure:        secure,
		Logger:        logger,
		SyncWindow:    time.Duration(cfg.Sync.WindowSec) * time.Second,
		RetryInterval: time.Duration(cfg.Sync.RetrySec) * time.Second,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if err := eng.Backfill(ctx); err != nil {
		logger.Warn("backfill failed", zap.Error(err))
	}

	program := tea.NewProgram(app.New(eng, profile), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// openLogger writes structured logs next to the cache file so they never
// corrupt the alternate-screen UI.
func openLogger(cachePath string) (*zap.Logger, error) {
	logPath := filepath.Join(filepath.Dir(cachePath), "habitflow.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}
