package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragstack/ragd/db"
	"github.com/ragstack/ragd/internal/chunker"
	"github.com/ragstack/ragd/internal/config"
	"github.com/ragstack/ragd/internal/provider"
	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/store"
)

// Setup creates and initializes the application.
// On failure, everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	a.Provider = provider.New(cfg.ProviderConfig(), logger)
	a.Store = store.New(pool, cfg.EmbedDimension, logger)

	ch, err := chunker.New(cfg.ChunkMaxChars, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	a.Service = rag.New(ch, a.Provider, a.Provider, a.Store, rag.Limits{
		MaxTemperature: cfg.MaxTemperature,
		MaxTokens:      cfg.MaxTokens,
		MaxTopK:        cfg.MaxTopK,
		DefaultTopK:    cfg.DefaultTopK,
	}, logger)

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connURL := cfg.DatabaseURL()

	if err := db.Migrate(connURL); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := store.NewPool(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return pool, nil
}
