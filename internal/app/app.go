// Package app wires the application components together.
//
// App is the container that owns the database pool, the provider client,
// and the RAG service. Setup builds everything in dependency order and
// Close releases it in reverse.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragstack/ragd/internal/config"
	"github.com/ragstack/ragd/internal/provider"
	"github.com/ragstack/ragd/internal/rag"
	"github.com/ragstack/ragd/internal/store"
)

// App is the core application container.
type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Provider *provider.Client
	Store    *store.Store
	Service  *rag.Service

	logger *slog.Logger
}

// Close releases all resources held by the application.
func (a *App) Close() error {
	if a.logger != nil {
		a.logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}

	return nil
}
