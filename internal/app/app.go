package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Gagansidh-u/studio/internal/config"
	"github.com/Gagansidh-u/studio/internal/gateway"
	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/internal/store/memstore"
	"github.com/Gagansidh-u/studio/internal/store/pgstore"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

type App struct {
	Config  *config.Config
	DB      *sql.DB
	Store   store.Store
	Gateway *gateway.Registry

	pg *pgstore.Pgstore
}

// New wires the application. With a database URL the document store runs
// on Postgres; without one it runs in memory, which is enough for local
// development.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Gateway: gateway.NewRegistry(),
	}

	if cfg.DatabaseURL == "" {
		logger.Log.Info("no database URL configured, using the in-memory store")
		app.Store = memstore.NewWithRetries(cfg.TxMaxRetries)
		return app, nil
	}

	db, err := initDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	pg := pgstore.New(db, cfg.TxMaxRetries)
	if err := pg.EnsureSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logger.Log.Error("error closing database after schema failure", logger.Error(closeErr))
		}
		return nil, fmt.Errorf("error ensuring schema: %w", err)
	}

	app.DB = db
	app.Store = pg
	app.pg = pg

	return app, nil
}

func initDB(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = db.Ping(); err != nil {
		err := db.Close()
		if err != nil {
			return nil, fmt.Errorf("error closing database after ping failure: %w", err)
		}
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return db, nil
}

// Close stops the change-feed poller and releases the database
// connection if one is open.
func (app *App) Close() error {
	if app.pg == nil {
		return nil
	}
	return app.pg.Close()
}
