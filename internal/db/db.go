package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/charsheet/internal/config"
	"github.com/udisondev/charsheet/internal/sheet"
)

// ErrNotFound is returned when no sheet is stored under a name.
var ErrNotFound = errors.New("sheet not found")

// Sheet is a stored character: the game system it was built with and its
// records in replay order.
type Sheet struct {
	Name      string
	System    string
	Records   []sheet.Record
	UpdatedAt time.Time
}

// Store persists sheets. Saving replaces whatever was stored under the name.
type Store interface {
	SaveSheet(ctx context.Context, s *Sheet) error
	LoadSheet(ctx context.Context, name string) (*Sheet, error)
	ListSheets(ctx context.Context) ([]string, error)
	DeleteSheet(ctx context.Context, name string) error
	Close() error
}

// Open returns the store selected by cfg, with migrations applied. It returns
// nil and no error for the none driver.
func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Driver {
	case config.DriverNone, "":
		return nil, nil
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.ConnString())
	case config.DriverSQLite:
		return OpenSQLite(ctx, cfg.ConnString())
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}
