package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/udisondev/charsheet/internal/db/migrations"
	"github.com/udisondev/charsheet/internal/sheet"
)

// SQLiteStore stores sheets in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrate(ctx, sqlDB, "sqlite3", migrations.SQLiteDir); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &SQLiteStore{db: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSheet replaces the stored sheet in one transaction. Record fields are
// kept as a JSON array per row.
func (s *SQLiteStore) SaveSheet(ctx context.Context, sh *Sheet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback failed", "sheet", sh.Name, "err", err)
		}
	}()

	if sh.UpdatedAt.IsZero() {
		sh.UpdatedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO characters (name, system, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET system = excluded.system, updated_at = excluded.updated_at`,
		sh.Name, sh.System, sh.UpdatedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("upserting character %q: %w", sh.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sheet_records WHERE character_name = ?`, sh.Name); err != nil {
		return fmt.Errorf("deleting old records of %q: %w", sh.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sheet_records (character_name, position, kind, fields) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range sh.Records {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("encoding record %d of %q: %w", i, sh.Name, err)
		}
		if _, err := stmt.ExecContext(ctx, sh.Name, i, string(rec.Kind), string(fields)); err != nil {
			return fmt.Errorf("inserting record %d of %q: %w", i, sh.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Debug("sheet saved", "sheet", sh.Name, "system", sh.System, "records", len(sh.Records))
	return nil
}

// LoadSheet returns the stored sheet or ErrNotFound.
func (s *SQLiteStore) LoadSheet(ctx context.Context, name string) (*Sheet, error) {
	sh := &Sheet{Name: name}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT system, updated_at FROM characters WHERE name = ?`, name,
	).Scan(&sh.System, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %q: %w", name, err)
	}
	sh.UpdatedAt = time.UnixMilli(updated).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, fields FROM sheet_records
		WHERE character_name = ?
		ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("querying records of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, raw string
		if err := rows.Scan(&kind, &raw); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		var fields []string
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decoding record of %q: %w", name, err)
		}
		sh.Records = append(sh.Records, sheet.Record{Kind: sheet.Kind(kind), Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return sh, nil
}

// ListSheets returns every stored sheet name in order.
func (s *SQLiteStore) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying characters: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scanning character name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating character rows: %w", err)
	}
	return names, nil
}

// DeleteSheet removes a sheet and its records.
func (s *SQLiteStore) DeleteSheet(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sheet_records WHERE character_name = ?`, name); err != nil {
		return fmt.Errorf("deleting records of %q: %w", name, err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM characters WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting character %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting character %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}
