package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/charsheet/internal/sheet"
)

// SheetRepository stores sheets in PostgreSQL.
type SheetRepository struct {
	db *pgxpool.Pool
}

// NewSheetRepository creates a new SheetRepository.
func NewSheetRepository(db *pgxpool.Pool) *SheetRepository {
	return &SheetRepository{db: db}
}

// SaveSheet replaces the stored sheet in one transaction: the character row is
// upserted, its old records deleted and the new ones copied in.
func (r *SheetRepository) SaveSheet(ctx context.Context, s *Sheet) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("rollback failed", "sheet", s.Name, "err", err)
		}
	}()

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO characters (name, system, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET system = $2, updated_at = $3`,
		s.Name, s.System, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upserting character %q: %w", s.Name, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM sheet_records WHERE character_name = $1`, s.Name); err != nil {
		return fmt.Errorf("deleting old records of %q: %w", s.Name, err)
	}

	if len(s.Records) > 0 {
		rows := make([][]any, 0, len(s.Records))
		for i, rec := range s.Records {
			rows = append(rows, []any{s.Name, i, string(rec.Kind), rec.Fields})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"sheet_records"},
			[]string{"character_name", "position", "kind", "fields"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("inserting records of %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.Debug("sheet saved", "sheet", s.Name, "system", s.System, "records", len(s.Records))
	return nil
}

// LoadSheet returns the stored sheet or ErrNotFound.
func (r *SheetRepository) LoadSheet(ctx context.Context, name string) (*Sheet, error) {
	s := &Sheet{Name: name}
	err := r.db.QueryRow(ctx,
		`SELECT system, updated_at FROM characters WHERE name = $1`, name,
	).Scan(&s.System, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %q: %w", name, err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()

	rows, err := r.db.Query(ctx, `
		SELECT kind, fields FROM sheet_records
		WHERE character_name = $1
		ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("querying records of %q: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var fields []string
		if err := rows.Scan(&kind, &fields); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		s.Records = append(s.Records, sheet.Record{Kind: sheet.Kind(kind), Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return s, nil
}

// ListSheets returns every stored sheet name in order.
func (r *SheetRepository) ListSheets(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM characters ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying characters: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting character names: %w", err)
	}
	return names, nil
}

// DeleteSheet removes a sheet and its records.
func (r *SheetRepository) DeleteSheet(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("deleting character %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// PostgresStore is a Store over a pgx pool.
type PostgresStore struct {
	*SheetRepository
	db *DB
}

// OpenPostgres migrates the database at dsn and connects to it.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := RunMigrations(ctx, dsn); err != nil {
		return nil, err
	}
	d, err := New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{SheetRepository: NewSheetRepository(d.Pool()), db: d}, nil
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
