// Package database opens the SQL connection and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

const createMigrationsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP    NOT NULL
	)
`

// Migrator applies plain .up.sql migrations in lexical order.
// Applied file names are recorded in schema_migrations and skipped afterwards.
type Migrator struct {
	db  *sql.DB
	log *slog.Logger
}

// NewMigrator constructs a Migrator that logs through the provided logger instance.
func NewMigrator(db *sql.DB, log *slog.Logger) *Migrator {
	if log == nil {
		log = slog.Default()
	}

	return &Migrator{
		db:  db,
		log: log,
	}
}

// ApplyDir applies the migrations found in a directory on disk.
func (m *Migrator) ApplyDir(ctx context.Context, dir string) error {
	return m.ApplyFS(ctx, os.DirFS(dir), ".")
}

// ApplyFS applies every *.up.sql under root of fsys that was not applied yet.
func (m *Migrator) ApplyFS(ctx context.Context, fsys fs.FS, root string) error {
	files, err := ListMigrations(fsys, root)
	if err != nil {
		return fmt.Errorf("list migrations in %q: %w", root, err)
	}

	baseLog := m.log.With(slog.String("dir", root))
	if len(files) == 0 {
		baseLog.Info("no .up.sql migrations found")
		return nil
	}

	if _, err := m.db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, name := range files {
		if _, ok := applied[name]; ok {
			continue
		}
		if err := m.applyFile(ctx, baseLog, fsys, root, name); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]struct{}, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("select applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = struct{}{}
	}
	return applied, rows.Err()
}

func (m *Migrator) applyFile(ctx context.Context, baseLog *slog.Logger, fsys fs.FS, root, name string) error {
	filePath := path.Join(root, name)
	scopedLog := baseLog.With(slog.String("file", name))

	scopedLog.Info("applying migration")

	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return fmt.Errorf("read migration %q: %w", filePath, err)
	}

	statement := strings.TrimSpace(string(data))
	if len(statement) == 0 {
		scopedLog.Warn("migration is empty, skipping")
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction for migration %q: %w", filePath, err)
	}

	if _, execErr := tx.ExecContext(ctx, statement); execErr != nil {
		rollback(scopedLog, tx)
		return fmt.Errorf("execute migration %q: %w", filePath, execErr)
	}

	if _, execErr := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`,
		name, time.Now().UTC(),
	); execErr != nil {
		rollback(scopedLog, tx)
		return fmt.Errorf("record migration %q: %w", filePath, execErr)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %q: %w", filePath, commitErr)
	}

	return nil
}

func rollback(log *slog.Logger, tx *sql.Tx) {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		log.Error("rollback error", slog.Any("error", rbErr))
	}
}

func isUpMigration(name string) bool {
	return strings.HasSuffix(name, ".up.sql")
}

// ListMigrations returns all .up.sql files in dir in lexical order.
func ListMigrations(dir fs.FS, root string) ([]string, error) {
	entries, err := fs.ReadDir(dir, root)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isUpMigration(e.Name()) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}
