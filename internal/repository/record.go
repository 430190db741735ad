// Package repository implements SQL-backed storage for accounts, settings, notifications and chats.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	apperrors "github.com/share-pet/share-pet/internal/errors"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write collides with a unique constraint.
var ErrDuplicate = errors.New("duplicate value")

// Filter selects records by equality. Keys must be on the table's filter allow-list.
type Filter map[string]any

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type columnKind int

const (
	kindInt columnKind = iota
	kindText
	kindNullText
	kindBool
	kindTime
	kindNullTime
)

// table describes what a record store may read, filter and update.
type table struct {
	name string
	// from is the FROM clause for reads; it may join other tables.
	from    string
	columns map[string]columnKind
	// filters maps filter keys to qualified SQL expressions.
	filters map[string]string
}

func (t *table) column(field string) (string, columnKind, error) {
	kind, ok := t.columns[field]
	if !ok {
		return "", 0, apperrors.NewContractError(fmt.Sprintf("%s: unknown column %q", t.name, field))
	}
	return t.name + "." + field, kind, nil
}

// recordStore implements the generic field-subset reads and partial updates
// shared by the account, setting and notification repositories.
type recordStore struct {
	q     Querier
	log   *slog.Logger
	table *table
}

// getFields returns the requested columns of the single row matching filter.
// Nullable columns come back as nil or their plain value.
func (s recordStore) getFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, apperrors.NewContractError(fmt.Sprintf("%s: no fields requested", s.table.name))
	}

	columns := make([]string, len(fields))
	dest := make([]any, len(fields))
	for i, field := range fields {
		column, kind, err := s.table.column(field)
		if err != nil {
			return nil, err
		}
		columns[i] = column
		dest[i] = scanTarget(kind)
	}

	where, args, err := s.where(filter)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1", strings.Join(columns, ", "), s.table.from, where)
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %v: %w", s.table.name, filter, ErrNotFound)
		}
		if s.log != nil {
			s.log.Error("failed to select fields", slog.String("table", s.table.name), slog.Any("fields", fields), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select %s fields: %w", s.table.name, err)
	}

	record := make(map[string]any, len(fields))
	for i, field := range fields {
		record[field] = scannedValue(dest[i])
	}
	return record, nil
}

// updateFieldsByPK writes values to the row with primary key pk. A missing row is not an error.
func (s recordStore) updateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}

	names := make([]string, 0, len(values))
	for name := range values {
		if _, _, err := s.table.column(name); err != nil {
			return err
		}
		if name == "id" {
			return apperrors.NewContractError(fmt.Sprintf("%s: primary key is not updatable", s.table.name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	assignments := make([]string, len(names))
	args := make([]any, 0, len(names)+1)
	for i, name := range names {
		assignments[i] = fmt.Sprintf("%s = $%d", name, i+1)
		args = append(args, values[name])
	}
	args = append(args, pk)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", s.table.name, strings.Join(assignments, ", "), len(args))
	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update %s fields: %w: %w", s.table.name, ErrDuplicate, err)
		}
		if s.log != nil {
			s.log.Error("failed to update fields", slog.String("table", s.table.name), slog.Int64("pk", pk), slog.Any("fields", names), slog.Any("error", err))
		}
		return fmt.Errorf("update %s fields: %w", s.table.name, err)
	}
	return nil
}

// isUniqueViolation recognises unique constraint failures from both drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// where renders filter as a conjunction of equalities with keys in sorted order.
func (s recordStore) where(filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, apperrors.NewContractError(fmt.Sprintf("%s: empty filter", s.table.name))
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		if _, ok := s.table.filters[key]; !ok {
			return "", nil, apperrors.NewContractError(fmt.Sprintf("%s: unknown filter %q", s.table.name, key))
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clauses := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, key := range keys {
		clauses[i] = fmt.Sprintf("%s = $%d", s.table.filters[key], i+1)
		args[i] = filter[key]
	}
	return strings.Join(clauses, " AND "), args, nil
}

func scanTarget(kind columnKind) any {
	switch kind {
	case kindInt:
		return new(int64)
	case kindNullText:
		return new(sql.NullString)
	case kindBool:
		return new(bool)
	case kindTime:
		return new(time.Time)
	case kindNullTime:
		return new(sql.NullTime)
	default:
		return new(string)
	}
}

func scannedValue(dest any) any {
	switch v := dest.(type) {
	case *int64:
		return *v
	case *string:
		return *v
	case *bool:
		return *v
	case *time.Time:
		return *v
	case *sql.NullString:
		if !v.Valid {
			return nil
		}
		return v.String
	case *sql.NullTime:
		if !v.Valid {
			return nil
		}
		return v.Time
	default:
		return nil
	}
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func WithinTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
