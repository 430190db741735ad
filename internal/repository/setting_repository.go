package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/share-pet/share-pet/internal/domain"
)

var settingTable = &table{
	name: "setting",
	from: "setting",
	columns: map[string]columnKind{
		"id":         kindInt,
		"account_id": kindInt,
		"language":   kindText,
		"status":     kindText,
	},
	filters: map[string]string{
		"id":         "setting.id",
		"account_id": "setting.account_id",
	},
}

// SettingRepository defines persistence operations for account settings.
type SettingRepository interface {
	GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error)
	GetSetting(ctx context.Context, filter Filter) (*domain.Setting, error)
	UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error
	Create(ctx context.Context, setting *domain.Setting) error
	WithTx(tx *sql.Tx) SettingRepository
}

type settingRepository struct {
	store recordStore
	log   *slog.Logger
}

// NewSettingRepository creates a new SQL-backed setting repository.
func NewSettingRepository(db *sql.DB, log *slog.Logger) SettingRepository {
	return newSettingRepository(db, log)
}

func newSettingRepository(q Querier, log *slog.Logger) *settingRepository {
	return &settingRepository{
		store: recordStore{q: q, log: log, table: settingTable},
		log:   log,
	}
}

func (r *settingRepository) WithTx(tx *sql.Tx) SettingRepository {
	return newSettingRepository(tx, r.log)
}

func (r *settingRepository) GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error) {
	return r.store.getFields(ctx, fields, filter)
}

func (r *settingRepository) UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error {
	return r.store.updateFieldsByPK(ctx, pk, values)
}

func (r *settingRepository) GetSetting(ctx context.Context, filter Filter) (*domain.Setting, error) {
	where, args, err := r.store.where(filter)
	if err != nil {
		return nil, err
	}

	query := "SELECT setting.id, setting.account_id, setting.language, setting.status FROM setting WHERE " + where + " LIMIT 1"

	var (
		setting  domain.Setting
		language string
		status   string
	)
	if err := r.store.q.QueryRowContext(ctx, query, args...).Scan(&setting.ID, &setting.AccountID, &language, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("setting %v: %w", filter, ErrNotFound)
		}
		if r.log != nil {
			r.log.Error("failed to fetch setting", slog.Any("filter", filter), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select setting: %w", err)
	}
	setting.Language = domain.Language(language)
	setting.Status = domain.Status(status)

	return &setting, nil
}

// Create inserts setting and fills in its generated id.
func (r *settingRepository) Create(ctx context.Context, setting *domain.Setting) error {
	const query = `
		INSERT INTO setting (account_id, language, status)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	if err := r.store.q.QueryRowContext(
		ctx,
		query,
		setting.AccountID,
		string(setting.Language),
		string(setting.Status),
	).Scan(&setting.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create setting", slog.Int64("account_id", setting.AccountID), slog.Any("error", err))
		}
		return fmt.Errorf("insert setting: %w", err)
	}

	return nil
}
