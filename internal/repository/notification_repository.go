package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/share-pet/share-pet/internal/domain"
)

var notificationTable = newNotificationTable()

// notificationTable joins setting so preferences can be looked up by account.
func newNotificationTable() *table {
	t := &table{
		name: "notification",
		from: "notification JOIN setting ON setting.id = notification.setting_id",
		columns: map[string]columnKind{
			"id":         kindInt,
			"setting_id": kindInt,
		},
		filters: map[string]string{
			"id":         "notification.id",
			"setting_id": "notification.setting_id",
			"account_id": "setting.account_id",
		},
	}
	for _, event := range domain.NotificationEvents {
		t.columns[event] = kindBool
	}
	return t
}

var (
	notificationSelect = "SELECT notification.id, notification.setting_id, notification." +
		strings.Join(domain.NotificationEvents, ", notification.") +
		" FROM " + notificationTable.from + " WHERE "

	notificationInsert = buildNotificationInsert()
)

func buildNotificationInsert() string {
	placeholders := make([]string, 0, len(domain.NotificationEvents)+1)
	for i := 0; i <= len(domain.NotificationEvents); i++ {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	return fmt.Sprintf(
		"INSERT INTO notification (setting_id, %s) VALUES (%s) RETURNING id",
		strings.Join(domain.NotificationEvents, ", "),
		strings.Join(placeholders, ", "),
	)
}

// NotificationRepository defines persistence operations for notification preferences.
type NotificationRepository interface {
	GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error)
	GetNotification(ctx context.Context, filter Filter) (*domain.Notification, error)
	UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error
	Create(ctx context.Context, notification *domain.Notification) error
	WithTx(tx *sql.Tx) NotificationRepository
}

type notificationRepository struct {
	store recordStore
	log   *slog.Logger
}

// NewNotificationRepository creates a new SQL-backed notification repository.
func NewNotificationRepository(db *sql.DB, log *slog.Logger) NotificationRepository {
	return newNotificationRepository(db, log)
}

func newNotificationRepository(q Querier, log *slog.Logger) *notificationRepository {
	return &notificationRepository{
		store: recordStore{q: q, log: log, table: notificationTable},
		log:   log,
	}
}

func (r *notificationRepository) WithTx(tx *sql.Tx) NotificationRepository {
	return newNotificationRepository(tx, r.log)
}

func (r *notificationRepository) GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error) {
	return r.store.getFields(ctx, fields, filter)
}

func (r *notificationRepository) UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error {
	return r.store.updateFieldsByPK(ctx, pk, values)
}

func (r *notificationRepository) GetNotification(ctx context.Context, filter Filter) (*domain.Notification, error) {
	where, args, err := r.store.where(filter)
	if err != nil {
		return nil, err
	}

	flags := make([]bool, len(domain.NotificationEvents))
	notification := domain.Notification{}
	dest := []any{&notification.ID, &notification.SettingID}
	for i := range flags {
		dest = append(dest, &flags[i])
	}

	if err := r.store.q.QueryRowContext(ctx, notificationSelect+where+" LIMIT 1", args...).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %v: %w", filter, ErrNotFound)
		}
		if r.log != nil {
			r.log.Error("failed to fetch notification", slog.Any("filter", filter), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select notification: %w", err)
	}

	notification.Flags = make(map[string]bool, len(flags))
	for i, event := range domain.NotificationEvents {
		notification.Flags[event] = flags[i]
	}
	return &notification, nil
}

// Create inserts notification and fills in its generated id. Missing flags are stored as true.
func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	args := make([]any, 0, len(domain.NotificationEvents)+1)
	args = append(args, notification.SettingID)
	for _, event := range domain.NotificationEvents {
		enabled, ok := notification.Flags[event]
		args = append(args, enabled || !ok)
	}

	if err := r.store.q.QueryRowContext(ctx, notificationInsert, args...).Scan(&notification.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create notification", slog.Int64("setting_id", notification.SettingID), slog.Any("error", err))
		}
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}
