package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/share-pet/share-pet/internal/domain"
)

const accountColumns = `
	account.id, account.username, account.email, account.first_name, account.last_name, account.avatar,
	account.password_hash, account.is_administrator, account.is_superuser, account.is_staff,
	account.is_active, account.email_verified, account.date_joined, account.date_baned, account.last_login
`

var accountTable = &table{
	name: "account",
	from: "account",
	columns: map[string]columnKind{
		"id":               kindInt,
		"username":         kindNullText,
		"email":            kindNullText,
		"first_name":       kindText,
		"last_name":        kindText,
		"avatar":           kindNullText,
		"password_hash":    kindText,
		"is_administrator": kindBool,
		"is_superuser":     kindBool,
		"is_staff":         kindBool,
		"is_active":        kindBool,
		"email_verified":   kindBool,
		"date_joined":      kindTime,
		"date_baned":       kindNullTime,
		"last_login":       kindNullTime,
	},
	filters: map[string]string{
		"id":               "account.id",
		"username":         "account.username",
		"email":            "account.email",
		"is_administrator": "account.is_administrator",
		"is_superuser":     "account.is_superuser",
	},
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	// GetFields returns the named columns of the account matching filter.
	GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error)
	// GetAccount returns the full account matching filter.
	GetAccount(ctx context.Context, filter Filter) (*domain.Account, error)
	UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error
	// ListUsernames returns every (pk, username) pair ordered by date joined.
	ListUsernames(ctx context.Context) ([]domain.AccountRef, error)
	// FindByLogin matches a username exactly or an email case-insensitively.
	FindByLogin(ctx context.Context, login string) (*domain.Account, error)
	ListByEmail(ctx context.Context, email string) ([]*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) error
	CountByRole(ctx context.Context) (map[string]int, error)
	WithTx(tx *sql.Tx) AccountRepository
}

type accountRepository struct {
	store recordStore
	log   *slog.Logger
}

// NewAccountRepository creates a new SQL-backed account repository.
func NewAccountRepository(db *sql.DB, log *slog.Logger) AccountRepository {
	return newAccountRepository(db, log)
}

func newAccountRepository(q Querier, log *slog.Logger) *accountRepository {
	return &accountRepository{
		store: recordStore{q: q, log: log, table: accountTable},
		log:   log,
	}
}

func (r *accountRepository) WithTx(tx *sql.Tx) AccountRepository {
	return newAccountRepository(tx, r.log)
}

func (r *accountRepository) GetFields(ctx context.Context, fields []string, filter Filter) (map[string]any, error) {
	return r.store.getFields(ctx, fields, filter)
}

func (r *accountRepository) UpdateFieldsByPK(ctx context.Context, pk int64, values map[string]any) error {
	return r.store.updateFieldsByPK(ctx, pk, values)
}

func (r *accountRepository) GetAccount(ctx context.Context, filter Filter) (*domain.Account, error) {
	where, args, err := r.store.where(filter)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + accountColumns + " FROM account WHERE " + where + " LIMIT 1"
	account, err := scanAccount(r.store.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %v: %w", filter, ErrNotFound)
		}
		if r.log != nil {
			r.log.Error("failed to fetch account", slog.Any("filter", filter), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) ListUsernames(ctx context.Context) ([]domain.AccountRef, error) {
	const query = `
		SELECT id, username
		FROM account
		ORDER BY date_joined, id
	`

	rows, err := r.store.q.QueryContext(ctx, query)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list usernames", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select usernames: %w", err)
	}
	defer rows.Close()

	var refs []domain.AccountRef
	for rows.Next() {
		var (
			ref      domain.AccountRef
			username sql.NullString
		)
		if err := rows.Scan(&ref.PK, &username); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		if username.Valid {
			ref.Username = &username.String
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *accountRepository) FindByLogin(ctx context.Context, login string) (*domain.Account, error) {
	query := "SELECT " + accountColumns + `
		FROM account
		WHERE account.username = $1 OR LOWER(account.email) = LOWER($1)
		ORDER BY account.date_joined, account.id
		LIMIT 1
	`

	account, err := scanAccount(r.store.q.QueryRowContext(ctx, query, login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account by login: %w", ErrNotFound)
		}
		if r.log != nil {
			r.log.Error("failed to fetch account by login", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select account by login: %w", err)
	}
	return account, nil
}

func (r *accountRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Account, error) {
	query := "SELECT " + accountColumns + `
		FROM account
		WHERE LOWER(account.email) = LOWER($1)
		ORDER BY account.date_joined, account.id
	`

	rows, err := r.store.q.QueryContext(ctx, query, email)
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to list accounts by email", slog.Any("error", err))
		}
		return nil, fmt.Errorf("select accounts by email: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// Create inserts account and fills in its generated id.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
		INSERT INTO account (
			username, email, first_name, last_name, avatar, password_hash,
			is_administrator, is_superuser, is_staff, is_active, email_verified, date_joined
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	if err := r.store.q.QueryRowContext(
		ctx,
		query,
		account.Username,
		account.Email,
		account.FirstName,
		account.LastName,
		account.Avatar,
		account.PasswordHash,
		account.IsAdministrator,
		account.IsSuperuser,
		account.IsStaff,
		account.IsActive,
		account.EmailVerified,
		account.DateJoined,
	).Scan(&account.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create account", slog.String("email", domain.StringValue(account.Email)), slog.Any("error", err))
		}
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

func (r *accountRepository) CountByRole(ctx context.Context) (map[string]int, error) {
	const query = `
		SELECT is_superuser, is_administrator, COUNT(*)
		FROM account
		GROUP BY is_superuser, is_administrator
	`

	rows, err := r.store.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count accounts by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			superuser, administrator bool
			count                    int
		)
		if err := rows.Scan(&superuser, &administrator, &count); err != nil {
			return nil, fmt.Errorf("scan role count: %w", err)
		}
		role := (&domain.Account{IsSuperuser: superuser, IsAdministrator: administrator}).Role()
		counts[role.String()] += count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account   domain.Account
		username  sql.NullString
		email     sql.NullString
		avatar    sql.NullString
		dateBaned sql.NullTime
		lastLogin sql.NullTime
	)

	if err := row.Scan(
		&account.ID,
		&username,
		&email,
		&account.FirstName,
		&account.LastName,
		&avatar,
		&account.PasswordHash,
		&account.IsAdministrator,
		&account.IsSuperuser,
		&account.IsStaff,
		&account.IsActive,
		&account.EmailVerified,
		&account.DateJoined,
		&dateBaned,
		&lastLogin,
	); err != nil {
		return nil, err
	}

	if username.Valid {
		account.Username = &username.String
	}
	if email.Valid {
		account.Email = &email.String
	}
	if avatar.Valid {
		account.Avatar = &avatar.String
	}
	if dateBaned.Valid {
		account.DateBaned = &dateBaned.Time
	}
	if lastLogin.Valid {
		account.LastLogin = &lastLogin.Time
	}

	return &account, nil
}
