// Package domain holds the account, setting, notification and chat models.
package domain

import (
	"regexp"
	"time"
)

// UsernamePattern is the character set accepted for usernames.
var UsernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

const (
	UsernameMaxLength = 150
	NameMaxLength     = 150
	EmailMaxLength    = 254
)

// Account represents a person (or administrator) stored in the database.
// Username is nil for administrators; Email may be nil for legacy accounts.
type Account struct {
	ID              int64
	Username        *string
	Email           *string
	FirstName       string
	LastName        string
	Avatar          *string
	PasswordHash    string
	IsAdministrator bool
	IsSuperuser     bool
	IsStaff         bool
	IsActive        bool
	EmailVerified   bool
	DateJoined      time.Time
	DateBaned       *time.Time
	LastLogin       *time.Time
}

// Role classifies the account for access control. A nil account is Anonymous.
func (a *Account) Role() Role {
	switch {
	case a == nil:
		return RoleAnonymous
	case a.IsSuperuser:
		return RoleSuperAdmin
	case a.IsAdministrator:
		return RoleAdministrator
	default:
		return RolePlainUser
	}
}

// DisplayName returns the username, falling back to the email address.
func (a *Account) DisplayName() string {
	if a.Username != nil && *a.Username != "" {
		return *a.Username
	}
	if a.Email != nil {
		return *a.Email
	}
	return ""
}

// AccountRef is the (pk, username) pair used by username validation.
type AccountRef struct {
	PK       int64
	Username *string
}

// Role is the closed set of requester kinds.
type Role int

const (
	RoleAnonymous Role = iota
	RolePlainUser
	RoleAdministrator
	RoleSuperAdmin
)

func (r Role) String() string {
	switch r {
	case RoleAnonymous:
		return "anonymous"
	case RolePlainUser:
		return "user"
	case RoleAdministrator:
		return "administrator"
	case RoleSuperAdmin:
		return "superadmin"
	default:
		return "unknown"
	}
}

// StringPtr returns nil for an empty string. Nullable unique columns store NULL instead of "".
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringValue dereferences s, treating nil as "".
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
