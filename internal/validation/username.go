// Package validation holds the cross-record account rules that a single form cannot check on its own.
package validation

import (
	"iter"
	"slices"
	"sync/atomic"

	"github.com/share-pet/share-pet/internal/domain"
)

const (
	MsgUsernameTaken       = "A user with that username already exists."
	MsgUsernameBlacklisted = "Username can not be used. Please use other username."
)

// FieldError carries the messages for one form field. Field "__all__" holds non-field errors.
type FieldError struct {
	Field         string   `json:"field"`
	ErrorMessages []string `json:"error_messages"`
}

// FieldErrors is an ordered list of field errors; empty means valid.
type FieldErrors []FieldError

// Add appends msg to field, creating the entry when needed.
func (e *FieldErrors) Add(field, msg string) {
	for i := range *e {
		if (*e)[i].Field == field {
			(*e)[i].ErrorMessages = append((*e)[i].ErrorMessages, msg)
			return
		}
	}
	*e = append(*e, FieldError{Field: field, ErrorMessages: []string{msg}})
}

// ByField flattens the list into a map keyed by field name.
func (e FieldErrors) ByField() map[string][]string {
	if len(e) == 0 {
		return nil
	}
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Field] = append(out[fe.Field], fe.ErrorMessages...)
	}
	return out
}

// Blacklist is the set of reserved usernames. It is safe for concurrent use
// and can be replaced at runtime when the configuration changes.
type Blacklist struct {
	names atomic.Pointer[[]string]
}

func NewBlacklist(names ...string) *Blacklist {
	b := &Blacklist{}
	b.Set(names)
	return b
}

// Set replaces the blacklisted names.
func (b *Blacklist) Set(names []string) {
	cp := slices.Clone(names)
	b.names.Store(&cp)
}

// Contains reports an exact, case-sensitive match.
func (b *Blacklist) Contains(username string) bool {
	if b == nil {
		return false
	}
	names := b.names.Load()
	return names != nil && slices.Contains(*names, username)
}

// ValidateUsername checks candidate against existing accounts in iteration
// order, skipping the account being edited (excludedPK).
//
// The scan stops at the first other account holding candidate, or at the
// first other account at all when candidate is blacklisted. A blacklisted
// candidate therefore only reports the duplicate error when the duplicate is
// met first.
func ValidateUsername(excludedPK int64, candidate string, accounts iter.Seq[domain.AccountRef], blacklist *Blacklist) FieldErrors {
	var errs FieldErrors

	for ref := range accounts {
		if ref.PK == excludedPK {
			continue
		}

		if ref.Username != nil && *ref.Username == candidate {
			errs.Add("username", MsgUsernameTaken)
			break
		}

		if blacklist.Contains(candidate) {
			errs.Add("username", MsgUsernameBlacklisted)
			break
		}
	}

	return errs
}

// Refs adapts a slice of references to the sequence ValidateUsername consumes.
func Refs(refs []domain.AccountRef) iter.Seq[domain.AccountRef] {
	return slices.Values(refs)
}
