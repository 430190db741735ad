package validation

import (
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/share-pet/share-pet/internal/domain"
)

func ref(pk int64, username string) domain.AccountRef {
	return domain.AccountRef{PK: pk, Username: domain.StringPtr(username)}
}

func TestValidateUsername(t *testing.T) {
	blacklist := NewBlacklist("ye11ow_banana")

	testCases := []struct {
		name      string
		excluded  int64
		candidate string
		accounts  []domain.AccountRef
		want      []string
	}{
		{
			name:      "unique name",
			excluded:  1,
			candidate: "carol",
			accounts:  []domain.AccountRef{ref(1, "bob"), ref(2, "alice")},
		},
		{
			name:      "own username is not a duplicate",
			excluded:  1,
			candidate: "bob",
			accounts:  []domain.AccountRef{ref(1, "bob"), ref(2, "alice")},
		},
		{
			name:      "duplicate of another account",
			excluded:  1,
			candidate: "alice",
			accounts:  []domain.AccountRef{ref(1, "bob"), ref(2, "alice")},
			want:      []string{MsgUsernameTaken},
		},
		{
			name:      "duplicate found late in the scan",
			excluded:  1,
			candidate: "dave",
			accounts:  []domain.AccountRef{ref(2, "alice"), ref(3, "carol"), ref(1, "bob"), ref(4, "dave")},
			want:      []string{MsgUsernameTaken},
		},
		{
			name:      "blacklisted",
			excluded:  1,
			candidate: "ye11ow_banana",
			accounts:  []domain.AccountRef{ref(1, "bob"), ref(2, "alice")},
			want:      []string{MsgUsernameBlacklisted},
		},
		{
			name:      "blacklisted duplicate met first reports only the duplicate",
			excluded:  1,
			candidate: "ye11ow_banana",
			accounts:  []domain.AccountRef{ref(2, "ye11ow_banana"), ref(3, "alice")},
			want:      []string{MsgUsernameTaken},
		},
		{
			name:      "blacklisted name with a later duplicate reports the blacklist",
			excluded:  1,
			candidate: "ye11ow_banana",
			accounts:  []domain.AccountRef{ref(2, "alice"), ref(3, "ye11ow_banana")},
			want:      []string{MsgUsernameBlacklisted},
		},
		{
			name:      "blacklist needs another account to be checked",
			excluded:  1,
			candidate: "ye11ow_banana",
			accounts:  []domain.AccountRef{ref(1, "bob")},
		},
		{
			name:      "accounts without username never collide",
			excluded:  1,
			candidate: "carol",
			accounts:  []domain.AccountRef{{PK: 2}, ref(1, "bob")},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateUsername(tc.excluded, tc.candidate, Refs(tc.accounts), blacklist)

			if len(tc.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, "username", errs[0].Field)
			assert.Equal(t, tc.want, errs[0].ErrorMessages)
		})
	}
}

func TestValidateUsernameStopsScanning(t *testing.T) {
	visited := 0
	accounts := iter.Seq[domain.AccountRef](func(yield func(domain.AccountRef) bool) {
		for _, r := range []domain.AccountRef{ref(2, "alice"), ref(3, "bob"), ref(4, "carol")} {
			visited++
			if !yield(r) {
				return
			}
		}
	})

	errs := ValidateUsername(1, "alice", accounts, NewBlacklist())
	assert.Len(t, errs, 1)
	assert.Equal(t, 1, visited)
}

func TestBlacklistReplace(t *testing.T) {
	b := NewBlacklist("admin")
	assert.True(t, b.Contains("admin"))
	assert.False(t, b.Contains("Admin"))

	b.Set([]string{"root"})
	assert.False(t, b.Contains("admin"))
	assert.True(t, b.Contains("root"))

	var nilList *Blacklist
	assert.False(t, nilList.Contains("root"))
}

func TestFieldErrors(t *testing.T) {
	var errs FieldErrors
	errs.Add("email", "a")
	errs.Add("username", "b")
	errs.Add("email", "c")

	require.Len(t, errs, 2)
	assert.Equal(t, map[string][]string{"email": {"a", "c"}, "username": {"b"}}, errs.ByField())
	assert.Nil(t, FieldErrors(nil).ByField())
}
