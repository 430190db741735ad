package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccountRole(t *testing.T) {
	var anonymous *Account
	assert.Equal(t, RoleAnonymous, anonymous.Role())
	assert.Equal(t, RolePlainUser, (&Account{}).Role())
	assert.Equal(t, RoleAdministrator, (&Account{IsAdministrator: true}).Role())
	assert.Equal(t, RoleSuperAdmin, (&Account{IsSuperuser: true}).Role())
	assert.Equal(t, RoleSuperAdmin, (&Account{IsSuperuser: true, IsAdministrator: true}).Role())
	assert.Equal(t, RolePlainUser, (&Account{IsStaff: true}).Role())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "bob", (&Account{Username: StringPtr("bob"), Email: StringPtr("b@x.io")}).DisplayName())
	assert.Equal(t, "admin@x.io", (&Account{Email: StringPtr("admin@x.io")}).DisplayName())
	assert.Equal(t, "", (&Account{}).DisplayName())
}

func TestNewNotificationEnablesEverything(t *testing.T) {
	n := NewNotification(7)
	assert.Len(t, n.Flags, 14)
	for _, event := range NotificationEvents {
		assert.True(t, n.Flags[event], event)
	}
	assert.True(t, IsNotificationEvent("refill"))
	assert.False(t, IsNotificationEvent("password"))
}

func TestSlugify(t *testing.T) {
	testCases := map[string]string{
		"Cats and Dogs":     "cats-and-dogs",
		"  Hello,  World! ": "hello-world",
		"already-slugged":   "already-slugged",
		"Котики 2024":       "котики-2024",
		"--edge--":          "edge",
		"snake_case name":   "snake_case-name",
	}

	for input, want := range testCases {
		assert.Equal(t, want, Slugify(input), input)
	}
}

func TestMessageIsEmpty(t *testing.T) {
	assert.True(t, (&Message{}).IsEmpty())
	assert.True(t, (&Message{Text: StringPtr("   ")}).IsEmpty())
	assert.False(t, (&Message{Text: StringPtr("hi")}).IsEmpty())
	assert.False(t, (&Message{File: StringPtr("chats/a.png")}).IsEmpty())
}

func TestLanguageValid(t *testing.T) {
	for _, l := range Languages {
		assert.True(t, l.Valid())
	}
	assert.False(t, Language("de").Valid())
}
