package account

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MsgPasswordTooShort  = "This password is too short. It must contain at least %d characters."
	MsgPasswordTooCommon = "This password is too common."
	MsgPasswordNumeric   = "This password is entirely numeric."
)

// commonPasswords is a short deny-list of the most frequently leaked passwords.
var commonPasswords = map[string]struct{}{
	"123456": {}, "123456789": {}, "12345678": {}, "password": {}, "qwerty": {},
	"qwerty123": {}, "1q2w3e4r": {}, "111111": {}, "1234567890": {}, "1234567": {},
	"password1": {}, "password123": {}, "iloveyou": {}, "123123": {}, "abc123": {},
	"qwertyuiop": {}, "000000": {}, "admin": {}, "admin123": {}, "letmein": {},
	"welcome": {}, "monkey": {}, "dragon": {}, "football": {}, "baseball": {},
	"sunshine": {}, "princess": {}, "passw0rd": {}, "master": {}, "superman": {},
	"trustno1": {}, "starwars": {}, "whatever": {}, "shadow": {}, "michael": {},
	"11111111": {}, "87654321": {}, "asdfghjkl": {}, "zaq12wsx": {}, "1qaz2wsx": {},
}

// PasswordPolicy checks new passwords.
type PasswordPolicy struct {
	MinLength int
}

// Validate returns the violated rules as user-facing messages.
func (p PasswordPolicy) Validate(password string) []string {
	var msgs []string
	if len([]rune(password)) < p.MinLength {
		msgs = append(msgs, fmt.Sprintf(MsgPasswordTooShort, p.MinLength))
	}
	if _, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		msgs = append(msgs, MsgPasswordTooCommon)
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		msgs = append(msgs, MsgPasswordNumeric)
	}
	return msgs
}

// HashPassword returns the bcrypt hash stored in account.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. An empty hash never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
