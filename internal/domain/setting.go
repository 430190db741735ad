package domain

// Language is the interface language chosen in the account settings.
type Language string

const (
	LanguageUA Language = "ua"
	LanguageEN Language = "en"
	LanguageRU Language = "ru"
)

// Languages lists the supported languages in display order.
var Languages = []Language{LanguageUA, LanguageEN, LanguageRU}

func (l Language) Valid() bool {
	switch l {
	case LanguageUA, LanguageEN, LanguageRU:
		return true
	default:
		return false
	}
}

// Status tells other users whether the account is looking for a pet.
type Status string

const (
	StatusActivelyLooking Status = "actively_looking"
	StatusAloneIsFine     Status = "alone_is_fine"
)

var Statuses = []Status{StatusActivelyLooking, StatusAloneIsFine}

// Setting is the one-to-one settings row of an account.
type Setting struct {
	ID        int64
	AccountID int64
	Language  Language
	Status    Status
}

// NewSetting returns the defaults provisioned for a new account.
func NewSetting(accountID int64) *Setting {
	return &Setting{
		AccountID: accountID,
		Language:  LanguageEN,
		Status:    StatusAloneIsFine,
	}
}
