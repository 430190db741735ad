package domain

// NotificationEvents are the notification toggles, in display order.
// Each one is a boolean column of the notification table.
var NotificationEvents = []string{
	"signup",
	"login",
	"changing_profile",
	"changing_setting",
	"sb_liked_comment",
	"sb_replied_to_comment",
	"sb_liked_article",
	"new_comment",
	"sb_liked_animal",
	"new_message",
	"deal_start",
	"deal_timeout",
	"deal_finish",
	"refill",
}

// Notification is the one-to-one notification preferences row of a setting.
type Notification struct {
	ID        int64
	SettingID int64
	Flags     map[string]bool
}

// NewNotification returns preferences with every event enabled.
func NewNotification(settingID int64) *Notification {
	flags := make(map[string]bool, len(NotificationEvents))
	for _, event := range NotificationEvents {
		flags[event] = true
	}
	return &Notification{SettingID: settingID, Flags: flags}
}

// IsNotificationEvent reports whether name is a known toggle.
func IsNotificationEvent(name string) bool {
	for _, event := range NotificationEvents {
		if event == name {
			return true
		}
	}
	return false
}
