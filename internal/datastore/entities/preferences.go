package entities

import "time"

// ChannelOverride restricts channels for one entity type. A nil field leaves
// the global flag in charge.
type ChannelOverride struct {
	InApp *bool `json:"in_app,omitempty"`
	Email *bool `json:"email,omitempty"`
}

// UserNotificationPreferences holds one user's delivery preferences.
// A missing row means every channel is allowed.
type UserNotificationPreferences struct {
	UserID          string                     `gorm:"primaryKey;size:36" json:"user_id"`
	Enabled         bool                       `gorm:"not null" json:"enabled"`
	InfoEnabled     bool                       `gorm:"not null" json:"info_enabled"`
	WarningEnabled  bool                       `gorm:"not null" json:"warning_enabled"`
	CriticalEnabled bool                       `gorm:"not null" json:"critical_enabled"`
	InAppEnabled    bool                       `gorm:"not null" json:"in_app_enabled"`
	EmailEnabled    bool                       `gorm:"not null" json:"email_enabled"`
	EntityOverrides map[string]ChannelOverride `gorm:"serializer:json;type:text" json:"entity_overrides,omitempty"`

	QuietHoursEnabled bool   `gorm:"not null" json:"quiet_hours_enabled"`
	QuietHoursStart   string `gorm:"size:5;default:''" json:"quiet_hours_start"`
	QuietHoursEnd     string `gorm:"size:5;default:''" json:"quiet_hours_end"`
	// QuietHoursDays lists weekdays (0 = Sunday). Empty means every day.
	QuietHoursDays []int `gorm:"serializer:json;type:text" json:"quiet_hours_days,omitempty"`

	RateLimitEnabled bool `gorm:"not null" json:"rate_limit_enabled"`
	MaxPerHour       int  `gorm:"not null;default:0" json:"max_per_hour"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (UserNotificationPreferences) TableName() string { return "user_notification_preferences" }

// AllowAll returns preferences equivalent to having no record.
func AllowAll(userID string) *UserNotificationPreferences {
	return &UserNotificationPreferences{
		UserID:          userID,
		Enabled:         true,
		InfoEnabled:     true,
		WarningEnabled:  true,
		CriticalEnabled: true,
		InAppEnabled:    true,
		EmailEnabled:    true,
	}
}
