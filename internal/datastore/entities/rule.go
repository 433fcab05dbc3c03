package entities

import (
	"time"

	"gorm.io/gorm"
)

// RuleTargets is the recipient and channel configuration shared by every rule variant.
type RuleTargets struct {
	UserIDs           []string `gorm:"serializer:json;type:text" json:"user_ids"`
	RoleIDs           []string `gorm:"serializer:json;type:text" json:"role_ids"`
	NotifyCreator     bool     `gorm:"not null;default:false" json:"notify_creator"`
	NotifyResponsible bool     `gorm:"not null;default:false" json:"notify_responsible"`
	NotifyApprovers   bool     `gorm:"not null;default:false" json:"notify_approvers"`
	NotifySupervisor  bool     `gorm:"not null;default:false" json:"notify_supervisor"`
	SendEmail         bool     `gorm:"not null;default:false" json:"send_email"`
}

// NotificationRule fires on entity lifecycle events.
type NotificationRule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Active      bool      `gorm:"not null;index" json:"active"`
	EntityType  string    `gorm:"size:50;not null;index:idx_notification_rules_match,priority:1" json:"entity_type"`
	EventType   string    `gorm:"size:20;not null;index:idx_notification_rules_match,priority:2" json:"event_type"`
	Severity    string    `gorm:"size:20;not null" json:"severity"`
	Template    string    `gorm:"size:2000;default:''" json:"template"`
	RuleTargets `gorm:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (NotificationRule) TableName() string { return "notification_rules" }

func (r *NotificationRule) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

// AlertRule compares a metric against a threshold on every scan.
type AlertRule struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Name            string     `gorm:"size:255;not null" json:"name"`
	Active          bool       `gorm:"not null;index" json:"active"`
	EntityType      string     `gorm:"size:50;not null" json:"entity_type"`
	Severity        string     `gorm:"size:20;not null" json:"severity"`
	MetricName      string     `gorm:"size:255;default:''" json:"metric_name"`
	Aggregation     string     `gorm:"size:20;default:''" json:"aggregation"`
	Filter          string     `gorm:"size:100;default:''" json:"filter"`
	Operator        string     `gorm:"size:3;not null" json:"operator"`
	Threshold       float64    `gorm:"not null" json:"threshold"`
	CooldownMinutes int        `gorm:"not null;default:0" json:"cooldown_minutes"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	RuleTargets     `gorm:"embedded"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (AlertRule) TableName() string { return "alert_rules" }

func (r *AlertRule) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

// ExpirationRule schedules reminders before and overdue notices after a deadline.
type ExpirationRule struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Active      bool      `gorm:"not null;index" json:"active"`
	BuiltIn     bool      `gorm:"not null;default:false" json:"built_in"`
	EntityType  string    `gorm:"size:50;not null" json:"entity_type"`
	Severity    string    `gorm:"size:20;not null" json:"severity"`
	LeadDays    []int     `gorm:"serializer:json;type:text" json:"lead_days"`
	LagDays     []int     `gorm:"serializer:json;type:text" json:"lag_days"`
	RuleTargets `gorm:"embedded"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ExpirationRule) TableName() string { return "expiration_rules" }

func (r *ExpirationRule) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}
