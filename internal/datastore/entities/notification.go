package entities

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationAction is a button rendered with an in-app notification.
type NotificationAction struct {
	Label  string `json:"label"`
	Style  string `json:"style"`
	Action string `json:"action"`
}

// Notification is an in-app message for one recipient.
type Notification struct {
	ID         string               `gorm:"primaryKey;size:36" json:"id"`
	UserID     string               `gorm:"size:36;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Kind       string               `gorm:"size:30;not null" json:"kind"`
	Title      string               `gorm:"size:500;not null" json:"title"`
	Message    string               `gorm:"type:text" json:"message"`
	Severity   string               `gorm:"size:20;not null" json:"severity"`
	EntityType string               `gorm:"size:50" json:"entity_type"`
	EntityID   string               `gorm:"size:64;index" json:"entity_id"`
	EntityName string               `gorm:"size:255" json:"entity_name"`
	RuleID     string               `gorm:"size:36;index" json:"rule_id"`
	RuleKind   string               `gorm:"size:30" json:"rule_kind"`
	Metadata   datatypes.JSONMap    `json:"metadata,omitempty"`
	Actions    []NotificationAction `gorm:"serializer:json;type:text" json:"actions,omitempty"`
	Read       bool                 `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	Archived   bool                 `gorm:"not null;default:false" json:"archived"`
	CreatedAt  time.Time            `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	n.ID = newID(n.ID)
	return nil
}

// NotificationLog is an append-only audit row, one per recipient and channel decision.
type NotificationLog struct {
	ID             string            `gorm:"primaryKey;size:36" json:"id"`
	NotificationID *string           `gorm:"size:36;index" json:"notification_id,omitempty"`
	UserID         string            `gorm:"size:36;not null;index:idx_notification_logs_user_sent,priority:1" json:"user_id"`
	Channel        string            `gorm:"size:10;not null" json:"channel"`
	Status         string            `gorm:"size:10;not null;index" json:"status"`
	Error          string            `gorm:"type:text" json:"error,omitempty"`
	RuleID         string            `gorm:"size:36;index" json:"rule_id"`
	RuleKind       string            `gorm:"size:30" json:"rule_kind"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
	SentAt         time.Time         `gorm:"not null;index:idx_notification_logs_user_sent,priority:2" json:"sent_at"`
}

func (NotificationLog) TableName() string { return "notification_logs" }

func (l *NotificationLog) BeforeCreate(*gorm.DB) error {
	l.ID = newID(l.ID)
	return nil
}
