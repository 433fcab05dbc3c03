// Package repository exposes the persistence operations the notification
// engine consumes, with gorm implementations.
package repository

import (
	"context"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
)

// Sentinel errors for missing records.
var (
	ErrRuleNotFound        = errors.NewStd("rule not found")
	ErrPreferencesNotFound = errors.NewStd("notification preferences not found")
	ErrUserNotFound        = errors.NewStd("user not found")
	ErrKPINotFound         = errors.NewStd("kpi not found")
	ErrAssignmentNotFound  = errors.NewStd("questionnaire assignment not found")
)

// RuleRepository reads rules and owns the alert cooldown state.
type RuleRepository interface {
	// FindNotificationRules returns active rules matching entity and event type.
	FindNotificationRules(ctx context.Context, entityType, eventType string) ([]entities.NotificationRule, error)
	ListActiveAlertRules(ctx context.Context) ([]entities.AlertRule, error)
	ListActiveExpirationRules(ctx context.Context) ([]entities.ExpirationRule, error)
	GetAlertRule(ctx context.Context, id string) (*entities.AlertRule, error)

	// ClaimAlertRun atomically sets last_run_at to now when the rule has never
	// run or last ran at or before notAfter. It reports whether this caller won.
	ClaimAlertRun(ctx context.Context, ruleID string, notAfter, now time.Time) (bool, error)

	CreateNotificationRule(ctx context.Context, rule *entities.NotificationRule) error
	CreateAlertRule(ctx context.Context, rule *entities.AlertRule) error
	CreateExpirationRule(ctx context.Context, rule *entities.ExpirationRule) error
	CountExpirationRulesByName(ctx context.Context, name string) (int64, error)
}

// PreferenceRepository reads per-user delivery preferences.
type PreferenceRepository interface {
	// GetPreferences returns ErrPreferencesNotFound when the user has no record.
	GetPreferences(ctx context.Context, userID string) (*entities.UserNotificationPreferences, error)
	SavePreferences(ctx context.Context, prefs *entities.UserNotificationPreferences) error
}

// NotificationRepository writes notifications and the delivery audit log.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *entities.Notification) error
	CreateLog(ctx context.Context, l *entities.NotificationLog) error
	// CountSentSince counts SENT and DELIVERED log rows for a user at or after since.
	CountSentSince(ctx context.Context, userID string, since time.Time) (int64, error)
	ListLogs(ctx context.Context, filter LogFilter) ([]entities.NotificationLog, error)
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]entities.Notification, error)
	// PurgeNotifications deletes read, unarchived notifications created before the cutoff.
	PurgeNotifications(ctx context.Context, before time.Time) (int64, error)
}

// DirectoryRepository resolves users and role membership.
type DirectoryRepository interface {
	GetUser(ctx context.Context, id string) (*entities.User, error)
	// FindUserByName matches the exact display name.
	FindUserByName(ctx context.Context, name string) (*entities.User, error)
	ListUserIDsByRoles(ctx context.Context, roleIDs []string) ([]string, error)
	CreateUser(ctx context.Context, u *entities.User) error
	AddRoleMember(ctx context.Context, roleID, userID string) error
}

// DomainRepository queries the compliance records rules are evaluated against.
type DomainRepository interface {
	GetKPIByName(ctx context.Context, name string) (*entities.KPI, error)
	// CountRisks counts risks, filtered by state when state is non-empty.
	CountRisks(ctx context.Context, state string) (int64, error)
	// CountIncidents counts incidents, filtered by severity when non-empty.
	CountIncidents(ctx context.Context, severity string) (int64, error)
	// AverageCompletedProgress is the mean progress of completed assignments, 0 when none.
	AverageCompletedProgress(ctx context.Context) (float64, error)
	GetAssignment(ctx context.Context, id string) (*entities.QuestionnaireAssignment, error)

	// Deadline windows are half-open: from <= deadline < to.
	ListAssignmentsDue(ctx context.Context, from, to time.Time) ([]entities.QuestionnaireAssignment, error)
	ListEvidenceDue(ctx context.Context, from, to time.Time) ([]entities.Evidence, error)
	ListRisksForReview(ctx context.Context, from, to time.Time) ([]entities.Risk, error)
}

// LogFilter controls log listing.
type LogFilter struct {
	UserID  string
	RuleID  string
	Channel string
	Status  string
	Limit   int
}

// NotificationFilter controls notification listing.
type NotificationFilter struct {
	UserID   string
	RuleID   string
	EntityID string
	Limit    int
}
