// Package entities defines the gorm models persisted by the notification engine.
package entities

// Severities, ordered from least to most urgent.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Entity types handled by the rule engine.
const (
	EntityKPI           = "KPI"
	EntityRisk          = "RISK"
	EntityIncident      = "INCIDENT"
	EntityQuestionnaire = "QUESTIONNAIRE"
	EntityEvidence      = "EVIDENCE"
)

// Event types a NotificationRule can subscribe to.
const (
	EventCreate    = "CREATE"
	EventUpdate    = "UPDATE"
	EventDelete    = "DELETE"
	EventApproval  = "APPROVAL"
	EventRejection = "REJECTION"
)

// Notification kinds.
const (
	KindNotification       = "NOTIFICATION"
	KindAlert              = "ALERT"
	KindExpirationReminder = "EXPIRATION_REMINDER"
	KindOverdue            = "OVERDUE"
)

// Rule kind tags stored alongside notifications and logs.
const (
	RuleKindNotification = "NOTIFICATION_RULE"
	RuleKindAlert        = "ALERT_RULE"
	RuleKindExpiration   = "EXPIRATION_RULE"
	RuleKindApproval     = "APPROVAL"
)

// Delivery channels.
const (
	ChannelInApp = "IN_APP"
	ChannelEmail = "EMAIL"
)

// Log outcomes. DELIVERED is written by external collaborators that confirm
// receipt; the engine itself only writes SENT, SKIPPED and FAILED.
const (
	OutcomeSent      = "SENT"
	OutcomeSkipped   = "SKIPPED"
	OutcomeFailed    = "FAILED"
	OutcomeDelivered = "DELIVERED"
)

// Workflow states that end a deadline.
const (
	StateCompleted = "completado"
	StateClosed    = "cerrado"
)
