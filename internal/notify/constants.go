// Package notify implements the rule evaluation engine: it decides whether,
// whom and through which channel to notify for entity events and scheduled
// scans, honouring user preferences, quiet hours and rate limits, and writes
// an audit row for every channel decision.
package notify

import (
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
)

// Comparison operators accepted by alert rules.
const (
	OperatorGT  = "GT"
	OperatorLT  = "LT"
	OperatorGTE = "GTE"
	OperatorLTE = "LTE"
	OperatorEQ  = "EQ"
	OperatorNE  = "NE"
)

// Entity data keys read by the recipient resolver and composer.
const (
	FieldCreatedBy     = "createdBy"
	FieldResponsibleID = "responsableId"
	FieldResponsible   = "responsable"
	FieldApprovers     = "aprobadores"
	FieldName          = "nombre"
)

// Action identifiers attached to notifications.
const (
	ActionViewDetail     = "view_detail"
	ActionMarkResolved   = "mark_resolved"
	ActionReviewResponse = "review_response"
)

const (
	// DefaultMaxPerHour caps deliveries when a preference enables rate limiting without a cap.
	DefaultMaxPerHour = 100
	// RateLimitWindow is the trailing window counted by the rate limiter.
	RateLimitWindow = 60 * time.Minute
	// DefaultRetentionDays is used when a purge is requested without a positive age.
	DefaultRetentionDays = 90
	// Unlimited is reported as remaining quota when no cap applies.
	Unlimited = -1
)

// DefaultOverdueLagDays applies to expiration rules without lag days.
var DefaultOverdueLagDays = []int{1, 7, 15}

// Skip reasons written to the audit log.
const (
	ReasonGloballyDisabled = "globally disabled"
	ReasonQuietHours       = "quiet hours active (critical only)"
	ReasonSeverityDisabled = "severity disabled by preference"
	ReasonChannelsDisabled = "all channels disabled by preference"
	ReasonInAppDisabled    = "in-app disabled by preference"
	ReasonEmailDisabled    = "email disabled by preference"
	ReasonNoEmailAddress   = "recipient has no email address"
)

// Urgency labels used in reminder and overdue titles.
const (
	LabelLastDay  = "ÚLTIMO DÍA"
	LabelUrgent   = "URGENTE"
	LabelCritical = "CRÍTICO"
	LabelOverdue  = "VENCIDO"
)

var severityRank = map[string]int{
	entities.SeverityInfo:     0,
	entities.SeverityWarning:  1,
	entities.SeverityCritical: 2,
}

// ValidSeverity reports whether s is a known severity.
func ValidSeverity(s string) bool {
	_, ok := severityRank[s]
	return ok
}
