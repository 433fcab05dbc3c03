package notify

import (
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/transport/email"
)

// Stores groups the repositories the engine reads and writes.
type Stores struct {
	Rules         repository.RuleRepository
	Preferences   repository.PreferenceRepository
	Notifications repository.NotificationRepository
	Directory     repository.DirectoryRepository
	Domain        repository.DomainRepository
}

// Options tunes engine behaviour. The zero value is usable.
type Options struct {
	// Location for quiet hours and deadline day windows. Defaults to time.Local.
	Location *time.Location
	// DefaultMaxPerHour is the rate cap when a preference sets none.
	DefaultMaxPerHour int
	// ExcludeActor drops the acting user from event recipients.
	ExcludeActor bool
	// ApprovalEmail also emails approval and rejection notices.
	ApprovalEmail bool
	// ContactCacheTTL caches user lookups; zero disables the cache.
	ContactCacheTTL time.Duration
	Clock           Clock
	Metrics         *Metrics
}

// Engine matches rules to events and scheduled scans and fans out deliveries.
type Engine struct {
	rules         repository.RuleRepository
	notifications repository.NotificationRepository
	domain        repository.DomainRepository

	contacts   *ContactDirectory
	recipients *RecipientResolver
	deliverer  *Deliverer

	metricSources   map[string]MetricSource
	reminderSources map[string]DeadlineSource
	overdueSources  map[string]DeadlineSource

	clock         Clock
	loc           *time.Location
	approvalEmail bool
	metrics       *Metrics
	log           logger.Logger
}

// NewEngine wires the engine and its collaborators. sender may be nil, in
// which case email legs are logged as skipped.
func NewEngine(stores Stores, sender email.Sender, opts Options, log logger.Logger) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	log = log.Module("notify")

	contacts := NewContactDirectory(stores.Directory, opts.ContactCacheTTL)
	prefs := NewPreferenceResolver(stores.Preferences, opts.Clock, opts.Location, log)
	limiter := NewRateLimiter(stores.Preferences, stores.Notifications, opts.Clock, opts.DefaultMaxPerHour, log)

	return &Engine{
		rules:           stores.Rules,
		notifications:   stores.Notifications,
		domain:          stores.Domain,
		contacts:        contacts,
		recipients:      NewRecipientResolver(contacts, RecipientPolicy{ExcludeActor: opts.ExcludeActor}, log),
		deliverer:       NewDeliverer(prefs, limiter, stores.Notifications, contacts, sender, opts.Clock, opts.Metrics, log),
		metricSources:   DefaultMetricSources(stores.Domain),
		reminderSources: DefaultReminderSources(stores.Domain),
		overdueSources:  DefaultDeadlineSources(stores.Domain),
		clock:           opts.Clock,
		loc:             opts.Location,
		approvalEmail:   opts.ApprovalEmail,
		metrics:         opts.Metrics,
		log:             log,
	}
}

// RegisterMetricSource adds or replaces the metric strategy for an entity type.
// Not safe for use concurrently with scans.
func (e *Engine) RegisterMetricSource(entityType string, src MetricSource) {
	e.metricSources[entityType] = src
}

// RegisterDeadlineSource adds or replaces the deadline strategy for an entity
// type in both the reminder and the overdue scans.
// Not safe for use concurrently with scans.
func (e *Engine) RegisterDeadlineSource(entityType string, src DeadlineSource) {
	e.reminderSources[entityType] = src
	e.overdueSources[entityType] = src
}

// RegisterOverdueSource adds or replaces a deadline strategy used only by
// the overdue scan.
func (e *Engine) RegisterOverdueSource(entityType string, src DeadlineSource) {
	delete(e.reminderSources, entityType)
	e.overdueSources[entityType] = src
}

// Contacts exposes the engine's contact directory.
func (e *Engine) Contacts() *ContactDirectory { return e.contacts }
