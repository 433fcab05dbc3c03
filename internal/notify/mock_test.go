package notify

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/transport/email"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeStore is an in-memory implementation of every repository the engine uses.
type fakeStore struct {
	mu sync.Mutex

	notificationRules []entities.NotificationRule
	alertRules        []entities.AlertRule
	expirationRules   []entities.ExpirationRule

	prefs    map[string]*entities.UserNotificationPreferences
	prefsErr error

	notifications []entities.Notification
	createErr     error
	logs          []entities.NotificationLog
	countErr      error
	logErr        error
	countCalls    int

	users map[string]*entities.User
	roles map[string][]string

	kpis        map[string]float64
	risks       []entities.Risk
	incidents   []entities.Incident
	assignments []entities.QuestionnaireAssignment
	evidence    []entities.Evidence
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs: make(map[string]*entities.UserNotificationPreferences),
		users: make(map[string]*entities.User),
		roles: make(map[string][]string),
		kpis:  make(map[string]float64),
	}
}

func (s *fakeStore) stores() Stores {
	return Stores{Rules: s, Preferences: s, Notifications: s, Directory: s, Domain: s}
}

func (s *fakeStore) addUser(id, name, mail string, supervisor string) {
	u := &entities.User{ID: id, Name: name, Email: mail, Active: true}
	if supervisor != "" {
		u.SupervisorID = &supervisor
	}
	s.users[id] = u
}

func (s *fakeStore) logsFor(userID, channel string) []entities.NotificationLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.NotificationLog
	for i := range s.logs {
		if s.logs[i].UserID == userID && (channel == "" || s.logs[i].Channel == channel) {
			out = append(out, s.logs[i])
		}
	}
	return out
}

// RuleRepository

func (s *fakeStore) FindNotificationRules(_ context.Context, entityType, eventType string) ([]entities.NotificationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.NotificationRule
	for i := range s.notificationRules {
		r := s.notificationRules[i]
		if r.Active && r.EntityType == entityType && r.EventType == eventType {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveAlertRules(_ context.Context) ([]entities.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.AlertRule
	for i := range s.alertRules {
		if s.alertRules[i].Active {
			out = append(out, s.alertRules[i])
		}
	}
	return out, nil
}

func (s *fakeStore) ListActiveExpirationRules(_ context.Context) ([]entities.ExpirationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.ExpirationRule
	for i := range s.expirationRules {
		if s.expirationRules[i].Active {
			out = append(out, s.expirationRules[i])
		}
	}
	return out, nil
}

func (s *fakeStore) GetAlertRule(_ context.Context, id string) (*entities.AlertRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alertRules {
		if s.alertRules[i].ID == id {
			r := s.alertRules[i]
			return &r, nil
		}
	}
	return nil, repository.ErrRuleNotFound
}

func (s *fakeStore) ClaimAlertRun(_ context.Context, ruleID string, notAfter, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.alertRules {
		r := &s.alertRules[i]
		if r.ID != ruleID {
			continue
		}
		if r.LastRunAt != nil && r.LastRunAt.After(notAfter) {
			return false, nil
		}
		stamp := now
		r.LastRunAt = &stamp
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) CreateNotificationRule(_ context.Context, rule *entities.NotificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notificationRules = append(s.notificationRules, *rule)
	return nil
}

func (s *fakeStore) CreateAlertRule(_ context.Context, rule *entities.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alertRules = append(s.alertRules, *rule)
	return nil
}

func (s *fakeStore) CreateExpirationRule(_ context.Context, rule *entities.ExpirationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expirationRules = append(s.expirationRules, *rule)
	return nil
}

func (s *fakeStore) CountExpirationRulesByName(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.expirationRules {
		if s.expirationRules[i].Name == name {
			n++
		}
	}
	return n, nil
}

// PreferenceRepository

func (s *fakeStore) GetPreferences(_ context.Context, userID string) (*entities.UserNotificationPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefsErr != nil {
		return nil, s.prefsErr
	}
	p, ok := s.prefs[userID]
	if !ok {
		return nil, repository.ErrPreferencesNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) SavePreferences(_ context.Context, prefs *entities.UserNotificationPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *prefs
	s.prefs[prefs.UserID] = &cp
	return nil
}

// NotificationRepository

func (s *fakeStore) CreateNotification(_ context.Context, n *entities.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if n.ID == "" {
		n.ID = fmt.Sprintf("n-%d", len(s.notifications)+1)
	}
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *fakeStore) CreateLog(_ context.Context, l *entities.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, *l)
	return nil
}

func (s *fakeStore) CountSentSince(_ context.Context, userID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countCalls++
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	for i := range s.logs {
		l := &s.logs[i]
		if l.UserID != userID || l.SentAt.Before(since) {
			continue
		}
		if l.Status == entities.OutcomeSent || l.Status == entities.OutcomeDelivered {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ListLogs(_ context.Context, f repository.LogFilter) ([]entities.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.NotificationLog
	for i := range s.logs {
		l := s.logs[i]
		if (f.UserID == "" || l.UserID == f.UserID) && (f.Channel == "" || l.Channel == f.Channel) &&
			(f.Status == "" || l.Status == f.Status) && (f.RuleID == "" || l.RuleID == f.RuleID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeStore) ListNotifications(_ context.Context, f repository.NotificationFilter) ([]entities.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entities.Notification
	for i := range s.notifications {
		n := s.notifications[i]
		if (f.UserID == "" || n.UserID == f.UserID) && (f.RuleID == "" || n.RuleID == f.RuleID) &&
			(f.EntityID == "" || n.EntityID == f.EntityID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeStore) PurgeNotifications(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.notifications[:0]
	var deleted int64
	for _, n := range s.notifications {
		if n.CreatedAt.Before(before) && n.Read && !n.Archived {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	s.notifications = kept
	return deleted, nil
}

// DirectoryRepository

func (s *fakeStore) GetUser(_ context.Context, id string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) FindUserByName(_ context.Context, name string) (*entities.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == name {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *fakeStore) ListUserIDsByRoles(_ context.Context, roleIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, role := range roleIDs {
		for _, id := range s.roles[role] {
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) CreateUser(_ context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *fakeStore) AddRoleMember(_ context.Context, roleID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.roles[roleID], userID) {
		s.roles[roleID] = append(s.roles[roleID], userID)
	}
	return nil
}

// DomainRepository

func (s *fakeStore) GetKPIByName(_ context.Context, name string) (*entities.KPI, error) {
	v, ok := s.kpis[name]
	if !ok {
		return nil, repository.ErrKPINotFound
	}
	return &entities.KPI{ID: "kpi-" + name, Name: name, CurrentValue: v}, nil
}

func (s *fakeStore) CountRisks(_ context.Context, state string) (int64, error) {
	var n int64
	for i := range s.risks {
		if state == "" || s.risks[i].State == state {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountIncidents(_ context.Context, severity string) (int64, error) {
	var n int64
	for i := range s.incidents {
		if severity == "" || s.incidents[i].Severity == severity {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) AverageCompletedProgress(_ context.Context) (float64, error) {
	var sum float64
	var n int
	for i := range s.assignments {
		if s.assignments[i].State == entities.StateCompleted {
			sum += s.assignments[i].Progress
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (s *fakeStore) GetAssignment(_ context.Context, id string) (*entities.QuestionnaireAssignment, error) {
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			a := s.assignments[i]
			return &a, nil
		}
	}
	return nil, repository.ErrAssignmentNotFound
}

func inWindow(t *time.Time, from, to time.Time) bool {
	return t != nil && !t.Before(from) && t.Before(to)
}

func (s *fakeStore) ListAssignmentsDue(_ context.Context, from, to time.Time) ([]entities.QuestionnaireAssignment, error) {
	var out []entities.QuestionnaireAssignment
	for i := range s.assignments {
		a := s.assignments[i]
		if inWindow(a.DueDate, from, to) && a.State != entities.StateCompleted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) ListEvidenceDue(_ context.Context, from, to time.Time) ([]entities.Evidence, error) {
	var out []entities.Evidence
	for i := range s.evidence {
		if inWindow(s.evidence[i].ValidUntil, from, to) {
			out = append(out, s.evidence[i])
		}
	}
	return out, nil
}

func (s *fakeStore) ListRisksForReview(_ context.Context, from, to time.Time) ([]entities.Risk, error) {
	var out []entities.Risk
	for i := range s.risks {
		r := s.risks[i]
		if inWindow(r.ReviewDate, from, to) && r.State != entities.StateClosed {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeSender records every message and optionally fails.
type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *email.Message) (*email.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, *msg)
	return &email.Receipt{Success: true, MessageID: "msg-1", Timestamp: time.Now()}, nil
}

func testLogger() logger.Logger {
	return logger.NewZerologLogger(io.Discard, logger.LogLevelError, nil)
}

// testNow is a Monday.
var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, store *fakeStore, sender email.Sender, now time.Time) *Engine {
	t.Helper()
	return NewEngine(store.stores(), sender, Options{
		Location: time.UTC,
		Clock:    FixedClock(now),
		Metrics:  NewMetrics(prometheus.NewRegistry()),
	}, testLogger())
}

func ptr[T any](v T) *T { return &v }

func logFilterStatus(status string) repository.LogFilter {
	return repository.LogFilter{Status: status}
}
