package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// ExpirationResult summarises a reminder scan.
type ExpirationResult struct {
	RemindersSent int `json:"remindersSent"`
	// SourceErrors counts deadline windows that could not be queried.
	SourceErrors int `json:"sourceErrors"`
}

// OverdueResult summarises an overdue scan.
type OverdueResult struct {
	OverdueNotified int `json:"overdueNotified"`
	SourceErrors    int `json:"sourceErrors"`
}

// EvaluateExpirations reminds recipients of deadlines falling exactly lead
// days from today, for every lead time of every active expiration rule.
func (e *Engine) EvaluateExpirations(ctx context.Context) (ExpirationResult, error) {
	defer e.metrics.observeScan("expirations", time.Now())
	var res ExpirationResult

	rules, err := e.rules.ListActiveExpirationRules(ctx)
	if err != nil {
		return res, errors.New(err).Component("notify").Category(errors.CategoryDatabase).Build()
	}

	now := e.clock.Now()
	for i := range rules {
		rule := &rules[i]
		for _, days := range rule.LeadDays {
			if days < 0 {
				continue
			}
			n, err := e.scanDeadlines(ctx, e.reminderSources, rule, now, days, reminderDelivery)
			res.RemindersSent += n
			if errors.Is(err, errSourceUnavailable) {
				res.SourceErrors++
				e.metrics.sourceError("expirations")
				continue
			}
			if err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// EvaluateOverdue notifies recipients of deadlines that passed exactly lag
// days ago and escalates to the responsible user's supervisor when asked.
func (e *Engine) EvaluateOverdue(ctx context.Context) (OverdueResult, error) {
	defer e.metrics.observeScan("overdue", time.Now())
	var res OverdueResult

	rules, err := e.rules.ListActiveExpirationRules(ctx)
	if err != nil {
		return res, errors.New(err).Component("notify").Category(errors.CategoryDatabase).Build()
	}

	now := e.clock.Now()
	for i := range rules {
		rule := &rules[i]
		lags := rule.LagDays
		if len(lags) == 0 {
			lags = DefaultOverdueLagDays
		}
		for _, days := range lags {
			if days <= 0 {
				continue
			}
			n, err := e.scanDeadlines(ctx, e.overdueSources, rule, now, -days, overdueDelivery)
			res.OverdueNotified += n
			if errors.Is(err, errSourceUnavailable) {
				res.SourceErrors++
				e.metrics.sourceError("overdue")
				continue
			}
			if err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// deliveryBuilder shapes the notification for an item |days| from its deadline.
type deliveryBuilder func(rule *entities.ExpirationRule, item DeadlineItem, days int) Delivery

// scanDeadlines delivers to every recipient of every item whose deadline falls
// on the day offset days from now. Negative offsets look backward.
func (e *Engine) scanDeadlines(ctx context.Context, sources map[string]DeadlineSource, rule *entities.ExpirationRule, now time.Time, offset int, build deliveryBuilder) (int, error) {
	src, ok := sources[rule.EntityType]
	if !ok {
		e.log.Debug("no deadline source for entity type", logger.String("entity_type", rule.EntityType))
		return 0, nil
	}

	from, to := dayWindow(now, offset, e.loc)
	items, err := src.Due(ctx, from, to)
	if err != nil {
		e.log.Warn("deadline query failed",
			logger.String("rule_id", rule.ID),
			logger.String("entity_type", rule.EntityType),
			logger.Int("offset_days", offset),
			logger.Error(err))
		return 0, fmt.Errorf("%w: %w", errSourceUnavailable, err)
	}

	days := offset
	if days < 0 {
		days = -days
	}

	var sent int
	for _, item := range items {
		recipients, err := e.recipients.Resolve(ctx, rule.RuleTargets, item.Data(), "")
		if err != nil {
			return sent, err
		}
		if offset < 0 && rule.NotifySupervisor {
			recipients, err = e.withSupervisor(ctx, recipients, item.ResponsibleID)
			if err != nil {
				return sent, err
			}
		}

		for _, userID := range recipients {
			req := build(rule, item, days)
			req.UserID = userID
			out, err := e.deliverer.Deliver(ctx, req)
			if out.Created() {
				sent++
			}
			if err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}

// withSupervisor appends the responsible user's supervisor, if any.
func (e *Engine) withSupervisor(ctx context.Context, recipients []string, responsibleID string) ([]string, error) {
	if responsibleID == "" {
		return recipients, nil
	}
	u, err := e.contacts.User(ctx, responsibleID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return recipients, nil
		}
		return nil, fmt.Errorf("resolve supervisor of %s: %w", responsibleID, err)
	}
	if u.SupervisorID == nil || *u.SupervisorID == "" {
		return recipients, nil
	}
	set := newRecipientSet()
	set.add(recipients...)
	set.add(*u.SupervisorID)
	return set.order, nil
}

func reminderDelivery(rule *entities.ExpirationRule, item DeadlineItem, days int) Delivery {
	label, severity := reminderUrgency(days)
	title := fmt.Sprintf("Vence en %s", dayCount(days))
	if label != "" {
		title = label + ": " + title
	}
	return Delivery{
		Kind:       entities.KindExpirationReminder,
		Title:      title,
		Message:    fmt.Sprintf("%q vence en %s.", item.Name, dayCount(days)),
		Severity:   severity,
		EntityType: item.EntityType,
		EntityID:   item.ID,
		EntityName: item.Name,
		RuleID:     rule.ID,
		RuleKind:   entities.RuleKindExpiration,
		Metadata: map[string]any{
			"daysRemaining": days,
			"deadline":      item.Deadline.UTC().Format(time.RFC3339),
		},
		SendEmail: rule.SendEmail,
	}
}

func overdueDelivery(rule *entities.ExpirationRule, item DeadlineItem, days int) Delivery {
	label, severity := overdueUrgency(days)
	return Delivery{
		Kind:       entities.KindOverdue,
		Title:      fmt.Sprintf("%s: vencido hace %s", label, dayCount(days)),
		Message:    fmt.Sprintf("%q venció hace %s y sigue pendiente.", item.Name, dayCount(days)),
		Severity:   severity,
		EntityType: item.EntityType,
		EntityID:   item.ID,
		EntityName: item.Name,
		RuleID:     rule.ID,
		RuleKind:   entities.RuleKindExpiration,
		Metadata: map[string]any{
			"daysOverdue": days,
			"deadline":    item.Deadline.UTC().Format(time.RFC3339),
		},
		Actions: []entities.NotificationAction{
			{Label: "Ver detalle", Style: "primary", Action: ActionViewDetail},
			{Label: "Marcar resuelto", Style: "secondary", Action: ActionMarkResolved},
		},
		SendEmail: rule.SendEmail,
	}
}

func reminderUrgency(days int) (label, severity string) {
	switch {
	case days <= 1:
		return LabelLastDay, entities.SeverityCritical
	case days <= 3:
		return LabelUrgent, entities.SeverityWarning
	default:
		return "", entities.SeverityInfo
	}
}

func overdueUrgency(days int) (label, severity string) {
	if days >= 7 {
		return LabelCritical, entities.SeverityCritical
	}
	return LabelOverdue, entities.SeverityWarning
}

func dayCount(days int) string {
	if days == 1 {
		return "1 día"
	}
	return fmt.Sprintf("%d días", days)
}
