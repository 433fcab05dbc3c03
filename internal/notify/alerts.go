package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// AlertsResult summarises an alert scan.
type AlertsResult struct {
	AlertsFired int `json:"alertsFired"`
	// SourceErrors counts rules skipped because their metric could not be read.
	SourceErrors int `json:"sourceErrors"`
}

// errSourceUnavailable marks a metric or deadline read failure. The rule is
// skipped and counted while the scan continues.
var errSourceUnavailable = errors.NewStd("source unavailable")

// EvaluateAlerts compares every active alert rule's metric against its
// threshold. A rule fires at most once per cooldown: the cooldown stamp is
// claimed atomically before delivery, so concurrent scans cannot both fire it.
func (e *Engine) EvaluateAlerts(ctx context.Context) (AlertsResult, error) {
	defer e.metrics.observeScan("alerts", time.Now())
	var res AlertsResult

	rules, err := e.rules.ListActiveAlertRules(ctx)
	if err != nil {
		return res, errors.New(err).Component("notify").Category(errors.CategoryDatabase).Build()
	}

	for i := range rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rule := &rules[i]
		fired, err := e.evaluateAlert(ctx, rule)
		if errors.Is(err, errSourceUnavailable) {
			res.SourceErrors++
			e.metrics.sourceError("alerts")
			continue
		}
		if err != nil {
			return res, err
		}
		if fired {
			res.AlertsFired++
			e.metrics.alertFired()
		}
	}
	return res, nil
}

func (e *Engine) evaluateAlert(ctx context.Context, rule *entities.AlertRule) (bool, error) {
	now := e.clock.Now()
	cooldown := time.Duration(rule.CooldownMinutes) * time.Minute
	if rule.LastRunAt != nil && now.Sub(*rule.LastRunAt) < cooldown {
		return false, nil
	}

	value, err := e.metricValue(ctx, rule)
	if err != nil {
		e.log.Warn("alert metric unavailable",
			logger.String("rule_id", rule.ID),
			logger.String("entity_type", rule.EntityType),
			logger.Error(err))
		return false, fmt.Errorf("%w: %w", errSourceUnavailable, err)
	}
	if !Compare(rule.Operator, value, rule.Threshold) {
		return false, nil
	}

	claimed, err := e.rules.ClaimAlertRun(ctx, rule.ID, now.Add(-cooldown), now)
	if err != nil {
		return false, errors.New(err).
			Component("notify").
			Category(errors.CategoryDatabase).
			Context("rule_id", rule.ID).
			Build()
	}
	if !claimed {
		e.log.Debug("alert claimed by another scan", logger.String("rule_id", rule.ID))
		return false, nil
	}

	recipients, err := e.recipients.Resolve(ctx, rule.RuleTargets, nil, "")
	if err != nil {
		return true, err
	}

	metric := rule.MetricName
	if metric == "" {
		metric = rule.EntityType
	}
	message := fmt.Sprintf("%s tiene un valor actual de %s (condición: %s %s).",
		metric, formatValue(value), operatorSymbol(rule.Operator), formatValue(rule.Threshold))

	for _, userID := range recipients {
		_, err := e.deliverer.Deliver(ctx, Delivery{
			UserID:     userID,
			Kind:       entities.KindAlert,
			Title:      "Alerta: " + rule.Name,
			Message:    message,
			Severity:   rule.Severity,
			EntityType: rule.EntityType,
			EntityName: metric,
			RuleID:     rule.ID,
			RuleKind:   entities.RuleKindAlert,
			Metadata: map[string]any{
				"currentValue": value,
				"threshold":    rule.Threshold,
				"operator":     rule.Operator,
			},
			SendEmail: rule.SendEmail,
		})
		if err != nil {
			return true, err
		}
	}

	e.log.Info("alert fired",
		logger.String("rule_id", rule.ID),
		logger.String("rule", rule.Name),
		logger.Float64("value", value),
		logger.Int("recipients", len(recipients)))
	return true, nil
}

// metricValue dispatches to the entity type's metric source; unknown types read 0.
func (e *Engine) metricValue(ctx context.Context, rule *entities.AlertRule) (float64, error) {
	src, ok := e.metricSources[rule.EntityType]
	if !ok {
		return 0, nil
	}
	return src.Value(ctx, rule)
}
