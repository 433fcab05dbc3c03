package notify

import (
	"context"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
)

// MetricSource computes the current value an alert rule compares.
type MetricSource interface {
	Value(ctx context.Context, rule *entities.AlertRule) (float64, error)
}

// MetricSourceFunc adapts a function to MetricSource.
type MetricSourceFunc func(ctx context.Context, rule *entities.AlertRule) (float64, error)

func (f MetricSourceFunc) Value(ctx context.Context, rule *entities.AlertRule) (float64, error) {
	return f(ctx, rule)
}

// DeadlineItem is an entity whose deadline falls in a queried window.
type DeadlineItem struct {
	EntityType    string
	ID            string
	Name          string
	Deadline      time.Time
	ResponsibleID string
	CreatedBy     string
}

// Data exposes the item in the shape the recipient resolver and composer read.
func (i DeadlineItem) Data() map[string]any {
	return map[string]any{
		"id":               i.ID,
		FieldName:          i.Name,
		FieldResponsibleID: i.ResponsibleID,
		FieldCreatedBy:     i.CreatedBy,
		"deadline":         i.Deadline,
	}
}

// DeadlineSource lists open entities whose deadline is in [from, to).
type DeadlineSource interface {
	Due(ctx context.Context, from, to time.Time) ([]DeadlineItem, error)
}

// DeadlineSourceFunc adapts a function to DeadlineSource.
type DeadlineSourceFunc func(ctx context.Context, from, to time.Time) ([]DeadlineItem, error)

func (f DeadlineSourceFunc) Due(ctx context.Context, from, to time.Time) ([]DeadlineItem, error) {
	return f(ctx, from, to)
}

// DefaultMetricSources returns the built-in metric strategies keyed by entity type.
func DefaultMetricSources(domain repository.DomainRepository) map[string]MetricSource {
	return map[string]MetricSource{
		entities.EntityKPI: MetricSourceFunc(func(ctx context.Context, rule *entities.AlertRule) (float64, error) {
			kpi, err := domain.GetKPIByName(ctx, rule.MetricName)
			if err != nil {
				if errors.Is(err, repository.ErrKPINotFound) {
					return 0, nil
				}
				return 0, err
			}
			return kpi.CurrentValue, nil
		}),
		entities.EntityRisk: MetricSourceFunc(func(ctx context.Context, rule *entities.AlertRule) (float64, error) {
			n, err := domain.CountRisks(ctx, rule.Filter)
			return float64(n), err
		}),
		entities.EntityIncident: MetricSourceFunc(func(ctx context.Context, rule *entities.AlertRule) (float64, error) {
			n, err := domain.CountIncidents(ctx, rule.Filter)
			return float64(n), err
		}),
		entities.EntityQuestionnaire: MetricSourceFunc(func(ctx context.Context, _ *entities.AlertRule) (float64, error) {
			return domain.AverageCompletedProgress(ctx)
		}),
	}
}

// DefaultReminderSources returns the deadline strategies used by the
// reminder scan. Risk reviews are only reported once overdue.
func DefaultReminderSources(domain repository.DomainRepository) map[string]DeadlineSource {
	sources := DefaultDeadlineSources(domain)
	delete(sources, entities.EntityRisk)
	return sources
}

// DefaultDeadlineSources returns the built-in deadline strategies keyed by
// entity type, as used by the overdue scan.
func DefaultDeadlineSources(domain repository.DomainRepository) map[string]DeadlineSource {
	return map[string]DeadlineSource{
		entities.EntityQuestionnaire: DeadlineSourceFunc(func(ctx context.Context, from, to time.Time) ([]DeadlineItem, error) {
			rows, err := domain.ListAssignmentsDue(ctx, from, to)
			if err != nil {
				return nil, err
			}
			items := make([]DeadlineItem, 0, len(rows))
			for i := range rows {
				a := &rows[i]
				items = append(items, DeadlineItem{
					EntityType:    entities.EntityQuestionnaire,
					ID:            a.ID,
					Name:          a.Name,
					Deadline:      derefTime(a.DueDate),
					ResponsibleID: a.ResponsibleID,
					CreatedBy:     a.CreatedBy,
				})
			}
			return items, nil
		}),
		entities.EntityEvidence: DeadlineSourceFunc(func(ctx context.Context, from, to time.Time) ([]DeadlineItem, error) {
			rows, err := domain.ListEvidenceDue(ctx, from, to)
			if err != nil {
				return nil, err
			}
			items := make([]DeadlineItem, 0, len(rows))
			for i := range rows {
				e := &rows[i]
				items = append(items, DeadlineItem{
					EntityType:    entities.EntityEvidence,
					ID:            e.ID,
					Name:          e.Name,
					Deadline:      derefTime(e.ValidUntil),
					ResponsibleID: e.ResponsibleID,
				})
			}
			return items, nil
		}),
		entities.EntityRisk: DeadlineSourceFunc(func(ctx context.Context, from, to time.Time) ([]DeadlineItem, error) {
			rows, err := domain.ListRisksForReview(ctx, from, to)
			if err != nil {
				return nil, err
			}
			items := make([]DeadlineItem, 0, len(rows))
			for i := range rows {
				r := &rows[i]
				items = append(items, DeadlineItem{
					EntityType:    entities.EntityRisk,
					ID:            r.ID,
					Name:          r.Name,
					Deadline:      derefTime(r.ReviewDate),
					ResponsibleID: r.ResponsibleID,
				})
			}
			return items, nil
		}),
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// dayWindow returns the half-open calendar day offsetDays from now in loc.
func dayWindow(now time.Time, offsetDays int, loc *time.Location) (from, to time.Time) {
	local := now.In(loc)
	from = time.Date(local.Year(), local.Month(), local.Day()+offsetDays, 0, 0, 0, 0, loc)
	to = time.Date(local.Year(), local.Month(), local.Day()+offsetDays+1, 0, 0, 0, 0, loc)
	return from, to
}
