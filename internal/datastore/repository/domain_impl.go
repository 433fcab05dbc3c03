package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
	"gorm.io/gorm"
)

type domainRepository struct {
	db *gorm.DB
}

// NewDomainRepository creates a DomainRepository.
func NewDomainRepository(db *gorm.DB) DomainRepository {
	return &domainRepository{db: db}
}

func (r *domainRepository) GetKPIByName(ctx context.Context, name string) (*entities.KPI, error) {
	var kpi entities.KPI
	if err := r.db.WithContext(ctx).First(&kpi, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKPINotFound
		}
		return nil, fmt.Errorf("failed to get kpi %q: %w", name, err)
	}
	return &kpi, nil
}

func (r *domainRepository) CountRisks(ctx context.Context, state string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entities.Risk{})
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count risks: %w", err)
	}
	return count, nil
}

func (r *domainRepository) CountIncidents(ctx context.Context, severity string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entities.Incident{})
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count incidents: %w", err)
	}
	return count, nil
}

func (r *domainRepository) AverageCompletedProgress(ctx context.Context) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.WithContext(ctx).
		Model(&entities.QuestionnaireAssignment{}).
		Where("state = ?", entities.StateCompleted).
		Select("AVG(progress)").
		Scan(&avg).Error
	if err != nil {
		return 0, fmt.Errorf("failed to average assignment progress: %w", err)
	}
	return avg.Float64, nil
}

func (r *domainRepository) GetAssignment(ctx context.Context, id string) (*entities.QuestionnaireAssignment, error) {
	var a entities.QuestionnaireAssignment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment %s: %w", id, err)
	}
	return &a, nil
}

func (r *domainRepository) ListAssignmentsDue(ctx context.Context, from, to time.Time) ([]entities.QuestionnaireAssignment, error) {
	var items []entities.QuestionnaireAssignment
	err := r.db.WithContext(ctx).
		Where("due_date >= ? AND due_date < ? AND state <> ?", from.UTC(), to.UTC(), entities.StateCompleted).
		Order("due_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments due: %w", err)
	}
	return items, nil
}

func (r *domainRepository) ListEvidenceDue(ctx context.Context, from, to time.Time) ([]entities.Evidence, error) {
	var items []entities.Evidence
	err := r.db.WithContext(ctx).
		Where("valid_until >= ? AND valid_until < ?", from.UTC(), to.UTC()).
		Order("valid_until ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence due: %w", err)
	}
	return items, nil
}

func (r *domainRepository) ListRisksForReview(ctx context.Context, from, to time.Time) ([]entities.Risk, error) {
	var items []entities.Risk
	err := r.db.WithContext(ctx).
		Where("review_date >= ? AND review_date < ? AND state <> ?", from.UTC(), to.UTC(), entities.StateClosed).
		Order("review_date ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list risks for review: %w", err)
	}
	return items, nil
}
