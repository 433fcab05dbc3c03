package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
	"gorm.io/gorm"
)

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a RuleRepository.
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) FindNotificationRules(ctx context.Context, entityType, eventType string) ([]entities.NotificationRule, error) {
	var rules []entities.NotificationRule
	err := r.db.WithContext(ctx).
		Where("active = ? AND entity_type = ? AND event_type = ?", true, entityType, eventType).
		Order("created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find notification rules for %s/%s: %w", entityType, eventType, err)
	}
	return rules, nil
}

func (r *ruleRepository) ListActiveAlertRules(ctx context.Context) ([]entities.AlertRule, error) {
	var rules []entities.AlertRule
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

func (r *ruleRepository) ListActiveExpirationRules(ctx context.Context) ([]entities.ExpirationRule, error) {
	var rules []entities.ExpirationRule
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list expiration rules: %w", err)
	}
	return rules, nil
}

// GetAlertRule returns ErrRuleNotFound if the rule does not exist.
func (r *ruleRepository) GetAlertRule(ctx context.Context, id string) (*entities.AlertRule, error) {
	var rule entities.AlertRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get alert rule %s: %w", id, err)
	}
	return &rule, nil
}

// ClaimAlertRun is a single conditional UPDATE so concurrent scans of the
// same rule cannot both pass the cooldown gate.
func (r *ruleRepository) ClaimAlertRun(ctx context.Context, ruleID string, notAfter, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.AlertRule{}).
		Where("id = ? AND (last_run_at IS NULL OR last_run_at <= ?)", ruleID, notAfter.UTC()).
		Update("last_run_at", now.UTC())
	if result.Error != nil {
		return false, fmt.Errorf("failed to update last_run_at for alert rule %s: %w", ruleID, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *ruleRepository) CreateNotificationRule(ctx context.Context, rule *entities.NotificationRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create notification rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) CreateAlertRule(ctx context.Context, rule *entities.AlertRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) CreateExpirationRule(ctx context.Context, rule *entities.ExpirationRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create expiration rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) CountExpirationRulesByName(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.ExpirationRule{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count expiration rules by name: %w", err)
	}
	return count, nil
}
