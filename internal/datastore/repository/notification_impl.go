package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *entities.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) CreateLog(ctx context.Context, l *entities.NotificationLog) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}
	return nil
}

func (r *notificationRepository) CountSentSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.NotificationLog{}).
		Where("user_id = ? AND sent_at >= ? AND status IN ?", userID, since.UTC(),
			[]string{entities.OutcomeSent, entities.OutcomeDelivered}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sent notifications for user %s: %w", userID, err)
	}
	return count, nil
}

func (r *notificationRepository) ListLogs(ctx context.Context, filter LogFilter) ([]entities.NotificationLog, error) {
	var logs []entities.NotificationLog
	query := r.db.WithContext(ctx).Order("sent_at ASC")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.RuleID != "" {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.Channel != "" {
		query = query.Where("channel = ?", filter.Channel)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	return logs, nil
}

func (r *notificationRepository) ListNotifications(ctx context.Context, filter NotificationFilter) ([]entities.Notification, error) {
	var items []entities.Notification
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.RuleID != "" {
		query = query.Where("rule_id = ?", filter.RuleID)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *notificationRepository) PurgeNotifications(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ? AND is_read = ? AND archived = ?", before.UTC(), true, false).
		Delete(&entities.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge notifications before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}
