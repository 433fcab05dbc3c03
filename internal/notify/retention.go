package notify

import (
	"context"

	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// PurgeResult summarises a retention sweep.
type PurgeResult struct {
	Deleted int64 `json:"deleted"`
}

// PurgeOldNotifications deletes read, unarchived notifications older than
// the given number of days. Non-positive ages use DefaultRetentionDays.
func (e *Engine) PurgeOldNotifications(ctx context.Context, olderThanDays int) (PurgeResult, error) {
	if olderThanDays <= 0 {
		olderThanDays = DefaultRetentionDays
	}
	cutoff := e.clock.Now().AddDate(0, 0, -olderThanDays)

	deleted, err := e.notifications.PurgeNotifications(ctx, cutoff)
	if err != nil {
		return PurgeResult{}, errors.New(err).
			Component("notify").
			Category(errors.CategoryDatabase).
			Context("older_than_days", olderThanDays).
			Build()
	}
	e.metrics.notificationsPurged(deleted)
	if deleted > 0 {
		e.log.Info("purged old notifications",
			logger.Int64("deleted", deleted),
			logger.Int("older_than_days", olderThanDays))
	}
	return PurgeResult{Deleted: deleted}, nil
}
