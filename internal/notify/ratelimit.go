package notify

import (
	"context"
	"fmt"

	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// RateDecision is the outcome of a rate limit check.
type RateDecision struct {
	Permitted bool   `json:"permitted"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

// RateLimiter caps how many notifications a user receives per trailing hour.
type RateLimiter struct {
	prefs      repository.PreferenceRepository
	logs       repository.NotificationRepository
	clock      Clock
	defaultCap int
	log        logger.Logger
}

// NewRateLimiter creates a limiter. defaultCap applies when a preference
// enables rate limiting without a positive cap.
func NewRateLimiter(prefs repository.PreferenceRepository, logs repository.NotificationRepository, clock Clock, defaultCap int, log logger.Logger) *RateLimiter {
	if defaultCap <= 0 {
		defaultCap = DefaultMaxPerHour
	}
	return &RateLimiter{prefs: prefs, logs: logs, clock: clock, defaultCap: defaultCap, log: log}
}

// Check never fails: lookup errors permit delivery.
func (l *RateLimiter) Check(ctx context.Context, userID string) RateDecision {
	unbounded := RateDecision{Permitted: true, Remaining: Unlimited}

	p, err := l.prefs.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrPreferencesNotFound) {
			l.log.Warn("rate limit preference lookup failed, permitting delivery",
				logger.String("user_id", userID),
				logger.Error(err))
		}
		return unbounded
	}
	if !p.RateLimitEnabled {
		return unbounded
	}

	limit := p.MaxPerHour
	if limit <= 0 {
		limit = l.defaultCap
	}
	count, err := l.logs.CountSentSince(ctx, userID, l.clock.Now().Add(-RateLimitWindow))
	if err != nil {
		l.log.Warn("rate limit count failed, permitting delivery",
			logger.String("user_id", userID),
			logger.Error(err))
		return unbounded
	}
	if count >= int64(limit) {
		return RateDecision{
			Permitted: false,
			Remaining: 0,
			Reason:    fmt.Sprintf("RATE_LIMITED: %d/%d notifications in the last hour", count, limit),
		}
	}
	return RateDecision{Permitted: true, Remaining: limit - int(count)}
}
