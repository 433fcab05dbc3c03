package notify

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// ChannelDecision is the outcome of a preference check.
type ChannelDecision struct {
	AllowInApp bool   `json:"allowInApp"`
	AllowEmail bool   `json:"allowEmail"`
	Reason     string `json:"reason,omitempty"`
}

// Denied reports whether no channel is permitted.
func (d ChannelDecision) Denied() bool { return !d.AllowInApp && !d.AllowEmail }

var allowAll = ChannelDecision{AllowInApp: true, AllowEmail: true}

// PreferenceResolver applies a user's notification preferences to a candidate delivery.
type PreferenceResolver struct {
	repo  repository.PreferenceRepository
	clock Clock
	loc   *time.Location
	log   logger.Logger
}

// NewPreferenceResolver creates a resolver evaluating quiet hours in loc.
func NewPreferenceResolver(repo repository.PreferenceRepository, clock Clock, loc *time.Location, log logger.Logger) *PreferenceResolver {
	if loc == nil {
		loc = time.Local
	}
	return &PreferenceResolver{repo: repo, clock: clock, loc: loc, log: log}
}

// Resolve never fails: lookup errors allow both channels.
func (r *PreferenceResolver) Resolve(ctx context.Context, userID, severity, entityType string) ChannelDecision {
	prefs, err := r.repo.GetPreferences(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrPreferencesNotFound) {
			r.log.Warn("preference lookup failed, allowing delivery",
				logger.String("user_id", userID),
				logger.Error(err))
		}
		return allowAll
	}
	return evaluatePreferences(prefs, severity, entityType, r.clock.Now().In(r.loc))
}

func evaluatePreferences(p *entities.UserNotificationPreferences, severity, entityType string, now time.Time) ChannelDecision {
	if !p.Enabled {
		return ChannelDecision{Reason: ReasonGloballyDisabled}
	}
	if severity != entities.SeverityCritical && QuietHoursActive(p, now) {
		return ChannelDecision{Reason: ReasonQuietHours}
	}
	if !severityEnabled(p, severity) {
		return ChannelDecision{Reason: ReasonSeverityDisabled}
	}

	d := ChannelDecision{AllowInApp: p.InAppEnabled, AllowEmail: p.EmailEnabled}
	if o, ok := p.EntityOverrides[entityType]; ok {
		if o.InApp != nil {
			d.AllowInApp = d.AllowInApp && *o.InApp
		}
		if o.Email != nil {
			d.AllowEmail = d.AllowEmail && *o.Email
		}
	}
	if d.Denied() {
		d.Reason = ReasonChannelsDisabled
	}
	return d
}

func severityEnabled(p *entities.UserNotificationPreferences, severity string) bool {
	switch severity {
	case entities.SeverityInfo:
		return p.InfoEnabled
	case entities.SeverityWarning:
		return p.WarningEnabled
	case entities.SeverityCritical:
		return p.CriticalEnabled
	default:
		return true
	}
}

// QuietHoursActive reports whether now falls inside the user's quiet window.
// Both bounds are inclusive and a start after the end wraps past midnight.
// Malformed bounds disable the window.
func QuietHoursActive(p *entities.UserNotificationPreferences, now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}
	if len(p.QuietHoursDays) > 0 && !containsInt(p.QuietHoursDays, int(now.Weekday())) {
		return false
	}
	start, ok := parseClock(p.QuietHoursStart)
	if !ok {
		return false
	}
	end, ok := parseClock(p.QuietHoursEnd)
	if !ok {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if start <= end {
		return start <= minute && minute <= end
	}
	return minute >= start || minute <= end
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
