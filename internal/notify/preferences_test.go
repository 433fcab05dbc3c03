package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 10, hour, minute, 0, 0, time.UTC) // Monday
}

func quietPrefs(start, end string, days ...int) *entities.UserNotificationPreferences {
	p := entities.AllowAll("u1")
	p.QuietHoursEnabled = true
	p.QuietHoursStart = start
	p.QuietHoursEnd = end
	p.QuietHoursDays = days
	return p
}

func TestQuietHoursActive_SameDayWindow(t *testing.T) {
	p := quietPrefs("09:00", "18:00", 1, 2, 3, 4, 5)

	assert.True(t, QuietHoursActive(p, at(10, 0)))
	assert.True(t, QuietHoursActive(p, at(9, 0)), "start is inclusive")
	assert.True(t, QuietHoursActive(p, at(18, 0)), "end is inclusive")
	assert.False(t, QuietHoursActive(p, at(19, 0)))
	assert.False(t, QuietHoursActive(p, at(8, 59)))
}

func TestQuietHoursActive_MidnightWrap(t *testing.T) {
	p := quietPrefs("22:00", "06:00")

	assert.True(t, QuietHoursActive(p, at(23, 0)))
	assert.True(t, QuietHoursActive(p, at(3, 30)))
	assert.False(t, QuietHoursActive(p, at(7, 0)))
	assert.False(t, QuietHoursActive(p, at(12, 0)))
}

func TestQuietHoursActive_WeekdayFilter(t *testing.T) {
	weekend := quietPrefs("09:00", "18:00", 0, 6)
	assert.False(t, QuietHoursActive(weekend, at(10, 0)), "Monday is not in the weekday set")

	sunday := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	assert.True(t, QuietHoursActive(weekend, sunday))
}

func TestQuietHoursActive_DisabledOrMalformed(t *testing.T) {
	p := quietPrefs("09:00", "18:00")
	p.QuietHoursEnabled = false
	assert.False(t, QuietHoursActive(p, at(10, 0)))

	assert.False(t, QuietHoursActive(quietPrefs("9am", "18:00"), at(10, 0)))
	assert.False(t, QuietHoursActive(quietPrefs("09:00", "25:00"), at(10, 0)))
}

func TestEvaluatePreferences(t *testing.T) {
	off := false
	on := true

	tests := []struct {
		name       string
		prefs      func() *entities.UserNotificationPreferences
		severity   string
		entityType string
		now        time.Time
		want       ChannelDecision
	}{
		{
			name:     "allow all",
			prefs:    func() *entities.UserNotificationPreferences { return entities.AllowAll("u1") },
			severity: entities.SeverityInfo,
			now:      at(10, 0),
			want:     ChannelDecision{AllowInApp: true, AllowEmail: true},
		},
		{
			name: "globally disabled",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.Enabled = false
				return p
			},
			severity: entities.SeverityCritical,
			now:      at(10, 0),
			want:     ChannelDecision{Reason: ReasonGloballyDisabled},
		},
		{
			name:     "quiet hours suppress warning",
			prefs:    func() *entities.UserNotificationPreferences { return quietPrefs("09:00", "18:00") },
			severity: entities.SeverityWarning,
			now:      at(10, 0),
			want:     ChannelDecision{Reason: ReasonQuietHours},
		},
		{
			name:     "quiet hours allow outside window",
			prefs:    func() *entities.UserNotificationPreferences { return quietPrefs("09:00", "18:00") },
			severity: entities.SeverityWarning,
			now:      at(19, 0),
			want:     ChannelDecision{AllowInApp: true, AllowEmail: true},
		},
		{
			name:     "critical passes wrapped quiet hours",
			prefs:    func() *entities.UserNotificationPreferences { return quietPrefs("22:00", "06:00") },
			severity: entities.SeverityCritical,
			now:      at(23, 0),
			want:     ChannelDecision{AllowInApp: true, AllowEmail: true},
		},
		{
			name: "severity disabled",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.InfoEnabled = false
				return p
			},
			severity: entities.SeverityInfo,
			now:      at(10, 0),
			want:     ChannelDecision{Reason: ReasonSeverityDisabled},
		},
		{
			name: "override restricts email",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.EntityOverrides = map[string]entities.ChannelOverride{entities.EntityRisk: {Email: &off}}
				return p
			},
			severity:   entities.SeverityWarning,
			entityType: entities.EntityRisk,
			now:        at(10, 0),
			want:       ChannelDecision{AllowInApp: true, AllowEmail: false},
		},
		{
			name: "override never grants beyond global flag",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.EmailEnabled = false
				p.EntityOverrides = map[string]entities.ChannelOverride{entities.EntityRisk: {Email: &on}}
				return p
			},
			severity:   entities.SeverityWarning,
			entityType: entities.EntityRisk,
			now:        at(10, 0),
			want:       ChannelDecision{AllowInApp: true, AllowEmail: false},
		},
		{
			name: "override for other entity type ignored",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.EntityOverrides = map[string]entities.ChannelOverride{entities.EntityKPI: {InApp: &off}}
				return p
			},
			severity:   entities.SeverityWarning,
			entityType: entities.EntityRisk,
			now:        at(10, 0),
			want:       ChannelDecision{AllowInApp: true, AllowEmail: true},
		},
		{
			name: "both channels off",
			prefs: func() *entities.UserNotificationPreferences {
				p := entities.AllowAll("u1")
				p.InAppEnabled = false
				p.EmailEnabled = false
				return p
			},
			severity: entities.SeverityInfo,
			now:      at(10, 0),
			want:     ChannelDecision{Reason: ReasonChannelsDisabled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evaluatePreferences(tt.prefs(), tt.severity, tt.entityType, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferenceResolver_NoRecordAllowsAll(t *testing.T) {
	store := newFakeStore()
	r := NewPreferenceResolver(store, FixedClock(at(10, 0)), time.UTC, testLogger())

	got := r.Resolve(t.Context(), "nobody", entities.SeverityInfo, entities.EntityRisk)
	assert.Equal(t, ChannelDecision{AllowInApp: true, AllowEmail: true}, got)
}

func TestPreferenceResolver_FailOpen(t *testing.T) {
	store := newFakeStore()
	store.prefs["u1"] = func() *entities.UserNotificationPreferences {
		p := entities.AllowAll("u1")
		p.Enabled = false
		return p
	}()
	store.prefsErr = errors.New("connection reset")
	r := NewPreferenceResolver(store, FixedClock(at(10, 0)), time.UTC, testLogger())

	got := r.Resolve(t.Context(), "u1", entities.SeverityInfo, entities.EntityRisk)
	assert.True(t, got.AllowInApp)
	assert.True(t, got.AllowEmail)
}

func TestPreferenceResolver_EvaluatesInLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	store := newFakeStore()
	store.prefs["u1"] = quietPrefs("22:00", "06:00")

	// 03:00 UTC is 22:00 the previous evening at UTC-5.
	r := NewPreferenceResolver(store, FixedClock(time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC)), loc, testLogger())
	got := r.Resolve(t.Context(), "u1", entities.SeverityInfo, "")
	assert.Equal(t, ReasonQuietHours, got.Reason)
}
