package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	deliveries   *prometheus.CounterVec
	alertsFired  prometheus.Counter
	scanDuration *prometheus.HistogramVec
	purged       prometheus.Counter
	sourceErrors *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		deliveries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_deliveries_total",
				Help: "Audit log rows written, by channel and outcome.",
			},
			[]string{"channel", "outcome"},
		),
		alertsFired: f.NewCounter(prometheus.CounterOpts{
			Name: "notify_alerts_fired_total",
			Help: "Alert rules whose condition held outside cooldown.",
		}),
		scanDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "notify_scan_duration_seconds",
				Help:    "Duration of scheduled scans.",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"scan"},
		),
		purged: f.NewCounter(prometheus.CounterOpts{
			Name: "notify_notifications_purged_total",
			Help: "Notifications removed by the retention sweep.",
		}),
		sourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_source_errors_total",
				Help: "Metric or deadline reads that failed during a scan.",
			},
			[]string{"scan"},
		),
	}
}

func (m *Metrics) delivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) alertFired() {
	if m == nil {
		return
	}
	m.alertsFired.Inc()
}

func (m *Metrics) observeScan(scan string, started time.Time) {
	if m == nil {
		return
	}
	m.scanDuration.WithLabelValues(scan).Observe(time.Since(started).Seconds())
}

func (m *Metrics) notificationsPurged(n int64) {
	if m == nil {
		return
	}
	m.purged.Add(float64(n))
}

func (m *Metrics) sourceError(scan string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(scan).Inc()
}
