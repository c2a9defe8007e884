package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons recorded on the switch failure counter.
const (
	ReasonTenantNotFound = "tenant_not_found"
	ReasonDirectory      = "directory_unavailable"
	ReasonPersistence    = "persistence"
	ReasonCredential     = "credential_propagation"
)

// SessionMetrics holds the Prometheus metrics of the tenant session core.
// A nil *SessionMetrics is valid and records nothing.
type SessionMetrics struct {
	SwitchesTotal  prometheus.Counter
	SwitchFailures *prometheus.CounterVec
	SwitchDuration prometheus.Histogram
	RefreshesTotal prometheus.Counter
}

// NewSessionMetrics initializes and registers the session metrics.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	m := &SessionMetrics{
		SwitchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "admin_console",
			Subsystem: "session",
			Name:      "tenant_switches_total",
			Help:      "Total number of attempted tenant switches.",
		}),
		SwitchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "admin_console",
			Subsystem: "session",
			Name:      "tenant_switch_failures_total",
			Help:      "Total number of failed tenant switches by reason.",
		}, []string{"reason"}),
		SwitchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "admin_console",
			Subsystem: "session",
			Name:      "tenant_switch_duration_seconds",
			Help:      "Duration of completed tenant switches.",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "admin_console",
			Subsystem: "session",
			Name:      "directory_refreshes_total",
			Help:      "Total number of tenant directory refreshes.",
		}),
	}
	reg.MustRegister(m.SwitchesTotal, m.SwitchFailures, m.SwitchDuration, m.RefreshesTotal)
	return m
}

// SwitchStarted counts a switch attempt.
func (m *SessionMetrics) SwitchStarted() {
	if m == nil {
		return
	}
	m.SwitchesTotal.Inc()
}

// SwitchFailed counts a failed switch under the given reason.
func (m *SessionMetrics) SwitchFailed(reason string) {
	if m == nil {
		return
	}
	m.SwitchFailures.WithLabelValues(reason).Inc()
}

// SwitchCompleted records the duration of a successful switch.
func (m *SessionMetrics) SwitchCompleted(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SwitchDuration.Observe(elapsed.Seconds())
}

// RefreshPerformed counts a directory refresh that actually hit the remote.
func (m *SessionMetrics) RefreshPerformed() {
	if m == nil {
		return
	}
	m.RefreshesTotal.Inc()
}
