package usersvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	kuerrors "github.com/systmms/karafusers/internal/errors"
)

// Metrics records per-operation counters on a private registry, so a
// one-shot CLI run can dump them with WriteToTextfile for a node exporter.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	principals *prometheus.GaugeVec
}

// NewMetrics registers the karaf_users_* metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karaf_users_operations_total",
				Help: "Total number of users.properties operations by result",
			},
			[]string{"operation", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "karaf_users_operation_duration_seconds",
				Help:    "Duration of users.properties operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation"},
		),
		principals: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "karaf_users_store_principals",
				Help: "Number of principals in the users file after the last operation",
			},
			[]string{"kind"},
		),
	}
}

// WriteToTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return kuerrors.IOError{Op: "write metrics", Path: path, Err: err}
	}
	return nil
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) setPrincipals(users, groups int) {
	if m == nil {
		return
	}
	m.principals.WithLabelValues("user").Set(float64(users))
	m.principals.WithLabelValues("group").Set(float64(groups))
}

func resultLabel(err error) string {
	switch kuerrors.ExitCode(err) {
	case kuerrors.ExitOK:
		return "success"
	case kuerrors.ExitSecurity:
		return "security_error"
	case kuerrors.ExitConfig:
		return "config_error"
	case kuerrors.ExitValidation:
		return "validation_error"
	case kuerrors.ExitIO:
		return "io_error"
	}
	return "error"
}
