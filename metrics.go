package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AnatoleLucet/store/internal"
)

// MetricsConfig configures the Prometheus metrics of containers.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "store").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "store",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records container activity. One Metrics can be shared by any
// number of containers, which are told apart by their name label.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	notifications    *prometheus.CounterVec
	purged           *prometheus.CounterVec
	effectErrors     *prometheus.CounterVec
	liveEffects      prometheus.GaugeFunc
}

// NewMetrics registers the container metrics.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of dispatched commands",
			ConstLabels: config.ConstLabels,
		}, []string{"container", "command", "result"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Time spent committing a command and notifying dependents",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"container"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of effect runs triggered by dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"container"}),

		purged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "purged_dependents_total",
			Help:        "Total number of disposed effects removed from dependents",
			ConstLabels: config.ConstLabels,
		}, []string{"container"}),

		effectErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_errors_total",
			Help:        "Total number of failed effect runs during dispatches",
			ConstLabels: config.ConstLabels,
		}, []string{"container"}),

		liveEffects: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_effects",
			Help:        "Number of effects that have not been disposed",
			ConstLabels: config.ConstLabels,
		}, func() float64 {
			return float64(internal.Effects().Len())
		}),
	}
}

func dispatchResult(sweep internal.Sweep, err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	case sweep.Failed > 0:
		return "effect_error"
	default:
		return "command_error"
	}
}

func (m *Metrics) observe(container, command string, sweep internal.Sweep, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.dispatches.WithLabelValues(container, command, dispatchResult(sweep, err)).Inc()
	m.dispatchDuration.WithLabelValues(container).Observe(elapsed.Seconds())

	if sweep.Notified > 0 {
		m.notifications.WithLabelValues(container).Add(float64(sweep.Notified))
	}
	if sweep.Purged > 0 {
		m.purged.WithLabelValues(container).Add(float64(sweep.Purged))
	}
	if sweep.Failed > 0 {
		m.effectErrors.WithLabelValues(container).Add(float64(sweep.Failed))
	}
}
