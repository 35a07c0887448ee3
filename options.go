package store

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type options struct {
	name    string
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	// func(S) (S, error), checked against S in New
	clone any
}

// Option configures a Container.
type Option func(*options)

// WithName sets the name used in logs, metric labels and span attributes.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger. By default, or when logger is nil, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		o.logger = logger
	}
}

// WithMetrics records dispatches and sweeps on m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for dispatch spans.
// By default the global otel tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithClone overrides how the state is copied.
// fn must be a func(S) (S, error) for the container's S, otherwise New
// returns ErrBadOption.
func WithClone[S any](fn func(S) (S, error)) Option {
	return func(o *options) {
		o.clone = fn
	}
}

func defaultOptions() options {
	return options{
		name:   "store",
		logger: slog.New(slog.DiscardHandler),
	}
}
