package core

import (
	"fluxcore/internal/solver"
	"fluxcore/pkg/domain"
)

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	solver   solver.Solver
	analyzer solver.VariabilityAnalyzer
	catalog  domain.ModelCatalog
	logger   Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditRecorder
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
}

// WithSolver sets the solver used when a request carries no solution.
func WithSolver(s solver.Solver) Option {
	return func(o *serviceOptions) { o.solver = s }
}

// WithAnalyzer sets the variability analyzer used for fraction-of-optimum requests.
func WithAnalyzer(a solver.VariabilityAnalyzer) Option {
	return func(o *serviceOptions) { o.analyzer = a }
}

// WithCatalog sets the catalog backing stored summaries and imports.
func WithCatalog(c domain.ModelCatalog) Option {
	return func(o *serviceOptions) { o.catalog = c }
}

// WithLogger overrides the service logger. Nil keeps the current logger.
func WithLogger(l Logger) Option {
	return func(o *serviceOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the clock used for durations and audit timestamps.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetricsRecorder sets the recorder observing every operation.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracer sets the tracer wrapping every operation.
func WithTracer(t Tracer) Option {
	return func(o *serviceOptions) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithAuditRecorder sets the recorder notified of catalog imports.
func WithAuditRecorder(a AuditRecorder) Option {
	return func(o *serviceOptions) {
		if a != nil {
			o.audit = a
		}
	}
}
