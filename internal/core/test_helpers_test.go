package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"fluxcore/pkg/domain"
)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

// tickingClock advances by step on every call.
type tickingClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) has(prefix string) bool {
	for _, call := range c.calls {
		if strings.HasPrefix(call, prefix) {
			return true
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct{ calls []metricsCall }

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureAuditRecorder struct{ entries []AuditEntry }

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

// scenarioModel has metabolite m produced by A and consumed twice over by B.
func scenarioModel() domain.Model {
	return domain.Model{
		ID:        "toy",
		Tolerance: 1e-9,
		Metabolites: []domain.Metabolite{
			{ID: "m", Name: "Metabolite M"},
			{ID: "p", Name: "Product P"},
		},
		Reactions: []domain.Reaction{
			{ID: "A", Metabolites: map[string]float64{"m": 1}, UpperBound: 1000},
			{ID: "B", Metabolites: map[string]float64{"m": -2, "p": 1}, UpperBound: 1000},
		},
	}
}

func optimal(fluxes map[string]float64) domain.Solution {
	return domain.Solution{Status: domain.StatusOptimal, ObjectiveValue: 1, Fluxes: fluxes}
}

type stubSolver struct {
	sol   domain.Solution
	err   error
	calls int
}

func (s *stubSolver) OptimalFluxDistribution(context.Context, domain.Model) (domain.Solution, error) {
	s.calls++
	return s.sol, s.err
}
