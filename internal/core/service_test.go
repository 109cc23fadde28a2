package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"fluxcore/internal/catalog"
	"fluxcore/internal/solver"
	"fluxcore/internal/summary"
	"fluxcore/pkg/domain"
)

func TestSummarizeMetaboliteWithSuppliedSolution(t *testing.T) {
	sol := optimal(map[string]float64{"A": 5, "B": 3})
	svc := NewService()
	s, err := svc.SummarizeMetabolite(context.Background(), SummaryRequest{
		Model:        scenarioModel(),
		MetaboliteID: "m",
		Solution:     &sol,
	})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	row, ok := s.Producing().Row("A")
	if !ok || row.ScaledFlux != 5 {
		t.Fatalf("unexpected producing row %+v", row)
	}
	row, ok = s.Consuming().Row("B")
	if !ok || row.ScaledFlux != -6 {
		t.Fatalf("unexpected consuming row %+v", row)
	}
}

func TestSummarizeMetaboliteUsesSolverAndAnalyzer(t *testing.T) {
	stub := &stubSolver{sol: optimal(map[string]float64{"A": 4, "B": 2})}
	analyzer := solver.Precomputed{Variability: &domain.VariabilityResult{
		FractionOfOptimum: 0.9,
		Ranges:            map[string]domain.FluxRange{"A": {Minimum: 3, Maximum: 4}, "B": {Minimum: 1, Maximum: 2}},
	}}
	svc := NewService(WithSolver(stub), WithAnalyzer(analyzer))
	s, err := svc.SummarizeMetabolite(context.Background(), SummaryRequest{
		Model:        scenarioModel(),
		MetaboliteID: "m",
		Variability:  summary.FractionOfOptimum(0.9),
	})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if stub.calls != 1 {
		t.Fatalf("expected one solver call, got %d", stub.calls)
	}
	row, _ := s.Consuming().Row("B")
	if !row.HasRange || row.Minimum != -4 || row.Maximum != -2 {
		t.Fatalf("expected scaled range [-4; -2], got %+v", row)
	}
}

func TestSummarizeMetaboliteErrors(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		svc  *Service
		req  SummaryRequest
		want error
	}{
		{"unknown metabolite", NewService(), SummaryRequest{Model: scenarioModel(), MetaboliteID: "zz"}, domain.ErrInvalidInput},
		{"no solver", NewService(), SummaryRequest{Model: scenarioModel(), MetaboliteID: "m"}, domain.ErrComputation},
		{"infeasible", NewService(WithSolver(&stubSolver{sol: domain.Solution{Status: domain.StatusInfeasible}})), SummaryRequest{Model: scenarioModel(), MetaboliteID: "m"}, solver.ErrInfeasible},
		{"solver failure", NewService(WithSolver(&stubSolver{err: errors.New("lp crashed")})), SummaryRequest{Model: scenarioModel(), MetaboliteID: "m"}, domain.ErrComputation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.svc.SummarizeMetabolite(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSummarizeMetaboliteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	metrics := &captureMetricsRecorder{}
	sol := optimal(map[string]float64{"A": 1, "B": 1})
	svc := NewService(WithMetricsRecorder(metrics))
	if _, err := svc.SummarizeMetabolite(ctx, SummaryRequest{Model: scenarioModel(), MetaboliteID: "m", Solution: &sol}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !metrics.has("summarize_metabolite", false) {
		t.Fatalf("expected failed observation, got %+v", metrics.calls)
	}
}

func seededService(t *testing.T, opts ...Option) (*Service, domain.ModelCatalog) {
	t.Helper()
	ctx := context.Background()
	cat := catalog.NewMemory()
	svc := NewService(append([]Option{WithCatalog(cat)}, opts...)...)
	if err := svc.ImportModel(ctx, scenarioModel()); err != nil {
		t.Fatalf("import model: %v", err)
	}
	if err := svc.ImportSolution(ctx, "toy", "pfba", optimal(map[string]float64{"A": 6, "B": 3})); err != nil {
		t.Fatalf("import solution: %v", err)
	}
	res := domain.VariabilityResult{FractionOfOptimum: 0.95, Ranges: map[string]domain.FluxRange{
		"A": {Minimum: 5, Maximum: 6},
		"B": {Minimum: 2.5, Maximum: 3},
	}}
	if err := svc.ImportVariability(ctx, "toy", "fva95", res); err != nil {
		t.Fatalf("import variability: %v", err)
	}
	return svc, cat
}

func TestSummarizeStoredResolvesCatalogEntries(t *testing.T) {
	svc, _ := seededService(t)
	s, err := svc.SummarizeStored(context.Background(), StoredSummaryRequest{
		ModelID:         "toy",
		MetaboliteID:    "m",
		SolutionName:    "pfba",
		VariabilityName: "fva95",
	})
	if err != nil {
		t.Fatalf("summarize stored: %v", err)
	}
	if !s.HasRanges() {
		t.Fatalf("expected ranges from stored variability")
	}
	row, _ := s.Producing().Row("A")
	if row.ScaledFlux != 6 || row.Minimum != 5 || row.Maximum != 6 {
		t.Fatalf("unexpected producing row %+v", row)
	}
	row, _ = s.Consuming().Row("B")
	if row.ScaledFlux != -6 || row.Minimum != -6 || row.Maximum != -5 {
		t.Fatalf("unexpected consuming row %+v", row)
	}
}

func TestSummarizeStoredFallsBackToConfiguredSolver(t *testing.T) {
	stub := &stubSolver{sol: optimal(map[string]float64{"A": 2, "B": 1})}
	svc, _ := seededService(t, WithSolver(stub))
	s, err := svc.SummarizeStored(context.Background(), StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m"})
	if err != nil {
		t.Fatalf("summarize stored: %v", err)
	}
	if stub.calls != 1 || s.HasRanges() {
		t.Fatalf("expected solver call without ranges, calls=%d", stub.calls)
	}
}

func TestSummarizeStoredErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := seededService(t)
	cases := []struct {
		name string
		req  StoredSummaryRequest
		want error
	}{
		{"missing model", StoredSummaryRequest{ModelID: "nope", MetaboliteID: "m"}, domain.ErrNotFound},
		{"missing solution", StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m", SolutionName: "nope"}, domain.ErrNotFound},
		{"missing variability", StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m", SolutionName: "pfba", VariabilityName: "nope"}, domain.ErrNotFound},
		{"fraction mismatch", StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m", SolutionName: "pfba", VariabilityName: "fva95", FractionOfOptimum: 0.5}, domain.ErrComputation},
		{"fraction without analyzer", StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m", SolutionName: "pfba", FractionOfOptimum: 0.5}, domain.ErrComputation},
		{"fraction out of range", StoredSummaryRequest{ModelID: "toy", MetaboliteID: "m", SolutionName: "pfba", FractionOfOptimum: 1.5}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SummarizeStored(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	bare := NewService()
	if _, err := bare.SummarizeStored(ctx, StoredSummaryRequest{ModelID: "toy"}); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
	if _, err := bare.Models(ctx); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
	if err := bare.ImportModel(ctx, scenarioModel()); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
	if err := bare.ImportSolution(ctx, "toy", "x", optimal(nil)); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
	if err := bare.ImportVariability(ctx, "toy", "x", domain.VariabilityResult{FractionOfOptimum: 1}); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("expected ErrNoCatalog, got %v", err)
	}
}

func TestImportsAreAudited(t *testing.T) {
	audit := &captureAuditRecorder{}
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, _ := seededService(t, WithAuditRecorder(audit), WithClock(stubClock{t: fixed}))
	if err := svc.ImportSolution(context.Background(), "ghost", "pfba", optimal(nil)); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(audit.entries) != 4 {
		t.Fatalf("expected 4 audit entries, got %+v", audit.entries)
	}
	first := audit.entries[0]
	if first.Operation != "import_model" || first.Entity != domain.EntityModel || first.EntityID != "toy" || first.Status != AuditStatusSuccess || !first.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected first entry %+v", first)
	}
	if audit.entries[2].EntityID != "toy/fva95" {
		t.Fatalf("unexpected variability entry %+v", audit.entries[2])
	}
	last := audit.entries[3]
	if last.Status != AuditStatusError || last.Error == "" || last.EntityID != "ghost/pfba" {
		t.Fatalf("unexpected failure entry %+v", last)
	}
}

func TestModelsListsCatalog(t *testing.T) {
	svc, cat := seededService(t)
	other := scenarioModel()
	other.ID = "alpha"
	if err := cat.SaveModel(context.Background(), other); err != nil {
		t.Fatalf("save: %v", err)
	}
	ids, err := svc.Models(context.Background())
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "toy" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if svc.Catalog() != cat {
		t.Fatalf("expected configured catalog")
	}
}
