// Package core hosts the flux summary service: it resolves models and flux
// data from the catalog or the caller, builds metabolite summaries and wraps
// every operation with logging, metrics and tracing.
package core

import (
	"context"
	"errors"

	"fluxcore/internal/solver"
	"fluxcore/internal/summary"
	"fluxcore/pkg/domain"
)

// ErrNoCatalog is returned by operations that need a catalog when none is configured.
var ErrNoCatalog = errors.New("core: catalog not configured")

// Service exposes metabolite summaries and catalog imports.
type Service struct {
	solver   solver.Solver
	analyzer solver.VariabilityAnalyzer
	catalog  domain.ModelCatalog
	logger   Logger
	clock    Clock
	metrics  MetricsRecorder
	tracer   Tracer
	audit    AuditRecorder
}

// NewService constructs a service from the supplied options.
func NewService(opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Service{
		solver:   o.solver,
		analyzer: o.analyzer,
		catalog:  o.catalog,
		logger:   o.logger,
		clock:    o.clock,
		metrics:  o.metrics,
		tracer:   o.tracer,
		audit:    o.audit,
	}
}

// Catalog returns the configured catalog, or nil.
func (s *Service) Catalog() domain.ModelCatalog { return s.catalog }

// SummaryRequest summarises a metabolite of a caller-supplied model.
type SummaryRequest struct {
	Model        domain.Model
	MetaboliteID string
	// Solution is used as-is when set; otherwise the configured solver runs.
	Solution    *domain.Solution
	Variability summary.Variability
}

// StoredSummaryRequest summarises a metabolite of a catalog model.
type StoredSummaryRequest struct {
	ModelID      string
	MetaboliteID string
	// SolutionName selects a stored solution instead of the configured solver.
	SolutionName string
	// FractionOfOptimum requests flux ranges; zero means none unless
	// VariabilityName is set, in which case the stored fraction is used.
	FractionOfOptimum float64
	VariabilityName   string
}

// SummarizeMetabolite builds the summary described by req.
func (s *Service) SummarizeMetabolite(ctx context.Context, req SummaryRequest) (*summary.MetaboliteSummary, error) {
	var out *summary.MetaboliteSummary
	err := s.run(ctx, "summarize_metabolite", func(ctx context.Context) error {
		var err error
		out, err = summary.Build(ctx, req.Model, req.MetaboliteID, summary.BuildOptions{
			Solution:    req.Solution,
			Variability: req.Variability,
			Solver:      s.solver,
			Analyzer:    s.analyzer,
			Logger:      s.logger,
		})
		return err
	})
	return out, err
}

// SummarizeStored loads the model and any named solution or variability
// result from the catalog before building the summary.
func (s *Service) SummarizeStored(ctx context.Context, req StoredSummaryRequest) (*summary.MetaboliteSummary, error) {
	var out *summary.MetaboliteSummary
	err := s.run(ctx, "summarize_stored", func(ctx context.Context) error {
		if s.catalog == nil {
			return ErrNoCatalog
		}
		model, err := s.catalog.Model(ctx, req.ModelID)
		if err != nil {
			return err
		}
		opts := summary.BuildOptions{Solver: s.solver, Analyzer: s.analyzer, Logger: s.logger}
		if req.SolutionName != "" {
			opts.Solver = solver.Catalog{Catalog: s.catalog, SolutionName: req.SolutionName}
		}
		switch {
		case req.VariabilityName != "":
			res, err := s.catalog.Variability(ctx, model.ID, req.VariabilityName)
			if err != nil {
				return err
			}
			fraction := req.FractionOfOptimum
			if fraction == 0 {
				fraction = res.FractionOfOptimum
			}
			opts.Analyzer = solver.Precomputed{Variability: &res}
			opts.Variability = summary.FractionOfOptimum(fraction)
		case req.FractionOfOptimum != 0:
			opts.Variability = summary.FractionOfOptimum(req.FractionOfOptimum)
		}
		out, err = summary.Build(ctx, model, req.MetaboliteID, opts)
		return err
	})
	return out, err
}

// ImportModel validates and stores a model.
func (s *Service) ImportModel(ctx context.Context, model domain.Model) error {
	err := s.run(ctx, "import_model", func(ctx context.Context) error {
		if s.catalog == nil {
			return ErrNoCatalog
		}
		return s.catalog.SaveModel(ctx, model)
	})
	s.record(ctx, "import_model", domain.EntityModel, model.ID, err)
	return err
}

// ImportSolution stores a named solution for an existing model.
func (s *Service) ImportSolution(ctx context.Context, modelID, name string, sol domain.Solution) error {
	err := s.run(ctx, "import_solution", func(ctx context.Context) error {
		if s.catalog == nil {
			return ErrNoCatalog
		}
		return s.catalog.SaveSolution(ctx, modelID, name, sol)
	})
	s.record(ctx, "import_solution", domain.EntitySolution, modelID+"/"+name, err)
	return err
}

// ImportVariability stores a named variability result for an existing model.
func (s *Service) ImportVariability(ctx context.Context, modelID, name string, res domain.VariabilityResult) error {
	err := s.run(ctx, "import_variability", func(ctx context.Context) error {
		if s.catalog == nil {
			return ErrNoCatalog
		}
		return s.catalog.SaveVariability(ctx, modelID, name, res)
	})
	s.record(ctx, "import_variability", domain.EntityVariability, modelID+"/"+name, err)
	return err
}

// Models lists catalog model identifiers in order.
func (s *Service) Models(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.run(ctx, "list_models", func(ctx context.Context) error {
		if s.catalog == nil {
			return ErrNoCatalog
		}
		var err error
		ids, err = s.catalog.ModelIDs(ctx)
		return err
	})
	return ids, err
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	s.logger.Debug("operation started", "operation", op)
	defer func() {
		elapsed := s.clock.Now().Sub(start)
		span.End(err)
		s.metrics.Observe(ctx, op, err == nil, elapsed)
		if err != nil {
			s.logger.Error("operation failed", "operation", op, "duration", elapsed, "error", err)
			return
		}
		s.logger.Info("operation completed", "operation", op, "duration", elapsed)
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

func (s *Service) record(ctx context.Context, op, entity, id string, err error) {
	entry := AuditEntry{
		Operation: op,
		Entity:    entity,
		EntityID:  id,
		Status:    AuditStatusSuccess,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
