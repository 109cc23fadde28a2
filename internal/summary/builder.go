// Package summary computes and renders the flux summary of a single
// metabolite: which reactions produce it, which consume it, and how much
// each contributes.
package summary

import (
	"context"
	"fmt"
	"math"

	"fluxcore/internal/solver"
	"fluxcore/pkg/domain"
)

// Logger is the subset of structured logging used while building summaries.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

type variabilityKind int

const (
	variabilityNone variabilityKind = iota
	variabilityFraction
	variabilityRanges
)

// Variability selects how flux ranges are attached to a summary.
type Variability struct {
	kind     variabilityKind
	fraction float64
	ranges   map[string]domain.FluxRange
}

// NoVariability builds a summary without flux ranges.
func NoVariability() Variability { return Variability{} }

// FractionOfOptimum requests a variability analysis at the given fraction of
// the objective optimum. The fraction must lie in (0, 1].
func FractionOfOptimum(fraction float64) Variability {
	return Variability{kind: variabilityFraction, fraction: fraction}
}

// PrecomputedRanges attaches caller-supplied ranges keyed by reaction identifier.
func PrecomputedRanges(ranges map[string]domain.FluxRange) Variability {
	return Variability{kind: variabilityRanges, ranges: domain.CloneRanges(ranges)}
}

// Enabled reports whether ranges will be attached.
func (v Variability) Enabled() bool { return v.kind != variabilityNone }

// Fraction returns the requested fraction of optimum, if any.
func (v Variability) Fraction() (float64, bool) {
	return v.fraction, v.kind == variabilityFraction
}

// BuildOptions carries the optional inputs of Build.
type BuildOptions struct {
	// Solution is used as-is when set; otherwise Solver is asked for one.
	Solution    *domain.Solution
	Variability Variability
	Solver      solver.Solver
	Analyzer    solver.VariabilityAnalyzer
	Logger      Logger
}

// MetaboliteSummary is the immutable result of Build. It owns snapshots of
// the metabolite and its reactions so later model edits do not leak in.
type MetaboliteSummary struct {
	metabolite domain.Metabolite
	reactions  []domain.Reaction
	lookup     map[string]domain.Metabolite
	tolerance  float64
	rows       []FluxRow
	producing  Table
	consuming  Table
	hasRanges  bool
	logger     Logger
}

// Build computes the producing and consuming tables of a metabolite.
func Build(ctx context.Context, model domain.Model, metaboliteID string, opts BuildOptions) (*MetaboliteSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	met, ok := model.Metabolite(metaboliteID)
	if !ok {
		return nil, domain.InputError{Field: "metabolite", Reason: domain.NotFoundError{Entity: domain.EntityMetabolite, ID: metaboliteID}.Error()}
	}
	if fraction, ok := opts.Variability.Fraction(); ok && (math.IsNaN(fraction) || fraction <= 0 || fraction > 1) {
		return nil, domain.InputError{Field: "fraction_of_optimum", Reason: fmt.Sprintf("%g outside (0, 1]", fraction)}
	}

	s := &MetaboliteSummary{
		metabolite: met,
		reactions:  model.ReactionsOf(metaboliteID),
		tolerance:  model.NumericalTolerance(),
		hasRanges:  opts.Variability.Enabled(),
		logger:     logger,
	}
	s.lookup = participantLookup(model, s.reactions)

	var solution domain.Solution
	if opts.Solution != nil {
		solution = opts.Solution.Clone()
	} else {
		if opts.Solver == nil {
			return nil, domain.ComputationError{Stage: "parsimonious flux distribution", Err: fmt.Errorf("no solver configured")}
		}
		logger.Info("generating new parsimonious flux distribution", "metabolite", metaboliteID)
		sol, err := opts.Solver.OptimalFluxDistribution(ctx, model)
		if err != nil {
			return nil, domain.ComputationError{Stage: "parsimonious flux distribution", Err: err}
		}
		if !sol.IsOptimal() {
			return nil, domain.ComputationError{Stage: "parsimonious flux distribution", Err: fmt.Errorf("%w: status %s", solver.ErrInfeasible, sol.Status)}
		}
		solution = sol
	}

	ranges, err := s.resolveRanges(ctx, model, opts)
	if err != nil {
		return nil, err
	}

	rows, err := s.computeRows(solution, ranges)
	if err != nil {
		return nil, err
	}
	s.rows = rows

	var producing, consuming []FluxRow
	for _, row := range rows {
		if row.Produces() {
			producing = append(producing, row)
		} else {
			consuming = append(consuming, row)
		}
	}
	s.producing = newTable(producing, s.hasRanges)
	s.consuming = newTable(consuming, s.hasRanges)
	logger.Debug("metabolite summary built", "metabolite", metaboliteID, "producing", len(producing), "consuming", len(consuming))
	return s, nil
}

func (s *MetaboliteSummary) resolveRanges(ctx context.Context, model domain.Model, opts BuildOptions) (map[string]domain.FluxRange, error) {
	ids := make([]string, len(s.reactions))
	for i, rxn := range s.reactions {
		ids[i] = rxn.ID
	}
	var ranges map[string]domain.FluxRange
	switch opts.Variability.kind {
	case variabilityNone:
		return nil, nil
	case variabilityFraction:
		if opts.Analyzer == nil {
			return nil, domain.ComputationError{Stage: "flux variability analysis", Err: fmt.Errorf("no analyzer configured")}
		}
		s.logger.Info("performing flux variability analysis", "metabolite", s.metabolite.ID, "fraction_of_optimum", opts.Variability.fraction)
		res, err := opts.Analyzer.Analyze(ctx, model, ids, opts.Variability.fraction)
		if err != nil {
			return nil, domain.ComputationError{Stage: "flux variability analysis", Err: err}
		}
		ranges = res
	case variabilityRanges:
		ranges = opts.Variability.ranges
	}
	for _, id := range ids {
		if _, ok := ranges[id]; !ok {
			return nil, domain.ComputationError{Stage: "flux variability analysis", Err: domain.NotFoundError{Entity: "range for reaction", ID: id}}
		}
	}
	return ranges, nil
}

// computeRows scales, zero-snaps and orients every reaction flux. Snapping
// precedes orientation so solver noise cannot flip a classification.
func (s *MetaboliteSummary) computeRows(solution domain.Solution, ranges map[string]domain.FluxRange) ([]FluxRow, error) {
	rows := make([]FluxRow, 0, len(s.reactions))
	for _, rxn := range s.reactions {
		flux, ok := solution.Flux(rxn.ID)
		if !ok {
			return nil, domain.ComputationError{Stage: "flux lookup", Err: domain.NotFoundError{Entity: "flux for reaction", ID: rxn.ID}}
		}
		row := FluxRow{
			Reaction: rxn.ID,
			Flux:     flux,
			Factor:   rxn.CoefficientOf(s.metabolite.ID),
		}
		row.ScaledFlux = snap(flux*row.Factor, s.tolerance)
		if ranges != nil {
			rng := ranges[rxn.ID]
			row.HasRange = true
			row.Minimum = snap(rng.Minimum, s.tolerance) * row.Factor
			row.Maximum = snap(rng.Maximum, s.tolerance) * row.Factor
			if row.Factor < 0 {
				row.Minimum, row.Maximum = row.Maximum, row.Minimum
			}
		}
		// Adding zero turns -0 into +0.
		row.ScaledFlux += 0
		row.Minimum += 0
		row.Maximum += 0
		rows = append(rows, row)
	}
	return rows, nil
}

func snap(v, tolerance float64) float64 {
	if math.Abs(v) < tolerance {
		return 0
	}
	return v
}

func participantLookup(model domain.Model, reactions []domain.Reaction) map[string]domain.Metabolite {
	out := make(map[string]domain.Metabolite)
	for _, rxn := range reactions {
		for id := range rxn.Metabolites {
			if _, seen := out[id]; seen {
				continue
			}
			if met, ok := model.Metabolite(id); ok {
				out[id] = met
			}
		}
	}
	return out
}

// Metabolite returns the snapshot of the summarised metabolite.
func (s *MetaboliteSummary) Metabolite() domain.Metabolite { return s.metabolite }

// Reactions returns copies of the reaction snapshots, sorted by identifier.
func (s *MetaboliteSummary) Reactions() []domain.Reaction {
	out := make([]domain.Reaction, len(s.reactions))
	for i, rxn := range s.reactions {
		out[i] = rxn.Clone()
	}
	return out
}

// Tolerance returns the model tolerance captured at build time.
func (s *MetaboliteSummary) Tolerance() float64 { return s.tolerance }

// Fluxes returns every computed row in reaction order.
func (s *MetaboliteSummary) Fluxes() []FluxRow { return append([]FluxRow(nil), s.rows...) }

// Producing returns the table of reactions that net-produce the metabolite.
func (s *MetaboliteSummary) Producing() Table { return s.producing }

// Consuming returns the table of reactions that net-consume the metabolite.
func (s *MetaboliteSummary) Consuming() Table { return s.consuming }

// HasRanges reports whether variability bounds were attached.
func (s *MetaboliteSummary) HasRanges() bool { return s.hasRanges }
