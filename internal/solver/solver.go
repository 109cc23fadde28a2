// Package solver declares the optimisation collaborators consumed by the
// summary builder and provides implementations backed by precomputed results.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"fluxcore/pkg/domain"
)

// Solver produces a parsimonious optimal flux distribution for a model.
type Solver interface {
	OptimalFluxDistribution(ctx context.Context, model domain.Model) (domain.Solution, error)
}

// VariabilityAnalyzer computes flux ranges for the requested reactions while
// holding the objective at the given fraction of its optimum.
type VariabilityAnalyzer interface {
	Analyze(ctx context.Context, model domain.Model, reactionIDs []string, fractionOfOptimum float64) (map[string]domain.FluxRange, error)
}

// ErrInfeasible is returned when no optimal solution is available.
var ErrInfeasible = errors.New("solver: no optimal solution")

// fractionTolerance bounds the mismatch accepted between a requested and a stored fraction.
const fractionTolerance = 1e-9

// Precomputed serves a stored solution and variability result.
type Precomputed struct {
	Solution    *domain.Solution
	Variability *domain.VariabilityResult
}

// OptimalFluxDistribution returns a copy of the stored solution.
func (p Precomputed) OptimalFluxDistribution(ctx context.Context, _ domain.Model) (domain.Solution, error) {
	if err := ctx.Err(); err != nil {
		return domain.Solution{}, err
	}
	if p.Solution == nil {
		return domain.Solution{}, fmt.Errorf("%w: no stored solution", ErrInfeasible)
	}
	if !p.Solution.IsOptimal() {
		return domain.Solution{}, fmt.Errorf("%w: status %s", ErrInfeasible, p.Solution.Status)
	}
	return p.Solution.Clone(), nil
}

// Analyze returns the stored ranges for exactly the requested reactions.
func (p Precomputed) Analyze(ctx context.Context, _ domain.Model, reactionIDs []string, fractionOfOptimum float64) (map[string]domain.FluxRange, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Variability == nil {
		return nil, errors.New("solver: no stored variability result")
	}
	if math.Abs(p.Variability.FractionOfOptimum-fractionOfOptimum) > fractionTolerance {
		return nil, fmt.Errorf("solver: stored variability is at fraction %g, requested %g", p.Variability.FractionOfOptimum, fractionOfOptimum)
	}
	out := make(map[string]domain.FluxRange, len(reactionIDs))
	for _, id := range reactionIDs {
		rng, ok := p.Variability.Ranges[id]
		if !ok {
			return nil, fmt.Errorf("solver: no range for reaction %s", id)
		}
		out[id] = rng
	}
	return out, nil
}

// Catalog resolves named solutions and variability results stored for the
// model being summarised.
type Catalog struct {
	Catalog         domain.ModelCatalog
	SolutionName    string
	VariabilityName string
}

// OptimalFluxDistribution loads the named solution for model.ID.
func (c Catalog) OptimalFluxDistribution(ctx context.Context, model domain.Model) (domain.Solution, error) {
	if c.Catalog == nil {
		return domain.Solution{}, errors.New("solver: catalog not configured")
	}
	sol, err := c.Catalog.Solution(ctx, model.ID, c.SolutionName)
	if err != nil {
		return domain.Solution{}, err
	}
	return Precomputed{Solution: &sol}.OptimalFluxDistribution(ctx, model)
}

// Analyze loads the named variability result for model.ID.
func (c Catalog) Analyze(ctx context.Context, model domain.Model, reactionIDs []string, fractionOfOptimum float64) (map[string]domain.FluxRange, error) {
	if c.Catalog == nil {
		return nil, errors.New("solver: catalog not configured")
	}
	res, err := c.Catalog.Variability(ctx, model.ID, c.VariabilityName)
	if err != nil {
		return nil, err
	}
	return Precomputed{Variability: &res}.Analyze(ctx, model, reactionIDs, fractionOfOptimum)
}
