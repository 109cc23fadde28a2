// Package domain defines the metabolic model entities, flux solutions and
// error taxonomy shared by fluxcore packages.
package domain

import (
	"sort"
	"strconv"
	"strings"
)

// DefaultTolerance is applied when a model does not declare its own numerical tolerance.
const DefaultTolerance = 1e-7

// SolutionStatus reports the solver outcome recorded with a flux solution.
type SolutionStatus string

// Canonical solver statuses.
const (
	StatusOptimal    SolutionStatus = "optimal"
	StatusInfeasible SolutionStatus = "infeasible"
	StatusUnbounded  SolutionStatus = "unbounded"
	StatusUnknown    SolutionStatus = "unknown"
)

// Metabolite is a chemical species tracked by a model.
type Metabolite struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Formula     string `json:"formula,omitempty"`
	Compartment string `json:"compartment,omitempty"`
	Charge      int    `json:"charge,omitempty"`
}

// DisplayName returns the metabolite name, falling back to its identifier.
func (m Metabolite) DisplayName() string {
	if strings.TrimSpace(m.Name) == "" {
		return m.ID
	}
	return m.Name
}

// Reaction is a mass balance over metabolites. Negative coefficients mark
// substrates, positive coefficients mark products.
type Reaction struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name,omitempty"`
	Metabolites          map[string]float64 `json:"metabolites"`
	LowerBound           float64            `json:"lower_bound"`
	UpperBound           float64            `json:"upper_bound"`
	ObjectiveCoefficient float64            `json:"objective_coefficient,omitempty"`
	GeneReactionRule     string             `json:"gene_reaction_rule,omitempty"`
}

// CoefficientOf returns the stoichiometric coefficient of the metabolite, or 0
// when the metabolite does not take part in the reaction.
func (r Reaction) CoefficientOf(metaboliteID string) float64 {
	return r.Metabolites[metaboliteID]
}

// Involves reports whether the metabolite participates in the reaction.
func (r Reaction) Involves(metaboliteID string) bool {
	_, ok := r.Metabolites[metaboliteID]
	return ok
}

// Arrow returns the reversibility arrow implied by the flux bounds.
func (r Reaction) Arrow() string {
	switch {
	case r.LowerBound < 0 && r.UpperBound > 0:
		return "<=>"
	case r.LowerBound < 0 && r.UpperBound <= 0:
		return "<--"
	default:
		return "-->"
	}
}

// Definition renders the reaction equation, e.g. "2 h_c + atp_c --> adp_c".
// With useNames the metabolite names from lookup are used; identifiers are
// used for metabolites missing from lookup or carrying no name.
func (r Reaction) Definition(useNames bool, lookup map[string]Metabolite) string {
	ids := make([]string, 0, len(r.Metabolites))
	for id := range r.Metabolites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var reactants, products []string
	for _, id := range ids {
		coef := r.Metabolites[id]
		label := id
		if useNames {
			if met, ok := lookup[id]; ok {
				label = met.DisplayName()
			}
		}
		term := formatCoefficient(coef) + label
		if coef < 0 {
			reactants = append(reactants, term)
		} else {
			products = append(products, term)
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(reactants, " + "))
	if len(reactants) > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(r.Arrow())
	if len(products) > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(products, " + "))
	return b.String()
}

func formatCoefficient(coef float64) string {
	if coef < 0 {
		coef = -coef
	}
	if coef == 1 {
		return ""
	}
	return strconv.FormatFloat(coef, 'g', -1, 64) + " "
}

// Clone returns a deep copy of the reaction.
func (r Reaction) Clone() Reaction {
	dup := r
	if r.Metabolites != nil {
		dup.Metabolites = make(map[string]float64, len(r.Metabolites))
		for id, coef := range r.Metabolites {
			dup.Metabolites[id] = coef
		}
	}
	return dup
}

// Model is a constraint-based metabolic model.
type Model struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Tolerance   float64      `json:"tolerance,omitempty"`
	Metabolites []Metabolite `json:"metabolites"`
	Reactions   []Reaction   `json:"reactions"`
}

// NumericalTolerance returns the tolerance below which fluxes count as zero.
func (m Model) NumericalTolerance() float64 {
	if m.Tolerance <= 0 {
		return DefaultTolerance
	}
	return m.Tolerance
}

// Metabolite looks up a metabolite by identifier.
func (m Model) Metabolite(id string) (Metabolite, bool) {
	for _, met := range m.Metabolites {
		if met.ID == id {
			return met, true
		}
	}
	return Metabolite{}, false
}

// Reaction looks up a reaction by identifier.
func (m Model) Reaction(id string) (Reaction, bool) {
	for _, rxn := range m.Reactions {
		if rxn.ID == id {
			return rxn, true
		}
	}
	return Reaction{}, false
}

// ReactionsOf returns deep copies of every reaction involving the metabolite,
// sorted by reaction identifier.
func (m Model) ReactionsOf(metaboliteID string) []Reaction {
	var out []Reaction
	for _, rxn := range m.Reactions {
		if rxn.Involves(metaboliteID) {
			out = append(out, rxn.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ReactionIDs returns all reaction identifiers in model order.
func (m Model) ReactionIDs() []string {
	out := make([]string, len(m.Reactions))
	for i, rxn := range m.Reactions {
		out[i] = rxn.ID
	}
	return out
}

// Clone returns a deep copy of the model.
func (m Model) Clone() Model {
	dup := m
	if m.Metabolites != nil {
		dup.Metabolites = append([]Metabolite(nil), m.Metabolites...)
	}
	if m.Reactions != nil {
		dup.Reactions = make([]Reaction, len(m.Reactions))
		for i, rxn := range m.Reactions {
			dup.Reactions[i] = rxn.Clone()
		}
	}
	return dup
}

// Validate checks identifier uniqueness and metabolite references.
func (m Model) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return InputError{Field: "model.id", Reason: "required"}
	}
	if m.Tolerance < 0 {
		return InputError{Field: "model.tolerance", Reason: "must not be negative"}
	}
	known := make(map[string]struct{}, len(m.Metabolites))
	for _, met := range m.Metabolites {
		if strings.TrimSpace(met.ID) == "" {
			return InputError{Field: "metabolite.id", Reason: "required"}
		}
		if _, dup := known[met.ID]; dup {
			return InputError{Field: "metabolite.id", Reason: "duplicate " + met.ID}
		}
		known[met.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(m.Reactions))
	for _, rxn := range m.Reactions {
		if strings.TrimSpace(rxn.ID) == "" {
			return InputError{Field: "reaction.id", Reason: "required"}
		}
		if _, dup := seen[rxn.ID]; dup {
			return InputError{Field: "reaction.id", Reason: "duplicate " + rxn.ID}
		}
		seen[rxn.ID] = struct{}{}
		for metID := range rxn.Metabolites {
			if _, ok := known[metID]; !ok {
				return InputError{Field: "reaction." + rxn.ID, Reason: "unknown metabolite " + metID}
			}
		}
	}
	return nil
}

// Solution is a flux distribution returned by a solver.
type Solution struct {
	Status         SolutionStatus     `json:"status"`
	ObjectiveValue float64            `json:"objective_value"`
	Fluxes         map[string]float64 `json:"fluxes"`
}

// Flux returns the flux recorded for the reaction.
func (s Solution) Flux(reactionID string) (float64, bool) {
	v, ok := s.Fluxes[reactionID]
	return v, ok
}

// IsOptimal reports whether the solver reached an optimum.
func (s Solution) IsOptimal() bool { return s.Status == StatusOptimal }

// Clone returns a deep copy of the solution.
func (s Solution) Clone() Solution {
	dup := s
	if s.Fluxes != nil {
		dup.Fluxes = make(map[string]float64, len(s.Fluxes))
		for id, v := range s.Fluxes {
			dup.Fluxes[id] = v
		}
	}
	return dup
}

// FluxRange is the achievable flux interval of a reaction.
type FluxRange struct {
	Minimum float64 `json:"minimum"`
	Maximum float64 `json:"maximum"`
}

// VariabilityResult is the outcome of a flux variability analysis run.
type VariabilityResult struct {
	FractionOfOptimum float64              `json:"fraction_of_optimum"`
	Ranges            map[string]FluxRange `json:"ranges"`
}

// Clone returns a deep copy of the variability result.
func (v VariabilityResult) Clone() VariabilityResult {
	dup := v
	dup.Ranges = CloneRanges(v.Ranges)
	return dup
}

// CloneRanges copies a reaction range map.
func CloneRanges(in map[string]FluxRange) map[string]FluxRange {
	if in == nil {
		return nil
	}
	out := make(map[string]FluxRange, len(in))
	for id, r := range in {
		out[id] = r
	}
	return out
}
