package summary

import (
	"math"
	"sort"
)

// Fraction is a nullable share of a table total. Valid is false when the
// table total is zero and the share is undefined.
type Fraction struct {
	Float64 float64
	Valid   bool
}

// FluxRow holds the metabolite-scaled flux of one reaction.
type FluxRow struct {
	Reaction   string
	Flux       float64 // raw solver flux
	Factor     float64 // stoichiometric coefficient of the metabolite
	ScaledFlux float64
	Minimum    float64
	Maximum    float64
	HasRange   bool
}

// Produces reports whether the row belongs to the producing table.
func (r FluxRow) Produces() bool {
	return r.ScaledFlux > 0 || (r.ScaledFlux == 0 && r.Factor > 0)
}

// TableRow is a FluxRow annotated with its share of the table total.
type TableRow struct {
	FluxRow
	Percent Fraction
}

// Table is an ordered, immutable view of producing or consuming rows.
type Table struct {
	rows      []TableRow
	index     map[string]int
	hasRanges bool
}

func newTable(rows []FluxRow, hasRanges bool) Table {
	total := 0.0
	for _, row := range rows {
		total += math.Abs(row.ScaledFlux)
	}
	out := make([]TableRow, len(rows))
	for i, row := range rows {
		out[i] = TableRow{FluxRow: row}
		if total > 0 {
			out[i].Percent = Fraction{Float64: math.Abs(row.ScaledFlux) / total, Valid: true}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Reaction < out[j].Reaction })
	index := make(map[string]int, len(out))
	for i, row := range out {
		index[row.Reaction] = i
	}
	return Table{rows: out, index: index, hasRanges: hasRanges}
}

// Rows returns a copy of the table rows ordered by reaction identifier.
func (t Table) Rows() []TableRow {
	return append([]TableRow(nil), t.rows...)
}

// Row looks up a row by reaction identifier.
func (t Table) Row(reactionID string) (TableRow, bool) {
	i, ok := t.index[reactionID]
	if !ok {
		return TableRow{}, false
	}
	return t.rows[i], true
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.rows) }

// HasRanges reports whether rows carry variability bounds.
func (t Table) HasRanges() bool { return t.hasRanges }

// TotalFlux returns the sum of absolute scaled fluxes.
func (t Table) TotalFlux() float64 {
	total := 0.0
	for _, row := range t.rows {
		total += math.Abs(row.ScaledFlux)
	}
	return total
}

// ReactionIDs lists the reactions in table order.
func (t Table) ReactionIDs() []string {
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row.Reaction
	}
	return out
}

// filter returns the rows passing keep, leaving the table untouched.
func (t Table) filter(keep func(TableRow) bool) []TableRow {
	var out []TableRow
	for _, row := range t.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}
