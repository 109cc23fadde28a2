package summary

import (
	"strings"
	"unicode/utf8"
)

type align int

const (
	alignLeft align = iota
	alignRight
)

type textColumn struct {
	header string
	align  align
	cells  []string
	elide  bool
}

func tableColumns(rows []DisplayRow, hasRanges bool, opts RenderOptions) []textColumn {
	percent := textColumn{header: "Percent", align: alignRight}
	flux := textColumn{header: "Flux", align: alignRight}
	rng := textColumn{header: "Range", align: alignRight}
	reaction := textColumn{header: "Reaction", align: alignLeft, elide: true}
	definition := textColumn{header: "Definition", align: alignLeft, elide: true}
	for _, row := range rows {
		percent.cells = append(percent.cells, formatPercent(row.Percent))
		flux.cells = append(flux.cells, formatFloat(opts.FloatFormat, row.Flux))
		rng.cells = append(rng.cells, formatRange(opts.FloatFormat, row.Minimum, row.Maximum))
		reaction.cells = append(reaction.cells, row.Reaction)
		definition.cells = append(definition.cells, row.Definition)
	}
	if hasRanges {
		return []textColumn{percent, flux, rng, reaction, definition}
	}
	return []textColumn{percent, flux, reaction, definition}
}

// textTable lays out rows as fixed-width columns separated by two spaces.
func textTable(rows []DisplayRow, hasRanges bool, opts RenderOptions) string {
	columns := tableColumns(rows, hasRanges, opts)
	widths := make([]int, len(columns))
	for i := range columns {
		col := &columns[i]
		if col.elide {
			for j, cell := range col.cells {
				col.cells[j] = elide(cell, opts.ColumnWidth)
			}
		}
		widths[i] = utf8.RuneCountInString(col.header)
		for _, cell := range col.cells {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = pad(col.header, widths[i], col.align)
	}
	lines = append(lines, strings.TrimRight(strings.Join(header, "  "), " "))
	for r := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = pad(col.cells[r], widths[i], col.align)
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return strings.Join(lines, "\n")
}

func pad(s string, width int, a align) string {
	gap := width - utf8.RuneCountInString(s)
	if gap <= 0 {
		return s
	}
	if a == alignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

// elide cuts s to width runes, marking the cut with "...".
func elide(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// shorten collapses whitespace and drops trailing words until the text and
// placeholder fit in width.
func shorten(s string, width int, placeholder string) string {
	words := strings.Fields(s)
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= width {
		return joined
	}
	limit := width - utf8.RuneCountInString(placeholder)
	var kept []string
	length := 0
	for _, word := range words {
		n := utf8.RuneCountInString(word)
		if len(kept) > 0 {
			n++
		}
		if length+n > limit {
			break
		}
		kept = append(kept, word)
		length += n
	}
	if len(kept) == 0 {
		return elide(placeholder, width)
	}
	return strings.Join(kept, " ") + placeholder
}
