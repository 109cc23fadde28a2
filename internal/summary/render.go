package summary

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"fluxcore/pkg/domain"
)

// Format identifies a rendering target.
type Format string

// Supported output formats.
const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied name onto a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatHTML, FormatCSV, FormatJSON:
		return f, nil
	case "txt", "string":
		return FormatText, nil
	default:
		return "", domain.InputError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", name)}
	}
}

// Display defaults.
const (
	DefaultThreshold   = 1e-6
	DefaultFloatFormat = "%.4G"
	DefaultColumnWidth = 79
)

// RenderOptions controls row selection and cell formatting.
type RenderOptions struct {
	// Names shows metabolite names instead of identifiers.
	Names bool
	// Threshold hides rows whose flux and range bounds are all smaller in
	// magnitude. It is widened to the model tolerance.
	Threshold float64
	// FloatFormat is a fmt verb such as %.4G; the leading % may be omitted (.4G).
	FloatFormat string
	// ColumnWidth elides longer text cells in the text format.
	ColumnWidth int
}

// DefaultRenderOptions returns the standard display parameters.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Threshold:   DefaultThreshold,
		FloatFormat: DefaultFloatFormat,
		ColumnWidth: DefaultColumnWidth,
	}
}

func (o RenderOptions) normalize(tolerance float64, logger Logger) (RenderOptions, error) {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 {
		return o, domain.InputError{Field: "threshold", Reason: "must be >= 0"}
	}
	if o.ColumnWidth <= 0 {
		return o, domain.InputError{Field: "column_width", Reason: "must be > 0"}
	}
	format := strings.TrimSpace(o.FloatFormat)
	if format == "" {
		return o, domain.InputError{Field: "float_format", Reason: "required"}
	}
	if !strings.HasPrefix(format, "%") {
		format = "%" + format
	}
	if probe := fmt.Sprintf(format, 1.5); strings.Contains(probe, "%!") {
		return o, domain.InputError{Field: "float_format", Reason: fmt.Sprintf("%q is not a float verb", o.FloatFormat)}
	}
	o.FloatFormat = format
	if o.Threshold < tolerance {
		logger.Debug("threshold widened to model tolerance", "threshold", o.Threshold, "tolerance", tolerance)
		o.Threshold = tolerance
	}
	return o, nil
}

// DisplayRow is a filtered table row with its reaction definition attached.
type DisplayRow struct {
	Percent    Fraction
	Flux       float64
	Minimum    float64
	Maximum    float64
	HasRange   bool
	Reaction   string
	Definition string
}

// Display filters the table by threshold and attaches reaction definitions.
// The table itself is not modified.
func (s *MetaboliteSummary) Display(t Table, opts RenderOptions) ([]DisplayRow, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return nil, err
	}
	return s.display(t, opts), nil
}

func (s *MetaboliteSummary) display(t Table, opts RenderOptions) []DisplayRow {
	kept := t.filter(func(row TableRow) bool {
		if math.Abs(row.ScaledFlux) >= opts.Threshold {
			return true
		}
		return row.HasRange && (math.Abs(row.Minimum) >= opts.Threshold || math.Abs(row.Maximum) >= opts.Threshold)
	})
	definitions := make(map[string]string, len(s.reactions))
	for _, rxn := range s.reactions {
		definitions[rxn.ID] = rxn.Definition(opts.Names, s.lookup)
	}
	out := make([]DisplayRow, len(kept))
	for i, row := range kept {
		out[i] = DisplayRow{
			Percent:    row.Percent,
			Flux:       row.ScaledFlux,
			Minimum:    row.Minimum,
			Maximum:    row.Maximum,
			HasRange:   row.HasRange,
			Reaction:   row.Reaction,
			Definition: definitions[row.Reaction],
		}
	}
	return out
}

// RenderTable formats a single table in the requested format.
func (s *MetaboliteSummary) RenderTable(t Table, format Format, opts RenderOptions) (string, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return "", err
	}
	rows := s.display(t, opts)
	switch format {
	case FormatText:
		return textTable(rows, t.HasRanges(), opts), nil
	case FormatHTML:
		return htmlTable(rows, t.HasRanges(), opts), nil
	case FormatCSV:
		return csvTable(map[string][]DisplayRow{"": rows}, nil, t.HasRanges(), opts)
	case FormatJSON:
		payload, err := json.Marshal(jsonRows(rows))
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return string(payload), nil
	default:
		return "", domain.InputError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

// Render formats the whole summary in the requested format.
func (s *MetaboliteSummary) Render(format Format, opts RenderOptions) (string, error) {
	switch format {
	case FormatText:
		return s.ToString(opts)
	case FormatHTML:
		return s.ToHTML(opts)
	case FormatCSV:
		return s.ToCSV(opts)
	case FormatJSON:
		return s.ToJSON(opts)
	default:
		return "", domain.InputError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
}

// ToString renders the metabolite header followed by both tables as text.
func (s *MetaboliteSummary) ToString(opts RenderOptions) (string, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return "", err
	}
	label := s.metabolite.ID
	if opts.Names {
		label = s.metabolite.DisplayName()
	}
	label = shorten(label, opts.ColumnWidth, "...")
	production := textTable(s.display(s.producing, opts), s.hasRanges, opts)
	consumption := textTable(s.display(s.consuming, opts), s.hasRanges, opts)

	var b strings.Builder
	b.WriteString(label + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(label))) + "\n")
	b.WriteString("Formula: " + s.metabolite.Formula + "\n\n")
	b.WriteString("Producing Reactions\n-------------------\n")
	b.WriteString(production + "\n\n")
	b.WriteString("Consuming Reactions\n-------------------\n")
	b.WriteString(consumption)
	return b.String(), nil
}

// ToHTML renders the metabolite header followed by both tables as HTML.
func (s *MetaboliteSummary) ToHTML(opts RenderOptions) (string, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return "", err
	}
	label := s.metabolite.ID
	if opts.Names {
		label = s.metabolite.DisplayName()
	}
	var b strings.Builder
	b.WriteString("<h3>" + escape(label) + "</h3>")
	b.WriteString("<p>" + escape(s.metabolite.Formula) + "</p>")
	b.WriteString("<h4>Producing Reactions</h4>")
	b.WriteString(htmlTable(s.display(s.producing, opts), s.hasRanges, opts))
	b.WriteString("<h4>Consuming Reactions</h4>")
	b.WriteString(htmlTable(s.display(s.consuming, opts), s.hasRanges, opts))
	return b.String(), nil
}

// ToCSV renders both tables as one CSV document with a leading Direction column.
func (s *MetaboliteSummary) ToCSV(opts RenderOptions) (string, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return "", err
	}
	sections := map[string][]DisplayRow{
		"producing": s.display(s.producing, opts),
		"consuming": s.display(s.consuming, opts),
	}
	return csvTable(sections, []string{"producing", "consuming"}, s.hasRanges, opts)
}

type jsonRow struct {
	Percent    *float64 `json:"percent"`
	Flux       float64  `json:"flux"`
	Minimum    *float64 `json:"minimum,omitempty"`
	Maximum    *float64 `json:"maximum,omitempty"`
	Reaction   string   `json:"reaction"`
	Definition string   `json:"definition"`
}

type jsonSummary struct {
	Metabolite domain.Metabolite `json:"metabolite"`
	Producing  []jsonRow         `json:"producing"`
	Consuming  []jsonRow         `json:"consuming"`
}

func jsonRows(rows []DisplayRow) []jsonRow {
	out := make([]jsonRow, len(rows))
	for i, row := range rows {
		out[i] = jsonRow{Flux: row.Flux, Reaction: row.Reaction, Definition: row.Definition}
		if row.Percent.Valid {
			p := row.Percent.Float64
			out[i].Percent = &p
		}
		if row.HasRange {
			lo, hi := row.Minimum, row.Maximum
			out[i].Minimum = &lo
			out[i].Maximum = &hi
		}
	}
	return out
}

// ToJSON renders the metabolite and both filtered tables as JSON. Undefined
// percentages encode as null.
func (s *MetaboliteSummary) ToJSON(opts RenderOptions) (string, error) {
	opts, err := opts.normalize(s.tolerance, s.logger)
	if err != nil {
		return "", err
	}
	doc := jsonSummary{
		Metabolite: s.metabolite,
		Producing:  jsonRows(s.display(s.producing, opts)),
		Consuming:  jsonRows(s.display(s.consuming, opts)),
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal json: %w", err)
	}
	return string(payload), nil
}

func csvTable(sections map[string][]DisplayRow, order []string, hasRanges bool, opts RenderOptions) (string, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	headers := []string{"Percent", "Flux"}
	if hasRanges {
		headers = append(headers, "Minimum", "Maximum")
	}
	headers = append(headers, "Reaction", "Definition")
	if order != nil {
		headers = append([]string{"Direction"}, headers...)
	} else {
		order = []string{""}
	}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, section := range order {
		for _, row := range sections[section] {
			var record []string
			if section != "" {
				record = append(record, section)
			}
			record = append(record, formatPercent(row.Percent), formatFloat(opts.FloatFormat, row.Flux))
			if hasRanges {
				record = append(record, formatFloat(opts.FloatFormat, row.Minimum), formatFloat(opts.FloatFormat, row.Maximum))
			}
			record = append(record, row.Reaction, row.Definition)
			if err := writer.Write(record); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatPercent(p Fraction) string {
	if !p.Valid {
		return ""
	}
	return fmt.Sprintf("%.2f%%", 100*p.Float64)
}

func formatFloat(format string, v float64) string {
	return fmt.Sprintf(format, v)
}

func formatRange(format string, lo, hi float64) string {
	return "[" + formatFloat(format, lo) + "; " + formatFloat(format, hi) + "]"
}
