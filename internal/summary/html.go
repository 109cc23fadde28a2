package summary

import (
	"html"
	"strings"
)

func escape(s string) string { return html.EscapeString(s) }

// htmlTable renders rows without width elision.
func htmlTable(rows []DisplayRow, hasRanges bool, opts RenderOptions) string {
	columns := tableColumns(rows, hasRanges, opts)

	buf := &strings.Builder{}
	buf.WriteString("<table class=\"summary\">")
	buf.WriteString("<thead><tr>")
	for _, col := range columns {
		buf.WriteString("<th>")
		buf.WriteString(escape(col.header))
		buf.WriteString("</th>")
	}
	buf.WriteString("</tr></thead><tbody>")
	for r := range rows {
		buf.WriteString("<tr>")
		for _, col := range columns {
			buf.WriteString("<td>")
			buf.WriteString(escape(col.cells[r]))
			buf.WriteString("</td>")
		}
		buf.WriteString("</tr>")
	}
	buf.WriteString("</tbody></table>")
	return buf.String()
}
