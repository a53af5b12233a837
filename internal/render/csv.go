package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"strings"
)

// csvBatch is the number of data rows per outline section, so long tables
// are indexed as several searchable records.
const csvBatch = 20

// CSVRenderer renders a CSV file as a table. The first row is the header.
type CSVRenderer struct{}

func (r *CSVRenderer) Render(src []byte) (*Page, error) {
	reader := csv.NewReader(bytes.NewReader(src))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Page{}, nil
	}

	headers := records[0]
	rows := records[1:]

	var out strings.Builder
	out.WriteString("<table>\n<thead><tr>")
	for _, h := range headers {
		out.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	out.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range rows {
		out.WriteString("<tr>")
		for _, cell := range row {
			out.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		out.WriteString("</tr>\n")
	}
	out.WriteString("</tbody>\n</table>\n")

	var outline []*Section
	for i := 0; i < len(rows); i += csvBatch {
		end := min(i+csvBatch, len(rows))

		var text strings.Builder
		for _, row := range rows[i:end] {
			for j, cell := range row {
				if j > 0 {
					text.WriteString(", ")
				}
				if j < len(headers) {
					text.WriteString(headers[j] + ": ")
				}
				text.WriteString(cell)
			}
			text.WriteString("\n")
		}

		outline = append(outline, &Section{
			// 1-indexed, counting the header row.
			Title: fmt.Sprintf("Rows %d-%d", i+2, end+1),
			Level: 2,
			Text:  strings.TrimSpace(text.String()),
		})
	}

	return &Page{HTML: out.String(), Outline: outline}, nil
}
