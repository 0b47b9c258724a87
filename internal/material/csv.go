package material

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const csvBatchSize = 20

// readCSV labels every cell with its column header and groups rows into
// sections of twenty.
func readCSV(r io.Reader, title string) (*Material, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	m := &Material{Title: title}
	if len(records) == 0 {
		return m, nil
	}

	headers := records[0]
	rows := records[1:]
	for i := 0; i < len(rows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(rows))

		var sb strings.Builder
		for _, row := range rows[i:end] {
			cells := make([]string, len(row))
			for j, cell := range row {
				if j < len(headers) && headers[j] != "" {
					cells[j] = headers[j] + ": " + cell
				} else {
					cells[j] = cell
				}
			}
			sb.WriteString(strings.Join(cells, ", "))
			sb.WriteString("\n")
		}

		m.Sections = append(m.Sections, Section{
			Heading: fmt.Sprintf("Rows %d-%d", i+2, end+1), // 1-indexed, after header
			Text:    sb.String(),
		})
	}
	return m, nil
}
