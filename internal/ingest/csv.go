package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// csvBatchSize is the number of data rows rendered into one page record.
const csvBatchSize = 20

// CSVParser handles CSV files.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, name string) ([]Page, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// First row is headers.
	headers := records[0]
	dataRows := records[1:]

	var pages []Page
	for i := 0; i < len(dataRows); i += csvBatchSize {
		end := min(i+csvBatchSize, len(dataRows))

		var text strings.Builder
		text.WriteString("Headers: " + strings.Join(headers, ", ") + "\n\n")
		for _, row := range dataRows[i:end] {
			for j, cell := range row {
				if j < len(headers) {
					text.WriteString(headers[j] + ": " + cell)
				} else {
					text.WriteString(cell)
				}
				if j < len(row)-1 {
					text.WriteString(", ")
				}
			}
			text.WriteString("\n")
		}

		pages = append(pages, Page{Number: len(pages) + 1, Text: text.String()})
	}
	return pages, nil
}
