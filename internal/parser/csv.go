package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/isdaudit/internal/document"
)

// CSVParser handles CSV exports of financial tables. Each row becomes one
// line with its cells separated by a column gap.
type CSVParser struct{}

// csvPageRows is the number of rows per synthesized page.
const csvPageRows = 50

func (p *CSVParser) Open(r io.Reader, filename string) (document.TextLayer, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var pages [][]string
	for i := 0; i < len(records); i += csvPageRows {
		end := min(i+csvPageRows, len(records))
		var lines []string
		for _, row := range records[i:end] {
			if line := joinCells(row); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, lines)
	}
	return document.LinesLayer(pages), nil
}
