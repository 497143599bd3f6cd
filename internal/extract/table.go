package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxTableCols caps how many columns per row are serialized.
const maxTableCols = 10

// extractExcel serializes the first sheet of an .xlsx file to a text view,
// one "Row N — col: val; ..." line per row, capped at MaxTableRows.
func (e *Extractor) extractExcel(path string, content []byte) (*Extracted, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Extracted{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return e.serializeRows(path, rows), nil
}

// extractCSV serializes a CSV file the same way as extractExcel.
func (e *Extractor) extractCSV(path string, content []byte) (*Extracted, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return e.serializeRows(path, rows), nil
}

// serializeRows renders a header line plus "Row N — k: v; ..." lines. The
// first row is treated as the column header.
func (e *Extractor) serializeRows(path string, rows [][]string) *Extracted {
	if len(rows) == 0 {
		return &Extracted{Structure: []Section{{Heading: filepath.Base(path)}}}
	}
	header := rows[0]
	var b strings.Builder
	b.WriteString("TABLE COLUMNS: ")
	b.WriteString(strings.Join(header, ", "))
	b.WriteByte('\n')

	maxRows := e.MaxTableRows
	if maxRows <= 0 {
		maxRows = 2000
	}
	for i, row := range rows[1:] {
		if i >= maxRows {
			break
		}
		cols := len(row)
		if cols > maxTableCols {
			cols = maxTableCols
		}
		pairs := make([]string, 0, cols)
		for j := 0; j < cols; j++ {
			name := fmt.Sprintf("col%d", j+1)
			if j < len(header) && header[j] != "" {
				name = header[j]
			}
			pairs = append(pairs, fmt.Sprintf("%s: %s", name, row[j]))
		}
		fmt.Fprintf(&b, "Row %d — %s\n", i+1, strings.Join(pairs, "; "))
	}
	return &Extracted{
		Text:      strings.TrimSpace(b.String()),
		Structure: []Section{{Heading: filepath.Base(path)}},
	}
}
