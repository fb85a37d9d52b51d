package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter renders datasets into a single-sheet xlsx workbook.
type ExcelExporter struct {
	sheet string
}

// NewExcelExporter builds an exporter writing to the named sheet.
func NewExcelExporter(sheet string) *ExcelExporter {
	if sheet == "" {
		sheet = "Sheet1"
	}
	return &ExcelExporter{sheet: sheet}
}

// Render produces xlsx bytes: a header row followed by data rows in input
// order. Column widths follow the provided per-header hints, when present.
func (e *ExcelExporter) Render(data Dataset, colWidths map[string]float64) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", e.sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(e.sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if width, ok := colWidths[header]; ok && width > 0 {
			col, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return nil, fmt.Errorf("column name: %w", err)
			}
			if err := f.SetColWidth(e.sheet, col, col, width); err != nil {
				return nil, fmt.Errorf("set column width: %w", err)
			}
		}
	}

	for r, row := range data.Rows {
		for i, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(e.sheet, cell, row[header]); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSheet parses xlsx bytes back into a Dataset using the first row as
// headers. Used for round-trip verification of generated workbooks.
func (e *ExcelExporter) ReadSheet(raw []byte) (Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return Dataset{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(e.sheet)
	if err != nil {
		return Dataset{}, fmt.Errorf("read sheet: %w", err)
	}
	if len(rows) == 0 {
		return Dataset{}, nil
	}

	data := Dataset{Headers: rows[0]}
	for _, raw := range rows[1:] {
		row := make(map[string]string, len(data.Headers))
		for i, header := range data.Headers {
			if i < len(raw) {
				row[header] = raw[i]
			} else {
				row[header] = ""
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}
