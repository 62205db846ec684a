package transfer

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/buyercheck/backend/internal/domain"
)

const sheetName = "Entities"

// WriteXLSX writes inputs as a workbook with one heading row and one row
// per entity
func WriteXLSX(w io.Writer, inputs []domain.EntityInput) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headings := make([]interface{}, len(columns))
	for i, col := range columns {
		headings[i] = col.heading
	}
	if err := f.SetSheetRow(sheetName, "A1", &headings); err != nil {
		return fmt.Errorf("write headings: %w", err)
	}

	for i, in := range inputs {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = col.get(in)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadXLSX reads entities from the first sheet of a workbook. Columns are
// located by their heading, so order and extra columns do not matter.
// Blank rows are skipped.
func ReadXLSX(r io.Reader) ([]domain.EntityInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return []domain.EntityInput{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return []domain.EntityInput{}, nil
	}

	index := make(map[int]column)
	for i, heading := range rows[0] {
		for _, col := range columns {
			if headingKey(heading) == headingKey(col.heading) {
				index[i] = col
			}
		}
	}
	if len(index) == 0 {
		return nil, fmt.Errorf("no known column headings in sheet %q", sheets[0])
	}

	inputs := []domain.EntityInput{}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		var in domain.EntityInput
		for i, value := range row {
			if col, ok := index[i]; ok {
				col.set(&in, strings.TrimSpace(value))
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
