package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the sheet name limit imposed by spreadsheet applications
const maxSheetName = 31

// WriteWorkbook writes every table to its own sheet of an .xlsx file.
// Cells that parse as numbers are stored as numbers.
func WriteWorkbook(path string, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("workbook needs at least one table")
	}

	f := excelize.NewFile()
	defer f.Close()

	seen := make(map[string]bool, len(tables))
	for i, table := range tables {
		sheet := sheetName(table.Name, i)
		if seen[sheet] {
			return fmt.Errorf("duplicate sheet name %q", sheet)
		}
		seen[sheet] = true

		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, table); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, table Table) error {
	rows := make([][]string, 0, len(table.Records)+1)
	if len(table.Headers) > 0 {
		rows = append(rows, table.Headers)
	}
	rows = append(rows, table.Records...)

	for r, row := range rows {
		cells := make([]interface{}, len(row))
		for c, value := range row {
			cells[c] = value
			// Header row stays text
			if r > 0 || len(table.Headers) == 0 {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					cells[c] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", r+1, sheet, err)
		}
	}
	return nil
}

func sheetName(name string, index int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", index+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}
