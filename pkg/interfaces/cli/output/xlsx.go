package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Excel caps sheet names at 31 characters
const maxSheetName = 31

// generateXLSXOutput writes one workbook with a sheet per table
func generateXLSXOutput(report Report, config Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("output directory required for xlsx format")
	}

	f, err := BuildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	filename, err := outputPath(config, report.Name+".xlsx")
	if err != nil {
		return err
	}
	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.writer(), "Workbook saved to: %s\n", filename)
	}
	return nil
}

// BuildWorkbook renders the report tables into an in-memory workbook.
// Numeric cells are written as numbers so totals can be summed in Excel.
func BuildWorkbook(report Report) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	footerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create footer style: %w", err)
	}

	tables := report.Tables
	if len(tables) == 0 {
		tables = []Table{{Name: report.Name}}
	}

	for i, table := range tables {
		sheet := sheetName(table, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		for col, h := range table.Header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheet, cell, h)
			f.SetCellStyle(sheet, cell, cell, headerStyle)
		}
		for r, row := range table.Rows {
			writeRow(f, sheet, r+2, row)
		}
		if len(table.Footer) > 0 {
			r := len(table.Rows) + 2
			writeRow(f, sheet, r, table.Footer)
			first, _ := excelize.CoordinatesToCellName(1, r)
			last, _ := excelize.CoordinatesToCellName(len(table.Footer), r)
			f.SetCellStyle(sheet, first, last, footerStyle)
		}
		for col, width := range columnWidths(table) {
			name, _ := excelize.ColumnNumberToName(col + 1)
			f.SetColWidth(sheet, name, name, width)
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, r int, row []string) {
	for col, v := range row {
		cell, _ := excelize.CoordinatesToCellName(col+1, r)
		f.SetCellValue(sheet, cell, cellValue(v))
	}
}

// cellValue keeps ids and counts as integers and money as floats
func cellValue(v string) interface{} {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if d, err := decimal.NewFromString(v); err == nil {
		f, _ := d.Float64()
		return f
	}
	return v
}

func sheetName(table Table, i int) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, table.Name)
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	return name
}

func columnWidths(table Table) []float64 {
	widths := make([]float64, len(table.Header))
	measure := func(row []string) {
		for i, v := range row {
			if i < len(widths) && float64(len(v)+2) > widths[i] {
				widths[i] = float64(len(v) + 2)
			}
		}
	}
	measure(table.Header)
	for _, row := range table.Rows {
		measure(row)
	}
	measure(table.Footer)
	for i, w := range widths {
		if w > 60 {
			widths[i] = 60
		}
	}
	return widths
}
