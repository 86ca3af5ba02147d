package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/prodair/fieldinstall/internal/domain"
)

const xlsxSheet = "Installations"

// numericColumns are the Header positions written as numbers rather than text.
// Sentinel values in those columns stay text.
var numericColumns = map[int]bool{
	8: true, 9: true, 10: true, 11: true, 13: true, 14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true, 21: true,
}

// XLSX writes the CSV columns to a workbook. Quantities are stored as numbers
// so the sheet can total them.
func (f *Formatter) XLSX(records []*domain.Installation) ([]byte, error) {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := wb.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range Header {
		if err := setCell(wb, i, 1, h); err != nil {
			return nil, err
		}
	}

	for r, rec := range records {
		row := r + 2
		for i, v := range f.Row(rec) {
			var value any = v
			if numericColumns[i] {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					value = n
				}
			}
			if err := setCell(wb, i, row, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(wb *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("failed to resolve cell: %w", err)
	}
	if err := wb.SetCellValue(xlsxSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}
