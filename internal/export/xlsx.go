package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"classhud/internal/timetable"
)

const sheetName = "Timetable"

// WriteXLSX writes a sheet with one column per weekday (Monday first) and one
// row per period slot.
func WriteXLSX(w io.Writer, t *timetable.Timetable) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	body, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("body style: %w", err)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 6)
	_ = f.SetColWidth(sheetName, "B", "H", 18)

	rows := 0
	for col, d := range weekOrder {
		rows = max(rows, t.Day(d).Len())
		if err := setCell(f, col+2, 1, timetable.WeekdayName(d), header); err != nil {
			return err
		}
	}
	if err := setCell(f, 1, 1, "#", header); err != nil {
		return err
	}
	for r := range rows {
		if err := setCell(f, 1, r+2, r+1, header); err != nil {
			return err
		}
	}

	for col, d := range weekOrder {
		for r, p := range t.Day(d).Periods() {
			if err := setCell(f, col+2, r+2, cellText(p), body); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v any, style int) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, name, v); err != nil {
		return fmt.Errorf("cell %s: %w", name, err)
	}
	return f.SetCellStyle(sheetName, name, name, style)
}

func cellText(p timetable.Period) string {
	if p.NoTimeSpan || p.Times == nil {
		return periodName(p) + "\n" + p.Label()
	}
	return periodName(p) + "\n" + p.Times.String()
}
