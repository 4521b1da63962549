package bom

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the worksheet WriteXLSX puts the BOM on.
	SheetName = "BOM"
	// StampSheetName is the worksheet holding the title block.
	StampSheetName = "Stamp"
)

func header(columns []string) []interface{} {
	h := []interface{}{"Reference", "Quantity", "Value", "Footprint"}
	for _, c := range columns {
		h = append(h, c)
	}
	return h
}

// rows lays out the BOM body. A section header row, holding the section
// name in the Value column, opens every new section.
func rows(lines []*Line, columns []string) [][]interface{} {
	var out [][]interface{}
	group := ""
	for _, l := range lines {
		if l.Group != "" && l.Group != group {
			h := make([]interface{}, 4+len(columns))
			for i := range h {
				h[i] = ""
			}
			h[2] = l.Group
			out = append(out, h)
		}
		group = l.Group

		r := []interface{}{l.Refs(), l.Quantity(), l.Value, l.Footprint}
		for _, name := range columns {
			r = append(r, l.Fields[name])
		}
		out = append(out, r)
	}
	return out
}

func strs(r []interface{}) []string {
	s := make([]string, len(r))
	for i, v := range r {
		s[i] = fmt.Sprint(v)
	}
	return s
}

// WriteCSV writes lines as CSV with a header row.
func WriteCSV(w io.Writer, lines []*Line, columns []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(strs(header(columns))); err != nil {
		return err
	}
	for _, r := range rows(lines, columns) {
		if err := writer.Write(strs(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes lines as an Excel workbook. A non-nil stamp is written
// to a second sheet.
func WriteXLSX(w io.Writer, lines []*Line, columns []string, stamp *Stamp) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(SheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(0)

	body := append([][]interface{}{header(columns)}, rows(lines, columns)...)
	if err := setRows(f, SheetName, body); err != nil {
		return err
	}

	if stamp != nil {
		if _, err := f.NewSheet(StampSheetName); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
		var stampRows [][]interface{}
		for _, r := range stamp.rows() {
			stampRows = append(stampRows, []interface{}{r[0], r[1]})
		}
		if err := setRows(f, StampSheetName, stampRows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := r
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
