package dashboard

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/gedash/internal/contracts"
)

const exportSheet = "Sheet1"

// WriteXLSX writes records as a spreadsheet with the raw data columns.
// Numeric fields keep their numeric cell type; a missing value is an empty cell.
func (l *Layout) WriteXLSX(w io.Writer, records []contracts.ValidationRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	cols := l.Records.Columns

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	if err := setRow(f, 1, header); err != nil {
		return err
	}

	for i, rec := range records {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = cellValue(rec, c)
		}
		if err := setRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}

func cellValue(rec contracts.ValidationRecord, c Column) interface{} {
	var v *float64
	switch c.Field {
	case FieldExpectationMin:
		v = rec.ExpectationMin
	case FieldExpectationMax:
		v = rec.ExpectationMax
	case FieldObservedValue:
		v = rec.ObservedValue
	default:
		return RecordCell(rec, Column{Field: c.Field, Format: FormatDateTime})
	}
	if v == nil {
		return ""
	}
	return *v
}
