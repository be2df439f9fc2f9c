// internal/output/excel.go
package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Sheet names used by ExcelWriter
const (
	HistorySheet = "History"
	StatsSheet   = "Stats"
)

// ExcelWriter writes a workbook with a History sheet and a Stats sheet.
// The workbook is serialized on Close.
type ExcelWriter struct {
	out     io.Writer
	file    *excelize.File
	written bool
}

// NewExcelWriter creates a new Excel writer
func NewExcelWriter(w io.Writer) *ExcelWriter {
	return &ExcelWriter{out: w, file: excelize.NewFile()}
}

// Write fills both sheets
func (w *ExcelWriter) Write(report Report) error {
	defaultSheet := w.file.GetSheetName(0)
	if defaultSheet != HistorySheet {
		if err := w.file.SetSheetName(defaultSheet, HistorySheet); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	}
	if _, err := w.file.NewSheet(StatsSheet); err != nil {
		return fmt.Errorf("failed to create stats sheet: %w", err)
	}

	header, err := w.headerStyle()
	if err != nil {
		return err
	}

	if err := w.writeRows(HistorySheet, header, []interface{}{"Timestamp", "Reason", "Title"}, historyRows(report)); err != nil {
		return err
	}
	if err := w.writeRows(StatsSheet, header, []interface{}{"Category", "Count"}, statsRows(report)); err != nil {
		return err
	}

	if err := w.file.SetColWidth(HistorySheet, "A", "B", 24); err != nil {
		return err
	}
	if err := w.file.SetColWidth(HistorySheet, "C", "C", 60); err != nil {
		return err
	}
	if err := w.file.SetPanes(HistorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	w.written = true
	return nil
}

func historyRows(report Report) [][]interface{} {
	rows := make([][]interface{}, 0, len(report.History))
	for _, entry := range report.History {
		rows = append(rows, []interface{}{entry.Timestamp, entry.Reason, entry.Title})
	}
	return rows
}

func statsRows(report Report) [][]interface{} {
	s := report.Stats
	return [][]interface{}{
		{"views", s.Views},
		{"duration", s.Duration},
		{"age", s.Age},
		{"keyword", s.Keyword},
		{"total", s.Total},
	}
}

func (w *ExcelWriter) writeRows(sheet string, headerStyle int, header []interface{}, rows [][]interface{}) error {
	if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.file.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.file.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}

func (w *ExcelWriter) headerStyle() (int, error) {
	return w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
}

// Close serializes the workbook if Write succeeded and releases it
func (w *ExcelWriter) Close() error {
	defer w.file.Close()
	if !w.written {
		return nil
	}
	if _, err := w.file.WriteTo(w.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
