// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// csvHeader is the column order of exported history rows
var csvHeader = []string{"timestamp", "reason", "title"}

// CSVWriter writes the report history, one row per entry. Stats are not
// part of the CSV layout.
type CSVWriter struct {
	writer *csv.Writer
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w)}
}

// Write writes the header and history rows
func (w *CSVWriter) Write(report Report) error {
	if err := w.writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, entry := range report.History {
		if err := w.writer.Write([]string{entry.Timestamp, entry.Reason, entry.Title}); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes any buffered rows
func (w *CSVWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
