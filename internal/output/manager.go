// internal/output/manager.go
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/valpere/VidSieve/pkg/types"
)

// GeneratorName is stamped into every exported report
const GeneratorName = "VidSieve"

// Report is the exported view of a store
type Report struct {
	Generator   string               `json:"generator" yaml:"generator"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Stats       types.StatsDelta     `json:"stats" yaml:"stats"`
	History     []types.HistoryEntry `json:"history" yaml:"history"`
}

// BuildReport reads stats and history from a store
func BuildReport(ctx context.Context, store Store, now time.Time) (Report, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read stats: %w", err)
	}
	history, err := store.History(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read history: %w", err)
	}
	return Report{
		Generator:   GeneratorName,
		GeneratedAt: now.UTC(),
		Stats:       stats,
		History:     history,
	}, nil
}

// Writer encodes a report. Close flushes and releases the destination.
type Writer interface {
	Write(report Report) error
	Close() error
}

// NewWriter returns a writer for format over w. Closing the writer does not
// close w.
func NewWriter(format OutputFormat, w io.Writer) (Writer, error) {
	switch format {
	case FormatJSON:
		return NewJSONWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatExcel:
		return NewExcelWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ExportFile writes the store's report to path. An empty format is guessed
// from the file extension.
func ExportFile(ctx context.Context, store Store, format OutputFormat, path string) error {
	if format == "" {
		guessed, ok := FormatFromPath(path)
		if !ok {
			return fmt.Errorf("cannot infer output format from %q", path)
		}
		format = guessed
	}

	report, err := BuildReport(ctx, store, time.Now())
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer, err := NewWriter(format, file)
	if err != nil {
		return err
	}
	if err := writer.Write(report); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to flush %s report: %w", format, err)
	}
	return file.Close()
}
