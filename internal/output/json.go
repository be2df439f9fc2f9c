// internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"github.com/valpere/VidSieve/pkg/types"
)

// JSONWriter writes a report as one indented JSON document
type JSONWriter struct {
	encoder *json.Encoder
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(w io.Writer) *JSONWriter {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &JSONWriter{encoder: encoder}
}

// Write writes the report; an empty history encodes as []
func (w *JSONWriter) Write(report Report) error {
	if report.History == nil {
		report.History = []types.HistoryEntry{}
	}
	return w.encoder.Encode(report)
}

// Close is a no-op; the encoder does not buffer
func (w *JSONWriter) Close() error { return nil }
