// internal/output/yaml.go
package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLWriter writes a report as a single YAML document
type YAMLWriter struct {
	encoder *yaml.Encoder
}

// NewYAMLWriter creates a new YAML writer with two-space indentation
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	return &YAMLWriter{encoder: encoder}
}

// Write encodes the report
func (w *YAMLWriter) Write(report Report) error {
	if err := w.encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}

// Close finishes the YAML stream
func (w *YAMLWriter) Close() error {
	return w.encoder.Close()
}
