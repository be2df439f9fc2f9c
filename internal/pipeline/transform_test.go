// internal/pipeline/transform_test.go
package pipeline

import (
	"strings"
	"testing"
)

func TestTransformRule_Apply(t *testing.T) {
	tests := []struct {
		name        string
		rule        TransformRule
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "trim spaces",
			rule:     TransformRule{Type: "trim"},
			input:    "  hello world  ",
			expected: "hello world",
		},
		{
			name:     "normalize spaces",
			rule:     TransformRule{Type: "normalize_spaces"},
			input:    "hello    world\n\ttest",
			expected: "hello world test",
		},
		{
			name:     "lowercase",
			rule:     TransformRule{Type: "lowercase"},
			input:    "HELLO World",
			expected: "hello world",
		},
		{
			name:     "remove html",
			rule:     TransformRule{Type: "remove_html"},
			input:    "This is <b>bold</b> text",
			expected: "This is bold text",
		},
		{
			name:     "regex replacement",
			rule:     TransformRule{Type: "regex", Pattern: `\s*#\w+`, Replacement: ""},
			input:    "Great video #shorts #fyp",
			expected: "Great video",
		},
		{
			name:     "strip prefix",
			rule:     TransformRule{Type: "strip_prefix", Params: map[string]string{"value": "NEW: "}},
			input:    "NEW: Episode 4",
			expected: "Episode 4",
		},
		{
			name:     "replace",
			rule:     TransformRule{Type: "replace", Params: map[string]string{"old": "&amp;", "new": "&"}},
			input:    "Tom &amp; Jerry",
			expected: "Tom & Jerry",
		},
		{
			name:        "regex without pattern",
			rule:        TransformRule{Type: "regex"},
			input:       "x",
			expectError: true,
		},
		{
			name:        "unknown rule",
			rule:        TransformRule{Type: "explode"},
			input:       "x",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.rule.Apply(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error, got result %q", result)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestTextNormalization(t *testing.T) {
	got := TextNormalization.MustApply("\n  1.4K   views \t•  2 years ago ")
	if got != "1.4K views • 2 years ago" {
		t.Errorf("unexpected normalization %q", got)
	}
}

func TestTransformList_ApplyStopsOnError(t *testing.T) {
	list := TransformList{{Type: "trim"}, {Type: "bogus"}}
	_, err := list.Apply(" x ")
	if err == nil || !strings.Contains(err.Error(), "rule 1") {
		t.Fatalf("expected rule 1 failure, got %v", err)
	}
	if got := list.MustApply(" x "); got != " x " {
		t.Errorf("MustApply should return the input on error, got %q", got)
	}
}

func TestValidateTransformRules(t *testing.T) {
	valid := TransformList{
		{Type: "trim"},
		{Type: "regex", Pattern: `\d+`},
		{Type: "strip_suffix", Params: map[string]string{"value": " - Topic"}},
	}
	if err := ValidateTransformRules(valid); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	invalid := []TransformList{
		{{Type: "regex", Pattern: "("}},
		{{Type: "strip_prefix"}},
		{{Type: "replace"}},
		{{Type: "nope"}},
	}
	for i, rules := range invalid {
		if err := ValidateTransformRules(rules); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}
