// internal/pipeline/transform.go
package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// TransformRule defines a single text transformation applied to an
// extracted field before it reaches the filters
type TransformRule struct {
	Type        string            `yaml:"type" json:"type"`
	Pattern     string            `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Replacement string            `yaml:"replacement,omitempty" json:"replacement,omitempty"`
	Params      map[string]string `yaml:"params,omitempty" json:"params,omitempty"`
}

// TransformList represents a list of transformation rules that can be applied sequentially
type TransformList []TransformRule

// TextNormalization collapses whitespace the way rendered text reads
var TextNormalization = TransformList{
	{Type: "trim"},
	{Type: "normalize_spaces"},
}

// Apply applies all transformation rules in sequence to the input string
func (tl TransformList) Apply(input string) (string, error) {
	result := input
	for i, rule := range tl {
		var err error
		result, err = rule.Apply(result)
		if err != nil {
			return "", fmt.Errorf("transform rule %d failed: %w", i, err)
		}
	}
	return result, nil
}

// MustApply applies the list and falls back to the input on error.
// Only use it with rule lists that passed ValidateTransformRules.
func (tl TransformList) MustApply(input string) string {
	result, err := tl.Apply(input)
	if err != nil {
		return input
	}
	return result
}

// Apply applies a single transformation rule to the input string
func (tr TransformRule) Apply(input string) (string, error) {
	switch tr.Type {
	case "trim":
		return strings.TrimSpace(input), nil

	case "normalize_spaces":
		return whitespaceRegex.ReplaceAllString(strings.TrimSpace(input), " "), nil

	case "lowercase":
		return strings.ToLower(input), nil

	case "uppercase":
		return strings.ToUpper(input), nil

	case "remove_html":
		re := regexp.MustCompile(`<[^>]*>`)
		return re.ReplaceAllString(input, ""), nil

	case "regex":
		if tr.Pattern == "" {
			return "", fmt.Errorf("regex pattern is required")
		}
		re, err := regexp.Compile(tr.Pattern)
		if err != nil {
			return "", fmt.Errorf("invalid regex pattern: %w", err)
		}
		return re.ReplaceAllString(input, tr.Replacement), nil

	case "strip_prefix":
		return strings.TrimPrefix(input, tr.Params["value"]), nil

	case "strip_suffix":
		return strings.TrimSuffix(input, tr.Params["value"]), nil

	case "replace":
		if tr.Params == nil || tr.Params["old"] == "" {
			return "", fmt.Errorf("replace requires old parameter")
		}
		return strings.ReplaceAll(input, tr.Params["old"], tr.Params["new"]), nil

	default:
		return "", fmt.Errorf("unknown transform type: %s", tr.Type)
	}
}

// ValidateTransformRules validates transformation rule configuration
func ValidateTransformRules(rules TransformList) error {
	for i, rule := range rules {
		switch rule.Type {
		case "trim", "normalize_spaces", "lowercase", "uppercase", "remove_html":
		case "regex":
			if rule.Pattern == "" {
				return fmt.Errorf("rule %d: regex pattern is required", i)
			}
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return fmt.Errorf("rule %d: invalid regex pattern: %w", i, err)
			}
		case "strip_prefix", "strip_suffix":
			if rule.Params["value"] == "" {
				return fmt.Errorf("rule %d: %s requires value parameter", i, rule.Type)
			}
		case "replace":
			if rule.Params["old"] == "" {
				return fmt.Errorf("rule %d: replace requires old parameter", i)
			}
		default:
			return fmt.Errorf("rule %d: unknown transform type: %s", i, rule.Type)
		}
	}
	return nil
}
