// internal/filter/filter.go
package filter

import (
	"strings"

	"github.com/valpere/VidSieve/pkg/types"
)

// Ordered lists the predicates in evaluation order. When several would
// filter the same record the first one listed is the reported reason.
var Ordered = []Predicate{Views, Duration, Age, Keyword}

// Evaluate returns the first filtering decision, or false when every
// predicate lets the record through
func Evaluate(record types.VideoRecord, settings types.Settings) (types.Decision, bool) {
	for _, predicate := range Ordered {
		if decision := predicate(record, settings); decision.ShouldFilter {
			return decision, true
		}
	}
	return types.Pass, false
}

// Active reports whether any predicate can filter under settings
func Active(settings types.Settings) bool {
	return (settings.ViewsFilterEnabled && settings.MinViews > 0) ||
		(settings.DurationFilterEnabled && (settings.MinDuration > 0 || settings.MaxDuration > 0)) ||
		(settings.AgeFilterEnabled && settings.MaxAge > 0) ||
		(settings.KeywordFilterEnabled && hasKeyword(settings.BannedKeywords))
}

func hasKeyword(keywords []string) bool {
	for _, kw := range keywords {
		if strings.TrimSpace(kw) != "" {
			return true
		}
	}
	return false
}
