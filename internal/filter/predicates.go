// internal/filter/predicates.go
package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/valpere/VidSieve/internal/quantity"
	"github.com/valpere/VidSieve/pkg/types"
)

// Predicate decides whether one record should be filtered. A disabled
// predicate, or one whose threshold is unbounded, passes without looking at
// the record.
type Predicate func(record types.VideoRecord, settings types.Settings) types.Decision

// Views filters records below MinViews. A record with no view count at all
// is filtered too: on this platform a missing count marks mixes, live
// streams and other aggregate items.
func Views(record types.VideoRecord, settings types.Settings) types.Decision {
	if !settings.ViewsFilterEnabled || settings.MinViews <= 0 {
		return types.Pass
	}

	if !record.HasViewData() {
		return types.Decision{
			ShouldFilter: true,
			Reason:       types.ReasonNoViews,
			Details:      "No view count",
		}
	}

	views := quantity.ParseViewCount(record.ViewCountText)
	if views >= settings.MinViews {
		return types.Pass
	}
	return types.Decision{
		ShouldFilter: true,
		Reason:       types.ReasonViews,
		Details: fmt.Sprintf("Views: %s < %s",
			quantity.FormatViews(views), quantity.FormatViews(settings.MinViews)),
		Value: views,
	}
}

// Duration filters records whose length falls outside
// [MinDuration, MaxDuration]; a zero bound is open. Records without a
// duration are let through.
func Duration(record types.VideoRecord, settings types.Settings) types.Decision {
	if !settings.DurationFilterEnabled || (settings.MinDuration <= 0 && settings.MaxDuration <= 0) {
		return types.Pass
	}
	if !record.HasDuration() {
		return types.Pass
	}

	seconds := quantity.ParseDuration(record.DurationText)
	switch {
	case settings.MinDuration > 0 && seconds < settings.MinDuration:
		return types.Decision{
			ShouldFilter: true,
			Reason:       types.ReasonDuration,
			Details: fmt.Sprintf("Duration: %s < min %s",
				quantity.FormatSeconds(seconds), quantity.FormatSeconds(settings.MinDuration)),
			Value: int64(seconds),
			Bound: "min",
		}
	case settings.MaxDuration > 0 && seconds > settings.MaxDuration:
		return types.Decision{
			ShouldFilter: true,
			Reason:       types.ReasonDuration,
			Details: fmt.Sprintf("Duration: %s > max %s",
				quantity.FormatSeconds(seconds), quantity.FormatSeconds(settings.MaxDuration)),
			Value: int64(seconds),
			Bound: "max",
		}
	}
	return types.Pass
}

// Age filters records published more than MaxAge years ago. Records
// without a publish time are let through.
func Age(record types.VideoRecord, settings types.Settings) types.Decision {
	if !settings.AgeFilterEnabled || settings.MaxAge <= 0 {
		return types.Pass
	}
	if !record.HasPublishTime() {
		return types.Pass
	}

	years := quantity.ParseVideoAge(record.PublishTimeText)
	if years <= settings.MaxAge {
		return types.Pass
	}
	return types.Decision{
		ShouldFilter: true,
		Reason:       types.ReasonAge,
		Details:      fmt.Sprintf("Age: %dy > %dy", years, settings.MaxAge),
		Value:        int64(years),
	}
}

// Keyword filters records whose title contains a banned keyword. Both sides
// are case-folded; the first keyword in list order wins.
func Keyword(record types.VideoRecord, settings types.Settings) types.Decision {
	if !settings.KeywordFilterEnabled || len(settings.BannedKeywords) == 0 {
		return types.Pass
	}
	if !record.HasTitle() {
		return types.Pass
	}

	// cases.Caser is stateful, one per call
	title := cases.Fold().String(record.Title)
	for _, keyword := range settings.BannedKeywords {
		folded := cases.Fold().String(strings.TrimSpace(keyword))
		if folded == "" {
			continue
		}
		if strings.Contains(title, folded) {
			return types.Decision{
				ShouldFilter: true,
				Reason:       types.ReasonKeyword,
				Details:      fmt.Sprintf("Keyword: %q", keyword),
				Matched:      keyword,
			}
		}
	}
	return types.Pass
}
