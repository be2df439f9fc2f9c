// pkg/types/types.go
package types

import (
	"fmt"
	"strings"
	"time"
)

// NoViewsSentinel is stored verbatim in VideoRecord.ViewCountText when a card
// shows the literal "No views" phrase instead of a count.
const NoViewsSentinel = "No views"

// HistoryLimit is the number of most recent history entries kept by a store.
const HistoryLimit = 100

// Field names used in diagnostics and metrics labels
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldViewCount   = "viewCount"
	FieldDuration    = "duration"
	FieldPublishTime = "publishTime"
)

// VideoRecord is the normalized output of one extraction. An empty string
// means the field could not be recovered.
type VideoRecord struct {
	ID              string `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string `json:"title,omitempty" yaml:"title,omitempty"`
	ViewCountText   string `json:"view_count_text,omitempty" yaml:"view_count_text,omitempty"`
	DurationText    string `json:"duration_text,omitempty" yaml:"duration_text,omitempty"`
	PublishTimeText string `json:"publish_time_text,omitempty" yaml:"publish_time_text,omitempty"`
}

// HasTitle reports whether a title was extracted
func (r VideoRecord) HasTitle() bool { return r.Title != "" }

// HasViewCount reports whether any view text was extracted, the sentinel included
func (r VideoRecord) HasViewCount() bool { return r.ViewCountText != "" }

// HasDuration reports whether a duration badge was extracted
func (r VideoRecord) HasDuration() bool { return r.DurationText != "" }

// HasPublishTime reports whether a relative publish time was extracted
func (r VideoRecord) HasPublishTime() bool { return r.PublishTimeText != "" }

// HasViewData reports whether the record carries a usable view count.
// The "No views" sentinel counts as no view data.
func (r VideoRecord) HasViewData() bool {
	return r.ViewCountText != "" && r.ViewCountText != NoViewsSentinel
}

// MissingFields lists the fields that are absent, in a fixed order.
// The sentinel view text is not reported as missing.
func (r VideoRecord) MissingFields() []string {
	var missing []string
	if r.ID == "" {
		missing = append(missing, FieldID)
	}
	if r.Title == "" {
		missing = append(missing, FieldTitle)
	}
	if r.ViewCountText == "" {
		missing = append(missing, FieldViewCount)
	}
	if r.DurationText == "" {
		missing = append(missing, FieldDuration)
	}
	if r.PublishTimeText == "" {
		missing = append(missing, FieldPublishTime)
	}
	return missing
}

// Settings is the user-configurable filter configuration. A scan always works
// on its own copy.
type Settings struct {
	ViewsFilterEnabled    bool     `yaml:"views_filter_enabled" json:"views_filter_enabled"`
	DurationFilterEnabled bool     `yaml:"duration_filter_enabled" json:"duration_filter_enabled"`
	AgeFilterEnabled      bool     `yaml:"age_filter_enabled" json:"age_filter_enabled"`
	KeywordFilterEnabled  bool     `yaml:"keyword_filter_enabled" json:"keyword_filter_enabled"`
	MinViews              int64    `yaml:"min_views" json:"min_views"`
	MinDuration           int      `yaml:"min_duration" json:"min_duration"`
	MaxDuration           int      `yaml:"max_duration" json:"max_duration"`
	MaxAge                int      `yaml:"max_age" json:"max_age"`
	BannedKeywords        []string `yaml:"banned_keywords,omitempty" json:"banned_keywords,omitempty"`
}

// DefaultSettings returns the settings a fresh install starts with
func DefaultSettings() Settings {
	return Settings{
		MinViews: 1000,
		MaxAge:   1,
	}
}

// Normalize clamps negative thresholds to zero and turns BannedKeywords into
// an ordered set of trimmed lowercase strings.
func (s Settings) Normalize() Settings {
	if s.MinViews < 0 {
		s.MinViews = 0
	}
	if s.MinDuration < 0 {
		s.MinDuration = 0
	}
	if s.MaxDuration < 0 {
		s.MaxDuration = 0
	}
	if s.MaxAge < 0 {
		s.MaxAge = 0
	}

	seen := make(map[string]bool, len(s.BannedKeywords))
	keywords := make([]string, 0, len(s.BannedKeywords))
	for _, kw := range s.BannedKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		keywords = append(keywords, kw)
	}
	s.BannedKeywords = keywords
	return s
}

// Clone returns a deep copy so callers cannot mutate a snapshot in use
func (s Settings) Clone() Settings {
	if s.BannedKeywords != nil {
		s.BannedKeywords = append([]string(nil), s.BannedKeywords...)
	}
	return s
}

// Reason identifies which predicate produced a filter decision
type Reason string

const (
	ReasonViews    Reason = "views"
	ReasonNoViews  Reason = "no-views"
	ReasonDuration Reason = "duration"
	ReasonAge      Reason = "age"
	ReasonKeyword  Reason = "keyword"
)

// String returns the reason code
func (r Reason) String() string { return string(r) }

// Decision is the outcome of one predicate evaluation
type Decision struct {
	ShouldFilter bool   `json:"should_filter"`
	Reason       Reason `json:"reason,omitempty"`
	Details      string `json:"details,omitempty"`
	// Value is the parsed quantity the predicate compared (views, seconds, years)
	Value int64 `json:"value,omitempty"`
	// Bound names the violated duration bound: "min" or "max"
	Bound string `json:"bound,omitempty"`
	// Matched is the banned keyword that matched the title
	Matched string `json:"matched,omitempty"`
}

// Pass is the non-filtering decision
var Pass = Decision{}

// StatsDelta holds the counters produced by one scan pass
type StatsDelta struct {
	Views    int `json:"views" yaml:"views" bson:"views"`
	Duration int `json:"duration" yaml:"duration" bson:"duration"`
	Age      int `json:"age" yaml:"age" bson:"age"`
	Keyword  int `json:"keyword" yaml:"keyword" bson:"keyword"`
	Total    int `json:"total" yaml:"total" bson:"total"`
}

// Increment counts one filtered item under its reason and the total
func (d *StatsDelta) Increment(reason Reason) {
	switch reason {
	case ReasonViews, ReasonNoViews:
		d.Views++
	case ReasonDuration:
		d.Duration++
	case ReasonAge:
		d.Age++
	case ReasonKeyword:
		d.Keyword++
	default:
		return
	}
	d.Total++
}

// Add merges another delta into d
func (d *StatsDelta) Add(other StatsDelta) {
	d.Views += other.Views
	d.Duration += other.Duration
	d.Age += other.Age
	d.Keyword += other.Keyword
	d.Total += other.Total
}

// IsZero reports whether nothing was counted
func (d StatsDelta) IsZero() bool {
	return d == StatsDelta{}
}

// String renders the delta for logs and CLI output
func (d StatsDelta) String() string {
	return fmt.Sprintf("total=%d views=%d duration=%d age=%d keyword=%d",
		d.Total, d.Views, d.Duration, d.Age, d.Keyword)
}

// HistoryEntry is one filtered item as recorded by the storage collaborator
type HistoryEntry struct {
	Title     string `json:"title" yaml:"title" bson:"title"`
	Reason    string `json:"reason" yaml:"reason" bson:"reason"`
	Timestamp string `json:"timestamp" yaml:"timestamp" bson:"timestamp"`
}

// NewHistoryEntry stamps an entry with the given time in ISO-8601 UTC
func NewHistoryEntry(title, reason string, at time.Time) HistoryEntry {
	return HistoryEntry{
		Title:     title,
		Reason:    reason,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// CapHistory keeps the most recent limit entries, dropping the oldest first.
// Entries are expected in append order.
func CapHistory(entries []HistoryEntry, limit int) []HistoryEntry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return append([]HistoryEntry(nil), entries[len(entries)-limit:]...)
}
