// internal/scraper/selectors.go
package scraper

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// The host site ships several markup generations at once and migrates
// between them without notice. Every list below is ordered newest
// generation first; support a new layout by adding rows, not code paths.

// SelectorRule is one row of a fallback table
type SelectorRule struct {
	Generation string
	Selector   string
}

// ContainerSelectors enumerate the item containers of a feed
var ContainerSelectors = []SelectorRule{
	{Generation: "lockup", Selector: "yt-lockup-view-model"},
	{Generation: "rich-grid", Selector: "ytd-rich-item-renderer"},
	{Generation: "search", Selector: "ytd-video-renderer"},
	{Generation: "grid", Selector: "ytd-grid-video-renderer"},
	{Generation: "watch-next", Selector: "ytd-compact-video-renderer"},
	{Generation: "playlist", Selector: "ytd-playlist-video-renderer"},
}

// IDAttributes are read from the container or a descendant before
// falling back to link parsing
var IDAttributes = []string{"data-video-id", "video-id", "data-context-item-id"}

// TitleSelectors locate the title element
var TitleSelectors = []SelectorRule{
	{Generation: "polymer", Selector: "#video-title"},
	{Generation: "polymer", Selector: "a#video-title-link"},
	{Generation: "lockup", Selector: "h3 a"},
	{Generation: "lockup", Selector: ".yt-lockup-metadata-view-model__title, .yt-lockup-metadata-view-model-wiz__title"},
	{Generation: "overlay", Selector: `a[aria-label][href*="/watch"], a[aria-label][href*="/shorts/"]`},
}

// DurationSelectors locate the thumbnail duration badge
var DurationSelectors = []SelectorRule{
	{Generation: "badge-shape", Selector: ".yt-badge-shape__text, .badge-shape-wiz__text, badge-shape"},
	{Generation: "time-status", Selector: "ytd-thumbnail-overlay-time-status-renderer #text, ytd-thumbnail-overlay-time-status-renderer span"},
	{Generation: "generic", Selector: `[class*="time-status"]`},
}

// ThumbnailLinkSelectors locate the link whose text is scanned when no badge matched
var ThumbnailLinkSelectors = []SelectorRule{
	{Generation: "lockup", Selector: "a.yt-lockup-view-model__content-image, a.yt-lockup-view-model-wiz__content-image"},
	{Generation: "polymer", Selector: "a#thumbnail"},
	{Generation: "generic", Selector: `a[href*="/watch?v="]`},
}

// WatchLinkSelector finds links carrying a video id in their query
const WatchLinkSelector = `a[href*="/watch?v="], a[href*="watch?v="]`

// ShortsLinkSelector finds shorts links carrying the id in the path
const ShortsLinkSelector = `a[href*="/shorts/"]`

var (
	// ViewCountRegex matches "1.4K views", "1,234 views", "1 view"
	ViewCountRegex = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?[KMB]?)\s*views?\b`)
	// NoViewsRegex matches the literal phrase shown for unwatched uploads
	NoViewsRegex = regexp.MustCompile(`(?i)\bno views\b`)
	// PublishTimeRegex matches relative ages such as "3 weeks ago"
	PublishTimeRegex = regexp.MustCompile(`(?i)\b(\d+)\s*(second|minute|hour|day|week|month|year)s?\s*ago\b`)
	// StreamedRegex matches live and premiere phrasing and captures the relative age
	StreamedRegex = regexp.MustCompile(`(?i)\b(?:streamed|premiered)(?:\s+live)?\s+(\d+\s*(?:second|minute|hour|day|week|month|year)s?\s*ago)\b`)
	// DurationPrefixRegex accepts badge text that starts like a clock
	DurationPrefixRegex = regexp.MustCompile(`^\d+:\d+`)
	// DurationAnywhereRegex finds a clock value inside longer text
	DurationAnywhereRegex = regexp.MustCompile(`\d+:\d{2}(?::\d{2})?`)
)

// ContainerSelector is the union of all container selectors
var ContainerSelector = joinRules(ContainerSelectors)

var containerMatcher = cascadia.MustCompile(ContainerSelector)

func joinRules(rules []SelectorRule) string {
	parts := make([]string, len(rules))
	for i, rule := range rules {
		parts[i] = rule.Selector
	}
	return strings.Join(parts, ", ")
}

// IsContainer reports whether n itself is an item container
func IsContainer(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && containerMatcher.Match(n)
}

// IsOrContainsContainer reports whether n is a container or has one below it
func IsOrContainsContainer(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return containerMatcher.Match(n) || containerMatcher.MatchFirst(n) != nil
}
