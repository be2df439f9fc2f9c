// internal/scraper/extractor.go
package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/VidSieve/internal/pipeline"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// MissingFieldsHook is told which fields a record came back without
type MissingFieldsHook func(fields []string)

// ExtractorConfig configures an Extractor
type ExtractorConfig struct {
	Logger utils.Logger
	// TitleTransforms run on every extracted title after whitespace normalization
	TitleTransforms pipeline.TransformList
	OnMissingFields MissingFieldsHook
}

// Extractor turns one rendered item container into a VideoRecord. It never
// fails: a field whose lookup breaks is reported absent.
type Extractor struct {
	logger          utils.Logger
	titleTransforms pipeline.TransformList
	onMissing       MissingFieldsHook
}

// NewExtractor creates an extractor
func NewExtractor(config ExtractorConfig) *Extractor {
	logger := config.Logger
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Extractor{
		logger:          utils.NewModuleLogger(logger, "extractor"),
		titleTransforms: config.TitleTransforms,
		onMissing:       config.OnMissingFields,
	}
}

// Extract reads all fields from a container
func (e *Extractor) Extract(container *goquery.Selection) types.VideoRecord {
	if container == nil || container.Length() == 0 {
		return types.VideoRecord{}
	}
	container = container.First()

	// View and publish lookups both scan the same visible text
	text := e.field("text", func() string { return VisibleText(container) })

	record := types.VideoRecord{
		ID:              e.field(types.FieldID, func() string { return extractID(container) }),
		Title:           e.field(types.FieldTitle, func() string { return e.extractTitle(container) }),
		ViewCountText:   e.field(types.FieldViewCount, func() string { return extractViewCount(text) }),
		DurationText:    e.field(types.FieldDuration, func() string { return extractDuration(container) }),
		PublishTimeText: e.field(types.FieldPublishTime, func() string { return extractPublishTime(text) }),
	}

	if missing := record.MissingFields(); len(missing) > 0 {
		title := record.Title
		if title == "" {
			title = "<untitled>"
		}
		e.logger.WithFields(map[string]interface{}{
			"title":   title,
			"missing": strings.Join(missing, ","),
		}).Debug("record extracted with missing fields")
		if e.onMissing != nil {
			e.onMissing(missing)
		}
	}
	return record
}

// field runs one lookup, converting a panic into an absent value
func (e *Extractor) field(name string, lookup func() string) (value string) {
	defer func() {
		if r := recover(); r != nil {
			err := utils.NewError(utils.ErrCodeExtractionFailed, fmt.Sprintf("%v", r)).
				WithSeverity(utils.SeverityWarning).
				WithContext("field", name)
			e.logger.WithField("field", name).Warnf("field lookup failed: %v", err)
			value = ""
		}
	}()
	return lookup()
}

func extractID(container *goquery.Selection) string {
	for _, name := range IDAttributes {
		if v, ok := container.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		if v, ok := container.Find("[" + name + "]").First().Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	var id string
	container.Find(WatchLinkSelector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		id = videoIDFromHref(link.AttrOr("href", ""))
		return id == ""
	})
	if id != "" {
		return id
	}

	container.Find(ShortsLinkSelector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		id = shortsIDFromHref(link.AttrOr("href", ""))
		return id == ""
	})
	return id
}

// videoIDFromHref reads the v query parameter of a watch link
func videoIDFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

// shortsIDFromHref reads the path segment following /shorts/
func shortsIDFromHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	_, rest, found := strings.Cut(u.Path, "/shorts/")
	if !found {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	return id
}

func (e *Extractor) extractTitle(container *goquery.Selection) string {
	for _, rule := range TitleSelectors {
		el := container.Find(rule.Selector).First()
		if el.Length() == 0 {
			continue
		}
		if title := e.cleanTitle(titleFromElement(el)); title != "" {
			return title
		}
	}
	return ""
}

// titleFromElement prefers element text, then the title attribute, then the
// title part of an aria-label of the form "<title> by <channel> ..."
func titleFromElement(el *goquery.Selection) string {
	if text := strings.TrimSpace(el.Text()); text != "" {
		return text
	}
	if title := strings.TrimSpace(el.AttrOr("title", "")); title != "" {
		return title
	}
	label := strings.TrimSpace(el.AttrOr("aria-label", ""))
	if label == "" {
		return ""
	}
	title, _, _ := strings.Cut(label, " by ")
	return strings.TrimSpace(title)
}

func (e *Extractor) cleanTitle(title string) string {
	title = pipeline.TextNormalization.MustApply(title)
	if title == "" || len(e.titleTransforms) == 0 {
		return title
	}
	cleaned, err := e.titleTransforms.Apply(title)
	if err != nil {
		e.logger.WithField("title", title).Warnf("title transform failed: %v", err)
		return title
	}
	return cleaned
}

func extractViewCount(text string) string {
	if m := ViewCountRegex.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if NoViewsRegex.MatchString(text) {
		return types.NoViewsSentinel
	}
	return ""
}

func extractDuration(container *goquery.Selection) string {
	for _, rule := range DurationSelectors {
		var found string
		container.Find(rule.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if DurationPrefixRegex.MatchString(text) {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	for _, rule := range ThumbnailLinkSelectors {
		link := container.Find(rule.Selector).First()
		if link.Length() == 0 {
			continue
		}
		if m := DurationAnywhereRegex.FindString(VisibleText(link)); m != "" {
			return m
		}
	}
	return ""
}

// extractPublishTime prefers the "Streamed/Premiered N unit ago" phrase,
// which dates the video itself, over any other relative time on the card
func extractPublishTime(text string) string {
	if m := StreamedRegex.FindStringSubmatch(text); len(m) > 1 {
		return m[1]
	}
	return PublishTimeRegex.FindString(text)
}
