// internal/scraper/walker.go
package scraper

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/valpere/VidSieve/internal/pipeline"
	"github.com/valpere/VidSieve/internal/utils"
	"github.com/valpere/VidSieve/pkg/types"
)

// rendererShape is one known renderer layout inside the structured payload
type rendererShape interface {
	record() types.VideoRecord
}

type lockupShape map[string]interface{}

type legacyShape map[string]interface{}

// shapeKeys maps a payload key to the shape of the object stored under it,
// newest layout first
var shapeKeys = []struct {
	key   string
	build func(map[string]interface{}) rendererShape
}{
	{"lockupViewModel", func(m map[string]interface{}) rendererShape { return lockupShape(m) }},
	{"videoRenderer", func(m map[string]interface{}) rendererShape { return legacyShape(m) }},
	{"gridVideoRenderer", func(m map[string]interface{}) rendererShape { return legacyShape(m) }},
	{"compactVideoRenderer", func(m map[string]interface{}) rendererShape { return legacyShape(m) }},
	{"playlistVideoRenderer", func(m map[string]interface{}) rendererShape { return legacyShape(m) }},
}

// Walker collects video records from a decoded structured payload. The
// payload is arbitrary JSON: objects may be shared or cyclic when it was
// built in-process, so every object and array is visited once.
type Walker struct {
	logger utils.Logger
}

// NewWalker creates a walker
func NewWalker(logger utils.Logger) *Walker {
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Walker{logger: utils.NewModuleLogger(logger, "walker")}
}

// Walk returns the records found under root keyed by video id. Records
// without an id are dropped; the first record seen for an id wins.
func (w *Walker) Walk(root interface{}) map[string]types.VideoRecord {
	records := make(map[string]types.VideoRecord)
	visited := make(map[uintptr]bool)
	stack := []interface{}{root}

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch v := node.(type) {
		case map[string]interface{}:
			if seen(visited, v) {
				continue
			}
			for _, shape := range shapeKeys {
				body, ok := v[shape.key].(map[string]interface{})
				if !ok {
					continue
				}
				record, ok := w.build(shape.key, shape.build(body))
				if ok && record.ID != "" {
					if _, dup := records[record.ID]; !dup {
						records[record.ID] = record
					}
				}
			}
			for _, child := range v {
				stack = append(stack, child)
			}
		case []interface{}:
			if seen(visited, v) {
				continue
			}
			for i := len(v) - 1; i >= 0; i-- {
				stack = append(stack, v[i])
			}
		}
	}
	return records
}

func seen(visited map[uintptr]bool, container interface{}) bool {
	ptr := reflect.ValueOf(container).Pointer()
	if ptr == 0 {
		return false
	}
	if visited[ptr] {
		return true
	}
	visited[ptr] = true
	return false
}

// build converts a renderer, skipping it when its layout is malformed
func (w *Walker) build(key string, shape rendererShape) (record types.VideoRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := utils.NewError(utils.ErrCodeMalformedData, fmt.Sprintf("%v", r)).
				WithSeverity(utils.SeverityWarning).
				WithContext("renderer", key)
			w.logger.Warnf("skipping malformed renderer: %v", err)
			ok = false
		}
	}()
	return shape.record(), true
}

func (l lockupShape) record() types.VideoRecord {
	record := types.VideoRecord{
		ID:    stringAt(l, "contentId"),
		Title: cleanText(textOf(dig(l, "metadata", "lockupMetadataViewModel", "title"))),
	}

	rows, _ := dig(l, "metadata", "lockupMetadataViewModel", "metadata",
		"contentMetadataViewModel", "metadataRows").([]interface{})
	for _, row := range rows {
		parts, _ := dig(row, "metadataParts").([]interface{})
		for _, part := range parts {
			classifyMetadata(&record, cleanText(textOf(dig(part, "text"))))
		}
	}

	overlays, _ := dig(l, "contentImage", "thumbnailViewModel", "overlays").([]interface{})
	for _, overlay := range overlays {
		if record.DurationText != "" {
			break
		}
		for _, path := range [][]interface{}{
			{"thumbnailOverlayBadgeViewModel", "thumbnailBadges"},
			{"thumbnailBottomOverlayViewModel", "badges"},
		} {
			badges, _ := dig(overlay, path...).([]interface{})
			for _, badge := range badges {
				text := cleanText(textOf(dig(badge, "thumbnailBadgeViewModel", "text")))
				if DurationPrefixRegex.MatchString(text) {
					record.DurationText = text
					break
				}
			}
		}
	}
	return record
}

func (l legacyShape) record() types.VideoRecord {
	record := types.VideoRecord{
		ID:    stringAt(l, "videoId"),
		Title: cleanText(textOf(l["title"])),
	}

	for _, key := range []string{"viewCountText", "shortViewCountText", "publishedTimeText"} {
		classifyMetadata(&record, cleanText(textOf(l[key])))
	}

	if text := cleanText(textOf(l["lengthText"])); DurationPrefixRegex.MatchString(text) {
		record.DurationText = text
	}
	if record.DurationText == "" {
		overlays, _ := l["thumbnailOverlays"].([]interface{})
		for _, overlay := range overlays {
			text := cleanText(textOf(dig(overlay, "thumbnailOverlayTimeStatusRenderer", "text")))
			if DurationPrefixRegex.MatchString(text) {
				record.DurationText = text
				break
			}
		}
	}
	return record
}

// classifyMetadata routes one metadata string into the view or publish
// field. Anything else is a channel name or badge and is ignored.
func classifyMetadata(record *types.VideoRecord, text string) {
	if text == "" {
		return
	}
	switch {
	case record.ViewCountText == "" && ViewCountRegex.MatchString(text):
		record.ViewCountText = ViewCountRegex.FindString(text)
	case record.ViewCountText == "" && NoViewsRegex.MatchString(text):
		record.ViewCountText = types.NoViewsSentinel
	case record.PublishTimeText == "" && PublishTimeRegex.MatchString(text):
		record.PublishTimeText = PublishTimeRegex.FindString(text)
	}
}

// dig follows a path of object keys (string) and array indexes (int)
func dig(node interface{}, path ...interface{}) interface{} {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := node.(map[string]interface{})
			if !ok {
				return nil
			}
			node = m[key]
		case int:
			arr, ok := node.([]interface{})
			if !ok || key < 0 || key >= len(arr) {
				return nil
			}
			node = arr[key]
		default:
			return nil
		}
	}
	return node
}

func stringAt(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// textOf reads the text forms used by the payload: plain strings,
// {simpleText}, {content} and {runs: [{text}]}
func textOf(node interface{}) string {
	switch v := node.(type) {
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v["simpleText"].(string); ok {
			return s
		}
		if s, ok := v["content"].(string); ok {
			return s
		}
		if runs, ok := v["runs"].([]interface{}); ok {
			var b strings.Builder
			for _, run := range runs {
				if s, ok := dig(run, "text").(string); ok {
					b.WriteString(s)
				}
			}
			return b.String()
		}
	}
	return ""
}

func cleanText(s string) string {
	return pipeline.TextNormalization.MustApply(s)
}
