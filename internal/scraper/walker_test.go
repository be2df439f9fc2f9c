// internal/scraper/walker_test.go
package scraper

import (
	"encoding/json"
	"testing"

	"github.com/valpere/VidSieve/pkg/types"
)

const feedPayload = `{
  "contents": {"twoColumnBrowseResultsRenderer": {"tabs": [{"tabRenderer": {"content": {"richGridRenderer": {"contents": [
    {"richItemRenderer": {"content": {"lockupViewModel": {
      "contentId": "lock1",
      "contentType": "LOCKUP_CONTENT_TYPE_VIDEO",
      "contentImage": {"thumbnailViewModel": {"overlays": [
        {"thumbnailOverlayBadgeViewModel": {"thumbnailBadges": [{"thumbnailBadgeViewModel": {"text": "10:01"}}]}}
      ]}},
      "metadata": {"lockupMetadataViewModel": {
        "title": {"content": "Lockup   Title"},
        "metadata": {"contentMetadataViewModel": {"metadataRows": [
          {"metadataParts": [{"text": {"content": "Channel Name"}}]},
          {"metadataParts": [{"text": {"content": "50K views"}}, {"text": {"content": "2 years ago"}}]}
        ]}}
      }}
    }}}},
    {"richItemRenderer": {"content": {"videoRenderer": {
      "videoId": "legacy1",
      "title": {"runs": [{"text": "Legacy "}, {"text": "Title"}]},
      "viewCountText": {"simpleText": "1,234 views"},
      "publishedTimeText": {"simpleText": "5 days ago"},
      "lengthText": {"simpleText": "3:21"}
    }}}},
    {"richItemRenderer": {"content": {"gridVideoRenderer": {
      "videoId": "grid1",
      "title": {"simpleText": "Fresh upload"},
      "viewCountText": {"simpleText": "No views"},
      "thumbnailOverlays": [{"thumbnailOverlayTimeStatusRenderer": {"text": {"simpleText": "0:45"}}}]
    }}}},
    {"richItemRenderer": {"content": {"videoRenderer": "not an object"}}},
    {"richItemRenderer": {"content": {"compactVideoRenderer": {"title": {"simpleText": "No id"}}}}}
  ]}}}}]}}
}`

func decodePayload(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("Failed to decode fixture: %v", err)
	}
	return payload
}

func TestWalker_Walk(t *testing.T) {
	records := NewWalker(nil).Walk(decodePayload(t, feedPayload))

	expected := map[string]types.VideoRecord{
		"lock1": {
			ID:              "lock1",
			Title:           "Lockup Title",
			ViewCountText:   "50K views",
			DurationText:    "10:01",
			PublishTimeText: "2 years ago",
		},
		"legacy1": {
			ID:              "legacy1",
			Title:           "Legacy Title",
			ViewCountText:   "1,234 views",
			DurationText:    "3:21",
			PublishTimeText: "5 days ago",
		},
		"grid1": {
			ID:            "grid1",
			Title:         "Fresh upload",
			ViewCountText: types.NoViewsSentinel,
			DurationText:  "0:45",
		},
	}

	if len(records) != len(expected) {
		t.Fatalf("Expected %d records, got %d: %+v", len(expected), len(records), records)
	}
	for id, want := range expected {
		if got := records[id]; got != want {
			t.Errorf("record %s = %+v, want %+v", id, got, want)
		}
	}
}

func TestWalker_CyclicPayload(t *testing.T) {
	item := map[string]interface{}{
		"videoRenderer": map[string]interface{}{
			"videoId": "cyc1",
			"title":   map[string]interface{}{"simpleText": "Loop"},
		},
	}
	list := []interface{}{item, item}
	root := map[string]interface{}{"items": list}
	item["parent"] = root
	root["self"] = root

	records := NewWalker(nil).Walk(root)
	if len(records) != 1 || records["cyc1"].Title != "Loop" {
		t.Errorf("Expected one record for cyc1, got %+v", records)
	}
}

func TestWalker_FirstRecordWins(t *testing.T) {
	payload := decodePayload(t, `[
		{"videoRenderer": {"videoId": "dup", "title": {"simpleText": "First"}}},
		{"videoRenderer": {"videoId": "dup", "title": {"simpleText": "Second"}}}
	]`)

	records := NewWalker(nil).Walk(payload)
	if records["dup"].Title != "First" {
		t.Errorf("Expected first record to win, got %q", records["dup"].Title)
	}
}

func TestWalker_ScalarRoot(t *testing.T) {
	if got := NewWalker(nil).Walk("just a string"); len(got) != 0 {
		t.Errorf("Expected no records from scalar root, got %+v", got)
	}
	if got := NewWalker(nil).Walk(nil); len(got) != 0 {
		t.Errorf("Expected no records from nil root, got %+v", got)
	}
}

func TestTextOf(t *testing.T) {
	tests := []struct {
		name     string
		node     interface{}
		expected string
	}{
		{"plain string", "abc", "abc"},
		{"simple text", map[string]interface{}{"simpleText": "s"}, "s"},
		{"content", map[string]interface{}{"content": "c"}, "c"},
		{"runs", map[string]interface{}{"runs": []interface{}{
			map[string]interface{}{"text": "a"},
			map[string]interface{}{"text": "b"},
		}}, "ab"},
		{"unknown", 42.0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textOf(tt.node); got != tt.expected {
				t.Errorf("textOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}
