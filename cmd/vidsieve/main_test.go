// cmd/vidsieve/main_test.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/VidSieve/pkg/types"
)

const feedPayload = `{"contents": [
  {"videoRenderer": {"videoId": "aaa", "title": {"simpleText": "Small channel"},
    "viewCountText": {"simpleText": "6K views"}, "publishedTimeText": {"simpleText": "2 weeks ago"},
    "lengthText": {"simpleText": "10:00"}}},
  {"videoRenderer": {"videoId": "bbb", "title": {"simpleText": "Popular"},
    "viewCountText": {"simpleText": "50K views"}, "publishedTimeText": {"simpleText": "2 weeks ago"},
    "lengthText": {"simpleText": "10:00"}}}
]}`

func card(id, title, views string) string {
	return fmt.Sprintf(`<ytd-rich-item-renderer>
		<a id="thumbnail" href="/watch?v=%s"><span class="badge-shape-wiz__text">10:00</span></a>
		<h3><a id="video-title-link" href="/watch?v=%s"><span id="video-title">%s</span></a></h3>
		<div id="metadata-line"><span>%s</span><span>2 weeks ago</span></div>
	</ytd-rich-item-renderer>`, id, id, title, views)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// fixture writes a feed page and a config with a JSON store into a temp dir
func fixture(t *testing.T) (page, cfg, storePath string) {
	t.Helper()
	dir := t.TempDir()
	markup := `<html><head><script>var ytInitialData = ` + feedPayload + `;</script></head><body><div id="contents">` +
		card("aaa", "Small channel", "6K views") +
		card("bbb", "Popular", "50K views") +
		`</div></body></html>`
	page = writeFile(t, dir, "feed.html", markup)

	storePath = filepath.Join(dir, "store.json")
	cfg = writeFile(t, dir, "vidsieve.yaml", fmt.Sprintf(`log_level: error
filters:
  views_filter_enabled: true
  min_views: 10000
storage:
  type: json
  path: %s
`, storePath))
	return page, cfg, storePath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIVersion(t *testing.T) {
	version = "test-version"
	buildTime = "2025-06-23"
	gitCommit = "abc123"

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	for _, want := range []string{"test-version", "2025-06-23", "abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output should contain %q, got: %s", want, out)
		}
	}
}

func TestCLIHelp(t *testing.T) {
	out, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help failed: %v", err)
	}
	for _, name := range []string{"watch", "scan", "walk", "export", "stats", "validate", "template", "version"} {
		if !strings.Contains(out, name) {
			t.Errorf("help output should contain command %q, got: %s", name, out)
		}
	}
}

func TestCLITemplateAndValidate(t *testing.T) {
	out, err := execute(t, "template", "--list")
	if err != nil {
		t.Fatalf("template --list failed: %v", err)
	}
	if !strings.Contains(out, "basic") || !strings.Contains(out, "postgres") {
		t.Errorf("unexpected template list: %s", out)
	}

	path := filepath.Join(t.TempDir(), "full.yaml")
	if _, err := execute(t, "template", "full", "-o", path); err != nil {
		t.Fatalf("template full failed: %v", err)
	}

	out, err = execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("unexpected validate output: %s", out)
	}

	bad := writeFile(t, t.TempDir(), "bad.yaml", "log_level: loud\n")
	if _, err := execute(t, "validate", bad); err == nil {
		t.Error("expected validation error for unknown log level")
	}

	if _, err := execute(t, "template", "nope"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestCLIScan(t *testing.T) {
	page, cfg, _ := fixture(t)
	filtered := filepath.Join(t.TempDir(), "filtered.html")

	out, err := execute(t, "scan", page, "-c", cfg, "--output", filtered)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "Filtered 1 of 2 videos") {
		t.Errorf("unexpected scan summary: %s", out)
	}
	if !strings.Contains(out, "Small channel") || strings.Contains(out, "Popular") {
		t.Errorf("scan should list only the filtered video: %s", out)
	}

	markup, err := os.ReadFile(filtered)
	if err != nil {
		t.Fatalf("filtered page not written: %v", err)
	}
	if !strings.Contains(string(markup), "hidden") {
		t.Error("filtered page should hide the small channel card")
	}
}

func TestCLIScanJSONAndPersist(t *testing.T) {
	page, cfg, storePath := fixture(t)

	out, err := execute(t, "scan", page, "-c", cfg, "--json", "--persist")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	var result scanResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("scan --json output is not JSON: %v\n%s", err, out)
	}
	expected := types.StatsDelta{Views: 1, Total: 1}
	if result.Containers != 2 || result.Delta != expected || len(result.Filtered) != 1 {
		t.Errorf("unexpected scan result %+v", result)
	}
	if result.Filtered[0].Reason != "Views: 6K < 10K" {
		t.Errorf("unexpected reason %q", result.Filtered[0].Reason)
	}

	if _, err := os.Stat(storePath); err != nil {
		t.Fatalf("store file not written: %v", err)
	}

	out, err = execute(t, "stats", "-c", cfg, "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var stats struct {
		Stats   types.StatsDelta `json:"stats"`
		History int              `json:"history_entries"`
	}
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats --json output is not JSON: %v", err)
	}
	if stats.Stats != expected || stats.History != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	out, err = execute(t, "export", "-c", cfg, "--format", "csv")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(out, "Small channel") {
		t.Errorf("csv export should contain the history entry: %s", out)
	}

	xlsx := filepath.Join(t.TempDir(), "report.xlsx")
	if _, err := execute(t, "export", "-c", cfg, "--output", xlsx); err != nil {
		t.Fatalf("xlsx export failed: %v", err)
	}
	if info, err := os.Stat(xlsx); err != nil || info.Size() == 0 {
		t.Errorf("xlsx report not written: %v", err)
	}
}

func TestCLIWalk(t *testing.T) {
	page, cfg, _ := fixture(t)

	out, err := execute(t, "walk", page, "-c", cfg, "--json")
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	var records []types.VideoRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("walk --json output is not JSON: %v", err)
	}
	if len(records) != 2 || records[0].ID != "aaa" || records[1].ViewCountText != "50K views" {
		t.Errorf("unexpected records %+v", records)
	}

	out, err = execute(t, "walk", page, "-c", cfg, "--cross-check")
	if err != nil {
		t.Fatalf("walk --cross-check failed: %v", err)
	}
	if !strings.Contains(out, "2 payload records, 2 rendered cards, 0 mismatches") {
		t.Errorf("unexpected cross-check output: %s", out)
	}

	payload := writeFile(t, t.TempDir(), "payload.json", feedPayload)
	out, err = execute(t, "walk", payload)
	if err != nil {
		t.Fatalf("walk of a JSON payload failed: %v", err)
	}
	if !strings.Contains(out, "2 records") {
		t.Errorf("unexpected walk output: %s", out)
	}

	if _, err := execute(t, "walk", payload, "--cross-check"); err == nil {
		t.Error("cross-check without markup should fail")
	}
}

func TestCLIWatchRequiresURL(t *testing.T) {
	_, cfg, _ := fixture(t)
	if _, err := execute(t, "watch", "-c", cfg); err == nil {
		t.Error("watch without a URL should fail")
	}
}

func TestExitCode(t *testing.T) {
	_, err := execute(t, "scan", "page.html", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
	if code := exitCode(err); code != 2 {
		t.Errorf("exitCode = %d, want 2 for a config error", code)
	}
	if code := exitCode(fmt.Errorf("boom")); code != 1 {
		t.Errorf("exitCode = %d, want 1", code)
	}
}
