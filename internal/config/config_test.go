// internal/config/config_test.go
package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/pipeline"
)

func TestLoadFromBytes(t *testing.T) {
	configYAML := `
log_level: debug
url: "https://www.youtube.com/feed/subscriptions"
filters:
  views_filter_enabled: true
  min_views: 5000
  keyword_filter_enabled: true
  banned_keywords: ["  Reaction ", "reaction", "SPOILER"]
storage:
  type: json
  path: "data/history.json"
watch:
  mutation_debounce: 750ms
`

	config, err := LoadFromBytes([]byte(configYAML))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", config.LogLevel)
	}
	if !config.Filters.ViewsFilterEnabled || config.Filters.MinViews != 5000 {
		t.Errorf("unexpected filters %+v", config.Filters)
	}
	if got := strings.Join(config.Filters.BannedKeywords, ","); got != "reaction,spoiler" {
		t.Errorf("keywords not normalized: %q", got)
	}
	if config.Filters.MaxAge != 1 {
		t.Errorf("omitted max_age should keep its default, got %d", config.Filters.MaxAge)
	}
	if config.Storage.Type != output.StoreJSON || config.Storage.HistoryLimit != 100 {
		t.Errorf("unexpected storage %+v", config.Storage)
	}
	if config.Watch.MutationDebounce != 750*time.Millisecond {
		t.Errorf("mutation debounce = %v", config.Watch.MutationDebounce)
	}
	if config.Watch.ScrollDebounce != 250*time.Millisecond {
		t.Errorf("scroll debounce default not applied: %v", config.Watch.ScrollDebounce)
	}
	if !config.Browser.Headless {
		t.Error("browser should default to headless")
	}
	if config.API.Addr != DefaultAPIAddr {
		t.Errorf("api addr = %q", config.API.Addr)
	}
}

func TestLoadFromBytesExpandsEnv(t *testing.T) {
	t.Setenv("VIDSIEVE_TEST_DSN", "postgres://u:p@localhost/vidsieve")

	config, err := LoadFromBytes([]byte("storage:\n  type: postgresql\n  dsn: ${VIDSIEVE_TEST_DSN}\n"))
	if err != nil {
		t.Fatalf("LoadFromBytes failed: %v", err)
	}
	if config.Storage.DSN != "postgres://u:p@localhost/vidsieve" {
		t.Errorf("DSN not expanded: %q", config.Storage.DSN)
	}
}

func TestLoadFromBytesEmpty(t *testing.T) {
	_, err := LoadFromBytes([]byte("  \n"))
	if !errors.Is(err, ErrEmptyConfig) {
		t.Errorf("expected ErrEmptyConfig, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidsieve.yaml")
	if err := os.WriteFile(path, []byte("log_level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if config.LogLevel != "warn" {
		t.Errorf("expected warn, got %q", config.LogLevel)
	}

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
		{"bad url scheme", func(c *Config) { c.URL = "ftp://example.com" }, "url"},
		{"duration bounds", func(c *Config) { c.Filters.MinDuration = 600; c.Filters.MaxDuration = 60 }, "filters.max_duration"},
		{"storage", func(c *Config) { c.Storage.Type = output.StoreSQLite; c.Storage.Path = "" }, "storage"},
		{"viewport", func(c *Config) { c.Browser.ViewportWidth = 0 }, "browser.viewport"},
		{"schedule", func(c *Config) {
			c.Report.Schedule = "every tuesday"
			c.Report.Path = "r.json"
			c.Report.Format = output.FormatJSON
		}, "report.schedule"},
		{"report path", func(c *Config) { c.Report.Schedule = "@hourly"; c.Report.Format = output.FormatCSV }, "report.path"},
		{"transforms", func(c *Config) { c.TitleTransforms = append(c.TitleTransforms, pipeline.TransformRule{Type: "bogus"}) }, "title_transforms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)

			errs := ValidateConfig(config)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if e.Path == tt.path {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error at %q, got %v", tt.path, errs)
			}
		})
	}

	if errs := ValidateConfig(Default()); len(errs) != 0 {
		t.Errorf("default configuration should be valid: %v", errs)
	}
}

func TestGenerateTemplate(t *testing.T) {
	t.Setenv("VIDSIEVE_PG_DSN", "postgres://localhost/vidsieve")
	t.Setenv("VIDSIEVE_MONGO_URI", "mongodb://localhost:27017")

	for _, name := range TemplateNames() {
		t.Run(name, func(t *testing.T) {
			config, err := GenerateTemplate(name)
			if err != nil {
				t.Fatalf("GenerateTemplate failed: %v", err)
			}

			var buf bytes.Buffer
			if err := SaveToWriter(config, &buf); err != nil {
				t.Fatalf("SaveToWriter failed: %v", err)
			}
			if _, err := LoadFromBytes(buf.Bytes()); err != nil {
				t.Errorf("template %s does not load back: %v\n%s", name, err, buf.String())
			}
		})
	}

	if _, err := GenerateTemplate("ecommerce"); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("VIDSIEVE_FROM_DOTENV=loaded\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VIDSIEVE_FROM_DOTENV", "")
	os.Unsetenv("VIDSIEVE_FROM_DOTENV")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if got := os.Getenv("VIDSIEVE_FROM_DOTENV"); got != "loaded" {
		t.Errorf("expected variable from .env, got %q", got)
	}
}

func TestConfigWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidsieve.yaml")
	if err := os.WriteFile(path, []byte("filters:\n  min_views: 10\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cw, err := NewConfigWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewConfigWatcher failed: %v", err)
	}
	defer cw.Close()

	var mu sync.Mutex
	var got []int64
	changed := make(chan struct{}, 4)
	cw.OnChange(func(c *Config) {
		mu.Lock()
		got = append(got, c.Filters.MinViews)
		mu.Unlock()
		changed <- struct{}{}
	})

	// invalid content is ignored
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * reloadDelay)

	if err := os.WriteFile(path, []byte("filters:\n  min_views: 20000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after file change")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[len(got)-1] != 20000 {
		t.Errorf("reloaded min_views = %v", got)
	}
}
