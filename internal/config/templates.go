// internal/config/templates.go
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/pipeline"
)

var templates = map[string]func() *Config{
	"basic":    generateBasicTemplate,
	"full":     generateFullTemplate,
	"postgres": generatePostgresTemplate,
	"mongodb":  generateMongoTemplate,
}

// TemplateNames lists the available templates
func TemplateNames() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenerateTemplate returns a ready-to-edit configuration
func GenerateTemplate(name string) (*Config, error) {
	generate, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q (available: %v)", name, TemplateNames())
	}
	config := generate()
	applyDefaults(config)
	return config, nil
}

// generateBasicTemplate hides low-view videos and keeps stats in memory
func generateBasicTemplate() *Config {
	config := base()
	config.URL = "https://www.youtube.com/feed/subscriptions"
	config.Filters.ViewsFilterEnabled = true
	config.Filters.MinViews = 1000
	return config
}

func generateFullTemplate() *Config {
	config := base()
	config.URL = "https://www.youtube.com/feed/subscriptions"
	config.Filters.ViewsFilterEnabled = true
	config.Filters.DurationFilterEnabled = true
	config.Filters.AgeFilterEnabled = true
	config.Filters.KeywordFilterEnabled = true
	config.Filters.MinViews = 10000
	config.Filters.MinDuration = 120
	config.Filters.MaxDuration = 3600
	config.Filters.MaxAge = 1
	config.Filters.BannedKeywords = []string{"reaction", "spoiler"}

	config.Storage.Type = output.StoreSQLite
	config.Storage.Path = "data/vidsieve.db"

	config.API.Enabled = true

	config.Report.Schedule = "@daily"
	config.Report.Path = "reports/vidsieve.xlsx"
	config.Report.Format = output.FormatExcel

	config.Watch.MutationDebounce = 500 * time.Millisecond

	config.TitleTransforms = pipeline.TransformList{
		{Type: "normalize_spaces"},
		{Type: "strip_prefix", Params: map[string]string{"value": "[LIVE] "}},
	}
	return config
}

func generatePostgresTemplate() *Config {
	config := generateBasicTemplate()
	config.Storage.Type = output.StorePostgreSQL
	config.Storage.DSN = "${VIDSIEVE_PG_DSN}"
	return config
}

func generateMongoTemplate() *Config {
	config := generateBasicTemplate()
	config.Storage.Type = output.StoreMongoDB
	config.Storage.URI = "${VIDSIEVE_MONGO_URI}"
	config.Storage.Database = "vidsieve"
	return config
}
