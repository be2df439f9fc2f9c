// internal/config/types.go
package config

import (
	"github.com/valpere/VidSieve/internal/browser"
	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/pipeline"
	"github.com/valpere/VidSieve/internal/watch"
	"github.com/valpere/VidSieve/pkg/types"
)

// Config is the complete VidSieve configuration file
type Config struct {
	// LogLevel is one of debug, info, warn, error
	LogLevel string `yaml:"log_level" json:"log_level"`
	// URL is the feed page opened by the watch command
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	Filters types.Settings        `yaml:"filters" json:"filters"`
	Storage output.StoreConfig    `yaml:"storage" json:"storage"`
	Watch   watch.Config          `yaml:"watch" json:"watch"`
	Browser browser.BrowserConfig `yaml:"browser" json:"browser"`
	API     APIConfig             `yaml:"api" json:"api"`
	Report  ReportConfig          `yaml:"report" json:"report"`

	// TitleTransforms run on every extracted title before filtering
	TitleTransforms pipeline.TransformList `yaml:"title_transforms,omitempty" json:"title_transforms,omitempty"`
}

// APIConfig controls the HTTP control and metrics server
type APIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr,omitempty" json:"addr,omitempty"`
	// Token protects the /api routes as a Bearer token
	Token string `yaml:"token,omitempty" json:"-"`
	// RateLimit is API requests per second; 0 disables limiting
	RateLimit float64 `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// ReportConfig controls the periodic export
type ReportConfig struct {
	// Schedule is a standard five-field cron expression or a descriptor such as @hourly
	Schedule string              `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Path     string              `yaml:"path,omitempty" json:"path,omitempty"`
	Format   output.OutputFormat `yaml:"format,omitempty" json:"format,omitempty"`
}

// Enabled reports whether a periodic report is configured
func (r ReportConfig) Enabled() bool {
	return r.Schedule != ""
}
