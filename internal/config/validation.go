// internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/pipeline"
)

// ValidationError is one problem found in a configuration
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ve.Path, ve.Message)
}

// ValidationErrors collects every problem in a configuration
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	messages := make([]string, len(ve))
	for i, e := range ve {
		messages[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s): %s", len(ve), strings.Join(messages, "; "))
}

// reportParser accepts standard cron expressions and descriptors like @every 1h
var reportParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate returns ValidationErrors when the configuration has problems
func (c *Config) Validate() error {
	if errs := ValidateConfig(c); len(errs) > 0 {
		return ValidationErrors(errs)
	}
	return nil
}

// ValidateConfig returns every validation problem, in document order
func ValidateConfig(c *Config) []ValidationError {
	var errs []ValidationError
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log_level", "unknown level %q", c.LogLevel)
	}

	if c.URL != "" {
		u, err := url.Parse(c.URL)
		switch {
		case err != nil:
			add("url", "invalid URL: %v", err)
		case u.Scheme != "http" && u.Scheme != "https":
			add("url", "URL must use http or https")
		case u.Host == "":
			add("url", "URL must include hostname")
		}
	}

	f := c.Filters
	if f.MinViews < 0 {
		add("filters.min_views", "must not be negative")
	}
	if f.MinDuration < 0 {
		add("filters.min_duration", "must not be negative")
	}
	if f.MaxDuration < 0 {
		add("filters.max_duration", "must not be negative")
	}
	if f.MaxDuration > 0 && f.MinDuration > f.MaxDuration {
		add("filters.max_duration", "must be at least min_duration (%d)", f.MinDuration)
	}
	if f.MaxAge < 0 {
		add("filters.max_age", "must not be negative")
	}

	if err := c.Storage.Validate(); err != nil {
		add("storage", "%v", err)
	}
	if c.Storage.HistoryLimit < 0 {
		add("storage.history_limit", "must not be negative")
	}

	if c.Watch.PollRate < 0 {
		add("watch.poll_rate", "must not be negative")
	}
	if c.Watch.MutationDebounce < 0 || c.Watch.ScrollDebounce < 0 || c.Watch.NavigationDelay < 0 || c.Watch.InitialDelay < 0 {
		add("watch", "delays must not be negative")
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		add("browser.viewport", "width and height must be positive")
	}
	if c.Browser.Timeout < 0 {
		add("browser.timeout", "must not be negative")
	}

	if c.API.Enabled && c.API.Addr == "" {
		add("api.addr", "required when the API is enabled")
	}
	if c.API.RateLimit < 0 {
		add("api.rate_limit", "must not be negative")
	}

	if c.Report.Enabled() {
		if _, err := reportParser.Parse(c.Report.Schedule); err != nil {
			add("report.schedule", "invalid cron expression: %v", err)
		}
		if c.Report.Path == "" {
			add("report.path", "required when a schedule is set")
		}
		if !validFormat(c.Report.Format) {
			add("report.format", "unsupported format %q", c.Report.Format)
		}
	}

	if err := pipeline.ValidateTransformRules(c.TitleTransforms); err != nil {
		add("title_transforms", "%v", err)
	}

	return errs
}

func validFormat(format output.OutputFormat) bool {
	for _, f := range output.ValidOutputFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// ParseSchedule parses a report schedule with the rules Validate applies
func ParseSchedule(spec string) (cron.Schedule, error) {
	return reportParser.Parse(spec)
}
