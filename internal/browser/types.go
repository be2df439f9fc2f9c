// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// BrowserConfig defines the live browser configuration
type BrowserConfig struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserDataDir    string        `yaml:"user_data_dir,omitempty" json:"user_data_dir,omitempty"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	WaitForElement string        `yaml:"wait_for_element,omitempty" json:"wait_for_element,omitempty"`
	WaitDelay      time.Duration `yaml:"wait_delay,omitempty" json:"wait_delay,omitempty"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	// ExecPath points at a Chrome binary; empty means search PATH
	ExecPath string `yaml:"exec_path,omitempty" json:"exec_path,omitempty"`
}

// DefaultBrowserConfig returns default browser configuration
func DefaultBrowserConfig() *BrowserConfig {
	return &BrowserConfig{
		Headless:       true,
		Timeout:        30 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		WaitForElement: "ytd-app",
		WaitDelay:      2 * time.Second,
		DisableImages:  true,
	}
}

// Evaluator runs JavaScript in a page and decodes the result into res.
// A nil res discards the result.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string, res interface{}) error
}

// BrowserStats contains browser automation statistics
type BrowserStats struct {
	PagesLoaded      int           `json:"pages_loaded"`
	AverageLoadTime  time.Duration `json:"average_load_time"`
	Errors           int           `json:"errors"`
	JavaScriptErrors int           `json:"javascript_errors"`
}
