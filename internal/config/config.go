// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/valpere/VidSieve/internal/browser"
	"github.com/valpere/VidSieve/internal/output"
	"github.com/valpere/VidSieve/internal/watch"
	"github.com/valpere/VidSieve/pkg/types"
)

// ErrEmptyConfig is returned for an empty configuration document
var ErrEmptyConfig = errors.New("configuration data cannot be empty")

// DefaultAPIAddr is where the control server listens unless configured
const DefaultAPIAddr = "127.0.0.1:9464"

// LoadEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; existing variables win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", filename)
		}
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes expands ${ENV} references, applies defaults and validates
func LoadFromBytes(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyConfig
	}

	expanded := os.ExpandEnv(string(data))

	config := base()
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadFromReader loads configuration from an io.Reader
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %w", err)
	}
	return LoadFromBytes(data)
}

// Default returns a configuration with every default applied
func Default() *Config {
	config := base()
	applyDefaults(config)
	return config
}

// base is the document a YAML file is decoded over, so omitted keys keep
// their defaults
func base() *Config {
	return &Config{
		Filters: types.DefaultSettings(),
		Storage: output.DefaultStoreConfig(),
		Watch:   watch.DefaultConfig(),
		Browser: *browser.DefaultBrowserConfig(),
	}
}

// SaveToFile writes the configuration as YAML, creating parent directories
func SaveToFile(config *Config, filename string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := SaveToWriter(config, file); err != nil {
		return err
	}
	return file.Close()
}

// SaveToWriter writes the configuration as YAML
func SaveToWriter(config *Config, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return encoder.Close()
}

// applyDefaults fills every unset field
func applyDefaults(config *Config) {
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	config.Filters = config.Filters.Normalize()
	config.Storage = config.Storage.WithDefaults()

	wd := watch.DefaultConfig()
	if config.Watch.MutationDebounce <= 0 {
		config.Watch.MutationDebounce = wd.MutationDebounce
	}
	if config.Watch.ScrollDebounce <= 0 {
		config.Watch.ScrollDebounce = wd.ScrollDebounce
	}
	if config.Watch.NavigationDelay <= 0 {
		config.Watch.NavigationDelay = wd.NavigationDelay
	}
	if config.Watch.InitialDelay <= 0 {
		config.Watch.InitialDelay = wd.InitialDelay
	}
	if config.Watch.PollRate <= 0 {
		config.Watch.PollRate = wd.PollRate
	}

	bd := browser.DefaultBrowserConfig()
	if config.Browser.Timeout <= 0 {
		config.Browser.Timeout = bd.Timeout
	}
	if config.Browser.ViewportWidth <= 0 {
		config.Browser.ViewportWidth = bd.ViewportWidth
	}
	if config.Browser.ViewportHeight <= 0 {
		config.Browser.ViewportHeight = bd.ViewportHeight
	}
	if config.Browser.WaitForElement == "" {
		config.Browser.WaitForElement = bd.WaitForElement
	}
	if config.Browser.WaitDelay <= 0 {
		config.Browser.WaitDelay = bd.WaitDelay
	}

	if config.API.Addr == "" {
		config.API.Addr = DefaultAPIAddr
	}

	if config.Report.Enabled() && config.Report.Format == "" {
		if format, ok := output.FormatFromPath(config.Report.Path); ok {
			config.Report.Format = format
		} else {
			config.Report.Format = output.FormatJSON
		}
	}
}
