// internal/output/types.go
package output

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valpere/VidSieve/pkg/types"
)

// StoreType selects a Store implementation
type StoreType string

const (
	StoreMemory     StoreType = "memory"
	StoreJSON       StoreType = "json"
	StoreSQLite     StoreType = "sqlite"
	StorePostgreSQL StoreType = "postgresql"
	StoreMySQL      StoreType = "mysql"
	StoreMongoDB    StoreType = "mongodb"
)

// ValidStoreTypes returns all valid store types
func ValidStoreTypes() []StoreType {
	return []StoreType{StoreMemory, StoreJSON, StoreSQLite, StorePostgreSQL, StoreMySQL, StoreMongoDB}
}

// OutputFormat represents supported export formats
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatCSV   OutputFormat = "csv"
	FormatYAML  OutputFormat = "yaml"
	FormatExcel OutputFormat = "xlsx"
)

// ValidOutputFormats returns all valid export formats
func ValidOutputFormats() []OutputFormat {
	return []OutputFormat{FormatJSON, FormatCSV, FormatYAML, FormatExcel}
}

// FormatFromPath guesses the export format from a file extension
func FormatFromPath(path string) (OutputFormat, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatJSON, true
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV, true
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML, true
	case strings.HasSuffix(lower, ".xlsx"):
		return FormatExcel, true
	}
	return "", false
}

// StoreConfig configures the storage collaborator
type StoreConfig struct {
	Type StoreType `yaml:"type" json:"type"`
	// Path is the JSON file or SQLite database file
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// DSN is the PostgreSQL or MySQL connection string
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	// URI, Database and TablePrefix are used by MongoDB; TablePrefix also names SQL tables
	URI          string        `yaml:"uri,omitempty" json:"uri,omitempty"`
	Database     string        `yaml:"database,omitempty" json:"database,omitempty"`
	TablePrefix  string        `yaml:"table_prefix,omitempty" json:"table_prefix,omitempty"`
	HistoryLimit int           `yaml:"history_limit,omitempty" json:"history_limit,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// BufferSize is the Recorder queue length
	BufferSize int `yaml:"buffer_size,omitempty" json:"buffer_size,omitempty"`
}

// DefaultStoreConfig returns an in-memory store configuration
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Type:         StoreMemory,
		TablePrefix:  "vidsieve",
		Database:     "vidsieve",
		HistoryLimit: types.HistoryLimit,
		Timeout:      10 * time.Second,
		BufferSize:   256,
	}
}

// WithDefaults fills unset fields from DefaultStoreConfig
func (c StoreConfig) WithDefaults() StoreConfig {
	d := DefaultStoreConfig()
	if c.Type == "" {
		c.Type = d.Type
	}
	if c.TablePrefix == "" {
		c.TablePrefix = d.TablePrefix
	}
	if c.Database == "" {
		c.Database = d.Database
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

// Validate checks that the fields the selected store needs are present
func (c StoreConfig) Validate() error {
	switch c.Type {
	case StoreMemory:
	case StoreJSON, StoreSQLite:
		if c.Path == "" {
			return fmt.Errorf("%s store requires a path", c.Type)
		}
	case StorePostgreSQL, StoreMySQL:
		if c.DSN == "" {
			return fmt.Errorf("%s store requires a dsn", c.Type)
		}
	case StoreMongoDB:
		if c.URI == "" {
			return fmt.Errorf("mongodb store requires a uri")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Type)
	}
	if c.TablePrefix != "" {
		if err := ValidateSQLIdentifier(c.TablePrefix); err != nil {
			return fmt.Errorf("invalid table_prefix: %w", err)
		}
	}
	return nil
}

// SQL identifier validation
var (
	// starts with letter or underscore, contains letters, digits, underscores
	sqlIdentifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	// keywords reserved in at least one supported dialect
	reservedWords = map[string]bool{
		"ALL": true, "AND": true, "AS": true, "ASC": true, "BY": true, "CASE": true, "CHECK": true,
		"COLUMN": true, "CREATE": true, "DEFAULT": true, "DELETE": true, "DESC": true, "DISTINCT": true,
		"DROP": true, "FROM": true, "GROUP": true, "HAVING": true, "IN": true, "INDEX": true, "INSERT": true,
		"INTO": true, "IS": true, "JOIN": true, "KEY": true, "LIMIT": true, "NOT": true, "NULL": true,
		"OR": true, "ORDER": true, "PRIMARY": true, "SELECT": true, "SET": true, "TABLE": true, "UNION": true,
		"UNIQUE": true, "UPDATE": true, "USER": true, "VALUES": true, "WHERE": true, "WITH": true,
	}
)

// MaxIdentifierLength leaves room for the table suffixes under the
// PostgreSQL and MySQL limits
const MaxIdentifierLength = 48

// ValidateSQLIdentifier validates that a string is a safe SQL identifier
func ValidateSQLIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(identifier) > MaxIdentifierLength {
		return fmt.Errorf("identifier too long: %d characters (max %d)", len(identifier), MaxIdentifierLength)
	}
	if !sqlIdentifierRegex.MatchString(identifier) {
		return fmt.Errorf("identifier %q contains invalid characters", identifier)
	}
	if reservedWords[strings.ToUpper(identifier)] {
		return fmt.Errorf("identifier %q is a reserved word", identifier)
	}
	return nil
}
