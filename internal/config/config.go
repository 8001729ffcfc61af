// Package config handles configuration loading and validation for hukudok.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"hukudok/internal/audit"
	"hukudok/internal/codec"
	"hukudok/internal/entitycode"
	"hukudok/internal/scanner"
	"hukudok/internal/watcher"
)

// ConfigErrorType represents the type of configuration error.
type ConfigErrorType string

const (
	FileNotFound    ConfigErrorType = "FILE_NOT_FOUND"
	InvalidJSON     ConfigErrorType = "INVALID_JSON"
	InvalidTOML     ConfigErrorType = "INVALID_TOML"
	ValidationError ConfigErrorType = "VALIDATION_ERROR"
)

// ConfigError represents an error that occurred during configuration loading.
type ConfigError struct {
	Type    ConfigErrorType
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("configuration file not found: %s", e.Path)
	case InvalidJSON:
		return fmt.Sprintf("invalid JSON in configuration file: %s", e.Message)
	case InvalidTOML:
		return fmt.Sprintf("invalid TOML in configuration file: %s", e.Message)
	case ValidationError:
		return fmt.Sprintf("configuration validation error: %s", e.Message)
	default:
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
}

// Defaults for optional settings.
const (
	DefaultRegistryPath = ".hukudok/registry.db"
	DefaultWorkers      = 4
	DefaultLogLevel     = "info"
)

// CodesConfig extends the built-in name tables.
type CodesConfig struct {
	CompanyTokens []string           `json:"companyTokens,omitempty" toml:"companyTokens,omitempty"`
	Titles        []string           `json:"titles,omitempty" toml:"titles,omitempty"`
	Aliases       []entitycode.Alias `json:"aliases,omitempty" toml:"aliases,omitempty"`
}

// Tables returns the built-in tables extended with c.
func (c *CodesConfig) Tables() entitycode.Tables {
	tables := entitycode.DefaultTables()
	if c == nil {
		return tables
	}
	return tables.Extend(entitycode.Tables{
		CompanyTokens: c.CompanyTokens,
		Titles:        c.Titles,
		Aliases:       c.Aliases,
	})
}

// Configuration holds all settings for hukudok.
type Configuration struct {
	IntakeDirectories []string             `json:"intakeDirectories" toml:"intakeDirectories"`
	ArchiveDirectory  string               `json:"archiveDirectory" toml:"archiveDirectory"`
	Layout            *codec.Layout        `json:"layout,omitempty" toml:"layout,omitempty"`
	Codes             *CodesConfig         `json:"codes,omitempty" toml:"codes,omitempty"`
	ReferenceLists    string               `json:"referenceLists,omitempty" toml:"referenceLists,omitempty"`
	RegistryPath      string               `json:"registryPath,omitempty" toml:"registryPath,omitempty"`
	Audit             *audit.AuditConfig   `json:"audit,omitempty" toml:"audit,omitempty"`
	Watch             *watcher.WatchConfig `json:"watch,omitempty" toml:"watch,omitempty"`
	ScanDepth         *int                 `json:"scanDepth,omitempty" toml:"scanDepth,omitempty"`
	SymlinkPolicy     string               `json:"symlinkPolicy,omitempty" toml:"symlinkPolicy,omitempty"`
	Workers           int                  `json:"workers,omitempty" toml:"workers,omitempty"`
	LogLevel          string               `json:"logLevel,omitempty" toml:"logLevel,omitempty"`
}

// Validate checks that the configuration has all required fields.
func (c *Configuration) Validate() error {
	if len(c.IntakeDirectories) == 0 {
		return &ConfigError{
			Type:    ValidationError,
			Message: "intakeDirectories must contain at least one directory",
		}
	}
	for i, dir := range c.IntakeDirectories {
		if strings.TrimSpace(dir) == "" {
			return &ConfigError{
				Type:    ValidationError,
				Message: fmt.Sprintf("intakeDirectories[%d] cannot be empty", i),
			}
		}
	}
	if strings.TrimSpace(c.ArchiveDirectory) == "" {
		return &ConfigError{
			Type:    ValidationError,
			Message: "archiveDirectory cannot be empty",
		}
	}
	return nil
}

// ApplyDefaults fills every optional setting that was left out.
func (c *Configuration) ApplyDefaults() {
	c.ApplyAuditDefaults()

	layout := codec.DefaultLayout()
	if c.Layout == nil {
		c.Layout = &layout
	} else {
		if c.Layout.Delimiter == "" {
			c.Layout.Delimiter = layout.Delimiter
		}
		if c.Layout.ExpectedLength == 0 {
			c.Layout.ExpectedLength = codec.NominalLength(c.Layout.Delimiter)
		}
		if c.Layout.Extension == "" {
			c.Layout.Extension = layout.Extension
		}
	}

	if c.Watch == nil {
		c.Watch = watcher.DefaultWatchConfig()
	} else {
		defaults := watcher.DefaultWatchConfig()
		if c.Watch.DebounceSeconds == 0 {
			c.Watch.DebounceSeconds = defaults.DebounceSeconds
		}
		if c.Watch.StableThresholdMs == 0 {
			c.Watch.StableThresholdMs = defaults.StableThresholdMs
		}
		if len(c.Watch.IgnorePatterns) == 0 {
			c.Watch.IgnorePatterns = defaults.IgnorePatterns
		}
	}

	if c.RegistryPath == "" {
		c.RegistryPath = DefaultRegistryPath
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.SymlinkPolicy == "" {
		c.SymlinkPolicy = scanner.SymlinkPolicySkip
	}
}

// ApplyAuditDefaults ensures the Audit configuration has sensible defaults.
func (c *Configuration) ApplyAuditDefaults() {
	defaults := audit.DefaultAuditConfig()

	if c.Audit == nil {
		c.Audit = &defaults
		return
	}
	if c.Audit.LogDirectory == "" {
		c.Audit.LogDirectory = defaults.LogDirectory
	}
}

// Codec builds the filename codec for the configured layout and name tables.
func (c *Configuration) Codec() *codec.Codec {
	layout := codec.DefaultLayout()
	if c.Layout != nil {
		layout = *c.Layout
	}
	formatter := codec.NewFormatter(entitycode.NewEncoder(c.Codes.Tables()))
	return codec.New(layout, formatter)
}

// ScanOptions returns the scanner options for the intake directories.
func (c *Configuration) ScanOptions() scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	if c.ScanDepth != nil {
		opts.MaxDepth = *c.ScanDepth
	}
	if c.SymlinkPolicy != "" {
		opts.SymlinkPolicy = c.SymlinkPolicy
	}
	if c.Layout != nil && c.Layout.Extension != "" {
		opts.DocumentExtension = c.Layout.Extension
	}
	return opts
}

// SlogLevel returns the configured log level, or info when it is not one of
// debug, info, warn or error.
func (c *Configuration) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// HasIntakeDirectory checks if a directory already exists in intakeDirectories.
func (c *Configuration) HasIntakeDirectory(dir string) bool {
	clean := filepath.Clean(dir)
	for _, d := range c.IntakeDirectories {
		if filepath.Clean(d) == clean {
			return true
		}
	}
	return false
}

// AddIntakeDirectory adds a directory if it doesn't already exist.
// Returns true if the directory was added, false if it was a duplicate.
func (c *Configuration) AddIntakeDirectory(dir string) bool {
	if c.HasIntakeDirectory(dir) {
		return false
	}
	c.IntakeDirectories = append(c.IntakeDirectories, dir)
	return true
}

func isTOML(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".toml")
}

func decode(filePath string, data []byte) (*Configuration, error) {
	var config Configuration
	if isTOML(filePath) {
		if err := toml.Unmarshal(data, &config); err != nil {
			return nil, &ConfigError{Type: InvalidTOML, Path: filePath, Message: err.Error()}
		}
		return &config, nil
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, &ConfigError{Type: InvalidJSON, Path: filePath, Message: err.Error()}
	}
	return &config, nil
}

// Load reads and parses a configuration file. Files ending in .toml are read
// as TOML, everything else as JSON.
func Load(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Type: FileNotFound, Path: filePath}
		}
		return nil, &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error()}
	}

	config, err := decode(filePath, data)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.ApplyDefaults()
	return config, nil
}

// LoadOrCreate loads config if it exists, or returns an empty config with
// defaults if the file doesn't exist.
func LoadOrCreate(filePath string) (*Configuration, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := &Configuration{IntakeDirectories: []string{}}
			config.ApplyDefaults()
			return config, nil
		}
		return nil, &ConfigError{Type: FileNotFound, Path: filePath, Message: err.Error()}
	}

	config, err := decode(filePath, data)
	if err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	return config, nil
}

// Save serializes and writes a configuration, as TOML when filePath ends in
// .toml and as indented JSON otherwise.
func Save(config *Configuration, filePath string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(filePath) {
		data, err = toml.Marshal(config)
		if err != nil {
			return &ConfigError{Type: InvalidTOML, Message: err.Error()}
		}
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return &ConfigError{Type: InvalidJSON, Message: err.Error()}
		}
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return &ConfigError{
			Type:    ValidationError,
			Message: fmt.Sprintf("failed to write configuration file: %s", err.Error()),
		}
	}
	return nil
}
