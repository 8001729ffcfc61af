package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"hukudok/internal/codec"
	"hukudok/internal/entitycode"
	"hukudok/internal/scanner"
)

// ValidationSeverity represents the severity of a validation issue.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ConfigValidationError represents a single validation issue.
type ConfigValidationError struct {
	Field    string             // Config field with issue (e.g., "intakeDirectories[0]")
	Message  string             // Human-readable description
	Severity ValidationSeverity // "error" or "warning"
}

// ValidationResult contains all validation findings.
type ValidationResult struct {
	Errors   []ConfigValidationError
	Warnings []ConfigValidationError
	Valid    bool // True if no errors (warnings OK)
}

func (r *ValidationResult) add(issues []ConfigValidationError) {
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			r.Errors = append(r.Errors, issue)
		} else {
			r.Warnings = append(r.Warnings, issue)
		}
	}
}

// ValidateConfig checks the configuration for errors and returns all findings.
func ValidateConfig(cfg *Configuration) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ConfigValidationError{},
		Warnings: []ConfigValidationError{},
	}

	result.add(ValidatePaths(cfg))
	result.add(ValidateLayout(cfg))
	result.add(ValidateCodes(cfg))
	result.add(ValidatePolicies(cfg))

	result.Valid = len(result.Errors) == 0
	return result
}

func errorAt(field, message string) ConfigValidationError {
	return ConfigValidationError{Field: field, Message: message, Severity: SeverityError}
}

func warningAt(field, message string) ConfigValidationError {
	return ConfigValidationError{Field: field, Message: message, Severity: SeverityWarning}
}

// ValidatePaths checks that intake directories exist, that the archive
// directory exists or can be created and that it does not overlap an intake
// directory.
func ValidatePaths(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	for i, dir := range cfg.IntakeDirectories {
		field := formatField("intakeDirectories", i)
		info, err := os.Stat(dir)
		if err != nil {
			switch {
			case os.IsNotExist(err):
				errors = append(errors, errorAt(field, "directory does not exist: "+dir))
			case os.IsPermission(err):
				errors = append(errors, errorAt(field, "directory is not accessible: "+dir))
			default:
				errors = append(errors, errorAt(field, "error accessing directory: "+err.Error()))
			}
			continue
		}
		if !info.IsDir() {
			errors = append(errors, errorAt(field, "path is not a directory: "+dir))
		}
	}

	if cfg.ArchiveDirectory != "" {
		if issue, ok := checkCreatable("archiveDirectory", cfg.ArchiveDirectory); !ok {
			errors = append(errors, issue)
		}
		for i, dir := range cfg.IntakeDirectories {
			if directoriesOverlap(dir, cfg.ArchiveDirectory) {
				errors = append(errors, errorAt("archiveDirectory",
					"archive directory \""+cfg.ArchiveDirectory+"\" overlaps intake directory at index "+strconv.Itoa(i)))
			}
		}
	}

	if cfg.ReferenceLists != "" {
		if _, err := os.Stat(cfg.ReferenceLists); err != nil {
			errors = append(errors, warningAt("referenceLists",
				"reference lists not readable, enrichment disabled: "+cfg.ReferenceLists))
		}
	}

	return errors
}

// checkCreatable reports whether dir exists as a directory or could be
// created inside a writable parent.
func checkCreatable(field, dir string) (ConfigValidationError, bool) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errorAt(field, "path exists but is not a directory: "+dir), false
		}
		return ConfigValidationError{}, true
	}
	if !os.IsNotExist(err) {
		return errorAt(field, "error accessing directory: "+err.Error()), false
	}

	parentDir := filepath.Dir(dir)
	parentInfo, err := os.Stat(parentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return errorAt(field, "parent directory does not exist: "+parentDir), false
		}
		return errorAt(field, "error accessing parent directory: "+err.Error()), false
	}
	if !parentInfo.IsDir() {
		return errorAt(field, "parent path is not a directory: "+parentDir), false
	}
	if !isDirectoryWritable(parentDir) {
		return errorAt(field, "parent directory is not writable: "+parentDir), false
	}
	return ConfigValidationError{}, true
}

// formatField creates a field reference string for validation errors.
func formatField(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// isDirectoryWritable checks if a directory is writable by attempting to create a temp file.
func isDirectoryWritable(dir string) bool {
	f, err := os.CreateTemp(dir, ".hukudok_write_test*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// directoriesOverlap checks if two directories overlap (one is parent/ancestor of the other).
func directoriesOverlap(dir1, dir2 string) bool {
	clean1 := filepath.Clean(dir1)
	clean2 := filepath.Clean(dir2)

	if clean1 == clean2 {
		return true
	}
	if strings.HasPrefix(clean2, clean1+string(filepath.Separator)) {
		return true
	}
	return strings.HasPrefix(clean1, clean2+string(filepath.Separator))
}

// ValidateLayout checks the delimiter, expected length and extension.
func ValidateLayout(cfg *Configuration) []ConfigValidationError {
	if cfg.Layout == nil {
		return nil
	}
	var errors []ConfigValidationError
	layout := cfg.Layout

	if utf8.RuneCountInString(layout.Delimiter) != 1 || layout.Delimiter[0] >= utf8.RuneSelf {
		errors = append(errors, errorAt("layout.delimiter",
			"delimiter must be a single ASCII character: \""+layout.Delimiter+"\""))
	} else if nominal := codec.NominalLength(layout.Delimiter); layout.ExpectedLength != 0 && layout.ExpectedLength != nominal {
		errors = append(errors, warningAt("layout.expectedLength",
			"expectedLength "+strconv.Itoa(layout.ExpectedLength)+" differs from the field table total "+strconv.Itoa(nominal)+"; every filename will be rejected"))
	}

	if layout.ExpectedLength < 0 {
		errors = append(errors, errorAt("layout.expectedLength", "expectedLength must be positive"))
	}

	if layout.Extension != "" && !strings.HasPrefix(layout.Extension, ".") {
		errors = append(errors, errorAt("layout.extension",
			"extension must start with a dot: \""+layout.Extension+"\""))
	}

	return errors
}

// ValidateCodes checks the extra name tables.
func ValidateCodes(cfg *Configuration) []ConfigValidationError {
	if cfg.Codes == nil {
		return nil
	}
	var errors []ConfigValidationError

	for i, alias := range cfg.Codes.Aliases {
		field := formatField("codes.aliases", i)
		if strings.TrimSpace(alias.Fragment) == "" {
			errors = append(errors, errorAt(field+".fragment", "alias fragment cannot be empty"))
		}
		if alias.Code == "" {
			errors = append(errors, errorAt(field+".code", "alias code cannot be empty"))
		} else if utf8.RuneCountInString(alias.Code) > entitycode.Width {
			errors = append(errors, errorAt(field+".code",
				"alias code \""+alias.Code+"\" is longer than "+strconv.Itoa(entitycode.Width)+" characters"))
		}
	}

	for i, token := range cfg.Codes.CompanyTokens {
		if strings.TrimSpace(token) == "" {
			errors = append(errors, warningAt(formatField("codes.companyTokens", i), "empty company token is ignored"))
		}
	}
	for i, title := range cfg.Codes.Titles {
		if strings.TrimSpace(title) == "" {
			errors = append(errors, warningAt(formatField("codes.titles", i), "empty title is ignored"))
		}
	}

	return errors
}

// ValidatePolicies checks that policy values are valid.
func ValidatePolicies(cfg *Configuration) []ConfigValidationError {
	var errors []ConfigValidationError

	if cfg.SymlinkPolicy != "" {
		switch cfg.SymlinkPolicy {
		case scanner.SymlinkPolicyFollow, scanner.SymlinkPolicySkip, scanner.SymlinkPolicyError:
		default:
			errors = append(errors, errorAt("symlinkPolicy",
				"invalid symlink policy: \""+cfg.SymlinkPolicy+"\". Must be \"follow\", \"skip\", or \"error\""))
		}
	}

	if cfg.ScanDepth != nil && *cfg.ScanDepth < -1 {
		errors = append(errors, errorAt("scanDepth", "scanDepth must be -1 (unlimited) or a non-negative integer"))
	}

	if cfg.Workers < 0 {
		errors = append(errors, errorAt("workers", "workers must be at least 1"))
	}

	if cfg.LogLevel != "" {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug", "info", "warn", "error":
		default:
			errors = append(errors, warningAt("logLevel",
				"unknown log level \""+cfg.LogLevel+"\", using info"))
		}
	}

	if cfg.Watch != nil {
		if cfg.Watch.DebounceSeconds < 0 {
			errors = append(errors, errorAt("watch.debounceSeconds", "debounceSeconds cannot be negative"))
		}
		if cfg.Watch.StableThresholdMs < 0 {
			errors = append(errors, errorAt("watch.stableThresholdMs", "stableThresholdMs cannot be negative"))
		}
		for i, pattern := range cfg.Watch.IgnorePatterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				errors = append(errors, errorAt(formatField("watch.ignorePatterns", i),
					"invalid glob pattern: \""+pattern+"\""))
			}
		}
	}

	return errors
}
