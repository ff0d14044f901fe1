package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // the config field path, e.g. "storage.backend"
	Value   any    // the invalid value
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStorageBackends returns the list of valid storage backends.
func ValidStorageBackends() []string {
	return []string{"local", "redis"}
}

// Validate checks the Config and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStorageBackends(), c.Storage.Backend) {
		errors = append(errors, ValidationError{
			Field:   "storage.backend",
			Value:   c.Storage.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStorageBackends(), ", ")),
		})
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Address == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.redis.address",
			Value:   c.Storage.Redis.Address,
			Message: "must be set when the redis backend is selected",
		})
	}
	if c.Storage.Backend == "local" && c.Paths.Root == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.root",
			Value:   c.Paths.Root,
			Message: "must be set when the local backend is selected",
		})
	}

	if c.Paths.TemplatesDir == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.templates_dir",
			Value:   c.Paths.TemplatesDir,
			Message: "must not be empty",
		})
	}
	if c.Paths.SessionsDir == "" {
		errors = append(errors, ValidationError{
			Field:   "paths.sessions_dir",
			Value:   c.Paths.SessionsDir,
			Message: "must not be empty",
		})
	}

	if c.Atlassian.JiraURL != "" && !strings.HasPrefix(c.Atlassian.JiraURL, "http") {
		errors = append(errors, ValidationError{
			Field:   "atlassian.jira_url",
			Value:   c.Atlassian.JiraURL,
			Message: "must be an http(s) URL",
		})
	}

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
