package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value. Warning issues
// do not block startup; the gateway answers config_error per request instead.
type ValidationIssue struct {
	Path    string
	Message string
	Warning bool
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
// A missing Azure section is reported so the operator sees it at startup,
// even though the gateway still starts and answers config_error per request.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	if cfg.Azure.Endpoint != "" {
		if _, err := url.Parse(cfg.Azure.Endpoint); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    "azure.endpoint",
				Message: "not a valid URL: " + err.Error(),
			})
		}
	}
	if cfg.Azure.Endpoint == "" || cfg.Azure.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "azure",
			Message: "endpoint and apiKey are required to serve chat requests",
			Warning: true,
		})
	}
	if cfg.Azure.Deployment == "" {
		issues = append(issues, ValidationIssue{
			Path:    "azure.deployment",
			Message: "primary deployment is required to serve chat requests",
			Warning: true,
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
