// Package config loads and validates the gateway configuration from a YAML
// file, environment overrides, and defaults.
package config

import "fmt"

// DefaultAPIVersion is the Azure OpenAI api-version used when none is set.
const DefaultAPIVersion = "2024-07-18-preview"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			Port:           8787,
			Bind:           "loopback",
			AllowedOrigins: []string{"*"},
		},
		Azure: AzureConfig{
			APIVersion: DefaultAPIVersion,
		},
		Access: AccessConfig{
			FeatureFlag: "ai_chat_enabled",
		},
		Store: StoreConfig{
			Path: "coachgw.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
