package config

// Config is the root configuration for the coach gateway.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway,omitempty"`
	Azure   AzureConfig   `yaml:"azure,omitempty"`
	Access  AccessConfig  `yaml:"access,omitempty"`
	Store   StoreConfig   `yaml:"store,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// GatewayConfig controls the gateway HTTP server.
type GatewayConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string   `yaml:"customBindHost,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// AzureConfig holds the Azure OpenAI upstream settings. Endpoint, APIKey and
// Deployment are required before any chat request can be served.
type AzureConfig struct {
	Endpoint           string `yaml:"endpoint,omitempty"`
	APIKey             string `yaml:"apiKey,omitempty"`
	Deployment         string `yaml:"deployment,omitempty"`
	FallbackDeployment string `yaml:"fallbackDeployment,omitempty"`
	APIVersion         string `yaml:"apiVersion,omitempty"`
}

// Complete reports whether the minimum upstream configuration is present.
func (a AzureConfig) Complete() bool {
	return a.Endpoint != "" && a.APIKey != "" && a.Deployment != ""
}

// AccessConfig controls the access gates applied before a chat request runs.
type AccessConfig struct {
	// FeatureFlag is the flag key that must be enabled for chat to be served.
	FeatureFlag string `yaml:"featureFlag,omitempty"`
}

// StoreConfig configures the SQLite database backing tokens, profiles,
// feature flags and usage records.
type StoreConfig struct {
	// Path is the SQLite database file. ":memory:" gives an ephemeral store.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
