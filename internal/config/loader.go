package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so the API key can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Azure.APIKey = expandEnvVars(cfg.Azure.APIKey)
	cfg.Azure.Endpoint = expandEnvVars(cfg.Azure.Endpoint)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults plus env overrides only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8787
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.AllowedOrigins == nil {
		cfg.Gateway.AllowedOrigins = []string{"*"}
	}
	if cfg.Azure.APIVersion == "" {
		cfg.Azure.APIVersion = DefaultAPIVersion
	}
	if cfg.Access.FeatureFlag == "" {
		cfg.Access.FeatureFlag = "ai_chat_enabled"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "coachgw.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// applyEnvOverrides reads COACHGW_* and AZURE_OPENAI_* environment variables
// and overrides config values. The AZURE_OPENAI_* names match the deployment
// environment this gateway is provisioned with.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COACHGW_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("COACHGW_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("COACHGW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("COACHGW_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Azure.Endpoint = v
	}
	if v := os.Getenv("AZURE_OPENAI_KEY"); v != "" {
		cfg.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_DEPLOYMENT_MINI"); v != "" {
		cfg.Azure.Deployment = v
	}
	if v := os.Getenv("AZURE_OPENAI_DEPLOYMENT_FALLBACK"); v != "" {
		cfg.Azure.FallbackDeployment = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_VERSION"); v != "" {
		cfg.Azure.APIVersion = v
	}
}
