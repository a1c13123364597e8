package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	assert.Equal(t, DefaultAPIVersion, cfg.Azure.APIVersion)
	assert.Equal(t, "ai_chat_enabled", cfg.Access.FeatureFlag)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
gateway:
  port: 9000
  allowedOrigins: ["*"]
azure:
  endpoint: https://myresource.openai.azure.com
  apiKey: secret
  deployment: gpt-4o-mini
  fallbackDeployment: gpt-35-turbo
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Gateway.Port)
	assert.Equal(t, []string{"*"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, "https://myresource.openai.azure.com", cfg.Azure.Endpoint)
	assert.Equal(t, "gpt-4o-mini", cfg.Azure.Deployment)
	assert.Equal(t, "gpt-35-turbo", cfg.Azure.FallbackDeployment)
	assert.Equal(t, DefaultAPIVersion, cfg.Azure.APIVersion, "unset apiVersion falls back to default")
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COACHGW_PORT", "7000")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://env.openai.azure.com")
	t.Setenv("AZURE_OPENAI_KEY", "env-key")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_MINI", "env-mini")
	t.Setenv("AZURE_OPENAI_API_VERSION", "2025-01-01-preview")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Gateway.Port)
	assert.Equal(t, "https://env.openai.azure.com", cfg.Azure.Endpoint)
	assert.Equal(t, "env-key", cfg.Azure.APIKey)
	assert.Equal(t, "env-mini", cfg.Azure.Deployment)
	assert.Equal(t, "2025-01-01-preview", cfg.Azure.APIVersion)
	assert.True(t, cfg.Azure.Complete())
}

func TestExpandSensitiveFields(t *testing.T) {
	t.Setenv("MY_SECRET", "resolved")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "azure:\n  apiKey: ${MY_SECRET}\n  endpoint: https://x.example\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "resolved", cfg.Azure.APIKey)
}

func TestExpandEnvVarsUnset(t *testing.T) {
	assert.Equal(t, "${DEFINITELY_NOT_SET_12345}", expandEnvVars("${DEFINITELY_NOT_SET_12345}"))
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Azure = AzureConfig{
		Endpoint:   "https://x.openai.azure.com",
		APIKey:     "k",
		Deployment: "d",
		APIVersion: DefaultAPIVersion,
	}
	assert.Nil(t, Validate(&cfg))

	cfg.Gateway.Port = 99999
	cfg.Gateway.Bind = "everywhere"
	cfg.Logging.Level = "verbose"
	issues := Validate(&cfg)
	require.Len(t, issues, 3)
	assert.Equal(t, "gateway.port", issues[0].Path)
}

func TestValidateMissingAzure(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	require.NotEmpty(t, issues)

	var paths []string
	for _, i := range issues {
		paths = append(paths, i.Path)
		assert.True(t, i.Warning, "missing azure config must not block startup: %s", i.Path)
	}
	assert.Contains(t, paths, "azure")
	assert.Contains(t, paths, "azure.deployment")
	assert.False(t, cfg.Azure.Complete())
}
