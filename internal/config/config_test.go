package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Proxy.Enabled)
	assert.EqualValues(t, 1<<20, cfg.Server.Proxy.MaxBodyBytes)
	assert.Equal(t, EnvDevelopment, cfg.Client.Environment)
	assert.True(t, cfg.Client.Direct())
	assert.Equal(t, 60*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
}

func TestLoad_Production(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, `
client:
  environment: production
  proxy_base_url: https://grader.example.com/
  timeout: 30s
log:
  level: debug
  format: console
endpoints:
  ollama: http://gpu-box:11434/api/generate
server:
  proxy:
    allowed_hosts: [llm.internal]
`))
	require.NoError(t, err)

	assert.False(t, cfg.Client.Direct())
	assert.Equal(t, "https://grader.example.com/api/proxy", cfg.Client.ProxyURL())
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "http://gpu-box:11434/api/generate", cfg.Endpoints["ollama"])
	assert.Equal(t, []string{"llm.internal"}, cfg.Server.Proxy.AllowedHosts)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "bad body limit", mutate: func(c *Config) { c.Server.Proxy.MaxBodyBytes = 0 }, wantErr: "max_body_bytes"},
		{name: "empty allowed host", mutate: func(c *Config) { c.Server.Proxy.AllowedHosts = []string{" "} }, wantErr: "allowed_hosts"},
		{name: "unknown environment", mutate: func(c *Config) { c.Client.Environment = "staging" }, wantErr: "client.environment"},
		{name: "production without proxy", mutate: func(c *Config) { c.Client.Environment = EnvProduction }, wantErr: "proxy_base_url"},
		{name: "negative timeout", mutate: func(c *Config) { c.Client.Timeout = -time.Second }, wantErr: "client.timeout"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "bad endpoint", mutate: func(c *Config) { c.Endpoints = map[string]string{"gpt-4o": "localhost"} }, wantErr: "endpoints.gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
