package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  addr: ":9090"
  read_timeout: 5s
storage:
  driver: Memory
gateway:
  api_keys: ["key-1", " key-2 ", ""]
  allow_agent_unmask: false
  practice_keys:
    - key: Key-Tenant-A
      practice_id: practice-a
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, []string{"key-1", "key-2"}, cfg.Gateway.APIKeys)
	assert.Equal(t, map[string]string{"Key-Tenant-A": "practice-a"}, cfg.PracticeKeyMap())
	assert.Equal(t, 5*time.Second, cfg.Gateway.AuditTimeout)
	assert.Equal(t, 10*time.Second, cfg.Gateway.AuditDrain)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("MCP_API_KEYS", "env-key-1, env-key-2")
	t.Setenv("MCP_CORS_ORIGINS", "https://crm.example.com,https://admin.example.com")
	t.Setenv("MCP_ALLOW_AGENT_UNMASK", "true")
	t.Setenv("DB_HOST", "db.internal")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"env-key-1", "env-key-2"}, cfg.Gateway.APIKeys)
	assert.Equal(t, []string{"https://crm.example.com", "https://admin.example.com"}, cfg.Gateway.CORSOrigins)
	assert.True(t, cfg.Gateway.AllowAgentUnmask)
	assert.Equal(t, "db.internal", cfg.DB.Host)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Empty(t, cfg.Gateway.APIKeys)
	assert.False(t, cfg.Gateway.AllowAgentUnmask)
	assert.EqualError(t, cfg.Validate(), "gateway.api_keys must list at least one key")
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.APIKeys = []string{"k"}
	cfg.Storage.Driver = "sqlite"
	assert.EqualError(t, cfg.Validate(), `unknown storage.driver "sqlite"`)

	cfg.Storage.Driver = DriverPostgres
	cfg.TLS.Enable = true
	assert.Error(t, cfg.Validate())

	cfg.TLS.Enable = false
	cfg.Gateway.PracticeKeys = []PracticeKey{{Key: "k2"}}
	assert.Error(t, cfg.Validate())
}
