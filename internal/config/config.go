package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		Migrate  bool   `mapstructure:"migrate"`
	} `mapstructure:"db"`
	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Gateway struct {
		APIKeys          []string      `mapstructure:"api_keys"`
		PracticeKeys     []PracticeKey `mapstructure:"practice_keys"`
		AllowAgentUnmask bool          `mapstructure:"allow_agent_unmask"`
		CORSOrigins      []string      `mapstructure:"cors_origins"`
		AuditTimeout     time.Duration `mapstructure:"audit_timeout"`
		AuditDrain       time.Duration `mapstructure:"audit_drain_timeout"`
	} `mapstructure:"gateway"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// PracticeKey binds an API key to one practice. It is a list entry rather
// than a map because viper lower-cases map keys.
type PracticeKey struct {
	Key        string `mapstructure:"key"`
	PracticeID string `mapstructure:"practice_id"`
}

// PracticeKeyMap returns the practice bindings keyed by API key.
func (c *Config) PracticeKeyMap() map[string]string {
	m := make(map[string]string, len(c.Gateway.PracticeKeys))
	for _, pk := range c.Gateway.PracticeKeys {
		if pk.Key != "" {
			m[pk.Key] = pk.PracticeID
		}
	}
	return m
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// Validate rejects configurations the gateway cannot start with.
func (c *Config) Validate() error {
	if len(c.Gateway.APIKeys) == 0 && len(c.Gateway.PracticeKeys) == 0 {
		return errors.New("gateway.api_keys must list at least one key")
	}
	switch c.Storage.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	for _, pk := range c.Gateway.PracticeKeys {
		if strings.TrimSpace(pk.Key) == "" || strings.TrimSpace(pk.PracticeID) == "" {
			return errors.New("gateway.practice_keys entries need key and practice_id")
		}
	}
	if c.TLS.Enable && (c.TLS.CertFile == "" || c.TLS.KeyFile == "") {
		return errors.New("tls.cert_file and tls.key_file are required when tls.enable is set")
	}
	return nil
}

// LoadConfig loads the configuration from a file and the environment. An
// empty path searches ./config.yaml and ./config/config.yaml; a missing file
// is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("gateway.allow_agent_unmask", "MCP_ALLOW_AGENT_UNMASK")
	// list-valued variables are comma separated; they are split below
	_ = v.BindEnv("mcp_api_keys", "MCP_API_KEYS")
	_ = v.BindEnv("mcp_cors_origins", "MCP_CORS_ORIGINS")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if raw := v.GetString("mcp_api_keys"); raw != "" {
		config.Gateway.APIKeys = splitList(raw)
	}
	if raw := v.GetString("mcp_cors_origins"); raw != "" {
		config.Gateway.CORSOrigins = splitList(raw)
	}
	config.Gateway.APIKeys = splitList(strings.Join(config.Gateway.APIKeys, ","))
	config.Storage.Driver = strings.ToLower(strings.TrimSpace(config.Storage.Driver))

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	// SSE streams are long lived, so writes are unbounded by default
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "crm")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.migrate", false)

	v.SetDefault("storage.driver", DriverPostgres)

	v.SetDefault("gateway.api_keys", []string{})
	v.SetDefault("gateway.allow_agent_unmask", false)
	v.SetDefault("gateway.cors_origins", []string{})
	v.SetDefault("gateway.audit_timeout", 5*time.Second)
	// pending audit writes get their own budget after HTTP has drained
	v.SetDefault("gateway.audit_drain_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tls.enable", false)
	v.SetDefault("tls.hostnames", []string{"localhost", "127.0.0.1"})
}

// splitList splits a comma separated list, trimming blanks.
func splitList(raw string) []string {
	out := []string{}
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
