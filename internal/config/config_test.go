package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv(EnvBackendURL, "")

	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
			assert.Equal(t, "http://localhost:3001", cfg.Backend.BaseURL)
			assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
			assert.Equal(t, SessionDriverPostgres, cfg.Session.Driver)
			assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
			assert.Equal(t, "tracker_db", cfg.Database.Database)
			assert.True(t, cfg.RabbitMQ.Enabled)
			assert.Equal(t, "tracker_events", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "tracker.#", cfg.RabbitMQ.BindingKey)
			assert.Equal(t, 4, cfg.Events.Workers)
			assert.Equal(t, 3, cfg.Events.MaxAttempts, "unset keys keep their defaults")
			assert.Equal(t, "job-tracker-web", cfg.App.Name)
			assert.Equal(t, 3*time.Second, cfg.UI.ToastDuration)
		})
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv(EnvBackendURL, "")

	cfg, err := Load("testdata/partial_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://api.internal:3001", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, SessionDriverMemory, cfg.Session.Driver)
	assert.Equal(t, "tracker_session", cfg.Session.CookieName)
	assert.Equal(t, time.Second, cfg.UI.RedirectDelay)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv(EnvBackendURL, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_BackendURLOverride(t *testing.T) {
	t.Setenv(EnvBackendURL, " http://override:4000 ")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://override:4000", cfg.Backend.BaseURL)
}

func TestConfig_ValidateWebConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:      "invalid port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "missing backend url",
			mutate:    func(c *Config) { c.Backend.BaseURL = "" },
			errString: "backend base_url is required",
		},
		{
			name:      "relative backend url",
			mutate:    func(c *Config) { c.Backend.BaseURL = "/api" },
			errString: "invalid backend base_url",
		},
		{
			name:      "zero backend timeout",
			mutate:    func(c *Config) { c.Backend.Timeout = 0 },
			errString: "backend timeout",
		},
		{
			name:      "unknown session driver",
			mutate:    func(c *Config) { c.Session.Driver = "redis" },
			errString: "unknown session driver",
		},
		{
			name:      "postgres sessions need a database",
			mutate:    func(c *Config) { c.Session.Driver = SessionDriverPostgres },
			errString: "database host is required",
		},
		{
			name: "postgres sessions with database",
			mutate: func(c *Config) {
				c.Session.Driver = SessionDriverPostgres
				c.Database = DatabaseConfig{Host: "localhost", Port: 5432, Database: "tracker"}
			},
		},
		{
			name:      "missing cookie name",
			mutate:    func(c *Config) { c.Session.CookieName = "" },
			errString: "cookie_name",
		},
		{
			name: "enabled rabbitmq needs an exchange",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: true, Host: "localhost", Port: 5672}
			},
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "disabled rabbitmq is not checked",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.ValidateWebConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Setenv(EnvBackendURL, "")

	tests := []struct {
		name      string
		filePath  string
		errString string
	}{
		{name: "valid", filePath: "testdata/valid_config.yaml"},
		{name: "invalid port", filePath: "testdata/invalid_port.yaml", errString: "invalid server port: 70000"},
		{name: "missing base url", filePath: "testdata/missing_base_url.yaml", errString: "backend base_url is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)
			require.NoError(t, err)

			err = cfg.ValidateWebConfig()
			if tt.errString == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func TestConfig_ValidateCLIAndWatch(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.ValidateCLIConfig())
	assert.Error(t, cfg.ValidateWatchConfig())

	cfg.RabbitMQ = RabbitMQConfig{
		Enabled:  true,
		Host:     "localhost",
		Port:     5672,
		Exchange: ExchangeConfig{Name: "tracker_events"},
	}
	err := cfg.ValidateWatchConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue name")

	cfg.RabbitMQ.Queue.Name = "tracker_watch"
	assert.NoError(t, cfg.ValidateWatchConfig())
}

func TestPortConstants(t *testing.T) {
	assert.Equal(t, 1, MinPort)
	assert.Equal(t, 65535, MaxPort)
}
