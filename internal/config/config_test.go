package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 7*24*time.Hour, cfg.Contest.TokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Contest.SubmissionWindow)
	assert.Equal(t, 15*time.Minute, cfg.Contest.OverdueInterval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Mongo")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 2*time.Hour, cfg.Contest.TokenTTL)
}

func TestLoadDotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contest.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_DRIVER=memory\nSEED_FILE=/etc/contest/seed.yaml\n"), 0o600))

	t.Setenv(DotenvPathEnv, path)
	// gotenv never overrides variables that are already set; pre-register
	// so t.Setenv restores them afterwards.
	t.Setenv("SEED_FILE", "")
	os.Unsetenv("SEED_FILE")
	t.Setenv("STORAGE_DRIVER", "")
	os.Unsetenv("STORAGE_DRIVER")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "/etc/contest/seed.yaml", cfg.Seed.File)
}

func TestLoadMissingDotenvFile(t *testing.T) {
	t.Setenv(DotenvPathEnv, filepath.Join(t.TempDir(), "missing.env"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Storage:  StorageConfig{Driver: DriverPostgres},
			Database: DatabaseConfig{DSN: "postgres://localhost/contest"},
			Contest: ContestConfig{
				TokenTTL:         time.Hour,
				SubmissionWindow: time.Hour,
				OverdueInterval:  time.Minute,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"driver", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"dsn", func(c *Config) { c.Database.DSN = "" }},
		{"mongo", func(c *Config) { c.Storage.Driver = DriverMongo }},
		{"redis", func(c *Config) { c.Redis.Enabled = true }},
		{"ttl", func(c *Config) { c.Contest.TokenTTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
