// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	tmpfile, err := os.CreateTemp("", "config.*.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(tmpfile.Name()) })

	_, err = tmpfile.Write([]byte(content))
	require.NoError(t, err)
	tmpfile.Close()
	return tmpfile.Name()
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvDatabaseURL, "")

	path := writeTempConfig(t, `
server:
  host: testhost
  port: 9090

api:
  base_path: /api

auth:
  jwt_secret: file-secret
  token_lifetime: 24h
  session_timeout: 500ms
  require_verification_code: true

redis:
  addr: cache:6380
  db: 2

postgres:
  enabled: true
  host: db
  user: admin
  dbname: products

metrics:
  enabled: true
  path: /metrics
`)

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "testhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/api", cfg.API.BasePath)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 500*time.Millisecond, cfg.Auth.SessionTimeout)
	assert.True(t, cfg.Auth.RequireVerificationCode)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "host=db port=5432 user=admin password= dbname=products sslmode=disable", cfg.PostgresDSN())
	assert.Equal(t, true, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultValues(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvRedisAddr, "")
	t.Setenv(EnvDatabaseURL, "")

	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	assert.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/", cfg.API.BasePath)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 2*time.Second, cfg.Auth.SessionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Auth.VerificationCodeTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvJWTSecret, "env-secret")
	t.Setenv(EnvRedisAddr, "redis.internal:6379")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@db/app")

	cfg, err := LoadConfig(writeTempConfig(t, "auth:\n  jwt_secret: file-secret\n"))
	assert.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres://u:p@db/app", cfg.PostgresDSN())
}

func TestValidate(t *testing.T) {
	t.Run("MissingSecret", func(t *testing.T) {
		cfg := &Config{}
		cfg.Auth.TokenLifetime = time.Hour
		assert.Error(t, cfg.Validate())
	})

	t.Run("MailWithoutHost", func(t *testing.T) {
		cfg := &Config{}
		cfg.Auth.JWTSecret = "s"
		cfg.Auth.TokenLifetime = time.Hour
		cfg.Mail.Enabled = true
		assert.Error(t, cfg.Validate())
	})

	t.Run("PasswordCostOutOfRange", func(t *testing.T) {
		for _, cost := range []int{1, 32, 64} {
			cfg := &Config{}
			cfg.Auth.JWTSecret = "s"
			cfg.Auth.TokenLifetime = time.Hour
			cfg.Auth.PasswordCost = cost
			assert.Error(t, cfg.Validate(), "cost %d", cost)
		}
	})

	t.Run("Valid", func(t *testing.T) {
		for _, cost := range []int{0, 4, 12, 31} {
			cfg := &Config{}
			cfg.Auth.JWTSecret = "s"
			cfg.Auth.TokenLifetime = time.Hour
			cfg.Auth.PasswordCost = cost
			assert.NoError(t, cfg.Validate(), "cost %d", cost)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ADMINAPI_TEST_VALUE=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ADMINAPI_TEST_VALUE") })

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-dotenv", os.Getenv("ADMINAPI_TEST_VALUE"))
}
