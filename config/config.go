// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvJWTSecret   = "JWT_SECRET"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvDatabaseURL = "DATABASE_URL"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	API struct {
		BasePath    string `yaml:"base_path"`
		SwaggerHost string `yaml:"swagger_host"`
	} `yaml:"api"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text or json
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Auth struct {
		JWTSecret               string        `yaml:"jwt_secret"`
		TokenLifetime           time.Duration `yaml:"token_lifetime"`
		SessionTimeout          time.Duration `yaml:"session_timeout"`
		VerificationCodeTTL     time.Duration `yaml:"verification_code_ttl"`
		RequireVerificationCode bool          `yaml:"require_verification_code"`
		PasswordCost            int           `yaml:"password_cost"`
	} `yaml:"auth"`

	Redis struct {
		Addr         string        `yaml:"addr"`
		DB           int           `yaml:"db"`
		Password     string        `yaml:"password"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"redis"`

	Postgres struct {
		Enabled  bool   `yaml:"enabled"`
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		SSLMode  string `yaml:"sslmode"`
		Migrate  bool   `yaml:"migrate"`
	} `yaml:"postgres"`

	Mail struct {
		Enabled  bool          `yaml:"enabled"`
		Host     string        `yaml:"host"`
		Port     int           `yaml:"port"`
		Username string        `yaml:"username"`
		Password string        `yaml:"password"`
		From     string        `yaml:"from"`
		Subject  string        `yaml:"subject"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"mail"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return config, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("error loading %s: %v", name, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Postgres.DSN = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.API.BasePath == "" {
		c.API.BasePath = "/"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Auth.TokenLifetime == 0 {
		c.Auth.TokenLifetime = 7 * 24 * time.Hour
	}
	if c.Auth.SessionTimeout == 0 {
		c.Auth.SessionTimeout = 2 * time.Second
	}
	if c.Auth.VerificationCodeTTL == 0 {
		c.Auth.VerificationCodeTTL = 5 * time.Minute
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 2 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = time.Second
	}

	if c.Postgres.Port == 0 {
		c.Postgres.Port = 5432
	}
	if c.Postgres.SSLMode == "" {
		c.Postgres.SSLMode = "disable"
	}

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Subject == "" {
		c.Mail.Subject = "注册验证码"
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 10 * time.Second
	}
}

// PostgresDSN returns the configured DSN, or builds one from the discrete
// connection fields.
func (c *Config) PostgresDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.DBName,
		c.Postgres.SSLMode,
	)
}

// Validate reports configuration that makes the service unable to start.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret is not set (auth.jwt_secret or %s)", EnvJWTSecret)
	}
	if c.Auth.TokenLifetime <= 0 {
		return fmt.Errorf("auth.token_lifetime must be positive")
	}
	// Zero selects bcrypt.DefaultCost.
	if c.Auth.PasswordCost != 0 && (c.Auth.PasswordCost < bcrypt.MinCost || c.Auth.PasswordCost > bcrypt.MaxCost) {
		return fmt.Errorf("auth.password_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("postgres is enabled but neither dsn nor host is set")
	}
	if c.Mail.Enabled && (c.Mail.Host == "" || c.Mail.From == "") {
		return fmt.Errorf("mail is enabled but host or from address is missing")
	}
	return nil
}
