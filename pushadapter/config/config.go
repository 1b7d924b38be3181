// --- File: pushadapter/config/config.go ---
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-push-client/pkg/push"
)

type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	Namespace string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ServerURL      string
	Username       string
	Password       string
	RequestTimeout time.Duration
	Platform       string

	ReportRegistrationFailures bool
	ReportSendFailures         bool

	ListenAddr string
	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. Apply Environment Overrides
	if val := os.Getenv("PUSH_SERVER_URL"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_SERVER_URL", "source", "env")
		cfg.ServerURL = val
	}
	if val := os.Getenv("PUSH_USERNAME"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_USERNAME", "source", "env")
		cfg.Username = val
	}
	if val := os.Getenv("PUSH_PASSWORD"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_PASSWORD", "source", "env")
		cfg.Password = val
	}
	if val := os.Getenv("PUSH_REQUEST_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid PUSH_REQUEST_TIMEOUT %q: %w", val, err)
		}
		logger.Debug("Overriding config value", "key", "PUSH_REQUEST_TIMEOUT", "source", "env")
		cfg.RequestTimeout = d
	}
	if val := os.Getenv("PUSH_PLATFORM"); val != "" {
		logger.Debug("Overriding config value", "key", "PUSH_PLATFORM", "source", "env")
		cfg.Platform = val
	}
	if val := os.Getenv("PUSH_REPORT_REGISTRATION_FAILURES"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			logger.Debug("Overriding config value", "key", "PUSH_REPORT_REGISTRATION_FAILURES", "source", "env")
			cfg.ReportRegistrationFailures = enabled
		}
	}
	if val := os.Getenv("PUSH_REPORT_SEND_FAILURES"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			logger.Debug("Overriding config value", "key", "PUSH_REPORT_SEND_FAILURES", "source", "env")
			cfg.ReportSendFailures = enabled
		}
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		var cleanOrigins []string
		for _, o := range strings.Split(corsOrigins, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				cleanOrigins = append(cleanOrigins, trimmed)
			}
		}
		cfg.CorsConfig.AllowedOrigins = cleanOrigins
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// 2. Final Validation
	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server_url is required (set via YAML or PUSH_SERVER_URL env var)")
	}
	if cfg.Platform == "" {
		cfg.Platform = push.PlatformApple
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Redis.Enabled && cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis.addr is required when redis is enabled (set via YAML or REDIS_ADDR env var)")
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 24 * time.Hour
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}
