// --- File: pushadapter/config/yaml_config.go ---
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled   bool   `yaml:"enabled"`
	TTL       string `yaml:"ttl"`
	Namespace string `yaml:"namespace"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ServerURL                  string          `yaml:"server_url"`
	Username                   string          `yaml:"username"`
	Password                   string          `yaml:"password"`
	RequestTimeout             string          `yaml:"request_timeout"`
	Platform                   string          `yaml:"platform"`
	ReportRegistrationFailures bool            `yaml:"report_registration_failures"`
	ReportSendFailures         *bool           `yaml:"report_send_failures"`
	ListenAddr                 string          `yaml:"listen_addr"`
	CorsConfig                 YamlCorsConfig  `yaml:"cors"`
	RedisConfig                YamlRedisConfig `yaml:"redis"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ServerURL:                  baseCfg.ServerURL,
		Username:                   baseCfg.Username,
		Password:                   baseCfg.Password,
		Platform:                   baseCfg.Platform,
		ReportRegistrationFailures: baseCfg.ReportRegistrationFailures,
		ReportSendFailures:         true,
		ListenAddr:                 baseCfg.ListenAddr,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:      baseCfg.RedisConfig.Addr,
			Password:  baseCfg.RedisConfig.Password,
			DB:        baseCfg.RedisConfig.DB,
			Enabled:   baseCfg.RedisConfig.Enabled,
			Namespace: baseCfg.RedisConfig.Namespace,
		},
	}
	if baseCfg.ReportSendFailures != nil {
		cfg.ReportSendFailures = *baseCfg.ReportSendFailures
	}

	if baseCfg.RequestTimeout != "" {
		d, err := time.ParseDuration(baseCfg.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid request_timeout %q: %w", baseCfg.RequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if baseCfg.RedisConfig.TTL != "" {
		d, err := time.ParseDuration(baseCfg.RedisConfig.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis.ttl %q: %w", baseCfg.RedisConfig.TTL, err)
		}
		cfg.Redis.TTL = d
	}

	logger.Debug("YAML config mapping complete",
		"server_url", cfg.ServerURL,
		"platform", cfg.Platform,
		"listen_addr", cfg.ListenAddr,
	)

	return cfg, nil
}
