// Package config содержит логику чтения конфигурации сервиса наград.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса наград.
type Config struct {
	RunAddress     string `env:"RUN_ADDRESS"`
	StorageDriver  string `env:"STORAGE_DRIVER"`
	DatabaseURI    string `env:"DATABASE_URI"`
	AdNetworkAddr  string `env:"AD_NETWORK_ADDRESS"`
	AdReadyRetries int    `env:"AD_READY_RETRIES"`
	Timezone       string `env:"TIMEZONE"`

	BotToken          string `env:"TELEGRAM_BOT_TOKEN"`
	AllowFallbackUser bool   `env:"ALLOW_FALLBACK_USER"`

	HostChatID      int64  `env:"HOST_CHAT_ID"`
	HostWebhookURL  string `env:"HOST_WEBHOOK_URL"`
	HostQueueSize   int    `env:"HOST_QUEUE_SIZE" envDefault:"256"`
	WebhookRetryMax int    `env:"HOST_WEBHOOK_RETRY_MAX" envDefault:"3"`

	LogHostEvents bool `env:"LOG_HOST_EVENTS"`
}

// ErrMissingBotToken возвращается, когда токен бота не задан и тестовый пользователь выключен:
// без токена подпись initData проверить нельзя.
var ErrMissingBotToken = errors.New("TELEGRAM_BOT_TOKEN is required unless ALLOW_FALLBACK_USER is set")

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envCfg := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.StorageDriver, "s", "", "storage driver: postgres, sqlite or memory")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI or sqlite file path")
	flag.StringVar(&cfg.AdNetworkAddr, "r", "", "comma-separated ad network addresses in priority order")
	flag.IntVar(&cfg.AdReadyRetries, "ad-retries", 0, "ad network readiness checks before giving up, 0 means unlimited")
	flag.StringVar(&cfg.Timezone, "tz", "", "timezone for daily bonus calendar dates")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.StorageDriver != "" {
		cfg.StorageDriver = envCfg.StorageDriver
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.AdNetworkAddr != "" {
		cfg.AdNetworkAddr = envCfg.AdNetworkAddr
	}
	if envCfg.AdReadyRetries != 0 {
		cfg.AdReadyRetries = envCfg.AdReadyRetries
	}
	if envCfg.Timezone != "" {
		cfg.Timezone = envCfg.Timezone
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.StorageDriver == "" {
		if cfg.DatabaseURI != "" {
			cfg.StorageDriver = "postgres"
		} else {
			cfg.StorageDriver = "memory"
		}
	}

	if cfg.AdReadyRetries < 0 {
		return nil, fmt.Errorf("ad ready retries must not be negative: %d", cfg.AdReadyRetries)
	}

	if cfg.BotToken == "" && !cfg.AllowFallbackUser {
		return nil, ErrMissingBotToken
	}

	return cfg, nil
}

// Location возвращает часовой пояс для календарных дат. При пустом значении используется локальный пояс хоста.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AdNetworkAddrs возвращает адреса рекламных сетей в порядке приоритета.
func (c *Config) AdNetworkAddrs() []string {
	var addrs []string
	for _, a := range strings.Split(c.AdNetworkAddr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}
