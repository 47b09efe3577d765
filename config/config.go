// Package config loads fetcher configuration from the environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all knobs of the fetcher. Every field has a default; a .env
// file next to the binary may override them.
type Config struct {
	// Provider endpoints
	BaseURL   string // PAJ site root
	StartPage string // page listing the downloadable workbooks

	// Download behavior
	HTTPTimeoutSeconds  int
	DownloadConcurrency int
	UserAgent           string

	// Serve mode
	Port    string
	Address string

	// Ambient
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int
	RefreshAt         string // daily refresh time in serve mode, HH:MM
}

// Load reads .env (if present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	// A missing .env is fine, the environment still applies.
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:             getEnv("PAJ_BASE_URL", "https://www.paj.gr.jp"),
		StartPage:           getEnv("PAJ_START_PAGE", "https://www.paj.gr.jp/english/statis/"),
		HTTPTimeoutSeconds:  getIntEnv("HTTP_TIMEOUT_SECONDS", 300),
		DownloadConcurrency: getIntEnv("DOWNLOAD_CONCURRENCY", 4),
		UserAgent:           getEnv("USER_AGENT", "paj-fetcher (https://db.nomics.world)"),
		Port:                getEnv("PORT", "8000"),
		Address:             getEnv("ADDRESS", "127.0.0.1"),
		Env:                 getEnv("ENV", "dev"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogDir:              getEnv("LOG_DIR", ""),
		LogRetentionWeeks:   getIntEnv("LOG_RETENTION_WEEKS", 4),
		RefreshAt:           getEnv("REFRESH_AT", "06:00"),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if err := validateURL(cfg.BaseURL, "PAJ_BASE_URL"); err != nil {
		return err
	}
	if err := validateURL(cfg.StartPage, "PAJ_START_PAGE"); err != nil {
		return err
	}
	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got: %d", cfg.HTTPTimeoutSeconds)
	}
	if cfg.DownloadConcurrency < 1 || cfg.DownloadConcurrency > 32 {
		return fmt.Errorf("DOWNLOAD_CONCURRENCY must be between 1 and 32, got: %d", cfg.DownloadConcurrency)
	}
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if err := validateAddress(cfg.Address); err != nil {
		return err
	}
	if err := validateEnv(cfg.Env); err != nil {
		return err
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogRetentionWeeks < 1 || cfg.LogRetentionWeeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be between 1 and 52, got: %d", cfg.LogRetentionWeeks)
	}
	if err := validateRefreshAt(cfg.RefreshAt); err != nil {
		return err
	}
	return nil
}

func validateURL(raw, name string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got: %s", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %s", name, raw)
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}
	if n < 1024 || n > 65535 {
		return fmt.Errorf("PORT must be between 1024 and 65535, got: %d", n)
	}
	return nil
}

func validateAddress(address string) error {
	if address == "localhost" {
		return nil
	}
	if ip := net.ParseIP(address); ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}
	return nil
}

func validateEnv(env string) error {
	switch strings.ToLower(env) {
	case "dev", "staging", "prod", "test":
		return nil
	}
	return fmt.Errorf("ENV must be one of dev, staging, prod, test, got: %s", env)
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got: %s", level)
}

func validateRefreshAt(at string) error {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return fmt.Errorf("REFRESH_AT must be HH:MM, got: %s", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("REFRESH_AT hour must be 00-23, got: %s", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("REFRESH_AT minute must be 00-59, got: %s", at)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
