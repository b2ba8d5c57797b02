// Package config provides configuration management for domsync.
//
// Only the environment-coupled settings are configurable: how to reach the
// browser, where to log, and the optional integrations. The form endpoint,
// its field keys, the page selectors and the session timings are
// compile-time constants of their packages.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (highest priority)
//  2. External .env file (optional)
//  3. Embedded .env file (fallback, included in binary)
//  4. Hard-coded defaults (lowest priority)
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// embeddedEnv contains the .env file embedded at build time.
//
// Security note: the embedded .env holds template values only. Tokens and
// keys must come from the environment or an external .env.
//
//go:embed .env
var embeddedEnv string

// Config holds all application configuration. It is immutable after
// LoadConfig returns.
type Config struct {
	// Browser connection
	DevToolsURL    string        // DevTools endpoint of a running Chrome
	AppURL         string        // case-management app URL
	ProfileDir     string        // profile for a launched Chrome
	BrowserTimeout time.Duration // ceiling for one DevTools call

	// Logging
	LogFile   string // log destination; the terminal belongs to the overlay
	DebugMode bool   // debug logging, Telegram notices logged only

	// Telegram notices (optional)
	TelegramBotToken string
	TelegramChatID   string

	// Cloud Translation (optional)
	TranslateAPIKey string

	// Status endpoint (optional); empty disables it
	StatusPort string
}

// LoadConfig loads configuration from the environment.
//
// Loading process:
//  1. Read envFile if given, else ./.env when present, and set its values
//     where the environment has none
//  2. Parse the embedded .env and fill what is still unset
//  3. Read environment variables and apply defaults
//  4. Validate
//
// Returns:
//   - *Config: fully populated configuration
//   - error: validation error, or a missing explicitly requested envFile
func LoadConfig(envFile string) (*Config, error) {
	// Step 1: external .env, below the process environment
	if envFile != "" {
		envMap, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		setUnset(envMap)
	} else if envMap, err := godotenv.Read(); err == nil {
		setUnset(envMap)
	}

	// Step 2: embedded fallback
	if envMap, err := godotenv.Unmarshal(embeddedEnv); err == nil {
		setUnset(envMap)
	}

	// Step 3: build config from environment with defaults
	cfg := &Config{
		DevToolsURL:    os.Getenv("DEVTOOLS_URL"),
		AppURL:         os.Getenv("APP_URL"),
		ProfileDir:     getEnvOrDefault("CHROME_PROFILE_DIR", defaultProfileDir()),
		BrowserTimeout: getEnvDuration("BROWSER_TIMEOUT", 10*time.Second),

		LogFile:   getEnvOrDefault("LOG_FILE", "domsync.log"),
		DebugMode: getEnvBool("DEBUG_MODE", false),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		TranslateAPIKey: os.Getenv("TRANSLATE_API_KEY"),

		StatusPort: os.Getenv("STATUS_PORT"),
	}

	// Step 4: validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the browser can be reached and values are sensible.
//
// Validation rules:
//   - DEVTOOLS_URL or APP_URL must be set
//   - BROWSER_TIMEOUT must be positive
//   - STATUS_PORT, when set, must be a port number
func (c *Config) Validate() error {
	if c.DevToolsURL == "" && c.AppURL == "" {
		return fmt.Errorf("DEVTOOLS_URL or APP_URL environment variable is required")
	}
	if c.BrowserTimeout <= 0 {
		return fmt.Errorf("BROWSER_TIMEOUT must be positive, got %v", c.BrowserTimeout)
	}
	if c.StatusPort != "" {
		port, err := strconv.Atoi(c.StatusPort)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("STATUS_PORT must be a port number, got %q", c.StatusPort)
		}
	}
	return nil
}

// setUnset copies non-empty values into the environment for keys that are
// unset or empty there.
func setUnset(envMap map[string]string) {
	for k, v := range envMap {
		if os.Getenv(k) == "" && v != "" {
			os.Setenv(k, v)
		}
	}
}

// defaultProfileDir keeps the launched Chrome's profile next to the user's
// config so logins survive restarts.
func defaultProfileDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "domsync", "chrome-profile")
}

// getEnvOrDefault returns the environment variable value or a default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns the environment variable as a bool or a default if not set/invalid
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration returns the environment variable as a duration or a default if not set/invalid.
//
// Accepts standard Go duration strings like "5s", "10m", "1h30m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
