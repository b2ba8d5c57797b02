package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key the loader reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DEVTOOLS_URL", "APP_URL", "CHROME_PROFILE_DIR", "BROWSER_TIMEOUT",
		"LOG_FILE", "DEBUG_MODE", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
		"TRANSLATE_API_KEY", "STATUS_PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigRequiresBrowser(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEVTOOLS_URL or APP_URL")
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEVTOOLS_URL", "http://127.0.0.1:9222")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9222", cfg.DevToolsURL)
	assert.Equal(t, 10*time.Second, cfg.BrowserTimeout)
	assert.Equal(t, "domsync.log", cfg.LogFile)
	assert.False(t, cfg.DebugMode)
	assert.Empty(t, cfg.StatusPort)
	assert.Empty(t, cfg.TelegramBotToken)
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_URL", "https://cases.example.com/")
	t.Setenv("BROWSER_TIMEOUT", "3s")
	t.Setenv("DEBUG_MODE", "true")
	t.Setenv("STATUS_PORT", "8090")
	t.Setenv("CHROME_PROFILE_DIR", "/tmp/profile")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://cases.example.com/", cfg.AppURL)
	assert.Equal(t, 3*time.Second, cfg.BrowserTimeout)
	assert.True(t, cfg.DebugMode)
	assert.Equal(t, "8090", cfg.StatusPort)
	assert.Equal(t, "/tmp/profile", cfg.ProfileDir)
}

func TestLoadConfigEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_URL=https://cases.example.com/\nLOG_FILE=/tmp/custom.log\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cases.example.com/", cfg.AppURL)
	assert.Equal(t, "/tmp/custom.log", cfg.LogFile)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_URL", "https://env.example.com/")
	path := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_URL=https://file.example.com/\nBROWSER_TIMEOUT=7s\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/", cfg.AppURL, "environment beats the env file")
	assert.Equal(t, 7*time.Second, cfg.BrowserTimeout, "env file beats the embedded defaults")
	assert.Equal(t, "domsync.log", cfg.LogFile, "embedded defaults fill the rest")
}

func TestDefaultProfileDir(t *testing.T) {
	dir := defaultProfileDir()
	if dir == "" {
		t.Skip("no user config dir")
	}
	assert.Equal(t, "chrome-profile", filepath.Base(dir))
	assert.Equal(t, "domsync", filepath.Base(filepath.Dir(dir)))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "remote", cfg: Config{DevToolsURL: "http://localhost:9222", BrowserTimeout: time.Second}},
		{name: "launch", cfg: Config{AppURL: "https://cases.example.com", BrowserTimeout: time.Second}},
		{name: "no browser", cfg: Config{BrowserTimeout: time.Second}, wantErr: true},
		{name: "zero timeout", cfg: Config{AppURL: "x"}, wantErr: true},
		{name: "bad port", cfg: Config{AppURL: "x", BrowserTimeout: time.Second, StatusPort: "http"}, wantErr: true},
		{name: "port out of range", cfg: Config{AppURL: "x", BrowserTimeout: time.Second, StatusPort: "70000"}, wantErr: true},
		{name: "good port", cfg: Config{AppURL: "x", BrowserTimeout: time.Second, StatusPort: "8090"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("DOMSYNC_TEST_BOOL", "yes")
	assert.True(t, getEnvBool("DOMSYNC_TEST_BOOL", true), "invalid bool keeps default")
	t.Setenv("DOMSYNC_TEST_BOOL", "1")
	assert.True(t, getEnvBool("DOMSYNC_TEST_BOOL", false))

	t.Setenv("DOMSYNC_TEST_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("DOMSYNC_TEST_DURATION", time.Minute))

	t.Setenv("DOMSYNC_TEST_STRING", "")
	assert.Equal(t, "fallback", getEnvOrDefault("DOMSYNC_TEST_STRING", "fallback"))
}
