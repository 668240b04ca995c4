package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, WaitBetween, cfg.Load.Wait.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Load.Thresholds.MaxAvgResponseTime)
	assert.Equal(t, 99.0, cfg.Load.Thresholds.MinSuccessRate)
	assert.Equal(t, 4.0, cfg.Load.Thresholds.MinRPS)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notesprobe.yaml", `
api:
  base_url: http://localhost:8080/notes/api
  timeout: 5s
  headers:
    User-Agent: notesprobe
load:
  users: 3
  duration: 20s
  method: post
  wait:
    mode: constant
    min: 250ms
    max: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/notes/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "notesprobe", cfg.API.Headers["User-Agent"])
	assert.IsType(t, LoadTest{}, cfg.Load)
	assert.Equal(t, 3, cfg.Load.Users)
	assert.Equal(t, "POST", cfg.Load.Method)
	assert.Equal(t, WaitConstant, cfg.Load.Wait.Mode)
	// Untouched sections keep their defaults.
	assert.Equal(t, "/health-check", cfg.Load.Endpoint)
	assert.True(t, cfg.API.VerifyTLS)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeFile(t, dir, "bad.yaml", "api: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config file")

	cases := map[string]string{
		"relative url":  "api:\n  base_url: /notes/api\n",
		"zero timeout":  "api:\n  timeout: 0s\n",
		"no users":      "load:\n  users: 0\n",
		"bad wait mode": "load:\n  wait:\n    mode: random\n",
		"inverted wait": "load:\n  wait:\n    min: 3s\n    max: 1s\n",
		"success rate":  "load:\n  thresholds:\n    min_success_rate: 120\n",
		"log format":    "log:\n  format: xml\n",
	}
	for name, body := range cases {
		_, err := Load(writeFile(t, dir, "case.yaml", body))
		assert.ErrorContains(t, err, "invalid configuration", name)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NOTESPROBE_BASE_URL", "http://127.0.0.1:9999/api")
	t.Setenv("NOTESPROBE_TIMEOUT", "2s")
	t.Setenv("NOTESPROBE_VERIFY_TLS", "false")
	t.Setenv("NOTESPROBE_EMAIL", "env@example.com")
	t.Setenv("NOTESPROBE_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.Auth.Password = "from-file"
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "http://127.0.0.1:9999/api", cfg.API.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.API.VerifyTLS)
	assert.Equal(t, "env@example.com", cfg.Auth.Email)
	assert.Equal(t, "from-file", cfg.Auth.Password)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("NOTESPROBE_TIMEOUT", "soon")
	assert.Error(t, ApplyEnv(DefaultConfig()))
}

func TestResolve_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "NOTESPROBE_PASSWORD=dotenv-secret\nNOTESPROBE_NAME=Dot Env\n")
	path := writeFile(t, dir, "cfg.yaml", "auth:\n  email: file@example.com\n")
	t.Setenv("NOTESPROBE_NAME", "Real Env")
	t.Cleanup(func() { _ = os.Unsetenv("NOTESPROBE_PASSWORD") })

	cfg, err := Resolve(path, dir)
	require.NoError(t, err)
	assert.Equal(t, "file@example.com", cfg.Auth.Email)
	assert.Equal(t, "dotenv-secret", cfg.Auth.Password)
	// Variables already in the environment win over .env.
	assert.Equal(t, "Real Env", cfg.Auth.Name)
}

func TestResolve_NoFiles(t *testing.T) {
	cfg, err := Resolve("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().API.BaseURL, cfg.API.BaseURL)
}
