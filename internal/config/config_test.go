package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "@every 10s", cfg.PollSpec)
	assert.Equal(t, 10, cfg.AlertWindowMinutes)
	assert.True(t, cfg.CameraCheckEnabled())
	assert.Empty(t, cfg.ICS)

	// The default file must exist with 0600 perms.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: "0.0.0.0:9000"
poll: "@every 30s"
alert_window_minutes: 15
ics:
  - url: "https://calendar.example.com/me.ics"
    id: "me"
    name: "My calendar"
speech:
  enabled: false
basic_auth:
  username: "admin"
  password: "hunter2"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "@every 30s", cfg.PollSpec)
	assert.Equal(t, 15*time.Minute, cfg.AlertWindow())
	require.Len(t, cfg.ICS, 1)
	assert.Equal(t, "me", cfg.ICS[0].ID)
	assert.False(t, cfg.Speech.IsEnabled())
	require.NotNil(t, cfg.BasicAuth)
	assert.Equal(t, "admin", cfg.BasicAuth.Username)

	// Unset fields pick up defaults via Normalize.
	assert.Equal(t, 48, cfg.HorizonHours)
	assert.Equal(t, 360, cfg.MaxTrackedAgeMinutes)
	assert.Equal(t, "Moira", cfg.Speech.Voice)
}

// Omitting camera_check and speech.enabled must keep both on; only an
// explicit false turns them off.
func TestLoadOmittedTogglesStayEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: "127.0.0.1:8099"
ics:
  - url: "https://calendar.example.com/me.ics"
    id: "me"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.CameraCheckEnabled())
	assert.True(t, cfg.Speech.IsEnabled())
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8099", cfg.Listen)
	assert.Equal(t, "@every 10s", cfg.PollSpec)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.AlertWindow())
	assert.Equal(t, 48*time.Hour, cfg.Horizon())
	assert.Equal(t, 6*time.Hour, cfg.MaxTrackedAge())
	assert.NotNil(t, cfg.ICS)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "127.0.0.1:7777"
	cfg.ICS = []ICSConfig{{URL: "https://x.example/a.ics", ID: "a", Name: "A"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Listen, loaded.Listen)
	assert.Equal(t, cfg.ICS, loaded.ICS)
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
