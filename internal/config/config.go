package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for event identity and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the status API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SpeechConfig controls spoken announcements of fired notifications.
type SpeechConfig struct {
	// Enabled toggles speech entirely. A pointer so that an omitted key
	// keeps the default (on) while an explicit `enabled: false` disables.
	Enabled *bool `yaml:"enabled" json:"enabled"`
	// ElevenLabsKey, if set, routes speech through the ElevenLabs API
	// instead of the local `say`/`espeak` binary.
	ElevenLabsKey string `yaml:"eleven_labs_key,omitempty" json:"-"`
	// Voice is the local TTS voice name (ignored for ElevenLabs).
	Voice string `yaml:"voice" json:"voice"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the status API.
	Listen string `yaml:"listen" json:"listen"`

	// PollSpec is a robfig/cron schedule string driving the poll cycle,
	// e.g. "@every 10s". The cadence must stay well under the smallest
	// inter-milestone gap (2 minutes) or reminder ordering is not guaranteed.
	PollSpec string `yaml:"poll" json:"poll"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// AlertWindowMinutes is how far before its start an event becomes
	// eligible for display and notification tracking.
	AlertWindowMinutes int `yaml:"alert_window_minutes" json:"alert_window_minutes"`

	// HorizonHours bounds how far ahead recurrence expansion looks.
	HorizonHours int `yaml:"horizon_hours" json:"horizon_hours"`

	// MaxTrackedAgeMinutes bounds how long after first observation an
	// in-progress event keeps its notification record. Past this age the
	// record is dropped and the event goes quiet.
	MaxTrackedAgeMinutes int `yaml:"max_tracked_age_minutes" json:"max_tracked_age_minutes"`

	// CameraCheck toggles the camera-in-use deferral probe. A pointer for
	// the same reason as SpeechConfig.Enabled: omitted means on.
	CameraCheck *bool `yaml:"camera_check" json:"camera_check"`

	// CacheDir is where fetched ICS bodies and HTTP cache metadata live.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Speech SpeechConfig `yaml:"speech" json:"speech"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               "127.0.0.1:8099",
		PollSpec:             "@every 10s",
		LogLevel:             "info",
		AlertWindowMinutes:   10,
		HorizonHours:         48,
		MaxTrackedAgeMinutes: 360,
		CameraCheck:          boolPtr(true),
		CacheDir:             "./var/ics-cache",
		ICS:                  []ICSConfig{},
		Speech: SpeechConfig{
			Enabled: boolPtr(true),
			Voice:   "Moira",
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8099"
	}
	if c.PollSpec == "" {
		c.PollSpec = "@every 10s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.AlertWindowMinutes <= 0 {
		c.AlertWindowMinutes = 10
	}
	if c.HorizonHours <= 0 {
		c.HorizonHours = 48
	}
	if c.MaxTrackedAgeMinutes <= 0 {
		c.MaxTrackedAgeMinutes = 360
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.CameraCheck == nil {
		c.CameraCheck = boolPtr(true)
	}
	if c.Speech.Enabled == nil {
		c.Speech.Enabled = boolPtr(true)
	}
	if c.Speech.Voice == "" {
		c.Speech.Voice = "Moira"
	}
}

// CameraCheckEnabled reports whether the camera-in-use probe is on.
func (c *Config) CameraCheckEnabled() bool {
	return c.CameraCheck == nil || *c.CameraCheck
}

// IsEnabled reports whether speech is on.
func (s *SpeechConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

func boolPtr(b bool) *bool { return &b }

// AlertWindow returns the eligibility lead window as a duration.
func (c *Config) AlertWindow() time.Duration {
	return time.Duration(c.AlertWindowMinutes) * time.Minute
}

// Horizon returns the recurrence expansion horizon as a duration.
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.HorizonHours) * time.Hour
}

// MaxTrackedAge returns the record staleness cutoff as a duration.
func (c *Config) MaxTrackedAge() time.Duration {
	return time.Duration(c.MaxTrackedAgeMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed, write a
//     default config with 0600 perms, and return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// The write is atomic: temp file in the same directory, fsync, chmod 0600,
// rename over the target.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".nextcall-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
