package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes a single ICS subscription source merged into the
// schedule (public holidays, partner calendars).
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// APIConfig points at the CRUD list endpoint that returns schedule records
// as a JSON array.
type APIConfig struct {
	URL string `yaml:"url" json:"url"`
	// Token, if set, is sent as a Bearer token.
	Token string `yaml:"token,omitempty" json:"-"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// SnapshotConfig controls PNG captures of the calendar page.
type SnapshotConfig struct {
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Output string `yaml:"output" json:"output"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used to place events on calendar days.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale is the BCP 47 tag used to collate string sort keys.
	Locale string `yaml:"locale" json:"locale"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// for reloading events from the sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays and BackfillDays bound the window recurring events are
	// expanded into, relative to now.
	HorizonDays  int `yaml:"horizon_days" json:"horizon_days"`
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// MaxEventsPerCell caps events listed in a month cell before "+N more".
	MaxEventsPerCell int `yaml:"max_events_per_cell" json:"max_events_per_cell"`

	// ExpandRecurrence turns stored recurrence rules into one event per
	// occurrence. Off by default: records render at their stored start/end.
	ExpandRecurrence bool `yaml:"expand_recurrence" json:"expand_recurrence"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the HTTP cache of fetched sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	API APIConfig `yaml:"api" json:"api"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "UTC"
	defaultLocale       = "en"
	defaultRefreshCron  = "*/5 * * * *"
	defaultHorizonDays  = 90
	defaultBackfillDays = 45
	defaultCellLimit    = 3
	defaultCacheDir     = "./var/cache"
	defaultSnapWidth    = 1280
	defaultSnapHeight   = 960
	defaultSnapOutput   = "./var/preview.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           defaultListen,
		Timezone:         defaultTimezone,
		Locale:           defaultLocale,
		RefreshCron:      defaultRefreshCron,
		HorizonDays:      defaultHorizonDays,
		BackfillDays:     defaultBackfillDays,
		MaxEventsPerCell: defaultCellLimit,
		LogLevel:         "info",
		CacheDir:         defaultCacheDir,
		ICS:              []ICSConfig{},
		Snapshot: SnapshotConfig{
			Width:  defaultSnapWidth,
			Height: defaultSnapHeight,
			Output: defaultSnapOutput,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.MaxEventsPerCell <= 0 {
		c.MaxEventsPerCell = defaultCellLimit
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = defaultSnapWidth
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = defaultSnapHeight
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = defaultSnapOutput
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg, err := read(path)
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
	return cfg, nil
}

// read parses an existing config file without first-run side effects.
func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".schedview-config-*.tmp")
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
