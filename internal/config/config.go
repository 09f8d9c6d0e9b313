// Package config loads fitsync configuration from a YAML file, FITSYNC_*
// environment variables and an optional .env file, and validates the
// result against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override, e.g. FITSYNC_API_TOKEN.
const EnvPrefix = "FITSYNC"

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api" json:"api"`
	Store    StoreConfig    `mapstructure:"store" json:"store"`
	Prefs    PrefsConfig    `mapstructure:"prefs" json:"prefs"`
	Bridge   BridgeConfig   `mapstructure:"bridge" json:"bridge"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging"`
	Timeline TimelineConfig `mapstructure:"timeline" json:"timeline"`
}

// APIConfig configures the progress API client.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Token     string        `mapstructure:"token" json:"token"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit" json:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int           `mapstructure:"burst" json:"burst"`
}

// StoreConfig locates the local SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// PrefsConfig locates the key/value stores for run state.
type PrefsConfig struct {
	SharedPath string `mapstructure:"shared_path" json:"shared_path"`
	LegacyPath string `mapstructure:"legacy_path" json:"legacy_path"` // empty disables the fallback
}

// BridgeConfig configures the companion-device endpoint.
type BridgeConfig struct {
	Listen  string `mapstructure:"listen" json:"listen"`
	PeerURL string `mapstructure:"peer_url" json:"peer_url"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level     string `mapstructure:"level" json:"level"`
	File      string `mapstructure:"file" json:"file"`
	SentryDSN string `mapstructure:"sentry_dsn" json:"sentry_dsn"`
}

// TimelineConfig sets the calendar program days are counted in.
type TimelineConfig struct {
	Location string `mapstructure:"location" json:"location"` // IANA name; empty means local time
}

// Default returns the default configuration rooted at the user's data
// directory.
func Default() *Config {
	data := defaultDataPath()
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Store: StoreConfig{Path: filepath.Join(data, "fitsync.db")},
		Prefs: PrefsConfig{
			SharedPath: filepath.Join(data, "defaults.db"),
			LegacyPath: filepath.Join(data, "defaults.yaml"),
		},
		Bridge: BridgeConfig{Listen: "127.0.0.1:8787"},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(data, "fitsync.log"),
		},
	}
}

// Load reads configuration. file may be empty, in which case config.yaml
// is looked up in the user's config directory and the working directory;
// a missing file is not an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from the given files (".env" when
// none are given). Variables already set in the environment win. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			slog.Debug("no env file", "path", p)
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Validate checks cfg against the embedded schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		errs := cueerrors.Errors(err)
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			format, args := e.Msg()
			msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(e.Path(), "."), fmt.Sprintf(format, args...)))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves the timeline location.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timeline.Location
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeline location %q: %w", name, err)
	}
	return loc, nil
}

// Configured reports whether the API is reachable in principle.
func (c *Config) Configured() bool {
	return c.API.BaseURL != "" && c.API.Token != ""
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("prefs.shared_path", d.Prefs.SharedPath)
	v.SetDefault("prefs.legacy_path", d.Prefs.LegacyPath)
	v.SetDefault("bridge.listen", d.Bridge.Listen)
	v.SetDefault("bridge.peer_url", d.Bridge.PeerURL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.sentry_dsn", d.Logging.SentryDSN)
	v.SetDefault("timeline.location", d.Timeline.Location)
}

func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "fitsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "fitsync")
	}
}

func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "fitsync")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "fitsync")
	}
}
