package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/bilimsoz/internal/models"
	"github.com/starford/bilimsoz/internal/probe"
	"github.com/starford/bilimsoz/internal/retry"
	"github.com/starford/bilimsoz/internal/sheets"
	"github.com/starford/bilimsoz/internal/termcache"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Source kinds.
const (
	SourceAPI  = "api"  // Sheets values API
	SourceHTML = "html" // published-to-web spreadsheet page
	SourceDir  = "dir"  // local directory of <SUBJECT>.json files
)

// Environment variables read by NewDefaultConfig, the same names the
// shipped config file expands.
const (
	EnvSpreadsheetID = "SHEETS_SPREADSHEET_ID"
	EnvAPIKey        = "SHEETS_API_KEY"
)

// Cache backends.
const (
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Sheets SheetsConfig      `yaml:"sheets"`
	Cache  CacheConfig       `yaml:"cache"`
	Prefs  PrefsConfig       `yaml:"prefs"`
	Sync   SyncConfig        `yaml:"sync"`
	Probe  ProbeConfig       `yaml:"probe"`
	Auth   AuthConfig        `yaml:"auth"`
	CORS   CORSConfig        `yaml:"cors"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Sheets, &c.Cache, &c.Prefs, &c.Sync, &c.Probe, &c.Auth, &c.CORS,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port          int           `yaml:"port"`
	EventThrottle time.Duration `yaml:"event_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
	)
}

// SheetsConfig selects and configures the remote source.
type SheetsConfig struct {
	Source            string        `yaml:"source"`
	BaseURL           string        `yaml:"base_url"`
	SpreadsheetID     string        `yaml:"spreadsheet_id"`
	APIKey            string        `yaml:"api_key"`
	PublishedURL      string        `yaml:"published_url"`
	Dir               string        `yaml:"dir"`
	Watch             bool          `yaml:"watch"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// Validate validates the source configuration.
func (c *SheetsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(SourceAPI, SourceHTML, SourceDir)),
		validation.Field(&c.SpreadsheetID, validation.When(c.Source == SourceAPI, validation.Required)),
		validation.Field(&c.APIKey, validation.When(c.Source == SourceAPI, validation.Required)),
		validation.Field(&c.PublishedURL, validation.When(c.Source == SourceHTML, validation.Required)),
		validation.Field(&c.Dir, validation.When(c.Source == SourceDir, validation.Required)),
		validation.Field(&c.RequestsPerMinute, validation.Min(0)),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
	)
}

// CacheConfig selects and configures the term cache backend.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	SQLite  SQLiteConfig  `yaml:"sqlite"`
	Redis   RedisConfig   `yaml:"redis"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(CacheSQLite, CacheRedis, CacheMemory)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SQLite, validation.Skip.When(c.Backend != CacheSQLite)),
		validation.Field(&c.Redis, validation.Skip.When(c.Backend != CacheRedis)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL       string `yaml:"url"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Validate validates the Redis configuration.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.URL, validation.Required),
	)
}

// PrefsConfig holds the preferences file location.
type PrefsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the preferences configuration.
func (c *PrefsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig holds the synchronizer bounds.
type SyncConfig struct {
	CacheTimeout    time.Duration `yaml:"cache_timeout"`
	NetworkTimeout  time.Duration `yaml:"network_timeout"`
	Concurrency     int           `yaml:"concurrency"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables periodic resync
	SearchDebounce  time.Duration `yaml:"search_debounce"`
	TimeZone        string        `yaml:"time_zone"` // IANA name; empty means the local zone
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CacheTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.NetworkTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1), validation.Max(len(models.Subjects()))),
		validation.Field(&c.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&c.RetryBaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.RefreshInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.SearchDebounce, validation.Min(time.Duration(0))),
		validation.Field(&c.TimeZone, validation.By(func(any) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves TimeZone.
func (c *SyncConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// ProbeConfig holds connectivity probe configuration.
type ProbeConfig struct {
	Targets []string      `yaml:"targets"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the probe configuration.
func (c *ProbeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Targets, validation.Each(validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Validate validates the CORS configuration.
func (c *CORSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AllowedOrigins, validation.Each(validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:          8080,
				EventThrottle: 2 * time.Second,
			},
		},
		Sheets: SheetsConfig{
			Source:            SourceAPI,
			BaseURL:           sheets.DefaultBaseURL,
			SpreadsheetID:     os.Getenv(EnvSpreadsheetID),
			APIKey:            os.Getenv(EnvAPIKey),
			RequestsPerMinute: 60,
			RequestTimeout:    10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheSQLite,
			TTL:     termcache.DefaultTTL,
			SQLite:  SQLiteConfig{Path: "./bilimsoz.db"},
			Redis:   RedisConfig{KeyPrefix: termcache.DefaultRedisPrefix},
		},
		Prefs: PrefsConfig{
			Path: "./bilimsoz-prefs.db",
		},
		Sync: SyncConfig{
			CacheTimeout:   5 * time.Second,
			NetworkTimeout: 10 * time.Second,
			Concurrency:    3,
			MaxRetries:     retry.DefaultConfig().MaxRetries,
			RetryBaseDelay: retry.DefaultConfig().BaseDelay,
			SearchDebounce: 300 * time.Millisecond,
		},
		Probe: ProbeConfig{
			Targets: []string{probe.DefaultTarget},
			Timeout: probe.DefaultTimeout,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
