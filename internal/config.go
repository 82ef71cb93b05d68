package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Document DocumentConfig    `yaml:"document"`
	History  HistoryConfig     `yaml:"history"`
	Cache    CacheConfig       `yaml:"cache"`
	Auth     AuthConfig        `yaml:"auth"`
	Export   ExportConfig      `yaml:"export"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Document.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level    `yaml:"log_level"`
	LogFile  LogFileConfig `yaml:"log_file"`
	HTTP     HTTPConfig    `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.LogFile.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// LogFileConfig enables a rotating JSON log file instead of stdout.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Validate validates the log file configuration.
func (c *LogFileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DocumentConfig points at the scene file and how its changes are watched.
type DocumentConfig struct {
	ScenePath string        `yaml:"scene_path"`
	Debounce  time.Duration `yaml:"debounce"`
}

// Validate validates the document configuration.
func (c *DocumentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ScenePath, validation.Required),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// HistoryConfig holds the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds plan cache configuration.
type CacheConfig struct {
	PlanTTL time.Duration `yaml:"plan_ttl"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PlanTTL, validation.Required, validation.Min(time.Second)),
	)
}

// ExportConfig holds defaults for export runs.
type ExportConfig struct {
	// Retry is how many retry prompts are answered yes without asking.
	Retry int `yaml:"retry"`
	// ProgressThrottle is the minimum gap between progress events.
	ProgressThrottle time.Duration `yaml:"progress_throttle"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Retry, validation.Min(0), validation.Max(10)),
		validation.Field(&c.ProgressThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			LogFile: LogFileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Document: DocumentConfig{
			ScenePath: "./scene.yaml",
			Debounce:  200 * time.Millisecond,
		},
		History: HistoryConfig{
			Path: "./multiexporter.db",
		},
		Cache: CacheConfig{
			PlanTTL: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Export: ExportConfig{
			ProgressThrottle: 250 * time.Millisecond,
		},
	}
}
