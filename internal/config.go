package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
	"github.com/fleetingnotes/fleeting-sync/internal/template"
)

// Auth modes for the local status API.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	Sync   SyncConfig        `yaml:"sync"`
	Remote RemoteConfig      `yaml:"remote"`
	State  StateConfig       `yaml:"state"`
	Auth   AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.State.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// HTTPConfig holds the status-API server configuration (serve mode only).
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the local vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig controls the reconciliation engine.
//
// Folder is the vault-relative directory synced notes live in ("" for the
// vault root). Template is the placeholder layout notes are rendered with.
// Filter, when set, imports only notes whose title or content contains it.
type SyncConfig struct {
	Folder          string          `yaml:"folder"`
	Template        string          `yaml:"template"`
	Mode            syncengine.Mode `yaml:"mode"`
	OnStartup       bool            `yaml:"on_startup"`
	Filter          string          `yaml:"filter"`
	IntervalSeconds int             `yaml:"interval_seconds"`
	DebounceSeconds int             `yaml:"debounce_seconds"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = syncengine.ModeOneWay
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("sync: unknown mode %q", c.Mode)
	}
	if c.Template == "" {
		c.Template = template.DefaultTemplate
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.IntervalSeconds, validation.Min(0)),
		validation.Field(&c.DebounceSeconds, validation.Min(0)),
	)
}

// Interval returns the periodic sync interval (zero disables it).
func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Debounce returns the file-change debounce window.
func (c *SyncConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceSeconds) * time.Second
}

// RemoteConfig holds the note-store endpoint and account credentials.
// Password typically references an env var in the YAML (e.g.
// "${FLEETING_PASSWORD}") which the loader expands.
type RemoteConfig struct {
	URL      string `yaml:"url"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.Required),
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// StateConfig holds the sync-state SQLite database path.
type StateConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the state configuration.
func (c *StateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds status-API authentication configuration.
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// SyncSettings reduces the configuration to the value object the engine
// runs under.
func (c *Config) SyncSettings() syncengine.Settings {
	return syncengine.Settings{
		Folder:   c.Sync.Folder,
		Template: c.Sync.Template,
		Mode:     c.Sync.Mode,
		Filter:   c.Sync.Filter,
	}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		Sync: SyncConfig{
			Folder:          "FleetingNotesApp",
			Template:        template.DefaultTemplate,
			Mode:            syncengine.ModeOneWay,
			OnStartup:       false,
			IntervalSeconds: 0,
			DebounceSeconds: 2,
		},
		State: StateConfig{
			Path: "./fleeting-sync.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
