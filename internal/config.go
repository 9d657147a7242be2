package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
	AuthModeReadOnly = "readonly"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Catalog CatalogConfig     `yaml:"catalog"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
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

// CatalogConfig locates the manifest document and the file vault.
type CatalogConfig struct {
	ManifestPath string `yaml:"manifest_path"`
	StaticDir    string `yaml:"static_dir"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ManifestPath, validation.Required),
		validation.Field(&c.StaticDir, validation.Required),
		validation.Field(&c.MaxUploadMB, validation.Min(0)),
	)
}

// MaxUploadBytes returns the upload cap in bytes; 0 means the default.
func (c *CatalogConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// SQLiteConfig holds SQLite database configuration. An empty path disables
// the resource index and searches run over the manifest directly.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the index is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls who may change the catalog:
//   - "disabled" (default): anyone, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
//   - "readonly": nobody; mutations are rejected.
//
// Reads are public in every mode.
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
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken, AuthModeReadOnly)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// ReadOnly returns true when mutations are rejected.
func (c *AuthConfig) ReadOnly() bool {
	return c.Mode == AuthModeReadOnly
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
		Catalog: CatalogConfig{
			ManifestPath: "manifest.json",
			StaticDir:    "static",
			MaxUploadMB:  50,
		},
		SQLite: SQLiteConfig{
			Path: "./studyshelf.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
