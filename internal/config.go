package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/catalog"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Catalog source kinds.
const (
	CatalogSourceURL  = "url"
	CatalogSourceFile = "file"
)

// Config represents the application configuration.
type Config struct {
	App         ApplicationConfig `yaml:"app"`
	SQLite      SQLiteConfig      `yaml:"sqlite"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	EarthEngine EarthEngineConfig `yaml:"earthengine"`
	Auth        AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Catalog.Validate(); err != nil {
		return err
	}
	if err := c.EarthEngine.Validate(); err != nil {
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

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CatalogConfig holds the dataset catalog source configuration.
//
// Source controls where catalog metadata comes from:
//   - "url" (default): fetch the published catalog listing over HTTP.
//   - "file": read a local JSON snapshot; the snapshot is watched for
//     changes and re-synced automatically.
type CatalogConfig struct {
	Source       string        `yaml:"source"`
	URL          string        `yaml:"url"`
	SnapshotPath string        `yaml:"snapshot_path"`
	Project      string        `yaml:"project"`
	BatchSize    int           `yaml:"batch_size"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Retries      int           `yaml:"retries"`
	SyncOnStart  bool          `yaml:"sync_on_start"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	if c.Source == "" {
		c.Source = CatalogSourceURL
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required, validation.In(CatalogSourceURL, CatalogSourceFile)),
		validation.Field(&c.BatchSize, validation.Min(0)),
		validation.Field(&c.Retries, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Source == CatalogSourceFile && c.SnapshotPath == "" {
		return fmt.Errorf("catalog: source is %q but snapshot_path is empty", CatalogSourceFile)
	}
	return nil
}

// EarthEngineConfig holds the export backend configuration.
type EarthEngineConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the Earth Engine configuration.
func (c *EarthEngineConfig) Validate() error {
	return validation.ValidateStruct(c,
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./raido.db",
		},
		Catalog: CatalogConfig{
			Source:       CatalogSourceURL,
			URL:          catalog.DefaultCatalogURL,
			BatchSize:    catalog.DefaultBatchSize,
			FetchTimeout: 30 * time.Second,
			Retries:      3,
			SyncOnStart:  true,
		},
		EarthEngine: EarthEngineConfig{
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
