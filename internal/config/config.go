// Package config loads fluxcore settings. Sources are applied in order:
// built-in defaults, an optional YAML file, a .env file and finally the
// process environment (FLUXCORE_* variables).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fluxcore/internal/blob"
	"fluxcore/internal/catalog"
	"fluxcore/internal/summary"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLUXCORE_"

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// Metrics exporters.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the resolved application configuration.
type Config struct {
	Catalog  CatalogConfig `yaml:"catalog"`
	Blob     BlobConfig    `yaml:"blob"`
	Render   RenderConfig  `yaml:"render"`
	LogLevel string        `yaml:"log_level"`
	Metrics  string        `yaml:"metrics"`
}

// CatalogConfig selects the model catalog.
type CatalogConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// BlobConfig selects where model and flux documents are read from.
type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

// S3Config configures the S3 document driver. Credentials left empty fall
// back to the AWS default chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// RenderConfig holds the default display parameters of summaries.
type RenderConfig struct {
	Threshold   float64 `yaml:"threshold"`
	FloatFormat string  `yaml:"float_format"`
	ColumnWidth int     `yaml:"column_width"`
	Names       bool    `yaml:"names"`
}

// Default returns the built-in configuration.
func Default() Config {
	render := summary.DefaultRenderOptions()
	return Config{
		Catalog: CatalogConfig{Driver: string(catalog.DriverSQLite), SQLitePath: "fluxcore.db"},
		Blob:    BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "."},
		Render: RenderConfig{
			Threshold:   render.Threshold,
			FloatFormat: render.FloatFormat,
			ColumnWidth: render.ColumnWidth,
		},
		LogLevel: "info",
		Metrics:  MetricsNone,
	}
}

// Loader resolves configuration from files and the environment.
type Loader struct {
	// EnvFile is read with godotenv when it exists; empty disables it.
	EnvFile string
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves configuration with the default .env file and the process
// environment. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	return Loader{EnvFile: DefaultEnvFile}.Load(path)
}

// Load resolves configuration from the YAML file at path, the env file and
// the environment, then validates the result.
func (l Loader) Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	dotenv := map[string]string{}
	if l.EnvFile != "" {
		m, err := godotenv.Read(l.EnvFile)
		switch {
		case err == nil:
			dotenv = m
		case !errors.Is(err, iofs.ErrNotExist):
			return Config{}, fmt.Errorf("read %s: %w", l.EnvFile, err)
		}
	}
	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := func(name string) (string, bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+name]
		return v, ok
	}
	if err := cfg.applyEnv(env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env func(string) (string, bool)) error {
	strs := map[string]*string{
		"CATALOG_DRIVER":            &c.Catalog.Driver,
		"SQLITE_PATH":               &c.Catalog.SQLitePath,
		"POSTGRES_DSN":              &c.Catalog.PostgresDSN,
		"BLOB_DRIVER":               &c.Blob.Driver,
		"BLOB_FS_ROOT":              &c.Blob.FSRoot,
		"BLOB_S3_BUCKET":            &c.Blob.S3.Bucket,
		"BLOB_S3_REGION":            &c.Blob.S3.Region,
		"BLOB_S3_ENDPOINT":          &c.Blob.S3.Endpoint,
		"BLOB_S3_ACCESS_KEY_ID":     &c.Blob.S3.AccessKeyID,
		"BLOB_S3_SECRET_ACCESS_KEY": &c.Blob.S3.SecretAccessKey,
		"BLOB_S3_SESSION_TOKEN":     &c.Blob.S3.SessionToken,
		"FLOAT_FORMAT":              &c.Render.FloatFormat,
		"LOG_LEVEL":                 &c.LogLevel,
		"METRICS":                   &c.Metrics,
	}
	for name, dst := range strs {
		if v, ok := env(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	bools := map[string]*bool{
		"BLOB_S3_PATH_STYLE": &c.Blob.S3.PathStyle,
		"NAMES":              &c.Render.Names,
	}
	for name, dst := range bools {
		if v, ok := env(name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	if v, ok := env("THRESHOLD"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%sTHRESHOLD: %w", EnvPrefix, err)
		}
		c.Render.Threshold = f
	}
	if v, ok := env("COLUMN_WIDTH"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCOLUMN_WIDTH: %w", EnvPrefix, err)
		}
		c.Render.ColumnWidth = n
	}
	return nil
}

// Validate rejects unknown drivers, levels and display parameters.
func (c Config) Validate() error {
	switch catalog.Driver(c.Catalog.Driver) {
	case "", catalog.DriverMemory, catalog.DriverSQLite, catalog.DriverPostgres:
	default:
		return fmt.Errorf("config: unknown catalog driver %q", c.Catalog.Driver)
	}
	switch blob.Driver(c.Blob.Driver) {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("config: blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.Blob.Driver)
	}
	switch c.Metrics {
	case "", MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		return fmt.Errorf("config: unknown metrics exporter %q", c.Metrics)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Render.Threshold < 0 {
		return errors.New("config: render.threshold must be >= 0")
	}
	if c.Render.ColumnWidth <= 0 {
		return errors.New("config: render.column_width must be > 0")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// CatalogConfig returns the catalog driver configuration.
func (c Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		Driver:      catalog.Driver(c.Catalog.Driver),
		SQLitePath:  c.Catalog.SQLitePath,
		PostgresDSN: c.Catalog.PostgresDSN,
	}
}

// BlobConfig returns the document store configuration.
func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Driver: blob.Driver(c.Blob.Driver),
		FSRoot: c.Blob.FSRoot,
		S3: blob.S3Config{
			Region:          c.Blob.S3.Region,
			Bucket:          c.Blob.S3.Bucket,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			SessionToken:    c.Blob.S3.SessionToken,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}

// RenderOptions returns the configured display parameters.
func (c Config) RenderOptions() summary.RenderOptions {
	return summary.RenderOptions{
		Names:       c.Render.Names,
		Threshold:   c.Render.Threshold,
		FloatFormat: c.Render.FloatFormat,
		ColumnWidth: c.Render.ColumnWidth,
	}
}
