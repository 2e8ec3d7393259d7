package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds packaging parameters shared by pipeline runs.
type Config struct {
	// Component is the logical name of the component being packaged.
	// It is embedded into release file names.
	Component string `yaml:"component"`
	// AssetDir is the subdirectory of the build root holding front-end sources.
	AssetDir string `yaml:"asset_dir"`
	// IndexHost is the host serving per-component release metadata and downloads.
	IndexHost string `yaml:"index_host"`
	// StorageURL is the object-storage base URL releases are uploaded to.
	StorageURL string `yaml:"storage_url"`
	// UpstreamComponents are bundled into the container image in image mode.
	UpstreamComponents []string `yaml:"upstream_components"`
	// Timeout is the duration for network operations.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "release-packager-settings.yaml"

	// DefaultAssetDir is the front-end source subdirectory used when none is configured.
	DefaultAssetDir = "ui"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errComponentRequired is returned when the component name is missing.
	errComponentRequired = errors.New("component name must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Component == "" {
		return errComponentRequired
	}

	// Set default asset directory if not specified.
	if cfg.AssetDir == "" {
		cfg.AssetDir = DefaultAssetDir
	}

	// Set default timeout if not specified.
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.StorageURL != "" {
		if _, err := url.ParseRequestURI(cfg.StorageURL); err != nil {
			return fmt.Errorf("invalid storage URL: %w", err)
		}
	}

	return nil
}
