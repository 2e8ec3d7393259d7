package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing component.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad storage URL.
	cfg = &Config{
		Component:  "webconsole",
		StorageURL: "not a url",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay; defaults filled in.
	cfg = &Config{
		Component:  "webconsole",
		IndexHost:  "snapshots.example.com",
		StorageURL: "https://releases.example.com/webconsole",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultAssetDir, cfg.AssetDir)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		Component:          "webconsole",
		IndexHost:          "snapshots.example.com",
		StorageURL:         "https://releases.example.com/webconsole",
		UpstreamComponents: []string{"devops", "platform"},
		Timeout:            time.Minute,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Component, loaded.Component)
	require.Equal(t, cfg.IndexHost, loaded.IndexHost)
	require.Equal(t, cfg.UpstreamComponents, loaded.UpstreamComponents)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
