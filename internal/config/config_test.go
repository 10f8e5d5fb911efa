package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forestfocus/internal/config"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := config.DefaultCatalog()
	assert.NotEmpty(t, catalog.Presets)
	assert.NotEmpty(t, catalog.Species)
	assert.Equal(t, "Default", catalog.Presets[0].Name)

	byID := catalog.SpeciesByID()
	assert.Contains(t, byID, "oak")
	assert.Equal(t, 6, byID["oak"].MaxStage)
}

func TestLoadCatalogEmptyPathUsesDefaults(t *testing.T) {
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultCatalog(), catalog)
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	raw := `
species:
  - id: baobab
    name: Baobab
    max_stage: 9
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	catalog, err := config.LoadCatalog(path)
	require.NoError(t, err)

	// Species replaced, presets fall back to defaults.
	require.Len(t, catalog.Species, 1)
	assert.Equal(t, "baobab", catalog.Species[0].ID)
	assert.Equal(t, 9, catalog.Species[0].MaxStage)
	assert.Equal(t, config.DefaultCatalog().Presets, catalog.Presets)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := config.LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadIntegrityDefaults(t *testing.T) {
	cfg := config.Load()
	assert.True(t, cfg.Integrity.RequireForeground)
	assert.True(t, cfg.Integrity.DetectClockJumps)
	assert.Equal(t, 300, cfg.Integrity.MaxClockJumpSeconds)
	assert.Equal(t, 60, cfg.Integrity.MaxBackgroundTimeSeconds)
}
