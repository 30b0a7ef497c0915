package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/ms2pred/pkg/reader/proxi"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
archives:
  - https://proxi.example.org/api
predict_url: https://predict.example.org
model: HCD2021
tolerance: 20ppm
cache_path: /tmp/spectra.db
modifications:
  - TMT6plex,229.162932,fixed,N-term
  - Deamidated,0.984016,opt,N
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://proxi.example.org/api"}, cfg.Archives)
	assert.Equal(t, "https://predict.example.org", cfg.PredictURL)
	assert.Equal(t, "HCD2021", cfg.Model)
	assert.Equal(t, "/tmp/spectra.db", cfg.CachePath)

	tol, err := cfg.MatchTolerance()
	require.NoError(t, err)
	assert.True(t, tol.PPM)
	assert.Equal(t, 20.0, tol.Value)

	db, err := cfg.ModDatabase()
	require.NoError(t, err)
	mass, ok := db.GetMass("TMT6plex")
	require.True(t, ok)
	assert.InDelta(t, 229.162932, mass, 1e-6)

	def, ok := db.Get("TMT6plex")
	require.True(t, ok)
	assert.True(t, def.Fixed)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "model: HCD2021\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, proxi.DefaultArchives, cfg.Archives)
	assert.Equal(t, "0.02Da", cfg.Tolerance)
	assert.Empty(t, cfg.PredictURL)
	assert.Empty(t, cfg.CachePath)
}

func TestLoadBadTolerance(t *testing.T) {
	path := writeConfig(t, "tolerance: fast\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadBadModDefinition(t *testing.T) {
	path := writeConfig(t, "modifications:\n  - Oxidation,oops,opt,M\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "archives: [unterminated\n")

	_, err := Load(path)
	assert.Error(t, err)
}
