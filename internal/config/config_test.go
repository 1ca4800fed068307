package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLocale, "")
	t.Setenv(EnvDebug, "")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir())
	assert.Equal(t, DefaultAssetCacheSize, cfg.AssetCacheSize)
	assert.Equal(t, DefaultAssetTimeout, cfg.AssetTimeout)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Empty(t, cfg.Locale)
	assert.False(t, cfg.Provider.Configured())
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLocale, "")
	t.Setenv(EnvDebug, "")

	yamlData := `locale: cn
asset_cache_size: 8
asset_timeout: 3s
provider:
  name: studio
  endpoint: https://example.com/v1/images
  api_key_env: TEST_STUDIO_KEY
  model: flux
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(yamlData), 0644))
	t.Setenv("TEST_STUDIO_KEY", "secret")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "cn", cfg.Locale)
	assert.Equal(t, 8, cfg.AssetCacheSize)
	assert.Equal(t, 3*time.Second, cfg.AssetTimeout)
	assert.True(t, cfg.Provider.Configured())
	assert.Equal(t, "secret", cfg.Provider.Key())
	assert.Equal(t, "flux", cfg.Provider.Model)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("locale: cn\n"), 0644))
	t.Setenv(EnvLocale, "en")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.Locale)
	assert.True(t, cfg.Debug)

	t.Setenv(EnvDebug, "nope")
	_, err = Load(dir)
	assert.Error(t, err)
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv(EnvDir, "/tmp/from-env")

	dir, err := ResolveDataDir("/explicit")
	require.NoError(t, err)
	assert.Equal(t, "/explicit", dir)

	dir, err = ResolveDataDir("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-env", dir)
}

func TestInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("locale: [unclosed"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSaveAndRecordPack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvLocale, "")
	t.Setenv(EnvDebug, "")

	cfg, err := Load(dir)
	require.NoError(t, err)

	cfg.RecordPack(Pack{Name: "colors", Source: "colors.yaml", Keys: []string{"color"}})
	cfg.RecordPack(Pack{Name: "colors", Source: "colors-v2.yaml", Keys: []string{"color", "hue"}})
	require.Len(t, cfg.Packs, 1)
	require.NoError(t, cfg.Save())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	p, ok := reloaded.GetPack("colors")
	require.True(t, ok)
	assert.Equal(t, "colors-v2.yaml", p.Source)
	assert.Equal(t, []string{"color", "hue"}, p.Keys)
	assert.False(t, p.ImportTime.IsZero())
}
