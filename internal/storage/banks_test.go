package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/spark-prompt/internal/models"
)

const yamlPack = `name: palettes
banks:
  color:
    label: {cn: 颜色, en: Color}
    category: palette
    options:
      - {cn: 紫, en: purple}
  art_style:
    label: {en: Style}
    category: style
    options:
      - {en: pixel art}
categories:
  palette:
    label: {en: Palette}
    color: pink
`

func TestLoadBankPackYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palettes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPack), 0644))

	pack, err := LoadBankPack(path)
	require.NoError(t, err)
	assert.Equal(t, "palettes", pack.Name)
	assert.Equal(t, []string{"art_style", "color"}, pack.Keys())
	assert.Equal(t, "purple", pack.Banks["color"].Options[0].Get("en"))
	assert.Equal(t, "palette", pack.Categories["palette"].ID)
}

func TestLoadBankPackJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.json")
	data := `{"banks":{"mood":{"label":{"en":"Mood"},"category":"scene","options":[{"en":"calm"}]}}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	pack, err := LoadBankPack(path)
	require.NoError(t, err)
	assert.Equal(t, "extra", pack.Name)
	assert.Contains(t, pack.Banks, "mood")
}

func TestLoadBankPackErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadBankPack(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "pack.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0644))
	_, err = LoadBankPack(txt)
	assert.ErrorContains(t, err, "unsupported")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("banks: [1, 2"), 0644))
	_, err = LoadBankPack(bad)
	assert.Error(t, err)
}

func TestMergeBanks(t *testing.T) {
	base := models.BankMap{
		"color": {Category: "old"},
		"size":  {Category: "x"},
	}
	pack := models.BankMap{
		"color": {Category: "new"},
		"mood":  {Category: "y"},
	}

	merged, conflicts := MergeBanks(base, pack)
	assert.Equal(t, []string{"color"}, conflicts)
	assert.Equal(t, "new", merged["color"].Category)
	assert.Len(t, merged, 3)
	assert.Equal(t, "old", base["color"].Category)
}

func TestImportBankPack(t *testing.T) {
	s := newTestStorage(t)

	path := filepath.Join(t.TempDir(), "palettes.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlPack), 0644))
	pack, err := LoadBankPack(path)
	require.NoError(t, err)

	conflicts, err := s.ImportBankPack(pack)
	require.NoError(t, err)
	assert.Equal(t, []string{"art_style", "color"}, conflicts)

	banks, err := s.LoadBanks()
	require.NoError(t, err)
	assert.Equal(t, "pixel art", banks["art_style"].Options[0].Get("en"))

	categories, err := s.LoadCategories()
	require.NoError(t, err)
	assert.Equal(t, "pink", categories["palette"].Color)
	assert.Contains(t, categories, "subject")
}
