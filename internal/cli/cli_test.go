package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	apperrors "github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/git"
	"github.com/dpshade/spark-prompt/internal/service"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	t.Setenv(config.EnvLocale, "")
	t.Setenv(config.EnvDebug, "")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	svc, err := service.NewService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())
	return NewCLI(svc)
}

func run(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTemplatesList(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "templates", "--format", "ids")
	require.NoError(t, err)
	assert.Equal(t, "tpl_character_sheet\ntpl_landscape\ntpl_product_poster\n", out)

	out, err = run(t, c, "templates", "list", "-q", "poster", "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "tpl_product_poster - Product Poster\n  Tags: product, poster\n", out)

	out, err = run(t, c, "templates", "--format", "table", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Landscape")
}

func TestTemplatesShow(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "templates", "show", "tpl_product_poster", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Name: Product Poster\n")
	assert.Contains(t, out, "Occurrences: product_0, art_style_0, color_0, color_1, background_0\n")

	_, err = run(t, c, "templates", "show", "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestTemplatesNewAndSetContent(t *testing.T) {
	c := newTestCLI(t)

	_, err := run(t, c, "templates", "new", "--name", "Swatch")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))

	out, err := run(t, c, "templates", "new", "--locale", "en", "--name", "Swatch", "--content", "Paint it {{color}}")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Created template tpl_"))
	id := strings.TrimSpace(strings.TrimPrefix(out, "Created template "))

	out, err = run(t, c, "prompt", id, "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "Paint it midnight blue\n", out)

	file := filepath.Join(t.TempDir(), "content.txt")
	require.NoError(t, os.WriteFile(file, []byte("{{lighting}} only"), 0644))
	_, err = run(t, c, "templates", "set-content", id, "--locale", "en", "--file", file)
	require.NoError(t, err)

	out, err = run(t, c, "prompt", id, "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "soft morning light only\n", out)

	_, err = run(t, c, "templates", "delete", id)
	require.NoError(t, err)
}

func TestPrompt(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "prompt", "tpl_landscape", "--locale", "en", "--set", "lighting_0=dusk")
	require.NoError(t, err)
	assert.Equal(t, "A landscape of snowy mountains, dusk, in anime style.\n", out)

	out, err = run(t, c, "prompt", "tpl_landscape", "--locale", "en", "--set", "lighting_0=")
	require.NoError(t, err)
	assert.Equal(t, "A landscape of snowy mountains, , in anime style.\n", out)

	out, err = run(t, c, "prompt", "tpl_landscape", "--locale", "en", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "user"`)

	_, err = run(t, c, "prompt", "tpl_landscape", "--set", "novalue")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestPromptSelections(t *testing.T) {
	c := newTestCLI(t)

	_, err := run(t, c, "prompt", "tpl_landscape", "--locale", "en",
		"--set", "background_0=a desert", "--save-selection", "dry")
	require.NoError(t, err)

	out, err := run(t, c, "prompt", "tpl_landscape", "--locale", "en", "--selection", "dry")
	require.NoError(t, err)
	assert.Equal(t, "A landscape of a desert, soft morning light, in anime style.\n", out)

	out, err = run(t, c, "selections", "list", "tpl_landscape")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dry (1 values"))

	_, err = run(t, c, "selections", "delete", "tpl_landscape", "dry")
	require.NoError(t, err)
	_, err = run(t, c, "prompt", "tpl_landscape", "--selection", "dry")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestRender(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "render", "tpl_character_sheet", "--locale", "en", "--set", "character_0=a knight")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Character Sheet\nA [anime] character sheet of [a knight].\n"))
	assert.Contains(t, out, "character_0")
	assert.Contains(t, out, "override")

	out, err = run(t, c, "render", "tpl_landscape", "--locale", "en", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"identity": "background_0"`)
}

func TestInsert(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "insert", "tpl_landscape", "--locale", "en", "--at", "2", "--key", "color")
	require.NoError(t, err)
	assert.Equal(t, "A {{color}}landscape of {{background}}, {{lighting}}, in {{art_style}} style.\n", out)

	out, err = run(t, c, "templates", "show", "tpl_landscape", "--locale", "en")
	require.NoError(t, err)
	assert.NotContains(t, out, "color_0")

	_, err = run(t, c, "insert", "tpl_landscape", "--locale", "en", "--at", "-5", "--key", "color", "--save")
	require.NoError(t, err)
	out, err = run(t, c, "templates", "show", "tpl_landscape", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Occurrences: color_0, background_0")

	_, err = run(t, c, "insert", "tpl_landscape")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))
}

func TestBanks(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "banks", "search", "light", "--format", "keys", "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "lighting", strings.SplitN(out, "\n", 2)[0])

	out, err = run(t, c, "banks", "--category", "scene", "--format", "keys")
	require.NoError(t, err)
	assert.Equal(t, "background\nlighting\n", out)

	out, err = run(t, c, "categories", "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "scene - Scene (green)\nstyle - Style (purple)\nsubject - Subject (blue)\n", out)
}

func TestBanksSetAndDelete(t *testing.T) {
	c := newTestCLI(t)

	_, err := run(t, c, "banks", "set", "weather", "--label", "Weather")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingField))

	out, err := run(t, c, "banks", "set", "weather", "--locale", "en", "--label", "Weather", "--category", "scene", "--option", "fog", "--option", "light rain")
	require.NoError(t, err)
	assert.Equal(t, "Created bank weather (2 options)\n", out)

	out, err = run(t, c, "banks", "set", "weather", "--locale", "en", "--option", "snow", "--append")
	require.NoError(t, err)
	assert.Equal(t, "Updated bank weather (3 options)\n", out)

	out, err = run(t, c, "banks", "search", "weather", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "weather - Weather [Scene]\n  fog | light rain | snow\n")

	out, err = run(t, c, "banks", "delete", "weather")
	require.NoError(t, err)
	assert.Equal(t, "Deleted bank weather\n", out)

	_, err = run(t, c, "banks", "delete", "weather")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestCategoriesSetAndDelete(t *testing.T) {
	c := newTestCLI(t)

	out, err := run(t, c, "categories", "set", "mood", "--locale", "en", "--label", "Mood", "--color", "amber")
	require.NoError(t, err)
	assert.Equal(t, "Saved category mood\n", out)

	out, err = run(t, c, "categories", "list", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "mood - Mood (amber)\n")

	_, err = run(t, c, "categories", "delete", "mood")
	require.NoError(t, err)
	_, err = run(t, c, "categories", "delete", "mood")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestTemplatesCover(t *testing.T) {
	c := newTestCLI(t)
	img := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nbody"), 0644))

	out, err := run(t, c, "templates", "cover", "tpl_landscape", img)
	require.NoError(t, err)
	want := filepath.Join(c.service.Storage().ImagesDir(), "cover_tpl_landscape.png")
	assert.Equal(t, "Cover of tpl_landscape saved to "+want+"\n", out)

	out, err = run(t, c, "templates", "show", "tpl_landscape", "--locale", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Image: "+want+"\n")
}

func TestBanksImport(t *testing.T) {
	c := newTestCLI(t)
	pack := filepath.Join(t.TempDir(), "moods.yaml")
	require.NoError(t, os.WriteFile(pack, []byte(`name: moods
banks:
  mood:
    label: {en: Mood}
    category: scene
    options:
      - {en: calm}
  lighting:
    label: {en: Lighting}
    category: scene
    options:
      - {en: candle light}
`), 0644))

	out, err := run(t, c, "banks", "import", pack, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Pack moods would import 2 banks: lighting, mood")
	assert.Contains(t, out, "Replaced existing banks: lighting")

	_, err = run(t, c, "banks", "import", pack)
	require.NoError(t, err)

	out, err = run(t, c, "prompt", "tpl_landscape", "--locale", "en")
	require.NoError(t, err)
	assert.Equal(t, "A landscape of snowy mountains, candle light, in anime style.\n", out)

	_, ok := c.service.Config().GetPack("moods")
	assert.True(t, ok)
}

func TestGenerateWithoutProvider(t *testing.T) {
	c := newTestCLI(t)
	_, err := run(t, c, "generate", "tpl_landscape")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotConfigured))

	out, err := run(t, c, "history")
	require.NoError(t, err)
	assert.Equal(t, "No generation history\n", out)
}

func TestInit(t *testing.T) {
	c := newTestCLI(t)
	out, err := run(t, c, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized spark-prompt library in")
	assert.FileExists(t, c.service.Config().Path())
}

func TestExecuteReportsFailures(t *testing.T) {
	t.Setenv(config.EnvLocale, "")
	t.Setenv(config.EnvDebug, "")
	dir := t.TempDir()

	assert.Equal(t, 0, Execute(context.Background(), "test", []string{"--dir", dir, "init"}))
	assert.Equal(t, 1, Execute(context.Background(), "test", []string{"--dir", dir, "prompt", "missing"}))
}

func TestParseSets(t *testing.T) {
	values, err := parseSets([]string{"a_0=x=y", " b_1 = z"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a_0": "x=y", "b_1": " z"}, values)

	_, err = parseSets([]string{"=x"})
	assert.Error(t, err)
}

func TestSyncStatusWithoutRepository(t *testing.T) {
	if !git.Available() {
		t.Skip("git not installed")
	}
	c := newTestCLI(t)

	out, err := run(t, c, "sync", "status")
	require.NoError(t, err)
	assert.Equal(t, "Git not initialized\n", out)

	_, err = run(t, c, "sync", "pull")
	assert.ErrorIs(t, err, git.ErrNotRepository)
}
