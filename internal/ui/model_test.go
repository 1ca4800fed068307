package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/config"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/service"
)

const landscapePrompt = "A landscape of snowy mountains, soft morning light, in anime style."

type fakeClipboard struct {
	copied []string
}

func (f *fakeClipboard) CopyWithFallback(ctx context.Context, text string) (string, error) {
	f.copied = append(f.copied, text)
	return "Copied to clipboard!", nil
}

func newTestModel(t *testing.T, opts Options) (Model, *service.Service, *fakeClipboard) {
	t.Helper()
	t.Setenv("GLAMOUR_STYLE", "notty")
	t.Setenv(config.EnvLocale, "")
	t.Setenv(config.EnvDebug, "")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	svc, err := service.NewService(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.InitLibrary())

	if opts.Locale == "" {
		opts.Locale = "en"
	}
	m, err := NewModel(context.Background(), svc, opts)
	require.NoError(t, err)
	clip := &fakeClipboard{}
	m.clipboard = clip

	// Drive the background load to completion
	cmd := m.Init()
	model := *m
	for range 200 {
		msg := cmd()
		next, nextCmd := model.Update(msg)
		model = next.(Model)
		if _, done := msg.(loadCompleteMsg); done {
			break
		}
		cmd = nextCmd
	}
	require.False(t, model.loading, "library did not finish loading")
	return model, svc, clip
}

func update(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	tab      = tea.KeyMsg{Type: tea.KeyTab}
	shiftTab = tea.KeyMsg{Type: tea.KeyShiftTab}
	enter    = tea.KeyMsg{Type: tea.KeyEnter}
	esc      = tea.KeyMsg{Type: tea.KeyEsc}
	down     = tea.KeyMsg{Type: tea.KeyDown}
	home     = tea.KeyMsg{Type: tea.KeyHome}
	ctrlK    = tea.KeyMsg{Type: tea.KeyCtrlK}
	ctrlS    = tea.KeyMsg{Type: tea.KeyCtrlS}
)

func TestLibraryOpensTemplate(t *testing.T) {
	m, _, _ := newTestModel(t, Options{})

	assert.Equal(t, ViewLibrary, m.viewMode)
	assert.Len(t, m.templates, 3)
	assert.Contains(t, m.View(), "Landscape")

	m = update(t, m, enter)
	require.Equal(t, ViewPreview, m.viewMode)
	assert.Equal(t, "tpl_character_sheet", m.session.Template.ID)
	assert.Contains(t, m.View(), "Character Sheet")

	m = update(t, m, esc)
	assert.Equal(t, ViewLibrary, m.viewMode)
}

func TestOpenTemplateFromOptions(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	require.Equal(t, ViewPreview, m.viewMode)
	assert.Equal(t, landscapePrompt, m.session.Prompt())

	view := m.View()
	assert.Contains(t, view, "[snowy mountains]")
	assert.Contains(t, view, "background_0")
}

func TestOpenMissingTemplateShowsError(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "missing"})

	assert.Equal(t, ViewLibrary, m.viewMode)
	assert.Equal(t, "error", m.statusType)
	assert.NotEmpty(t, m.statusMsg)
}

func TestFocusMovesBetweenVariables(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	v, ok := m.focused()
	require.True(t, ok)
	assert.Equal(t, "background_0", v.Identity)

	m = update(t, m, tab)
	v, _ = m.focused()
	assert.Equal(t, "lighting_0", v.Identity)

	m = update(t, m, shiftTab, shiftTab)
	v, _ = m.focused()
	assert.Equal(t, "art_style_0", v.Identity)
}

func TestPickerSelectsOption(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, tab, enter)
	require.True(t, m.picker.IsActive())
	assert.Contains(t, m.View(), "dramatic side lighting")

	m = update(t, m, down, enter)
	assert.False(t, m.picker.IsActive())
	assert.Equal(t, "A landscape of snowy mountains, dramatic side lighting, in anime style.", m.session.Prompt())
	assert.Equal(t, map[string]string{"lighting_0": "dramatic side lighting"}, m.session.Overrides.Selections())
}

func TestPickerEscapeKeepsValue(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, enter, down, esc)
	assert.False(t, m.picker.IsActive())
	assert.Equal(t, landscapePrompt, m.session.Prompt())
}

func TestLocaleToggleKeepsSelections(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, tab, enter, down, enter, runes("l"))
	assert.Equal(t, "cn", m.locale)
	assert.Equal(t, "雪山的风景，dramatic side lighting，日系动漫风格。", m.session.Prompt())

	m = update(t, m, runes("l"))
	assert.Equal(t, "en", m.locale)
	assert.Equal(t, "A landscape of snowy mountains, dramatic side lighting, in anime style.", m.session.Prompt())
}

func TestCustomValueAndReset(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("v"))
	require.True(t, m.input.IsActive())
	m = update(t, m, runes("a desert"), enter)
	assert.False(t, m.input.IsActive())
	assert.Equal(t, "A landscape of a desert, soft morning light, in anime style.", m.session.Prompt())

	m = update(t, m, runes("r"))
	assert.Equal(t, landscapePrompt, m.session.Prompt())
}

func TestEmptyCustomValueIsKept(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("v"), enter)
	assert.Equal(t, "A landscape of , soft morning light, in anime style.", m.session.Prompt())
}

func TestEditorInsertsTokenAtCursor(t *testing.T) {
	m, svc, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("e"))
	require.Equal(t, ViewEditor, m.viewMode)

	m = update(t, m, home, ctrlK)
	require.True(t, m.bankSearch.IsActive())
	assert.Equal(t, 0, m.editorCursor())

	m = update(t, m, runes("color"), enter)
	assert.False(t, m.bankSearch.IsActive())
	assert.Equal(t, "{{color}}A landscape of {{background}}, {{lighting}}, in {{art_style}} style.", m.editor.Value())
	assert.Equal(t, m.editor.Value(), m.session.Content())
	assert.Equal(t, 9, m.editorCursor())
	assert.True(t, m.dirty)

	m = update(t, m, esc)
	require.Equal(t, ViewPreview, m.viewMode)
	v, _ := m.focused()
	assert.Equal(t, "color_0", v.Identity)
	assert.Equal(t, "midnight blueA landscape of snowy mountains, soft morning light, in anime style.", m.session.Prompt())

	stored, err := svc.GetTemplate("tpl_landscape")
	require.NoError(t, err)
	assert.NotContains(t, stored.ContentFor("en"), "{{color}}")

	m = update(t, m, runes("e"), ctrlS)
	assert.False(t, m.dirty)
	stored, err = svc.GetTemplate("tpl_landscape")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.ContentFor("en"), "{{color}}A landscape"))
}

func TestEditorTypingUpdatesSessionOnLeave(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("e"), runes(" {{lighting}}"), esc)
	assert.Equal(t, landscapePrompt+" soft morning light", m.session.Prompt())
	assert.Len(t, m.session.Variables(), 4)
}

func TestBankSearchCategoryFilter(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("e"), ctrlK)
	assert.Equal(t, "all", m.bankSearch.Category())
	assert.Len(t, m.bankSearch.results, 8)

	m = update(t, m, tab)
	assert.Equal(t, "scene", m.bankSearch.Category())
	keys := make([]string, len(m.bankSearch.results))
	for i, r := range m.bankSearch.results {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"background", "lighting"}, keys)

	m = update(t, m, esc)
	assert.False(t, m.bankSearch.IsActive())
	assert.Equal(t, ViewEditor, m.viewMode)
}

func TestPromptViewAndCopy(t *testing.T) {
	m, _, clip := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("p"))
	require.Equal(t, ViewPrompt, m.viewMode)
	assert.Contains(t, m.View(), "snowy mountains")

	next, cmd := m.Update(runes("c"))
	m = next.(Model)
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, []string{landscapePrompt}, clip.copied)
	assert.Equal(t, "Copied to clipboard!", m.statusMsg)

	_, cmd = m.Update(runes("y"))
	require.NotNil(t, cmd)
	cmd()
	require.Len(t, clip.copied, 2)
	assert.Contains(t, clip.copied[1], `"role": "user"`)

	m = update(t, m, esc)
	assert.Equal(t, ViewPreview, m.viewMode)
}

func TestSaveAndApplySelection(t *testing.T) {
	m, svc, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("v"), runes("a desert"), enter)
	m = update(t, m, runes("s"))
	require.True(t, m.input.IsActive())
	assert.Contains(t, m.View(), "background_0 = a desert")

	m = update(t, m, runes("dry"), enter)
	saved, err := svc.ListSelections("tpl_landscape")
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "dry", saved[0].Name)

	m = update(t, m, runes("r"))
	assert.Equal(t, landscapePrompt, m.session.Prompt())

	m = update(t, m, runes("a"))
	require.True(t, m.picker.IsActive())
	m = update(t, m, enter)
	assert.Equal(t, "A landscape of a desert, soft morning light, in anime style.", m.session.Prompt())
}

func TestSaveSelectionRequiresName(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("s"), enter)
	assert.True(t, m.input.IsActive())
}

func TestLibraryReloadRefreshesDefaults(t *testing.T) {
	m, svc, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})
	m = update(t, m, runes("v"), runes("a desert"), enter)

	require.NoError(t, svc.SaveBank("lighting", models.BankItem{
		Label:    models.LocalizedText{"en": "Lighting"},
		Category: "scene",
		Options:  []models.LocalizedText{{"en": "candle light"}},
	}))

	m = update(t, m, libraryReloadedMsg{})
	assert.Equal(t, "A landscape of a desert, candle light, in anime style.", m.session.Prompt())
	assert.Equal(t, "Library reloaded", m.statusMsg)
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStatusClears(t *testing.T) {
	m, _, _ := newTestModel(t, Options{TemplateID: "tpl_landscape"})

	m = update(t, m, runes("r"))
	require.NotEmpty(t, m.statusMsg)
	for range statusSeconds {
		m = update(t, m, tickMsg{})
	}
	assert.Empty(t, m.statusMsg)
}
