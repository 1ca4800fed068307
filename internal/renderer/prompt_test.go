package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

func TestResolvePrompt(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		locale    string
		overrides map[string]string
		want      string
	}{
		{"bank default", "A {{color}} cat", "en", nil, "A red cat"},
		{"locale", "A {{color}} cat", "cn", nil, "A 红 cat"},
		{"override", "{{color}} and {{color}}", "en", map[string]string{"color_1": "blue"}, "red and blue"},
		{"unresolved keeps raw", "{{ size }} box", "en", nil, "{{ size }} box"},
		{"empty override wins", "[{{color}}]", "en", map[string]string{"color_0": ""}, "[]"},
		{"no tokens", "plain text", "en", nil, "plain text"},
		{"malformed left alone", "{{color} {{}}", "en", nil, "{{color} {{}}"},
		{"heading tokens substituted", "# {{color}}", "en", nil, "# red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolvePrompt(tt.content, tt.locale, testBanks(), placeholder.OverridesFromMap(tt.overrides))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePromptUsesSameIdentitiesAsRender(t *testing.T) {
	content := "# {{color}}\n{{color}} / {{color}}"
	store := placeholder.SetOverride(placeholder.NewOverrides(), "color_2", "violet")

	vars := Variables(Render(content, "en", testBanks(), nil, store))
	assert.Equal(t, "violet", vars[1].Display)
	assert.Equal(t, "# red\nred / violet", ResolvePrompt(content, "en", testBanks(), store))
}

func TestRendererJSON(t *testing.T) {
	tmpl := models.Template{
		ID:      "t1",
		Content: models.LocalizedText{"cn": "一只{{color}}猫", "en": "A {{color}} cat"},
	}
	r := NewRenderer(tmpl, "en", testBanks(), nil, placeholder.NewOverrides())

	assert.Equal(t, "A red cat", r.RenderText())
	out, err := r.RenderJSON()
	assert.NoError(t, err)
	assert.Contains(t, out, `"role": "user"`)
	assert.Contains(t, out, `"content": "A red cat"`)

	r = NewRenderer(tmpl, "cn", testBanks(), nil, placeholder.NewOverrides())
	assert.Equal(t, "一只红猫", r.RenderText())
	assert.Len(t, r.Blocks(), 1)
}
