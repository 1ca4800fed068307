package workstation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

func testBanks() models.BankMap {
	return models.BankMap{
		"color": {
			Category: "visual",
			Options: []models.LocalizedText{
				{"cn": "红", "en": "red"},
				{"cn": "蓝", "en": "blue"},
			},
		},
		"animal": {
			Options: []models.LocalizedText{{"cn": "猫", "en": "cat"}},
		},
	}
}

func testTemplate() models.Template {
	return models.Template{
		ID: "poster",
		Content: models.LocalizedText{
			"cn": "一只{{color}}的{{animal}}",
			"en": "A {{color}} {{animal}}",
		},
	}
}

func TestNewPopulatesDefaults(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil)

	assert.Equal(t, map[string]string{"color_0": "red", "animal_0": "cat"}, s.Overrides.Map())
	assert.Empty(t, s.Overrides.Selections())
	assert.Equal(t, "A red cat", s.Prompt())
}

func TestSelectIsCopyOnWrite(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil)
	next := s.Select("color_0", "blue")

	assert.Equal(t, "A red cat", s.Prompt())
	assert.Equal(t, "A blue cat", next.Prompt())
	assert.Equal(t, map[string]string{"color_0": "blue"}, next.Overrides.Selections())
}

func TestWithLocaleKeepsSelections(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil).Select("color_0", "teal")
	s = s.WithLocale("cn")

	assert.Equal(t, "一只teal的猫", s.Prompt())
	v, ok := s.Overrides.Get("animal_0")
	require.True(t, ok)
	assert.Equal(t, "猫", v)
}

func TestWithTemplate(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil).Select("color_0", "teal")

	same := testTemplate()
	same.Content["en"] = "{{color}}!"
	s2 := s.WithTemplate(same)
	assert.Equal(t, "teal!", s2.Prompt())

	other := models.Template{ID: "other", Content: models.LocalizedText{"en": "{{color}}"}}
	s3 := s.WithTemplate(other)
	assert.Equal(t, "red", s3.Prompt())
	assert.Empty(t, s3.Overrides.Selections())
}

func TestWithBanks(t *testing.T) {
	s := New(testTemplate(), "en", nil, nil)
	assert.Equal(t, "A {{color}} {{animal}}", s.Prompt())
	for _, v := range s.Variables() {
		assert.Equal(t, placeholder.UnresolvedMarker, v.Display)
	}

	s = s.WithBanks(testBanks(), nil)
	assert.Equal(t, "A red cat", s.Prompt())
}

func TestInsertToken(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil)
	s = s.InsertToken(len("A {{color}} {{animal}}"), "color")

	assert.Equal(t, "A {{color}} {{animal}}{{color}}", s.Template.Content["en"])
	assert.Equal(t, "A red catred", s.Prompt())

	vars := s.Variables()
	require.Len(t, vars, 3)
	assert.Equal(t, "color_1", vars[2].Identity)
}

func TestEditContentOnlyTouchesLocale(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil)
	s = s.EditContent("just {{animal}}")

	assert.Equal(t, "just cat", s.Prompt())
	assert.Equal(t, "一只{{color}}的{{animal}}", s.Template.Content["cn"])
}

func TestReset(t *testing.T) {
	s := New(testTemplate(), "en", testBanks(), nil).Select("color_0", "teal")
	s = s.Reset("color_0")
	assert.Equal(t, "A red cat", s.Prompt())
}

func TestRendererMatchesSession(t *testing.T) {
	s := New(testTemplate(), "cn", testBanks(), nil)
	assert.Equal(t, s.Prompt(), s.Renderer().RenderText())
	assert.Len(t, s.Blocks(), 1)
}
