package placeholder

import (
	"testing"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestInsertToken(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cursor  int
		want    string
	}{
		{"after word", "Hello world", 5, "Hello{{name}} world"},
		{"start", "Hello", 0, "{{name}}Hello"},
		{"end", "Hello", 5, "Hello{{name}}"},
		{"negative clamps", "Hello", -3, "{{name}}Hello"},
		{"past end clamps", "Hello", 99, "Hello{{name}}"},
		{"empty", "", 0, "{{name}}"},
		{"multibyte", "你好世界", 2, "你好{{name}}世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InsertToken(tt.content, tt.cursor, "name"))
		})
	}
}

func TestReplaceSelection(t *testing.T) {
	assert.Equal(t, "A {{color}} shirt", ReplaceSelection("A red shirt", 2, 5, "color"))
	// inverted range collapses to an insertion
	assert.Equal(t, "A {{color}}red shirt", ReplaceSelection("A red shirt", 2, 1, "color"))
}

func TestRuneOffset(t *testing.T) {
	content := "第一行\nsecond\nthird"
	assert.Equal(t, 0, RuneOffset(content, 0, 0))
	assert.Equal(t, 4, RuneOffset(content, 1, 0))
	assert.Equal(t, 7, RuneOffset(content, 1, 3))
	assert.Equal(t, 10, RuneOffset(content, 1, 99))
	assert.Equal(t, 16, RuneOffset(content, 5, 99))
}

func TestSetContent(t *testing.T) {
	orig := models.Template{ID: "t1", Content: models.LocalizedText{"cn": "原文"}}
	edited := SetContent(orig, "en", "A {{unclosed")

	assert.Equal(t, "A {{unclosed", edited.Content["en"])
	assert.Equal(t, "原文", edited.Content["cn"])
	_, ok := orig.Content["en"]
	assert.False(t, ok)
}
