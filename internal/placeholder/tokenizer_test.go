package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	content := "A {{color}} and {{ size }} shirt"
	tokens := Tokens(content)

	require.Len(t, tokens, 2)
	assert.Equal(t, Token{Key: "color", Raw: "{{color}}", Start: 2, End: 11}, tokens[0])
	assert.Equal(t, "size", tokens[1].Key)
	assert.Equal(t, "{{ size }}", tokens[1].Raw)
	assert.Equal(t, tokens[1].Raw, content[tokens[1].Start:tokens[1].End])
}

func TestTokenizeMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
		keys    []string
	}{
		{"no delimiters", "plain text", nil},
		{"unclosed", "a {{color and more", nil},
		{"unopened", "color}} here", nil},
		{"empty", "{{}}", nil},
		{"whitespace only", "{{   }}", nil},
		{"single braces", "{color}", nil},
		{"unclosed then valid", "{{broken {{ok}}", []string{"broken {{ok"}},
		{"valid after blank", "{{ }} {{ok}}", []string{"ok"}},
		{"triple braces", "{{{x}}}", []string{"{x"}},
		{"across lines", "{{col\nor}}", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keys []string
			for tok := range Tokenize(tt.content) {
				keys = append(keys, tok.Key)
			}
			assert.Equal(t, tt.keys, keys)
		})
	}
}

func TestTokenizeRestartable(t *testing.T) {
	seq := Tokenize("{{a}} {{b}} {{a}}")

	var first, second []Token
	for tok := range seq {
		first = append(first, tok)
	}
	for tok := range seq {
		second = append(second, tok)
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestTokenizeStopsEarly(t *testing.T) {
	count := 0
	for range Tokenize("{{a}}{{b}}{{c}}") {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestTokenizeMultibyte(t *testing.T) {
	content := "穿着{{服装}}的人"
	tokens := Tokens(content)

	require.Len(t, tokens, 1)
	assert.Equal(t, "服装", tokens[0].Key)
	assert.Equal(t, "{{服装}}", content[tokens[0].Start:tokens[0].End])
}
