package placeholder

import (
	"strings"
	"unicode/utf8"

	"github.com/dpshade/spark-prompt/internal/models"
)

// InsertToken splices {{key}} into content at cursor, a rune index.
// Cursors outside the content are clamped to its start or end.
func InsertToken(content string, cursor int, key string) string {
	return ReplaceSelection(content, cursor, cursor, key)
}

// ReplaceSelection replaces the runes in [start, end) with {{key}}
func ReplaceSelection(content string, start, end int, key string) string {
	n := utf8.RuneCountInString(content)
	start = clamp(start, 0, n)
	end = clamp(end, start, n)

	from, to := byteOffset(content, start), byteOffset(content, end)

	var b strings.Builder
	b.Grow(len(content) + len(key) + 4)
	b.WriteString(content[:from])
	b.WriteString(FormatToken(key))
	b.WriteString(content[to:])
	return b.String()
}

// RuneOffset converts a line and rune column into a rune index of content
func RuneOffset(content string, line, col int) int {
	lines := strings.Split(content, "\n")
	line = clamp(line, 0, len(lines)-1)

	offset := 0
	for i := 0; i < line; i++ {
		offset += utf8.RuneCountInString(lines[i]) + 1
	}
	return offset + clamp(col, 0, utf8.RuneCountInString(lines[line]))
}

// SetContent replaces the source text of one locale
func SetContent(t models.Template, locale, text string) models.Template {
	out := t.Clone()
	if out.Content == nil {
		out.Content = make(models.LocalizedText)
	}
	out.Content[locale] = text
	return out
}

func byteOffset(s string, runeIndex int) int {
	if runeIndex <= 0 {
		return 0
	}
	i := 0
	for pos := range s {
		if i == runeIndex {
			return pos
		}
		i++
	}
	return len(s)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
