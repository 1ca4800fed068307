package renderer

import (
	"strings"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

// ResolvePrompt substitutes every placeholder of content with its resolved
// value. Placeholders that cannot be resolved keep their original text so
// they remain visible and editable downstream.
func ResolvePrompt(content, locale string, banks models.BankMap, overrides placeholder.Overrides) string {
	var b strings.Builder
	b.Grow(len(content))
	last := 0

	for tok, occ := range placeholder.Occurrences(content) {
		b.WriteString(content[last:tok.Start])
		if v := placeholder.Resolve(occ, locale, banks, overrides); v.Resolved() {
			b.WriteString(v.Text)
		} else {
			b.WriteString(tok.Raw)
		}
		last = tok.End
	}

	b.WriteString(content[last:])
	return b.String()
}
