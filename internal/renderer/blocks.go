package renderer

import (
	"strings"

	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
)

// BlockKind distinguishes headings from paragraphs
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
)

// SpanKind distinguishes literal text from interactive variables
type SpanKind string

const (
	SpanText     SpanKind = "text"
	SpanVariable SpanKind = "variable"
)

// BlockNode is one rendered line of template content
type BlockNode struct {
	Kind  BlockKind `json:"kind"`
	Level int       `json:"level,omitempty"` // 1-3 for headings
	Text  string    `json:"text,omitempty"`  // heading text, never substituted
	Spans []Span    `json:"spans,omitempty"` // paragraph content
}

// Span is a piece of a paragraph
type Span struct {
	Kind     SpanKind      `json:"kind"`
	Text     string        `json:"text,omitempty"`
	Variable *VariableSpan `json:"variable,omitempty"`
}

// VariableSpan is an interactive placeholder occurrence
type VariableSpan struct {
	Identity string                   `json:"identity"`
	Key      string                   `json:"key"`
	Ordinal  int                      `json:"ordinal"`
	Raw      string                   `json:"raw"`
	Display  string                   `json:"display"`
	Source   placeholder.Source       `json:"source"`
	Category placeholder.CategoryInfo `json:"category"`
	Options  []string                 `json:"options,omitempty"`
}

var headingPrefixes = []struct {
	prefix string
	level  int
}{
	{"# ", 1},
	{"## ", 2},
	{"### ", 3},
}

// Render splits content into heading and paragraph blocks and resolves the
// placeholders of every paragraph. Occurrence ordinals run across the whole
// content; placeholders inside headings are shown literally but still count,
// so identities match those of ResolvePrompt for the same content.
func Render(content, locale string, banks models.BankMap, categories models.CategoryMap, overrides placeholder.Overrides) []BlockNode {
	assigner := placeholder.NewAssigner()
	lines := strings.Split(content, "\n")
	blocks := make([]BlockNode, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")

		if level, text, ok := heading(line); ok {
			for tok := range placeholder.Tokenize(line) {
				assigner.Next(tok.Key)
			}
			blocks = append(blocks, BlockNode{Kind: BlockHeading, Level: level, Text: text})
			continue
		}

		blocks = append(blocks, BlockNode{
			Kind:  BlockParagraph,
			Spans: renderLine(line, locale, banks, categories, overrides, assigner),
		})
	}

	return blocks
}

func heading(line string) (int, string, bool) {
	for _, h := range headingPrefixes {
		if strings.HasPrefix(line, h.prefix) {
			return h.level, line[len(h.prefix):], true
		}
	}
	return 0, "", false
}

func renderLine(line, locale string, banks models.BankMap, categories models.CategoryMap, overrides placeholder.Overrides, assigner *placeholder.Assigner) []Span {
	var spans []Span
	last := 0

	for tok := range placeholder.Tokenize(line) {
		if tok.Start > last {
			spans = append(spans, Span{Kind: SpanText, Text: line[last:tok.Start]})
		}

		occ := assigner.Next(tok.Key)
		value := placeholder.Resolve(occ, locale, banks, overrides)
		spans = append(spans, Span{
			Kind: SpanVariable,
			Variable: &VariableSpan{
				Identity: occ.Identity(),
				Key:      occ.Key,
				Ordinal:  occ.Ordinal,
				Raw:      tok.Raw,
				Display:  value.Text,
				Source:   value.Source,
				Category: placeholder.CategoryLabelFor(occ.Key, locale, banks, categories),
				Options:  placeholder.LocalizedOptions(occ.Key, locale, banks),
			},
		})
		last = tok.End
	}

	if last < len(line) {
		spans = append(spans, Span{Kind: SpanText, Text: line[last:]})
	}
	return spans
}

// Variables returns the variable spans of blocks in document order
func Variables(blocks []BlockNode) []*VariableSpan {
	var vars []*VariableSpan
	for _, b := range blocks {
		for _, s := range b.Spans {
			if s.Variable != nil {
				vars = append(vars, s.Variable)
			}
		}
	}
	return vars
}

// Flatten renders blocks back to plain text using each variable's display value
func Flatten(blocks []BlockNode) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == BlockHeading {
			lines = append(lines, strings.Repeat("#", b.Level)+" "+b.Text)
			continue
		}
		var sb strings.Builder
		for _, s := range b.Spans {
			if s.Variable != nil {
				sb.WriteString(s.Variable.Display)
			} else {
				sb.WriteString(s.Text)
			}
		}
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}
