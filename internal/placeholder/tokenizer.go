package placeholder

import (
	"iter"
	"regexp"
	"strings"
)

// tokenPattern matches {{...}} where the inner text contains no closing brace
// and no line break, so a token never spans two rendered lines
var tokenPattern = regexp.MustCompile(`\{\{([^}\n]+)\}\}`)

// Token is one placeholder match in a content string
type Token struct {
	Key   string // trimmed text between the delimiters
	Raw   string // the full matched text, delimiters included
	Start int    // byte offset of the first '{'
	End   int    // byte offset just past the last '}'
}

// Tokenize returns the placeholder tokens of content in document order.
// The sequence is evaluated lazily and may be ranged over any number of times.
func Tokenize(content string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		offset := 0
		for offset < len(content) {
			loc := tokenPattern.FindStringSubmatchIndex(content[offset:])
			if loc == nil {
				return
			}

			start, end := offset+loc[0], offset+loc[1]
			key := strings.TrimSpace(content[offset+loc[2] : offset+loc[3]])
			offset = end

			// "{{ }}" has no key and stays literal
			if key == "" {
				continue
			}

			if !yield(Token{Key: key, Raw: content[start:end], Start: start, End: end}) {
				return
			}
		}
	}
}

// Tokens collects every token of content
func Tokens(content string) []Token {
	var tokens []Token
	for tok := range Tokenize(content) {
		tokens = append(tokens, tok)
	}
	return tokens
}

// FormatToken returns the placeholder text for key
func FormatToken(key string) string {
	return "{{" + key + "}}"
}
