package placeholder

import (
	"iter"
	"strconv"
)

// Occurrence is one appearance of a key within a single parse pass
type Occurrence struct {
	Key     string
	Ordinal int
}

// Identity returns the override-store address of the occurrence
func (o Occurrence) Identity() string {
	return o.Key + "_" + strconv.Itoa(o.Ordinal)
}

// Assigner numbers the occurrences of one pass. A fresh Assigner must be
// used for every pass.
type Assigner struct {
	counts map[string]int
}

// NewAssigner creates an assigner with all counters at zero
func NewAssigner() *Assigner {
	return &Assigner{counts: make(map[string]int)}
}

// Next returns the occurrence for the next appearance of key
func (a *Assigner) Next(key string) Occurrence {
	n := a.counts[key]
	a.counts[key] = n + 1
	return Occurrence{Key: key, Ordinal: n}
}

// Occurrences runs a full pass over content, pairing every token with its occurrence
func Occurrences(content string) iter.Seq2[Token, Occurrence] {
	return func(yield func(Token, Occurrence) bool) {
		assigner := NewAssigner()
		for tok := range Tokenize(content) {
			if !yield(tok, assigner.Next(tok.Key)) {
				return
			}
		}
	}
}

// Identities returns the ordered occurrence identities of content
func Identities(content string) []string {
	var ids []string
	for _, occ := range Occurrences(content) {
		ids = append(ids, occ.Identity())
	}
	return ids
}
