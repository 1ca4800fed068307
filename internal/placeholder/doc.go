// Package placeholder implements the {{key}} placeholder pipeline shared by
// every consumer of template content: tokenizing, assigning per-occurrence
// identities, resolving values against the vocabulary bank and maintaining
// the per-occurrence override store.
//
// A single left-to-right pass over one content string assigns each token an
// Occurrence{Key, Ordinal}. Its identity ("key_ordinal") addresses the
// override store. Identities are positional: inserting or removing an
// earlier occurrence of the same key renumbers the later ones.
//
// Nothing in this package returns an error. Malformed delimiters stay literal
// text and unknown keys resolve to UnresolvedMarker.
package placeholder
