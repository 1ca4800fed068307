package models

// BankItem is the vocabulary for one placeholder key
type BankItem struct {
	Label    LocalizedText   `json:"label" yaml:"label"`
	Category string          `json:"category" yaml:"category"`
	Options  []LocalizedText `json:"options" yaml:"options"`
}

// BankMap maps a placeholder key to its vocabulary
type BankMap map[string]BankItem

// Category groups bank items for display
type Category struct {
	ID    string        `json:"id" yaml:"id"`
	Label LocalizedText `json:"label" yaml:"label"`
	Color string        `json:"color" yaml:"color"`
}

// CategoryMap maps a category id to its definition
type CategoryMap map[string]Category

// Clone returns a shallow copy of the map; bank items are treated as read-only
func (b BankMap) Clone() BankMap {
	out := make(BankMap, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// LabelFor returns the category label in locale, falling back to cn, then en,
// then the category id
func (c Category) LabelFor(locale string) string {
	if label, ok := c.Label.Lookup(locale); ok {
		return label
	}
	if label := c.Label["en"]; label != "" {
		return label
	}
	return c.ID
}
