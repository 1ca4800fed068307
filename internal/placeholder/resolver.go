package placeholder

import (
	"github.com/dpshade/spark-prompt/internal/models"
)

const (
	// UnresolvedMarker is displayed for occurrences with no override and no bank value
	UnresolvedMarker = "???"

	// DefaultColor is the neutral color tag for keys without a known category
	DefaultColor = "default"
)

// Source records which precedence step produced a value
type Source int

const (
	SourceOverride Source = iota
	SourceBank
	SourceUnresolved
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceBank:
		return "bank"
	default:
		return "unresolved"
	}
}

// MarshalText encodes the source as its name
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DisplayValue is the resolved value of one occurrence
type DisplayValue struct {
	Text   string
	Source Source
}

// Resolved reports whether a concrete value was found
func (v DisplayValue) Resolved() bool {
	return v.Source != SourceUnresolved
}

// Resolve computes the value of an occurrence: the override entry for its
// identity, else the first bank option in locale (cn fallback), else
// UnresolvedMarker.
func Resolve(occ Occurrence, locale string, banks models.BankMap, store Overrides) DisplayValue {
	if v, ok := store.Get(occ.Identity()); ok {
		return DisplayValue{Text: v, Source: SourceOverride}
	}
	if v, ok := BankDefault(occ.Key, locale, banks); ok {
		return DisplayValue{Text: v, Source: SourceBank}
	}
	return DisplayValue{Text: UnresolvedMarker, Source: SourceUnresolved}
}

// BankDefault returns the first option of the key's bank in locale
func BankDefault(key, locale string, banks models.BankMap) (string, bool) {
	bank, ok := banks[key]
	if !ok || len(bank.Options) == 0 {
		return "", false
	}
	return bank.Options[0].Lookup(locale)
}

// CategoryInfo is display metadata for a variable span
type CategoryInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// CategoryLabelFor returns the category label and color shown for key.
// A key without a bank is labelled with itself; a bank whose category is
// unknown is labelled with the category id. Both get DefaultColor.
func CategoryLabelFor(key, locale string, banks models.BankMap, categories models.CategoryMap) CategoryInfo {
	bank, ok := banks[key]
	if !ok {
		return CategoryInfo{Label: key, Color: DefaultColor}
	}

	info := CategoryInfo{ID: bank.Category, Label: bank.Category, Color: DefaultColor}
	cat, ok := categories[bank.Category]
	if !ok {
		if info.Label == "" {
			info.Label = key
		}
		return info
	}

	if label := cat.LabelFor(locale); label != "" {
		info.Label = label
	}
	if cat.Color != "" {
		info.Color = cat.Color
	}
	return info
}

// LocalizedOptions returns the picker entries for key in locale
func LocalizedOptions(key, locale string, banks models.BankMap) []string {
	bank, ok := banks[key]
	if !ok {
		return nil
	}
	options := make([]string, 0, len(bank.Options))
	for _, opt := range bank.Options {
		options = append(options, opt.Get(locale))
	}
	return options
}
