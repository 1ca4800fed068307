package models

// FallbackLocale is consulted whenever a localized field has no value for
// the requested locale.
const FallbackLocale = "cn"

// LocalizedText maps a locale code to a string
type LocalizedText map[string]string

// Get returns the value for locale, falling back to the cn entry when the
// locale is missing or empty.
func (t LocalizedText) Get(locale string) string {
	if v := t[locale]; v != "" {
		return v
	}
	return t[FallbackLocale]
}

// Lookup is like Get but reports whether any value was found.
func (t LocalizedText) Lookup(locale string) (string, bool) {
	v := t.Get(locale)
	return v, v != ""
}

// Clone returns a copy that can be modified independently
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
