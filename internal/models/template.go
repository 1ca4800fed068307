package models

import (
	"strings"
)

// Template represents a reusable prompt scaffold containing {{key}} placeholders
type Template struct {
	ID        string        `json:"id" yaml:"id"`
	Name      LocalizedText `json:"name" yaml:"name"`
	Content   LocalizedText `json:"content" yaml:"content"`
	ImageURL  string        `json:"imageUrl" yaml:"image_url"`
	ImageURLs []string      `json:"imageUrls,omitempty" yaml:"image_urls,omitempty"`
	Author    string        `json:"author" yaml:"author"`
	Tags      []string      `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// ContentFor returns the template source for a locale, falling back to cn
func (t Template) ContentFor(locale string) string {
	return t.Content.Get(locale)
}

// NameFor returns the display name for a locale, falling back to cn and then the ID
func (t Template) NameFor(locale string) string {
	if name := t.Name.Get(locale); name != "" {
		return name
	}
	return t.ID
}

// Clone returns a deep copy of the template
func (t Template) Clone() Template {
	out := t
	out.Name = t.Name.Clone()
	out.Content = t.Content.Clone()
	if t.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), t.ImageURLs...)
	}
	if t.Tags != nil {
		out.Tags = append([]string(nil), t.Tags...)
	}
	return out
}

// ListItem adapts a template to the bubbles list.Item interface for one locale
type ListItem struct {
	Template Template
	Locale   string
}

// FilterValue returns the value used for filtering in lists
func (i ListItem) FilterValue() string {
	return cleanString(i.Template.NameFor(i.Locale))
}

// Title satisfies the list.DefaultItem interface
func (i ListItem) Title() string {
	return cleanString(i.Template.NameFor(i.Locale))
}

// Description satisfies the list.DefaultItem interface
func (i ListItem) Description() string {
	var parts []string
	if i.Template.Author != "" {
		parts = append(parts, "by "+i.Template.Author)
	}
	if len(i.Template.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(i.Template.Tags, ", "))
	}
	result := cleanString(strings.Join(parts, " • "))

	// Leave space for list indicator and margins
	const maxTotalLength = 100
	if runes := []rune(result); len(runes) > maxTotalLength {
		result = string(runes[:maxTotalLength-3]) + "..."
	}
	return result
}

// cleanString removes control characters that break single-line rendering
func cleanString(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r >= 32 && r != 127:
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
