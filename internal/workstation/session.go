// Package workstation holds the editing state of one template as an
// immutable snapshot. Every event handler receives a Session and returns the
// next one, so UI code never shares mutable state with the engine.
package workstation

import (
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
	"github.com/dpshade/spark-prompt/internal/renderer"
)

// Session is the state of the workstation for one template
type Session struct {
	Template   models.Template
	Locale     string
	Banks      models.BankMap
	Categories models.CategoryMap
	Overrides  placeholder.Overrides
}

// New opens a session with bank defaults populated for every occurrence
func New(t models.Template, locale string, banks models.BankMap, categories models.CategoryMap) Session {
	s := Session{
		Template:   t,
		Locale:     locale,
		Banks:      banks,
		Categories: categories,
		Overrides:  placeholder.NewOverrides(),
	}
	return s.populated()
}

// Content returns the template source in the session locale
func (s Session) Content() string {
	return s.Template.ContentFor(s.Locale)
}

func (s Session) populated() Session {
	s.Overrides = placeholder.PopulateDefaults(s.Content(), s.Locale, s.Banks, s.Overrides)
	return s
}

func (s Session) refreshed() Session {
	s.Overrides = placeholder.RefreshDefaults(s.Content(), s.Locale, s.Banks, s.Overrides)
	return s
}

// WithLocale switches locale. User selections are kept; defaults follow the new locale.
func (s Session) WithLocale(locale string) Session {
	if locale == s.Locale {
		return s
	}
	s.Locale = locale
	return s.refreshed()
}

// WithTemplate replaces the template. A different template id starts with an
// empty store; the same id keeps user selections.
func (s Session) WithTemplate(t models.Template) Session {
	if t.ID != s.Template.ID {
		return New(t, s.Locale, s.Banks, s.Categories)
	}
	s.Template = t
	return s.refreshed()
}

// WithBanks installs a reloaded bank snapshot
func (s Session) WithBanks(banks models.BankMap, categories models.CategoryMap) Session {
	s.Banks = banks
	s.Categories = categories
	return s.refreshed()
}

// Select records the user's value for one occurrence
func (s Session) Select(identity, value string) Session {
	s.Overrides = placeholder.SetOverride(s.Overrides, identity, value)
	return s
}

// Reset drops the user's value for one occurrence, restoring its bank default
func (s Session) Reset(identity string) Session {
	s.Overrides = placeholder.ClearOverride(s.Overrides, identity)
	return s.populated()
}

// InsertToken splices {{key}} into the current locale's content at cursor
// (a rune index) and populates the default of the new occurrence.
func (s Session) InsertToken(cursor int, key string) Session {
	return s.EditContent(placeholder.InsertToken(s.Content(), cursor, key))
}

// EditContent replaces the current locale's content
func (s Session) EditContent(text string) Session {
	s.Template = placeholder.SetContent(s.Template, s.Locale, text)
	return s.populated()
}

// Blocks renders the session content
func (s Session) Blocks() []renderer.BlockNode {
	return renderer.Render(s.Content(), s.Locale, s.Banks, s.Categories, s.Overrides)
}

// Variables returns every variable occurrence of the content in order
func (s Session) Variables() []*renderer.VariableSpan {
	return renderer.Variables(s.Blocks())
}

// Prompt returns the fully resolved prompt
func (s Session) Prompt() string {
	return renderer.ResolvePrompt(s.Content(), s.Locale, s.Banks, s.Overrides)
}

// Renderer returns a renderer bound to the session snapshot
func (s Session) Renderer() *renderer.Renderer {
	return renderer.NewRenderer(s.Template, s.Locale, s.Banks, s.Categories, s.Overrides)
}
