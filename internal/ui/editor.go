package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/spark-prompt/internal/placeholder"
	"github.com/dpshade/spark-prompt/internal/service"
)

// editorCursor returns the textarea cursor as a rune index of its value
func (m Model) editorCursor() int {
	li := m.editor.LineInfo()
	return placeholder.RuneOffset(m.editor.Value(), m.editor.Line(), li.StartColumn+li.ColumnOffset)
}

// syncEditor moves the editor text into the session
func (m *Model) syncEditor() {
	if text := m.editor.Value(); text != m.session.Content() {
		m.session = m.session.EditContent(text)
		m.dirty = true
		m.clampFocus()
	}
}

func (m *Model) openBankSearch() {
	loc := m.locale
	svc := m.service
	m.bankSearch.SetSearchFunc(func(query, category string) []service.BankMatch {
		return svc.SearchBanks(query, category, loc)
	})

	ids := make([]string, 0, len(m.session.Categories))
	for id := range m.session.Categories {
		ids = append(ids, id)
	}
	m.bankSearch.SetCategories(ids)
	m.bankSearch.SetActive(true)
}

// applyBankSearch inserts the chosen bank key at the editor cursor
func (m *Model) applyBankSearch() tea.Cmd {
	bankKey, ok := m.bankSearch.IsApplyRequested()
	if !ok {
		return nil
	}

	m.session = m.session.EditContent(m.editor.Value()).InsertToken(m.editorCursor(), bankKey)
	m.editor.InsertString(placeholder.FormatToken(bankKey))
	if m.editor.Value() != m.session.Content() {
		m.editor.SetValue(m.session.Content())
	}
	m.dirty = true
	m.clampFocus()
	return m.setStatus("Inserted "+placeholder.FormatToken(bankKey), "success")
}

func (m *Model) saveEdits() tea.Cmd {
	m.syncEditor()
	t, err := m.service.SetTemplateContent(m.session.Template.ID, m.locale, m.session.Content())
	if err != nil {
		return m.setError(err)
	}
	m.session = m.session.WithTemplate(t)
	m.dirty = false
	for i := range m.templates {
		if m.templates[i].ID == t.ID {
			m.templates[i] = t
		}
	}
	m.setTemplates(m.templates)
	return m.setStatus("Template saved", "success")
}

func (m Model) updateEditor(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Back):
			m.syncEditor()
			m.editor.Blur()
			m.viewMode = ViewPreview
			return m, nil
		case key.Matches(keyMsg, m.keys.Insert):
			m.openBankSearch()
			return m, nil
		case key.Matches(keyMsg, m.keys.SaveEdits):
			cmd := m.saveEdits()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

// renderEditorView renders the template source editor
func (m Model) renderEditorView() string {
	subtitle := "editing " + m.locale
	if m.dirty || m.editor.Value() != m.session.Content() {
		subtitle += " • unsaved"
	}
	vars := len(placeholder.Identities(m.editor.Value()))
	return lipgloss.JoinVertical(lipgloss.Left,
		CreateSubPageHeader(m.session.Template.NameFor(m.locale), subtitle),
		m.editor.View(),
		StyleMetadata.Render(pluralize(vars, "variable")),
		CreateHelp("ctrl+k insert variable • ctrl+s save • esc preview"),
	)
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
