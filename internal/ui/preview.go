package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/spark-prompt/internal/locale"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/placeholder"
	"github.com/dpshade/spark-prompt/internal/renderer"
)

// pickerSelections marks a picker opened on saved selections instead of options
const pickerSelections = "\x00selections"

// focused returns the focused variable occurrence, if any
func (m Model) focused() (*renderer.VariableSpan, bool) {
	vars := m.session.Variables()
	if m.focus < 0 || m.focus >= len(vars) {
		return nil, false
	}
	return vars[m.focus], true
}

func (m *Model) clampFocus() {
	n := len(m.session.Variables())
	switch {
	case n == 0:
		m.focus = 0
	case m.focus >= n:
		m.focus = n - 1
	case m.focus < 0:
		m.focus = 0
	}
}

func (m *Model) moveFocus(delta int) {
	n := len(m.session.Variables())
	if n == 0 {
		return
	}
	m.focus = ((m.focus+delta)%n + n) % n
}

// toggleLocale switches between cn and en. Selections survive the switch.
func (m *Model) toggleLocale() {
	m.locale = locale.Toggle(m.locale)
	if m.hasSession {
		m.session = m.session.WithLocale(m.locale)
		m.clampFocus()
	}
	m.setTemplates(m.templates)
}

func (m Model) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.viewMode = ViewLibrary
		return m, nil

	case key.Matches(msg, m.keys.Next):
		m.moveFocus(1)

	case key.Matches(msg, m.keys.Prev):
		m.moveFocus(-1)

	case key.Matches(msg, m.keys.Enter):
		v, ok := m.focused()
		if !ok {
			return m, nil
		}
		if len(v.Options) == 0 {
			m.openCustomValue(v)
			return m, nil
		}
		items := make([]pickerItem, len(v.Options))
		for i, opt := range v.Options {
			items[i] = pickerItem{label: opt, value: opt}
		}
		m.picker.Show(fmt.Sprintf("%s · %s", v.Identity, v.Category.Label), v.Identity, items, v.Display)

	case key.Matches(msg, m.keys.Custom):
		if v, ok := m.focused(); ok {
			m.openCustomValue(v)
		}

	case key.Matches(msg, m.keys.Reset):
		if v, ok := m.focused(); ok {
			m.session = m.session.Reset(v.Identity)
			cmd := m.setStatus("Reset "+v.Identity, "info")
			return m, cmd
		}

	case key.Matches(msg, m.keys.Locale):
		m.toggleLocale()
		cmd := m.setStatus("Locale: "+m.locale, "info")
		return m, cmd

	case key.Matches(msg, m.keys.Edit):
		m.editor.SetValue(m.session.Content())
		m.editor.Focus()
		m.viewMode = ViewEditor
		return m, nil

	case key.Matches(msg, m.keys.Prompt):
		m.renderPrompt()
		m.viewMode = ViewPrompt
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.ctx, m.clipboard, m.session.Prompt())

	case key.Matches(msg, m.keys.Save):
		selections := m.session.Overrides.Selections()
		summary := make([]string, 0, len(selections))
		for id, value := range selections {
			summary = append(summary, fmt.Sprintf("%s = %s", id, value))
		}
		sort.Strings(summary)
		if len(summary) == 0 {
			summary = []string{"No values chosen yet; the selection will be empty"}
		}
		m.input.Open(InputSaveSelection, "Save Selection", "Name", m.session.Template.ID, "", summary)

	case key.Matches(msg, m.keys.Apply):
		saved, err := m.service.ListSelections(m.session.Template.ID)
		if err != nil {
			cmd := m.setError(err)
			return m, cmd
		}
		if len(saved) == 0 {
			cmd := m.setStatus("No saved selections", "warning")
			return m, cmd
		}
		items := make([]pickerItem, len(saved))
		for i, sel := range saved {
			items[i] = pickerItem{label: sel.Name, value: sel.Name, detail: fmt.Sprintf("%d values", len(sel.Values))}
		}
		m.picker.Show("Saved Selections", pickerSelections, items, "")

	case key.Matches(msg, m.keys.Help):
		m.showFullHelp = !m.showFullHelp
	}
	return m, nil
}

// chosen returns the user's value for identity, ignoring populated defaults
func (m Model) chosen(identity string) (string, bool) {
	e, ok := m.session.Overrides.Entry(identity)
	if !ok || e.Default {
		return "", false
	}
	return e.Value, true
}

// sourceLabel describes where the value of v comes from
func (m Model) sourceLabel(v *renderer.VariableSpan) string {
	if _, ok := m.chosen(v.Identity); ok {
		return "selected"
	}
	if v.Source == placeholder.SourceUnresolved {
		return "unresolved"
	}
	return "default"
}

func (m *Model) openCustomValue(v *renderer.VariableSpan) {
	value, _ := m.chosen(v.Identity)
	m.input.Open(InputCustomValue, "Custom Value", v.Identity, v.Identity, value, []string{"Key: " + v.Key, "Category: " + v.Category.Label})
}

// applyPicker records the value chosen in the picker
func (m *Model) applyPicker() tea.Cmd {
	target, value, ok := m.picker.ShouldApply()
	if !ok {
		return nil
	}
	if target == pickerSelections {
		session, err := m.service.ApplySelection(m.session, value)
		if err != nil {
			return m.setError(err)
		}
		m.session = session
		return m.setStatus("Applied selection "+value, "success")
	}
	m.session = m.session.Select(target, value)
	return nil
}

// applyInput handles a submitted input modal
func (m *Model) applyInput() tea.Cmd {
	purpose, target, value, ok := m.input.Submitted()
	if !ok {
		return nil
	}
	switch purpose {
	case InputSaveSelection:
		if err := m.service.SaveSelection(m.session, value); err != nil {
			return m.setError(err)
		}
		return m.setStatus("Saved selection "+value, "success")
	default:
		m.session = m.session.Select(target, value)
		return nil
	}
}

// renderBlocks draws the block tree with one chip per variable occurrence
func renderBlocks(blocks []renderer.BlockNode, focus int) string {
	lines := make([]string, 0, len(blocks))
	index := 0
	for _, b := range blocks {
		if b.Kind == renderer.BlockHeading {
			lines = append(lines, StyleHeading.Render(b.Text))
			continue
		}
		var line strings.Builder
		for _, span := range b.Spans {
			if span.Kind != renderer.SpanVariable {
				line.WriteString(StyleText.Render(span.Text))
				continue
			}
			v := span.Variable
			line.WriteString(CreateChip(v.Display, v.Category.Color, index == focus, v.Source != placeholder.SourceUnresolved))
			index++
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// renderPreviewView renders the selected template with its variable chips
func (m Model) renderPreviewView() string {
	t := m.session.Template
	subtitle := "locale: " + m.locale
	if m.dirty {
		subtitle += " • unsaved edits"
	}
	elements := []string{CreateSubPageHeader(t.NameFor(m.locale), subtitle)}
	if meta := (models.ListItem{Template: t, Locale: m.locale}).Description(); meta != "" {
		elements = append(elements, StyleMetadata.Render(meta))
	}

	container := StyleContentContainer
	if m.width > 8 {
		container = container.Width(m.width - 8)
	}
	elements = append(elements, container.Render(renderBlocks(m.session.Blocks(), m.focus)))

	if v, ok := m.focused(); ok {
		detail := fmt.Sprintf("%s • %s • %s", v.Identity, v.Category.Label, m.sourceLabel(v))
		elements = append(elements, StyleSubtitle.Render(detail))
		if len(v.Options) > 0 {
			elements = append(elements, StyleMetadata.Render("Options: "+strings.Join(v.Options, " | ")))
		}
	} else {
		elements = append(elements, StyleTextMuted.Render("No variables. Press e to insert one."))
	}

	if m.showFullHelp {
		elements = append(elements, m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		elements = append(elements, CreateHelp("tab next • enter pick • v custom • l locale • e edit • p prompt • c copy • ? more • esc back"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, elements...)
}

// renderPrompt fills the viewport with the resolved prompt as markdown
func (m *Model) renderPrompt() {
	prompt := m.session.Prompt()
	formatted, err := m.glamourRenderer.Render(prompt)
	if err != nil {
		formatted = prompt
	}
	m.viewport.SetContent(formatted)
	m.viewport.GotoTop()
}

func (m Model) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Back):
			m.viewMode = ViewPreview
			return m, nil
		case key.Matches(keyMsg, m.keys.Copy):
			return m, copyCmd(m.ctx, m.clipboard, m.session.Prompt())
		case key.Matches(keyMsg, m.keys.CopyJSON):
			text, err := m.session.Renderer().RenderJSON()
			if err != nil {
				cmd := m.setError(err)
				return m, cmd
			}
			return m, copyCmd(m.ctx, m.clipboard, text)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// renderPromptView renders the resolved prompt pane
func (m Model) renderPromptView() string {
	header := CreateSubPageHeader(m.session.Template.NameFor(m.locale), "resolved prompt")
	scroll := ""
	if !m.viewport.AtBottom() {
		scroll = StyleTextDim.Render(fmt.Sprintf("%3.f%%", m.viewport.ScrollPercent()*100))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		scroll,
		CreateHelp("c copy • y copy as JSON • ↑/↓ scroll • esc back"),
	)
}
