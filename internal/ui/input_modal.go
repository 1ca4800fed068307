package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputPurpose tells the model what a submitted InputModal value is for
type InputPurpose int

const (
	InputSaveSelection InputPurpose = iota
	InputCustomValue
)

// InputModal asks for one line of text: a name for the current selections or
// a custom value for the focused variable
type InputModal struct {
	input     textinput.Model
	purpose   InputPurpose
	title     string
	label     string
	summary   []string
	target    string
	allowNone bool // empty submissions are accepted
	isActive  bool
	submitted bool
	width     int
	height    int
}

// NewInputModal creates a new input modal
func NewInputModal() *InputModal {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 50
	return &InputModal{input: ti}
}

// Open activates the modal. summary lines are shown under the input.
func (m *InputModal) Open(purpose InputPurpose, title, label, target, value string, summary []string) {
	m.purpose = purpose
	m.title = title
	m.label = label
	m.target = target
	m.summary = summary
	m.allowNone = purpose == InputCustomValue
	m.submitted = false
	m.isActive = true

	m.input.Placeholder = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// Update handles input for the modal
func (m *InputModal) Update(msg tea.Msg) tea.Cmd {
	if !m.isActive {
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			m.isActive = false
			m.submitted = false
			m.input.Blur()
			return nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if !m.allowNone && strings.TrimSpace(m.input.Value()) == "" {
				return nil
			}
			m.submitted = true
			m.isActive = false
			m.input.Blur()
			return nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// IsActive returns whether the modal is active
func (m *InputModal) IsActive() bool {
	return m.isActive
}

// Submitted returns the submitted value and resets the submission
func (m *InputModal) Submitted() (purpose InputPurpose, target, value string, ok bool) {
	if !m.submitted {
		return 0, "", "", false
	}
	m.submitted = false
	value = m.input.Value()
	if m.purpose == InputSaveSelection {
		value = strings.TrimSpace(value)
	}
	return m.purpose, m.target, value, true
}

// View renders the modal
func (m *InputModal) View() string {
	if !m.isActive {
		return ""
	}

	content := []string{
		StyleTitle.Render(m.title),
		"",
		lipgloss.NewStyle().Bold(true).Foreground(ColorSecondary).Render("▶ " + m.label + ":"),
		m.input.View(),
	}
	if len(m.summary) > 0 {
		content = append(content, "")
		for _, line := range m.summary {
			content = append(content, StyleTextMuted.Render(line))
		}
	}
	content = append(content, "", CreateHelp("Enter: save • Esc: cancel"))

	return CenterModal(StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left, content...)), m.width, m.height)
}

// Resize updates the modal dimensions
func (m *InputModal) Resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = min(60, max(width-12, 20))
}
