package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PickerModal lets the user choose one value from a list, either an option
// of the focused variable's bank or a saved selection of the template
type PickerModal struct {
	list           list.Model
	target         string // identity or selection list the choice applies to
	isActive       bool
	width          int
	height         int
	applyRequested bool
	chosen         pickerItem
}

// pickerItem implements the list.Item interface
type pickerItem struct {
	label   string
	value   string
	detail  string
	current bool
}

func (p pickerItem) FilterValue() string {
	return p.label
}

// pickerItemDelegate renders one option per line with the current value checked
type pickerItemDelegate struct{}

func (d pickerItemDelegate) Height() int                               { return 1 }
func (d pickerItemDelegate) Spacing() int                              { return 0 }
func (d pickerItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d pickerItemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(pickerItem)
	if !ok {
		return
	}

	title := "  " + item.label
	if item.current {
		title = "✓ " + item.label
	}
	if item.detail != "" {
		title += StyleTextDim.Render("  " + item.detail)
	}

	style := StyleUnselected
	if index == m.Index() {
		style = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true).Padding(0, 1)
	}
	fmt.Fprint(w, style.Render(title))
}

// NewPickerModal creates a new picker modal
func NewPickerModal() *PickerModal {
	l := list.New([]list.Item{}, pickerItemDelegate{}, 50, 12)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)

	keyMap := list.DefaultKeyMap()
	keyMap.ShowFullHelp = key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("Ctrl+h", "toggle help"))
	keyMap.Quit = key.NewBinding(key.WithDisabled())
	l.KeyMap = keyMap

	return &PickerModal{list: l}
}

// SetSize updates the modal size
func (p *PickerModal) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.list.SetSize(min(max(width-8, 20), 70), min(max(height-8, 5), 20))
}

// Show opens the picker for target with the given items. The item whose value
// equals current is checked and highlighted.
func (p *PickerModal) Show(title, target string, items []pickerItem, current string) {
	listItems := make([]list.Item, len(items))
	cursor := 0
	for i, item := range items {
		if item.value == current {
			item.current = true
			cursor = i
		}
		listItems[i] = item
	}

	p.list.ResetFilter()
	p.list.Title = title
	p.list.SetItems(listItems)
	p.list.Select(cursor)
	p.target = target
	p.isActive = true
	p.applyRequested = false
	p.chosen = pickerItem{}
}

// Hide deactivates the modal
func (p *PickerModal) Hide() {
	p.isActive = false
}

// IsActive returns whether the modal is active
func (p *PickerModal) IsActive() bool {
	return p.isActive
}

// ShouldApply returns whether a value was chosen. It resets the request.
func (p *PickerModal) ShouldApply() (target, value string, ok bool) {
	if !p.applyRequested {
		return "", "", false
	}
	p.applyRequested = false
	return p.target, p.chosen.value, true
}

// Update handles modal updates
func (p *PickerModal) Update(msg tea.Msg) tea.Cmd {
	if !p.isActive {
		return nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !p.list.SettingFilter() {
		switch msg.String() {
		case "enter":
			if item, ok := p.list.SelectedItem().(pickerItem); ok {
				p.chosen = item
				p.applyRequested = true
			}
			p.isActive = false
			return nil
		case "esc":
			if p.list.FilterState() == list.FilterApplied {
				p.list.ResetFilter()
				return nil
			}
			p.isActive = false
			return nil
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

// View renders the modal
func (p *PickerModal) View() string {
	if !p.isActive {
		return ""
	}

	instructions := CreateHelp("↑/↓: move • /: filter • Enter: choose • Esc: cancel")
	content := lipgloss.JoinVertical(lipgloss.Left, p.list.View(), "", instructions)
	return CenterModal(StyleModal.Render(content), p.width, p.height)
}
