package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dpshade/spark-prompt/internal/service"
)

const maxBankResults = 8

// BankSearchModal provides fuzzy bank search for inserting placeholders
type BankSearchModal struct {
	input         textinput.Model
	categories    []string // filter cycle, starting with service.AllCategories
	categoryIndex int
	results       []service.BankMatch
	cursor        int
	isActive      bool
	width         int
	height        int
	showHelp      bool

	searchFunc     func(query, category string) []service.BankMatch
	applyRequested bool
	chosen         string
}

// NewBankSearchModal creates a new bank search modal
func NewBankSearchModal() *BankSearchModal {
	ti := textinput.New()
	ti.Placeholder = "Search banks by key or label"
	ti.CharLimit = 100
	ti.Width = 50

	return &BankSearchModal{
		input:      ti,
		categories: []string{service.AllCategories},
	}
}

// SetSearchFunc sets the callback used for live search
func (m *BankSearchModal) SetSearchFunc(searchFunc func(query, category string) []service.BankMatch) {
	m.searchFunc = searchFunc
}

// SetCategories sets the category ids the filter cycles through
func (m *BankSearchModal) SetCategories(ids []string) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	m.categories = append([]string{service.AllCategories}, sorted...)
	if m.categoryIndex >= len(m.categories) {
		m.categoryIndex = 0
	}
}

// Category returns the active category filter
func (m *BankSearchModal) Category() string {
	return m.categories[m.categoryIndex]
}

// SetActive opens or closes the modal. Opening clears the previous query.
func (m *BankSearchModal) SetActive(active bool) {
	m.isActive = active
	m.applyRequested = false
	if active {
		m.input.SetValue("")
		m.input.Focus()
		m.search()
	} else {
		m.input.Blur()
	}
}

// IsActive returns whether the modal is active
func (m *BankSearchModal) IsActive() bool {
	return m.isActive
}

// IsApplyRequested reports the chosen bank key. It resets the request.
func (m *BankSearchModal) IsApplyRequested() (string, bool) {
	if !m.applyRequested {
		return "", false
	}
	m.applyRequested = false
	return m.chosen, true
}

func (m *BankSearchModal) search() {
	if m.searchFunc == nil {
		return
	}
	m.results = m.searchFunc(m.input.Value(), m.Category())
	m.cursor = 0
}

// Update handles input for the modal
func (m *BankSearchModal) Update(msg tea.Msg) tea.Cmd {
	if !m.isActive {
		return nil
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch {
	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("esc"))):
		m.SetActive(false)
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("tab"))):
		m.categoryIndex = (m.categoryIndex + 1) % len(m.categories)
		m.search()
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("shift+tab"))):
		m.categoryIndex = (m.categoryIndex + len(m.categories) - 1) % len(m.categories)
		m.search()
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("ctrl+g"))):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("up", "ctrl+p"))):
		if m.cursor > 0 {
			m.cursor--
		}
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("down", "ctrl+n"))):
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return nil

	case key.Matches(keyMsg, key.NewBinding(key.WithKeys("enter"))):
		if m.cursor < len(m.results) {
			m.chosen = m.results[m.cursor].Key
			m.isActive = false
			m.input.Blur()
			m.applyRequested = true
		}
		return nil
	}

	oldQuery := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != oldQuery {
		m.search()
	}
	return cmd
}

// highlight renders key with the fuzzy matched runes emphasized. Indexes
// beyond the key refer to the label part of the searched string.
func highlight(text string, matched []int) string {
	if len(matched) == 0 {
		return text
	}
	hit := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)

	var b strings.Builder
	for i, r := range []rune(text) {
		if slices.Contains(matched, i) {
			b.WriteString(hit.Render(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// View renders the modal
func (m *BankSearchModal) View() string {
	if !m.isActive {
		return ""
	}

	var content []string
	content = append(content, StyleTitle.Render("Insert Variable"), "")

	filters := make([]string, len(m.categories))
	for i, c := range m.categories {
		if i == m.categoryIndex {
			filters[i] = StyleSearchIndicator.Render(c)
		} else {
			filters[i] = StyleTextMuted.Render(c)
		}
	}
	content = append(content, "Category: "+strings.Join(filters, " "), m.input.View(), "")

	if len(m.results) == 0 {
		content = append(content, StyleTextMuted.Render("No banks found"))
	}
	start := 0
	if m.cursor >= maxBankResults {
		start = m.cursor - maxBankResults + 1
	}
	for i := start; i < len(m.results) && i < start+maxBankResults; i++ {
		r := m.results[i]
		line := fmt.Sprintf("%s  %s  %s",
			highlight(r.Key, r.MatchedIndexes),
			r.Label,
			lipgloss.NewStyle().Foreground(chipColor(r.Category.Color)).Render(r.Category.Label))
		if i == m.cursor {
			content = append(content, StyleFocused.Render("▶ ")+line)
		} else {
			content = append(content, "   "+line)
		}
	}
	if len(m.results) > maxBankResults {
		content = append(content, StyleTextDim.Render(fmt.Sprintf("%d of %d banks", min(start+maxBankResults, len(m.results)), len(m.results))))
	}

	content = append(content, "")
	content = append(content, CreateHelp("Enter: insert • ↑/↓: move • Tab: category • Esc: cancel"))
	if m.showHelp {
		content = append(content, CreateHelp("Matches key and label in the current locale • Ctrl+g: less help"))
	}

	return CenterModal(StyleModal.Render(lipgloss.JoinVertical(lipgloss.Left, content...)), m.width, m.height)
}

// Resize updates the modal dimensions
func (m *BankSearchModal) Resize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = min(max(width-20, 20), 60)
}
