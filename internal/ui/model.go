// Package ui is the bubbletea workstation: a template library, a preview of
// the selected template with colored variable chips, a placeholder editor
// and a rendered prompt pane.
package ui

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.uber.org/zap"

	"github.com/dpshade/spark-prompt/internal/clipboard"
	"github.com/dpshade/spark-prompt/internal/errors"
	"github.com/dpshade/spark-prompt/internal/models"
	"github.com/dpshade/spark-prompt/internal/service"
	"github.com/dpshade/spark-prompt/internal/workstation"
)

// createGlamourRenderer creates a glamour renderer with improved contrast handling
func createGlamourRenderer(wordWrap int) (*glamour.TermRenderer, error) {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" {
		return glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wordWrap),
		)
	}

	profile := termenv.ColorProfile()

	var styleOption glamour.TermRendererOption
	switch {
	case profile != termenv.TrueColor && profile != termenv.ANSI256:
		// Fallback to auto-style for limited color terminals
		styleOption = glamour.WithAutoStyle()
	case lipgloss.HasDarkBackground():
		styleOption = glamour.WithStandardStyle("dark")
	default:
		styleOption = glamour.WithStandardStyle("light")
	}

	return glamour.NewTermRenderer(
		styleOption,
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(wordWrap),
	)
}

// Options configure a TUI run
type Options struct {
	TemplateID string // opened directly when set
	Locale     string
	Debug      bool
}

// copier is the clipboard used by copy actions
type copier interface {
	CopyWithFallback(ctx context.Context, text string) (string, error)
}

const (
	pollInterval  = 50 * time.Millisecond
	statusSeconds = 3
)

// Commands for async operations
type loadCompleteMsg struct {
	templates []models.Template
	err       error
}

type libraryPollMsg struct{}

type libraryReloadedMsg struct{}

type copyResultMsg struct {
	message string
	err     error
}

// loadLibraryCmd polls the background library load and lists templates once it finishes
func loadLibraryCmd(svc *service.Service, poll func() (bool, error)) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		done, err := poll()
		if !done {
			return libraryPollMsg{}
		}
		if err != nil {
			return loadCompleteMsg{err: err}
		}
		templates, err := svc.ListTemplates()
		return loadCompleteMsg{templates: templates, err: err}
	})
}

func copyCmd(ctx context.Context, c copier, text string) tea.Cmd {
	return func() tea.Msg {
		message, err := c.CopyWithFallback(ctx, text)
		return copyResultMsg{message: message, err: err}
	}
}

// ViewMode represents the current view in the TUI
type ViewMode int

const (
	ViewLibrary ViewMode = iota
	ViewPreview
	ViewEditor
	ViewPrompt
)

// Model represents the TUI application state
type Model struct {
	ctx      context.Context
	service  *service.Service
	opts     Options
	viewMode ViewMode

	// UI components
	templateList list.Model
	viewport     viewport.Model
	editor       textarea.Model
	help         help.Model
	keys         KeyMap

	// Modals
	picker     *PickerModal
	bankSearch *BankSearchModal
	input      *InputModal

	// Data
	templates  []models.Template
	loading    bool
	poll       func() (bool, error)
	locale     string
	session    workstation.Session
	hasSession bool
	focus      int  // index of the focused variable occurrence
	dirty      bool // session content differs from the stored template

	glamourRenderer *glamour.TermRenderer
	clipboard       copier
	errorHandler    *errors.TUIErrorHandler
	logger          *zap.Logger

	// Window dimensions
	width  int
	height int

	// Status messages
	statusMsg     string
	statusType    string
	statusTimeout int

	showFullHelp bool
}

// KeyMap defines all key bindings
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Next      key.Binding
	Prev      key.Binding
	Enter     key.Binding
	Back      key.Binding
	Quit      key.Binding
	Help      key.Binding
	Locale    key.Binding
	Edit      key.Binding
	Prompt    key.Binding
	Copy      key.Binding
	CopyJSON  key.Binding
	Custom    key.Binding
	Reset     key.Binding
	Save      key.Binding
	Apply     key.Binding
	Insert    key.Binding
	SaveEdits key.Binding
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns keybindings to show in the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Enter, k.Custom, k.Reset},
		{k.Locale, k.Edit, k.Prompt, k.Copy, k.CopyJSON},
		{k.Save, k.Apply, k.Insert, k.SaveEdits},
		{k.Back, k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "move up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "move down"),
	),
	Next: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next variable"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("Shift+Tab", "previous variable"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Locale: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle locale"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit"),
	),
	Prompt: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "prompt"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	CopyJSON: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy as JSON"),
	),
	Custom: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "custom value"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset to default"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save selection"),
	),
	Apply: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "apply selection"),
	),
	Insert: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("Ctrl+k", "insert variable"),
	),
	SaveEdits: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("Ctrl+s", "save template"),
	),
}

// NewModel creates a new TUI model and starts loading the library in the background
func NewModel(ctx context.Context, svc *service.Service, opts Options) (*Model, error) {
	initializeColors()

	l := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	listKeys := list.DefaultKeyMap()
	listKeys.Quit = key.NewBinding(key.WithDisabled())
	l.KeyMap = listKeys

	vp := viewport.New(80, 20)
	vp.Style = lipgloss.NewStyle()

	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(15)

	renderer, err := createGlamourRenderer(60)
	if err != nil {
		return nil, fmt.Errorf("failed to create glamour renderer: %w", err)
	}

	loc := opts.Locale
	if loc == "" {
		loc = svc.DefaultLocale()
	}
	logger := svc.Logger().Named("tui")

	m := &Model{
		ctx:             ctx,
		service:         svc,
		opts:            opts,
		viewMode:        ViewLibrary,
		templateList:    l,
		viewport:        vp,
		editor:          ta,
		help:            help.New(),
		keys:            keys,
		picker:          NewPickerModal(),
		bankSearch:      NewBankSearchModal(),
		input:           NewInputModal(),
		loading:         true,
		poll:            svc.LoadLibraryAsync(ctx),
		locale:          loc,
		glamourRenderer: renderer,
		clipboard:       clipboard.New(os.Stderr),
		errorHandler:    errors.NewTUIErrorHandler(opts.Debug, logger),
		logger:          logger,
	}
	return m, nil
}

// Run starts the workstation and blocks until the user quits or ctx is done.
// Bank and template file changes are picked up while it runs.
func Run(ctx context.Context, svc *service.Service, opts Options) error {
	model, err := NewModel(ctx, svc, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	stop, err := svc.WatchLibrary(ctx, func() { p.Send(libraryReloadedMsg{}) })
	if err != nil {
		model.logger.Warn("library watcher unavailable", zap.Error(err))
	} else {
		defer stop()
	}

	if _, err := p.Run(); err != nil {
		if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return loadLibraryCmd(m.service, m.poll)
}

// tickMsg is sent to clear the status message
type tickMsg time.Time

// clearStatusCmd returns a command that clears the status message after a delay
func clearStatusCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) setStatus(text, statusType string) tea.Cmd {
	m.statusMsg = text
	m.statusType = statusType
	m.statusTimeout = statusSeconds
	return clearStatusCmd()
}

func (m *Model) setError(err error) tea.Cmd {
	err = m.errorHandler.HandleError(err)
	icon, _ := m.errorHandler.GetErrorStyle(err)
	return m.setStatus(icon+" "+m.errorHandler.FormatError(err), "error")
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.statusTimeout > 0 {
			m.statusTimeout--
			if m.statusTimeout == 0 {
				m.statusMsg = ""
			} else {
				return m, clearStatusCmd()
			}
		}
		return m, nil

	case libraryPollMsg:
		return m, loadLibraryCmd(m.service, m.poll)

	case loadCompleteMsg:
		m.loading = false
		if msg.err != nil {
			cmd := m.setError(msg.err)
			return m, cmd
		}
		m.setTemplates(msg.templates)
		if m.opts.TemplateID != "" {
			id := m.opts.TemplateID
			m.opts.TemplateID = ""
			cmd := m.openTemplate(id)
			return m, cmd
		}
		return m, nil

	case libraryReloadedMsg:
		cmd := m.reloadLibrary()
		return m, cmd

	case copyResultMsg:
		if msg.err != nil {
			cmd := m.setError(errors.Wrap(msg.err, errors.ErrCodeServiceUnavailable, "could not copy prompt"))
			return m, cmd
		}
		cmd := m.setStatus(msg.message, "success")
		return m, cmd

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	}

	// Modals take all input while open
	switch {
	case m.input.IsActive():
		cmd := m.input.Update(msg)
		applied := m.applyInput()
		return m, tea.Batch(cmd, applied)
	case m.bankSearch.IsActive():
		cmd := m.bankSearch.Update(msg)
		applied := m.applyBankSearch()
		return m, tea.Batch(cmd, applied)
	case m.picker.IsActive():
		cmd := m.picker.Update(msg)
		applied := m.applyPicker()
		return m, tea.Batch(cmd, applied)
	}

	keyMsg, isKey := msg.(tea.KeyMsg)
	if isKey && keyMsg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewPreview:
		if isKey {
			return m.updatePreview(keyMsg)
		}
	case ViewEditor:
		return m.updateEditor(msg)
	case ViewPrompt:
		return m.updatePrompt(msg)
	default:
		return m.updateLibrary(msg)
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	inner := max(width-4, 20)
	m.templateList.SetSize(inner, max(height-6, 5))
	m.viewport.Width = inner
	m.viewport.Height = max(height-8, 5)
	m.editor.SetWidth(inner)
	m.editor.SetHeight(max(height-8, 5))
	m.picker.SetSize(width, height)
	m.bankSearch.Resize(width, height)
	m.input.Resize(width, height)

	if r, err := createGlamourRenderer(max(width-8, 20)); err == nil {
		m.glamourRenderer = r
	}
	if m.viewMode == ViewPrompt {
		m.renderPrompt()
	}
}

func (m *Model) setTemplates(templates []models.Template) {
	m.templates = templates
	items := make([]list.Item, len(templates))
	for i, t := range templates {
		items[i] = models.ListItem{Template: t, Locale: m.locale}
	}
	m.templateList.SetItems(items)
}

// reloadLibrary installs reloaded banks and templates. Unsaved editor
// changes keep their content; selections are kept either way.
func (m *Model) reloadLibrary() tea.Cmd {
	templates, err := m.service.ListTemplates()
	if err != nil {
		return m.setError(err)
	}
	m.setTemplates(templates)

	if m.hasSession {
		m.session = m.session.WithBanks(m.service.Banks(), m.service.Categories())
		if !m.dirty {
			if t, err := m.service.GetTemplate(m.session.Template.ID); err == nil {
				m.session = m.session.WithTemplate(t)
			}
		}
		m.clampFocus()
		if m.viewMode == ViewPrompt {
			m.renderPrompt()
		}
	}
	return m.setStatus("Library reloaded", "info")
}

func (m *Model) openTemplate(id string) tea.Cmd {
	session, err := m.service.OpenSession(m.ctx, id, m.locale)
	if err != nil {
		return m.setError(err)
	}
	m.session = session
	m.hasSession = true
	m.focus = 0
	m.dirty = false
	m.viewMode = ViewPreview
	return nil
}

func (m Model) updateLibrary(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !m.templateList.SettingFilter() && !m.loading {
		switch {
		case key.Matches(keyMsg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(keyMsg, m.keys.Enter):
			if item, ok := m.templateList.SelectedItem().(models.ListItem); ok {
				cmd := m.openTemplate(item.Template.ID)
				return m, cmd
			}
			return m, nil
		case key.Matches(keyMsg, m.keys.Locale):
			m.toggleLocale()
			cmd := m.setStatus("Locale: "+m.locale, "info")
			return m, cmd
		case key.Matches(keyMsg, m.keys.Help):
			m.showFullHelp = !m.showFullHelp
			return m, nil
		}
	} else if ok && m.loading && key.Matches(keyMsg, m.keys.Quit) {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.templateList, cmd = m.templateList.Update(msg)
	return m, cmd
}

// View renders the current view with any open modal on top
func (m Model) View() string {
	switch {
	case m.input.IsActive():
		return m.input.View()
	case m.bankSearch.IsActive():
		return m.bankSearch.View()
	case m.picker.IsActive():
		return m.picker.View()
	}

	var mainView string
	switch m.viewMode {
	case ViewPreview:
		mainView = m.renderPreviewView()
	case ViewEditor:
		mainView = m.renderEditorView()
	case ViewPrompt:
		mainView = m.renderPromptView()
	default:
		mainView = m.renderLibraryView()
	}

	if m.statusMsg != "" {
		mainView = lipgloss.JoinVertical(lipgloss.Left, mainView, CreateStatus(m.statusMsg, m.statusType))
	}
	return AddMainPadding(mainView)
}

// renderLibraryView renders the template library list
func (m Model) renderLibraryView() string {
	elements := []string{CreateSubPageHeader("Spark Prompt", "locale: "+m.locale)}

	if m.loading {
		elements = append(elements, StyleLoading.Render("⏳ Loading library..."))
		elements = append(elements, CreateHelp("q quit"))
		return lipgloss.JoinVertical(lipgloss.Left, elements...)
	}

	if len(m.templates) == 0 {
		elements = append(elements, StyleTextMuted.Render("No templates. Run `spark-prompt init` to install the defaults."))
	} else {
		elements = append(elements, m.templateList.View())
	}

	essential := []string{"enter open", "/ filter", "l locale", "q quit"}
	additional := []string{"In a template: tab/shift+tab move • enter pick • e edit • p prompt • c copy"}
	elements = append(elements, CreateContextualHelp(essential, additional, m.showFullHelp, m.width))
	return lipgloss.JoinVertical(lipgloss.Left, elements...)
}
