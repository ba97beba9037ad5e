// Package tui provides the BubbleTea-based terminal HUD for atmosd.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nomadstudio/atmos/internal/adapter/output"
	"github.com/nomadstudio/atmos/internal/atmosphere"
	"github.com/nomadstudio/atmos/internal/config"
	"github.com/nomadstudio/atmos/internal/content"
	"github.com/nomadstudio/atmos/internal/dbus"
)

const (
	// volumeStep is how much one key press moves the volume.
	volumeStep = 0.05
	// pollInterval is how often the daemon status is refreshed.
	pollInterval = 500 * time.Millisecond
	// callTimeout bounds each call to the daemon.
	callTimeout = 2 * time.Second
)

// Backend is the daemon the TUI drives. *dbus.Client satisfies it.
type Backend interface {
	Start(ctx context.Context) error
	SetMode(ctx context.Context, mode string) error
	SetVolume(ctx context.Context, level float64) error
	ToggleMute(ctx context.Context) (bool, error)
	Status(ctx context.Context) (dbus.Status, error)
}

// View represents the current UI view.
type View int

const (
	ViewHUD View = iota
	ViewPages
	ViewPage
	ViewHelp
)

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg     *config.Config
	backend Backend
	catalog *content.Catalog

	// Current view
	view View

	// Components
	list     list.Model
	viewport viewport.Model
	volume   progress.Model
	help     help.Model

	// StageChanged signals from the daemon; nil means polling only
	stageChanges <-chan dbus.StageChange

	// State
	status   dbus.Status
	haveStat bool
	selected *content.Page
	width    int
	height   int
	ready    bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool
}

// pageItem wraps a page for the list component.
type pageItem struct {
	page content.Page
}

func (i pageItem) Title() string       { return i.page.Title }
func (i pageItem) Description() string { return i.page.Subtitle }
func (i pageItem) FilterValue() string { return i.page.Name + " " + i.page.Subtitle }

// New creates a new TUI model.
func New(cfg *config.Config, backend Backend, catalog *content.Catalog) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Pages"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	if catalog != nil {
		items := make([]list.Item, 0, len(catalog.Pages))
		for _, p := range catalog.Pages {
			items = append(items, pageItem{page: p})
		}
		l.SetItems(items)
	}

	h := help.New()
	h.ShowAll = cfg.TUI.ShowHelp

	m := Model{
		cfg:     cfg,
		backend: backend,
		catalog: catalog,
		view:    ViewHUD,
		list:    l,
		volume:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(30)),
		help:    h,
		keys:    DefaultKeyMap(),
	}
	if cfg.TUI.ShowPages && catalog != nil {
		m.view = ViewPages
	}
	return m
}

// WithStageChanges makes the HUD follow StageChanged signals as they
// arrive. Polling continues alongside as a fallback.
func (m Model) WithStageChanges(ch <-chan dbus.StageChange) Model {
	m.stageChanges = ch
	return m
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchStatus, m.scheduleRefresh()}
	if m.stageChanges != nil {
		cmds = append(cmds, waitForStageChange(m.stageChanges))
	}
	return tea.Batch(cmds...)
}

type statusUpdateMsg struct {
	status dbus.Status
	err    error
}

type refreshTickMsg struct{}

type stageChangedMsg struct {
	change dbus.StageChange
	closed bool
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type actionResultMsg struct {
	text string
	err  error
}

type copyResultMsg struct {
	err error
}

// fetchStatus asks the daemon for its current state.
func (m Model) fetchStatus() tea.Msg {
	if m.backend == nil {
		return statusUpdateMsg{err: dbus.ErrDaemonNotRunning}
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	st, err := m.backend.Status(ctx)
	return statusUpdateMsg{status: st, err: err}
}

// waitForStageChange blocks until the next signal arrives on ch.
func waitForStageChange(ch <-chan dbus.StageChange) tea.Cmd {
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return stageChangedMsg{closed: true}
		}
		return stageChangedMsg{change: change}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

// call runs fn against the backend and reports the outcome.
func (m Model) call(text string, fn func(ctx context.Context, b Backend) error) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if backend == nil {
			return actionResultMsg{err: dbus.ErrDaemonNotRunning}
		}
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return actionResultMsg{text: text, err: fn(ctx, backend)}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.list.SetSize(msg.Width, msg.Height-2)
		m.viewport = viewport.New(msg.Width, msg.Height-4)
		m.viewport.YPosition = 2
		if m.selected != nil {
			m.viewport.SetContent(m.renderPage(*m.selected))
		}
		m.volume.Width = min(max(msg.Width-20, 10), 40)
		m.help.Width = msg.Width
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.fetchStatus, m.scheduleRefresh())

	case stageChangedMsg:
		if msg.closed {
			m.stageChanges = nil
			return m, nil
		}
		if m.haveStat {
			m.status.Stage = msg.change.To
			m.status.Mode = msg.change.Mode
		}
		return m, tea.Batch(m.fetchStatus, waitForStageChange(m.stageChanges))

	case statusUpdateMsg:
		if msg.err != nil {
			m.haveStat = false
			m.statusMsg = msg.err.Error()
			m.statusErr = true
			return m, nil
		}
		if m.statusErr && !m.haveStat {
			// The daemon came back
			m.statusMsg = ""
			m.statusErr = false
		}
		m.status = msg.status
		m.haveStat = true
		return m, nil

	case actionResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: msg.err.Error(), isErr: true}
			}
		}
		cmds := []tea.Cmd{m.fetchStatus}
		if msg.text != "" {
			text := msg.text
			cmds = append(cmds, func() tea.Msg { return statusMsg{text: text} })
		}
		return m, tea.Batch(cmds...)

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusMsg{text: "Copied to clipboard"}
		}
	}

	// Update child components
	var cmd tea.Cmd
	switch m.view {
	case ViewPages:
		m.list, cmd = m.list.Update(msg)
	case ViewPage:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Let the list filter consume keys while typing
	if m.view == ViewPages && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.view == ViewHelp {
			m.view = ViewHUD
		} else {
			m.view = ViewHelp
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchStatus
	}

	switch m.view {
	case ViewHUD:
		return m.handleHUDKey(msg)
	case ViewPages:
		return m.handlePagesKey(msg)
	case ViewPage:
		return m.handlePageKey(msg)
	case ViewHelp:
		if key.Matches(msg, m.keys.Back) {
			m.view = ViewHUD
		}
		return m, nil
	}

	return m, nil
}

// handleHUDKey handles keys on the main HUD.
func (m Model) handleHUDKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Start):
		if m.haveStat && m.status.Started {
			return m, nil
		}
		return m, m.call("Session started", func(ctx context.Context, b Backend) error {
			return b.Start(ctx)
		})

	case key.Matches(msg, m.keys.Silence):
		return m, m.selectMode(atmosphere.ModeSilence)
	case key.Matches(msg, m.keys.Wind):
		return m, m.selectMode(atmosphere.ModeWind)
	case key.Matches(msg, m.keys.Ocean):
		return m, m.selectMode(atmosphere.ModeOcean)

	case key.Matches(msg, m.keys.NextMode):
		return m, m.selectMode(m.cycleMode(1))
	case key.Matches(msg, m.keys.PrevMode):
		return m, m.selectMode(m.cycleMode(-1))

	case key.Matches(msg, m.keys.VolumeUp):
		return m, m.adjustVolume(volumeStep)
	case key.Matches(msg, m.keys.VolumeDown):
		return m, m.adjustVolume(-volumeStep)

	case key.Matches(msg, m.keys.Mute):
		return m, m.call("", func(ctx context.Context, b Backend) error {
			_, err := b.ToggleMute(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Pages):
		if m.catalog != nil {
			m.view = ViewPages
		}
		return m, nil
	}
	return m, nil
}

// handlePagesKey handles keys in the page list.
func (m Model) handlePagesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Enter):
		if item, ok := m.list.SelectedItem().(pageItem); ok {
			page := item.page
			m.selected = &page
			m.view = ViewPage
			m.viewport.SetContent(m.renderPage(page))
			m.viewport.GotoTop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.list.FilterState() != list.Unfiltered {
			m.list.ResetFilter()
			return m, nil
		}
		m.view = ViewHUD
		return m, nil

	case key.Matches(msg, m.keys.Mute):
		return m, m.call("", func(ctx context.Context, b Backend) error {
			_, err := b.ToggleMute(ctx)
			return err
		})
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handlePageKey handles keys in the page modal.
func (m Model) handlePageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = ViewPages
		m.selected = nil
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if m.selected != nil {
			return m, m.copyToClipboard(m.selected.Description)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// selectMode asks the daemon to switch atmosphere.
func (m Model) selectMode(mode atmosphere.Mode) tea.Cmd {
	name := mode.String()
	return m.call("", func(ctx context.Context, b Backend) error {
		return b.SetMode(ctx, name)
	})
}

// cycleMode returns the mode delta steps away from the current one in dock order.
func (m Model) cycleMode(delta int) atmosphere.Mode {
	current, err := m.status.ParsedMode()
	if err != nil {
		current = atmosphere.ModeSilence
	}
	n := int(atmosphere.ModeCount)
	return atmosphere.Mode(((int(current)+delta)%n + n) % n)
}

// adjustVolume nudges the desired volume.
func (m Model) adjustVolume(delta float64) tea.Cmd {
	level := min(max(m.status.Volume+delta, 0), 1)
	return m.call("", func(ctx context.Context, b Backend) error {
		return b.SetVolume(ctx, level)
	})
}

// copyToClipboard copies text to the clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	configured := m.cfg.Clipboard.Command
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, configured)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.view {
	case ViewPages:
		return m.viewPages()
	case ViewPage:
		return m.viewPage()
	case ViewHelp:
		return m.viewHelp()
	default:
		return m.viewHUD()
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("10")).
			Padding(0, 1)
	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Padding(0, 1)
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// viewHUD renders the manifesto, mode dock and volume control.
func (m Model) viewHUD() string {
	var b strings.Builder

	if m.catalog != nil && m.catalog.Manifesto != "" {
		lines := strings.SplitN(m.catalog.Manifesto, "\n", 2)
		b.WriteString(titleStyle.Render(lines[0]))
		b.WriteString("\n")
		if len(lines) > 1 {
			b.WriteString(dimStyle.Render(lines[1]))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if !m.haveStat {
		b.WriteString(dimStyle.Render("Waiting for atmosd..."))
		b.WriteString("\n")
	} else {
		if !m.status.Started {
			b.WriteString(activeStyle.Render("Press enter to start"))
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderDock())
		b.WriteString("\n\n")
		b.WriteString(m.renderVolume())
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.renderStage()))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		style := dimStyle
		if m.statusErr {
			style = errStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.statusMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// renderDock renders the mode dock with the current mode highlighted.
func (m Model) renderDock() string {
	current, err := m.status.ParsedMode()
	if err != nil {
		current = -1
	}

	var cells []string
	for i, mode := range atmosphere.AllModes() {
		label := fmt.Sprintf("%d %s", i+1, mode.Label())
		if mode == current {
			cells = append(cells, activeStyle.Render(label))
		} else {
			cells = append(cells, inactiveStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

// renderVolume renders the volume bar and mute indicator.
func (m Model) renderVolume() string {
	icon := "♪"
	if m.status.Muted {
		icon = "✕"
	}
	return fmt.Sprintf("%s %s %3.0f%%", icon, m.volume.ViewAs(m.status.Volume), m.status.Volume*100)
}

func (m Model) renderStage() string {
	state := "paused"
	if m.status.Playing {
		state = "playing"
	}
	if m.status.Muted {
		state += ", muted"
	}
	if m.status.Stage != "" && m.status.Stage != "idle" {
		state += " · " + m.status.Stage
	}
	return state
}

// viewPages renders the page list.
func (m Model) viewPages() string {
	s := m.list.View()
	if m.statusMsg != "" {
		style := dimStyle
		if m.statusErr {
			style = errStyle
		}
		s += "\n" + style.Render(m.statusMsg)
	}
	return s
}

// viewPage renders the page modal.
func (m Model) viewPage() string {
	header := titleStyle.Render("Page")
	footer := dimStyle.Render(fmt.Sprintf("%3.0f%%  esc back · c copy", m.viewport.ScrollPercent()*100))
	return header + "\n\n" + m.viewport.View() + "\n" + footer
}

// renderPage renders a page's content for the modal viewport.
func (m Model) renderPage(p content.Page) string {
	width := m.width - 4
	if width <= 0 {
		width = 76
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(p.Title)))
	b.WriteString("\n")
	if p.Subtitle != "" {
		b.WriteString(dimStyle.Render(p.Subtitle))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(output.Wrap(p.Description, width))
	b.WriteString("\n")
	if len(p.Images) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Images:"))
		b.WriteString("\n")
		for _, img := range p.Images {
			b.WriteString("  " + img + "\n")
		}
	}
	return b.String()
}

// viewHelp renders the full key reference.
func (m Model) viewHelp() string {
	h := m.help
	h.ShowAll = true
	return titleStyle.Render("Keyboard Shortcuts") + "\n\n" + h.View(m.keys) + "\n\n" +
		dimStyle.Render("Press ? or esc to close")
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config       *config.Config
	Backend      Backend
	Catalog      *content.Catalog
	StageChanges <-chan dbus.StageChange
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	m := New(opts.Config, opts.Backend, opts.Catalog).WithStageChanges(opts.StageChanges)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err := p.Run()
	return err
}
