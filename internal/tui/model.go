// Package tui hosts the views in a terminal. Update is the presentation
// thread: every bus response is resumed through the scheduler and applied
// there.
package tui

import (
	"fmt"
	"strings"

	"packedit/internal/bus"
	"packedit/internal/log"
	"packedit/internal/views"
	"packedit/pkg/types"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type focus int

const (
	focusEntries focus = iota
	focusEditor
)

// entryItem is one row of the entry list
type entryItem struct {
	info types.EntryInfo
}

func (i entryItem) Title() string       { return i.info.Path.String() }
func (i entryItem) Description() string { return i.info.Type.String() + " · " + humanize.Bytes(uint64(i.info.Size)) }
func (i entryItem) FilterValue() string { return i.info.Path.String() }

// Options configure the editor
type Options struct {
	Title         string
	SinglePreview bool
}

// Model is the bubbletea model of the editor
type Model struct {
	keys  KeyMap
	help  help.Model
	list  list.Model
	title string

	bus      views.Poster
	sched    *scheduler
	toolkit  *toolkit
	registry *views.Registry

	active   int
	focus    focus
	showHelp bool

	status    string
	statusErr bool
	// quitArmed is set after a quit attempt with unsaved views
	quitArmed bool

	width, height int
}

// New creates the editor on top of b
func New(b views.Poster, opts Options) *Model {
	sched := newScheduler()
	tk := &toolkit{width: 60, height: 20}

	l := list.New(nil, list.NewDefaultDelegate(), 30, 20)
	l.Title = "Entries"
	l.SetShowHelp(false)

	title := opts.Title
	if title == "" {
		title = "packedit"
	}

	return &Model{
		keys:     DefaultKeyMap(),
		help:     help.New(),
		list:     l,
		title:    title,
		bus:      b,
		sched:    sched,
		toolkit:  tk,
		registry: views.NewRegistry(b, tk, sched, views.WithSinglePreview(opts.SinglePreview)),
	}
}

// Scheduler lets other goroutines run code inside Update
func (m *Model) Scheduler() views.Scheduler {
	return m.sched
}

// Registry returns the open views
func (m *Model) Registry() *views.Registry {
	return m.registry
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	m.Refresh()
	return m.sched.wait()
}

// await resumes fn inside Update once p is answered
func (m *Model) await(p *bus.Pending, fn func(bus.Response, error)) {
	go func() {
		resp, err := p.Wait()
		m.sched.Do(func() { fn(resp, err) })
	}()
}

// Refresh reloads the entry list from the backend. Call it on the
// presentation thread or through Scheduler.
func (m *Model) Refresh() {
	m.await(m.bus.Post(bus.List{}), func(resp bus.Response, err error) {
		if err != nil {
			m.setError("Could not list entries", err)
			return
		}
		items := make([]list.Item, len(resp.Entries))
		for i, e := range resp.Entries {
			items[i] = entryItem{info: e}
		}
		m.list.SetItems(items)
	})
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resumeMsg:
		m.sched.run()
		return m, m.sched.wait()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	if v := m.activeView(); v != nil && m.focus == focusEditor {
		cmd = tea.Batch(cmd, v.Surface().(surface).Relay(msg))
	}
	return m, cmd
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// the filter prompt of the list takes every key
	if m.focus == focusEntries && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if msg.String() != "q" && msg.String() != "ctrl+c" {
		m.quitArmed = false
	}

	switch {
	case msg.Type == tea.KeyCtrlC || (m.focus == focusEntries && key.Matches(msg, m.keys.Quit)):
		return m, m.quit()
	case key.Matches(msg, m.keys.Save):
		m.saveActive()
		return m, nil
	case key.Matches(msg, m.keys.Close):
		m.closeActive()
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(1)
		return m, nil
	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(-1)
		return m, nil
	}

	if m.focus == focusEditor {
		return m.handleEditorKeys(msg)
	}
	return m.handleEntryKeys(msg)
}

func (m *Model) handleEntryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.list.SelectedItem().(entryItem); ok {
			m.open(item.info.Path)
		}
		return m, nil
	case key.Matches(msg, m.keys.Pin):
		if v := m.activeView(); v != nil {
			m.registry.Pin(v)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Back):
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.activeView()
	if v == nil {
		m.setFocus(focusEntries)
		return m, nil
	}
	s := v.Surface().(surface)

	// esc leaves the editor unless a table cell is being edited
	if key.Matches(msg, m.keys.Back) {
		if ts, ok := s.(*tableSurface); !ok || !ts.editing {
			m.setFocus(focusEntries)
			return m, nil
		}
	}
	return m, s.Update(msg, m.keys)
}

func (m *Model) open(p types.Path) {
	m.setStatus("Opening " + p.String())
	m.registry.Open(p, func(v *views.View, err error) {
		if err != nil {
			m.setError("Open failed", err)
			return
		}
		m.activate(v)
		m.setStatus("Opened " + p.String())
	})
}

func (m *Model) saveActive() {
	v := m.activeView()
	if v == nil {
		return
	}
	path := v.Path().String()
	m.setStatus("Saving " + path)
	m.registry.Save(v, func(err error) {
		if err != nil {
			m.setError("Save failed", err)
			return
		}
		m.setStatus("Saved " + path)
		m.Refresh()
	})
}

func (m *Model) closeActive() {
	v := m.activeView()
	if v == nil {
		return
	}
	if v.IsDirty() {
		m.setStatus(fmt.Sprintf("Discarded unsaved edits of %s", v.Path()))
	}
	m.registry.Close(v)
	m.switchTab(0)
	if len(m.registry.Views()) == 0 {
		m.setFocus(focusEntries)
	}
}

func (m *Model) quit() tea.Cmd {
	dirty := len(m.registry.Dirty())
	if dirty > 0 && !m.quitArmed {
		m.quitArmed = true
		m.setStatus(fmt.Sprintf("%d view(s) have unsaved edits, quit again to discard them", dirty))
		return nil
	}
	return tea.Quit
}

// activate shows v in the editor panel
func (m *Model) activate(v *views.View) {
	for i, open := range m.registry.Views() {
		if open == v {
			m.active = i
		}
	}
	v.Surface().(surface).SetSize(m.toolkit.width, m.toolkit.height)
	m.setFocus(focusEditor)
}

func (m *Model) activeView() *views.View {
	open := m.registry.Views()
	if len(open) == 0 {
		return nil
	}
	if m.active >= len(open) {
		m.active = len(open) - 1
	}
	if m.active < 0 {
		m.active = 0
	}
	return open[m.active]
}

// switchTab moves the active view by delta and wraps around
func (m *Model) switchTab(delta int) {
	open := m.registry.Views()
	if len(open) == 0 {
		m.active = 0
		return
	}
	m.active = ((m.active+delta)%len(open) + len(open)) % len(open)
	if delta != 0 {
		m.setFocus(focusEditor)
	} else {
		m.setFocus(m.focus)
	}
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	for i, v := range m.registry.Views() {
		s := v.Surface().(surface)
		if f == focusEditor && i == m.active {
			s.Focus()
		} else {
			s.Blur()
		}
	}
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(msg string, err error) {
	log.LogWithError(err).Warn(msg)
	m.status, m.statusErr = fmt.Sprintf("%s: %v", msg, err), true
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	listWidth := max(width/3, 20)
	bodyHeight := max(height-6, 5)
	m.list.SetSize(listWidth, bodyHeight)

	m.toolkit.width = max(width-listWidth-6, 10)
	m.toolkit.height = max(bodyHeight-1, 3)
	for _, v := range m.registry.Views() {
		v.Surface().(surface).SetSize(m.toolkit.width, m.toolkit.height)
	}
	m.help.Width = width
}

// View implements tea.Model
func (m *Model) View() string {
	header := lipgloss.JoinHorizontal(lipgloss.Top, TitleStyle.Render(m.title), " ", m.tabs())

	listPanel, editorPanel := PanelStyle, PanelStyle
	if m.focus == focusEntries {
		listPanel = FocusedPanelStyle
	} else {
		editorPanel = FocusedPanelStyle
	}
	editor := StatusStyle.Render("Select an entry and press enter to open it.")
	if v := m.activeView(); v != nil {
		editor = v.Surface().(surface).View()
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		listPanel.Render(m.list.View()),
		editorPanel.Width(m.toolkit.width+2).Render(editor),
	)

	status := StatusStyle.Render(m.status)
	if m.statusErr {
		status = ErrorStyle.Render(m.status)
	}

	return App.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		status,
		HelpStyle.Render(m.help.View(m.keys)),
	))
}

func (m *Model) tabs() string {
	open := m.registry.Views()
	if len(open) == 0 {
		return ""
	}
	tabs := make([]string, len(open))
	for i, v := range open {
		style := TabStyle
		switch {
		case i == m.active:
			style = ActiveTabStyle
		case v.IsPreview():
			style = PreviewTabStyle
		}
		tabs[i] = style.Render(v.Title())
	}
	return strings.Join(tabs, "")
}

// Status returns the status line
func (m *Model) Status() string {
	return m.status
}

// ActiveView returns the view shown in the editor panel, nil when none is
// open.
func (m *Model) ActiveView() *views.View {
	return m.activeView()
}

// Run starts the editor and blocks until it quits
func Run(m *Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	_, err := p.Run()
	return err
}
