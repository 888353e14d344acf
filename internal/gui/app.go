//go:build !nogui
// +build !nogui

// Package gui hosts the views in a fyne window. Fyne widgets belong to its
// main goroutine, so bus responses are resumed there through fyne.Do.
package gui

import (
	"sort"
	"strings"

	"packedit/internal/bus"
	"packedit/internal/log"
	"packedit/internal/views"
	"packedit/pkg/types"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// mainThread schedules onto the fyne main goroutine
type mainThread struct{}

func (mainThread) Do(fn func()) { fyne.Do(fn) }

// App is the GUI application
type App struct {
	fyneApp fyne.App
	window  fyne.Window

	bus      views.Poster
	sched    views.Scheduler
	toolkit  *toolkit
	registry *views.Registry

	tree   *widget.Tree
	tabs   *container.DocTabs
	status *widget.Label

	// tree data: children of each folder uid ("" is the root) and the
	// entry behind each leaf uid
	children map[string][]string
	entries  map[string]types.EntryInfo
	items    map[*views.View]*container.TabItem
}

// Run opens the editor window and blocks until it is closed
func Run(b views.Poster, opts Options) error {
	a := NewApp(app.NewWithID("io.github.packedit"), b, mainThread{}, opts)
	if opts.Attach != nil {
		opts.Attach(func() { a.sched.Do(a.Refresh) })
	}
	a.Refresh()
	a.window.ShowAndRun()
	return nil
}

// IsGUIAvailable returns whether the GUI is available in this build
func IsGUIAvailable() bool {
	return true
}

// NewApp builds the window. sched must run functions on fyne's main
// goroutine.
func NewApp(fyneApp fyne.App, b views.Poster, sched views.Scheduler, opts Options) *App {
	title := opts.Title
	if title == "" {
		title = "packedit"
	}

	a := &App{
		fyneApp:  fyneApp,
		bus:      b,
		sched:    sched,
		toolkit:  &toolkit{},
		children: map[string][]string{},
		entries:  map[string]types.EntryInfo{},
		items:    map[*views.View]*container.TabItem{},
	}
	a.toolkit.edited = a.retitle
	a.registry = views.NewRegistry(b, a.toolkit, sched, views.WithSinglePreview(opts.SinglePreview))

	a.window = fyneApp.NewWindow(title)
	a.window.Resize(fyne.NewSize(1100, 700))
	a.setupMainWindow()
	return a
}

// Window returns the main window
func (a *App) Window() fyne.Window {
	return a.window
}

// Registry returns the open views
func (a *App) Registry() *views.Registry {
	return a.registry
}

func (a *App) setupMainWindow() {
	a.tree = widget.NewTree(a.childUIDs, a.isBranch, a.createNode, a.updateNode)
	a.tree.OnSelected = func(uid widget.TreeNodeID) {
		if info, ok := a.entries[uid]; ok {
			a.open(info.Path)
		}
	}

	a.tabs = container.NewDocTabs()
	a.tabs.CloseIntercept = a.closeIntercept

	a.status = widget.NewLabel("")

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentSaveIcon(), a.saveActive),
		widget.NewToolbarAction(theme.ConfirmIcon(), a.pinActive),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), a.Refresh),
	)

	split := container.NewHSplit(a.tree, a.tabs)
	split.Offset = 0.25

	a.window.SetContent(container.NewBorder(toolbar, a.status, nil, nil, split))

	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) { a.saveActive() })
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyW, Modifier: fyne.KeyModifierShortcutDefault},
		func(fyne.Shortcut) {
			if item := a.tabs.Selected(); item != nil {
				a.closeIntercept(item)
			}
		})

	a.window.SetCloseIntercept(func() {
		if len(a.registry.Dirty()) == 0 {
			a.window.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Some views have unsaved edits. Quit anyway?", func(ok bool) {
			if ok {
				a.window.Close()
			}
		}, a.window)
	})
}

// await resumes fn on the main goroutine once p is answered
func (a *App) await(p *bus.Pending, fn func(bus.Response, error)) {
	go func() {
		resp, err := p.Wait()
		a.sched.Do(func() { fn(resp, err) })
	}()
}

// Refresh reloads the entry tree from the backend
func (a *App) Refresh() {
	a.await(a.bus.Post(bus.List{}), func(resp bus.Response, err error) {
		if err != nil {
			a.showError("Could not list entries", err)
			return
		}
		a.setEntries(resp.Entries)
		a.tree.Refresh()
	})
}

func (a *App) setEntries(list []types.EntryInfo) {
	children := map[string][]string{}
	seen := map[string]bool{}
	entries := map[string]types.EntryInfo{}
	for _, info := range list {
		for i := 1; i <= len(info.Path); i++ {
			uid := strings.Join(info.Path[:i], "/")
			if !seen[uid] {
				seen[uid] = true
				parent := strings.Join(info.Path[:i-1], "/")
				children[parent] = append(children[parent], uid)
			}
		}
		entries[info.Path.String()] = info
	}
	for _, c := range children {
		sort.Strings(c)
	}
	a.children, a.entries = children, entries
}

func (a *App) childUIDs(uid widget.TreeNodeID) []widget.TreeNodeID {
	return a.children[uid]
}

func (a *App) isBranch(uid widget.TreeNodeID) bool {
	_, leaf := a.entries[uid]
	return !leaf
}

func (a *App) createNode(branch bool) fyne.CanvasObject {
	return widget.NewLabel("template")
}

func (a *App) updateNode(uid widget.TreeNodeID, branch bool, obj fyne.CanvasObject) {
	label := obj.(*widget.Label)
	name := uid[strings.LastIndex(uid, "/")+1:]
	if info, ok := a.entries[uid]; ok && info.Type != types.Unknown {
		name += " (" + info.Type.String() + ")"
	}
	label.SetText(name)
}

func (a *App) open(p types.Path) {
	a.status.SetText("Opening " + p.String())
	a.registry.Open(p, func(v *views.View, err error) {
		if err != nil {
			a.showError("Open failed", err)
			return
		}
		a.show(v)
		a.status.SetText("Opened " + p.String())
	})
}

// show selects the tab of v, creating it when needed, and drops tabs of
// views the registry has closed meanwhile.
func (a *App) show(v *views.View) {
	for open, item := range a.items {
		if open.IsClosed() {
			a.tabs.Remove(item)
			delete(a.items, open)
		}
	}
	item, ok := a.items[v]
	if !ok {
		item = container.NewTabItem(v.Title(), v.Surface().(surface).Object())
		a.items[v] = item
		a.tabs.Append(item)
	}
	a.tabs.Select(item)
}

func (a *App) retitle() {
	for v, item := range a.items {
		item.Text = v.Title()
	}
	a.tabs.Refresh()
}

func (a *App) activeView() *views.View {
	selected := a.tabs.Selected()
	for v, item := range a.items {
		if item == selected {
			return v
		}
	}
	return nil
}

func (a *App) viewOf(item *container.TabItem) *views.View {
	for v, it := range a.items {
		if it == item {
			return v
		}
	}
	return nil
}

func (a *App) saveActive() {
	v := a.activeView()
	if v == nil {
		return
	}
	path := v.Path().String()
	a.status.SetText("Saving " + path)
	a.registry.Save(v, func(err error) {
		if err != nil {
			a.showError("Save failed", err)
			return
		}
		a.status.SetText("Saved " + path)
		a.retitle()
		a.Refresh()
	})
}

func (a *App) pinActive() {
	if v := a.activeView(); v != nil {
		a.registry.Pin(v)
		a.retitle()
	}
}

func (a *App) closeIntercept(item *container.TabItem) {
	v := a.viewOf(item)
	if v == nil {
		a.tabs.Remove(item)
		return
	}
	if !v.IsDirty() {
		a.closeView(v)
		return
	}
	dialog.ShowConfirm("Discard changes?", v.Path().String()+" has unsaved edits.", func(ok bool) {
		if ok {
			a.closeView(v)
		}
	}, a.window)
}

func (a *App) closeView(v *views.View) {
	a.registry.Close(v)
	if item, ok := a.items[v]; ok {
		a.tabs.Remove(item)
		delete(a.items, v)
	}
}

func (a *App) showError(msg string, err error) {
	log.LogWithError(err).Warn(msg)
	a.status.SetText(msg + ": " + err.Error())
}
