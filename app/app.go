// Package app wires the tabs, the visibility controller and the session
// store to a host window. Everything here runs on the event loop goroutine.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/keybindings"
	"github.com/javanhut/RavenDrop/layout"
	"github.com/javanhut/RavenDrop/loop"
	"github.com/javanhut/RavenDrop/navigate"
	"github.com/javanhut/RavenDrop/pane"
	"github.com/javanhut/RavenDrop/remote"
	"github.com/javanhut/RavenDrop/session"
	"github.com/javanhut/RavenDrop/shell"
	"github.com/javanhut/RavenDrop/tab"
	"github.com/javanhut/RavenDrop/visibility"
	"github.com/javanhut/RavenDrop/window/paint"
)

// Nominal cell size used to derive terminal dimensions from pane boxes.
const (
	cellWidth  = 9
	cellHeight = 18
)

const (
	windowTitle = "RavenDrop"
	titleCells  = 40 // widest tab label put in the window title
)

// Host is the window the app draws into.
type Host interface {
	visibility.Window
	FramebufferSize() (int, int)
	Paint(fills []paint.Fill)
	SetTitle(title string)
}

// Options configures an App.
type Options struct {
	Config   *config.Config
	Host     Host
	Factory  pane.Factory
	Queue    *loop.Queue
	Notifier session.Notifier
	// Now is the clock toggle timestamps are taken from.
	Now func() time.Duration
	// RunHook starts a hook command line; defaults to shell.RunDetached.
	RunHook func(line string) error
	// Reconfigure receives reloaded configuration for the host window.
	Reconfigure func(*config.Config)
	Logger      *slog.Logger
}

// App is the running drop-down terminal.
type App struct {
	cfg     *config.Config
	host    Host
	queue   *loop.Queue
	now     func() time.Duration
	runHook func(string) error
	reconf  func(*config.Config)
	logger  *slog.Logger

	tabs    *tab.Manager
	codec   *layout.Codec
	vis     *visibility.Controller
	store   *session.Store
	auto    *session.Autosaver
	palette config.Palette

	title    string
	dirty    bool
	quitting bool
}

// New builds the app. Call Start before the event loop runs.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Queue == nil {
		opts.Queue = loop.New(nil)
	}
	if opts.RunHook == nil {
		opts.RunHook = shell.RunDetached
	}
	if opts.Now == nil {
		start := time.Now()
		opts.Now = func() time.Duration { return time.Since(start) }
	}
	cfg := opts.Config
	a := &App{
		cfg:     cfg,
		host:    opts.Host,
		queue:   opts.Queue,
		now:     opts.Now,
		runHook: opts.RunHook,
		reconf:  opts.Reconfigure,
		logger:  opts.Logger,
		codec:   layout.NewCodec(opts.Logger),
		palette: config.PaletteByName(cfg.Window.Theme),
		dirty:   true,
	}
	a.auto = session.NewAutosaver(a.saveSession, opts.Queue, opts.Logger)
	a.tabs = tab.NewManager(tab.Options{
		Factory: opts.Factory,
		Tree: pane.Options{
			Dispatcher:       opts.Queue,
			InheritDirectory: cfg.Behavior.OpenTabCwd,
			Logger:           opts.Logger,
		},
		OpenTabCwd: cfg.Behavior.OpenTabCwd,
		OnChange:   a.tabsChanged,
		OnSelect:   a.tabSelected,
		Logger:     opts.Logger,
	})
	sessionPath := cfg.SessionPath()
	a.store = session.NewStore(filepath.Dir(sessionPath), filepath.Base(sessionPath), opts.Notifier, opts.Logger)
	a.vis = visibility.New(visibility.Options{
		Window:   opts.Host,
		Schedule: visibility.LoopScheduler(opts.Queue),
		Now:      opts.Now,
		Behavior: behaviorFrom(cfg),
		Hooks: visibility.Hooks{
			EnsureTab:     a.ensureTab,
			FlushRestores: a.flushRestores,
			Shown:         a.shown,
			Hidden:        a.markDirty,
		},
		Logger: opts.Logger,
	})
	return a
}

func behaviorFrom(cfg *config.Config) visibility.Behavior {
	b := visibility.DefaultBehavior()
	b.HideOnLoseFocus = cfg.Behavior.HideOnLoseFocus
	b.LazyLoseFocus = cfg.Behavior.LazyLoseFocus
	b.LazyDelay = cfg.LazyLoseFocusDelay()
	b.Refocus = cfg.Window.Refocus
	b.Debounce = cfg.ToggleDebounce()
	return b
}

// Tabs returns the tab manager.
func (a *App) Tabs() *tab.Manager { return a.tabs }

// Visibility returns the visibility controller.
func (a *App) Visibility() *visibility.Controller { return a.vis }

// Codec returns the layout codec holding deferred restores.
func (a *App) Codec() *layout.Codec { return a.codec }

// Start restores the saved tabs when configured and turns autosave on.
// Hiding is vetoed while the restore runs.
func (a *App) Start() {
	if a.cfg.Session.RestoreTabsStartup {
		release := a.vis.Veto()
		n, err := a.store.Restore(a.tabs, a.codec, session.RestoreOptions{
			Notify:   a.cfg.Session.RestoreTabsNotify,
			Autosave: a.auto,
		})
		release()
		switch {
		case errors.Is(err, session.ErrNoSession):
			a.logger.Debug("no saved session", "path", a.store.Path())
		case err != nil:
			a.logger.Warn("session restore incomplete", "tabs", n, "err", err)
		default:
			a.logger.Info("session restored", "tabs", n)
		}
	}
	a.auto.SetEnabled(a.cfg.Session.SaveTabsWhenChanged)
	a.ensureTab()
}

// Toggle handles the show/hide hotkey.
func (a *App) Toggle() {
	a.vis.Toggle(a.now())
	a.dirty = true
}

// Remote returns a handler for remote.Server. Arguments are checked on the
// connection's goroutine; the command itself is posted to the event loop.
func (a *App) Remote() func(remote.Request) error {
	return func(req remote.Request) error {
		run, err := a.remoteAction(req)
		if err != nil {
			return err
		}
		a.queue.Post(func() {
			run()
			a.dirty = true
		})
		return nil
	}
}

// remoteAction must not touch app state; it only validates req.
func (a *App) remoteAction(req remote.Request) (func(), error) {
	switch req.Command {
	case remote.Toggle:
		return a.Toggle, nil
	case remote.Show:
		return func() {
			a.vis.ShowFromRemote()
			a.host.Focus()
		}, nil
	case remote.Hide:
		return a.vis.HideFromRemote, nil
	case remote.Quit:
		return a.Quit, nil
	case remote.Rename:
		return func() { a.RenameTab(req.Arg) }, nil
	case remote.Select:
		return func() { a.SelectTab(req.Arg) }, nil
	case remote.Focus:
		d, ok := navigate.ParseDirection(strings.ToLower(req.Arg))
		if !ok {
			return nil, fmt.Errorf("app: unknown direction %q", req.Arg)
		}
		return func() { a.moveFocus(d) }, nil
	case remote.Workspace:
		ws, err := strconv.Atoi(req.Arg)
		if err != nil || ws < 0 {
			return nil, fmt.Errorf("app: bad workspace %q", req.Arg)
		}
		return func() { a.SwitchWorkspace(ws) }, nil
	}
	return nil, fmt.Errorf("app: unsupported command %q", req.Command)
}

// RenameTab gives the current tab a user label; "-" hands it back to the
// automatic directory label.
func (a *App) RenameTab(text string) {
	release := a.vis.Veto()
	defer release()
	c := a.tabs.Active()
	if c.Rename(c.CurrentIndex(), text, true) {
		a.logger.Debug("tab renamed", "index", c.CurrentIndex(), "label", text)
	}
	a.dirty = true
}

// SelectTab makes the best fuzzy label match for query current.
func (a *App) SelectTab(query string) {
	c := a.tabs.Active()
	matches := c.FindByLabel(query)
	if len(matches) == 0 {
		a.logger.Info("no tab matches", "query", query)
		return
	}
	c.Select(matches[0])
}

// SwitchWorkspace displays the tabs of workspace ws, opening one if it has
// none, and runs the restores that waited for it.
func (a *App) SwitchWorkspace(ws int) {
	if ws == a.tabs.ActiveWorkspace() {
		return
	}
	a.tabs.SetActive(ws)
	a.ensureTab()
	if a.vis.Visible() {
		a.flushRestores()
	}
	a.logger.Debug("workspace switched", "workspace", ws)
	a.dirty = true
}

func (a *App) moveFocus(d navigate.Direction) {
	cur := a.tabs.Active().Current()
	if cur == nil {
		return
	}
	a.layoutCurrent()
	navigate.MoveFocus(cur.Tree, cur.Tree.FindLastFocused(), d)
}

// FocusChanged forwards window focus changes to the visibility controller.
func (a *App) FocusChanged(focused bool) {
	if focused {
		a.vis.TakeFocus()
	} else {
		a.vis.FocusOut()
	}
	a.dirty = true
}

// Resized relayouts the current tab after the framebuffer changed.
func (a *App) Resized(int, int) {
	a.layoutCurrent()
	a.flushRestores()
	a.dirty = true
}

// ApplyConfig installs reloaded configuration.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfg = cfg
	a.vis.SetBehavior(behaviorFrom(cfg))
	a.auto.SetEnabled(cfg.Session.SaveTabsWhenChanged)
	a.palette = config.PaletteByName(cfg.Window.Theme)
	if a.reconf != nil {
		a.reconf(cfg)
	}
	a.logger.Info("configuration reloaded")
	a.dirty = true
}

// SaveSession writes the session file now.
func (a *App) SaveSession() error {
	return a.saveSession()
}

func (a *App) saveSession() error {
	if err := a.store.Save(a.tabs, a.codec); err != nil {
		return err
	}
	a.logger.Info("session saved", "path", a.store.Path())
	return nil
}

// Quit saves the session when autosave is on and closes every terminal.
func (a *App) Quit() {
	if a.quitting {
		return
	}
	a.quitting = true
	if a.auto.Enabled() {
		if err := a.saveSession(); err != nil {
			a.logger.Warn("final session save failed", "err", err)
		}
	}
	a.auto.SetEnabled(false)
	a.vis.Close()
	a.logger.Debug("quitting", "running", a.tabs.AliveCount())
	a.tabs.CloseAll()
}

// Quitting reports whether Quit ran.
func (a *App) Quitting() bool { return a.quitting }

// HandleKey runs the binding for a key press.
func (a *App) HandleKey(key keybindings.Key, mods keybindings.Mod) {
	res := keybindings.TranslateKey(key, mods)
	if res.Action == keybindings.ActionNone {
		return
	}
	if err := a.perform(res); err != nil {
		a.logger.Warn("key action failed", "action", res.Action, "err", err)
	}
	a.dirty = true
}

// HandleChar sends typed text to the focused terminal.
func (a *App) HandleChar(r rune, mods keybindings.Mod) {
	a.input(keybindings.TranslateChar(r, mods))
}

func (a *App) perform(res keybindings.KeyResult) error {
	c := a.tabs.Active()
	cur := c.Current()
	switch res.Action {
	case keybindings.ActionQuit:
		a.Quit()
	case keybindings.ActionInput:
		a.input(res.Data)
	case keybindings.ActionNewTab:
		_, err := c.NewTab("")
		return err
	case keybindings.ActionCloseTab:
		return c.CloseCurrent()
	case keybindings.ActionNextTab:
		c.Next()
	case keybindings.ActionPrevTab:
		c.Prev()
	case keybindings.ActionMoveTabLeft:
		c.MoveCurrent(-1)
	case keybindings.ActionMoveTabRight:
		c.MoveCurrent(1)
	case keybindings.ActionSelectTab:
		c.Select(res.Index)
	case keybindings.ActionSelectLastTab:
		c.SelectLast()
	case keybindings.ActionSaveSession:
		return a.saveSession()
	}
	if cur == nil {
		return nil
	}
	focused := cur.Tree.FindLastFocused()
	switch res.Action {
	case keybindings.ActionClosePane:
		return cur.Tree.Close(focused)
	case keybindings.ActionSplit:
		a.layoutCurrent()
		o := pane.Horizontal
		if res.Split == keybindings.Stacked {
			o = pane.Vertical
		}
		if _, err := cur.Tree.Split(focused, o); err != nil {
			return fmt.Errorf("app: split: %w", err)
		}
	case keybindings.ActionFocus:
		a.moveFocus(res.Direction)
	case keybindings.ActionMoveDivider:
		a.layoutCurrent()
		if navigate.MoveDivider(cur.Tree, focused, res.Direction) != nil {
			a.tabsChanged("divider")
		}
	}
	return nil
}

func (a *App) input(data []byte) {
	cur := a.tabs.Active().Current()
	if cur == nil || len(data) == 0 {
		return
	}
	w, ok := cur.Tree.FindLastFocused().Terminal().(io.Writer)
	if !ok {
		return
	}
	if _, err := w.Write(data); err != nil {
		a.logger.Debug("terminal write failed", "err", err)
	}
}

// Render paints the current tab when something changed and the window is
// visible.
func (a *App) Render() {
	if !a.dirty || !a.vis.Visible() {
		return
	}
	a.autoLabel()
	a.dirty = false
	a.updateTitle()
	width, height := a.host.FramebufferSize()
	c := a.tabs.Active()
	var regions []paint.Region
	if cur := c.Current(); cur != nil {
		alloc := a.layoutCurrent()
		focused := cur.Tree.FindLastFocused()
		for leaf := range cur.Tree.Leaves() {
			regions = append(regions, paint.Region{Rect: alloc[leaf], Focused: leaf == focused})
		}
	}
	a.host.Paint(paint.Plan(a.palette, paint.Frame{
		Width:   width,
		Height:  height,
		Tabs:    c.Len(),
		Current: c.CurrentIndex(),
	}, regions))
}

// layoutCurrent arranges the current tab in the window's content area and
// resizes its terminals to match.
func (a *App) layoutCurrent() pane.Allocation {
	cur := a.tabs.Active().Current()
	if cur == nil || a.host == nil {
		return nil
	}
	content := paint.Content(a.host.FramebufferSize())
	alloc := cur.Tree.Arrange(content.W, content.H)
	if !cur.Tree.Realized() {
		return alloc
	}
	for leaf := range cur.Tree.Leaves() {
		r, ok := alloc[leaf]
		if !ok {
			continue
		}
		if rs, ok := leaf.Terminal().(interface{ Resize(cols, rows uint16) error }); ok {
			cols, rows := max(r.W/cellWidth, 1), max(r.H/cellHeight, 1)
			_ = rs.Resize(uint16(cols), uint16(rows))
		}
	}
	return alloc
}

// autoLabel names the current tab after the directory of its focused
// terminal. User labels and tabs still waiting for a restore are left alone.
func (a *App) autoLabel() {
	c := a.tabs.Active()
	cur := c.Current()
	if cur == nil || cur.CustomLabel() || a.codec.PendingFor(cur.Tree) {
		return
	}
	term := cur.Tree.FindLastFocused().Terminal()
	if term == nil {
		return
	}
	dir := term.CurrentDirectory()
	if dir == "" {
		return
	}
	label := filepath.Base(dir)
	if home, err := os.UserHomeDir(); err == nil && dir == home {
		label = "~"
	}
	c.Rename(c.CurrentIndex(), label, false)
}

func (a *App) updateTitle() {
	title := windowTitle
	if cur := a.tabs.Active().Current(); cur != nil {
		title = cur.DisplayLabel(titleCells)
	}
	if title != a.title {
		a.title = title
		a.host.SetTitle(title)
	}
}

func (a *App) ensureTab() {
	if err := a.tabs.Active().EnsureTab(); err != nil {
		a.logger.Warn("cannot open a tab", "err", err)
	}
}

func (a *App) flushRestores() {
	cur := a.tabs.Active().Current()
	if cur == nil {
		return
	}
	a.layoutCurrent()
	n, err := a.codec.Flush(cur.Tree, a.vis.Visible())
	if err != nil {
		a.logger.Warn("deferred layout restore failed", "err", err)
	}
	if n > 0 {
		a.layoutCurrent()
		a.dirty = true
	}
}

func (a *App) shown() {
	a.dirty = true
	line := a.cfg.Hooks.Show
	if line == "" {
		return
	}
	if err := a.runHook(line); err != nil {
		a.logger.Warn("show hook failed", "hook", line, "err", err)
	}
}

func (a *App) tabsChanged(reason string) {
	a.dirty = true
	a.auto.Changed(reason)
}

func (a *App) tabSelected(t *tab.Tab) {
	a.dirty = true
	if a.tabs.ContainerOf(t) != a.tabs.Active() {
		return
	}
	if a.vis != nil && a.vis.Visible() {
		a.flushRestores()
	}
}

func (a *App) markDirty() { a.dirty = true }
