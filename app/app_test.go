package app

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/keybindings"
	"github.com/javanhut/RavenDrop/loop"
	"github.com/javanhut/RavenDrop/pane"
	"github.com/javanhut/RavenDrop/pane/panetest"
	"github.com/javanhut/RavenDrop/remote"
	"github.com/javanhut/RavenDrop/session"
	"github.com/javanhut/RavenDrop/window/paint"
)

type fakeHost struct {
	shown   bool
	focused bool
	width   int
	height  int
	title   string
	paints  [][]paint.Fill
}

func (h *fakeHost) Show() { h.shown = true; h.focused = true }
func (h *fakeHost) Hide() { h.shown = false; h.focused = false }
func (h *fakeHost) Position() {}
func (h *fakeHost) Focus() { h.focused = true }
func (h *fakeHost) HasFocus() bool { return h.focused }
func (h *fakeHost) FramebufferSize() (int, int) { return h.width, h.height }
func (h *fakeHost) Paint(fills []paint.Fill) { h.paints = append(h.paints, fills) }
func (h *fakeHost) SetTitle(title string) { h.title = title }

type harness struct {
	app     *App
	host    *fakeHost
	factory *panetest.Factory
	queue   *loop.Queue
	clock   time.Duration
	hooks   []string
	notes   []string
	cfg     *config.Config
}

// newHarness builds an app in a window whose pane area is 800x400.
func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Session.File = filepath.Join(t.TempDir(), "session.json")
	}
	h := &harness{
		host:    &fakeHost{width: 800, height: 400 + paint.TabBarHeight},
		factory: panetest.NewFactory("/home/user"),
		queue:   loop.New(nil),
		clock:   time.Second,
		cfg:     cfg,
	}
	h.app = New(Options{
		Config:  cfg,
		Host:    h.host,
		Factory: h.factory,
		Queue:   h.queue,
		Notifier: session.NotifierFunc(func(_, body string) {
			h.notes = append(h.notes, body)
		}),
		Now:     func() time.Duration { return h.clock },
		RunHook: func(line string) error { h.hooks = append(h.hooks, line); return nil },
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func (h *harness) toggle(after time.Duration) {
	h.clock += after
	h.app.Toggle()
}

func (h *harness) current() *pane.Tree {
	return h.app.Tabs().Active().Current().Tree
}

const ctrlShift = keybindings.ModControl | keybindings.ModShift

func TestStartOpensTabAndShowPaints(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	require.Equal(t, 1, h.app.Tabs().Active().Len())
	require.Equal(t, 1, h.factory.Count())

	h.app.Render()
	require.Empty(t, h.host.paints, "hidden window is not painted")

	h.toggle(0)
	require.True(t, h.host.shown)
	h.app.Render()
	require.Len(t, h.host.paints, 1)

	fills := h.host.paints[0]
	palette := config.PaletteByName(h.cfg.Window.Theme)
	require.Len(t, fills, 5)
	require.Equal(t, pane.Rect{Y: paint.TabBarHeight, W: 800, H: 400}, fills[3].Rect)
	require.Equal(t, palette.Focused, fills[3].Color)

	h.app.Render()
	require.Len(t, h.host.paints, 1, "nothing changed")
}

func TestToggleIsDebounced(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()

	h.toggle(0)
	require.True(t, h.host.shown)
	h.toggle(30 * time.Millisecond)
	require.True(t, h.host.shown)
	h.toggle(time.Second)
	require.False(t, h.host.shown)
}

func TestSplitFocusAndDividerKeys(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	h.toggle(0)

	h.app.HandleKey(keybindings.KeyO, ctrlShift)
	tree := h.current()
	root := tree.Root()
	require.Equal(t, "H(leaf,leaf)", panetest.Shape(root))
	require.Equal(t, 400, root.DividerOffset)
	require.Same(t, root.Second(), tree.FindLastFocused())

	h.app.HandleKey(keybindings.KeyLeft, ctrlShift)
	require.Same(t, root.First(), tree.FindLastFocused())

	h.app.HandleKey(keybindings.KeyRight, keybindings.ModControl|keybindings.ModAlt)
	require.Equal(t, 410, root.DividerOffset)

	h.app.HandleKey(keybindings.KeyX, ctrlShift)
	require.Equal(t, "leaf", panetest.Shape(tree.Root()))
}

func TestInputGoesToFocusedTerminal(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()

	h.app.HandleChar('l', 0)
	h.app.HandleChar('s', 0)
	h.app.HandleKey(keybindings.KeyEnter, 0)
	require.Equal(t, "ls\r", panetest.Of(h.current().Root()).Input())
}

func TestTabKeys(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	c := h.app.Tabs().Active()

	h.app.HandleKey(keybindings.KeyT, ctrlShift)
	h.app.HandleKey(keybindings.KeyT, ctrlShift)
	require.Equal(t, 3, c.Len())
	require.Equal(t, 2, c.CurrentIndex())

	h.app.HandleKey(keybindings.Key1, keybindings.ModAlt)
	require.Equal(t, 0, c.CurrentIndex())
	h.app.HandleKey(keybindings.KeyPageDown, ctrlShift)
	require.Equal(t, 1, c.CurrentIndex())
	h.app.HandleKey(keybindings.KeyW, ctrlShift)
	require.Equal(t, 2, c.Len())
}

func TestRestoredSplitAppearsWhenShown(t *testing.T) {
	src := newHarness(t, nil)
	src.app.Start()
	src.toggle(0)
	src.app.HandleKey(keybindings.KeyE, ctrlShift)
	panetest.Of(src.current().Root().Second()).Chdir("/srv")
	require.NoError(t, src.app.SaveSession())

	h := newHarness(t, src.cfg)
	h.app.Start()
	tree := h.current()
	require.True(t, h.app.Codec().PendingFor(tree))
	require.Equal(t, "leaf", panetest.Shape(tree.Root()))

	h.toggle(0)
	require.False(t, h.app.Codec().PendingFor(tree))
	require.Equal(t, "V(leaf,leaf)", panetest.Shape(tree.Root()))
	require.Equal(t, []string{"/home/user", "/srv"}, panetest.Directories(tree))
	require.Equal(t, []string{"Your tabs have been restored!"}, h.notes)
}

func TestQuitSavesAndClosesTerminals(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	h.app.HandleKey(keybindings.KeyT, ctrlShift)

	h.app.Quit()
	require.True(t, h.app.Quitting())
	for _, term := range h.factory.Spawned() {
		require.True(t, term.Killed())
	}

	data, err := os.ReadFile(h.cfg.SessionPath())
	require.NoError(t, err)
	var doc session.File
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Workspace["0"][0], 2)

	h.queue.RunPending()
	data2, err := os.ReadFile(h.cfg.SessionPath())
	require.NoError(t, err)
	require.Equal(t, data, data2, "autosave must not overwrite the final save")
}

func TestRemoteCommandsRunOnLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	handle := h.app.Remote()

	require.NoError(t, handle(remote.Request{Command: remote.Show}))
	require.False(t, h.host.shown)
	h.queue.RunPending()
	require.True(t, h.host.shown)

	h.toggle(time.Second)
	require.True(t, h.host.shown, "toggle right after a remote show is absorbed")
	h.toggle(time.Second)
	require.False(t, h.host.shown)
}

func TestShowHookRuns(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.File = filepath.Join(t.TempDir(), "session.json")
	cfg.Hooks.Show = "notify-send shown"
	h := newHarness(t, cfg)
	h.app.Start()

	h.toggle(0)
	require.Equal(t, []string{"notify-send shown"}, h.hooks)
}

func TestFocusLossHidesUntilReconfigured(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	h.toggle(0)

	h.app.FocusChanged(false)
	require.False(t, h.host.shown)

	var reconfigured *config.Config
	h.app.reconf = func(c *config.Config) { reconfigured = c }
	cfg := config.DefaultConfig()
	cfg.Session.File = h.cfg.Session.File
	cfg.Behavior.HideOnLoseFocus = false
	h.app.ApplyConfig(cfg)
	require.Same(t, cfg, reconfigured)

	h.toggle(time.Second)
	require.True(t, h.host.shown)
	h.app.FocusChanged(false)
	require.True(t, h.host.shown)
}

func TestRenderLabelsTabFromDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	h := newHarness(t, nil)
	h.app.Start()
	h.toggle(0)
	h.app.Render()

	tb := h.app.Tabs().Active().Current()
	require.Equal(t, "user", tb.Label())
	require.Equal(t, "user", h.host.title)

	h.app.RenameTab("build")
	panetest.Of(tb.Tree.Root()).Chdir("/srv")
	h.app.Render()
	require.Equal(t, "build", tb.Label())
	require.True(t, tb.CustomLabel())
	require.Equal(t, "build", h.host.title)
	require.True(t, h.app.Visibility().MayHide())

	h.app.RenameTab("-")
	h.app.Render()
	require.Equal(t, "srv", tb.Label())
	require.Equal(t, "srv", h.host.title)
}

func TestRemoteRenameAndSelect(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	handle := h.app.Remote()
	c := h.app.Tabs().Active()

	require.NoError(t, handle(remote.Request{Command: remote.Rename, Arg: "logs"}))
	h.queue.RunPending()
	h.app.HandleKey(keybindings.KeyT, ctrlShift)
	require.NoError(t, handle(remote.Request{Command: remote.Rename, Arg: "build"}))
	h.queue.RunPending()
	require.Equal(t, "logs", c.Tab(0).Label())
	require.Equal(t, "build", c.Tab(1).Label())
	require.Equal(t, 1, c.CurrentIndex())

	require.NoError(t, handle(remote.Request{Command: remote.Select, Arg: "lgs"}))
	h.queue.RunPending()
	require.Equal(t, 0, c.CurrentIndex())
}

func TestRemoteFocusMovesBetweenPanes(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Start()
	h.toggle(0)
	h.app.HandleKey(keybindings.KeyO, ctrlShift)
	tree := h.current()

	handle := h.app.Remote()
	require.NoError(t, handle(remote.Request{Command: remote.Focus, Arg: "left"}))
	h.queue.RunPending()
	require.Same(t, tree.Root().First(), tree.FindLastFocused())

	require.ErrorContains(t, handle(remote.Request{Command: remote.Focus, Arg: "sideways"}), "unknown direction")
	require.ErrorContains(t, handle(remote.Request{Command: remote.Workspace, Arg: "-1"}), "bad workspace")
}

func TestWorkspaceSwitchShowsRestoredTabs(t *testing.T) {
	src := newHarness(t, nil)
	src.app.Start()
	src.toggle(0)
	src.app.SwitchWorkspace(1)
	require.Equal(t, 1, src.app.Tabs().ActiveWorkspace())
	src.app.HandleKey(keybindings.KeyE, ctrlShift)
	require.NoError(t, src.app.SaveSession())

	h := newHarness(t, src.cfg)
	h.app.Start()
	h.toggle(0)
	require.Equal(t, 0, h.app.Tabs().ActiveWorkspace())
	tree := h.app.Tabs().Container(1).Current().Tree
	require.True(t, h.app.Codec().PendingFor(tree), "hidden workspace waits")

	require.NoError(t, h.app.Remote()(remote.Request{Command: remote.Workspace, Arg: "1"}))
	h.queue.RunPending()
	require.Equal(t, 1, h.app.Tabs().ActiveWorkspace())
	require.False(t, h.app.Codec().PendingFor(tree))
	require.Equal(t, "V(leaf,leaf)", panetest.Shape(tree.Root()))
}
