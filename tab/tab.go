// Package tab keeps the ordered tabs of the drop-down window. Each tab owns
// one split tree; the container tracks which tab is displayed.
package tab

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/javanhut/RavenDrop/pane"
)

// MaxTabs caps the number of tabs in one container.
const MaxTabs = 64

// DefaultLabel is the label of a freshly opened tab.
const DefaultLabel = "Terminal"

// ErrMaxTabs is returned when a container is full.
var ErrMaxTabs = errors.New("tab: too many tabs")

// Tab is one page of the window.
type Tab struct {
	Tree        *pane.Tree
	label       string
	customLabel bool
}

// Label returns the tab title.
func (t *Tab) Label() string { return t.label }

// CustomLabel reports whether the user renamed the tab.
func (t *Tab) CustomLabel() bool { return t.customLabel }

// DisplayLabel returns the label cut to maxCells display cells.
func (t *Tab) DisplayLabel(maxCells int) string {
	return TruncateLabel(t.label, maxCells)
}

// Options configures a Container.
type Options struct {
	Factory pane.Factory
	// Tree is the template for every tab's tree. OnChange and OnEmpty are
	// owned by the container and overwritten.
	Tree pane.Options
	// OpenTabCwd starts new tabs in the directory of the focused terminal.
	OpenTabCwd bool
	// OnChange runs after tabs were added, removed, moved or renamed, and
	// after any tree shape change.
	OnChange func(reason string)
	// OnSelect runs when a different tab becomes current.
	OnSelect func(*Tab)
	Logger   *slog.Logger
}

// Container is the ordered set of tabs of one workspace.
type Container struct {
	tabs    []*Tab
	current int
	opts    Options
}

// NewContainer returns an empty container.
func NewContainer(opts Options) *Container {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Container{opts: opts, current: -1}
}

// NewTab opens a tab with a single terminal in directory and makes it
// current. An empty directory means the focused terminal's directory when
// OpenTabCwd is set, else the factory default.
func (c *Container) NewTab(directory string) (*Tab, error) {
	if len(c.tabs) >= MaxTabs {
		return nil, ErrMaxTabs
	}
	if directory == "" && c.opts.OpenTabCwd {
		directory = c.focusedDirectory()
	}
	opts := c.opts.Tree
	if opts.Logger == nil {
		opts.Logger = c.opts.Logger
	}
	opts.OnEmpty = c.closeTree
	opts.OnChange = func(_ *pane.Tree, ch pane.Change) { c.changed(ch.Kind.String()) }
	tree, err := pane.New(c.opts.Factory, directory, opts)
	if err != nil {
		return nil, fmt.Errorf("tab: new tab: %w", err)
	}
	t := &Tab{Tree: tree, label: DefaultLabel}
	c.tabs = append(c.tabs, t)
	c.opts.Logger.Debug("tab opened", "index", len(c.tabs)-1, "directory", directory)
	c.changed("new-tab")
	c.Select(len(c.tabs) - 1)
	return t, nil
}

// EnsureTab opens a tab when the container has none.
func (c *Container) EnsureTab() error {
	if len(c.tabs) > 0 {
		return nil
	}
	_, err := c.NewTab("")
	return err
}

func (c *Container) focusedDirectory() string {
	cur := c.Current()
	if cur == nil {
		return ""
	}
	if term := cur.Tree.FindLastFocused().Terminal(); term != nil {
		return term.CurrentDirectory()
	}
	return ""
}

// Len returns the number of tabs.
func (c *Container) Len() int { return len(c.tabs) }

// Tabs returns the tabs in display order.
func (c *Container) Tabs() []*Tab { return slices.Clone(c.tabs) }

// Tab returns the tab at index i, nil when out of range.
func (c *Container) Tab(i int) *Tab {
	if i < 0 || i >= len(c.tabs) {
		return nil
	}
	return c.tabs[i]
}

// Current returns the displayed tab, nil when there is none.
func (c *Container) Current() *Tab { return c.Tab(c.current) }

// CurrentIndex returns the index of the displayed tab, -1 when empty.
func (c *Container) CurrentIndex() int { return c.current }

// IndexOf returns the position of t, -1 when it is not in the container.
func (c *Container) IndexOf(t *Tab) int { return slices.Index(c.tabs, t) }

// IndexOfTree returns the position of the tab owning tree, -1 if none.
func (c *Container) IndexOfTree(tree *pane.Tree) int {
	return slices.IndexFunc(c.tabs, func(t *Tab) bool { return t.Tree == tree })
}

// Select makes tab i current.
func (c *Container) Select(i int) bool {
	if i < 0 || i >= len(c.tabs) {
		return false
	}
	if i == c.current {
		return true
	}
	c.current = i
	if c.opts.OnSelect != nil {
		c.opts.OnSelect(c.tabs[i])
	}
	return true
}

// SelectLast makes the last tab current.
func (c *Container) SelectLast() bool { return c.Select(len(c.tabs) - 1) }

// Next selects the following tab, wrapping around.
func (c *Container) Next() {
	if len(c.tabs) > 1 {
		c.Select((c.current + 1) % len(c.tabs))
	}
}

// Prev selects the preceding tab, wrapping around.
func (c *Container) Prev() {
	if len(c.tabs) > 1 {
		c.Select((c.current - 1 + len(c.tabs)) % len(c.tabs))
	}
}

// Move reorders the tab at from to position to. The current tab stays
// current. Trees are not touched.
func (c *Container) Move(from, to int) bool {
	n := len(c.tabs)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	cur := c.Current()
	t := c.tabs[from]
	c.tabs = slices.Delete(c.tabs, from, from+1)
	c.tabs = slices.Insert(c.tabs, to, t)
	c.current = c.IndexOf(cur)
	c.changed("reorder")
	return true
}

// MoveCurrent shifts the current tab by delta positions.
func (c *Container) MoveCurrent(delta int) bool {
	return c.Move(c.current, c.current+delta)
}

// Close destroys the tree of tab i and removes it. Closing the last tab
// opens a fresh one so the window is never left without tabs.
func (c *Container) Close(i int) error {
	if i < 0 || i >= len(c.tabs) {
		return fmt.Errorf("tab: close %d: index out of range", i)
	}
	t := c.tabs[i]
	c.tabs = slices.Delete(c.tabs, i, i+1)
	t.Tree.Destroy()
	c.opts.Logger.Debug("tab closed", "index", i, "remaining", len(c.tabs))

	if len(c.tabs) == 0 {
		c.current = -1
		c.changed("close-tab")
		_, err := c.NewTab("")
		return err
	}
	prev := c.current
	switch {
	case i < c.current:
		c.current--
	case c.current >= len(c.tabs):
		c.current = len(c.tabs) - 1
	}
	c.changed("close-tab")
	if i == prev && c.opts.OnSelect != nil {
		c.opts.OnSelect(c.tabs[c.current])
	}
	return nil
}

// CloseCurrent closes the displayed tab.
func (c *Container) CloseCurrent() error { return c.Close(c.current) }

// CloseAll destroys every tab without opening a replacement.
func (c *Container) CloseAll() {
	for _, t := range c.tabs {
		t.Tree.Destroy()
	}
	c.tabs = nil
	c.current = -1
}

func (c *Container) closeTree(tree *pane.Tree) {
	if i := c.IndexOfTree(tree); i >= 0 {
		if err := c.Close(i); err != nil {
			c.opts.Logger.Warn("replacement tab failed", "err", err)
		}
	}
}

// Rename sets the label of tab i. A rename by the user marks the label as
// custom unless the text is "-"; automatic renames leave custom labels
// alone and report false, as does a rename that changes nothing.
func (c *Container) Rename(i int, text string, userSet bool) bool {
	t := c.Tab(i)
	if t == nil {
		return false
	}
	if t.customLabel && !userSet {
		return false
	}
	custom := t.customLabel
	if userSet {
		custom = text != "-"
	}
	if t.label == text && t.customLabel == custom {
		return false
	}
	t.label, t.customLabel = text, custom
	c.changed("rename")
	return true
}

// SetLabel restores a label and its custom flag without announcing a change.
func (c *Container) SetLabel(i int, text string, custom bool) {
	if t := c.Tab(i); t != nil {
		t.label, t.customLabel = text, custom
	}
}

// FindByLabel returns the indexes of the tabs whose label fuzzily matches
// query, best match first.
func (c *Container) FindByLabel(query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	labels := make([]string, len(c.tabs))
	for i, t := range c.tabs {
		labels[i] = t.label
	}
	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	slices.SortStableFunc(ranks, func(a, b fuzzy.Rank) int {
		if a.Distance != b.Distance {
			return a.Distance - b.Distance
		}
		return a.OriginalIndex - b.OriginalIndex
	})
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = r.OriginalIndex
	}
	return out
}

// AliveCount returns the number of running terminals across all tabs.
func (c *Container) AliveCount() int {
	n := 0
	for _, t := range c.tabs {
		n += t.Tree.AliveCount()
	}
	return n
}

func (c *Container) changed(reason string) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(reason)
	}
}
