package pane

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"
)

var (
	ErrNotLeaf   = errors.New("pane: not a leaf")
	ErrNotInTree = errors.New("pane: leaf is not attached to this tree")
	ErrLastPane  = errors.New("pane: cannot close the only pane of a tree")
	ErrSpawn     = errors.New("pane: spawn terminal")
	ErrDestroyed = errors.New("pane: tree destroyed")
)

// ChangeKind identifies a shape change announced by a Tree.
type ChangeKind int

const (
	ChangeSplit ChangeKind = iota
	ChangeClose
	ChangeRespawn
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSplit:
		return "split"
	case ChangeClose:
		return "close"
	case ChangeRespawn:
		return "respawn"
	default:
		return "unknown"
	}
}

// Change describes a tree mutation. Pane is the new split for ChangeSplit,
// the promoted sibling for ChangeClose and the leaf for ChangeRespawn.
type Change struct {
	Kind ChangeKind
	Pane *Pane
}

// Options configures a Tree.
type Options struct {
	// Dispatcher receives terminal exit notifications; nil disables exit watching.
	Dispatcher Dispatcher
	// InheritDirectory starts split terminals in the split leaf's directory.
	InheritDirectory bool
	// OnChange is called after every shape change.
	OnChange func(*Tree, Change)
	// OnEmpty is called when the only pane of the tree is closed.
	OnEmpty func(*Tree)
	Logger  *slog.Logger
}

// Tree owns the split tree of one tab.
type Tree struct {
	root        *Pane
	factory     Factory
	opts        Options
	lastFocused uuid.UUID
	geometry    Geometry
	width       int
	height      int
	destroyed   bool
}

// New creates a tree holding one leaf with a terminal spawned in directory.
func New(factory Factory, directory string, opts Options) (*Tree, error) {
	t := newTree(factory, opts)
	term, err := factory.Spawn(directory)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	t.attach(t.root, term)
	t.Focus(t.root)
	return t, nil
}

func newTree(factory Factory, opts Options) *Tree {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Tree{
		root:    NewLeaf(nil),
		factory: factory,
		opts:    opts,
	}
}

// Root returns the root pane, nil once the tree is destroyed.
func (t *Tree) Root() *Pane { return t.root }

// Destroyed reports whether Destroy has run.
func (t *Tree) Destroyed() bool { return t.destroyed }

// Leaves yields the leaves of the tree in preorder. The sequence can be
// ranged over repeatedly.
func (t *Tree) Leaves() iter.Seq[*Pane] {
	return t.root.Leaves()
}

// Contains reports whether p belongs to this tree.
func (t *Tree) Contains(p *Pane) bool {
	return p != nil && t.root != nil && p.Root() == t.root
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int {
	n := 0
	for range t.Leaves() {
		n++
	}
	return n
}

// AliveCount returns the number of leaves whose terminal is still running.
func (t *Tree) AliveCount() int {
	n := 0
	for leaf := range t.Leaves() {
		if leaf.terminal != nil && leaf.terminal.Alive() {
			n++
		}
	}
	return n
}

// Split turns leaf into a split whose first child is leaf and whose second
// child is a new leaf with a freshly spawned terminal. Focus moves to the new
// leaf. When spawning fails the split is still in place with an empty second
// leaf and the returned error wraps ErrSpawn.
func (t *Tree) Split(leaf *Pane, o Orientation) (*Pane, error) {
	dir := ""
	if t.opts.InheritDirectory && leaf.Terminal() != nil {
		dir = leaf.terminal.CurrentDirectory()
	}
	split, err := t.split(leaf, o)
	if err != nil {
		return nil, err
	}
	defer t.announce(ChangeSplit, split)
	term, err := t.factory.Spawn(dir)
	if err != nil {
		t.opts.Logger.Warn("split spawn failed", "orientation", o.String(), "err", err)
		return split, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	t.attach(split.second, term)
	t.Focus(split.second)
	t.opts.Logger.Debug("pane split", "orientation", o.String(), "leaves", t.LeafCount())
	return split, nil
}

// SplitDeferred splits leaf like Split but leaves the new second leaf empty.
// The caller attaches its terminal with Respawn.
func (t *Tree) SplitDeferred(leaf *Pane, o Orientation) (*Pane, error) {
	split, err := t.split(leaf, o)
	if err != nil {
		return nil, err
	}
	t.announce(ChangeSplit, split)
	return split, nil
}

func (t *Tree) split(leaf *Pane, o Orientation) (*Pane, error) {
	if err := t.checkLeaf(leaf); err != nil {
		return nil, err
	}
	offset := DividerUnset
	if r, ok := t.Bounds(leaf); ok && !r.Degenerate() {
		offset = r.Extent(o) / 2
	}
	split := &Pane{kind: KindSplit, orientation: o, DividerOffset: offset}
	if parent := leaf.parent; parent != nil {
		parent.ReplaceChild(leaf, split)
	} else {
		t.root = split
	}
	second := NewLeaf(nil)
	split.first, split.second = leaf, second
	leaf.parent, second.parent = split, split
	return split, nil
}

// Close removes leaf from the tree. Its sibling subtree takes the place of
// the parent split and focus moves to the sibling's first leaf. Closing the
// only leaf hands the tree to OnEmpty, or returns ErrLastPane without one.
func (t *Tree) Close(leaf *Pane) error {
	if err := t.checkLeaf(leaf); err != nil {
		return err
	}
	parent := leaf.parent
	if parent == nil {
		if t.opts.OnEmpty == nil {
			return ErrLastPane
		}
		t.opts.OnEmpty(t)
		return nil
	}
	sibling := leaf.Sibling()
	if grand := parent.parent; grand != nil {
		grand.ReplaceChild(parent, sibling)
	} else {
		t.root = sibling
		sibling.parent = nil
	}
	parent.first, parent.second, parent.parent = nil, nil, nil
	leaf.parent = nil
	t.release(leaf)
	if next := sibling.FirstLeaf(); next != nil {
		t.Focus(next)
	}
	t.opts.Logger.Debug("pane closed", "leaves", t.LeafCount())
	t.announce(ChangeClose, sibling)
	return nil
}

// Respawn detaches and kills the terminal of leaf, then attaches a new one
// spawned in directory. On spawn failure the leaf is left empty.
func (t *Tree) Respawn(leaf *Pane, directory string) error {
	if err := t.checkLeaf(leaf); err != nil {
		return err
	}
	t.release(leaf)
	term, err := t.factory.Spawn(directory)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	t.attach(leaf, term)
	t.announce(ChangeRespawn, leaf)
	return nil
}

// FillEmpty spawns a default terminal in every empty leaf.
func (t *Tree) FillEmpty() error {
	var errs []error
	for leaf := range t.Leaves() {
		if leaf.terminal != nil {
			continue
		}
		term, err := t.factory.Spawn("")
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrSpawn, err))
			continue
		}
		t.attach(leaf, term)
	}
	return errors.Join(errs...)
}

// Focus records leaf's terminal as the last focused one.
func (t *Tree) Focus(leaf *Pane) {
	if leaf.Terminal() == nil {
		return
	}
	t.lastFocused = leaf.terminal.ID()
}

// FindLastFocused returns the leaf holding the last focused terminal, or the
// first leaf when that terminal is gone.
func (t *Tree) FindLastFocused() *Pane {
	if t.lastFocused != uuid.Nil {
		for leaf := range t.Leaves() {
			if leaf.terminal != nil && leaf.terminal.ID() == t.lastFocused {
				return leaf
			}
		}
	}
	return t.root.FirstLeaf()
}

// Destroy kills every terminal and drops the tree.
func (t *Tree) Destroy() {
	if t.destroyed {
		return
	}
	for leaf := range t.Leaves() {
		t.release(leaf)
	}
	t.root = nil
	t.destroyed = true
}

// SetExtent records the on-screen size of the container hosting the tree.
func (t *Tree) SetExtent(width, height int) {
	t.width, t.height = width, height
}

// Extent returns the last recorded container size.
func (t *Tree) Extent() (int, int) { return t.width, t.height }

// Realized reports whether the hosting container has a usable size.
func (t *Tree) Realized() bool {
	return !Rect{W: t.width, H: t.height}.Degenerate()
}

// Arrange lays the tree out in a container of the given size, records the
// extent and keeps the allocation as the tree's geometry. A degenerate size
// is recorded but the previous geometry stays in place.
func (t *Tree) Arrange(width, height int) Allocation {
	t.SetExtent(width, height)
	alloc := Arrange(t.root, Rect{W: width, H: height})
	if t.Realized() {
		t.geometry = alloc
	}
	return alloc
}

// Bounds returns p's on-screen box when geometry is known.
func (t *Tree) Bounds(p *Pane) (Rect, bool) {
	if t.geometry == nil {
		return Rect{}, false
	}
	return t.geometry.Bounds(p)
}

func (t *Tree) checkLeaf(leaf *Pane) error {
	if t.destroyed {
		return ErrDestroyed
	}
	if !leaf.IsLeaf() {
		return ErrNotLeaf
	}
	if !t.Contains(leaf) {
		return ErrNotInTree
	}
	return nil
}

func (t *Tree) attach(leaf *Pane, term Terminal) {
	leaf.terminal = term
	d := t.opts.Dispatcher
	if d == nil {
		return
	}
	stop := make(chan struct{})
	leaf.unwatch = stop
	exited := term.Exited()
	go func() {
		select {
		case <-exited:
			d.Post(func() {
				if leaf.terminal != term || !t.Contains(leaf) {
					return
				}
				t.opts.Logger.Debug("terminal exited", "terminal", term.ID())
				_ = t.Close(leaf)
			})
		case <-stop:
		}
	}()
}

// release disconnects the exit watch of leaf and kills its terminal.
func (t *Tree) release(leaf *Pane) {
	if leaf.unwatch != nil {
		close(leaf.unwatch)
		leaf.unwatch = nil
	}
	term := leaf.terminal
	leaf.terminal = nil
	if term != nil && term.Alive() {
		term.Kill()
	}
}

func (t *Tree) announce(kind ChangeKind, p *Pane) {
	if t.opts.OnChange != nil {
		t.opts.OnChange(t, Change{Kind: kind, Pane: p})
	}
}
