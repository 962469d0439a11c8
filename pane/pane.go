package pane

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// Orientation is the axis a split divides along.
// Horizontal places the children side by side and its divider moves left/right,
// Vertical stacks them and its divider moves up/down.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// Kind tags the variant held by a Pane.
type Kind int

const (
	KindLeaf Kind = iota
	KindSplit
)

func (k Kind) String() string {
	if k == KindSplit {
		return "split"
	}
	return "leaf"
}

// DividerUnset marks a divider whose position is not known yet.
// The next Arrange pass replaces it with half of the split's extent.
const DividerUnset = -1

// Terminal is the opaque payload carried by a leaf.
type Terminal interface {
	ID() uuid.UUID
	CurrentDirectory() string
	Alive() bool
	// Exited is closed once the terminal's process is gone. May be nil.
	Exited() <-chan struct{}
	Kill()
}

// Factory spawns terminals. An empty directory selects the factory default.
type Factory interface {
	Spawn(directory string) (Terminal, error)
}

// Dispatcher runs fn on the goroutine that owns the tree.
type Dispatcher interface {
	Post(fn func())
}

// Pane is a node of a split tree: a leaf holding one terminal, or a split
// holding exactly two children.
type Pane struct {
	kind Kind

	// leaf
	terminal Terminal
	unwatch  chan struct{}

	// split
	orientation Orientation
	first       *Pane
	second      *Pane
	// DividerOffset is the extent given to the first child along the split axis.
	DividerOffset int

	// parent is a lookup-only back-reference; ownership runs root to children.
	parent *Pane
}

// NewLeaf returns a detached leaf wrapping term. term may be nil.
func NewLeaf(term Terminal) *Pane {
	return &Pane{kind: KindLeaf, terminal: term}
}

// Kind returns the variant of the pane.
func (p *Pane) Kind() Kind { return p.kind }

// IsLeaf reports whether the pane wraps a terminal slot.
func (p *Pane) IsLeaf() bool { return p != nil && p.kind == KindLeaf }

// IsSplit reports whether the pane has two children.
func (p *Pane) IsSplit() bool { return p != nil && p.kind == KindSplit }

// Terminal returns the leaf's terminal, nil for splits and empty leaves.
func (p *Pane) Terminal() Terminal {
	if p == nil {
		return nil
	}
	return p.terminal
}

// Empty reports whether the pane is a leaf without a terminal.
func (p *Pane) Empty() bool { return p.IsLeaf() && p.terminal == nil }

func (p *Pane) Orientation() Orientation { return p.orientation }
func (p *Pane) First() *Pane             { return p.first }
func (p *Pane) Second() *Pane            { return p.second }
func (p *Pane) Parent() *Pane            { return p.parent }

// Root walks parent links up to the top of the tree holding p.
func (p *Pane) Root() *Pane {
	node := p
	for node != nil && node.parent != nil {
		node = node.parent
	}
	return node
}

// Sibling returns the other child of p's parent.
func (p *Pane) Sibling() *Pane {
	if p == nil || p.parent == nil {
		return nil
	}
	if p.parent.first == p {
		return p.parent.second
	}
	return p.parent.first
}

// ReplaceChild substitutes repl for old among p's children and points repl's
// parent at p. It panics with *ChildNotFoundError when old is not a child of p.
func (p *Pane) ReplaceChild(old, repl *Pane) {
	switch {
	case p == nil || p.kind != KindSplit:
		panic(&ChildNotFoundError{Parent: p, Child: old})
	case p.first == old:
		p.first = repl
	case p.second == old:
		p.second = repl
	default:
		panic(&ChildNotFoundError{Parent: p, Child: old})
	}
	if old != nil && old.parent == p {
		old.parent = nil
	}
	if repl != nil {
		repl.parent = p
	}
}

// Nodes yields every pane under p in preorder.
func (p *Pane) Nodes() iter.Seq[*Pane] {
	return func(yield func(*Pane) bool) {
		p.walk(yield)
	}
}

// Leaves yields the leaf panes under p in preorder.
func (p *Pane) Leaves() iter.Seq[*Pane] {
	return func(yield func(*Pane) bool) {
		p.walk(func(node *Pane) bool {
			if node.kind != KindLeaf {
				return true
			}
			return yield(node)
		})
	}
}

func (p *Pane) walk(fn func(*Pane) bool) bool {
	if p == nil {
		return true
	}
	if !fn(p) {
		return false
	}
	if p.kind == KindSplit {
		return p.first.walk(fn) && p.second.walk(fn)
	}
	return true
}

// FirstLeaf returns the first leaf under p in preorder.
func (p *Pane) FirstLeaf() *Pane {
	for leaf := range p.Leaves() {
		return leaf
	}
	return nil
}

// ChildNotFoundError reports a replace on a split that does not hold the
// given child. It signals a broken tree and is raised with panic.
type ChildNotFoundError struct {
	Parent *Pane
	Child  *Pane
}

func (e *ChildNotFoundError) Error() string {
	if e.Parent == nil || e.Parent.kind != KindSplit {
		return "pane: replace child on a pane that is not a split"
	}
	return fmt.Sprintf("pane: %p is not a child of split %p", e.Child, e.Parent)
}
