// Package panetest provides in-memory terminals for tests of the split tree
// and everything built on it.
package panetest

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/javanhut/RavenDrop/pane"
)

// ErrSpawn is returned by a Factory told to fail.
var ErrSpawn = errors.New("panetest: spawn refused")

// Terminal is a fake pane.Terminal.
type Terminal struct {
	id     uuid.UUID
	exited chan struct{}
	once   sync.Once

	mu     sync.Mutex
	dir    string
	killed bool
	input  []byte
}

// NewTerminal returns a running fake terminal in dir.
func NewTerminal(dir string) *Terminal {
	return &Terminal{id: uuid.New(), dir: dir, exited: make(chan struct{})}
}

func (t *Terminal) ID() uuid.UUID { return t.id }

func (t *Terminal) CurrentDirectory() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir
}

// Chdir simulates the shell changing directory.
func (t *Terminal) Chdir(dir string) {
	t.mu.Lock()
	t.dir = dir
	t.mu.Unlock()
}

func (t *Terminal) Alive() bool {
	select {
	case <-t.exited:
		return false
	default:
		return true
	}
}

func (t *Terminal) Exited() <-chan struct{} { return t.exited }

func (t *Terminal) Kill() {
	t.mu.Lock()
	t.killed = true
	t.mu.Unlock()
	t.Exit()
}

// Exit simulates the process ending on its own.
func (t *Terminal) Exit() {
	t.once.Do(func() { close(t.exited) })
}

// Write records input sent to the terminal.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.input = append(t.input, p...)
	return len(p), nil
}

// Input returns everything written so far.
func (t *Terminal) Input() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.input)
}

// Killed reports whether Kill was called.
func (t *Terminal) Killed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.killed
}

// Factory is a fake pane.Factory recording what it spawned.
type Factory struct {
	mu sync.Mutex
	// Default is used when Spawn receives an empty directory.
	Default string
	// FailNext makes the next n Spawn calls fail.
	FailNext int
	spawned  []*Terminal
}

// NewFactory returns a factory spawning into def by default.
func NewFactory(def string) *Factory {
	return &Factory{Default: def}
}

func (f *Factory) Spawn(directory string) (pane.Terminal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailNext > 0 {
		f.FailNext--
		return nil, ErrSpawn
	}
	if directory == "" {
		directory = f.Default
	}
	term := NewTerminal(directory)
	f.spawned = append(f.spawned, term)
	return term, nil
}

// Spawned returns every terminal created so far.
func (f *Factory) Spawned() []*Terminal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Terminal, len(f.spawned))
	copy(out, f.spawned)
	return out
}

// Count returns how many terminals were spawned.
func (f *Factory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spawned)
}

// Of returns the fake behind a leaf's terminal.
func Of(p *pane.Pane) *Terminal {
	term, _ := p.Terminal().(*Terminal)
	return term
}

// Directories returns the leaf directories of tree in preorder.
func Directories(tree *pane.Tree) []string {
	var out []string
	for leaf := range tree.Leaves() {
		if leaf.Terminal() == nil {
			out = append(out, "")
			continue
		}
		out = append(out, leaf.Terminal().CurrentDirectory())
	}
	return out
}

// Shape renders the structure of p as a compact string such as
// "H(leaf,V(leaf,leaf))".
func Shape(p *pane.Pane) string {
	if p == nil {
		return "nil"
	}
	if p.IsLeaf() {
		return "leaf"
	}
	tag := "H"
	if p.Orientation() == pane.Vertical {
		tag = "V"
	}
	return tag + "(" + Shape(p.First()) + "," + Shape(p.Second()) + ")"
}
