// Package layout flattens split trees into preorder records and rebuilds
// trees from them. Restores that need real geometry wait in a pending queue
// until the hosting tab is on screen.
package layout

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/javanhut/RavenDrop/pane"
)

// Kind tags a Record.
type Kind string

const (
	KindSplitH Kind = "split-h"
	KindSplitV Kind = "split-v"
	KindLeaf   Kind = "leaf"
	// KindNone marks a missing subtree. Readers skip it.
	KindNone Kind = ""
)

// IsSplit reports whether k describes a split node.
func (k Kind) IsSplit() bool { return k == KindSplitH || k == KindSplitV }

// Orientation returns the split orientation for a split kind.
func (k Kind) Orientation() pane.Orientation {
	if k == KindSplitV {
		return pane.Vertical
	}
	return pane.Horizontal
}

// SplitKind returns the record kind for a split of orientation o.
func SplitKind(o pane.Orientation) Kind {
	if o == pane.Vertical {
		return KindSplitV
	}
	return KindSplitH
}

// Record is one node of a preorder-flattened tree. Directory is only set
// for leaves.
type Record struct {
	Kind      Kind
	Directory string
}

// Serialize flattens tree in preorder. A tree with N leaves yields 2N-1
// records.
func Serialize(tree *pane.Tree) []Record {
	var out []Record
	return appendPane(out, tree.Root())
}

func appendPane(out []Record, p *pane.Pane) []Record {
	switch {
	case p == nil:
		return append(out, Record{Kind: KindNone})
	case p.IsSplit():
		out = append(out, Record{Kind: SplitKind(p.Orientation())})
		out = appendPane(out, p.First())
		return appendPane(out, p.Second())
	default:
		rec := Record{Kind: KindLeaf}
		if term := p.Terminal(); term != nil {
			rec.Directory = term.CurrentDirectory()
		}
		return append(out, rec)
	}
}

// PendingRestore is a restore waiting for its tree to get a usable size.
type PendingRestore struct {
	Tree    *pane.Tree
	Leaf    *pane.Pane
	Records []Record
}

// Codec applies records to trees and keeps the restores it had to defer.
type Codec struct {
	pending []*PendingRestore
	logger  *slog.Logger
}

// NewCodec returns a codec with an empty pending queue.
func NewCodec(logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{logger: logger}
}

// Deserialize rebuilds the subtree at into from records. When the records
// contain a split and tree has no usable size yet, nothing is touched: the
// restore is queued and Deserialize returns false. Queuing the same target
// again replaces the earlier entry, so repeated calls never duplicate panes.
//
// Leaves that are still empty once the records run out get a default
// terminal. Spawn failures are joined into the returned error; the tree
// shape is kept regardless.
func (c *Codec) Deserialize(tree *pane.Tree, into *pane.Pane, records []Record) (bool, error) {
	if tree.Destroyed() {
		return false, pane.ErrDestroyed
	}
	if !tree.Contains(into) {
		return false, pane.ErrNotInTree
	}
	if needsGeometry(records) && !tree.Realized() {
		c.enqueue(tree, into, records)
		return false, nil
	}
	return true, c.apply(tree, into, records)
}

// Pending returns the number of queued restores.
func (c *Codec) Pending() int { return len(c.pending) }

// PendingFor reports whether a restore for tree is queued.
func (c *Codec) PendingFor(tree *pane.Tree) bool {
	for _, p := range c.pending {
		if p.Tree == tree {
			return true
		}
	}
	return false
}

// PendingRecords returns the queued records for a restore covering the whole
// of tree, so a tree that is still waiting is saved with its intended layout.
func (c *Codec) PendingRecords(tree *pane.Tree) ([]Record, bool) {
	for _, p := range c.pending {
		if p.Tree == tree && p.Leaf == tree.Root() {
			return p.Records, true
		}
	}
	return nil, false
}

// Flush retries queued restores. Only the restore of current is attempted,
// and only while the window is visible; each entry gets at most one attempt.
// Entries whose tree was destroyed or whose leaf left the tree are dropped.
func (c *Codec) Flush(current *pane.Tree, visible bool) (int, error) {
	var (
		kept    []*PendingRestore
		applied int
		errs    []error
	)
	for _, p := range c.pending {
		switch {
		case p.Tree.Destroyed() || !p.Tree.Contains(p.Leaf) || !p.Leaf.IsLeaf():
			c.logger.Debug("pending restore dropped", "records", len(p.Records))
		case !visible || p.Tree != current || !p.Tree.Realized():
			kept = append(kept, p)
		default:
			if err := c.apply(p.Tree, p.Leaf, p.Records); err != nil {
				errs = append(errs, err)
			}
			applied++
		}
	}
	c.pending = kept
	return applied, errors.Join(errs...)
}

// Drop discards queued restores for tree.
func (c *Codec) Drop(tree *pane.Tree) {
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.Tree != tree {
			kept = append(kept, p)
		}
	}
	clear(c.pending[len(kept):])
	c.pending = kept
}

func (c *Codec) enqueue(tree *pane.Tree, into *pane.Pane, records []Record) {
	recs := make([]Record, len(records))
	copy(recs, records)
	for _, p := range c.pending {
		if p.Tree == tree && p.Leaf == into {
			p.Records = recs
			return
		}
	}
	c.pending = append(c.pending, &PendingRestore{Tree: tree, Leaf: into, Records: recs})
	c.logger.Debug("restore deferred", "records", len(recs))
}

func (c *Codec) apply(tree *pane.Tree, into *pane.Pane, records []Record) error {
	r := &restorer{tree: tree, records: records, logger: c.logger}
	if err := r.restore(into); err != nil {
		return fmt.Errorf("layout: restore: %w", err)
	}
	if err := tree.FillEmpty(); err != nil {
		r.errs = append(r.errs, err)
	}
	if len(r.errs) > 0 {
		return fmt.Errorf("layout: restore: %w", errors.Join(r.errs...))
	}
	return nil
}

type restorer struct {
	tree    *pane.Tree
	records []Record
	pos     int
	errs    []error
	logger  *slog.Logger
}

// restore consumes records for the subtree rooted at leaf. Structural
// errors abort; spawn errors are collected.
func (r *restorer) restore(leaf *pane.Pane) error {
	if r.pos >= len(r.records) {
		return nil
	}
	rec := r.records[r.pos]
	r.pos++
	switch {
	case rec.Kind.IsSplit():
		split, err := r.tree.SplitDeferred(leaf, rec.Kind.Orientation())
		if err != nil {
			return err
		}
		if err := r.restore(split.First()); err != nil {
			return err
		}
		return r.restore(split.Second())
	case rec.Kind == KindLeaf:
		if err := r.tree.Respawn(leaf, rec.Directory); err != nil {
			if !errors.Is(err, pane.ErrSpawn) {
				return err
			}
			r.errs = append(r.errs, err)
		}
		return nil
	case rec.Kind == KindNone:
		return nil
	default:
		r.logger.Warn("unknown layout record skipped", "kind", string(rec.Kind))
		return nil
	}
}

func needsGeometry(records []Record) bool {
	for _, rec := range records {
		if rec.Kind.IsSplit() {
			return true
		}
	}
	return false
}
