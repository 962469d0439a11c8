// Package navigate moves focus between neighbouring panes and nudges the
// dividers of their enclosing splits.
package navigate

import (
	"github.com/javanhut/RavenDrop/pane"
)

// Direction is one of the four screen directions.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection maps "left", "right", "up" and "down" to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "left":
		return Left, true
	case "right":
		return Right, true
	case "up":
		return Up, true
	case "down":
		return Down, true
	}
	return 0, false
}

// Axis returns the split orientation whose divider moves along d.
func (d Direction) Axis() pane.Orientation {
	if d == Left || d == Right {
		return pane.Horizontal
	}
	return pane.Vertical
}

const (
	// FocusProbe is how far past the current pane's edge the neighbour is
	// looked up.
	FocusProbe = 10
	// DividerStep is the distance a divider moves per request.
	DividerStep = 10
	// DividerMargin is the smallest extent either side of a divider keeps.
	DividerMargin = 35
)

// MoveFocus focuses the pane adjacent to current in direction d and returns
// it. It returns nil when current touches that edge of the window, when
// geometry is unknown, or when nothing lies under the probe point.
func MoveFocus(tree *pane.Tree, current *pane.Pane, d Direction) *pane.Pane {
	box, ok := tree.Bounds(current)
	if !ok {
		return nil
	}
	width, height := tree.Extent()
	var px, py int
	switch d {
	case Right:
		if box.X+box.W >= width {
			return nil
		}
		px, py = box.X+box.W+FocusProbe, box.Y+box.H/2
	case Left:
		if box.X <= 0 {
			return nil
		}
		px, py = box.X-FocusProbe, box.Y+box.H/2
	case Up:
		if box.Y <= 0 {
			return nil
		}
		px, py = box.X+box.W/2, box.Y-FocusProbe
	case Down:
		if box.Y+box.H >= height {
			return nil
		}
		px, py = box.X+box.W/2, box.Y+box.H+FocusProbe
	default:
		return nil
	}
	for leaf := range tree.Leaves() {
		if leaf == current {
			continue
		}
		r, ok := tree.Bounds(leaf)
		if ok && r.Contains(px, py) {
			tree.Focus(leaf)
			return leaf
		}
	}
	return nil
}

// MoveDivider moves the divider of the nearest split above current whose
// orientation matches d's axis by DividerStep, keeping DividerMargin on both
// sides. It returns the adjusted split, or nil when there is none or its
// geometry is unknown.
func MoveDivider(tree *pane.Tree, current *pane.Pane, d Direction) *pane.Pane {
	axis := d.Axis()
	split := current.Parent()
	for split != nil && split.Orientation() != axis {
		split = split.Parent()
	}
	if split == nil {
		return nil
	}
	box, ok := tree.Bounds(split)
	if !ok {
		return nil
	}
	extent := box.Extent(axis)
	offset := split.DividerOffset
	if offset == pane.DividerUnset {
		offset = extent / 2
	}
	if d == Left || d == Up {
		offset -= DividerStep
	} else {
		offset += DividerStep
	}
	split.DividerOffset = clamp(offset, DividerMargin, extent-DividerMargin)
	return split
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
