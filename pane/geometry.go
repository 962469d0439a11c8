package pane

// Rect is an on-screen box in window coordinates.
type Rect struct {
	X int
	Y int
	W int
	H int
}

// Extent returns the size of r along the axis split by o.
func (r Rect) Extent(o Orientation) int {
	if o == Horizontal {
		return r.W
	}
	return r.H
}

// Contains reports whether (x, y) lies inside r, edges included.
func (r Rect) Contains(x, y int) bool {
	return r.X <= x && x <= r.X+r.W && r.Y <= y && y <= r.Y+r.H
}

// Degenerate reports whether r is too small to host a split (unrealised
// containers report 1x1 or 0x0).
func (r Rect) Degenerate() bool {
	return r.W <= 1 || r.H <= 1
}

// Geometry supplies on-screen bounds for panes.
type Geometry interface {
	Bounds(p *Pane) (Rect, bool)
}

// Allocation maps every node of an arranged tree to its box.
type Allocation map[*Pane]Rect

// Bounds implements Geometry.
func (a Allocation) Bounds(p *Pane) (Rect, bool) {
	r, ok := a[p]
	return r, ok
}

// Arrange lays out the tree under root inside area and returns the box of
// every node. Unset dividers are placed at half the extent; dividers that no
// longer fit are clamped to the split's extent. A degenerate area yields
// boxes but leaves every divider as it was.
func Arrange(root *Pane, area Rect) Allocation {
	out := make(Allocation)
	arrangeNode(root, area, out, !area.Degenerate())
	return out
}

func arrangeNode(node *Pane, r Rect, out Allocation, persist bool) {
	if node == nil {
		return
	}
	out[node] = r
	if node.kind != KindSplit {
		return
	}
	extent := r.Extent(node.orientation)
	offset := node.DividerOffset
	if offset == DividerUnset {
		offset = extent / 2
	}
	offset = min(max(offset, 0), extent)
	if persist {
		node.DividerOffset = offset
	}
	if node.orientation == Horizontal {
		arrangeNode(node.first, Rect{X: r.X, Y: r.Y, W: offset, H: r.H}, out, persist)
		arrangeNode(node.second, Rect{X: r.X + offset, Y: r.Y, W: r.W - offset, H: r.H}, out, persist)
		return
	}
	arrangeNode(node.first, Rect{X: r.X, Y: r.Y, W: r.W, H: offset}, out, persist)
	arrangeNode(node.second, Rect{X: r.X, Y: r.Y + offset, W: r.W, H: r.H - offset}, out, persist)
}
