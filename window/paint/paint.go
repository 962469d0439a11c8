// Package paint turns the visible tab into the flat coloured rectangles the
// window fills, and holds the window icon. It has no GL dependency.
package paint

import (
	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/pane"
)

const (
	// TabBarHeight is the strip above the panes showing one segment per tab.
	TabBarHeight = 6
	// Border is the width of the frame drawn around each pane.
	Border = 1
)

// Fill is a rectangle in top-left window coordinates and its colour.
type Fill struct {
	Rect  pane.Rect
	Color [4]float32
}

// Region is an arranged leaf in content coordinates.
type Region struct {
	Rect    pane.Rect
	Focused bool
}

// Frame describes what surrounds the panes.
type Frame struct {
	Width   int
	Height  int
	Tabs    int
	Current int
}

// Content returns the area panes are arranged in for a window of the given
// size.
func Content(width, height int) pane.Rect {
	return pane.Rect{X: 0, Y: TabBarHeight, W: width, H: max(height-TabBarHeight, 0)}
}

// Plan lists the fills for one frame, back to front.
func Plan(p config.Palette, f Frame, regions []Region) []Fill {
	fills := []Fill{{Rect: pane.Rect{W: f.Width, H: f.Height}, Color: p.Background}}
	fills = append(fills, Fill{Rect: pane.Rect{W: f.Width, H: TabBarHeight}, Color: p.TabBar})
	if f.Tabs > 0 && f.Current >= 0 && f.Current < f.Tabs {
		seg := f.Width / f.Tabs
		r := pane.Rect{X: f.Current*seg + 1, W: max(seg-2, 1), H: TabBarHeight - 1}
		fills = append(fills, Fill{Rect: r, Color: p.TabActive})
	}

	content := Content(f.Width, f.Height)
	for _, reg := range regions {
		r := reg.Rect
		r.X += content.X
		r.Y += content.Y
		frame := p.Divider
		if reg.Focused {
			frame = p.Focused
		}
		fills = append(fills, Fill{Rect: r, Color: frame})
		inner := pane.Rect{X: r.X + Border, Y: r.Y + Border, W: r.W - 2*Border, H: r.H - 2*Border}
		if inner.W > 0 && inner.H > 0 {
			fills = append(fills, Fill{Rect: inner, Color: p.Pane})
		}
	}
	return fills
}

// Scissor converts r to a GL scissor box, whose origin is bottom-left.
func Scissor(r pane.Rect, fbHeight int) (x, y, w, h int32) {
	return int32(r.X), int32(fbHeight - r.Y - r.H), int32(r.W), int32(r.H)
}

// Placement returns the window box inside a monitor work area: widthPct and
// heightPct of it, centred horizontally and flush with the top or bottom edge.
func Placement(work pane.Rect, widthPct, heightPct int, position string) pane.Rect {
	w := work.W * widthPct / 100
	h := work.H * heightPct / 100
	r := pane.Rect{X: work.X + (work.W-w)/2, Y: work.Y, W: w, H: h}
	if position == "bottom" {
		r.Y = work.Y + work.H - h
	}
	return r
}
