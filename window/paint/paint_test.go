package paint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/pane"
)

func TestPlacement(t *testing.T) {
	work := pane.Rect{X: 0, Y: 32, W: 1920, H: 1048}

	top := Placement(work, 100, 50, "top")
	require.Equal(t, pane.Rect{X: 0, Y: 32, W: 1920, H: 524}, top)

	bottom := Placement(work, 50, 25, "bottom")
	require.Equal(t, pane.Rect{X: 480, Y: 32 + 1048 - 262, W: 960, H: 262}, bottom)
}

func TestScissorFlipsY(t *testing.T) {
	x, y, w, h := Scissor(pane.Rect{X: 10, Y: 20, W: 100, H: 50}, 600)
	require.Equal(t, []int32{10, 530, 100, 50}, []int32{x, y, w, h})
}

func TestPlanFramesFocusedPane(t *testing.T) {
	p := config.PaletteByName("raven-blue")
	regions := []Region{
		{Rect: pane.Rect{X: 0, Y: 0, W: 400, H: 294}},
		{Rect: pane.Rect{X: 400, Y: 0, W: 400, H: 294}, Focused: true},
	}
	fills := Plan(p, Frame{Width: 800, Height: 300, Tabs: 2, Current: 1}, regions)

	require.Len(t, fills, 7)
	require.Equal(t, pane.Rect{W: 800, H: 300}, fills[0].Rect)
	require.Equal(t, p.Background, fills[0].Color)
	require.Equal(t, pane.Rect{X: 401, W: 398, H: TabBarHeight - 1}, fills[2].Rect)
	require.Equal(t, p.TabActive, fills[2].Color)

	require.Equal(t, pane.Rect{X: 0, Y: TabBarHeight, W: 400, H: 294}, fills[3].Rect)
	require.Equal(t, p.Divider, fills[3].Color)
	require.Equal(t, pane.Rect{X: 1, Y: TabBarHeight + 1, W: 398, H: 292}, fills[4].Rect)
	require.Equal(t, p.Pane, fills[4].Color)
	require.Equal(t, p.Focused, fills[5].Color)
}

func TestPlanSkipsEmptyInterior(t *testing.T) {
	p := config.PaletteByName("")
	fills := Plan(p, Frame{Width: 10, Height: 10}, []Region{{Rect: pane.Rect{W: 2, H: 2}}})
	require.Len(t, fills, 3)
}

func TestContent(t *testing.T) {
	require.Equal(t, pane.Rect{Y: TabBarHeight, W: 800, H: 600 - TabBarHeight}, Content(800, 600))
	require.Equal(t, 0, Content(800, 2).H)
}

func TestIcons(t *testing.T) {
	icons, err := Icons()
	require.NoError(t, err)
	require.Len(t, icons, len(IconSizes))
	for i, img := range icons {
		require.Equal(t, IconSizes[i], img.Bounds().Dx())
		require.Equal(t, IconSizes[i], img.Bounds().Dy())
	}
	_, _, _, a := icons[len(icons)-1].At(128, 128).RGBA()
	require.NotZero(t, a)
}
