package paint

import (
	_ "embed"
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
)

//go:embed icon.svg
var iconSVG string

// IconSizes are the sizes handed to the window manager.
var IconSizes = []int{16, 32, 48, 64, 128, 256}

// Icons rasterises the embedded icon once at the largest size and scales it
// down for the others.
func Icons() ([]image.Image, error) {
	largest := IconSizes[len(IconSizes)-1]
	master, err := renderSVG(iconSVG, largest)
	if err != nil {
		return nil, err
	}
	icons := make([]image.Image, 0, len(IconSizes))
	for _, size := range IconSizes {
		if size == largest {
			icons = append(icons, master)
			continue
		}
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		draw.CatmullRom.Scale(dst, dst.Bounds(), master, master.Bounds(), draw.Src, nil)
		icons = append(icons, dst)
	}
	return icons, nil
}

func renderSVG(svg string, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("paint: icon: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return rgba, nil
}
