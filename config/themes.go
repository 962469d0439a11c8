package config

import "strings"

// ThemeOption describes an available window theme.
type ThemeOption struct {
	Name  string
	Label string
}

// ThemeOptions lists the available themes.
func ThemeOptions() []ThemeOption {
	return []ThemeOption{
		{Name: "raven-blue", Label: "Raven Blue"},
		{Name: "crow-black", Label: "Crow Black"},
		{Name: "magpie-black-white-grey", Label: "Magpie Black/White/Grey"},
		{Name: "catppuccin-mocha", Label: "Catppuccin Mocha"},
	}
}

// Palette holds the colours the window paints panes with, as RGBA.
type Palette struct {
	Background [4]float32
	Pane       [4]float32
	Divider    [4]float32
	Focused    [4]float32
	TabBar     [4]float32
	TabActive  [4]float32
}

// PaletteByName returns the palette of a theme; unknown names get the default.
func PaletteByName(name string) Palette {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crow-black":
		return Palette{
			Background: [4]float32{0.000, 0.000, 0.000, 1.0}, // #000000
			Pane:       [4]float32{0.020, 0.020, 0.020, 1.0}, // #050505
			Divider:    [4]float32{0.200, 0.200, 0.200, 1.0}, // #333333
			Focused:    [4]float32{0.702, 0.702, 0.702, 1.0}, // #b3b3b3
			TabBar:     [4]float32{0.000, 0.000, 0.000, 1.0},
			TabActive:  [4]float32{0.702, 0.702, 0.702, 1.0},
		}
	case "magpie-black-white-grey", "magpie-black-and-white-grey":
		return Palette{
			Background: [4]float32{0.039, 0.039, 0.039, 1.0}, // #0a0a0a
			Pane:       [4]float32{0.067, 0.067, 0.067, 1.0}, // #111111
			Divider:    [4]float32{0.400, 0.400, 0.400, 1.0}, // #666666
			Focused:    [4]float32{0.961, 0.961, 0.961, 1.0}, // #f5f5f5
			TabBar:     [4]float32{0.039, 0.039, 0.039, 1.0},
			TabActive:  [4]float32{0.816, 0.816, 0.816, 1.0}, // #d0d0d0
		}
	case "catppuccin-mocha", "catppuccin", "catpuccin":
		return Palette{
			Background: [4]float32{0.094, 0.094, 0.145, 1.0}, // #181825
			Pane:       [4]float32{0.118, 0.118, 0.180, 1.0}, // #1e1e2e
			Divider:    [4]float32{0.271, 0.278, 0.353, 1.0}, // #45475a
			Focused:    [4]float32{0.537, 0.706, 0.980, 1.0}, // #89b4fa
			TabBar:     [4]float32{0.094, 0.094, 0.145, 1.0},
			TabActive:  [4]float32{0.537, 0.706, 0.980, 1.0},
		}
	default:
		return Palette{
			Background: [4]float32{0.039, 0.047, 0.078, 1.0}, // #0a0c14
			Pane:       [4]float32{0.051, 0.063, 0.102, 1.0}, // #0d101a
			Divider:    [4]float32{0.169, 0.204, 0.290, 1.0}, // #2b344a
			Focused:    [4]float32{0.455, 0.714, 1.0, 1.0},   // #74b6ff
			TabBar:     [4]float32{0.039, 0.047, 0.078, 1.0},
			TabActive:  [4]float32{0.455, 0.714, 1.0, 1.0},
		}
	}
}
