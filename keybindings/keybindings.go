// Package keybindings maps key presses inside the window to pane and tab
// actions or to bytes for the focused terminal.
package keybindings

import (
	"unicode/utf8"

	"github.com/javanhut/RavenDrop/navigate"
)

// Key is a key code. Values follow GLFW's numbering so the window can
// convert with Key(glfwKey).
type Key int

const (
	KeySpace     Key = 32
	Key0         Key = 48
	Key1         Key = 49
	Key9         Key = 57
	KeyA         Key = 65
	KeyE         Key = 69
	KeyO         Key = 79
	KeyQ         Key = 81
	KeyS         Key = 83
	KeyT         Key = 84
	KeyW         Key = 87
	KeyX         Key = 88
	KeyZ         Key = 90
	KeyEscape    Key = 256
	KeyEnter     Key = 257
	KeyTab       Key = 258
	KeyBackspace Key = 259
	KeyInsert    Key = 260
	KeyDelete    Key = 261
	KeyRight     Key = 262
	KeyLeft      Key = 263
	KeyDown      Key = 264
	KeyUp        Key = 265
	KeyPageUp    Key = 266
	KeyPageDown  Key = 267
	KeyHome      Key = 268
	KeyEnd       Key = 269
	KeyF1        Key = 290
	KeyF12       Key = 301
	KeyKPEnter   Key = 335
)

// Mod is a modifier bit set, numbered like GLFW's.
type Mod int

const (
	ModShift   Mod = 1
	ModControl Mod = 2
	ModAlt     Mod = 4
	ModSuper   Mod = 8
)

// KeyAction represents the action to take for a key press
type KeyAction int

const (
	ActionNone KeyAction = iota
	ActionQuit
	ActionInput
	ActionNewTab
	ActionCloseTab
	ActionClosePane
	ActionNextTab
	ActionPrevTab
	ActionMoveTabLeft
	ActionMoveTabRight
	ActionSelectTab
	ActionSelectLastTab
	ActionSplit
	ActionFocus
	ActionMoveDivider
	ActionSaveSession
)

// KeyResult contains the result of processing a key
type KeyResult struct {
	Action KeyAction
	Data   []byte
	// Split is set for ActionSplit.
	Split Orientation
	// Direction is set for ActionFocus and ActionMoveDivider.
	Direction navigate.Direction
	// Index is set for ActionSelectTab.
	Index int
}

// Orientation names the split a key asks for.
type Orientation int

const (
	SideBySide Orientation = iota
	Stacked
)

var directions = map[Key]navigate.Direction{
	KeyLeft:  navigate.Left,
	KeyRight: navigate.Right,
	KeyUp:    navigate.Up,
	KeyDown:  navigate.Down,
}

var fKeySeqs = map[Key]string{
	KeyF1:      "\x1bOP",
	KeyF1 + 1:  "\x1bOQ",
	KeyF1 + 2:  "\x1bOR",
	KeyF1 + 3:  "\x1bOS",
	KeyF1 + 4:  "\x1b[15~",
	KeyF1 + 5:  "\x1b[17~",
	KeyF1 + 6:  "\x1b[18~",
	KeyF1 + 7:  "\x1b[19~",
	KeyF1 + 8:  "\x1b[20~",
	KeyF1 + 9:  "\x1b[21~",
	KeyF1 + 10: "\x1b[23~",
	KeyF12:     "\x1b[24~",
}

var plainSeqs = map[Key]string{
	KeyUp:        "\x1b[A",
	KeyDown:      "\x1b[B",
	KeyRight:     "\x1b[C",
	KeyLeft:      "\x1b[D",
	KeyHome:      "\x1b[H",
	KeyEnd:       "\x1b[F",
	KeyPageUp:    "\x1b[5~",
	KeyPageDown:  "\x1b[6~",
	KeyInsert:    "\x1b[2~",
	KeyDelete:    "\x1b[3~",
	KeyBackspace: "\x7f",
	KeyEnter:     "\r",
	KeyKPEnter:   "\r",
	KeyEscape:    "\x1b",
}

// TranslateKey translates a key press to an action or terminal input
func TranslateKey(key Key, mods Mod) KeyResult {
	ctrl := mods&ModControl != 0
	shift := mods&ModShift != 0
	alt := mods&ModAlt != 0

	if res, ok := command(key, ctrl, shift, alt); ok {
		return res
	}

	if key == KeyTab {
		if shift {
			return input("\x1b[Z")
		}
		return input("\t")
	}
	if seq, ok := plainSeqs[key]; ok {
		return input(seq)
	}
	if seq, ok := fKeySeqs[key]; ok {
		return input(seq)
	}

	// Control + letter combinations
	if ctrl && key >= KeyA && key <= KeyZ {
		// Ctrl+A = 1, Ctrl+B = 2, etc.
		return KeyResult{Action: ActionInput, Data: []byte{byte(key - KeyA + 1)}}
	}

	// Only Ctrl+Space here; plain space arrives through the char callback
	if key == KeySpace {
		if ctrl {
			return KeyResult{Action: ActionInput, Data: []byte{0}}
		}
		return KeyResult{Action: ActionNone}
	}

	// Alt + key sends ESC prefix
	if alt && key >= KeyA && key <= KeyZ {
		c := byte(key - KeyA + 'a')
		if shift {
			c = byte(key - KeyA + 'A')
		}
		return KeyResult{Action: ActionInput, Data: []byte{0x1b, c}}
	}

	return KeyResult{Action: ActionNone}
}

func command(key Key, ctrl, shift, alt bool) (KeyResult, bool) {
	switch {
	case ctrl && shift && !alt:
		switch key {
		case KeyQ:
			return KeyResult{Action: ActionQuit}, true
		case KeyT:
			return KeyResult{Action: ActionNewTab}, true
		case KeyW:
			return KeyResult{Action: ActionCloseTab}, true
		case KeyX:
			return KeyResult{Action: ActionClosePane}, true
		case KeyS:
			return KeyResult{Action: ActionSaveSession}, true
		case KeyO:
			return KeyResult{Action: ActionSplit, Split: SideBySide}, true
		case KeyE:
			return KeyResult{Action: ActionSplit, Split: Stacked}, true
		case KeyTab:
			return KeyResult{Action: ActionPrevTab}, true
		case KeyPageUp:
			return KeyResult{Action: ActionMoveTabLeft}, true
		case KeyPageDown:
			return KeyResult{Action: ActionMoveTabRight}, true
		}
		if d, ok := directions[key]; ok {
			return KeyResult{Action: ActionFocus, Direction: d}, true
		}
	case ctrl && alt && !shift:
		if d, ok := directions[key]; ok {
			return KeyResult{Action: ActionMoveDivider, Direction: d}, true
		}
	case ctrl && !alt:
		switch key {
		case KeyTab, KeyPageDown:
			return KeyResult{Action: ActionNextTab}, true
		case KeyPageUp:
			return KeyResult{Action: ActionPrevTab}, true
		}
	case alt && !ctrl && !shift:
		if key >= Key1 && key <= Key9 {
			return KeyResult{Action: ActionSelectTab, Index: int(key - Key1)}, true
		}
		if key == Key0 {
			return KeyResult{Action: ActionSelectLastTab}, true
		}
	}
	return KeyResult{}, false
}

func input(seq string) KeyResult {
	return KeyResult{Action: ActionInput, Data: []byte(seq)}
}

// TranslateChar translates a character input to terminal bytes
func TranslateChar(char rune, mods Mod) []byte {
	if mods&ModAlt != 0 && char < utf8.RuneSelf {
		// Alt sends ESC prefix
		return []byte{0x1b, byte(char)}
	}
	return utf8.AppendRune(nil, char)
}
