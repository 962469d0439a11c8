package keybindings

import (
	"bytes"
	"testing"

	"github.com/javanhut/RavenDrop/navigate"
)

func TestPaneCommands(t *testing.T) {
	cs := ModControl | ModShift
	cases := []struct {
		key  Key
		mods Mod
		want KeyResult
	}{
		{KeyO, cs, KeyResult{Action: ActionSplit, Split: SideBySide}},
		{KeyE, cs, KeyResult{Action: ActionSplit, Split: Stacked}},
		{KeyX, cs, KeyResult{Action: ActionClosePane}},
		{KeyLeft, cs, KeyResult{Action: ActionFocus, Direction: navigate.Left}},
		{KeyDown, cs, KeyResult{Action: ActionFocus, Direction: navigate.Down}},
		{KeyUp, ModControl | ModAlt, KeyResult{Action: ActionMoveDivider, Direction: navigate.Up}},
		{KeyRight, ModControl | ModAlt, KeyResult{Action: ActionMoveDivider, Direction: navigate.Right}},
	}
	for _, tc := range cases {
		got := TranslateKey(tc.key, tc.mods)
		if got.Action != tc.want.Action || got.Split != tc.want.Split || got.Direction != tc.want.Direction {
			t.Fatalf("TranslateKey(%d, %d) = %+v, want %+v", tc.key, tc.mods, got, tc.want)
		}
	}
}

func TestTabCommands(t *testing.T) {
	cases := []struct {
		key  Key
		mods Mod
		want KeyAction
	}{
		{KeyT, ModControl | ModShift, ActionNewTab},
		{KeyW, ModControl | ModShift, ActionCloseTab},
		{KeyTab, ModControl, ActionNextTab},
		{KeyTab, ModControl | ModShift, ActionPrevTab},
		{KeyPageDown, ModControl, ActionNextTab},
		{KeyPageUp, ModControl, ActionPrevTab},
		{KeyPageUp, ModControl | ModShift, ActionMoveTabLeft},
		{KeyPageDown, ModControl | ModShift, ActionMoveTabRight},
		{Key0, ModAlt, ActionSelectLastTab},
		{KeyS, ModControl | ModShift, ActionSaveSession},
		{KeyQ, ModControl | ModShift, ActionQuit},
	}
	for _, tc := range cases {
		if got := TranslateKey(tc.key, tc.mods).Action; got != tc.want {
			t.Fatalf("TranslateKey(%d, %d) = %v, want %v", tc.key, tc.mods, got, tc.want)
		}
	}

	res := TranslateKey(Key1+2, ModAlt)
	if res.Action != ActionSelectTab || res.Index != 2 {
		t.Fatalf("Alt+3 = %+v, want select tab 2", res)
	}
}

func TestInputSequences(t *testing.T) {
	cases := []struct {
		key  Key
		mods Mod
		want []byte
	}{
		{KeyUp, 0, []byte("\x1b[A")},
		{KeyLeft, 0, []byte("\x1b[D")},
		{KeyEnter, 0, []byte{'\r'}},
		{KeyBackspace, 0, []byte{0x7f}},
		{KeyTab, 0, []byte{'\t'}},
		{KeyTab, ModShift, []byte("\x1b[Z")},
		{KeyF1 + 4, 0, []byte("\x1b[15~")},
		{KeyF12, 0, []byte("\x1b[24~")},
		{KeyA + 2, ModControl, []byte{3}},
		{KeySpace, ModControl, []byte{0}},
		{KeyA + 1, ModAlt, []byte{0x1b, 'b'}},
		{KeyA + 1, ModAlt | ModShift, []byte{0x1b, 'B'}},
	}
	for _, tc := range cases {
		got := TranslateKey(tc.key, tc.mods)
		if got.Action != ActionInput || !bytes.Equal(got.Data, tc.want) {
			t.Fatalf("TranslateKey(%d, %d) = %+v, want input %q", tc.key, tc.mods, got, tc.want)
		}
	}
}

func TestPlainSpaceIsLeftToChar(t *testing.T) {
	if got := TranslateKey(KeySpace, 0); got.Action != ActionNone {
		t.Fatalf("expected no action for plain space, got %+v", got)
	}
	if got := TranslateKey(KeyA, 0); got.Action != ActionNone {
		t.Fatalf("expected no action for plain letter, got %+v", got)
	}
}

func TestTranslateChar(t *testing.T) {
	if got := TranslateChar('é', 0); !bytes.Equal(got, []byte("é")) {
		t.Fatalf("TranslateChar(é) = %q", got)
	}
	if got := TranslateChar('x', ModAlt); !bytes.Equal(got, []byte{0x1b, 'x'}) {
		t.Fatalf("TranslateChar(Alt+x) = %q", got)
	}
}
