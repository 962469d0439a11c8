package window

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/javanhut/RavenDrop/pane"
	"github.com/javanhut/RavenDrop/window/paint"
)

func init() {
	// GLFW event handling must run on the main thread
	runtime.LockOSThread()
}

// Config holds window configuration
type Config struct {
	WidthPercent  int
	HeightPercent int
	Position      string
	Title         string
}

// DefaultConfig returns the default window configuration
func DefaultConfig() Config {
	return Config{
		WidthPercent:  100,
		HeightPercent: 50,
		Position:      "top",
		Title:         "RavenDrop",
	}
}

// Window is the undecorated drop-down window. It starts hidden.
type Window struct {
	glfw   *glfw.Window
	config Config
}

// New creates the window and its OpenGL context.
func New(config Config) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Floating, glfw.True)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.FocusOnShow, glfw.True)

	// X11 window class for WM rules (Hyprland, i3, etc.)
	glfw.WindowHintString(glfw.X11ClassName, "ravendrop")
	glfw.WindowHintString(glfw.X11InstanceName, "ravendrop")

	win, err := glfw.CreateWindow(800, 400, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: create: %w", err)
	}
	win.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("window: initialize OpenGL: %w", err)
	}
	glfw.SwapInterval(1)
	gl.Enable(gl.SCISSOR_TEST)

	w := &Window{glfw: win, config: config}
	if icons, err := paint.Icons(); err == nil {
		win.SetIcon(icons)
	}
	return w, nil
}

// SetConfig replaces the geometry settings; they apply on the next Position.
func (w *Window) SetConfig(config Config) {
	w.config = config
}

func (w *Window) Show() { w.glfw.Show() }

func (w *Window) Hide() { w.glfw.Hide() }

// Position sizes the window against the primary monitor's work area and
// moves it to the configured edge.
func (w *Window) Position() {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return
	}
	x, y, width, height := monitor.GetWorkarea()
	r := paint.Placement(pane.Rect{X: x, Y: y, W: width, H: height},
		w.config.WidthPercent, w.config.HeightPercent, w.config.Position)
	w.glfw.SetSize(r.W, r.H)
	w.glfw.SetPos(r.X, r.Y)
}

func (w *Window) Focus() { w.glfw.Focus() }

// SetTitle sets the window title shown by task bars and WM rules.
func (w *Window) SetTitle(title string) { w.glfw.SetTitle(title) }

func (w *Window) HasFocus() bool {
	return w.glfw.GetAttrib(glfw.Focused) == glfw.True
}

// FramebufferSize returns the framebuffer size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.glfw.GetFramebufferSize()
}

// OnFocus registers fn for focus changes.
func (w *Window) OnFocus(fn func(focused bool)) {
	w.glfw.SetFocusCallback(func(_ *glfw.Window, focused bool) { fn(focused) })
}

// OnResize registers fn for framebuffer size changes.
func (w *Window) OnResize(fn func(width, height int)) {
	w.glfw.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) { fn(width, height) })
}

// OnKey registers fn for key presses and repeats.
func (w *Window) OnKey(fn func(key glfw.Key, mods glfw.ModifierKey)) {
	w.glfw.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		fn(key, mods)
	})
}

// OnChar registers fn for text input.
func (w *Window) OnChar(fn func(r rune)) {
	w.glfw.SetCharCallback(func(_ *glfw.Window, r rune) { fn(r) })
}

// ShouldClose returns true if the window should close
func (w *Window) ShouldClose() bool {
	return w.glfw.ShouldClose()
}

// SetShouldClose sets the window close flag
func (w *Window) SetShouldClose(close bool) {
	w.glfw.SetShouldClose(close)
}

// Paint fills the planned rectangles and presents the frame.
func (w *Window) Paint(fills []paint.Fill) {
	width, height := w.glfw.GetFramebufferSize()
	gl.Viewport(0, 0, int32(width), int32(height))
	for _, f := range fills {
		x, y, fw, fh := paint.Scissor(f.Rect, height)
		gl.Scissor(x, y, fw, fh)
		gl.ClearColor(f.Color[0], f.Color[1], f.Color[2], f.Color[3])
		gl.Clear(gl.COLOR_BUFFER_BIT)
	}
	w.glfw.SwapBuffers()
}

// Destroy cleans up window resources
func (w *Window) Destroy() {
	w.glfw.Destroy()
	glfw.Terminate()
}

// Now returns the monotonic GLFW clock as a duration.
func Now() time.Duration {
	return time.Duration(glfw.GetTime() * float64(time.Second))
}

// WaitEvents blocks until an event arrives or Wake is called.
func WaitEvents() {
	glfw.WaitEvents()
}

// Wake interrupts WaitEvents from any goroutine.
func Wake() {
	glfw.PostEmptyEvent()
}
