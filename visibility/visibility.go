// Package visibility decides when the drop-down window is shown and hidden.
//
// The controller lives on the event loop. Hotkey toggles carry the event
// timestamp of the key press; focus changes are stamped with the
// controller's clock. Both must come from the same monotonic time base.
package visibility

import (
	"log/slog"
	"time"

	"github.com/javanhut/RavenDrop/pane"
)

// Mode is the visibility state of the window.
type Mode int

const (
	Hidden Mode = iota
	Visible
)

func (m Mode) String() string {
	if m == Visible {
		return "visible"
	}
	return "hidden"
}

// Window is the part of the host window the controller drives.
type Window interface {
	Show()
	Hide()
	// Position places the window on the configured monitor edge.
	Position()
	Focus()
	HasFocus() bool
}

// Scheduler runs fn on the event loop once d has elapsed. The returned stop
// function cancels the call if it has not started.
type Scheduler func(d time.Duration, fn func()) (stop func() bool)

// LoopScheduler returns a Scheduler that waits on a timer goroutine and
// hands fn to d.
func LoopScheduler(d pane.Dispatcher) Scheduler {
	return func(delay time.Duration, fn func()) func() bool {
		t := time.AfterFunc(delay, func() { d.Post(fn) })
		return t.Stop
	}
}

// Behavior holds the user-tunable policy.
type Behavior struct {
	// HideOnLoseFocus hides the window when it loses focus.
	HideOnLoseFocus bool
	// LazyLoseFocus waits LazyDelay before hiding on focus loss and skips
	// the hide when focus came back meanwhile.
	LazyLoseFocus bool
	LazyDelay     time.Duration
	// Refocus makes a toggle on a visible, unfocused window focus it
	// instead of hiding it.
	Refocus bool
	// Debounce is the minimum spacing between two effective toggles.
	Debounce time.Duration
	// EchoWindow absorbs a toggle arriving just before a recorded
	// lose-focus, which is the same key press seen twice.
	EchoWindow time.Duration
}

// DefaultBehavior returns the stock policy.
func DefaultBehavior() Behavior {
	return Behavior{
		HideOnLoseFocus: false,
		LazyLoseFocus:   false,
		LazyDelay:       300 * time.Millisecond,
		Debounce:        65 * time.Millisecond,
		EchoWindow:      10 * time.Millisecond,
	}
}

// Hooks are the effects of a transition.
type Hooks struct {
	// EnsureTab opens a tab when the current workspace has none.
	EnsureTab func()
	// FlushRestores retries deferred layout restores.
	FlushRestores func()
	// Shown runs the user's show hook.
	Shown  func()
	Hidden func()
}

// Options configures a Controller.
type Options struct {
	Window   Window
	Schedule Scheduler
	// Now returns the current time on the same base as toggle timestamps.
	Now      func() time.Duration
	Behavior Behavior
	Hooks    Hooks
	Logger   *slog.Logger
}

// Controller is the visibility state machine.
type Controller struct {
	window   Window
	schedule Scheduler
	now      func() time.Duration
	behavior Behavior
	hooks    Hooks
	logger   *slog.Logger

	mode       Mode
	lastToggle time.Duration
	toggled    bool
	// zero means no lose-focus is pending
	loseFocusAt     time.Duration
	lazyLoseFocusAt time.Duration
	takeFocusAt     time.Duration
	lazyStop        func() bool
	vetoes          int
	forceHide       bool
}

// New returns a controller in the Hidden state.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		start := time.Now()
		opts.Now = func() time.Duration { return time.Since(start) }
	}
	return &Controller{
		window:   opts.Window,
		schedule: opts.Schedule,
		now:      opts.Now,
		behavior: opts.Behavior,
		hooks:    opts.Hooks,
		logger:   opts.Logger,
		mode:     Hidden,
	}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode { return c.mode }

// Visible reports whether the window is shown.
func (c *Controller) Visible() bool { return c.mode == Visible }

// Behavior returns the active policy.
func (c *Controller) Behavior() Behavior { return c.behavior }

// SetBehavior replaces the policy, for configuration reloads.
func (c *Controller) SetBehavior(b Behavior) { c.behavior = b }

// Veto forbids hiding until the returned release function is called. Vetoes
// nest; releasing twice is harmless.
func (c *Controller) Veto() (release func()) {
	c.vetoes++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		c.vetoes--
	}
}

// MayHide reports whether no veto is active.
func (c *Controller) MayHide() bool { return c.vetoes == 0 }

// Show displays the window. It is never vetoed.
func (c *Controller) Show() {
	call(c.hooks.EnsureTab)
	c.window.Position()
	c.window.Show()
	c.mode = Visible
	c.logger.Debug("window shown")
	call(c.hooks.FlushRestores)
	call(c.hooks.Shown)
}

// Hide hides the window unless a veto is active and reports whether it did.
func (c *Controller) Hide() bool {
	if !c.MayHide() {
		c.logger.Debug("hide vetoed", "vetoes", c.vetoes)
		return false
	}
	c.window.Hide()
	c.mode = Hidden
	c.logger.Debug("window hidden")
	call(c.hooks.Hidden)
	return true
}

// Toggle handles the show/hide hotkey pressed at event time t.
func (c *Controller) Toggle(t time.Duration) {
	if c.forceHide {
		c.forceHide = false
		return
	}
	if !c.MayHide() {
		return
	}
	if !c.prepare(t) {
		return
	}
	if c.mode == Hidden {
		c.Show()
		c.window.Focus()
		return
	}
	if c.behavior.Refocus && !c.window.HasFocus() {
		c.logger.Debug("refocusing window")
		c.window.Focus()
		return
	}
	c.Hide()
}

// prepare filters toggles that must not flip the state: focus restores,
// lose-focus echoes and repeats inside the debounce interval.
func (c *Controller) prepare(t time.Duration) bool {
	b := c.behavior
	switch {
	case !b.Refocus && c.mode == Visible:
	case !b.HideOnLoseFocus && c.loseFocusAt != 0 && c.loseFocusAt < t &&
		c.mode == Visible && !c.window.HasFocus():
		c.logger.Debug("restoring focus")
		c.window.Focus()
		c.loseFocusAt = 0
		return false
	case b.HideOnLoseFocus && c.loseFocusAt != 0 && c.loseFocusAt >= t &&
		c.loseFocusAt-t < b.EchoWindow:
		c.loseFocusAt = 0
		return false
	}
	if c.toggled && t-c.lastToggle < b.Debounce {
		return false
	}
	c.lastToggle = t
	c.toggled = true
	return true
}

// FocusOut handles the window losing focus.
func (c *Controller) FocusOut() {
	if !c.MayHide() {
		return
	}
	if !c.behavior.LazyLoseFocus || c.schedule == nil {
		c.loseFocus()
		return
	}
	c.lazyLoseFocusAt = c.now()
	if c.lazyStop != nil {
		c.lazyStop()
	}
	c.lazyStop = c.schedule(c.behavior.LazyDelay, c.lazyCheck)
	c.logger.Debug("lazy lose-focus armed", "at", c.lazyLoseFocusAt)
}

// TakeFocus records the window gaining focus.
func (c *Controller) TakeFocus() {
	c.takeFocusAt = c.now()
}

func (c *Controller) lazyCheck() {
	c.lazyStop = nil
	if c.window.HasFocus() && c.takeFocusAt > c.lazyLoseFocusAt {
		c.logger.Debug("short lose-focus absorbed")
		return
	}
	if c.mode == Visible {
		c.loseFocus()
	}
}

func (c *Controller) loseFocus() {
	c.loseFocusAt = c.now()
	if c.mode == Visible && c.behavior.HideOnLoseFocus {
		c.Hide()
	}
}

// ShowFromRemote shows the window on request of another process. The
// toggle that follows is ignored.
func (c *Controller) ShowFromRemote() {
	c.logger.Debug("show from remote")
	c.forceHide = true
	c.Show()
}

// HideFromRemote hides the window on request of another process. The
// toggle that follows is ignored.
func (c *Controller) HideFromRemote() {
	c.logger.Debug("hide from remote")
	c.forceHide = true
	c.Hide()
}

// Close cancels a pending lazy lose-focus check.
func (c *Controller) Close() {
	if c.lazyStop != nil {
		c.lazyStop()
		c.lazyStop = nil
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
