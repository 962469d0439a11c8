package session

import (
	"log/slog"

	"github.com/javanhut/RavenDrop/pane"
)

// Autosaver writes the session after tab and pane changes when enabled.
// Changes announced during one event loop pass are written once.
type Autosaver struct {
	save       func() error
	dispatcher pane.Dispatcher
	logger     *slog.Logger

	enabled   bool
	suspended int
	pending   bool
}

// NewAutosaver returns a disabled autosaver calling save. With a nil
// dispatcher every change is saved immediately.
func NewAutosaver(save func() error, d pane.Dispatcher, logger *slog.Logger) *Autosaver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Autosaver{save: save, dispatcher: d, logger: logger}
}

// SetEnabled turns autosaving on or off.
func (a *Autosaver) SetEnabled(on bool) { a.enabled = on }

// Enabled reports whether changes are saved.
func (a *Autosaver) Enabled() bool { return a.enabled }

// Suspend stops saving until resume is called. Calls nest.
func (a *Autosaver) Suspend() (resume func()) {
	a.suspended++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		a.suspended--
	}
}

// Changed records a mutation described by reason.
func (a *Autosaver) Changed(reason string) {
	if !a.active() {
		return
	}
	a.logger.Debug("session change", "reason", reason)
	if a.dispatcher == nil {
		a.flush()
		return
	}
	if a.pending {
		return
	}
	a.pending = true
	a.dispatcher.Post(a.flush)
}

func (a *Autosaver) active() bool { return a.enabled && a.suspended == 0 }

func (a *Autosaver) flush() {
	a.pending = false
	if !a.active() {
		return
	}
	if err := a.save(); err != nil {
		a.logger.Warn("autosave failed", "err", err)
	}
}
