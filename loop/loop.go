// Package loop serialises work onto the goroutine that owns UI state.
// Background goroutines never touch tabs or panes directly; they Post a
// closure and the owner runs it from its event loop.
package loop

import "sync"

// Queue is an unbounded FIFO of closures.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
	wake  func()
}

// New returns a queue. wake, when set, is called after every Post to
// interrupt a blocking event wait (glfw.PostEmptyEvent).
func New(wake func()) *Queue {
	return &Queue{wake: wake}
}

// Post schedules fn. Safe from any goroutine.
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()
	if q.wake != nil {
		q.wake()
	}
}

// RunPending runs the queued closures on the calling goroutine and returns
// how many ran. Closures posted while running wait for the next call.
func (q *Queue) RunPending() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()
	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

// Len returns the number of queued closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
