package shell

import (
	"log/slog"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// teardown hangs a process up and waits a bounded time for it to go away
// before killing it.
type teardown struct {
	signal   func(pid int, sig syscall.Signal) error
	sleep    func(time.Duration)
	attempts int
	interval time.Duration
	logger   *slog.Logger
}

func defaultTeardown(logger *slog.Logger) teardown {
	return teardown{
		signal:   unix.Kill,
		sleep:    time.Sleep,
		attempts: 30,
		interval: 100 * time.Millisecond,
		logger:   logger,
	}
}

// run sends SIGHUP to pid and polls exited up to attempts times. It returns
// true when the process had to be killed.
func (td teardown) run(pid int, exited <-chan struct{}) bool {
	if err := td.signal(pid, unix.SIGHUP); err != nil {
		td.logger.Debug("hangup failed", "pid", pid, "err", err)
	}
	for range td.attempts {
		select {
		case <-exited:
			return false
		default:
		}
		td.sleep(td.interval)
	}
	select {
	case <-exited:
		return false
	default:
	}
	if err := td.signal(pid, unix.SIGKILL); err != nil {
		td.logger.Debug("kill failed", "pid", pid, "err", err)
	}
	return true
}
