package app

import (
	"log/slog"
	"os/exec"
)

// DesktopNotifier shows session messages with notify-send and falls back to
// the log when it is not installed.
type DesktopNotifier struct {
	Logger *slog.Logger
	path   string
	looked bool
}

// Notify implements session.Notifier.
func (n *DesktopNotifier) Notify(summary, body string) {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !n.looked {
		n.looked = true
		n.path, _ = exec.LookPath("notify-send")
	}
	if n.path == "" {
		logger.Info(body, "summary", summary)
		return
	}
	cmd := exec.Command(n.path, "--app-name=RavenDrop", summary, body)
	if err := cmd.Start(); err != nil {
		logger.Warn("notify-send failed", "err", err)
		logger.Info(body, "summary", summary)
		return
	}
	go func() { _ = cmd.Wait() }()
}
