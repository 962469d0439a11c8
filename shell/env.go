// Package shell starts the terminals hosted by panes: a login shell on a
// pseudo-terminal, torn down with SIGHUP and, if it lingers, SIGKILL.
package shell

import (
	"fmt"
	"maps"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"
)

var fallbackShells = []string{"/bin/bash", "/usr/bin/bash", "/bin/zsh", "/usr/bin/zsh", "/bin/sh"}

// FindShell returns the current user's login shell from the passwd
// database, or the first common shell that exists.
func FindShell() string {
	if u, err := user.Current(); err == nil {
		if sh := passwdShell("/etc/passwd", u.Username); sh != "" && exists(sh) {
			return sh
		}
	}
	for _, sh := range fallbackShells {
		if exists(sh) {
			return sh
		}
	}
	return "/bin/sh"
}

// passwdShell reads the shell field of username from a passwd file.
func passwdShell(path, username string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) >= 7 && fields[0] == username {
			return fields[6]
		}
	}
	return ""
}

// ParseCommand splits a command line the way a POSIX shell would.
func ParseCommand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	argv, err := shellquote.Split(line)
	if err != nil {
		return nil, fmt.Errorf("shell: parse %q: %w", line, err)
	}
	return argv, nil
}

// RunDetached starts line in its own session without waiting for it.
func RunDetached(line string) error {
	argv, err := ParseCommand(line)
	if err != nil || len(argv) == 0 {
		return err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("shell: run %s: %w", argv[0], err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// environ returns the inherited environment with the terminal variables
// and extra applied on top.
func environ(extra map[string]string, shell string) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	env["TERM"] = "xterm-256color"
	env["COLORTERM"] = "truecolor"
	env["RAVENDROP"] = "1"
	if filepath.IsAbs(shell) {
		env["SHELL"] = shell
	}
	maps.Copy(env, extra)

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out
}

func homeDir() string {
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		return u.HomeDir
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "/"
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
