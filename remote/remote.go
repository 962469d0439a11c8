// Package remote lets other processes drive a running instance over a unix
// socket: a global hotkey bound to `ravendrop toggle` ends up here.
//
// The protocol is one command line per connection, answered with "ok" or
// "error: <reason>". A line is a command name, optionally followed by a
// space and its argument.
package remote

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/javanhut/RavenDrop/config"
)

// Command is a request from another process.
type Command string

const (
	Toggle    Command = "toggle"
	Show      Command = "show"
	Hide      Command = "hide"
	Quit      Command = "quit"
	Rename    Command = "rename"
	Select    Command = "select"
	Focus     Command = "focus"
	Workspace Command = "workspace"
)

// TakesArg reports whether c requires an argument.
func (c Command) TakesArg() bool {
	switch c {
	case Rename, Select, Focus, Workspace:
		return true
	}
	return false
}

// Request is a command with its argument.
type Request struct {
	Command Command
	Arg     string
}

func (r Request) String() string {
	if r.Arg == "" {
		return string(r.Command)
	}
	return string(r.Command) + " " + r.Arg
}

var (
	// ErrRunning is returned by Listen when another instance owns the socket.
	ErrRunning = errors.New("remote: another instance is running")
	// ErrNotRunning is returned by Send when nothing listens on the socket.
	ErrNotRunning = errors.New("remote: no running instance")
)

const ioTimeout = 2 * time.Second

// ParseCommand validates a command name.
func ParseCommand(s string) (Command, error) {
	switch c := Command(strings.ToLower(strings.TrimSpace(s))); c {
	case Toggle, Show, Hide, Quit, Rename, Select, Focus, Workspace:
		return c, nil
	default:
		return "", fmt.Errorf("remote: unknown command %q", s)
	}
}

// ParseRequest parses one protocol line.
func ParseRequest(line string) (Request, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	cmd, err := ParseCommand(name)
	if err != nil {
		return Request{}, err
	}
	arg = strings.TrimSpace(arg)
	switch {
	case cmd.TakesArg() && arg == "":
		return Request{}, fmt.Errorf("remote: %s needs an argument", cmd)
	case !cmd.TakesArg() && arg != "":
		return Request{}, fmt.Errorf("remote: %s takes no argument", cmd)
	}
	return Request{Command: cmd, Arg: arg}, nil
}

// SocketPath returns the per-user socket path.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "ravendrop.sock")
	}
	return filepath.Join(config.Dir(), "ravendrop.sock")
}

// Server accepts commands and hands them to a handler. The handler runs on
// the connection's goroutine; it should only post work to the event loop.
type Server struct {
	path     string
	handler  func(Request) error
	logger   *slog.Logger
	listener net.Listener
	wg       sync.WaitGroup
	closing  chan struct{}
	once     sync.Once
}

// Listen binds path, replacing a stale socket left by a dead instance.
func Listen(path string, handler func(Request) error, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("remote: create socket dir: %w", err)
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("remote: listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("remote: chmod socket: %w", err)
	}
	s := &Server{path: path, handler: handler, logger: logger, listener: l, closing: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	logger.Debug("remote listening", "socket", path)
	return s, nil
}

func removeStale(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remote: stat socket: %w", err)
	}
	conn, err := net.DialTimeout("unix", path, ioTimeout)
	if err == nil {
		_ = conn.Close()
		return ErrRunning
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remote: remove stale socket: %w", err)
	}
	return nil
}

// Close stops accepting, waits for in-flight connections and removes the
// socket file.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closing)
		err = s.listener.Close()
		s.wg.Wait()
		_ = os.Remove(s.path)
	})
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
			}
			delay = acceptBackoff(delay)
			s.logger.Debug("remote accept failed", "err", err, "retry", delay)
			select {
			case <-s.closing:
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// acceptBackoff doubles the wait after a failed Accept, from 5ms up to 1s.
func acceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	return min(prev*2, time.Second)
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return
	}
	reply := "ok"
	req, err := ParseRequest(line)
	if err == nil {
		err = s.handler(req)
	}
	if err != nil {
		reply = "error: " + err.Error()
	}
	s.logger.Debug("remote command", "command", strings.TrimSpace(line), "err", err)
	_, _ = fmt.Fprintln(conn, reply)
}

// Send delivers req to the instance listening on path.
func Send(ctx context.Context, path string, req Request) error {
	if strings.ContainsAny(req.Arg, "\r\n") {
		return fmt.Errorf("remote: %s: argument spans lines", req.Command)
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()
	deadline := time.Now().Add(ioTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	if _, err := fmt.Fprintln(conn, req.String()); err != nil {
		return fmt.Errorf("remote: send %s: %w", req.Command, err)
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && reply == "" {
		return fmt.Errorf("remote: read reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply != "ok" {
		return fmt.Errorf("remote: %s: %s", req.Command, strings.TrimPrefix(reply, "error: "))
	}
	return nil
}
