package shell

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/javanhut/RavenDrop/pane"
)

// Config describes how terminals are started.
type Config struct {
	// Command is the argv of the program to run; empty means the user's
	// login shell.
	Command []string
	// Env is added to the inherited environment.
	Env map[string]string
	// DefaultDir is used when Spawn gets no directory or a missing one.
	DefaultDir string
	Cols       uint16
	Rows       uint16
	// Output receives everything the terminal writes. Defaults to io.Discard.
	Output func(id uuid.UUID) io.Writer
	Logger *slog.Logger
}

// Factory spawns PTY-backed terminals. It implements pane.Factory.
type Factory struct {
	cfg      Config
	teardown teardown
}

// NewFactory returns a factory for cfg.
func NewFactory(cfg Config) *Factory {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Cols == 0 || cfg.Rows == 0 {
		cfg.Cols, cfg.Rows = 80, 24
	}
	if cfg.DefaultDir == "" {
		cfg.DefaultDir = homeDir()
	}
	return &Factory{cfg: cfg, teardown: defaultTeardown(cfg.Logger)}
}

// Spawn starts the configured command on a new PTY in directory.
func (f *Factory) Spawn(directory string) (pane.Terminal, error) {
	argv := f.cfg.Command
	if len(argv) == 0 {
		argv = []string{FindShell()}
	}
	dir := directory
	if dir == "" || !isDir(dir) {
		dir = f.cfg.DefaultDir
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = environ(f.cfg.Env, argv[0])
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: f.cfg.Cols, Rows: f.cfg.Rows})
	if err != nil {
		return nil, fmt.Errorf("shell: start %s: %w", argv[0], err)
	}
	t := &Terminal{
		id:       uuid.New(),
		cmd:      cmd,
		pty:      ptmx,
		startDir: dir,
		exited:   make(chan struct{}),
		teardown: f.teardown,
		logger:   f.cfg.Logger,
	}
	out := io.Discard
	if f.cfg.Output != nil {
		out = f.cfg.Output(t.id)
	}
	go t.drain(out)
	go t.wait()
	t.logger.Debug("terminal started", "terminal", t.id, "pid", cmd.Process.Pid, "dir", dir)
	return t, nil
}

// Terminal is a shell running on a pseudo-terminal.
type Terminal struct {
	id       uuid.UUID
	cmd      *exec.Cmd
	pty      *os.File
	startDir string
	exited   chan struct{}
	teardown teardown
	logger   *slog.Logger

	mu       sync.Mutex
	killOnce sync.Once
}

func (t *Terminal) ID() uuid.UUID { return t.id }

// Pid returns the process id of the shell.
func (t *Terminal) Pid() int { return t.cmd.Process.Pid }

// CurrentDirectory returns the shell's working directory, falling back to
// the directory it was started in when /proc is unavailable.
func (t *Terminal) CurrentDirectory() string {
	if t.Alive() {
		if dir, err := os.Readlink("/proc/" + strconv.Itoa(t.Pid()) + "/cwd"); err == nil {
			return dir
		}
	}
	return t.startDir
}

func (t *Terminal) Alive() bool {
	select {
	case <-t.exited:
		return false
	default:
		return true
	}
}

func (t *Terminal) Exited() <-chan struct{} { return t.exited }

// Kill hangs the shell up and escalates to SIGKILL in the background if it
// does not exit in time. It returns immediately.
func (t *Terminal) Kill() {
	t.killOnce.Do(func() {
		pid := t.Pid()
		go func() {
			if forced := t.teardown.run(pid, t.exited); forced {
				t.logger.Warn("terminal did not exit after SIGHUP, killed", "terminal", t.id, "pid", pid)
			}
		}()
	})
}

// Write sends input to the shell.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pty.Write(p)
}

// Resize changes the PTY window size.
func (t *Terminal) Resize(cols, rows uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return pty.Setsize(t.pty, &pty.Winsize{Cols: cols, Rows: rows})
}

func (t *Terminal) drain(out io.Writer) {
	buf := make([]byte, 32*1024)
	for {
		n, err := t.pty.Read(buf)
		if n > 0 {
			_, _ = out.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, os.ErrClosed) && !errors.Is(err, io.EOF) {
				t.logger.Debug("pty read ended", "terminal", t.id, "err", err)
			}
			return
		}
	}
}

func (t *Terminal) wait() {
	err := t.cmd.Wait()
	_ = t.pty.Close()
	close(t.exited)
	t.logger.Debug("terminal exited", "terminal", t.id, "err", err)
}
