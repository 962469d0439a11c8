package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/javanhut/RavenDrop/app"
	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/keybindings"
	"github.com/javanhut/RavenDrop/logging"
	"github.com/javanhut/RavenDrop/loop"
	"github.com/javanhut/RavenDrop/remote"
	"github.com/javanhut/RavenDrop/shell"
	"github.com/javanhut/RavenDrop/window"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ravendrop:", err)
		os.Exit(1)
	}
}

func windowConfig(cfg *config.Config) window.Config {
	wc := window.DefaultConfig()
	wc.WidthPercent = cfg.Window.WidthPercent
	wc.HeightPercent = cfg.Window.HeightPercent
	wc.Position = cfg.Window.Position
	return wc
}

// run starts the drop-down terminal and blocks until it quits.
func run(ctx context.Context, configPath string, startVisible bool) error {
	cfg, cfgErr := config.LoadFrom(configPath)
	closeLog, err := logging.Init(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.Default()
	if cfgErr != nil {
		logger.Warn("configuration problem", "path", configPath, "err", cfgErr)
	}

	socket := remote.SocketPath()
	// A running instance takes the show and this process is done.
	if err := remote.Send(ctx, socket, remote.Request{Command: remote.Show}); err == nil {
		logger.Info("instance already running", "socket", socket)
		return nil
	}

	win, err := window.New(windowConfig(cfg))
	if err != nil {
		return err
	}
	defer win.Destroy()

	// Cancelled before the window goes away so nothing wakes a dead GLFW.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	queue := loop.New(window.Wake)

	argv, err := shell.ParseCommand(cfg.Shell.Command)
	if err != nil {
		logger.Warn("ignoring shell command", "err", err)
		argv = nil
	}
	factory := shell.NewFactory(shell.Config{
		Command: argv,
		Env:     cfg.Shell.Env,
		Logger:  logger,
	})

	a := app.New(app.Options{
		Config:   cfg,
		Host:     win,
		Factory:  factory,
		Queue:    queue,
		Notifier: &app.DesktopNotifier{Logger: logger},
		Now:      window.Now,
		Reconfigure: func(c *config.Config) {
			win.SetConfig(windowConfig(c))
			win.Position()
		},
		Logger: logger,
	})

	srv, err := remote.Listen(socket, a.Remote(), logger)
	if errors.Is(err, remote.ErrRunning) {
		logger.Info("lost the race for the socket, handing over", "socket", socket)
		return remote.Send(ctx, socket, remote.Request{Command: remote.Show})
	}
	if err != nil {
		return err
	}
	defer srv.Close()

	var mods keybindings.Mod
	win.OnFocus(a.FocusChanged)
	win.OnResize(a.Resized)
	win.OnKey(func(key glfw.Key, m glfw.ModifierKey) {
		mods = keybindings.Mod(m)
		a.HandleKey(keybindings.Key(key), mods)
	})
	win.OnChar(func(r rune) { a.HandleChar(r, mods) })

	err = config.Watch(ctx, configPath, func(c *config.Config, err error) {
		if err != nil && !errors.Is(err, config.ErrUnknownKeys) {
			logger.Warn("configuration reload rejected", "err", err)
			return
		}
		if err != nil {
			logger.Warn("configuration problem", "err", err)
		}
		queue.Post(func() { a.ApplyConfig(c) })
	})
	if err != nil {
		logger.Warn("configuration will not reload", "err", err)
	}

	go func() {
		<-ctx.Done()
		queue.Post(a.Quit)
	}()

	a.Start()
	if startVisible {
		a.Toggle()
	}
	logger.Info("ravendrop started", "socket", socket, "config", configPath)

	for !a.Quitting() {
		a.Render()
		window.WaitEvents()
		queue.RunPending()
		if win.ShouldClose() {
			a.Quit()
		}
	}
	logger.Info("ravendrop stopped")
	return nil
}
