package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javanhut/RavenDrop/config"
	"github.com/javanhut/RavenDrop/remote"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		show       bool
	)
	root := &cobra.Command{
		Use:           "ravendrop",
		Short:         "Drop-down terminal with split panes and saved sessions",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, show)
		},
	}
	root.Flags().StringVar(&configPath, "config", config.Path(), "path to config.toml")
	root.Flags().BoolVar(&show, "show", false, "show the window once started")

	root.AddCommand(newRemoteCmd(remote.Toggle, "Show or hide the running instance"))
	root.AddCommand(newRemoteCmd(remote.Show, "Show the running instance"))
	root.AddCommand(newRemoteCmd(remote.Hide, "Hide the running instance"))
	root.AddCommand(newRemoteCmd(remote.Quit, "Save the session and quit the running instance"))
	root.AddCommand(newRemoteCmd(remote.Rename, "Rename the current tab; \"-\" restores the automatic label"))
	root.AddCommand(newRemoteCmd(remote.Select, "Switch to the tab whose label best matches the query"))
	root.AddCommand(newRemoteCmd(remote.Focus, "Move focus to the pane on the left, right, up or down"))
	root.AddCommand(newRemoteCmd(remote.Workspace, "Show the tabs of another workspace"))
	return root
}

var remoteUsage = map[remote.Command]string{
	remote.Rename:    "rename <label>",
	remote.Select:    "select <query>",
	remote.Focus:     "focus <left|right|up|down>",
	remote.Workspace: "workspace <index>",
}

func newRemoteCmd(c remote.Command, short string) *cobra.Command {
	var socket string
	cmd := &cobra.Command{
		Use:   string(c),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := remote.Request{Command: c, Arg: strings.Join(args, " ")}
			if err := remote.Send(cmd.Context(), socket, req); err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			return nil
		},
	}
	if c.TakesArg() {
		cmd.Use = remoteUsage[c]
		cmd.Args = cobra.MinimumNArgs(1)
	}
	if c == remote.Focus {
		cmd.Args = cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs)
		cmd.ValidArgs = []string{"left", "right", "up", "down"}
	}
	cmd.Flags().StringVar(&socket, "socket", remote.SocketPath(), "control socket of the running instance")
	return cmd
}
