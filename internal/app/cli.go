package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

var Version = "dev"

func Execute(args []string, out io.Writer, errOut io.Writer) int {
	return App{Out: out, Err: errOut}.Execute(args)
}

func (a App) Execute(args []string) int {
	flags := GlobalFlags{}
	var showVersion bool

	root := &cobra.Command{
		Use:           "pageshot",
		Short:         "Screenshot localhost pages after scripted interactions",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(a.Out)
	root.SetErr(a.Err)

	root.PersistentFlags().BoolVarP(&showVersion, "version", "V", false, "version")
	root.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "C", "", "config file")
	root.PersistentFlags().StringVarP(&flags.Engine, "engine", "e", "", "browser engine (playwright, rod)")
	root.PersistentFlags().StringVarP(&flags.Browser, "browser", "b", "", "browser type")
	root.PersistentFlags().StringVarP(&flags.Channel, "channel", "c", "", "browser channel")
	root.PersistentFlags().BoolVarP(&flags.Headless, "headless", "H", false, "run headless")
	root.PersistentFlags().BoolVarP(&flags.Headed, "headed", "E", false, "run headed")
	root.PersistentFlags().StringVarP(&flags.LogLevel, "log-level", "l", "", "log level")
	root.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "json output")
	root.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "quiet output")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if showVersion {
			fmt.Fprintln(a.Out, Version)
			return exitError{code: exitSuccess}
		}
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install Playwright driver and browsers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exitOrNil(a.runInstall(flags))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check install and environment health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, code := a.prepare(flags)
			if code != exitSuccess {
				return exitError{code: code}
			}
			return exitOrNil(a.runDoctor(cfg, flags))
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the screenshot MCP server (stdio, or HTTP with --http)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, code := a.prepare(flags)
			if code != exitSuccess {
				return exitError{code: code}
			}
			return exitOrNil(a.runServe(cmd.Context(), cfg))
		},
	}
	serveCmd.Flags().StringVar(&flags.HTTPAddr, "http", "", "serve MCP over HTTP on this address instead of stdio")
	root.AddCommand(serveCmd)

	var shot shotFlags
	shotCmd := &cobra.Command{
		Use:   "shot URL",
		Short: "Take one screenshot and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, code := a.prepare(flags)
			if code != exitSuccess {
				return exitError{code: code}
			}
			return exitOrNil(a.runShot(cmd.Context(), cfg, flags, args[0], shot))
		},
	}
	shotCmd.Flags().StringVarP(&shot.Output, "output", "o", "screenshot.png", "output file, - for stdout")
	shotCmd.Flags().IntVar(&shot.Width, "width", 0, "viewport width (default 1280)")
	shotCmd.Flags().IntVar(&shot.Height, "height", 0, "viewport height (default 720)")
	shotCmd.Flags().BoolVarP(&shot.FullPage, "full-page", "F", false, "full page")
	shotCmd.Flags().StringArrayVarP(&shot.Actions, "action", "a", nil, `action as JSON, e.g. '{"type":"click","selector":"#go"}' (repeatable)`)
	shotCmd.Flags().StringVar(&shot.ActionsFile, "actions-file", "", "JSON file holding an array of actions")
	root.AddCommand(shotCmd)

	// Cancelled on SIGINT/SIGTERM; serve and shot stop the browser before
	// returning.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(a.Err, err)
		return exitUsage
	}
	return exitSuccess
}

func exitOrNil(code int) error {
	if code == exitSuccess {
		return nil
	}
	return exitError{code: code}
}
