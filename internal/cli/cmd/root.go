package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"termreel/internal/config"
	"termreel/internal/model"
)

const (
	ExitOK             = 0
	ExitCLIError       = 1
	ExitConfigError    = 2
	ExitLaunchError    = 3 // also a missing dependency
	ExitStreamError    = 4
	ExitRendererFailed = 5
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError classifies a domain error into an exit code.
func exitError(err error) *ExitError {
	if err == nil {
		return nil
	}
	var (
		ee *ExitError
		ce *model.ConfigError
		le *model.LaunchError
		se *model.StreamError
	)
	switch {
	case errors.As(err, &ee):
		return ee
	case errors.As(err, &ce):
		return &ExitError{Code: ExitConfigError, Err: err}
	case errors.As(err, &le):
		return &ExitError{Code: ExitLaunchError, Err: err}
	case errors.As(err, &se):
		if se.RendererFailed() {
			return &ExitError{Code: ExitRendererFailed, Err: err}
		}
		return &ExitError{Code: ExitStreamError, Err: err}
	default:
		return &ExitError{Code: ExitCLIError, Err: err}
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "termreel [file]",
		Short:         "Play a video as ANSI art in the terminal",
		Long:          "termreel plays a video file inside the terminal. An external renderer draws the frames as ANSI art, termreel paces them to the target frame rate, and an external audio player plays the soundtrack alongside.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(cmd.Root()); err != nil {
				return &ExitError{Code: ExitConfigError, Err: &model.ConfigError{Field: "config file", Err: err}}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runPlay(cmd, args[0])
		},
	}

	// Persistent flags available to all subcommands
	bindPersistentFlags(root.PersistentFlags())

	// Subcommands
	root.AddCommand(newPlayCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindPersistentFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Config file (default <config dir>/config.{yaml,toml,json})")
	fs.BoolP("verbose", "v", false, "Log subprocess commands and state changes to stderr")
	fs.String("log-file", "", "Write JSON logs to this file instead of stderr ('auto' uses the cache dir)")

	fs.Int("fps", config.DefaultFPS, "Target frames per second")
	fs.IntP("width", "w", config.DefaultWidth, "Width in character columns (0 uses the terminal width)")
	fs.Int("height", config.DefaultHeight, "Height in rows (0 derives it from the aspect ratio)")
	fs.Bool("no-sound", false, "Play without audio")
	fs.Bool("alt-screen", false, "Draw on the alternate screen buffer")
	fs.Duration("grace-period", 0, "Wait between terminate and kill for subprocesses (default 2s)")
	fs.Bool("pty", false, "Run the renderer on a pseudo-terminal")
	fs.String("renderer", "", "Renderer executable (default mpv)")
	fs.String("format", "", "Drawing style passed to the renderer: half-blocks (colour) or plain (mono)")
	fs.StringSlice("audio-backend", nil, "Audio backends in preference order (ffplay,mpv,afplay,cvlc)")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
