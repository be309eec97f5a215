package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"termreel/internal/config"
	"termreel/internal/launcher"
	"termreel/internal/logging"
	"termreel/internal/model"
	"termreel/internal/player"
	"termreel/internal/screen"
	"termreel/internal/ui"
	"termreel/internal/util"
	"termreel/internal/util/deps"
	"termreel/internal/util/media"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "play <file>",
		Short:         "Play a video file in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, args[0])
		},
	}
}

// playInputs is everything resolved before any subprocess starts.
type playInputs struct {
	Settings config.Settings
	Config   model.PlaybackConfig
	Logger   zerolog.Logger
	closeLog io.Closer
}

func (in playInputs) Close() error {
	if in.closeLog == nil {
		return nil
	}
	return in.closeLog.Close()
}

// assemblePlayInputs loads settings, sets up logging, fills in width and
// height when they are left to be derived, and validates the result.
func assemblePlayInputs(ctx context.Context, input string) (playInputs, error) {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return playInputs{}, err
	}
	logger, closer, err := logging.New(logging.Options{Verbose: s.Verbose, File: s.LogFile})
	if err != nil {
		return playInputs{}, &model.ConfigError{Field: "log_file", Err: err}
	}
	in := playInputs{Settings: s, Logger: logger, closeLog: closer}

	if s.Width == 0 {
		s.Width = config.DefaultWidth
		if w := screen.Width(os.Stdout); w > 0 {
			s.Width = w
		}
		logger.Debug().Int("width", s.Width).Msg("width from terminal")
	}
	if s.Height == 0 && util.FileExists(input) {
		s.Height = probeHeight(ctx, logger, input, s.Width)
	}

	cfg, err := config.Validate(input, s)
	if err != nil {
		_ = in.Close()
		return playInputs{}, err
	}
	in.Settings = s
	in.Config = cfg
	return in, nil
}

// probeHeight derives rows from the source aspect ratio. Zero leaves the
// height to the renderer.
func probeHeight(ctx context.Context, logger zerolog.Logger, input string, width int) int {
	ffprobe, err := deps.FindFFprobe()
	if err != nil {
		logger.Debug().Err(err).Msg("height left to the renderer")
		return 0
	}
	srcW, srcH, err := media.ProbeDimensions(ctx, nil, ffprobe, input, &logger)
	if err != nil {
		logger.Warn().Err(err).Msg("could not probe video size; height left to the renderer")
		return 0
	}
	h := media.AutoHeight(srcW, srcH, width)
	logger.Debug().Int("src_width", srcW).Int("src_height", srcH).Int("height", h).Msg("height from aspect ratio")
	return h
}

func newLauncher(s config.Settings, logger zerolog.Logger) (*launcher.Launcher, error) {
	profile, err := s.RendererProfile()
	if err != nil {
		return nil, err
	}
	backends, err := s.AudioBackends()
	if err != nil {
		return nil, err
	}
	opts := []launcher.Option{
		launcher.WithRenderer(profile),
		launcher.WithAudioBackends(backends),
		launcher.WithLogger(logger),
	}
	if s.LogFile != "" {
		// Renderer diagnostics would corrupt the display on stderr.
		opts = append(opts, launcher.WithRendererStderr(logger.With().Str("stream", "renderer").Logger()))
	}
	return launcher.New(opts...), nil
}

func runPlay(cmd *cobra.Command, input string) error {
	ctx := cmd.Context()
	in, err := assemblePlayInputs(ctx, input)
	if err != nil {
		return exitError(err)
	}
	defer in.Close()

	l, err := newLauncher(in.Settings, in.Logger)
	if err != nil {
		return exitError(err)
	}
	frameOpts, err := in.Settings.FrameOptions()
	if err != nil {
		return exitError(err)
	}

	tty := screen.IsTerminal(os.Stdout)
	styles := ui.StylesFor(tty && screen.IsTerminal(os.Stderr))
	if tty {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Banner(ui.StylesFor(true), in.Config))
	}

	rep := ui.NewReporter(cmd.ErrOrStderr(), styles)
	sup := player.New(
		player.WithConfig(in.Config),
		player.WithLauncher(l),
		player.WithDisplay(screen.New(os.Stdout, screen.Options{AltScreen: in.Settings.AltScreen})),
		player.WithLogger(in.Logger),
		player.WithReporter(rep),
		player.WithGracePeriod(in.Settings.GracePeriod),
		player.WithFrameOptions(frameOpts),
	)
	in.Logger.Info().Str("input", in.Config.Input).Str("renderer", l.Renderer().Name).Msg("starting playback")

	res, err := sup.Run(ctx)
	if tty && res.SessionID != "" {
		if last, ok := rep.Last(); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Summary(styles, last))
		}
	}
	if err != nil {
		return exitError(err)
	}
	return nil
}
