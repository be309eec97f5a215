package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"termreel/internal/launcher"
	"termreel/internal/model"
	"termreel/internal/util"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "plan <file>",
		Short:         "Show the resolved renderer and audio commands without playing",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := assemblePlayInputs(cmd.Context(), args[0])
			if err != nil {
				return exitError(err)
			}
			defer in.Close()

			l, err := newLauncher(in.Settings, in.Logger)
			if err != nil {
				return exitError(err)
			}
			pl, err := l.Plan(in.Config)
			if err != nil {
				return exitError(err)
			}
			printPlan(cmd.OutOrStdout(), l, pl)
			return nil
		},
	}
}

// printPlan outputs a dry-run plan of actions without executing them.
func printPlan(w io.Writer, l *launcher.Launcher, pl launcher.Plan) {
	r := l.Renderer()
	height := "auto"
	if !pl.Config.HeightAuto() {
		height = fmt.Sprint(pl.Config.Height)
	}
	fmt.Fprintln(w, "Dry-run plan:")
	fmt.Fprintf(w, "- Input:          %s\n", pl.Config.Input)
	fmt.Fprintf(w, "- Size:           %dx%s at %d fps\n", pl.Config.Width, height, pl.Config.FPS)
	fmt.Fprintf(w, "- Renderer:       %s (%s)\n", r.Name, pl.RendererPath)
	fmt.Fprintf(w, "- Command:        %s\n", util.ShellQuote(pl.RendererPath, pl.RendererArgs))
	if r.Framing == model.FramingCursor {
		fmt.Fprintln(w, "- Frame boundary: cursor positioning (cursor)")
	} else {
		fmt.Fprintf(w, "- Frame boundary: %s (%s)\n", launcher.EscapeDelimiter(r.Delimiter), r.Framing)
	}
	fmt.Fprintf(w, "- PTY:            %v\n", pl.PTY)
	switch {
	case !pl.Config.Sound:
		fmt.Fprintln(w, "- Audio:          off (--no-sound)")
	case pl.AudioErr != nil:
		fmt.Fprintf(w, "- Audio:          off (%v)\n", pl.AudioErr)
	default:
		fmt.Fprintf(w, "- Audio:          %s\n", pl.AudioBackend)
		fmt.Fprintf(w, "- Audio command:  %s\n", util.ShellQuote(pl.AudioPath, pl.AudioArgs))
	}
	if strings.Contains(strings.Join(r.Args, " "), "{height}") && pl.Config.HeightAuto() {
		fmt.Fprintln(w, "- Note:           height arguments omitted; the renderer derives it")
	}
}
