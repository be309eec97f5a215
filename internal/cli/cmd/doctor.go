package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"termreel/internal/config"
	"termreel/internal/model"
	"termreel/internal/screen"
	"termreel/internal/ui"
	"termreel/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (renderer, ffprobe, audio players)",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.Load(viper.GetViper())
			if err != nil {
				return exitError(err)
			}
			checks, err := doctorChecks(s, deps.Find)
			if err != nil {
				return exitError(err)
			}
			st := ui.StylesFor(screen.IsTerminal(os.Stdout))
			fmt.Fprint(cmd.OutOrStdout(), ui.DoctorTable(st, checks))

			if checks[0].Path == "" {
				return &ExitError{Code: ExitLaunchError, Err: &model.LaunchError{Program: checks[0].Name, Err: model.ErrRendererNotFound}}
			}
			return nil
		},
	}
}

// doctorChecks lists the renderer first, then ffprobe, then every audio
// backend in preference order.
func doctorChecks(s config.Settings, look deps.LookPathFunc) ([]ui.Check, error) {
	profile, err := s.RendererProfile()
	if err != nil {
		return nil, err
	}
	backends, err := s.AudioBackends()
	if err != nil {
		return nil, err
	}

	path, _ := look(profile.Binary)
	checks := []ui.Check{{Name: "renderer " + profile.Binary, Path: path, Required: true}}

	ff, _ := look("ffprobe")
	checks = append(checks, ui.Check{Name: "ffprobe", Path: ff, Note: "used for auto height"})

	first := true
	for _, b := range backends {
		p, _ := look(b.Binary)
		c := ui.Check{Name: "audio " + b.Name, Path: p}
		if p != "" && first {
			c.Note = "selected"
			first = false
		}
		checks = append(checks, c)
	}
	if first && !s.NoSound {
		checks[len(checks)-1].Note = "no audio backend; playback will be silent"
	}
	return checks, nil
}
