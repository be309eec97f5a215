package launcher

import (
	"strconv"
	"strings"

	"termreel/internal/model"
)

const (
	phInput  = "{input}"
	phFPS    = "{fps}"
	phWidth  = "{width}"
	phHeight = "{height}"
	phFormat = "{format}"
)

// BuildRendererArgs expands the profile's argument template for cfg.
// Arguments that reference {height} are left out when the height is auto,
// so the renderer derives it from the aspect ratio.
func BuildRendererArgs(p model.RendererProfile, cfg model.PlaybackConfig) []string {
	height := ""
	if !cfg.HeightAuto() {
		height = strconv.Itoa(cfg.Height)
	}
	r := strings.NewReplacer(
		phInput, cfg.Input,
		phFPS, strconv.Itoa(cfg.FPS),
		phWidth, strconv.Itoa(cfg.Width),
		phHeight, height,
		phFormat, p.Format,
	)

	args := make([]string, 0, len(p.Args))
	for _, a := range p.Args {
		if cfg.HeightAuto() && strings.Contains(a, phHeight) {
			continue
		}
		args = append(args, r.Replace(a))
	}
	return args
}

// BuildAudioArgs expands an audio backend's template. {input} is the only
// placeholder.
func BuildAudioArgs(b model.AudioBackend, input string) []string {
	args := make([]string, 0, len(b.Args))
	for _, a := range b.Args {
		args = append(args, strings.ReplaceAll(a, phInput, input))
	}
	return args
}
