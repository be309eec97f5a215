package ui

import (
	"fmt"

	"termreel/internal/model"
)

// Banner is the one-line announcement printed before playback starts.
func Banner(st Styles, cfg model.PlaybackConfig) string {
	height := "auto"
	if !cfg.HeightAuto() {
		height = fmt.Sprint(cfg.Height)
	}
	title := st.Title.Render("Playing " + cfg.Input)
	meta := st.Subtitle.Render(fmt.Sprintf("(fps=%d width=%d height=%s sound=%v)", cfg.FPS, cfg.Width, height, cfg.Sound))
	return title + " " + meta
}
