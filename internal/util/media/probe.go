// Package media inspects source files with ffprobe.
package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"termreel/internal/util"
)

// CellAspect compensates for terminal cells being roughly twice as tall as
// they are wide.
const CellAspect = 0.55

// ProbeDimensions returns the pixel size of the first video stream.
func ProbeDimensions(ctx context.Context, runner util.CmdRunner, ffprobePath, input string, log *zerolog.Logger) (width, height int, err error) {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	res, err := runner.Run(ctx, util.CmdSpec{
		Path: ffprobePath,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-show_entries", "stream=width,height",
			"-of", "csv=p=0:s=x",
			input,
		},
		Logger: log,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("ffprobe: %w", err)
	}
	return ParseDimensions(string(res.Stdout))
}

// ParseDimensions parses ffprobe's "WxH" csv output.
func ParseDimensions(out string) (int, int, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	w, h, ok := strings.Cut(line, "x")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q", out)
	}
	wi, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil || wi <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", out)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(h, "x")))
	if err != nil || hi <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", out)
	}
	return wi, hi, nil
}

// AutoHeight maps a source size to a row count for the given column width,
// correcting for the cell aspect ratio. The result is at least 1.
func AutoHeight(srcW, srcH, columns int) int {
	if srcW <= 0 || srcH <= 0 || columns <= 0 {
		return 0
	}
	rows := float64(srcH) * float64(columns) / float64(srcW) * CellAspect
	if rows < 1 {
		return 1
	}
	return int(rows)
}
