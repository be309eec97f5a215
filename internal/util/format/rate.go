package format

import (
	"strconv"
	"time"
)

// Rate formats a frame rate with one decimal, e.g. "23.9 fps".
func Rate(fps float64) string {
	if fps < 0 {
		fps = 0
	}
	return strconv.FormatFloat(fps, 'f', 1, 64) + " fps"
}

// Duration rounds d for display: milliseconds below one second, tenths of a
// second above.
func Duration(d time.Duration) string {
	switch {
	case d <= 0:
		return "0s"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
