package launcher

import (
	"fmt"
	"strings"

	"termreel/internal/frames"
	"termreel/internal/model"
)

// DefaultRenderer draws frames with mpv's terminal video output. tct
// positions every row with CSI row;col f, so frames are cut on cursor
// positioning rather than on a fixed delimiter.
func DefaultRenderer() model.RendererProfile {
	return model.RendererProfile{
		Name:   "mpv-tct",
		Binary: "mpv",
		Args: []string{
			"--no-config",
			"--really-quiet",
			"--no-audio",
			"--vo=tct",
			"--vo-tct-algo={format}",
			"--vo-tct-width={width}",
			"--vo-tct-height={height}",
			"--vf=fps={fps}",
			"--",
			"{input}",
		},
		Format:    "half-blocks",
		Delimiter: frames.DefaultDelimiter,
		Framing:   model.FramingCursor,
	}
}

// TctFormat reports whether f is a drawing style mpv's tct output accepts.
func TctFormat(f string) bool {
	return f == "half-blocks" || f == "plain"
}

// DefaultAudioBackends lists audio players in preference order.
func DefaultAudioBackends() []model.AudioBackend {
	return []model.AudioBackend{
		{Name: "ffplay", Binary: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet", "{input}"}},
		{Name: "mpv", Binary: "mpv", Args: []string{"--no-config", "--no-video", "--really-quiet", "--", "{input}"}},
		{Name: "afplay", Binary: "afplay", Args: []string{"{input}"}},
		{Name: "cvlc", Binary: "cvlc", Args: []string{"--play-and-exit", "--no-video", "--quiet", "{input}"}},
	}
}

// SelectAudioBackends orders the known backends by the given names. Unknown
// names are an error; an empty list keeps the default order.
func SelectAudioBackends(names []string) ([]model.AudioBackend, error) {
	all := DefaultAudioBackends()
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]model.AudioBackend, len(all))
	for _, b := range all {
		byName[b.Name] = b
	}
	out := make([]model.AudioBackend, 0, len(names))
	for _, n := range names {
		b, ok := byName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("unknown audio backend %q (valid: ffplay|mpv|afplay|cvlc)", n)
		}
		out = append(out, b)
	}
	return out, nil
}

var delimiterEscapes = strings.NewReplacer(
	`\x1b`, "\x1b",
	`\033`, "\x1b",
	`\e`, "\x1b",
	`\f`, "\f",
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\0`, "\x00",
)

// UnescapeDelimiter turns a config value such as `\x1b[H` or `\f` into
// raw bytes.
func UnescapeDelimiter(s string) string {
	return delimiterEscapes.Replace(s)
}

// EscapeDelimiter is the inverse of UnescapeDelimiter, for display.
func EscapeDelimiter(s string) string {
	return strings.NewReplacer("\x1b", `\x1b`, "\f", `\f`, "\n", `\n`, "\r", `\r`, "\t", `\t`, "\x00", `\0`).Replace(s)
}
