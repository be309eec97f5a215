package model

import "fmt"

// Framing selects where the frame delimiter sits relative to the frame bytes.
type Framing string

const (
	FramingStart  Framing = "start"  // delimiter precedes each frame
	FramingEnd    Framing = "end"    // delimiter terminates each frame
	FramingCursor Framing = "cursor" // a frame begins where absolute cursor positioning moves back up
)

// PlaybackConfig is the validated, immutable description of one playback run.
// It is built once by config.Validate and passed by value afterwards.
type PlaybackConfig struct {
	Input  string // Path to the media file.
	FPS    int    // Target frames per second, > 0.
	Width  int    // Target width in character columns, > 0.
	Height int    // Target height in rows; 0 lets the renderer derive it.
	Sound  bool   // Start an audio backend alongside the renderer.
}

// HeightAuto reports whether the height is left for the renderer to derive.
func (c PlaybackConfig) HeightAuto() bool {
	return c.Height <= 0
}

func (c PlaybackConfig) String() string {
	h := "auto"
	if !c.HeightAuto() {
		h = fmt.Sprint(c.Height)
	}
	return fmt.Sprintf("%s (fps=%d width=%d height=%s sound=%v)", c.Input, c.FPS, c.Width, h, c.Sound)
}

// FrameUnit is one displayable chunk of renderer output.
type FrameUnit struct {
	Index int    // 0-based, strictly increasing per reader.
	Data  []byte // Raw ANSI/ASCII bytes; delimiters are excluded, cursor positioning is kept.
}

// RendererProfile describes how to invoke the frame renderer and how its
// output is framed.
type RendererProfile struct {
	Name      string
	Binary    string   // Executable name or path.
	Args      []string // Argument template; see launcher.BuildRendererArgs.
	Format    string   // Value substituted for {format}.
	Delimiter string   // Frame boundary byte sequence for start and end framing.
	Framing   Framing
	PTY       bool // Run the renderer on a pseudo-terminal.
}

// AudioBackend is one entry of the ordered audio preference list.
type AudioBackend struct {
	Name   string
	Binary string
	Args   []string // Argument template; {input} is the only placeholder.
}
