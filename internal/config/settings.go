package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"termreel/internal/frames"
	"termreel/internal/launcher"
	"termreel/internal/model"
	"termreel/internal/util"
)

const (
	DefaultFPS    = 24
	DefaultWidth  = 80
	DefaultHeight = 0 // auto

	MaxFPS   = 240
	MaxWidth = 1000
)

// Settings is the effective, layered configuration (flag > env > file >
// default) before validation.
type Settings struct {
	FPS           int           `mapstructure:"fps" toml:"fps"`
	Width         int           `mapstructure:"width" toml:"width"`
	Height        int           `mapstructure:"height" toml:"height"`
	NoSound       bool          `mapstructure:"no_sound" toml:"no_sound"`
	AltScreen     bool          `mapstructure:"alt_screen" toml:"alt_screen"`
	GracePeriod   time.Duration `mapstructure:"grace_period" toml:"-"`
	BufferFrames  int           `mapstructure:"buffer_frames" toml:"buffer_frames"`
	MaxFrameBytes int           `mapstructure:"max_frame_bytes" toml:"max_frame_bytes"`
	Verbose       bool          `mapstructure:"verbose" toml:"verbose"`
	LogFile       string        `mapstructure:"log_file" toml:"log_file"`

	Renderer RendererSettings `mapstructure:"renderer" toml:"renderer"`
	Audio    AudioSettings    `mapstructure:"audio" toml:"audio"`
}

// RendererSettings override the built-in renderer profile.
type RendererSettings struct {
	Binary    string   `mapstructure:"binary" toml:"binary"`
	Args      []string `mapstructure:"args" toml:"args"`
	Format    string   `mapstructure:"format" toml:"format"`
	Delimiter string   `mapstructure:"delimiter" toml:"delimiter"` // escaped, e.g. `\x1b[H`
	Framing   string   `mapstructure:"framing" toml:"framing"`
	PTY       bool     `mapstructure:"pty" toml:"pty"`
}

// AudioSettings select and order the audio backends.
type AudioSettings struct {
	Backends []string `mapstructure:"backends" toml:"backends"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	r := launcher.DefaultRenderer()
	var backends []string
	for _, b := range launcher.DefaultAudioBackends() {
		backends = append(backends, b.Name)
	}

	v.SetDefault("fps", DefaultFPS)
	v.SetDefault("width", DefaultWidth)
	v.SetDefault("height", DefaultHeight)
	v.SetDefault("no_sound", false)
	v.SetDefault("alt_screen", false)
	v.SetDefault("grace_period", 2*time.Second)
	v.SetDefault("buffer_frames", frames.DefaultBuffer)
	v.SetDefault("max_frame_bytes", frames.DefaultMaxFrameBytes)
	v.SetDefault("verbose", false)
	v.SetDefault("log_file", "")
	v.SetDefault("renderer.binary", r.Binary)
	v.SetDefault("renderer.args", r.Args)
	v.SetDefault("renderer.format", r.Format)
	v.SetDefault("renderer.delimiter", launcher.EscapeDelimiter(r.Delimiter))
	v.SetDefault("renderer.framing", string(r.Framing))
	v.SetDefault("renderer.pty", false)
	v.SetDefault("audio.backends", backends)
}

// Load decodes the effective settings from v.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, &model.ConfigError{Err: err}
	}
	return s, nil
}

// Validate checks the playback options and builds the immutable
// PlaybackConfig. Width must already be resolved (no terminal lookup here).
func Validate(input string, s Settings) (model.PlaybackConfig, error) {
	if strings.TrimSpace(input) == "" {
		return model.PlaybackConfig{}, &model.ConfigError{Field: "input", Err: errors.New("missing input file")}
	}
	if err := util.CheckInputFile(input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", model.ErrInputMissing, input)
		}
		return model.PlaybackConfig{}, &model.ConfigError{Field: "input", Err: err}
	}
	if s.FPS <= 0 || s.FPS > MaxFPS {
		return model.PlaybackConfig{}, &model.ConfigError{Field: "fps", Err: fmt.Errorf("%d is out of range 1..%d", s.FPS, MaxFPS)}
	}
	if s.Width <= 0 || s.Width > MaxWidth {
		return model.PlaybackConfig{}, &model.ConfigError{Field: "width", Err: fmt.Errorf("%d is out of range 1..%d", s.Width, MaxWidth)}
	}
	if s.Height < 0 {
		return model.PlaybackConfig{}, &model.ConfigError{Field: "height", Err: fmt.Errorf("%d is negative (0 means auto)", s.Height)}
	}
	if s.GracePeriod < 0 {
		return model.PlaybackConfig{}, &model.ConfigError{Field: "grace_period", Err: fmt.Errorf("%s is negative", s.GracePeriod)}
	}
	if _, err := s.FrameOptions(); err != nil {
		return model.PlaybackConfig{}, err
	}

	return model.PlaybackConfig{
		Input:  filepath.Clean(input),
		FPS:    s.FPS,
		Width:  s.Width,
		Height: s.Height,
		Sound:  !s.NoSound,
	}, nil
}

// RendererProfile merges the renderer overrides into the built-in profile.
func (s Settings) RendererProfile() (model.RendererProfile, error) {
	p := launcher.DefaultRenderer()
	if s.Renderer.Binary != "" && s.Renderer.Binary != p.Binary {
		p.Binary = s.Renderer.Binary
		p.Name = filepath.Base(s.Renderer.Binary)
	}
	if len(s.Renderer.Args) > 0 {
		p.Args = append([]string(nil), s.Renderer.Args...)
	}
	if s.Renderer.Format != "" {
		p.Format = strings.ToLower(strings.TrimSpace(s.Renderer.Format))
	}
	if p.Name == launcher.DefaultRenderer().Name && !launcher.TctFormat(p.Format) {
		return model.RendererProfile{}, &model.ConfigError{Field: "renderer.format", Err: fmt.Errorf("%q (valid: half-blocks|plain)", s.Renderer.Format)}
	}
	opts, err := s.FrameOptions()
	if err != nil {
		return model.RendererProfile{}, err
	}
	p.Delimiter = string(opts.Delimiter)
	p.Framing = opts.Framing
	p.PTY = s.Renderer.PTY
	return p, nil
}

// AudioBackends returns the backends in configured preference order.
func (s Settings) AudioBackends() ([]model.AudioBackend, error) {
	b, err := launcher.SelectAudioBackends(s.Audio.Backends)
	if err != nil {
		return nil, &model.ConfigError{Field: "audio.backends", Err: err}
	}
	return b, nil
}

// FrameOptions returns the frame reader options.
func (s Settings) FrameOptions() (frames.Options, error) {
	framing := model.Framing(strings.ToLower(strings.TrimSpace(s.Renderer.Framing)))
	switch framing {
	case "":
		framing = model.FramingCursor
	case model.FramingStart, model.FramingEnd, model.FramingCursor:
	default:
		return frames.Options{}, &model.ConfigError{Field: "renderer.framing", Err: fmt.Errorf("%q (valid: start|end|cursor)", s.Renderer.Framing)}
	}
	delim := frames.DefaultDelimiter
	if s.Renderer.Delimiter != "" {
		delim = launcher.UnescapeDelimiter(s.Renderer.Delimiter)
	}
	if s.BufferFrames < 0 {
		return frames.Options{}, &model.ConfigError{Field: "buffer_frames", Err: fmt.Errorf("%d is negative", s.BufferFrames)}
	}
	return frames.Options{
		Delimiter:     []byte(delim),
		Framing:       framing,
		Buffer:        s.BufferFrames,
		MaxFrameBytes: s.MaxFrameBytes,
	}, nil
}
