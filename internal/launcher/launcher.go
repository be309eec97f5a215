// Package launcher starts the frame renderer and the optional audio player
// for one playback session.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"termreel/internal/model"
	"termreel/internal/proc"
	"termreel/internal/session"
	"termreel/internal/util"
	"termreel/internal/util/deps"
)

// Started is a running subprocess as returned by a Starter.
type Started interface {
	session.Process
	Stdout() io.ReadCloser
}

// Starter launches a subprocess. proc.Start is the default.
type Starter func(proc.Spec) (Started, error)

func startProc(spec proc.Spec) (Started, error) {
	h, err := proc.Start(spec)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Launcher builds subprocess invocations from a PlaybackConfig and starts them.
type Launcher struct {
	renderer model.RendererProfile
	backends []model.AudioBackend
	look     deps.LookPathFunc
	start    Starter
	stderr   io.Writer
	logger   zerolog.Logger
	newID    func() string
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithRenderer sets the renderer profile.
func WithRenderer(p model.RendererProfile) Option {
	return func(l *Launcher) {
		l.renderer = p
	}
}

// WithAudioBackends sets the audio preference list.
func WithAudioBackends(b []model.AudioBackend) Option {
	return func(l *Launcher) {
		l.backends = b
	}
}

// WithLookPath replaces executable resolution (useful for testing).
func WithLookPath(f deps.LookPathFunc) Option {
	return func(l *Launcher) {
		l.look = f
	}
}

// WithStarter replaces process creation (useful for testing).
func WithStarter(s Starter) Option {
	return func(l *Launcher) {
		l.start = s
	}
}

// WithRendererStderr forwards the renderer's stderr, e.g. to a log file.
func WithRendererStderr(w io.Writer) Option {
	return func(l *Launcher) {
		l.stderr = w
	}
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Launcher) {
		l.logger = log
	}
}

// WithSessionID fixes the session id instead of generating a UUID.
func WithSessionID(id string) Option {
	return func(l *Launcher) {
		l.newID = func() string { return id }
	}
}

// New constructs a Launcher with the default renderer and audio backends
// unless overridden.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		renderer: DefaultRenderer(),
		backends: DefaultAudioBackends(),
		look:     deps.Find,
		start:    startProc,
		logger:   zerolog.Nop(),
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Renderer returns the renderer profile in use.
func (l *Launcher) Renderer() model.RendererProfile {
	return l.renderer
}

// Plan is the fully resolved set of invocations for a PlaybackConfig.
type Plan struct {
	Config       model.PlaybackConfig
	RendererPath string
	RendererArgs []string
	PTY          bool

	AudioBackend string // empty when silent
	AudioPath    string
	AudioArgs    []string
	AudioErr     error // why audio is off although Sound was requested
}

// Plan resolves executables and arguments without starting anything.
func (l *Launcher) Plan(cfg model.PlaybackConfig) (Plan, error) {
	pl := Plan{Config: cfg, PTY: l.renderer.PTY}
	if !util.FileExists(cfg.Input) {
		return pl, &model.LaunchError{Program: l.renderer.Name, Err: fmt.Errorf("%w: %s", model.ErrInputMissing, cfg.Input)}
	}
	path, err := l.look(l.renderer.Binary)
	if err != nil {
		return pl, &model.LaunchError{Program: l.renderer.Name, Err: fmt.Errorf("%w: %s", model.ErrRendererNotFound, l.renderer.Binary)}
	}
	pl.RendererPath = path
	pl.RendererArgs = BuildRendererArgs(l.renderer, cfg)

	if cfg.Sound {
		b, apath, err := deps.FirstAvailable(l.backends, l.look)
		if err != nil {
			pl.AudioErr = &model.AudioLaunchError{Err: err}
		} else {
			pl.AudioBackend = b.Name
			pl.AudioPath = apath
			pl.AudioArgs = BuildAudioArgs(b, cfg.Input)
		}
	}
	return pl, nil
}

// Launch starts the renderer and, when sound is on and a backend is found,
// the audio player. Audio problems are recorded as session warnings. On
// error no subprocess is left running.
func (l *Launcher) Launch(ctx context.Context, cfg model.PlaybackConfig) (*session.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pl, err := l.Plan(cfg)
	if err != nil {
		return nil, err
	}

	spec := proc.Spec{
		Name:   l.renderer.Name,
		Path:   pl.RendererPath,
		Args:   pl.RendererArgs,
		Output: proc.OutputPipe,
		Stderr: l.stderr,
	}
	if pl.PTY {
		spec.Output = proc.OutputPTY
		spec.Cols = cfg.Width
		spec.Rows = cfg.Height
		if cfg.HeightAuto() {
			spec.Rows = cfg.Width / 2
		}
	}

	l.logger.Debug().Str("cmd", util.ShellQuote(spec.Path, spec.Args)).Bool("pty", pl.PTY).Msg("starting renderer")
	video, err := l.start(spec)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			err = fmt.Errorf("permission denied: %w", err)
		}
		return nil, &model.LaunchError{Program: l.renderer.Name, Err: err}
	}
	s := session.New(l.newID(), video, video.Stdout())
	l.logger.Info().Str("session", s.ID).Int("pid", video.PID()).Msg("renderer started")

	if cfg.Sound {
		l.startAudio(s, pl)
	}
	return s, nil
}

func (l *Launcher) startAudio(s *session.Session, pl Plan) {
	if pl.AudioErr != nil {
		s.Warn(pl.AudioErr)
		l.logger.Warn().Err(pl.AudioErr).Msg("playing without sound")
		return
	}
	l.logger.Debug().Str("cmd", util.ShellQuote(pl.AudioPath, pl.AudioArgs)).Msg("starting audio")
	audio, err := l.start(proc.Spec{
		Name:   pl.AudioBackend,
		Path:   pl.AudioPath,
		Args:   pl.AudioArgs,
		Output: proc.OutputDiscard,
	})
	if err != nil {
		werr := &model.AudioLaunchError{Backend: pl.AudioBackend, Err: err}
		s.Warn(werr)
		l.logger.Warn().Err(werr).Msg("playing without sound")
		return
	}
	if err := s.AttachAudio(audio, pl.AudioBackend); err != nil {
		_ = audio.Terminate(0)
		s.Warn(&model.AudioLaunchError{Backend: pl.AudioBackend, Err: err})
		return
	}
	l.logger.Info().Str("backend", pl.AudioBackend).Int("pid", audio.PID()).Msg("audio started")
}
