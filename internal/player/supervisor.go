// Package player supervises one playback: it launches the renderer and audio,
// drives the frame loop, and tears everything down exactly once.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"termreel/internal/frames"
	"termreel/internal/model"
	"termreel/internal/progress"
	"termreel/internal/scheduler"
	"termreel/internal/session"
)

// DefaultGracePeriod bounds the wait after SIGTERM before SIGKILL.
const DefaultGracePeriod = 2 * time.Second

const (
	// ReasonInterrupt is the stop reason used for a canceled run context.
	ReasonInterrupt = "interrupted"
	// StoppingNotice is the Stopping update message of a requested stop.
	StoppingNotice = "Stopping playback..."
)

// ErrAlreadyRun is returned when Run is called twice on one Supervisor.
var ErrAlreadyRun = errors.New("player: supervisor already ran")

var errStopRequested = errors.New("stop requested")

// Launcher starts the subprocesses for a session.
type Launcher interface {
	Launch(ctx context.Context, cfg model.PlaybackConfig) (*session.Session, error)
}

// Display is the terminal the frames are drawn on.
type Display interface {
	Setup() error
	Render(model.FrameUnit) error
	Restore() error
}

// Result summarizes a finished playback.
type Result struct {
	SessionID    string
	Stats        scheduler.Stats
	AudioBackend string
	Interrupted  bool
	Warnings     []error
	Err          error
}

func (r Result) progress() progress.Result {
	return progress.Result{
		SessionID:    r.SessionID,
		Frames:       r.Stats.Frames,
		Bytes:        r.Stats.Bytes,
		Elapsed:      r.Stats.Elapsed,
		EffectiveFPS: r.Stats.EffectiveFPS(),
		MaxLag:       r.Stats.MaxLag,
		AudioBackend: r.AudioBackend,
		Interrupted:  r.Interrupted,
		Err:          r.Err,
	}
}

// Supervisor owns both subprocesses and the render loop of one session.
// A Supervisor is single-use.
type Supervisor struct {
	cfg       model.PlaybackConfig
	launcher  Launcher
	display   Display
	clock     scheduler.Clock
	logger    zerolog.Logger
	reporter  progress.Reporter
	grace     time.Duration
	frameOpts frames.Options

	sm  *machine
	ran atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}

	mu         sync.Mutex
	stopReason string

	cleanupOnce sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithConfig sets the validated playback configuration.
func WithConfig(cfg model.PlaybackConfig) Option {
	return func(s *Supervisor) {
		s.cfg = cfg
	}
}

// WithLauncher sets the subprocess launcher.
func WithLauncher(l Launcher) Option {
	return func(s *Supervisor) {
		s.launcher = l
	}
}

// WithDisplay sets the terminal frames are rendered to.
func WithDisplay(d Display) Option {
	return func(s *Supervisor) {
		s.display = d
	}
}

// WithClock injects the pacing clock (useful for testing).
func WithClock(c scheduler.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithLogger attaches a logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithReporter attaches a progress reporter.
func WithReporter(r progress.Reporter) Option {
	return func(s *Supervisor) {
		s.reporter = r
	}
}

// WithGracePeriod sets how long a subprocess gets between SIGTERM and SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// WithFrameOptions sets delimiter, framing and buffering of the frame reader.
func WithFrameOptions(o frames.Options) Option {
	return func(s *Supervisor) {
		s.frameOpts = o
	}
}

// New constructs a Supervisor. Missing components fall back to defaults
// where one exists; a launcher and a display are required by Run.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		clock:    scheduler.RealClock,
		logger:   zerolog.Nop(),
		reporter: progress.Nop{},
		grace:    DefaultGracePeriod,
		stopCh:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.grace <= 0 {
		s.grace = DefaultGracePeriod
	}
	s.sm = newMachine(s.logger, s.reporter)
	return s
}

// State returns the current supervisor state.
func (s *Supervisor) State() State {
	return s.sm.State()
}

// Stop requests the end of playback. It is safe to call from any goroutine,
// any number of times; only the first reason is kept.
func (s *Supervisor) Stop(reason string) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopReason = reason
		s.mu.Unlock()
		close(s.stopCh)
	})
}

func (s *Supervisor) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Supervisor) reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopReason
}

// Run plays the configured input until the renderer's stream ends, ctx is
// canceled, or Stop is called. A canceled ctx or Stop is a normal end:
// Result.Interrupted is set and the error is nil. Subprocess termination and
// terminal restore happen before Run returns, on every path.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	if !s.ran.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}
	if s.launcher == nil || s.display == nil {
		return Result{}, errors.New("player: launcher and display are required")
	}
	sched, err := scheduler.New(s.cfg.FPS, s.clock)
	if err != nil {
		return Result{}, &model.ConfigError{Field: "fps", Err: err}
	}
	s.reporter.Update(progress.Update{Stage: progress.StageStarting, Message: s.cfg.String()})

	sess, err := s.launcher.Launch(ctx, s.cfg)
	if err != nil {
		return s.failStart(ctx, nil, err)
	}
	s.sm.setSession(sess.ID)
	log := s.logger.With().Str("session", sess.ID).Str("input", s.cfg.Input).Logger()
	res := Result{SessionID: sess.ID, AudioBackend: sess.AudioBackend}

	launchWarnings := sess.Warnings()
	for _, w := range launchWarnings {
		log.Warn().Err(w).Msg("launch warning")
		s.reporter.Log(progress.Log{SessionID: sess.ID, Stream: progress.StreamAudio, Line: w.Error()})
	}

	if err := s.display.Setup(); err != nil {
		return s.failStart(ctx, sess, &model.StreamError{ExitCode: -1, Err: fmt.Errorf("terminal setup: %w", err)})
	}
	_ = s.sm.TransitionTo(StateRunning, "renderer started")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.watchInterrupt(ctx, cancel, sess, loopDone)
	}()
	if sess.Audio != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchAudio(log, sess, loopDone)
		}()
	}

	reader := frames.NewReader(sess.Stream, s.frameOpts)
	ch, _ := reader.Frames(runCtx) // fresh reader, cannot be started yet
	stats, runErr := sched.Run(runCtx, ch, func(f model.FrameUnit) error {
		if sess.StopRequested() {
			return errStopRequested
		}
		return s.display.Render(f)
	})
	res.Stats = stats

	outcome := s.classify(sess, reader, runErr)
	reason := "stream ended"
	switch {
	case outcome != nil:
		reason = outcome.Error()
	case s.stopRequested():
		reason = StoppingNotice
	}
	sess.SetErr(outcome)
	s.enterStopping(sess.ID, reason)
	s.cleanup(sess)
	close(loopDone)
	wg.Wait()

	// The terminal is restored; console output is safe again.
	for _, w := range sess.Warnings()[len(launchWarnings):] {
		log.Warn().Err(w).Msg("shutdown warning")
		s.reporter.Log(progress.Log{SessionID: sess.ID, Stream: progress.StreamPlayer, Line: w.Error()})
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), s.grace)
	if err := reader.Wait(waitCtx); err != nil {
		log.Warn().Err(err).Msg("frame reader did not exit")
		s.reporter.Log(progress.Log{SessionID: sess.ID, Stream: progress.StreamRenderer, Line: "renderer output did not close: " + err.Error()})
	}
	waitCancel()

	_ = s.sm.TransitionTo(StateStopped, "cleanup complete")
	if !sess.Terminated() {
		log.Warn().Msg("subprocess still running after cleanup")
	}

	res.Interrupted = s.stopRequested()
	res.Warnings = sess.Warnings()
	res.Err = sess.Err()
	log.Info().
		Int("frames", stats.Frames).
		Float64("fps", stats.EffectiveFPS()).
		Dur("max_lag", stats.MaxLag).
		Bool("interrupted", res.Interrupted).
		Msg("playback finished")
	s.reporter.Result(res.progress())
	return res, res.Err
}

// failStart handles an error raised before the render loop: Starting goes
// straight to Failed and cleanup runs.
func (s *Supervisor) failStart(ctx context.Context, sess *session.Session, err error) (Result, error) {
	_ = s.sm.TransitionTo(StateFailed, err.Error())
	s.cleanup(sess)

	res := Result{Err: err}
	if sess != nil {
		res.SessionID = sess.ID
		res.AudioBackend = sess.AudioBackend
		res.Warnings = sess.Warnings()
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		res.Interrupted = true
		res.Err = nil
	}
	s.reporter.Result(res.progress())
	return res, res.Err
}

// classify decides how the render loop ended. Nil means a normal end or a
// requested stop.
func (s *Supervisor) classify(sess *session.Session, reader *frames.Reader, runErr error) error {
	if s.stopRequested() {
		return nil
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, errStopRequested) {
		return &model.StreamError{ExitCode: -1, Err: fmt.Errorf("display: %w", runErr)}
	}

	// The stream is exhausted; give the renderer the grace period to report
	// its exit status.
	select {
	case <-sess.Video.Done():
		if code, err := exitStatus(sess.Video.Wait()); code != 0 && !s.stopRequested() {
			return &model.StreamError{ExitCode: code, Err: err}
		}
	case <-time.After(s.grace):
	case <-s.stopCh:
	}
	if s.stopRequested() {
		return nil
	}
	if err := reader.Err(); err != nil {
		return &model.StreamError{ExitCode: -1, Err: err}
	}
	return nil
}

func (s *Supervisor) watchInterrupt(ctx context.Context, cancel context.CancelFunc, sess *session.Session, loopDone <-chan struct{}) {
	select {
	case <-ctx.Done():
		s.Stop(ReasonInterrupt)
	case <-s.stopCh:
	case <-loopDone:
		return
	}
	sess.RequestStop()
	cancel()
	s.logger.Info().Str("session", sess.ID).Str("reason", s.reason()).Msg("stop requested")
	s.enterStopping(sess.ID, StoppingNotice)
	s.cleanup(sess)
}

func (s *Supervisor) watchAudio(log zerolog.Logger, sess *session.Session, loopDone <-chan struct{}) {
	select {
	case <-sess.Audio.Done():
	case <-loopDone:
		return
	}
	if sess.StopRequested() {
		return
	}
	// Frames are still being drawn, so nothing here may reach the console
	// writer; the reporter holds its lines until the terminal is restored.
	_, err := exitStatus(sess.Audio.Wait())
	log.Info().Err(err).Str("backend", sess.AudioBackend).Msg("audio player exited")
	line := "audio finished"
	if err != nil {
		line = fmt.Sprintf("audio player %s exited: %v", sess.AudioBackend, err)
	}
	s.reporter.Log(progress.Log{SessionID: sess.ID, Stream: progress.StreamAudio, Line: line})
}

// enterStopping moves Running to Stopping. Later callers are ignored.
func (s *Supervisor) enterStopping(id, reason string) {
	if err := s.sm.TransitionTo(StateStopping, reason); err != nil {
		s.logger.Debug().Err(err).Str("session", id).Msg("stop already in progress")
	}
}

// cleanup terminates the subprocesses and restores the terminal. It runs
// once per supervisor; concurrent callers block until it has finished.
func (s *Supervisor) cleanup(sess *session.Session) {
	s.cleanupOnce.Do(func() {
		var shutdownErr error
		if sess != nil {
			shutdownErr = sess.Shutdown(s.grace)
		}
		if err := s.display.Restore(); err != nil {
			s.logger.Warn().Err(err).Msg("terminal restore")
		}
		if shutdownErr != nil {
			s.logger.Warn().Err(shutdownErr).Str("session", sess.ID).Msg("subprocess shutdown")
		}
	})
}

// exitStatus extracts a process exit code from a Wait error. It returns -1
// for failures that carry no exit code.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode(), err
	}
	return -1, err
}
