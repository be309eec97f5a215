// Package session holds the subprocesses and control state of one playback.
package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// Process is an owned subprocess. proc.Handle implements it.
type Process interface {
	Name() string
	PID() int
	Running() bool
	// Terminate must be idempotent: only the first call signals the process.
	Terminate(grace time.Duration) error
	Wait() error
	Done() <-chan struct{}
}

// killer is implemented by processes that report a forced kill.
type killer interface {
	Forced() bool
}

// Session aggregates the video renderer, the optional audio player, and
// the stop/error flags shared by the render loop and the interrupt path.
type Session struct {
	ID     string
	Video  Process
	Stream io.ReadCloser // Renderer output.

	Audio        Process // nil when playing silently.
	AudioBackend string

	stopRequested atomic.Bool

	mu       sync.Mutex
	lastErr  error
	warnings []error

	shutdown    sync.Once
	shutdownErr error
	closed      chan struct{}
}

// New returns a session owning video and its output stream.
func New(id string, video Process, stream io.ReadCloser) *Session {
	return &Session{
		ID:     id,
		Video:  video,
		Stream: stream,
		closed: make(chan struct{}),
	}
}

// AttachAudio records the audio player. A session holds at most one.
func (s *Session) AttachAudio(p Process, backend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Audio != nil {
		return errors.New("session: audio already attached")
	}
	s.Audio = p
	s.AudioBackend = backend
	return nil
}

// RequestStop sets the stop flag and reports whether this call set it.
func (s *Session) RequestStop() bool {
	return s.stopRequested.CompareAndSwap(false, true)
}

func (s *Session) StopRequested() bool {
	return s.stopRequested.Load()
}

// SetErr records err unless an earlier error is already recorded.
func (s *Session) SetErr(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		s.lastErr = err
	}
}

func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Warn records a non-fatal problem.
func (s *Session) Warn(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, err)
}

func (s *Session) Warnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.warnings...)
}

// Shutdown terminates both processes concurrently, each with the given
// grace period, and then closes the output stream. A process that had to be
// killed is recorded as a warning. It runs once; concurrent
// and later callers block until the first call finishes and share its
// result.
func (s *Session) Shutdown(grace time.Duration) error {
	s.shutdown.Do(func() {
		s.RequestStop()
		procs := []Process{s.Video}
		s.mu.Lock()
		if s.Audio != nil {
			procs = append(procs, s.Audio)
		}
		s.mu.Unlock()

		errs := make([]error, len(procs)+1)
		var wg sync.WaitGroup
		for i, p := range procs {
			if p == nil {
				continue
			}
			wg.Add(1)
			go func(i int, p Process) {
				defer wg.Done()
				errs[i] = p.Terminate(grace)
			}(i, p)
		}
		wg.Wait()
		for _, p := range procs {
			if k, ok := p.(killer); ok && k.Forced() {
				s.Warn(fmt.Errorf("%s did not exit within %s and was killed", p.Name(), grace))
			}
		}
		if s.Stream != nil {
			if err := s.Stream.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				errs[len(procs)] = err
			}
		}
		s.shutdownErr = errors.Join(errs...)
		close(s.closed)
	})
	return s.shutdownErr
}

// Closed is closed once Shutdown has completed.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// Terminated reports whether every owned process has exited.
func (s *Session) Terminated() bool {
	if s.Video != nil && s.Video.Running() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Audio == nil || !s.Audio.Running()
}
