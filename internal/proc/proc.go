// Package proc starts external programs and owns their lifetime.
package proc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Output selects what happens to a child's stdout.
type Output int

const (
	OutputDiscard Output = iota
	OutputPipe           // stdout is readable through Handle.Stdout
	OutputPTY            // stdout is a pseudo-terminal, readable through Handle.Stdout
)

// Spec describes a subprocess to start.
type Spec struct {
	Name   string
	Path   string
	Args   []string
	Output Output
	Stderr io.Writer // nil discards stderr
	Rows   int       // PTY size; ignored for other outputs
	Cols   int
}

// Handle is an owned, running subprocess.
type Handle struct {
	name   string
	cmd    *exec.Cmd
	stdout io.ReadCloser

	done    chan struct{}
	waitErr error

	terminate sync.Once
	termErr   error
	forced    atomic.Bool
}

// Start launches spec. The child runs in its own process group so that a
// terminal interrupt reaches only this program, which then terminates the
// child explicitly.
func Start(spec Spec) (*Handle, error) {
	if spec.Path == "" {
		return nil, errors.New("proc: empty path")
	}
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Stderr = spec.Stderr

	h := &Handle{name: spec.Name, cmd: cmd, done: make(chan struct{})}
	if h.name == "" {
		h.name = spec.Path
	}

	switch spec.Output {
	case OutputPTY:
		ptmx, err := startPTY(cmd, spec.Rows, spec.Cols)
		if err != nil {
			return nil, err
		}
		h.stdout = ptyReader{ptmx}
	case OutputPipe:
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		cmd.Stdout = pw
		setProcessGroup(cmd)
		if err := cmd.Start(); err != nil {
			pr.Close()
			pw.Close()
			return nil, err
		}
		// The child holds its own copy; ours must go so EOF is seen on exit.
		pw.Close()
		h.stdout = pr
	default:
		setProcessGroup(cmd)
		if err := cmd.Start(); err != nil {
			return nil, err
		}
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

func (h *Handle) Name() string { return h.name }

func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Stdout returns the child's output stream, or nil for OutputDiscard.
func (h *Handle) Stdout() io.ReadCloser { return h.stdout }

// Done is closed once the child has exited and been reaped.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the child exits and returns its exit error.
func (h *Handle) Wait() error {
	<-h.done
	return h.waitErr
}

// ExitCode returns the child's exit status, or -1 while it is running or
// when it was killed by a signal.
func (h *Handle) ExitCode() int {
	if h.Running() || h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

// Forced reports whether Terminate had to fall back to a kill.
func (h *Handle) Forced() bool { return h.forced.Load() }

// Terminate asks the child to exit and kills it if it is still alive after
// grace. Only the first call acts; later calls return the first result.
func (h *Handle) Terminate(grace time.Duration) error {
	h.terminate.Do(func() {
		h.termErr = h.stop(grace)
	})
	return h.termErr
}

func (h *Handle) stop(grace time.Duration) error {
	if !h.Running() {
		return nil
	}
	if err := signalTerminate(h.cmd.Process); err != nil && !isGone(err) {
		return fmt.Errorf("terminate %s: %w", h.name, err)
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-h.done:
		return nil
	case <-t.C:
	}

	h.forced.Store(true)
	if err := kill(h.cmd.Process); err != nil && !isGone(err) {
		return fmt.Errorf("kill %s: %w", h.name, err)
	}
	select {
	case <-h.done:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("kill %s: process %d did not exit", h.name, h.PID())
	}
}

// Close releases the read side of the output stream.
func (h *Handle) Close() error {
	if h.stdout == nil {
		return nil
	}
	return h.stdout.Close()
}

func isGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH)
}

// ptyReader maps the EIO a pseudo-terminal reports after the child hangs up
// to a clean end of stream.
type ptyReader struct {
	f *os.File
}

func (r ptyReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && errors.Is(err, syscall.EIO) {
		err = io.EOF
	}
	return n, err
}

func (r ptyReader) Close() error { return r.f.Close() }
