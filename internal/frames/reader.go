// Package frames segments a renderer's output stream into discrete frames.
package frames

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"termreel/internal/model"
)

// DefaultDelimiter is the cursor-home sequence used by start and end
// framing when no delimiter is configured.
const DefaultDelimiter = "\x1b[H"

const (
	DefaultBuffer        = 8
	DefaultMaxFrameBytes = 8 * 1024 * 1024
)

// ErrAlreadyStarted is returned when Frames is called twice on one Reader.
var ErrAlreadyStarted = errors.New("frames: reader already started")

// Options control frame segmentation and buffering.
type Options struct {
	Delimiter     []byte
	Framing       model.Framing
	Buffer        int // Channel capacity; the producer blocks when it is full.
	MaxFrameBytes int // Largest accepted frame; larger frames fail the stream.
}

func (o Options) withDefaults() Options {
	if len(o.Delimiter) == 0 {
		o.Delimiter = []byte(DefaultDelimiter)
	}
	if o.Framing == "" {
		o.Framing = model.FramingStart
	}
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = DefaultMaxFrameBytes
	}
	return o
}

// Reader turns a byte stream into an ordered, finite sequence of FrameUnits.
// A Reader is single-use.
type Reader struct {
	src     io.Reader
	opts    Options
	started atomic.Bool
	done    chan struct{}

	mu     sync.Mutex
	err    error
	frames int
	bytes  int64
}

// NewReader wraps src. Zero-valued options fall back to the defaults.
func NewReader(src io.Reader, opts Options) *Reader {
	return &Reader{
		src:  src,
		opts: opts.withDefaults(),
		done: make(chan struct{}),
	}
}

// Frames starts the producer and returns the bounded frame channel. The
// channel is closed when the stream ends, fails, or ctx is canceled.
func (r *Reader) Frames(ctx context.Context) (<-chan model.FrameUnit, error) {
	if !r.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}
	out := make(chan model.FrameUnit, r.opts.Buffer)
	go r.produce(ctx, out)
	return out, nil
}

func (r *Reader) produce(ctx context.Context, out chan<- model.FrameUnit) {
	defer close(r.done)
	defer close(out)

	sc := bufio.NewScanner(r.src)
	initial := 64 * 1024
	if initial > r.opts.MaxFrameBytes {
		initial = r.opts.MaxFrameBytes
	}
	sc.Buffer(make([]byte, 0, initial), r.opts.MaxFrameBytes)
	sc.Split(Split(r.opts.Delimiter, r.opts.Framing))

	index := 0
	for sc.Scan() {
		data := append([]byte(nil), sc.Bytes()...)
		select {
		case out <- model.FrameUnit{Index: index, Data: data}:
		case <-ctx.Done():
			return
		}
		index++
		r.mu.Lock()
		r.frames++
		r.bytes += int64(len(data))
		r.mu.Unlock()
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			err = fmt.Errorf("frame exceeds %d bytes: %w", r.opts.MaxFrameBytes, err)
		}
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}
}

// Err returns the read failure that ended the stream, or nil when the stream
// was exhausted normally. It is meaningful once the frame channel is closed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Produced returns how many frames and payload bytes were handed out so far.
func (r *Reader) Produced() (int, int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.bytes
}

// Wait blocks until the producer goroutine has exited or ctx is done.
func (r *Reader) Wait(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
