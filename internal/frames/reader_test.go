package frames

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"termreel/internal/model"
)

func collect(t *testing.T, r *Reader) []model.FrameUnit {
	t.Helper()
	ch, err := r.Frames(context.Background())
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	var got []model.FrameUnit
	for f := range ch {
		got = append(got, f)
	}
	return got
}

func TestReaderSegments(t *testing.T) {
	const d = DefaultDelimiter
	tests := []struct {
		name    string
		framing model.Framing
		input   string
		want    []string
	}{
		{
			name:  "start framing drops trailing frame",
			input: d + "f0" + d + "f1" + d + "f2",
			want:  []string{"f0", "f1"},
		},
		{
			name:  "start framing drops preamble",
			input: "\x1b[?25l" + d + "f0" + d,
			want:  []string{"f0"},
		},
		{
			name:  "empty frame between delimiters",
			input: d + d + "x" + d,
			want:  []string{"", "x"},
		},
		{
			name:  "no delimiter at all",
			input: "just some noise",
			want:  nil,
		},
		{
			name:  "empty stream",
			input: "",
			want:  nil,
		},
		{
			name:    "end framing",
			framing: model.FramingEnd,
			input:   "a\x00b\x00partial",
			want:    []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Options{Framing: tt.framing}
			if tt.framing == model.FramingEnd {
				opts.Delimiter = []byte{0}
			}
			got := collect(t, NewReader(strings.NewReader(tt.input), opts))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d frames, want %d: %q", len(got), len(tt.want), got)
			}
			for i, f := range got {
				if f.Index != i {
					t.Errorf("frame %d has index %d", i, f.Index)
				}
				if string(f.Data) != tt.want[i] {
					t.Errorf("frame %d = %q, want %q", i, f.Data, tt.want[i])
				}
			}
		})
	}
}

// oneByteReader forces the delimiter to straddle read boundaries.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestReaderCountsCompleteSegments(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		var buf bytes.Buffer
		buf.WriteString("junk")
		for i := 0; i < n; i++ {
			buf.WriteString(DefaultDelimiter)
			buf.WriteString(strings.Repeat("#", i%13))
		}
		// Closes segment n-1 and opens an incomplete n-th.
		buf.WriteString(DefaultDelimiter + "incomplete")

		got := collect(t, NewReader(oneByteReader{&buf}, Options{}))
		if len(got) != n {
			t.Fatalf("n=%d: got %d frames", n, len(got))
		}
		for i, f := range got {
			if f.Index != i || len(f.Data) != i%13 {
				t.Fatalf("n=%d: frame %d = {%d, %q}", n, i, f.Index, f.Data)
			}
		}
	}
}

func TestReaderNotRestartable(t *testing.T) {
	r := NewReader(strings.NewReader(""), Options{})
	if _, err := r.Frames(context.Background()); err != nil {
		t.Fatalf("first Frames: %v", err)
	}
	if _, err := r.Frames(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Frames err = %v, want ErrAlreadyStarted", err)
	}
}

func TestReaderBackpressure(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewReader(pr, Options{Buffer: 2})
	ch, err := r.Frames(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Five complete frames; the writer must stall once the buffer is full
	// and the producer holds one more frame.
	written := make(chan int, 1)
	go func() {
		n := 0
		for i := 0; i < 6; i++ {
			if _, err := pw.Write([]byte(DefaultDelimiter + "x")); err != nil {
				break
			}
			n++
		}
		written <- n
		pw.Close()
	}()

	select {
	case <-written:
		t.Fatal("writer finished while nothing was consumed")
	case <-time.After(100 * time.Millisecond):
	}
	if len(ch) != 2 {
		t.Fatalf("buffered frames = %d, want 2", len(ch))
	}

	count := 0
	for range ch {
		count++
	}
	if n := <-written; n != 6 {
		t.Fatalf("writer wrote %d chunks, want 6", n)
	}
	if count != 5 {
		t.Fatalf("got %d frames, want 5", count)
	}
	if frames, _ := r.Produced(); frames != 5 {
		t.Fatalf("Produced() = %d, want 5", frames)
	}
}

func TestReaderFrameTooLarge(t *testing.T) {
	d := DefaultDelimiter
	input := d + strings.Repeat("x", 64) + d
	r := NewReader(strings.NewReader(input), Options{MaxFrameBytes: 16})
	if got := collect(t, r); len(got) != 0 {
		t.Fatalf("got %d frames, want 0", len(got))
	}
	if err := r.Err(); err == nil {
		t.Fatal("expected error for oversized frame")
	}
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReaderReportsReadError(t *testing.T) {
	boom := errors.New("boom")
	r := NewReader(io.MultiReader(strings.NewReader(DefaultDelimiter+"a"+DefaultDelimiter), failingReader{boom}), Options{})
	got := collect(t, r)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("Err() = %v, want boom", r.Err())
	}
}

func TestReaderStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr, Options{Buffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Frames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for i := 0; i < 4; i++ {
			if _, err := pw.Write([]byte(DefaultDelimiter + "y")); err != nil {
				return
			}
		}
	}()
	<-ch
	cancel()
	pw.CloseWithError(io.ErrClosedPipe)

	wctx, wcancel := context.WithTimeout(context.Background(), time.Second)
	defer wcancel()
	if err := r.Wait(wctx); err != nil {
		t.Fatalf("producer did not exit: %v", err)
	}
}

func TestReaderCursorFraming(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "rows counted from zero",
			input: "\x1b[0;0fa\x1b[1;0fb\x1b[0;0fc\x1b[1;0fd\x1b[0;0f",
			want:  []string{"\x1b[0;0fa\x1b[1;0fb", "\x1b[0;0fc\x1b[1;0fd"},
		},
		{
			name:  "bare cursor home",
			input: "\x1b[2J\x1b[Hx\x1b[Hy\x1b[H",
			want:  []string{"\x1b[Hx", "\x1b[Hy"},
		},
		{
			name:  "colour sequences are not boundaries",
			input: "\x1b[1;1f\x1b[31mr\x1b[2;1f\x1b[0ms\x1b[1;1f",
			want:  []string{"\x1b[1;1f\x1b[31mr\x1b[2;1f\x1b[0ms"},
		},
		{
			name:  "single row frames",
			input: "\x1b[5;1Ha\x1b[5;1Hb\x1b[5;1H",
			want:  []string{"\x1b[5;1Ha", "\x1b[5;1Hb"},
		},
		{
			name:  "trailing frame dropped",
			input: "\x1b[1;1fa\x1b[1;1fb",
			want:  []string{"\x1b[1;1fa"},
		},
		{
			name:  "no positioning",
			input: "\x1b[31mnoise",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, src := range []io.Reader{strings.NewReader(tt.input), oneByteReader{strings.NewReader(tt.input)}} {
				got := collect(t, NewReader(src, Options{Framing: model.FramingCursor}))
				if len(got) != len(tt.want) {
					t.Fatalf("got %d frames, want %d: %q", len(got), len(tt.want), got)
				}
				for i, f := range got {
					if f.Index != i || string(f.Data) != tt.want[i] {
						t.Errorf("frame %d = {%d, %q}, want %q", i, f.Index, f.Data, tt.want[i])
					}
				}
			}
		})
	}
}

// testdata/tct_3frames.ans holds three 4x3 frames in the layout of mpv's
// tct output: a hide-cursor and clear preamble, then every row positioned
// with CSI row;col f and drawn as 24-bit coloured half blocks.
func TestReaderTctOutput(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "tct_3frames.ans"))
	if err != nil {
		t.Fatal(err)
	}
	got := collect(t, NewReader(oneByteReader{bytes.NewReader(raw)}, Options{Framing: model.FramingCursor}))
	// The third frame has no following boundary and is dropped.
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
	for i, f := range got {
		if !bytes.HasPrefix(f.Data, []byte("\x1b[2;1f")) {
			t.Errorf("frame %d does not start at the first row: %q", i, f.Data[:8])
		}
		if n := bytes.Count(f.Data, []byte("\u2584")); n != 12 {
			t.Errorf("frame %d has %d cells, want 12", i, n)
		}
		if bytes.Contains(f.Data, []byte("\x1b[2J")) {
			t.Errorf("frame %d contains the preamble", i)
		}
	}
}

func TestReaderEmitsFrameWithoutFurtherInput(t *testing.T) {
	tests := []struct {
		name    string
		framing model.Framing
		chunk   string
		want    string
	}{
		{"start framing after preamble", model.FramingStart, "pre\x1b[Hone\x1b[H", "one"},
		{"cursor framing after preamble", model.FramingCursor, "pre\x1b[1;1fone\x1b[1;1f", "\x1b[1;1fone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr, pw := io.Pipe()
			defer pw.Close()
			r := NewReader(pr, Options{Framing: tt.framing})
			ch, err := r.Frames(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			// The writer stays open, so the frame must be emitted from the
			// bytes already read.
			go func() { _, _ = pw.Write([]byte(tt.chunk)) }()

			select {
			case f := <-ch:
				if string(f.Data) != tt.want {
					t.Fatalf("frame = %q, want %q", f.Data, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("complete frame was held back")
			}
		})
	}
}
