package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"termreel/internal/player"
	"termreel/internal/progress"
	"termreel/internal/util/format"
)

// Reporter prints notices to a side channel (stderr) and keeps the final
// result for the summary. Warnings raised while frames are on screen are
// held until the session result arrives, after the terminal is restored.
type Reporter struct {
	out    io.Writer
	styles Styles

	mu      sync.Mutex
	playing bool
	held    []string
	result  *progress.Result
}

// NewReporter writes to out, typically os.Stderr.
func NewReporter(out io.Writer, st Styles) *Reporter {
	return &Reporter{out: out, styles: st}
}

func (r *Reporter) Update(u progress.Update) {
	if u.Stage == progress.StageRunning {
		r.mu.Lock()
		r.playing = true
		r.mu.Unlock()
	}
	if u.Stage == progress.StageStopping && u.Message == player.StoppingNotice {
		r.println(r.styles.Faint.Render(u.Message))
	}
}

func (r *Reporter) Log(l progress.Log) {
	if l.Stream == progress.StreamAudio && l.Line == "audio finished" {
		return
	}
	line := r.styles.Warning.Render("warning: " + l.Line)
	r.mu.Lock()
	if r.playing {
		r.held = append(r.held, line)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	r.println(line)
}

func (r *Reporter) Result(res progress.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = &res
	r.playing = false
	for _, line := range r.held {
		fmt.Fprintln(r.out, line)
	}
	r.held = nil
}

// Last returns the result of the most recent session, if any.
func (r *Reporter) Last() (progress.Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return progress.Result{}, false
	}
	return *r.result, true
}

func (r *Reporter) println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s)
}

// Summary describes a finished session in one short block.
func Summary(st Styles, res progress.Result) string {
	var b strings.Builder
	status := st.Success.Render("✓ finished")
	switch {
	case res.Err != nil:
		status = st.Error.Render("✗ failed")
	case res.Interrupted:
		status = st.Warning.Render("■ stopped")
	}
	b.WriteString(status)
	b.WriteString(" ")
	b.WriteString(st.Faint.Render(fmt.Sprintf("%d frames, %s in %s, %s, max lag %s",
		res.Frames,
		format.Size(res.Bytes),
		format.Duration(res.Elapsed),
		format.Rate(res.EffectiveFPS),
		format.Duration(res.MaxLag),
	)))
	if res.AudioBackend != "" {
		b.WriteString(st.Faint.Render(" • audio: " + res.AudioBackend))
	}
	return b.String()
}
