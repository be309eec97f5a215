package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"termreel/internal/model"
	"termreel/internal/proc"
)

type fakeProc struct {
	name   string
	stdout io.ReadCloser

	mu         sync.Mutex
	terminated int
	done       chan struct{}
}

func newFakeProc(name string) *fakeProc {
	return &fakeProc{name: name, stdout: io.NopCloser(strings.NewReader("")), done: make(chan struct{})}
}

func (p *fakeProc) Name() string          { return p.name }
func (p *fakeProc) PID() int              { return 42 }
func (p *fakeProc) Wait() error           { <-p.done; return nil }
func (p *fakeProc) Done() <-chan struct{} { return p.done }
func (p *fakeProc) Stdout() io.ReadCloser { return p.stdout }

func (p *fakeProc) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated == 0
}

func (p *fakeProc) Terminate(time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminated == 0 {
		close(p.done)
	}
	p.terminated++
	return nil
}

type recordingStarter struct {
	mu    sync.Mutex
	specs []proc.Spec
	procs []*fakeProc
	fail  map[string]error // by Spec.Name
}

func (r *recordingStarter) start(spec proc.Spec) (Started, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	if err := r.fail[spec.Name]; err != nil {
		return nil, err
	}
	p := newFakeProc(spec.Name)
	r.procs = append(r.procs, p)
	return p, nil
}

func lookOnly(found ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
}

func tempInput(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestBuildRendererArgs(t *testing.T) {
	p := model.RendererProfile{
		Args:   []string{"--w={width}", "--h={height}", "--fps={fps}", "--algo={format}", "{input}"},
		Format: "plain",
	}
	tests := []struct {
		name string
		cfg  model.PlaybackConfig
		want []string
	}{
		{
			name: "explicit height",
			cfg:  model.PlaybackConfig{Input: "a b.mp4", FPS: 24, Width: 80, Height: 70},
			want: []string{"--w=80", "--h=70", "--fps=24", "--algo=plain", "a b.mp4"},
		},
		{
			name: "auto height drops the argument",
			cfg:  model.PlaybackConfig{Input: "v.mkv", FPS: 30, Width: 120},
			want: []string{"--w=120", "--fps=30", "--algo=plain", "v.mkv"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRendererArgs(p, tt.cfg)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildAudioArgs(t *testing.T) {
	b := model.AudioBackend{Args: []string{"-nodisp", "{input}"}}
	got := BuildAudioArgs(b, "/m/x.mp4")
	want := []string{"-nodisp", "/m/x.mp4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSelectAudioBackends(t *testing.T) {
	got, err := SelectAudioBackends([]string{"afplay", " MPV "})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "afplay" || got[1].Name != "mpv" {
		t.Errorf("unexpected order: %+v", got)
	}
	if _, err := SelectAudioBackends([]string{"winamp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	all, _ := SelectAudioBackends(nil)
	if len(all) != len(DefaultAudioBackends()) {
		t.Errorf("empty selection should keep defaults")
	}
}

func TestDelimiterEscapes(t *testing.T) {
	tests := []struct{ in, want string }{
		{`\x1b[H`, "\x1b[H"},
		{`\033[H`, "\x1b[H"},
		{`\e[H`, "\x1b[H"},
		{`\f`, "\f"},
		{`--frame--\n`, "--frame--\n"},
	}
	for _, tt := range tests {
		if got := UnescapeDelimiter(tt.in); got != tt.want {
			t.Errorf("UnescapeDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := EscapeDelimiter("\x1b[H"); got != `\x1b[H` {
		t.Errorf("EscapeDelimiter = %q", got)
	}
}

func TestLaunchMissingInput(t *testing.T) {
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "ffplay")))
	_, err := l.Launch(context.Background(), model.PlaybackConfig{Input: "/does/not/exist.mp4", FPS: 24, Width: 80})

	var le *model.LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("want LaunchError, got %v", err)
	}
	if !errors.Is(err, model.ErrInputMissing) {
		t.Errorf("want ErrInputMissing, got %v", err)
	}
	if len(rs.specs) != 0 {
		t.Errorf("started %d processes, want 0", len(rs.specs))
	}
}

func TestLaunchRendererNotFound(t *testing.T) {
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("ffplay")))
	_, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80, Sound: true})
	if !errors.Is(err, model.ErrRendererNotFound) {
		t.Fatalf("want ErrRendererNotFound, got %v", err)
	}
	if len(rs.specs) != 0 {
		t.Errorf("started %d processes, want 0", len(rs.specs))
	}
}

func TestLaunchRendererStartFails(t *testing.T) {
	rs := &recordingStarter{fail: map[string]error{"mpv-tct": os.ErrPermission}}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "ffplay")))
	_, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80, Sound: true})
	var le *model.LaunchError
	if !errors.As(err, &le) || !errors.Is(err, os.ErrPermission) {
		t.Fatalf("want LaunchError wrapping ErrPermission, got %v", err)
	}
	if len(rs.specs) != 1 {
		t.Errorf("audio must not start when the renderer fails; specs = %d", len(rs.specs))
	}
}

func TestLaunchWithAudio(t *testing.T) {
	in := tempInput(t)
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "ffplay")), WithSessionID("s-1"))
	s, err := l.Launch(context.Background(), model.PlaybackConfig{Input: in, FPS: 24, Width: 80, Height: 40, Sound: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != "s-1" {
		t.Errorf("ID = %q", s.ID)
	}
	if len(rs.specs) != 2 {
		t.Fatalf("started %d processes, want 2", len(rs.specs))
	}
	video, audio := rs.specs[0], rs.specs[1]
	if video.Output != proc.OutputPipe || video.Path != "/usr/bin/mpv" {
		t.Errorf("video spec = %+v", video)
	}
	if !contains(video.Args, "--vo-tct-height=40") || video.Args[len(video.Args)-1] != in {
		t.Errorf("video args = %q", video.Args)
	}
	if audio.Name != "ffplay" || audio.Output != proc.OutputDiscard || audio.Args[len(audio.Args)-1] != in {
		t.Errorf("audio spec = %+v", audio)
	}
	if s.AudioBackend != "ffplay" || s.Audio == nil {
		t.Errorf("audio not attached: %q", s.AudioBackend)
	}
	if len(s.Warnings()) != 0 {
		t.Errorf("unexpected warnings: %v", s.Warnings())
	}
}

func TestLaunchFallsBackToNextAudioBackend(t *testing.T) {
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "afplay")))
	s, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80, Sound: true})
	if err != nil {
		t.Fatal(err)
	}
	// ffplay is missing; mpv is the second preference.
	if s.AudioBackend != "mpv" {
		t.Errorf("AudioBackend = %q, want mpv", s.AudioBackend)
	}
}

func TestLaunchNoAudioBackendWarns(t *testing.T) {
	rs := &recordingStarter{}
	l := New(
		WithStarter(rs.start),
		WithLookPath(lookOnly("mpv")),
		WithAudioBackends([]model.AudioBackend{{Name: "ffplay", Binary: "ffplay"}}),
	)
	s, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80, Sound: true})
	if err != nil {
		t.Fatal(err)
	}
	if s.Audio != nil {
		t.Error("no audio process expected")
	}
	ws := s.Warnings()
	if len(ws) != 1 || !errors.Is(ws[0], model.ErrNoAudioBackend) {
		t.Fatalf("warnings = %v", ws)
	}
	var ae *model.AudioLaunchError
	if !errors.As(ws[0], &ae) {
		t.Errorf("warning should be AudioLaunchError: %T", ws[0])
	}
}

func TestLaunchAudioStartFailureIsNonFatal(t *testing.T) {
	rs := &recordingStarter{fail: map[string]error{"ffplay": errors.New("exec format error")}}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "ffplay")))
	s, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80, Sound: true})
	if err != nil {
		t.Fatalf("audio failure must not abort: %v", err)
	}
	if s.Audio != nil || len(s.Warnings()) != 1 {
		t.Errorf("audio = %v, warnings = %v", s.Audio, s.Warnings())
	}
}

func TestLaunchSilentStartsOneProcess(t *testing.T) {
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv", "ffplay")))
	s, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80})
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.specs) != 1 || s.Audio != nil {
		t.Errorf("specs = %d, audio = %v", len(rs.specs), s.Audio)
	}
}

func TestLaunchPTYSizing(t *testing.T) {
	p := DefaultRenderer()
	p.PTY = true
	rs := &recordingStarter{}
	l := New(WithRenderer(p), WithStarter(rs.start), WithLookPath(lookOnly("mpv")))
	if _, err := l.Launch(context.Background(), model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 100}); err != nil {
		t.Fatal(err)
	}
	spec := rs.specs[0]
	if spec.Output != proc.OutputPTY || spec.Cols != 100 || spec.Rows != 50 {
		t.Errorf("spec = %+v", spec)
	}
}

func TestLaunchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rs := &recordingStarter{}
	l := New(WithStarter(rs.start), WithLookPath(lookOnly("mpv")))
	if _, err := l.Launch(ctx, model.PlaybackConfig{Input: tempInput(t), FPS: 24, Width: 80}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(rs.specs) != 0 {
		t.Error("nothing should start")
	}
}

func TestPlan(t *testing.T) {
	in := tempInput(t)
	l := New(WithLookPath(lookOnly("mpv", "cvlc")))
	pl, err := l.Plan(model.PlaybackConfig{Input: in, FPS: 12, Width: 60, Sound: true})
	if err != nil {
		t.Fatal(err)
	}
	if pl.RendererPath != "/usr/bin/mpv" || pl.AudioBackend != "mpv" {
		t.Errorf("plan = %+v", pl)
	}
	if contains(pl.RendererArgs, "--vo-tct-height=") {
		t.Errorf("auto height must drop the height argument: %q", pl.RendererArgs)
	}
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
