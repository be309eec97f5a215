//go:build !windows

package player

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"termreel/internal/frames"
	"termreel/internal/launcher"
	"termreel/internal/model"
	"termreel/internal/session"
)

// keepSession exposes the session a real launcher created.
type keepSession struct {
	*launcher.Launcher
	sess *session.Session
}

func (k *keepSession) Launch(ctx context.Context, cfg model.PlaybackConfig) (*session.Session, error) {
	s, err := k.Launcher.Launch(ctx, cfg)
	k.sess = s
	return s, err
}

// shellRenderer runs script under sh as the renderer, without audio.
func shellRenderer(t *testing.T, script string) (*keepSession, model.PlaybackConfig) {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	input := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := launcher.New(launcher.WithRenderer(model.RendererProfile{
		Name:    "sh",
		Binary:  sh,
		Args:    []string{"-c", script, "renderer", "{input}"},
		Framing: model.FramingStart,
	}))
	return &keepSession{Launcher: l}, model.PlaybackConfig{Input: input, FPS: 100, Width: 80}
}

func TestRunInterruptKillsStubbornRenderer(t *testing.T) {
	l, c := shellRenderer(t, `trap "" TERM; printf '\033[Hone\033[Htwo'; while true; do sleep 0.05; done`)
	disp := &recordingDisplay{rendered: make(chan int, 1)}
	sup := New(
		WithConfig(c),
		WithLauncher(l),
		WithDisplay(disp),
		WithGracePeriod(300*time.Millisecond),
		WithFrameOptions(frames.Options{Framing: model.FramingStart}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := sup.Run(ctx)
		done <- outcome{res, err}
	}()

	select {
	case <-disp.rendered:
	case <-time.After(5 * time.Second):
		t.Fatal("first frame never rendered")
	}
	start := time.Now()
	cancel()

	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after interrupt")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("shutdown took %v", elapsed)
	}
	if out.err != nil || !out.res.Interrupted {
		t.Fatalf("res = %+v, err = %v", out.res, out.err)
	}
	if l.sess.Video.Running() {
		t.Error("renderer still running")
	}
	var killed bool
	for _, w := range out.res.Warnings {
		killed = killed || strings.Contains(w.Error(), "was killed")
	}
	if !killed {
		t.Errorf("warnings = %v, want a forced kill", out.res.Warnings)
	}
	if disp.restores != 1 {
		t.Errorf("restores = %d", disp.restores)
	}
}

func TestRunRealRendererExitCode(t *testing.T) {
	l, c := shellRenderer(t, `printf '\033[Hone\033[Htwo'; exit 3`)
	disp := &recordingDisplay{}
	sup := New(
		WithConfig(c),
		WithLauncher(l),
		WithDisplay(disp),
		WithGracePeriod(2*time.Second),
		WithFrameOptions(frames.Options{Framing: model.FramingStart}),
	)

	res, err := sup.Run(context.Background())
	var se *model.StreamError
	if !errors.As(err, &se) || se.ExitCode != 3 || !se.RendererFailed() {
		t.Fatalf("err = %v, want StreamError with exit code 3", err)
	}
	if res.Stats.Frames != 1 || strings.Join(disp.payloads, ",") != "one" {
		t.Errorf("frames = %d, payloads = %q", res.Stats.Frames, disp.payloads)
	}
	if l.sess.Video.Running() {
		t.Error("renderer still running")
	}
	if disp.restores != 1 {
		t.Errorf("restores = %d", disp.restores)
	}
}
