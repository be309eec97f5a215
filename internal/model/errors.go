package model

import (
	"errors"
	"fmt"
)

var (
	ErrInputMissing     = errors.New("input file does not exist")
	ErrRendererNotFound = errors.New("renderer executable not found in PATH")
	ErrNoAudioBackend   = errors.New("no audio backend found in PATH")
)

// ConfigError reports an invalid user option. It is raised before any
// subprocess is launched.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LaunchError reports a failure to start the video renderer.
type LaunchError struct {
	Program string
	Err     error
}

func (e *LaunchError) Error() string {
	if e.Program == "" {
		return fmt.Sprintf("launch: %v", e.Err)
	}
	return fmt.Sprintf("launch %s: %v", e.Program, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// AudioLaunchError is non-fatal; playback continues without sound.
type AudioLaunchError struct {
	Backend string
	Err     error
}

func (e *AudioLaunchError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("audio disabled: %v", e.Err)
	}
	return fmt.Sprintf("audio disabled: %s: %v", e.Backend, e.Err)
}

func (e *AudioLaunchError) Unwrap() error { return e.Err }

// StreamError reports a broken renderer output stream or a renderer that
// exited with a non-zero status. ExitCode is -1 when the process status is
// not the cause.
type StreamError struct {
	ExitCode int
	Err      error
}

func (e *StreamError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("renderer exited with status %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("frame stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// RendererFailed reports whether the stream error came from the renderer's
// exit status rather than from reading its output.
func (e *StreamError) RendererFailed() bool {
	return e.ExitCode > 0
}
