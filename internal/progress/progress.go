package progress

import "time"

// Stage identifies a step in a playback session's life.
type Stage string

const (
	StageStarting Stage = "starting"
	StageRunning  Stage = "running"
	StageStopping Stage = "stopping"
	StageStopped  Stage = "stopped"
	StageFailed   Stage = "failed"
)

// LogStream indicates which source produced a log line.
type LogStream int

const (
	StreamPlayer   LogStream = iota // supervisor notices such as forced kills
	StreamRenderer                  // renderer output stream
	StreamAudio                     // audio backend selection and exit
)

// Update conveys a stage change for a session.
type Update struct {
	SessionID string
	Stage     Stage
	Message   string // short human-friendly status line
}

// Log is a non-fatal notice associated with a session.
type Log struct {
	SessionID string
	Stream    LogStream
	Line      string
}

// Result is emitted once per session when playback ends.
type Result struct {
	SessionID    string
	Frames       int
	Bytes        int64
	Elapsed      time.Duration
	EffectiveFPS float64
	MaxLag       time.Duration
	AudioBackend string // empty when silent
	Interrupted  bool
	Err          error // nil on success
}

// Reporter is implemented by any observer interested in playback events.
// Implementations must not write to the frame output.
type Reporter interface {
	Update(u Update)
	Log(l Log)
	Result(r Result)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Update(Update) {}
func (Nop) Log(Log)       {}
func (Nop) Result(Result) {}
