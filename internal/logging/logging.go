// Package logging builds the process logger. Diagnostics go to stderr or a
// log file, never to stdout, which carries the frames.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"termreel/internal/dirs"
	"termreel/internal/util"
)

// AutoFile selects the default log file under the cache directory.
const AutoFile = "auto"

// Options controls logger construction.
type Options struct {
	Verbose bool
	File    string    // empty logs to Console; AutoFile or a path logs JSON there
	Console io.Writer // defaults to os.Stderr
}

// New returns a logger and a closer for the underlying file, if any.
// Console output is warn level unless Verbose; file output is debug level.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	if opts.File != "" {
		path := opts.File
		if path == AutoFile {
			p, err := DefaultFile()
			if err != nil {
				return zerolog.Nop(), nopCloser{}, err
			}
			path = p
		}
		f, err := util.OpenLogFile(path)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, err
		}
		l := zerolog.New(f).With().Timestamp().Logger().Level(zerolog.DebugLevel)
		return l, f, nil
	}

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.WarnLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(level)
	return l, nopCloser{}, nil
}

// DefaultFile is the log path used for AutoFile.
func DefaultFile() (string, error) {
	c, err := dirs.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(c, "termreel.log"), nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
