//go:build windows

package proc

import (
	"errors"
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

// Windows has no SIGTERM; terminating is immediate.
func signalTerminate(p *os.Process) error {
	return p.Kill()
}

func kill(p *os.Process) error {
	return p.Kill()
}

func startPTY(*exec.Cmd, int, int) (*os.File, error) {
	return nil, errors.New("proc: pseudo-terminal output is not supported on windows")
}
