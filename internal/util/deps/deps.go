package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"termreel/internal/model"
)

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(string) (string, error)

// Find resolves binary. Names containing a path separator are checked
// directly; bare names are looked up in PATH.
func Find(binary string) (string, error) {
	if binary == "" {
		return "", fmt.Errorf("empty executable name")
	}
	if strings.ContainsRune(binary, os.PathSeparator) || strings.ContainsRune(binary, '/') {
		fi, err := os.Stat(binary)
		if err != nil {
			return "", fmt.Errorf("could not find %q: %w", binary, err)
		}
		if fi.IsDir() {
			return "", fmt.Errorf("%q is a directory", binary)
		}
		return binary, nil
	}
	p, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("could not find %s in PATH: %w", binary, err)
	}
	return p, nil
}

// FindFFprobe returns the path to the ffprobe binary in PATH.
func FindFFprobe() (string, error) {
	if p, err := exec.LookPath("ffprobe"); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find ffprobe in PATH")
}

// FirstAvailable returns the first backend whose binary resolves, in list
// order, together with its path.
func FirstAvailable(backends []model.AudioBackend, look LookPathFunc) (model.AudioBackend, string, error) {
	if look == nil {
		look = Find
	}
	for _, b := range backends {
		if p, err := look(b.Binary); err == nil {
			return b, p, nil
		}
	}
	return model.AudioBackend{}, "", model.ErrNoAudioBackend
}
