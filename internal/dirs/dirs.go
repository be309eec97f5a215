// Package dirs resolves where termreel keeps its config file and log.
package dirs

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "termreel"

// location describes one per-user directory on each platform.
type location struct {
	xdgEnv   string                 // Linux override, e.g. XDG_CONFIG_HOME
	linux    string                 // Linux default under $HOME
	darwin   string                 // macOS default under $HOME
	fallback func() (string, error) // other platforms
}

var (
	configLoc = location{"XDG_CONFIG_HOME", ".config", "Library/Application Support", os.UserConfigDir}
	cacheLoc  = location{"XDG_CACHE_HOME", ".cache", "Library/Caches", os.UserCacheDir}
)

func (l location) resolve() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(l.xdgEnv); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}
	var sub string
	switch runtime.GOOS {
	case "linux":
		sub = l.linux
	case "darwin":
		sub = l.darwin
	default:
		base, err := l.fallback()
		if err != nil {
			return "", err
		}
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, filepath.FromSlash(sub), appName), nil
}

// ConfigDir holds config.{toml,yaml,json}.
func ConfigDir() (string, error) { return configLoc.resolve() }

// CacheDir holds the auto log file.
func CacheDir() (string, error) { return cacheLoc.resolve() }

// ConfigFile is the path `termreel config init` writes.
func ConfigFile() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.toml"), nil
}

// Ensure creates path and its parents.
func Ensure(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	return os.MkdirAll(path, 0o755)
}
