// Package autostart registers the daemon to start at login.
package autostart

import (
	"errors"
	"os/exec"
	"runtime"
)

var ErrUnsupported = errors.New("autostart is not supported on " + runtime.GOOS)

type AutoStarter interface {
	Install(execPath string) error
	Uninstall() error
	IsInstalled() (bool, error)
}

// runner executes an external command and returns its combined output.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func New() (AutoStarter, error) {
	switch runtime.GOOS {
	case "windows":
		return &WindowsAutoStarter{run: execRunner}, nil
	case "linux":
		dir, err := systemdUserDir()
		if err != nil {
			return nil, err
		}
		return &LinuxAutoStarter{dir: dir, run: execRunner}, nil
	default:
		return nil, ErrUnsupported
	}
}
