package autostart

import (
	"bytes"
	"fmt"
)

const taskName = `\DriveMirror\Daemon`

// WindowsAutoStarter registers a logon task in the Task Scheduler. The task
// runs with the user's normal rights.
type WindowsAutoStarter struct {
	run runner
}

func (w *WindowsAutoStarter) schtasks(args ...string) ([]byte, error) {
	return w.run("schtasks", args...)
}

// notFound reports whether schtasks failed because the task does not exist.
func notFound(out []byte) bool {
	return bytes.Contains(bytes.ToLower(out), []byte("cannot find"))
}

func (w *WindowsAutoStarter) Install(execPath string) error {
	out, err := w.schtasks("/Create",
		"/TN", taskName,
		"/TR", fmt.Sprintf(`"%s" serve`, execPath),
		"/SC", "ONLOGON",
		"/RL", "LIMITED",
		"/F")
	if err != nil {
		return fmt.Errorf("failed to register logon task %s: %w\n%s", taskName, err, out)
	}

	// ONLOGON only fires on the next logon
	if out, err := w.schtasks("/Run", "/TN", taskName); err != nil {
		return fmt.Errorf("failed to start logon task %s: %w\n%s", taskName, err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	_, _ = w.schtasks("/End", "/TN", taskName)

	out, err := w.schtasks("/Delete", "/TN", taskName, "/F")
	if err != nil && !notFound(out) {
		return fmt.Errorf("failed to remove logon task %s: %w\n%s", taskName, err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	out, err := w.schtasks("/Query", "/TN", taskName)
	switch {
	case err == nil:
		return true, nil
	case notFound(out):
		return false, nil
	default:
		return false, fmt.Errorf("failed to query logon task %s: %w\n%s", taskName, err, out)
	}
}
