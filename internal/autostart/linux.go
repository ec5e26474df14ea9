package autostart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/mitchellh/go-homedir"
)

const unitName = "drivemirror.service"

var unitTemplate = template.Must(template.New("service").Parse(`[Unit]
Description=Drive Mirror Daemon
After=network-online.target

[Service]
ExecStart="{{.ExecPath}}" serve
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))

type LinuxAutoStarter struct {
	dir string
	run runner
}

func systemdUserDir() (string, error) {
	return homedir.Expand("~/.config/systemd/user")
}

func (l *LinuxAutoStarter) unitPath() string {
	return filepath.Join(l.dir, unitName)
}

func writeUnit(w io.Writer, execPath string) error {
	return unitTemplate.Execute(w, map[string]string{"ExecPath": execPath})
}

func (l *LinuxAutoStarter) Install(execPath string) error {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return err
	}

	f, err := os.Create(l.unitPath())
	if err != nil {
		return fmt.Errorf("failed to create service file: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	if err := writeUnit(f, execPath); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", unitName},
		{"systemctl", "--user", "start", unitName},
	}

	for _, args := range cmds {
		if out, err := l.run(args[0], args[1:]...); err != nil {
			return fmt.Errorf("failed to run %v: %w\n%s", args, err, out)
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	cmds := [][]string{
		{"systemctl", "--user", "stop", unitName},
		{"systemctl", "--user", "disable", unitName},
	}

	for _, args := range cmds {
		_, _ = l.run(args[0], args[1:]...)
	}

	if err := os.Remove(l.unitPath()); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	_, err := os.Stat(l.unitPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}
