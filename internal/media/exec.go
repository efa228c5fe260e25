//go:build !windows

package media

import (
	"os/exec"
)

// Command is a drop-in replacement for exec.Command with hidden windows on Windows.
func Command(name string, arg ...string) *exec.Cmd {
	cmd := exec.Command(name, arg...)
	return cmd
}
