//go:build unix

package align

import (
	"os/exec"
	"syscall"
)

// setGroupKill puts the command in its own process group and kills the
// whole group when the context ends.
func setGroupKill(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
