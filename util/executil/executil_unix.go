//go:build !windows

package executil

import (
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// prepareProcessGroupTermination puts the command into its own process
// group, so that TerminateProcessGroup can signal the command and all
// its children together.
func (c *Cmd) prepareProcessGroupTermination() {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
}

// TerminateProcessGroup sends SIGTERM to the command's process group
// and SIGKILL after a grace period in case the group is still running.
func (c *Cmd) TerminateProcessGroup() error {
	// The process group ID is the PID of the group leader, which is the
	// command itself because of Setpgid.
	pgid := c.Process.Pid

	err := unix.Kill(-pgid, unix.SIGTERM)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		return errors.WithStack(err)
	}

	select {
	case <-c.waitDone:
		// The process group leader exited within the grace period, no
		// need to kill the group.
	case <-time.After(processGroupTerminationGracePeriod):
		err = unix.Kill(-pgid, unix.SIGKILL)
		if err != nil && !errors.Is(err, unix.ESRCH) {
			return errors.WithStack(err)
		}
	}
	return nil
}
