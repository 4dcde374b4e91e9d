//go:build windows

package executil

import (
	"os/exec"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

func (c *Cmd) prepareProcessGroupTermination() {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// TerminateProcessGroup kills the command's process tree. There is no
// SIGTERM equivalent for console processes we didn't create ourselves,
// so taskkill with /t and /f is the reliable way to take the whole
// tree down.
func (c *Cmd) TerminateProcessGroup() error {
	kill := exec.Command("taskkill", "/t", "/f", "/pid", strconv.Itoa(c.Process.Pid))
	err := kill.Run()
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}
