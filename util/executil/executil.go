package executil

import (
	"bytes"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alessio/shellescape"
	"github.com/pkg/errors"
)

const (
	// Duration we wait after asking the process group to terminate
	// before we kill it. When a use case arises for configuring the
	// grace period, we can make this a configurable attribute of Cmd.
	processGroupTerminationGracePeriod = 5 * time.Second
)

// Cmd provides the same functionality as exec.Cmd plus some utility
// methods for running RGD kit executables.
type Cmd struct {
	*exec.Cmd
	waitDone  chan struct{}
	signalErr <-chan error
}

// Command returns a Cmd which runs the executable at name with the
// given arguments. The working directory is set to the executable's
// parent directory because the RGD tools resolve their support files
// relative to it. Callers can override Dir before calling Output.
func Command(name string, arg ...string) *Cmd {
	cmd := exec.Command(name, arg...)
	cmd.Dir = filepath.Dir(name)
	return &Cmd{Cmd: cmd}
}

// String returns the command line in shell quoting, for log output.
func (c *Cmd) String() string {
	return shellescape.QuoteCommand(c.Args)
}

// Output runs the command to completion and returns its captured
// stdout and stderr together with the process exit code. A non-zero
// exit code is expected from crashing test applications and is
// therefore not reported as an error; the returned error is non-nil
// only when the process could not be started or waited for.
//
// While the command runs, terminating signals sent to the harness are
// forwarded to the command's process group so that child processes
// spawned by the kit executables are taken down as well.
func (c *Cmd) Output() (string, string, int, error) {
	if c.Stdout != nil {
		return "", "", 0, errors.New("exec: Stdout already set")
	}
	if c.Stderr != nil {
		return "", "", 0, errors.New("exec: Stderr already set")
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	c.waitDone = make(chan struct{})
	c.prepareProcessGroupTermination()
	c.signalErr = c.terminateOnSignal()

	err := c.Cmd.Start()
	if err != nil {
		close(c.waitDone)
		<-c.signalErr
		return "", "", 0, errors.WithStack(err)
	}

	err = c.Cmd.Wait()
	close(c.waitDone)
	signalErr := <-c.signalErr

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
	}
	if err == nil {
		// If c.Cmd.Wait returned an error, prefer that. Otherwise,
		// report any error from the signal handler goroutine.
		err = signalErr
	}
	if err != nil {
		return stdout.String(), stderr.String(), 0, errors.WithStack(err)
	}
	return stdout.String(), stderr.String(), c.ProcessState.ExitCode(), nil
}

// terminateOnSignal registers a signal handler for terminating signals
// (SIGINT, SIGTERM, SIGQUIT) and starts a goroutine that waits until
// either a terminating signal was received or the command completed.
// When a terminating signal is received, the goroutine terminates the
// process group of c.Process and re-raises the signal.
//
// terminateOnSignal returns a channel on which its result must be received.
func (c *Cmd) terminateOnSignal() <-chan error {
	errc := make(chan error, 1)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		select {
		case <-c.waitDone:
			signal.Stop(sigs)
			errc <- nil
		case s := <-sigs:
			err := c.TerminateProcessGroup()
			if err != nil {
				errc <- err
				return
			}

			// Re-raise the signal for other handlers
			signal.Stop(sigs)
			p, err := os.FindProcess(os.Getpid())
			if err != nil {
				errc <- errors.WithStack(err)
				return
			}
			err = p.Signal(s)
			if err != nil {
				errc <- errors.WithStack(err)
				return
			}
			errc <- nil
		}
	}()

	return errc
}
