package log

import (
	"github.com/pterm/pterm"
)

// StartSpinner shows a progress spinner with the given message while a
// longer operation runs. On non-interactive consoles the message is
// logged at info level instead. A disabled logger shows nothing, which
// keeps the console clean when the legacy output format is selected.
func (l *Logger) StartSpinner(msg string) {
	l.mu.Lock()
	styled := l.styled
	disabled := l.consoleLevel >= levelDisabled
	l.mu.Unlock()
	if disabled {
		return
	}
	if !styled {
		l.Infof("%s", msg)
		return
	}

	// error can be ignored here since pterm doesn't return one
	spinner, _ := pterm.DefaultSpinner.Start(msg)
	l.mu.Lock()
	l.spinner = spinner
	l.mu.Unlock()
}

// StopSpinner removes the spinner started by StartSpinner.
func (l *Logger) StopSpinner() {
	l.mu.Lock()
	spinner := l.spinner
	l.spinner = nil
	l.mu.Unlock()
	if spinner == nil {
		return
	}
	spinner.RemoveWhenDone = true
	// error can be ignored here since pterm doesn't return one
	_ = spinner.Stop()
}
