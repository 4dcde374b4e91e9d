// Package popup closes the driver's crash reporting dialog. Crash
// tests provoke GPU crashes on purpose, so the report the dialog wants
// to send would only be noise, and a dialog left open blocks follow-up
// runs on unattended test machines.
package popup

import (
	"github.com/gpuopen-tools/rgd-testkit/pkg/log"
)

// Window title of the dialog the driver opens after a GPU crash.
const bugReportWindowTitle = "AMD Bug Report Tool"

// CloseBugReportWindow closes the driver's bug report dialog if one is
// open. Best effort: on platforms without the dialog, or when no
// dialog is found, nothing happens.
func CloseBugReportWindow(logger *log.Logger) {
	if closeBugReportWindow() {
		logger.Debugf("Closed the %q window", bugReportWindowTitle)
	}
}
