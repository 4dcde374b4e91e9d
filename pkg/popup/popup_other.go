//go:build !windows

package popup

// Only the Windows driver opens a bug report dialog.
func closeBugReportWindow() bool {
	return false
}
