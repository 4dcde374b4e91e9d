//go:build windows

package popup

import (
	"strings"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const wmClose = 0x0010

// The dialog opens noticeably later than the crash that triggered it,
// so give it time to appear before enumerating windows.
const dialogAppearanceDelay = 5 * time.Second

var (
	user32             = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows    = user32.NewProc("EnumWindows")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
	procPostMessageW   = user32.NewProc("PostMessageW")
)

// closeBugReportWindow posts WM_CLOSE to the first top-level window
// whose title contains the bug report dialog title and reports whether
// such a window was found.
func closeBugReportWindow() bool {
	time.Sleep(dialogAppearanceDelay)

	closed := false
	callback := syscall.NewCallback(func(hwnd windows.HWND, lparam uintptr) uintptr {
		var title [1024]uint16
		length, _, _ := procGetWindowTextW.Call(
			uintptr(hwnd),
			uintptr(unsafe.Pointer(&title[0])),
			uintptr(len(title)),
		)
		if length == 0 {
			// Continue with the next window.
			return 1
		}
		if strings.Contains(windows.UTF16ToString(title[:length]), bugReportWindowTitle) {
			procPostMessageW.Call(uintptr(hwnd), wmClose, 0, 0)
			closed = true
			// Stop the enumeration.
			return 0
		}
		return 1
	})

	procEnumWindows.Call(callback, 0)
	return closed
}
