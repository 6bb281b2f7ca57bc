//go:build windows

package output

import (
	"os"

	"golang.org/x/sys/windows"
)

// getTerminalWidth returns the current terminal width
func getTerminalWidth() int {
	if width, ok := columnsFromEnv(); ok {
		return width
	}

	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(windows.Handle(os.Stdout.Fd()), &info); err == nil {
		if width := int(info.Window.Right - info.Window.Left + 1); width > 0 {
			return width
		}
	}

	return defaultWidth
}
