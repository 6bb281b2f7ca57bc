//go:build !windows

package output

import (
	"os"

	"golang.org/x/sys/unix"
)

// getTerminalWidth returns the current terminal width
func getTerminalWidth() int {
	if width, ok := columnsFromEnv(); ok {
		return width
	}

	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err == nil && ws.Col > 0 {
		return int(ws.Col)
	}

	return defaultWidth
}
