//go:build unix

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// cellSize returns the terminal cell dimensions in pixels by querying
// TIOCGWINSZ. Falls back to defaults if unavailable.
func cellSize() (cellW, cellH int) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil || ws.Col == 0 || ws.Row == 0 || ws.Xpixel == 0 || ws.Ypixel == 0 {
		return defaultCellWidth, defaultCellHeight
	}
	return int(ws.Xpixel) / int(ws.Col), int(ws.Ypixel) / int(ws.Row)
}
