//go:build !unix

package main

func cellSize() (cellW, cellH int) {
	return defaultCellWidth, defaultCellHeight
}
