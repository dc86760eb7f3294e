//go:build linux

package bptree

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes file contents to stable storage without forcing a
// metadata-only sync.
func datasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
