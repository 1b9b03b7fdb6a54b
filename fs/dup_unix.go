//go:build !windows

package fs

import (
	"os"

	"golang.org/x/sys/unix"
)

// dupFile duplicates f's descriptor so the returned file has an independent
// lifetime. The duplicate shares the file offset with the original, per
// dup(2).
func dupFile(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, &os.PathError{Op: "dup", Path: f.Name(), Err: err}
	}
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), f.Name()), nil
}
