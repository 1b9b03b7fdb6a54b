//go:build windows

package fs

import (
	"os"
	"syscall"
)

// dupFile duplicates f's handle so the returned file has an independent
// lifetime. The duplicate shares the file offset with the original.
func dupFile(f *os.File) (*os.File, error) {
	proc, err := syscall.GetCurrentProcess()
	if err != nil {
		return nil, &os.PathError{Op: "dup", Path: f.Name(), Err: err}
	}
	var dup syscall.Handle
	err = syscall.DuplicateHandle(proc, syscall.Handle(f.Fd()), proc, &dup, 0, false, syscall.DUPLICATE_SAME_ACCESS)
	if err != nil {
		return nil, &os.PathError{Op: "dup", Path: f.Name(), Err: err}
	}
	return os.NewFile(uintptr(dup), f.Name()), nil
}
