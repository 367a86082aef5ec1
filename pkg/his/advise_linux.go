//go:build linux

package his

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseRandom tells the kernel not to read ahead; frame access jumps
// around the file.
func adviseRandom(f *os.File) error {
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM); err != nil {
		return &os.SyscallError{Syscall: "fadvise", Err: err}
	}
	return nil
}
