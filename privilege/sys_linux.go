package privilege

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// LinuxSystem implements System for the current process on Linux.
//
// Handles are pidfds. Protection changes apply to the whole pages covering
// the requested range.
type LinuxSystem struct{}

func errnoCode(err error) int {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return -1
}

func (LinuxSystem) CurrentProcessID() (uint32, int) {
	return uint32(unix.Getpid()), 0
}

func (LinuxSystem) OpenProcess(pid uint32) (Handle, int) {
	fd, err := unix.PidfdOpen(int(pid), 0)
	if err != nil {
		return 0, errnoCode(err)
	}
	return Handle(fd), 0
}

func (LinuxSystem) ControlMemory(h Handle, base uint32, size uint32, perm Perm) int {
	pageSize := uintptr(unix.Getpagesize())

	addr := uintptr(base)
	pageStart := addr - addr%pageSize
	regionSize := (addr - pageStart + uintptr(size) + pageSize - 1) / pageSize * pageSize

	region := unsafe.Slice((*byte)(unsafe.Pointer(pageStart)), regionSize)
	return errnoCode(unix.Mprotect(region, protFlags(perm)))
}

func (LinuxSystem) CloseHandle(h Handle) int {
	return errnoCode(unix.Close(int(h)))
}

func protFlags(perm Perm) int {
	flags := unix.PROT_NONE
	if perm&PermR != 0 {
		flags |= unix.PROT_READ
	}
	if perm&PermW != 0 {
		flags |= unix.PROT_WRITE
	}
	if perm&PermX != 0 {
		flags |= unix.PROT_EXEC
	}
	return flags
}
