// Package privilege toggles protection on regions of the current process
// while holding a handle to it.
package privilege

import (
	"fmt"
	"log"
)

type Perm uint8

const (
	PermNone Perm = 0
	PermR    Perm = 1 << 0
	PermW    Perm = 1 << 1
	PermX    Perm = 1 << 2

	PermRW  = PermR | PermW
	PermRX  = PermR | PermX
	PermWX  = PermW | PermX
	PermRWX = PermR | PermW | PermX
)

func (p Perm) String() string {
	s := []byte("---")
	if p&PermR != 0 {
		s[0] = 'r'
	}
	if p&PermW != 0 {
		s[1] = 'w'
	}
	if p&PermX != 0 {
		s[2] = 'x'
	}
	return string(s)
}

// Handle is an open capability over a process's address space.
type Handle uintptr

// System is the set of OS calls a patch session needs. Every method returns
// the raw result code: zero on success, anything else is a failure.
type System interface {
	CurrentProcessID() (pid uint32, code int)
	OpenProcess(pid uint32) (h Handle, code int)
	ControlMemory(h Handle, base uint32, size uint32, perm Perm) int
	CloseHandle(h Handle) int
}

// OSCallFailedError is returned when any call on a System fails.
type OSCallFailedError struct {
	Op   string
	Code int
}

func (e *OSCallFailedError) Error() string {
	return fmt.Sprintf("%s failed: code %d (0x%08x)", e.Op, e.Code, uint32(e.Code))
}

func check(op string, code int) error {
	if code != 0 {
		return &OSCallFailedError{op, code}
	}
	return nil
}

// Region is a contiguous address range in the target process.
type Region struct {
	Base uint32
	Size uint32
}

func (r Region) String() string {
	return fmt.Sprintf("0x%08x+0x%x", r.Base, r.Size)
}

// AcquireProcessHandle resolves the caller's own process id and opens a
// handle to it. The caller owns the handle and must close it.
func AcquireProcessHandle(sys System) (Handle, error) {
	pid, code := sys.CurrentProcessID()
	if err := check("CurrentProcessID", code); err != nil {
		return 0, err
	}

	h, code := sys.OpenProcess(pid)
	if err := check("OpenProcess", code); err != nil {
		return 0, err
	}
	return h, nil
}

func SetPermissions(sys System, h Handle, region Region, perm Perm) error {
	return check(fmt.Sprintf("ControlMemory(%s, %s)", region, perm), sys.ControlMemory(h, region.Base, region.Size, perm))
}

// WithWritableCode makes region read-write for the duration of body and
// restores it to read-execute afterwards, even if body fails or panics.
//
// The handle is closed last on every path. The first error wins: body's,
// then the permission calls', then the close.
func WithWritableCode(sys System, region Region, body func() error) (err error) {
	return WithPermissions(sys, region, PermRW, PermRX, body)
}

// WithPermissions is WithWritableCode with explicit during/after permissions.
func WithPermissions(sys System, region Region, during Perm, after Perm, body func() error) (err error) {
	h, err := AcquireProcessHandle(sys)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := check("CloseHandle", sys.CloseHandle(h)); closeErr != nil {
			if err == nil {
				err = closeErr
			} else {
				log.Printf("also failed to close process handle: %s", closeErr)
			}
		}
	}()

	if err := SetPermissions(sys, h, region, during); err != nil {
		return err
	}

	defer func() {
		if restoreErr := SetPermissions(sys, h, region, after); restoreErr != nil {
			if err == nil {
				err = restoreErr
			} else {
				log.Printf("also failed to restore %s: %s", region, restoreErr)
			}
		}
	}()

	return body()
}
