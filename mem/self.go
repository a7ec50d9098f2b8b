package mem

import (
	"unsafe"
)

// Self is the address space of the current process. Accesses are not
// checked: touching unmapped or protected memory crashes the process.
type Self struct{}

var _ Region = Self{}

func slice(address uint32, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(address))), n)
}

func (Self) RawReadRange(address uint32, buf []byte) error {
	copy(buf, slice(address, len(buf)))
	return nil
}

func (Self) RawWriteRange(address uint32, buf []byte) error {
	copy(slice(address, len(buf)), buf)
	return nil
}
