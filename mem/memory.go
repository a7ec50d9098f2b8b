// Package mem provides typed little-endian access to a target address space.
package mem

import (
	"encoding/binary"
	"fmt"
)

// Region is a 32-bit address space that can be read and written in ranges.
type Region interface {
	RawReadRange(address uint32, buf []byte) error
	RawWriteRange(address uint32, buf []byte) error
}

// FaultError is returned when an access falls outside mapped memory or
// violates its protection.
type FaultError struct {
	Op      string
	Address uint32
	Size    int
	Reason  string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s of %d bytes at 0x%08x: %s", e.Op, e.Size, e.Address, e.Reason)
}

func RawRead8(r Region, address uint32) (uint8, error) {
	var buf [1]byte
	if err := r.RawReadRange(address, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func RawRead16(r Region, address uint32) (uint16, error) {
	var buf [2]byte
	if err := r.RawReadRange(address, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func RawRead32(r Region, address uint32) (uint32, error) {
	var buf [4]byte
	if err := r.RawReadRange(address, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func RawWrite8(r Region, address uint32, v uint8) error {
	return r.RawWriteRange(address, []byte{v})
}

func RawWrite16(r Region, address uint32, v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	return r.RawWriteRange(address, buf[:])
}

func RawWrite32(r Region, address uint32, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return r.RawWriteRange(address, buf[:])
}
