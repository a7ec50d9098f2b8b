package mem

import (
	"github.com/murkland/museumpatch/privilege"
)

const PageSize = 0x1000

// Result codes returned by Image's privilege.System methods.
const (
	CodeInvalidHandle = 1
	CodeInvalidRange  = 2
	CodeInvalidPID    = 3
)

// Image is an in-memory stand-in for a process: a flat byte image mapped at
// a base address, with page protections enforced on every access.
//
// It implements privilege.System so a full patch session can run against it.
type Image struct {
	base  uint32
	data  []byte
	perms []privilege.Perm

	pid        uint32
	nextHandle privilege.Handle
	handles    map[privilege.Handle]struct{}
}

var _ privilege.System = (*Image)(nil)
var _ Region = (*Image)(nil)

// NewImage maps size bytes (rounded up to whole pages) at base, which must be
// page aligned, with every page set to perm.
func NewImage(base uint32, size uint32, perm privilege.Perm) *Image {
	if base%PageSize != 0 {
		panic("image base is not page aligned")
	}
	pages := (size + PageSize - 1) / PageSize
	img := &Image{
		base:       base,
		data:       make([]byte, pages*PageSize),
		perms:      make([]privilege.Perm, pages),
		pid:        0x28,
		nextHandle: 0x100,
		handles:    map[privilege.Handle]struct{}{},
	}
	for i := range img.perms {
		img.perms[i] = perm
	}
	return img
}

func (img *Image) Base() uint32 {
	return img.base
}

func (img *Image) Size() uint32 {
	return uint32(len(img.data))
}

// Bytes returns the backing image. Writes to it bypass protection.
func (img *Image) Bytes() []byte {
	return img.data
}

// Protect sets page protection directly, as the loader would have.
func (img *Image) Protect(base uint32, size uint32, perm privilege.Perm) bool {
	first, last, ok := img.pageSpan(base, size)
	if !ok {
		return false
	}
	for i := first; i <= last; i++ {
		img.perms[i] = perm
	}
	return true
}

// Perm reports the protection of the page containing address.
func (img *Image) Perm(address uint32) privilege.Perm {
	if !img.contains(address, 1) {
		return privilege.PermNone
	}
	return img.perms[(address-img.base)/PageSize]
}

// OpenHandles is the number of handles opened and not yet closed.
func (img *Image) OpenHandles() int {
	return len(img.handles)
}

func (img *Image) contains(address uint32, size uint32) bool {
	if address < img.base {
		return false
	}
	off := uint64(address - img.base)
	return off+uint64(size) <= uint64(len(img.data))
}

func (img *Image) pageSpan(address uint32, size uint32) (int, int, bool) {
	if size == 0 {
		size = 1
	}
	if !img.contains(address, size) {
		return 0, 0, false
	}
	off := address - img.base
	return int(off / PageSize), int((off + size - 1) / PageSize), true
}

func (img *Image) access(op string, address uint32, n int, need privilege.Perm) ([]byte, error) {
	first, last, ok := img.pageSpan(address, uint32(n))
	if !ok {
		return nil, &FaultError{op, address, n, "unmapped"}
	}
	for i := first; i <= last; i++ {
		if img.perms[i]&need != need {
			return nil, &FaultError{op, address, n, "page is " + img.perms[i].String()}
		}
	}
	off := address - img.base
	return img.data[off : off+uint32(n)], nil
}

func (img *Image) RawReadRange(address uint32, buf []byte) error {
	src, err := img.access("read", address, len(buf), privilege.PermR)
	if err != nil {
		return err
	}
	copy(buf, src)
	return nil
}

func (img *Image) RawWriteRange(address uint32, buf []byte) error {
	dst, err := img.access("write", address, len(buf), privilege.PermW)
	if err != nil {
		return err
	}
	copy(dst, buf)
	return nil
}

func (img *Image) CurrentProcessID() (uint32, int) {
	return img.pid, 0
}

func (img *Image) OpenProcess(pid uint32) (privilege.Handle, int) {
	if pid != img.pid {
		return 0, CodeInvalidPID
	}
	h := img.nextHandle
	img.nextHandle++
	img.handles[h] = struct{}{}
	return h, 0
}

func (img *Image) ControlMemory(h privilege.Handle, base uint32, size uint32, perm privilege.Perm) int {
	if _, ok := img.handles[h]; !ok {
		return CodeInvalidHandle
	}
	if !img.Protect(base, size, perm) {
		return CodeInvalidRange
	}
	return 0
}

func (img *Image) CloseHandle(h privilege.Handle) int {
	if _, ok := img.handles[h]; !ok {
		return CodeInvalidHandle
	}
	delete(img.handles, h)
	return 0
}
