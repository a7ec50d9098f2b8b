package mem

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/murkland/museumpatch/privilege"
)

const snapshotHeader = "MUSM"
const snapshotVersion = 0x01

// MaxSnapshotPages bounds what ReadSnapshot will allocate: 256 MiB.
const MaxSnapshotPages = 0x10000

// Snapshot format, zstd compressed:
//
// u8[4]: MUSM
// u8: version
// u32: base address
// u32: page count
// page count: u8 page perm
// page count * page size: data
func WriteSnapshot(w io.Writer, img *Image) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}

	if _, err := zw.Write([]byte(snapshotHeader)); err != nil {
		return err
	}

	for _, v := range []interface{}{
		uint8(snapshotVersion),
		img.base,
		uint32(len(img.perms)),
		img.perms,
	} {
		if err := binary.Write(zw, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if _, err := zw.Write(img.data); err != nil {
		return err
	}

	return zw.Close()
}

func ReadSnapshot(r io.Reader) (*Image, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var header [4]byte
	if _, err := io.ReadFull(zr, header[:]); err != nil {
		return nil, err
	}
	if string(header[:]) != snapshotHeader {
		return nil, fmt.Errorf("invalid format")
	}

	var version uint8
	if err := binary.Read(zr, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %02x vs %02x", version, snapshotVersion)
	}

	var base, pageCount uint32
	if err := binary.Read(zr, binary.LittleEndian, &base); err != nil {
		return nil, err
	}
	if base%PageSize != 0 {
		return nil, fmt.Errorf("snapshot base 0x%08x is not page aligned", base)
	}
	if err := binary.Read(zr, binary.LittleEndian, &pageCount); err != nil {
		return nil, err
	}
	if pageCount > MaxSnapshotPages {
		return nil, fmt.Errorf("snapshot of %d pages is larger than the limit of %d", pageCount, MaxSnapshotPages)
	}
	// Image sizes are uint32, so the end of the address space itself can't be mapped.
	if uint64(base)+uint64(pageCount)*PageSize >= 1<<32 {
		return nil, fmt.Errorf("snapshot of %d pages at 0x%08x overflows the address space", pageCount, base)
	}

	img := NewImage(base, pageCount*PageSize, privilege.PermNone)
	if err := binary.Read(zr, binary.LittleEndian, img.perms); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(zr, img.data); err != nil {
		return nil, err
	}
	return img, nil
}
