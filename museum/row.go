// Package museum models the museum row table and decides which rows the
// player can scroll to.
package museum

import (
	"encoding/binary"
	"fmt"
	"image/color"

	"github.com/murkland/museumpatch/mem"
)

// RowCapacity is the number of columns a row can hold.
const RowCapacity = 5

// Row is one gallery row.
//
// Layout, 28 bytes:
//
//	u32: column count
//	u16[5]: game indices
//	u8[2]: padding
//	u32: title string pointer
//	u32: category high
//	u32: category low
type Row struct {
	ColumnCount  uint32
	Columns      [RowCapacity]uint16
	Label        uint32
	CategoryHigh uint32
	CategoryLow  uint32
}

const RowSize = 28

const (
	rowColumnCountOffset  = 0x00
	rowColumnsOffset      = 0x04
	rowLabelOffset        = 0x10
	rowCategoryHighOffset = 0x14
	rowCategoryLowOffset  = 0x18
)

// ActiveColumns returns the populated columns.
func (r *Row) ActiveColumns() []uint16 {
	n := r.ColumnCount
	if n > RowCapacity {
		n = RowCapacity
	}
	return r.Columns[:n]
}

func (r *Row) Validate() error {
	if r.ColumnCount > RowCapacity {
		return fmt.Errorf("column count %d exceeds capacity %d", r.ColumnCount, RowCapacity)
	}
	return nil
}

func (r *Row) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RowSize)
	binary.LittleEndian.PutUint32(buf[rowColumnCountOffset:], r.ColumnCount)
	for i, c := range r.Columns {
		binary.LittleEndian.PutUint16(buf[rowColumnsOffset+i*2:], c)
	}
	binary.LittleEndian.PutUint32(buf[rowLabelOffset:], r.Label)
	binary.LittleEndian.PutUint32(buf[rowCategoryHighOffset:], r.CategoryHigh)
	binary.LittleEndian.PutUint32(buf[rowCategoryLowOffset:], r.CategoryLow)
	return buf, nil
}

func (r *Row) UnmarshalBinary(buf []byte) error {
	if len(buf) != RowSize {
		return fmt.Errorf("row is %d bytes, want %d", len(buf), RowSize)
	}
	r.ColumnCount = binary.LittleEndian.Uint32(buf[rowColumnCountOffset:])
	for i := range r.Columns {
		r.Columns[i] = binary.LittleEndian.Uint16(buf[rowColumnsOffset+i*2:])
	}
	r.Label = binary.LittleEndian.Uint32(buf[rowLabelOffset:])
	r.CategoryHigh = binary.LittleEndian.Uint32(buf[rowCategoryHighOffset:])
	r.CategoryLow = binary.LittleEndian.Uint32(buf[rowCategoryLowOffset:])
	return nil
}

// Table is the full row table. It is built once and never modified.
type Table []Row

func NewTable(rows []Row) (Table, error) {
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return Table(append([]Row(nil), rows...)), nil
}

func ReadTable(m mem.Region, address uint32, n int) (Table, error) {
	buf := make([]byte, n*RowSize)
	if err := m.RawReadRange(address, buf); err != nil {
		return nil, err
	}
	rows := make([]Row, n)
	for i := range rows {
		if err := rows[i].UnmarshalBinary(buf[i*RowSize : (i+1)*RowSize]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (t Table) Marshal() []byte {
	buf := make([]byte, 0, len(t)*RowSize)
	for i := range t {
		b, _ := t[i].MarshalBinary()
		buf = append(buf, b...)
	}
	return buf
}

// RowForGame finds the first row with gameIndex among its active columns, or
// -1.
func (t Table) RowForGame(gameIndex uint16) int {
	for i := range t {
		for _, c := range t[i].ActiveColumns() {
			if c == gameIndex {
				return i
			}
		}
	}
	return -1
}

var (
	rowColorTitle  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	rowColorShadow = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// RowColor is the banner colouring of the row at the same index.
//
// Layout, 16 bytes: primary, secondary, title, shadow, each as RGBA bytes.
// Title and shadow are always white and black.
type RowColor struct {
	Primary   color.RGBA
	Secondary color.RGBA
}

const RowColorSize = 16

func putRGBA(buf []byte, c color.RGBA) {
	buf[0], buf[1], buf[2], buf[3] = c.R, c.G, c.B, c.A
}

func (rc RowColor) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RowColorSize)
	putRGBA(buf[0:], rc.Primary)
	putRGBA(buf[4:], rc.Secondary)
	putRGBA(buf[8:], rowColorTitle)
	putRGBA(buf[12:], rowColorShadow)
	return buf, nil
}

// MarshalColors lays out colours to sit alongside a table of the same length.
func MarshalColors(t Table, colors []RowColor) ([]byte, error) {
	if len(colors) != len(t) {
		return nil, fmt.Errorf("%d row colors for %d rows", len(colors), len(t))
	}
	buf := make([]byte, 0, len(colors)*RowColorSize)
	for _, c := range colors {
		b, _ := c.MarshalBinary()
		buf = append(buf, b...)
	}
	return buf, nil
}
