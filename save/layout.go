// Package save reads game ranks out of the host's save manager.
package save

import (
	"fmt"
	"strings"
)

// Field is one named span of a host structure.
type Field struct {
	Name   string
	Offset uint32
	Size   uint32
}

func (f Field) End() uint32 {
	return f.Offset + f.Size
}

// Layout describes a host structure. There is no way to check it against the
// running binary, only that it is self-consistent.
type Layout struct {
	Name   string
	Size   uint32
	Fields []Field
}

func (l *Layout) Field(name string) Field {
	for _, f := range l.Fields {
		if f.Name == name {
			return f
		}
	}
	panic(fmt.Sprintf("%s has no field %q", l.Name, name))
}

// Validate checks fields are in order, do not overlap and fit in Size.
func (l *Layout) Validate() error {
	var problems []string
	var end uint32
	for _, f := range l.Fields {
		if f.Offset < end {
			problems = append(problems, fmt.Sprintf("%s at 0x%x overlaps previous field ending at 0x%x", f.Name, f.Offset, end))
		}
		end = f.End()
	}
	if end > l.Size {
		problems = append(problems, fmt.Sprintf("fields end at 0x%x past size 0x%x", end, l.Size))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid %s layout: %s", l.Name, strings.Join(problems, "; "))
	}
	return nil
}

const (
	RankCount = 104
	SlotCount = 4
)

var SlotLayout = Layout{
	Name: "save slot",
	Size: 0x1648,
	Fields: []Field{
		{"padding0", 0x0000, 0x74},
		{"game_ranks", 0x0074, RankCount},
		{"padding1", 0x00dc, 0x10a8},
		{"coin_count", 0x1184, 2},
		{"flow_ball_count", 0x1186, 2},
		{"padding2", 0x1188, 0x4c0},
	},
}

// Slots start 2-aligned after the odd-sized padding.
var ManagerLayout = Layout{
	Name: "save manager",
	Size: 0x7568,
	Fields: []Field{
		{"padding0", 0x0000, 0x1c3f},
		{"save_slots", 0x1c40, SlotCount * 0x1648},
		{"current_save_slot", 0x7560, 4},
		{"padding1", 0x7564, 4},
	},
}
