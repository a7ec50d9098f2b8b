// Package relocate moves the host onto a larger row table.
package relocate

import (
	"fmt"
	"log"

	"github.com/murkland/museumpatch/asm"
	"github.com/murkland/museumpatch/hijack"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/privilege"
	"golang.org/x/exp/slices"
)

// BoundCheck is a `cmp rN, #count` that limits a loop over the row table.
//
// The list of these is curated by hand. A site that is missing keeps the old
// row count and nothing will notice.
type BoundCheck struct {
	Address  uint32
	Register asm.Reg
}

// RepointSlots writes table into every pointer slot. The slots are data and
// must already be writable.
func RepointSlots(m mem.Region, slots []uint32, table uint32) error {
	if err := checkDuplicates(slots); err != nil {
		return err
	}
	for _, slot := range slots {
		log.Printf("repointing slot 0x%08x -> 0x%08x", slot, table)
		if err := mem.RawWrite32(m, slot, table); err != nil {
			return fmt.Errorf("repoint slot 0x%08x: %w", slot, err)
		}
	}
	return nil
}

// PatchBoundsChecks rewrites every site to compare against count. Every word
// is encoded before anything is written.
func PatchBoundsChecks(sys privilege.System, m mem.Region, sites []BoundCheck, count uint32) error {
	addrs := make([]uint32, len(sites))
	words := make([]asm.Word, len(sites))
	for i, site := range sites {
		w, err := asm.CMPImm(site.Register, count)
		if err != nil {
			return fmt.Errorf("bound check at 0x%08x: %w", site.Address, err)
		}
		addrs[i] = site.Address
		words[i] = w
	}
	if err := checkDuplicates(addrs); err != nil {
		return err
	}

	for i, site := range sites {
		log.Printf("patching bound check at 0x%08x: cmp r%d, #%d", site.Address, site.Register, count)
		if err := hijack.PatchWords(sys, m, site.Address, words[i]); err != nil {
			return fmt.Errorf("bound check at 0x%08x: %w", site.Address, err)
		}
	}
	return nil
}

// Relocation is everything needed to move the host to a new table.
type Relocation struct {
	Table       uint32
	Count       uint32
	Slots       []uint32
	BoundChecks []BoundCheck
}

func (r *Relocation) Apply(sys privilege.System, m mem.Region) error {
	if err := RepointSlots(m, r.Slots, r.Table); err != nil {
		return err
	}
	return PatchBoundsChecks(sys, m, r.BoundChecks, r.Count)
}

func checkDuplicates(addrs []uint32) error {
	sorted := slices.Clone(addrs)
	slices.Sort(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return fmt.Errorf("address 0x%08x listed twice", sorted[i])
		}
	}
	return nil
}
