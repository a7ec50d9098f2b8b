// Package hijack writes instruction words into code and installs hooks that
// redirect execution to a handler.
package hijack

import (
	"fmt"
	"log"

	"github.com/murkland/museumpatch/asm"
	"github.com/murkland/museumpatch/mem"
	"github.com/murkland/museumpatch/privilege"
)

const scratchReg = asm.R12

// TrampolineSize is the number of bytes a trampoline overwrites.
const TrampolineSize = len(Trampoline{}) * asm.WordSize

// Trampoline is `ldr r12, [pc]; bx r12; .word handler`. The load reads the
// literal two words ahead, so no relocation is needed wherever it is placed.
type Trampoline [3]asm.Word

func BuildTrampoline(handler uint32) Trampoline {
	ldr, err := asm.LDRLiteral(scratchReg, 0)
	if err != nil {
		panic(err)
	}
	return Trampoline{ldr, asm.BX(scratchReg), asm.Word(handler)}
}

// Handler returns the address the trampoline branches to.
func (t Trampoline) Handler() uint32 {
	return uint32(t[2])
}

// WriteWords writes words to address. The destination must already be
// writable.
func WriteWords(m mem.Region, address uint32, words ...asm.Word) error {
	if address%asm.WordSize != 0 {
		return fmt.Errorf("unaligned instruction address 0x%08x", address)
	}
	return m.RawWriteRange(address, asm.Flatten(words...))
}

// PatchWords makes the words at address writable, writes them and makes them
// executable again.
func PatchWords(sys privilege.System, m mem.Region, address uint32, words ...asm.Word) error {
	region := privilege.Region{Base: address, Size: uint32(len(words) * asm.WordSize)}
	return privilege.WithWritableCode(sys, region, func() error {
		return WriteWords(m, address, words...)
	})
}

// InstallHook replaces the code at site with a trampoline to handler. The
// original instructions are not kept.
func InstallHook(sys privilege.System, m mem.Region, site uint32, handler uint32) error {
	log.Printf("installing hook at 0x%08x -> 0x%08x", site, handler)
	t := BuildTrampoline(handler)
	if err := PatchWords(sys, m, site, t[:]...); err != nil {
		return fmt.Errorf("install hook at 0x%08x: %w", site, err)
	}
	return nil
}
