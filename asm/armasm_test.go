package asm

import (
	"testing"

	"golang.org/x/arch/arm/armasm"
)

func decodeARM(t *testing.T, w Word) armasm.Inst {
	t.Helper()
	inst, err := armasm.Decode(Flatten(w), armasm.ModeARM)
	if err != nil {
		t.Fatalf("armasm.Decode(%08x): %s", w, err)
	}
	return inst
}

func TestEncodingsDisassemble(t *testing.T) {
	cmp, err := CMPImm(R4, 32)
	if err != nil {
		t.Fatal(err)
	}
	ldr, err := LDRLiteral(R12, 0)
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		w    Word
		want string
	}{
		{cmp, "CMP R4, #0x20"},
		{ldr, "LDR R12, [PC]"},
		{BX(R12), "BX R12"},
	} {
		if got := decodeARM(t, tc.w).String(); got != tc.want {
			t.Errorf("%08x disassembles to %q, want %q", tc.w, got, tc.want)
		}
	}
}

// The immediate field is rotate:imm8 to the CPU, so only raw values below
// 0x100 compare against themselves.
func TestCMPImmRotatedImmediates(t *testing.T) {
	for imm := uint32(0); imm < 0x100; imm++ {
		w, err := CMPImm(R0, imm)
		if err != nil {
			t.Fatal(err)
		}
		inst := decodeARM(t, w)
		if got, ok := inst.Args[1].(armasm.Imm); !ok || uint32(got) != imm {
			t.Fatalf("cmp r0, #%d decodes with operand %v", imm, inst.Args[1])
		}
	}

	w, err := CMPImm(R0, 0x120)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := decodeARM(t, w).Args[1], (armasm.ImmAlt{Val: 0x20, Rot: 2}); got != want {
		t.Errorf("raw field 0x120 decodes with operand %v, want %v", got, want)
	}

	w, err = CMPImm(R0, 0x101)
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeARM(t, w).Args[1]; got != armasm.Imm(0x40000000) {
		t.Errorf("raw field 0x101 decodes with operand %v, want 0x40000000", got)
	}
}
