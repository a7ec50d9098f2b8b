// Package asm synthesizes the handful of 32-bit ARM instructions the patcher writes.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Word is one ARM-mode machine instruction, or a literal pool entry.
type Word uint32

// WordSize is the size of a Word in bytes.
const WordSize = 4

type Reg uint8

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
)

type Cond uint8

const (
	CondEQ Cond = 0x0
	CondNE Cond = 0x1
	CondAL Cond = 0xe
)

// MaxCMPImm is the largest immediate CMPImm accepts.
const MaxCMPImm = 1<<immBits - 1

var ErrEncodingOverflow = errors.New("operand does not fit instruction field")

const (
	regBits = 4
	immBits = 12

	cmpImmOpcode = 0x03500000 // 00 1 1010 1: data processing, immediate, CMP, S
	ldrLitOpcode = 0x059f0000 // LDR Rd, [PC, #+imm12]
	bxOpcode     = 0x012fff10 // BX Rm
)

func condBits(c Cond) Word {
	return Word(c&0xf) << 28
}

// CMPImm encodes `cmp rN, #imm` with the always condition.
//
// The 12-bit immediate field is packed as-is. Values below 0x100 are the plain
// immediate; larger values are interpreted by the CPU as rotate:imm8.
func CMPImm(rn Reg, imm uint32) (Word, error) {
	if uint32(rn) >= 1<<regBits {
		return 0, fmt.Errorf("%w: register %d", ErrEncodingOverflow, rn)
	}
	if imm >= 1<<immBits {
		return 0, fmt.Errorf("%w: immediate 0x%x", ErrEncodingOverflow, imm)
	}
	return condBits(CondAL) | cmpImmOpcode | Word(rn)<<16 | Word(imm), nil
}

// DecodeCMPImm is the inverse of CMPImm. ok is false if w is not a
// comparison-with-immediate.
func DecodeCMPImm(w Word) (rn Reg, imm uint32, ok bool) {
	if w&0x0ff0f000 != cmpImmOpcode {
		return 0, 0, false
	}
	return Reg(w >> 16 & 0xf), uint32(w & 0xfff), true
}

// LDRLiteral encodes `ldr rD, [pc, #offset]`.
func LDRLiteral(rd Reg, offset uint32) (Word, error) {
	if offset >= 1<<immBits {
		return 0, fmt.Errorf("%w: offset 0x%x", ErrEncodingOverflow, offset)
	}
	return condBits(CondAL) | ldrLitOpcode | Word(rd&0xf)<<12 | Word(offset), nil
}

// BX encodes `bx rM`.
func BX(rm Reg) Word {
	return condBits(CondAL) | bxOpcode | Word(rm&0xf)
}

// Flatten lays out words as little-endian bytes.
func Flatten(words ...Word) []byte {
	buf := make([]byte, len(words)*WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*WordSize:], uint32(w))
	}
	return buf
}
