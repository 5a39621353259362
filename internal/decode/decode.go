// Package decode adapts golang.org/x/arch/x86/x86asm into the flat
// instruction stream the Lifter consumes. It is the only package in this
// module that imports the third-party decoder; everything downstream works
// against the small Instruction type defined here.
package decode

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// ErrMalformedInput is returned, wrapped with the offending IP, when the
// decoder cannot produce an instruction at the current position.
var ErrMalformedInput = errors.New("decode: malformed instruction stream")

// Instruction is one decoded x64 instruction, carrying its absolute
// virtual address and a precomputed Intel-syntax rendering for the
// preserved disassembly comment.
type Instruction struct {
	IP   uint64
	Inst x86asm.Inst
	Text string
}

// End returns the address one past the last byte of this instruction.
func (in Instruction) End() uint64 { return in.IP + uint64(in.Inst.Len) }

// IsReturn reports whether this instruction is RET or RETF (far return).
func (in Instruction) IsReturn() bool {
	return in.Inst.Op == x86asm.RET || in.Inst.Op == x86asm.RETF
}

// Decode decodes instructions starting at base from code, stopping at (and
// including) the first RET/RETF, or once ip reaches base+maxBytes if
// maxBytes > 0. A maxBytes <= 0 means "decode until a return or the input is
// exhausted."
//
// Decode failures are fatal: the decoder could not find a valid instruction
// at the current IP, which this module treats as malformed input rather
// than attempting any recovery.
func Decode(code []byte, base uint64, maxBytes int) ([]Instruction, error) {
	var out []Instruction
	off := 0
	for {
		if maxBytes > 0 && off >= maxBytes {
			break
		}
		if off >= len(code) {
			break
		}
		ip := base + uint64(off)
		inst, err := x86asm.Decode(code[off:], 64)
		if err != nil {
			return nil, fmt.Errorf("%w at 0x%x: %v", ErrMalformedInput, ip, err)
		}
		if inst.Len == 0 {
			return nil, fmt.Errorf("%w at 0x%x: zero-length decode", ErrMalformedInput, ip)
		}
		text := x86asm.IntelSyntax(inst, ip, nil)
		out = append(out, Instruction{IP: ip, Inst: inst, Text: text})
		off += inst.Len
		if inst.Op == x86asm.RET || inst.Op == x86asm.RETF {
			break
		}
	}
	return out, nil
}

// BranchTarget returns the absolute target address of a near branch or call
// instruction (Jcc/JMP/CALL with a Rel argument), and whether one was
// found. RIP-relative memory operands (used by indirect calls/jumps through
// the IAT) are not branch targets in this sense and are handled separately
// by the Lifter.
func BranchTarget(in Instruction) (uint64, bool) {
	for _, a := range in.Inst.Args {
		if a == nil {
			break
		}
		if rel, ok := a.(x86asm.Rel); ok {
			return in.End() + uint64(int64(rel)), true
		}
	}
	return 0, false
}

// RIPRelativeAddr returns the absolute address referenced by a RIP-relative
// memory operand, and whether the instruction has one.
func RIPRelativeAddr(in Instruction) (uint64, bool) {
	for _, a := range in.Inst.Args {
		if a == nil {
			break
		}
		if mem, ok := a.(x86asm.Mem); ok && mem.Base == x86asm.RIP {
			return in.End() + uint64(mem.Disp), true
		}
	}
	return 0, false
}
