package lift

import "golang.org/x/arch/x86/x86asm"

// regInfo describes one architectural register: which register family it
// belongs to (so that e.g. EAX and RAX are recognized as "the same
// register" for aliasing purposes) and its width in bits.
type regInfo struct {
	family string
	bits   uint8
	isXMM  bool
}

var registerTable = buildRegisterTable()

func buildRegisterTable() map[x86asm.Reg]regInfo {
	t := make(map[x86asm.Reg]regInfo)
	add := func(family string, bits8, bits16, bits32, bits64 x86asm.Reg) {
		t[bits8] = regInfo{family: family, bits: 8}
		t[bits16] = regInfo{family: family, bits: 16}
		t[bits32] = regInfo{family: family, bits: 32}
		t[bits64] = regInfo{family: family, bits: 64}
	}
	add("rax", x86asm.AL, x86asm.AX, x86asm.EAX, x86asm.RAX)
	add("rcx", x86asm.CL, x86asm.CX, x86asm.ECX, x86asm.RCX)
	add("rdx", x86asm.DL, x86asm.DX, x86asm.EDX, x86asm.RDX)
	add("rbx", x86asm.BL, x86asm.BX, x86asm.EBX, x86asm.RBX)
	add("rsp", x86asm.SPB, x86asm.SP, x86asm.ESP, x86asm.RSP)
	add("rbp", x86asm.BPB, x86asm.BP, x86asm.EBP, x86asm.RBP)
	add("rsi", x86asm.SIB, x86asm.SI, x86asm.ESI, x86asm.RSI)
	add("rdi", x86asm.DIB, x86asm.DI, x86asm.EDI, x86asm.RDI)
	add("r8", x86asm.R8B, x86asm.R8W, x86asm.R8L, x86asm.R8)
	add("r9", x86asm.R9B, x86asm.R9W, x86asm.R9L, x86asm.R9)
	add("r10", x86asm.R10B, x86asm.R10W, x86asm.R10L, x86asm.R10)
	add("r11", x86asm.R11B, x86asm.R11W, x86asm.R11L, x86asm.R11)
	add("r12", x86asm.R12B, x86asm.R12W, x86asm.R12L, x86asm.R12)
	add("r13", x86asm.R13B, x86asm.R13W, x86asm.R13L, x86asm.R13)
	add("r14", x86asm.R14B, x86asm.R14W, x86asm.R14L, x86asm.R14)
	add("r15", x86asm.R15B, x86asm.R15W, x86asm.R15L, x86asm.R15)

	xmm := []x86asm.Reg{
		x86asm.X0, x86asm.X1, x86asm.X2, x86asm.X3, x86asm.X4, x86asm.X5, x86asm.X6, x86asm.X7,
		x86asm.X8, x86asm.X9, x86asm.X10, x86asm.X11, x86asm.X12, x86asm.X13, x86asm.X14, x86asm.X15,
	}
	for i, r := range xmm {
		t[r] = regInfo{family: xmmFamilyName(i), bits: 128, isXMM: true}
	}
	return t
}

func xmmFamilyName(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "xmm" + string(digits[i])
	}
	return "xmm1" + string(digits[i-10])
}

// infoOf returns the regInfo for r, or a synthetic one derived from r's own
// String() for registers this module does not special-case (segment,
// system, debug, control registers, which never need width-aware aliasing).
func infoOf(r x86asm.Reg) regInfo {
	if info, ok := registerTable[r]; ok {
		return info
	}
	return regInfo{family: r.String(), bits: 64}
}

// family returns the register family name for r (e.g. EAX and RAX both
// return "rax"), used to resolve aliasing regardless of the operand width
// an individual instruction happens to use.
func family(r x86asm.Reg) string { return infoOf(r).family }

// bitsOf returns the operand width in bits implied by register r.
func bitsOf(r x86asm.Reg) uint8 { return infoOf(r).bits }

// isXMMReg reports whether r is one of the XMM vector registers.
func isXMMReg(r x86asm.Reg) bool { return infoOf(r).isXMM }
