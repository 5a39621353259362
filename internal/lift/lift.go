// Package lift implements the linear decode-and-translate pass that turns
// a flat x86asm instruction stream into a *ir.FunctionIR: one pass over
// the instructions, carrying a small sliding context (condition-code
// state, XMM zero tracking, the ret-alias constant-propagation slot) that
// is carried forward instruction by instruction and never revisits an
// earlier one.
package lift

import (
	"sort"

	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

// Translate lifts insts (already decoded by the decode package) into fn,
// which must be freshly constructed and empty. It never fails: an
// instruction this module cannot resolve becomes an UnresolvedTarget
// pseudo-statement or, for a mnemonic it does not recognize at all, a bare
// preserved asm comment, per the Lifter's error discipline (only malformed
// byte input, caught earlier by the decode package, is fatal).
func Translate(fn *ir.FunctionIR, insts []decode.Instruction, opts Options) {
	c := newCtx(fn, opts)
	c.preassignLabels(insts)

	skip, usesFP, localSize := detectPrologue(insts)
	if usesFP {
		c.usesFramePointer = true
		fn.SetTag(ir.TagUsesFramePointer, true)
	}
	if localSize > 0 {
		c.localSize = localSize
		fn.SetTag(ir.TagLocalSize, localSize)
	}

	blk := fn.AddBlock(fn.NewLabel(""))

	for i := skip; i < len(insts); i++ {
		in := insts[i]
		if l, ok := c.labelByIP[in.IP]; ok {
			blk.Append(&ir.LabelStmt{Label: l})
			// A label starts a new straight-line run.
			c.regValue = make(map[string]ir.Expr)
		}
		c.translateOne(blk, in)
	}
}

// preassignLabels scans the whole instruction stream once for intra-function
// branch targets and allocates their labels in ascending address order, so
// that L1 is the first (lowest-address) target, L2 the next, and so on,
// regardless of the order in which the branches referencing them appear.
func (c *ctx) preassignLabels(insts []decode.Instruction) {
	if len(insts) == 0 {
		return
	}
	lo, hi := insts[0].IP, insts[len(insts)-1].End()
	seen := make(map[uint64]bool)
	var targets []uint64
	for _, in := range insts {
		if !isBranchOp(in.Inst.Op) {
			continue
		}
		t, ok := decode.BranchTarget(in)
		if !ok || t < lo || t >= hi || seen[t] {
			continue
		}
		seen[t] = true
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, t := range targets {
		c.labelAt(t)
	}
}

func isBranchOp(op x86asm.Op) bool {
	if _, ok := jccTable[op]; ok {
		return true
	}
	switch op {
	case x86asm.JMP, x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ:
		return true
	default:
		return false
	}
}

// detectPrologue recognizes the standard MSVC frame-setup sequence —
// `push rbp; mov rbp, rsp` optionally followed by `sub rsp, imm` — at the
// very start of the function and reports how many leading instructions it
// consumes, since none of them translate to a statement of their own.
func detectPrologue(insts []decode.Instruction) (skip int, usesFP bool, localSize int) {
	if len(insts) < 2 {
		return 0, false, 0
	}
	if !isPushReg(insts[0], "rbp") || !isMovRegReg(insts[1], "rbp", "rsp") {
		return 0, false, 0
	}
	skip, usesFP = 2, true
	if len(insts) > 2 {
		if n, ok := subRspImm(insts[2]); ok {
			return 3, true, n
		}
	}
	return skip, usesFP, 0
}

func isPushReg(in decode.Instruction, fam string) bool {
	if in.Inst.Op != x86asm.PUSH {
		return false
	}
	r, ok := regArg(in.Inst.Args[0])
	return ok && family(r) == fam
}

func isMovRegReg(in decode.Instruction, dstFam, srcFam string) bool {
	if in.Inst.Op != x86asm.MOV {
		return false
	}
	d, ok1 := regArg(in.Inst.Args[0])
	s, ok2 := regArg(in.Inst.Args[1])
	return ok1 && ok2 && family(d) == dstFam && family(s) == srcFam
}

func subRspImm(in decode.Instruction) (int, bool) {
	if in.Inst.Op != x86asm.SUB {
		return 0, false
	}
	r, ok := regArg(in.Inst.Args[0])
	if !ok || family(r) != "rsp" {
		return 0, false
	}
	imm, ok := in.Inst.Args[1].(x86asm.Imm)
	if !ok {
		return 0, false
	}
	return int(imm), true
}

// isSuppressed reports whether op contributes nothing beyond its preserved
// asm comment: frame bookkeeping and no-ops the Lifter does not model as a
// statement at all, matching under the teacher's umbrella of instructions
// that only ever appear for reasons the pseudocode does not need to show.
func isSuppressed(op x86asm.Op) bool {
	switch op {
	case x86asm.PUSH, x86asm.POP, x86asm.NOP, x86asm.LEAVE, x86asm.CDQ, x86asm.CQO, x86asm.CDQE, x86asm.CWDE:
		return true
	default:
		return false
	}
}

func (c *ctx) translateOne(blk *ir.BasicBlock, in decode.Instruction) {
	blk.Append(&ir.AsmCommentStmt{Text: instrText(in)})

	op := in.Inst.Op
	switch {
	case isSuppressed(op):
		return
	case op == x86asm.MOV:
		c.translateMov(blk, in)
	case op == x86asm.MOVZX:
		c.translateMovzx(blk, in)
	case op == x86asm.MOVSX || op == x86asm.MOVSXD:
		c.translateMovsx(blk, in)
	case op == x86asm.LEA:
		c.translateLea(blk, in)
	case op == x86asm.XORPS || op == x86asm.PXOR:
		if !c.translateXorpsZero(in) {
			blk.Append(&ir.PseudoStmt{Text: "xmm-op: " + instrText(in)})
		}
	case op == x86asm.MOVUPS || op == x86asm.MOVAPS || op == x86asm.MOVDQA || op == x86asm.MOVDQU:
		c.translateXmmMove(blk, in)
	case op == x86asm.ADD:
		c.translateBinOp(blk, in, ir.Add)
	case op == x86asm.SUB:
		c.translateBinOp(blk, in, ir.Sub)
	case op == x86asm.AND:
		c.translateBinOp(blk, in, ir.And)
	case op == x86asm.OR:
		c.translateBinOp(blk, in, ir.Or)
	case op == x86asm.XOR:
		c.translateXor(blk, in)
	case op == x86asm.NOT:
		c.translateUnary(blk, in, ir.BitNot)
	case op == x86asm.NEG:
		c.translateUnary(blk, in, ir.Neg)
	case op == x86asm.INC:
		c.translateIncDec(blk, in, ir.Add)
	case op == x86asm.DEC:
		c.translateIncDec(blk, in, ir.Sub)
	case op == x86asm.SHL || op == x86asm.SAL:
		c.translateShift(blk, in, ir.Shl)
	case op == x86asm.SHR:
		c.translateShift(blk, in, ir.Shr)
	case op == x86asm.SAR:
		c.translateShift(blk, in, ir.Sar)
	case op == x86asm.ROL:
		c.translateRotate(blk, in, "__rotl")
	case op == x86asm.ROR:
		c.translateRotate(blk, in, "__rotr")
	case op == x86asm.IMUL:
		switch argCount(in.Inst) {
		case 3:
			c.translateImul3(blk, in)
		case 2:
			c.translateBinOp(blk, in, ir.Mul)
		default:
			c.translateMulDiv(blk, in, "IMUL")
		}
	case op == x86asm.MUL || op == x86asm.IDIV || op == x86asm.DIV:
		c.translateMulDiv(blk, in, op.String())
	case op == x86asm.CMP:
		c.translateCmp(in)
	case op == x86asm.TEST:
		c.translateTest(in)
	case op == x86asm.BT:
		c.translateBt(in)
	case op == x86asm.BTS:
		c.translateBtMutate(blk, in, "BTS")
	case op == x86asm.BTR:
		c.translateBtMutate(blk, in, "BTR")
	case op == x86asm.BTC:
		c.translateBtMutate(blk, in, "BTC")
	case isJcc(op):
		c.translateJcc(blk, in)
	case op == x86asm.JCXZ || op == x86asm.JECXZ || op == x86asm.JRCXZ:
		c.translateJrcxz(blk, in)
	case op == x86asm.JMP:
		c.translateJmp(blk, in)
	case isSetcc(op):
		c.translateSetcc(blk, in)
	case isCmovcc(op):
		c.translateCmovcc(blk, in)
	case op == x86asm.CALL:
		c.translateCall(blk, in)
	case op == x86asm.RET || op == x86asm.RETF:
		c.translateRet(blk)
	case op == x86asm.MOVSB || op == x86asm.MOVSW || op == x86asm.MOVSD || op == x86asm.MOVSQ:
		c.translateRepMovs(blk, in)
	case op == x86asm.STOSB || op == x86asm.STOSW || op == x86asm.STOSD || op == x86asm.STOSQ:
		c.translateRepStos(blk, in)
	default:
		// Unknown mnemonic: the preserved AsmCommentStmt above is this
		// instruction's entire contribution.
	}
}

func argCount(in x86asm.Inst) int {
	n := 0
	for _, a := range in.Args {
		if a == nil {
			break
		}
		n++
	}
	return n
}

func isJcc(op x86asm.Op) bool {
	_, ok := jccTable[op]
	return ok
}

func isSetcc(op x86asm.Op) bool {
	_, ok := setccTable[op]
	return ok
}

func isCmovcc(op x86asm.Op) bool {
	_, ok := cmovccTable[op]
	return ok
}
