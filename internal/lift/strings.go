package lift

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

// translateRepMovs lowers a rep-prefixed MOVSB/MOVSW/MOVSD/MOVSQ into a
// memcpy(rdi, rsi, rcx*elemSize) call: the repeat prefix is already the
// compiler's own coalesced bulk-copy idiom, so no peephole pass is needed
// to recover the call shape the way it is for a run of discrete stores.
// The count register is named rcx literally, not by its p1 alias: at a
// string op it holds the repeat count, not the incoming first argument.
func (c *ctx) translateRepMovs(blk *ir.BasicBlock, in decode.Instruction) {
	elemSize := stringOpElemSize(in.Inst.Op)
	dst := c.regExpr(x86asm.RDI)
	src := c.regExpr(x86asm.RSI)
	count := ir.Expr(ir.BinOpExpr{Op: ir.Mul, Left: ir.RegExpr{Name: "rcx"}, Right: ir.UConstExpr{Val: uint64(elemSize), Bits: 64}})
	call := &ir.CallExpr{Target: ir.ByName("memcpy"), Args: []ir.Expr{dst, src, count}}
	blk.Append(&ir.CallStmt{Call: call})
	c.clearCmp()
}

// translateRepStos lowers a rep-prefixed STOSB/STOSW/STOSD/STOSQ into a
// memset(rdi, al_or_zero, rcx*elemSize) call. The fill operand is the
// accumulator sub-register matching the op's own width (AL/AX/EAX/RAX),
// not always AL, since STOSW/STOSD/STOSQ fill with the wider form.
func (c *ctx) translateRepStos(blk *ir.BasicBlock, in decode.Instruction) {
	elemSize := stringOpElemSize(in.Inst.Op)
	dst := c.regExpr(x86asm.RDI)
	count := ir.Expr(ir.BinOpExpr{Op: ir.Mul, Left: ir.RegExpr{Name: "rcx"}, Right: ir.UConstExpr{Val: uint64(elemSize), Bits: 64}})
	fillValue := ir.Expr(c.regExpr(stosFillReg(in.Inst.Op)))
	if v, isZero := zeroConstValue(c.retConst); isZero {
		fillValue = v
	}
	call := &ir.CallExpr{Target: ir.ByName("memset"), Args: []ir.Expr{dst, fillValue, count}}
	blk.Append(&ir.CallStmt{Call: call})
	c.clearCmp()
}

func zeroConstValue(e ir.Expr) (ir.Expr, bool) {
	switch v := e.(type) {
	case ir.ConstExpr:
		return ir.UConstExpr{Val: 0, Bits: 32}, v.Val == 0
	case ir.UConstExpr:
		return ir.UConstExpr{Val: 0, Bits: 32}, v.Val == 0
	default:
		return nil, false
	}
}

// stosFillReg returns the accumulator sub-register STOS{B,W,D,Q} fills
// memory with, matching the instruction's own operand width.
func stosFillReg(op x86asm.Op) x86asm.Reg {
	switch op {
	case x86asm.STOSW:
		return x86asm.AX
	case x86asm.STOSD:
		return x86asm.EAX
	case x86asm.STOSQ:
		return x86asm.RAX
	default:
		return x86asm.AL
	}
}

func stringOpElemSize(op x86asm.Op) int {
	switch op {
	case x86asm.MOVSW, x86asm.STOSW:
		return 2
	case x86asm.MOVSD, x86asm.STOSD:
		return 4
	case x86asm.MOVSQ, x86asm.STOSQ:
		return 8
	default:
		return 1
	}
}
