package lift

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

func (c *ctx) translateBinOp(blk *ir.BasicBlock, in decode.Instruction, op ir.BinOp) {
	t := elemTypeForBytes(memBytes(in.Inst))
	lhs := c.readOperand(in.Inst.Args[0], t)
	rhs := c.readOperand(in.Inst.Args[1], t)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.BinOpExpr{Op: op, Left: lhs, Right: rhs})
	c.clearCmp()
}

// translateXor special-cases the `xor reg, reg` self-zero idiom (spec.md's
// canonical zeroing form) into a plain constant assignment rather than a
// `reg ^ reg` expression, and otherwise falls back to a general bitwise xor.
func (c *ctx) translateXor(blk *ir.BasicBlock, in decode.Instruction) {
	if r1, ok1 := regArg(in.Inst.Args[0]); ok1 {
		if r2, ok2 := regArg(in.Inst.Args[1]); ok2 && family(r1) == family(r2) {
			t := elemTypeForBytes(memBytes(in.Inst))
			zero := ir.UConstExpr{Val: 0, Bits: bitsOfType(t)}
			d := c.writeDest(in.Inst.Args[0], t)
			d.assign(c, blk, zero)
			c.clearCmp()
			return
		}
	}
	c.translateBinOp(blk, in, ir.Xor)
}

func (c *ctx) translateUnary(blk *ir.BasicBlock, in decode.Instruction, op ir.UnOp) {
	t := elemTypeForBytes(memBytes(in.Inst))
	v := c.readOperand(in.Inst.Args[0], t)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.UnOpExpr{Op: op, Operand: v})
	c.clearCmp()
}

func (c *ctx) translateIncDec(blk *ir.BasicBlock, in decode.Instruction, op ir.BinOp) {
	t := elemTypeForBytes(memBytes(in.Inst))
	v := c.readOperand(in.Inst.Args[0], t)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.BinOpExpr{Op: op, Left: v, Right: ir.UConstExpr{Val: 1, Bits: bitsOfType(t)}})
	c.clearCmp()
}

func (c *ctx) translateShift(blk *ir.BasicBlock, in decode.Instruction, op ir.BinOp) {
	t := elemTypeForBytes(memBytes(in.Inst))
	v := c.readOperand(in.Inst.Args[0], t)
	count := c.shiftCount(in)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.BinOpExpr{Op: op, Left: v, Right: count})
	c.clearCmp()
}

func (c *ctx) translateRotate(blk *ir.BasicBlock, in decode.Instruction, name string) {
	t := elemTypeForBytes(memBytes(in.Inst))
	v := c.readOperand(in.Inst.Args[0], t)
	count := c.shiftCount(in)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.IntrinsicExpr{Name: name, Args: []ir.Expr{v, count}})
	c.clearCmp()
}

func (c *ctx) shiftCount(in decode.Instruction) ir.Expr {
	if len(in.Inst.Args) > 1 && in.Inst.Args[1] != nil {
		if _, isImm := in.Inst.Args[1].(x86asm.Imm); isImm {
			return c.readOperand(in.Inst.Args[1], ir.U8)
		}
		if r, ok := in.Inst.Args[1].(x86asm.Reg); ok {
			return c.regExpr(r)
		}
	}
	return c.regExpr(x86asm.CL)
}

// translateMulDiv lowers one-operand IMUL and MUL/IDIV/DIV to a
// PseudoStmt: these instructions produce a result wider than any single
// destination operand (RDX:RAX), which the PseudoStmt text makes explicit
// instead of picking one register to silently drop the rest into. The
// two-operand IMUL goes through translateBinOp and the three-operand form
// through translateImul3.
func (c *ctx) translateMulDiv(blk *ir.BasicBlock, in decode.Instruction, mnemonic string) {
	blk.Append(&ir.PseudoStmt{Text: fmt.Sprintf("%s: %s", mnemonic, instrText(in))})
	c.clearCmp()
}

// translateImul3 lowers the `imul dst, src, imm` form, which behaves like a
// normal multiply assignment with no width ambiguity.
func (c *ctx) translateImul3(blk *ir.BasicBlock, in decode.Instruction) {
	t := elemTypeForBytes(memBytes(in.Inst))
	src := c.readOperand(in.Inst.Args[1], t)
	imm := c.readOperand(in.Inst.Args[2], t)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, ir.BinOpExpr{Op: ir.Mul, Left: src, Right: imm})
	c.clearCmp()
}
