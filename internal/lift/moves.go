package lift

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

func (c *ctx) translateMov(blk *ir.BasicBlock, in decode.Instruction) {
	if mem, ok := in.Inst.Args[1].(x86asm.Mem); ok && isPebAccess(mem) {
		c.translatePebLoad(blk, in)
		return
	}
	t := elemTypeForBytes(memBytes(in.Inst))
	src := c.readOperand(in.Inst.Args[1], t)
	d := c.writeDest(in.Inst.Args[0], t)
	d.assign(c, blk, src)
}

// translatePebLoad recognizes `mov reg, gs:[0x60]` and rewrites it into a
// reference to a synthesized `peb` local, declared once per function on
// first use (spec.md's PEB-access idiom).
func (c *ctx) translatePebLoad(blk *ir.BasicBlock, in decode.Instruction) {
	if !c.pebLocalAdded {
		c.fn.AddLocal("peb", ir.PointerType{Elem: ir.U8}, ir.CastExpr{
			Value:  ir.IntrinsicExpr{Name: "__readgsqword", Args: []ir.Expr{ir.UConstExpr{Val: 0x60, Bits: 32}}},
			Target: ir.PointerType{Elem: ir.U8},
			Kind:   ir.Bitcast,
		})
		c.pebLocalAdded = true
		c.usesGsPeb = true
		c.fn.SetTag(ir.TagUsesGsPeb, true)
	}
	d := c.writeDest(in.Inst.Args[0], ir.U64)
	rhs := ir.Expr(ir.CastExpr{Value: ir.LocalExpr{Name: "peb"}, Target: ir.U64, Kind: ir.Bitcast})
	d.assign(c, blk, rhs)
}

func (c *ctx) translateMovzx(blk *ir.BasicBlock, in decode.Instruction) {
	srcType := elemTypeForBytes(srcBytesForExtend(in.Inst))
	dstType := elemTypeForBytes(memBytes(in.Inst))
	src := c.readOperand(in.Inst.Args[1], srcType)
	d := c.writeDest(in.Inst.Args[0], dstType)
	d.assign(c, blk, ir.CastExpr{Value: src, Target: dstType, Kind: ir.ZeroExtend})
}

func (c *ctx) translateMovsx(blk *ir.BasicBlock, in decode.Instruction) {
	srcType := signedElemType(srcBytesForExtend(in.Inst))
	dstType := elemTypeForBytes(memBytes(in.Inst))
	src := c.readOperand(in.Inst.Args[1], srcType)
	d := c.writeDest(in.Inst.Args[0], dstType)
	d.assign(c, blk, ir.CastExpr{Value: src, Target: dstType, Kind: ir.SignExtend})
}

func signedElemType(bytes int) ir.Type {
	return ir.IntType{Bits: uint8(bytes * 8), Signed: true}
}

// srcBytesForExtend recovers the narrower source width a MOVZX/MOVSX
// encodes: x86asm reports the destination's width as MemBytes/DataSize, so
// the source register's own family width is read directly when the source
// is a register, and the instruction's explicit AddrSize-independent
// opcode family is used for a memory source.
func srcBytesForExtend(in x86asm.Inst) int {
	if r, ok := in.Args[1].(x86asm.Reg); ok {
		return int(bitsOf(r)) / 8
	}
	switch in.Op {
	case x86asm.MOVZX, x86asm.MOVSX:
		if in.MemBytes == 4 {
			return 4
		}
		return 1
	default:
		return 4
	}
}

func (c *ctx) translateLea(blk *ir.BasicBlock, in decode.Instruction) {
	mem, ok := in.Inst.Args[1].(x86asm.Mem)
	if !ok {
		blk.Append(&ir.AsmCommentStmt{Text: instrText(in)})
		return
	}
	addr := addrExprForMem(c, mem)
	d := c.writeDest(in.Inst.Args[0], ir.U64)
	d.assign(c, blk, ir.CastExpr{Value: addr, Target: ir.U64, Kind: ir.Bitcast})
}

// translateXmmMove handles MOVUPS/MOVAPS/MOVDQA/MOVDQU between
// XMM registers and memory, with zero-value tracking so that a prior
// XORPS/PXOR self-zeroing is reflected in a store's value (spec.md's
// zero-store-run memset idiom) instead of in a register name the store
// would otherwise just forward blindly.
func (c *ctx) translateXmmMove(blk *ir.BasicBlock, in decode.Instruction) {
	dst, dstIsReg := in.Inst.Args[0].(x86asm.Reg)
	src, srcIsReg := in.Inst.Args[1].(x86asm.Reg)

	if dstIsReg && srcIsReg {
		if c.zeroedXMM[family(src)] {
			c.zeroedXMM[family(dst)] = true
		} else {
			delete(c.zeroedXMM, family(dst))
		}
		return
	}

	if mem, ok := in.Inst.Args[0].(x86asm.Mem); ok {
		t := ir.Type(ir.VectorType{Bits: 128})
		var value ir.Expr
		if srcIsReg && c.zeroedXMM[family(src)] {
			value = ir.UConstExpr{Val: 0, Bits: 32}
		} else if srcIsReg {
			value = c.regExpr(src)
		} else {
			value = c.readOperand(in.Inst.Args[1], t)
		}
		blk.Append(&ir.StoreStmt{Address: addrExprForMem(c, mem), Value: value, ElemType: t, Segment: segmentOf(mem)})
		return
	}

	if mem, ok := in.Inst.Args[1].(x86asm.Mem); ok && dstIsReg {
		t := ir.Type(ir.VectorType{Bits: 128})
		blk.Append(&ir.AssignStmt{Lhs: c.regExpr(dst), Rhs: ir.LoadExpr{Address: addrExprForMem(c, mem), ElemType: t, Segment: segmentOf(mem)}})
		delete(c.zeroedXMM, family(dst))
	}
}

// translateXorpsZero handles the XORPS/PXOR xmm,xmm self-zero idiom: it does
// not emit a statement by itself, it only marks the register as known-zero
// for the XMM move/store translators above to consume.
func (c *ctx) translateXorpsZero(in decode.Instruction) bool {
	dst, ok1 := regArg(in.Inst.Args[0])
	src, ok2 := regArg(in.Inst.Args[1])
	if !ok1 || !ok2 || dst != src {
		return false
	}
	c.zeroedXMM[family(dst)] = true
	return true
}
