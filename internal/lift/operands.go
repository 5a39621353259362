package lift

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/ir"
)

// segmentOf maps a Mem operand's segment override to the IR's Segment enum.
// Any override other than FS/GS (essentially never emitted by MSVC-compiled
// x64 code) is treated as SegNone.
func segmentOf(m x86asm.Mem) ir.Segment {
	switch m.Segment {
	case x86asm.FS:
		return ir.SegFS
	case x86asm.GS:
		return ir.SegGS
	default:
		return ir.SegNone
	}
}

// addrExprForMem builds the address expression base+index*scale+disp for a
// memory operand, omitting any term that is architecturally absent.
func addrExprForMem(c *ctx, m x86asm.Mem) ir.Expr {
	var addr ir.Expr
	if m.Base != 0 {
		addr = c.regExpr(m.Base)
	}
	if m.Index != 0 && m.Scale != 0 {
		idx := ir.Expr(c.regExpr(m.Index))
		if m.Scale != 1 {
			idx = ir.BinOpExpr{Op: ir.Mul, Left: idx, Right: ir.UConstExpr{Val: uint64(m.Scale), Bits: 64}}
		}
		if addr != nil {
			addr = ir.BinOpExpr{Op: ir.Add, Left: addr, Right: idx}
		} else {
			addr = idx
		}
	}
	if m.Disp != 0 {
		if addr != nil {
			if m.Disp > 0 {
				addr = ir.BinOpExpr{Op: ir.Add, Left: addr, Right: ir.UConstExpr{Val: uint64(m.Disp), Bits: 64}}
			} else {
				addr = ir.BinOpExpr{Op: ir.Sub, Left: addr, Right: ir.UConstExpr{Val: uint64(-m.Disp), Bits: 64}}
			}
		} else {
			addr = ir.UConstExpr{Val: uint64(m.Disp), Bits: 64}
		}
	}
	if addr == nil {
		addr = ir.UConstExpr{Val: 0, Bits: 64}
	}
	return addr
}

// isPebAccess reports whether m is the gs:[0x60] PEB idiom: no base, no
// index, displacement exactly 0x60, GS segment.
func isPebAccess(m x86asm.Mem) bool {
	return m.Segment == x86asm.GS && m.Base == 0 && m.Index == 0 && m.Disp == 0x60
}

// elemTypeForBytes returns the unsigned integer or vector type of the given
// byte width, the default element type this module assigns to a memory
// operand absent a more specific signedness decision.
func elemTypeForBytes(n int) ir.Type {
	switch n {
	case 1, 2, 4, 8:
		return ir.IntType{Bits: uint8(n * 8), Signed: false}
	case 16, 32, 64:
		return ir.VectorType{Bits: uint16(n * 8)}
	default:
		return ir.U64
	}
}

func memBytes(in x86asm.Inst) int {
	if in.MemBytes > 0 {
		return in.MemBytes
	}
	if in.DataSize > 0 {
		return in.DataSize / 8
	}
	return 8
}

// readOperand evaluates a as an rvalue of type t: a register reference, a
// memory load, or a sign/zero-extended-as-needed literal.
func (c *ctx) readOperand(a x86asm.Arg, t ir.Type) ir.Expr {
	switch v := a.(type) {
	case x86asm.Reg:
		return c.regExpr(v)
	case x86asm.Mem:
		return ir.LoadExpr{Address: addrExprForMem(c, v), ElemType: t, Segment: segmentOf(v)}
	case x86asm.Imm:
		return ir.UConstExpr{Val: uint64(int64(v)), Bits: bitsOfType(t)}
	case x86asm.Rel:
		return ir.UConstExpr{Val: uint64(int64(v)), Bits: 32}
	default:
		panic("BUG: lift: unsupported operand kind in readOperand")
	}
}

func bitsOfType(t ir.Type) uint8 {
	switch t := t.(type) {
	case ir.IntType:
		return t.Bits
	case ir.FloatType:
		return t.Bits
	case ir.VectorType:
		return uint8(t.Bits)
	default:
		return 64
	}
}

// dest is an lvalue a writing instruction assigns to: either a register
// (rendered as an AssignStmt) or a memory location (rendered as a
// StoreStmt).
type dest struct {
	isMem  bool
	reg    ir.Expr
	name   string
	family string // register family (e.g. "rax"), empty for a memory dest
	addr   ir.Expr
	elem   ir.Type
	seg    ir.Segment
}

func (c *ctx) writeDest(a x86asm.Arg, t ir.Type) dest {
	switch v := a.(type) {
	case x86asm.Reg:
		name := c.nameOf(v)
		return dest{reg: ir.RegExpr{Name: name}, name: name, family: family(v)}
	case x86asm.Mem:
		return dest{isMem: true, addr: addrExprForMem(c, v), elem: t, seg: segmentOf(v)}
	default:
		panic("BUG: lift: write destination must be a register or memory operand")
	}
}

// assign emits the AssignStmt/StoreStmt for rhs and, for a register
// destination, updates the sliding "last known value" context that call
// argument recovery and ret-constant propagation both read from. The
// ret-constant bookkeeping keys off the register's family, not its
// printed name, since a plain write to eax/al/rax still needs to update
// retConst even when it does not render as "ret".
func (d dest) assign(c *ctx, blk *ir.BasicBlock, rhs ir.Expr) {
	if d.isMem {
		blk.Append(&ir.StoreStmt{Address: d.addr, Value: rhs, ElemType: d.elem, Segment: d.seg})
		return
	}
	blk.Append(&ir.AssignStmt{Lhs: d.reg, Rhs: rhs})
	c.regValue[d.name] = rhs
	if d.family == "rax" {
		c.retEverSet = true
		switch rhs.(type) {
		case ir.ConstExpr, ir.UConstExpr:
			c.retConst = rhs
		default:
			c.retConst = nil
		}
	}
}

// regArg extracts the x86asm.Reg at args[i], or 0 if that argument is not a
// plain register (used by special-cased idioms that only fire for
// register-to-register forms, such as the XOR reg,reg zero idiom).
func regArg(a x86asm.Arg) (x86asm.Reg, bool) {
	r, ok := a.(x86asm.Reg)
	return r, ok
}
