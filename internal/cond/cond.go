// Package cond translates an x64 condition code plus the sliding
// "last compare" / "last bit-test" lifter context into a boolean ir.Expr,
// per the condition-code lowering table used by jcc/setcc/cmovcc.
package cond

import "github.com/x64lift/x64lift/internal/ir"

// Cc is a processor condition code, named after the mnemonic suffix it
// appears under (Jcc/SETcc/CMOVcc).
type Cc uint8

const (
	E Cc = iota
	NE
	L
	LE
	G
	GE
	B
	AE
	BE
	A
	S
	NS
	O
	NO
	P
	NP
)

// LastCmp is the sliding context left behind by the most recent CMP or
// TEST. Left/Right are the original operand expressions (not re-parsed
// text), per the Design Notes' rejection of the string round-trip.
type LastCmp struct {
	Left, Right ir.Expr
	IsTest      bool
	BitWidth    uint8
}

// LastBt is the sliding context left behind by the most recent BT/BTS/BTR/BTC.
type LastBt struct {
	Value, Index ir.Expr
}

// flag builds an opaque reference to a synthetic processor flag (ZF, SF,
// OF, CF, PF), used only by the canonical fallback table below when no
// cmp/test/bt context survives to the condition site.
func flag(name string) ir.Expr { return ir.RegExpr{Name: name} }

func zero(bits uint8) ir.Expr { return ir.UConstExpr{Val: 0, Bits: bits} }

func one(bits uint8) ir.Expr { return ir.UConstExpr{Val: 1, Bits: bits} }

// Build lowers cc into a boolean expression given the live context. cmp and
// bt may each be nil if no such instruction has been seen since the last
// instruction that would clear it.
func Build(cc Cc, cmp *LastCmp, bt *LastBt) ir.Expr {
	if bt != nil && (cc == B || cc == AE) {
		bitWidth := uint8(32)
		bit := ir.BinOpExpr{
			Op:   ir.And,
			Left: ir.BinOpExpr{Op: ir.Shr, Left: bt.Value, Right: bt.Index},
			Right: one(bitWidth),
		}
		if cc == B {
			return ir.CompareExpr{Op: ir.NE, Left: bit, Right: zero(bitWidth)}
		}
		return ir.CompareExpr{Op: ir.EQ, Left: bit, Right: zero(bitWidth)}
	}

	if cmp != nil {
		if cmp.IsTest && ir.ExprEqual(cmp.Left, cmp.Right) && (cc == E || cc == NE) {
			op := ir.EQ
			if cc == NE {
				op = ir.NE
			}
			return ir.CompareExpr{Op: op, Left: cmp.Left, Right: zero(cmp.BitWidth)}
		}
		if cmp.IsTest {
			switch cc {
			case E, NE:
				and := ir.BinOpExpr{Op: ir.And, Left: cmp.Left, Right: cmp.Right}
				op := ir.EQ
				if cc == NE {
					op = ir.NE
				}
				return ir.CompareExpr{Op: op, Left: and, Right: zero(cmp.BitWidth)}
			}
		}
		if op, ok := cmpOp(cc); ok {
			return ir.CompareExpr{Op: op, Left: cmp.Left, Right: cmp.Right}
		}
	}

	return fallback(cc)
}

// cmpOp maps a condition code to the relational/equality CompareOp to use
// against a live LastCmp that came from an actual CMP (not TEST). E/NE are
// included here for the plain-cmp case; they are handled earlier when the
// cmp was a TEST.
func cmpOp(cc Cc) (ir.CompareOp, bool) {
	switch cc {
	case E:
		return ir.EQ, true
	case NE:
		return ir.NE, true
	case L:
		return ir.SLT, true
	case LE:
		return ir.SLE, true
	case G:
		return ir.SGT, true
	case GE:
		return ir.SGE, true
	case B:
		return ir.ULT, true
	case BE:
		return ir.ULE, true
	case A:
		return ir.UGT, true
	case AE:
		return ir.UGE, true
	default:
		return 0, false
	}
}

// fallback produces the canonical flag-expression table used when no
// cmp/test/bt context is live at the condition site (e.g. a jcc following
// an INC/DEC/shift, which sets flags without recording LastCmp).
func fallback(cc Cc) ir.Expr {
	zf, sf, of, cfFlag, pf := flag("ZF"), flag("SF"), flag("OF"), flag("CF"), flag("PF")
	nz := func(e ir.Expr) ir.Expr { return ir.CompareExpr{Op: ir.NE, Left: e, Right: zero(8)} }
	z := func(e ir.Expr) ir.Expr { return ir.CompareExpr{Op: ir.EQ, Left: e, Right: zero(8)} }
	or := func(a, b ir.Expr) ir.Expr { return ir.BinOpExpr{Op: ir.Or, Left: a, Right: b} }
	and := func(a, b ir.Expr) ir.Expr { return ir.BinOpExpr{Op: ir.And, Left: a, Right: b} }

	switch cc {
	case E:
		return nz(zf)
	case NE:
		return z(zf)
	case L:
		return ir.CompareExpr{Op: ir.NE, Left: sf, Right: of}
	case GE:
		return ir.CompareExpr{Op: ir.EQ, Left: sf, Right: of}
	case LE:
		return or(nz(zf), ir.CompareExpr{Op: ir.NE, Left: sf, Right: of})
	case G:
		return and(z(zf), ir.CompareExpr{Op: ir.EQ, Left: sf, Right: of})
	case B:
		return nz(cfFlag)
	case AE:
		return z(cfFlag)
	case BE:
		return or(nz(cfFlag), nz(zf))
	case A:
		return and(z(cfFlag), z(zf))
	case S:
		return nz(sf)
	case NS:
		return z(sf)
	case O:
		return nz(of)
	case NO:
		return z(of)
	case P:
		return nz(pf)
	case NP:
		return z(pf)
	default:
		return nz(zf)
	}
}

// BuildCxz builds the JRCXZ/JECXZ/JCXZ condition `reg == 0` for the given
// counter-register expression.
func BuildCxz(reg ir.Expr) ir.Expr {
	return ir.CompareExpr{Op: ir.EQ, Left: reg, Right: zero(64)}
}
