package printer

import (
	"fmt"
	"strings"

	"github.com/x64lift/x64lift/internal/ir"
)

// Precedence levels, increasing binding power, per spec.md §4.5:
// min < cond < bit-or < bit-xor < bit-and < relational < shift < additive
// < multiplicative < prefix < primary.
const (
	precMin = iota
	precCond
	precBitOr
	precBitXor
	precBitAnd
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precPrefix
	precPrimary
)

func binOpPrec(op ir.BinOp) int {
	switch op {
	case ir.Or:
		return precBitOr
	case ir.Xor:
		return precBitXor
	case ir.And:
		return precBitAnd
	case ir.Shl, ir.Shr, ir.Sar:
		return precShift
	case ir.Add, ir.Sub:
		return precAdditive
	case ir.Mul, ir.UDiv, ir.SDiv, ir.URem, ir.SRem:
		return precMultiplicative
	default:
		return precMin
	}
}

func exprPrec(e ir.Expr) int {
	switch e := e.(type) {
	case ir.BinOpExpr:
		return binOpPrec(e.Op)
	case ir.CompareExpr:
		return precRelational
	case ir.TernaryExpr:
		return precCond
	case ir.UnOpExpr, ir.CastExpr, ir.AddrOfExpr:
		return precPrefix
	default:
		return precPrimary
	}
}

func binOpText(op ir.BinOp) string {
	switch op {
	case ir.Add:
		return "+"
	case ir.Sub:
		return "-"
	case ir.Mul:
		return "*"
	case ir.UDiv, ir.SDiv:
		return "/"
	case ir.URem, ir.SRem:
		return "%"
	case ir.And:
		return "&"
	case ir.Or:
		return "|"
	case ir.Xor:
		return "^"
	case ir.Shl:
		return "<<"
	case ir.Shr, ir.Sar:
		return ">>"
	default:
		return "?"
	}
}

func compareOpText(op ir.CompareOp) string {
	switch op {
	case ir.EQ:
		return "=="
	case ir.NE:
		return "!="
	case ir.SLT, ir.ULT:
		return "<"
	case ir.SLE, ir.ULE:
		return "<="
	case ir.SGT, ir.UGT:
		return ">"
	case ir.SGE, ir.UGE:
		return ">="
	default:
		return "?"
	}
}

func unOpText(op ir.UnOp) string {
	switch op {
	case ir.Neg:
		return "-"
	case ir.BitNot:
		return "~"
	case ir.LogNot:
		return "!"
	default:
		return "?"
	}
}

// renderExpr renders e as it would appear as a child of an operator with
// precedence parentPrec, wrapping it in parens exactly when necessary.
// isRightChild distinguishes the two operands of a binary operator since
// left-associativity requires parenthesizing a right child whose
// precedence is equal to, not just lower than, the parent's.
func (p *Printer) renderExpr(e ir.Expr, parentPrec int, isRightChild bool) string {
	childPrec := exprPrec(e)
	needsParen := childPrec < parentPrec || (isRightChild && childPrec == parentPrec && isBinaryLike(e))
	text := p.renderExprInner(e)
	if needsParen {
		return "(" + text + ")"
	}
	return text
}

func isBinaryLike(e ir.Expr) bool {
	switch e.(type) {
	case ir.BinOpExpr, ir.CompareExpr:
		return true
	default:
		return false
	}
}

func (p *Printer) renderExprInner(e ir.Expr) string {
	switch e := e.(type) {
	case ir.ConstExpr:
		return formatSignedConst(e.Val)
	case ir.UConstExpr:
		return formatUnsignedConst(e.Val)
	case ir.SymConstExpr:
		return e.Name
	case ir.RegExpr:
		return e.Name
	case ir.ParamExpr:
		return e.Name
	case ir.LocalExpr:
		return e.Name
	case ir.SegmentBaseExpr:
		return e.Segment.String() + "base"
	case ir.LabelRefExpr:
		return e.Label.String()
	case ir.AddrOfExpr:
		return "&" + p.renderExpr(e.Operand, precPrefix, false)
	case ir.LoadExpr:
		return p.renderLoad(e)
	case ir.BinOpExpr:
		prec := binOpPrec(e.Op)
		return p.renderExpr(e.Left, prec, false) + " " + binOpText(e.Op) + " " + p.renderExpr(e.Right, prec, true)
	case ir.UnOpExpr:
		return unOpText(e.Op) + p.renderExpr(e.Operand, precPrefix, false)
	case ir.CompareExpr:
		text := p.renderExpr(e.Left, precRelational, false) + " " + compareOpText(e.Op) + " " + p.renderExpr(e.Right, precRelational, true)
		if p.sus && e.Op.Ordered() {
			if e.Op.Signed() {
				return text + " /* signed */"
			}
			return text + " /* unsigned */"
		}
		return text
	case ir.TernaryExpr:
		return p.renderExpr(e.Cond, precCond, false) + " ? " + p.renderExpr(e.T, precCond, false) + " : " + p.renderExpr(e.F, precCond, true)
	case ir.CastExpr:
		// Cast operands are always parenthesized, even a bare leaf, matching
		// the call-argument address convention (e.g. "(void*)(p1)").
		return "(" + p.renderType(e.Target) + ")(" + p.renderExpr(e.Value, precMin, false) + ")"
	case *ir.CallExpr:
		return p.renderCall(e)
	case ir.IntrinsicExpr:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = p.renderExpr(a, precMin, false)
		}
		return e.Name + "(" + strings.Join(args, ", ") + ")"
	default:
		return fmt.Sprintf("/* unhandled expr %T */", e)
	}
}

func (p *Printer) renderLoad(e ir.LoadExpr) string {
	addr := p.renderExpr(e.Address, precMin, false)
	return fmt.Sprintf("*((%s*)(%s%s))", p.renderType(e.ElemType), e.Segment.String(), addr)
}

func (p *Printer) renderCall(e *ir.CallExpr) string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = p.renderCallArg(e.Target, i, a)
	}
	joined := strings.Join(args, ", ")
	if e.Target.IsByName() {
		return e.Target.Name() + "(" + joined + ")"
	}
	return "(*" + p.renderExpr(e.Target.Address(), precPrefix, false) + ")(" + joined + ")"
}

// renderCallArg renders one call argument, substituting a constant
// provider's formatted name for arguments that fold to a compile-time
// unsigned integer and whose position has a configured expected enum type.
// The byte count (third argument) of memset/memcpy prints in decimal when
// it is a plain non-negative constant.
func (p *Printer) renderCallArg(target ir.CallTarget, argIndex int, arg ir.Expr) string {
	if target.IsByName() {
		if val, ok := foldConstUint(arg); ok {
			if enumType, ok := p.opts.ExpectedEnumType(target.Name(), argIndex); ok {
				if formatted, ok := p.opts.FormatValue(enumType, val); ok {
					return formatted
				}
			}
		}
		if name := target.Name(); argIndex == 2 && (name == "memset" || name == "memcpy") {
			switch v := arg.(type) {
			case ir.UConstExpr:
				return fmt.Sprintf("%d", v.Val)
			case ir.ConstExpr:
				if v.Val >= 0 {
					return fmt.Sprintf("%d", v.Val)
				}
			}
		}
	}
	return p.renderExpr(arg, precMin, false)
}

// foldConstUint evaluates e to a compile-time unsigned integer if e is a
// constant, or an OR/ADD of foldable constants (spec.md §6).
func foldConstUint(e ir.Expr) (uint64, bool) {
	switch e := e.(type) {
	case ir.ConstExpr:
		return uint64(e.Val), true
	case ir.UConstExpr:
		return e.Val, true
	case ir.SymConstExpr:
		return e.Val, true
	case ir.BinOpExpr:
		if e.Op != ir.Or && e.Op != ir.Add {
			return 0, false
		}
		l, ok := foldConstUint(e.Left)
		if !ok {
			return 0, false
		}
		r, ok := foldConstUint(e.Right)
		if !ok {
			return 0, false
		}
		if e.Op == ir.Or {
			return l | r, true
		}
		return l + r, true
	default:
		return 0, false
	}
}

func formatSignedConst(v int64) string {
	if v >= 0 && v < 10 {
		return fmt.Sprintf("%d", v)
	}
	if v < 0 {
		return fmt.Sprintf("0x%X", uint64(v))
	}
	return fmt.Sprintf("0x%X", v)
}

func formatUnsignedConst(v uint64) string {
	if v < 10 {
		return fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("0x%X", v)
}
