package ir

// Segment names a segment-register prefix on a memory operand.
type Segment uint8

const (
	SegNone Segment = iota
	SegFS
	SegGS
)

func (s Segment) String() string {
	switch s {
	case SegFS:
		return "fs:"
	case SegGS:
		return "gs:"
	default:
		return ""
	}
}

// BinOp is the operator of a BinOpExpr.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	UDiv
	SDiv
	URem
	SRem
	And
	Or
	Xor
	Shl
	Shr // logical
	Sar // arithmetic
)

// UnOp is the operator of a UnOpExpr.
type UnOp uint8

const (
	Neg UnOp = iota
	BitNot
	LogNot
)

// CompareOp is the operator of a CompareExpr.
type CompareOp uint8

const (
	EQ CompareOp = iota
	NE
	SLT
	SLE
	SGT
	SGE
	ULT
	ULE
	UGT
	UGE
)

// Signed reports whether op is one of the signed relational operators.
func (op CompareOp) Signed() bool {
	switch op {
	case SLT, SLE, SGT, SGE:
		return true
	default:
		return false
	}
}

// Unsigned reports whether op is one of the unsigned relational operators.
func (op CompareOp) Unsigned() bool {
	switch op {
	case ULT, ULE, UGT, UGE:
		return true
	default:
		return false
	}
}

// Ordered reports whether op is a relational (as opposed to (in)equality)
// comparison.
func (op CompareOp) Ordered() bool {
	return op.Signed() || op.Unsigned()
}

// CastKind is the operator of a CastExpr.
type CastKind uint8

const (
	ZeroExtend CastKind = iota
	SignExtend
	Trunc
	Bitcast
	Reinterpret
)

// Expr is a closed tagged variant for the IR's expression nodes. Composite
// expressions own their operands by value; there is no way to construct a
// cyclic expression tree.
type Expr interface {
	exprNode()
}

// ConstExpr is a signed integer literal of the given bit width.
type ConstExpr struct {
	Val  int64
	Bits uint8
}

func (ConstExpr) exprNode() {}

// UConstExpr is an unsigned integer literal of the given bit width.
type UConstExpr struct {
	Val  uint64
	Bits uint8
}

func (UConstExpr) exprNode() {}

// SymConstExpr is a named constant: it prints as Name rather than as a
// literal, but still carries the underlying value for further analysis.
type SymConstExpr struct {
	Val  uint64
	Bits uint8
	Name string
}

func (SymConstExpr) exprNode() {}

// RegExpr is a named register or pseudo-register (p1..p4, fp1..fp4, ret,
// or a raw architectural register name).
type RegExpr struct {
	Name string
}

func (RegExpr) exprNode() {}

// ParamExpr is a reference to one of the function's formal parameters.
type ParamExpr struct {
	Name  string
	Index int
}

func (ParamExpr) exprNode() {}

// LocalExpr is a reference to a function-local variable.
type LocalExpr struct {
	Name string
}

func (LocalExpr) exprNode() {}

// SegmentBaseExpr is a bare reference to a segment base (fs/gs), used
// before it is recognized as a larger idiom such as the PEB access.
type SegmentBaseExpr struct {
	Segment Segment
}

func (SegmentBaseExpr) exprNode() {}

// LabelRefExpr names a label symbol as a value. Goto/if-goto do not use
// it; they hold *LabelSymbol directly.
type LabelRefExpr struct {
	Label *LabelSymbol
}

func (LabelRefExpr) exprNode() {}

// AddrOfExpr takes the address of Operand without performing a load.
type AddrOfExpr struct {
	Operand Expr
}

func (AddrOfExpr) exprNode() {}

// LoadExpr dereferences Address as ElemType, optionally through a segment
// prefix.
type LoadExpr struct {
	Address  Expr
	ElemType Type
	Segment  Segment
}

func (LoadExpr) exprNode() {}

// BinOpExpr is a two-operand arithmetic/bitwise/shift expression.
type BinOpExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
}

func (BinOpExpr) exprNode() {}

// UnOpExpr is a one-operand arithmetic/bitwise expression.
type UnOpExpr struct {
	Op      UnOp
	Operand Expr
}

func (UnOpExpr) exprNode() {}

// CompareExpr is a boolean-valued relational or equality comparison.
type CompareExpr struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

func (CompareExpr) exprNode() {}

// TernaryExpr is `Cond ? T : F`.
type TernaryExpr struct {
	Cond Expr
	T    Expr
	F    Expr
}

func (TernaryExpr) exprNode() {}

// CastExpr converts Value to Target under the given Kind.
type CastExpr struct {
	Value  Expr
	Target Type
	Kind   CastKind
}

func (CastExpr) exprNode() {}

// CallTarget is either a by-name call or an indirect call through an
// address expression, never both. Use ByName or Indirect to construct one.
type CallTarget struct {
	name string
	addr Expr
}

// ByName builds a CallTarget that calls the named symbol.
func ByName(symbol string) CallTarget {
	return CallTarget{name: symbol}
}

// Indirect builds a CallTarget that calls through addr.
func Indirect(addr Expr) CallTarget {
	if addr == nil {
		panic("ir: Indirect requires a non-nil address expression")
	}
	return CallTarget{addr: addr}
}

// IsByName reports whether this target calls a named symbol.
func (t CallTarget) IsByName() bool { return t.addr == nil }

// Name returns the called symbol name; valid only when IsByName is true.
func (t CallTarget) Name() string { return t.name }

// Address returns the indirect call's target expression; valid only when
// IsByName is false.
func (t CallTarget) Address() Expr { return t.addr }

// CallExpr is a function call used as an expression (its value is the
// callee's return value).
type CallExpr struct {
	Target CallTarget
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// IntrinsicExpr is a call to a pseudo-operation with no symbolic target,
// such as a rotate or a bit-test.
type IntrinsicExpr struct {
	Name string
	Args []Expr
}

func (IntrinsicExpr) exprNode() {}

// ExprEqual reports whether a and b are structurally identical expression
// trees. It is used by peephole base-address matching and by the
// self-assign refinement pass; it never needs to handle CallExpr or
// IntrinsicExpr, which this module's callers never compare.
func ExprEqual(a, b Expr) bool {
	switch a := a.(type) {
	case ConstExpr:
		bb, ok := b.(ConstExpr)
		return ok && a == bb
	case UConstExpr:
		bb, ok := b.(UConstExpr)
		return ok && a == bb
	case SymConstExpr:
		bb, ok := b.(SymConstExpr)
		return ok && a == bb
	case RegExpr:
		bb, ok := b.(RegExpr)
		return ok && a == bb
	case ParamExpr:
		bb, ok := b.(ParamExpr)
		return ok && a == bb
	case LocalExpr:
		bb, ok := b.(LocalExpr)
		return ok && a == bb
	case SegmentBaseExpr:
		bb, ok := b.(SegmentBaseExpr)
		return ok && a == bb
	case LabelRefExpr:
		bb, ok := b.(LabelRefExpr)
		return ok && a.Label == bb.Label
	case AddrOfExpr:
		bb, ok := b.(AddrOfExpr)
		return ok && ExprEqual(a.Operand, bb.Operand)
	case LoadExpr:
		bb, ok := b.(LoadExpr)
		return ok && a.Segment == bb.Segment && TypeEqual(a.ElemType, bb.ElemType) && ExprEqual(a.Address, bb.Address)
	case BinOpExpr:
		bb, ok := b.(BinOpExpr)
		return ok && a.Op == bb.Op && ExprEqual(a.Left, bb.Left) && ExprEqual(a.Right, bb.Right)
	case UnOpExpr:
		bb, ok := b.(UnOpExpr)
		return ok && a.Op == bb.Op && ExprEqual(a.Operand, bb.Operand)
	case CompareExpr:
		bb, ok := b.(CompareExpr)
		return ok && a.Op == bb.Op && ExprEqual(a.Left, bb.Left) && ExprEqual(a.Right, bb.Right)
	case TernaryExpr:
		bb, ok := b.(TernaryExpr)
		return ok && ExprEqual(a.Cond, bb.Cond) && ExprEqual(a.T, bb.T) && ExprEqual(a.F, bb.F)
	case CastExpr:
		bb, ok := b.(CastExpr)
		return ok && a.Kind == bb.Kind && TypeEqual(a.Target, bb.Target) && ExprEqual(a.Value, bb.Value)
	default:
		return false
	}
}
