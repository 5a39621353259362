package printer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x64lift/x64lift/internal/constprovider"
	"github.com/x64lift/x64lift/internal/ir"
)

func newFn() *ir.FunctionIR {
	fn := ir.NewFunctionIR("sub_140001000", 0x140000000, 0x140001000)
	fn.ReturnType = ir.U64
	return fn
}

func TestConstantFormatting(t *testing.T) {
	p := New(Options{})
	require.Equal(t, "9", p.renderExprInner(ir.ConstExpr{Val: 9, Bits: 32}))
	require.Equal(t, "0xA", p.renderExprInner(ir.ConstExpr{Val: 10, Bits: 32}))
	require.Equal(t, "0xFFFFFFFFFFFFFFFF", p.renderExprInner(ir.ConstExpr{Val: -1, Bits: 64}))
	require.Equal(t, "0", p.renderExprInner(ir.UConstExpr{Val: 0, Bits: 32}))
	require.Equal(t, "0x64", p.renderExprInner(ir.UConstExpr{Val: 100, Bits: 32}))
}

func TestPrecedenceAddThenMul(t *testing.T) {
	// (a + b) * c must parenthesize the additive left child.
	e := ir.BinOpExpr{
		Op:   ir.Mul,
		Left: ir.BinOpExpr{Op: ir.Add, Left: ir.RegExpr{Name: "a"}, Right: ir.RegExpr{Name: "b"}},
		Right: ir.RegExpr{Name: "c"},
	}
	p := New(Options{})
	require.Equal(t, "(a + b) * c", p.renderExprInner(e))
}

func TestPrecedenceMulThenAddNoParens(t *testing.T) {
	// a + b * c needs no parens: multiplicative binds tighter.
	e := ir.BinOpExpr{
		Op:  ir.Add,
		Left: ir.RegExpr{Name: "a"},
		Right: ir.BinOpExpr{Op: ir.Mul, Left: ir.RegExpr{Name: "b"}, Right: ir.RegExpr{Name: "c"}},
	}
	p := New(Options{})
	require.Equal(t, "a + b * c", p.renderExprInner(e))
}

func TestLeftAssociativitySubRightChildParenthesized(t *testing.T) {
	// a - (b - c) must keep parens: it is not the same as (a - b) - c.
	e := ir.BinOpExpr{
		Op:  ir.Sub,
		Left: ir.RegExpr{Name: "a"},
		Right: ir.BinOpExpr{Op: ir.Sub, Left: ir.RegExpr{Name: "b"}, Right: ir.RegExpr{Name: "c"}},
	}
	p := New(Options{})
	require.Equal(t, "a - (b - c)", p.renderExprInner(e))
}

func TestLeftAssociativityLeftChildNoParens(t *testing.T) {
	// (a - b) - c prints without parens: left-associative evaluation already matches.
	e := ir.BinOpExpr{
		Op:  ir.Sub,
		Left: ir.BinOpExpr{Op: ir.Sub, Left: ir.RegExpr{Name: "a"}, Right: ir.RegExpr{Name: "b"}},
		Right: ir.RegExpr{Name: "c"},
	}
	p := New(Options{})
	require.Equal(t, "a - b - c", p.renderExprInner(e))
}

func TestSignedUnsignedHints(t *testing.T) {
	p := New(Options{SignedUnsignedHints: true})
	signed := ir.CompareExpr{Op: ir.SLT, Left: ir.RegExpr{Name: "a"}, Right: ir.RegExpr{Name: "b"}}
	unsigned := ir.CompareExpr{Op: ir.ULT, Left: ir.RegExpr{Name: "a"}, Right: ir.RegExpr{Name: "b"}}
	require.Equal(t, "a < b /* signed */", p.renderExprInner(signed))
	require.Equal(t, "a < b /* unsigned */", p.renderExprInner(unsigned))
}

func TestLoadExprSegment(t *testing.T) {
	p := New(Options{})
	l := ir.LoadExpr{Address: ir.UConstExpr{Val: 0x60, Bits: 64}, ElemType: ir.PointerType{Elem: ir.U8}, Segment: ir.SegGS}
	require.Equal(t, "*((uint8_t**)(gs:0x60))", p.renderExprInner(l))
}

func TestCastExpr(t *testing.T) {
	p := New(Options{})
	c := ir.CastExpr{Value: ir.RegExpr{Name: "eax"}, Target: ir.U64, Kind: ir.ZeroExtend}
	require.Equal(t, "(uint64_t)(eax)", p.renderExprInner(c))
}

func TestCallStmtNoPrefix(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	call := &ir.CallExpr{Target: ir.ByName("memset"), Args: []ir.Expr{
		ir.CastExpr{Value: ir.ParamExpr{Name: "p1", Index: 0}, Target: ir.PointerType{Elem: ir.Void}, Kind: ir.Bitcast},
		ir.UConstExpr{Val: 0, Bits: 32},
		ir.UConstExpr{Val: 32, Bits: 32},
	}}
	blk.Append(&ir.CallStmt{Call: call})
	out := Print(fn, Options{})
	require.Contains(t, out, "memset((void*)(p1), 0, 32);")
	require.NotContains(t, out, "/* call */")
}

func TestAssignCallRetAnnotation(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	call := &ir.CallExpr{Target: ir.ByName("sub_140002000")}
	blk.Append(&ir.AssignStmt{Lhs: ir.RegExpr{Name: "ret"}, Rhs: call})
	out := Print(fn, Options{})
	require.Contains(t, out, "/* call */ ret = sub_140002000();  // RAX")
}

func TestAssignCallNonRetNoAnnotation(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	call := &ir.CallExpr{Target: ir.ByName("sub_140002000")}
	blk.Append(&ir.AssignStmt{Lhs: ir.LocalExpr{Name: "local_8"}, Rhs: call})
	out := Print(fn, Options{})
	require.Contains(t, out, "/* call */ local_8 = sub_140002000();")
	require.NotContains(t, out, "// RAX")
}

func TestIfGotoAndLabel(t *testing.T) {
	fn := newFn()
	l1 := fn.NewLabel("L1")
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(&ir.IfGotoStmt{Cond: ir.CompareExpr{Op: ir.EQ, Left: ir.RegExpr{Name: "eax"}, Right: ir.UConstExpr{Val: 0, Bits: 32}}, Target: l1})
	blk2 := fn.AddBlock(l1)
	blk2.Append(&ir.LabelStmt{Label: l1})
	blk2.Append(&ir.ReturnStmt{})
	out := Print(fn, Options{})
	require.Contains(t, out, "if (eax == 0) goto L1;")
	require.Contains(t, out, "L1:\n")
	require.Contains(t, out, "return;\n")
}

func TestReturnWithValue(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(&ir.ReturnStmt{Value: ir.RegExpr{Name: "ret"}})
	out := Print(fn, Options{})
	require.Contains(t, out, "return ret;\n")
}

func TestPseudoAndNop(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(&ir.PseudoStmt{Text: "CF = bit(value, index)"})
	blk.Append(ir.NopStmt{})
	out := Print(fn, Options{})
	require.Contains(t, out, "__pseudo(CF = bit(value, index));")
	require.Contains(t, out, "__pseudo(nop);")
}

func TestAsmCommentPreserved(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(&ir.AsmCommentStmt{Text: "0x140001000: XOR RAX, RAX"})
	out := Print(fn, Options{})
	require.Contains(t, out, "/* 0x140001000: XOR RAX, RAX */")
}

func TestFrameCommentsFramePointerWithLocals(t *testing.T) {
	fn := newFn()
	fn.SetTag(ir.TagUsesFramePointer, true)
	fn.SetTag(ir.TagLocalSize, 0x20)
	out := Print(fn, Options{})
	require.Contains(t, out, "push rbp; mov rbp, rsp; sub rsp, 0x20 (locals)")
}

func TestFrameCommentsSubRspOnly(t *testing.T) {
	fn := newFn()
	fn.SetTag(ir.TagLocalSize, 0x18)
	out := Print(fn, Options{})
	require.Contains(t, out, "// sub rsp, 0x18")
}

func TestLocalsRendering(t *testing.T) {
	fn := newFn()
	fn.AddLocal("peb", ir.PointerType{Elem: ir.U8}, ir.CastExpr{
		Value:  ir.IntrinsicExpr{Name: "__readgsqword", Args: []ir.Expr{ir.UConstExpr{Val: 0x60, Bits: 32}}},
		Target: ir.PointerType{Elem: ir.U8}, Kind: ir.Bitcast,
	})
	out := Print(fn, Options{})
	require.Contains(t, out, "uint8_t* peb = (uint8_t*)(__readgsqword(0x60));")
}

func TestCallArgConstantProviderSubstitution(t *testing.T) {
	sp := constprovider.NewStatic().
		ExpectArg("NtCreateFile", 1, "FILE_ACCESS").
		AddEnum("FILE_ACCESS", constprovider.EnumMember{Name: "GENERIC_READ", Mask: 0x80000000})

	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	call := &ir.CallExpr{Target: ir.ByName("NtCreateFile"), Args: []ir.Expr{
		ir.RegExpr{Name: "p1"},
		ir.UConstExpr{Val: 0x80000000, Bits: 32},
	}}
	blk.Append(&ir.CallStmt{Call: call})
	out := Print(fn, Options{Constants: sp})
	require.Contains(t, out, "NtCreateFile(p1, GENERIC_READ);")
}

func TestNativeTypeNames(t *testing.T) {
	fn := newFn()
	fn.ReturnType = ir.U32
	out := Print(fn, Options{NativeTypeNames: true})
	require.True(t, strings.HasPrefix(out, "unsigned int sub_140001000("))
}

func TestDeterministicOutput(t *testing.T) {
	fn := newFn()
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(&ir.ReturnStmt{Value: ir.ConstExpr{Val: 0, Bits: 64}})
	a := Print(fn, Options{})
	b := Print(fn, Options{})
	require.Equal(t, a, b)
}
