package peephole

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x64lift/x64lift/internal/ir"
)

func zeroStore(base ir.Expr, offset int64, size uint8) *ir.StoreStmt {
	addr := addBase(base, offset)
	var et ir.Type
	switch size {
	case 16:
		et = ir.VectorType{Bits: 128}
	default:
		et = ir.IntType{Bits: size * 8, Signed: false}
	}
	return &ir.StoreStmt{Address: addr, Value: ir.UConstExpr{Val: 0, Bits: 32}, ElemType: et}
}

func TestMemsetCoalescesTwoXMMStores(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	stmts := []ir.Stmt{
		zeroStore(p1, 0, 16),
		zeroStore(p1, 16, 16),
	}
	out := coalesceBlock(stmts)
	require.Len(t, out, 1)
	call, ok := out[0].(*ir.CallStmt)
	require.True(t, ok)
	require.Equal(t, "memset", call.Call.Target.Name())
	require.Equal(t, ir.UConstExpr{Val: 32, Bits: 32}, call.Call.Args[2])
}

func TestMemsetLeavesShortRunAlone(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	stmts := []ir.Stmt{zeroStore(p1, 0, 16)}
	out := coalesceBlock(stmts)
	require.Len(t, out, 1)
	_, isStore := out[0].(*ir.StoreStmt)
	require.True(t, isStore)
}

func TestMemsetRequiresMatchingBase(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	p2 := ir.ParamExpr{Name: "p2", Index: 1}
	stmts := []ir.Stmt{
		zeroStore(p1, 0, 16),
		zeroStore(p2, 16, 16),
	}
	out := coalesceBlock(stmts)
	require.Len(t, out, 2)
}

func TestMemsetRequiresZeroValue(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	s1 := zeroStore(p1, 0, 16)
	s2 := zeroStore(p1, 16, 16)
	s2.Value = ir.UConstExpr{Val: 1, Bits: 32}
	out := coalesceBlock([]ir.Stmt{s1, s2})
	require.Len(t, out, 2)
}

func copyPair(src, dst ir.Expr, offset int64, size uint8) (ir.Stmt, ir.Stmt) {
	srcAddr := addBase(src, offset)
	dstAddr := addBase(dst, offset)
	et := ir.Type(ir.VectorType{Bits: 128})
	if size != 16 {
		et = ir.IntType{Bits: size * 8, Signed: false}
	}
	tmp := ir.RegExpr{Name: "xmm0"}
	load := &ir.AssignStmt{Lhs: tmp, Rhs: ir.LoadExpr{Address: srcAddr, ElemType: et}}
	store := &ir.StoreStmt{Address: dstAddr, Value: tmp, ElemType: et}
	return load, store
}

func TestMemcpyCoalescesTwoPairs(t *testing.T) {
	src := ir.ParamExpr{Name: "p2", Index: 1}
	dst := ir.ParamExpr{Name: "p1", Index: 0}
	l1, s1 := copyPair(src, dst, 0, 16)
	l2, s2 := copyPair(src, dst, 16, 16)
	out := coalesceBlock([]ir.Stmt{l1, s1, l2, s2})
	require.Len(t, out, 1)
	call, ok := out[0].(*ir.CallStmt)
	require.True(t, ok)
	require.Equal(t, "memcpy", call.Call.Target.Name())
	require.Equal(t, ir.UConstExpr{Val: 32, Bits: 32}, call.Call.Args[2])
}

func TestMemcpyLeavesSinglePairAlone(t *testing.T) {
	src := ir.ParamExpr{Name: "p2", Index: 1}
	dst := ir.ParamExpr{Name: "p1", Index: 0}
	l1, s1 := copyPair(src, dst, 0, 16)
	out := coalesceBlock([]ir.Stmt{l1, s1})
	require.Len(t, out, 2)
}

func TestSplitBaseOffsetNoOffset(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	base, off := splitBaseOffset(p1)
	require.Equal(t, ir.Expr(p1), base)
	require.Equal(t, int64(0), off)
}

func TestSplitBaseOffsetWithAdd(t *testing.T) {
	p1 := ir.ParamExpr{Name: "p1", Index: 0}
	addr := ir.BinOpExpr{Op: ir.Add, Left: p1, Right: ir.UConstExpr{Val: 16, Bits: 64}}
	base, off := splitBaseOffset(addr)
	require.Equal(t, ir.Expr(p1), base)
	require.Equal(t, int64(16), off)
}

func TestRunRewritesAllBlocks(t *testing.T) {
	fn := ir.NewFunctionIR("sub_140001000", 0x140000000, 0x140001000)
	p1 := fn.AddParam("p1", ir.PointerType{Elem: ir.Void})
	blk := fn.AddBlock(fn.NewLabel(""))
	blk.Append(zeroStore(ir.ParamExpr{Name: p1.Name, Index: p1.Index}, 0, 16))
	blk.Append(zeroStore(ir.ParamExpr{Name: p1.Name, Index: p1.Index}, 16, 16))
	Run(fn)
	require.Len(t, fn.Blocks[0].Statements, 1)
}
