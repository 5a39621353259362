package cond

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/x64lift/x64lift/internal/ir"
)

func TestTestRegRegThenJe(t *testing.T) {
	r := ir.RegExpr{Name: "eax"}
	cmp := &LastCmp{Left: r, Right: r, IsTest: true, BitWidth: 32}
	got := Build(E, cmp, nil)
	require.Equal(t, ir.CompareExpr{Op: ir.EQ, Left: r, Right: ir.UConstExpr{Val: 0, Bits: 32}}, got)
}

func TestTestRegRegThenJne(t *testing.T) {
	r := ir.RegExpr{Name: "eax"}
	cmp := &LastCmp{Left: r, Right: r, IsTest: true, BitWidth: 32}
	got := Build(NE, cmp, nil)
	require.Equal(t, ir.CompareExpr{Op: ir.NE, Left: r, Right: ir.UConstExpr{Val: 0, Bits: 32}}, got)
}

func TestCmpSignedRelational(t *testing.T) {
	l, r := ir.RegExpr{Name: "eax"}, ir.ConstExpr{Val: 0, Bits: 32}
	cmp := &LastCmp{Left: l, Right: r, BitWidth: 32}
	got := Build(LE, cmp, nil)
	require.Equal(t, ir.SLE, got.(ir.CompareExpr).Op)
}

func TestCmpUnsignedRelational(t *testing.T) {
	l, r := ir.RegExpr{Name: "eax"}, ir.ConstExpr{Val: 0, Bits: 32}
	cmp := &LastCmp{Left: l, Right: r, BitWidth: 32}
	got := Build(BE, cmp, nil)
	require.Equal(t, ir.ULE, got.(ir.CompareExpr).Op)
}

func TestTestDistinctOperandsEqZero(t *testing.T) {
	l, r := ir.RegExpr{Name: "eax"}, ir.RegExpr{Name: "ecx"}
	cmp := &LastCmp{Left: l, Right: r, IsTest: true, BitWidth: 32}
	got := Build(E, cmp, nil).(ir.CompareExpr)
	require.Equal(t, ir.EQ, got.Op)
	require.Equal(t, ir.BinOpExpr{Op: ir.And, Left: l, Right: r}, got.Left)
}

func TestBitTestCarrySet(t *testing.T) {
	v, idx := ir.RegExpr{Name: "eax"}, ir.ConstExpr{Val: 3, Bits: 32}
	bt := &LastBt{Value: v, Index: idx}
	got := Build(B, nil, bt).(ir.CompareExpr)
	require.Equal(t, ir.NE, got.Op)
}

func TestFallbackNoContext(t *testing.T) {
	got := Build(LE, nil, nil)
	_, ok := got.(ir.BinOpExpr)
	require.True(t, ok)
}

func TestBuildCxz(t *testing.T) {
	reg := ir.RegExpr{Name: "rcx"}
	got := BuildCxz(reg).(ir.CompareExpr)
	require.Equal(t, ir.EQ, got.Op)
	require.Equal(t, reg, got.Left)
}
