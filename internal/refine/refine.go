// Package refine implements the post-lift refinement passes: rewriting
// parameter-register aliases into named parameters, substituting symbolic
// names for a function's named-return constant values, and dropping
// self-assignments the earlier passes (or the Lifter itself) introduced.
//
// Passes run in a fixed order over an already-built *ir.FunctionIR and
// mutate it in place; none of them revisit a block more than once.
package refine

import (
	"github.com/x64lift/x64lift/internal/constprovider"
	"github.com/x64lift/x64lift/internal/ir"
)

// Pass is one refinement step.
type Pass interface {
	Name() string
	Run(fn *ir.FunctionIR)
}

// RunAll runs passes over fn in the given order.
func RunAll(fn *ir.FunctionIR, passes ...Pass) {
	for _, p := range passes {
		p.Run(fn)
	}
}

// Default returns the standard refinement pipeline in the order the
// printer expects to see an IR in: parameter naming first, so later passes
// and the printer only ever see ParamExpr for argument registers, then
// return-constant naming, then self-assign cleanup last since the earlier
// passes are the ones most likely to introduce a redundant assignment.
func Default(provider constprovider.Provider, returnEnumType string) []Pass {
	return []Pass{
		ReplaceParamRegsWithParams{},
		MapNamedReturnConstants{Provider: provider, EnumType: returnEnumType},
		SimplifyRedundantAssign{},
	}
}

// transformExpr rebuilds e bottom-up, applying f to every node after its
// children have already been rebuilt.
func transformExpr(e ir.Expr, f func(ir.Expr) ir.Expr) ir.Expr {
	switch e := e.(type) {
	case ir.AddrOfExpr:
		e.Operand = transformExpr(e.Operand, f)
		return f(e)
	case ir.LoadExpr:
		e.Address = transformExpr(e.Address, f)
		return f(e)
	case ir.BinOpExpr:
		e.Left = transformExpr(e.Left, f)
		e.Right = transformExpr(e.Right, f)
		return f(e)
	case ir.UnOpExpr:
		e.Operand = transformExpr(e.Operand, f)
		return f(e)
	case ir.CompareExpr:
		e.Left = transformExpr(e.Left, f)
		e.Right = transformExpr(e.Right, f)
		return f(e)
	case ir.TernaryExpr:
		e.Cond = transformExpr(e.Cond, f)
		e.T = transformExpr(e.T, f)
		e.F = transformExpr(e.F, f)
		return f(e)
	case ir.CastExpr:
		e.Value = transformExpr(e.Value, f)
		return f(e)
	case *ir.CallExpr:
		for i, a := range e.Args {
			e.Args[i] = transformExpr(a, f)
		}
		if !e.Target.IsByName() {
			e.Target = ir.Indirect(transformExpr(e.Target.Address(), f))
		}
		return f(e)
	case ir.IntrinsicExpr:
		args := make([]ir.Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = transformExpr(a, f)
		}
		e.Args = args
		return f(e)
	default:
		return f(e)
	}
}

// walkExprs applies f to (and lets it rebuild) every expression reachable
// from fn's statements and local initializers.
func walkExprs(fn *ir.FunctionIR, f func(ir.Expr) ir.Expr) {
	for _, blk := range fn.Blocks {
		for _, stmt := range blk.Statements {
			switch s := stmt.(type) {
			case *ir.AssignStmt:
				s.Lhs = transformExpr(s.Lhs, f)
				s.Rhs = transformExpr(s.Rhs, f)
			case *ir.StoreStmt:
				s.Address = transformExpr(s.Address, f)
				s.Value = transformExpr(s.Value, f)
			case *ir.CallStmt:
				s.Call = transformExpr(s.Call, f).(*ir.CallExpr)
			case *ir.IfGotoStmt:
				s.Cond = transformExpr(s.Cond, f)
			case *ir.ReturnStmt:
				if s.Value != nil {
					s.Value = transformExpr(s.Value, f)
				}
			}
		}
	}
	for i := range fn.Locals {
		if fn.Locals[i].Init != nil {
			fn.Locals[i].Init = transformExpr(fn.Locals[i].Init, f)
		}
	}
}

// ReplaceParamRegsWithParams rewrites every RegExpr whose name matches one
// of fn's declared parameters into the corresponding ParamExpr, so that the
// printer and every later pass see a named parameter rather than a raw
// calling-convention register alias.
type ReplaceParamRegsWithParams struct{}

func (ReplaceParamRegsWithParams) Name() string { return "replace-param-regs-with-params" }

func (ReplaceParamRegsWithParams) Run(fn *ir.FunctionIR) {
	if len(fn.Parameters) == 0 {
		return
	}
	byName := make(map[string]ir.Parameter, len(fn.Parameters))
	for _, p := range fn.Parameters {
		byName[p.Name] = p
	}
	walkExprs(fn, func(e ir.Expr) ir.Expr {
		re, ok := e.(ir.RegExpr)
		if !ok {
			return e
		}
		if p, ok := byName[re.Name]; ok {
			return ir.ParamExpr{Name: p.Name, Index: p.Index}
		}
		return e
	})
}

// MapNamedReturnConstants rewrites a constant ReturnStmt value into a
// SymConstExpr when Provider knows a symbolic name for it under EnumType,
// the function's configured named-return-constant type (e.g. "NTSTATUS").
// It is a no-op when either field is unset.
type MapNamedReturnConstants struct {
	Provider constprovider.Provider
	EnumType string
}

func (MapNamedReturnConstants) Name() string { return "map-named-return-constants" }

func (p MapNamedReturnConstants) Run(fn *ir.FunctionIR) {
	if p.Provider == nil || p.EnumType == "" {
		return
	}
	for _, blk := range fn.Blocks {
		for _, stmt := range blk.Statements {
			ret, ok := stmt.(*ir.ReturnStmt)
			if !ok || ret.Value == nil {
				continue
			}
			val, bits, ok := constValue(ret.Value)
			if !ok {
				continue
			}
			name, ok := p.Provider.FormatValue(p.EnumType, val)
			if !ok {
				continue
			}
			ret.Value = ir.SymConstExpr{Val: val, Bits: bits, Name: name}
		}
	}
}

func constValue(e ir.Expr) (val uint64, bits uint8, ok bool) {
	switch e := e.(type) {
	case ir.ConstExpr:
		return uint64(e.Val), e.Bits, true
	case ir.UConstExpr:
		return e.Val, e.Bits, true
	default:
		return 0, 0, false
	}
}

// SimplifyRedundantAssign drops AssignStmt statements whose left and right
// sides are structurally identical register, parameter, or local
// references, the self-assignments that the parameter-naming pass (or the
// Lifter's own register tracking) occasionally leaves behind.
type SimplifyRedundantAssign struct{}

func (SimplifyRedundantAssign) Name() string { return "simplify-redundant-assign" }

func (SimplifyRedundantAssign) Run(fn *ir.FunctionIR) {
	for _, blk := range fn.Blocks {
		kept := blk.Statements[:0]
		for _, stmt := range blk.Statements {
			if a, ok := stmt.(*ir.AssignStmt); ok && isSelfAssign(a) {
				continue
			}
			kept = append(kept, stmt)
		}
		blk.Statements = kept
	}
}

func isSelfAssign(a *ir.AssignStmt) bool {
	switch a.Lhs.(type) {
	case ir.RegExpr, ir.ParamExpr, ir.LocalExpr:
	default:
		return false
	}
	return ir.ExprEqual(a.Lhs, a.Rhs)
}
