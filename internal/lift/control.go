package lift

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/cond"
	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

var jccTable = map[x86asm.Op]cond.Cc{
	x86asm.JA: cond.A, x86asm.JAE: cond.AE, x86asm.JB: cond.B, x86asm.JBE: cond.BE,
	x86asm.JE: cond.E, x86asm.JG: cond.G, x86asm.JGE: cond.GE, x86asm.JL: cond.L,
	x86asm.JLE: cond.LE, x86asm.JNE: cond.NE, x86asm.JNO: cond.NO, x86asm.JNP: cond.NP,
	x86asm.JNS: cond.NS, x86asm.JO: cond.O, x86asm.JP: cond.P, x86asm.JS: cond.S,
}

var setccTable = map[x86asm.Op]cond.Cc{
	x86asm.SETA: cond.A, x86asm.SETAE: cond.AE, x86asm.SETB: cond.B, x86asm.SETBE: cond.BE,
	x86asm.SETE: cond.E, x86asm.SETG: cond.G, x86asm.SETGE: cond.GE, x86asm.SETL: cond.L,
	x86asm.SETLE: cond.LE, x86asm.SETNE: cond.NE, x86asm.SETNO: cond.NO, x86asm.SETNP: cond.NP,
	x86asm.SETNS: cond.NS, x86asm.SETO: cond.O, x86asm.SETP: cond.P, x86asm.SETS: cond.S,
}

var cmovccTable = map[x86asm.Op]cond.Cc{
	x86asm.CMOVA: cond.A, x86asm.CMOVAE: cond.AE, x86asm.CMOVB: cond.B, x86asm.CMOVBE: cond.BE,
	x86asm.CMOVE: cond.E, x86asm.CMOVG: cond.G, x86asm.CMOVGE: cond.GE, x86asm.CMOVL: cond.L,
	x86asm.CMOVLE: cond.LE, x86asm.CMOVNE: cond.NE, x86asm.CMOVNO: cond.NO, x86asm.CMOVNP: cond.NP,
	x86asm.CMOVNS: cond.NS, x86asm.CMOVO: cond.O, x86asm.CMOVP: cond.P, x86asm.CMOVS: cond.S,
}

// translateJcc lowers a conditional near jump into an IfGotoStmt. The
// target is always a label within the function: a target with no
// preassigned label (a tail call or an out-of-window branch) is reported
// as an UnresolvedTarget pseudo-statement instead of a fatal error, per
// the Lifter's error discipline.
func (c *ctx) translateJcc(blk *ir.BasicBlock, in decode.Instruction) {
	cc := jccTable[in.Inst.Op]
	expr := cond.Build(cc, c.lastCmp, c.lastBt)
	target, ok := decode.BranchTarget(in)
	label, inRange := c.labelByIP[target]
	if !ok || !inRange {
		blk.Append(&ir.PseudoStmt{Text: "UnresolvedTarget: " + in.Text})
		return
	}
	blk.Append(&ir.IfGotoStmt{Cond: expr, Target: label})
}

func (c *ctx) translateJrcxz(blk *ir.BasicBlock, in decode.Instruction) {
	var reg x86asm.Reg
	switch in.Inst.Op {
	case x86asm.JCXZ:
		reg = x86asm.CX
	case x86asm.JECXZ:
		reg = x86asm.ECX
	default:
		reg = x86asm.RCX
	}
	target, ok := decode.BranchTarget(in)
	label, inRange := c.labelByIP[target]
	if !ok || !inRange {
		blk.Append(&ir.PseudoStmt{Text: "UnresolvedTarget: " + in.Text})
		return
	}
	blk.Append(&ir.IfGotoStmt{Cond: cond.BuildCxz(c.regExpr(reg)), Target: label})
}

func (c *ctx) translateJmp(blk *ir.BasicBlock, in decode.Instruction) {
	if target, ok := decode.BranchTarget(in); ok {
		if label, inRange := c.labelByIP[target]; inRange {
			blk.Append(&ir.GotoStmt{Target: label})
			return
		}
	}
	// Indirect jump (jump table, tail call through a register/memory
	// operand) or a direct jump outside the function's window: not a
	// branch this module resolves to a label.
	blk.Append(&ir.PseudoStmt{Text: "UnresolvedTarget: " + in.Text})
}

func (c *ctx) translateSetcc(blk *ir.BasicBlock, in decode.Instruction) {
	cc := setccTable[in.Inst.Op]
	expr := cond.Build(cc, c.lastCmp, c.lastBt)
	d := c.writeDest(in.Inst.Args[0], ir.U8)
	d.assign(c, blk, ir.CastExpr{Value: expr, Target: ir.U8, Kind: ir.ZeroExtend})
}

func (c *ctx) translateCmovcc(blk *ir.BasicBlock, in decode.Instruction) {
	cc := cmovccTable[in.Inst.Op]
	expr := cond.Build(cc, c.lastCmp, c.lastBt)
	width := elemTypeForBytes(memBytes(in.Inst))
	src := c.readOperand(in.Inst.Args[1], width)
	d := c.writeDest(in.Inst.Args[0], width)
	current := d.reg
	if d.isMem {
		current = ir.LoadExpr{Address: d.addr, ElemType: width, Segment: d.seg}
	}
	d.assign(c, blk, ir.TernaryExpr{Cond: expr, T: src, F: current})
}

// translateCall lowers a CALL into an AssignStmt `ret = target(args)`. The
// assignment form is emitted for every ordinary call, whether or not the
// result is used later; no refinement pass removes an unused one.
//
// A call site whose register shape matches the MS x64 memset calling
// convention is rendered as a memset CallStmt directly, regardless of
// what the target address actually resolves to: the optimizer may have
// tail-called or inlined a helper that is memset in everything but name.
func (c *ctx) translateCall(blk *ir.BasicBlock, in decode.Instruction) {
	if args, ok := c.looksLikeMemsetCall(); ok {
		call := &ir.CallExpr{Target: ir.ByName("memset"), Args: []ir.Expr{
			ir.CastExpr{Value: args[0], Target: ir.PointerType{Elem: ir.Void}, Kind: ir.Bitcast},
			args[1],
			args[2],
		}}
		blk.Append(&ir.CallStmt{Call: call})
		c.clearCmp()
		c.retConst = nil
		return
	}
	target, ok := c.resolveCallTarget(in)
	if !ok {
		blk.Append(&ir.PseudoStmt{Text: "UnresolvedTarget: " + in.Text})
		return
	}
	call := &ir.CallExpr{Target: target, Args: c.callArgs()}
	d := dest{reg: ir.RegExpr{Name: "ret"}, name: "ret", family: "rax"}
	d.assign(c, blk, call)
	c.clearCmp()
}

// looksLikeMemsetCall recognizes the call-site register shape MSVC leaves
// behind when it lowers a zeroing/filling loop into a memset call: RCX
// (p1) holds a named parameter or a stack address, RDX (p2) holds a small
// literal fill byte, and R8 (p3) holds a constant or plain register size.
// The heuristic is deliberately narrow (per spec's own "best-effort, weak
// textual test" framing) to avoid misidentifying an ordinary three-
// argument call as memset.
func (c *ctx) looksLikeMemsetCall() ([]ir.Expr, bool) {
	dst, ok := c.regValue["p1"]
	if !ok || !looksLikePointer(dst) {
		return nil, false
	}
	fill, ok := c.regValue["p2"]
	if !ok || !isSmallLiteralOrZero(fill) {
		return nil, false
	}
	size, ok := c.regValue["p3"]
	if !ok || !isConstOrPlainReg(size) {
		return nil, false
	}
	return []ir.Expr{dst, fill, size}, true
}

func looksLikePointer(e ir.Expr) bool {
	switch v := e.(type) {
	case ir.RegExpr:
		return isStackOrParamReg(v.Name)
	case ir.ParamExpr:
		return true
	case ir.LocalExpr:
		return true
	case ir.BinOpExpr:
		return looksLikePointer(v.Left) || looksLikePointer(v.Right)
	default:
		return false
	}
}

func isStackOrParamReg(name string) bool {
	switch name {
	case "p1", "p2", "p3", "p4", "rbp", "rsp":
		return true
	default:
		return false
	}
}

func isSmallLiteralOrZero(e ir.Expr) bool {
	switch v := e.(type) {
	case ir.ConstExpr:
		return v.Val >= -0xFF && v.Val <= 0xFF
	case ir.UConstExpr:
		return v.Val <= 0xFF
	default:
		return false
	}
}

func isConstOrPlainReg(e ir.Expr) bool {
	switch e.(type) {
	case ir.ConstExpr, ir.UConstExpr, ir.RegExpr, ir.ParamExpr:
		return true
	default:
		return false
	}
}

// callArgs reconstructs a plausible argument list for an upcoming call from
// the sliding regValue context: it reads the integer argument aliases
// left to right (p1, p2, p3, p4) and stops at the first one this module has
// not seen written in the current straight-line run, since a register this
// module never observed a value for is just as likely to be a caller-saved
// scratch value as a genuine argument.
func (c *ctx) callArgs() []ir.Expr {
	var args []ir.Expr
	for _, name := range [...]string{"p1", "p2", "p3", "p4"} {
		v, ok := c.regValue[name]
		if !ok {
			break
		}
		args = append(args, v)
	}
	return args
}

func (c *ctx) resolveCallTarget(in decode.Instruction) (ir.CallTarget, bool) {
	if target, ok := decode.BranchTarget(in); ok {
		if c.opts.ImportResolver != nil {
			if name, ok := c.opts.ImportResolver(target); ok {
				return ir.ByName(name), true
			}
		}
		return ir.ByName(symbolName(target)), true
	}
	if ripAddr, ok := decode.RIPRelativeAddr(in); ok && c.opts.ImportResolver != nil {
		if name, ok := c.opts.ImportResolver(ripAddr); ok {
			return ir.ByName(name), true
		}
	}
	for _, a := range in.Inst.Args {
		if a == nil {
			break
		}
		if r, ok := a.(x86asm.Reg); ok {
			return ir.Indirect(c.regExpr(r)), true
		}
		if m, ok := a.(x86asm.Mem); ok {
			addr := addrExprForMem(c, m)
			return ir.Indirect(ir.LoadExpr{Address: addr, ElemType: ir.PointerType{Elem: ir.Void}, Segment: segmentOf(m)}), true
		}
	}
	return ir.CallTarget{}, false
}

func symbolName(addr uint64) string {
	return "sub_" + hexUpper(addr)
}

const hexDigits = "0123456789ABCDEF"

func hexUpper(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf[i:])
}

// translateRet emits the function's return. The stable "ret" alias is
// the default rendering of "whatever the return-value register last
// held"; a known constant is only inlined in its place when
// InlineReturnConstant is set, since the literal only exists to give
// MapNamedReturnConstants something to rewrite into a symbolic name.
func (c *ctx) translateRet(blk *ir.BasicBlock) {
	if !c.retEverSet {
		blk.Append(&ir.ReturnStmt{})
		return
	}
	if c.opts.InlineReturnConstant && c.retConst != nil {
		blk.Append(&ir.ReturnStmt{Value: c.retConst})
		return
	}
	blk.Append(&ir.ReturnStmt{Value: ir.RegExpr{Name: "ret"}})
}
