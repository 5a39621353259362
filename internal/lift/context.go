package lift

import (
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/x64lift/x64lift/internal/cond"
	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

// Options controls the Lifter's optional external capabilities: resolving
// a call target through an import thunk to a symbolic name, and inlining a
// known constant return value.
type Options struct {
	// FuncName is the function's name as given to the caller. Translate
	// does not read it; the emitted name is the FunctionIR's own Name.
	FuncName string
	// ImportResolver maps an absolute address (typically a RIP-relative
	// IAT slot target) to an imported symbol name. Nil disables resolution;
	// an unresolved address is lifted as an indirect call.
	ImportResolver func(addr uint64) (string, bool)
	// InlineReturnConstant allows a RET reached while the last write to
	// the rax family was a constant (with no call since) to return that literal
	// constant directly instead of the stable "ret" alias. This only
	// helps when something downstream (MapNamedReturnConstants) can turn
	// the literal into a symbolic name, so callers leave it false unless
	// a return-value constant provider is actually configured.
	InlineReturnConstant bool
}

// ctx is the single-threaded, per-function sliding translation context. It
// is created once per Lift call and never shared across functions or
// goroutines.
type ctx struct {
	fn   *ir.FunctionIR
	opts Options

	aliasByFamily map[string]string // register family -> alias name (p1, ret, ...)

	lastCmp *cond.LastCmp
	lastBt  *cond.LastBt

	zeroedXMM map[string]bool // xmm family -> "known to hold all-zero bits"

	// regValue tracks, for the current straight-line position, the last
	// expression assigned to each register alias/name. It is consulted only
	// by call-argument recovery and is never treated as a proof of the
	// register's runtime value across a branch.
	regValue map[string]ir.Expr

	labelByIP map[uint64]*ir.LabelSymbol

	usesFramePointer bool
	localSize        int
	usesGsPeb        bool
	pebLocalAdded    bool

	// retConst tracks a compile-time-constant value currently known to be
	// held by the ret/rax alias, so that a RET reached while it is still
	// set returns the literal directly rather than a
	// RegExpr the printer and MapNamedReturnConstants could not resolve.
	// It is cleared by any call, or by any other write to the alias.
	retConst   ir.Expr
	retEverSet bool
}

func newCtx(fn *ir.FunctionIR, opts Options) *ctx {
	return &ctx{
		fn:            fn,
		opts:          opts,
		aliasByFamily: defaultAliases(),
		zeroedXMM:     make(map[string]bool),
		regValue:      make(map[string]ir.Expr),
		labelByIP:     make(map[uint64]*ir.LabelSymbol),
	}
}

// defaultAliases returns the MS x64 calling convention's entry register
// aliasing: integer/pointer args in RCX/RDX/R8/R9, floating args in
// XMM0-3. RAX has no permanent entry here: its "ret" alias only applies
// right after a call, which is assigned directly where that call result
// is produced rather than through this table.
func defaultAliases() map[string]string {
	return map[string]string{
		"rcx":  "p1",
		"rdx":  "p2",
		"r8":   "p3",
		"r9":   "p4",
		"xmm0": "fp1",
		"xmm1": "fp2",
		"xmm2": "fp3",
		"xmm3": "fp4",
	}
}

// regExpr resolves r to its calling-convention alias (p1..p4, fp1..fp4)
// when r belongs to one of those families, or otherwise to the exact
// operand name x86asm decoded (e.g. "eax", "al", "r10"), so an
// instruction's chosen operand width survives into the printed name.
func (c *ctx) regExpr(r x86asm.Reg) ir.RegExpr {
	return ir.RegExpr{Name: c.nameOf(r)}
}

func (c *ctx) nameOf(r x86asm.Reg) string {
	fam := family(r)
	if alias, ok := c.aliasByFamily[fam]; ok {
		return alias
	}
	return strings.ToLower(r.String())
}

// labelAt returns the function-scoped label for IP, creating one if this is
// the first time IP is named. preassignLabels calls it for every in-range
// branch target in ascending address order.
func (c *ctx) labelAt(ip uint64) *ir.LabelSymbol {
	if l, ok := c.labelByIP[ip]; ok {
		return l
	}
	l := c.fn.NewLabel("")
	c.labelByIP[ip] = l
	return l
}

// clearCmp drops the sliding compare/bit-test context; called by the
// translators of the flag-clobbering instructions the Lifter models
// (arithmetic, logic, shifts, multiply/divide, string ops, calls). A
// mnemonic the Lifter does not recognize leaves the context in place.
func (c *ctx) clearCmp() {
	c.lastCmp = nil
	c.lastBt = nil
}

// instrText renders the preserved-asm comment line for in, prefixed with
// its absolute IP so the comment trail stays navigable independent of
// whatever coalescing or reordering happens to the statements around it.
func instrText(in decode.Instruction) string {
	return fmt.Sprintf("0x%X: %s", in.IP, in.Text)
}
