// Package printer renders a *ir.FunctionIR into deterministic, annotated
// C-like pseudocode: same IR and options in, byte-identical string out.
package printer

import (
	"fmt"
	"strings"

	"github.com/x64lift/x64lift/internal/constprovider"
	"github.com/x64lift/x64lift/internal/ir"
)

// Options controls rendering choices that do not change the IR itself,
// only its textual presentation.
type Options struct {
	// Preamble, when set, is emitted as a block comment above the function
	// signature (e.g. a note about the MS x64 calling convention assumption).
	Preamble string
	// SignedUnsignedHints enables the "/* signed */"/"/* unsigned */"
	// annotations on ordered relational comparisons.
	SignedUnsignedHints bool
	// NativeTypeNames renders integer types as C native names (int, short,
	// ...) instead of the stdint.h style (int32_t, ...).
	NativeTypeNames bool
	// Constants is consulted to replace call-argument literals with
	// symbolic names (return values are named earlier, by the
	// MapNamedReturnConstants refinement pass). A nil Constants is treated as
	// constprovider.NoOp{}.
	Constants constprovider.Provider
}

// Printer renders one FunctionIR to a local, owned string buffer. A
// Printer is used once and discarded; it keeps no state across calls to
// Print.
type Printer struct {
	opts constprovider.Provider
	sus  bool
	nat  bool
	b    strings.Builder
}

// New creates a Printer configured by opts.
func New(opts Options) *Printer {
	p := &Printer{sus: opts.SignedUnsignedHints, nat: opts.NativeTypeNames}
	if opts.Constants != nil {
		p.opts = opts.Constants
	} else {
		p.opts = constprovider.NoOp{}
	}
	return p
}

// Print renders fn and returns the complete pseudocode text. It never
// mutates fn.
func Print(fn *ir.FunctionIR, opts Options) string {
	p := New(opts)
	p.printFunction(fn, opts.Preamble)
	return p.b.String()
}

func (p *Printer) printFunction(fn *ir.FunctionIR, preamble string) {
	if preamble != "" {
		fmt.Fprintf(&p.b, "/* %s */\n", preamble)
	}

	params := make([]string, len(fn.Parameters))
	for i, param := range fn.Parameters {
		params[i] = fmt.Sprintf("%s %s", p.renderType(param.Type), param.Name)
	}
	fmt.Fprintf(&p.b, "%s %s(%s) {\n", p.renderType(fn.ReturnType), fn.Name, strings.Join(params, ", "))

	p.printFrameComments(fn)

	for _, l := range fn.Locals {
		if l.Init != nil {
			fmt.Fprintf(&p.b, "    %s %s = %s;\n", p.renderType(l.Type), l.Name, p.renderExpr(l.Init, precMin, false))
		} else {
			fmt.Fprintf(&p.b, "    %s %s;\n", p.renderType(l.Type), l.Name)
		}
	}
	if len(fn.Locals) > 0 {
		p.b.WriteByte('\n')
	}

	for _, blk := range fn.Blocks {
		for _, stmt := range blk.Statements {
			p.printStmt(stmt)
		}
	}

	p.b.WriteString("}\n")
}

func (p *Printer) printFrameComments(fn *ir.FunctionIR) {
	usesFP := fn.BoolTag(ir.TagUsesFramePointer)
	localSize := fn.IntTag(ir.TagLocalSize)
	switch {
	case usesFP && localSize > 0:
		fmt.Fprintf(&p.b, "    // push rbp; mov rbp, rsp; sub rsp, 0x%X (locals)\n", localSize)
	case usesFP:
		p.b.WriteString("    // push rbp; mov rbp, rsp\n")
	case localSize > 0:
		fmt.Fprintf(&p.b, "    // sub rsp, 0x%X\n", localSize)
	}
	p.b.WriteString("    // memory operands are shown as *(uintNN_t*)(addr)\n")
}

// renderType renders t per the NativeTypeNames option; Pointer/Vector/Void/
// Unknown are unaffected by the option.
func (p *Printer) renderType(t ir.Type) string {
	if it, ok := t.(ir.IntType); ok && p.nat {
		return nativeIntName(it)
	}
	if pt, ok := t.(ir.PointerType); ok {
		return p.renderType(pt.Elem) + "*"
	}
	return t.String()
}

func nativeIntName(t ir.IntType) string {
	var base string
	switch t.Bits {
	case 8:
		base = "char"
	case 16:
		base = "short"
	case 32:
		base = "int"
	case 64:
		base = "long long"
	default:
		base = "int"
	}
	if !t.Signed {
		return "unsigned " + base
	}
	return base
}
