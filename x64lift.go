// Package x64lift lifts a flat buffer of x64 machine code for one function
// into annotated, C-like pseudocode: decode, translate to a small IR,
// coalesce store/copy idioms, refine register aliases into named
// parameters and constants, then print. The whole pipeline is a pure
// function of its inputs — no I/O, no background work, nothing to close.
package x64lift

import (
	"errors"
	"fmt"

	"github.com/x64lift/x64lift/internal/constprovider"
	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
	"github.com/x64lift/x64lift/internal/lift"
	"github.com/x64lift/x64lift/internal/peephole"
	"github.com/x64lift/x64lift/internal/printer"
	"github.com/x64lift/x64lift/internal/refine"
)

// ErrMalformedInput is returned, wrapped with the decoder's own underlying
// error via %w, when the byte stream cannot be decoded as x64 machine code.
var ErrMalformedInput = errors.New("x64lift: malformed instruction stream")

// defaultPreamble is emitted above the function signature when
// Options.PreambleComment is set, describing the one load-bearing
// assumption the whole pipeline makes and cannot verify from the bytes
// alone.
const defaultPreamble = "best-effort lift; assumes the Microsoft x64 calling convention"

// ImportResolver maps an absolute call target (typically a RIP-relative
// IAT slot reached through an indirect call) to an imported symbol name.
// Jump targets are not passed to it. A nil ImportResolver disables
// resolution entirely: every such call lifts as an indirect call instead.
type ImportResolver func(addr uint64) (name string, ok bool)

// ConstantProvider supplies symbolic names for constant call arguments and
// return values (e.g. NTSTATUS, Win32 error codes). constprovider.NoOp{}
// implements it as the zero-cost default: every call returns ("", false).
type ConstantProvider = constprovider.Provider

// Options controls the optional capabilities and rendering choices of
// Lift. The zero value is a usable default: no byte limit beyond the first
// RET, no import resolution, no constant naming, stdint.h type names.
type Options struct {
	// MaxBytes bounds how many bytes of code are decoded before the
	// lifter gives up looking for a terminating RET/RETF. Zero or
	// negative means "decode until a return or the input is exhausted."
	MaxBytes int
	// ImportResolver resolves call targets reached through an IAT slot to
	// a symbolic import name; jumps are not resolved.
	ImportResolver ImportResolver
	// Constants supplies symbolic names for constant return values
	// (ReturnEnumType) when set. A nil Constants is treated as
	// constprovider.NoOp{}.
	Constants ConstantProvider
	// ReturnEnumType names the enum Constants should consult for this
	// function's return value (e.g. "NTSTATUS"). Ignored when Constants
	// is nil or this is empty.
	ReturnEnumType string
	// PreambleComment, when true, emits a fixed one-line assumptions
	// comment above the function signature.
	PreambleComment bool
	// SignedUnsignedHints enables the "/* signed */"/"/* unsigned */"
	// annotations on ordered relational comparisons.
	SignedUnsignedHints bool
	// NativeTypeNames renders integer types as C native names (int,
	// short, ...) instead of the stdint.h style (int32_t, ...).
	NativeTypeNames bool
}

// entryParams are the four MS x64 integer/pointer argument registers,
// always declared as named parameters regardless of how many the decoded
// instruction stream actually touches: the calling convention reserves
// them whether or not the function reads all four, and a fixed signature
// is what lets refinement's parameter rewrite be unconditional.
var entryParams = [...]string{"p1", "p2", "p3", "p4"}

// Lift decodes code starting at the virtual address base as one function
// named funcName, translates it to IR, coalesces store/copy idioms,
// applies the standard refinement pipeline, and renders pseudocode.
//
// Lift never panics on malformed bytes: a decode failure is reported as an
// error wrapping ErrMalformedInput. Once decoding succeeds, translation
// itself cannot fail — an instruction the lifter does not recognize
// degrades to a preserved disassembly comment rather than aborting the
// whole function.
func Lift(code []byte, base uint64, funcName string, opts Options) (string, error) {
	insts, err := decode.Decode(code, base, opts.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	fn := ir.NewFunctionIR(funcName, 0, base)
	for _, name := range entryParams {
		fn.AddParam(name, ir.U64)
	}

	lift.Translate(fn, insts, lift.Options{
		FuncName:             funcName,
		ImportResolver:       opts.ImportResolver,
		InlineReturnConstant: opts.Constants != nil && opts.ReturnEnumType != "",
	})

	peephole.Run(fn)

	refine.RunAll(fn, refine.Default(opts.Constants, opts.ReturnEnumType)...)

	preamble := ""
	if opts.PreambleComment {
		preamble = defaultPreamble
	}

	return printer.Print(fn, printer.Options{
		Preamble:            preamble,
		SignedUnsignedHints: opts.SignedUnsignedHints,
		NativeTypeNames:     opts.NativeTypeNames,
		Constants:           opts.Constants,
	}), nil
}
