// Package peephole coalesces short runs of adjacent memory statements back
// into the library-call idioms a compiler lowered them from: a run of
// zeroing stores becomes a memset call, and a run of load/store pairs
// copying between two fixed bases becomes a memcpy call.
//
// Coalescing only ever replaces statements with an equivalent call; it
// never changes program order or touches control flow, so it is safe to
// run as a single pass over each block's statement list.
package peephole

import "github.com/x64lift/x64lift/internal/ir"

// minCoalesceBytes is the smallest combined run the coalescers will act on.
// Shorter runs are left as literal stores: a two-register zeroing idiom
// reads better as itself than as a memset call for 16 bytes.
const minCoalesceBytes = 32

// Run rewrites every block of fn in place, replacing eligible statement
// runs with memset/memcpy calls.
func Run(fn *ir.FunctionIR) {
	for _, blk := range fn.Blocks {
		blk.Statements = coalesceBlock(blk.Statements)
	}
}

func coalesceBlock(stmts []ir.Stmt) []ir.Stmt {
	out := make([]ir.Stmt, 0, len(stmts))
	i := 0
	for i < len(stmts) {
		if repl, consumed := matchZeroStoreRun(stmts[i:]); consumed > 0 {
			out = append(out, repl...)
			i += consumed
			continue
		}
		if repl, consumed := matchCopyPairRun(stmts[i:]); consumed > 0 {
			out = append(out, repl...)
			i += consumed
			continue
		}
		out = append(out, stmts[i])
		i++
	}
	return out
}

// skipComments returns the AsmCommentStmt run starting at stmts[at] and the
// index of the first statement at or after at that is not a comment. Every
// translated instruction emits its own preserved-asm comment ahead of its
// semantic statement(s), so a run of statements the Lifter produced from
// consecutive instructions is never literally adjacent in a block's
// Statements slice; the coalescers tolerate (and preserve) the comments
// interleaved between the stores/loads they match.
func skipComments(stmts []ir.Stmt, at int) (comments []ir.Stmt, next int) {
	next = at
	for next < len(stmts) {
		c, ok := stmts[next].(*ir.AsmCommentStmt)
		if !ok {
			break
		}
		comments = append(comments, c)
		next++
	}
	return comments, next
}

// splitBaseOffset decomposes addr into a base expression and a constant
// byte offset. An address with no recognizable "base + const" shape splits
// as (addr, 0): every address has a base, the offset is just zero.
func splitBaseOffset(addr ir.Expr) (ir.Expr, int64) {
	bin, ok := addr.(ir.BinOpExpr)
	if !ok {
		return addr, 0
	}
	switch bin.Op {
	case ir.Add:
		if c, ok := constOffset(bin.Right); ok {
			return bin.Left, c
		}
		if c, ok := constOffset(bin.Left); ok {
			return bin.Right, c
		}
	case ir.Sub:
		if c, ok := constOffset(bin.Right); ok {
			return bin.Left, -c
		}
	}
	return addr, 0
}

func constOffset(e ir.Expr) (int64, bool) {
	switch e := e.(type) {
	case ir.ConstExpr:
		return e.Val, true
	case ir.UConstExpr:
		return int64(e.Val), true
	default:
		return 0, false
	}
}

func addBase(base ir.Expr, offset int64) ir.Expr {
	if offset == 0 {
		return base
	}
	if offset > 0 {
		return ir.BinOpExpr{Op: ir.Add, Left: base, Right: ir.UConstExpr{Val: uint64(offset), Bits: 64}}
	}
	return ir.BinOpExpr{Op: ir.Sub, Left: base, Right: ir.UConstExpr{Val: uint64(-offset), Bits: 64}}
}

// elemSizeBytes returns the store/load width of t, or 0 if t has no fixed
// byte width this module understands.
func elemSizeBytes(t ir.Type) int {
	switch t := t.(type) {
	case ir.IntType:
		return int(t.Bits) / 8
	case ir.FloatType:
		return int(t.Bits) / 8
	case ir.VectorType:
		return int(t.Bits) / 8
	default:
		return 0
	}
}

func isZeroConst(e ir.Expr) bool {
	switch e := e.(type) {
	case ir.ConstExpr:
		return e.Val == 0
	case ir.UConstExpr:
		return e.Val == 0
	default:
		return false
	}
}

func voidPtrCast(addr ir.Expr) ir.Expr {
	return ir.CastExpr{Value: addr, Target: ir.PointerType{Elem: ir.Void}, Kind: ir.Bitcast}
}

// matchZeroStoreRun consumes a maximal run of zero-value StoreStmt at the
// front of stmts — tolerating (and preserving) any AsmCommentStmt nodes
// interleaved between them — that write consecutive offsets off a common
// base, and returns the replacement statements (preserved comments
// followed by the memset CallStmt) plus the number of statements consumed.
// It returns (nil, 0) when no run of at least minCoalesceBytes starts at
// stmts[0].
func matchZeroStoreRun(stmts []ir.Stmt) ([]ir.Stmt, int) {
	first, ok := stmts[0].(*ir.StoreStmt)
	if !ok || !isZeroConst(first.Value) || first.Segment != ir.SegNone {
		return nil, 0
	}
	size := elemSizeBytes(first.ElemType)
	if size == 0 {
		return nil, 0
	}
	base, startOffset := splitBaseOffset(first.Address)

	total := size
	stores := 1
	consumed := 1
	var comments []ir.Stmt
	for consumed < len(stmts) {
		pending, j := skipComments(stmts, consumed)
		if j >= len(stmts) {
			break
		}
		st, ok := stmts[j].(*ir.StoreStmt)
		if !ok || !isZeroConst(st.Value) || st.Segment != ir.SegNone {
			break
		}
		sz := elemSizeBytes(st.ElemType)
		if sz == 0 {
			break
		}
		b, off := splitBaseOffset(st.Address)
		if !ir.ExprEqual(b, base) || off != startOffset+int64(total) {
			break
		}
		comments = append(comments, pending...)
		total += sz
		stores++
		consumed = j + 1
	}

	if total < minCoalesceBytes || stores < 2 {
		return nil, 0
	}
	call := &ir.CallExpr{Target: ir.ByName("memset"), Args: []ir.Expr{
		voidPtrCast(addBase(base, startOffset)),
		ir.UConstExpr{Val: 0, Bits: 32},
		ir.UConstExpr{Val: uint64(total), Bits: 32},
	}}
	return append(comments, &ir.CallStmt{Call: call}), consumed
}

// matchCopyPairRun consumes a maximal run of (load-into-temp, store-temp)
// statement pairs — tolerating (and preserving) any AsmCommentStmt nodes
// interleaved within and between pairs — that copy consecutive offsets
// from one base to another, and returns the replacement statements
// (preserved comments followed by the memcpy CallStmt) plus the number of
// statements consumed.
func matchCopyPairRun(stmts []ir.Stmt) ([]ir.Stmt, int) {
	srcBase, dstBase, startOffset, size, consumed, ok := matchCopyPair(stmts, 0)
	if !ok {
		return nil, 0
	}

	total := size
	pairs := 1
	var comments []ir.Stmt
	for consumed < len(stmts) {
		pending, j := skipComments(stmts, consumed)
		if j >= len(stmts) {
			break
		}
		sb, db, off, sz, pairConsumed, ok := matchCopyPair(stmts, j)
		if !ok || !ir.ExprEqual(sb, srcBase) || !ir.ExprEqual(db, dstBase) || off != startOffset+int64(total) {
			break
		}
		comments = append(comments, pending...)
		total += sz
		pairs++
		consumed = j + pairConsumed
	}

	if total < minCoalesceBytes || pairs < 2 {
		return nil, 0
	}
	call := &ir.CallExpr{Target: ir.ByName("memcpy"), Args: []ir.Expr{
		voidPtrCast(addBase(dstBase, startOffset)),
		voidPtrCast(addBase(srcBase, startOffset)),
		ir.UConstExpr{Val: uint64(total), Bits: 32},
	}}
	return append(comments, &ir.CallStmt{Call: call}), consumed
}

// matchCopyPair recognizes one load/store pair starting at stmts[at]:
//
//	tmp = *((T*)(srcAddr));
//	*((T*)(dstAddr)) = tmp;
//
// with the same temporary on both sides and an AsmCommentStmt possibly
// sitting between the two (the store's own preserved-asm comment). It
// returns the source base, destination base, the offset of this pair's
// addresses (which must agree between source and destination for the run
// to make sense as a single memcpy), the element size in bytes, and the
// number of statements this pair consumed starting at at.
func matchCopyPair(stmts []ir.Stmt, at int) (srcBase, dstBase ir.Expr, offset int64, size, consumed int, ok bool) {
	if at >= len(stmts) {
		return nil, nil, 0, 0, 0, false
	}
	load, ok := stmts[at].(*ir.AssignStmt)
	if !ok {
		return nil, nil, 0, 0, 0, false
	}
	le, ok := load.Rhs.(ir.LoadExpr)
	if !ok || le.Segment != ir.SegNone {
		return nil, nil, 0, 0, 0, false
	}
	_, storeIdx := skipComments(stmts, at+1)
	if storeIdx >= len(stmts) {
		return nil, nil, 0, 0, 0, false
	}
	store, ok := stmts[storeIdx].(*ir.StoreStmt)
	if !ok || store.Segment != ir.SegNone {
		return nil, nil, 0, 0, 0, false
	}
	if !ir.ExprEqual(load.Lhs, store.Value) {
		return nil, nil, 0, 0, 0, false
	}
	srcSize := elemSizeBytes(le.ElemType)
	dstSize := elemSizeBytes(store.ElemType)
	if srcSize == 0 || srcSize != dstSize {
		return nil, nil, 0, 0, 0, false
	}
	sBase, sOff := splitBaseOffset(le.Address)
	dBase, dOff := splitBaseOffset(store.Address)
	if sOff != dOff {
		return nil, nil, 0, 0, 0, false
	}
	return sBase, dBase, sOff, srcSize, storeIdx + 1 - at, true
}
