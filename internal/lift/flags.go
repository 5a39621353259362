package lift

import (
	"github.com/x64lift/x64lift/internal/cond"
	"github.com/x64lift/x64lift/internal/decode"
	"github.com/x64lift/x64lift/internal/ir"
)

func (c *ctx) translateCmp(in decode.Instruction) {
	t := elemTypeForBytes(memBytes(in.Inst))
	left := c.readOperand(in.Inst.Args[0], t)
	right := c.readOperand(in.Inst.Args[1], t)
	c.lastCmp = &cond.LastCmp{Left: left, Right: right, BitWidth: bitsOfType(t)}
	c.lastBt = nil
}

func (c *ctx) translateTest(in decode.Instruction) {
	t := elemTypeForBytes(memBytes(in.Inst))
	left := c.readOperand(in.Inst.Args[0], t)
	right := c.readOperand(in.Inst.Args[1], t)
	c.lastCmp = &cond.LastCmp{Left: left, Right: right, IsTest: true, BitWidth: bitsOfType(t)}
	c.lastBt = nil
}

func (c *ctx) translateBt(in decode.Instruction) {
	t := elemTypeForBytes(memBytes(in.Inst))
	value := c.readOperand(in.Inst.Args[0], t)
	index := c.readOperand(in.Inst.Args[1], ir.U8)
	c.lastBt = &cond.LastBt{Value: value, Index: index}
	c.lastCmp = nil
}

// translateBtMutate lowers BTS/BTR/BTC, which both test and mutate the bit,
// to a PseudoStmt: the mutation reads and writes the same operand under a
// single computed bit mask, which does not fit the two-sided AssignStmt/
// StoreStmt shape without inventing a temporary this module has no name for.
func (c *ctx) translateBtMutate(blk *ir.BasicBlock, in decode.Instruction, mnemonic string) {
	c.translateBt(in)
	blk.Append(&ir.PseudoStmt{Text: mnemonic + ": " + instrText(in)})
}
