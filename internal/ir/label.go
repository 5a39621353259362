package ir

import "fmt"

// LabelSymbol identifies a label. Identity is the id; Name is rendering-only
// and may collide across unrelated functions without consequence.
type LabelSymbol struct {
	id   int
	Name string
}

// ID returns the label's identity. Two labels are the same label iff their
// IDs are equal; comparing *LabelSymbol pointers directly is equivalent and
// is what GotoStmt/IfGotoStmt/LabelStmt do.
func (l *LabelSymbol) ID() int { return l.id }

func (l *LabelSymbol) String() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("L%d", l.id)
}

// LabelAllocator hands out labels with dense, monotonically increasing IDs
// in the order they are requested. A Lifter owns exactly one allocator per
// function.
type LabelAllocator struct {
	next int
}

// New allocates a fresh label named name. An empty name renders as "L"
// followed by the ID; the Lifter passes "" and allocates branch-target
// labels in ascending address order.
func (a *LabelAllocator) New(name string) *LabelSymbol {
	a.next++
	return &LabelSymbol{id: a.next, Name: name}
}
