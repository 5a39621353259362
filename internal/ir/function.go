package ir

// BasicBlock is an ordered, label-addressed run of statements. Blocks are
// ordered within a function and are printed in that order; there is no
// implied fallthrough analysis beyond program order.
type BasicBlock struct {
	Label      *LabelSymbol
	Statements []Stmt
}

// NewBasicBlock creates an empty block under label.
func NewBasicBlock(label *LabelSymbol) *BasicBlock {
	return &BasicBlock{Label: label}
}

// Append adds stmt to the end of the block.
func (b *BasicBlock) Append(stmt Stmt) {
	b.Statements = append(b.Statements, stmt)
}

// Parameter is one positional formal parameter. Index is dense from 0.
type Parameter struct {
	Name  string
	Type  Type
	Index int
}

// LocalVar is a function-local variable declared once at function top.
// Init, if non-nil, is evaluated conceptually at function entry.
type LocalVar struct {
	Name string
	Type Type
	Init Expr
}

// Well-known tag keys set by the Lifter and read by the printer.
const (
	TagUsesFramePointer = "UsesFramePointer"
	TagLocalSize        = "LocalSize"
	TagUsesGsPeb        = "UsesGsPeb"
)

// FunctionIR is the lifted representation of one function. It is built
// once, mutated only by refinement passes (each of which receives and
// mutates this exact struct, never a copy), and then rendered.
type FunctionIR struct {
	Name          string
	ImageBase     uint64
	EntryAddress  uint64
	ReturnType    Type
	Parameters    []Parameter
	Locals        []LocalVar
	Blocks        []*BasicBlock
	Tags          map[string]any
	labelAlloc    LabelAllocator
}

// NewFunctionIR creates an empty function ready for the Lifter to populate.
func NewFunctionIR(name string, imageBase, entryAddress uint64) *FunctionIR {
	return &FunctionIR{
		Name:         name,
		ImageBase:    imageBase,
		EntryAddress: entryAddress,
		ReturnType:   U64,
		Tags:         make(map[string]any),
	}
}

// NewLabel allocates a fresh, function-unique label.
func (fn *FunctionIR) NewLabel(name string) *LabelSymbol {
	return fn.labelAlloc.New(name)
}

// SetTag records an analysis artifact under key.
func (fn *FunctionIR) SetTag(key string, value any) {
	fn.Tags[key] = value
}

// Tag returns the raw tag value and whether it was set.
func (fn *FunctionIR) Tag(key string) (any, bool) {
	v, ok := fn.Tags[key]
	return v, ok
}

// BoolTag returns the tag as a bool, defaulting to false when absent or of
// the wrong type.
func (fn *FunctionIR) BoolTag(key string) bool {
	v, ok := fn.Tags[key].(bool)
	return ok && v
}

// IntTag returns the tag as an int, defaulting to 0 when absent or of the
// wrong type.
func (fn *FunctionIR) IntTag(key string) int {
	v, _ := fn.Tags[key].(int)
	return v
}

// AddParam appends a new positional parameter and returns it.
func (fn *FunctionIR) AddParam(name string, t Type) Parameter {
	p := Parameter{Name: name, Type: t, Index: len(fn.Parameters)}
	fn.Parameters = append(fn.Parameters, p)
	return p
}

// AddLocal appends a new local variable declaration and returns it.
func (fn *FunctionIR) AddLocal(name string, t Type, init Expr) LocalVar {
	l := LocalVar{Name: name, Type: t, Init: init}
	fn.Locals = append(fn.Locals, l)
	return l
}

// AddBlock appends a new block under label and returns it.
func (fn *FunctionIR) AddBlock(label *LabelSymbol) *BasicBlock {
	b := NewBasicBlock(label)
	fn.Blocks = append(fn.Blocks, b)
	return b
}
