package printer

import (
	"fmt"
	"strings"

	"github.com/x64lift/x64lift/internal/ir"
)

func (p *Printer) printStmt(stmt ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.AssignStmt:
		p.printAssign(s)
	case *ir.StoreStmt:
		fmt.Fprintf(&p.b, "    *((%s*)(%s%s)) = %s;\n",
			p.renderType(s.ElemType), s.Segment.String(), p.renderExpr(s.Address, precMin, false), p.renderExpr(s.Value, precMin, false))
	case *ir.CallStmt:
		fmt.Fprintf(&p.b, "    %s;\n", p.renderCall(s.Call))
	case *ir.IfGotoStmt:
		fmt.Fprintf(&p.b, "    if (%s) goto %s;\n", p.renderExpr(s.Cond, precMin, false), s.Target.String())
	case *ir.GotoStmt:
		fmt.Fprintf(&p.b, "    goto %s;\n", s.Target.String())
	case *ir.LabelStmt:
		fmt.Fprintf(&p.b, "%s:\n", s.Label.String())
	case *ir.ReturnStmt:
		if s.Value == nil {
			p.b.WriteString("    return;\n")
		} else {
			fmt.Fprintf(&p.b, "    return %s;\n", p.renderExpr(s.Value, precMin, false))
		}
	case *ir.AsmCommentStmt:
		fmt.Fprintf(&p.b, "    /* %s */\n", s.Text)
	case *ir.PseudoStmt:
		fmt.Fprintf(&p.b, "    __pseudo(%s);\n", s.Text)
	case ir.NopStmt:
		p.b.WriteString("    __pseudo(nop);\n")
	default:
		fmt.Fprintf(&p.b, "    /* unhandled stmt %T */\n", s)
	}
}

func (p *Printer) printAssign(s *ir.AssignStmt) {
	if call, ok := s.Rhs.(*ir.CallExpr); ok {
		line := fmt.Sprintf("    /* call */ %s = %s;", p.renderExpr(s.Lhs, precMin, false), p.renderCall(call))
		if isRetName(s.Lhs) {
			line += "  // RAX"
		}
		p.b.WriteString(line)
		p.b.WriteByte('\n')
		return
	}
	fmt.Fprintf(&p.b, "    %s = %s;\n", p.renderExpr(s.Lhs, precMin, false), p.renderExpr(s.Rhs, precMin, false))
}

// isRetName reports whether lhs names the return-value pseudo-register,
// reproducing the teacher's literal rule: lhs name in {"ret", "rax"},
// case-insensitive, for RegExpr or ParamExpr lvalues.
func isRetName(lhs ir.Expr) bool {
	var name string
	switch e := lhs.(type) {
	case ir.RegExpr:
		name = e.Name
	case ir.ParamExpr:
		name = e.Name
	default:
		return false
	}
	n := strings.ToLower(name)
	return n == "ret" || n == "rax"
}
