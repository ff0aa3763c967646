package codegen

import (
	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
)

// throwingMethod returns the throwing method an expression statement or initializer calls, or nil.
func throwingMethod(e ir.Expr) *ir.Method {
	switch e := e.(type) {
	case *ir.Binary:
		if e.Op == ir.Assign { return throwingMethod(e.Right) }
	case *ir.Call:
		if e.Method.Throws { return e.Method }
	}
	return nil
}

// writeThrowReturnValue writes the failure sentinel of the current method.
func (b *cBackend) writeThrowReturnValue() {
	switch b.currentMethod.Type.(type) {
	case *ir.IntegerType, *ir.Enum:
		b.write("-1")
	case *ir.FloatType:
		b.include("math.h")
		b.write("NAN")
	case *ir.VoidType, nil:
		b.write("false")
	default:
		b.write("NULL")
	}
}

func (b *cBackend) writeThrow() {
	b.writeDestructAll(nil)
	b.write("return ")
	b.writeThrowReturnValue()
	b.writeLine(";")
}

// writeFailureCheck writes the sentinel test of a call to m; source writes the checked value.
func (b *cBackend) writeFailureCheck(source func(priority), m *ir.Method, failed bool) {
	switch m.Type.(type) {
	case *ir.IntegerType, *ir.Enum:
		source(prioEquality)
		if failed {
			b.write(" == -1")
		} else {
			b.write(" != -1")
		}
	case *ir.FloatType:
		b.include("math.h")
		if !failed {
			b.write("!")
		}
		b.write("isnan(")
		source(prioArgument)
		b.write(")")
	case *ir.VoidType, nil:
		if failed {
			b.write("!")
			source(prioPrimary)
		} else {
			source(prioSelect)
		}
	default:
		source(prioEquality)
		if failed {
			b.write(" == NULL")
		} else {
			b.write(" != NULL")
		}
	}
}

// writeForwardThrow checks the result of a throwing call and, on failure,
// cleans up and propagates the current method's own sentinel.
func (b *cBackend) writeForwardThrow(source func(priority), m *ir.Method) {
	b.write("if (")
	b.writeFailureCheck(source, m, true)
	b.write(")")
	if len(b.pending) > 0 || b.locked() || b.ownsTemporaries() {
		b.write(" ")
		b.openBlock()
		b.writeThrow()
		b.closeBlock()
	} else {
		b.writeLine("")
		b.indent++
		b.writeThrow()
		b.indent--
	}
}

// tryWriteCallAndReturn folds a trailing throwing call and return into
// `return call != -1 ? value : -1;` when nothing is pending cleanup.
func (b *cBackend) tryWriteCallAndReturn(stmts []ir.Stmt, lastCall int, value ir.Expr) bool {
	if !b.cfg.IsFeatureEnabled(config.FeatCollapseThrow) || len(b.pending) > 0 || b.locked() { return false }
	es, ok := stmts[lastCall].(*ir.ExprStmt)
	if !ok { return false }
	m := throwingMethod(es.X)
	if m == nil || hasTemporaries(es.X) || b.declaresCleanup(stmts[:lastCall]) { return false }
	if value == nil && !(b.currentMethod.Throws && ir.IsVoid(b.currentMethod.Type)) { return false }
	if value != nil && (hasTemporaries(value) || throwingMethod(value) != nil) { return false }
	b.writeStatements(stmts[:lastCall])
	b.write("return ")
	b.writeFailureCheck(func(p priority) { b.visitExpr(es.X, p) }, m, false)
	if value != nil {
		b.write(" ? ")
		b.writeCoerced(b.currentMethod.Type, value, prioSelect)
		b.write(" : ")
		b.writeThrowReturnValue()
	}
	b.writeLine(";")
	return true
}
