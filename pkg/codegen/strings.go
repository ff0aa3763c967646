package codegen

import (
	"strings"

	"github.com/xplshn/gci/pkg/ir"
)

// isStringSubstring matches the two-argument Substring, which lowers to a pointer and a length.
func isStringSubstring(e ir.Expr) (ptr, offset, length ir.Expr, ok bool) {
	c, isCall := e.(*ir.Call)
	if !isCall || c.Method.Builtin != ir.StringSubstring || len(c.Args) != 2 { return nil, nil, nil, false }
	return c.Left, c.Args[0], c.Args[1], true
}

// isOneASCIIString matches a one-character literal, compared as a char.
func isOneASCIIString(e ir.Expr) (byte, bool) {
	s, ok := e.(*ir.StringLit)
	if !ok || len(s.Value) != 1 || s.Value[0] >= 0x80 { return 0, false }
	return s.Value[0], true
}

func (b *cBackend) writeStringLength(s ir.Expr) {
	b.include("string.h")
	b.write("(int) ")
	b.writeCallOf("strlen", s)
}

// writeStringStorageValue writes a freshly allocated copy of e unless e already yields one.
func (b *cBackend) writeStringStorageValue(e ir.Expr) {
	if ptr, offset, length, ok := isStringSubstring(e); ok {
		b.include("string.h")
		b.use.stringSubstring = true
		b.write("CiString_Substring(")
		b.writeArrayPtrAdd(ptr, offset)
		b.write(", ")
		b.visitExpr(length, prioArgument)
		b.write(")")
		return
	}
	switch e := e.(type) {
	case *ir.Interpolated:
		b.visitExpr(e, prioArgument)
		return
	case *ir.NullLit:
		b.write("NULL")
		return
	case *ir.Call:
		if ir.IsStringStorage(e.Type()) {
			b.visitExpr(e, prioArgument)
			return
		}
	}
	b.include("string.h")
	b.writeCallOf("strdup", e)
}

func eqOp(not bool) string {
	if not { return " != " }
	return " == "
}

func (b *cBackend) writeSubstringEqual(ptr, offset ir.Expr, literal string, parent priority, not bool) {
	if parent > prioEquality { b.write("(") }
	b.include("string.h")
	b.write("memcmp(")
	b.writeArrayPtrAdd(ptr, offset)
	b.write(", ")
	b.writeStringLiteral(literal)
	b.write(", ")
	b.writeInt(int64(len(literal)))
	b.write(")" + eqOp(not) + "0")
	if parent > prioEquality { b.write(")") }
}

func (b *cBackend) writeEqualString(left, right ir.Expr, parent priority, not bool) {
	ptr, offset, length, ok := isStringSubstring(left)
	lit, isLit := right.(*ir.StringLit)
	if !ok || !isLit {
		if parent > prioEquality { b.write("(") }
		b.include("string.h")
		b.writeCallOf("strcmp", left, right)
		b.write(eqOp(not) + "0")
		if parent > prioEquality { b.write(")") }
		return
	}
	if n, isInt := length.(*ir.IntLit); isInt {
		if n.Value != int64(len(lit.Value)) {
			// Lengths differ, so the comparison is constant.
			b.include("stdbool.h")
			if not {
				b.write("true")
			} else {
				b.write("false")
			}
			return
		}
		b.writeSubstringEqual(ptr, offset, lit.Value, parent, not)
		return
	}
	if not {
		if parent > prioCondOr { b.write("(") }
		b.visitExpr(length, prioEquality)
		b.write(" != ")
		b.writeInt(int64(len(lit.Value)))
		b.write(" || ")
		b.writeSubstringEqual(ptr, offset, lit.Value, prioCondOr, true)
		if parent > prioCondOr { b.write(")") }
		return
	}
	paren := parent > prioCondAnd || parent == prioCondOr
	if paren { b.write("(") }
	b.visitExpr(length, prioEquality)
	b.write(" == ")
	b.writeInt(int64(len(lit.Value)))
	b.write(" && ")
	b.writeSubstringEqual(ptr, offset, lit.Value, prioCondAnd, false)
	if paren { b.write(")") }
}

// writeStringAppend lowers s += x on owned storage; interpolation reformats the whole string.
func (b *cBackend) writeStringAppend(e *ir.Binary) {
	if interp, ok := e.Right.(*ir.Interpolated); ok {
		b.use.stringAssign = true
		b.write("CiString_Assign(&")
		b.visitExpr(e.Left, prioPrimary)
		b.write(", ")
		parts := append([]ir.InterpolatedPart{{Arg: e.Left, Precision: -1}}, interp.Parts...)
		b.writeInterpolated(&ir.Interpolated{Parts: parts, Suffix: interp.Suffix})
		b.write(")")
		return
	}
	b.include("string.h")
	b.use.stringAppend = true
	b.write("CiString_Append(&")
	b.visitExpr(e.Left, prioPrimary)
	b.write(", ")
	b.visitExpr(e.Right, prioArgument)
	b.write(")")
}

func (b *cBackend) writeStringMethod(name string, obj, arg ir.Expr) {
	b.include("string.h")
	b.writeCallOf("CiString_"+name, obj, arg)
}

func (b *cBackend) writeStringCall(e *ir.Call, parent priority) {
	obj, args := e.Left, e.Args
	switch e.Method.Builtin {
	case ir.StringContains:
		b.include("string.h")
		if parent > prioEquality { b.write("(") }
		if c, ok := isOneASCIIString(args[0]); ok {
			b.write("strchr(")
			b.visitExpr(obj, prioArgument)
			b.write(", ")
			b.writeCharLiteral(c)
			b.write(")")
		} else {
			b.writeCallOf("strstr", obj, args[0])
		}
		b.write(" != NULL")
		if parent > prioEquality { b.write(")") }
	case ir.StringIndexOf:
		b.use.stringIndexOf = true
		b.writeStringMethod("IndexOf", obj, args[0])
	case ir.StringLastIndexOf:
		b.use.stringLastIndexOf = true
		b.writeStringMethod("LastIndexOf", obj, args[0])
	case ir.StringEndsWith:
		b.use.stringEndsWith = true
		b.writeStringMethod("EndsWith", obj, args[0])
	case ir.StringStartsWith:
		if parent > prioEquality { b.write("(") }
		if c, ok := isOneASCIIString(args[0]); ok {
			b.visitExpr(obj, prioPrimary)
			b.write("[0] == ")
			b.writeCharLiteral(c)
		} else {
			b.include("string.h")
			b.write("strncmp(")
			b.visitExpr(obj, prioArgument)
			b.write(", ")
			b.visitExpr(args[0], prioArgument)
			b.write(", ")
			b.writeCallOf("strlen", args[0])
			b.write(") == 0")
		}
		if parent > prioEquality { b.write(")") }
	case ir.StringSubstring:
		if len(args) == 1 {
			if parent > prioAdd { b.write("(") }
			b.visitExpr(obj, prioAdd)
			b.write(" + ")
			b.visitExpr(args[0], prioAdd)
			if parent > prioAdd { b.write(")") }
			return
		}
		// A borrowed substring only exists as an owned copy.
		b.writeStringStorageValue(e)
	}
}

// printf formatting of interpolated strings.

func escapePrintf(s string) string { return strings.ReplaceAll(escapeString(s), "%", "%%") }

func (b *cBackend) writePrintfWidth(p ir.InterpolatedPart) {
	if p.Width != 0 {
		b.writeInt(int64(p.Width))
	}
	if p.Precision >= 0 {
		b.write(".")
		b.writeInt(int64(p.Precision))
	}
	if _, _, _, ok := isStringSubstring(p.Arg); ok {
		b.write(".*")
	}
}

func (b *cBackend) writePrintfConversion(p ir.InterpolatedPart) {
	switch t := p.Arg.Type().(type) {
	case *ir.StringType, *ir.BoolType:
		b.write("s")
	case *ir.FloatType:
		switch p.Format {
		case 'E', 'e', 'F', 'f', 'G', 'g':
			b.write(string(p.Format))
		default:
			b.write("g")
		}
	case *ir.IntegerType, *ir.Enum:
		format := "d"
		switch p.Format {
		case 'X', 'x':
			format = string(p.Format)
		}
		if ir.IsLong(t) {
			b.include("inttypes.h")
			b.write(`" PRI` + format + `64 "`)
			return
		}
		b.write(format)
	default:
		b.failf("cannot format %s", t)
	}
}

// writePrintf writes the format string and the argument list, closing the call.
func (b *cBackend) writePrintf(e *ir.Interpolated, newLine bool) {
	b.write(`"`)
	for _, p := range e.Parts {
		b.write(escapePrintf(p.Prefix))
		b.write("%")
		b.writePrintfWidth(p)
		b.writePrintfConversion(p)
	}
	b.write(escapePrintf(e.Suffix))
	if newLine {
		b.write(`\n`)
	}
	b.write(`"`)
	for _, p := range e.Parts {
		b.write(", ")
		b.writeInterpolatedArg(p.Arg)
	}
	b.write(")")
}

func (b *cBackend) writeInterpolatedArg(arg ir.Expr) {
	if ptr, offset, length, ok := isStringSubstring(arg); ok {
		b.visitExpr(length, prioArgument)
		b.write(", ")
		b.writeArrayPtrAdd(ptr, offset)
		return
	}
	if ir.IsBool(arg.Type()) {
		b.visitExpr(arg, prioSelectCond)
		b.write(` ? "true" : "false"`)
		return
	}
	b.visitExpr(arg, prioArgument)
}

func (b *cBackend) writeInterpolated(e *ir.Interpolated) {
	b.include("stdarg.h")
	b.include("stdio.h")
	b.use.stringFormat = true
	b.write("CiString_Format(")
	b.writePrintf(e, false)
}
