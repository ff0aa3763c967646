package codegen

import (
	"strings"

	"github.com/xplshn/gci/pkg/ir"
)

var mathFunctions = map[string]string{
	"Acos": "acos", "Asin": "asin", "Atan": "atan", "Atan2": "atan2", "Cbrt": "cbrt",
	"Ceiling": "ceil", "Cos": "cos", "Cosh": "cosh", "Exp": "exp", "Floor": "floor",
	"FusedMultiplyAdd": "fma", "IsFinite": "isfinite", "IsInfinity": "isinf", "IsNaN": "isnan",
	"Log": "log", "Log10": "log10", "Log2": "log2", "Pow": "pow", "Round": "round",
	"Sin": "sin", "Sinh": "sinh", "Sqrt": "sqrt", "Tan": "tan", "Tanh": "tanh", "Truncate": "trunc",
}

func (b *cBackend) writeCall(e *ir.Call, parent priority) {
	switch bt := e.Method.Builtin; bt {
	case ir.NotBuiltin:
		b.writeCCall(e)
	case ir.StringContains, ir.StringEndsWith, ir.StringIndexOf, ir.StringLastIndexOf,
		ir.StringStartsWith, ir.StringSubstring:
		b.writeStringCall(e, parent)
	case ir.ArrayBinarySearch, ir.ArrayCopyTo, ir.ArrayFill, ir.ArraySort, ir.ListSort:
		b.writeArrayCall(e, parent)
	case ir.CollectionClear, ir.ListAdd, ir.ListContains, ir.ListInsert, ir.ListRemoveAt, ir.ListRemoveRange,
		ir.StackPeek, ir.StackPop, ir.StackPush, ir.HashSetAdd, ir.HashSetContains, ir.HashSetRemove,
		ir.DictionaryAdd, ir.DictionaryContainsKey, ir.DictionaryRemove:
		b.writeCollectionCall(e)
	case ir.ConsoleWrite, ir.ConsoleWriteLine, ir.ErrorWrite, ir.ErrorWriteLine:
		b.writeConsoleWrite(e.Args, bt == ir.ErrorWrite || bt == ir.ErrorWriteLine, bt == ir.ConsoleWriteLine || bt == ir.ErrorWriteLine)
	case ir.EnvironmentGetVariable:
		b.include("stdlib.h")
		b.writeCallOf("getenv", e.Args[0])
	case ir.MathFunction:
		b.writeMathCall(e, parent)
	case ir.UTF8GetByteCount:
		b.writeStringLength(e.Args[0])
	case ir.UTF8GetBytes:
		b.include("string.h")
		b.write("memcpy(")
		b.writeArrayPtrAdd(e.Args[1], e.Args[2])
		b.write(", ")
		b.visitExpr(e.Args[0], prioArgument)
		b.write(", ")
		b.writeCallOf("strlen", e.Args[0])
		b.write(")")
	case ir.RegexCompile, ir.RegexEscape, ir.RegexIsMatchStr, ir.RegexIsMatchRegex,
		ir.MatchFindStr, ir.MatchFindRegex, ir.MatchGetCapture:
		b.writeRegexCall(e)
	default:
		b.failf("unsupported library call %s", e.Method.Name)
	}
}

func (b *cBackend) writeArgs(m *ir.Method, args []ir.Expr, comma bool) {
	for i, p := range m.Params {
		if i > 0 || comma {
			b.write(", ")
		}
		if i < len(args) {
			b.writeCoerced(p.Type, args[i], prioArgument)
			continue
		}
		if p.Value == nil {
			b.failf("missing argument %s of %s", p.Name, m.Name)
		}
		b.visitExpr(p.Value, prioArgument)
	}
	b.write(")")
}

func classOf(t ir.Type) *ir.Class {
	switch t := t.(type) {
	case *ir.Class:
		return t
	case *ir.ClassPtrType:
		return t.Class
	}
	return nil
}

// writeCCall calls a user method: virtual methods through the vtable,
// everything else by name, with self adjusted to the declaring class.
func (b *cBackend) writeCCall(e *ir.Call) {
	m, obj := e.Method, e.Left
	if e.ViaBase {
		b.write(b.methodName(m) + "(&self->base")
		b.writeArgs(m, e.Args, true)
		return
	}
	klass := b.currentClass
	declaring := m.Parent
	switch m.CallType {
	case ir.Abstract, ir.Virtual, ir.Override:
		declaring = m.DeclaringMethod().Parent
		if obj != nil {
			klass = classOf(obj.Type())
		}
		b.writeVirtualTarget(obj, klass, m)
	default:
		b.write(b.methodName(m))
	}
	b.write("(")
	if m.CallType == ir.Static {
		if len(m.Params) == 0 {
			b.write(")")
			return
		}
		b.writeArgs(m, e.Args, false)
		return
	}
	switch {
	case obj != nil:
		b.writeClassPtr(declaring, obj, prioArgument)
	case klass == declaring:
		b.write("self")
	default:
		b.write("&self->base")
		for k := klass.Base; k != nil && k != declaring; k = k.Base {
			b.write(".base")
		}
	}
	b.writeArgs(m, e.Args, true)
}

func (b *cBackend) writeConsoleWrite(args []ir.Expr, toStderr, newLine bool) {
	b.include("stdio.h")
	printf := "printf("
	if toStderr {
		printf = "fprintf(stderr, "
	}
	if len(args) == 0 {
		if toStderr {
			b.write(`putc('\n', stderr)`)
		} else {
			b.write(`putchar('\n')`)
		}
		return
	}
	arg := args[0]
	if interp, ok := arg.(*ir.Interpolated); ok {
		b.write(printf)
		b.writePrintf(interp, newLine)
		return
	}
	nl := ""
	if newLine {
		nl = `\n`
	}
	switch t := arg.Type().(type) {
	case *ir.IntegerType, *ir.Enum:
		b.write(printf)
		if ir.IsLong(t) {
			b.include("inttypes.h")
			b.write(`"%" PRId64 "` + nl + `", `)
		} else {
			b.write(`"%d` + nl + `", `)
		}
		b.visitExpr(arg, prioArgument)
		b.write(")")
		return
	case *ir.FloatType:
		b.write(printf + `"%g` + nl + `", `)
		b.visitExpr(arg, prioArgument)
		b.write(")")
		return
	}
	switch {
	case !newLine:
		b.write("fputs(")
		b.visitExpr(arg, prioArgument)
		if toStderr {
			b.write(", stderr)")
		} else {
			b.write(", stdout)")
		}
	case toStderr:
		if lit, ok := arg.(*ir.StringLit); ok {
			b.write("fputs(")
			b.writeStringLiteral(lit.Value + "\n")
			b.write(", stderr)")
			return
		}
		b.write(`fprintf(stderr, "%s\n", `)
		b.visitExpr(arg, prioArgument)
		b.write(")")
	default:
		b.writeCallOf("puts", arg)
	}
}

// isPure reports whether evaluating e twice is harmless.
func isPure(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.SymbolRef:
		return e.Left == nil || isPure(e.Left)
	default:
		return ir.IsLiteral(e)
	}
}

func (b *cBackend) writeMathCall(e *ir.Call, parent priority) {
	b.include("math.h")
	name, args := e.Method.Name, e.Args
	switch name {
	case "Abs":
		switch {
		case ir.IsLong(args[0].Type()):
			b.include("stdlib.h")
			b.writeCallOf("llabs", args[0])
		case ir.IsInteger(args[0].Type()):
			b.include("stdlib.h")
			b.writeCallOf("abs", args[0])
		default:
			b.writeCallOf("fabs", args[0])
		}
		return
	case "Max", "Min":
		if !ir.IsInteger(e.Type()) {
			b.writeCallOf("f"+strings.ToLower(name), args...)
			return
		}
		if !isPure(args[0]) || !isPure(args[1]) {
			b.failf("Math.%s of integers needs side-effect-free arguments", name)
		}
		op := " > "
		if name == "Min" {
			op = " < "
		}
		if parent > prioSelect { b.write("(") }
		b.visitExpr(args[0], prioRel)
		b.write(op)
		b.visitExpr(args[1], prioRel)
		b.write(" ? ")
		b.visitExpr(args[0], prioSelect)
		b.write(" : ")
		b.visitExpr(args[1], prioSelect)
		if parent > prioSelect { b.write(")") }
		return
	}
	fn, ok := mathFunctions[name]
	if !ok {
		b.failf("unsupported function Math.%s", name)
	}
	b.writeCallOf(fn, args...)
}

var regexOptions = []string{"G_REGEX_CASELESS", "G_REGEX_MULTILINE", "G_REGEX_DOTALL"}

// writeRegexOptions translates the option bits at args[index]; absent options are 0.
func (b *cBackend) writeRegexOptions(args []ir.Expr, index int) {
	if index >= len(args) {
		b.write("0")
		return
	}
	lit, ok := args[index].(*ir.IntLit)
	if !ok {
		b.failf("regex options must be a constant")
	}
	var names []string
	for i, n := range regexOptions {
		if lit.Value&(1<<uint(i)) != 0 {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		b.write("0")
		return
	}
	b.write(strings.Join(names, " | "))
}

func (b *cBackend) writeRegexCall(e *ir.Call) {
	b.include("glib.h")
	obj, args := e.Left, e.Args
	switch e.Method.Builtin {
	case ir.RegexCompile:
		b.write("g_regex_new(")
		b.visitExpr(args[0], prioArgument)
		b.write(", ")
		b.writeRegexOptions(args, 1)
		b.write(", 0, NULL)")
	case ir.RegexEscape:
		b.write("g_regex_escape_string(")
		b.visitExpr(args[0], prioArgument)
		b.write(", -1)")
	case ir.RegexIsMatchStr:
		b.write("g_regex_match_simple(")
		b.visitExpr(args[1], prioArgument)
		b.write(", ")
		b.visitExpr(args[0], prioArgument)
		b.write(", ")
		b.writeRegexOptions(args, 2)
		b.write(", 0)")
	case ir.RegexIsMatchRegex:
		b.write("g_regex_match(")
		b.visitExpr(obj, prioArgument)
		b.write(", ")
		b.visitExpr(args[0], prioArgument)
		b.write(", 0, NULL)")
	case ir.MatchFindStr:
		b.use.matchFind = true
		b.write("CiMatch_Find(&")
		b.visitExpr(obj, prioPrimary)
		b.write(", ")
		b.visitExpr(args[0], prioArgument)
		b.write(", ")
		b.visitExpr(args[1], prioArgument)
		b.write(", ")
		b.writeRegexOptions(args, 2)
		b.write(")")
	case ir.MatchFindRegex:
		b.write("g_regex_match(")
		b.visitExpr(args[1], prioArgument)
		b.write(", ")
		b.visitExpr(args[0], prioArgument)
		b.write(", 0, &")
		b.visitExpr(obj, prioPrimary)
		b.write(")")
	case ir.MatchGetCapture:
		b.writeCallOf("g_match_info_fetch", obj, args[0])
	}
}
