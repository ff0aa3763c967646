package codegen

import (
	"testing"

	"github.com/xplshn/gci/pkg/ir"
)

func TestStringOperations(t *testing.T) {
	c := staticClass("Text")
	s := ir.NewVar("s", ir.StringPtr, nil)
	param := func() []*ir.Var { return []*ir.Var{s} }
	ret := func(e ir.Expr) ir.Stmt { return &ir.Return{Value: e} }

	staticMethod(c, "Dot", ir.Bool, param(), ret(ir.CallBuiltin(ir.Ref(s), ir.StringStartsWith, ir.Bool, ir.Str("."))))
	staticMethod(c, "Prefix", ir.Bool, param(), ret(ir.CallBuiltin(ir.Ref(s), ir.StringStartsWith, ir.Bool, ir.Str("ab"))))
	staticMethod(c, "HasX", ir.Bool, param(), ret(ir.CallBuiltin(ir.Ref(s), ir.StringContains, ir.Bool, ir.Str("x"))))
	staticMethod(c, "Empty", ir.Bool, param(), ret(ir.Bin(ir.Equal, ir.PropertyOf(ir.Ref(s), ir.StringLength, ir.Int), ir.Int64(0))))
	staticMethod(c, "IsAbc", ir.Bool, param(), ret(ir.Bin(ir.Equal, ir.Ref(s), ir.Str("abc"))))
	staticMethod(c, "Tail", ir.StringPtr, param(), ret(ir.CallBuiltin(ir.Ref(s), ir.StringSubstring, ir.StringPtr, ir.Int64(2))))
	staticMethod(c, "Copy", ir.StringStorage, param(), ret(ir.CallBuiltin(ir.Ref(s), ir.StringSubstring, ir.StringPtr, ir.Int64(1), ir.Int64(2))))

	out := ir.NewVar("out", ir.StringStorage, ir.Str("a"))
	staticMethod(c, "Join", ir.StringStorage, param(),
		out,
		ir.Do(ir.Bin(ir.AddAssign, ir.Ref(out), ir.Ref(s))),
		ret(ir.Ref(out)),
	)

	n := ir.NewVar("n", ir.Int, nil)
	staticMethod(c, "Show", ir.StringStorage, []*ir.Var{n},
		ret(&ir.Interpolated{Parts: []ir.InterpolatedPart{{Prefix: "n=", Arg: ir.Ref(n), Precision: -1}}, Suffix: "%!"}))

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src,
		"\treturn s[0] == '.';\n",
		"\treturn strncmp(s, \"ab\", strlen(\"ab\")) == 0;\n",
		"\treturn strchr(s, 'x') != NULL;\n",
		"\treturn s[0] == '\\0';\n",
		"\treturn strcmp(s, \"abc\") == 0;\n",
		"\treturn s + 2;\n",
		"\treturn CiString_Substring(s + 1, 2);\n",
		"\tchar *out = strdup(\"a\");\n\tCiString_Append(&out, s);\n\treturn out;\n",
		"\treturn CiString_Format(\"n=%d%%!\", n);\n",
		"#include <string.h>\n",
		"#include <stdarg.h>\n",
	)
	assertLacks(t, src, "CiString_IndexOf", "CiString_EndsWith", "free(out)")
}

func TestBorrowedInterpolationIsFreed(t *testing.T) {
	c := staticClass("Log")
	msg := ir.NewVar("msg", ir.StringPtr, nil)
	put := staticMethod(c, "Put", ir.Void, []*ir.Var{msg})
	n := ir.NewVar("n", ir.Int, nil)
	format := func() *ir.Interpolated {
		return &ir.Interpolated{Parts: []ir.InterpolatedPart{{Prefix: "n=", Arg: ir.Ref(n), Precision: -1}}}
	}
	staticMethod(c, "Say", ir.Void, []*ir.Var{n}, ir.Do(ir.CallOf(nil, put, format())))
	s := ir.NewVar("s", ir.StringPtr, nil)
	staticMethod(c, "Same", ir.Bool, []*ir.Var{s, n}, &ir.Return{Value: ir.Bin(ir.Equal, ir.Ref(s), format())})

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src,
		"static void Log_Say(int n)\n{\n"+
			"\tchar *citemp0 = CiString_Format(\"n=%d\", n);\n"+
			"\tLog_Put(citemp0);\n"+
			"\tfree(citemp0);\n}\n",
		"static bool Log_Same(const char *s, int n)\n{\n"+
			"\tchar *citemp0 = CiString_Format(\"n=%d\", n);\n"+
			"\tbool returnValue = strcmp(s, citemp0) == 0;\n"+
			"\tfree(citemp0);\n"+
			"\treturn returnValue;\n}\n",
	)
}

func TestInterpolatedConditionFails(t *testing.T) {
	c := staticClass("Log")
	s := ir.NewVar("s", ir.StringPtr, nil)
	n := ir.NewVar("n", ir.Int, nil)
	same := ir.Bin(ir.Equal, ir.Ref(s), &ir.Interpolated{Parts: []ir.InterpolatedPart{{Arg: ir.Ref(n), Precision: -1}}})
	staticMethod(c, "Check", ir.Void, []*ir.Var{s, n}, &ir.If{Cond: same, Then: &ir.Return{}})

	le := lowerError(t, &ir.Program{Classes: []*ir.Class{c}})
	if le.Symbol != "Log.Check" || le.Msg != "condition needs a temporary that must be freed" {
		t.Errorf("got %s: %s", le.Symbol, le.Msg)
	}
}
