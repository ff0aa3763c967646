package codegen

import (
	"testing"

	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/samples"
)

func TestSentinelPropagation(t *testing.T) {
	src := string(lower(t, samples.Digits()).Source)
	assertContains(t, src,
		"int Digits_Parse(int c)\n{\n\tif (c < 48 || c > 57)\n\t\treturn -1;\n\treturn c - 48;\n}\n",
		"\tint hi = Digits_Parse(a);\n\tif (hi == -1)\n\t\treturn -1;\n\tint lo = Digits_Parse(b);\n\tif (lo == -1)\n\t\treturn -1;\n\treturn hi * 10 + lo;\n",
		"bool Digits_Check(int d)\n{\n\treturn Digits_Parse(d) != -1;\n}\n",
	)
}

func TestCollapseCanBeDisabled(t *testing.T) {
	src := string(lower(t, samples.Digits(), func(c *config.Config) { c.SetFeature(config.FeatCollapseThrow, false) }).Source)
	assertContains(t, src, "bool Digits_Check(int d)\n{\n\tif (Digits_Parse(d) == -1)\n\t\treturn false;\n\treturn true;\n}\n")
}

func TestSentinelPerReturnType(t *testing.T) {
	c := staticClass("Calc")
	a := ir.NewVar("a", ir.Int, nil)
	ratio := staticMethod(c, "Ratio", ir.Double, []*ir.Var{a},
		&ir.If{Cond: ir.Bin(ir.Equal, ir.Ref(a), ir.Int64(0)), Then: &ir.Throw{Message: ir.Str("zero")}},
		&ir.Return{Value: ir.Bin(ir.Div, &ir.FloatLit{Value: 1}, ir.Ref(a))},
	)
	ratio.Throws = true

	b := ir.NewVar("b", ir.Int, nil)
	r := ir.NewVar("r", ir.Double, ir.CallOf(nil, ratio, ir.Ref(b)))
	scaled := staticMethod(c, "Scaled", ir.Int, []*ir.Var{b}, r, &ir.Return{Value: ir.Int64(1)})
	scaled.Throws = true

	name := ir.NewVar("name", ir.StringPtr, nil)
	label := staticMethod(c, "Label", ir.StringPtr, []*ir.Var{name},
		ir.Do(ir.CallOf(nil, ratio, ir.Int64(2))),
		&ir.Return{Value: ir.Ref(name)},
	)
	label.Throws = true

	done := staticMethod(c, "Done", ir.Void, nil, ir.Do(ir.CallOf(nil, scaled, ir.Int64(3))))
	done.Throws = true

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src,
		"#include <math.h>\n",
		"\tif (a == 0)\n\t\treturn NAN;\n",
		"\tdouble r = Calc_Ratio(b);\n\tif (isnan(r))\n\t\treturn -1;\n\treturn 1;\n",
		"\treturn !isnan(Calc_Ratio(2)) ? name : NULL;\n",
		"static bool Calc_Done(void)\n{\n\treturn Calc_Scaled(3) != -1;\n}\n",
	)
}

func TestCollapseSkippedWithPendingCleanup(t *testing.T) {
	c := staticClass("Keep")
	s := ir.NewVar("s", ir.StringStorage, ir.Str("x"))
	fail := staticMethod(c, "Fail", ir.Void, nil, &ir.Throw{Message: ir.Str("no")})
	fail.Throws = true
	run := staticMethod(c, "Run", ir.Void, nil, s, ir.Do(ir.CallOf(nil, fail)))
	run.Throws = true

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src,
		"static bool Keep_Fail(void)\n{\n\treturn false;\n}\n",
		"\tchar *s = strdup(\"x\");\n\tif (!Keep_Fail()) {\n\t\tfree(s);\n\t\treturn false;\n\t}\n\tfree(s);\n\treturn true;\n}\n",
	)
}

func TestThrowingFieldInitializerFails(t *testing.T) {
	util := staticClass("Util")
	get := staticMethod(util, "Get", ir.Int, nil, &ir.Return{Value: ir.Int64(1)})
	get.Throws = true
	holder := ir.NewClass("Holder", nil)
	holder.AddField("N", ir.Int, ir.CallOf(nil, get))

	le := lowerError(t, &ir.Program{Classes: []*ir.Class{util, holder}})
	if le.Symbol != "Holder.Construct" {
		t.Errorf("got symbol %q", le.Symbol)
	}
}
