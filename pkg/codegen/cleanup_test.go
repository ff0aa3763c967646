package codegen

import (
	"strings"
	"testing"

	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/samples"
)

func staticClass(name string) *ir.Class {
	c := ir.NewClass(name, nil)
	c.CallType = ir.Static
	return c
}

func staticMethod(c *ir.Class, name string, ret ir.Type, params []*ir.Var, stmts ...ir.Stmt) *ir.Method {
	return c.AddMethod(&ir.Method{Name: name, CallType: ir.Static, Type: ret, Params: params, Body: ir.NewBlock(stmts...)})
}

func TestDestructOrderAndEarlyExits(t *testing.T) {
	c := staticClass("Texts")
	stop := ir.NewVar("stop", ir.Bool, nil)
	x := ir.NewVar("x", ir.StringStorage, ir.Str("x"))
	loop := &ir.While{Cond: &ir.BoolLit{Value: true}}
	loop.Body = ir.NewBlock(
		x,
		&ir.If{Cond: ir.Ref(stop), Then: &ir.Break{Target: loop}},
		&ir.If{Cond: &ir.Unary{Op: ir.Not, Inner: ir.Ref(stop)}, Then: &ir.Continue{Target: loop}},
	)
	staticMethod(c, "Run", ir.Void, []*ir.Var{stop},
		ir.NewVar("a", ir.StringStorage, ir.Str("a")),
		ir.NewVar("b", ir.StringStorage, ir.Str("b")),
		loop,
		ir.NewVar("c", ir.StringStorage, ir.Str("c")),
	)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src, "static void Texts_Run(bool stop)\n{\n"+
		"\tchar *a = strdup(\"a\");\n"+
		"\tchar *b = strdup(\"b\");\n"+
		"\twhile (true) {\n"+
		"\t\tchar *x = strdup(\"x\");\n"+
		"\t\tif (stop) {\n\t\t\tfree(x);\n\t\t\tbreak;\n\t\t}\n"+
		"\t\tif (!stop) {\n\t\t\tfree(x);\n\t\t\tcontinue;\n\t\t}\n"+
		"\t\tfree(x);\n"+
		"\t}\n"+
		"\tchar *c = strdup(\"c\");\n"+
		"\tfree(c);\n\tfree(b);\n\tfree(a);\n}\n")
	if n := strings.Count(src, "free(x);"); n != 3 {
		t.Errorf("x freed on %d paths, want 3", n)
	}
}

func TestBreakFromSwitchLeavesLoop(t *testing.T) {
	c := staticClass("Scan")
	n := ir.NewVar("n", ir.Int, nil)
	loop := &ir.While{Cond: ir.Bin(ir.Greater, ir.Ref(n), ir.Int64(0))}
	sw := &ir.Switch{Value: ir.Ref(n)}
	sw.Cases = []*ir.Case{{Values: []ir.Expr{ir.Int64(1)}, Body: []ir.Stmt{&ir.Break{Target: loop}}}}
	sw.Default = []ir.Stmt{ir.Do(&ir.Unary{Op: ir.PostDecrement, Inner: ir.Ref(n)}), &ir.Break{Target: sw}}
	loop.Body = ir.NewBlock(sw)
	staticMethod(c, "Skip", ir.Void, []*ir.Var{n}, loop)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src, "\twhile (n > 0) {\n"+
		"\t\tswitch (n) {\n"+
		"\t\tcase 1:\n\t\t\tgoto cibreak1;\n"+
		"\t\tdefault:\n\t\t\tn--;\n\t\t\tbreak;\n"+
		"\t\t}\n"+
		"\t}\n"+
		"\tcibreak1: ;\n")
}

func TestForInitWithCleanupGetsOwnBlock(t *testing.T) {
	c := staticClass("Loops")
	stop := ir.NewVar("stop", ir.Bool, nil)
	s := ir.NewVar("s", ir.StringStorage, ir.Str("x"))
	loop := &ir.For{Init: s, Cond: ir.Ref(stop)}
	loop.Body = ir.NewBlock(&ir.Break{Target: loop})
	i := ir.NewVar("i", ir.Int, ir.Int64(0))
	simple := &ir.For{Init: i, Cond: ir.Bin(ir.Less, ir.Ref(i), ir.Int64(3)), Advance: &ir.Unary{Op: ir.PostIncrement, Inner: ir.Ref(i)}, Body: ir.NewBlock()}
	staticMethod(c, "Run", ir.Void, []*ir.Var{stop}, loop, simple)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src,
		"\t{\n\t\tchar *s = strdup(\"x\");\n\t\tfor (; stop;) {\n\t\t\tbreak;\n\t\t}\n\t\tfree(s);\n\t}\n",
		"\tfor (int i = 0; i < 3; i++) {\n\t}\n",
	)
}

func TestOwnershipMovesOnReturn(t *testing.T) {
	src := string(lower(t, samples.Digits()).Source)
	assertContains(t, src, "char *Digits_Describe(int e)\n{\n"+
		"\tchar *s = strdup(\"digit\");\n"+
		"\tif (Digits_Parse(e) == -1) {\n\t\tfree(s);\n\t\treturn NULL;\n\t}\n"+
		"\treturn s;\n}\n")
}

func TestStorageArrayFields(t *testing.T) {
	grid := ir.NewClass("Grid", nil)
	grid.AddField("Cells", &ir.ArrayStorageType{Elem: &ir.ArrayStorageType{Elem: ir.StringStorage, Length: 3}, Length: 2}, nil)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{grid}}).Source)
	assertContains(t, src,
		"\tchar *cells[2][3];\n",
		"\tfor (int _i0 = 0; _i0 < 2; _i0++) {\n\t\tfor (int _i1 = 0; _i1 < 3; _i1++) {\n\t\t\tself->cells[_i0][_i1] = NULL;\n\t\t}\n\t}\n",
		"\tfor (int _i0 = 1; _i0 >= 0; _i0--)\n\t\tfor (int _i1 = 2; _i1 >= 0; _i1--)\n\t\t\tfree(self->cells[_i0][_i1]);\n",
	)
}

func TestReturnInsideLoopFreesEveryScope(t *testing.T) {
	c := staticClass("Texts")
	more := ir.NewVar("more", ir.Bool, nil)
	stop := ir.NewVar("stop", ir.Bool, nil)
	loop := &ir.While{Cond: ir.Ref(more)}
	loop.Body = ir.NewBlock(
		ir.NewVar("x", ir.StringStorage, ir.Str("x")),
		&ir.If{Cond: ir.Ref(stop), Then: &ir.Return{Value: ir.Int64(3)}},
	)
	staticMethod(c, "Find", ir.Int, []*ir.Var{more, stop},
		ir.NewVar("a", ir.StringStorage, ir.Str("a")),
		ir.NewVar("b", ir.StringStorage, ir.Str("b")),
		loop,
		&ir.Return{Value: ir.Int64(0)},
	)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src, "static int Texts_Find(bool more, bool stop)\n{\n"+
		"\tchar *a = strdup(\"a\");\n"+
		"\tchar *b = strdup(\"b\");\n"+
		"\twhile (more) {\n"+
		"\t\tchar *x = strdup(\"x\");\n"+
		"\t\tif (stop) {\n\t\t\tfree(x);\n\t\t\tfree(b);\n\t\t\tfree(a);\n\t\t\treturn 3;\n\t\t}\n"+
		"\t\tfree(x);\n"+
		"\t}\n"+
		"\tfree(b);\n\tfree(a);\n"+
		"\treturn 0;\n}\n")
}

// methodBody returns the body of the function whose definition starts with signature.
func methodBody(t *testing.T, src, signature string) string {
	t.Helper()
	start := strings.Index(src, signature+"\n{\n")
	if start < 0 {
		t.Fatalf("no definition of %q\n--- output ---\n%s", signature, src)
	}
	body := src[start+len(signature):]
	return body[:strings.Index(body, "\n}\n")+3]
}

func TestSharedReferencesBalanceOnEveryPath(t *testing.T) {
	node := ir.NewClass("Node", nil)
	node.Constructor = &ir.Constructor{Visibility: ir.Public}
	node.AddField("Label", ir.StringStorage, nil)
	c := staticClass("Walker")
	more := ir.NewVar("more", ir.Bool, nil)
	stop := ir.NewVar("stop", ir.Bool, nil)
	n := ir.NewVar("n", ir.SharedPtr(node), &ir.New{Class: node})
	loop := &ir.While{Cond: ir.Ref(more)}
	loop.Body = ir.NewBlock(
		ir.NewVar("m", ir.SharedPtr(node), ir.Ref(n)),
		&ir.If{Cond: ir.Ref(stop), Then: &ir.Return{Value: ir.Int64(1)}},
	)
	staticMethod(c, "Walk", ir.Int, []*ir.Var{more, stop}, n, loop, &ir.Return{Value: ir.Int64(0)})

	body := methodBody(t, string(lower(t, &ir.Program{Classes: []*ir.Class{node, c}}).Source), "static int Walker_Walk(bool more, bool stop)")
	assertOrder(t, body,
		"\tNode *n = (Node *) CiShared_Make(1, sizeof(Node)",
		"\twhile (more) {\n\t\tNode *m = (Node *) CiShared_AddRef(n);\n",
		"\t\tif (stop) {\n\t\t\tCiShared_Release(m);\n\t\t\tCiShared_Release(n);\n\t\t\treturn 1;\n\t\t}\n",
		"\t\tCiShared_Release(m);\n\t}\n",
		"\tCiShared_Release(n);\n\treturn 0;\n}\n",
	)
	acquired := strings.Count(body, "CiShared_Make(") + strings.Count(body, "CiShared_AddRef(")
	// Early return, loop iteration and final return each release what they hold.
	if released := strings.Count(body, "CiShared_Release("); acquired != 2 || released != 4 {
		t.Errorf("acquired %d and released %d references, want 2 and 4", acquired, released)
	}
}

func lockedCounter() (*ir.Class, *ir.Field, *ir.Field) {
	counter := ir.NewClass("Counter", nil)
	mu := counter.AddField("Mu", ir.LockClass, nil)
	count := counter.AddField("Count", ir.Int, nil)
	return counter, mu, count
}

func TestLockReleasedOnEveryExit(t *testing.T) {
	counter, mu, count := lockedCounter()
	stop := ir.NewVar("stop", ir.Bool, nil)
	counter.AddMethod(&ir.Method{Name: "Take", CallType: ir.Normal, Mutator: true, Type: ir.Int, Params: []*ir.Var{stop},
		Body: ir.NewBlock(
			&ir.Lock{Lock: ir.Ref(mu), Body: ir.NewBlock(
				ir.NewVar("s", ir.StringStorage, ir.Str("s")),
				&ir.If{Cond: ir.Ref(stop), Then: &ir.Return{Value: ir.Int64(1)}},
				ir.Do(ir.AssignTo(ir.Ref(count), ir.Int64(0))),
			)},
			&ir.Return{Value: ir.Int64(0)},
		)})
	loop := &ir.While{Cond: &ir.BoolLit{Value: true}}
	loop.Body = ir.NewBlock(&ir.Lock{Lock: ir.Ref(mu), Body: ir.NewBlock(
		&ir.If{Cond: ir.Ref(stop), Then: &ir.Break{Target: loop}},
		ir.Do(ir.AssignTo(ir.Ref(count), ir.Int64(0))),
	)})
	counter.AddMethod(&ir.Method{Name: "Spin", CallType: ir.Normal, Mutator: true, Type: ir.Void, Params: []*ir.Var{stop}, Body: ir.NewBlock(loop)})
	counter.AddMethod(&ir.Method{Name: "Check", CallType: ir.Normal, Mutator: true, Throws: true, Type: ir.Void, Params: []*ir.Var{stop},
		Body: ir.NewBlock(&ir.Lock{Lock: ir.Ref(mu), Body: &ir.If{Cond: ir.Ref(stop), Then: &ir.Throw{Message: ir.Str("stopped")}}})})

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{counter}}).Source)
	assertContains(t, src,
		"\tmtx_lock(&self->mu);\n\t{\n"+
			"\t\tchar *s = strdup(\"s\");\n"+
			"\t\tif (stop) {\n\t\t\tfree(s);\n\t\t\tmtx_unlock(&self->mu);\n\t\t\treturn 1;\n\t\t}\n"+
			"\t\tself->count = 0;\n"+
			"\t\tfree(s);\n"+
			"\t}\n"+
			"\tmtx_unlock(&self->mu);\n"+
			"\treturn 0;\n}\n",
		"\twhile (true) {\n"+
			"\t\tmtx_lock(&self->mu);\n\t\t{\n"+
			"\t\t\tif (stop) {\n\t\t\t\tmtx_unlock(&self->mu);\n\t\t\t\tbreak;\n\t\t\t}\n"+
			"\t\t\tself->count = 0;\n"+
			"\t\t}\n"+
			"\t\tmtx_unlock(&self->mu);\n"+
			"\t}\n",
		"\tmtx_lock(&self->mu);\n"+
			"\tif (stop) {\n\t\tmtx_unlock(&self->mu);\n\t\treturn false;\n\t}\n"+
			"\tmtx_unlock(&self->mu);\n",
	)
	if locks, unlocks := strings.Count(src, "mtx_lock("), strings.Count(src, "mtx_unlock("); locks != 3 || unlocks != 6 {
		t.Errorf("%d locks and %d unlocks, want 3 and 6", locks, unlocks)
	}
}

func TestReturnUnderLockReadsBeforeUnlocking(t *testing.T) {
	counter, mu, count := lockedCounter()
	counter.AddMethod(&ir.Method{Name: "Get", CallType: ir.Normal, Mutator: true, Type: ir.Int,
		Body: ir.NewBlock(&ir.Lock{Lock: ir.Ref(mu), Body: ir.NewBlock(&ir.Return{Value: ir.Ref(count)})})})

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{counter}}).Source)
	assertContains(t, src, "\tmtx_lock(&self->mu);\n\t{\n"+
		"\t\tint returnValue = self->count;\n"+
		"\t\tmtx_unlock(&self->mu);\n"+
		"\t\treturn returnValue;\n"+
		"\t}\n}\n")
}

func TestBreakAcrossInnerLoop(t *testing.T) {
	c := staticClass("Scan")
	more := ir.NewVar("more", ir.Bool, nil)
	stop := ir.NewVar("stop", ir.Bool, nil)
	outer := &ir.While{Cond: ir.Ref(more)}
	inner := &ir.While{Cond: &ir.BoolLit{Value: true}, Body: ir.NewBlock(&ir.If{Cond: ir.Ref(stop), Then: &ir.Break{Target: outer}})}
	outer.Body = ir.NewBlock(inner)
	staticMethod(c, "Skip", ir.Void, []*ir.Var{more, stop}, outer)

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{c}}).Source)
	assertContains(t, src, "\twhile (more) {\n"+
		"\t\twhile (true) {\n"+
		"\t\t\tif (stop)\n\t\t\t\tgoto cibreak1;\n"+
		"\t\t}\n"+
		"\t}\n"+
		"\tcibreak1: ;\n")
}

func TestContinueAcrossInnerLoopFails(t *testing.T) {
	c := staticClass("Scan")
	more := ir.NewVar("more", ir.Bool, nil)
	outer := &ir.While{Cond: ir.Ref(more)}
	inner := &ir.While{Cond: ir.Ref(more), Body: ir.NewBlock(&ir.Continue{Target: outer})}
	outer.Body = ir.NewBlock(inner)
	staticMethod(c, "Skip", ir.Void, []*ir.Var{more}, outer)

	le := lowerError(t, &ir.Program{Classes: []*ir.Class{c}})
	if le.Symbol != "Scan.Skip" || le.Msg != "continue of an outer loop is not supported" {
		t.Errorf("got %s: %s", le.Symbol, le.Msg)
	}
}
