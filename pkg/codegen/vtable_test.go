package codegen

import (
	"strings"
	"testing"

	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/samples"
)

func TestBuildVtableResolvesThroughChain(t *testing.T) {
	prog := samples.Shapes()
	shape, rect, square := prog.FindClass("Shape"), prog.FindClass("Rect"), prog.FindClass("Square")

	for _, c := range []*ir.Class{rect, square} {
		slots := BuildVtable(c)
		if len(slots) != 1 {
			t.Fatalf("%s: got %d slots, want 1", c.Name, len(slots))
		}
		if slots[0].Declaring.Parent != shape || slots[0].Defining.Parent != rect {
			t.Errorf("%s: slot declared in %s defined in %s, want Shape and Rect",
				c.Name, slots[0].Declaring.Parent.Name, slots[0].Defining.Parent.Name)
		}
	}
	if vtblPtrClass(square) != shape || vtblStructClass(square) != shape {
		t.Errorf("Square should reuse the vtable owned by Shape")
	}
	if hasVtblValue(shape) || !hasVtblValue(rect) || hasVtblValue(square) {
		t.Errorf("only Rect installs its own vtable")
	}
}

func TestThreeLevelDispatch(t *testing.T) {
	src := string(lower(t, samples.Shapes()).Source)
	assertContains(t, src,
		"typedef struct {\n\tint (*area)(const Shape *self);\n} ShapeVtbl;\nstruct Shape {\n\tconst ShapeVtbl *vtbl;\n};\n",
		"struct Rect {\n\tShape base;\n\tint width;\n\tint height;\n};\n",
		"struct Square {\n\tRect base;\n};\n",
		"static void Rect_Construct(Rect *self)\n{\n\tstatic const ShapeVtbl vtbl = {\n\t\t(int (*)(const Shape *self)) Rect_Area,\n\t};\n\tself->base.vtbl = &vtbl;\n}\n",
		"static void Square_Construct(Square *self)\n{\n\tRect_Construct(&self->base);\n}\n",
		"\treturn self->vtbl->area(self) * k;\n",
		"\tself->base.width = n;\n",
		"\tint returnValue = Shape_Scaled(&s->base.base, 2);\n\tCiShared_Release(s);\n\treturn returnValue;\n",
	)
	assertOrder(t, src, "struct Shape {", "struct Rect {", "struct Square {", "Rect_Construct(Rect *self)\n{")
}

// A <- B <- C where B adds its own virtual method, so B's vtable extends A's.
func intermediateVtable() (*ir.Program, *ir.Class) {
	a := ir.NewClass("A", nil)
	a.AddMethod(&ir.Method{Name: "Run", CallType: ir.Virtual, Type: ir.Void, Body: ir.NewBlock()})
	b := ir.NewClass("B", a)
	stop := b.AddMethod(&ir.Method{Name: "Stop", CallType: ir.Virtual, Type: ir.Void, Body: ir.NewBlock()})
	c := ir.NewClass("C", b)
	c.AddMethod(&ir.Method{Name: "Run", CallType: ir.Override, Type: ir.Void, Body: ir.NewBlock()})

	driver := ir.NewClass("Driver", nil)
	driver.CallType = ir.Static
	p := ir.NewVar("p", ir.PtrTo(b, ir.ReadOnly), nil)
	halt := driver.AddMethod(&ir.Method{Name: "Halt", CallType: ir.Static, Type: ir.Void, Params: []*ir.Var{p}})
	halt.Body = ir.NewBlock(ir.Do(ir.CallOf(ir.Ref(p), stop)))
	return &ir.Program{Classes: []*ir.Class{a, b, c, driver}}, c
}

func TestIntermediateVtableCasts(t *testing.T) {
	prog, c := intermediateVtable()
	slots := BuildVtable(c)
	if len(slots) != 2 || slots[0].Defining.Parent != c || slots[1].Defining.Parent.Name != "B" {
		t.Fatalf("unexpected slots %+v", slots)
	}

	src := string(lower(t, prog).Source)
	assertContains(t, src,
		"typedef struct {\n\tvoid (*run)(const A *self);\n\tvoid (*stop)(const B *self);\n} BVtbl;\n",
		"\tstatic const BVtbl vtbl = {\n\t\t(void (*)(const A *self)) C_Run,\n\t\tB_Stop,\n\t};\n\tself->base.base.vtbl = (const AVtbl *) &vtbl;\n",
		"\t((const BVtbl *) p->base.vtbl)->stop(p);\n",
		"static void C_Construct(C *self)\n{\n\tB_Construct(&self->base);\n",
	)
}

func TestMissingAbstractImplementation(t *testing.T) {
	base := ir.NewClass("Base", nil)
	base.CallType = ir.Abstract
	base.AddMethod(&ir.Method{Name: "Size", CallType: ir.Abstract, Type: ir.Int})
	impl := ir.NewClass("Impl", base)
	impl.AddMethod(&ir.Method{Name: "Other", CallType: ir.Virtual, Type: ir.Void, Body: ir.NewBlock()})

	le := lowerError(t, &ir.Program{Classes: []*ir.Class{base, impl}})
	if !strings.Contains(le.Msg, "does not implement abstract method Size") {
		t.Errorf("got %v", le)
	}
}

func TestVirtualCallEvaluatesReceiverOnce(t *testing.T) {
	job := ir.NewClass("Job", nil)
	job.Constructor = &ir.Constructor{Visibility: ir.Public}
	run := job.AddMethod(&ir.Method{Name: "Run", CallType: ir.Virtual, Visibility: ir.Public, Type: ir.Int,
		Body: ir.NewBlock(&ir.Return{Value: ir.Int64(1)})})
	f := staticClass("F")
	mk := staticMethod(f, "Make", ir.SharedPtr(job), nil, &ir.Return{Value: &ir.New{Class: job}})
	staticMethod(f, "Go", ir.Int, nil, &ir.Return{Value: ir.CallOf(ir.CallOf(nil, mk), run)})

	src := string(lower(t, &ir.Program{Classes: []*ir.Class{job, f}}).Source)
	assertContains(t, src, "static int F_Go(void)\n{\n"+
		"\tJob *citemp0 = F_Make();\n"+
		"\tint returnValue = citemp0->vtbl->run(citemp0);\n"+
		"\tCiShared_Release(citemp0);\n"+
		"\treturn returnValue;\n}\n")
	if n := strings.Count(src, "F_Make()"); n != 1 {
		t.Errorf("F_Make called %d times, want 1", n)
	}
}
