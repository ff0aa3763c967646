// Package samples builds small, fully typed programs that exercise the C backend.
// They stand in for a front end when driving the backend from the command line.
package samples

import (
	"sort"

	"github.com/xplshn/gci/pkg/ir"
)

type Sample struct {
	Name        string
	Description string
	Build       func() *ir.Program
}

var registry = map[string]Sample{
	"shapes":    {"shapes", "abstract base, override and a three-level class chain dispatched through a vtable", Shapes},
	"nodes":     {"nodes", "shared pointers linked together and released at scope exit", Nodes},
	"digits":    {"digits", "throwing methods propagating sentinels, with and without pending cleanup", Digits},
	"inventory": {"inventory", "lists, dictionaries, locks, interpolation, enums and an embedded resource", Inventory},
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Lookup(name string) (Sample, bool) {
	s, ok := registry[name]
	return s, ok
}

func method(name string, ct ir.CallType, ret ir.Type, params ...*ir.Var) *ir.Method {
	if ret == nil { ret = ir.Void }
	return &ir.Method{Name: name, CallType: ct, Visibility: ir.Public, Type: ret, Params: params}
}

// Shapes: Square derives from Rect, which implements Shape's abstract Area.
func Shapes() *ir.Program {
	shape := ir.NewClass("Shape", nil)
	shape.CallType = ir.Abstract
	shape.Public = true
	area := shape.AddMethod(method("Area", ir.Abstract, ir.Int))
	k := ir.NewVar("k", ir.Int, nil)
	scaled := shape.AddMethod(method("Scaled", ir.Normal, ir.Int, k))
	scaled.Body = ir.NewBlock(&ir.Return{Value: ir.Bin(ir.Mul, ir.CallOf(nil, area), ir.Ref(k))})

	rect := ir.NewClass("Rect", shape)
	rect.Public = true
	rect.Constructor = &ir.Constructor{Visibility: ir.Public}
	width := rect.AddField("Width", ir.Int, nil)
	height := rect.AddField("Height", ir.Int, nil)
	rectArea := rect.AddMethod(method("Area", ir.Override, ir.Int))
	rectArea.Body = ir.NewBlock(&ir.Return{Value: ir.Bin(ir.Mul, ir.Ref(width), ir.Ref(height))})

	square := ir.NewClass("Square", rect)
	square.Public = true
	n := ir.NewVar("n", ir.Int, nil)
	setSide := square.AddMethod(method("SetSide", ir.Normal, nil, n))
	setSide.Mutator = true
	setSide.Body = ir.NewBlock(
		ir.Do(ir.AssignTo(ir.Ref(width), ir.Ref(n))),
		ir.Do(ir.AssignTo(ir.Ref(height), ir.Ref(n))),
	)

	geometry := ir.NewClass("Geometry", nil)
	geometry.CallType = ir.Static
	geometry.Public = true
	s := ir.NewVar("s", ir.SharedPtr(square), &ir.New{Class: square})
	total := geometry.AddMethod(method("Total", ir.Static, ir.Int))
	total.Body = ir.NewBlock(
		s,
		ir.Do(ir.CallOf(ir.Ref(s), setSide, ir.Int64(3))),
		&ir.Return{Value: ir.CallOf(ir.Ref(s), scaled, ir.Int64(2))},
	)

	return &ir.Program{Classes: []*ir.Class{shape, rect, square, geometry}}
}

// Nodes: every Node# local is released once when the method ends.
func Nodes() *ir.Program {
	node := ir.NewClass("Node", nil)
	node.Public = true
	node.Constructor = &ir.Constructor{Visibility: ir.Public}
	next := node.AddField("Next", ir.SharedPtr(node), nil)
	label := node.AddField("Label", ir.StringStorage, nil)

	other := ir.NewVar("other", ir.SharedPtr(node), nil)
	link := node.AddMethod(method("Link", ir.Normal, nil, other))
	link.Mutator = true
	link.Body = ir.NewBlock(ir.Do(ir.AssignTo(ir.Ref(next), ir.Ref(other))))

	name := ir.NewVar("name", ir.StringPtr, nil)
	rename := node.AddMethod(method("Rename", ir.Normal, nil, name))
	rename.Mutator = true
	rename.Body = ir.NewBlock(ir.Do(ir.AssignTo(ir.Ref(label), ir.Ref(name))))

	a := ir.NewVar("a", ir.SharedPtr(node), &ir.New{Class: node})
	b := ir.NewVar("b", ir.SharedPtr(node), &ir.New{Class: node})
	chain := node.AddMethod(method("Chain", ir.Static, ir.Int))
	chain.Body = ir.NewBlock(
		a,
		b,
		ir.Do(ir.CallOf(ir.Ref(a), link, ir.Ref(b))),
		ir.Do(ir.CallOf(ir.Ref(b), rename, ir.Str("tail"))),
		&ir.Return{Value: ir.Int64(2)},
	)
	return &ir.Program{Classes: []*ir.Class{node}}
}

// Digits: Parse fails with -1; callers forward the failure.
func Digits() *ir.Program {
	digits := ir.NewClass("Digits", nil)
	digits.CallType = ir.Static
	digits.Public = true

	c := ir.NewVar("c", ir.Int, nil)
	parse := digits.AddMethod(method("Parse", ir.Static, ir.Int, c))
	parse.Throws = true
	parse.Body = ir.NewBlock(
		&ir.If{
			Cond: ir.Bin(ir.CondOr, ir.Bin(ir.Less, ir.Ref(c), ir.Int64('0')), ir.Bin(ir.Greater, ir.Ref(c), ir.Int64('9'))),
			Then: &ir.Throw{Message: ir.Str("not a digit")},
		},
		&ir.Return{Value: ir.Bin(ir.Sub, ir.Ref(c), ir.Int64('0'))},
	)

	a, b := ir.NewVar("a", ir.Int, nil), ir.NewVar("b", ir.Int, nil)
	hi := ir.NewVar("hi", ir.Int, ir.CallOf(nil, parse, ir.Ref(a)))
	lo := ir.NewVar("lo", ir.Int, ir.CallOf(nil, parse, ir.Ref(b)))
	pair := digits.AddMethod(method("ParsePair", ir.Static, ir.Int, a, b))
	pair.Throws = true
	pair.Body = ir.NewBlock(hi, lo, &ir.Return{Value: ir.Bin(ir.Add, ir.Bin(ir.Mul, ir.Ref(hi), ir.Int64(10)), ir.Ref(lo))})

	d := ir.NewVar("d", ir.Int, nil)
	check := digits.AddMethod(method("Check", ir.Static, nil, d))
	check.Throws = true
	check.Body = ir.NewBlock(ir.Do(ir.CallOf(nil, parse, ir.Ref(d))))

	e := ir.NewVar("e", ir.Int, nil)
	s := ir.NewVar("s", ir.StringStorage, ir.Str("digit"))
	describe := digits.AddMethod(method("Describe", ir.Static, ir.StringStorage, e))
	describe.Throws = true
	describe.Body = ir.NewBlock(
		s,
		ir.Do(ir.CallOf(nil, parse, ir.Ref(e))),
		&ir.Return{Value: ir.Ref(s)},
	)
	return &ir.Program{Classes: []*ir.Class{digits}}
}

// Inventory: a lock-protected list of owned names with a per-name counter.
func Inventory() *ir.Program {
	size := ir.NewEnum("Size", true, "Small", "Large")

	inv := ir.NewClass("Inventory", nil)
	inv.Public = true
	inv.Constructor = &ir.Constructor{Visibility: ir.Public}
	names := inv.AddField("Names", &ir.ListType{Elem: ir.StringStorage}, nil)
	counts := inv.AddField("Counts", &ir.DictionaryType{Key: ir.StringStorage, Value: ir.Int}, nil)
	mutex := inv.AddField("Mutex", ir.LockClass, nil)
	inv.AddConst("Limit", ir.Int, ir.Int64(100), ir.Public)

	self := func(f *ir.Field) ir.Expr { return ir.Ref(f) }
	name := ir.NewVar("name", ir.StringPtr, nil)
	count := ir.Bin(ir.Index, self(counts), ir.Ref(name))
	add := inv.AddMethod(method("Add", ir.Normal, nil, name))
	add.Mutator = true
	add.Body = ir.NewBlock(&ir.Lock{Lock: self(mutex), Body: ir.NewBlock(
		ir.Do(ir.CallBuiltin(self(names), ir.ListAdd, nil, ir.Ref(name))),
		ir.Do(ir.AssignTo(count, &ir.Select{
			Cond:    ir.CallBuiltin(self(counts), ir.DictionaryContainsKey, ir.Bool, ir.Ref(name)),
			OnTrue:  ir.Bin(ir.Add, count, ir.Int64(1)),
			OnFalse: ir.Int64(1),
		})),
	)})

	sum := ir.NewVar("sum", ir.Int, ir.Int64(0))
	item := ir.NewVar("item", ir.StringStorage, nil)
	letters := inv.AddMethod(method("Letters", ir.Normal, ir.Int))
	letters.Body = ir.NewBlock(
		sum,
		&ir.Foreach{Element: item, Collection: self(names), Body: ir.Do(
			ir.Bin(ir.AddAssign, ir.Ref(sum), ir.PropertyOf(ir.Ref(item), ir.StringLength, ir.Int)))},
		&ir.Return{Value: ir.Ref(sum)},
	)

	report := inv.AddMethod(method("Report", ir.Normal, ir.StringStorage))
	report.Body = ir.NewBlock(&ir.Return{Value: &ir.Interpolated{
		Parts:  []ir.InterpolatedPart{{Arg: ir.PropertyOf(self(names), ir.CollectionCount, ir.Int), Precision: -1}},
		Suffix: " items",
	}})

	classify := inv.AddMethod(method("Classify", ir.Normal, size))
	classify.Body = ir.NewBlock(
		&ir.If{
			Cond: ir.Bin(ir.Greater, ir.PropertyOf(self(names), ir.CollectionCount, ir.Int), ir.Int64(10)),
			Then: &ir.Return{Value: ir.Ref(size.Member("Large"))},
		},
		&ir.Return{Value: ir.Ref(size.Member("Small"))},
	)

	banner := inv.AddMethod(method("Banner", ir.Static, &ir.ArrayPtrType{Elem: ir.Byte, Modifier: ir.ReadOnly}))
	banner.Body = ir.NewBlock(&ir.Return{Value: &ir.ResourceRef{Name: "banner.txt"}})

	return &ir.Program{
		Enums:     []*ir.Enum{size},
		Classes:   []*ir.Class{inv},
		Resources: map[string][]byte{"banner.txt": []byte("inventory\n")},
	}
}
