package codegen

import "github.com/xplshn/gci/pkg/ir"

// Ownership tells what cleanup a value of some type requires.
type Ownership int

const (
	OwnNone Ownership = iota
	OwnString
	OwnShared
	OwnContainer
	OwnClass
)

func (o Ownership) String() string {
	switch o {
	case OwnString:
		return "owned-string"
	case OwnShared:
		return "shared-pointer"
	case OwnContainer:
		return "container"
	case OwnClass:
		return "class-with-destructor"
	}
	return "none"
}

// Analyzer classifies types by ownership, memoizing per class.
type Analyzer struct {
	destructors  map[*ir.Class]bool
	constructors map[*ir.Class]bool
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{destructors: make(map[*ir.Class]bool), constructors: make(map[*ir.Class]bool)}
}

// Classify looks through fixed-size array dimensions to the element type.
func (a *Analyzer) Classify(t ir.Type) Ownership {
	t = ir.StorageType(t)
	switch t := t.(type) {
	case *ir.StringType:
		if t.Storage { return OwnString }
	case *ir.ClassPtrType, *ir.ArrayPtrType:
		if ir.IsDynamicPtr(t) { return OwnShared }
	case *ir.ListType, *ir.StackType, *ir.HashSetType, *ir.DictionaryType:
		return OwnContainer
	case *ir.Class:
		if t == ir.MatchClass || t == ir.LockClass || a.NeedsDestructor(t) { return OwnClass }
	}
	return OwnNone
}

func (a *Analyzer) NeedsCleanup(t ir.Type) bool { return a.Classify(t) != OwnNone }

// NeedsDestructor is true if any field needs cleanup or the base class needs a destructor.
func (a *Analyzer) NeedsDestructor(c *ir.Class) bool {
	if c.IsSystem() { return false }
	if v, ok := a.destructors[c]; ok { return v }
	a.destructors[c] = false
	v := c.Base != nil && a.NeedsDestructor(c.Base)
	for _, f := range c.Fields {
		if v { break }
		v = a.NeedsCleanup(f.Type)
	}
	a.destructors[c] = v
	return v
}

// NeedsConstructor is true if the class has a constructor body, a field with init code,
// fills a vtable, or derives from a class needing construction.
func (a *Analyzer) NeedsConstructor(c *ir.Class) bool {
	if c.IsSystem() { return false }
	if v, ok := a.constructors[c]; ok { return v }
	a.constructors[c] = false
	v := c.Constructor != nil || hasVtblValue(c) || (c.Base != nil && a.NeedsConstructor(c.Base))
	for _, f := range c.Fields {
		if v { break }
		v = a.fieldHasInitCode(f)
	}
	a.constructors[c] = v
	return v
}

func (a *Analyzer) fieldHasInitCode(f *ir.Field) bool {
	if f.Value != nil { return true }
	st := ir.StorageType(f.Type)
	switch st := st.(type) {
	case *ir.StringType:
		return st.Storage
	case *ir.ListType, *ir.StackType, *ir.HashSetType, *ir.DictionaryType:
		return true
	case *ir.Class:
		return st == ir.LockClass || st == ir.MatchClass || a.NeedsConstructor(st)
	}
	return ir.IsDynamicPtr(st)
}
