package ir

import (
	"fmt"
	"math"
)

type Type interface {
	String() string
	isType()
}

// PtrModifier distinguishes borrowed pointers from writable and shared-owning ones.
type PtrModifier int

const (
	ReadOnly  PtrModifier = iota // T
	ReadWrite                    // T!
	Shared                       // T#
)

func (m PtrModifier) suffix() string {
	switch m {
	case ReadWrite:
		return "!"
	case Shared:
		return "#"
	}
	return ""
}

type IntegerKind int

const (
	IntKind IntegerKind = iota
	LongKind
	RangeKind
)

type IntegerType struct {
	Kind     IntegerKind
	Min, Max int64
}

type FloatType struct{ Double bool }
type BoolType struct{}
type VoidType struct{}
type NullType struct{}

// StringType is either a borrowed pointer (string) or owned storage (string()).
type StringType struct{ Storage bool }

type ClassPtrType struct {
	Class    *Class
	Modifier PtrModifier
}

type ArrayPtrType struct {
	Elem     Type
	Modifier PtrModifier
}

type ArrayStorageType struct {
	Elem   Type
	Length int
}

type ListType struct{ Elem Type }
type StackType struct{ Elem Type }
type HashSetType struct{ Elem Type }

type DictionaryType struct {
	Key, Value Type
	Sorted     bool
}

func (*IntegerType) isType()      {}
func (*FloatType) isType()        {}
func (*BoolType) isType()         {}
func (*VoidType) isType()         {}
func (*NullType) isType()         {}
func (*StringType) isType()       {}
func (*ClassPtrType) isType()     {}
func (*ArrayPtrType) isType()     {}
func (*ArrayStorageType) isType() {}
func (*ListType) isType()         {}
func (*StackType) isType()        {}
func (*HashSetType) isType()      {}
func (*DictionaryType) isType()   {}

func (t *IntegerType) String() string {
	switch t.Kind {
	case IntKind:
		return "int"
	case LongKind:
		return "long"
	}
	if t.Min == 0 && t.Max == 255 { return "byte" }
	return fmt.Sprintf("%d..%d", t.Min, t.Max)
}

func (t *FloatType) String() string {
	if t.Double { return "double" }
	return "float"
}

func (*BoolType) String() string { return "bool" }
func (*VoidType) String() string { return "void" }
func (*NullType) String() string { return "null" }

func (t *StringType) String() string {
	if t.Storage { return "string()" }
	return "string"
}

func (t *ClassPtrType) String() string     { return t.Class.Name + t.Modifier.suffix() }
func (t *ArrayPtrType) String() string     { return t.Elem.String() + "[]" + t.Modifier.suffix() }
func (t *ArrayStorageType) String() string { return fmt.Sprintf("%s[%d]", t.Elem, t.Length) }
func (t *ListType) String() string         { return "List<" + t.Elem.String() + ">" }
func (t *StackType) String() string        { return "Stack<" + t.Elem.String() + ">" }
func (t *HashSetType) String() string      { return "HashSet<" + t.Elem.String() + ">" }

func (t *DictionaryType) String() string {
	name := "Dictionary"
	if t.Sorted { name = "SortedDictionary" }
	return fmt.Sprintf("%s<%s, %s>", name, t.Key, t.Value)
}

var (
	Int           = &IntegerType{Kind: IntKind, Min: math.MinInt32, Max: math.MaxInt32}
	Long          = &IntegerType{Kind: LongKind, Min: math.MinInt64, Max: math.MaxInt64}
	Byte          = &IntegerType{Kind: RangeKind, Min: 0, Max: 255}
	Float         = &FloatType{}
	Double        = &FloatType{Double: true}
	Bool          = &BoolType{}
	Void          = &VoidType{}
	Null          = &NullType{}
	StringPtr     = &StringType{}
	StringStorage = &StringType{Storage: true}
)

func Range(min, max int64) *IntegerType { return &IntegerType{Kind: RangeKind, Min: min, Max: max} }

func PtrTo(c *Class, m PtrModifier) *ClassPtrType { return &ClassPtrType{Class: c, Modifier: m} }

// SharedPtr is the type of `new C()`.
func SharedPtr(c *Class) *ClassPtrType { return &ClassPtrType{Class: c, Modifier: Shared} }

func IsVoid(t Type) bool {
	_, ok := t.(*VoidType)
	return ok
}

func IsBool(t Type) bool {
	_, ok := t.(*BoolType)
	return ok
}

func IsNumeric(t Type) bool {
	switch t.(type) {
	case *IntegerType, *FloatType:
		return true
	}
	return false
}

func IsInteger(t Type) bool {
	_, ok := t.(*IntegerType)
	return ok
}

func IsLong(t Type) bool {
	i, ok := t.(*IntegerType)
	return ok && i.Kind == LongKind
}

func IsString(t Type) bool {
	_, ok := t.(*StringType)
	return ok
}

func IsStringStorage(t Type) bool {
	s, ok := t.(*StringType)
	return ok && s.Storage
}

func IsStringPtr(t Type) bool {
	s, ok := t.(*StringType)
	return ok && !s.Storage
}

// IsDynamicPtr reports whether t is a shared-owning (reference counted) pointer.
func IsDynamicPtr(t Type) bool {
	switch p := t.(type) {
	case *ClassPtrType:
		return p.Modifier == Shared
	case *ArrayPtrType:
		return p.Modifier == Shared
	}
	return false
}

// IsFinal reports whether values of t are constructed in place rather than copied in.
func IsFinal(t Type) bool {
	switch t.(type) {
	case *Class, *ArrayStorageType, *ListType, *StackType, *HashSetType, *DictionaryType:
		return true
	}
	return false
}

// IsClass reports whether t is class c or a pointer to it.
func IsClass(t Type, c *Class) bool {
	switch t := t.(type) {
	case *Class:
		return t == c
	case *ClassPtrType:
		return t.Class == c
	}
	return false
}

func IsList(t Type) bool {
	_, ok := t.(*ListType)
	return ok
}

func IsStack(t Type) bool {
	_, ok := t.(*StackType)
	return ok
}

// IsArrayList reports whether t is backed by a growable array (list or stack).
func IsArrayList(t Type) bool { return IsList(t) || IsStack(t) }

func IsDictionary(t Type) bool {
	_, ok := t.(*DictionaryType)
	return ok
}

func IsSortedDictionary(t Type) bool {
	d, ok := t.(*DictionaryType)
	return ok && d.Sorted
}

// ElementType returns the element type of an array or collection, or nil.
func ElementType(t Type) Type {
	switch t := t.(type) {
	case *ArrayPtrType:
		return t.Elem
	case *ArrayStorageType:
		return t.Elem
	case *ListType:
		return t.Elem
	case *StackType:
		return t.Elem
	case *HashSetType:
		return t.Elem
	}
	return nil
}

// StorageType strips fixed-size array dimensions.
func StorageType(t Type) Type {
	for {
		a, ok := t.(*ArrayStorageType)
		if !ok { return t }
		t = a.Elem
	}
}

// BaseType strips every array level, storage or pointer.
func BaseType(t Type) Type {
	for {
		switch a := t.(type) {
		case *ArrayStorageType:
			t = a.Elem
		case *ArrayPtrType:
			t = a.Elem
		default:
			return t
		}
	}
}

// SameType compares types structurally; classes and enums compare by identity.
func SameType(a, b Type) bool {
	if a == b { return true }
	switch a := a.(type) {
	case *IntegerType:
		b, ok := b.(*IntegerType)
		return ok && *a == *b
	case *FloatType:
		b, ok := b.(*FloatType)
		return ok && *a == *b
	case *BoolType:
		_, ok := b.(*BoolType)
		return ok
	case *VoidType:
		_, ok := b.(*VoidType)
		return ok
	case *NullType:
		_, ok := b.(*NullType)
		return ok
	case *StringType:
		b, ok := b.(*StringType)
		return ok && a.Storage == b.Storage
	case *ClassPtrType:
		b, ok := b.(*ClassPtrType)
		return ok && a.Class == b.Class && a.Modifier == b.Modifier
	case *ArrayPtrType:
		b, ok := b.(*ArrayPtrType)
		return ok && a.Modifier == b.Modifier && SameType(a.Elem, b.Elem)
	case *ArrayStorageType:
		b, ok := b.(*ArrayStorageType)
		return ok && a.Length == b.Length && SameType(a.Elem, b.Elem)
	case *ListType:
		b, ok := b.(*ListType)
		return ok && SameType(a.Elem, b.Elem)
	case *StackType:
		b, ok := b.(*StackType)
		return ok && SameType(a.Elem, b.Elem)
	case *HashSetType:
		b, ok := b.(*HashSetType)
		return ok && SameType(a.Elem, b.Elem)
	case *DictionaryType:
		b, ok := b.(*DictionaryType)
		return ok && a.Sorted == b.Sorted && SameType(a.Key, b.Key) && SameType(a.Value, b.Value)
	}
	return false
}

// System classes provided by the runtime.
var (
	LockClass  = &Class{Name: "Lock", CallType: Sealed, system: true}
	RegexClass = &Class{Name: "Regex", CallType: Sealed, system: true}
	MatchClass = &Class{Name: "Match", CallType: Sealed, system: true}
)
