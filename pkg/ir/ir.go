// Package ir defines the fully type-checked intermediate representation consumed
// by the code generation backends.
package ir

type CallType int

const (
	Static CallType = iota
	Normal
	Abstract
	Virtual
	Override
	Sealed
)

func (c CallType) String() string {
	switch c {
	case Static:
		return "static"
	case Normal:
		return "normal"
	case Abstract:
		return "abstract"
	case Virtual:
		return "virtual"
	case Override:
		return "override"
	case Sealed:
		return "sealed"
	}
	return "unknown"
}

type Visibility int

const (
	Private Visibility = iota
	Internal
	Protected
	Public
)

// Symbol is anything an expression can refer to by name.
type Symbol interface {
	SymbolName() string
}

type Program struct {
	Enums     []*Enum
	Classes   []*Class
	Resources map[string][]byte
}

func (p *Program) FindClass(name string) *Class {
	for _, c := range p.Classes {
		if c.Name == name { return c }
	}
	return nil
}

type Class struct {
	Name        string
	Base        *Class
	CallType    CallType // Static, Normal, Abstract or Sealed
	Public      bool
	Fields      []*Field
	Consts      []*Const
	Methods     []*Method
	Constructor *Constructor
	system      bool
}

type Constructor struct {
	Visibility Visibility
	Body       *Block
}

func NewClass(name string, base *Class) *Class {
	return &Class{Name: name, Base: base, CallType: Normal}
}

func (c *Class) SymbolName() string { return c.Name }
func (c *Class) String() string     { return c.Name }
func (c *Class) isType()            {}

// IsSystem reports whether the class is provided by the runtime rather than the program.
func (c *Class) IsSystem() bool { return c.system }

func (c *Class) AddField(name string, typ Type, value Expr) *Field {
	f := &Field{Name: name, Parent: c, Type: typ, Value: value}
	c.Fields = append(c.Fields, f)
	return f
}

func (c *Class) AddConst(name string, typ Type, value Expr, vis Visibility) *Const {
	k := &Const{Name: name, Parent: c, Type: typ, Value: value, Visibility: vis}
	c.Consts = append(c.Consts, k)
	return k
}

func (c *Class) AddMethod(m *Method) *Method {
	m.Parent = c
	c.Methods = append(c.Methods, m)
	return m
}

// AddsVirtualMethods reports whether the class introduces a new virtual slot.
func (c *Class) AddsVirtualMethods() bool {
	for _, m := range c.Methods {
		if m.IsAbstractOrVirtual() { return true }
	}
	return false
}

// Lookup resolves a member by name starting at c and walking up the base chain.
func (c *Class) Lookup(name string) Symbol {
	for k := c; k != nil; k = k.Base {
		for _, m := range k.Methods {
			if m.Name == name { return m }
		}
		for _, f := range k.Fields {
			if f.Name == name { return f }
		}
		for _, konst := range k.Consts {
			if konst.Name == name { return konst }
		}
	}
	return nil
}

// IsSameOrBaseOf reports whether c is other or one of its ancestors.
func (c *Class) IsSameOrBaseOf(other *Class) bool {
	for k := other; k != nil; k = k.Base {
		if k == c { return true }
	}
	return false
}

// Depth is the number of base classes above c.
func (c *Class) Depth() int {
	d := 0
	for k := c.Base; k != nil; k = k.Base {
		d++
	}
	return d
}

type Enum struct {
	Name    string
	Public  bool
	Flags   bool
	Members []*EnumMember
}

type EnumMember struct {
	Name   string
	Parent *Enum
	Value  Expr // nil for implicit numbering
}

func NewEnum(name string, public bool, members ...string) *Enum {
	e := &Enum{Name: name, Public: public}
	for _, m := range members {
		e.Members = append(e.Members, &EnumMember{Name: m, Parent: e})
	}
	return e
}

func (e *Enum) SymbolName() string       { return e.Name }
func (e *Enum) String() string           { return e.Name }
func (e *Enum) isType()                  {}
func (m *EnumMember) SymbolName() string { return m.Name }

func (e *Enum) Member(name string) *EnumMember {
	for _, m := range e.Members {
		if m.Name == name { return m }
	}
	return nil
}

type Method struct {
	Name       string
	Parent     *Class
	CallType   CallType
	Visibility Visibility
	Throws     bool
	Mutator    bool
	Params     []*Var
	Type       Type
	Body       Stmt
	Builtin    Builtin
}

func (m *Method) SymbolName() string { return m.Name }

func (m *Method) IsAbstractOrVirtual() bool {
	return m.CallType == Abstract || m.CallType == Virtual
}

// DeclaringMethod returns the Virtual or Abstract method that introduced the slot m fills.
func (m *Method) DeclaringMethod() *Method {
	if m.IsAbstractOrVirtual() || m.Parent == nil { return m }
	for k := m.Parent.Base; k != nil; k = k.Base {
		for _, bm := range k.Methods {
			if bm.Name == m.Name && bm.IsAbstractOrVirtual() { return bm }
		}
	}
	return m
}

type Field struct {
	Name       string
	Parent     *Class
	Type       Type
	Value      Expr
	Visibility Visibility
}

func (f *Field) SymbolName() string { return f.Name }

type Const struct {
	Name       string
	Parent     *Class // nil for method-local constants
	Type       Type
	Value      Expr
	Visibility Visibility
}

func (k *Const) SymbolName() string { return k.Name }

// Var is a parameter, a local variable or a foreach iteration variable.
type Var struct {
	Name  string
	Type  Type
	Value Expr
}

func NewVar(name string, typ Type, value Expr) *Var { return &Var{Name: name, Type: typ, Value: value} }

func (v *Var) SymbolName() string { return v.Name }
func (v *Var) isStmt()            {}

// Property is a builtin read-only member such as a collection's Count.
type Property struct {
	Name    string
	Builtin Builtin
	T       Type
}

func (p *Property) SymbolName() string { return p.Name }
