package ir

type Expr interface {
	Type() Type
	isExpr()
}

type IntLit struct {
	Value int64
	T     Type
}

type FloatLit struct {
	Value float64
	T     Type
}

type StringLit struct{ Value string }
type BoolLit struct{ Value bool }
type NullLit struct{}

// SymbolRef is a (possibly qualified) reference to a variable, field, constant,
// enum member or builtin property. Left is nil for locals and for fields of self.
type SymbolRef struct {
	Left   Expr
	Symbol Symbol
	T      Type
}

type UnaryOp int

const (
	Neg UnaryOp = iota
	Not
	Complement
	PreIncrement
	PreDecrement
	PostIncrement
	PostDecrement
)

type Unary struct {
	Op    UnaryOp
	Inner Expr
	T     Type
}

// New allocates a shared instance of Class.
type New struct{ Class *Class }

// NewArray allocates a shared array of Length elements.
type NewArray struct {
	Elem   Type
	Length Expr
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BitAnd
	BitOr
	BitXor
	Less
	LessEq
	Greater
	GreaterEq
	Equal
	NotEqual
	CondAnd
	CondOr
	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	ShlAssign
	ShrAssign
	AndAssign
	OrAssign
	XorAssign
	Index
)

type Binary struct {
	Op          BinaryOp
	Left, Right Expr
	T           Type
}

type Select struct {
	Cond, OnTrue, OnFalse Expr
	T                     Type
}

// Call invokes Method on Left; Left is nil for static calls and calls on self.
// ViaBase marks `base.Method()` calls that bypass dynamic dispatch.
type Call struct {
	Left    Expr
	Method  *Method
	Args    []Expr
	T       Type
	ViaBase bool
}

type InterpolatedPart struct {
	Prefix    string
	Arg       Expr
	Width     int
	Format    byte // 0, 'D', 'E', 'F', 'X', 'x' ...
	Precision int  // -1 when absent
}

type Interpolated struct {
	Parts  []InterpolatedPart
	Suffix string
}

// ResourceRef is the byte array of an embedded binary resource.
type ResourceRef struct{ Name string }

// ArrayLit initializes a constant array.
type ArrayLit struct {
	Items []Expr
	T     *ArrayStorageType
}

func (*IntLit) isExpr()       {}
func (*FloatLit) isExpr()     {}
func (*StringLit) isExpr()    {}
func (*BoolLit) isExpr()      {}
func (*NullLit) isExpr()      {}
func (*SymbolRef) isExpr()    {}
func (*Unary) isExpr()        {}
func (*New) isExpr()          {}
func (*NewArray) isExpr()     {}
func (*Binary) isExpr()       {}
func (*Select) isExpr()       {}
func (*Call) isExpr()         {}
func (*Interpolated) isExpr() {}
func (*ResourceRef) isExpr()  {}
func (*ArrayLit) isExpr()     {}

func (e *IntLit) Type() Type {
	if e.T != nil { return e.T }
	return Int
}

func (e *FloatLit) Type() Type {
	if e.T != nil { return e.T }
	return Double
}

func (*StringLit) Type() Type { return StringPtr }
func (*BoolLit) Type() Type   { return Bool }
func (*NullLit) Type() Type   { return Null }

func (e *SymbolRef) Type() Type {
	if e.T != nil { return e.T }
	switch s := e.Symbol.(type) {
	case *Var:
		return s.Type
	case *Field:
		return s.Type
	case *Const:
		return s.Type
	case *EnumMember:
		return s.Parent
	case *Property:
		return s.T
	}
	return Void
}

func (e *Unary) Type() Type {
	if e.T != nil { return e.T }
	if e.Op == Not { return Bool }
	return e.Inner.Type()
}

func (e *New) Type() Type      { return SharedPtr(e.Class) }
func (e *NewArray) Type() Type { return &ArrayPtrType{Elem: e.Elem, Modifier: Shared} }

func (e *Binary) Type() Type {
	if e.T != nil { return e.T }
	switch e.Op {
	case Less, LessEq, Greater, GreaterEq, Equal, NotEqual, CondAnd, CondOr:
		return Bool
	case Index:
		switch l := e.Left.Type().(type) {
		case *DictionaryType:
			return l.Value
		default:
			if elem := ElementType(l); elem != nil { return elem }
		}
	}
	return e.Left.Type()
}

func (e *Select) Type() Type {
	if e.T != nil { return e.T }
	return e.OnTrue.Type()
}

func (e *Call) Type() Type {
	if e.T != nil { return e.T }
	if e.Method.Type == nil { return Void }
	return e.Method.Type
}

func (*Interpolated) Type() Type { return StringStorage }

func (e *ResourceRef) Type() Type { return &ArrayPtrType{Elem: Byte, Modifier: ReadOnly} }

func (e *ArrayLit) Type() Type { return e.T }

// Ref builds an unqualified reference to a local, parameter or field of self.
func Ref(s Symbol) *SymbolRef { return &SymbolRef{Symbol: s} }

// Member builds left.s.
func Member(left Expr, s Symbol) *SymbolRef { return &SymbolRef{Left: left, Symbol: s} }

func Int64(v int64) *IntLit { return &IntLit{Value: v} }
func Str(v string) *StringLit { return &StringLit{Value: v} }

func Bin(op BinaryOp, left, right Expr) *Binary { return &Binary{Op: op, Left: left, Right: right} }

func AssignTo(left, right Expr) *Binary { return &Binary{Op: Assign, Left: left, Right: right} }

func CallOf(left Expr, m *Method, args ...Expr) *Call { return &Call{Left: left, Method: m, Args: args} }

// IsReferenceTo reports whether e is an unqualified-or-qualified reference to s.
func IsReferenceTo(e Expr, s Symbol) bool {
	r, ok := e.(*SymbolRef)
	return ok && r.Symbol == s
}

// IsLiteral reports whether e is a compile-time literal.
func IsLiteral(e Expr) bool {
	switch e.(type) {
	case *IntLit, *FloatLit, *StringLit, *BoolLit, *NullLit:
		return true
	}
	return false
}

// IsDefaultValue reports whether e is a literal zero, false or null.
func IsDefaultValue(e Expr) bool {
	switch l := e.(type) {
	case *IntLit:
		return l.Value == 0
	case *FloatLit:
		return l.Value == 0
	case *BoolLit:
		return !l.Value
	case *NullLit:
		return true
	}
	return false
}

func IsLiteralZero(e Expr) bool {
	l, ok := e.(*IntLit)
	return ok && l.Value == 0
}
