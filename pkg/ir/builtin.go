package ir

// Builtin identifies a library method or property the backends lower specially.
type Builtin int

const (
	NotBuiltin Builtin = iota

	StringContains
	StringEndsWith
	StringIndexOf
	StringLastIndexOf
	StringLength
	StringStartsWith
	StringSubstring

	ArrayBinarySearch
	ArrayCopyTo
	ArrayFill
	ArrayLength
	ArraySort

	CollectionClear
	CollectionCount
	ListAdd
	ListContains
	ListInsert
	ListRemoveAt
	ListRemoveRange
	ListSort
	StackPeek
	StackPop
	StackPush
	HashSetAdd
	HashSetContains
	HashSetRemove
	DictionaryAdd
	DictionaryContainsKey
	DictionaryRemove

	ConsoleWrite
	ConsoleWriteLine
	ErrorWrite
	ErrorWriteLine
	EnvironmentGetVariable
	MathFunction

	UTF8GetByteCount
	UTF8GetBytes

	RegexCompile
	RegexEscape
	RegexIsMatchStr
	RegexIsMatchRegex
	MatchFindStr
	MatchFindRegex
	MatchGetCapture
	MatchStart
	MatchEnd
	MatchLength
	MatchValue
)

var builtinNames = map[Builtin]string{
	StringContains:         "Contains",
	StringEndsWith:         "EndsWith",
	StringIndexOf:          "IndexOf",
	StringLastIndexOf:      "LastIndexOf",
	StringLength:           "Length",
	StringStartsWith:       "StartsWith",
	StringSubstring:        "Substring",
	ArrayBinarySearch:      "BinarySearch",
	ArrayCopyTo:            "CopyTo",
	ArrayFill:              "Fill",
	ArrayLength:            "Length",
	ArraySort:              "Sort",
	CollectionClear:        "Clear",
	CollectionCount:        "Count",
	ListAdd:                "Add",
	ListContains:           "Contains",
	ListInsert:             "Insert",
	ListRemoveAt:           "RemoveAt",
	ListRemoveRange:        "RemoveRange",
	ListSort:               "Sort",
	StackPeek:              "Peek",
	StackPop:               "Pop",
	StackPush:              "Push",
	HashSetAdd:             "Add",
	HashSetContains:        "Contains",
	HashSetRemove:          "Remove",
	DictionaryAdd:          "Add",
	DictionaryContainsKey:  "ContainsKey",
	DictionaryRemove:       "Remove",
	ConsoleWrite:           "Write",
	ConsoleWriteLine:       "WriteLine",
	ErrorWrite:             "Write",
	ErrorWriteLine:         "WriteLine",
	EnvironmentGetVariable: "GetEnvironmentVariable",
	UTF8GetByteCount:       "GetByteCount",
	UTF8GetBytes:           "GetBytes",
	RegexCompile:           "Compile",
	RegexEscape:            "Escape",
	RegexIsMatchStr:        "IsMatch",
	RegexIsMatchRegex:      "IsMatch",
	MatchFindStr:           "Find",
	MatchFindRegex:         "Find",
	MatchGetCapture:        "GetCapture",
	MatchStart:             "Start",
	MatchEnd:               "End",
	MatchLength:            "Length",
	MatchValue:             "Value",
}

func (b Builtin) String() string {
	if n, ok := builtinNames[b]; ok { return n }
	if b == MathFunction { return "Math" }
	return "none"
}

// IsStatic reports whether the builtin is called without a receiver.
func (b Builtin) IsStatic() bool {
	switch b {
	case ConsoleWrite, ConsoleWriteLine, ErrorWrite, ErrorWriteLine, EnvironmentGetVariable,
		MathFunction, UTF8GetByteCount, UTF8GetBytes, RegexCompile, RegexEscape, RegexIsMatchStr:
		return true
	}
	return false
}

// BuiltinMethod builds the method descriptor of a library call returning ret.
// Math functions pass their name (Sqrt, Pow, ...) through name; others use the default.
func BuiltinMethod(b Builtin, name string, ret Type, params ...*Var) *Method {
	if name == "" { name = b.String() }
	ct := Normal
	if b.IsStatic() { ct = Static }
	if ret == nil { ret = Void }
	return &Method{Name: name, CallType: ct, Visibility: Public, Builtin: b, Type: ret, Params: params}
}

// CallBuiltin is shorthand for a call of a builtin method on left.
func CallBuiltin(left Expr, b Builtin, ret Type, args ...Expr) *Call {
	params := make([]*Var, len(args))
	for i, a := range args {
		params[i] = &Var{Name: "arg", Type: a.Type()}
	}
	return &Call{Left: left, Method: BuiltinMethod(b, "", ret, params...), Args: args}
}

// CallMath calls a Math function such as Sqrt or Pow.
func CallMath(name string, ret Type, args ...Expr) *Call {
	c := CallBuiltin(nil, MathFunction, ret, args...)
	c.Method.Name = name
	return c
}

// PropertyOf builds a builtin property reference.
func PropertyOf(left Expr, b Builtin, typ Type) *SymbolRef {
	return &SymbolRef{Left: left, Symbol: &Property{Name: b.String(), Builtin: b, T: typ}}
}
