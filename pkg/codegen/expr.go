package codegen

import (
	"math"
	"strconv"
	"strings"

	"github.com/xplshn/gci/pkg/ir"
)

func (b *cBackend) visitExpr(e ir.Expr, parent priority) {
	if id := b.tempFor(e); id >= 0 {
		b.write(tempName(id))
		return
	}
	switch e := e.(type) {
	case *ir.IntLit:
		b.writeIntLit(e.Value)
	case *ir.FloatLit:
		b.writeFloatLit(e)
	case *ir.StringLit:
		b.writeStringLiteral(e.Value)
	case *ir.BoolLit:
		b.include("stdbool.h")
		if e.Value {
			b.write("true")
		} else {
			b.write("false")
		}
	case *ir.NullLit:
		b.write("NULL")
	case *ir.SymbolRef:
		b.visitSymbolRef(e, parent)
	case *ir.Unary:
		b.visitUnary(e, parent)
	case *ir.New:
		b.writeNewArray(e.Class, nil, parent)
	case *ir.NewArray:
		b.writeNewArray(e.Elem, e.Length, parent)
	case *ir.Binary:
		b.visitBinary(e, parent)
	case *ir.Select:
		if parent > prioSelect { b.write("(") }
		b.visitExpr(e.Cond, prioSelectCond)
		b.write(" ? ")
		b.writeCoerced(e.Type(), e.OnTrue, prioSelect)
		b.write(" : ")
		b.writeCoerced(e.Type(), e.OnFalse, prioSelect)
		if parent > prioSelect { b.write(")") }
	case *ir.Call:
		b.writeCall(e, parent)
	case *ir.Interpolated:
		b.writeInterpolated(e)
	case *ir.ArrayLit:
		b.write("{ ")
		for i, item := range e.Items {
			if i > 0 { b.write(", ") }
			b.visitExpr(item, prioArgument)
		}
		b.write(" }")
	case *ir.ResourceRef:
		if _, ok := b.prog.Resources[e.Name]; !ok {
			b.failf("unknown resource %q", e.Name)
		}
		b.write(resourceName(e.Name))
	default:
		b.failf("cannot lower expression %T", e)
	}
}

func (b *cBackend) writeIntLit(v int64) {
	switch {
	case v == math.MinInt64:
		b.write("(-9223372036854775807LL - 1)")
	case v < math.MinInt32 || v > math.MaxInt32:
		b.writeInt(v)
		b.write("LL")
	default:
		b.writeInt(v)
	}
}

func (b *cBackend) writeFloatLit(e *ir.FloatLit) {
	switch {
	case math.IsNaN(e.Value):
		b.include("math.h")
		b.write("NAN")
		return
	case math.IsInf(e.Value, 1):
		b.include("math.h")
		b.write("INFINITY")
		return
	case math.IsInf(e.Value, -1):
		b.include("math.h")
		b.write("-INFINITY")
		return
	}
	s := strconv.FormatFloat(e.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	if ft, ok := e.Type().(*ir.FloatType); ok && !ft.Double {
		s += "f"
	}
	b.write(s)
}

func (b *cBackend) writeSelfForField(fieldClass *ir.Class) {
	b.write("self->")
	for k := b.currentClass; k != nil && k != fieldClass; k = k.Base {
		b.write("base.")
	}
}

// writeMemberAccess writes `.` or `->` for a left operand of type t and then
// walks the embedded base structs up to symbolClass.
func (b *cBackend) writeMemberAccess(t ir.Type, symbolClass *ir.Class) {
	var k *ir.Class
	switch t := t.(type) {
	case *ir.Class:
		b.write(".")
		k = t
	case *ir.ClassPtrType:
		b.write("->")
		k = t.Class
	default:
		b.failf("member access on %s", t)
	}
	for ; k != nil && k != symbolClass; k = k.Base {
		b.write("base.")
	}
}

// isDictionaryClassStgIndexing matches d[key] where d holds class storage, which lowers to a pointer.
func isDictionaryClassStgIndexing(e ir.Expr) bool {
	bin, ok := e.(*ir.Binary)
	if !ok || bin.Op != ir.Index { return false }
	d, ok := bin.Left.Type().(*ir.DictionaryType)
	if !ok { return false }
	_, ok = d.Value.(*ir.Class)
	return ok
}

func (b *cBackend) visitSymbolRef(e *ir.SymbolRef, parent priority) {
	switch s := e.Symbol.(type) {
	case *ir.Property:
		b.writeProperty(e, s)
	case *ir.EnumMember:
		b.write(b.enumMemberName(s))
	case *ir.Const:
		if _, isArray := s.Type.(*ir.ArrayStorageType); !isArray && s.Visibility != ir.Public && s.Value != nil {
			b.visitExpr(s.Value, parent)
			return
		}
		b.write(b.constName(s))
	case *ir.Field:
		switch {
		case e.Left == nil:
			b.writeSelfForField(s.Parent)
		case isDictionaryClassStgIndexing(e.Left):
			b.visitExpr(e.Left, prioPrimary)
			b.write("->")
		default:
			b.visitExpr(e.Left, prioPrimary)
			b.writeMemberAccess(e.Left.Type(), s.Parent)
		}
		b.write(localName(s.Name))
	case *ir.Var:
		b.writeLocal(s, parent)
	default:
		b.failf("cannot reference %s", e.Symbol.SymbolName())
	}
}

// writeLocal writes a variable; foreach elements over arrays and lists are
// indexes or pointers into the collection.
func (b *cBackend) writeLocal(v *ir.Var, parent priority) {
	name := localName(v.Name)
	fe, ok := b.foreachOf[v]
	if !ok {
		b.write(name)
		return
	}
	switch ct := fe.Collection.Type().(type) {
	case *ir.ListType:
		if parent == prioPrimary { b.write("(") }
		b.write("*" + name)
		if parent == prioPrimary { b.write(")") }
	case *ir.ArrayStorageType:
		if _, isClass := ct.Elem.(*ir.Class); isClass {
			if parent > prioAdd { b.write("(") }
			b.visitExpr(fe.Collection, prioAdd)
			b.write(" + " + name)
			if parent > prioAdd { b.write(")") }
			return
		}
		b.visitExpr(fe.Collection, prioPrimary)
		b.write("[" + name + "]")
	default:
		b.write(name)
	}
}

func (b *cBackend) writeProperty(e *ir.SymbolRef, p *ir.Property) {
	switch p.Builtin {
	case ir.StringLength:
		b.writeStringLength(e.Left)
	case ir.ArrayLength:
		a, ok := e.Left.Type().(*ir.ArrayStorageType)
		if !ok { b.failf("Length of a dynamic array is unknown") }
		b.writeInt(int64(a.Length))
	case ir.CollectionCount:
		switch t := e.Left.Type().(type) {
		case *ir.ListType, *ir.StackType:
			b.visitExpr(e.Left, prioPrimary)
			b.write("->len")
		case *ir.DictionaryType:
			if t.Sorted {
				b.writeCallOf("g_tree_nnodes", e.Left)
			} else {
				b.writeCallOf("g_hash_table_size", e.Left)
			}
		case *ir.HashSetType:
			b.writeCallOf("g_hash_table_size", e.Left)
		default:
			b.failf("Count of %s", t)
		}
	case ir.MatchStart:
		b.writeMatchProperty(e.Left, 0)
	case ir.MatchEnd:
		b.writeMatchProperty(e.Left, 1)
	case ir.MatchLength:
		b.writeMatchProperty(e.Left, 2)
	case ir.MatchValue:
		b.write("g_match_info_fetch(")
		b.visitExpr(e.Left, prioArgument)
		b.write(", 0)")
	default:
		b.failf("unsupported property %s", p.Name)
	}
}

func (b *cBackend) writeMatchProperty(left ir.Expr, which int) {
	b.use.matchPos = true
	b.write("CiMatch_GetPos(")
	b.visitExpr(left, prioArgument)
	b.writef(", %d)", which)
}

// writeCallOf writes fn(args...) with every argument at argument priority.
func (b *cBackend) writeCallOf(fn string, args ...ir.Expr) {
	b.write(fn + "(")
	for i, a := range args {
		if i > 0 { b.write(", ") }
		b.visitExpr(a, prioArgument)
	}
	b.write(")")
}

func (b *cBackend) visitUnary(e *ir.Unary, parent priority) {
	switch e.Op {
	case ir.PostIncrement, ir.PostDecrement:
		b.visitExpr(e.Inner, prioPrimary)
		if e.Op == ir.PostIncrement {
			b.write("++")
		} else {
			b.write("--")
		}
		return
	}
	if parent == prioPrimary { b.write("(") }
	switch e.Op {
	case ir.Neg:
		b.write("-")
		if startsWithMinus(e.Inner) {
			b.write("(")
			b.visitExpr(e.Inner, prioArgument)
			b.write(")")
		} else {
			b.visitExpr(e.Inner, prioPrimary)
		}
	case ir.Not:
		b.write("!")
		b.visitExpr(e.Inner, prioPrimary)
	case ir.Complement:
		b.write("~")
		b.visitExpr(e.Inner, prioPrimary)
	case ir.PreIncrement:
		b.write("++")
		b.visitExpr(e.Inner, prioPrimary)
	case ir.PreDecrement:
		b.write("--")
		b.visitExpr(e.Inner, prioPrimary)
	}
	if parent == prioPrimary { b.write(")") }
}

func startsWithMinus(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.IntLit:
		return e.Value < 0
	case *ir.FloatLit:
		return e.Value < 0 || math.IsInf(e.Value, -1)
	case *ir.Unary:
		return e.Op == ir.Neg || e.Op == ir.PreDecrement
	}
	return false
}

var binaryOps = map[ir.BinaryOp]struct {
	text string
	prio priority
}{
	ir.Mul: {"*", prioMul}, ir.Div: {"/", prioMul}, ir.Mod: {"%", prioMul},
	ir.Add: {"+", prioAdd}, ir.Sub: {"-", prioAdd},
	ir.Shl: {"<<", prioShift}, ir.Shr: {">>", prioShift},
	ir.Less: {"<", prioRel}, ir.LessEq: {"<=", prioRel}, ir.Greater: {">", prioRel}, ir.GreaterEq: {">=", prioRel},
	ir.Equal: {"==", prioEquality}, ir.NotEqual: {"!=", prioEquality},
	ir.BitAnd: {"&", prioAnd}, ir.BitXor: {"^", prioXor}, ir.BitOr: {"|", prioOr},
	ir.CondAnd: {"&&", prioCondAnd}, ir.CondOr: {"||", prioCondOr},
	ir.Assign: {"=", prioArgument}, ir.AddAssign: {"+=", prioArgument}, ir.SubAssign: {"-=", prioArgument},
	ir.MulAssign: {"*=", prioArgument}, ir.DivAssign: {"/=", prioArgument}, ir.ModAssign: {"%=", prioArgument},
	ir.ShlAssign: {"<<=", prioArgument}, ir.ShrAssign: {">>=", prioArgument}, ir.AndAssign: {"&=", prioArgument},
	ir.OrAssign: {"|=", prioArgument}, ir.XorAssign: {"^=", prioArgument},
}

func (b *cBackend) writeBinaryOp(e *ir.Binary, parent priority) {
	op := binaryOps[e.Op]
	if parent > op.prio { b.write("(") }
	left, right := op.prio, op.prio+1
	switch op.prio {
	case prioArgument:
		left, right = prioArgument, prioArgument
	case prioCondAnd, prioCondOr:
		right = op.prio
	}
	b.visitExpr(e.Left, left)
	b.write(" " + op.text + " ")
	if e.Op == ir.Assign {
		b.writeCoerced(e.Left.Type(), e.Right, right)
	} else {
		b.visitExpr(e.Right, right)
	}
	if parent > op.prio { b.write(")") }
}

// isStringEmpty matches s.Length == 0, s.Length != 0 and s.Length > 0.
func isStringEmpty(e *ir.Binary) (ir.Expr, bool) {
	ref, ok := e.Left.(*ir.SymbolRef)
	if !ok || !ir.IsLiteralZero(e.Right) { return nil, false }
	p, ok := ref.Symbol.(*ir.Property)
	if !ok || p.Builtin != ir.StringLength { return nil, false }
	return ref.Left, true
}

func (b *cBackend) visitBinary(e *ir.Binary, parent priority) {
	switch e.Op {
	case ir.Index:
		b.writeIndexing(e, parent)
		return
	case ir.Assign:
		b.writeAssign(e, parent)
		return
	case ir.Equal, ir.NotEqual, ir.Greater:
		if s, ok := isStringEmpty(e); ok {
			b.visitExpr(s, prioPrimary)
			if e.Op == ir.Equal {
				b.write(`[0] == '\0'`)
			} else {
				b.write(`[0] != '\0'`)
			}
			return
		}
		if e.Op != ir.Greater && ir.IsString(e.Left.Type()) && ir.IsString(e.Right.Type()) {
			if ir.IsLiteral(e.Right) && !isStringLit(e.Right) || ir.IsLiteral(e.Left) && !isStringLit(e.Left) {
				break
			}
			b.writeEqualString(e.Left, e.Right, parent, e.Op == ir.NotEqual)
			return
		}
	case ir.AddAssign:
		if ir.IsStringStorage(e.Left.Type()) {
			b.writeStringAppend(e)
			return
		}
	}
	b.writeBinaryOp(e, parent)
}

func isStringLit(e ir.Expr) bool {
	_, ok := e.(*ir.StringLit)
	return ok
}

func (b *cBackend) writeIndexing(e *ir.Binary, parent priority) {
	switch t := e.Left.Type().(type) {
	case *ir.ListType, *ir.StackType:
		elem := ir.ElementType(t)
		if _, ok := elem.(*ir.ArrayStorageType); ok {
			b.write("(")
			b.writeDynamicArrayCast(elem)
			b.visitExpr(e.Left, prioPrimary)
			b.write("->data)[")
			b.visitExpr(e.Right, prioArgument)
			b.write("]")
			return
		}
		b.startArrayIndexing(e.Left)
		b.visitExpr(e.Right, prioArgument)
		b.write(")")
	case *ir.DictionaryType:
		b.writeDictionaryIndexing(e, t, parent)
	case *ir.ArrayStorageType, *ir.ArrayPtrType, *ir.StringType:
		b.visitExpr(e.Left, prioPrimary)
		b.write("[")
		b.visitExpr(e.Right, prioArgument)
		b.write("]")
	default:
		b.failf("cannot index %s", t)
	}
}

func (b *cBackend) writeAssign(e *ir.Binary, parent priority) {
	if idx, ok := e.Left.(*ir.Binary); ok && idx.Op == ir.Index {
		if d, ok := idx.Left.Type().(*ir.DictionaryType); ok {
			b.startDictionaryInsert(idx.Left, idx.Right)
			b.writeGPointerCast(d.Value, e.Right)
			b.write(")")
			return
		}
	}
	lt := e.Left.Type()
	switch {
	case ir.IsStringStorage(lt):
		b.use.stringAssign = true
		b.write("CiString_Assign(&")
		b.visitExpr(e.Left, prioPrimary)
		b.write(", ")
		b.writeStringStorageValue(e.Right)
		b.write(")")
	case ir.IsDynamicPtr(lt) && !ir.IsClass(lt, ir.RegexClass):
		b.use.sharedAssign = true
		b.write("CiShared_Assign((void **) &")
		b.visitExpr(e.Left, prioPrimary)
		b.write(", ")
		if _, ok := e.Right.(*ir.SymbolRef); ok {
			b.use.sharedAddRef = true
			b.write("CiShared_AddRef(")
			b.visitExpr(e.Right, prioArgument)
			b.write(")")
		} else {
			b.visitExpr(e.Right, prioArgument)
		}
		b.write(")")
	default:
		b.writeBinaryOp(e, parent)
	}
}

// writeCoerced writes e converted to t: owned strings are copied, shared
// pointers taken from a symbol gain a reference, class pointers are upcast.
func (b *cBackend) writeCoerced(t ir.Type, e ir.Expr, parent priority) {
	_, isRef := e.(*ir.SymbolRef)
	switch tt := t.(type) {
	case *ir.StringType:
		if tt.Storage {
			b.writeStringStorageValue(e)
			return
		}
	case *ir.ClassPtrType:
		if tt.Modifier == ir.Shared && isRef && parent != prioEquality {
			b.use.sharedAddRef = true
			b.write("(" + b.className(tt.Class) + " *) CiShared_AddRef(")
			b.visitExpr(e, prioArgument)
			b.write(")")
			return
		}
		b.writeClassPtr(tt.Class, e, parent)
		return
	case *ir.ArrayPtrType:
		if tt.Modifier == ir.Shared && isRef && parent != prioEquality {
			b.use.sharedAddRef = true
			b.writeDynamicArrayCast(tt.Elem)
			b.writeCallOf("CiShared_AddRef", e)
			return
		}
	}
	b.visitExpr(e, parent)
}

// writeClassPtr writes a pointer to resultClass from class storage or from a pointer to a subclass.
func (b *cBackend) writeClassPtr(resultClass *ir.Class, e ir.Expr, parent priority) {
	var k *ir.Class
	switch t := e.Type().(type) {
	case *ir.Class:
		if t == ir.MatchClass || isDictionaryClassStgIndexing(e) || !resultClass.IsSameOrBaseOf(t) {
			b.visitExpr(e, parent)
			return
		}
		b.write("&")
		b.visitExpr(e, prioPrimary)
		k = t
	case *ir.ClassPtrType:
		if t.Class == resultClass || !resultClass.IsSameOrBaseOf(t.Class) {
			b.visitExpr(e, parent)
			return
		}
		b.write("&")
		b.visitExpr(e, prioPrimary)
		b.write("->base")
		k = t.Class.Base
	default:
		b.visitExpr(e, parent)
		return
	}
	for ; k != resultClass; k = k.Base {
		b.write(".base")
	}
}

func (b *cBackend) writeXstructorPtr(need bool, c *ir.Class, name string) {
	if need {
		b.write("(CiMethodPtr) " + b.className(c) + "_" + name)
	} else {
		b.write("NULL")
	}
}

// writeNewArray allocates a shared block of length elements (one when length is nil).
func (b *cBackend) writeNewArray(elem ir.Type, length ir.Expr, parent priority) {
	b.use.sharedMake = true
	if parent > prioMul { b.write("(") }
	b.writeDynamicArrayCast(elem)
	b.write("CiShared_Make(")
	if length != nil {
		b.visitExpr(length, prioArgument)
	} else {
		b.write("1")
	}
	b.write(", sizeof(")
	b.writeType(elem, false)
	b.write("), ")
	switch {
	case ir.IsStringStorage(elem):
		b.use.ptrConstruct = true
		b.write("(CiMethodPtr) CiPtr_Construct, free")
	case ir.IsDynamicPtr(elem):
		b.use.ptrConstruct = true
		b.use.sharedRelease = true
		b.write("(CiMethodPtr) CiPtr_Construct, CiShared_Release")
	default:
		if c, ok := elem.(*ir.Class); ok {
			b.writeXstructorPtr(b.own.NeedsConstructor(c), c, "Construct")
			b.write(", ")
			b.writeXstructorPtr(b.own.NeedsDestructor(c), c, "Destruct")
		} else {
			b.write("NULL, NULL")
		}
	}
	b.write(")")
	if parent > prioMul { b.write(")") }
}

// writeArrayPtr writes a pointer to the first element; lists expose their data buffer.
func (b *cBackend) writeArrayPtr(e ir.Expr, parent priority) {
	if l, ok := e.Type().(*ir.ListType); ok {
		b.write("(")
		b.writeType(l.Elem, false)
		b.write(" *) ")
		b.visitExpr(e, prioPrimary)
		b.write("->data")
		return
	}
	b.visitExpr(e, parent)
}

func (b *cBackend) writeArrayPtrAdd(ptr, offset ir.Expr) {
	if ir.IsLiteralZero(offset) {
		b.writeArrayPtr(ptr, prioArgument)
		return
	}
	b.writeArrayPtr(ptr, prioAdd)
	b.write(" + ")
	b.visitExpr(offset, prioMul)
}
