package codegen

import (
	"strings"

	"github.com/xplshn/gci/pkg/ir"
)

func intTypeCode(t *ir.IntegerType, promote bool) string {
	if t.Kind == ir.LongKind { return "int64_t" }
	if promote || t.Kind == ir.IntKind { return "int" }
	if t.Min < 0 {
		if t.Min >= -128 && t.Max <= 127 { return "int8_t" }
		if t.Min >= -32768 && t.Max <= 32767 { return "int16_t" }
	} else {
		if t.Max <= 255 { return "uint8_t" }
		if t.Max <= 65535 { return "uint16_t" }
	}
	return "int"
}

func (b *cBackend) integerType(t *ir.IntegerType, promote bool) string {
	code := intTypeCode(t, promote)
	if strings.HasSuffix(code, "_t") { b.include("stdint.h") }
	return code
}

// typeCode names a scalar element type in runtime helper names such as CiCompare_int.
func (b *cBackend) typeCode(t ir.Type) string {
	switch t := t.(type) {
	case *ir.IntegerType:
		return b.integerType(t, false)
	case *ir.FloatType:
		if t.Double { return "double" }
		return "float"
	case *ir.StringType:
		return "string"
	case *ir.Enum:
		return "int"
	}
	b.failf("no comparison for elements of type %s", t)
	return ""
}

func (b *cBackend) writeArrayPrefix(t ir.Type) {
	switch a := t.(type) {
	case *ir.ArrayStorageType:
		b.writeArrayPrefix(a.Elem)
	case *ir.ArrayPtrType:
		b.writeArrayPrefix(a.Elem)
		if _, ok := a.Elem.(*ir.ArrayStorageType); ok {
			b.write("(")
		}
		if a.Modifier == ir.ReadOnly {
			b.write("const *")
		} else {
			b.write("*")
		}
	}
}

// writeDefinition renders a C declarator of type t around name.
// Integer ranges are promoted to int when promote is set, as for locals and parameters.
func (b *cBackend) writeDefinition(t ir.Type, name func(), promote, space bool) {
	base := ir.BaseType(t)
	switch bt := base.(type) {
	case *ir.IntegerType:
		b.write(b.integerType(bt, promote && t == base))
		if space { b.write(" ") }
	case *ir.FloatType:
		b.write(bt.String())
		if space { b.write(" ") }
	case *ir.BoolType:
		b.include("stdbool.h")
		b.write("bool")
		if space { b.write(" ") }
	case *ir.VoidType:
		b.write("void")
		if space { b.write(" ") }
	case *ir.StringType:
		if bt.Storage {
			b.write("char *")
		} else {
			b.write("const char *")
		}
	case *ir.ClassPtrType:
		if bt.Modifier == ir.ReadOnly {
			b.write("const ")
		}
		switch bt.Class {
		case ir.RegexClass:
			b.include("glib.h")
			b.write("GRegex")
		case ir.MatchClass:
			b.include("glib.h")
			b.write("GMatchInfo")
		default:
			b.write(b.className(bt.Class))
		}
		b.write(" *")
	case *ir.ListType, *ir.StackType:
		b.include("glib.h")
		b.write("GArray *")
	case *ir.HashSetType:
		b.include("glib.h")
		b.write("GHashTable *")
	case *ir.DictionaryType:
		b.include("glib.h")
		if bt.Sorted {
			b.write("GTree *")
		} else {
			b.write("GHashTable *")
		}
	case *ir.Class:
		switch bt {
		case ir.MatchClass:
			b.include("glib.h")
			b.write("GMatchInfo *")
			space = false
		case ir.LockClass:
			b.include("threads.h")
			b.write("mtx_t")
		default:
			b.write(b.className(bt))
		}
		if space { b.write(" ") }
	case *ir.Enum:
		b.write(b.typeName(bt.Name))
		if space { b.write(" ") }
	default:
		b.failf("cannot lower type %s", base)
	}
	b.writeArrayPrefix(t)
	name()
	for {
		switch a := t.(type) {
		case *ir.ArrayStorageType:
			b.write("[")
			b.writeInt(int64(a.Length))
			b.write("]")
			t = a.Elem
			continue
		case *ir.ArrayPtrType:
			if _, ok := a.Elem.(*ir.ArrayStorageType); ok {
				b.write(")")
			}
			t = a.Elem
			continue
		}
		break
	}
}

func (b *cBackend) writeType(t ir.Type, promote bool) {
	_, isArrayPtr := t.(*ir.ArrayPtrType)
	b.writeDefinition(t, func() {}, promote, isArrayPtr)
}

func (b *cBackend) writeTypeAndName(t ir.Type, name string) {
	b.writeDefinition(t, func() { b.write(name) }, true, true)
}

// writeReturnType writes the declarator of a method's result; throwing void methods return bool.
func (b *cBackend) writeReturnType(m *ir.Method, name func()) {
	if ir.IsVoid(m.Type) && m.Throws {
		b.include("stdbool.h")
		b.write("bool ")
		name()
		return
	}
	b.writeDefinition(m.Type, name, true, true)
}

// writeDynamicArrayCast casts a void pointer to a pointer to elements of t.
func (b *cBackend) writeDynamicArrayCast(elem ir.Type) {
	b.write("(")
	_, isArray := elem.(*ir.ArrayStorageType)
	if _, ok := elem.(*ir.ArrayPtrType); ok {
		isArray = true
	}
	b.writeDefinition(elem, func() {
		if isArray {
			b.write("(*)")
		} else {
			b.write("*")
		}
	}, false, true)
	b.write(") ")
}

// checkPointerSlot rejects values that cannot travel through a gpointer on the target.
func (b *cBackend) checkPointerSlot(t ir.Type) {
	if ir.IsLong(t) && b.cfg.WordSize < 8 {
		b.failf("long values do not fit a container slot on %d-bit target %q", b.cfg.WordSize*8, b.cfg.TargetName)
	}
}
