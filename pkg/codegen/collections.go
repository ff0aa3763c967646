package codegen

import (
	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/util"
)

// listDestroy names the GArray clear function for lists of t, or "" when elements need no cleanup.
func (b *cBackend) listDestroy(t ir.Type) string {
	elem := ir.ElementType(t)
	if !ir.IsArrayList(t) || elem == nil { return "" }
	switch et := elem.(type) {
	case *ir.StringType:
		if et.Storage {
			b.use.listFrees["String"] = "free(*(void **) ptr)"
			return "CiList_FreeString"
		}
	case *ir.Class:
		if b.own.NeedsDestructor(et) { return "(GDestroyNotify) " + b.className(et) + "_Destruct" }
	case *ir.ListType, *ir.StackType:
		b.use.listFrees["List"] = "g_array_free(*(GArray **) ptr, TRUE)"
		return "CiList_FreeList"
	case *ir.HashSetType:
		b.use.listFrees["Dictionary"] = "g_hash_table_unref(*(GHashTable **) ptr)"
		return "CiList_FreeDictionary"
	case *ir.DictionaryType:
		if et.Sorted {
			b.use.listFrees["SortedDictionary"] = "g_tree_unref(*(GTree **) ptr)"
			return "CiList_FreeSortedDictionary"
		}
		b.use.listFrees["Dictionary"] = "g_hash_table_unref(*(GHashTable **) ptr)"
		return "CiList_FreeDictionary"
	}
	if ir.IsDynamicPtr(elem) {
		b.use.listFrees["Shared"] = "CiShared_Release(*(void **) ptr)"
		return "CiList_FreeShared"
	}
	return ""
}

// dictionaryDestroy names the GDestroyNotify for keys or values of type t.
func (b *cBackend) dictionaryDestroy(t ir.Type) string {
	switch tt := t.(type) {
	case *ir.StringType:
		if tt.Storage { return "free" }
	case *ir.ArrayStorageType:
		return "free"
	case *ir.Class:
		b.use.allocators[tt] = true
		return "(GDestroyNotify) " + b.className(tt) + "_Delete"
	case *ir.ListType, *ir.StackType:
		return "(GDestroyNotify) g_array_unref"
	case *ir.HashSetType:
		return "(GDestroyNotify) g_hash_table_unref"
	case *ir.DictionaryType:
		if tt.Sorted { return "(GDestroyNotify) g_tree_unref" }
		return "(GDestroyNotify) g_hash_table_unref"
	}
	if ir.IsDynamicPtr(t) {
		b.use.sharedRelease = true
		return "CiShared_Release"
	}
	return "NULL"
}

func (b *cBackend) writeNewHashTable(key ir.Type, valueDestroy string) {
	b.checkPointerSlot(key)
	hashEqual := "NULL, NULL"
	if ir.IsString(key) {
		hashEqual = "g_str_hash, g_str_equal"
	}
	keyDestroy := b.dictionaryDestroy(key)
	if keyDestroy == "NULL" && valueDestroy == "NULL" {
		b.write("g_hash_table_new(" + hashEqual + ")")
		return
	}
	b.write("g_hash_table_new_full(" + hashEqual + ", " + keyDestroy + ", " + valueDestroy + ")")
}

// writeNewStorage writes the allocation of an empty collection.
func (b *cBackend) writeNewStorage(t ir.Type) {
	b.include("glib.h")
	switch tt := t.(type) {
	case *ir.ListType, *ir.StackType:
		b.write("g_array_new(FALSE, FALSE, sizeof(")
		b.writeType(ir.ElementType(t), false)
		b.write("))")
	case *ir.HashSetType:
		b.writeNewHashTable(tt.Elem, "NULL")
	case *ir.DictionaryType:
		b.checkPointerSlot(tt.Value)
		valueDestroy := b.dictionaryDestroy(tt.Value)
		if !tt.Sorted {
			b.writeNewHashTable(tt.Key, valueDestroy)
			return
		}
		if ir.IsStringPtr(tt.Key) && valueDestroy == "NULL" {
			b.include("string.h")
			b.write("g_tree_new((GCompareFunc) strcmp)")
			return
		}
		b.write("g_tree_new_full(CiTree_Compare")
		switch tt.Key.(type) {
		case *ir.IntegerType, *ir.Enum:
			b.checkPointerSlot(tt.Key)
			b.use.treeCompareInteger = true
			b.write("Integer")
		case *ir.StringType:
			b.include("string.h")
			b.use.treeCompareString = true
			b.write("String")
		default:
			b.failf("unsupported sorted dictionary key %s", tt.Key)
		}
		b.write(", NULL, " + b.dictionaryDestroy(tt.Key) + ", " + valueDestroy + ")")
	default:
		b.failf("no storage allocation for %s", t)
	}
}

// writeGPointerCast converts a key or value of type t to a gpointer.
func (b *cBackend) writeGPointerCast(t ir.Type, e ir.Expr) {
	switch {
	case ir.IsNumeric(t), isEnum(t):
		b.checkPointerSlot(t)
		b.writeCallOf("GINT_TO_POINTER", e)
	case ir.IsStringPtr(t) && ir.IsStringPtr(e.Type()):
		b.write("(gpointer) ")
		b.visitExpr(e, prioPrimary)
	default:
		b.writeCoerced(t, e, prioArgument)
	}
}

func isEnum(t ir.Type) bool {
	_, ok := t.(*ir.Enum)
	return ok
}

func (b *cBackend) writeGConstPointerCast(e ir.Expr) {
	switch t := e.Type().(type) {
	case *ir.StringType, *ir.ClassPtrType, *ir.ArrayPtrType:
		b.visitExpr(e, prioArgument)
	case *ir.IntegerType, *ir.Enum:
		b.checkPointerSlot(t)
		b.writeCallOf("GINT_TO_POINTER", e)
	default:
		b.write("(gconstpointer) ")
		b.visitExpr(e, prioPrimary)
	}
}

func (b *cBackend) writeDictionaryLookup(obj ir.Expr, fn string, key ir.Expr) {
	b.write(fn + "(")
	b.visitExpr(obj, prioArgument)
	b.write(", ")
	b.writeGConstPointerCast(key)
	b.write(")")
}

func (b *cBackend) startDictionaryInsert(dict, key ir.Expr) {
	if ir.IsSortedDictionary(dict.Type()) {
		b.write("g_tree_insert(")
	} else {
		b.write("g_hash_table_insert(")
	}
	b.visitExpr(dict, prioArgument)
	b.write(", ")
	b.writeGPointerCast(dict.Type().(*ir.DictionaryType).Key, key)
	b.write(", ")
}

func (b *cBackend) writeDictionaryIndexing(e *ir.Binary, d *ir.DictionaryType, parent priority) {
	fn := "g_hash_table_lookup"
	if d.Sorted {
		fn = "g_tree_lookup"
	}
	if ir.IsInteger(d.Value) && !ir.IsLong(d.Value) {
		b.write("GPOINTER_TO_INT(")
		b.writeDictionaryLookup(e.Left, fn, e.Right)
		b.write(")")
		return
	}
	if parent > prioMul { b.write("(") }
	switch d.Value.(type) {
	case *ir.Class, *ir.ArrayStorageType:
		b.writeDynamicArrayCast(d.Value)
		b.writeDictionaryLookup(e.Left, fn, e.Right)
	case *ir.Enum:
		b.write("(")
		b.writeType(d.Value, false)
		b.write(") GPOINTER_TO_INT(")
		b.writeDictionaryLookup(e.Left, fn, e.Right)
		b.write(")")
	default:
		b.checkPointerSlot(d.Value)
		b.write("(")
		b.writeType(d.Value, false)
		b.write(") ")
		if ir.IsLong(d.Value) {
			b.write("(intptr_t) ")
		}
		b.writeDictionaryLookup(e.Left, fn, e.Right)
	}
	if parent > prioMul { b.write(")") }
}

func (b *cBackend) startArrayIndexing(obj ir.Expr) {
	b.write("g_array_index(")
	b.visitExpr(obj, prioArgument)
	b.write(", ")
	b.writeType(ir.ElementType(obj.Type()), false)
	b.write(", ")
}

// writeListAddInsert stores the new element in a temporary so that
// g_array_append_val and g_array_insert_val get an lvalue.
func (b *cBackend) writeListAddInsert(obj ir.Expr, insert bool, fn string, args []ir.Expr) {
	elem := ir.ElementType(obj.Type())
	var value ir.Expr
	if !ir.IsFinal(elem) {
		value = args[len(args)-1]
	}
	id := b.writeTemporary(elem, value)
	if c, ok := elem.(*ir.Class); ok && b.own.NeedsConstructor(c) {
		b.writeLine(b.className(c) + "_Construct(&" + tempName(id) + ");")
	}
	b.write(fn + "(")
	b.visitExpr(obj, prioArgument)
	if insert {
		b.write(", ")
		b.visitExpr(args[0], prioArgument)
	}
	b.write(", " + tempName(id) + ")")
	b.releaseTemporary(id)
}

func (b *cBackend) writeListAdd(obj ir.Expr, args []ir.Expr) {
	elem := ir.ElementType(obj.Type())
	_, isArray := elem.(*ir.ArrayStorageType)
	if c, ok := elem.(*ir.Class); isArray || ok && !b.own.NeedsConstructor(c) {
		b.write("g_array_set_size(")
		b.visitExpr(obj, prioArgument)
		b.write(", ")
		b.visitExpr(obj, prioPrimary)
		b.write("->len + 1)")
		return
	}
	b.writeListAddInsert(obj, false, "g_array_append_val", args)
}

func (b *cBackend) writeSizeofCompare(elem ir.Type) {
	code := b.typeCode(elem)
	b.use.compares[code] = true
	b.write(", sizeof(" + code + "), CiCompare_" + code + ")")
}

// writeArrayFill lowers Fill with a non-default value to an indexed loop.
// The array, offset and value are evaluated on every iteration.
func (b *cBackend) writeArrayFill(obj ir.Expr, args []ir.Expr) {
	for _, a := range args {
		if _, isRef := a.(*ir.SymbolRef); !isRef && !ir.IsLiteral(a) {
			util.Warn(b.cfg, config.WarnFillSideEffects, b.symbolContext(), "Fill arguments are evaluated once per element")
			break
		}
	}
	b.write("for (int _i = 0; _i < ")
	if len(args) == 1 {
		a, ok := obj.Type().(*ir.ArrayStorageType)
		if !ok { b.failf("Fill of a dynamic array needs a length") }
		b.writeInt(int64(a.Length))
	} else {
		b.visitExpr(args[2], prioRel)
	}
	b.writeLine("; _i++)")
	b.write("\t")
	b.visitExpr(obj, prioPrimary)
	b.write("[")
	if len(args) > 1 && !ir.IsLiteralZero(args[1]) {
		b.visitExpr(args[1], prioAdd)
		b.write(" + ")
	}
	b.write("_i] = ")
	b.visitExpr(args[0], prioArgument)
}

func (b *cBackend) writeArrayCall(e *ir.Call, parent priority) {
	obj, args := e.Left, e.Args
	elem := ir.ElementType(obj.Type())
	switch e.Method.Builtin {
	case ir.ArrayBinarySearch:
		b.include("stdlib.h")
		if parent > prioAdd { b.write("(") }
		b.write("(const ")
		b.writeType(elem, false)
		b.write(" *) bsearch(&")
		b.visitExpr(args[0], prioPrimary)
		b.write(", ")
		if len(args) == 1 {
			b.writeArrayPtr(obj, prioArgument)
			b.write(", ")
			a, ok := obj.Type().(*ir.ArrayStorageType)
			if !ok { b.failf("BinarySearch of a dynamic array needs a range") }
			b.writeInt(int64(a.Length))
		} else {
			b.writeArrayPtrAdd(obj, args[1])
			b.write(", ")
			b.visitExpr(args[2], prioPrimary)
		}
		b.writeSizeofCompare(elem)
		b.write(" - ")
		b.writeArrayPtr(obj, prioMul)
		if parent > prioAdd { b.write(")") }
	case ir.ArrayCopyTo:
		b.include("string.h")
		b.write("memcpy(")
		b.writeArrayPtrAdd(args[1], args[2])
		b.write(", ")
		b.writeArrayPtrAdd(obj, args[0])
		b.write(", ")
		if r, ok := elem.(*ir.IntegerType); ok && r.Kind == ir.RangeKind && (r.Min >= 0 && r.Max <= 255 || r.Min >= -128 && r.Max <= 127) {
			b.visitExpr(args[3], prioArgument)
		} else {
			b.visitExpr(args[3], prioMul)
			b.write(" * sizeof(")
			b.writeType(elem, false)
			b.write(")")
		}
		b.write(")")
	case ir.ArrayFill:
		if !ir.IsLiteral(args[0]) || !ir.IsDefaultValue(args[0]) {
			b.writeArrayFill(obj, args)
			return
		}
		b.include("string.h")
		b.write("memset(")
		if len(args) == 1 {
			b.visitExpr(obj, prioArgument)
			b.write(", 0, sizeof(")
			b.visitExpr(obj, prioArgument)
			b.write("))")
			return
		}
		b.writeArrayPtrAdd(obj, args[1])
		b.write(", 0, ")
		b.visitExpr(args[2], prioMul)
		b.write(" * sizeof(")
		b.writeType(elem, false)
		b.write("))")
	case ir.ArraySort, ir.ListSort:
		code := b.typeCode(elem)
		b.use.compares[code] = true
		if len(args) == 2 {
			b.include("stdlib.h")
			b.write("qsort(")
			b.writeArrayPtrAdd(obj, args[0])
			b.write(", ")
			b.visitExpr(args[1], prioPrimary)
			b.writeSizeofCompare(elem)
			return
		}
		if a, ok := obj.Type().(*ir.ArrayStorageType); ok {
			b.include("stdlib.h")
			b.write("qsort(")
			b.writeArrayPtr(obj, prioArgument)
			b.writef(", %d, sizeof(%s)", a.Length, code)
		} else if ir.IsList(obj.Type()) {
			b.write("g_array_sort(")
			b.visitExpr(obj, prioArgument)
		} else {
			b.failf("Sort of a dynamic array needs a range")
		}
		b.write(", CiCompare_" + code + ")")
	}
}

func (b *cBackend) writeCollectionCall(e *ir.Call) {
	obj, args := e.Left, e.Args
	t := obj.Type()
	switch e.Method.Builtin {
	case ir.ListAdd, ir.StackPush:
		b.writeListAdd(obj, args)
	case ir.ListInsert:
		b.writeListAddInsert(obj, true, "g_array_insert_val", args)
	case ir.ListContains:
		code := b.typeCode(ir.ElementType(t))
		b.use.contains[code] = true
		b.write("CiArray_Contains_")
		if code == "string" {
			b.include("string.h")
			b.write("string((const char * const")
		} else {
			b.write(code + "((const " + code)
		}
		b.write(" *) ")
		b.visitExpr(obj, prioPrimary)
		b.write("->data, ")
		b.visitExpr(obj, prioPrimary)
		b.write("->len, ")
		b.visitExpr(args[0], prioArgument)
		b.write(")")
	case ir.ListRemoveAt:
		b.writeCallOf("g_array_remove_index", obj, args[0])
	case ir.ListRemoveRange:
		b.writeCallOf("g_array_remove_range", obj, args[0], args[1])
	case ir.CollectionClear:
		switch tt := t.(type) {
		case *ir.ListType, *ir.StackType:
			b.write("g_array_set_size(")
			b.visitExpr(obj, prioArgument)
			b.write(", 0)")
		case *ir.DictionaryType:
			if tt.Sorted {
				b.write("g_tree_destroy(g_tree_ref(")
				b.visitExpr(obj, prioArgument)
				b.write("))")
			} else {
				b.writeCallOf("g_hash_table_remove_all", obj)
			}
		case *ir.HashSetType:
			b.writeCallOf("g_hash_table_remove_all", obj)
		default:
			b.failf("Clear of %s", t)
		}
	case ir.StackPeek:
		b.startArrayIndexing(obj)
		b.visitExpr(obj, prioPrimary)
		b.write("->len - 1)")
	case ir.StackPop:
		b.startArrayIndexing(obj)
		b.write("--")
		b.visitExpr(obj, prioPrimary)
		b.write("->len)")
	case ir.HashSetAdd:
		b.write("g_hash_table_add(")
		b.visitExpr(obj, prioArgument)
		b.write(", ")
		b.writeGPointerCast(ir.ElementType(t), args[0])
		b.write(")")
	case ir.HashSetContains:
		b.writeDictionaryLookup(obj, "g_hash_table_contains", args[0])
	case ir.HashSetRemove, ir.DictionaryRemove:
		fn := "g_hash_table_remove"
		if ir.IsSortedDictionary(t) {
			fn = "g_tree_remove"
		}
		b.writeDictionaryLookup(obj, fn, args[0])
	case ir.DictionaryAdd:
		d := t.(*ir.DictionaryType)
		b.startDictionaryInsert(obj, args[0])
		switch v := d.Value.(type) {
		case *ir.ListType, *ir.StackType, *ir.HashSetType, *ir.DictionaryType:
			b.writeNewStorage(v)
		case *ir.Class:
			b.use.allocators[v] = true
			b.write(b.className(v) + "_New()")
		default:
			b.include("stdlib.h")
			b.write("malloc(sizeof(")
			b.writeType(v, false)
			b.write("))")
		}
		b.write(")")
	case ir.DictionaryContainsKey:
		if ir.IsSortedDictionary(t) {
			b.write("g_tree_lookup_extended(")
			b.visitExpr(obj, prioArgument)
			b.write(", ")
			b.writeGConstPointerCast(args[0])
			b.write(", NULL, NULL)")
		} else {
			b.writeDictionaryLookup(obj, "g_hash_table_contains", args[0])
		}
	}
}
