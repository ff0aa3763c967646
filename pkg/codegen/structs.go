package codegen

import (
	"sort"

	"github.com/xplshn/gci/pkg/ir"
)

func (b *cBackend) writeEnum(e *ir.Enum) {
	b.writeLine("")
	b.write("typedef enum ")
	b.openBlock()
	for i, m := range e.Members {
		if i > 0 { b.writeLine(",") }
		b.write(b.enumMemberName(m))
		if m.Value != nil {
			b.write(" = ")
			b.visitExpr(m.Value, prioArgument)
		}
	}
	b.writeLine("")
	b.indent--
	b.writeLine("} " + b.typeName(e.Name) + ";")
}

func (b *cBackend) writeTypedefs(pub bool) {
	for _, e := range b.prog.Enums {
		if e.Public == pub { b.writeEnum(e) }
	}
	for _, c := range b.prog.Classes {
		if c.Public != pub || c.CallType == ir.Static { continue }
		name := b.className(c)
		b.writeLine("typedef struct " + name + " " + name + ";")
	}
}

// isExported reports whether a member is declared in the header.
func isExported(c *ir.Class, vis ir.Visibility) bool { return c.Public && vis == ir.Public }

func (b *cBackend) writeParameters(m *ir.Method, first bool) {
	for _, p := range m.Params {
		if !first { b.write(", ") }
		first = false
		b.writeTypeAndName(p.Type, localName(p.Name))
	}
	b.write(")")
}

// writeInstanceParameters writes the parameter list with self, which is const unless m mutates.
func (b *cBackend) writeInstanceParameters(m *ir.Method) {
	b.write("(")
	if !m.Mutator { b.write("const ") }
	b.write(b.className(m.Parent) + " *self")
	b.writeParameters(m, false)
}

func (b *cBackend) writeSignature(m *ir.Method) {
	if !isExported(m.Parent, m.Visibility) { b.write("static ") }
	b.writeReturnType(m, func() {
		b.write(b.methodName(m))
		switch {
		case m.CallType != ir.Static:
			b.writeInstanceParameters(m)
		case len(m.Params) == 0:
			b.write("(void)")
		default:
			b.write("(")
			b.writeParameters(m, true)
		}
	})
}

func (b *cBackend) writeConst(k *ir.Const) {
	if _, isArray := k.Type.(*ir.ArrayStorageType); isArray {
		b.write("static const ")
		b.writeTypeAndName(k.Type, b.constName(k))
		b.write(" = ")
		b.visitExpr(k.Value, prioArgument)
		b.writeLine(";")
		return
	}
	if k.Visibility == ir.Public {
		b.write("#define " + b.constName(k) + " ")
		b.visitExpr(k.Value, prioArgument)
		b.writeLine("")
	}
}

// writeSignatures declares the constants and methods of c that belong in the
// header (pub) or at the top of the source file.
func (b *cBackend) writeSignatures(c *ir.Class, pub bool) {
	for _, k := range c.Consts {
		if isExported(c, k.Visibility) != pub { continue }
		if pub { b.writeLine("") }
		b.writeConst(k)
	}
	for _, m := range c.Methods {
		if isExported(c, m.Visibility) != pub || m.CallType == ir.Abstract { continue }
		b.writeLine("")
		b.writeSignature(m)
		b.writeLine(";")
	}
}

func (b *cBackend) writeXstructorSignature(name string, c *ir.Class) {
	b.write("static void " + b.className(c) + "_" + name + "(" + b.className(c) + " *self)")
}

// writeStruct defines c after its base and the classes it stores by value.
func (b *cBackend) writeStruct(c *ir.Class) {
	if c.CallType != ir.Static {
		if done, seen := b.written[c]; seen {
			if done { return }
			b.currentClass = c
			b.failf("Circular dependency for class %s", c.Name)
		}
		b.written[c] = false
		if c.Base != nil { b.writeStruct(c.Base) }
		for _, f := range c.Fields {
			if fc, ok := ir.BaseType(f.Type).(*ir.Class); ok && !fc.IsSystem() {
				b.writeStruct(fc)
			}
		}
		b.written[c] = true

		b.writeLine("")
		if c.AddsVirtualMethods() { b.writeVtblStruct(c) }
		b.write("struct " + b.className(c) + " ")
		b.openBlock()
		if vtblPtrClass(c) == c {
			b.writeLine("const " + b.className(c) + "Vtbl *vtbl;")
		}
		if c.Base != nil {
			b.writeLine(b.className(c.Base) + " base;")
		}
		for _, f := range c.Fields {
			b.writeTypeAndName(f.Type, localName(f.Name))
			b.writeLine(";")
		}
		b.indent--
		b.writeLine("};")
	}
	if b.own.NeedsConstructor(c) {
		b.writeXstructorSignature("Construct", c)
		b.writeLine(";")
	}
	if b.own.NeedsDestructor(c) {
		b.writeXstructorSignature("Destruct", c)
		b.writeLine(";")
	}
	b.writeSignatures(c, false)
}

func (b *cBackend) writeConstructor(c *ir.Class) {
	if !b.own.NeedsConstructor(c) { return }
	// Field initializers and the constructor body run as a void method of c.
	b.currentMethod = &ir.Method{Name: "Construct", Parent: c, CallType: ir.Normal, Mutator: true, Type: ir.Void}
	b.writeLine("")
	b.writeXstructorSignature("Construct", c)
	b.writeLine("")
	b.openBlock()
	if c.Base != nil && b.own.NeedsConstructor(c.Base) {
		b.writeLine(b.className(c.Base) + "_Construct(&self->base);")
	}
	if hasVtblValue(c) { b.writeVtblValue(c) }
	for _, f := range c.Fields {
		if throwingMethod(f.Value) != nil {
			b.failf("initializer of field %s calls a throwing method", f.Name)
		}
		name := localName(f.Name)
		b.writeTemporaries(f.Value)
		b.writeInitCode(func() { b.write("self->" + name) }, f.Type, f.Value, true)
		b.writeOwnedTemporaries()
		b.releaseTemporaries()
	}
	if c.Constructor != nil && c.Constructor.Body != nil {
		b.writeScoped(c.Constructor.Body.Stmts, ir.CompletesNormally(c.Constructor.Body))
	}
	b.closeBlock()
	b.endBody()
}

func (b *cBackend) writeDestructor(c *ir.Class) {
	if !b.own.NeedsDestructor(c) { return }
	b.writeLine("")
	b.writeXstructorSignature("Destruct", c)
	b.writeLine("")
	b.openBlock()
	for i := len(c.Fields) - 1; i >= 0; i-- {
		name := localName(c.Fields[i].Name)
		b.writeDestruct(func() { b.write("self->" + name) }, c.Fields[i].Type)
	}
	if c.Base != nil && b.own.NeedsDestructor(c.Base) {
		b.writeLine(b.className(c.Base) + "_Destruct(&self->base);")
	}
	b.closeBlock()
}

// hasPublicNewDelete reports whether c exports NsC_New and NsC_Delete.
func hasPublicNewDelete(c *ir.Class) bool {
	return c.Public && c.Constructor != nil && c.Constructor.Visibility == ir.Public
}

// writeAllocator declares or defines the heap allocator pair of c; static
// ones serve dictionaries that own class values.
func (b *cBackend) writeAllocator(c *ir.Class, define, static bool) {
	name := b.className(c)
	prefix := ""
	if static { prefix = "static " }
	b.writeLine("")
	b.write(prefix + name + " *" + name + "_New(void)")
	if define {
		b.writeLine("")
		b.openBlock()
		b.writeLine(name + " *self = (" + name + " *) malloc(sizeof(" + name + "));")
		if b.own.NeedsConstructor(c) {
			b.writeLine("if (self != NULL)")
			b.writeLine("\t" + name + "_Construct(self);")
		}
		b.writeLine("return self;")
		b.closeBlock()
		b.writeLine("")
	} else {
		b.writeLine(";")
	}
	b.write(prefix + "void " + name + "_Delete(" + name + " *self)")
	if !define {
		b.writeLine(";")
		return
	}
	b.writeLine("")
	b.openBlock()
	if b.own.NeedsDestructor(c) {
		b.writeLine("if (self == NULL)")
		b.writeLine("\treturn;")
		b.writeLine(name + "_Destruct(self);")
	}
	b.writeLine("free(self);")
	b.closeBlock()
}

func (b *cBackend) writeNewDelete(c *ir.Class, define bool) {
	if hasPublicNewDelete(c) { b.writeAllocator(c, define, false) }
}

// writeAllocators covers the classes whose allocators only the generated code needs.
func (b *cBackend) writeAllocators(define bool) {
	var classes []*ir.Class
	for c := range b.use.allocators {
		if !hasPublicNewDelete(c) { classes = append(classes, c) }
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	for _, c := range classes {
		b.writeAllocator(c, define, true)
	}
}

func (b *cBackend) writeResources() {
	names := make([]string, 0, len(b.prog.Resources))
	for name := range b.prog.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data := b.prog.Resources[name]
		b.include("stdint.h")
		b.writeLine("")
		b.writef("static const uint8_t %s[%d] = {", resourceName(name), len(data))
		for i, c := range data {
			if i%16 == 0 {
				b.writeLine("")
				b.write("\t")
			} else {
				b.write(" ")
			}
			b.writeInt(int64(c))
			if i < len(data)-1 { b.write(",") }
		}
		b.writeLine(" };")
	}
}
