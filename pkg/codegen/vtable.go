package codegen

import "github.com/xplshn/gci/pkg/ir"

// VtableSlot is one function pointer of a class's vtable.
type VtableSlot struct {
	Declaring *ir.Method // the Virtual or Abstract method that introduced the slot
	Defining  *ir.Method // the implementation reached from the concrete class
}

// vtblStructClass is the nearest ancestor-or-self adding virtual methods; it defines the vtable type.
func vtblStructClass(c *ir.Class) *ir.Class {
	for c != nil && !c.AddsVirtualMethods() {
		c = c.Base
	}
	return c
}

// vtblPtrClass is the root-most class adding virtual methods; it owns the vtbl field.
func vtblPtrClass(c *ir.Class) *ir.Class {
	var result *ir.Class
	for k := c; k != nil; k = k.Base {
		if k.AddsVirtualMethods() { result = k }
	}
	return result
}

// hasVtblValue reports whether constructing c installs its own vtable.
func hasVtblValue(c *ir.Class) bool {
	if c.CallType == ir.Static || c.CallType == ir.Abstract { return false }
	for _, m := range c.Methods {
		switch m.CallType {
		case ir.Virtual, ir.Override, ir.Sealed:
			return true
		}
	}
	return false
}

func chainFromRoot(c *ir.Class) []*ir.Class {
	var chain []*ir.Class
	for k := c; k != nil; k = k.Base {
		chain = append([]*ir.Class{k}, chain...)
	}
	return chain
}

// BuildVtable lists the slots of c's vtable, root first, each resolved by name from c.
func BuildVtable(c *ir.Class) []VtableSlot {
	var slots []VtableSlot
	for _, k := range chainFromRoot(vtblStructClass(c)) {
		for _, m := range k.Methods {
			if !m.IsAbstractOrVirtual() { continue }
			def, _ := c.Lookup(m.Name).(*ir.Method)
			slots = append(slots, VtableSlot{Declaring: m, Defining: def})
		}
	}
	return slots
}

func (b *cBackend) writeVtblStruct(c *ir.Class) {
	b.write("typedef struct ")
	b.openBlock()
	for _, k := range chainFromRoot(c) {
		for _, m := range k.Methods {
			if !m.IsAbstractOrVirtual() { continue }
			b.writeReturnType(m, func() {
				b.write("(*" + camelCase(m.Name) + ")")
				b.writeInstanceParameters(m)
			})
			b.writeLine(";")
		}
	}
	b.indent--
	b.writeLine("} " + b.className(c) + "Vtbl;")
}

// writeVtblValue defines the vtable of c inside its constructor and points self at it.
func (b *cBackend) writeVtblValue(c *ir.Class) {
	structClass := vtblStructClass(c)
	b.write("static const " + b.className(structClass) + "Vtbl vtbl = ")
	b.openBlock()
	for _, slot := range BuildVtable(c) {
		if slot.Defining == nil || slot.Defining.CallType == ir.Abstract {
			b.failf("%s does not implement abstract method %s", c.Name, slot.Declaring.Name)
		}
		if slot.Defining != slot.Declaring {
			b.write("(")
			b.writeReturnType(slot.Declaring, func() {
				b.write("(*)")
				b.writeInstanceParameters(slot.Declaring)
			})
			b.write(") ")
		}
		b.writeLine(b.methodName(slot.Defining) + ",")
	}
	b.indent--
	b.writeLine("};")
	ptrClass := vtblPtrClass(c)
	b.writeSelfForField(ptrClass)
	b.write("vtbl = ")
	if ptrClass != structClass {
		b.write("(const " + b.className(ptrClass) + "Vtbl *) ")
	}
	b.writeLine("&vtbl;")
}

// writeVirtualTarget writes the function pointer reached through obj's vtable
// (self when obj is nil) for the slot of method.
func (b *cBackend) writeVirtualTarget(obj ir.Expr, klass *ir.Class, method *ir.Method) {
	ptrClass := vtblPtrClass(klass)
	structClass := vtblStructClass(method.DeclaringMethod().Parent)
	if structClass != ptrClass {
		b.write("((const " + b.className(structClass) + "Vtbl *) ")
	}
	if obj != nil {
		b.visitExpr(obj, prioPrimary)
		b.writeMemberAccess(obj.Type(), ptrClass)
	} else {
		b.writeSelfForField(ptrClass)
	}
	b.write("vtbl")
	if structClass != ptrClass {
		b.write(")")
	}
	b.write("->" + camelCase(method.Name))
}
