package codegen

import (
	"strconv"

	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"go.uber.org/zap"
)

// tempSlot is a citempN variable declared in the current C block.
// A busy slot holds a value for the statement being written; an owned one
// is destructed once the statement is done with it.
type tempSlot struct {
	typ   ir.Type
	expr  ir.Expr
	busy  bool
	owned bool
}

func tempName(id int) string { return "citemp" + strconv.Itoa(id) }

func (b *cBackend) freeTemp(t ir.Type) int {
	for i, s := range b.temps {
		if !s.busy && ir.SameType(s.typ, t) { return i }
	}
	return -1
}

// writeTemporary stores value (or fresh storage for collections) in a slot of type t,
// declaring the slot if no free one of that type exists.
func (b *cBackend) writeTemporary(t ir.Type, value ir.Expr) int {
	assign := value != nil
	switch t.(type) {
	case *ir.ListType, *ir.StackType, *ir.HashSetType, *ir.DictionaryType:
		assign = true
	}
	id := b.freeTemp(t)
	declared := false
	if id < 0 {
		declared = true
		id = len(b.temps)
		b.temps = append(b.temps, tempSlot{typ: t})
		b.writeDefinition(t, func() { b.write(tempName(id)) }, false, true)
	} else if assign {
		b.write(tempName(id))
	}
	if assign {
		b.write(" = ")
		if value != nil {
			b.writeCoerced(t, value, prioArgument)
		} else {
			b.writeNewStorage(t)
		}
	}
	if assign || declared {
		b.writeLine(";")
	}
	b.temps[id] = tempSlot{typ: t, expr: value, busy: true}
	b.log.Debug("temporary", zap.Int("id", id), zap.Stringer("type", t), zap.Bool("declared", declared))
	return id
}

// releaseTemporary frees slot id before the statement ends. Only done when
// strict temporaries are disabled; otherwise two same-typed values of one
// statement would share a slot.
func (b *cBackend) releaseTemporary(id int) {
	if b.cfg.IsFeatureEnabled(config.FeatStrictTemps) { return }
	b.temps[id].busy = false
	b.temps[id].expr = nil
}

// releaseTemporaries ends the statement: every slot becomes reusable.
func (b *cBackend) releaseTemporaries() {
	for i := range b.temps {
		b.temps[i] = tempSlot{typ: b.temps[i].typ}
	}
}

func (b *cBackend) writeOwnedTemporary(value ir.Expr) {
	id := b.writeTemporary(value.Type(), value)
	b.temps[id].owned = true
}

// writeOwnedTemporaries destructs the owned slots of the current statement, newest first.
// The slots stay busy: a failure branch frees them before the statement's own end does.
func (b *cBackend) writeOwnedTemporaries() {
	for i := len(b.temps) - 1; i >= 0; i-- {
		s := b.temps[i]
		if !s.busy || !s.owned { continue }
		if ir.IsStringStorage(s.typ) {
			b.include("stdlib.h")
		}
		b.writeDestruct(func() { b.write(tempName(i)) }, s.typ)
	}
}

func (b *cBackend) ownsTemporaries() bool {
	for _, s := range b.temps {
		if s.busy && s.owned { return true }
	}
	return false
}

func (b *cBackend) tempFor(e ir.Expr) int {
	for i, s := range b.temps {
		if s.busy && s.expr == e { return i }
	}
	return -1
}

// isTemporary reports whether e is a call returning class storage, which needs an lvalue.
func isTemporary(e ir.Expr) bool {
	c, ok := e.(*ir.Call)
	if !ok { return false }
	_, ok = c.Type().(*ir.Class)
	return ok
}

func (b *cBackend) writeStorageTemporary(e ir.Expr) {
	if isTemporary(e) {
		b.writeTemporary(e.Type(), e)
	}
}

func isInterpolated(e ir.Expr) bool {
	_, ok := e.(*ir.Interpolated)
	return ok
}

func isComparison(op ir.BinaryOp) bool {
	switch op {
	case ir.Less, ir.LessEq, ir.Greater, ir.GreaterEq, ir.Equal, ir.NotEqual:
		return true
	}
	return false
}

// borrowsArg reports whether e reads its argument i without taking ownership.
func borrowsArg(e *ir.Call, i int) bool {
	switch e.Method.Builtin {
	case ir.NotBuiltin:
		return ir.IsStringPtr(e.Method.Params[i].Type)
	case ir.StringContains, ir.StringEndsWith, ir.StringIndexOf, ir.StringLastIndexOf, ir.StringStartsWith,
		ir.RegexCompile, ir.RegexEscape, ir.RegexIsMatchStr, ir.MatchFindStr,
		ir.EnvironmentGetVariable, ir.UTF8GetByteCount, ir.UTF8GetBytes:
		return true
	}
	return false
}

// receiverTemporary reports whether the object of e must be evaluated into a
// slot first, and whether that slot owns a reference. A virtual call reads
// its object twice, once for the vtable and once as self.
func receiverTemporary(e *ir.Call) (hoist, owned bool) {
	obj := e.Left
	if obj == nil || e.ViaBase || e.Method.Builtin != ir.NotBuiltin { return false, false }
	if _, ok := obj.Type().(*ir.ClassPtrType); !ok { return false, false }
	if c, ok := obj.(*ir.Call); ok && ir.IsDynamicPtr(c.Type()) { return true, true }
	switch e.Method.CallType {
	case ir.Abstract, ir.Virtual, ir.Override:
		return !isPure(obj), false
	}
	return false, false
}

// writeTemporaries declares the slots a statement's expression needs before the statement itself.
func (b *cBackend) writeTemporaries(e ir.Expr) {
	switch e := e.(type) {
	case nil:
	case *ir.Interpolated:
		for _, p := range e.Parts {
			b.writeTemporaries(p.Arg)
			if isInterpolated(p.Arg) {
				b.writeOwnedTemporary(p.Arg)
			}
		}
	case *ir.SymbolRef:
		b.writeTemporaries(e.Left)
		if isInterpolated(e.Left) {
			b.writeOwnedTemporary(e.Left)
		}
	case *ir.Unary:
		b.writeTemporaries(e.Inner)
	case *ir.NewArray:
		b.writeTemporaries(e.Length)
	case *ir.Binary:
		b.writeTemporaries(e.Left)
		b.writeTemporaries(e.Right)
		if isComparison(e.Op) {
			for _, side := range []ir.Expr{e.Left, e.Right} {
				if isInterpolated(side) { b.writeOwnedTemporary(side) }
			}
		}
	case *ir.Select:
		b.writeTemporaries(e.Cond)
	case *ir.Call:
		if e.Left != nil {
			b.writeTemporaries(e.Left)
			b.writeStorageTemporary(e.Left)
			switch hoist, owned := receiverTemporary(e); {
			case isInterpolated(e.Left), owned:
				b.writeOwnedTemporary(e.Left)
			case hoist:
				b.writeTemporary(e.Left.Type(), e.Left)
			}
		}
		for i, p := range e.Method.Params {
			if i >= len(e.Args) { break }
			b.writeTemporaries(e.Args[i])
			if _, ok := p.Type.(*ir.ClassPtrType); ok {
				b.writeStorageTemporary(e.Args[i])
			}
			if isInterpolated(e.Args[i]) && borrowsArg(e, i) {
				b.writeOwnedTemporary(e.Args[i])
			}
		}
	}
}

func hasTemporaries(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.Interpolated:
		for _, p := range e.Parts {
			if isInterpolated(p.Arg) || hasTemporaries(p.Arg) { return true }
		}
	case *ir.SymbolRef:
		return e.Left != nil && (isInterpolated(e.Left) || hasTemporaries(e.Left))
	case *ir.Unary:
		return hasTemporaries(e.Inner)
	case *ir.NewArray:
		return hasTemporaries(e.Length)
	case *ir.Binary:
		if isComparison(e.Op) && (isInterpolated(e.Left) || isInterpolated(e.Right)) { return true }
		return hasTemporaries(e.Left) || hasTemporaries(e.Right)
	case *ir.Select:
		return hasTemporaries(e.Cond)
	case *ir.Call:
		switch e.Method.Builtin {
		case ir.ListAdd, ir.ListInsert, ir.StackPush:
			return true
		}
		if hoist, _ := receiverTemporary(e); hoist { return true }
		if e.Left != nil && (isTemporary(e.Left) || isInterpolated(e.Left) || hasTemporaries(e.Left)) { return true }
		for i, p := range e.Method.Params {
			if i >= len(e.Args) { break }
			if hasTemporaries(e.Args[i]) || isInterpolated(e.Args[i]) && borrowsArg(e, i) { return true }
			if _, ok := p.Type.(*ir.ClassPtrType); ok && isTemporary(e.Args[i]) { return true }
		}
	}
	return false
}

// hasOwnedTemporaries reports whether e hoists a value that must be freed after use.
func hasOwnedTemporaries(e ir.Expr) bool {
	switch e := e.(type) {
	case *ir.Interpolated:
		for _, p := range e.Parts {
			if isInterpolated(p.Arg) || hasOwnedTemporaries(p.Arg) { return true }
		}
	case *ir.SymbolRef:
		return e.Left != nil && (isInterpolated(e.Left) || hasOwnedTemporaries(e.Left))
	case *ir.Unary:
		return hasOwnedTemporaries(e.Inner)
	case *ir.NewArray:
		return hasOwnedTemporaries(e.Length)
	case *ir.Binary:
		if isComparison(e.Op) && (isInterpolated(e.Left) || isInterpolated(e.Right)) { return true }
		return hasOwnedTemporaries(e.Left) || hasOwnedTemporaries(e.Right)
	case *ir.Select:
		return hasOwnedTemporaries(e.Cond)
	case *ir.Call:
		if _, owned := receiverTemporary(e); owned { return true }
		if e.Left != nil && (isInterpolated(e.Left) || hasOwnedTemporaries(e.Left)) { return true }
		for i := range e.Method.Params {
			if i >= len(e.Args) { break }
			if hasOwnedTemporaries(e.Args[i]) || isInterpolated(e.Args[i]) && borrowsArg(e, i) { return true }
		}
	}
	return false
}
