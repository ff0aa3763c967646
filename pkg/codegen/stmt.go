package codegen

import (
	"fmt"

	"github.com/xplshn/gci/pkg/config"
	"github.com/xplshn/gci/pkg/ir"
	"github.com/xplshn/gci/pkg/util"
)

// writeStatements writes a statement list, folding a trailing throwing call
// followed by a return into a single conditional return when possible.
func (b *cBackend) writeStatements(stmts []ir.Stmt) {
	if n := len(stmts); n >= 2 {
		if ret, ok := stmts[n-1].(*ir.Return); ok && b.tryWriteCallAndReturn(stmts, n-2, ret.Value) { return }
	}
	for _, s := range stmts {
		b.writeStmt(s)
	}
}

// writeScoped writes stmts as the contents of one C block: variables they
// declare are destructed at the end if control reaches it.
func (b *cBackend) writeScoped(stmts []ir.Stmt, completes bool) {
	mark, temps := len(b.pending), len(b.temps)
	b.writeStatements(stmts)
	if completes {
		b.writeDestructFrom(mark)
	}
	b.trimPending(mark)
	b.temps = b.temps[:temps]
}

func (b *cBackend) writeBlock(blk *ir.Block) {
	b.openBlock()
	b.writeScoped(blk.Stmts, ir.CompletesNormally(blk))
	b.closeBlock()
}

func (b *cBackend) writeStmt(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.Block:
		b.writeBlock(s)
	case *ir.Var:
		b.writeVarStmt(s)
	case *ir.ExprStmt:
		b.writeExprStmt(s.X)
	case *ir.If:
		b.writeIf(s)
	case *ir.While:
		b.checkLoopCondition(s.Cond)
		b.write("while (")
		b.visitExpr(s.Cond, prioArgument)
		b.write(")")
		b.writeLoopBody(s, s.Body)
	case *ir.DoWhile:
		b.checkLoopCondition(s.Cond)
		b.writeDoWhile(s)
	case *ir.For:
		b.writeFor(s)
	case *ir.Foreach:
		b.writeForeach(s)
	case *ir.Break:
		b.writeBreak(s)
	case *ir.Continue:
		b.writeContinue(s)
	case *ir.Return:
		b.writeReturn(s)
	case *ir.Throw:
		b.writeThrow()
	case *ir.Switch:
		b.writeSwitch(s)
	case *ir.Lock:
		b.writeLock(s)
	default:
		b.failf("cannot lower statement %T", s)
	}
	b.releaseTemporaries()
}

// needsBlock reports whether s lowers to more than one C statement.
func (b *cBackend) needsBlock(s ir.Stmt) bool {
	switch s := s.(type) {
	case *ir.ExprStmt:
		return hasTemporaries(s.X) || throwingMethod(s.X) != nil
	case *ir.Var, *ir.Lock:
		return true
	case *ir.Break:
		return b.jumpNeedsBlock(s.Target)
	case *ir.Continue:
		return b.jumpNeedsBlock(s.Target)
	case *ir.Return:
		return len(b.pending) > 0 || b.locked() || s.Value != nil && hasTemporaries(s.Value)
	case *ir.Throw:
		return len(b.pending) > 0 || b.locked()
	case *ir.If:
		return hasTemporaries(s.Cond)
	case *ir.Switch:
		return hasTemporaries(s.Value)
	case *ir.For:
		v, ok := s.Init.(*ir.Var)
		return ok && !b.isSimpleForInit(v)
	}
	return false
}

func (b *cBackend) writeChild(s ir.Stmt) {
	if blk, ok := s.(*ir.Block); ok {
		b.write(" ")
		b.writeBlock(blk)
		return
	}
	if f, ok := s.(*ir.For); ok && b.needsBlock(f) {
		b.write(" ")
		b.writeFor(f)
		return
	}
	if b.needsBlock(s) {
		b.write(" ")
		b.openBlock()
		b.writeScoped([]ir.Stmt{s}, ir.CompletesNormally(s))
		b.closeBlock()
		return
	}
	b.writeLine("")
	b.indent++
	b.writeStmt(s)
	b.indent--
}

// checkLoopCondition rejects conditions that would need a temporary declared before every evaluation.
func (b *cBackend) checkLoopCondition(cond ir.Expr) {
	if cond != nil && hasTemporaries(cond) {
		b.failf("loop condition requires a temporary")
	}
}

func (b *cBackend) writeIf(s *ir.If) {
	b.writeConditionTemporaries(s.Cond)
	b.write("if (")
	b.visitExpr(s.Cond, prioArgument)
	b.write(")")
	b.writeChild(s.Then)
	if s.Else == nil { return }
	b.write("else")
	if elseIf, ok := s.Else.(*ir.If); ok && !hasTemporaries(elseIf.Cond) {
		b.write(" ")
		b.writeIf(elseIf)
		return
	}
	b.writeChild(s.Else)
}

// writeConditionTemporaries hoists what a condition needs; a value that must
// be freed cannot outlive a condition guarding further statements.
func (b *cBackend) writeConditionTemporaries(cond ir.Expr) {
	if hasOwnedTemporaries(cond) {
		b.failf("condition needs a temporary that must be freed")
	}
	b.writeTemporaries(cond)
}

func (b *cBackend) pushScope(s ir.Stmt, isSwitch bool) *jumpScope {
	scope := &jumpScope{stmt: s, mark: len(b.pending), isSwitch: isSwitch}
	b.scopes = append(b.scopes, scope)
	return scope
}

// writeLock holds the mutex for the body; jumps out of the body release it.
func (b *cBackend) writeLock(s *ir.Lock) {
	b.write("mtx_lock(&")
	b.visitExpr(s.Lock, prioPrimary)
	b.writeLine(");")
	scope := b.pushScope(s, false)
	scope.lock = s.Lock
	b.writeStmt(s.Body)
	b.popScope()
	if ir.CompletesNormally(s.Body) {
		b.writeUnlock(s.Lock)
	}
}

// popScope closes the innermost scope and places the label that breaks
// from an inner loop or switch jump to.
func (b *cBackend) popScope() {
	scope := b.scopes[len(b.scopes)-1]
	b.scopes = b.scopes[:len(b.scopes)-1]
	if scope.breakLabel != "" {
		b.writeLine(scope.breakLabel + ": ;")
	}
}

func (b *cBackend) writeLoopBody(loop, body ir.Stmt) {
	b.pushScope(loop, false)
	b.writeChild(body)
	b.popScope()
}

func (b *cBackend) writeDoWhile(s *ir.DoWhile) {
	b.pushScope(s, false)
	b.write("do ")
	b.openBlock()
	if blk, ok := s.Body.(*ir.Block); ok {
		b.writeScoped(blk.Stmts, ir.CompletesNormally(blk))
	} else {
		b.writeScoped([]ir.Stmt{s.Body}, ir.CompletesNormally(s.Body))
	}
	b.indent--
	b.write("} while (")
	b.visitExpr(s.Cond, prioArgument)
	b.writeLine(");")
	b.popScope()
}

// isSimpleForInit reports whether v can be declared in the for header itself.
func (b *cBackend) isSimpleForInit(v *ir.Var) bool {
	return !b.own.NeedsCleanup(v.Type) && !b.hasInitCode(v.Type, v.Value, false) &&
		(v.Value == nil || !hasTemporaries(v.Value))
}

func (b *cBackend) writeFor(s *ir.For) {
	b.checkLoopCondition(s.Cond)
	if s.Advance != nil && hasTemporaries(s.Advance) {
		b.failf("loop advance requires a temporary")
	}
	v, isVar := s.Init.(*ir.Var)
	if !isVar || b.isSimpleForInit(v) {
		b.writeForLoop(s, s.Init)
		return
	}
	// The variable outlives the C for header, so it gets its own block.
	b.openBlock()
	mark := len(b.pending)
	b.writeVarStmt(v)
	b.writeForLoop(s, nil)
	if ir.CompletesNormally(s) {
		b.writeDestructFrom(mark)
	}
	b.trimPending(mark)
	b.closeBlock()
}

func (b *cBackend) writeForLoop(s *ir.For, init ir.Stmt) {
	b.write("for (")
	switch init := init.(type) {
	case *ir.Var:
		b.writeTypeAndName(init.Type, localName(init.Name))
		if init.Value != nil {
			b.write(" = ")
			b.writeCoerced(init.Type, init.Value, prioArgument)
		}
	case *ir.ExprStmt:
		if hasTemporaries(init.X) || throwingMethod(init.X) != nil {
			b.failf("loop initializer must be a simple expression")
		}
		b.visitExpr(init.X, prioStatement)
	case nil:
	default:
		b.failf("unsupported loop initializer %T", init)
	}
	b.write(";")
	if s.Cond != nil {
		b.write(" ")
		b.visitExpr(s.Cond, prioArgument)
	}
	b.write(";")
	if s.Advance != nil {
		b.write(" ")
		b.visitExpr(s.Advance, prioStatement)
	}
	b.write(")")
	b.writeLoopBody(s, s.Body)
}

func (b *cBackend) writeDictIterVar(v *ir.Var, value string) {
	if c, ok := v.Type.(*ir.Class); ok && !c.IsSystem() {
		b.failf("iteration variable %s must be a pointer to %s", v.Name, c.Name)
	}
	b.writeTypeAndName(v.Type, localName(v.Name))
	b.write(" = ")
	if ir.IsInteger(v.Type) && !ir.IsLong(v.Type) || isEnum(v.Type) {
		b.write("GPOINTER_TO_INT(" + value + ")")
	} else {
		b.checkPointerSlot(v.Type)
		b.write("(")
		b.writeType(v.Type, false)
		b.write(") ")
		if ir.IsLong(v.Type) {
			b.write("(intptr_t) ")
		}
		b.write(value)
	}
	b.writeLine(";")
}

func (b *cBackend) writeForeachBody(s *ir.Foreach) {
	if blk, ok := s.Body.(*ir.Block); ok {
		b.writeScoped(blk.Stmts, ir.CompletesNormally(blk))
	} else {
		b.writeScoped([]ir.Stmt{s.Body}, ir.CompletesNormally(s.Body))
	}
}

func (b *cBackend) startForeachHashTable(s *ir.Foreach) {
	b.openBlock()
	b.writeLine("GHashTableIter cidictit;")
	b.write("g_hash_table_iter_init(&cidictit, ")
	b.visitExpr(s.Collection, prioArgument)
	b.writeLine(");")
}

func (b *cBackend) writeForeach(s *ir.Foreach) {
	name := localName(s.Element.Name)
	b.pushScope(s, false)
	switch ct := s.Collection.Type().(type) {
	case *ir.ArrayStorageType:
		b.writef("for (int %s = 0; %s < %d; %s++)", name, name, ct.Length, name)
		b.foreachOf[s.Element] = s
		b.writeChild(s.Body)
	case *ir.ListType:
		elem := ct.Elem
		b.write("for (")
		b.writeType(elem, false)
		b.write(" const *" + name + " = (")
		b.writeType(elem, false)
		b.write(" const *) ")
		b.visitExpr(s.Collection, prioPrimary)
		b.write("->data, ")
		t := elem
		for {
			a, ok := t.(*ir.ArrayStorageType)
			if !ok { break }
			b.write("*")
			t = a.Elem
		}
		switch t.(type) {
		case *ir.StringType, *ir.ClassPtrType, *ir.ArrayPtrType:
			b.write("* const ")
		}
		b.write("*ciend = " + name + " + ")
		b.visitExpr(s.Collection, prioPrimary)
		b.write("->len; " + name + " < ciend; " + name + "++)")
		b.foreachOf[s.Element] = s
		b.writeChild(s.Body)
	case *ir.HashSetType:
		b.startForeachHashTable(s)
		b.writeLine("gpointer cikey;")
		b.write("while (g_hash_table_iter_next(&cidictit, &cikey, NULL)) ")
		b.openBlock()
		b.writeDictIterVar(s.Element, "cikey")
		b.writeForeachBody(s)
		b.closeBlock()
		b.closeBlock()
	case *ir.DictionaryType:
		if s.Value == nil {
			b.failf("dictionary iteration needs a value variable")
		}
		if ct.Sorted {
			b.write("for (GTreeNode *cidictit = g_tree_node_first(")
			b.visitExpr(s.Collection, prioArgument)
			b.write("); cidictit != NULL; cidictit = g_tree_node_next(cidictit)) ")
			b.openBlock()
			b.writeDictIterVar(s.Element, "g_tree_node_key(cidictit)")
			b.writeDictIterVar(s.Value, "g_tree_node_value(cidictit)")
			b.writeForeachBody(s)
			b.closeBlock()
			break
		}
		b.startForeachHashTable(s)
		b.writeLine("gpointer cikey, civalue;")
		b.write("while (g_hash_table_iter_next(&cidictit, &cikey, &civalue)) ")
		b.openBlock()
		b.writeDictIterVar(s.Element, "cikey")
		b.writeDictIterVar(s.Value, "civalue")
		b.writeForeachBody(s)
		b.closeBlock()
		b.closeBlock()
	default:
		b.failf("cannot iterate over %s", ct)
	}
	b.popScope()
}

func (b *cBackend) writeBreak(s *ir.Break) {
	target := b.findScope(s.Target)
	b.writeLeave(target, target.mark, nil)
	// A C break only leaves the innermost loop or switch.
	for _, inner := range b.crossed(target) {
		if inner.lock != nil { continue }
		if target.breakLabel == "" {
			b.labelCount++
			target.breakLabel = fmt.Sprintf("cibreak%d", b.labelCount)
		}
		b.writeLine("goto " + target.breakLabel + ";")
		return
	}
	b.writeLine("break;")
}

func (b *cBackend) writeContinue(s *ir.Continue) {
	target := b.findScope(s.Target)
	for _, inner := range b.crossed(target) {
		if inner.lock == nil && !inner.isSwitch {
			b.failf("continue of an outer loop is not supported")
		}
	}
	b.writeLeave(target, target.mark, nil)
	b.writeLine("continue;")
}

func (b *cBackend) writeCaseBody(stmts []ir.Stmt) {
	if len(stmts) > 0 {
		_, isVar := stmts[0].(*ir.Var)
		if es, ok := stmts[0].(*ir.ExprStmt); isVar || ok && hasTemporaries(es.X) {
			// A label cannot precede a declaration.
			b.writeLine(";")
		}
	}
	mark := len(b.pending)
	b.writeStatements(stmts)
	b.trimPending(mark)
}

func (b *cBackend) writeSwitch(s *ir.Switch) {
	if ir.IsString(s.Value.Type()) {
		b.failf("switch on strings is not supported")
	}
	b.writeConditionTemporaries(s.Value)
	b.write("switch (")
	b.visitExpr(s.Value, prioArgument)
	b.writeLine(") {")
	temps := len(b.temps)
	b.pushScope(s, true)
	for _, c := range s.Cases {
		for _, v := range c.Values {
			b.write("case ")
			b.visitExpr(v, prioArgument)
			b.writeLine(":")
		}
		b.indent++
		b.writeCaseBody(c.Body)
		b.indent--
	}
	if s.Default != nil {
		b.writeLine("default:")
		b.indent++
		b.writeCaseBody(s.Default)
		b.indent--
	}
	b.temps = b.temps[:temps]
	b.writeLine("}")
	b.popScope()
}

func (b *cBackend) writeReturn(s *ir.Return) {
	m := b.currentMethod
	if s.Value == nil {
		b.writeDestructAll(nil)
		if m.Throws {
			b.writeLine("return true;")
		} else {
			b.writeLine("return;")
		}
		return
	}
	writeValue := func() {
		b.write("return ")
		b.writeCoerced(m.Type, s.Value, prioArgument)
		b.writeLine(";")
	}
	early := len(b.pending) == 0 && !b.locked() || ir.IsLiteral(s.Value)
	if early && !hasOwnedTemporaries(s.Value) {
		b.writeDestructAll(nil)
		b.writeTemporaries(s.Value)
		writeValue()
		return
	}
	if ref, ok := s.Value.(*ir.SymbolRef); ok {
		if b.isPending(ref.Symbol) {
			// The variable's ownership moves to the caller.
			b.writeDestructAll(ref.Symbol)
			b.write("return ")
			if p, ok := m.Type.(*ir.ClassPtrType); ok {
				b.writeClassPtr(p.Class, ref, prioArgument)
			} else {
				b.visitExpr(ref, prioArgument)
			}
			b.writeLine(";")
			return
		}
		if ref.Left == nil && !b.locked() {
			b.writeDestructAll(nil)
			writeValue()
			return
		}
	}
	b.writeTemporaries(s.Value)
	b.writeDefinition(m.Type, func() { b.write("returnValue") }, true, true)
	b.write(" = ")
	b.writeCoerced(m.Type, s.Value, prioArgument)
	b.writeLine(";")
	b.writeDestructAll(nil)
	b.writeLine("return returnValue;")
}

// isPlainAssign reports whether left = right lowers to a C assignment expression.
func isPlainAssign(e *ir.Binary) bool {
	if e.Op != ir.Assign { return false }
	if idx, ok := e.Left.(*ir.Binary); ok && idx.Op == ir.Index && ir.IsDictionary(idx.Left.Type()) { return false }
	lt := e.Left.Type()
	if ir.IsStringStorage(lt) { return false }
	return !ir.IsDynamicPtr(lt) || ir.IsClass(lt, ir.RegexClass)
}

func (b *cBackend) writeExprStmt(e ir.Expr) {
	b.writeTemporaries(e)
	m := throwingMethod(e)
	call, isCall := e.(*ir.Call)
	switch {
	case m != nil:
		if bin, ok := e.(*ir.Binary); ok && !isPlainAssign(bin) {
			b.visitExpr(e, prioStatement)
			b.writeLine(";")
			b.writeForwardThrow(func(p priority) { b.visitExpr(bin.Left, p) }, m)
			break
		}
		b.writeForwardThrow(func(p priority) { b.visitExpr(e, p) }, m)
	case isCall && ir.IsStringStorage(call.Type()):
		b.include("stdlib.h")
		b.write("free(")
		b.visitExpr(e, prioArgument)
		b.writeLine(");")
	case isCall && ir.IsDynamicPtr(call.Type()):
		util.Warn(b.cfg, config.WarnDiscardedShared, b.symbolContext(), "result of %s is released immediately", call.Method.Name)
		b.use.sharedRelease = true
		b.write("CiShared_Release(")
		b.visitExpr(e, prioArgument)
		b.writeLine(");")
	default:
		b.visitExpr(e, prioStatement)
		b.writeLine(";")
	}
	b.writeOwnedTemporaries()
}

// hasInitCode reports whether a declaration needs statements after it.
func (b *cBackend) hasInitCode(t ir.Type, value ir.Expr, isField bool) bool {
	if throwingMethod(value) != nil || b.listDestroy(t) != "" { return true }
	st := ir.StorageType(t)
	if c, ok := st.(*ir.Class); ok && (c == ir.LockClass || b.own.NeedsConstructor(c) || isField && c == ir.MatchClass) { return true }
	if isField {
		return value != nil || ir.IsStringStorage(st) || ir.IsDynamicPtr(st) || isCollection(st)
	}
	_, isArray := t.(*ir.ArrayStorageType)
	return isArray && isCollection(st)
}

func isCollection(t ir.Type) bool {
	switch t.(type) {
	case *ir.ListType, *ir.StackType, *ir.HashSetType, *ir.DictionaryType:
		return true
	}
	return false
}

// writeVarInit writes the initializer of a non-array declaration.
func (b *cBackend) writeVarInit(t ir.Type, value ir.Expr) {
	switch {
	case value != nil:
		b.write(" = ")
		b.writeCoerced(t, value, prioArgument)
	case ir.IsStringStorage(t), ir.IsDynamicPtr(t), t == ir.MatchClass:
		b.write(" = NULL")
	case isCollection(t):
		b.write(" = ")
		b.writeNewStorage(t)
	}
}

// writeInitCode constructs a field or local after its declaration; element
// writes the target, indexed by the loop variables of nested storage arrays.
func (b *cBackend) writeInitCode(element func(), t ir.Type, value ir.Expr, isField bool) {
	if !b.hasInitCode(t, value, isField) { return }
	nesting := 0
	for {
		a, ok := t.(*ir.ArrayStorageType)
		if !ok { break }
		b.writef("for (int _i%d = 0; _i%d < %d; _i%d++) ", nesting, nesting, a.Length, nesting)
		b.openBlock()
		nesting++
		t = a.Elem
	}
	indexed := func() {
		element()
		for i := 0; i < nesting; i++ {
			b.writef("[_i%d]", i)
		}
	}
	if c, ok := t.(*ir.Class); ok {
		switch {
		case c == ir.MatchClass:
			indexed()
			b.writeLine(" = NULL;")
		case c == ir.LockClass:
			b.write("mtx_init(&")
			indexed()
			b.writeLine(", mtx_plain | mtx_recursive);")
		case b.own.NeedsConstructor(c):
			b.write(b.className(c) + "_Construct(&")
			indexed()
			b.writeLine(");")
		}
	} else {
		if isField || nesting > 0 {
			indexed()
			if nesting > 0 {
				switch {
				case ir.IsStringStorage(t), ir.IsDynamicPtr(t):
					b.write(" = NULL")
				case isCollection(t):
					b.write(" = ")
					b.writeNewStorage(t)
				default:
					b.write(" = ")
					b.visitExpr(value, prioArgument)
				}
			} else {
				b.writeVarInit(t, value)
			}
			b.writeLine(";")
		}
		if m := throwingMethod(value); m != nil {
			b.writeForwardThrow(func(priority) { indexed() }, m)
		}
	}
	if destroy := b.listDestroy(t); destroy != "" {
		b.write("g_array_set_clear_func(")
		indexed()
		b.writeLine(", " + destroy + ");")
	}
	for ; nesting > 0; nesting-- {
		b.closeBlock()
	}
}

func (b *cBackend) writeArrayStorageInit(a *ir.ArrayStorageType, value ir.Expr) {
	st := ir.StorageType(a)
	switch {
	case value == nil:
		if ir.IsStringStorage(st) || ir.IsDynamicPtr(st) || st == ir.MatchClass {
			b.write(" = { NULL }")
		}
	case ir.IsLiteral(value) && ir.IsDefaultValue(value):
		b.write(" = { ")
		b.visitExpr(value, prioArgument)
		b.write(" }")
	default:
		b.failf("array initializer must be null, zero or false")
	}
}

func (b *cBackend) writeVarStmt(v *ir.Var) {
	name := localName(v.Name)
	b.writeTemporaries(v.Value)
	b.writeTypeAndName(v.Type, name)
	if a, ok := v.Type.(*ir.ArrayStorageType); ok {
		b.writeArrayStorageInit(a, v.Value)
	} else {
		b.writeVarInit(v.Type, v.Value)
	}
	b.writeLine(";")
	b.writeInitCode(func() { b.write(name) }, v.Type, v.Value, false)
	b.writeOwnedTemporaries()
	b.addPending(v)
}

// writeMethod writes the definition of a method with a body.
func (b *cBackend) writeMethod(m *ir.Method) {
	if m.CallType == ir.Abstract || m.Body == nil { return }
	b.currentMethod = m
	b.writeLine("")
	b.writeSignature(m)
	b.writeLine("")
	b.openBlock()
	for _, p := range m.Params {
		b.addPending(p)
	}
	if blk, ok := m.Body.(*ir.Block); ok {
		stmts := blk.Stmts
		switch {
		case !ir.CompletesNormally(blk):
			b.writeStatements(stmts)
		case m.Throws && ir.IsVoid(m.Type):
			if len(stmts) == 0 || !b.tryWriteCallAndReturn(stmts, len(stmts)-1, nil) {
				b.writeStatements(stmts)
				b.writeDestructAll(nil)
				b.writeLine("return true;")
			}
		default:
			b.writeStatements(stmts)
			b.writeDestructAll(nil)
		}
	} else {
		b.writeStmt(m.Body)
	}
	b.closeBlock()
	b.endBody()
}

// endBody forgets per-function state.
func (b *cBackend) endBody() {
	b.temps = b.temps[:0]
	b.pending = b.pending[:0]
	b.scopes = b.scopes[:0]
	b.foreachOf = make(map[*ir.Var]*ir.Foreach)
	b.labelCount = 0
	b.currentMethod = nil
}
