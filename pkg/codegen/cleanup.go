package codegen

import (
	"fmt"

	"github.com/xplshn/gci/pkg/ir"
)

// jumpScope is an enclosing loop, switch or lock together with the length
// of the pending-cleanup list when it was entered. Lock scopes hold the
// mutex a jump out of them must release.
type jumpScope struct {
	stmt       ir.Stmt
	mark       int
	isSwitch   bool
	lock       ir.Expr
	breakLabel string
}

func (b *cBackend) addPending(v *ir.Var) {
	if b.own.NeedsCleanup(v.Type) {
		b.pending = append(b.pending, v)
	}
}

func (b *cBackend) trimPending(mark int) { b.pending = b.pending[:mark] }

func (b *cBackend) isPending(s ir.Symbol) bool {
	for _, v := range b.pending {
		if ir.Symbol(v) == s { return true }
	}
	return false
}

// declaresCleanup reports whether stmts directly declare a variable needing cleanup.
func (b *cBackend) declaresCleanup(stmts []ir.Stmt) bool {
	for _, s := range stmts {
		if v, ok := s.(*ir.Var); ok && b.own.NeedsCleanup(v.Type) { return true }
	}
	return false
}

// writeDestruct releases the value name refers to; storage arrays are
// destroyed element by element from the highest index down.
func (b *cBackend) writeDestruct(name func(), t ir.Type) {
	if !b.own.NeedsCleanup(t) { return }
	nesting := 0
	for {
		a, ok := t.(*ir.ArrayStorageType)
		if !ok { break }
		i := fmt.Sprintf("_i%d", nesting)
		b.writeLine(fmt.Sprintf("for (int %s = %d; %s >= 0; %s--)", i, a.Length-1, i, i))
		b.indent++
		nesting++
		t = a.Elem
	}
	switch tt := t.(type) {
	case *ir.Class:
		switch tt {
		case ir.MatchClass:
			b.write("g_match_info_free(")
		case ir.LockClass:
			b.write("mtx_destroy(&")
		default:
			b.write(b.className(tt) + "_Destruct(&")
		}
	case *ir.ListType, *ir.StackType:
		b.write("g_array_free(")
	case *ir.HashSetType:
		b.write("g_hash_table_unref(")
	case *ir.DictionaryType:
		if tt.Sorted {
			b.write("g_tree_unref(")
		} else {
			b.write("g_hash_table_unref(")
		}
	default:
		switch {
		case ir.IsClass(t, ir.RegexClass):
			b.write("g_regex_unref(")
		case ir.IsDynamicPtr(t):
			b.use.sharedRelease = true
			b.write("CiShared_Release(")
		default:
			b.write("free(")
		}
	}
	name()
	for i := 0; i < nesting; i++ {
		b.writef("[_i%d]", i)
	}
	if ir.IsArrayList(t) {
		b.write(", TRUE")
	}
	b.writeLine(");")
	b.indent -= nesting
}

func (b *cBackend) writeDestructVar(v *ir.Var) {
	b.writeDestruct(func() { b.write(localName(v.Name)) }, v.Type)
}

// writeDestructAll cleans up every pending variable but except, newest first,
// together with the statement's owned temporaries, unlocking every held mutex.
func (b *cBackend) writeDestructAll(except ir.Symbol) {
	b.writeOwnedTemporaries()
	b.writeLeave(nil, 0, except)
}

// writeDestructFrom cleans up pending[mark:] without trimming.
func (b *cBackend) writeDestructFrom(mark int) {
	b.writeDestructRange(mark, len(b.pending), nil)
}

func (b *cBackend) writeDestructRange(from, to int, except ir.Symbol) {
	for i := to - 1; i >= from; i-- {
		if ir.Symbol(b.pending[i]) != except {
			b.writeDestructVar(b.pending[i])
		}
	}
}

// writeLeave runs the cleanup of a jump out of every scope inside target
// (nil leaves the function): pending[mark:] is destructed and each crossed
// lock released, innermost first.
func (b *cBackend) writeLeave(target *jumpScope, mark int, except ir.Symbol) {
	top := len(b.pending)
	for i := len(b.scopes) - 1; i >= 0 && b.scopes[i] != target; i-- {
		s := b.scopes[i]
		if s.lock == nil { continue }
		b.writeDestructRange(s.mark, top, except)
		top = s.mark
		b.writeUnlock(s.lock)
	}
	b.writeDestructRange(mark, top, except)
}

func (b *cBackend) writeUnlock(lock ir.Expr) {
	b.write("mtx_unlock(&")
	b.visitExpr(lock, prioPrimary)
	b.writeLine(");")
}

// locked reports whether a mutex is held at this point of the body.
func (b *cBackend) locked() bool {
	for _, s := range b.scopes {
		if s.lock != nil { return true }
	}
	return false
}

func (b *cBackend) findScope(target ir.Stmt) *jumpScope {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if b.scopes[i].lock == nil && b.scopes[i].stmt == target { return b.scopes[i] }
	}
	b.failf("jump target is not an enclosing loop or switch")
	return nil
}

// crossed returns the scopes a jump to target leaves without leaving target itself.
func (b *cBackend) crossed(target *jumpScope) []*jumpScope {
	i := len(b.scopes) - 1
	for i >= 0 && b.scopes[i] != target {
		i--
	}
	return b.scopes[i+1:]
}

// jumpNeedsBlock reports whether leaving target must first run cleanup.
func (b *cBackend) jumpNeedsBlock(target ir.Stmt) bool {
	scope := b.findScope(target)
	if len(b.pending) > scope.mark { return true }
	for _, s := range b.crossed(scope) {
		if s.lock != nil { return true }
	}
	return false
}
