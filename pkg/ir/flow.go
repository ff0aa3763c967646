package ir

// CompletesNormally reports whether control can fall off the end of s.
// Jumps, returns and throws end flow; loops whose condition is absent or
// literally true complete only through a break targeting them.
func CompletesNormally(s Stmt) bool {
	switch s := s.(type) {
	case nil:
		return true
	case *Block:
		return listCompletes(s.Stmts)
	case *Return, *Throw, *Break, *Continue:
		return false
	case *If:
		if s.Else == nil { return true }
		return CompletesNormally(s.Then) || CompletesNormally(s.Else)
	case *While:
		return !isTrue(s.Cond) || HasBreak(s.Body, s)
	case *DoWhile:
		return !isTrue(s.Cond) || HasBreak(s.Body, s)
	case *For:
		return (s.Cond != nil && !isTrue(s.Cond)) || HasBreak(s.Body, s)
	case *Switch:
		if s.Default == nil { return true }
		for _, c := range s.Cases {
			if listCompletes(c.Body) || hasBreakList(c.Body, s) { return true }
		}
		return listCompletes(s.Default) || hasBreakList(s.Default, s)
	case *Lock:
		return CompletesNormally(s.Body)
	}
	return true
}

func listCompletes(stmts []Stmt) bool {
	for _, st := range stmts {
		if !CompletesNormally(st) { return false }
	}
	return true
}

func isTrue(e Expr) bool {
	b, ok := e.(*BoolLit)
	return ok && b.Value
}

// HasBreak reports whether s contains a break out of target.
func HasBreak(s Stmt, target Stmt) bool {
	switch s := s.(type) {
	case *Break:
		return s.Target == target
	case *Block:
		return hasBreakList(s.Stmts, target)
	case *If:
		return HasBreak(s.Then, target) || HasBreak(s.Else, target)
	case *While:
		return HasBreak(s.Body, target)
	case *DoWhile:
		return HasBreak(s.Body, target)
	case *For:
		return HasBreak(s.Body, target)
	case *Foreach:
		return HasBreak(s.Body, target)
	case *Lock:
		return HasBreak(s.Body, target)
	case *Switch:
		for _, c := range s.Cases {
			if hasBreakList(c.Body, target) { return true }
		}
		return hasBreakList(s.Default, target)
	}
	return false
}

func hasBreakList(stmts []Stmt, target Stmt) bool {
	for _, st := range stmts {
		if HasBreak(st, target) { return true }
	}
	return false
}
