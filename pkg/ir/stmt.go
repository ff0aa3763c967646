package ir

type Stmt interface {
	isStmt()
}

type Block struct{ Stmts []Stmt }

type ExprStmt struct{ X Expr }

type If struct {
	Cond       Expr
	Then, Else Stmt
}

type While struct {
	Cond Expr
	Body Stmt
}

type DoWhile struct {
	Body Stmt
	Cond Expr
}

// For loops; Init is a *Var, an *ExprStmt or nil.
type For struct {
	Init    Stmt
	Cond    Expr
	Advance Expr
	Body    Stmt
}

// Foreach iterates Collection; Value is set only for dictionaries.
type Foreach struct {
	Element    *Var
	Value      *Var
	Collection Expr
	Body       Stmt
}

// Break leaves Target, a loop or switch statement.
type Break struct{ Target Stmt }

// Continue restarts Target, a loop statement.
type Continue struct{ Target Stmt }

type Return struct{ Value Expr }

type Throw struct{ Message Expr }

type Case struct {
	Values []Expr
	Body   []Stmt
}

type Switch struct {
	Value   Expr
	Cases   []*Case
	Default []Stmt
}

// Lock runs Body holding the mutex Lock refers to.
type Lock struct {
	Lock Expr
	Body Stmt
}

func (*Block) isStmt()    {}
func (*ExprStmt) isStmt() {}
func (*If) isStmt()       {}
func (*While) isStmt()    {}
func (*DoWhile) isStmt()  {}
func (*For) isStmt()      {}
func (*Foreach) isStmt()  {}
func (*Break) isStmt()    {}
func (*Continue) isStmt() {}
func (*Return) isStmt()   {}
func (*Throw) isStmt()    {}
func (*Switch) isStmt()   {}
func (*Lock) isStmt()     {}

func NewBlock(stmts ...Stmt) *Block { return &Block{Stmts: stmts} }

func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }
