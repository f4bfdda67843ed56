package ast

// HLIR: high-level IR, resolved and absolutized, pre-CPS. Produced by
// internal/resolve from a surface AST.

// HStmtKind tags an HLIR Statement variant.
type HStmtKind int

const (
	HStmtExternCrate HStmtKind = iota
	HStmtExtern
	HStmtAssignment
	HStmtAlias
)

// HStatement is an HLIR module statement.
type HStatement struct {
	Kind HStmtKind

	Name string // ExternCrate, Extern

	Path   Path // Assignment, Alias
	Target Path // Alias target

	IsPublic bool
	IsImpure bool // Assignment only

	Value HExpr // Assignment only
}

// HExprKind tags an HLIR Expr variant.
type HExprKind int

const (
	HExprEllipsis HExprKind = iota // interface-stub placeholder body
	HExprParen
	HExprCall
	HExprLambda
	HExprIdent    // a bound local or an extern symbol's name
	HExprAbsolute // a resolved absolute path to a Definition
)

// HExpr is an HLIR expression.
type HExpr struct {
	Kind HExprKind

	Inner *HExpr // Paren
	Fn    *HExpr // Call
	Arg   *HExpr // Call

	Name string // Lambda parameter, Ident
	Body *HExpr // Lambda

	Path Path // Absolute
}
