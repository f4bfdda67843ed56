package ast

// MLIR: the flat, first-order tier produced by internal/cps. A Definition
// names a compile-time location; an Instance materializes an Implementation
// with a fixed set of captures; an Implementation is one flat function body
// in Return/TailCall/ContinueCall shape. All cross-references are by Path/
// InstancePath/ImplementationPath, not by pointer: internal/partial and
// internal/dedup build their own path-keyed lookup tables rather than a
// separate linked representation, so there is exactly one MLIR shape from
// CPS output through to codegen input.

// MStmtKind tags a top-level MLIR statement.
type MStmtKind int

const (
	MStmtExternCrate MStmtKind = iota
	MStmtExtern
	MStmtDefinition
	MStmtInstance
	MStmtImplementation
)

// MStatement is a top-level MLIR statement.
type MStatement struct {
	Kind MStmtKind

	Name string // ExternCrate, Extern

	Definition     *Definition
	Instance       *Instance
	Implementation *Implementation
}

// Definition names a compile-time location that, once evaluated, holds a
// single Instance. NeedsInit marks a definition whose value cannot be
// determined until crate init runs (an extern-backed or otherwise
// unresolved value at partial-evaluation time).
type Definition struct {
	Path      Path
	Inst      InstancePath
	NeedsInit bool
	IsPublic  bool
}

// Instance materializes an Implementation with a fixed list of captures.
// Captures holds only the upvalues threaded in from the enclosing scope,
// in capture-index order: Captures[i] supplies capture id i+1, since id 0
// is the call's argument and is never stored in an Instance.
type Instance struct {
	Path     InstancePath
	Impl     ImplementationPath
	Captures []InstancePath
}

// ImplKind tags the three flat function-body shapes an Implementation can
// take. Every Implementation ends control flow; there is no fall-through.
type ImplKind int

const (
	ImplReturn       ImplKind = iota // returns a value to its caller's continuation
	ImplTailCall                     // calls Fn with Arg, replacing the current frame
	ImplContinueCall                 // calls Fn with Arg, resuming at continuation Next
)

// Implementation is one flat, first-order function body. Captures is the
// number of upvalue slots beyond the argument (slot 0); a zero-capture
// Implementation is a candidate for compile-time instantiation.
type Implementation struct {
	Kind     ImplKind
	Path     ImplementationPath
	Captures int

	Value ValueLiteral // Return

	Fn, Arg ValueLiteral // TailCall, ContinueCall
	Next    ValueLiteral // ContinueCall
}

// VLitKind tags a ValueLiteral variant.
type VLitKind int

const (
	VLitCapture        VLitKind = iota // a numbered capture slot (0 = argument)
	VLitExtern                         // a named external symbol
	VLitDefinition                     // a reference to a Definition, by path
	VLitInstance                       // a reference to an already-materialized Instance
	VLitImplementation                 // a closure: an Implementation plus its captured values
)

// ValueLiteral is a value produced or consumed at the MLIR level: a
// capture slot, an extern symbol, or a reference to a Definition, Instance,
// or freshly-closed-over Implementation.
type ValueLiteral struct {
	Kind VLitKind

	CaptureID int    // Capture
	Name      string // Extern

	DefPath  Path         // Definition
	Inst     InstancePath // Instance
	Impl     ImplementationPath // Implementation
	Captures []CaptureRef       // Implementation: one per capture slot, in order
}

// CaptureRef is one entry in an ImplementationLiteral's capture list: either
// an upvalue threaded through from the enclosing Implementation's own
// capture slots (IsUpvalue, Index into the enclosing Captures) or a direct
// reference to an already-materialized Instance closed over by value.
type CaptureRef struct {
	IsUpvalue bool
	Index     int          // valid when IsUpvalue
	Inst      InstancePath // valid when !IsUpvalue
}

// Program is an ordered list of MLIR statements, the unit internal/cps
// produces and internal/partial, internal/dedup, and internal/codegen
// consume and transform in turn.
type Program []MStatement
