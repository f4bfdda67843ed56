// Package partial partially evaluates an MLIR program at compile time:
// zero-capture closures, and Definitions whose value a closed chain of
// zero-capture calls determines statically, are instantiated into
// concrete Instances before codegen ever sees them, removing one
// indirection (and often one allocation) per call. Grounded on
// passes/mlir/optimize.py's OptimizeContext.
package partial

import (
	"fmt"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/dedup"
)

// Error reports a partial-evaluation failure: an internal invariant
// violation, never an expected "can't resolve yet" outcome (those are
// absorbed internally as errNotYetSeen).
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

var errNotYetSeen = errf("partial: extern value not yet known")

// Context threads the running instance-id counter (per Path) and the
// structural dedup table shared with every Instance this package
// instantiates.
type Context struct {
	dedup       *dedup.Context
	instIDTable map[string]int

	defByPath map[string]*ast.Definition
}

// NewContext builds a Context over a dedup table already containing
// every statement in the program (deps plus the program itself).
func NewContext(d *dedup.Context) *Context {
	return &Context{
		dedup:       d,
		instIDTable: map[string]int{},
		defByPath:   map[string]*ast.Definition{},
	}
}

func (c *Context) indexDefinitions(prog []ast.MStatement) {
	for i := range prog {
		if prog[i].Kind == ast.MStmtDefinition {
			c.defByPath[prog[i].Definition.Path.String()] = prog[i].Definition
		}
	}
}

func (c *Context) nextInstID(path ast.Path) int {
	key := path.String()
	id := c.instIDTable[key]
	c.instIDTable[key] = id + 1
	return id
}

func (c *Context) bumpInstID(inst ast.InstancePath) {
	key := inst.Path.String()
	if c.instIDTable[key] <= inst.ID {
		c.instIDTable[key] = inst.ID + 1
	}
}

// instantiate materializes impl with implCaptures resolved against the
// enclosing captures frame (captures[i] for an upvalue reference, or the
// capture's own instance directly otherwise), dedup-inserts the result,
// and returns the canonical Instance.
func (c *Context) instantiate(path ast.Path, impl *ast.Implementation, implCaptures []ast.CaptureRef, frame []*ast.Instance) (*ast.Instance, error) {
	actual := make([]ast.InstancePath, len(implCaptures))
	for i, cap := range implCaptures {
		if cap.IsUpvalue {
			if cap.Index < 0 || cap.Index >= len(frame) {
				return nil, errf("partial: capture index %d out of range for frame of size %d", cap.Index, len(frame))
			}
			actual[i] = frame[cap.Index].Path
		} else {
			actual[i] = cap.Inst
		}
	}

	instPath := ast.InstancePath{Path: path, ID: c.nextInstID(path)}
	inst := &ast.Instance{Path: instPath, Impl: impl.Path, Captures: actual}
	return c.dedup.DedupNewInstance(inst)
}

// evaluateDefinition runs the definition's Implementation to completion
// if possible, replacing its placeholder Instance with the concrete
// result and clearing NeedsInit. If the chain hits an extern whose value
// isn't known yet, the definition is left untouched for a later pass.
func (c *Context) evaluateDefinition(defi *ast.Definition) error {
	if !defi.NeedsInit {
		return nil
	}

	placeholder, ok := c.dedup.LookupInstance(defi.Inst)
	if !ok {
		return errf("partial: no instance registered for definition %q", defi.Path.String())
	}
	impl, ok := c.dedup.LookupImplementation(placeholder.Impl)
	if !ok {
		return errf("partial: no implementation registered for definition %q", defi.Path.String())
	}

	inst, err := c.evaluateStack(defi.Path, impl)
	if err == errNotYetSeen {
		return nil
	}
	if err != nil {
		return err
	}

	defi.Inst = inst.Path
	defi.NeedsInit = false
	return nil
}

// evaluateStack runs impl, and every Implementation it tail/continue-calls
// into, on an explicit continuation stack until a Return is reached with
// nothing left to resume, returning the final value.
func (c *Context) evaluateStack(path ast.Path, impl *ast.Implementation) (*ast.Instance, error) {
	var stack []*ast.Instance

	fn, arg, err := c.evaluateImpl(path, impl, nil, &stack)
	if err != nil {
		return nil, err
	}

	for fn != nil || len(stack) > 0 {
		if fn == nil {
			fn = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		}
		fn, arg, err = c.evaluateInst(path, fn, arg, &stack)
		if err != nil {
			return nil, err
		}
	}
	return arg, nil
}

func (c *Context) evaluateInst(path ast.Path, inst *ast.Instance, arg *ast.Instance, stack *[]*ast.Instance) (*ast.Instance, *ast.Instance, error) {
	impl, ok := c.dedup.LookupImplementation(inst.Impl)
	if !ok {
		return nil, nil, errf("partial: no implementation registered for instance %q", inst.Path.String())
	}

	frame := make([]*ast.Instance, 0, 1+len(inst.Captures))
	frame = append(frame, arg)
	for _, capPath := range inst.Captures {
		cap, ok := c.dedup.LookupInstance(capPath)
		if !ok {
			return nil, nil, errf("partial: no instance registered for capture %q", capPath.String())
		}
		frame = append(frame, cap)
	}
	return c.evaluateImpl(path, impl, frame, stack)
}

func (c *Context) evaluateImpl(path ast.Path, impl *ast.Implementation, frame []*ast.Instance, stack *[]*ast.Instance) (*ast.Instance, *ast.Instance, error) {
	switch impl.Kind {
	case ast.ImplReturn:
		v, err := c.evaluateLiteral(path, impl.Value, frame)
		if err != nil {
			return nil, nil, err
		}
		return nil, v, nil
	case ast.ImplTailCall:
		fn, err := c.evaluateLiteral(path, impl.Fn, frame)
		if err != nil {
			return nil, nil, err
		}
		arg, err := c.evaluateLiteral(path, impl.Arg, frame)
		if err != nil {
			return nil, nil, err
		}
		return fn, arg, nil
	case ast.ImplContinueCall:
		fn, err := c.evaluateLiteral(path, impl.Fn, frame)
		if err != nil {
			return nil, nil, err
		}
		arg, err := c.evaluateLiteral(path, impl.Arg, frame)
		if err != nil {
			return nil, nil, err
		}
		next, err := c.evaluateLiteral(path, impl.Next, frame)
		if err != nil {
			return nil, nil, err
		}
		*stack = append(*stack, next)
		return fn, arg, nil
	default:
		return nil, nil, errf("partial: unexpected implementation kind encountered")
	}
}

func (c *Context) evaluateLiteral(path ast.Path, lit ast.ValueLiteral, frame []*ast.Instance) (*ast.Instance, error) {
	switch lit.Kind {
	case ast.VLitCapture:
		if lit.CaptureID < 0 || lit.CaptureID >= len(frame) {
			return nil, errf("partial: capture id %d out of range for frame of size %d", lit.CaptureID, len(frame))
		}
		return frame[lit.CaptureID], nil
	case ast.VLitExtern:
		return nil, errNotYetSeen
	case ast.VLitDefinition:
		defi, ok := c.defByPath[lit.DefPath.String()]
		if !ok {
			return nil, errf("partial: no definition registered for %q", lit.DefPath.String())
		}
		if defi.NeedsInit {
			return nil, errNotYetSeen
		}
		inst, ok := c.dedup.LookupInstance(defi.Inst)
		if !ok {
			return nil, errf("partial: no instance registered for definition %q", defi.Path.String())
		}
		return inst, nil
	case ast.VLitInstance:
		inst, ok := c.dedup.LookupInstance(lit.Inst)
		if !ok {
			return nil, errf("partial: no instance registered for %q", lit.Inst.String())
		}
		return inst, nil
	case ast.VLitImplementation:
		impl, ok := c.dedup.LookupImplementation(lit.Impl)
		if !ok {
			return nil, errf("partial: no implementation registered for %q", lit.Impl.String())
		}
		return c.instantiate(path, impl, lit.Captures, frame)
	default:
		return nil, errf("partial: unexpected value literal kind encountered")
	}
}

// OptimizeMLIR partially evaluates prog, treating deps (already-linked
// statements from dependency crates) as present but not re-emitted.
// Every zero-capture Implementation is instantiated at compile time,
// every Definition reachable through zero-capture calls is resolved to
// its concrete Instance, and the result is structurally deduplicated and
// tree-shaken.
func OptimizeMLIR(prog []ast.MStatement, deps []ast.MStatement) ([]ast.MStatement, error) {
	all := make([]ast.MStatement, 0, len(deps)+len(prog))
	all = append(all, deps...)
	all = append(all, prog...)

	dedupCtx, err := dedup.Build(all)
	if err != nil {
		return nil, err
	}

	ctx := NewContext(dedupCtx)
	ctx.indexDefinitions(all)

	for _, stmt := range all {
		if stmt.Kind == ast.MStmtInstance {
			ctx.bumpInstID(stmt.Instance.Path)
		}
	}

	for _, stmt := range prog {
		switch stmt.Kind {
		case ast.MStmtDefinition:
			if err := ctx.evaluateDefinition(stmt.Definition); err != nil {
				return nil, err
			}
		case ast.MStmtImplementation:
			if err := ctx.instantiateImplementation(stmt.Implementation); err != nil {
				return nil, err
			}
		}
	}

	if err := dedupCtx.Deduplicate(dedupCtx.Collect()); err != nil {
		return nil, err
	}
	return dedupCtx.TreeShake(deps), nil
}

// instantiateImplementation rewrites impl's own literal fields in place:
// any DefinitionLiteral whose definition is already resolved becomes an
// InstanceLiteral, and any ImplementationLiteral whose captures are all
// already-resolved instances is instantiated eagerly; then, if impl
// itself turns out to need zero captures, instantiates it too.
func (c *Context) instantiateImplementation(impl *ast.Implementation) error {
	path := impl.Path.Path

	var err error
	switch impl.Kind {
	case ast.ImplReturn:
		impl.Value, err = c.rewriteLiteral(path, impl.Value)
	case ast.ImplTailCall:
		if impl.Fn, err = c.rewriteLiteral(path, impl.Fn); err == nil {
			impl.Arg, err = c.rewriteLiteral(path, impl.Arg)
		}
	case ast.ImplContinueCall:
		if impl.Fn, err = c.rewriteLiteral(path, impl.Fn); err == nil {
			if impl.Arg, err = c.rewriteLiteral(path, impl.Arg); err == nil {
				impl.Next, err = c.rewriteLiteral(path, impl.Next)
			}
		}
	default:
		err = errf("partial: unexpected implementation kind encountered")
	}
	if err != nil {
		return err
	}

	if impl.Captures == 0 {
		if _, err := c.instantiate(path, impl, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// rewriteLiteral is the static counterpart of evaluateLiteral: it doesn't
// run anything, it only promotes literals that no longer need runtime
// resolution.
func (c *Context) rewriteLiteral(path ast.Path, lit ast.ValueLiteral) (ast.ValueLiteral, error) {
	switch lit.Kind {
	case ast.VLitDefinition:
		defi, ok := c.defByPath[lit.DefPath.String()]
		if ok && !defi.NeedsInit {
			return ast.ValueLiteral{Kind: ast.VLitInstance, Inst: defi.Inst}, nil
		}
		return lit, nil
	case ast.VLitImplementation:
		allResolved := true
		for _, cap := range lit.Captures {
			if cap.IsUpvalue {
				allResolved = false
				break
			}
		}
		if !allResolved {
			return lit, nil
		}

		impl, ok := c.dedup.LookupImplementation(lit.Impl)
		if !ok {
			return lit, nil
		}
		inst, err := c.instantiate(path, impl, lit.Captures, nil)
		if err != nil {
			return ast.ValueLiteral{}, err
		}
		return ast.ValueLiteral{Kind: ast.VLitInstance, Inst: inst.Path}, nil
	default:
		return lit, nil
	}
}
