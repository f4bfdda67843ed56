// Package cps implements the combined continuation-passing-style and
// closure-conversion pass that turns a flat HLIR program into MLIR:
// lambdas become Implementations with a captures list, and every
// application becomes an explicit serialized call chained through
// Return/TailCall/ContinueCall shapes. Grounded on
// passes/hlir/compile.py's compile_hlir (the single combined pass used in
// production, not the legacy rechain/continuations/renumber triple).
package cps

import (
	"fmt"
	"sort"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// litKind tags a CPS-internal value literal, distinct from ast.ValueLiteral:
// these still refer to names and integer call results rather than
// resolved capture slots, which only exist once a body is fully
// serialized.
type litKind int

const (
	litNamedCapture litKind = iota // a lambda-bound local, by name
	litTempCapture                 // an intermediate call's result, by id
	litExtern                      // an extern impure symbol
	litDefinition                  // a reference to an absolute Definition
	litLambda                      // a nested lambda not yet flattened
	litContinuation                // the remainder of the current body
)

type valueLit struct {
	kind litKind

	name string   // litNamedCapture, litExtern
	id   int      // litTempCapture, litLambda (impl id), litContinuation (cont id)
	path ast.Path // litDefinition

	lambdaCaptures []string  // litLambda: names closed over, by name
	contCaptures   []capKey  // litContinuation: ids/names closed over
}

// capKey is Optional[int | str] from the original: the captured-variable
// set used while serializing one call chain holds either a previous call's
// result id, a bound name, or nothing (no slot needed for this call).
type capKey struct {
	isNone bool
	isInt  bool
	id     int
	name   string
}

func noneKey() capKey        { return capKey{isNone: true} }
func intKey(id int) capKey   { return capKey{isInt: true, id: id} }
func nameKey(n string) capKey { return capKey{name: n} }

func indexOfString(xs []string, x string) int {
	for i, s := range xs {
		if s == x {
			return i
		}
	}
	return -1
}

func indexOfCapKey(xs []capKey, x capKey) int {
	for i, k := range xs {
		if k == x {
			return i
		}
	}
	return -1
}

// serializedCall is one application flattened out of an expression tree,
// in evaluation order: every call nested in its function or argument
// comes before it (left to right, inside out).
type serializedCall struct {
	fn, arg valueLit
	res     int
	param   capKey
}

// lambdaContext accumulates state while serializing one lambda body (or
// the top-level body of a non-lambda assignment): its bound-name scope,
// the calls made so far, and the flat Implementations produced for it and
// every lambda nested inside it.
type lambdaContext struct {
	path  ast.Path
	id    int
	scope []string

	tempID int
	calls  []serializedCall
	impls  []ast.Implementation
}

func newLambdaContext(path ast.Path, id int, scope []string) *lambdaContext {
	return &lambdaContext{path: path, id: id, scope: append([]string(nil), scope...)}
}

func (c *lambdaContext) tempCapture() valueLit {
	lit := valueLit{kind: litTempCapture, id: c.tempID}
	c.tempID++
	return lit
}

func (c *lambdaContext) serializedCallParam(id int) capKey {
	if id > 0 {
		return intKey(id - 1)
	}
	if len(c.scope) > 0 {
		return nameKey(c.scope[0])
	}
	return noneKey()
}

func (c *lambdaContext) sortCaptures(set map[capKey]bool) []capKey {
	list := make([]capKey, 0, len(set))
	for k := range set {
		list = append(list, k)
	}
	key := func(v capKey) int {
		switch {
		case v.isInt:
			return -v.id - 1
		case v.isNone:
			return 0
		default:
			return indexOfString(c.scope, v.name) + 1
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return key(list[i]) < key(list[j]) })
	return list
}

// anonymizeCaptureCount returns the upvalue count for a capture_lookup
// list that still includes its reserved argument slot at index 0.
func anonymizeCaptureCount(captures []capKey) int {
	n := len(captures) - 1
	if n < 0 {
		n = 0
	}
	return n
}

// compiler threads the per-path lambda-id counter across the whole
// program: every lambda (including a definition's own top-level body)
// gets a fresh, definition-scoped sequence number.
type compiler struct {
	lambdaID map[string]int
}

func (c *compiler) nextLambdaID(path ast.Path) int {
	key := path.String()
	id := c.lambdaID[key]
	c.lambdaID[key] = id + 1
	return id
}

// Compile lowers a resolved HLIR program into MLIR.
func Compile(prog []ast.HStatement) ([]ast.MStatement, error) {
	c := &compiler{lambdaID: map[string]int{}}
	return c.visitProgram(prog)
}

func (c *compiler) visitProgram(prog []ast.HStatement) ([]ast.MStatement, error) {
	var out []ast.MStatement
	for _, stmt := range prog {
		stmts, err := c.visitStatement(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, stmts...)
	}
	return out, nil
}

func (c *compiler) visitStatement(stmt ast.HStatement) ([]ast.MStatement, error) {
	switch stmt.Kind {
	case ast.HStmtExternCrate:
		return []ast.MStatement{{Kind: ast.MStmtExternCrate, Name: stmt.Name}}, nil
	case ast.HStmtExtern:
		return []ast.MStatement{{Kind: ast.MStmtExtern, Name: stmt.Name}}, nil
	case ast.HStmtAssignment:
		return c.visitAssignment(stmt)
	case ast.HStmtAlias:
		return nil, nil
	default:
		return nil, fmt.Errorf("cps: unexpected HLIR statement encountered")
	}
}

func (c *compiler) visitAssignment(stmt ast.HStatement) ([]ast.MStatement, error) {
	ctx := newLambdaContext(stmt.Path, c.nextLambdaID(stmt.Path), nil)
	impl, _, err := c.visitBodyExpr(stmt.Value, ctx)
	if err != nil {
		return nil, err
	}

	inst := ast.Instance{Path: ast.InstancePath{Path: stmt.Path, ID: 0}, Impl: impl.Path}
	defi := ast.Definition{Path: stmt.Path, Inst: inst.Path, NeedsInit: true, IsPublic: stmt.IsPublic}

	out := make([]ast.MStatement, 0, len(ctx.impls)+2)
	for i := range ctx.impls {
		out = append(out, ast.MStatement{Kind: ast.MStmtImplementation, Implementation: &ctx.impls[i]})
	}
	out = append(out, ast.MStatement{Kind: ast.MStmtInstance, Instance: &inst})
	out = append(out, ast.MStatement{Kind: ast.MStmtDefinition, Definition: &defi})
	return out, nil
}

func (c *compiler) visitExpr(e ast.HExpr, ctx *lambdaContext) (valueLit, error) {
	switch e.Kind {
	case ast.HExprParen:
		return c.visitExpr(*e.Inner, ctx)
	case ast.HExprIdent:
		if indexOfString(ctx.scope, e.Name) >= 0 {
			return valueLit{kind: litNamedCapture, name: e.Name}, nil
		}
		return valueLit{kind: litExtern, name: e.Name}, nil
	case ast.HExprAbsolute:
		return valueLit{kind: litDefinition, path: e.Path}, nil
	case ast.HExprCall:
		return c.visitCall(e, ctx)
	case ast.HExprLambda:
		return c.visitLambda(e, ctx)
	default:
		return valueLit{}, fmt.Errorf("cps: unexpected HLIR expression encountered")
	}
}

func (c *compiler) visitCall(e ast.HExpr, ctx *lambdaContext) (valueLit, error) {
	fn, err := c.visitExpr(*e.Fn, ctx)
	if err != nil {
		return valueLit{}, err
	}
	arg, err := c.visitExpr(*e.Arg, ctx)
	if err != nil {
		return valueLit{}, err
	}
	res := ctx.tempCapture()
	param := ctx.serializedCallParam(res.id)
	ctx.calls = append(ctx.calls, serializedCall{fn: fn, arg: arg, res: res.id, param: param})
	return res, nil
}

func (c *compiler) visitLambda(e ast.HExpr, ctx *lambdaContext) (valueLit, error) {
	scope := make([]string, 0, len(ctx.scope)+1)
	scope = append(scope, e.Name)
	for _, s := range ctx.scope {
		if s != e.Name {
			scope = append(scope, s)
		}
	}

	subctx := newLambdaContext(ctx.path, c.nextLambdaID(ctx.path), scope)
	_, captures, err := c.visitBodyExpr(*e.Body, subctx)
	if err != nil {
		return valueLit{}, err
	}
	ctx.impls = append(ctx.impls, subctx.impls...)

	return valueLit{kind: litLambda, id: subctx.id, lambdaCaptures: captures}, nil
}

// visitBodyExpr serializes one lambda (or top-level definition) body into
// a chain of flat Implementations, the last of which is returned together
// with the names it closes over from the enclosing scope.
func (c *compiler) visitBodyExpr(e ast.HExpr, ctx *lambdaContext) (ast.Implementation, []string, error) {
	resultLit, err := c.visitExpr(e, ctx)
	if err != nil {
		return ast.Implementation{}, nil, err
	}
	resultParam := ctx.serializedCallParam(ctx.tempID)

	captures := map[capKey]bool{resultParam: true}
	visitLitCaptures(resultLit, captures)
	lookup := ctx.sortCaptures(captures)
	delete(captures, resultParam)

	if len(ctx.calls) == 0 {
		value, err := visitLitConvert(resultLit, lookup, ctx)
		if err != nil {
			return ast.Implementation{}, nil, err
		}
		ctx.impls = append(ctx.impls, ast.Implementation{
			Kind:     ast.ImplReturn,
			Path:     ast.ImplementationPath{Path: ctx.path, LambdaID: ctx.id, ContinuationID: 0},
			Captures: anonymizeCaptureCount(lookup),
			Value:    value,
		})
	}

	first := true
	prevCaptures := append([]capKey(nil), lookup[1:]...)
	for i := len(ctx.calls) - 1; i >= 0; i-- {
		call := ctx.calls[i]

		captures[call.param] = true
		visitLitCaptures(call.fn, captures)
		visitLitCaptures(call.arg, captures)
		lookup = ctx.sortCaptures(captures)
		delete(captures, call.param)

		path := ast.ImplementationPath{Path: ctx.path, LambdaID: ctx.id, ContinuationID: call.res}
		implCaptures := anonymizeCaptureCount(lookup)
		fn, err := visitLitConvert(call.fn, lookup, ctx)
		if err != nil {
			return ast.Implementation{}, nil, err
		}
		arg, err := visitLitConvert(call.arg, lookup, ctx)
		if err != nil {
			return ast.Implementation{}, nil, err
		}

		if first {
			ctx.impls = append(ctx.impls, ast.Implementation{
				Kind: ast.ImplTailCall, Path: path, Captures: implCaptures, Fn: fn, Arg: arg,
			})
		} else {
			cont := valueLit{kind: litContinuation, id: call.res + 1, contCaptures: prevCaptures}
			next, err := visitLitConvert(cont, lookup, ctx)
			if err != nil {
				return ast.Implementation{}, nil, err
			}
			ctx.impls = append(ctx.impls, ast.Implementation{
				Kind: ast.ImplContinueCall, Path: path, Captures: implCaptures, Fn: fn, Arg: arg, Next: next,
			})
		}

		first = false
		prevCaptures = append([]capKey(nil), lookup[1:]...)
	}

	lookup = ctx.sortCaptures(captures)
	names := make([]string, len(lookup))
	for i, k := range lookup {
		if k.isInt || k.isNone {
			return ast.Implementation{}, nil, fmt.Errorf("cps: internal invariant violated: non-name capture escaped a lambda body")
		}
		names[i] = k.name
	}

	return ctx.impls[len(ctx.impls)-1], names, nil
}

func visitLitCaptures(lit valueLit, captures map[capKey]bool) {
	switch lit.kind {
	case litExtern, litDefinition:
	case litNamedCapture:
		captures[nameKey(lit.name)] = true
	case litTempCapture:
		captures[intKey(lit.id)] = true
	case litLambda:
		for _, name := range lit.lambdaCaptures {
			captures[nameKey(name)] = true
		}
	}
}

func visitLitConvert(lit valueLit, captures []capKey, ctx *lambdaContext) (ast.ValueLiteral, error) {
	switch lit.kind {
	case litExtern:
		return ast.ValueLiteral{Kind: ast.VLitExtern, Name: lit.name}, nil
	case litDefinition:
		return ast.ValueLiteral{Kind: ast.VLitDefinition, DefPath: lit.path}, nil
	case litNamedCapture:
		idx := indexOfCapKey(captures, nameKey(lit.name))
		if idx < 0 {
			return ast.ValueLiteral{}, fmt.Errorf("cps: internal invariant violated: capture '%s' not found", lit.name)
		}
		return ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: idx}, nil
	case litTempCapture:
		idx := indexOfCapKey(captures, intKey(lit.id))
		if idx < 0 {
			return ast.ValueLiteral{}, fmt.Errorf("cps: internal invariant violated: temporary capture %d not found", lit.id)
		}
		return ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: idx}, nil
	case litLambda:
		refs := make([]ast.CaptureRef, len(lit.lambdaCaptures))
		for i, name := range lit.lambdaCaptures {
			idx := indexOfCapKey(captures, nameKey(name))
			if idx < 0 {
				return ast.ValueLiteral{}, fmt.Errorf("cps: internal invariant violated: lambda capture '%s' not found", name)
			}
			refs[i] = ast.CaptureRef{IsUpvalue: true, Index: idx}
		}
		return ast.ValueLiteral{
			Kind:     ast.VLitImplementation,
			Impl:     ast.ImplementationPath{Path: ctx.path, LambdaID: lit.id, ContinuationID: 0},
			Captures: refs,
		}, nil
	case litContinuation:
		refs := make([]ast.CaptureRef, len(lit.contCaptures))
		for i, key := range lit.contCaptures {
			idx := indexOfCapKey(captures, key)
			if idx < 0 {
				return ast.ValueLiteral{}, fmt.Errorf("cps: internal invariant violated: continuation capture not found")
			}
			refs[i] = ast.CaptureRef{IsUpvalue: true, Index: idx}
		}
		return ast.ValueLiteral{
			Kind:     ast.VLitImplementation,
			Impl:     ast.ImplementationPath{Path: ctx.path, LambdaID: ctx.id, ContinuationID: lit.id},
			Captures: refs,
		}, nil
	default:
		return ast.ValueLiteral{}, fmt.Errorf("cps: unexpected value literal encountered")
	}
}
