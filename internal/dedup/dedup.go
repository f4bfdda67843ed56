// Package dedup structurally deduplicates an MLIR program: any two
// Instances (or Implementations) that are bit-for-bit equivalent once
// their own dependencies are canonicalized collapse to one, and anything
// left unreachable after collapsing is dropped. Grounded on
// passes/mlir/dedup.py's DedupMLIRContext. Fingerprints are built
// bottom-up over a retry work-queue rather than a topological sort,
// because an Instance's hash depends on its Implementation's hash and on
// every captured Instance's hash, and those can appear later in program
// order than their users.
package dedup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// Error reports a dedup-phase failure: an internal cycle that never
// resolves, or a replace/instantiate call against an unknown reference.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// errNotYetSeen signals that a fingerprint can't be computed yet because one
// of its dependencies hasn't been fingerprinted itself. It is never
// returned to callers outside this package; the retry queue in
// Deduplicate absorbs it.
var errNotYetSeen = errf("dedup: not yet seen")

// Context accumulates structural fingerprints as an MLIR program is
// processed, and the canonical (first-seen) statement for each distinct
// fingerprint.
type Context struct {
	externCrates []string
	externSeen   map[string]bool
	externs      []string
	externsSeen  map[string]bool

	implementations []*ast.Implementation
	instances       []*ast.Instance
	definitions     []*ast.Definition

	instHash  map[string]string
	implHash  map[string]string
	instDedup map[string]*ast.Instance
	implDedup map[string]*ast.Implementation

	instByPath map[string]*ast.Instance
	implByPath map[string]*ast.Implementation
}

// NewContext returns an empty dedup context.
func NewContext() *Context {
	return &Context{
		externSeen:  map[string]bool{},
		externsSeen: map[string]bool{},
		instHash:    map[string]string{},
		implHash:    map[string]string{},
		instDedup:   map[string]*ast.Instance{},
		implDedup:   map[string]*ast.Implementation{},
		instByPath:  map[string]*ast.Instance{},
		implByPath:  map[string]*ast.Implementation{},
	}
}

// Build constructs a Context and deduplicates prog into it.
func Build(prog []ast.MStatement) (*Context, error) {
	ctx := NewContext()
	ctx.index(prog)
	if err := ctx.Deduplicate(prog); err != nil {
		return nil, err
	}
	return ctx, nil
}

// index registers every Instance/Implementation by path so captures and
// cross-references (given only as InstancePath/ImplementationPath values)
// can be resolved back to their owning statement during fingerprinting,
// and so callers like internal/partial can look a path back up to its
// statement without keeping a second registry of their own.
func (c *Context) index(prog []ast.MStatement) {
	for i := range prog {
		switch prog[i].Kind {
		case ast.MStmtInstance:
			c.instByPath[prog[i].Instance.Path.String()] = prog[i].Instance
		case ast.MStmtImplementation:
			c.implByPath[prog[i].Implementation.Path.String()] = prog[i].Implementation
		}
	}
}

// LookupImplementation returns the statement registered for path, if any.
func (c *Context) LookupImplementation(path ast.ImplementationPath) (*ast.Implementation, bool) {
	impl, ok := c.implByPath[path.String()]
	return impl, ok
}

// LookupInstance returns the statement registered for path, if any.
func (c *Context) LookupInstance(path ast.InstancePath) (*ast.Instance, bool) {
	inst, ok := c.instByPath[path.String()]
	return inst, ok
}

func (c *Context) dedupInst(path ast.InstancePath) (*ast.Instance, string, error) {
	hash, ok := c.instHash[path.String()]
	if !ok {
		return nil, "", errNotYetSeen
	}
	return c.instDedup[hash], hash, nil
}

func (c *Context) dedupImpl(path ast.ImplementationPath) (*ast.Implementation, string, error) {
	hash, ok := c.implHash[path.String()]
	if !ok {
		return nil, "", errNotYetSeen
	}
	return c.implDedup[hash], hash, nil
}

func (c *Context) hashDef(defi *ast.Definition) (string, error) {
	canon, instHash, err := c.dedupInst(defi.Inst)
	if err != nil {
		return "", err
	}
	defi.Inst = canon.Path
	return "def:" + instHash, nil
}

func (c *Context) hashInst(inst *ast.Instance) (string, error) {
	canonImpl, implHash, err := c.dedupImpl(inst.Impl)
	if err != nil {
		return "", err
	}

	captures := make([]ast.InstancePath, len(inst.Captures))
	hashes := make([]string, len(inst.Captures))
	for i, capPath := range inst.Captures {
		canonCap, h, err := c.dedupInst(capPath)
		if err != nil {
			return "", err
		}
		captures[i] = canonCap.Path
		hashes[i] = h
	}
	inst.Impl = canonImpl.Path
	inst.Captures = captures
	return "inst:" + implHash + ":" + strings.Join(hashes, ","), nil
}

func (c *Context) hashImpl(impl *ast.Implementation) (string, error) {
	switch impl.Kind {
	case ast.ImplReturn:
		v, err := c.hashLiteral(&impl.Value)
		if err != nil {
			return "", err
		}
		return "ret:" + v, nil
	case ast.ImplTailCall:
		f, err := c.hashLiteral(&impl.Fn)
		if err != nil {
			return "", err
		}
		a, err := c.hashLiteral(&impl.Arg)
		if err != nil {
			return "", err
		}
		return "tail:" + f + ":" + a, nil
	case ast.ImplContinueCall:
		f, err := c.hashLiteral(&impl.Fn)
		if err != nil {
			return "", err
		}
		a, err := c.hashLiteral(&impl.Arg)
		if err != nil {
			return "", err
		}
		n, err := c.hashLiteral(&impl.Next)
		if err != nil {
			return "", err
		}
		return "cont:" + f + ":" + a + ":" + n, nil
	default:
		return "", errf("dedup: unexpected implementation kind encountered")
	}
}

// hashLiteral fingerprints a ValueLiteral, canonicalizing in place any
// Instance/Implementation reference it carries.
func (c *Context) hashLiteral(lit *ast.ValueLiteral) (string, error) {
	switch lit.Kind {
	case ast.VLitCapture:
		return "cap:" + strconv.Itoa(lit.CaptureID), nil
	case ast.VLitExtern:
		return "extern:" + lit.Name, nil
	case ast.VLitDefinition:
		return "def:" + lit.DefPath.String(), nil
	case ast.VLitInstance:
		canon, h, err := c.dedupInst(lit.Inst)
		if err != nil {
			return "", err
		}
		lit.Inst = canon.Path
		return "inst:" + h, nil
	case ast.VLitImplementation:
		canon, h, err := c.dedupImpl(lit.Impl)
		if err != nil {
			return "", err
		}
		lit.Impl = canon.Path

		parts := make([]string, len(lit.Captures))
		for i, cap := range lit.Captures {
			if cap.IsUpvalue {
				parts[i] = "up:" + strconv.Itoa(cap.Index)
				continue
			}
			canonCap, hCap, err := c.dedupInst(cap.Inst)
			if err != nil {
				return "", err
			}
			lit.Captures[i].Inst = canonCap.Path
			parts[i] = "inst:" + hCap
		}
		return "impl:" + h + ":" + strings.Join(parts, ","), nil
	default:
		return "", errf("dedup: unexpected value literal kind encountered")
	}
}

func (c *Context) insertImpl(impl *ast.Implementation, hash string) {
	c.implHash[impl.Path.String()] = hash
	c.implByPath[impl.Path.String()] = impl
	if _, ok := c.implDedup[hash]; !ok {
		c.implDedup[hash] = impl
		c.implementations = append(c.implementations, impl)
	}
}

func (c *Context) insertInst(inst *ast.Instance, hash string) {
	c.instHash[inst.Path.String()] = hash
	c.instByPath[inst.Path.String()] = inst
	if _, ok := c.instDedup[hash]; !ok {
		c.instDedup[hash] = inst
		c.instances = append(c.instances, inst)
	}
}

func (c *Context) insertDef(defi *ast.Definition) {
	c.definitions = append(c.definitions, defi)
}

func (c *Context) insertCrate(name string) {
	if !c.externSeen[name] {
		c.externSeen[name] = true
		c.externCrates = append(c.externCrates, name)
	}
}

func (c *Context) insertExtern(name string) {
	if !c.externsSeen[name] {
		c.externsSeen[name] = true
		c.externs = append(c.externs, name)
	}
}

// Deduplicate fingerprints every statement in prog, retrying any statement
// whose dependencies aren't fingerprinted yet until the whole set
// converges.
func (c *Context) Deduplicate(prog []ast.MStatement) error {
	queue := make([]ast.MStatement, len(prog))
	copy(queue, prog)

	for len(queue) > 0 {
		var remaining []ast.MStatement
		progressed := false

		for _, stmt := range queue {
			hash, err := c.hashStatement(stmt)
			if err == errNotYetSeen {
				remaining = append(remaining, stmt)
				continue
			}
			if err != nil {
				return err
			}
			progressed = true
			c.insertStatement(stmt, hash)
		}

		if !progressed {
			return errf("dedup: %d statement(s) never resolved (cyclic or dangling reference)", len(remaining))
		}
		queue = remaining
	}
	return nil
}

func (c *Context) hashStatement(stmt ast.MStatement) (string, error) {
	switch stmt.Kind {
	case ast.MStmtExternCrate:
		return "crate:" + stmt.Name, nil
	case ast.MStmtExtern:
		return "extern:" + stmt.Name, nil
	case ast.MStmtImplementation:
		return c.hashImpl(stmt.Implementation)
	case ast.MStmtInstance:
		return c.hashInst(stmt.Instance)
	case ast.MStmtDefinition:
		return c.hashDef(stmt.Definition)
	default:
		return "", errf("dedup: unexpected statement kind encountered")
	}
}

func (c *Context) insertStatement(stmt ast.MStatement, hash string) {
	switch stmt.Kind {
	case ast.MStmtExternCrate:
		c.insertCrate(stmt.Name)
	case ast.MStmtExtern:
		c.insertExtern(stmt.Name)
	case ast.MStmtImplementation:
		c.insertImpl(stmt.Implementation, hash)
	case ast.MStmtInstance:
		c.insertInst(stmt.Instance, hash)
	case ast.MStmtDefinition:
		c.insertDef(stmt.Definition)
	}
}

// DedupNewInstance fingerprints and inserts a freshly created Instance
// (produced by internal/partial while instantiating a zero-capture
// closure), returning its canonical form. Every dependency of inst must
// already be fingerprinted.
func (c *Context) DedupNewInstance(inst *ast.Instance) (*ast.Instance, error) {
	hash, err := c.hashInst(inst)
	if err != nil {
		return nil, errf("dedup: cannot deduplicate new instance, dependencies unknown")
	}
	c.insertInst(inst, hash)
	return c.instDedup[hash], nil
}

// Collect returns every retained statement in emission order: extern
// crates, externs, definitions, implementations, then instances.
func (c *Context) Collect() []ast.MStatement {
	var out []ast.MStatement
	for _, name := range c.externCrates {
		out = append(out, ast.MStatement{Kind: ast.MStmtExternCrate, Name: name})
	}
	for _, name := range c.externs {
		out = append(out, ast.MStatement{Kind: ast.MStmtExtern, Name: name})
	}
	for _, d := range c.definitions {
		out = append(out, ast.MStatement{Kind: ast.MStmtDefinition, Definition: d})
	}
	for _, i := range c.implementations {
		out = append(out, ast.MStatement{Kind: ast.MStmtImplementation, Implementation: i})
	}
	for _, i := range c.instances {
		out = append(out, ast.MStatement{Kind: ast.MStmtInstance, Instance: i})
	}
	return out
}

// TreeShake walks every Definition's reachable Instances/Implementations
// and externs, drops anything unreachable, and renumbers the surviving
// Instances of each path to a dense 0-based sequence. deps holds
// statements from an already-linked dependency crate that must be treated
// as already present (and so never re-emitted).
func (c *Context) TreeShake(deps []ast.MStatement) []ast.MStatement {
	depSet := map[interface{}]bool{}
	for i := range deps {
		switch deps[i].Kind {
		case ast.MStmtDefinition:
			depSet[deps[i].Definition] = true
		case ast.MStmtInstance:
			depSet[deps[i].Instance] = true
		case ast.MStmtImplementation:
			depSet[deps[i].Implementation] = true
		}
	}

	seenDef := map[*ast.Definition]bool{}
	seenInst := map[*ast.Instance]bool{}
	seenImpl := map[*ast.Implementation]bool{}
	seenExtern := map[string]bool{}

	var prog []ast.MStatement

	var visitInst func(inst *ast.Instance)
	var visitImpl func(impl *ast.Implementation)
	var visitLit func(lit *ast.ValueLiteral)

	visitDef := func(defi *ast.Definition) {
		if depSet[defi] || seenDef[defi] {
			return
		}
		seenDef[defi] = true

		canon, _, err := c.dedupInst(defi.Inst)
		if err == nil {
			defi.Inst = canon.Path
			visitInst(canon)
		}
		prog = append(prog, ast.MStatement{Kind: ast.MStmtDefinition, Definition: defi})
	}

	visitInst = func(inst *ast.Instance) {
		if depSet[inst] || seenInst[inst] {
			return
		}
		seenInst[inst] = true

		if canon, _, err := c.dedupImpl(inst.Impl); err == nil {
			inst.Impl = canon.Path
			visitImpl(canon)
		}
		for i, capPath := range inst.Captures {
			if canon, _, err := c.dedupInst(capPath); err == nil {
				inst.Captures[i] = canon.Path
				visitInst(canon)
			}
		}
		prog = append(prog, ast.MStatement{Kind: ast.MStmtInstance, Instance: inst})
	}

	visitImpl = func(impl *ast.Implementation) {
		if canon, _, err := c.dedupImpl(impl.Path); err == nil {
			impl = canon
		}
		if depSet[impl] || seenImpl[impl] {
			return
		}
		seenImpl[impl] = true

		switch impl.Kind {
		case ast.ImplReturn:
			visitLit(&impl.Value)
		case ast.ImplTailCall:
			visitLit(&impl.Fn)
			visitLit(&impl.Arg)
		case ast.ImplContinueCall:
			visitLit(&impl.Fn)
			visitLit(&impl.Arg)
			visitLit(&impl.Next)
		}
		prog = append(prog, ast.MStatement{Kind: ast.MStmtImplementation, Implementation: impl})
	}

	visitLit = func(lit *ast.ValueLiteral) {
		switch lit.Kind {
		case ast.VLitDefinition:
			// Definitions referenced only by path here are resolved by
			// the caller providing the full definition set up front;
			// internal/partial already rewrites resolved DefinitionLiterals
			// into InstanceLiterals before dedup ever sees them in practice.
		case ast.VLitInstance:
			if canon, _, err := c.dedupInst(lit.Inst); err == nil {
				lit.Inst = canon.Path
				visitInst(canon)
			}
		case ast.VLitImplementation:
			if canon, _, err := c.dedupImpl(lit.Impl); err == nil {
				lit.Impl = canon.Path
				visitImpl(canon)
			}
			for i, cap := range lit.Captures {
				if !cap.IsUpvalue {
					if canon, _, err := c.dedupInst(cap.Inst); err == nil {
						lit.Captures[i].Inst = canon.Path
						visitInst(canon)
					}
				}
			}
		case ast.VLitExtern:
			if !seenExtern[lit.Name] {
				seenExtern[lit.Name] = true
				prog = append(prog, ast.MStatement{Kind: ast.MStmtExtern, Name: lit.Name})
			}
		}
	}

	for _, name := range c.externCrates {
		prog = append(prog, ast.MStatement{Kind: ast.MStmtExternCrate, Name: name})
	}
	for _, defi := range c.definitions {
		visitDef(defi)
	}

	counter := map[string]int{}
	for i := range prog {
		if prog[i].Kind != ast.MStmtInstance {
			continue
		}
		key := prog[i].Instance.Path.Path.String()
		prog[i].Instance.Path = ast.InstancePath{Path: prog[i].Instance.Path.Path, ID: counter[key]}
		counter[key]++
	}
	return prog
}
