// Package resolve turns a loaded crate tree (internal/loader) into a flat
// HLIR program: every name is resolved to an absolute Path, module
// boundaries are erased, and imports become Alias statements. Grounded on
// passes/lang/resolve.py's RootNamespace/ModuleNamespace namespace tree.
package resolve

import (
	"fmt"
	"sort"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

// Error reports a name-resolution failure: an undefined name, a private
// access, an impure use in a pure context, or a malformed import.
type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

type entryKind int

const (
	entryMod entryKind = iota
	entryAlias
	entryExtern
	entryDefinition
)

// entry is one namespace slot: a submodule, an import alias, an extern
// impure symbol, or a definition.
type entry struct {
	kind     entryKind
	path     ast.Path
	isPublic bool

	mod      *namespace // entryMod
	target   ast.Path   // entryAlias
	name     string     // entryExtern
	isImpure bool       // entryDefinition
}

// namespace is one module's (or crate root's) symbol table.
type namespace struct {
	root    *root
	parent  *namespace
	path    ast.Path
	src     string
	entries map[string]*entry
}

func (m *namespace) name() string {
	return m.path.Last()
}

func (m *namespace) getEntry(n string) (*entry, error) {
	e, ok := m.entries[n]
	if !ok {
		return nil, errf("'%s::%s' is undefined in %s", m.path, n, m.src)
	}
	return e, nil
}

func (m *namespace) insertEntry(n string, e *entry) error {
	if _, ok := m.entries[n]; ok {
		return errf("redefinition of '%s::%s' in %s", m.path, n, m.src)
	}
	m.entries[n] = e
	return nil
}

func (m *namespace) insertMod(name string, isPublic bool, src string) (*namespace, error) {
	sub := &namespace{root: m.root, parent: m, path: m.path.Join(name), src: src, entries: map[string]*entry{}}
	if err := m.insertEntry(name, &entry{kind: entryMod, path: sub.path, isPublic: isPublic, mod: sub}); err != nil {
		return nil, err
	}
	return sub, nil
}

func (m *namespace) insertAbsolute(path ast.Path, e *entry) error {
	name := path.Head()
	rest := path.Tail()
	if rest.Empty() {
		return m.insertEntry(name, e)
	}

	existing, ok := m.entries[name]
	if !ok {
		sub := &namespace{root: m.root, parent: m, path: m.path.Join(name), src: m.src, entries: map[string]*entry{}}
		existing = &entry{kind: entryMod, path: sub.path, isPublic: true, mod: sub}
		m.entries[name] = existing
	}
	if existing.kind != entryMod {
		return errf("'%s::%s' is not a module, cannot define '%s::%s' in it", m.path, name, m.path, path)
	}
	return existing.mod.insertAbsolute(rest, e)
}

// resolve resolves a path relative to this namespace, erroring on private
// access unless allowPrivate is set.
func (m *namespace) resolve(path ast.Path, allowPrivate bool) (*entry, error) {
	if path.Empty() {
		isPublic := true
		if m.parent != nil {
			isPublic = m.parent.entries[m.name()].isPublic
		}
		return &entry{kind: entryMod, path: m.path, isPublic: isPublic, mod: m}, nil
	}

	name := path.Head()
	rest := path.Tail()
	e, err := m.getEntry(name)
	if err != nil {
		return nil, err
	}
	if !allowPrivate && !e.isPublic {
		return nil, errf("cannot access private member '%s'", e.path)
	}

	if e.kind == entryAlias {
		e, err = m.root.resolveAbsolute(e.target, true)
		if err != nil {
			return nil, err
		}
	}

	if rest.Empty() {
		return e, nil
	}

	switch e.kind {
	case entryExtern:
		return nil, errf("cannot get member of non-module 'extern impure %s'", e.name)
	case entryDefinition:
		return nil, errf("cannot get member of non-module '%s'", e.path)
	case entryMod:
		return e.mod.resolve(rest, false)
	default:
		return nil, errf("unexpected entry type encountered")
	}
}

// root is the top-level namespace holding one entry per loaded crate.
type root struct {
	crates map[string]*namespace
}

func (r *root) insertCrate(name string, src string) *namespace {
	if m, ok := r.crates[name]; ok {
		return m
	}
	m := &namespace{root: r, path: ast.NewPath(name), src: src, entries: map[string]*entry{}}
	r.crates[name] = m
	return m
}

func (r *root) insertAbsolute(path ast.Path, e *entry) error {
	crateName := path.Head()
	crate, ok := r.crates[crateName]
	if !ok {
		return errf("'%s' is from an undeclared extern crate", path)
	}
	return crate.insertAbsolute(path.Tail(), e)
}

func (r *root) resolveAbsolute(path ast.Path, allowPrivate bool) (*entry, error) {
	crateName := path.Head()
	crate, ok := r.crates[crateName]
	if !ok {
		return nil, errf("'%s' is from an undeclared extern crate", path)
	}
	rest := path.Tail()
	if rest.Empty() {
		return &entry{kind: entryMod, path: crate.path, isPublic: true, mod: crate}, nil
	}
	return crate.resolve(rest, allowPrivate)
}

// resolveFromMod implements root.resolve(path, mod): crate/self/super
// prefixed relative paths, falling back to a plain absolute lookup.
func (r *root) resolveFromMod(path ast.Path, mod *namespace) (*entry, error) {
	prefix := path.Head()
	rest := path.Tail()

	switch prefix {
	case "self":
		return mod.resolve(rest, true)
	case "crate":
		crateName := mod.path.Head()
		return r.crates[crateName].resolve(rest, true)
	case "super":
		cur := mod
		for prefix == "super" {
			if cur.parent == nil {
				return nil, errf("crate root '%s' has no parent module", cur.path)
			}
			cur = cur.parent
			if rest.Empty() {
				return nil, errf("expected a path component after 'super'")
			}
			prefix = rest.Head()
			rest = rest.Tail()
		}
		return cur.resolve(ast.NewPath(prefix).JoinPath(rest), true)
	default:
		return r.resolveAbsolute(path, false)
	}
}

// exprContext tracks purity and the set of lambda-bound local names while
// resolving one expression tree.
type exprContext struct {
	isImpure bool
	locals   map[string]bool
}

func (c exprContext) withLocal(name string) exprContext {
	locals := make(map[string]bool, len(c.locals)+1)
	for k := range c.locals {
		locals[k] = true
	}
	locals[name] = true
	return exprContext{isImpure: c.isImpure, locals: locals}
}

// resolver carries the root namespace and the set of crates already
// visited, across the whole (possibly multi-crate) resolution pass.
type resolver struct {
	root *root
}

// Resolve flattens a loaded crate tree into a single HLIR program: module
// structure is erased, imports become Alias statements, and every name
// becomes an absolute Path.
func Resolve(crate *loader.Crate) ([]ast.HStatement, error) {
	r := &resolver{root: &root{crates: map[string]*namespace{}}}
	mod := r.root.insertCrate(crate.Name, crate.File.Src)
	return r.visitSourceFile(crate.Name, crate.File, mod)
}

func (r *resolver) visitSourceFile(crateName string, f *loader.SourceFile, mod *namespace) ([]ast.HStatement, error) {
	var prog []ast.HStatement
	for _, stmt := range f.Stmts {
		stmts, err := r.visitStatement(crateName, f, stmt, mod)
		if err != nil {
			return nil, err
		}
		prog = append(prog, stmts...)
	}
	return prog, nil
}

func (r *resolver) visitStatement(crateName string, f *loader.SourceFile, stmt ast.Statement, mod *namespace) ([]ast.HStatement, error) {
	switch stmt.Kind {
	case ast.StmtExternCrate:
		return r.visitExternCrate(f, stmt.Name, mod)
	case ast.StmtMod:
		sub := f.Mods[stmt.Name]
		ns, err := mod.insertMod(stmt.Name, stmt.IsPublic, sub.File.Src)
		if err != nil {
			return nil, err
		}
		return r.visitSourceFile(crateName, sub.File, ns)
	case ast.StmtExtern:
		if err := mod.insertEntry(stmt.Name, &entry{kind: entryExtern, path: mod.path.Join(stmt.Name), isPublic: false, name: stmt.Name}); err != nil {
			return nil, err
		}
		return []ast.HStatement{{Kind: ast.HStmtExtern, Name: stmt.Name}}, nil
	case ast.StmtImport:
		return r.visitImport(stmt, mod)
	case ast.StmtImportAll:
		return r.visitImportAll(stmt, mod)
	case ast.StmtAssignment:
		return r.visitAssignment(stmt, mod)
	default:
		return nil, errf("unexpected surface statement encountered")
	}
}

func (r *resolver) visitExternCrate(f *loader.SourceFile, name string, mod *namespace) ([]ast.HStatement, error) {
	if _, already := r.root.crates[name]; !already {
		sub := f.Crates[name]
		ns := r.root.insertCrate(name, sub.File.Src)
		if sub.File.IsStub {
			// A stub crate's HLIR paths are already absolute, so its
			// entries are inserted directly rather than resolved from
			// surface syntax; it contributes no statements of its own to
			// this crate's flattened program, only namespace entries for
			// its consumer to resolve against.
			if err := insertStubEntries(ns, sub.File.HLIR); err != nil {
				return nil, err
			}
		} else if _, err := r.visitSourceFile(name, sub.File, ns); err != nil {
			return nil, err
		}
	}
	return []ast.HStatement{{Kind: ast.HStmtExternCrate, Name: name}}, nil
}

// insertStubEntries populates a crate namespace from a parsed ".hlis"/
// ".hlir" interface file. Every path in stmts is already absolute (crate
// name first), so entries are inserted via insertAbsolute against the
// crate's root namespace rather than the single-component inserts
// visitAssignment/visitImport use for surface syntax. A stub crate is a
// resolve-only leaf: its own extern-crate statements, if any, are not
// represented here and are not re-resolved (see internal/loader's
// IsStub doc comment for the scope of this limitation).
func insertStubEntries(crateNS *namespace, stmts []ast.HStatement) error {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ast.HStmtExternCrate, ast.HStmtExtern:
			// Not part of the crate's public interface; nothing for a
			// consumer to look up.
		case ast.HStmtAssignment:
			e := &entry{kind: entryDefinition, path: stmt.Path, isPublic: stmt.IsPublic, isImpure: stmt.IsImpure}
			if err := crateNS.insertAbsolute(stmt.Path.Tail(), e); err != nil {
				return err
			}
		case ast.HStmtAlias:
			e := &entry{kind: entryAlias, path: stmt.Path, isPublic: stmt.IsPublic, target: stmt.Target}
			if err := crateNS.insertAbsolute(stmt.Path.Tail(), e); err != nil {
				return err
			}
		default:
			return errf("unexpected stub statement encountered")
		}
	}
	return nil
}

func (r *resolver) visitImport(stmt ast.Statement, mod *namespace) ([]ast.HStatement, error) {
	target, err := r.root.resolveFromMod(stmt.Path, mod)
	if err != nil {
		return nil, err
	}
	if err := mod.insertEntry(stmt.Name, &entry{kind: entryAlias, path: mod.path.Join(stmt.Name), isPublic: stmt.IsPublic, target: target.path}); err != nil {
		return nil, err
	}

	if target.kind != entryDefinition || !stmt.IsPublic {
		return nil, nil
	}
	if !target.isPublic {
		return nil, errf("cannot publicly export non-public definition '%s' as '%s'", target.path, mod.path.Join(stmt.Name))
	}
	return []ast.HStatement{{Kind: ast.HStmtAlias, Path: mod.path.Join(stmt.Name), Target: target.path, IsPublic: stmt.IsPublic}}, nil
}

func (r *resolver) visitImportAll(stmt ast.Statement, mod *namespace) ([]ast.HStatement, error) {
	target, err := r.root.resolveFromMod(stmt.Path, mod)
	if err != nil {
		return nil, err
	}
	if target.kind != entryMod {
		return nil, errf("cannot import all from non-module '%s'", target.path)
	}

	submod := target.mod
	allowPrivate := mod.path.IsInside(submod.path)

	names := make([]string, 0, len(submod.entries))
	for name := range submod.entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var aliases []ast.HStatement
	for _, name := range names {
		e := submod.entries[name]
		if !e.isPublic && !allowPrivate {
			continue
		}
		if !e.isPublic && stmt.IsPublic {
			continue
		}
		resolved := e
		if e.kind == entryAlias {
			resolved, err = mod.root.resolveAbsolute(e.target, true)
			if err != nil {
				return nil, err
			}
		}
		if err := mod.insertEntry(name, &entry{kind: entryAlias, path: mod.path.Join(name), isPublic: stmt.IsPublic, target: resolved.path}); err != nil {
			return nil, err
		}
		if resolved.kind == entryDefinition && stmt.IsPublic {
			aliases = append(aliases, ast.HStatement{Kind: ast.HStmtAlias, Path: mod.path.Join(name), Target: resolved.path, IsPublic: stmt.IsPublic})
		}
	}
	return aliases, nil
}

func (r *resolver) visitAssignment(stmt ast.Statement, mod *namespace) ([]ast.HStatement, error) {
	value, err := r.visitExpr(stmt.Value, mod, exprContext{isImpure: stmt.IsImpure})
	if err != nil {
		return nil, err
	}
	if err := mod.insertEntry(stmt.Name, &entry{kind: entryDefinition, path: mod.path.Join(stmt.Name), isPublic: stmt.IsPublic, isImpure: stmt.IsImpure}); err != nil {
		return nil, err
	}
	return []ast.HStatement{{Kind: ast.HStmtAssignment, Path: mod.path.Join(stmt.Name), IsPublic: stmt.IsPublic, IsImpure: stmt.IsImpure, Value: value}}, nil
}

func (r *resolver) visitExpr(e ast.Expr, mod *namespace, ctx exprContext) (ast.HExpr, error) {
	switch e.Kind {
	case ast.ExprParen:
		inner, err := r.visitExpr(*e.Inner, mod, ctx)
		if err != nil {
			return ast.HExpr{}, err
		}
		return ast.HExpr{Kind: ast.HExprParen, Inner: &inner}, nil
	case ast.ExprCall:
		fn, err := r.visitExpr(*e.Fn, mod, ctx)
		if err != nil {
			return ast.HExpr{}, err
		}
		arg, err := r.visitExpr(*e.Arg, mod, ctx)
		if err != nil {
			return ast.HExpr{}, err
		}
		return ast.HExpr{Kind: ast.HExprCall, Fn: &fn, Arg: &arg}, nil
	case ast.ExprIdent:
		return r.visitIdent(e.Name, mod, ctx)
	case ast.ExprRelative:
		return r.visitRelativePath(e.Path, mod, ctx)
	case ast.ExprLambda:
		sub := ctx.withLocal(e.Name)
		body, err := r.visitExpr(*e.Body, mod, sub)
		if err != nil {
			return ast.HExpr{}, err
		}
		return ast.HExpr{Kind: ast.HExprLambda, Name: e.Name, Body: &body}, nil
	default:
		return ast.HExpr{}, errf("unexpected surface expression encountered")
	}
}

func (r *resolver) visitIdent(name string, mod *namespace, ctx exprContext) (ast.HExpr, error) {
	if ctx.locals[name] {
		return ast.HExpr{Kind: ast.HExprIdent, Name: name}, nil
	}

	e, err := mod.resolve(ast.NewPath(name), true)
	if err != nil {
		return ast.HExpr{}, err
	}
	switch e.kind {
	case entryExtern:
		if !ctx.isImpure {
			return ast.HExpr{}, errf("cannot use 'extern impure %s' in pure context", e.name)
		}
		return ast.HExpr{Kind: ast.HExprIdent, Name: e.name}, nil
	case entryDefinition:
		if e.isImpure && !ctx.isImpure {
			return ast.HExpr{}, errf("cannot use impure definition '%s' in pure context", e.path)
		}
		return ast.HExpr{Kind: ast.HExprAbsolute, Path: e.path}, nil
	default:
		return ast.HExpr{}, errf("unexpected entry type encountered for '%s'", name)
	}
}

func (r *resolver) visitRelativePath(path ast.Path, mod *namespace, ctx exprContext) (ast.HExpr, error) {
	target, err := r.root.resolveFromMod(path, mod)
	if err != nil {
		return ast.HExpr{}, err
	}
	if target.kind != entryDefinition {
		return ast.HExpr{}, errf("cannot use non-definition '%s' in an expression", target.path)
	}
	if target.isImpure && !ctx.isImpure {
		return ast.HExpr{}, errf("cannot use impure definition '%s' in pure context", target.path)
	}
	return ast.HExpr{Kind: ast.HExprAbsolute, Path: target.path}, nil
}
