package mlirio

import (
	"fmt"
	"strconv"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// parser consumes a token stream and builds an MLIR statement list.
// Grounded on original_source's parse/mlir.py: every Path here is
// already absolute, and Definition/Instance/Implementation statements
// reference each other purely by path string, never by pointer.
type parser struct {
	file string
	toks []token
	pos  int
}

// Parse lexes and parses one MLIR source file into its statements.
func Parse(src, file string) ([]ast.MStatement, error) {
	toks, err := newLexer(src, file).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	return p.parseProgram()
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) drop() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) eat(typ tokenType) (token, error) {
	if p.cur().typ != typ {
		return token{}, p.errf("unexpected token %s", p.cur())
	}
	return p.drop(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	t := p.cur()
	return fmt.Errorf("parse error in file %s at line %d col %d: %s", p.file, t.line, t.col, fmt.Sprintf(format, args...))
}

func (p *parser) is(typ tokenType) bool { return p.cur().typ == typ }

func (p *parser) parseNumber() (int, error) {
	t, err := p.eat(tokNumber)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.val)
	if err != nil {
		return 0, p.errf("invalid number %q", t.val)
	}
	return n, nil
}

// parsePath parses an absolute "a::b::c" path. If first is non-empty it
// is used as the already-consumed leading identifier (the call site has
// already read one token of lookahead to decide between a path and some
// other production starting with the same identifier).
func (p *parser) parsePath(first string) (ast.Path, error) {
	components := []string{first}
	if first == "" {
		t, err := p.eat(tokIdent)
		if err != nil {
			return ast.Path{}, err
		}
		components[0] = t.val
	}
	for p.is(tokPathSep) {
		p.drop()
		c, err := p.eat(tokIdent)
		if err != nil {
			return ast.Path{}, err
		}
		components = append(components, c.val)
	}
	return ast.NewPath(components...), nil
}

// parseInstPath parses "PATH % N", reusing path if the path portion was
// already consumed by the caller's lookahead.
func (p *parser) parseInstPath(path *ast.Path) (ast.InstancePath, error) {
	var pp ast.Path
	var err error
	if path != nil {
		pp = *path
	} else {
		pp, err = p.parsePath("")
		if err != nil {
			return ast.InstancePath{}, err
		}
	}
	if _, err := p.eat(tokInstSep); err != nil {
		return ast.InstancePath{}, err
	}
	id, err := p.parseNumber()
	if err != nil {
		return ast.InstancePath{}, err
	}
	return ast.InstancePath{Path: pp, ID: id}, nil
}

// parseImplPath parses "PATH ! LAMBDA ! CONT".
func (p *parser) parseImplPath(path *ast.Path) (ast.ImplementationPath, error) {
	var pp ast.Path
	var err error
	if path != nil {
		pp = *path
	} else {
		pp, err = p.parsePath("")
		if err != nil {
			return ast.ImplementationPath{}, err
		}
	}
	if _, err := p.eat(tokImplSep); err != nil {
		return ast.ImplementationPath{}, err
	}
	lam, err := p.parseNumber()
	if err != nil {
		return ast.ImplementationPath{}, err
	}
	if _, err := p.eat(tokImplSep); err != nil {
		return ast.ImplementationPath{}, err
	}
	cont, err := p.parseNumber()
	if err != nil {
		return ast.ImplementationPath{}, err
	}
	return ast.ImplementationPath{Path: pp, LambdaID: lam, ContinuationID: cont}, nil
}

func (p *parser) parseExternCrate() (ast.MStatement, error) {
	if _, err := p.eat(tokCrate); err != nil {
		return ast.MStatement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.MStatement{}, err
	}
	return ast.MStatement{Kind: ast.MStmtExternCrate, Name: name.val}, nil
}

func (p *parser) parseExtern() (ast.MStatement, error) {
	if _, err := p.eat(tokExtern); err != nil {
		return ast.MStatement{}, err
	}
	if p.is(tokCrate) {
		return p.parseExternCrate()
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.MStatement{}, err
	}
	return ast.MStatement{Kind: ast.MStmtExtern, Name: name.val}, nil
}

func (p *parser) parseDefinition() (ast.MStatement, error) {
	isPublic := false
	if p.is(tokPub) {
		p.drop()
		isPublic = true
	}
	path, err := p.parsePath("")
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokAssign); err != nil {
		return ast.MStatement{}, err
	}
	inst, err := p.parseInstPath(nil)
	if err != nil {
		return ast.MStatement{}, err
	}
	needsInit := false
	if p.is(tokNullCall) {
		p.drop()
		needsInit = true
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.MStatement{}, err
	}
	defi := &ast.Definition{Path: path, Inst: inst, NeedsInit: needsInit, IsPublic: isPublic}
	return ast.MStatement{Kind: ast.MStmtDefinition, Definition: defi}, nil
}

func (p *parser) parseInstance() (ast.MStatement, error) {
	if _, err := p.eat(tokInst); err != nil {
		return ast.MStatement{}, err
	}
	instPath, err := p.parseInstPath(nil)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokAssign); err != nil {
		return ast.MStatement{}, err
	}
	implPath, err := p.parseImplPath(nil)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokCaptureOpen); err != nil {
		return ast.MStatement{}, err
	}
	var captures []ast.InstancePath
	for !p.is(tokCaptureClose) {
		c, err := p.parseInstPath(nil)
		if err != nil {
			return ast.MStatement{}, err
		}
		captures = append(captures, c)
	}
	if _, err := p.eat(tokCaptureClose); err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.MStatement{}, err
	}
	inst := &ast.Instance{Path: instPath, Impl: implPath, Captures: captures}
	return ast.MStatement{Kind: ast.MStmtInstance, Instance: inst}, nil
}

// parseValueLiteral parses one ValueLiteral: "$N" (Capture), a bare
// ident with no following "::" (Extern), or an absolute path optionally
// continued by "%N" (Instance), "!L!C[captures]" (Implementation), or
// left bare (Definition). Every capture id encountered, including ones
// nested inside a closure literal's capture list, is recorded in seen
// so the enclosing Implementation can recover its upvalue count, which
// the textual form never states directly.
func (p *parser) parseValueLiteral(seen map[int]bool) (ast.ValueLiteral, error) {
	if p.is(tokCapturePrefix) {
		p.drop()
		id, err := p.parseNumber()
		if err != nil {
			return ast.ValueLiteral{}, err
		}
		seen[id] = true
		return ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: id}, nil
	}

	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.ValueLiteral{}, err
	}
	if !p.is(tokPathSep) {
		return ast.ValueLiteral{Kind: ast.VLitExtern, Name: name.val}, nil
	}

	path, err := p.parsePath(name.val)
	if err != nil {
		return ast.ValueLiteral{}, err
	}

	switch {
	case p.is(tokInstSep):
		inst, err := p.parseInstPath(&path)
		if err != nil {
			return ast.ValueLiteral{}, err
		}
		return ast.ValueLiteral{Kind: ast.VLitInstance, Inst: inst}, nil
	case p.is(tokImplSep):
		impl, err := p.parseImplPath(&path)
		if err != nil {
			return ast.ValueLiteral{}, err
		}
		if _, err := p.eat(tokCaptureOpen); err != nil {
			return ast.ValueLiteral{}, err
		}
		var captures []ast.CaptureRef
		for !p.is(tokCaptureClose) {
			ref, err := p.parseCaptureRef(seen)
			if err != nil {
				return ast.ValueLiteral{}, err
			}
			captures = append(captures, ref)
		}
		if _, err := p.eat(tokCaptureClose); err != nil {
			return ast.ValueLiteral{}, err
		}
		return ast.ValueLiteral{Kind: ast.VLitImplementation, Impl: impl, Captures: captures}, nil
	default:
		return ast.ValueLiteral{Kind: ast.VLitDefinition, DefPath: path}, nil
	}
}

// parseCaptureRef parses one entry of an Implementation literal's
// capture list: "$N" (an upvalue threaded from the enclosing scope,
// recorded into seen) or an InstancePath (a value closed over directly,
// which contributes no upvalue slot to the enclosing Implementation).
func (p *parser) parseCaptureRef(seen map[int]bool) (ast.CaptureRef, error) {
	if p.is(tokCapturePrefix) {
		p.drop()
		id, err := p.parseNumber()
		if err != nil {
			return ast.CaptureRef{}, err
		}
		seen[id] = true
		return ast.CaptureRef{IsUpvalue: true, Index: id}, nil
	}
	inst, err := p.parseInstPath(nil)
	if err != nil {
		return ast.CaptureRef{}, err
	}
	return ast.CaptureRef{Inst: inst}, nil
}

func (p *parser) parseImplementation() (ast.MStatement, error) {
	if _, err := p.eat(tokImpl); err != nil {
		return ast.MStatement{}, err
	}
	implPath, err := p.parseImplPath(nil)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokAssign); err != nil {
		return ast.MStatement{}, err
	}

	seen := map[int]bool{}

	a, err := p.parseValueLiteral(seen)
	if err != nil {
		return ast.MStatement{}, err
	}

	if p.is(tokSemiColon) {
		p.drop()
		impl := &ast.Implementation{Kind: ast.ImplReturn, Path: implPath, Captures: upvalueCount(seen), Value: a}
		return ast.MStatement{Kind: ast.MStmtImplementation, Implementation: impl}, nil
	}

	b, err := p.parseValueLiteral(seen)
	if err != nil {
		return ast.MStatement{}, err
	}

	if p.is(tokSemiColon) {
		p.drop()
		impl := &ast.Implementation{Kind: ast.ImplTailCall, Path: implPath, Captures: upvalueCount(seen), Fn: a, Arg: b}
		return ast.MStatement{Kind: ast.MStmtImplementation, Implementation: impl}, nil
	}

	if _, err := p.eat(tokArrow); err != nil {
		return ast.MStatement{}, err
	}
	next, err := p.parseValueLiteral(seen)
	if err != nil {
		return ast.MStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.MStatement{}, err
	}
	impl := &ast.Implementation{Kind: ast.ImplContinueCall, Path: implPath, Captures: upvalueCount(seen), Fn: a, Arg: b, Next: next}
	return ast.MStatement{Kind: ast.MStmtImplementation, Implementation: impl}, nil
}

// upvalueCount returns the number of distinct non-argument capture slots
// referenced anywhere in an Implementation's body. Slot 0 is always the
// argument and is excluded, mirroring the OrderedSet.remove(0) step the
// reference implementation performs before counting.
func upvalueCount(seen map[int]bool) int {
	n := len(seen)
	if seen[0] {
		n--
	}
	return n
}

func (p *parser) parseStatement() (ast.MStatement, error) {
	switch {
	case p.is(tokExtern):
		return p.parseExtern()
	case p.is(tokInst):
		return p.parseInstance()
	case p.is(tokImpl):
		return p.parseImplementation()
	default:
		return p.parseDefinition()
	}
}

func (p *parser) parseProgram() ([]ast.MStatement, error) {
	var stmts []ast.MStatement
	for !p.is(tokEOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}
