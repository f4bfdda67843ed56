package frontend

import (
	"fmt"
	"strconv"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// parser consumes a token stream and builds a surface AST, one statement
// at a time, matching the grammar in parser.py/lang.py/path.py: relative
// paths of crate/self/super/ident components, lambda chains built by
// left-associative application, and a handful of module-level statement
// forms (extern crate, extern impure, use, mod, pub? impure? name = expr;).
type parser struct {
	file string
	toks []token
	pos  int
}

// Parse lexes and parses one source file into its surface-level statements.
func Parse(src, file string) ([]ast.Statement, error) {
	toks, err := newLexer(src, file).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{file: file, toks: toks}
	return p.parseProgram()
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

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

func (p *parser) is(typ tokenType) bool {
	return p.cur().typ == typ
}

// --- paths ---

func (p *parser) parseRelativePathComponent(first, allowSuper bool) (string, error) {
	switch {
	case p.is(tokIdent):
		return p.drop().val, nil
	case first && p.is(tokCrate):
		return p.drop().val, nil
	case first && p.is(tokSelf):
		return p.drop().val, nil
	case allowSuper && p.is(tokSuper):
		return p.drop().val, nil
	default:
		return "", p.errf("expected path component, got %s", p.cur())
	}
}

func (p *parser) parseRelativePath(base string) (ast.Path, error) {
	first, allowSuper := base == "", true
	var components []string
	if base != "" {
		components = append(components, base)
		first = false
	} else {
		c, err := p.parseRelativePathComponent(true, true)
		if err != nil {
			return ast.Path{}, err
		}
		components = append(components, c)
	}
	for p.is(tokPathSep) {
		p.drop()
		allowSuper = allowSuper && components[len(components)-1] == "super"
		c, err := p.parseRelativePathComponent(first, allowSuper)
		if err != nil {
			return ast.Path{}, err
		}
		components = append(components, c)
		first = false
	}
	return ast.NewPath(components...), nil
}

// parseRelativePathAll parses a relative path, allowing a trailing "::*".
func (p *parser) parseRelativePathAll(base string) (ast.Path, bool, error) {
	first, allowSuper := base == "", true
	var components []string
	if base != "" {
		components = append(components, base)
		first = false
	} else {
		c, err := p.parseRelativePathComponent(true, true)
		if err != nil {
			return ast.Path{}, false, err
		}
		components = append(components, c)
	}
	for p.is(tokPathSep) {
		p.drop()
		if p.is(tokAll) {
			p.drop()
			return ast.NewPath(components...), true, nil
		}
		allowSuper = allowSuper && components[len(components)-1] == "super"
		c, err := p.parseRelativePathComponent(first, allowSuper)
		if err != nil {
			return ast.Path{}, false, err
		}
		components = append(components, c)
		first = false
	}
	return ast.NewPath(components...), false, nil
}

// --- expressions ---

func (p *parser) isNumber() bool {
	if !p.is(tokIdent) {
		return false
	}
	_, err := strconv.Atoi(p.cur().val)
	return err == nil
}

func (p *parser) parseParen() (ast.Expr, error) {
	chain, err := p.parseChain()
	if err != nil {
		return ast.Expr{}, err
	}
	if _, err := p.eat(tokParenClose); err != nil {
		return ast.Expr{}, err
	}
	return ast.Expr{Kind: ast.ExprParen, Inner: &chain}, nil
}

func (p *parser) parseMacro() (ast.Expr, error) {
	if _, err := p.eat(tokImplSep); err != nil {
		return ast.Expr{}, err
	}
	switch {
	case p.is(tokString):
		s, err := unquoteString(p.drop().val)
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Kind: ast.ExprMacroString, StringValue: s}, nil
	case p.is(tokChar):
		c, err := unquoteChar(p.drop().val)
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Kind: ast.ExprMacroChar, CharValue: c}, nil
	case p.isNumber():
		n, err := strconv.Atoi(p.drop().val)
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Kind: ast.ExprMacroNumber, NumberValue: n}, nil
	default:
		return ast.Expr{}, p.errf("expected string, char, or number macro, got %s", p.cur())
	}
}

func (p *parser) parseExpr() (ast.Expr, error) {
	switch {
	case p.is(tokParenOpen):
		p.drop()
		return p.parseParen()
	case p.is(tokIdent):
		name := p.drop().val
		switch {
		case p.is(tokPathSep):
			path, err := p.parseRelativePath(name)
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprRelative, Path: path}, nil
		case p.is(tokArrow):
			p.drop()
			body, err := p.parseChain()
			if err != nil {
				return ast.Expr{}, err
			}
			return ast.Expr{Kind: ast.ExprLambda, Name: name, Body: &body}, nil
		default:
			return ast.Expr{Kind: ast.ExprIdent, Name: name}, nil
		}
	case p.is(tokImplSep):
		return p.parseMacro()
	case p.is(tokCrate), p.is(tokSuper), p.is(tokSelf):
		path, err := p.parseRelativePath("")
		if err != nil {
			return ast.Expr{}, err
		}
		return ast.Expr{Kind: ast.ExprRelative, Path: path}, nil
	default:
		return ast.Expr{}, p.errf("expected expression, got %s", p.cur())
	}
}

// parseChain parses a left-associative application chain: e1 e2 e3 ...
// desugars to Call(Call(e1, e2), e3).
func (p *parser) parseChain() (ast.Expr, error) {
	prev, err := p.parseExpr()
	if err != nil {
		return ast.Expr{}, err
	}
	for !p.is(tokParenClose) && !p.is(tokSemiColon) {
		next, err := p.parseExpr()
		if err != nil {
			return ast.Expr{}, err
		}
		fn, arg := prev, next
		prev = ast.Expr{Kind: ast.ExprCall, Fn: &fn, Arg: &arg}
	}
	return prev, nil
}

// --- statements ---

func (p *parser) parseAssignment(isPublic bool) (ast.Statement, error) {
	isImpure := false
	if p.is(tokImpure) {
		p.drop()
		isImpure = true
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.eat(tokAssign); err != nil {
		return ast.Statement{}, err
	}
	value, err := p.parseChain()
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{
		Kind:     ast.StmtAssignment,
		Name:     name.val,
		IsPublic: isPublic,
		IsImpure: isImpure,
		Value:    value,
	}, nil
}

func (p *parser) parseImport(isPublic bool) (ast.Statement, error) {
	if _, err := p.eat(tokUse); err != nil {
		return ast.Statement{}, err
	}
	path, isAll, err := p.parseRelativePathAll("")
	if err != nil {
		return ast.Statement{}, err
	}
	if isAll {
		if _, err := p.eat(tokSemiColon); err != nil {
			return ast.Statement{}, err
		}
		return ast.Statement{Kind: ast.StmtImportAll, Path: path, IsPublic: isPublic}, nil
	}
	name := path.Last()
	if p.is(tokAs) {
		p.drop()
		n, err := p.eat(tokIdent)
		if err != nil {
			return ast.Statement{}, err
		}
		name = n.val
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtImport, Name: name, Path: path, IsPublic: isPublic}, nil
}

func (p *parser) parseMod(isPublic bool) (ast.Statement, error) {
	if _, err := p.eat(tokMod); err != nil {
		return ast.Statement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtMod, Name: name.val, IsPublic: isPublic}, nil
}

func (p *parser) parseExternCrate() (ast.Statement, error) {
	if _, err := p.eat(tokCrate); err != nil {
		return ast.Statement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtExternCrate, Name: name.val}, nil
}

func (p *parser) parseExternImpure() (ast.Statement, error) {
	if _, err := p.eat(tokImpure); err != nil {
		return ast.Statement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.Statement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.Statement{}, err
	}
	return ast.Statement{Kind: ast.StmtExtern, Name: name.val}, nil
}

func (p *parser) parseExtern() (ast.Statement, error) {
	if _, err := p.eat(tokExtern); err != nil {
		return ast.Statement{}, err
	}
	switch {
	case p.is(tokCrate):
		return p.parseExternCrate()
	case p.is(tokImpure):
		return p.parseExternImpure()
	default:
		return ast.Statement{}, p.errf("expected 'crate' or 'impure' after 'extern', got %s", p.cur())
	}
}

func (p *parser) parseStatement() (ast.Statement, error) {
	if p.is(tokExtern) {
		return p.parseExtern()
	}
	isPublic := false
	if p.is(tokPub) {
		p.drop()
		isPublic = true
	}
	switch {
	case p.is(tokUse):
		return p.parseImport(isPublic)
	case p.is(tokMod):
		return p.parseMod(isPublic)
	default:
		return p.parseAssignment(isPublic)
	}
}

func (p *parser) parseProgram() ([]ast.Statement, error) {
	var stmts []ast.Statement
	for !p.is(tokEOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}
