package hlirio

import (
	"fmt"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// parser consumes a token stream and builds an HLIR statement list. Unlike
// internal/frontend's surface parser, every path here is already absolute
// (no crate/self/super prefixes, no macros) and an expression body may be
// the "..." stub placeholder.
type parser struct {
	file string
	toks []token
	pos  int
}

// Parse lexes and parses one HLIR/HLIS source file into its statements.
func Parse(src, file string) ([]ast.HStatement, error) {
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

func (p *parser) parsePath() (ast.Path, error) {
	first, err := p.eat(tokIdent)
	if err != nil {
		return ast.Path{}, err
	}
	components := []string{first.val}
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

func (p *parser) parseExpr() (ast.HExpr, error) {
	switch {
	case p.is(tokEllipsis):
		p.drop()
		return ast.HExpr{Kind: ast.HExprEllipsis}, nil
	case p.is(tokParenOpen):
		p.drop()
		inner, err := p.parseChain()
		if err != nil {
			return ast.HExpr{}, err
		}
		if _, err := p.eat(tokParenClose); err != nil {
			return ast.HExpr{}, err
		}
		return ast.HExpr{Kind: ast.HExprParen, Inner: &inner}, nil
	case p.is(tokIdent):
		name := p.drop().val
		switch {
		case p.is(tokPathSep):
			components := []string{name}
			for p.is(tokPathSep) {
				p.drop()
				c, err := p.eat(tokIdent)
				if err != nil {
					return ast.HExpr{}, err
				}
				components = append(components, c.val)
			}
			return ast.HExpr{Kind: ast.HExprAbsolute, Path: ast.NewPath(components...)}, nil
		case p.is(tokArrow):
			p.drop()
			body, err := p.parseChain()
			if err != nil {
				return ast.HExpr{}, err
			}
			return ast.HExpr{Kind: ast.HExprLambda, Name: name, Body: &body}, nil
		default:
			return ast.HExpr{Kind: ast.HExprIdent, Name: name}, nil
		}
	default:
		return ast.HExpr{}, p.errf("expected expression, got %s", p.cur())
	}
}

// parseChain parses a left-associative application chain: e1 e2 e3 ...
func (p *parser) parseChain() (ast.HExpr, error) {
	prev, err := p.parseExpr()
	if err != nil {
		return ast.HExpr{}, err
	}
	for !p.is(tokParenClose) && !p.is(tokSemiColon) {
		next, err := p.parseExpr()
		if err != nil {
			return ast.HExpr{}, err
		}
		fn, arg := prev, next
		prev = ast.HExpr{Kind: ast.HExprCall, Fn: &fn, Arg: &arg}
	}
	return prev, nil
}

func (p *parser) parseExternCrate() (ast.HStatement, error) {
	if _, err := p.eat(tokCrate); err != nil {
		return ast.HStatement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.HStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.HStatement{}, err
	}
	return ast.HStatement{Kind: ast.HStmtExternCrate, Name: name.val}, nil
}

func (p *parser) parseExternImpure() (ast.HStatement, error) {
	if _, err := p.eat(tokImpure); err != nil {
		return ast.HStatement{}, err
	}
	name, err := p.eat(tokIdent)
	if err != nil {
		return ast.HStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.HStatement{}, err
	}
	return ast.HStatement{Kind: ast.HStmtExtern, Name: name.val}, nil
}

func (p *parser) parseExtern() (ast.HStatement, error) {
	if _, err := p.eat(tokExtern); err != nil {
		return ast.HStatement{}, err
	}
	switch {
	case p.is(tokCrate):
		return p.parseExternCrate()
	case p.is(tokImpure):
		return p.parseExternImpure()
	default:
		return ast.HStatement{}, p.errf("expected 'crate' or 'impure' after 'extern', got %s", p.cur())
	}
}

// parseAssignOrAlias parses "pub? impure? PATH = EXPR ;" or
// "pub PATH = use PATH ;".
func (p *parser) parseAssignOrAlias(isPublic bool) (ast.HStatement, error) {
	isImpure := false
	if p.is(tokImpure) {
		p.drop()
		isImpure = true
	}
	path, err := p.parsePath()
	if err != nil {
		return ast.HStatement{}, err
	}
	if _, err := p.eat(tokAssign); err != nil {
		return ast.HStatement{}, err
	}
	if p.is(tokUse) {
		p.drop()
		target, err := p.parsePath()
		if err != nil {
			return ast.HStatement{}, err
		}
		if _, err := p.eat(tokSemiColon); err != nil {
			return ast.HStatement{}, err
		}
		return ast.HStatement{Kind: ast.HStmtAlias, Path: path, Target: target, IsPublic: isPublic}, nil
	}

	value, err := p.parseChain()
	if err != nil {
		return ast.HStatement{}, err
	}
	if _, err := p.eat(tokSemiColon); err != nil {
		return ast.HStatement{}, err
	}
	return ast.HStatement{Kind: ast.HStmtAssignment, Path: path, IsPublic: isPublic, IsImpure: isImpure, Value: value}, nil
}

func (p *parser) parseStatement() (ast.HStatement, error) {
	if p.is(tokExtern) {
		return p.parseExtern()
	}
	isPublic := false
	if p.is(tokPub) {
		p.drop()
		isPublic = true
	}
	return p.parseAssignOrAlias(isPublic)
}

func (p *parser) parseProgram() ([]ast.HStatement, error) {
	var stmts []ast.HStatement
	for !p.is(tokEOF) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}
