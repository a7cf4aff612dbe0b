package infix

import (
	"strconv"

	"ruleforge/internal/ast"
	"ruleforge/internal/rerr"
	"ruleforge/internal/value"
)

// Parse lexes and parses an infix expression source string into the shared
// AST, applying the lowering rules of spec.md §4.4 (let-inlining, lambda
// substitution, safe-division-to-if, template strings, SQL-shaped sugar).
func Parse(src string) (*ast.Node, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != TokEOF {
		return nil, &rerr.ParseError{Position: p.peek().Pos, Reason: "unexpected trailing input"}
	}
	return n, nil
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token { return p.toks[p.pos] }
func (p *parser) peekAt(off int) Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}
func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isOp(text string) bool {
	t := p.peek()
	return t.Kind == TokOp && t.Text == text
}
func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.Kind == TokKeyword && t.Text == text
}

func (p *parser) expectOp(text string) error {
	if !p.isOp(text) {
		return &rerr.ParseError{Position: p.peek().Pos, Reason: "expected '" + text + "'"}
	}
	p.advance()
	return nil
}

// ---- precedence chain ----

func (p *parser) parseExpression() (*ast.Node, error) { return p.parseNullCoalesce() }

func (p *parser) parseNullCoalesce() (*ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.isOp("??") {
		p.advance()
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		cond := ast.Comparison(ast.OpEq, left, ast.Literal(value.Null()))
		left = ast.If(cond, right, left)
	}
	return left, nil
}

func (p *parser) parseOr() (*ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	args := []*ast.Node{left}
	for p.isKeyword("or") || p.isOp("||") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return ast.Or(args...), nil
}

func (p *parser) parseAnd() (*ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	args := []*ast.Node{left}
	for p.isKeyword("and") || p.isOp("&&") {
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return ast.And(args...), nil
}

var equalitySynonyms = map[string]ast.CompareOp{
	"==": ast.OpEq, "eq": ast.OpEq, "equals": ast.OpEq, "is": ast.OpEq, "same_as": ast.OpStrictEq,
	"===": ast.OpStrictEq,
	"!=":  ast.OpNe, "isnt": ast.OpNe,
	"!==": ast.OpStrictNe,
}

func (p *parser) equalityOp() (ast.CompareOp, bool) {
	t := p.peek()
	if t.Kind == TokOp {
		if op, ok := equalitySynonyms[t.Text]; ok {
			return op, true
		}
	}
	if t.Kind == TokKeyword {
		if op, ok := equalitySynonyms[t.Text]; ok {
			return op, true
		}
	}
	return 0, false
}

func (p *parser) parseEquality() (*ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.equalityOp()
		if !ok {
			return left, nil
		}
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.Comparison(op, left, right)
	}
}

var comparisonOps = map[string]ast.CompareOp{
	"<": ast.OpLt, "<=": ast.OpLe, ">": ast.OpGt, ">=": ast.OpGe,
}

// parseComparison flattens chained comparisons (1 < 5 < 10) into a single
// n-ary Comparison node so both evaluation tiers can apply a uniform
// short-circuiting chain rule (spec.md §8).
func (p *parser) parseComparison() (*ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	op, ok := comparisonOps[t.Text]
	if t.Kind != TokOp || !ok {
		return left, nil
	}
	args := []*ast.Node{left}
	firstOp := op
	for {
		t := p.peek()
		curOp, ok := comparisonOps[t.Text]
		if t.Kind != TokOp || !ok || curOp != firstOp {
			break
		}
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		args = append(args, right)
	}
	return ast.Comparison(firstOp, args...), nil
}

func (p *parser) parseAdditive() (*ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isOp("+") || p.isOp("-") {
		opTok := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		op := ast.OpAdd
		if opTok.Text == "-" {
			op = ast.OpSub
		}
		left = ast.Arith(op, left, right)
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (*ast.Node, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") || p.isOp("/") || p.isOp("%") || p.isOp("/?") || p.isOp("/!") {
		opTok := p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		switch opTok.Text {
		case "*":
			left = ast.Arith(ast.OpMul, left, right)
		case "/":
			left = ast.Arith(ast.OpDiv, left, right)
		case "%":
			left = ast.Arith(ast.OpMod, left, right)
		case "/?":
			// safe division returning 0 on zero denominator: lowers to an
			// if over an equality-to-zero test (spec.md §4.4).
			zeroCheck := ast.Comparison(ast.OpEq, right, ast.Literal(value.Int(0)))
			left = ast.If(zeroCheck, ast.Literal(value.Int(0)), ast.Arith(ast.OpDiv, left, right))
		case "/!":
			zeroCheck := ast.Comparison(ast.OpEq, right, ast.Literal(value.Int(0)))
			left = ast.If(zeroCheck, ast.Literal(value.Null()), ast.Arith(ast.OpDiv, left, right))
		}
	}
	return left, nil
}

// parsePower is right-associative: recurse on the right side.
func (p *parser) parsePower() (*ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") {
		p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return ast.Arith(ast.OpPow, left, right), nil
	}
	return left, nil
}

func (p *parser) parseUnary() (*ast.Node, error) {
	if p.isKeyword("not") || p.isOp("!") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Not(x), nil
	}
	if p.isOp("-") {
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.Negate(x), nil
	}
	if p.isOp("+") {
		p.advance()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (*ast.Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("?"):
			p.advance()
			n = ast.ToBool(n)
		case p.isOp("."):
			p.advance()
			nameTok := p.advance()
			if nameTok.Kind != TokIdent {
				return nil, &rerr.ParseError{Position: nameTok.Pos, Reason: "expected property or method name after '.'"}
			}
			if p.isOp("(") {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				n = lowerMethodCall(n, nameTok.Text, args)
			} else {
				n = lowerPropertyAccess(n, nameTok.Text)
			}
		case p.isOp("["):
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectOp("]"); err != nil {
				return nil, err
			}
			n = ast.Index(n, idx)
		default:
			return n, nil
		}
	}
}

// parseArgs parses a parenthesized, comma-separated argument list. Assumes
// the current token is '('.
func (p *parser) parseArgs() ([]*ast.Node, error) {
	p.advance() // '('
	var args []*ast.Node
	if p.isOp(")") {
		p.advance()
		return args, nil
	}
	for {
		a, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.isOp(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parsePrimary() (*ast.Node, error) {
	t := p.peek()
	switch t.Kind {
	case TokInt:
		p.advance()
		i, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, &rerr.ParseError{Position: t.Pos, Reason: "invalid integer literal"}
		}
		return ast.Literal(value.Int(i)), nil
	case TokFloat:
		p.advance()
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, &rerr.ParseError{Position: t.Pos, Reason: "invalid float literal"}
		}
		return ast.Literal(value.Float(f)), nil
	case TokString:
		p.advance()
		return ast.Literal(value.String(t.Text)), nil
	case TokTemplate:
		p.advance()
		return p.lowerTemplate(t)
	case TokKeyword:
		switch t.Text {
		case "true":
			p.advance()
			return ast.Literal(value.Bool(true)), nil
		case "false":
			p.advance()
			return ast.Literal(value.Bool(false)), nil
		case "null":
			p.advance()
			return ast.Literal(value.Null()), nil
		case "if":
			return p.parseIf()
		case "let":
			return p.parseLet()
		case "from":
			return p.parseQuery()
		}
		return nil, &rerr.ParseError{Position: t.Pos, Reason: "unexpected keyword " + t.Text}
	case TokIdent:
		return p.parseIdentExpr()
	case TokOp:
		switch t.Text {
		case "(":
			return p.parseGroupedOrLambda()
		case "[":
			return p.parseArrayLiteral()
		}
	}
	return nil, &rerr.ParseError{Position: t.Pos, Reason: "unexpected token"}
}

func (p *parser) parseIdentExpr() (*ast.Node, error) {
	nameTok := p.advance()
	if p.isOp("=>") {
		p.advance()
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return lowerLambdaAsValue([]string{nameTok.Text}, body), nil
	}
	if p.isOp("(") {
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		return lowerCall(nameTok.Text, args)
	}
	return ast.Var(nameTok.Text, nil), nil
}

// parseGroupedOrLambda disambiguates "(" as either a parenthesized
// expression or the parameter list of a lambda, by scanning ahead for a
// matching ")" followed by "=>".
func (p *parser) parseGroupedOrLambda() (*ast.Node, error) {
	if p.looksLikeLambdaParams() {
		p.advance() // '('
		var params []string
		if !p.isOp(")") {
			for {
				id := p.advance()
				if id.Kind != TokIdent {
					return nil, &rerr.ParseError{Position: id.Pos, Reason: "expected lambda parameter name"}
				}
				params = append(params, id.Text)
				if p.isOp(",") {
					p.advance()
					continue
				}
				break
			}
		}
		if err := p.expectOp(")"); err != nil {
			return nil, err
		}
		if err := p.expectOp("=>"); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return lowerLambdaAsValue(params, body), nil
	}
	p.advance() // '('
	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectOp(")"); err != nil {
		return nil, err
	}
	return n, nil
}

// looksLikeLambdaParams scans from the current '(' for a balanced ")"
// immediately followed by "=>", without consuming tokens.
func (p *parser) looksLikeLambdaParams() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind == TokOp && t.Text == "(" {
			depth++
		} else if t.Kind == TokOp && t.Text == ")" {
			depth--
			if depth == 0 {
				next := p.toks[i]
				if i+1 < len(p.toks) {
					next = p.toks[i+1]
				}
				return next.Kind == TokOp && next.Text == "=>"
			}
		} else if depth == 0 {
			return false
		}
	}
	return false
}

func (p *parser) parseArrayLiteral() (*ast.Node, error) {
	p.advance() // '['
	var elems []*ast.Node
	if !p.isOp("]") {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.isOp(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectOp("]"); err != nil {
		return nil, err
	}
	return lowerArrayLiteral(elems), nil
}

func (p *parser) parseIf() (*ast.Node, error) {
	p.advance() // 'if'
	var branches []*ast.Node
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("then"); err != nil {
		return nil, err
	}
	thenExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	branches = append(branches, cond, thenExpr)
	for p.isKeyword("elseif") {
		p.advance()
		c, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		th, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		branches = append(branches, c, th)
	}
	if err := p.expectKeyword("else"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	branches = append(branches, elseExpr)
	return ast.If(branches...), nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return &rerr.ParseError{Position: p.peek().Pos, Reason: "expected keyword '" + kw + "'"}
	}
	p.advance()
	return nil
}

// parseLet implements `let name = value in body`, with value restricted to
// additive precedence — a deliberate original-source limitation carried
// forward (DESIGN.md Open Questions #4) so a bare `in` is never swallowed
// by a higher-precedence parse of value. It lowers by inlining value at
// every syntactic occurrence of name in body (no runtime environment).
func (p *parser) parseLet() (*ast.Node, error) {
	p.advance() // 'let'
	nameTok := p.advance()
	if nameTok.Kind != TokIdent {
		return nil, &rerr.ParseError{Position: nameTok.Pos, Reason: "expected identifier after let"}
	}
	if err := p.expectOp("="); err != nil {
		return nil, err
	}
	val, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.Substitute(body, nameTok.Text, val), nil
}

// parseQuery implements the SQL-shaped `from <array> where <pred> select
// <expr>` sugar, lowering to nested filter/map AST nodes over the reserved
// current-element variable.
func (p *parser) parseQuery() (*ast.Node, error) {
	p.advance() // 'from'
	arr, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	result := arr
	if p.isKeyword("where") {
		p.advance()
		pred, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		result = ast.ArrayOp(ast.ArrayFilter, &ast.Lambda{Params: []string{""}, Body: pred}, result)
	}
	if p.isKeyword("select") {
		p.advance()
		proj, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		result = ast.ArrayOp(ast.ArrayMap, &ast.Lambda{Params: []string{""}, Body: proj}, result)
	}
	return result, nil
}

// lowerTemplate re-lexes and re-parses each expression chunk of a backtick
// template string independently and concatenates the results with cat.
func (p *parser) lowerTemplate(t Token) (*ast.Node, error) {
	var parts []*ast.Node
	for i, chunk := range t.Parts {
		if t.IsExpr[i] {
			n, err := Parse(chunk)
			if err != nil {
				return nil, err
			}
			parts = append(parts, n)
		} else if chunk != "" {
			parts = append(parts, ast.Literal(value.String(chunk)))
		}
	}
	if len(parts) == 0 {
		return ast.Literal(value.String("")), nil
	}
	return ast.Cat(parts...), nil
}
