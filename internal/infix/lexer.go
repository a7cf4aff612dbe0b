// Package infix implements the lexer and Pratt parser for the infix
// expression surface, lowering to the same ast.Node tree the JSON-logic
// parser produces (spec.md §4.4).
package infix

import (
	"strconv"
	"strings"

	"ruleforge/internal/rerr"
)

type TokenKind int

const (
	TokEOF TokenKind = iota
	TokInt
	TokFloat
	TokString
	TokTemplate
	TokIdent
	TokKeyword
	TokOp
)

type Token struct {
	Kind TokenKind
	Text string
	// Parts is populated only for TokTemplate: alternating literal chunks
	// and raw (unparsed) expression-chunk source strings, literal first.
	Parts    []string
	IsExpr   []bool
	Pos      int
}

var keywords = map[string]bool{
	"if": true, "then": true, "else": true, "elseif": true,
	"let": true, "in": true, "and": true, "or": true, "not": true,
	"true": true, "false": true, "null": true,
	"from": true, "where": true, "select": true,
	"is": true, "isnt": true, "eq": true, "equals": true, "same_as": true,
}

// isValueProducing reports whether the previous token could end a
// value-producing expression, per spec.md §9's `/` disambiguation rule.
func isValueProducing(t *Token) bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case TokInt, TokFloat, TokString, TokTemplate, TokIdent:
		return true
	case TokKeyword:
		return t.Text == "true" || t.Text == "false" || t.Text == "null"
	case TokOp:
		return t.Text == ")" || t.Text == "]" || t.Text == "?"
	}
	return false
}

type Lexer struct {
	src  []rune
	pos  int
	toks []Token
}

func NewLexer(src string) *Lexer { return &Lexer{src: []rune(src)} }

func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		l.skipSpace()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, Token{Kind: TokEOF, Pos: l.pos})
			return l.toks, nil
		}
		start := l.pos
		c := l.src[l.pos]
		switch {
		case c == '`':
			tok, err := l.lexTemplate()
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, tok)
		case c == '"' || c == '\'':
			tok, err := l.lexString(c)
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, tok)
		case isDigit(c):
			l.toks = append(l.toks, l.lexNumber())
		case c == '/' && !isValueProducing(l.lastTok()):
			l.toks = append(l.toks, l.lexPathIdent())
		case isIdentStart(c):
			l.toks = append(l.toks, l.lexIdentOrKeyword())
		default:
			tok, err := l.lexOperator()
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, tok)
		}
		if l.pos == start {
			return nil, &rerr.ParseError{Position: l.pos, Reason: "lexer stuck"}
		}
	}
}

func (l *Lexer) lastTok() *Token {
	if len(l.toks) == 0 {
		return nil
	}
	return &l.toks[len(l.toks)-1]
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func isSpace(c rune) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c rune) bool { return c >= '0' && c <= '9' }
func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentPart(c rune) bool { return isIdentStart(c) || isDigit(c) || c == '.' }

func (l *Lexer) lexNumber() Token {
	start := l.pos
	isFloat := false
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		isFloat = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		return Token{Kind: TokFloat, Text: text, Pos: start}
	}
	return Token{Kind: TokInt, Text: text, Pos: start}
}

func (l *Lexer) lexIdentOrKeyword() Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := string(l.src[start:l.pos])
	base := text
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	if keywords[base] && base == text {
		return Token{Kind: TokKeyword, Text: text, Pos: start}
	}
	return Token{Kind: TokIdent, Text: text, Pos: start}
}

// lexPathIdent consumes a leading-slash path identifier such as /users/count.
func (l *Lexer) lexPathIdent() Token {
	start := l.pos
	l.pos++ // leading '/'
	for l.pos < len(l.src) && (isIdentPart(l.src[l.pos]) || l.src[l.pos] == '/') {
		l.pos++
	}
	return Token{Kind: TokIdent, Text: string(l.src[start:l.pos]), Pos: start}
}

func (l *Lexer) lexString(quote rune) (Token, error) {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		sb.WriteRune(l.src[l.pos])
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{}, &rerr.ParseError{Position: start, Reason: "unterminated string"}
	}
	l.pos++
	return Token{Kind: TokString, Text: sb.String(), Pos: start}, nil
}

// lexTemplate consumes a backtick template string, splitting into literal
// chunks and ${...}-delimited expression chunks. Expression chunks are
// stashed raw and re-lexed/re-parsed independently by the parser, matching
// the original's nested-lexer approach to template strings.
func (l *Lexer) lexTemplate() (Token, error) {
	start := l.pos
	l.pos++
	var parts []string
	var isExpr []bool
	var lit strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != '`' {
		if l.src[l.pos] == '$' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '{' {
			parts = append(parts, lit.String())
			isExpr = append(isExpr, false)
			lit.Reset()
			l.pos += 2
			exprStart := l.pos
			depth := 1
			for l.pos < len(l.src) && depth > 0 {
				if l.src[l.pos] == '{' {
					depth++
				} else if l.src[l.pos] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				l.pos++
			}
			if l.pos >= len(l.src) {
				return Token{}, &rerr.ParseError{Position: exprStart, Reason: "unterminated template expression"}
			}
			parts = append(parts, string(l.src[exprStart:l.pos]))
			isExpr = append(isExpr, true)
			l.pos++ // closing '}'
			continue
		}
		lit.WriteRune(l.src[l.pos])
		l.pos++
	}
	if l.pos >= len(l.src) {
		return Token{}, &rerr.ParseError{Position: start, Reason: "unterminated template string"}
	}
	parts = append(parts, lit.String())
	isExpr = append(isExpr, false)
	l.pos++
	return Token{Kind: TokTemplate, Parts: parts, IsExpr: isExpr, Pos: start}, nil
}

var multiCharOps = []string{
	"=>", "/?", "/!", "**", "===", "!==", "==", "!=", "<=", ">=", "&&", "||", "??",
}

func (l *Lexer) lexOperator() (Token, error) {
	rest := string(l.src[l.pos:])
	for _, op := range multiCharOps {
		if strings.HasPrefix(rest, op) {
			start := l.pos
			l.pos += len([]rune(op))
			return Token{Kind: TokOp, Text: op, Pos: start}, nil
		}
	}
	c := l.src[l.pos]
	switch c {
	case '+', '-', '*', '/', '%', '<', '>', '=', '!', '(', ')', '[', ']', ',', '.', '?', ':':
		start := l.pos
		l.pos++
		return Token{Kind: TokOp, Text: string(c), Pos: start}, nil
	}
	return Token{}, &rerr.ParseError{Position: l.pos, Reason: "unexpected character " + strconv.QuoteRune(c)}
}
