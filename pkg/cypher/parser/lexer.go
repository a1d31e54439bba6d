// Package parser is a small Cypher front end. It tokenizes and parses the
// read-only subset the translator understands (MATCH, OPTIONAL MATCH, WHERE,
// RETURN with ORDER BY/SKIP/LIMIT) and produces a tree whose rule names
// follow the openCypher grammar, so the same extractor works on it and on
// ANTLR-generated trees.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TokenKind classifies lexer tokens.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenParam
	TokenPunct
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenParam:
		return "parameter"
	default:
		return "punctuation"
	}
}

// Token is a lexeme with its source position (1-based line and column).
type Token struct {
	Kind   TokenKind
	Text   string
	Line   int
	Column int
}

// SyntaxError is a lexing or parsing failure at a source position.
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// multi-character punctuation, longest first
var operators = []string{"..", "<>", "<=", ">=", "=~", "+="}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

// Tokenize splits NFC-normalized query text into tokens, dropping
// whitespace and comments. The final token is always TokenEOF.
func Tokenize(input string) ([]Token, error) {
	lx := &lexer{src: []rune(norm.NFC.String(input)), line: 1, col: 1}
	var toks []Token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peek(off int) rune {
	if lx.pos+off >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos+off]
}

func (lx *lexer) advance() rune {
	r := lx.src[lx.pos]
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

func (lx *lexer) skipSpaceAndComments() error {
	for lx.pos < len(lx.src) {
		r := lx.peek(0)
		switch {
		case unicode.IsSpace(r):
			lx.advance()
		case r == '/' && lx.peek(1) == '/':
			for lx.pos < len(lx.src) && lx.peek(0) != '\n' {
				lx.advance()
			}
		case r == '/' && lx.peek(1) == '*':
			line, col := lx.line, lx.col
			lx.advance()
			lx.advance()
			for {
				if lx.pos >= len(lx.src) {
					return lx.errorf(line, col, "unterminated comment")
				}
				if lx.peek(0) == '*' && lx.peek(1) == '/' {
					lx.advance()
					lx.advance()
					break
				}
				lx.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) next() (Token, error) {
	if err := lx.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}
	line, col := lx.line, lx.col
	if lx.pos >= len(lx.src) {
		return Token{Kind: TokenEOF, Line: line, Column: col}, nil
	}

	start := lx.pos
	r := lx.peek(0)
	switch {
	case r == '_' || unicode.IsLetter(r):
		for lx.pos < len(lx.src) && isIdentRune(lx.peek(0)) {
			lx.advance()
		}
		return lx.token(TokenIdent, start, line, col), nil

	case r == '`':
		lx.advance()
		for {
			if lx.pos >= len(lx.src) {
				return Token{}, lx.errorf(line, col, "unterminated quoted identifier")
			}
			if lx.advance() == '`' {
				break
			}
		}
		return lx.token(TokenIdent, start, line, col), nil

	case unicode.IsDigit(r):
		for lx.pos < len(lx.src) && unicode.IsDigit(lx.peek(0)) {
			lx.advance()
		}
		// 1.5 is a number, 1..3 is a range
		if lx.peek(0) == '.' && unicode.IsDigit(lx.peek(1)) {
			lx.advance()
			for lx.pos < len(lx.src) && unicode.IsDigit(lx.peek(0)) {
				lx.advance()
			}
		}
		return lx.token(TokenNumber, start, line, col), nil

	case r == '\'' || r == '"':
		quote := lx.advance()
		for {
			if lx.pos >= len(lx.src) {
				return Token{}, lx.errorf(line, col, "unterminated string literal")
			}
			c := lx.advance()
			if c == '\\' && lx.pos < len(lx.src) {
				lx.advance()
				continue
			}
			if c == quote {
				break
			}
		}
		return lx.token(TokenString, start, line, col), nil

	case r == '$':
		lx.advance()
		if !isIdentRune(lx.peek(0)) {
			return Token{}, lx.errorf(line, col, "expected parameter name after '$'")
		}
		for lx.pos < len(lx.src) && isIdentRune(lx.peek(0)) {
			lx.advance()
		}
		return lx.token(TokenParam, start, line, col), nil
	}

	for _, op := range operators {
		if strings.HasPrefix(string(lx.src[lx.pos:min(lx.pos+len(op), len(lx.src))]), op) {
			for range op {
				lx.advance()
			}
			return lx.token(TokenPunct, start, line, col), nil
		}
	}
	if strings.ContainsRune("()[]{}:,.-<>=*|+/%^!;", r) {
		lx.advance()
		return lx.token(TokenPunct, start, line, col), nil
	}
	return Token{}, lx.errorf(line, col, "unexpected character %q", r)
}

func (lx *lexer) token(kind TokenKind, start, line, col int) Token {
	return Token{Kind: kind, Text: string(lx.src[start:lx.pos]), Line: line, Column: col}
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
