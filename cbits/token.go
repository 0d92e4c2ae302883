package cbits

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenKind classifies a lexical token of the predicate notation.
type TokenKind int

const (
	TokIdent TokenKind = iota
	TokInt
	TokBits // binary literal such as 0b101
	TokBool // true / false
	TokLBracket
	TokRBracket
	TokLParen
	TokRParen
	TokAnd
	TokOr
	TokNot
	TokEq
	TokNe
	TokEOF
)

var tokenNames = map[TokenKind]string{
	TokIdent:    "identifier",
	TokInt:      "integer",
	TokBits:     "binary literal",
	TokBool:     "boolean",
	TokLBracket: "'['",
	TokRBracket: "']'",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokAnd:      "'&'",
	TokOr:       "'|'",
	TokNot:      "'!'",
	TokEq:       "'=='",
	TokNe:       "'!='",
	TokEOF:      "end of input",
}

func (k TokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one lexical unit. Pos is the byte offset of its first character.
// Value holds the numeric value of TokInt, TokBits and TokBool tokens.
type Token struct {
	Kind  TokenKind
	Text  string
	Pos   int
	Value uint64
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return t.Kind.String()
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// keywords are matched case-insensitively after an identifier is scanned.
var keywords = map[string]TokenKind{
	"and":   TokAnd,
	"or":    TokOr,
	"not":   TokNot,
	"true":  TokBool,
	"false": TokBool,
}

func isLetter(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Tokenize splits predicate notation into tokens in source order. The
// returned slice always ends with a TokEOF token.
//
// Recognized symbols:
//   - grouping: ( ) and [ ] for bit indexing
//   - connectives: & && and, | || or, ! ~ not
//   - comparison: = == !=
//   - literals: decimal integers, 0b binary literals, true, false
func Tokenize(text string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isLetter(c):
			start := i
			for i < len(text) && (isLetter(text[i]) || isDigit(text[i])) {
				i++
			}
			word := text[start:i]
			if kind, ok := keywords[strings.ToLower(word)]; ok {
				tok := Token{Kind: kind, Text: word, Pos: start}
				if kind == TokBool && strings.EqualFold(word, "true") {
					tok.Value = 1
				}
				toks = append(toks, tok)
				continue
			}
			toks = append(toks, Token{Kind: TokIdent, Text: word, Pos: start})
		case isDigit(c):
			tok, next, err := scanNumber(text, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case c == '[':
			toks = append(toks, Token{Kind: TokLBracket, Text: "[", Pos: i})
			i++
		case c == ']':
			toks = append(toks, Token{Kind: TokRBracket, Text: "]", Pos: i})
			i++
		case c == '(':
			toks = append(toks, Token{Kind: TokLParen, Text: "(", Pos: i})
			i++
		case c == ')':
			toks = append(toks, Token{Kind: TokRParen, Text: ")", Pos: i})
			i++
		case c == '&':
			n := 1
			if i+1 < len(text) && text[i+1] == '&' {
				n = 2
			}
			toks = append(toks, Token{Kind: TokAnd, Text: text[i : i+n], Pos: i})
			i += n
		case c == '|':
			n := 1
			if i+1 < len(text) && text[i+1] == '|' {
				n = 2
			}
			toks = append(toks, Token{Kind: TokOr, Text: text[i : i+n], Pos: i})
			i += n
		case c == '!':
			if i+1 < len(text) && text[i+1] == '=' {
				toks = append(toks, Token{Kind: TokNe, Text: "!=", Pos: i})
				i += 2
				continue
			}
			toks = append(toks, Token{Kind: TokNot, Text: "!", Pos: i})
			i++
		case c == '~':
			toks = append(toks, Token{Kind: TokNot, Text: "~", Pos: i})
			i++
		case c == '=':
			n := 1
			if i+1 < len(text) && text[i+1] == '=' {
				n = 2
			}
			toks = append(toks, Token{Kind: TokEq, Text: text[i : i+n], Pos: i})
			i += n
		default:
			return nil, syntaxErrorf(i, "unexpected character %q", c)
		}
	}
	toks = append(toks, Token{Kind: TokEOF, Pos: len(text)})
	return toks, nil
}

// scanNumber reads a decimal or 0b-prefixed binary literal starting at i.
// A literal running straight into a letter (12a, 0x1) is malformed.
func scanNumber(text string, i int) (Token, int, error) {
	start := i
	if text[i] == '0' && i+1 < len(text) && (text[i+1] == 'b' || text[i+1] == 'B') {
		i += 2
		digits := i
		for i < len(text) && (isDigit(text[i]) || isLetter(text[i])) {
			if text[i] != '0' && text[i] != '1' {
				return Token{}, 0, syntaxErrorf(i, "malformed binary literal %q", text[start:i+1])
			}
			i++
		}
		if i == digits {
			return Token{}, 0, syntaxErrorf(start, "binary literal %q has no digits", text[start:i])
		}
		v, err := strconv.ParseUint(text[digits:i], 2, 64)
		if err != nil {
			return Token{}, 0, syntaxErrorf(start, "binary literal %q out of range", text[start:i])
		}
		return Token{Kind: TokBits, Text: text[start:i], Pos: start, Value: v}, i, nil
	}
	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i < len(text) && isLetter(text[i]) {
		return Token{}, 0, syntaxErrorf(i, "malformed numeric literal %q", text[start:i+1])
	}
	v, err := strconv.ParseUint(text[start:i], 10, 64)
	if err != nil {
		return Token{}, 0, syntaxErrorf(start, "integer literal %q out of range", text[start:i])
	}
	return Token{Kind: TokInt, Text: text[start:i], Pos: start, Value: v}, i, nil
}
