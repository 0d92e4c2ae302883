package cbits

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeOrderAndPositions(t *testing.T) {
	toks, err := Tokenize("q[0] == 1 & !c[12]")
	require.NoError(t, err)

	assert.Equal(t, []TokenKind{
		TokIdent, TokLBracket, TokInt, TokRBracket, TokEq, TokInt,
		TokAnd, TokNot, TokIdent, TokLBracket, TokInt, TokRBracket, TokEOF,
	}, kinds(toks))

	assert.Equal(t, 0, toks[0].Pos)
	assert.Equal(t, 5, toks[4].Pos)
	assert.Equal(t, "==", toks[4].Text)
	assert.Equal(t, uint64(1), toks[5].Value)
	assert.Equal(t, uint64(12), toks[10].Value)
	assert.Equal(t, 18, toks[12].Pos)
}

func TestTokenizeKeywordsAndLiterals(t *testing.T) {
	toks, err := Tokenize("A AND b Or NOT c true FALSE 0b101 != ~x && y || z")
	require.NoError(t, err)

	assert.Equal(t, []TokenKind{
		TokIdent, TokAnd, TokIdent, TokOr, TokNot, TokIdent, TokBool, TokBool,
		TokBits, TokNe, TokNot, TokIdent, TokAnd, TokIdent, TokOr, TokIdent, TokEOF,
	}, kinds(toks))
	assert.Equal(t, uint64(1), toks[6].Value)
	assert.Equal(t, uint64(0), toks[7].Value)
	assert.Equal(t, uint64(5), toks[8].Value)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		input string
		pos   int
	}{
		{"q[0] $ 1", 5},
		{"12a", 2},
		{"0b", 0},
		{"0b12", 3},
		{"c == 0x1", 6},
		{"c[0] == 1;", 9},
	}

	for _, tt := range tests {
		_, err := Tokenize(tt.input)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Tokenize(%q): want SyntaxError, got %v", tt.input, err)
			continue
		}
		if se.Pos != tt.pos {
			t.Errorf("Tokenize(%q): error at %d, want %d (%v)", tt.input, se.Pos, tt.pos, se)
		}
		assert.ErrorIs(t, err, ErrSyntax)
	}
}

func TestTokenizeWhitespaceOnly(t *testing.T) {
	toks, err := Tokenize(" \t\n")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{TokEOF}, kinds(toks))
}
