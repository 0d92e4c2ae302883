package cbits

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	l := MustLayout(Register{"c", 3})
	// "101": c[0]=1 (rightmost), c[1]=0, c[2]=1, so c == 5.
	tests := []struct {
		pred string
		want bool
	}{
		{"c == 5", true},
		{"c = 0b101", true},
		{"c != 5", false},
		{"c == 4", false},
		{"c[1]", false},
		{"!c[1]", true},
		{"~c[1]", true},
		{"c[1] == 0", true},
		{"c[1] != 0", false},
		{"c[0] & c[2]", true},
		{"c[1] | c[2]", true},
		{"c[0] and not c[1]", true},
		{"C[0] AND c[1]", false},
		{"[0] && [2]", true},
		{"(c[0] | c[1]) & c[1]", false},
		{"c[1] | c[0] & c[2]", true},
		{"true", true},
		{"false", false},
		{"0", false},
		{"1", true},
	}

	for _, tt := range tests {
		p, err := Parse(tt.pred, l)
		if tt.pred == "C[0] AND c[1]" {
			// register names are case-sensitive even though keywords are not
			assert.ErrorIs(t, err, ErrLookup)
			continue
		}
		require.NoError(t, err, tt.pred)
		got, err := p.Evaluate("101")
		require.NoError(t, err, tt.pred)
		if got != tt.want {
			t.Errorf("Evaluate(%q, 101) = %v, want %v", tt.pred, got, tt.want)
		}
	}
}

func TestEvaluateWidthMismatch(t *testing.T) {
	p := MustParse("q[0]", MustLayout(Register{"q", 2}))

	_, err := p.Evaluate("101")
	assert.ErrorIs(t, err, ErrValue)

	var ve *ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestEvaluateBigEndian(t *testing.T) {
	l := MustLayout(Register{"q", 2}).WithOrder(BigEndian)
	p := MustParse("q[0] = 1", l)

	got, err := p.Evaluate("10")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = p.Evaluate("01")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSingleBitRegisterShorthand(t *testing.T) {
	l := MustLayout(Register{"flag", 1}, Register{"c", 2})
	p := MustParse("flag & !c[1]", l)

	// little endian: "c flag"
	got, err := p.Evaluate("01 1")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = p.Evaluate("10 1")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestParseErrors(t *testing.T) {
	l := MustLayout(Register{"c", 3})
	tests := []struct {
		pred string
		kind error
		pos  int // for syntax errors
	}{
		{"c[3]", ErrLookup, 0},
		{"x[0]", ErrLookup, 0},
		{"x == 1", ErrLookup, 0},
		{"[3]", ErrLookup, 0},
		{"c == 8", ErrValue, 0},
		{"c", ErrSyntax, 0},
		{"c[0] == 2", ErrSyntax, 8},
		{"c[0] &", ErrSyntax, 6},
		{"(c[0]", ErrSyntax, 5},
		{"c[0] c[1]", ErrSyntax, 5},
		{"5", ErrSyntax, 0},
		{"c[x]", ErrSyntax, 2},
		{"c == true", ErrSyntax, 5},
		{"", ErrSyntax, 0},
	}

	for _, tt := range tests {
		_, err := Parse(tt.pred, l)
		if !errors.Is(err, tt.kind) {
			t.Errorf("Parse(%q): got %v, want %v", tt.pred, err, tt.kind)
			continue
		}
		var se *SyntaxError
		if errors.As(err, &se) && se.Pos != tt.pos {
			t.Errorf("Parse(%q): syntax error at %d, want %d", tt.pred, se.Pos, tt.pos)
		}
	}
}

func TestCanonicalString(t *testing.T) {
	l := MustLayout(Register{"c", 3})
	tests := []struct {
		in, want string
	}{
		{"c[0] and not (c[1] or c[2])", "c[0] & !(c[1] | c[2])"},
		{"c != 5", "!(c == 5)"},
		{"c[0] == 0", "!c[0]"},
		{"(c[0] || c[1]) && c[2]", "(c[0] | c[1]) & c[2]"},
		{"[1] | true", "[1] | true"},
		{"c = 0b011", "c == 3"},
	}
	for _, tt := range tests {
		p := MustParse(tt.in, l)
		assert.Equal(t, tt.want, p.String(), tt.in)
		assert.Equal(t, tt.in, p.Source())
	}
}

func TestRoundTripPreservesSatisfiedSet(t *testing.T) {
	l := MustLayout(Register{"a", 2}, Register{"b", 2})
	preds := []string{
		"a[0]",
		"a == 2 | b == 1",
		"!(a[1] & b[0]) & [3]",
		"not (a != 3) or b[1] = 0",
		"~~a[0] & (b[0] | !b[1])",
		"false | a[1] == 1",
	}
	for _, text := range preds {
		p := MustParse(text, l)
		again, err := Parse(p.String(), l)
		require.NoError(t, err, p.String())

		want, err := p.Expand()
		require.NoError(t, err)
		got, err := again.Expand()
		require.NoError(t, err)
		assert.Equal(t, want, got, "%q -> %q", text, p.String())
	}
}

func TestPredicateConcurrentUse(t *testing.T) {
	l := MustLayout(Register{"q", 4})
	p := MustParse("q[0] & !q[3]", l)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ok, err := p.Evaluate("0001")
				if err != nil {
					errs <- err
					return
				}
				if !ok {
					errs <- errors.New("0001 should satisfy q[0] & !q[3]")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
