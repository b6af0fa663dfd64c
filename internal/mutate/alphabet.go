package mutate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAlphabet = errors.New("invalid alphabet")
	ErrInvalidPosition = errors.New("invalid position")
)

// PositionError reports a position outside the bounds of a sequence.
type PositionError struct {
	Position int
	Length   int
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position %d out of range for sequence of length %d", e.Position, e.Length)
}

func (e *PositionError) Unwrap() error {
	return ErrInvalidPosition
}

const (
	// FullSymbols are the twenty proteinogenic amino acids.
	FullSymbols = "ACDEFGHIKLMNPQRSTVWY"
	// DefaultSymbols drops cysteine, which is avoided in designed peptides.
	DefaultSymbols = "ADEFGHIKLMNPQRSTVWY"
)

// Alphabet is an immutable ordered set of single-byte symbols. The order the
// symbols were given in is the canonical iteration order.
type Alphabet struct {
	symbols string
}

var (
	DefaultAlphabet = MustAlphabet(DefaultSymbols)
	FullAlphabet    = MustAlphabet(FullSymbols)
)

func NewAlphabet(symbols string) (Alphabet, error) {
	if symbols == "" {
		return Alphabet{}, fmt.Errorf("%w: no symbols", ErrInvalidAlphabet)
	}
	var seen [256]bool
	for i := 0; i < len(symbols); i++ {
		c := symbols[i]
		if c <= ' ' || c > '~' {
			return Alphabet{}, fmt.Errorf("%w: symbol %q is not printable ascii", ErrInvalidAlphabet, c)
		}
		if seen[c] {
			return Alphabet{}, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, c)
		}
		seen[c] = true
	}
	return Alphabet{symbols: symbols}, nil
}

func MustAlphabet(symbols string) Alphabet {
	a, err := NewAlphabet(symbols)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Alphabet) String() string { return a.symbols }

func (a Alphabet) Len() int { return len(a.symbols) }

func (a Alphabet) IsZero() bool { return a.symbols == "" }

// At returns the i-th symbol in canonical order.
func (a Alphabet) At(i int) byte { return a.symbols[i] }

func (a Alphabet) Contains(symbol byte) bool {
	return strings.IndexByte(a.symbols, symbol) >= 0
}

// Without returns the symbols of a other than symbol, in canonical order.
func (a Alphabet) Without(symbol byte) []byte {
	out := make([]byte, 0, len(a.symbols))
	for i := 0; i < len(a.symbols); i++ {
		if a.symbols[i] != symbol {
			out = append(out, a.symbols[i])
		}
	}
	return out
}

func checkPosition(sequence string, position int) error {
	if position < 0 || position >= len(sequence) {
		return &PositionError{Position: position, Length: len(sequence)}
	}
	return nil
}

// Replace returns sequence with the symbol at position set to symbol. The
// position must already be validated.
func Replace(sequence string, position int, symbol byte) string {
	b := []byte(sequence)
	b[position] = symbol
	return string(b)
}
