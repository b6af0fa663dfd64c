package mutate

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
)

// Mutator draws random substitutions from a shared random source. It is safe
// for concurrent use.
type Mutator struct {
	Rand *rand.Rand
	mu   sync.Mutex
}

func NewMutator(seed int64) *Mutator {
	return &Mutator{Rand: rand.New(rand.NewSource(seed))}
}

func (m *Mutator) randIntn(n int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Rand.Intn(n)
}

func (m *Mutator) check() error {
	if m == nil || m.Rand == nil {
		return errors.New("random source is required")
	}
	return nil
}

// ChooseReplacement picks a symbol uniformly from alphabet excluding symbol.
func (m *Mutator) ChooseReplacement(symbol byte, alphabet Alphabet) (byte, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	candidates := alphabet.Without(symbol)
	if len(candidates) == 0 {
		return 0, fmt.Errorf("%w: no replacement for %q in %q", ErrInvalidAlphabet, symbol, alphabet.String())
	}
	return candidates[m.randIntn(len(candidates))], nil
}

// Substitute replaces the symbol at position with a different symbol.
func (m *Mutator) Substitute(sequence string, position int, alphabet Alphabet) (string, error) {
	if err := checkPosition(sequence, position); err != nil {
		return "", err
	}
	symbol, err := m.ChooseReplacement(sequence[position], alphabet)
	if err != nil {
		return "", err
	}
	return Replace(sequence, position, symbol), nil
}

// GenerateCompletions produces count variants of sequence in which every
// listed position is independently redrawn. Duplicates are kept.
func (m *Mutator) GenerateCompletions(sequence string, positions []int, count int, alphabet Alphabet) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("completion count must be >= 0, got %d", count)
	}
	for _, pos := range positions {
		if err := checkPosition(sequence, pos); err != nil {
			return nil, err
		}
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		completion := []byte(sequence)
		for _, pos := range positions {
			symbol, err := m.ChooseReplacement(sequence[pos], alphabet)
			if err != nil {
				return nil, err
			}
			completion[pos] = symbol
		}
		out = append(out, string(completion))
	}
	return out, nil
}

// RandomNeighbours returns count variants, each differing from sequence at one
// uniformly chosen position.
func (m *Mutator) RandomNeighbours(sequence string, count int, alphabet Alphabet) ([]string, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("neighbour count must be >= 0, got %d", count)
	}
	if len(sequence) == 0 {
		return nil, &PositionError{Position: 0, Length: 0}
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		variant, err := m.Substitute(sequence, m.randIntn(len(sequence)), alphabet)
		if err != nil {
			return nil, err
		}
		out = append(out, variant)
	}
	return out, nil
}

// RandomSequence draws a sequence with a length uniform in [minLen, maxLen].
func (m *Mutator) RandomSequence(minLen, maxLen int, alphabet Alphabet) (string, error) {
	if err := m.check(); err != nil {
		return "", err
	}
	if minLen < 1 || maxLen < minLen {
		return "", fmt.Errorf("invalid length range [%d, %d]", minLen, maxLen)
	}
	if alphabet.IsZero() {
		return "", fmt.Errorf("%w: no symbols", ErrInvalidAlphabet)
	}
	n := minLen + m.randIntn(maxLen-minLen+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet.At(m.randIntn(alphabet.Len()))
	}
	return string(b), nil
}
