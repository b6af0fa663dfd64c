package oracle

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrUnknownSymbol = errors.New("sequence contains symbol without weight")

// Fraction scores a sequence by the share of positions holding one of the
// target symbols.
type Fraction struct {
	Targets string
}

func (f Fraction) Score(sequence string) (float64, error) {
	if sequence == "" {
		return 0, errors.New("empty sequence")
	}
	hits := 0
	for i := 0; i < len(sequence); i++ {
		if strings.IndexByte(f.Targets, sequence[i]) >= 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(sequence)), nil
}

// Composition is an additive residue-weight model: the mean residue weight
// plus Bias, optionally squashed through a logistic to (0, 1).
type Composition struct {
	Weights  map[byte]float64
	Bias     float64
	Logistic bool
}

func (c Composition) Score(sequence string) (float64, error) {
	if sequence == "" {
		return 0, errors.New("empty sequence")
	}
	total := 0.0
	for i := 0; i < len(sequence); i++ {
		w, ok := c.Weights[sequence[i]]
		if !ok {
			return 0, fmt.Errorf("%w: %q at %d", ErrUnknownSymbol, sequence[i], i)
		}
		total += w
	}
	x := total/float64(len(sequence)) + c.Bias
	if c.Logistic {
		return 1 / (1 + math.Exp(-x)), nil
	}
	return x, nil
}

// CationicWeights favours the cationic, hydrophobic composition typical of
// antimicrobial peptides and penalises acidic residues.
func CationicWeights() map[byte]float64 {
	return map[byte]float64{
		'K': 1.0, 'R': 1.0, 'H': 0.3,
		'W': 0.8, 'F': 0.5, 'L': 0.5, 'I': 0.5,
		'A': 0.2, 'V': 0.2, 'M': 0.2, 'Y': 0.1,
		'G': 0.0, 'S': -0.1, 'T': -0.1, 'N': -0.2, 'Q': -0.2,
		'C': -0.3, 'P': -0.5,
		'D': -1.0, 'E': -1.0,
	}
}

var compositionPresets = map[string]func() map[byte]float64{
	"cationic": CationicWeights,
}
