package ampclimb

import (
	"io"
	"os"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
	"ampclimb/internal/seqio"
)

func withFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return read(f)
}

// LoadStarts reads start sequences from a FASTA or plain sequence list.
func LoadStarts(path string) ([]string, error) {
	return withFile(path, seqio.ReadPlain)
}

// LoadStartsFromResults reads a results file and returns the first sequence
// of every trace, so a new batch starts where an earlier one did.
func LoadStartsFromResults(path string) ([]string, error) {
	traces, err := withFile(path, seqio.ReadTraces)
	if err != nil {
		return nil, err
	}
	return seqio.StartsFromTraces(traces), nil
}

// RandomStarts draws n uniform random sequences with lengths in
// [minLen, maxLen].
func RandomStarts(n, minLen, maxLen int, alphabet string, seed int64) ([]string, error) {
	a, err := mutate.NewAlphabet(alphabet)
	if err != nil {
		return nil, err
	}
	m := mutate.NewMutator(seed)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := m.RandomSequence(minLen, maxLen, a)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ReadTracesFile reads a results file in trace list format.
func ReadTracesFile(path string) ([]model.Trace, error) {
	return withFile(path, seqio.ReadTraces)
}
