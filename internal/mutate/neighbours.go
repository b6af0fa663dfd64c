package mutate

// SubstitutionNeighbours lists every single-symbol substitution of sequence,
// positions ascending and symbols in canonical alphabet order. The unchanged
// symbol is skipped.
func SubstitutionNeighbours(sequence string, alphabet Alphabet) []string {
	out := make([]string, 0, len(sequence)*alphabet.Len())
	for pos := 0; pos < len(sequence); pos++ {
		for i := 0; i < alphabet.Len(); i++ {
			symbol := alphabet.At(i)
			if symbol == sequence[pos] {
				continue
			}
			out = append(out, Replace(sequence, pos, symbol))
		}
	}
	return out
}

// AllNeighbours lists the edit-distance-one neighbourhood of sequence: for
// every position the deletion, then for each differing symbol the
// substitution and the insertion in front of that position.
func AllNeighbours(sequence string, alphabet Alphabet) []string {
	out := make([]string, 0, len(sequence)*(2*alphabet.Len()+1))
	for pos := 0; pos < len(sequence); pos++ {
		out = append(out, sequence[:pos]+sequence[pos+1:])
		for i := 0; i < alphabet.Len(); i++ {
			symbol := alphabet.At(i)
			if symbol == sequence[pos] {
				continue
			}
			out = append(out, sequence[:pos]+string(symbol)+sequence[pos+1:])
			out = append(out, sequence[:pos]+string(symbol)+sequence[pos:])
		}
	}
	return out
}
