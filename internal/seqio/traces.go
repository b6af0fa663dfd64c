package seqio

import (
	"encoding/json"
	"fmt"
	"io"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
)

type traceDoc struct {
	Results model.Trace `json:"results"`
}

// ReadTraces decodes a JSON list of {"results": [...]} trace objects.
func ReadTraces(r io.Reader) ([]model.Trace, error) {
	var docs []traceDoc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("%w: decode traces: %v", ErrMalformed, err)
	}
	out := make([]model.Trace, len(docs))
	for i, doc := range docs {
		out[i] = doc.Results
	}
	return out, nil
}

func WriteTraces(w io.Writer, traces []model.Trace) error {
	docs := make([]traceDoc, len(traces))
	for i, t := range traces {
		docs[i] = traceDoc{Results: t}
		if docs[i].Results == nil {
			docs[i].Results = model.Trace{}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// StartsFromTraces returns the first sequence of every non-empty trace, so a
// new batch can start from the same points as an earlier one.
func StartsFromTraces(traces []model.Trace) []string {
	out := make([]string, 0, len(traces))
	for _, t := range traces {
		if len(t) == 0 || t[0].Sequence == "" {
			continue
		}
		out = append(out, t[0].Sequence)
	}
	return out
}

// TraceName is the FASTA header used for step j of trace i.
func TraceName(group, step int) string {
	return fmt.Sprintf("group_%d_step_%d", group, step)
}

// TracesToFASTA flattens traces into records named by TraceName. Records with
// an empty sequence are skipped but keep their step number.
func TracesToFASTA(traces []model.Trace) []Record {
	var out []Record
	for i, t := range traces {
		for j, rec := range t {
			if rec.Sequence == "" {
				continue
			}
			out = append(out, Record{Name: TraceName(i, j), Sequence: rec.Sequence})
		}
	}
	return out
}

// NeighbourFASTA lists sequence under name followed by every edit neighbour
// as name_0, name_1, ...
func NeighbourFASTA(name, sequence string, alphabet mutate.Alphabet) []Record {
	neighbours := mutate.AllNeighbours(sequence, alphabet)
	out := make([]Record, 0, len(neighbours)+1)
	out = append(out, Record{Name: name, Sequence: sequence})
	for i, n := range neighbours {
		out = append(out, Record{Name: fmt.Sprintf("%s_%d", name, i), Sequence: n})
	}
	return out
}
