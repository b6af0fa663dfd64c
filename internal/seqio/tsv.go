package seqio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ampclimb/internal/model"
)

// ActiveLabel marks a positive classifier call.
const ActiveLabel = "Active"

// ReadClassifierTSV turns tab-separated classifier output back into traces.
// Columns are name, ignored, label and confidence. Names follow TraceName and
// rows of one group must be contiguous; a new group starts a new trace. The
// score is the confidence for Active rows and 1-confidence otherwise; an
// unparsable or missing confidence counts as 0.
func ReadClassifierTSV(r io.Reader, sequences map[string]string) ([]model.Trace, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		out     []model.Trace
		current model.Trace
		group   string
		started bool
		row     int
	)
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: tsv: %v", ErrMalformed, err)
		}
		row++
		if len(fields) == 0 || (len(fields) == 1 && strings.TrimSpace(fields[0]) == "") {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("%w: tsv row %d: want at least 3 columns, got %d", ErrMalformed, row, len(fields))
		}
		name := strings.TrimSpace(fields[0])
		parts := strings.Split(name, "_")
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: tsv row %d: name %q is not group_<i>_step_<j>", ErrMalformed, row, name)
		}
		seq, ok := sequences[name]
		if !ok {
			return nil, fmt.Errorf("%w: tsv row %d: no sequence named %q", ErrMalformed, row, name)
		}
		if started && parts[1] != group {
			out = append(out, current)
			current = nil
		}
		group = parts[1]
		started = true

		confidence := 0.0
		if len(fields) > 3 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err == nil {
				confidence = v
			}
		}
		score := 1 - confidence
		if strings.TrimSpace(fields[2]) == ActiveLabel {
			score = confidence
		}
		current = append(current, model.ScoreRecord{Sequence: seq, Score: score})
	}
	if started {
		out = append(out, current)
	}
	return out, nil
}
