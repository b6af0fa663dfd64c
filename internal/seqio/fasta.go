// Package seqio reads and writes the sequence, trace and classifier files
// exchanged with external tooling.
package seqio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMalformed = errors.New("malformed input")

// Record is one named FASTA entry.
type Record struct {
	Name     string
	Sequence string
}

// ReadFASTA parses multi-line FASTA. Sequence lines are joined and
// upper-cased; blank lines are skipped. Sequence data before the first
// header is rejected.
func ReadFASTA(r io.Reader) ([]Record, error) {
	var (
		out     []Record
		current *Record
		seq     strings.Builder
		lineNo  int
	)
	flush := func() {
		if current != nil {
			current.Sequence = strings.ToUpper(seq.String())
			out = append(out, *current)
			seq.Reset()
		}
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ">") {
			flush()
			current = &Record{Name: strings.TrimSpace(line[1:])}
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("%w: line %d: sequence before first header", ErrMalformed, lineNo)
		}
		seq.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	flush()
	return out, nil
}

// ReadPlain returns every non-blank line that is not a FASTA header. It
// accepts both bare sequence lists and single-line FASTA.
func ReadPlain(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sequences: %w", err)
	}
	return out, nil
}

func WriteFASTA(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", rec.Name, rec.Sequence); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Sequences returns the sequence column of records.
func Sequences(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Sequence
	}
	return out
}

// NameIndex maps record names to sequences. Later duplicates win.
func NameIndex(records []Record) map[string]string {
	out := make(map[string]string, len(records))
	for _, rec := range records {
		out[rec.Name] = rec.Sequence
	}
	return out
}
