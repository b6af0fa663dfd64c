package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// ScoreRecord is one entry of a climb trace. Improvement is the score gain
// over the record it replaced; the baseline record always carries 0.
type ScoreRecord struct {
	Sequence    string  `json:"sequence"`
	Score       float64 `json:"score"`
	Improvement float64 `json:"improvement"`
}

// Trace is the ordered record of accepted steps for a single run. It starts
// with the baseline score of the starting sequence.
type Trace []ScoreRecord

// Best returns the last record, which is the best sequence the run reached.
func (t Trace) Best() (ScoreRecord, bool) {
	if len(t) == 0 {
		return ScoreRecord{}, false
	}
	return t[len(t)-1], true
}

// Scores returns the score column of the trace.
func (t Trace) Scores() []float64 {
	out := make([]float64, len(t))
	for i, rec := range t {
		out[i] = rec.Score
	}
	return out
}

// Clone returns an independent copy.
func (t Trace) Clone() Trace {
	if t == nil {
		return nil
	}
	return append(Trace(nil), t...)
}

type RunState string

const (
	StateRunning         RunState = "running"
	StateConverged       RunState = "converged"
	StateBudgetExhausted RunState = "budget_exhausted"
	StateFailed          RunState = "failed"
)

// RunResult is the outcome of one optimize call inside a batch.
type RunResult struct {
	Index  int      `json:"index"`
	Start  string   `json:"start"`
	Trace  Trace    `json:"trace"`
	State  RunState `json:"state"`
	Epochs int      `json:"epochs"`
	Error  string   `json:"error,omitempty"`

	Err error `json:"-"`
}

func (r RunResult) Failed() bool {
	return r.State == StateFailed
}

// BatchResult holds one RunResult per submitted start sequence, in
// submission order.
type BatchResult []RunResult

// Traces returns the traces of successful runs in submission order.
func (b BatchResult) Traces() []Trace {
	out := make([]Trace, 0, len(b))
	for _, r := range b {
		if r.Failed() {
			continue
		}
		out = append(out, r.Trace)
	}
	return out
}

func (b BatchResult) FailedCount() int {
	n := 0
	for _, r := range b {
		if r.Failed() {
			n++
		}
	}
	return n
}

// BatchConfig is the persisted description of how a batch was run.
type BatchConfig struct {
	Strategy           string `json:"strategy"`
	Alphabet           string `json:"alphabet"`
	ChangeMultiple     bool   `json:"change_multiple"`
	EpochBudget        int    `json:"epoch_budget"`
	SampledPositions   []int  `json:"sampled_positions,omitempty"`
	SampledCompletions int    `json:"sampled_completions,omitempty"`
	SampledPatience    int    `json:"sampled_patience,omitempty"`
	Workers            int    `json:"workers"`
	Seed               int64  `json:"seed"`
	Oracle             string `json:"oracle"`
	SerializeOracle    bool   `json:"serialize_oracle"`
}

// Batch is a persisted batch run.
type Batch struct {
	VersionedRecord
	ID           string      `json:"id"`
	CreatedAtUTC string      `json:"created_at_utc"`
	Config       BatchConfig `json:"config"`
	Results      BatchResult `json:"results"`
}

// BatchSummary is the listing view of a persisted batch.
type BatchSummary struct {
	ID           string  `json:"id"`
	CreatedAtUTC string  `json:"created_at_utc"`
	Oracle       string  `json:"oracle"`
	Runs         int     `json:"runs"`
	Failed       int     `json:"failed"`
	BestScore    float64 `json:"best_score"`
	BestSequence string  `json:"best_sequence"`
}

// Summarize builds the listing view of b.
func (b Batch) Summarize() BatchSummary {
	summary := BatchSummary{
		ID:           b.ID,
		CreatedAtUTC: b.CreatedAtUTC,
		Oracle:       b.Config.Oracle,
		Runs:         len(b.Results),
		Failed:       b.Results.FailedCount(),
	}
	first := true
	for _, r := range b.Results {
		best, ok := r.Trace.Best()
		if !ok {
			continue
		}
		if first || best.Score > summary.BestScore {
			summary.BestScore = best.Score
			summary.BestSequence = best.Sequence
			first = false
		}
	}
	return summary
}
