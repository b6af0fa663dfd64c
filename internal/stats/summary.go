package stats

import (
	"math"

	"ampclimb/internal/model"
)

// RunSummary condenses one run of a batch.
type RunSummary struct {
	Index        int            `json:"index"`
	Start        string         `json:"start"`
	State        model.RunState `json:"state"`
	Epochs       int            `json:"epochs"`
	Steps        int            `json:"steps"`
	InitialScore float64        `json:"initial_score"`
	BestScore    float64        `json:"best_score"`
	BestSequence string         `json:"best_sequence"`
	Gain         float64        `json:"gain"`
	Error        string         `json:"error,omitempty"`
}

// BatchSummary aggregates a batch. Gain and step statistics cover runs with a
// non-empty trace only.
type BatchSummary struct {
	BatchID         string       `json:"batch_id"`
	Runs            int          `json:"runs"`
	Converged       int          `json:"converged"`
	BudgetExhausted int          `json:"budget_exhausted"`
	Failed          int          `json:"failed"`
	BestScore       float64      `json:"best_score"`
	BestSequence    string       `json:"best_sequence"`
	MeanGain        float64      `json:"mean_gain"`
	StdGain         float64      `json:"std_gain"`
	MeanSteps       float64      `json:"mean_steps"`
	MeanByEpoch     []float64    `json:"mean_by_epoch"`
	PerRun          []RunSummary `json:"per_run"`
}

func SummarizeRun(r model.RunResult) RunSummary {
	out := RunSummary{
		Index:  r.Index,
		Start:  r.Start,
		State:  r.State,
		Epochs: r.Epochs,
		Error:  r.Error,
	}
	if len(r.Trace) == 0 {
		return out
	}
	best, _ := r.Trace.Best()
	out.Steps = len(r.Trace) - 1
	out.InitialScore = r.Trace[0].Score
	out.BestScore = best.Score
	out.BestSequence = best.Sequence
	out.Gain = best.Score - r.Trace[0].Score
	return out
}

func Summarize(batch model.Batch) BatchSummary {
	out := BatchSummary{
		BatchID: batch.ID,
		Runs:    len(batch.Results),
		PerRun:  make([]RunSummary, 0, len(batch.Results)),
	}
	var gains, steps []float64
	haveBest := false
	for _, r := range batch.Results {
		rs := SummarizeRun(r)
		out.PerRun = append(out.PerRun, rs)
		switch r.State {
		case model.StateConverged:
			out.Converged++
		case model.StateBudgetExhausted:
			out.BudgetExhausted++
		case model.StateFailed:
			out.Failed++
		}
		if len(r.Trace) == 0 {
			continue
		}
		gains = append(gains, rs.Gain)
		steps = append(steps, float64(rs.Steps))
		if !haveBest || rs.BestScore > out.BestScore {
			out.BestScore = rs.BestScore
			out.BestSequence = rs.BestSequence
			haveBest = true
		}
	}
	out.MeanGain, out.StdGain = meanStd(gains)
	out.MeanSteps, _ = meanStd(steps)
	out.MeanByEpoch = MeanByEpoch(traces(batch.Results))
	return out
}

// MeanByEpoch averages score at each trace index over the traces long enough
// to reach it.
func MeanByEpoch(traces []model.Trace) []float64 {
	longest := 0
	for _, t := range traces {
		longest = max(longest, len(t))
	}
	out := make([]float64, longest)
	for i := range out {
		sum, n := 0.0, 0
		for _, t := range traces {
			if i < len(t) {
				sum += t[i].Score
				n++
			}
		}
		out[i] = sum / float64(n)
	}
	return out
}

func traces(results model.BatchResult) []model.Trace {
	out := make([]model.Trace, 0, len(results))
	for _, r := range results {
		if len(r.Trace) > 0 {
			out = append(out, r.Trace)
		}
	}
	return out
}

func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / float64(len(values)))
}
