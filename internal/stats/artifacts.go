package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"ampclimb/internal/model"
	"ampclimb/internal/seqio"
)

const runIndexFile = "run_index.json"

// Files written for every batch, in export order.
const (
	ConfigFile   = "config.json"
	ResultsFile  = "results.json"
	FASTAFile    = "results.fasta"
	SummaryFile  = "summary.json"
	ProgressFile = "progress.csv"
)

var artifactFiles = []string{ConfigFile, ResultsFile, FASTAFile, SummaryFile, ProgressFile}

type RunIndexEntry struct {
	BatchID      string  `json:"batch_id"`
	Oracle       string  `json:"oracle"`
	Strategy     string  `json:"strategy"`
	Runs         int     `json:"runs"`
	Failed       int     `json:"failed"`
	EpochBudget  int     `json:"epoch_budget"`
	Workers      int     `json:"workers"`
	BestScore    float64 `json:"best_score"`
	BestSequence string  `json:"best_sequence"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

func IndexEntry(batch model.Batch, summary BatchSummary) RunIndexEntry {
	return RunIndexEntry{
		BatchID:      batch.ID,
		Oracle:       batch.Config.Oracle,
		Strategy:     batch.Config.Strategy,
		Runs:         summary.Runs,
		Failed:       summary.Failed,
		EpochBudget:  batch.Config.EpochBudget,
		Workers:      batch.Config.Workers,
		BestScore:    summary.BestScore,
		BestSequence: summary.BestSequence,
		CreatedAtUTC: batch.CreatedAtUTC,
	}
}

// WriteBatchArtifacts writes the batch under baseDir/<id> and returns that
// directory. results.json uses the trace list format read by
// seqio.ReadTraces; failed runs appear there as empty traces so indices line
// up with the inputs.
func WriteBatchArtifacts(baseDir string, batch model.Batch) (string, error) {
	if batch.ID == "" {
		return "", fmt.Errorf("batch id is required")
	}

	runDir := filepath.Join(baseDir, batch.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	traces := make([]model.Trace, len(batch.Results))
	for i, r := range batch.Results {
		traces[i] = r.Trace
	}
	summary := Summarize(batch)

	if err := writeJSON(filepath.Join(runDir, ConfigFile), batch.Config); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, ResultsFile), func(w io.Writer) error {
		return seqio.WriteTraces(w, traces)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, FASTAFile), func(w io.Writer) error {
		return seqio.WriteFASTA(w, seqio.TracesToFASTA(traces))
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, SummaryFile), summary); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, ProgressFile), func(w io.Writer) error {
		return WriteProgress(w, summary.MeanByEpoch)
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

// WriteProgress writes the mean-by-epoch series as CSV.
func WriteProgress(w io.Writer, meanByEpoch []float64) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"epoch", "mean_score"}); err != nil {
		return err
	}
	for i, v := range meanByEpoch {
		if err := writer.Write([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(v, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadSummary(baseDir, batchID string) (BatchSummary, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, batchID, SummaryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return BatchSummary{}, false, nil
		}
		return BatchSummary{}, false, err
	}
	var summary BatchSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return BatchSummary{}, false, err
	}
	return summary, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.BatchID == "" {
		return fmt.Errorf("batch id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := readRunIndex(baseDir)
	if err != nil {
		return err
	}
	for i := range index {
		if index[i].BatchID == entry.BatchID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}
	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries sharing a
// timestamp come back in reverse append order.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	entries, err := readRunIndex(baseDir)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

func readRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}
	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExportBatchArtifacts copies the artifact files of batchID to outDir/<id>.
func ExportBatchArtifacts(baseDir, batchID, outDir string) (string, error) {
	if batchID == "" {
		return "", fmt.Errorf("batch id is required")
	}

	src := filepath.Join(baseDir, batchID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, batchID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range artifactFiles {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
