package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"ampclimb/internal/seqio"
)

func TestWriteAndExportBatchArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")
	batch := sampleBatch()

	runDir, err := WriteBatchArtifacts(baseDir, batch)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range artifactFiles {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	f, err := os.Open(filepath.Join(runDir, ResultsFile))
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()
	traces, err := seqio.ReadTraces(f)
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if len(traces) != 3 || len(traces[0]) != 3 || len(traces[2]) != 0 {
		t.Fatalf("unexpected traces: %+v", traces)
	}

	fasta, err := os.ReadFile(filepath.Join(runDir, FASTAFile))
	if err != nil {
		t.Fatalf("read fasta: %v", err)
	}
	if !bytes.HasPrefix(fasta, []byte(">group_0_step_0\nAAAA\n")) {
		t.Fatalf("unexpected fasta: %s", fasta)
	}

	summary, ok, err := ReadSummary(baseDir, batch.ID)
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%t err=%v", ok, err)
	}
	if summary.BestSequence != "BBAA" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	exportedDir, err := ExportBatchArtifacts(baseDir, batch.ID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range artifactFiles {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteBatchArtifactsRequiresID(t *testing.T) {
	batch := sampleBatch()
	batch.ID = ""
	if _, err := WriteBatchArtifacts(t.TempDir(), batch); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestExportMissingBatch(t *testing.T) {
	if _, err := ExportBatchArtifacts(t.TempDir(), "nope", t.TempDir()); err == nil {
		t.Fatal("expected error for missing batch")
	}
}

func TestReadSummaryMissing(t *testing.T) {
	_, ok, err := ReadSummary(t.TempDir(), "nope")
	if err != nil || ok {
		t.Fatalf("expected clean miss, ok=%t err=%v", ok, err)
	}
}

func TestWriteProgress(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteProgress(&buf, []float64{0.25, 0.5}); err != nil {
		t.Fatalf("write progress: %v", err)
	}
	if got, want := buf.String(), "epoch,mean_score\n0,0.25\n1,0.5\n"; got != want {
		t.Fatalf("progress = %q, want %q", got, want)
	}
}

func TestRunIndexNewestFirst(t *testing.T) {
	baseDir := t.TempDir()
	entries := []RunIndexEntry{
		{BatchID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{BatchID: "b", CreatedAtUTC: "2026-03-01T00:00:00Z"},
		{BatchID: "c", CreatedAtUTC: "2026-01-01T00:00:00Z"},
	}
	for _, e := range entries {
		if err := AppendRunIndex(baseDir, e); err != nil {
			t.Fatalf("append %s: %v", e.BatchID, err)
		}
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{BatchID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z", Runs: 7}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	got, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := []string{}
	for _, e := range got {
		ids = append(ids, e.BatchID)
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "c" || ids[2] != "a" {
		t.Fatalf("unexpected order: %v", ids)
	}
	if got[2].Runs != 7 {
		t.Fatalf("expected replaced entry, got %+v", got[2])
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	got, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty index, got %+v", got)
	}
}
