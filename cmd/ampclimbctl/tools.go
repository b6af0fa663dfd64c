package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ampclimb/internal/mutate"
	"ampclimb/internal/seqio"
	"ampclimb/pkg/ampclimb"
)

func newNeighboursCmd(c *cli) *cobra.Command {
	var (
		name string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "neighbours SEQUENCE",
		Short: "Print the neighbourhood of a sequence as FASTA",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alphabet, err := mutate.NewAlphabet(c.cfg.Alphabet)
			if err != nil {
				return err
			}
			var records []seqio.Record
			if all {
				records = seqio.NeighbourFASTA(name, args[0], alphabet)
			} else {
				records = []seqio.Record{{Name: name, Sequence: args[0]}}
				for i, n := range mutate.SubstitutionNeighbours(args[0], alphabet) {
					records = append(records, seqio.Record{Name: fmt.Sprintf("%s_%d", name, i), Sequence: n})
				}
			}
			return seqio.WriteFASTA(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&name, "name", "seq", "FASTA name of the input sequence")
	cmd.Flags().BoolVar(&all, "all", false, "include deletions and insertions")
	return cmd
}

func newCompletionsCmd(c *cli) *cobra.Command {
	var (
		positions []int
		count     int
		seed      int64
	)
	cmd := &cobra.Command{
		Use:   "completions SEQUENCE",
		Short: "Print random completions that redraw the given positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alphabet, err := mutate.NewAlphabet(c.cfg.Alphabet)
			if err != nil {
				return err
			}
			variants, err := mutate.NewMutator(seed).GenerateCompletions(args[0], positions, count, alphabet)
			if err != nil {
				return err
			}
			for _, v := range variants {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&positions, "positions", nil, "zero-based positions to redraw")
	cmd.Flags().IntVar(&count, "count", 10, "number of completions")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func newToFASTACmd(_ *cli) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "to-fasta RESULTS_JSON",
		Short: "Convert a results file to FASTA named group_<i>_step_<j>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traces, err := ampclimb.ReadTracesFile(args[0])
			if err != nil {
				return err
			}
			records := seqio.TracesToFASTA(traces)
			if outPath == "" {
				return seqio.WriteFASTA(cmd.OutOrStdout(), records)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := seqio.WriteFASTA(f, records); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	return cmd
}

func newImportTSVCmd(_ *cli) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "import-tsv CLASSIFIER_TSV NAMES_FASTA",
		Short: "Rebuild a results file from external classifier output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fastaFile, err := os.Open(args[1])
			if err != nil {
				return err
			}
			records, err := seqio.ReadFASTA(fastaFile)
			_ = fastaFile.Close()
			if err != nil {
				return err
			}

			tsvFile, err := os.Open(args[0])
			if err != nil {
				return err
			}
			traces, err := seqio.ReadClassifierTSV(tsvFile, seqio.NameIndex(records))
			_ = tsvFile.Close()
			if err != nil {
				return err
			}

			if outPath == "" {
				return seqio.WriteTraces(cmd.OutOrStdout(), traces)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := seqio.WriteTraces(f, traces); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default stdout)")
	return cmd
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
