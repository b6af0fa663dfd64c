package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ampclimb/pkg/ampclimb"
)

func newRunsCmd(c *cli) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be > 0")
			}
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			items, err := client.Runs(cmd.Context(), ampclimb.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, items)
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "no runs found")
				return nil
			}
			for _, it := range items {
				fmt.Fprintf(out, "%s created=%s oracle=%s strategy=%s runs=%s failed=%d best=%.6f %s\n",
					it.BatchID, relative(it.CreatedAtUTC), it.Oracle, it.Strategy,
					humanize.Comma(int64(it.Runs)), it.Failed, it.BestScore, it.BestSequence)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max batches to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the list as JSON")
	return cmd
}

func relative(createdAtUTC string) string {
	t, err := time.Parse(time.RFC3339Nano, createdAtUTC)
	if err != nil {
		return createdAtUTC
	}
	return humanize.Time(t)
}

func newShowCmd(c *cli) *cobra.Command {
	var (
		latest  bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "show [BATCH_ID]",
		Short: "Show a batch summary and its traces",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			req := ampclimb.ShowRequest{Latest: latest}
			if len(args) == 1 {
				req.BatchID = args[0]
			}
			res, err := client.Show(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, res)
			}
			out := cmd.OutOrStdout()
			s := res.Summary
			fmt.Fprintf(out, "batch_id=%s runs=%d converged=%d budget_exhausted=%d failed=%d best=%.6f %s\n",
				res.BatchID, s.Runs, s.Converged, s.BudgetExhausted, s.Failed, s.BestScore, s.BestSequence)
			for _, r := range s.PerRun {
				if r.Error != "" {
					fmt.Fprintf(out, "run=%d state=%s error=%s\n", r.Index, r.State, r.Error)
					continue
				}
				fmt.Fprintf(out, "run=%d state=%s steps=%d initial=%.6f best=%.6f %s -> %s\n",
					r.Index, r.State, r.Steps, r.InitialScore, r.BestScore, r.Start, r.BestSequence)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show the newest batch")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var (
		latest bool
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export [BATCH_ID]",
		Short: "Copy batch artifacts to an export directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()

			req := ampclimb.ExportRequest{Latest: latest, OutDir: outDir}
			if len(args) == 1 {
				req.BatchID = args[0]
			}
			res, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported batch_id=%s dir=%s\n", res.BatchID, res.Directory)
			return nil
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "export the newest batch")
	cmd.Flags().StringVar(&outDir, "out", "", "destination directory")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BATCH_ID",
		Short: "Remove a batch from the store (artifacts are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.client()
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted batch_id=%s\n", args[0])
			return nil
		},
	}
}
