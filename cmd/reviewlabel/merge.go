package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/reviewlabel/internal/dataset"
	"github.com/kiranshivaraju/reviewlabel/internal/sink"
)

type mergeFlags struct {
	labelled string
	meta     string
	out      string
	leftKey  string
	rightKey string
}

func newMergeCmd() *cobra.Command {
	f := &mergeFlags{}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Left-join labelled output with place metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.labelled, "labelled", "", "labelled CSV written by classify (required)")
	cmd.Flags().StringVar(&f.meta, "meta", "", "meta-<state>.json file (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "output CSV path (required)")
	cmd.Flags().StringVar(&f.leftKey, "left-key", "business_name", "join column in the labelled file")
	cmd.Flags().StringVar(&f.rightKey, "right-key", "name", "join column in the metadata")
	cmd.MarkFlagRequired("labelled")
	cmd.MarkFlagRequired("meta")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runMerge(cmd *cobra.Command, f *mergeFlags) error {
	labelled, err := sink.ReadResultsCSV(f.labelled)
	if err != nil {
		return fmt.Errorf("read labelled output: %w", err)
	}
	if !labelled.Has(f.leftKey) {
		return fmt.Errorf("%w: %s", dataset.ErrMissingColumn, f.leftKey)
	}

	places, skipped, err := dataset.ReadPlacesFile(cmd.Context(), f.meta)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	slog.Info("metadata loaded", "places", len(places), "skipped", skipped)

	merged := dataset.MergeWithPlaces(labelled, places, f.leftKey, f.rightKey)
	missing := dataset.MissingReport(merged, "description", "category")
	slog.Info("merged labelled output",
		"labelled_rows", labelled.Len(),
		"rows", missing.Rows,
		"missing_description", missing.MissingDescription,
		"missing_category", missing.MissingCategory,
	)

	if err := dataset.WriteCSVFile(f.out, merged); err != nil {
		return fmt.Errorf("write merged csv: %w", err)
	}
	slog.Info("merged dataset written", "path", f.out)
	return nil
}
