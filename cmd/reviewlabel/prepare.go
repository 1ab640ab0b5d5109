package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/reviewlabel/internal/analysis"
	"github.com/kiranshivaraju/reviewlabel/internal/dataset"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

type prepareFlags struct {
	reviews string
	meta    string
	out     string
	sample  int
	seed    int64
}

func newPrepareCmd() *cobra.Command {
	f := &prepareFlags{}
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Sample Google Local reviews and join them with place metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPrepare(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.reviews, "reviews", "", "review-<state>.json file (required)")
	cmd.Flags().StringVar(&f.meta, "meta", "", "meta-<state>.json file (required)")
	cmd.Flags().StringVar(&f.out, "out", "", "output CSV path (required)")
	cmd.Flags().IntVar(&f.sample, "sample", 1000, "number of reviews to sample")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "sampling seed")
	cmd.MarkFlagRequired("reviews")
	cmd.MarkFlagRequired("meta")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runPrepare(cmd *cobra.Command, f *prepareFlags) error {
	ctx := cmd.Context()

	src, err := dataset.LoadSources(ctx, f.reviews, f.meta)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	slog.Info("sources loaded",
		"reviews", len(src.Reviews),
		"places", len(src.Places),
		"skipped_reviews", src.SkippedReviews,
		"skipped_places", src.SkippedPlaces,
	)

	sampled := dataset.Sample(src.Reviews, f.sample, f.seed)
	merged := dataset.JoinOnPlaceID(sampled, src.Places, dataset.JoinInner)

	missing := dataset.MissingReport(merged, "description", "category")
	slog.Info("merged with place metadata",
		"sampled", len(sampled),
		"rows", missing.Rows,
		"missing_description", missing.MissingDescription,
		"missing_category", missing.MissingCategory,
	)

	if records, err := dataset.ToRecords(merged, dataset.Columns{}); err == nil {
		logProfile(records)
	}

	if err := dataset.WriteCSVFile(f.out, merged); err != nil {
		return fmt.Errorf("write prepared csv: %w", err)
	}
	slog.Info("prepared dataset written", "path", f.out)
	return nil
}

func logProfile(records []models.ReviewRecord) {
	p := analysis.ProfileRecords(records)
	slog.Info("input profile",
		"records", p.Records,
		"blank", p.Blank,
		"with_contact_details", p.WithContact,
		"duplicate_groups", p.DuplicateGroups,
		"duplicate_records", p.DuplicateRecords,
		"mean_words", p.MeanWords,
	)
	if p.DuplicateGroups == 0 {
		return
	}
	for i, g := range analysis.GroupDuplicates(records) {
		if i == 3 {
			break
		}
		slog.Debug("duplicate review text",
			"count", g.Count,
			"businesses", g.Businesses,
			"sample", analysis.Truncate(g.Sample, 80),
		)
	}
}
