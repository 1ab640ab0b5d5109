// Package main is the entrypoint for the reviewlabel CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	logFormat string
	debug     bool
	jobFile   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("reviewlabel failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "reviewlabel",
		Short:         "Label business reviews with an LLM moderation policy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.OutOrStdout(), g.logFormat, g.debug)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "json", "log output format: json or text")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&g.jobFile, "job", "", "path to a YAML job file")

	root.AddCommand(
		newPrepareCmd(),
		newClassifyCmd(g),
		newMergeCmd(),
		newServeCmd(),
	)
	return root
}

func newLogger(w io.Writer, format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "json", "":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: must be json or text", format)
	}
}
