package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/reviewlabel/internal/ai"
	"github.com/kiranshivaraju/reviewlabel/internal/cache"
	"github.com/kiranshivaraju/reviewlabel/internal/classify"
	"github.com/kiranshivaraju/reviewlabel/internal/config"
	"github.com/kiranshivaraju/reviewlabel/internal/dataset"
	"github.com/kiranshivaraju/reviewlabel/internal/observability"
	"github.com/kiranshivaraju/reviewlabel/internal/runner"
	"github.com/kiranshivaraju/reviewlabel/internal/sink"
	"github.com/kiranshivaraju/reviewlabel/internal/store"
	"github.com/kiranshivaraju/reviewlabel/pkg/models"
)

// runStatusTTL keeps live run state in Redis long enough to outlive slow runs.
const runStatusTTL = 24 * time.Hour

type classifyFlags struct {
	input          string
	output         string
	failures       string
	format         string
	policy         string
	prefilterBlank bool
	limit          int
	concurrency    int
	maxRetries     int
	backoff        time.Duration
	progressEvery  int
	metricsAddr    string
	migrationsDir  string
}

func newClassifyCmd(g *globalFlags) *cobra.Command {
	f := &classifyFlags{}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify every review in a CSV with the configured AI provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClassify(cmd, g, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "input CSV path")
	fl.StringVar(&f.output, "output", "", "output path")
	fl.StringVar(&f.failures, "failures", "", "failures CSV path for split-csv (default <output>_failures.csv)")
	fl.StringVar(&f.format, "format", config.FormatCSV, "output format: csv, split-csv or json")
	fl.StringVar(&f.policy, "policy", "", "policy prompt file (default: built-in moderation policy)")
	fl.BoolVar(&f.prefilterBlank, "prefilter-blank", false, "label blank reviews Irrelevant without calling the model")
	fl.IntVar(&f.limit, "limit", 0, "classify only the first N rows (0 = all)")
	fl.IntVar(&f.concurrency, "concurrency", 0, "worker count (overrides RUNNER_CONCURRENCY)")
	fl.IntVar(&f.maxRetries, "max-retries", 0, "retries per record (overrides RUNNER_MAX_RETRIES)")
	fl.DurationVar(&f.backoff, "backoff", 0, "linear backoff step between attempts (overrides RUNNER_BACKOFF)")
	fl.IntVar(&f.progressEvery, "progress-every", 50, "log progress every N records")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve the ops API on this address during the run (overrides METRICS_ADDR)")
	fl.StringVar(&f.migrationsDir, "migrations", "migrations", "directory holding SQL migrations")
	return cmd
}

// classifyJob is the resolved per-run configuration after env, job file and
// flags have been layered.
type classifyJob struct {
	input          string
	output         string
	failures       string
	format         string
	policyPath     string
	prefilterBlank bool
	limit          int
	columns        dataset.Columns
}

func resolveClassifyJob(cmd *cobra.Command, g *globalFlags, f *classifyFlags, cfg *config.Config) (classifyJob, error) {
	job := classifyJob{format: config.FormatCSV}

	if g.jobFile != "" {
		jf, err := config.LoadJobFile(g.jobFile)
		if err != nil {
			return job, err
		}
		if err := jf.ApplyTo(&cfg.Runner); err != nil {
			return job, err
		}
		job.input = jf.Input.Path
		job.output = jf.Output.Path
		job.failures = jf.Output.FailuresPath
		job.format = jf.Output.Format
		job.policyPath = jf.PolicyPath
		job.prefilterBlank = jf.PrefilterBlank
		job.limit = jf.Limit
		job.columns = dataset.Columns{
			BusinessName: jf.Input.Columns.BusinessName,
			Rating:       jf.Input.Columns.Rating,
			Text:         jf.Input.Columns.Text,
			Description:  jf.Input.Columns.Description,
			Category:     jf.Input.Columns.Category,
		}
	}

	fl := cmd.Flags()
	if fl.Changed("input") {
		job.input = f.input
	}
	if fl.Changed("output") {
		job.output = f.output
	}
	if fl.Changed("failures") {
		job.failures = f.failures
	}
	if fl.Changed("format") {
		job.format = f.format
	}
	if fl.Changed("policy") {
		job.policyPath = f.policy
	}
	if fl.Changed("prefilter-blank") {
		job.prefilterBlank = f.prefilterBlank
	}
	if fl.Changed("limit") {
		job.limit = f.limit
	}
	if fl.Changed("concurrency") {
		cfg.Runner.Concurrency = f.concurrency
	}
	if fl.Changed("max-retries") {
		cfg.Runner.MaxRetries = f.maxRetries
	}
	if fl.Changed("backoff") {
		cfg.Runner.Backoff = f.backoff
	}
	if fl.Changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}

	if job.input == "" {
		return job, errors.New("an input CSV is required (--input or input.path in the job file)")
	}
	if job.output == "" {
		return job, errors.New("an output path is required (--output or output.path in the job file)")
	}
	switch job.format {
	case config.FormatCSV, config.FormatSplitCSV, config.FormatJSON:
	default:
		return job, fmt.Errorf("unknown output format %q", job.format)
	}
	if job.limit < 0 {
		return job, fmt.Errorf("limit must not be negative, got %d", job.limit)
	}
	return job, nil
}

func runClassify(cmd *cobra.Command, g *globalFlags, f *classifyFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	job, err := resolveClassifyJob(cmd, g, f, cfg)
	if err != nil {
		return err
	}
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "model", cfg.AI.Model(), "env", cfg.Env)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	// 1. Load and adapt the input table.
	table, err := dataset.ReadCSVFile(job.input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	records, err := dataset.ToRecords(table, job.columns)
	if err != nil {
		return fmt.Errorf("adapt input: %w", err)
	}
	if job.limit > 0 && job.limit < len(records) {
		records = records[:job.limit]
	}
	logProfile(records)

	// 2. Build the classification service.
	provider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	policy, err := classify.LoadPolicy(job.policyPath)
	if err != nil {
		return err
	}
	svc, err := classify.NewService(classify.Config{
		Provider:          provider,
		PolicyPrompt:      policy,
		Model:             cfg.AI.Model(),
		MaxTokens:         cfg.AI.MaxTokens,
		Temperature:       cfg.AI.Temperature,
		Timeout:           cfg.AI.InferenceTimeout,
		RequestsPerSecond: cfg.AI.RequestsPerSecond,
	})
	if err != nil {
		return fmt.Errorf("create classification service: %w", err)
	}
	slog.Info("AI provider initialized", "provider", svc.Name(), "policy_hash", svc.PolicyHash()[:12])

	// 3. Optional backends.
	backends, cleanup, err := connectBackends(ctx, cfg, f.migrationsDir)
	if err != nil {
		return err
	}
	defer cleanup()

	classifyFn := runner.ClassifyFunc(svc.Classify)
	if backends.cache != nil {
		classifyFn = classify.NewCached(svc, backends.cache, cfg.Redis.CacheTTL, slog.Default()).Classify
	}

	reg := observability.InitRegistry()
	if cfg.Metrics.Addr != "" {
		opsCtx, stopOps := context.WithCancel(ctx)
		opsDone := make(chan error, 1)
		go func() {
			opsDone <- serveHTTP(opsCtx, cfg.Metrics.Addr, newOpsRouter(reg, backends.store, backends.cache, 0))
		}()
		defer func() {
			stopOps()
			if err := <-opsDone; err != nil {
				slog.Warn("ops server stopped with error", "error", err)
			}
		}()
	}

	// 4. Register the run.
	now := time.Now().UTC()
	run := &models.Run{
		ID:           uuid.New(),
		Status:       models.RunStatusPending,
		Provider:     svc.Name(),
		Model:        svc.Model(),
		InputPath:    job.input,
		TotalRecords: len(records),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tracker := newRunTracker(backends, run)
	if err := tracker.start(ctx); err != nil {
		return err
	}

	// 5. Classify.
	var filters []runner.PreFilter
	if job.prefilterBlank {
		filters = append(filters, runner.BlankTextFilter("", ""))
	}
	pipeline := runner.Pipeline{
		Filters: filters,
		Options: runner.Options{
			Concurrency: cfg.Runner.Concurrency,
			MaxRetries:  cfg.Runner.MaxRetries,
			Backoff:     cfg.Runner.Backoff,
			OnResult: runner.Chain(
				runner.ProgressLogger(len(records), f.progressEvery, slog.Default()),
				tracker.onResult(ctx),
			),
			Source: svc.Name(),
			Logger: slog.With("run_id", run.ID),
		},
	}
	slog.Info("classification started", "run_id", run.ID, "records", len(records),
		"concurrency", cfg.Runner.Concurrency, "max_retries", cfg.Runner.MaxRetries)

	results, err := pipeline.Run(ctx, records, classifyFn)
	if err != nil {
		tracker.fail(err)
		return fmt.Errorf("run classification: %w", err)
	}

	// 6. Persist.
	if err := sink.WriteFile(job.output, job.format, job.failures, results); err != nil {
		tracker.fail(err)
		return fmt.Errorf("write results: %w", err)
	}
	summary := models.Summarize(results)
	if err := tracker.finish(results, summary, ctx.Err()); err != nil {
		return err
	}

	slog.Info("classification complete",
		"run_id", run.ID,
		"output", job.output,
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"by_label", summary.ByLabel,
	)
	if ctx.Err() != nil {
		return fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	return nil
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// runTracker mirrors a run's lifecycle into whichever backends are configured.
type runTracker struct {
	b   backends
	run *models.Run
}

func newRunTracker(b backends, run *models.Run) *runTracker {
	return &runTracker{b: b, run: run}
}

func (t *runTracker) start(ctx context.Context) error {
	if t.b.store != nil {
		if err := t.b.store.CreateRun(ctx, t.run); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		if err := t.b.store.UpdateRunStatus(ctx, t.run.ID, models.RunStatusRunning); err != nil {
			return fmt.Errorf("start run: %w", err)
		}
	}
	if t.b.cache != nil {
		if err := t.b.cache.SetRunStatus(ctx, t.run.ID, models.RunStatusRunning, runStatusTTL); err != nil {
			slog.Warn("recording run status in cache", "run_id", t.run.ID, "error", err)
		}
	}
	return nil
}

// onResult counts completed records in the cache for live progress.
func (t *runTracker) onResult(ctx context.Context) func(models.ClassificationResult) {
	if t.b.cache == nil {
		return nil
	}
	key := cache.RunProgressKey(t.run.ID)
	return func(models.ClassificationResult) {
		if _, err := t.b.cache.IncrWithExpiry(ctx, key, runStatusTTL); err != nil {
			slog.Debug("incrementing run progress", "run_id", t.run.ID, "error", err)
		}
	}
}

// finish stores results and closes the run. Backend writes use a fresh
// context so an interrupted run is still recorded.
func (t *runTracker) finish(results []models.ClassificationResult, summary models.Summary, interrupted error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	status := models.RunStatusCompleted
	var opts []store.RunUpdateOption
	opts = append(opts, store.WithSummary(summary))
	if interrupted != nil {
		status = models.RunStatusFailed
		opts = append(opts, store.WithErrorMessage("interrupted: "+interrupted.Error()))
	}

	if t.b.store != nil {
		if err := t.b.store.InsertResults(ctx, t.run.ID, results); err != nil {
			t.fail(err)
			return fmt.Errorf("store results: %w", err)
		}
		if err := t.b.store.UpdateRunStatus(ctx, t.run.ID, status, opts...); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
	}
	if t.b.cache != nil {
		if err := t.b.cache.SetRunStatus(ctx, t.run.ID, status, runStatusTTL); err != nil {
			slog.Warn("recording run status in cache", "run_id", t.run.ID, "error", err)
		}
	}
	return nil
}

func (t *runTracker) fail(cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if t.b.store != nil {
		if err := t.b.store.UpdateRunStatus(ctx, t.run.ID, models.RunStatusFailed, store.WithErrorMessage(cause.Error())); err != nil {
			slog.Warn("marking run failed", "run_id", t.run.ID, "error", err)
		}
	}
	if t.b.cache != nil {
		if err := t.b.cache.SetRunStatus(ctx, t.run.ID, models.RunStatusFailed, runStatusTTL); err != nil {
			slog.Warn("recording run status in cache", "run_id", t.run.ID, "error", err)
		}
	}
}
