package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reviewlens/internal/cache"
	"reviewlens/internal/model"
	"reviewlens/internal/pipeline"
	"reviewlens/internal/worker"
)

var (
	batchConcurrency int
	batchOutputDir   string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Analyze multiple products from a file in parallel",
	Long: `Batch reads product queries from a file (one per line, # comments
allowed) and runs the analysis pipeline for each on a worker pool,
writing one JSON report per product.

Example:
  reviewlens batch products.txt
  reviewlens batch products.txt --concurrency 5 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", model.DefaultConfig().Concurrency.BatchWorkers, "number of concurrent analyses")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "./reviewlens-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	batchCmd.Flags().BoolVar(&noSimulated, "no-simulated", false, "disable the simulated review source")
	batchCmd.Flags().IntVar(&simulatedCount, "simulated-reviews", 80, "reviews per query from the simulated source")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// analyzeJob runs one product analysis on the pool.
type analyzeJob struct {
	orch      *pipeline.Orchestrator
	query     string
	outputDir string
}

type analyzeResult struct {
	query string
	score float64
	err   error
}

func (r *analyzeResult) GetError() error { return r.err }

func (j *analyzeJob) Execute(ctx context.Context) worker.Result {
	state, err := j.orch.Run(ctx, "", j.query, nil)
	if err != nil {
		return &analyzeResult{query: j.query, err: err}
	}
	if state.Final == nil {
		return &analyzeResult{query: j.query, err: fmt.Errorf("no report produced")}
	}

	path := filepath.Join(j.outputDir, cache.NormalizeName(j.query)+".json")
	if err := writeReportJSON(path, state.Final); err != nil {
		return &analyzeResult{query: j.query, err: err}
	}
	return &analyzeResult{query: j.query, score: state.Final.OverallScore}
}

func runBatch(cmd *cobra.Command, args []string) error {
	queries, err := readQueries(args[0])
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries found in %s", args[0])
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	if err := buildLLM(cfg, llmProvider, llmModel); err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg, buildSources(cfg, noSimulated, simulatedCount))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Analyzing %d products with %d workers\n", len(queries), batchConcurrency)

	pool := worker.NewPool(batchConcurrency)
	pool.Start()
	for _, q := range queries {
		pool.Submit(&analyzeJob{orch: orch, query: q, outputDir: batchOutputDir})
	}

	done := make(chan []worker.Result, 1)
	go func() { done <- pool.Wait() }()

	var results []worker.Result
	select {
	case <-ctx.Done():
		pool.Shutdown()
		return fmt.Errorf("batch timed out after %v", batchTimeout)
	case results = <-done:
	}

	failed := 0
	for _, r := range results {
		res, ok := r.(*analyzeResult)
		if !ok {
			continue
		}
		if res.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", res.query, res.err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  ✓ %-40s %.1f/10\n", res.query, res.score)
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d succeeded, %d failed. Reports in %s\n", len(results)-failed, failed, batchOutputDir)
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses failed", failed, len(results))
	}
	return nil
}

// readQueries reads one product query per line; blank lines and #
// comments are skipped.
func readQueries(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}
