package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reviewlens/internal/pipeline"
)

var (
	outJSON        string
	analyzeTimeout time.Duration
	noCache        bool
	noSimulated    bool
	simulatedCount int
	llmProvider    string
	llmModel       string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <product query>",
	Short: "Analyze reviews for a product and generate a quality report",
	Long: `Analyze collects reviews for a product across the configured sources
and runs the full quality pipeline over them.

Example:
  reviewlens analyze "Sony WH-1000XM5 headphones"
  reviewlens analyze "Dyson V15" --json report.json
  reviewlens analyze "Steam Deck OLED" --llm-provider ollama --llm-model mistral`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "write the full report as JSON to this path")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall analysis timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache (force fresh analysis)")
	analyzeCmd.Flags().BoolVar(&noSimulated, "no-simulated", false, "disable the simulated review source")
	analyzeCmd.Flags().IntVar(&simulatedCount, "simulated-reviews", 80, "reviews per query from the simulated source")
	analyzeCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
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

	var notifier pipeline.Notifier
	if verbose {
		notifier = stderrNotifier{}
	}

	state, err := orch.Run(ctx, "", query, notifier)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if state.Final == nil {
		return fmt.Errorf("analysis produced no report")
	}

	renderReport(os.Stdout, state.Final, verbose)
	if len(state.Errors) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarnings:\n")
		for _, e := range state.Errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
	}

	if outJSON != "" {
		if err := writeReportJSON(outJSON, state.Final); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outJSON)
		}
	}

	return nil
}
