package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reviewlens/internal/jobs"
	"reviewlens/internal/llm"
	"reviewlens/internal/server"
)

var (
	serveAddr   string
	serveJobTTL time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve exposes the analysis pipeline over HTTP:

  POST /api/analyze            submit a product query, returns a job id
  GET  /api/jobs/{id}          poll job status and progress
  GET  /api/stream/{id}        stream progress as server-sent events
  GET  /api/report/{id}        fetch the finished report
  POST /api/jobs/{id}/cancel   cancel a running job
  GET  /api/health             service and LLM health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().DurationVar(&serveJobTTL, "job-ttl", time.Hour, "how long finished jobs stay queryable")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")
	serveCmd.Flags().BoolVar(&noSimulated, "no-simulated", false, "disable the simulated review source")
	serveCmd.Flags().IntVar(&simulatedCount, "simulated-reviews", 80, "reviews per query from the simulated source")
	serveCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}

	handler := server.New(orch, jobs.NewStore(serveJobTTL), provider)
	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "reviewlens API listening on %s\n", serveAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		fmt.Fprintf(os.Stderr, "received %s, shutting down\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
