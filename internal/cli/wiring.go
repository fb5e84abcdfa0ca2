package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"reviewlens/internal/cache"
	"reviewlens/internal/llm"
	"reviewlens/internal/model"
	"reviewlens/internal/pipeline"
	"reviewlens/internal/source"
	"reviewlens/internal/worker"
)

// loadConfig resolves the effective configuration: defaults overlaid
// with the config file and REVIEWLENS_* environment values. Flags are
// applied by the commands afterwards, so precedence is flags > env >
// config file > defaults.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// buildLLM applies the shared LLM flags and environment keys to the
// config. An unset provider leaves the LLM disabled; the pipeline then
// degrades to its deterministic fallbacks.
func buildLLM(cfg *model.Config, provider, modelName string) error {
	if provider == "" {
		return nil
	}

	cfg.LLM.Provider = provider
	cfg.LLM.Model = modelName

	switch provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama needs no API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	default:
		return fmt.Errorf("unknown LLM provider: %s", provider)
	}
	return nil
}

// buildSources assembles the review sources: the simulated generator
// (unless disabled) plus any HTML feeds configured under sources.feeds
// as name -> url-template pairs.
func buildSources(cfg *model.Config, noSimulated bool, simulatedCount int) []source.Source {
	var sources []source.Source

	if !noSimulated {
		sources = append(sources, source.NewSimulated(simulatedCount))
	}

	feeds := viper.GetStringMapString("sources.feeds")
	names := make([]string, 0, len(feeds))
	for name := range feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		limiter := worker.NewLimiter(cfg.HTTP.RatePerSec, cfg.HTTP.RateBurst)
		for _, name := range names {
			sources = append(sources, source.NewHTMLFeed(name, feeds[name], cfg.HTTP, limiter))
		}
	}

	return sources
}

// buildOrchestrator wires the full pipeline from config.
func buildOrchestrator(cfg *model.Config, sources []source.Source) (*pipeline.Orchestrator, error) {
	llmCfg := llm.ConfigFromModel(cfg.LLM)
	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	embedder, err := llm.NewEmbedder(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	var reports *cache.ReportStore
	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		reports = cache.NewReportStore(layered, cfg.Cache.DiskTTL)
	}

	collector := source.NewCollector(sources, cfg.Concurrency.SourceWorkers)
	return pipeline.New(cfg, collector, provider, embedder, reports), nil
}
