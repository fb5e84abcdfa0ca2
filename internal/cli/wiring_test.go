package cli

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadConfig_OverlaysViperValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("llm.provider", "ollama")
	viper.Set("llm.model", "mistral")
	viper.Set("http.rate_per_sec", 2.5)
	viper.Set("http.user_agent", "custom-agent/1.0")
	viper.Set("cache.enabled", false)
	viper.Set("cache.disk_ttl", "48h")
	viper.Set("concurrency.source_workers", 8)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.Provider != "ollama" || cfg.LLM.Model != "mistral" {
		t.Errorf("llm config not applied: %+v", cfg.LLM)
	}
	if cfg.HTTP.RatePerSec != 2.5 {
		t.Errorf("rate_per_sec = %v", cfg.HTTP.RatePerSec)
	}
	if cfg.HTTP.UserAgent != "custom-agent/1.0" {
		t.Errorf("user_agent = %q", cfg.HTTP.UserAgent)
	}
	if cfg.Cache.Enabled {
		t.Error("cache.enabled=false ignored")
	}
	if cfg.Cache.DiskTTL != 48*time.Hour {
		t.Errorf("disk_ttl = %v", cfg.Cache.DiskTTL)
	}
	if cfg.Concurrency.SourceWorkers != 8 {
		t.Errorf("source_workers = %d", cfg.Concurrency.SourceWorkers)
	}
}

func TestLoadConfig_DefaultsSurviveUnsetKeys(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("llm.provider", "openai")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LLM.MaxTokens != 1000 {
		t.Errorf("max_tokens default lost: %d", cfg.LLM.MaxTokens)
	}
	if cfg.HTTP.Timeout != 30*time.Second {
		t.Errorf("http timeout default lost: %v", cfg.HTTP.Timeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache default lost")
	}
	if cfg.Analysis.FlagThreshold != 0.7 {
		t.Errorf("analysis defaults lost: %v", cfg.Analysis.FlagThreshold)
	}
}
