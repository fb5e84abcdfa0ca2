package model

import "time"

// Config is the explicit configuration value threaded into every
// component constructor. Nothing in the module reads ambient globals.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	HTTP        HTTPConfig        `yaml:"http"`
	Cache       CacheConfig       `yaml:"cache"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig configures the text-generation and embedding collaborator.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // "openai", "anthropic", "ollama", "" = disabled
	Model      string `yaml:"model"`
	EmbedModel string `yaml:"embed_model"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Timeout    int    `yaml:"timeout"` // seconds, applied per call
	MaxTokens  int    `yaml:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// HTTPConfig configures outbound review-source fetching.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RatePerSec   float64       `yaml:"rate_per_sec"` // per-domain
	RateBurst    int           `yaml:"rate_burst"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty"`
	NoProxy      string        `yaml:"no_proxy,omitempty"`
}

// CacheConfig configures report caching.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// AnalysisConfig carries the numeric knobs of the analysis components.
// Values mirror the tuned defaults; tests rely on DefaultConfig.
type AnalysisConfig struct {
	MinReviewsAnomaly int     `yaml:"min_reviews_anomaly"` // below this all scores are 0
	Contamination     float64 `yaml:"contamination"`       // anomaly prior
	FlagThreshold     float64 `yaml:"flag_threshold"`      // score above which a review is flagged
	BurstWindowDays   int     `yaml:"burst_window_days"`
	BurstThreshold    int     `yaml:"burst_threshold"`

	MinReviewsDrift int     `yaml:"min_reviews_drift"`
	SegmentPenalty  float64 `yaml:"segment_penalty"`
	TrendDelta      float64 `yaml:"trend_delta"`

	MinReviewsCluster int `yaml:"min_reviews_cluster"`
	ReducedDims       int `yaml:"reduced_dims"`
	MaxNeighbors      int `yaml:"max_neighbors"`

	FeaturedCount int `yaml:"featured_count"`
	ABSASampleMax int `yaml:"absa_sample_max"`
	ABSABatchSize int `yaml:"absa_batch_size"`
}

// ConcurrencyConfig bounds the concurrent fan-outs.
type ConcurrencyConfig struct {
	SourceWorkers int `yaml:"source_workers"`
	ABSAWorkers   int `yaml:"absa_workers"`
	BatchWorkers  int `yaml:"batch_workers"`
}

// OutputConfig configures rendering.
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "",
			Model:      "",
			EmbedModel: "",
			Timeout:    30,
			MaxTokens:  1000,
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "ReviewLens/0.1 (+https://github.com/reviewlens)",
			MaxBodyBytes: 2_000_000,
			RatePerSec:   1.0,
			RateBurst:    3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".reviewlens-cache",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		Analysis: AnalysisConfig{
			MinReviewsAnomaly: 5,
			Contamination:     0.1,
			FlagThreshold:     0.7,
			BurstWindowDays:   3,
			BurstThreshold:    10,

			MinReviewsDrift: 3,
			SegmentPenalty:  0.02,
			TrendDelta:      0.05,

			MinReviewsCluster: 10,
			ReducedDims:       5,
			MaxNeighbors:      15,

			FeaturedCount: 5,
			ABSASampleMax: 50,
			ABSABatchSize: 25,
		},
		Concurrency: ConcurrencyConfig{
			SourceWorkers: 4,
			ABSAWorkers:   2,
			BatchWorkers:  3,
		},
		Output: OutputConfig{},
	}
}
