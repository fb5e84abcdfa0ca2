package aspects

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"reviewlens/internal/llm"
	"reviewlens/internal/model"
)

type stubProvider struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *stubProvider) Name() string                     { return "stub" }
func (s *stubProvider) IsAvailable(context.Context) bool { return true }
func (s *stubProvider) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	text := "[]"
	if i < len(s.responses) {
		text = s.responses[i]
	}
	return &llm.GenerateResponse{Text: text, Model: "stub"}, nil
}

func testConfig() model.AnalysisConfig {
	return model.DefaultConfig().Analysis
}

func makeReviews(source string, count int) []model.Review {
	out := make([]model.Review, 0, count)
	for i := 0; i < count; i++ {
		rating := float64(3 + i%3)
		out = append(out, model.Review{
			ID:     fmt.Sprintf("%s-%d", source, i),
			Source: source,
			Text:   fmt.Sprintf("Review %d from %s with enough body to matter.", i, source),
			Rating: &rating,
		})
	}
	return out
}

func TestRun_NoReviews(t *testing.T) {
	a := NewAnalyzer(&stubProvider{}, testConfig(), 2)

	aspects, err := a.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aspects) != 0 {
		t.Errorf("expected no aspects, got %d", len(aspects))
	}
}

func TestRun_NilProvider(t *testing.T) {
	a := NewAnalyzer(nil, testConfig(), 2)

	aspects, err := a.Run(context.Background(), makeReviews("amazon", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aspects) != 0 {
		t.Errorf("expected no aspects without a provider, got %d", len(aspects))
	}
}

func TestRun_ParsesAndFiltersVocabulary(t *testing.T) {
	p := &stubProvider{responses: []string{
		`[{"aspect": "Battery Life", "sentiment": "negative", "score": 0.3, "representative_quote": "drains fast", "mention_count": 4},
		  {"aspect": "teleportation", "sentiment": "positive", "score": 0.9, "representative_quote": "zoom", "mention_count": 9}]`,
	}}
	a := NewAnalyzer(p, testConfig(), 2)

	aspects, err := a.Run(context.Background(), makeReviews("amazon", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aspects) != 1 {
		t.Fatalf("expected 1 vocabulary aspect, got %d", len(aspects))
	}
	got := aspects[0]
	if got.Aspect != "battery life" {
		t.Errorf("aspect not normalized: %q", got.Aspect)
	}
	if got.Sentiment != model.AspectNegative {
		t.Errorf("sentiment = %s", got.Sentiment)
	}
	if got.Score != 0.3 {
		t.Errorf("score = %v", got.Score)
	}
	if got.MentionCount != 4 {
		t.Errorf("mention count = %d", got.MentionCount)
	}
}

func TestRun_StrictRetryAfterMalformedResponse(t *testing.T) {
	p := &stubProvider{responses: []string{
		"Sure! Here are the aspects I found, hope it helps.",
		`[{"aspect": "design", "sentiment": "positive", "score": 0.8, "representative_quote": "sleek", "mention_count": 2}]`,
	}}
	a := NewAnalyzer(p, testConfig(), 1)

	aspects, err := a.Run(context.Background(), makeReviews("amazon", 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("expected a retry, got %d calls", p.calls)
	}
	if !strings.Contains(p.prompts[1], "JSON array only:") {
		t.Error("retry did not use the strict prompt")
	}
	if len(aspects) != 1 || aspects[0].Aspect != "design" {
		t.Errorf("unexpected aspects: %+v", aspects)
	}
}

func TestRun_FailedBatchIsSkipped(t *testing.T) {
	p := &stubProvider{errs: []error{
		errors.New("model down"),
		errors.New("model down"),
	}}
	a := NewAnalyzer(p, testConfig(), 1)

	aspects, err := a.Run(context.Background(), makeReviews("amazon", 10))
	if err != nil {
		t.Fatalf("batch failure must not fail the run: %v", err)
	}
	if len(aspects) != 0 {
		t.Errorf("expected no aspects, got %d", len(aspects))
	}
}

func TestMergeAspects_AcrossBatches(t *testing.T) {
	batches := [][]aspectItem{
		{
			{Aspect: "performance", Sentiment: "positive", Score: 0.8, RepresentativeQuote: "fast", MentionCount: 3},
			{Aspect: "design", Sentiment: "positive", Score: 0.9, RepresentativeQuote: "a genuinely lovely shell", MentionCount: 1},
		},
		{
			{Aspect: "performance", Sentiment: "negative", Score: 0.4, RepresentativeQuote: "stutters under load sometimes", MentionCount: 2},
			{Aspect: "performance", Sentiment: "positive", Score: 0.6, RepresentativeQuote: "ok", MentionCount: 1},
		},
	}

	merged := mergeAspects(batches)

	if len(merged) != 2 {
		t.Fatalf("expected 2 aspects, got %d", len(merged))
	}
	perf := merged[0]
	if perf.Aspect != "performance" {
		t.Fatalf("expected performance first by mentions, got %q", perf.Aspect)
	}
	if perf.MentionCount != 6 {
		t.Errorf("mention count = %d, want 6", perf.MentionCount)
	}
	if perf.Score != 0.6 {
		t.Errorf("averaged score = %v, want 0.6", perf.Score)
	}
	if perf.Sentiment != model.AspectPositive {
		t.Errorf("dominant sentiment = %s, want positive", perf.Sentiment)
	}
	if perf.RepresentativeQuote != "stutters under load sometimes" {
		t.Errorf("quote = %q", perf.RepresentativeQuote)
	}
}

func TestSampleReviews_StratifiedAndCapped(t *testing.T) {
	reviews := append(makeReviews("amazon", 80), makeReviews("reddit", 20)...)

	sampled := sampleReviews(reviews, 50)

	if len(sampled) != 50 {
		t.Fatalf("expected 50 sampled, got %d", len(sampled))
	}
	counts := make(map[string]int)
	seen := make(map[string]bool)
	for _, r := range sampled {
		counts[r.Source]++
		if seen[r.ID] {
			t.Fatalf("duplicate review %s in sample", r.ID)
		}
		seen[r.ID] = true
	}
	if counts["reddit"] < 3 {
		t.Errorf("minority source underrepresented: %d", counts["reddit"])
	}
	if counts["amazon"] <= counts["reddit"] {
		t.Errorf("majority source should dominate: amazon=%d reddit=%d", counts["amazon"], counts["reddit"])
	}
}

func TestSampleReviews_SmallSetPassthrough(t *testing.T) {
	reviews := makeReviews("amazon", 10)
	sampled := sampleReviews(reviews, 50)
	if len(sampled) != 10 {
		t.Errorf("expected passthrough, got %d", len(sampled))
	}
}

func TestBuildBatches(t *testing.T) {
	batches := buildBatches(makeReviews("amazon", 60), 25)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 25 || len(batches[2]) != 10 {
		t.Errorf("unexpected batch sizes: %d, %d", len(batches[0]), len(batches[2]))
	}
}

func TestFormatBatch_IncludesSourceAndRating(t *testing.T) {
	rating := 4.0
	batch := []model.Review{
		{Source: "bestbuy", Rating: &rating, Text: "Solid product overall."},
		{Source: "reddit", Text: "No star rating here."},
	}

	got := formatBatch(batch)

	if !strings.Contains(got, "1. [bestbuy] (4.0/5 stars) Solid product overall.") {
		t.Errorf("rated line malformed:\n%s", got)
	}
	if !strings.Contains(got, "2. [reddit] No star rating here.") {
		t.Errorf("unrated line malformed:\n%s", got)
	}
}
