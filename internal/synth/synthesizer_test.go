package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reviewlens/internal/llm"
	"reviewlens/internal/model"
)

type stubProvider struct {
	text string
	err  error
}

func (s *stubProvider) Name() string                     { return "stub" }
func (s *stubProvider) IsAvailable(context.Context) bool { return true }
func (s *stubProvider) Generate(context.Context, llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text, Model: "stub"}, nil
}

func TestEnrichQuery_ParsesVariants(t *testing.T) {
	s := NewSynthesizer(&stubProvider{text: `Here you go:
["Sony WH-1000XM5", "Sony XM5", "XM5 review"]`})

	got := s.EnrichQuery(context.Background(), "Sony WH-1000XM5")
	want := []string{"Sony WH-1000XM5", "Sony XM5", "XM5 review"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("variants mismatch (-want +got):\n%s", diff)
	}
}

func TestEnrichQuery_CapsAtFive(t *testing.T) {
	s := NewSynthesizer(&stubProvider{text: `["a","b","c","d","e","f","g"]`})

	got := s.EnrichQuery(context.Background(), "widget")
	if len(got) != 5 {
		t.Errorf("expected at most 5 variants, got %d", len(got))
	}
}

func TestEnrichQuery_FallsBackToQuery(t *testing.T) {
	cases := map[string]*Synthesizer{
		"nil provider":   NewSynthesizer(nil),
		"provider error": NewSynthesizer(&stubProvider{err: errors.New("down")}),
		"unparseable":    NewSynthesizer(&stubProvider{text: "sorry, no list today"}),
		"empty array":    NewSynthesizer(&stubProvider{text: "[]"}),
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			got := s.EnrichQuery(context.Background(), "widget")
			if len(got) != 1 || got[0] != "widget" {
				t.Errorf("expected [widget], got %v", got)
			}
		})
	}
}

func TestSynthesize_UsesProviderText(t *testing.T) {
	s := NewSynthesizer(&stubProvider{text: "  Generated prose.  "})

	n := s.Synthesize(context.Background(), "Widget", 7.5, nil, 4.2, model.TrendStable, nil)
	if n.ExecutiveSummary != "Generated prose." {
		t.Errorf("summary = %q", n.ExecutiveSummary)
	}
	if n.WhoShouldBuy != "Generated prose." || n.WhoShouldSkip != "Generated prose." {
		t.Errorf("who-should sections = %q / %q", n.WhoShouldBuy, n.WhoShouldSkip)
	}
}

func TestSynthesize_FallbacksWithoutProvider(t *testing.T) {
	s := NewSynthesizer(nil)

	aspects := []model.Aspect{
		{Aspect: "design", Sentiment: model.AspectPositive, Score: 0.9},
		{Aspect: "battery life", Sentiment: model.AspectNegative, Score: 0.3},
	}
	n := s.Synthesize(context.Background(), "Widget", 6.8, aspects, 0, model.TrendStable, nil)

	want := "Analysis of Widget based on 2 identified aspects. Overall score: 6.8/10."
	if n.ExecutiveSummary != want {
		t.Errorf("summary = %q, want %q", n.ExecutiveSummary, want)
	}
	if !strings.HasPrefix(n.WhoShouldBuy, "• Unable to determine") {
		t.Errorf("who-should-buy fallback = %q", n.WhoShouldBuy)
	}
}

func TestSynthesize_FallbacksOnError(t *testing.T) {
	s := NewSynthesizer(&stubProvider{err: errors.New("model timeout")})

	n := s.Synthesize(context.Background(), "Widget", 4.0, nil, 0, model.TrendDeclining, nil)
	if n.ExecutiveSummary != "Analysis of Widget based on 0 identified aspects. Overall score: 4.0/10." {
		t.Errorf("summary fallback = %q", n.ExecutiveSummary)
	}
}

func TestMinimalNarrative(t *testing.T) {
	n := MinimalNarrative()
	if n.ExecutiveSummary != "Report generation encountered errors." {
		t.Errorf("summary = %q", n.ExecutiveSummary)
	}
	if n.WhoShouldBuy != "Unable to determine." || n.WhoShouldSkip != "Unable to determine." {
		t.Errorf("who-should = %q / %q", n.WhoShouldBuy, n.WhoShouldSkip)
	}
}

func TestFilterAspects(t *testing.T) {
	aspects := []model.Aspect{
		{Aspect: "a", Sentiment: model.AspectPositive},
		{Aspect: "b", Sentiment: model.AspectMixed},
		{Aspect: "c", Sentiment: model.AspectPositive},
		{Aspect: "d", Sentiment: model.AspectNegative},
		{Aspect: "e", Sentiment: model.AspectPositive},
		{Aspect: "f", Sentiment: model.AspectPositive},
	}

	pos := filterAspects(aspects, true)
	if len(pos) != 3 || pos[0].Aspect != "a" || pos[2].Aspect != "e" {
		t.Errorf("positive filter wrong: %+v", pos)
	}

	neg := filterAspects(aspects, false)
	if len(neg) != 2 || neg[0].Aspect != "b" || neg[1].Aspect != "d" {
		t.Errorf("negative filter wrong: %+v", neg)
	}
}
