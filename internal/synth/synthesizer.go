package synth

import (
	"context"
	"fmt"
	"strings"

	"reviewlens/internal/llm"
	"reviewlens/internal/model"
)

// Synthesizer turns analysis output into reader-facing narrative. Every
// generation has a deterministic fallback so a missing or failing model
// degrades the prose, never the report.
type Synthesizer struct {
	provider llm.Provider
}

// NewSynthesizer creates a synthesizer. A nil provider means every
// narrative field gets its fallback text.
func NewSynthesizer(provider llm.Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// EnrichQuery expands a product query into search variants. On any
// failure the original query is the only variant.
func (s *Synthesizer) EnrichQuery(ctx context.Context, query string) []string {
	if s.provider == nil {
		return []string{query}
	}

	prompt := fmt.Sprintf(`Given the product query "%s", generate 3-5 search query variants and aliases
that would help find reviews of this product. Include the original query, common abbreviations,
model numbers if applicable, and related search terms.
Return ONLY a JSON array of strings, no other text.
Example: ["Sony WH-1000XM5", "Sony XM5", "Sony noise canceling headphones", "WH1000XM5 review"]
Query: %s
JSON array:`, query, query)

	resp, err := s.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: 0.5,
	})
	if err != nil {
		return []string{query}
	}

	variants, ok := llm.DecodeStringArray(resp.Text)
	if !ok || len(variants) == 0 {
		return []string{query}
	}
	if len(variants) > 5 {
		variants = variants[:5]
	}
	return variants
}

// Narrative holds the generated prose sections of a report.
type Narrative struct {
	ExecutiveSummary string
	WhoShouldBuy     string
	WhoShouldSkip    string
}

// Synthesize generates the narrative sections from the analysis
// results.
func (s *Synthesizer) Synthesize(ctx context.Context, productName string, overall float64, aspects []model.Aspect, suspectedPct float64, trend model.Trend, themes []string) Narrative {
	return Narrative{
		ExecutiveSummary: s.executiveSummary(ctx, productName, overall, aspects, suspectedPct, trend, themes),
		WhoShouldBuy:     s.whoShould(ctx, productName, overall, aspects, true),
		WhoShouldSkip:    s.whoShould(ctx, productName, overall, aspects, false),
	}
}

// MinimalNarrative is used when analysis could not produce enough data
// to say anything useful.
func MinimalNarrative() Narrative {
	return Narrative{
		ExecutiveSummary: "Report generation encountered errors.",
		WhoShouldBuy:     "Unable to determine.",
		WhoShouldSkip:    "Unable to determine.",
	}
}

// MinimalVerdict is the verdict paired with MinimalNarrative.
const MinimalVerdict = "Insufficient data to generate verdict."

func (s *Synthesizer) executiveSummary(ctx context.Context, productName string, overall float64, aspects []model.Aspect, suspectedPct float64, trend model.Trend, themes []string) string {
	fallback := fmt.Sprintf("Analysis of %s based on %d identified aspects. Overall score: %.1f/10.", productName, len(aspects), overall)
	if s.provider == nil {
		return fallback
	}

	topPos := describeAspects(filterAspects(aspects, true))
	topNeg := describeAspects(filterAspects(aspects, false))
	themesStr := "No distinct themes identified"
	if len(themes) > 0 {
		if len(themes) > 5 {
			themes = themes[:5]
		}
		themesStr = strings.Join(themes, ", ")
	}

	prompt := fmt.Sprintf(`You are a consumer product expert. Based on the analysis below, write a 3-paragraph
executive summary for a consumer considering buying this product.
Paragraph 1: Overall impression and standout strengths (cite specific aspects).
Paragraph 2: Key weaknesses and caveats.
Paragraph 3: Context: who is the target user, how it compares to expectations.
Product: %s
Overall score: %.1f/10
Top positive aspects: %s
Top negative aspects: %s
Fake review risk: %.1f%%
Sentiment trend: %s
Key themes: %s
Write in a neutral, trustworthy consumer journalism tone. No marketing language.
Write 3 paragraphs separated by blank lines:`, productName, overall, topPos, topNeg, suspectedPct, trend, themesStr)

	resp, err := s.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   600,
		Temperature: 0.6,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return fallback
	}
	return strings.TrimSpace(resp.Text)
}

func (s *Synthesizer) whoShould(ctx context.Context, productName string, overall float64, aspects []model.Aspect, buy bool) string {
	const fallback = "• Unable to determine based on available data."
	if s.provider == nil {
		return fallback
	}

	var prompt string
	if buy {
		prompt = fmt.Sprintf(`For the product "%s" with overall score %.1f/10,
top strengths: %s.
Write 2-3 bullet points describing WHO SHOULD BUY this product.
Be specific about use cases, user types, and needs this product serves well.
Format as plain bullet points starting with "•". No header needed.`, productName, overall, aspectNames(filterAspects(aspects, true)))
	} else {
		prompt = fmt.Sprintf(`For the product "%s" with overall score %.1f/10,
main weaknesses: %s.
Write 2-3 bullet points describing WHO SHOULD SKIP this product.
Be specific about use cases, user types, or needs this product fails to serve.
Format as plain bullet points starting with "•". No header needed.`, productName, overall, aspectNames(filterAspects(aspects, false)))
	}

	resp, err := s.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: 0.6,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return fallback
	}
	return strings.TrimSpace(resp.Text)
}

// filterAspects returns up to 3 positive aspects, or up to 3
// negative-or-mixed ones.
func filterAspects(aspects []model.Aspect, positive bool) []model.Aspect {
	var out []model.Aspect
	for _, a := range aspects {
		match := a.Sentiment == model.AspectPositive
		if !positive {
			match = a.Sentiment == model.AspectNegative || a.Sentiment == model.AspectMixed
		}
		if match {
			out = append(out, a)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

func describeAspects(aspects []model.Aspect) string {
	if len(aspects) == 0 {
		return "None identified"
	}
	parts := make([]string, len(aspects))
	for i, a := range aspects {
		parts[i] = fmt.Sprintf("%s (%.2f)", a.Aspect, a.Score)
	}
	return strings.Join(parts, ", ")
}

func aspectNames(aspects []model.Aspect) string {
	parts := make([]string, len(aspects))
	for i, a := range aspects {
		parts[i] = a.Aspect
	}
	return strings.Join(parts, ", ")
}
