package aspects

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"reviewlens/internal/llm"
	"reviewlens/internal/model"
)

// vocabulary is the fixed set of product aspects the analyzer extracts.
// Responses naming anything else are dropped.
var vocabulary = []string{
	"build quality",
	"performance",
	"value for money",
	"ease of use",
	"battery life",
	"design",
	"customer support",
	"durability",
	"features",
	"comfort",
}

const promptTemplate = `You are a product review analyst. Analyze these reviews and extract aspect-based sentiment.
For each of these aspects determine: sentiment (positive/negative/mixed/neutral),
a score from 0.0 to 1.0, and the most representative quote.
Aspects: build quality, performance, value for money, ease of use, battery life,
design, customer support, durability, features, comfort.
Only include aspects actually mentioned in the reviews.
Reviews:
%s

Respond ONLY with a valid JSON array. Each element must have exactly these fields:
aspect (string), sentiment (string), score (number), representative_quote (string), mention_count (integer).
Do not include any text outside the JSON array.`

const strictPromptTemplate = `You are a product review analyst. Return ONLY a valid JSON array, no other text.
Each element must have exactly these fields: aspect (string), sentiment (one of: positive, negative, mixed, neutral),
score (number 0.0-1.0), representative_quote (string), mention_count (integer).
Only include aspects from: build quality, performance, value for money, ease of use, battery life,
design, customer support, durability, features, comfort.
Only include aspects actually mentioned.

Reviews:
%s

JSON array only:`

// aspectItem is the wire shape of one element of the model's response.
type aspectItem struct {
	Aspect              string  `json:"aspect"`
	Sentiment           string  `json:"sentiment"`
	Score               float64 `json:"score"`
	RepresentativeQuote string  `json:"representative_quote"`
	MentionCount        int     `json:"mention_count"`
}

// Analyzer extracts aspect-based sentiment by batching sampled reviews
// through the text-generation collaborator.
type Analyzer struct {
	provider llm.Provider
	cfg      model.AnalysisConfig
	workers  int
}

// NewAnalyzer creates an analyzer. A nil provider disables extraction;
// Run then returns no aspects.
func NewAnalyzer(provider llm.Provider, cfg model.AnalysisConfig, workers int) *Analyzer {
	if workers <= 0 {
		workers = 2
	}
	return &Analyzer{provider: provider, cfg: cfg, workers: workers}
}

// Run extracts aspects from the review set. Failed batches are skipped
// after one strict-prompt retry; extraction never fails the run.
func (a *Analyzer) Run(ctx context.Context, reviews []model.Review) ([]model.Aspect, error) {
	if len(reviews) == 0 || a.provider == nil {
		return []model.Aspect{}, nil
	}

	sampled := sampleReviews(reviews, a.cfg.ABSASampleMax)
	batches := buildBatches(sampled, a.cfg.ABSABatchSize)

	results := make([][]aspectItem, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, batch := range batches {
		g.Go(func() error {
			results[i] = a.processBatch(gctx, batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return []model.Aspect{}, err
	}

	var succeeded [][]aspectItem
	for _, r := range results {
		if r != nil {
			succeeded = append(succeeded, r)
		}
	}

	return mergeAspects(succeeded), nil
}

// processBatch runs one batch with a single strict-prompt retry when
// the model's first response is not parseable JSON.
func (a *Analyzer) processBatch(ctx context.Context, batch []model.Review) []aspectItem {
	items := a.callBatch(ctx, batch, false)
	if items == nil {
		items = a.callBatch(ctx, batch, true)
	}
	return items
}

func (a *Analyzer) callBatch(ctx context.Context, batch []model.Review, strict bool) []aspectItem {
	template := promptTemplate
	if strict {
		template = strictPromptTemplate
	}
	prompt := fmt.Sprintf(template, formatBatch(batch))

	resp, err := a.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   a.cfg.ABSABatchSize * 60,
		Temperature: 0.2,
	})
	if err != nil {
		return nil
	}

	raw, ok := llm.ExtractJSONArray(resp.Text)
	if !ok {
		return nil
	}

	var items []aspectItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// sampleReviews picks a representative sample stratified by source,
// preferring rated and longer reviews (more useful for aspect
// extraction).
func sampleReviews(reviews []model.Review, maxReviews int) []model.Review {
	if len(reviews) <= maxReviews {
		return reviews
	}

	bySource := make(map[string][]model.Review)
	var sources []string
	for _, r := range reviews {
		if _, seen := bySource[r.Source]; !seen {
			sources = append(sources, r.Source)
		}
		bySource[r.Source] = append(bySource[r.Source], r)
	}
	sort.Strings(sources)

	moreUseful := func(a, b model.Review) bool {
		if a.Rated() != b.Rated() {
			return a.Rated()
		}
		return len(a.Text) > len(b.Text)
	}
	for _, src := range sources {
		revs := bySource[src]
		sort.SliceStable(revs, func(i, j int) bool { return moreUseful(revs[i], revs[j]) })
	}

	// Allocate proportionally by source, min 3 per source.
	total := len(reviews)
	var sampled []model.Review
	for _, src := range sources {
		revs := bySource[src]
		n := maxReviews * len(revs) / total
		if n < 3 {
			n = 3
		}
		if n > len(revs) {
			n = len(revs)
		}
		sampled = append(sampled, revs[:n]...)
	}

	if len(sampled) > maxReviews {
		sampled = sampled[:maxReviews]
	} else if len(sampled) < maxReviews {
		used := make(map[string]bool, len(sampled))
		for _, r := range sampled {
			used[r.ID] = true
		}
		var remaining []model.Review
		for _, r := range reviews {
			if !used[r.ID] {
				remaining = append(remaining, r)
			}
		}
		sort.SliceStable(remaining, func(i, j int) bool { return moreUseful(remaining[i], remaining[j]) })
		need := maxReviews - len(sampled)
		if need > len(remaining) {
			need = len(remaining)
		}
		sampled = append(sampled, remaining[:need]...)
	}

	return sampled
}

func buildBatches(reviews []model.Review, batchSize int) [][]model.Review {
	if batchSize <= 0 {
		batchSize = 25
	}
	var batches [][]model.Review
	for start := 0; start < len(reviews); start += batchSize {
		end := start + batchSize
		if end > len(reviews) {
			end = len(reviews)
		}
		batches = append(batches, reviews[start:end])
	}
	return batches
}

func formatBatch(batch []model.Review) string {
	var b strings.Builder
	for i, r := range batch {
		ratingStr := ""
		if r.Rated() {
			ratingStr = fmt.Sprintf(" (%.1f/5 stars)", *r.Rating)
		}
		text := r.Text
		if len(text) > 500 {
			text = text[:500]
		}
		fmt.Fprintf(&b, "%d. [%s]%s %s\n", i+1, r.Source, ratingStr, text)
	}
	return b.String()
}

// mergeAspects accumulates per-batch results into one aspect list,
// keeping only vocabulary aspects and sorting by mention count.
func mergeAspects(batchResults [][]aspectItem) []model.Aspect {
	known := make(map[string]bool, len(vocabulary))
	for _, a := range vocabulary {
		known[a] = true
	}

	type accumulator struct {
		scores       []float64
		sentiments   []string
		quotes       []string
		mentionCount int
	}
	acc := make(map[string]*accumulator)

	for _, items := range batchResults {
		for _, item := range items {
			aspect := strings.ToLower(strings.TrimSpace(item.Aspect))
			if !known[aspect] {
				continue
			}
			entry := acc[aspect]
			if entry == nil {
				entry = &accumulator{}
				acc[aspect] = entry
			}
			if item.Score >= 0 && item.Score <= 1 {
				entry.scores = append(entry.scores, item.Score)
			}
			switch item.Sentiment {
			case "positive", "negative", "mixed", "neutral":
				entry.sentiments = append(entry.sentiments, item.Sentiment)
			}
			if item.RepresentativeQuote != "" {
				entry.quotes = append(entry.quotes, item.RepresentativeQuote)
			}
			mentions := item.MentionCount
			if mentions <= 0 {
				mentions = 1
			}
			entry.mentionCount += mentions
		}
	}

	var merged []model.Aspect
	for aspect, entry := range acc {
		if len(entry.scores) == 0 {
			continue
		}

		var scoreTotal float64
		for _, s := range entry.scores {
			scoreTotal += s
		}
		avgScore := scoreTotal / float64(len(entry.scores))

		merged = append(merged, model.Aspect{
			Aspect:              aspect,
			Sentiment:           dominantSentiment(entry.sentiments),
			Score:               round3(avgScore),
			RepresentativeQuote: bestQuote(entry.quotes),
			MentionCount:        entry.mentionCount,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].MentionCount != merged[j].MentionCount {
			return merged[i].MentionCount > merged[j].MentionCount
		}
		return merged[i].Aspect < merged[j].Aspect
	})

	if merged == nil {
		merged = []model.Aspect{}
	}
	return merged
}

func dominantSentiment(sentiments []string) model.AspectSentiment {
	if len(sentiments) == 0 {
		return model.AspectNeutral
	}
	counts := make(map[string]int)
	for _, s := range sentiments {
		counts[s]++
	}
	best, bestCount := "neutral", -1
	for _, s := range []string{"positive", "negative", "mixed", "neutral"} {
		if counts[s] > bestCount {
			best, bestCount = s, counts[s]
		}
	}
	return model.AspectSentiment(best)
}

// bestQuote picks the longest quote that still fits in 200 characters.
func bestQuote(quotes []string) string {
	var best string
	for _, q := range quotes {
		if len(q) <= 200 && len(q) > len(best) {
			best = q
		}
	}
	if best == "" && len(quotes) > 0 {
		q := quotes[0]
		if len(q) > 200 {
			q = q[:200]
		}
		best = q
	}
	return best
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}
