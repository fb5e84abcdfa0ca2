package score

import (
	"fmt"
	"sort"

	"reviewlens/internal/model"
)

// Scorer derives the headline numbers of a report from the analyzed
// review set.
type Scorer struct {
	featuredCount int
}

// NewScorer creates a scorer that features up to featuredCount reviews.
func NewScorer(featuredCount int) *Scorer {
	if featuredCount <= 0 {
		featuredCount = 5
	}
	return &Scorer{featuredCount: featuredCount}
}

// OverallScore maps the average rating to a 0-10 scale, penalized by
// suspected-fake share and nudged by the sentiment trend. A set with no
// rated reviews scores a neutral 5.0.
func (s *Scorer) OverallScore(reviews []model.Review, suspectedPct float64, trend model.Trend) float64 {
	var total float64
	rated := 0
	for _, r := range reviews {
		if r.Rated() {
			total += *r.Rating
			rated++
		}
	}
	if rated == 0 {
		return 5.0
	}

	avg := total / float64(rated)
	base := (avg - 1.0) / 4.0 * 10.0

	penalty := suspectedPct / 100.0
	if penalty > 1.0 {
		penalty = 1.0
	}

	bonus := 0.0
	switch trend {
	case model.TrendImproving:
		bonus = 0.3
	case model.TrendDeclining:
		bonus = -0.3
	}

	overall := base - penalty + bonus
	if overall > 10.0 {
		overall = 10.0
	}
	if overall < 0.0 {
		overall = 0.0
	}
	return round1(overall)
}

// SentimentBreakdown buckets reviews by star rating: 4+ positive, 2 and
// below negative, everything else (unrated included) neutral.
func (s *Scorer) SentimentBreakdown(reviews []model.Review) model.SentimentBreakdown {
	total := len(reviews)
	if total == 0 {
		return model.SentimentBreakdown{}
	}

	positive, negative := 0, 0
	for _, r := range reviews {
		if !r.Rated() {
			continue
		}
		switch {
		case *r.Rating >= 4.0:
			positive++
		case *r.Rating <= 2.0:
			negative++
		}
	}
	neutral := total - positive - negative

	return model.SentimentBreakdown{
		Positive: pct(positive, total),
		Negative: pct(negative, total),
		Neutral:  pct(neutral, total),
		Total:    total,
	}
}

// FeaturedReviews picks the reviews worth showing a reader: trusted,
// helpful, and readable first, then best-remaining to fill the quota.
func (s *Scorer) FeaturedReviews(reviews []model.Review) []model.Review {
	candidates := append([]model.Review(nil), reviews...)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.VerifiedPurchase != b.VerifiedPurchase {
			return a.VerifiedPurchase
		}
		if a.AnomalyScore != b.AnomalyScore {
			return a.AnomalyScore < b.AnomalyScore
		}
		if a.HelpfulVotes != b.HelpfulVotes {
			return a.HelpfulVotes > b.HelpfulVotes
		}
		return readableLength(a) && !readableLength(b)
	})

	featured := []model.Review{}
	used := make(map[string]bool)
	for _, r := range candidates {
		if len(featured) >= s.featuredCount {
			break
		}
		if used[r.ID] {
			continue
		}
		if r.AnomalyScore < 0.3 && readableLength(r) {
			featured = append(featured, r)
			used[r.ID] = true
		}
	}

	// Fill with the best remaining when the gate leaves gaps.
	for _, r := range candidates {
		if len(featured) >= s.featuredCount {
			break
		}
		if !used[r.ID] {
			featured = append(featured, r)
			used[r.ID] = true
		}
	}

	return featured
}

// Verdict renders the one-line summary. The trend clause is only
// attached when there was enough history to compute one.
func (s *Scorer) Verdict(productName string, overall float64, drift *model.DriftReport) string {
	var desc string
	switch {
	case overall >= 8:
		desc = "excellent"
	case overall >= 6.5:
		desc = "good"
	case overall >= 5:
		desc = "average"
	default:
		desc = "below average"
	}

	trendClause := ""
	if drift != nil && len(drift.MonthlySentiment) > 0 {
		trendClause = fmt.Sprintf(" and sentiment is %s", drift.Trend)
	}
	return fmt.Sprintf("%s earns a %s %.1f/10%s.", productName, desc, overall, trendClause)
}

// SourcesUsed lists the distinct review sources in first-seen order.
func SourcesUsed(reviews []model.Review) []string {
	seen := make(map[string]bool)
	var sources []string
	for _, r := range reviews {
		if r.Source != "" && !seen[r.Source] {
			seen[r.Source] = true
			sources = append(sources, r.Source)
		}
	}
	if sources == nil {
		sources = []string{}
	}
	return sources
}

func readableLength(r model.Review) bool {
	n := len(r.Text)
	return n >= 100 && n <= 500
}

func pct(count, total int) float64 {
	return round1(float64(count) / float64(total) * 100.0)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
