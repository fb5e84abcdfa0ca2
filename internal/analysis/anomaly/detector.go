package anomaly

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"reviewlens/internal/model"
)

// genericPraise is the fixed vocabulary of low-information praise
// phrases; a high density of these is a fabrication signal.
var genericPraise = []string{
	"great product",
	"highly recommend",
	"amazing",
	"perfect",
	"excellent",
	"fantastic",
	"love it",
	"best ever",
	"awesome",
	"outstanding",
	"incredible",
	"wonderful",
	"superb",
	"brilliant",
}

// Detector engineers per-review features and scores them with an
// unsupervised anomaly model. It never fails a run: callers get
// all-zero scores and a low-risk report below the minimum sample size.
type Detector struct {
	model Model
	cfg   model.AnalysisConfig
	now   func() time.Time
}

// NewDetector creates a detector. A nil anomaly model selects the
// built-in isolation forest.
func NewDetector(m Model, cfg model.AnalysisConfig) *Detector {
	if m == nil {
		m = NewIsolationForest(100, cfg.Contamination, 42)
	}
	return &Detector{model: m, cfg: cfg, now: time.Now}
}

// Detect scores the review set and builds the anomaly report. The
// input is read-only: scored reviews are returned as new record
// versions with the anomaly score set.
func (d *Detector) Detect(reviews []model.Review) (model.AnomalyReport, []model.Review) {
	total := len(reviews)
	if total == 0 {
		return model.EmptyAnomalyReport(0), reviews
	}

	if total < d.cfg.MinReviewsAnomaly {
		// Too few reviews for a meaningful statistical model
		scored := make([]model.Review, total)
		for i, r := range reviews {
			scored[i] = r.WithAnomalyScore(0)
		}
		return model.EmptyAnomalyReport(total), scored
	}

	features := d.extractFeatures(reviews)
	raw := d.model.FitScore(features)

	// Min-max normalize to 0-1 where 1 is most anomalous; a degenerate
	// batch (all scores equal) uses range 1 to avoid dividing by zero.
	minScore, maxScore := raw[0], raw[0]
	for _, s := range raw[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}
	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		scoreRange = 1
	}

	scored := make([]model.Review, total)
	flaggedIDs := []string{}
	for i, r := range reviews {
		score := round4((raw[i] - minScore) / scoreRange)
		scored[i] = r.WithAnomalyScore(score)
		if score > d.cfg.FlagThreshold {
			flaggedIDs = append(flaggedIDs, r.ID)
		}
	}

	flagged := len(flaggedIDs)
	pct := round1(float64(flagged) / float64(total) * 100)

	return model.AnomalyReport{
		TotalReviews:   total,
		FlaggedCount:   flagged,
		FakePercentage: pct,
		FlaggedIDs:     flaggedIDs,
		RiskLevel:      RiskLevelFor(pct),
	}, scored
}

// RiskLevelFor buckets a flagged percentage. The mapping is monotonic:
// a higher percentage never yields a lower bucket.
func RiskLevelFor(fakePercentage float64) model.RiskLevel {
	switch {
	case fakePercentage < 15:
		return model.RiskLow
	case fakePercentage < 35:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// extractFeatures builds the 9-column feature matrix. Each feature is
// a plain scalar; ordering matches the columns the model was tuned on.
func (d *Detector) extractFeatures(reviews []model.Review) [][]float64 {
	now := d.now().UTC()

	reviewerCounts := make(map[string]int)
	for _, r := range reviews {
		if r.ReviewerID != "" {
			reviewerCounts[r.ReviewerID]++
		}
	}

	burst := burstFlags(reviews, d.cfg.BurstWindowDays, d.cfg.BurstThreshold)

	features := make([][]float64, len(reviews))
	for i, r := range reviews {
		text := r.Text
		textLen := utf8.RuneCountInString(text)

		wordCount := len(strings.Fields(text))
		if wordCount < 1 {
			wordCount = 1
		}

		upper := 0
		for _, c := range text {
			if unicode.IsUpper(c) {
				upper++
			}
		}
		capsRatio := float64(upper) / math.Max(float64(textLen), 1)

		textLower := strings.ToLower(text)
		genericCount := 0
		for _, phrase := range genericPraise {
			if strings.Contains(textLower, phrase) {
				genericCount++
			}
		}
		genericScore := float64(genericCount) / float64(wordCount)

		verified := 0.0
		if r.VerifiedPurchase {
			verified = 1.0
		}

		daysSince := 180.0
		if r.Date != nil {
			daysSince = now.Sub(r.Date.UTC()).Hours() / 24
		}

		singleReviewer := 0.0
		if r.ReviewerID != "" && reviewerCounts[r.ReviewerID] == 1 {
			singleReviewer = 1.0
		}

		features[i] = []float64{
			float64(textLen),
			float64(strings.Count(text, "!")),
			capsRatio,
			genericScore,
			verified,
			float64(r.HelpfulVotes),
			daysSince,
			singleReviewer,
			burst[r.ID],
		}
	}

	return features
}

// burstFlags marks reviews posted in an anomalously dense time window:
// a review is bursty when at least burstThreshold dated reviews
// (itself included) fall within +/- windowDays of it. A sorted
// two-pointer sweep keeps this O(n log n) instead of all-pairs.
func burstFlags(reviews []model.Review, windowDays, burstThreshold int) map[string]float64 {
	flags := make(map[string]float64, len(reviews))
	for _, r := range reviews {
		flags[r.ID] = 0
	}

	type datedReview struct {
		id string
		at time.Time
	}
	var dated []datedReview
	for _, r := range reviews {
		if r.Date != nil {
			dated = append(dated, datedReview{id: r.ID, at: r.Date.UTC()})
		}
	}
	if len(dated) == 0 {
		return flags
	}

	sort.Slice(dated, func(i, j int) bool { return dated[i].at.Before(dated[j].at) })

	// The signed day delta floors before abs, so a review 3.5 days
	// earlier counts as 4 days away while 3.5 days later counts as 3.
	inWindow := func(center, other time.Time) bool {
		days := int(math.Floor(other.Sub(center).Hours() / 24))
		if days < 0 {
			days = -days
		}
		return days <= windowDays
	}

	lo, hi := 0, 0
	for i := range dated {
		for !inWindow(dated[i].at, dated[lo].at) {
			lo++
		}
		if hi < i {
			hi = i
		}
		for hi+1 < len(dated) && inWindow(dated[i].at, dated[hi+1].at) {
			hi++
		}
		if hi-lo+1 >= burstThreshold {
			flags[dated[i].id] = 1
		}
	}

	return flags
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
