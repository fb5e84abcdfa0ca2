package anomaly

import (
	"fmt"
	"testing"
	"time"

	"reviewlens/internal/model"
)

func testConfig() model.AnalysisConfig {
	return model.DefaultConfig().Analysis
}

func makeReview(id string, text string, daysAgo int) model.Review {
	date := time.Now().UTC().AddDate(0, 0, -daysAgo)
	rating := 4.0
	return model.Review{
		ID:           id,
		Source:       "amazon",
		Text:         text,
		Rating:       &rating,
		Date:         &date,
		HelpfulVotes: 3,
		ReviewerID:   "reviewer-" + id,
	}
}

func TestDetect_BelowMinimumAllScoresZero(t *testing.T) {
	d := NewDetector(nil, testConfig())

	reviews := []model.Review{
		makeReview("a", "Solid product, works as described.", 10),
		makeReview("b", "AMAZING!!! BEST EVER!!! PERFECT!!!", 1),
		makeReview("c", "Broke after a week, very disappointed.", 40),
	}

	report, scored := d.Detect(reviews)

	if report.FlaggedCount != 0 {
		t.Errorf("expected 0 flagged below minimum, got %d", report.FlaggedCount)
	}
	if report.RiskLevel != model.RiskLow {
		t.Errorf("expected low risk below minimum, got %s", report.RiskLevel)
	}
	if report.TotalReviews != 3 {
		t.Errorf("expected total 3, got %d", report.TotalReviews)
	}
	for _, r := range scored {
		if r.AnomalyScore != 0 {
			t.Errorf("review %s: expected score 0, got %f", r.ID, r.AnomalyScore)
		}
	}
}

func TestDetect_ScoresWithinBounds(t *testing.T) {
	d := NewDetector(nil, testConfig())

	var reviews []model.Review
	for i := 0; i < 30; i++ {
		reviews = append(reviews, makeReview(
			fmt.Sprintf("r%d", i),
			fmt.Sprintf("Review number %d with a reasonably normal body of text describing the product.", i),
			i*7,
		))
	}
	// One screaming outlier
	reviews = append(reviews, model.Review{
		ID:         "outlier",
		Source:     "amazon",
		Text:       "AMAZING PERFECT BEST EVER!!!!!!!!!! HIGHLY RECOMMEND!!!!!!!!!!",
		ReviewerID: "one-shot",
	})

	report, scored := d.Detect(reviews)

	for _, r := range scored {
		if r.AnomalyScore < 0 || r.AnomalyScore > 1 {
			t.Errorf("review %s: score %f out of [0,1]", r.ID, r.AnomalyScore)
		}
	}
	if report.TotalReviews != len(reviews) {
		t.Errorf("expected total %d, got %d", len(reviews), report.TotalReviews)
	}
	if report.FlaggedCount != len(report.FlaggedIDs) {
		t.Errorf("flagged count %d does not match ids %d", report.FlaggedCount, len(report.FlaggedIDs))
	}
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	d := NewDetector(nil, testConfig())

	var reviews []model.Review
	for i := 0; i < 10; i++ {
		reviews = append(reviews, makeReview(fmt.Sprintf("r%d", i), "Perfectly ordinary review text here.", i))
	}

	_, scored := d.Detect(reviews)

	for _, r := range reviews {
		if r.AnomalyScore != 0 {
			t.Fatalf("input review %s mutated: score %f", r.ID, r.AnomalyScore)
		}
	}
	if len(scored) != len(reviews) {
		t.Fatalf("expected %d scored reviews, got %d", len(reviews), len(scored))
	}
}

func TestDetect_Deterministic(t *testing.T) {
	cfg := testConfig()

	var reviews []model.Review
	for i := 0; i < 20; i++ {
		reviews = append(reviews, makeReview(fmt.Sprintf("r%d", i), fmt.Sprintf("Text body %d for determinism check.", i), i*3))
	}

	_, first := NewDetector(nil, cfg).Detect(reviews)
	_, second := NewDetector(nil, cfg).Detect(reviews)

	for i := range first {
		if first[i].AnomalyScore != second[i].AnomalyScore {
			t.Fatalf("review %s: scores differ between runs: %f vs %f",
				first[i].ID, first[i].AnomalyScore, second[i].AnomalyScore)
		}
	}
}

func TestRiskLevelFor_Monotonic(t *testing.T) {
	order := map[model.RiskLevel]int{model.RiskLow: 0, model.RiskMedium: 1, model.RiskHigh: 2}

	prev := model.RiskLow
	for pct := 0.0; pct <= 100; pct += 0.5 {
		level := RiskLevelFor(pct)
		if order[level] < order[prev] {
			t.Fatalf("risk level decreased at %.1f%%: %s -> %s", pct, prev, level)
		}
		prev = level
	}

	if RiskLevelFor(14.9) != model.RiskLow {
		t.Error("14.9%% should be low risk")
	}
	if RiskLevelFor(15) != model.RiskMedium {
		t.Error("15%% should be medium risk")
	}
	if RiskLevelFor(34.9) != model.RiskMedium {
		t.Error("34.9%% should be medium risk")
	}
	if RiskLevelFor(35) != model.RiskHigh {
		t.Error("35%% should be high risk")
	}
}

func TestBurstFlags_SameDayBurst(t *testing.T) {
	day := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	far := day.AddDate(0, 0, 30)

	var reviews []model.Review
	for i := 0; i < 10; i++ {
		d := day
		reviews = append(reviews, model.Review{ID: fmt.Sprintf("burst%d", i), Date: &d})
	}
	reviews = append(reviews, model.Review{ID: "lonely", Date: &far})

	flags := burstFlags(reviews, 3, 10)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("burst%d", i)
		if flags[id] != 1 {
			t.Errorf("review %s should be bursty", id)
		}
	}
	if flags["lonely"] != 0 {
		t.Error("the 30-days-apart review must not be bursty")
	}
}

func TestBurstFlags_HalfDayWindowAsymmetry(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	later := day.Add(84 * time.Hour) // 3.5 days after the cluster

	var reviews []model.Review
	for i := 0; i < 9; i++ {
		d := day
		reviews = append(reviews, model.Review{ID: fmt.Sprintf("cluster%d", i), Date: &d})
	}
	reviews = append(reviews, model.Review{ID: "straggler", Date: &later})

	flags := burstFlags(reviews, 3, 10)

	// From the cluster's side the straggler is 3.5 days later, which
	// floors to 3 and lands in the window, completing the burst of 10.
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("cluster%d", i)
		if flags[id] != 1 {
			t.Errorf("review %s should be bursty", id)
		}
	}
	// From the straggler's side the cluster is 3.5 days earlier, which
	// floors to -4 before abs and falls outside the window.
	if flags["straggler"] != 0 {
		t.Error("the 3.5-days-later review must not be bursty")
	}
}

func TestBurstFlags_UndatedReviewsNeverBursty(t *testing.T) {
	var reviews []model.Review
	for i := 0; i < 15; i++ {
		reviews = append(reviews, model.Review{ID: fmt.Sprintf("undated%d", i)})
	}

	flags := burstFlags(reviews, 3, 10)
	for id, f := range flags {
		if f != 0 {
			t.Errorf("undated review %s flagged as bursty", id)
		}
	}
}

func TestBurstFlags_BelowThresholdNotFlagged(t *testing.T) {
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var reviews []model.Review
	for i := 0; i < 9; i++ {
		d := day
		reviews = append(reviews, model.Review{ID: fmt.Sprintf("r%d", i), Date: &d})
	}

	flags := burstFlags(reviews, 3, 10)
	for id, f := range flags {
		if f != 0 {
			t.Errorf("review %s flagged with only 9 in the window", id)
		}
	}
}

func TestIsolationForest_OutlierScoresHighest(t *testing.T) {
	forest := NewIsolationForest(100, 0.1, 42)

	var features [][]float64
	for i := 0; i < 40; i++ {
		features = append(features, []float64{float64(i % 5), 1.0, 0.0})
	}
	features = append(features, []float64{500, 90, 1.0})

	scores := forest.FitScore(features)

	outlierIdx := len(features) - 1
	for i, s := range scores {
		if i != outlierIdx && s >= scores[outlierIdx] {
			t.Fatalf("row %d scored %f >= outlier score %f", i, s, scores[outlierIdx])
		}
	}
}
