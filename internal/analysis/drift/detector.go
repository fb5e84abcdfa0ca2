package drift

import (
	"math"
	"sort"

	"reviewlens/internal/model"
)

const (
	// Segmentation needs a few months of signal before break detection
	// is meaningful; trend classification needs six so the first-3 vs
	// last-3 comparison never overlaps.
	minMonthsSegmentation = 4
	minMonthsTrend        = 6
)

// Detector buckets rated, dated reviews by calendar month and computes
// the sentiment trend plus change-point months.
type Detector struct {
	segmenter Segmenter
	cfg       model.AnalysisConfig
}

// NewDetector creates a detector. A nil segmenter selects the built-in
// penalized piecewise-constant fit.
func NewDetector(s Segmenter, cfg model.AnalysisConfig) *Detector {
	if s == nil {
		s = NewPelt(cfg.SegmentPenalty)
	}
	return &Detector{segmenter: s, cfg: cfg}
}

// Detect builds the drift report. Reviews without both a date and a
// rating are ignored; below the minimum count the report is empty with
// a stable trend.
func (d *Detector) Detect(reviews []model.Review) model.DriftReport {
	var usable []model.Review
	for _, r := range reviews {
		if r.Date != nil && r.Rated() {
			usable = append(usable, r)
		}
	}
	if len(usable) < d.cfg.MinReviewsDrift {
		return model.EmptyDriftReport()
	}

	// Group normalized ratings by calendar month.
	monthly := make(map[string][]float64)
	for _, r := range usable {
		key := r.Date.UTC().Format("2006-01")
		monthly[key] = append(monthly[key], (*r.Rating-1.0)/4.0)
	}

	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)

	series := make([]model.MonthlySentiment, len(months))
	values := make([]float64, len(months))
	for i, m := range months {
		var total float64
		for _, v := range monthly[m] {
			total += v
		}
		avg := round4(total / float64(len(monthly[m])))
		series[i] = model.MonthlySentiment{Month: m, AvgSentiment: avg}
		values[i] = avg
	}

	changePoints := []string{}
	if len(months) >= minMonthsSegmentation {
		for _, idx := range d.segment(values) {
			if idx > 0 && idx < len(months) {
				changePoints = append(changePoints, months[idx])
			}
		}
	}

	trend := model.TrendStable
	if len(series) >= minMonthsTrend {
		firstAvg := mean(values[:3])
		lastAvg := mean(values[len(values)-3:])
		delta := lastAvg - firstAvg
		switch {
		case delta > d.cfg.TrendDelta:
			trend = model.TrendImproving
		case delta < -d.cfg.TrendDelta:
			trend = model.TrendDeclining
		}
	}

	return model.DriftReport{
		MonthlySentiment: series,
		ChangePoints:     changePoints,
		Trend:            trend,
	}
}

// segment isolates the segmentation strategy: if it panics, the report
// keeps its monthly averages and trend with no change points.
func (d *Detector) segment(values []float64) (breaks []int) {
	defer func() {
		if recover() != nil {
			breaks = nil
		}
	}()
	return d.segmenter.ChangePoints(values)
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
