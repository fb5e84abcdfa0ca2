package model

// RiskLevel buckets the flagged-review percentage.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AnomalyReport summarizes fake-review detection over the current
// review set. It is stateless and recomputed each run.
type AnomalyReport struct {
	TotalReviews   int       `json:"total_reviews"`
	FlaggedCount   int       `json:"flagged_count"`
	FakePercentage float64   `json:"fake_percentage"` // 0-100, one decimal
	FlaggedIDs     []string  `json:"flagged_ids"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// EmptyAnomalyReport returns the safe default used below the minimum
// sample size and when detection fails.
func EmptyAnomalyReport(total int) AnomalyReport {
	return AnomalyReport{
		TotalReviews: total,
		FlaggedIDs:   []string{},
		RiskLevel:    RiskLow,
	}
}

// Trend labels the direction of the monthly sentiment series.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// MonthlySentiment is one point of the sentiment time series.
type MonthlySentiment struct {
	Month        string  `json:"month"`         // "YYYY-MM"
	AvgSentiment float64 `json:"avg_sentiment"` // 0-1
}

// DriftReport describes how sentiment moved over time. Months are
// chronologically ordered and unique.
type DriftReport struct {
	MonthlySentiment []MonthlySentiment `json:"monthly_sentiment"`
	ChangePoints     []string           `json:"change_points"` // "YYYY-MM" segment starts
	Trend            Trend              `json:"trend"`
}

// EmptyDriftReport returns the safe default for short or failed series.
func EmptyDriftReport() DriftReport {
	return DriftReport{
		MonthlySentiment: []MonthlySentiment{},
		ChangePoints:     []string{},
		Trend:            TrendStable,
	}
}

// ClusterSentiment buckets a cluster by mean member rating.
type ClusterSentiment string

const (
	SentimentPositive ClusterSentiment = "positive"
	SentimentNegative ClusterSentiment = "negative"
	SentimentMixed    ClusterSentiment = "mixed"
)

// Cluster is a group of reviews sharing a latent topic.
type Cluster struct {
	ClusterID   int              `json:"cluster_id"`
	Theme       string           `json:"theme"`
	ReviewCount int              `json:"review_count"`
	Sentiment   ClusterSentiment `json:"sentiment"`
	TopQuotes   []string         `json:"top_quotes"` // at most 3
}

// AspectSentiment labels aspect-level sentiment, which unlike cluster
// sentiment includes a neutral bucket.
type AspectSentiment string

const (
	AspectPositive AspectSentiment = "positive"
	AspectNegative AspectSentiment = "negative"
	AspectMixed    AspectSentiment = "mixed"
	AspectNeutral  AspectSentiment = "neutral"
)

// Aspect is one aspect-based sentiment result ("battery life",
// "build quality", ...) merged across analysis batches.
type Aspect struct {
	Aspect              string          `json:"aspect"`
	Sentiment           AspectSentiment `json:"sentiment"`
	Score               float64         `json:"score"` // 0-1
	RepresentativeQuote string          `json:"representative_quote"`
	MentionCount        int             `json:"mention_count"`
}

// SentimentBreakdown holds rating-derived sentiment percentages,
// each rounded to one decimal.
type SentimentBreakdown struct {
	Positive float64 `json:"positive"` // rating >= 4
	Negative float64 `json:"negative"` // rating <= 2
	Neutral  float64 `json:"neutral"`
	Total    int     `json:"total"`
}

// FinalReport is the terminal output of a pipeline run.
type FinalReport struct {
	ProductName          string             `json:"product_name"`
	ImageURL             string             `json:"image_url,omitempty"`
	OverallScore         float64            `json:"overall_score"` // 0.0-10.0
	TotalReviewsAnalyzed int                `json:"total_reviews_analyzed"`
	SourcesUsed          []string           `json:"sources_used"`
	SentimentBreakdown   SentimentBreakdown `json:"sentiment_breakdown"`
	AspectScores         []Aspect           `json:"aspect_scores"`
	AnomalyReport        AnomalyReport      `json:"anomaly_report"`
	DriftReport          DriftReport        `json:"drift_report"`
	Clusters             []Cluster          `json:"clusters"`
	FeaturedReviews      []Review           `json:"featured_reviews"`
	ExecutiveSummary     string             `json:"executive_summary"`
	WhoShouldBuy         string             `json:"who_should_buy"`
	WhoShouldSkip        string             `json:"who_should_skip"`
	Verdict              string             `json:"verdict"`
}
