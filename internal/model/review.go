package model

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Review represents one unit of opinion text plus structured metadata.
// Records are created by acquisition sources and treated read-only by
// the analysis stages; the anomaly score is the single exception and is
// set exactly once via WithAnomalyScore.
type Review struct {
	ID               string     `json:"id"`
	Source           string     `json:"source"` // "amazon" | "reddit" | "bestbuy" | "youtube" | "simulated" | ...
	Text             string     `json:"text"`
	Rating           *float64   `json:"rating,omitempty"` // 1.0-5.0 stars, nil when the source has no rating
	Date             *time.Time `json:"date,omitempty"`
	VerifiedPurchase bool       `json:"verified_purchase"`
	HelpfulVotes     int        `json:"helpful_votes"`
	ReviewerID       string     `json:"reviewer_id,omitempty"`
	AnomalyScore     float64    `json:"anomaly_score"` // 0-1, higher = more likely fabricated
}

// WithAnomalyScore returns a copy of the review with the anomaly score
// set. The receiver is not modified; detection produces new record
// versions rather than mutating the shared set.
func (r Review) WithAnomalyScore(score float64) Review {
	r.AnomalyScore = score
	return r
}

// Rated reports whether the review carries a star rating.
func (r Review) Rated() bool {
	return r.Rating != nil
}

// ReviewID derives the stable record id from source, reviewer and a
// bounded text prefix. Identical inputs always hash to the same id, so
// re-fetching a review does not create a duplicate.
func ReviewID(source, reviewerID, text string) string {
	prefix := text
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%s", source, reviewerID, prefix)))
	return hex.EncodeToString(sum[:])
}
