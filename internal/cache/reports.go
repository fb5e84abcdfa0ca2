package cache

import (
	"encoding/json"
	"time"

	"reviewlens/internal/model"
)

// DefaultReportTTL is how long a finished report stays servable before
// a fresh analysis is forced.
const DefaultReportTTL = 24 * time.Hour

// ReportStore caches finished reports and collected review sets keyed
// by normalized product name.
type ReportStore struct {
	cache Cache
	ttl   time.Duration
}

// NewReportStore wraps a cache. A zero ttl uses DefaultReportTTL.
func NewReportStore(c Cache, ttl time.Duration) *ReportStore {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportStore{cache: c, ttl: ttl}
}

// GetReport returns a cached report for the product, if present and
// decodable.
func (s *ReportStore) GetReport(productName string) (*model.FinalReport, bool) {
	data, found := s.cache.Get(ReportKey(productName))
	if !found {
		return nil, false
	}
	var report model.FinalReport
	if err := json.Unmarshal(data, &report); err != nil {
		_ = s.cache.Delete(ReportKey(productName))
		return nil, false
	}
	return &report, true
}

// PutReport caches a finished report.
func (s *ReportStore) PutReport(productName string, report *model.FinalReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return s.cache.Set(ReportKey(productName), data, s.ttl)
}

// GetReviews returns a cached review set for the product.
func (s *ReportStore) GetReviews(productName string) ([]model.Review, bool) {
	data, found := s.cache.Get(ReviewsKey(productName))
	if !found {
		return nil, false
	}
	var reviews []model.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		_ = s.cache.Delete(ReviewsKey(productName))
		return nil, false
	}
	return reviews, true
}

// PutReviews caches a collected review set.
func (s *ReportStore) PutReviews(productName string, reviews []model.Review) error {
	data, err := json.Marshal(reviews)
	if err != nil {
		return err
	}
	return s.cache.Set(ReviewsKey(productName), data, s.ttl)
}

// Invalidate drops both cached artifacts for a product.
func (s *ReportStore) Invalidate(productName string) {
	_ = s.cache.Delete(ReportKey(productName))
	_ = s.cache.Delete(ReviewsKey(productName))
}
