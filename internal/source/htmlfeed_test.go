package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reviewlens/internal/model"
)

const feedPage = `<!DOCTYPE html>
<html><body>
<img class="product-image" src="https://img.example/widget.jpg">
<div class="review">
  <span class="review-author">alice</span>
  <span class="review-rating">4.0 out of 5</span>
  <span class="review-date">2025-03-14</span>
  <span class="verified">Verified Purchase</span>
  <span class="helpful-count">12 people found this helpful</span>
  <p class="review-text">Really solid product, does what it promises.</p>
</div>
<div class="review">
  <span class="review-author">bob</span>
  <p class="review-text">Meh.</p>
</div>
<div class="review">
  <span class="review-rating">not a number</span>
  <p class="review-text">Works fine but the packaging was damaged in transit.</p>
</div>
</body></html>`

func newFeedServer(t *testing.T, page string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/reviews", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTMLFeed_Fetch(t *testing.T) {
	server := newFeedServer(t, feedPage)
	feed := NewHTMLFeed("shopfeed", server.URL+"/reviews?q=%s", model.HTTPConfig{Timeout: 5 * time.Second}, nil)

	got, err := feed.Fetch(context.Background(), "acme widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ImageURL != "https://img.example/widget.jpg" {
		t.Errorf("image URL = %q", got.ImageURL)
	}
	// "Meh." is below the minimum text length
	if len(got.Reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(got.Reviews))
	}

	first := got.Reviews[0]
	if first.Source != "shopfeed" {
		t.Errorf("source = %q", first.Source)
	}
	if first.ReviewerID != "alice" {
		t.Errorf("reviewer = %q", first.ReviewerID)
	}
	if first.Rating == nil || *first.Rating != 4.0 {
		t.Errorf("rating = %v", first.Rating)
	}
	if first.Date == nil || first.Date.Format("2006-01-02") != "2025-03-14" {
		t.Errorf("date = %v", first.Date)
	}
	if !first.VerifiedPurchase {
		t.Error("verified badge not detected")
	}
	if first.HelpfulVotes != 12 {
		t.Errorf("helpful votes = %d", first.HelpfulVotes)
	}
	if first.ID == "" {
		t.Error("missing derived id")
	}

	second := got.Reviews[1]
	if second.Rating != nil {
		t.Errorf("unparseable rating should be nil, got %v", second.Rating)
	}
}

func TestHTMLFeed_RobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /reviews\n"))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	feed := NewHTMLFeed("shopfeed", server.URL+"/reviews?q=%s", model.HTTPConfig{Timeout: 5 * time.Second}, nil)

	_, err := feed.Fetch(context.Background(), "acme widget")
	if err == nil || !strings.Contains(err.Error(), "robots.txt") {
		t.Fatalf("expected robots.txt refusal, got %v", err)
	}
}

func TestHTMLFeed_HTTPError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/reviews", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	feed := NewHTMLFeed("shopfeed", server.URL+"/reviews?q=%s", model.HTTPConfig{Timeout: 5 * time.Second}, nil)

	if _, err := feed.Fetch(context.Background(), "acme widget"); err == nil {
		t.Fatal("expected error on 503 response")
	}
}
