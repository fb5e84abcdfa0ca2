package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_AllowPerDomain(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("https://example.com/reviews") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("https://example.com/reviews?page=2") {
		t.Error("second request to the same domain should be throttled")
	}
	if !l.Allow("https://other.com/reviews") {
		t.Error("different domain should have its own bucket")
	}
}

func TestLimiter_SetDomainRate(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.SetDomainRate("fast.example.com", 1000, 10)

	for i := 0; i < 5; i++ {
		if !l.Allow("https://fast.example.com/") {
			t.Fatalf("request %d should pass the domain override", i)
		}
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow("https://slow.example.com/") // drain the burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "https://slow.example.com/"); err == nil {
		t.Error("expected context deadline error while throttled")
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	l := NewLimiter(1, 1)
	if l.Allow("://not a url") {
		t.Error("unparseable URL should not be allowed")
	}
}
