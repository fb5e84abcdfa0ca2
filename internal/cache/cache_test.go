package cache

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"reviewlens/internal/model"
)

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Sony WH-1000XM5":     "sony_wh1000xm5",
		"  sony wh1000xm5  ":  "sony_wh1000xm5",
		"Instant Pot (Duo!)":  "instant_pot_duo",
		"multi   space  name": "multi_space_name",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Errorf("NormalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReportKey_CollidesAcrossFormatting(t *testing.T) {
	if ReportKey("Sony WH-1000XM5!") != ReportKey("sony wh1000xm5") {
		t.Error("equivalent product names should share a cache key")
	}
	if ReportKey("sony") == ReportKey("bose") {
		t.Error("different products must not collide")
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, found := c.Get("k"); !found || string(got) != "v" {
		t.Fatalf("expected hit, got %q found=%v", got, found)
	}

	time.Sleep(40 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expected expiry")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)

	if err := c.Set("reviewlens:v1:report:widget", []byte("payload"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, found := c.Get("reviewlens:v1:report:widget")
	if !found || string(got) != "payload" {
		t.Fatalf("expected hit, got %q found=%v", got, found)
	}

	if err := c.Set("expired", []byte("stale"), -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, found := c.Get("expired"); found {
		t.Error("expected expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	l := NewLayeredCache(time.Minute, dir, time.Minute)

	if err := l.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	// A fresh layered cache over the same directory only has the disk
	// copy; the first Get must still hit and promote.
	fresh := NewLayeredCache(time.Minute, dir, time.Minute)
	got, found := fresh.Get("k")
	if !found || string(got) != "v" {
		t.Fatalf("expected disk fall-through hit, got %q found=%v", got, found)
	}
	if _, found := fresh.memory.Get("k"); !found {
		t.Error("disk hit was not promoted to memory")
	}
}

func TestReportStore_RoundTrip(t *testing.T) {
	s := NewReportStore(NewMemoryCache(time.Minute, time.Minute), 0)

	report := &model.FinalReport{
		ProductName:          "Acme Widget",
		OverallScore:         8.4,
		TotalReviewsAnalyzed: 42,
		SourcesUsed:          []string{"amazon"},
		Verdict:              "Acme Widget earns a excellent 8.4/10.",
	}
	if err := s.PutReport("Acme Widget", report); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, found := s.GetReport("acme widget")
	if !found {
		t.Fatal("expected cache hit on normalized name")
	}
	if diff := cmp.Diff(report, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	s.Invalidate("ACME WIDGET")
	if _, found := s.GetReport("Acme Widget"); found {
		t.Error("expected miss after invalidation")
	}
}

func TestReportStore_CorruptEntryMisses(t *testing.T) {
	mem := NewMemoryCache(time.Minute, time.Minute)
	s := NewReportStore(mem, 0)

	_ = mem.Set(ReportKey("widget"), []byte("{not json"), time.Minute)
	if _, found := s.GetReport("widget"); found {
		t.Error("corrupt entry should be treated as a miss")
	}
}
