package jobs

import (
	"sync"
	"testing"
	"time"

	"reviewlens/internal/model"
)

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore(time.Minute)

	job := s.Create("acme widget")
	if job.ID == "" {
		t.Fatal("missing job id")
	}
	if job.Status != StatusRunning {
		t.Errorf("status = %s, want running", job.Status)
	}

	s.AppendProgress(job.ID, "Collecting reviews from all sources...")
	s.AppendProgress(job.ID, "Running aspect-based sentiment analysis...")
	s.AppendErrors(job.ID, "reddit source failed: timeout")

	got, ok := s.Get(job.ID)
	if !ok {
		t.Fatal("job not found")
	}
	if len(got.Progress) != 2 {
		t.Errorf("progress lines = %d, want 2", len(got.Progress))
	}
	if len(got.Errors) != 1 {
		t.Errorf("error lines = %d, want 1", len(got.Errors))
	}
	if got.Status != StatusRunning {
		t.Errorf("errors alone must not fail the job, status = %s", got.Status)
	}

	report := &model.FinalReport{ProductName: "acme widget", OverallScore: 7.5}
	s.Complete(job.ID, report)

	got, _ = s.Get(job.ID)
	if got.Status != StatusComplete {
		t.Errorf("status = %s, want complete", got.Status)
	}
	if got.Report == nil || got.Report.OverallScore != 7.5 {
		t.Errorf("report not attached: %+v", got.Report)
	}
}

func TestStore_Fail(t *testing.T) {
	s := NewStore(time.Minute)

	job := s.Create("widget")
	s.Fail(job.ID, "canceled")

	got, _ := s.Get(job.ID)
	if got.Status != StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if len(got.Errors) != 1 || got.Errors[0] != "canceled" {
		t.Errorf("errors = %v", got.Errors)
	}
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	s := NewStore(time.Minute)

	job := s.Create("widget")
	snap, _ := s.Get(job.ID)
	snap.Progress = append(snap.Progress, "mutated locally")

	fresh, _ := s.Get(job.ID)
	if len(fresh.Progress) != 0 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestStore_UnknownJob(t *testing.T) {
	s := NewStore(time.Minute)

	if _, ok := s.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}
	// Updates to unknown jobs are no-ops, not panics.
	s.AppendProgress("missing", "line")
	s.Fail("missing", "reason")
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore(time.Minute)
	job := s.Create("widget")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendProgress(job.ID, "step")
		}()
	}
	wg.Wait()

	got, _ := s.Get(job.ID)
	if len(got.Progress) != 20 {
		t.Errorf("progress lines = %d, want 20", len(got.Progress))
	}
}
