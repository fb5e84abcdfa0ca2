package pipeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"reviewlens/internal/model"
)

func TestStateApply_AppendsProgressAndErrors(t *testing.T) {
	s := NewState("widget")

	s.Apply(Delta{Progress: []string{"step one"}, Errors: []string{"warning one"}})
	s.Apply(Delta{Progress: []string{"step two"}})
	s.Apply(Delta{Errors: []string{"warning two"}})

	if diff := cmp.Diff([]string{"step one", "step two"}, s.Progress); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"warning one", "warning two"}, s.Errors); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestStateApply_FirstImageWins(t *testing.T) {
	s := NewState("widget")

	s.Apply(Delta{ImageURL: "https://img.example/first.jpg"})
	s.Apply(Delta{ImageURL: "https://img.example/second.jpg"})

	if s.ImageURL != "https://img.example/first.jpg" {
		t.Errorf("image URL = %q", s.ImageURL)
	}
}

func TestStateApply_NilFieldsLeaveStateUntouched(t *testing.T) {
	s := NewState("widget")
	report := model.EmptyAnomalyReport(3)
	s.Apply(Delta{
		Reviews:       []model.Review{{ID: "a"}},
		AnomalyReport: &report,
	})

	s.Apply(Delta{Progress: []string{"later stage"}})

	if len(s.Reviews) != 1 {
		t.Error("empty delta cleared reviews")
	}
	if s.AnomalyReport == nil {
		t.Error("empty delta cleared the anomaly report")
	}
}

func TestStateApply_OverwritesWhenSet(t *testing.T) {
	s := NewState("widget")

	s.Apply(Delta{Reviews: []model.Review{{ID: "raw"}}})
	s.Apply(Delta{Reviews: []model.Review{{ID: "raw", AnomalyScore: 0.4}}})

	if s.Reviews[0].AnomalyScore != 0.4 {
		t.Error("rescored reviews should replace the previous set")
	}
}
