package pipeline

import "reviewlens/internal/model"

// State is the accumulating record of one analysis run. Stages never
// mutate it directly; they emit Deltas which Apply folds in under the
// per-field merge rules. Progress and error lines are append-only, so
// no stage can erase another stage's trace.
type State struct {
	Query           string
	EnrichedQueries []string
	Reviews         []model.Review
	ImageURL        string

	Aspects       []model.Aspect
	AnomalyReport *model.AnomalyReport
	DriftReport   *model.DriftReport
	Clusters      []model.Cluster

	Final *model.FinalReport

	Progress []string
	Errors   []string
}

// NewState creates the initial state for a query.
func NewState(query string) *State {
	return &State{
		Query:    query,
		Progress: []string{},
		Errors:   []string{},
	}
}

// Delta is a stage's contribution to the run state. Nil and zero-value
// fields leave the state untouched.
type Delta struct {
	EnrichedQueries []string
	Reviews         []model.Review
	ImageURL        string

	Aspects       []model.Aspect
	AnomalyReport *model.AnomalyReport
	DriftReport   *model.DriftReport
	Clusters      []model.Cluster

	Final *model.FinalReport

	Progress []string
	Errors   []string
}

// Apply folds a delta into the state. Progress and Errors append; the
// image URL keeps its first non-empty value; everything else overwrites
// when set.
func (s *State) Apply(d Delta) {
	if d.EnrichedQueries != nil {
		s.EnrichedQueries = d.EnrichedQueries
	}
	if d.Reviews != nil {
		s.Reviews = d.Reviews
	}
	if s.ImageURL == "" && d.ImageURL != "" {
		s.ImageURL = d.ImageURL
	}
	if d.Aspects != nil {
		s.Aspects = d.Aspects
	}
	if d.AnomalyReport != nil {
		s.AnomalyReport = d.AnomalyReport
	}
	if d.DriftReport != nil {
		s.DriftReport = d.DriftReport
	}
	if d.Clusters != nil {
		s.Clusters = d.Clusters
	}
	if d.Final != nil {
		s.Final = d.Final
	}
	s.Progress = append(s.Progress, d.Progress...)
	s.Errors = append(s.Errors, d.Errors...)
}
