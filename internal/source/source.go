package source

import (
	"context"
	"fmt"

	"reviewlens/internal/model"
	"reviewlens/internal/worker"
)

// Result is what one source produced for a query.
type Result struct {
	Reviews  []model.Review
	ImageURL string
}

// Source fetches reviews for a product query from one upstream site or
// generator.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query string) (*Result, error)
}

// Collected is the merged output of a collection run. Failures are
// per-source: one broken site never empties the whole set.
type Collected struct {
	Reviews  []model.Review
	ImageURL string
	Progress []string
	Errors   []string
}

// Collector fans a query out across all configured sources on a worker
// pool and merges the results.
type Collector struct {
	sources []Source
	workers int
}

// NewCollector creates a collector over the given sources.
func NewCollector(sources []Source, workers int) *Collector {
	if workers <= 0 {
		workers = len(sources)
	}
	return &Collector{sources: sources, workers: workers}
}

type fetchJob struct {
	source Source
	query  string
}

type fetchResult struct {
	name   string
	result *Result
	err    error
}

func (r *fetchResult) GetError() error { return r.err }

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	res, err := j.source.Fetch(ctx, j.query)
	return &fetchResult{name: j.source.Name(), result: res, err: err}
}

// Collect runs every source for the query. The merged review order
// follows source registration order so runs are reproducible.
func (c *Collector) Collect(ctx context.Context, query string) Collected {
	out := Collected{
		Progress: []string{"Collecting reviews from all sources..."},
		Errors:   []string{},
	}
	if len(c.sources) == 0 {
		out.Errors = append(out.Errors, "no review sources configured")
		return out
	}

	pool := worker.NewPool(c.workers)
	pool.Start()
	for _, s := range c.sources {
		pool.Submit(&fetchJob{source: s, query: query})
	}

	done := make(chan []worker.Result, 1)
	go func() { done <- pool.Wait() }()

	var results []worker.Result
	select {
	case <-ctx.Done():
		pool.Shutdown()
		out.Errors = append(out.Errors, "collection canceled")
		return out
	case results = <-done:
	}

	byName := make(map[string]*fetchResult, len(results))
	for _, r := range results {
		if fr, ok := r.(*fetchResult); ok {
			byName[fr.name] = fr
		}
	}

	for _, s := range c.sources {
		fr := byName[s.Name()]
		if fr == nil {
			continue
		}
		if fr.err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s source failed: %v", fr.name, fr.err))
			continue
		}
		out.Progress = append(out.Progress, fmt.Sprintf("Collected %d reviews from %s", len(fr.result.Reviews), fr.name))
		out.Reviews = append(out.Reviews, fr.result.Reviews...)
		if out.ImageURL == "" && fr.result.ImageURL != "" {
			out.ImageURL = fr.result.ImageURL
		}
	}

	if len(out.Reviews) == 0 {
		out.Errors = append(out.Errors, "no reviews collected from any source")
	}
	out.Progress = append(out.Progress, fmt.Sprintf("Total reviews collected: %d", len(out.Reviews)))
	return out
}
