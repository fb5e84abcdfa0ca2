package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"reviewlens/internal/llm"
	"reviewlens/internal/model"
)

const (
	// embedTextLimit bounds the prefix sent to the embedding provider.
	embedTextLimit = 512

	// fallbackTheme is used whenever theme naming is unavailable or
	// fails; numeric cluster results never depend on the generator.
	fallbackTheme = "General Feedback"

	maxQuotes = 3
)

// Clusterer groups reviews by latent topic: external embeddings,
// dimensionality reduction, then density clustering. Theme labels are
// delegated to the text-generation collaborator.
type Clusterer struct {
	embedder  llm.Embedder
	generator llm.Provider
	reducer   Reducer
	model     ClusterModel
	cfg       model.AnalysisConfig
}

// NewClusterer creates a clusterer. Nil reducer/model select the
// built-in PCA and DBSCAN strategies; a nil generator means every
// cluster gets the fallback theme.
func NewClusterer(embedder llm.Embedder, generator llm.Provider, reducer Reducer, cm ClusterModel, cfg model.AnalysisConfig) *Clusterer {
	if reducer == nil {
		reducer = NewPCAReducer()
	}
	if cm == nil {
		cm = NewDBSCAN()
	}
	return &Clusterer{
		embedder:  embedder,
		generator: generator,
		reducer:   reducer,
		model:     cm,
		cfg:       cfg,
	}
}

// Cluster groups the reviews. Below the minimum corpus size it returns
// no clusters; any embedding or reduction failure surfaces as an error
// for the caller to degrade on.
func (c *Clusterer) Cluster(ctx context.Context, reviews []model.Review) ([]model.Cluster, error) {
	n := len(reviews)
	if n < c.cfg.MinReviewsCluster {
		return []model.Cluster{}, nil
	}

	if c.embedder == nil {
		return nil, fmt.Errorf("no embedding provider configured")
	}

	texts := make([]string, n)
	for i, r := range reviews {
		texts[i] = truncateRunes(r.Text, embedTextLimit)
	}

	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed reviews: %w", err)
	}
	if len(embeddings) != n {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d reviews", len(embeddings), n)
	}

	neighbors := c.cfg.MaxNeighbors
	if neighbors > n-1 {
		neighbors = n - 1
	}

	reduced, err := c.reducer.Reduce(embeddings, c.cfg.ReducedDims, neighbors)
	if err != nil {
		return nil, fmt.Errorf("reduce embeddings: %w", err)
	}

	minClusterSize := n / 20
	if minClusterSize < 5 {
		minClusterSize = 5
	}
	labels := c.model.Assign(reduced, minClusterSize)

	members := make(map[int][]model.Review)
	for i, label := range labels {
		if label == Noise {
			continue
		}
		members[label] = append(members[label], reviews[i])
	}
	if len(members) == 0 {
		return []model.Cluster{}, nil
	}

	labelIDs := make([]int, 0, len(members))
	for id := range members {
		labelIDs = append(labelIDs, id)
	}
	sort.Ints(labelIDs)

	clusters := make([]model.Cluster, 0, len(labelIDs))
	for _, id := range labelIDs {
		revs := members[id]
		clusters = append(clusters, model.Cluster{
			ClusterID:   id,
			Theme:       c.nameCluster(ctx, revs),
			ReviewCount: len(revs),
			Sentiment:   clusterSentiment(revs),
			TopQuotes:   topQuotes(revs, maxQuotes),
		})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].ReviewCount > clusters[j].ReviewCount
	})

	return clusters, nil
}

// nameCluster asks the text-generation collaborator for a short theme.
func (c *Clusterer) nameCluster(ctx context.Context, members []model.Review) string {
	if c.generator == nil {
		return fallbackTheme
	}

	var sample strings.Builder
	for i, r := range members {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&sample, "- %s\n", truncateRunes(r.Text, 200))
	}

	prompt := fmt.Sprintf(`These reviews share a common theme. In 3-5 words, name the theme.
Reviews:
%sTheme:`, sample.String())

	resp, err := c.generator.Generate(ctx, llm.GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   30,
		Temperature: 0.3,
	})
	if err != nil {
		return fallbackTheme
	}

	theme := strings.TrimSpace(strings.SplitN(resp.Text, "\n", 2)[0])
	if theme == "" {
		return fallbackTheme
	}
	if runeLen(theme) > 60 {
		theme = truncateRunes(theme, 57) + "..."
	}
	return theme
}

// clusterSentiment buckets a cluster by the mean rating of its rated
// members; a cluster with no ratings is mixed.
func clusterSentiment(members []model.Review) model.ClusterSentiment {
	var total float64
	rated := 0
	for _, r := range members {
		if r.Rated() {
			total += *r.Rating
			rated++
		}
	}
	if rated == 0 {
		return model.SentimentMixed
	}

	avg := total / float64(rated)
	switch {
	case avg >= 3.7:
		return model.SentimentPositive
	case avg <= 2.3:
		return model.SentimentNegative
	default:
		return model.SentimentMixed
	}
}

// topQuotes picks up to n representative quotes by descending
// helpfulness, preferring texts in the readable 50-500 range and
// truncating longer ones.
func topQuotes(members []model.Review, n int) []string {
	ranked := append([]model.Review(nil), members...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].HelpfulVotes > ranked[j].HelpfulVotes
	})

	quotes := []string{}
	for _, r := range ranked {
		text := strings.TrimSpace(r.Text)
		length := runeLen(text)
		switch {
		case length >= 50 && length <= 500:
			quotes = append(quotes, text)
		case length > 500:
			quotes = append(quotes, truncateRunes(text, 497)+"...")
		}
		if len(quotes) >= n {
			break
		}
	}
	return quotes
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
