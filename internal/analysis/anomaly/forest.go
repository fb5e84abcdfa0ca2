package anomaly

import (
	"math"
	"math/rand"
)

// Model is the pluggable unsupervised anomaly strategy. FitScore fits
// on the feature matrix and returns one raw score per row, where a
// higher score means more anomalous. Callers normalize the scores.
type Model interface {
	FitScore(features [][]float64) []float64
}

// IsolationForest implements Model with an ensemble of random
// isolation trees. Anomalous rows isolate in fewer splits, so their
// expected path length is short and their score high.
type IsolationForest struct {
	trees         int
	sampleSize    int
	contamination float64 // prior fraction of anomalies, kept for substitutable thresholds
	seed          int64
}

// NewIsolationForest creates a forest with the given ensemble size and
// contamination prior. The seed fixes the subsampling and split draws
// so a batch always scores the same way.
func NewIsolationForest(trees int, contamination float64, seed int64) *IsolationForest {
	if trees <= 0 {
		trees = 100
	}
	return &IsolationForest{
		trees:         trees,
		sampleSize:    256,
		contamination: contamination,
		seed:          seed,
	}
}

type forestNode struct {
	left      *forestNode
	right     *forestNode
	splitAttr int
	splitVal  float64
	size      int // external node only
}

// FitScore fits the forest and scores every row.
func (f *IsolationForest) FitScore(features [][]float64) []float64 {
	n := len(features)
	if n == 0 {
		return []float64{}
	}

	sample := f.sampleSize
	if sample > n {
		sample = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sample))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	rng := rand.New(rand.NewSource(f.seed))
	roots := make([]*forestNode, f.trees)
	for t := 0; t < f.trees; t++ {
		idx := rng.Perm(n)[:sample]
		roots[t] = buildTree(features, idx, 0, heightLimit, rng)
	}

	cNorm := avgPathLength(sample)
	scores := make([]float64, n)
	for i, row := range features {
		var total float64
		for _, root := range roots {
			total += pathLength(row, root, 0)
		}
		mean := total / float64(f.trees)
		scores[i] = math.Pow(2, -mean/cNorm)
	}

	return scores
}

func buildTree(features [][]float64, idx []int, depth, heightLimit int, rng *rand.Rand) *forestNode {
	if depth >= heightLimit || len(idx) <= 1 {
		return &forestNode{size: len(idx)}
	}

	dims := len(features[idx[0]])

	// Pick a split attribute that still has spread; give up after a few
	// draws and close the node.
	var attr int
	var lo, hi float64
	found := false
	for attempt := 0; attempt < dims; attempt++ {
		attr = rng.Intn(dims)
		lo, hi = features[idx[0]][attr], features[idx[0]][attr]
		for _, i := range idx[1:] {
			v := features[i][attr]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			found = true
			break
		}
	}
	if !found {
		return &forestNode{size: len(idx)}
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, i := range idx {
		if features[i][attr] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &forestNode{size: len(idx)}
	}

	return &forestNode{
		splitAttr: attr,
		splitVal:  split,
		left:      buildTree(features, left, depth+1, heightLimit, rng),
		right:     buildTree(features, right, depth+1, heightLimit, rng),
	}
}

func pathLength(row []float64, node *forestNode, depth int) float64 {
	if node.left == nil && node.right == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if row[node.splitAttr] < node.splitVal {
		return pathLength(row, node.left, depth+1)
	}
	return pathLength(row, node.right, depth+1)
}

const eulerMascheroni = 0.5772156649

// avgPathLength is the expected path length of an unsuccessful BST
// search over n points, the standard isolation-forest normalizer.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
	}
}
