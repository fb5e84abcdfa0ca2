package cluster

import (
	"math"
	"sort"
)

// Noise is the label assigned to points belonging to no cluster.
const Noise = -1

// ClusterModel is the pluggable density-clustering strategy. Assign
// labels every point with a cluster id starting at 0, or Noise.
type ClusterModel interface {
	Assign(points [][]float64, minClusterSize int) []int
}

// DBSCAN implements ClusterModel with density-based clustering. The
// neighborhood radius is not configured: it is derived per batch from
// the k-distance curve (distance to the minClusterSize-th neighbor),
// which adapts to however tight the reduced embedding space turned out.
type DBSCAN struct{}

// NewDBSCAN creates the model.
func NewDBSCAN() *DBSCAN {
	return &DBSCAN{}
}

// Assign labels the points.
func (d *DBSCAN) Assign(points [][]float64, minClusterSize int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}
	if minClusterSize < 1 {
		minClusterSize = 1
	}
	if minClusterSize > n {
		return labels
	}

	eps := kDistanceEps(points, minClusterSize)

	neighborhoods := make([][]int, n)
	for i := range points {
		for j := range points {
			if euclidean(points[i], points[j]) <= eps {
				neighborhoods[i] = append(neighborhoods[i], j)
			}
		}
	}

	nextLabel := 0
	for i := range points {
		if labels[i] != Noise || len(neighborhoods[i]) < minClusterSize {
			continue
		}

		// Expand a new cluster from this core point.
		labels[i] = nextLabel
		queue := append([]int(nil), neighborhoods[i]...)
		for len(queue) > 0 {
			p := queue[0]
			queue = queue[1:]
			if labels[p] != Noise {
				continue
			}
			labels[p] = nextLabel
			if len(neighborhoods[p]) >= minClusterSize {
				queue = append(queue, neighborhoods[p]...)
			}
		}
		nextLabel++
	}

	// Demote clusters that ended up below the minimum size.
	sizes := make(map[int]int)
	for _, l := range labels {
		if l != Noise {
			sizes[l]++
		}
	}
	for i, l := range labels {
		if l != Noise && sizes[l] < minClusterSize {
			labels[i] = Noise
		}
	}

	return compactLabels(labels)
}

// kDistanceEps picks the radius from the k-th neighbor distance curve:
// a high quantile with slack. The curve value sits right at the typical
// neighbor spacing, so batches with many near-duplicate points would
// fragment at the median.
func kDistanceEps(points [][]float64, k int) float64 {
	n := len(points)
	kth := make([]float64, 0, n)
	for i := range points {
		dists := make([]float64, 0, n-1)
		for j := range points {
			if i != j {
				dists = append(dists, euclidean(points[i], points[j]))
			}
		}
		sort.Float64s(dists)
		idx := k - 1
		if idx >= len(dists) {
			idx = len(dists) - 1
		}
		if idx >= 0 {
			kth = append(kth, dists[idx])
		}
	}
	if len(kth) == 0 {
		return 0
	}
	sort.Float64s(kth)
	return 1.5 * kth[len(kth)*9/10]
}

// compactLabels renumbers surviving clusters to 0..k-1 so demotions
// leave no gaps.
func compactLabels(labels []int) []int {
	remap := make(map[int]int)
	next := 0
	for _, l := range labels {
		if l == Noise {
			continue
		}
		if _, ok := remap[l]; !ok {
			remap[l] = next
			next++
		}
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		if l == Noise {
			out[i] = Noise
		} else {
			out[i] = remap[l]
		}
	}
	return out
}

func euclidean(a, b []float64) float64 {
	var total float64
	for i := range a {
		d := a[i] - b[i]
		total += d * d
	}
	return math.Sqrt(total)
}
