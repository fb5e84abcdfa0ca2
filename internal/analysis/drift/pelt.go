package drift

// Segmenter is the pluggable change-point strategy. ChangePoints
// returns the index at which each new segment starts, in increasing
// order, excluding the trivial start at 0.
type Segmenter interface {
	ChangePoints(series []float64) []int
}

// Pelt fits a penalized piecewise-constant model: segment boundaries
// minimize the total within-segment squared error plus a fixed penalty
// per boundary. The pruning step keeps the search linear for the
// well-behaved series we feed it.
type Pelt struct {
	Penalty    float64
	MinSegment int
}

// NewPelt creates a segmenter. The penalty is tuned for monthly means
// on a 0-1 scale: large enough to ignore noise, small enough to find a
// handful of true level shifts.
func NewPelt(penalty float64) *Pelt {
	if penalty <= 0 {
		penalty = 0.02
	}
	return &Pelt{Penalty: penalty, MinSegment: 2}
}

// ChangePoints segments the series.
func (p *Pelt) ChangePoints(series []float64) []int {
	n := len(series)
	minSeg := p.MinSegment
	if minSeg < 1 {
		minSeg = 1
	}
	if n < 2*minSeg {
		return []int{}
	}

	// Prefix sums for O(1) segment cost: cost of [i,j) is the residual
	// sum of squares around the segment mean.
	sum := make([]float64, n+1)
	sumSq := make([]float64, n+1)
	for i, v := range series {
		sum[i+1] = sum[i] + v
		sumSq[i+1] = sumSq[i] + v*v
	}
	cost := func(i, j int) float64 {
		length := float64(j - i)
		s := sum[j] - sum[i]
		return (sumSq[j] - sumSq[i]) - s*s/length
	}

	const inf = 1e18
	best := make([]float64, n+1)
	prev := make([]int, n+1)
	best[0] = -p.Penalty
	for t := 1; t <= n; t++ {
		best[t] = inf
	}

	candidates := []int{0}
	for t := minSeg; t <= n; t++ {
		for _, s := range candidates {
			if t-s < minSeg {
				continue
			}
			c := best[s] + cost(s, t) + p.Penalty
			if c < best[t] {
				best[t] = c
				prev[t] = s
			}
		}
		// PELT pruning: a candidate that can never win again is dropped
		var kept []int
		for _, s := range candidates {
			if t-s < minSeg || best[s]+cost(s, t) <= best[t] {
				kept = append(kept, s)
			}
		}
		candidates = append(kept, t)
	}

	// Walk back through the optimal partition.
	var breaks []int
	for t := n; t > 0; t = prev[t] {
		if prev[t] > 0 {
			breaks = append(breaks, prev[t])
		}
	}
	// Reverse into increasing order
	for i, j := 0, len(breaks)-1; i < j; i, j = i+1, j-1 {
		breaks[i], breaks[j] = breaks[j], breaks[i]
	}
	if breaks == nil {
		breaks = []int{}
	}
	return breaks
}
