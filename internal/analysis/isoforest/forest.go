package isoforest

import (
	"context"
	"math"
	"math/rand"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

// Hard ceilings on ensemble cost. Requests above these are clamped so
// a degenerate configuration cannot hang a call.
const (
	MaxTrees         = 500
	MaxSubsampleSize = 1024
)

const eulerMascheroni = 0.5772156649

// Config holds the isolation forest tunables
type Config struct {
	// Trees is the ensemble size.
	Trees int `json:"trees"`
	// SubsampleSize is the points drawn without replacement per tree.
	SubsampleSize int `json:"subsample_size"`
	// Threshold is the anomaly score cutoff for flagging a point.
	Threshold float64 `json:"threshold"`
	// Seed fixes all pseudo-randomness; identical seed and input
	// reproduce the forest exactly.
	Seed int64 `json:"seed"`
}

// DefaultConfig returns the documented forest defaults
func DefaultConfig() Config {
	return Config{Trees: 100, SubsampleSize: 256, Threshold: 0.6, Seed: 1}
}

// Score is the per-row anomaly verdict
type Score struct {
	RowIndex  int              `json:"row_index"`
	Value     float64          `json:"score"`
	IsAnomaly bool             `json:"is_anomaly"`
	RiskLevel values.RiskLevel `json:"risk_level"`
}

// Result is the forest's scoring output
type Result struct {
	Scores       []Score `json:"scores"`
	TreesBuilt   int     `json:"trees_built"`
	TreesPlanned int     `json:"trees_planned"`
	// Truncated is set when the context deadline cut tree building
	// short; scores then come from the partial ensemble.
	Truncated bool     `json:"truncated"`
	Notes     []string `json:"notes,omitempty"`
}

// node is one arena slot. A leaf has left == -1 and carries the count
// of points it absorbed; an internal node carries the split.
type node struct {
	feature int
	split   float64
	left    int32
	right   int32
	size    int
}

type tree struct {
	nodes []node
}

// Forest is a built isolation forest ready to score points
type Forest struct {
	trees      []tree
	subsample  int
	normalizer float64
}

// Build constructs the ensemble over a feature matrix (rows x
// features). Tree i derives its generator from the seed and i alone,
// so construction order, including parallel order, never affects the
// outcome. Build stops early when ctx expires and reports how many
// trees it finished.
func Build(ctx context.Context, matrix [][]float64, cfg Config) (*Forest, int, bool) {
	n := len(matrix)
	psi := cfg.SubsampleSize
	if psi > n {
		psi = n
	}
	if psi < 2 {
		psi = n
	}

	forest := &Forest{
		subsample:  psi,
		normalizer: avgPathLength(psi),
		trees:      make([]tree, 0, cfg.Trees),
	}

	maxDepth := int(math.Ceil(math.Log2(float64(psi))))
	truncated := false

	for i := 0; i < cfg.Trees; i++ {
		if ctx.Err() != nil {
			truncated = true
			break
		}
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)*0x9E3779B9))
		sample := drawSubsample(rng, n, psi)
		t := tree{}
		buildNode(&t, matrix, sample, 0, maxDepth, rng)
		forest.trees = append(forest.trees, t)
	}

	return forest, len(forest.trees), truncated
}

// drawSubsample picks psi distinct row indices
func drawSubsample(rng *rand.Rand, n, psi int) []int {
	if psi >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	return rng.Perm(n)[:psi]
}

// buildNode grows the arena recursively and returns the new node index
func buildNode(t *tree, matrix [][]float64, sample []int, depth, maxDepth int, rng *rand.Rand) int32 {
	idx := int32(len(t.nodes))

	if depth >= maxDepth || len(sample) <= 1 {
		t.nodes = append(t.nodes, node{left: -1, right: -1, size: len(sample)})
		return idx
	}

	feature, split, ok := pickSplit(matrix, sample, rng)
	if !ok {
		// All remaining points are identical on every feature.
		t.nodes = append(t.nodes, node{left: -1, right: -1, size: len(sample)})
		return idx
	}

	var left, right []int
	for _, row := range sample {
		if matrix[row][feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	t.nodes = append(t.nodes, node{feature: feature, split: split})
	leftIdx := buildNode(t, matrix, left, depth+1, maxDepth, rng)
	rightIdx := buildNode(t, matrix, right, depth+1, maxDepth, rng)
	t.nodes[idx].left = leftIdx
	t.nodes[idx].right = rightIdx
	return idx
}

// pickSplit chooses a uniformly random feature with spread in the
// current subset, then a uniform split strictly inside its range.
func pickSplit(matrix [][]float64, sample []int, rng *rand.Rand) (int, float64, bool) {
	features := len(matrix[sample[0]])
	order := rng.Perm(features)
	for _, f := range order {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, row := range sample {
			v := matrix[row][f]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi > lo {
			return f, lo + rng.Float64()*(hi-lo), true
		}
	}
	return 0, 0, false
}

// pathLength returns the isolation depth of a point in one tree,
// including the correction term for non-singleton leaves.
func (t tree) pathLength(point []float64) float64 {
	var depth float64
	idx := int32(0)
	for {
		nd := t.nodes[idx]
		if nd.left < 0 {
			return depth + avgPathLength(nd.size)
		}
		depth++
		if point[nd.feature] < nd.split {
			idx = nd.left
		} else {
			idx = nd.right
		}
	}
}

// ScorePoint returns the anomaly score 2^(-E[h]/c(psi)) in [0, 1]
func (f *Forest) ScorePoint(point []float64) float64 {
	if len(f.trees) == 0 {
		return 0.5
	}
	var total float64
	for _, t := range f.trees {
		total += t.pathLength(point)
	}
	mean := total / float64(len(f.trees))
	return math.Pow(2, -mean/f.normalizer)
}

// avgPathLength is c(n) = 2H(n-1) - 2(n-1)/n, the expected path length
// of an unsuccessful BST search, with H via the harmonic approximation.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerMascheroni
	return 2*h - 2*float64(n-1)/float64(n)
}

// classifyScore maps an anomaly score into the fixed risk bands
func classifyScore(score, threshold float64) (bool, values.RiskLevel) {
	isAnomaly := score >= threshold
	switch {
	case score >= 0.7:
		return isAnomaly, values.RiskHigh
	case score >= threshold:
		return isAnomaly, values.RiskMedium
	default:
		return isAnomaly, values.RiskLow
	}
}
