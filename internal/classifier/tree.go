package classifier

import (
	"cmp"
	"math/rand/v2"
	"slices"
)

// TreeNode is one node of a fitted tree stored in a flat slice.
// Leaves carry the positive-class fraction of the training rows they hold.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// Tree is a binary CART classification tree.
type Tree struct {
	nodes []TreeNode
}

type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	maxFeatures     int
}

type treeBuilder struct {
	x      [][]float64
	y      []int
	params treeParams
	rng    *rand.Rand
	nodes  []TreeNode

	// rows maps a sample position to its dataset row. order[f] lists sample
	// positions sorted by feature f; every node owns the same window
	// [lo, hi) of each list.
	rows   []int
	order  [][]int
	goLeft []bool
	buf    []int
}

// growTree fits a tree on the rows selected by idx. idx may contain
// duplicates, which is how bootstrap samples are weighted.
func growTree(x [][]float64, y []int, idx []int, params treeParams, rng *rand.Rand) *Tree {
	b := &treeBuilder{
		x:      x,
		y:      y,
		params: params,
		rng:    rng,
		rows:   idx,
		goLeft: make([]bool, len(idx)),
		buf:    make([]int, len(idx)),
	}
	b.order = make([][]int, len(x[idx[0]]))
	for f := range b.order {
		positions := make([]int, len(idx))
		for p := range positions {
			positions[p] = p
		}
		slices.SortFunc(positions, func(a, c int) int {
			return cmp.Compare(b.value(a, f), b.value(c, f))
		})
		b.order[f] = positions
	}
	b.build(0, len(idx), 0)
	return &Tree{nodes: b.nodes}
}

func (b *treeBuilder) value(pos, f int) float64 { return b.x[b.rows[pos]][f] }

func (b *treeBuilder) label(pos int) int { return b.y[b.rows[pos]] }

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Predict walks the tree and returns the leaf's positive-class fraction.
func (t *Tree) Predict(row []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.Leaf {
			return n.Value
		}
		if row[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (b *treeBuilder) build(lo, hi, depth int) int {
	n := hi - lo
	pos := 0
	for _, p := range b.order[0][lo:hi] {
		pos += b.label(p)
	}
	value := float64(pos) / float64(n)

	at := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Left: -1, Right: -1, Value: value, Leaf: true})

	if pos == 0 || pos == n || n < b.params.minSamplesSplit {
		return at
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return at
	}

	feature, threshold, ok := b.bestSplit(lo, hi)
	if !ok {
		return at
	}

	mid := b.partition(lo, hi, feature, threshold)
	if mid == lo || mid == hi {
		return at
	}

	l := b.build(lo, mid, depth+1)
	r := b.build(mid, hi, depth+1)

	b.nodes[at] = TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      l,
		Right:     r,
		Value:     value,
	}
	return at
}

// partition stably splits the window [lo, hi) of every order list so samples
// with feature <= threshold come first, and returns the boundary.
func (b *treeBuilder) partition(lo, hi, feature int, threshold float64) int {
	nLeft := 0
	for _, p := range b.order[feature][lo:hi] {
		b.goLeft[p] = b.value(p, feature) <= threshold
		if b.goLeft[p] {
			nLeft++
		}
	}

	for _, list := range b.order {
		window := list[lo:hi]
		l, r := 0, 0
		for _, p := range window {
			if b.goLeft[p] {
				window[l] = p
				l++
			} else {
				b.buf[r] = p
				r++
			}
		}
		copy(window[l:], b.buf[:r])
	}
	return lo + nLeft
}

// bestSplit draws features in random order and evaluates them until
// maxFeatures non-constant ones have been tried. Constant features do not
// count against the budget.
func (b *treeBuilder) bestSplit(lo, hi int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := 0.0

	tried := 0
	for _, f := range b.rng.Perm(len(b.order)) {
		if tried >= b.params.maxFeatures {
			break
		}

		sorted := b.order[f][lo:hi]
		if b.value(sorted[0], f) == b.value(sorted[len(sorted)-1], f) {
			continue
		}
		tried++

		impurity, threshold := b.scanFeature(sorted, f)
		if bestFeature == -1 || impurity < bestImpurity {
			bestFeature = f
			bestThreshold = threshold
			bestImpurity = impurity
		}
	}

	return bestFeature, bestThreshold, bestFeature != -1
}

// scanFeature sweeps sample positions sorted by feature f and returns the
// lowest weighted Gini impurity and the midpoint threshold that achieves it.
func (b *treeBuilder) scanFeature(sorted []int, f int) (float64, float64) {
	n := len(sorted)
	totalPos := 0
	for _, p := range sorted {
		totalPos += b.label(p)
	}

	best := -1.0
	threshold := 0.0
	leftPos := 0
	for k := 0; k < n-1; k++ {
		leftPos += b.label(sorted[k])
		v, next := b.value(sorted[k], f), b.value(sorted[k+1], f)
		if v == next {
			continue
		}

		leftN := k + 1
		rightN := n - leftN
		impurity := (float64(leftN)*gini(leftPos, leftN) + float64(rightN)*gini(totalPos-leftPos, rightN)) / float64(n)
		if best < 0 || impurity < best {
			best = impurity
			threshold = v + (next-v)/2
			if threshold >= next {
				threshold = v
			}
		}
	}
	return best, threshold
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
