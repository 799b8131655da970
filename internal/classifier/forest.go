package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyDataset is returned when Fit receives no rows.
	ErrEmptyDataset = errors.New("training dataset is empty")
	// ErrFeatureWidth is returned when a row has the wrong number of features.
	ErrFeatureWidth = errors.New("feature width mismatch")
)

// ForestConfig controls random forest training.
type ForestConfig struct {
	Trees           int
	MaxDepth        int // 0 grows trees until leaves are pure
	MinSamplesSplit int
	MaxFeatures     int // 0 uses floor(sqrt(features))
	Seed            uint64
	Workers         int // 0 uses GOMAXPROCS
}

// DefaultForestConfig mirrors the classic random forest defaults: 100 fully
// grown trees, sqrt feature sampling, fixed seed 42.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:           100,
		MinSamplesSplit: 2,
		Seed:            42,
	}
}

// Forest is a fitted bagged ensemble of classification trees.
// It is immutable after Fit and safe for concurrent use.
type Forest struct {
	trees     []*Tree
	nFeatures int
}

// Fit trains a forest on rows x with binary labels y.
func Fit(ctx context.Context, x [][]float64, y []int, cfg ForestConfig) (*Forest, error) {
	if len(x) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("features and labels size mismatch: %d rows, %d labels", len(x), len(y))
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("tree count must be positive, got %d", cfg.Trees)
	}

	nFeatures := len(x[0])
	if nFeatures == 0 {
		return nil, fmt.Errorf("%w: rows have no features", ErrFeatureWidth)
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureWidth, i, len(row), nFeatures)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("label %d at row %d is not binary", label, i)
		}
	}

	params := treeParams{
		maxDepth:        cfg.MaxDepth,
		minSamplesSplit: max(cfg.MinSamplesSplit, 2),
		maxFeatures:     cfg.MaxFeatures,
	}
	if params.maxFeatures <= 0 {
		params.maxFeatures = max(int(math.Sqrt(float64(nFeatures))), 1)
	}
	params.maxFeatures = min(params.maxFeatures, nFeatures)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, cfg.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Per-tree stream keeps training reproducible under any scheduling.
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			trees[i] = growTree(x, y, bootstrapSample(len(x), rng), params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	return &Forest{trees: trees, nFeatures: nFeatures}, nil
}

// PredictProba returns the mean positive-class fraction across all trees.
func (f *Forest) PredictProba(row []float64) (float64, error) {
	if len(row) != f.nFeatures {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrFeatureWidth, len(row), f.nFeatures)
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.trees)), nil
}

// TreeCount returns the number of trees in the ensemble.
func (f *Forest) TreeCount() int { return len(f.trees) }

// FeatureCount returns the row width the forest was trained on.
func (f *Forest) FeatureCount() int { return f.nFeatures }

func bootstrapSample(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.IntN(n)
	}
	return idx
}
