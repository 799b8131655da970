package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/storm-risk-predictor/internal/domain"
	"github.com/couchcryptid/storm-risk-predictor/internal/observability"
)

// TrainingConfig describes the one-time startup training run.
type TrainingConfig struct {
	Rows     int
	DataSeed uint64 // 0 draws a fresh seed per run
	Forest   ForestConfig
}

// NewSeededRand returns a PCG-backed generator for the given seed.
func NewSeededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Bootstrap generates the synthetic dataset and fits the forest.
// Any error must abort startup.
func Bootstrap(ctx context.Context, cfg TrainingConfig, logger *slog.Logger, metrics *observability.Metrics) (*Forest, error) {
	if cfg.Rows <= 0 {
		return nil, fmt.Errorf("training rows must be positive, got %d", cfg.Rows)
	}

	dataSeed := cfg.DataSeed
	if dataSeed == 0 {
		dataSeed = rand.Uint64()
	}

	logger.Info("training classifier",
		"rows", cfg.Rows,
		"trees", cfg.Forest.Trees,
		"max_depth", cfg.Forest.MaxDepth,
		"seed", cfg.Forest.Seed,
		"data_seed", dataSeed,
	)

	start := time.Now()
	ds := GenerateSynthetic(cfg.Rows, NewSeededRand(dataSeed))

	forest, err := Fit(ctx, ds.X, ds.Y, cfg.Forest)
	if err != nil {
		return nil, fmt.Errorf("bootstrap classifier: %w", err)
	}
	if forest.FeatureCount() != domain.FeatureCount {
		return nil, fmt.Errorf("%w: trained on %d features, want %d", ErrFeatureWidth, forest.FeatureCount(), domain.FeatureCount)
	}

	elapsed := time.Since(start)
	metrics.ModelTrainingDuration.Set(elapsed.Seconds())
	metrics.ModelTrees.Set(float64(forest.TreeCount()))

	logger.Info("classifier trained",
		"duration", elapsed,
		"trees", forest.TreeCount(),
		"positive_rate", float64(ds.Positives())/float64(cfg.Rows),
	)
	return forest, nil
}
