package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/kozaktomas/doppelganger/internal/analyzer"
	"github.com/kozaktomas/doppelganger/internal/catalog"
	"github.com/kozaktomas/doppelganger/internal/config"
	"github.com/kozaktomas/doppelganger/internal/database/postgres"
	"github.com/kozaktomas/doppelganger/internal/detector"
	"github.com/kozaktomas/doppelganger/internal/entropy"
	"github.com/kozaktomas/doppelganger/internal/logging"
	"github.com/kozaktomas/doppelganger/internal/matching"
	"github.com/kozaktomas/doppelganger/internal/pose"
	"go.uber.org/zap"
)

// openDatabase connects to PostgreSQL and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	pool, applied, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	for _, m := range applied {
		logger.Info("applied migration", zap.String("migration", m))
	}
	return pool, nil
}

// loadCatalog reads the reference catalog from the configured source.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*catalog.Catalog, error) {
	switch cfg.Catalog.Source {
	case config.SourcePostgres:
		pool, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		defer pool.Close()
		return catalog.Load(ctx, postgres.NewCatalogRepository(pool))
	case config.SourceFile, "":
		return catalog.Load(ctx, catalog.FileSource{Path: cfg.Catalog.Path})
	default:
		return nil, fmt.Errorf("unknown catalog source: %s (use file or postgres)", cfg.Catalog.Source)
	}
}

// newMatcher builds the matcher described by cfg.
func newMatcher(cfg *config.Config, cat *catalog.Catalog, logger *zap.Logger) *matching.Matcher {
	engine := entropy.NewEngine(entropy.NewMemoryStore(), entropy.WithLogger(logger))

	opts := []matching.Option{matching.WithLogger(logger)}
	if cfg.Matching.Seed != 0 {
		opts = append(opts, matching.WithRand(rand.New(rand.NewPCG(cfg.Matching.Seed, cfg.Matching.Seed))))
	}
	if cfg.Matching.MutationsEnabled {
		opts = append(opts, matching.WithMutations(matching.DefaultMutations()))
	}

	return matching.NewMatcher(cat, engine, matching.TablesFromConfig(cfg.Patterns), opts...)
}

// newAnalyzer wires the detector client and expression provider to a matcher.
func newAnalyzer(ctx context.Context, cfg *config.Config, m *matching.Matcher, logger *zap.Logger) (*analyzer.Analyzer, error) {
	client := detector.NewClient(cfg.Detector.URL)
	expressions, err := detector.NewExpressionClassifier(ctx, cfg, client)
	if err != nil {
		return nil, err
	}

	return analyzer.New(m, client, expressions,
		analyzer.WithLogger(logger),
		analyzer.WithMaxImageSize(cfg.Detector.MaxImageSize),
	), nil
}

// setup loads config and builds the logger every command starts from.
func setup() (*config.Config, *zap.Logger, error) {
	cfg := config.Load()
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// readKeypoints loads a pose from a JSON file holding either a bare array of
// [x, y] pairs or an object with a "keypoints" array.
func readKeypoints(path string) (pose.Keypoints, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keypoints: %w", err)
	}

	var kp pose.Keypoints
	if err := json.Unmarshal(data, &kp); err == nil {
		return kp, nil
	}

	var wrapped struct {
		Keypoints pose.Keypoints `json:"keypoints"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing keypoints: %w", err)
	}
	return wrapped.Keypoints, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
