package feature

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/embed"
	"github.com/mvp-joe/cpgimage/internal/fsutil"
	"github.com/mvp-joe/cpgimage/internal/graph"
)

// StageName labels tensor generation in logs and progress output.
const StageName = "image"

// TensorExt is the extension of tensor files (NumPy npz archives).
const TensorExt = ".npz"

// DefaultGraphPattern selects graph inputs.
const DefaultGraphPattern = "*.dot"

// Engine turns exported graphs into tensor files.
type Engine struct {
	provider embed.Provider
	outDir   string
	pattern  string
	coord    *batch.Coordinator
	logger   logrus.FieldLogger
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	OutputDir    string
	GraphPattern string
}

// NewEngine creates an Engine writing into cfg.OutputDir. The provider must
// already be initialized; the engine never closes it.
func NewEngine(provider embed.Provider, cfg EngineConfig, coord *batch.Coordinator, logger logrus.FieldLogger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.GraphPattern == "" {
		cfg.GraphPattern = DefaultGraphPattern
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if coord == nil {
		coord = batch.NewCoordinator(batch.WithLogger(logger))
	}
	return &Engine{
		provider: provider,
		outDir:   cfg.OutputDir,
		pattern:  cfg.GraphPattern,
		coord:    coord,
		logger:   logger,
	}, nil
}

func (e *Engine) tensorPath(stem string) string {
	return filepath.Join(e.outDir, stem+TensorExt)
}

// ProcessFile builds the tensor for one DOT file. Nothing is written unless
// every step succeeds.
func (e *Engine) ProcessFile(ctx context.Context, dotPath string) (batch.Outcome, error) {
	stem := fsutil.Stem(dotPath)
	out := e.tensorPath(stem)
	if fsutil.Exists(out) {
		return batch.Skipped, nil
	}

	t, err := e.Build(ctx, dotPath)
	if err != nil {
		return batch.Skipped, err
	}
	if err := WriteFile(out, t); err != nil {
		return batch.Skipped, fmt.Errorf("failed to write tensor: %w", err)
	}

	e.logger.WithFields(logrus.Fields{
		"stem":  stem,
		"nodes": t.Nodes(),
		"dim":   t.Dim,
	}).Debug("Wrote tensor")
	return batch.Completed, nil
}

// Build computes the tensor for one DOT file without writing it.
func (e *Engine) Build(ctx context.Context, dotPath string) (*Tensor, error) {
	data, err := os.ReadFile(dotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph: %w", err)
	}
	g, err := graph.ParseDOT(data)
	if err != nil {
		return nil, err
	}
	profile, err := graph.ComputeProfile(g)
	if err != nil {
		return nil, err
	}

	snippets := make([]string, g.Len())
	for i, n := range g.Nodes {
		if !n.HasLabel {
			continue
		}
		snippet, err := SnippetFromLabel(n.Label)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		snippets[i] = snippet
	}

	vectors, err := e.provider.Embed(ctx, snippets)
	if err != nil {
		return nil, fmt.Errorf("failed to embed snippets: %w", err)
	}
	want := e.provider.Dimensions()
	for i, v := range vectors {
		if len(v) != want {
			return nil, fmt.Errorf("%w: node %s has %d values, provider reports %d",
				ErrDimensionMismatch, g.Nodes[i].ID, len(v), want)
		}
	}

	return Fuse(g.NodeIDs(), profile, vectors)
}

// Run builds tensors for every graph in inputDir that has none yet.
func (e *Engine) Run(ctx context.Context, inputDir string) (*batch.Stats, error) {
	items, err := batch.Discover(inputDir, e.pattern, false)
	if err != nil {
		return nil, err
	}
	done, err := batch.CompletedArtifacts(e.outDir, "*"+TensorExt)
	if err != nil {
		return nil, err
	}

	return e.coord.Run(ctx, batch.Job{
		Stage: StageName,
		Items: items,
		Done:  func(stem string) bool { return done[stem] },
		Process: func(ctx context.Context, item batch.Item) error {
			_, err := e.ProcessFile(ctx, item.Path)
			return err
		},
	})
}
