package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/config"
	"github.com/mvp-joe/cpgimage/internal/embed"
	"github.com/mvp-joe/cpgimage/internal/feature"
)

var (
	imageInput  string
	imageOutput string
	imageModel  string
	imageWatch  bool
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Fuse graph centralities and code embeddings into tensors",
	Long: `Image reads every exported DOT graph in the input directory and writes
<stem>.npz to the output directory: three channels (degree, closeness,
katz) of node embeddings scaled by each node's centrality.

Graphs that already have a tensor are skipped. With --watch the command keeps
running and processes new graphs as they appear.`,
	RunE: runImage,
}

func init() {
	imageCmd.Flags().StringVarP(&imageInput, "input", "i", "", "directory of DOT graphs (required)")
	imageCmd.Flags().StringVarP(&imageOutput, "output", "o", "", "output directory for tensors (required)")
	imageCmd.Flags().StringVarP(&imageModel, "model", "m", "", "embedding model for the openai provider (overrides embedding.model)")
	imageCmd.Flags().BoolVar(&imageWatch, "watch", false, "keep running and process new graphs as they appear")
	_ = imageCmd.MarkFlagRequired("input")
	_ = imageCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(imageCmd)
}

// imageOptions carries the image flags.
type imageOptions struct {
	Input  string
	Output string
	Model  string
	Watch  bool
}

func runImage(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	log := stageLogger(feature.StageName)
	coord := newCoordinator(log, cmd.ErrOrStderr())

	return executeImage(ctx, imageOptions{
		Input:  imageInput,
		Output: imageOutput,
		Model:  imageModel,
		Watch:  imageWatch,
	}, cfg, coord, log, cmd.OutOrStdout())
}

// executeImage loads the embedding provider once, runs the engine and, when
// watching, reruns it on new graphs until ctx is cancelled.
func executeImage(ctx context.Context, opts imageOptions, c *config.Config, coord *batch.Coordinator, log logrus.FieldLogger, out io.Writer) error {
	embedCfg := c.EmbedConfig()
	if opts.Model != "" {
		embedCfg.Model = opts.Model
	}

	provider, err := embed.NewProvider(embedCfg)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if embedCfg.Provider == embed.ProviderHash {
		log.Warn("Using the hash embedding provider: vectors carry no code semantics")
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.WithError(err).Warn("Failed to close embedding provider")
		}
	}()

	log.WithFields(logrus.Fields{
		"provider":   embedCfg.Provider,
		"dimensions": provider.Dimensions(),
	}).Info("Initializing embedding provider")
	if err := provider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	engine, err := feature.NewEngine(provider, feature.EngineConfig{
		OutputDir:    opts.Output,
		GraphPattern: c.Pipeline.GraphPattern,
	}, coord, log)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		stats, err := engine.Run(ctx, opts.Input)
		if err != nil {
			return err
		}
		printStats(out, feature.StageName, stats)
		return nil
	}

	if err := run(ctx); err != nil {
		return err
	}
	if !opts.Watch {
		return nil
	}

	log.WithField("dir", opts.Input).Info("Watching for new graphs (Ctrl+C to stop)")
	return batch.Watch(ctx, opts.Input, c.Pipeline.GraphPattern, batch.DefaultDebounce, log, run)
}
