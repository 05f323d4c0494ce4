package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/config"
)

var (
	cfgFile     string
	verbose     bool
	quietFlag   bool
	workersFlag int

	logger *logrus.Logger
	cfg    *config.Config
	runID  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cpgimage",
	Short: "Turn C source gadgets into graph feature tensors",
	Long: `cpgimage prepares vulnerability-detection training data in three stages:

  normalize  strip comments and canonicalize identifiers in place
  graph      build code property graphs with Joern and export them
  image      fuse graph centralities with code embeddings into tensors

Every stage is resumable: rerunning it only processes what is missing.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), verbose, quietFlag)

		loaded, err := config.NewLoader(".", cfgFile).Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			loaded.Pipeline.Workers = workersFlag
		}
		cfg = loaded
		runID = uuid.NewString()

		if cfgFile != "" {
			logger.WithField("config", cfgFile).Debug("Using config file")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cpgimage.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "only log warnings and errors, no progress bars")
	rootCmd.PersistentFlags().IntVar(&workersFlag, "workers", 0, "concurrent workers (default: one per CPU)")
}

// newLogger builds the process logger. quiet wins over verbose.
func newLogger(out io.Writer, verbose, quiet bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	switch {
	case quiet:
		l.SetLevel(logrus.WarnLevel)
	case verbose:
		l.SetLevel(logrus.DebugLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// stageLogger tags entries with the run and stage.
func stageLogger(stage string) logrus.FieldLogger {
	return logger.WithFields(logrus.Fields{
		"run":   runID,
		"stage": stage,
	})
}

// newCoordinator builds the worker pool shared by a command's batches.
func newCoordinator(log logrus.FieldLogger, out io.Writer) *batch.Coordinator {
	var progress batch.ProgressReporter = &batch.NoOpProgressReporter{}
	if !quietFlag {
		progress = NewCLIProgressReporter(out)
	}
	return batch.NewCoordinator(
		batch.WithWorkers(cfg.Pipeline.Workers),
		batch.WithLogger(log),
		batch.WithProgress(progress),
	)
}

// signalContext is cancelled on Ctrl+C or SIGTERM, which also stops any
// running subprocesses.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// printStats writes a one-line batch summary unless quiet.
func printStats(w io.Writer, stage string, stats *batch.Stats) {
	if quietFlag || stats == nil {
		return
	}
	fmt.Fprintf(w, "✓ %s: %d processed, %d skipped, %d failed (%.1fs)\n",
		stage, stats.Succeeded, stats.Skipped, stats.Failed, stats.Duration.Seconds())
}
