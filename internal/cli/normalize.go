package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/normalize"
)

var (
	normalizeInput string
	canonicalize   string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Strip comments and canonicalize identifiers in place",
	Long: `Normalize rewrites every file under the input directory: comments are
removed and, with --canonicalize symbol, user identifiers are renamed to
VAR<n> and FUN<n> in order of first appearance. Files are overwritten.`,
	RunE: runNormalize,
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeInput, "input", "i", "", "directory of source gadgets (required)")
	normalizeCmd.Flags().StringVar(&canonicalize, "canonicalize", "symbol", "identifier canonicalization: symbol or none")
	_ = normalizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	log := stageLogger(normalize.StageName)
	coord := newCoordinator(log, cmd.ErrOrStderr())

	stats, err := executeNormalize(ctx, normalizeInput, canonicalize, coord, log)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), normalize.StageName, stats)
	return nil
}

// executeNormalize is the command body without cobra state.
func executeNormalize(ctx context.Context, dir, mode string, coord *batch.Coordinator, log logrus.FieldLogger) (*batch.Stats, error) {
	canon, err := canonicalizerFor(mode)
	if err != nil {
		return nil, err
	}
	return normalize.NewNormalizer(canon, coord, log).NormalizeDir(ctx, dir)
}

func canonicalizerFor(mode string) (normalize.Canonicalizer, error) {
	switch mode {
	case "symbol":
		return normalize.NewSymbolCanonicalizer(), nil
	case "none", "":
		return normalize.IdentityCanonicalizer{}, nil
	default:
		return nil, fmt.Errorf("unknown canonicalize mode %q (valid: symbol, none)", mode)
	}
}

