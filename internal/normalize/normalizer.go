// Package normalize strips comments from source gadgets and rewrites them in
// canonical form, in place.
package normalize

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/fsutil"
)

// StageName labels normalization runs in logs and progress output.
const StageName = "normalize"

// Normalizer rewrites source files into normalized gadgets.
type Normalizer struct {
	canon  Canonicalizer
	coord  *batch.Coordinator
	logger logrus.FieldLogger
}

// NewNormalizer creates a Normalizer. A nil canon selects IdentityCanonicalizer.
func NewNormalizer(canon Canonicalizer, coord *batch.Coordinator, logger logrus.FieldLogger) *Normalizer {
	if canon == nil {
		canon = IdentityCanonicalizer{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if coord == nil {
		coord = batch.NewCoordinator(batch.WithLogger(logger))
	}
	return &Normalizer{canon: canon, coord: coord, logger: logger}
}

// NormalizeFile strips comments, canonicalizes the remaining lines, and
// overwrites path with the result.
func (n *Normalizer) NormalizeFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	code := RemoveComments(string(data))
	lines, err := n.canon.Canonicalize(splitLines(code))
	if err != nil {
		return fmt.Errorf("failed to canonicalize %s: %w", path, err)
	}

	out := strings.Join(lines, "\n")
	if err := fsutil.WriteFileAtomic(path, []byte(out), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	n.logger.WithField("path", path).Debug("Normalized")
	return nil
}

// NormalizeDir normalizes every regular file under dir, whatever its
// extension. One file's failure never stops the others.
func (n *Normalizer) NormalizeDir(ctx context.Context, dir string) (*batch.Stats, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", dir)
	}

	items, err := batch.Discover(dir, "*", true)
	if err != nil {
		return nil, err
	}
	n.logger.WithField("files", len(items)).Info("Discovered files to normalize")

	return n.coord.Run(ctx, batch.Job{
		Stage: StageName,
		Items: items,
		Process: func(ctx context.Context, item batch.Item) error {
			return n.NormalizeFile(ctx, item.Path)
		},
	})
}

// splitLines splits on newlines, tolerating CRLF input. Empty input yields no lines.
func splitLines(code string) []string {
	if code == "" {
		return []string{}
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.Split(code, "\n")
}
