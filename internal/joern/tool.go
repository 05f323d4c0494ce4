package joern

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Repr names a joern-export representation.
type Repr string

const (
	ReprPDG          Repr = "pdg"
	ReprLineInfoJSON Repr = "lineinfo_json"
)

// ParseRepr validates a representation name.
func ParseRepr(s string) (Repr, error) {
	switch Repr(s) {
	case ReprPDG, ReprLineInfoJSON:
		return Repr(s), nil
	default:
		return "", fmt.Errorf("%w: %q (valid: pdg, lineinfo_json)", ErrUnknownRepr, s)
	}
}

// Tool is the external code-property-graph tool. Every call blocks until the
// underlying process exits.
type Tool interface {
	// Parse builds a binary CPG at outputPath from the source at sourcePath.
	Parse(ctx context.Context, sourcePath, outputPath string) error

	// Export writes repr for binaryPath into outputDir, one file per function.
	Export(ctx context.Context, binaryPath string, repr Repr, outputDir string) error

	// RunScript runs a tool script with named parameters. Any stderr output
	// counts as failure.
	RunScript(ctx context.Context, scriptPath string, params map[string]string) error
}

// CLIToolConfig configures a CLITool.
type CLIToolConfig struct {
	// Dir is the Joern installation directory holding joern, joern-parse and joern-export.
	Dir string

	// Language is passed to joern-parse --language. Defaults to "c".
	Language string

	// Timeout bounds a single invocation. Zero disables the limit.
	Timeout time.Duration
}

// CLITool drives the Joern command-line tools.
type CLITool struct {
	dir      string
	language string
	runner   *runner
	logger   logrus.FieldLogger
}

// NewCLITool creates a CLITool after checking the installation directory.
func NewCLITool(cfg CLIToolConfig, logger logrus.FieldLogger) (*CLITool, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: no path configured", ErrToolNotFound)
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve joern path: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, dir)
	}
	if cfg.Language == "" {
		cfg.Language = "c"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &CLITool{
		dir:      dir,
		language: cfg.Language,
		runner: &runner{
			dir:     dir,
			env:     toolEnv(dir),
			timeout: cfg.Timeout,
		},
		logger: logger,
	}, nil
}

// Parse runs joern-parse.
func (t *CLITool) Parse(ctx context.Context, sourcePath, outputPath string) error {
	bin := filepath.Join(t.dir, "joern-parse")
	_, err := t.runner.run(ctx, bin, sourcePath, "--language", t.language, "--output", outputPath)
	if err != nil {
		return err
	}
	t.logger.WithField("command", bin).Debug("Successfully ran command")
	return nil
}

// Export runs joern-export. outputDir must not exist yet.
func (t *CLITool) Export(ctx context.Context, binaryPath string, repr Repr, outputDir string) error {
	bin := filepath.Join(t.dir, "joern-export")
	_, err := t.runner.run(ctx, bin, binaryPath, "--repr", string(repr), "--out", outputDir)
	if err != nil {
		return err
	}
	t.logger.WithField("command", bin).Debug("Successfully ran command")
	return nil
}

// RunScript runs "joern --script <script> --param k=v ...". Parameters are
// passed in key order so invocations are reproducible.
func (t *CLITool) RunScript(ctx context.Context, scriptPath string, params map[string]string) error {
	bin := filepath.Join(t.dir, "joern")
	args := []string{"--script", scriptPath}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--param", k+"="+params[k])
	}

	res, err := t.runner.run(ctx, bin, args...)
	if err != nil {
		return err
	}
	if strings.TrimSpace(res.Stderr) != "" {
		return &ExecError{
			Command: append([]string{bin}, args...),
			Stdout:  res.Stdout,
			Stderr:  res.Stderr,
			Err:     ErrStderrOutput,
		}
	}
	return nil
}
