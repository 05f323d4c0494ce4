// Package joern drives the Joern code-property-graph tools through the parse
// and export stages.
//
// Both stages are resumable: a stem counts as done when its final artifact
// exists or when its stage record lists it. Artifacts are written atomically
// and stems are recorded only after the artifact is durable, so a run killed
// at any point is completed by running it again.
package joern

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/fsutil"
)

// Stage names used in logs and progress output.
const (
	StageParse  = "parse"
	StageExport = "export"
)

// Config configures an Orchestrator.
type Config struct {
	// OutputDir receives artifacts and the stage records.
	OutputDir string

	// Repr selects the export representation. Defaults to ReprPDG.
	Repr Repr

	// ScriptPath is the export script used for ReprLineInfoJSON.
	ScriptPath string

	// SourcePattern selects parse inputs. Defaults to "*.c".
	SourcePattern string

	// BinaryPattern selects export inputs. Defaults to "*.bin".
	BinaryPattern string
}

// Orchestrator runs parse and export over single items or whole directories.
type Orchestrator struct {
	tool   Tool
	cfg    Config
	coord  *batch.Coordinator
	logger logrus.FieldLogger

	mu      sync.Mutex
	records map[string]*Record
}

// NewOrchestrator validates cfg and creates the output directory.
func NewOrchestrator(tool Tool, cfg Config, coord *batch.Coordinator, logger logrus.FieldLogger) (*Orchestrator, error) {
	if tool == nil {
		return nil, fmt.Errorf("tool is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.Repr == "" {
		cfg.Repr = ReprPDG
	}
	if _, err := ParseRepr(string(cfg.Repr)); err != nil {
		return nil, err
	}
	if cfg.Repr == ReprLineInfoJSON {
		if cfg.ScriptPath == "" || !fsutil.Exists(cfg.ScriptPath) {
			return nil, fmt.Errorf("%w: %q", ErrScriptNotFound, cfg.ScriptPath)
		}
	}
	if cfg.SourcePattern == "" {
		cfg.SourcePattern = "*.c"
	}
	if cfg.BinaryPattern == "" {
		cfg.BinaryPattern = "*.bin"
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

	return &Orchestrator{
		tool:    tool,
		cfg:     cfg,
		coord:   coord,
		logger:  logger,
		records: make(map[string]*Record),
	}, nil
}

// record opens the named record in the output directory once.
func (o *Orchestrator) record(name string) (*Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if rec, ok := o.records[name]; ok {
		return rec, nil
	}
	rec, err := OpenRecord(filepath.Join(o.cfg.OutputDir, name))
	if err != nil {
		return nil, err
	}
	o.records[name] = rec
	return rec, nil
}

// done applies the dual completion guard. An artifact without a record entry
// is backfilled so the two signals agree from then on.
func (o *Orchestrator) done(rec *Record, stem, artifact string) bool {
	if rec.Contains(stem) {
		return true
	}
	if !fsutil.Exists(artifact) {
		return false
	}
	if err := rec.Append(stem); err != nil {
		o.logger.WithField("stem", stem).WithError(err).Warn("Failed to backfill record")
	}
	return true
}

func (o *Orchestrator) binaryPath(stem string) string {
	return filepath.Join(o.cfg.OutputDir, stem+".bin")
}

func (o *Orchestrator) exportPath(stem string) string {
	ext := ".dot"
	if o.cfg.Repr == ReprLineInfoJSON {
		ext = ".json"
	}
	return filepath.Join(o.cfg.OutputDir, stem+ext)
}

// ParseOne builds the binary graph for one source file.
func (o *Orchestrator) ParseOne(ctx context.Context, item batch.Item) (batch.Outcome, error) {
	rec, err := o.record(ParseRecordName)
	if err != nil {
		return batch.Skipped, err
	}
	target := o.binaryPath(item.Stem)
	if o.done(rec, item.Stem, target) {
		return batch.Skipped, nil
	}

	if err := o.tool.Parse(ctx, item.Path, target); err != nil {
		return batch.Skipped, fmt.Errorf("parse %s: %w", item.Stem, err)
	}
	if !fsutil.Exists(target) {
		return batch.Skipped, fmt.Errorf("parse %s: tool produced no artifact at %s", item.Stem, target)
	}
	if err := rec.Append(item.Stem); err != nil {
		return batch.Skipped, err
	}

	o.logger.WithField("stem", item.Stem).Debug("Parsed")
	return batch.Completed, nil
}

// ExportOne exports one binary graph in the configured representation.
func (o *Orchestrator) ExportOne(ctx context.Context, item batch.Item) (batch.Outcome, error) {
	rec, err := o.record(ExportRecordFor(o.cfg.Repr))
	if err != nil {
		return batch.Skipped, err
	}
	target := o.exportPath(item.Stem)
	if o.done(rec, item.Stem, target) {
		return batch.Skipped, nil
	}

	switch o.cfg.Repr {
	case ReprLineInfoJSON:
		err = o.exportLineInfo(ctx, item, target)
	default:
		err = o.exportPDG(ctx, item, target)
	}
	if err != nil {
		return batch.Skipped, fmt.Errorf("export %s: %w", item.Stem, err)
	}
	if err := rec.Append(item.Stem); err != nil {
		return batch.Skipped, err
	}

	o.logger.WithFields(logrus.Fields{
		"stem": item.Stem,
		"repr": o.cfg.Repr,
	}).Debug("Exported")
	return batch.Completed, nil
}

// exportPDG exports per-function fragments into <out>/<stem>/ and folds them
// into target. The fragment directory is removed only once target is durable.
func (o *Orchestrator) exportPDG(ctx context.Context, item batch.Item, target string) error {
	fragDir := filepath.Join(o.cfg.OutputDir, item.Stem)
	if fsutil.Exists(fragDir) {
		o.logger.WithField("dir", fragDir).Debug("Clearing stale fragment directory")
		if err := os.RemoveAll(fragDir); err != nil {
			return fmt.Errorf("failed to clear fragment directory: %w", err)
		}
	}

	if err := o.tool.Export(ctx, item.Path, ReprPDG, fragDir); err != nil {
		return err
	}

	fragments, err := LoadFragments(fragDir)
	if err != nil {
		return err
	}

	var data []byte
	switch len(fragments) {
	case 0:
		return ErrNoFragments
	case 1:
		data = fragments[0].Data
	default:
		if data, err = MergeFragments(item.Stem, fragments); err != nil {
			return err
		}
	}

	if err := fsutil.WriteFileAtomic(target, data, 0644); err != nil {
		return err
	}
	if err := os.RemoveAll(fragDir); err != nil {
		o.logger.WithField("dir", fragDir).WithError(err).Warn("Failed to remove fragment directory")
	}
	return nil
}

func (o *Orchestrator) exportLineInfo(ctx context.Context, item batch.Item, target string) error {
	params := map[string]string{
		"cpgFile": item.Path,
		"outFile": target,
	}
	if err := o.tool.RunScript(ctx, o.cfg.ScriptPath, params); err != nil {
		return err
	}
	if !fsutil.Exists(target) {
		return fmt.Errorf("script produced no output at %s", target)
	}
	return nil
}

// ParseAll parses every source file in inputDir that is not yet complete.
func (o *Orchestrator) ParseAll(ctx context.Context, inputDir string) (*batch.Stats, error) {
	rec, err := o.record(ParseRecordName)
	if err != nil {
		return nil, err
	}
	items, err := batch.Discover(inputDir, o.cfg.SourcePattern, false)
	if err != nil {
		return nil, err
	}

	return o.coord.Run(ctx, batch.Job{
		Stage: StageParse,
		Items: items,
		Done: func(stem string) bool {
			return o.done(rec, stem, o.binaryPath(stem))
		},
		Process: func(ctx context.Context, item batch.Item) error {
			_, err := o.ParseOne(ctx, item)
			return err
		},
	})
}

// ExportAll exports every binary graph in inputDir that is not yet complete.
func (o *Orchestrator) ExportAll(ctx context.Context, inputDir string) (*batch.Stats, error) {
	rec, err := o.record(ExportRecordFor(o.cfg.Repr))
	if err != nil {
		return nil, err
	}
	items, err := batch.Discover(inputDir, o.cfg.BinaryPattern, false)
	if err != nil {
		return nil, err
	}

	return o.coord.Run(ctx, batch.Job{
		Stage: StageExport,
		Items: items,
		Done: func(stem string) bool {
			return o.done(rec, stem, o.exportPath(stem))
		},
		Process: func(ctx context.Context, item batch.Item) error {
			_, err := o.ExportOne(ctx, item)
			return err
		},
	})
}
