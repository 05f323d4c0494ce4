package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/cpgimage/internal/batch"
	"github.com/mvp-joe/cpgimage/internal/config"
	"github.com/mvp-joe/cpgimage/internal/joern"
)

var (
	graphInput  string
	graphOutput string
	graphType   string
	graphRepr   string
	joernPath   string
	scriptPath  string
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and export code property graphs with Joern",
	Long: `Graph drives the Joern tools over a directory.

  -t parse   runs joern-parse on every source file, writing <stem>.bin
  -t export  exports every <stem>.bin as a DOT graph (pdg) or, with
             -r lineinfo_json, runs the line-info script to write <stem>.json

Completed stems are remembered in parse_res.txt and export_res.txt
(export_lineinfo_json_res.txt for lineinfo_json) in the output directory,
so an interrupted run resumes where it stopped.`,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphInput, "input", "i", "", "input directory (required)")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "output directory (required)")
	graphCmd.Flags().StringVarP(&graphType, "type", "t", "", "task: parse or export (required)")
	graphCmd.Flags().StringVarP(&graphRepr, "repr", "r", string(joern.ReprPDG), "export representation: pdg or lineinfo_json")
	graphCmd.Flags().StringVarP(&joernPath, "joern", "j", "", "Joern installation directory (or joern.path in config)")
	graphCmd.Flags().StringVar(&scriptPath, "script", "", "line-info export script (or joern.script in config)")
	_ = graphCmd.MarkFlagRequired("input")
	_ = graphCmd.MarkFlagRequired("output")
	_ = graphCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(graphCmd)
}

// graphOptions carries the graph flags after merging with config.
type graphOptions struct {
	Input  string
	Output string
	Task   string
	Repr   string
	Joern  string
	Script string
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := graphOptions{
		Input:  graphInput,
		Output: graphOutput,
		Task:   graphType,
		Repr:   graphRepr,
		Joern:  joernPath,
		Script: scriptPath,
	}

	log := stageLogger(opts.Task)
	coord := newCoordinator(log, cmd.ErrOrStderr())

	stats, err := executeGraph(ctx, opts, cfg, coord, log)
	if err != nil {
		return err
	}
	printStats(cmd.OutOrStdout(), opts.Task, stats)
	return nil
}

// executeGraph validates the options, builds the Joern tool and runs the task.
func executeGraph(ctx context.Context, opts graphOptions, c *config.Config, coord *batch.Coordinator, log logrus.FieldLogger) (*batch.Stats, error) {
	if opts.Task != joern.StageParse && opts.Task != joern.StageExport {
		return nil, fmt.Errorf("unknown task %q (valid: %s, %s)", opts.Task, joern.StageParse, joern.StageExport)
	}
	repr, err := joern.ParseRepr(opts.Repr)
	if err != nil {
		return nil, err
	}

	toolCfg := c.ToolConfig()
	if opts.Joern != "" {
		toolCfg.Dir = opts.Joern
	}
	script := c.Joern.Script
	if opts.Script != "" {
		script = opts.Script
	}

	tool, err := joern.NewCLITool(toolCfg, log)
	if err != nil {
		return nil, err
	}

	orch, err := joern.NewOrchestrator(tool, joern.Config{
		OutputDir:     opts.Output,
		Repr:          repr,
		ScriptPath:    script,
		SourcePattern: c.Pipeline.SourcePattern,
		BinaryPattern: c.Pipeline.BinaryPattern,
	}, coord, log)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"input":  opts.Input,
		"output": opts.Output,
		"repr":   repr,
	}).Info("Starting graph task")

	if opts.Task == joern.StageParse {
		return orch.ParseAll(ctx, opts.Input)
	}
	return orch.ExportAll(ctx, opts.Input)
}
