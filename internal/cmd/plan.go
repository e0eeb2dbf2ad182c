package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/replan/internal/config"
	"github.com/anthropics/replan/internal/env"
	"github.com/anthropics/replan/internal/events"
	"github.com/anthropics/replan/internal/planio"
	"github.com/anthropics/replan/internal/planrun"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	savedPath string
	freshPath string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a parse plan from a saved manifest and a fresh file map",
	Long: `plan runs one planning pass: it loads the saved manifest and the
fresh file map from --saved/--fresh, diffs them against the current
environment, and prints the resulting project -> parser -> [file_id]
plan.`,
	Example: `  replan plan --saved saved.yaml --fresh fresh.yaml
  replan plan --saved saved.yaml --fresh fresh.yaml --format json`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&savedPath, "saved", "", "Path to the saved-manifest YAML snapshot (required)")
	planCmd.Flags().StringVar(&freshPath, "fresh", "", "Path to the fresh-file-map YAML snapshot (required)")
	planCmd.MarkFlagRequired("saved")
	planCmd.MarkFlagRequired("fresh")
}

func runPlan(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load(workDir)
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	format := cfg.Output.Format
	if outputFormat != "" {
		format = outputFormat
	}
	if !config.IsValidFormat(format) {
		return fmt.Errorf("invalid output format %q", format)
	}

	in, err := planio.Load(savedPath)
	if err != nil {
		return fmt.Errorf("loading saved manifest: %w", err)
	}
	fresh, err := planio.Load(freshPath)
	if err != nil {
		return fmt.Errorf("loading fresh file map: %w", err)
	}

	var accessor env.Accessor = env.Process{}
	if static := mergeStaticEnv(cfg.Env.Static, in.Env, fresh.Env); len(static) > 0 {
		accessor = env.Static(static)
	}

	var sink events.Sink = events.NopSink{}
	if verbose {
		sink = events.NewLogSink(nil)
	}

	result, err := planrun.Run(in.Saved, fresh.Fresh, accessor, sink)
	if err != nil {
		return fmt.Errorf("planning run failed: %w", err)
	}

	return printPlanResult(result, format)
}

func printPlanResult(result *planrun.Result, format string) error {
	out := map[string]interface{}{
		"project_parser_files":          result.ProjectParserFiles,
		"deleted_special_override_macro": result.DeletedSpecialOverride,
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	default:
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(out)
	}
}

// mergeStaticEnv layers static env-var overrides, later maps winning:
// config file, then the saved snapshot, then the fresh snapshot — the
// most specific-to-this-run source takes precedence. Returns nil if
// every source is empty, signaling the caller should use the live
// process environment instead.
func mergeStaticEnv(sources ...map[string]string) map[string]string {
	var merged map[string]string
	for _, src := range sources {
		for k, v := range src {
			if merged == nil {
				merged = make(map[string]string)
			}
			merged[k] = v
		}
	}
	return merged
}
