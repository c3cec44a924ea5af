package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bluecontainer/openapi-suite-gen/internal/config"
	"github.com/bluecontainer/openapi-suite-gen/pkg/importer"
	"github.com/bluecontainer/openapi-suite-gen/pkg/suite"
)

var (
	cfg        = &config.Config{}
	configPath string
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Convert an OpenAPI spec into a test suite",
	Long: `Convert an OpenAPI specification into a test suite.

Sections are created from the spec's tags (x-displayName overrides the name)
and x-tagGroups. Operations are placed in the section of their first known
tag, or in "untagged". Sections without cases are dropped.

Side files, next to the spec unless --diagnostics-dir is set:
  - warning/<spec>.txt  data-quality warnings
  - data/<spec>.txt     suite outline (with --save-data)
  - error/<spec>.log    failure detail when the spec is not compatible

Options can also be read from a config file (see init-config); flags win.`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&cfg.SpecPath, "spec", "s", "", "Path or URL to the OpenAPI specification (required)")
	parseCmd.Flags().StringVarP(&cfg.Output, "output", "o", "", "Write the suite to this file (.json, .yaml or .yml)")
	parseCmd.Flags().StringVar(&cfg.DiagnosticsDir, "diagnostics-dir", "", "Root directory for warning/, data/ and error/ logs (default: spec directory)")
	parseCmd.Flags().BoolVar(&cfg.SaveData, "save-data", false, "Write the suite outline to data/<spec>.txt")
	parseCmd.Flags().StringVarP(&cfg.Filter, "filter", "f", "", `CEL expression selecting operations (e.g. verb == "GET" && !deprecated)`)
	parseCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Print every generated case")
	parseCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default: .openapi-suite-gen.yaml if present)")
}

// cliEnv prints progress to stdout. Per-case lines are only shown when
// verbose, or when stdout is a terminal.
type cliEnv struct {
	file    string
	out     io.Writer
	verbose bool
}

func (e *cliEnv) File() string { return e.file }

func (e *cliEnv) Log(message string) {
	if !e.verbose && strings.HasPrefix(message, " ... ") {
		return
	}
	fmt.Fprintln(e.out, message)
}

func loadConfig(cfg *config.Config) error {
	path := configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return err
	}
	if file == nil && configPath != "" {
		return fmt.Errorf("config file not found: %s", configPath)
	}
	config.MergeConfigFile(cfg, file)
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	sel, err := cfg.Selector()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	env := &cliEnv{
		file:    cfg.SpecPath,
		out:     out,
		verbose: cfg.Verbose || term.IsTerminal(int(os.Stdout.Fd())),
	}

	opts := []importer.Option{importer.WithSelector(sel)}
	if cfg.DiagnosticsDir != "" {
		opts = append(opts, importer.WithDiagnosticsDir(cfg.DiagnosticsDir))
	}

	suites, err := importer.NewParser(env, opts...).ParseFile(cmd.Context(), cfg.SaveData)
	if err != nil {
		return fmt.Errorf("not compatible: %w", err)
	}

	fmt.Fprintln(out)
	for _, s := range suites {
		fmt.Fprintf(out, "Suite: %s (%s)\n", s.Name, s.Source)
		for _, sec := range s.Sections {
			fmt.Fprintf(out, "  - %s: %d cases\n", sec.Name, len(sec.Cases))
		}
	}

	if cfg.Output != "" {
		data, err := suite.Marshal(suites, string(cfg.OutputFormat()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", cfg.Output, err)
		}
		fmt.Fprintf(out, "\nWrote %s\n", cfg.Output)
	}

	return nil
}
