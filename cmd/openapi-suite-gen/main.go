package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bluecontainer/openapi-suite-gen/pkg/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

// provider is set by the root command's pre-run hook, once the subcommand
// (and with it the resource mode) is known
var provider *telemetry.Provider

func run() int {
	defer func() {
		if provider == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func startTelemetry(cmd *cobra.Command, _ []string) error {
	p, err := telemetry.InitProviderFromEnv(cmd.Context(), "openapi-suite-gen", version, cmd.Name())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: telemetry disabled: %v\n", err)
		return nil
	}
	provider = p
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "openapi-suite-gen",
	Short: "Generate test suites from OpenAPI specifications",
	Long: `openapi-suite-gen converts an OpenAPI 3.0 or 3.1 document into a test suite
for a test-management import.

The document is fully resolved and validated first. Every documented response
of every operation becomes one test case, grouped into sections by tag:
  - title:          "{VERB} {path} -> {code} ({description})"
  - automation id:  "{path}.{VERB}.{code}"
  - preconditions:  summary, description and external docs
  - steps:          request line, parameters, request body and security
  - expected:       response code and response content

Data-quality warnings are written to warning/<spec>.txt next to the spec.

Example:
  openapi-suite-gen parse --spec api.yaml --output suite.json`,
	Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	PersistentPreRunE: startTelemetry,
	SilenceUsage:      true,
	SilenceErrors:     true,
}
