package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bluecontainer/openapi-suite-gen/pkg/parser"
)

var validateCmd = &cobra.Command{
	Use:   "validate <spec>",
	Short: "Check that an OpenAPI spec is a compatible 3.0 or 3.1 document",
	Long: `Resolve every reference in the spec and validate it against OpenAPI 3.0,
then 3.1. Prints the matched version, or the reason each version was rejected.
Swagger 2.0 documents are never compatible.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	doc, err := parser.NewResolver().Resolve(cmd.Context(), args[0])
	if err != nil {
		var incompatible *parser.SpecIncompatibleError
		if errors.As(err, &incompatible) {
			fmt.Fprintf(out, "%s: not compatible\n", args[0])
			for _, a := range incompatible.Outcome.Attempts {
				fmt.Fprintf(out, "  %s: %v\n", a.Version, a.Err)
			}
			return errors.New("validation failed")
		}
		return err
	}

	fmt.Fprintf(out, "%s: compatible (%s)\n", args[0], doc.Version)
	if title := doc.Title(); title != "" {
		fmt.Fprintf(out, "  Title: %s\n", title)
	}
	return nil
}
