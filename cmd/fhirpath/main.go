package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/funcs"
	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/types"
)

var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fhirpath",
		Short: "FHIRPath expression engine",
		Long: `fhirpath evaluates and validates FHIRPath expressions against
FHIR resources encoded as JSON.

Examples:
  fhirpath eval "name.given" patient.json
  fhirpath eval "Bundle.entry.resource.ofType(Patient)" bundle.json -o json
  fhirpath validate "name.where(use = 'official').family"
  fhirpath functions`,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newFunctionsCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fhirpath version %s\n", version)
		},
	}
}

func newEvalCmd() *cobra.Command {
	var (
		outputFormat string
		timeout      time.Duration
		variables    []string
	)

	cmd := &cobra.Command{
		Use:   "eval [expression] [file]",
		Short: "Evaluate a FHIRPath expression against a resource",
		Long: `Evaluate a FHIRPath expression against a FHIR resource read from
a JSON file, or from stdin when no file is given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resource, err := readResource(args)
			if err != nil {
				return err
			}

			expr, err := fhirpath.Compile(args[0])
			if err != nil {
				return fmt.Errorf("invalid expression: %w", err)
			}

			opts := []fhirpath.EvalOption{fhirpath.WithTimeout(timeout)}
			for _, v := range variables {
				name, value, found := strings.Cut(v, "=")
				if !found {
					return fmt.Errorf("invalid variable %q, expected name=value", v)
				}
				opts = append(opts, fhirpath.WithVariable(name,
					types.Collection{types.NewString(value)}))
			}

			result, err := expr.EvaluateWithOptions(resource, opts...)
			if err != nil {
				return err
			}
			return printResult(cmd, result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Evaluation timeout")
	cmd.Flags().StringArrayVar(&variables, "var", nil, "Environment variable as name=value (repeatable)")

	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [expression]",
		Short: "Validate a FHIRPath expression",
		Long:  `Parse an expression and report every syntax and semantic problem found.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := fhirpath.Validate(context.Background(), args[0], fhirpath.ValidateOptions{})
			if result.Valid {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
				return nil
			}
			for _, d := range result.Diagnostics {
				fmt.Fprintln(cmd.OutOrStdout(), d.Error())
			}
			return fmt.Errorf("%d problem(s) found", len(result.Diagnostics))
		},
	}
	return cmd
}

func newFunctionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered FHIRPath functions",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range funcs.List() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

func readResource(args []string) ([]byte, error) {
	if len(args) == 2 {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return nil, fmt.Errorf("cannot read resource: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("cannot read resource from stdin: %w", err)
	}
	return data, nil
}

func printResult(cmd *cobra.Command, result fhirpath.Collection, format string) error {
	switch format {
	case "json":
		items := make([]interface{}, 0, len(result))
		for _, v := range result {
			items = append(items, valueToJSON(v))
		}
		out, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	default:
		if result.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "(empty)")
			return nil
		}
		for _, v := range result {
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		}
	}
	return nil
}

func valueToJSON(v fhirpath.Value) interface{} {
	switch val := v.(type) {
	case types.Boolean:
		return val.Bool()
	case types.Integer:
		return val.Value()
	case *types.ObjectValue:
		var obj map[string]interface{}
		if err := json.Unmarshal(val.Data(), &obj); err == nil {
			return obj
		}
		return val.String()
	default:
		return v.String()
	}
}
