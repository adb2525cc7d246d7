package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/langbridge/autocomplete"
	"github.com/lexcodex/langbridge/bridge"
)

func newCompleteCmd() *cobra.Command {
	var file, prefix, wordPrefix string
	var line, column int
	var manual bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Print python completions at a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPython(cmd.Context(), timeout, func(ctx context.Context, controller *bridge.PythonController) error {
				src, contents, err := readSource(file)
				if err != nil {
					return err
				}
				result := controller.Provider.GetSuggestions(ctx, autocomplete.Request{
					File:              src,
					Contents:          contents,
					Line:              line,
					Column:            column,
					Prefix:            prefix,
					WordPrefix:        wordPrefix,
					ActivatedManually: manual,
				})
				if result.Status == autocomplete.StatusDegraded {
					fmt.Fprintf(cmd.ErrOrStderr(), "completion degraded: %v\n", result.Err)
				}
				return writeJSON(cmd, result.Suggestions)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Python source file")
	cmd.Flags().IntVar(&line, "line", 0, "Zero-based line")
	cmd.Flags().IntVar(&column, "column", 0, "Zero-based column")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Completion prefix typed so far")
	cmd.Flags().StringVar(&wordPrefix, "word-prefix", "", "Word before the cursor, used when prefix is empty")
	cmd.Flags().BoolVar(&manual, "manual", true, "Treat the request as manually activated")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDefinitionsCmd() *cobra.Command {
	var file string
	var line, column int
	var references bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "Print python definitions (or references) of the symbol at a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPython(cmd.Context(), timeout, func(ctx context.Context, controller *bridge.PythonController) error {
				src, contents, err := readSource(file)
				if err != nil {
					return err
				}
				if references {
					refs, err := controller.Manager.GetReferences(ctx, src, contents, line, column)
					if err != nil {
						return err
					}
					return writeJSON(cmd, refs)
				}
				defs, err := controller.Manager.GetDefinitions(ctx, src, contents, line, column)
				if err != nil {
					return err
				}
				return writeJSON(cmd, defs)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Python source file")
	cmd.Flags().IntVar(&line, "line", 0, "Zero-based line")
	cmd.Flags().IntVar(&column, "column", 0, "Zero-based column")
	cmd.Flags().BoolVar(&references, "references", false, "List references instead of definitions")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func withPython(parent context.Context, timeout time.Duration, fn func(context.Context, *bridge.PythonController) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	pkg := bridge.NewPythonPackage(s.env)
	if err := pkg.Activate(ctx); err != nil {
		return err
	}
	defer func() { _ = pkg.Deactivate(context.Background()) }()
	return fn(ctx, pkg.Controller().(*bridge.PythonController))
}

func readSource(file string) (string, string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", err
	}
	return abs, string(data), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
