package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexcodex/langbridge/bridge"
)

func newHackCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "hack",
		Short: "Run Hack language operations",
	}
	cmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	var diagFile string
	diagnostics := &cobra.Command{
		Use:   "diagnostics",
		Short: "Print type-checker diagnostics for a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHack(cmd.Context(), timeout, diagFile, func(ctx context.Context, controller *bridge.HackController, src, contents string) error {
				diags, err := controller.Language.GetDiagnostics(ctx, src, contents)
				if err != nil {
					return err
				}
				return writeJSON(cmd, diags)
			})
		},
	}
	diagnostics.Flags().StringVar(&diagFile, "file", "", "Hack source file")
	_ = diagnostics.MarkFlagRequired("file")

	var fmtFile string
	var start, end int
	format := &cobra.Command{
		Use:   "format",
		Short: "Format a byte range of a file and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHack(cmd.Context(), timeout, fmtFile, func(ctx context.Context, controller *bridge.HackController, src, contents string) error {
				stop := end
				if stop <= 0 {
					stop = len(contents)
				}
				out, err := controller.Language.FormatSource(ctx, contents, start, stop)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	format.Flags().StringVar(&fmtFile, "file", "", "Hack source file")
	format.Flags().IntVar(&start, "start", 0, "Start offset")
	format.Flags().IntVar(&end, "end", 0, "End offset (default end of file)")
	_ = format.MarkFlagRequired("file")

	var typeFile, expr string
	var line, column int
	typ := &cobra.Command{
		Use:   "type",
		Short: "Print the type of an expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHack(cmd.Context(), timeout, typeFile, func(ctx context.Context, controller *bridge.HackController, src, contents string) error {
				t, ok, err := controller.Language.GetType(ctx, src, contents, expr, line, column)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "no type information")
					return nil
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), t)
				return err
			})
		},
	}
	typ.Flags().StringVar(&typeFile, "file", "", "Hack source file")
	typ.Flags().StringVar(&expr, "expr", "", "Expression")
	typ.Flags().IntVar(&line, "line", 1, "One-based line")
	typ.Flags().IntVar(&column, "column", 1, "One-based column")
	_ = typ.MarkFlagRequired("file")

	cmd.AddCommand(diagnostics, format, typ)
	return cmd
}

func withHack(parent context.Context, timeout time.Duration, file string, fn func(context.Context, *bridge.HackController, string, string) error) error {
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

	src, contents, err := readSource(file)
	if err != nil {
		return err
	}
	pkg := bridge.NewHackPackage(s.env, src)
	if err := pkg.Activate(ctx); err != nil {
		return err
	}
	defer func() { _ = pkg.Deactivate(context.Background()) }()
	return fn(ctx, pkg.Controller().(*bridge.HackController), src, contents)
}
