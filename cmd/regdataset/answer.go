package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/regdataset/internal/app"
	"github.com/hyperifyio/regdataset/internal/export"
)

func newAnswerCmd(o *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "answer [id]",
		Short: "Generate the model response for a record, or every unanswered one with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ValidateLLMConfig(o.cfg); err != nil {
				return err
			}
			if !all && len(args) != 1 {
				return errors.New("answer: a record id or --all is required")
			}
			o.app.Preflight(cmd.Context())
			if all {
				return answerAll(cmd.Context(), o.app, cmd.OutOrStdout())
			}
			r, err := o.app.GenerateAnswer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.LLMResponse)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "answer every record without a response")
	return cmd
}

// answerAll answers every unanswered record, continuing past failures.
func answerAll(ctx context.Context, a *app.App, stdout io.Writer) error {
	records, err := a.ListRecords(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range records {
		if strings.TrimSpace(r.LLMResponse) != "" {
			continue
		}
		if _, err := a.GenerateAnswer(ctx, r.ID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			continue
		}
		fmt.Fprintln(stdout, r.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d records failed to answer", failed)
	}
	return nil
}

func newExportCmd(o *options) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dataset as csv, jsonl or pdf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			write := func(w io.Writer) error { return o.app.Export(cmd.Context(), f, w) }
			if out == "" {
				return write(cmd.OutOrStdout())
			}
			return writeFile(out, write)
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "export format: csv, jsonl or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// writeFile creates path and runs write against it. A failed close is
// reported alongside any write error.
func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	werr := write(file)
	if cerr := file.Close(); cerr != nil {
		return errors.Join(werr, fmt.Errorf("close %s: %w", path, cerr))
	}
	return werr
}
