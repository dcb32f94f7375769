package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/regdataset/internal/app"
	"github.com/hyperifyio/regdataset/internal/dataset"
)

// recordFlags are the editable record fields.
type recordFlags struct {
	question, cfr, fda, response string
}

func (r *recordFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&r.question, "question", "", "question text")
	f.StringVar(&r.cfr, "cfr", "", "CFR search terms")
	f.StringVar(&r.fda, "fda", "", "FDA search terms")
	f.StringVar(&r.response, "response", "", "model response text")
}

// edit returns only the fields given on the command line.
func (r *recordFlags) edit(cmd *cobra.Command) app.Edit {
	var e app.Edit
	f := cmd.Flags()
	if f.Changed("question") {
		e.Question = &r.question
	}
	if f.Changed("cfr") {
		e.CFRSearchTerms = &r.cfr
	}
	if f.Changed("fda") {
		e.FDASearchTerms = &r.fda
	}
	if f.Changed("response") {
		e.LLMResponse = &r.response
	}
	return e
}

func newAddCmd(o *options) *cobra.Command {
	var rf recordFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a record; given search terms are searched immediately",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := o.app.AddRecord(cmd.Context(), rf.edit(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.ID)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List records in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := o.app.ListRecords(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", r.ID, answered(r), oneLine(r.Question, 80))
			}
			return nil
		},
	}
}

func newShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.app.GetRecord(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
}

func newUpdateCmd(o *options) *cobra.Command {
	var rf recordFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a record; changed search terms are searched again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := o.app.UpdateRecord(cmd.Context(), args[0], rf.edit(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), r)
		},
	}
	rf.register(cmd)
	return cmd
}

func newRefreshCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Re-run both searches for a record's current terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := o.app.RefreshEvidence(cmd.Context(), args[0])
			return err
		},
	}
}

func newDeleteCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.app.DeleteRecord(cmd.Context(), args[0])
		},
	}
}

func newEvidenceCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "evidence <terms...>",
		Short: "Print the bounded FDA evidence JSON for search terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), o.app.Evidence(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func answered(r dataset.Record) string {
	if strings.TrimSpace(r.LLMResponse) == "" {
		return "-"
	}
	return "answered"
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
