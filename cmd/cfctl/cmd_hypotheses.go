package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var hypothesesCmd = &cobra.Command{
	Use:   "hypotheses",
	Short: "List the diagnostic hypotheses",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCODE\tNAME\tTHRESHOLD")
		for _, h := range app.KB.ListHypotheses() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f-%.2f\n", h.ID, h.Code, h.Name, h.ThresholdMin, h.ThresholdMax)
		}
		return w.Flush()
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions <hypothesis>",
	Short: "Show the questions asked for a hypothesis, in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := resolveHypothesis(args[0])
		if err != nil {
			return err
		}
		questions, err := app.Diagnosis.SelectQuestions(h.ID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s (%d questions)\n", h.Code, h.Name, len(questions))
		for i, q := range questions {
			fmt.Fprintf(out, "%2d. [%s] %s\n", i+1, q.SymptomCode, q.Text)
		}
		fmt.Fprintln(out, "\nScale:")
		for _, opt := range app.KB.CFScale() {
			fmt.Fprintf(out, "  %.1f  %s\n", opt.Value, opt.Label)
		}
		return nil
	},
}
