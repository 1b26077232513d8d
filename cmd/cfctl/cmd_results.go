package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored diagnosis results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		results, err := app.Diagnosis.ListResults(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tNAME\tHYPOTHESIS\tCF%\tLEVEL")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), r.Subject.Name, r.HypothesisCode, r.CFPercentage, r.AddictionLevel)
		}
		return w.Flush()
	},
}

var resultsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := app.Diagnosis.GetResult(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printResult(cmd, r)
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "\nCODE\tCF EXPERT\tCF USER\tCF COMBINED")
		for _, s := range r.IdentifiedSymptoms {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.4f\n", s.SymptomCode, s.CFExpert, s.CFUser, s.CFCombined)
		}
		return w.Flush()
	},
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Diagnosis.DeleteResult(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsGetCmd)
	resultsCmd.AddCommand(resultsDeleteCmd)
}
