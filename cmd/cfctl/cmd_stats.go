package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise every stored result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := app.Statistics.Compute(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if statsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Fprintf(out, "Respondents:   %d\n", st.TotalRespondents)
		fmt.Fprintf(out, "High cases:    %d\n", st.HighAddictionCases)
		fmt.Fprintf(out, "Average CF%%:   %.2f (median %.2f, stddev %.2f)\n", st.AverageAddictionLevel, st.MedianPercentage, st.StdDevPercentage)
		lv := st.AddictionLevels
		fmt.Fprintf(out, "Levels:        %d / %d / %d / %d / %d (very low .. very high)\n", lv.VeryLow, lv.Low, lv.Medium, lv.High, lv.VeryHigh)
		fmt.Fprintf(out, "Gender:        %d male, %d female\n", st.ByGender.Male, st.ByGender.Female)
		for _, h := range st.ByHypothesis {
			fmt.Fprintf(out, "  %-4s %-24s %d\n", h.Code, h.Name, h.Count)
		}
		for _, p := range st.ByProgramStudi {
			fmt.Fprintf(out, "  %-29s %d\n", p.ProgramStudi, p.Count)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print as JSON")
}
