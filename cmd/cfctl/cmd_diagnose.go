package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cfdiag-api/pkg/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// answerFile is the YAML input of "cfctl diagnose". Answers are keyed by
// symptom code.
type answerFile struct {
	Subject models.SubjectIdentity `yaml:"userInfo"`
	Answers map[string]float64     `yaml:"answers"`
}

var diagnoseFlags struct {
	hypothesis string
	input      string
	save       bool
	asJSON     bool
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Evaluate a filled-in questionnaire",
	Long:  "Evaluate the answers in --input against one hypothesis.\nThe result is printed, and stored when --save is set.",
	Args:  cobra.NoArgs,
	RunE:  runDiagnose,
}

func init() {
	f := diagnoseCmd.Flags()
	f.StringVar(&diagnoseFlags.hypothesis, "hypothesis", "", "Hypothesis id or code (required)")
	f.StringVarP(&diagnoseFlags.input, "input", "i", "", "Answers YAML file (required)")
	f.BoolVar(&diagnoseFlags.save, "save", false, "Store the result")
	f.BoolVar(&diagnoseFlags.asJSON, "json", false, "Print the result as JSON")

	_ = diagnoseCmd.MarkFlagRequired("hypothesis")
	_ = diagnoseCmd.MarkFlagRequired("input")
}

func loadAnswerFile(path string) (answerFile, error) {
	var af answerFile
	f, err := os.Open(path)
	if err != nil {
		return af, fmt.Errorf("read answers: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&af); err != nil {
		return af, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return af, nil
}

// toAnswers maps symptom codes to ids. Unknown codes are an input error.
func toAnswers(byCode map[string]float64, symptoms []models.Symptom) ([]models.Answer, error) {
	ids := make(map[string]int, len(symptoms))
	for _, s := range symptoms {
		ids[s.Code] = s.ID
	}
	answers := make([]models.Answer, 0, len(byCode))
	for _, s := range symptoms {
		if cf, ok := byCode[s.Code]; ok {
			answers = append(answers, models.Answer{SymptomID: s.ID, CFUser: cf})
		}
	}
	for code := range byCode {
		if _, ok := ids[code]; !ok {
			return nil, fmt.Errorf("unknown symptom code %q", code)
		}
	}
	return answers, nil
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	h, err := resolveHypothesis(diagnoseFlags.hypothesis)
	if err != nil {
		return err
	}
	af, err := loadAnswerFile(diagnoseFlags.input)
	if err != nil {
		return err
	}
	answers, err := toAnswers(af.Answers, app.KB.Symptoms())
	if err != nil {
		return err
	}

	var result models.DiagnosisResult
	if diagnoseFlags.save {
		result, err = app.Diagnosis.SubmitAnswers(cmd.Context(), h.ID, af.Subject, answers)
	} else {
		result, err = app.Diagnosis.Diagnose(h.ID, af.Subject, answers)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if diagnoseFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printResult(cmd, result)
	return nil
}

func printResult(cmd *cobra.Command, r models.DiagnosisResult) {
	out := cmd.OutOrStdout()
	if r.ID != "" {
		fmt.Fprintf(out, "Result:      %s\n", r.ID)
	}
	fmt.Fprintf(out, "Subject:     %s (%s, %s)\n", r.Subject.Name, r.Subject.ProgramStudi, r.Subject.Angkatan)
	fmt.Fprintf(out, "Hypothesis:  %s %s\n", r.HypothesisCode, r.HypothesisName)
	fmt.Fprintf(out, "CF:          %.4f (%.2f%%)\n", r.CFCombinedFinal, r.CFPercentage)
	fmt.Fprintf(out, "Level:       %s\n", r.AddictionLevel)
	fmt.Fprintf(out, "Identified:  %d of %d symptoms\n", r.IdentifiedCount(), len(r.IdentifiedSymptoms))
	fmt.Fprintf(out, "Diagnosis:   %s\n", r.Diagnosis)
	fmt.Fprintf(out, "Advice:      %s\n", r.Recommendation)
}
