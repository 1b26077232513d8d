package services

import (
	"testing"

	config "cfdiag-api/configs"
	"cfdiag-api/pkg/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// defaultKB loads the embedded knowledge base.
func defaultKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	def, err := config.LoadKnowledgeBase("")
	require.NoError(t, err)
	kb, err := NewKnowledgeBase(def, zap.NewNop())
	require.NoError(t, err)
	return kb
}

// exampleKB is a single hypothesis with three symptoms and a full template set.
func exampleKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	def := &config.KnowledgeBaseFile{
		Version: "test",
		Hypotheses: []config.HypothesisEntry{
			{ID: 1, Code: "H1", Name: "Example", ThresholdMin: 0.4, ThresholdMax: 0.6, Symptoms: []string{"S1", "S2", "S3"}},
		},
		Symptoms: []config.SymptomEntry{
			{ID: 1, Code: "S1", Text: "first", CFExpert: 0.8},
			{ID: 2, Code: "S2", Text: "second", CFExpert: 0.6},
			{ID: 3, Code: "S3", Text: "third", CFExpert: 0.9},
		},
	}
	for _, lvl := range models.AddictionLevels {
		def.Templates = append(def.Templates, config.TextTemplateEntry{
			Hypothesis:     "H1",
			Level:          string(lvl),
			Diagnosis:      "diagnosis " + string(lvl),
			Recommendation: "recommendation " + string(lvl),
		})
	}
	kb, err := NewKnowledgeBase(def, zap.NewNop())
	require.NoError(t, err)
	return kb
}

func testSubject() models.SubjectIdentity {
	return models.SubjectIdentity{
		Name:         "Sari Wulandari",
		Age:          21,
		Gender:       models.GenderFemale,
		ProgramStudi: "Sistem Informasi",
		Angkatan:     "2021",
		Domicile:     "Yogyakarta",
	}
}

// fullAnswers answers every selected symptom of a hypothesis with cf.
func fullAnswers(t *testing.T, kb *KnowledgeBase, hypothesisID int, cf float64) []models.Answer {
	t.Helper()
	symptoms, err := NewBackwardChainer(kb).SelectQuestions(hypothesisID)
	require.NoError(t, err)
	answers := make([]models.Answer, 0, len(symptoms))
	for _, s := range symptoms {
		answers = append(answers, models.Answer{SymptomID: s.ID, CFUser: cf})
	}
	return answers
}
