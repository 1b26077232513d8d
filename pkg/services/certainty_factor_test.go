package services

import (
	"testing"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineCF(t *testing.T) {
	values := []float64{0, 0.2, 0.48, 0.6, 0.81, 1}
	for _, a := range values {
		assert.InDelta(t, a, CombineCF(a, 0), 1e-12, "0 is the identity")
		assert.InDelta(t, 1, CombineCF(a, 1), 1e-12, "1 absorbs")
		for _, b := range values {
			assert.InDelta(t, CombineCF(a, b), CombineCF(b, a), 1e-12, "commutative for %v,%v", a, b)
			c := CombineCF(a, b)
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		}
	}
}

func TestCombineAllOrderIndependent(t *testing.T) {
	forward := []float64{0.48, 0.24, 0, 0.72, 0.1}
	reversed := []float64{0.1, 0.72, 0, 0.24, 0.48}
	assert.InDelta(t, CombineAll(forward), CombineAll(reversed), 1e-12)
	assert.Equal(t, 0.0, CombineAll(nil))
	assert.InDelta(t, 0.6048, CombineAll([]float64{0.48, 0.24, 0}), 1e-12)
}

func TestClassifyLevelBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want models.AddictionLevel
	}{
		{0, models.LevelVeryLow},
		{19.99, models.LevelVeryLow},
		{20, models.LevelLow},
		{0.2 * 100, models.LevelLow},
		{39.999, models.LevelLow},
		{40, models.LevelMedium},
		{60.48, models.LevelMedium},
		{60.999, models.LevelMedium},
		{61, models.LevelHigh},
		{80.99, models.LevelHigh},
		{81, models.LevelVeryHigh},
		{100, models.LevelVeryHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyLevel(tc.pct), "%v%%", tc.pct)
	}
}

func TestEvaluateWorkedExample(t *testing.T) {
	kb := exampleKB(t)
	engine := NewCertaintyFactorEngine(kb, nil)

	result, err := engine.Evaluate(1, testSubject(), []models.Answer{
		{SymptomID: 1, CFUser: 0.6},
		{SymptomID: 2, CFUser: 0.4},
		{SymptomID: 3, CFUser: 0.0},
	})
	require.NoError(t, err)

	require.Len(t, result.IdentifiedSymptoms, 3)
	assert.InDelta(t, 0.48, result.IdentifiedSymptoms[0].CFCombined, 1e-12)
	assert.InDelta(t, 0.24, result.IdentifiedSymptoms[1].CFCombined, 1e-12)
	assert.InDelta(t, 0.0, result.IdentifiedSymptoms[2].CFCombined, 1e-12)
	assert.InDelta(t, 0.6048, result.CFCombinedFinal, 1e-12)
	assert.InDelta(t, 60.48, result.CFPercentage, 1e-9)
	assert.Equal(t, models.LevelMedium, result.AddictionLevel)
	assert.Equal(t, "diagnosis Sedang", result.Diagnosis)
	assert.Equal(t, "recommendation Sedang", result.Recommendation)
	assert.Equal(t, 2, result.IdentifiedCount())
	assert.Empty(t, result.ID)
	assert.True(t, result.CreatedAt.IsZero())
}

func TestEvaluateAuditFollowsKnowledgeBaseOrder(t *testing.T) {
	kb := exampleKB(t)
	result, err := NewCertaintyFactorEngine(kb, nil).Evaluate(1, testSubject(), []models.Answer{
		{SymptomID: 3, CFUser: 0.2},
		{SymptomID: 1, CFUser: 1.0},
		{SymptomID: 2, CFUser: 0.8},
	})
	require.NoError(t, err)
	assert.Equal(t, "S1", result.IdentifiedSymptoms[0].SymptomCode)
	assert.Equal(t, "S2", result.IdentifiedSymptoms[1].SymptomCode)
	assert.Equal(t, "S3", result.IdentifiedSymptoms[2].SymptomCode)
}

func TestEvaluateExtremes(t *testing.T) {
	kb := defaultKB(t)
	engine := NewCertaintyFactorEngine(kb, nil)

	none, err := engine.Evaluate(3, testSubject(), fullAnswers(t, kb, 3, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, none.CFPercentage)
	assert.Equal(t, models.LevelVeryLow, none.AddictionLevel)

	// P3 contains G11 with cf_expert 1.0, so full belief saturates.
	all, err := engine.Evaluate(3, testSubject(), fullAnswers(t, kb, 3, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, all.CFCombinedFinal, 1e-12)
	assert.LessOrEqual(t, all.CFCombinedFinal, 1.0)
	assert.Equal(t, models.LevelVeryHigh, all.AddictionLevel)
}

func TestEvaluateValidationOrder(t *testing.T) {
	kb := exampleKB(t)
	engine := NewCertaintyFactorEngine(kb, nil)
	full := []models.Answer{{SymptomID: 1, CFUser: 0.6}, {SymptomID: 2, CFUser: 0.4}, {SymptomID: 3, CFUser: 0}}

	badSubject := testSubject()
	badSubject.Age = 0

	cases := []struct {
		name     string
		hyp      int
		subject  models.SubjectIdentity
		answers  []models.Answer
		wantCode string
	}{
		{"unknown hypothesis wins over everything", 9, badSubject, nil, apperrors.CodeNotFound},
		{"subject before answers", 1, badSubject, []models.Answer{{SymptomID: 9, CFUser: 0.5}}, apperrors.CodeInvalidInput},
		{"value off the scale", 1, testSubject(), []models.Answer{{SymptomID: 1, CFUser: 0.5}}, apperrors.CodeInvalidInput},
		{"duplicate answer", 1, testSubject(), append(full, models.Answer{SymptomID: 1, CFUser: 0.2}), apperrors.CodeInvalidInput},
		{"symptom outside set", 1, testSubject(), append(full, models.Answer{SymptomID: 9, CFUser: 0.2}), apperrors.CodeUnknownSymptom},
		{"unknown beats incomplete", 1, testSubject(), []models.Answer{{SymptomID: 9, CFUser: 0.2}}, apperrors.CodeUnknownSymptom},
		{"missing answer", 1, testSubject(), full[:2], apperrors.CodeIncompleteSubmission},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Evaluate(tc.hyp, tc.subject, tc.answers)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, apperrors.GetCode(err))
		})
	}
}

func TestEvaluateIncompleteListsMissingCodes(t *testing.T) {
	kb := exampleKB(t)
	_, err := NewCertaintyFactorEngine(kb, nil).Evaluate(1, testSubject(), []models.Answer{{SymptomID: 2, CFUser: 0.4}})
	require.Error(t, err)
	assert.Equal(t, []string{"S1", "S3"}, apperrors.GetDetails(err)["missingSymptoms"])
}

type fixedSelector []models.Symptom

func (f fixedSelector) SelectQuestions(int) ([]models.Symptom, error) { return f, nil }

func TestEvaluateUsesSelector(t *testing.T) {
	kb := exampleKB(t)
	only := fixedSelector{{ID: 2, Code: "S2", CFExpert: 0.6}}
	result, err := NewCertaintyFactorEngine(kb, only).Evaluate(1, testSubject(), []models.Answer{{SymptomID: 2, CFUser: 1}})
	require.NoError(t, err)
	assert.InDelta(t, 60.0, result.CFPercentage, 1e-9)
	assert.Equal(t, models.LevelMedium, result.AddictionLevel)
}
