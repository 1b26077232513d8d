package services

import (
	"fmt"
	"math"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"
)

// percentPrecision is applied before banding so that values like 0.2*100
// (19.999999999999996) land in the band a human would expect.
const percentPrecision = 1e9

// CombineCF is the MYCIN parallel combination for two non-negative beliefs.
// It is commutative, and 0 is its identity.
func CombineCF(a, b float64) float64 {
	return a + b*(1-a)
}

// CombineAll folds CombineCF over values starting from 0. The result is
// independent of order and clamped to [0,1].
func CombineAll(values []float64) float64 {
	acc := 0.0
	for _, v := range values {
		acc = CombineCF(acc, v)
	}
	return math.Min(1, math.Max(0, acc))
}

// ClassifyLevel maps a percentage in [0,100] to its band. Lower bounds are
// inclusive.
func ClassifyLevel(percentage float64) models.AddictionLevel {
	p := math.Round(percentage*percentPrecision) / percentPrecision
	switch {
	case p < 20:
		return models.LevelVeryLow
	case p < 40:
		return models.LevelLow
	case p < 61:
		return models.LevelMedium
	case p < 81:
		return models.LevelHigh
	default:
		return models.LevelVeryHigh
	}
}

// CertaintyFactorEngine evaluates answers against the symptoms chosen by a
// Selector. It is stateless; the zero ID and CreatedAt on its output are
// filled in by the result store.
type CertaintyFactorEngine struct {
	kb       *KnowledgeBase
	selector Selector
}

// NewCertaintyFactorEngine creates an engine. A nil selector defaults to
// backward chaining over kb.
func NewCertaintyFactorEngine(kb *KnowledgeBase, selector Selector) *CertaintyFactorEngine {
	if selector == nil {
		selector = NewBackwardChainer(kb)
	}
	return &CertaintyFactorEngine{kb: kb, selector: selector}
}

// Evaluate runs one inference. Checks happen in a fixed order: hypothesis,
// subject, answer values, membership, completeness. The first failure wins.
func (e *CertaintyFactorEngine) Evaluate(hypothesisID int, subject models.SubjectIdentity, answers []models.Answer) (models.DiagnosisResult, error) {
	hyp, err := e.kb.Hypothesis(hypothesisID)
	if err != nil {
		return models.DiagnosisResult{}, err
	}
	selected, err := e.selector.SelectQuestions(hypothesisID)
	if err != nil {
		return models.DiagnosisResult{}, err
	}

	subject = subject.Normalize()
	if err := subject.Validate(); err != nil {
		return models.DiagnosisResult{}, err
	}

	inSet := make(map[int]bool, len(selected))
	for _, s := range selected {
		inSet[s.ID] = true
	}

	given := make(map[int]float64, len(answers))
	for _, a := range answers {
		if !models.IsCFScaleValue(a.CFUser) {
			return models.DiagnosisResult{}, apperrors.InvalidInput(
				fmt.Sprintf("answer for symptom %d is not on the CF scale: %v", a.SymptomID, a.CFUser)).
				WithDetail("symptomId", a.SymptomID)
		}
		if _, dup := given[a.SymptomID]; dup {
			return models.DiagnosisResult{}, apperrors.InvalidInput(
				fmt.Sprintf("symptom %d answered more than once", a.SymptomID)).
				WithDetail("symptomId", a.SymptomID)
		}
		given[a.SymptomID] = a.CFUser
	}
	for _, a := range answers {
		if !inSet[a.SymptomID] {
			return models.DiagnosisResult{}, apperrors.UnknownSymptom(a.SymptomID, hyp.Code)
		}
	}

	var missing []string
	for _, s := range selected {
		if _, ok := given[s.ID]; !ok {
			missing = append(missing, s.Code)
		}
	}
	if len(missing) > 0 {
		return models.DiagnosisResult{}, apperrors.IncompleteSubmission(missing)
	}

	audit := make([]models.IdentifiedSymptom, 0, len(selected))
	combined := make([]float64, 0, len(selected))
	for _, s := range selected {
		cfUser := given[s.ID]
		cf := s.CFExpert * cfUser
		audit = append(audit, models.IdentifiedSymptom{
			SymptomID:   s.ID,
			SymptomCode: s.Code,
			SymptomText: s.Text,
			CFExpert:    s.CFExpert,
			CFUser:      cfUser,
			CFCombined:  cf,
		})
		combined = append(combined, cf)
	}

	final := CombineAll(combined)
	percentage := final * 100
	level := ClassifyLevel(percentage)

	tmpl, err := e.kb.Template(hypothesisID, level)
	if err != nil {
		return models.DiagnosisResult{}, err
	}

	return models.DiagnosisResult{
		Subject:            subject,
		HypothesisID:       hyp.ID,
		HypothesisCode:     hyp.Code,
		HypothesisName:     hyp.Name,
		IdentifiedSymptoms: audit,
		CFCombinedFinal:    final,
		CFPercentage:       percentage,
		AddictionLevel:     level,
		Diagnosis:          tmpl.Diagnosis,
		Recommendation:     tmpl.Recommendation,
	}, nil
}
