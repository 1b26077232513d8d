package services

import (
	"context"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"go.uber.org/zap"
)

// DiagnosisRecorder receives diagnosis outcomes, typically for metrics.
type DiagnosisRecorder interface {
	RecordDiagnosis(hypothesisCode string, level models.AddictionLevel)
	RecordDiagnosisFailure(code string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDiagnosis(string, models.AddictionLevel) {}
func (nopRecorder) RecordDiagnosisFailure(string)                 {}

// DiagnosisService is the request-facing facade over the knowledge base,
// selector, engine and result store.
type DiagnosisService struct {
	kb       *KnowledgeBase
	selector Selector
	engine   *CertaintyFactorEngine
	store    ResultStore
	recorder DiagnosisRecorder
	logger   *zap.Logger
}

// NewDiagnosisService wires the core components. recorder and logger may be nil.
func NewDiagnosisService(kb *KnowledgeBase, selector Selector, store ResultStore, recorder DiagnosisRecorder, logger *zap.Logger) *DiagnosisService {
	if selector == nil {
		selector = NewBackwardChainer(kb)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosisService{
		kb:       kb,
		selector: selector,
		engine:   NewCertaintyFactorEngine(kb, selector),
		store:    store,
		recorder: recorder,
		logger:   logger,
	}
}

// KnowledgeBase returns the shared knowledge base.
func (s *DiagnosisService) KnowledgeBase() *KnowledgeBase { return s.kb }

// ListHypotheses returns every hypothesis in definition order.
func (s *DiagnosisService) ListHypotheses() []models.Hypothesis {
	return s.kb.ListHypotheses()
}

// SelectQuestions returns the questions to ask for a hypothesis.
func (s *DiagnosisService) SelectQuestions(hypothesisID int) ([]models.Question, error) {
	symptoms, err := s.selector.SelectQuestions(hypothesisID)
	if err != nil {
		return nil, err
	}
	return models.QuestionsFromSymptoms(symptoms), nil
}

// SelectHypothesis confirms a goal choice and reports how many questions it needs.
func (s *DiagnosisService) SelectHypothesis(hypothesisID int) (models.SelectHypothesisResponse, error) {
	h, err := s.kb.Hypothesis(hypothesisID)
	if err != nil {
		return models.SelectHypothesisResponse{}, err
	}
	symptoms, err := s.selector.SelectQuestions(hypothesisID)
	if err != nil {
		return models.SelectHypothesisResponse{}, err
	}
	return models.SelectHypothesisResponse{
		HypothesisID:  h.ID,
		Code:          h.Code,
		Name:          h.Name,
		QuestionCount: len(symptoms),
	}, nil
}

// Diagnose evaluates answers without storing anything.
func (s *DiagnosisService) Diagnose(hypothesisID int, subject models.SubjectIdentity, answers []models.Answer) (models.DiagnosisResult, error) {
	result, err := s.engine.Evaluate(hypothesisID, subject, answers)
	if err != nil {
		s.recorder.RecordDiagnosisFailure(apperrors.GetCode(err))
		return models.DiagnosisResult{}, err
	}
	return result, nil
}

// SubmitAnswers evaluates and persists a diagnosis. Nothing is stored unless
// evaluation succeeds completely.
func (s *DiagnosisService) SubmitAnswers(ctx context.Context, hypothesisID int, subject models.SubjectIdentity, answers []models.Answer) (models.DiagnosisResult, error) {
	result, err := s.Diagnose(hypothesisID, subject, answers)
	if err != nil {
		s.logger.Info("diagnosis rejected",
			zap.Int("hypothesis_id", hypothesisID),
			zap.String("code", apperrors.GetCode(err)),
			zap.Error(err))
		return models.DiagnosisResult{}, err
	}

	id, err := s.store.Create(ctx, result)
	if err != nil {
		s.recorder.RecordDiagnosisFailure(apperrors.GetCode(err))
		s.logger.Error("failed to store diagnosis", zap.String("hypothesis", result.HypothesisCode), zap.Error(err))
		return models.DiagnosisResult{}, err
	}
	result.ID = id

	s.recorder.RecordDiagnosis(result.HypothesisCode, result.AddictionLevel)
	s.logger.Info("diagnosis stored",
		zap.String("result_id", id),
		zap.String("hypothesis", result.HypothesisCode),
		zap.Float64("cf_percentage", result.CFPercentage),
		zap.String("level", string(result.AddictionLevel)))
	return result, nil
}

// GetResult returns a stored result.
func (s *DiagnosisService) GetResult(ctx context.Context, id string) (models.DiagnosisResult, error) {
	return s.store.Get(ctx, id)
}

// DeleteResult permanently removes a stored result.
func (s *DiagnosisService) DeleteResult(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("diagnosis deleted", zap.String("result_id", id))
	return nil
}

// ListResults returns every stored result, oldest first.
func (s *DiagnosisService) ListResults(ctx context.Context) ([]models.DiagnosisResult, error) {
	return s.store.ListAll(ctx)
}
