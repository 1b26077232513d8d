package services

import (
	"context"
	"sort"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/montanaflynn/stats"
)

// StatisticsService derives dashboard statistics from the result store.
// Nothing is cached; every call scans ListAll so concurrent creates and
// deletes are always reflected.
type StatisticsService struct {
	store ResultStore
	kb    *KnowledgeBase
	now   func() time.Time
}

// NewStatisticsService creates the aggregator. kb may be nil, in which case
// per-hypothesis counts only cover hypotheses that have results.
func NewStatisticsService(store ResultStore, kb *KnowledgeBase) *StatisticsService {
	return &StatisticsService{store: store, kb: kb, now: time.Now}
}

// Compute builds the statistics over every stored result.
func (s *StatisticsService) Compute(ctx context.Context) (models.Statistics, error) {
	results, err := s.store.ListAll(ctx)
	if err != nil {
		return models.Statistics{}, err
	}
	return s.Summarize(results)
}

// Summarize aggregates an explicit result set.
func (s *StatisticsService) Summarize(results []models.DiagnosisResult) (models.Statistics, error) {
	out := models.Statistics{
		TotalRespondents: len(results),
		ByProgramStudi:   make([]models.ProgramCount, 0),
		ByHypothesis:     make([]models.HypothesisCount, 0),
		Respondents:      make([]models.RespondentSummary, 0, len(results)),
		GeneratedAt:      s.now().UTC(),
	}

	percentages := make([]float64, 0, len(results))
	programs := make(map[string]int)
	hypothesisIdx := make(map[string]int)

	if s.kb != nil {
		for _, h := range s.kb.ListHypotheses() {
			hypothesisIdx[h.Code] = len(out.ByHypothesis)
			out.ByHypothesis = append(out.ByHypothesis, models.HypothesisCount{Code: h.Code, Name: h.Name})
		}
	}

	for _, r := range results {
		out.AddictionLevels.Add(r.AddictionLevel)
		if r.AddictionLevel.IsHigh() {
			out.HighAddictionCases++
		}

		switch r.Subject.Gender {
		case models.GenderMale:
			out.ByGender.Male++
		case models.GenderFemale:
			out.ByGender.Female++
		default:
			out.ByGender.Other++
		}

		programs[r.Subject.ProgramStudi]++

		i, ok := hypothesisIdx[r.HypothesisCode]
		if !ok {
			i = len(out.ByHypothesis)
			hypothesisIdx[r.HypothesisCode] = i
			out.ByHypothesis = append(out.ByHypothesis, models.HypothesisCount{Code: r.HypothesisCode, Name: r.HypothesisName})
		}
		out.ByHypothesis[i].Count++

		percentages = append(percentages, r.CFCombinedFinal*100)

		out.Respondents = append(out.Respondents, models.RespondentSummary{
			ResultID:       r.ID,
			Name:           r.Subject.Name,
			ProgramStudi:   r.Subject.ProgramStudi,
			Angkatan:       r.Subject.Angkatan,
			Gender:         r.Subject.Gender,
			HypothesisCode: r.HypothesisCode,
			CFPercentage:   r.CFPercentage,
			AddictionLevel: r.AddictionLevel,
			CreatedAt:      r.CreatedAt,
		})
	}

	for name, n := range programs {
		out.ByProgramStudi = append(out.ByProgramStudi, models.ProgramCount{ProgramStudi: name, Count: n})
	}
	sort.Slice(out.ByProgramStudi, func(i, j int) bool {
		a, b := out.ByProgramStudi[i], out.ByProgramStudi[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.ProgramStudi < b.ProgramStudi
	})

	sort.SliceStable(out.Respondents, func(i, j int) bool {
		return out.Respondents[i].CreatedAt.After(out.Respondents[j].CreatedAt)
	})

	// stats returns ErrEmptyInput on no data; the zero values stand.
	if len(percentages) > 0 {
		var err error
		if out.AverageAddictionLevel, err = stats.Mean(percentages); err != nil {
			return models.Statistics{}, apperrors.Wrap(err, "failed to compute mean percentage")
		}
		if out.MedianPercentage, err = stats.Median(percentages); err != nil {
			return models.Statistics{}, apperrors.Wrap(err, "failed to compute median percentage")
		}
		if out.StdDevPercentage, err = stats.StandardDeviationPopulation(percentages); err != nil {
			return models.Statistics{}, apperrors.Wrap(err, "failed to compute percentage deviation")
		}
	}

	return out, nil
}
