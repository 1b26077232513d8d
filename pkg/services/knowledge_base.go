package services

import (
	"fmt"
	"strings"

	config "cfdiag-api/configs"
	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"go.uber.org/zap"
)

// TextTemplate is the diagnosis/recommendation pair for one (hypothesis, level).
type TextTemplate struct {
	Diagnosis      string
	Recommendation string
}

type templateKey struct {
	hypothesis int
	level      models.AddictionLevel
}

// KnowledgeBase is the immutable rule data: hypotheses, symptoms, their
// association and the text templates. It is built once and shared by
// reference, so reads need no locking. Hypotheses and symptoms are kept in
// arenas addressed by index; the maps translate public ids to indexes.
type KnowledgeBase struct {
	version    string
	hypotheses []models.Hypothesis
	symptoms   []models.Symptom
	links      [][]int // hypothesis index -> symptom indexes, question order
	requires   [][]int // hypothesis index -> sub-goal hypothesis indexes
	byID       map[int]int
	byCode     map[string]int
	templates  map[templateKey]TextTemplate
}

// NewKnowledgeBase validates a definition and freezes it.
func NewKnowledgeBase(def *config.KnowledgeBaseFile, logger *zap.Logger) (*KnowledgeBase, error) {
	if def == nil {
		return nil, apperrors.ConfigInvalid("knowledge base definition is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	kb := &KnowledgeBase{
		version:   def.Version,
		byID:      make(map[int]int, len(def.Hypotheses)),
		byCode:    make(map[string]int, len(def.Hypotheses)),
		templates: make(map[templateKey]TextTemplate, len(def.Templates)),
	}

	symptomByCode := make(map[string]int, len(def.Symptoms))
	symptomIDs := make(map[int]bool, len(def.Symptoms))
	for _, s := range def.Symptoms {
		code := strings.TrimSpace(s.Code)
		switch {
		case s.ID <= 0:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("symptom %q: id must be positive", code))
		case code == "":
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("symptom %d: code is required", s.ID))
		case symptomIDs[s.ID]:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("duplicate symptom id %d", s.ID))
		case hasKey(symptomByCode, code):
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("duplicate symptom code %s", code))
		case !inUnitInterval(s.CFExpert):
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("symptom %s: cf_expert %v outside [0,1]", code, s.CFExpert))
		}
		symptomIDs[s.ID] = true
		symptomByCode[code] = len(kb.symptoms)
		kb.symptoms = append(kb.symptoms, models.Symptom{
			ID:       s.ID,
			Code:     code,
			Text:     strings.TrimSpace(s.Text),
			CFExpert: s.CFExpert,
		})
	}

	for _, h := range def.Hypotheses {
		code := strings.TrimSpace(h.Code)
		switch {
		case h.ID <= 0:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %q: id must be positive", code))
		case code == "":
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %d: code is required", h.ID))
		case hasKey(kb.byID, h.ID):
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("duplicate hypothesis id %d", h.ID))
		case hasKey(kb.byCode, code):
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("duplicate hypothesis code %s", code))
		case !inUnitInterval(h.ThresholdMin) || !inUnitInterval(h.ThresholdMax) || h.ThresholdMin > h.ThresholdMax:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %s: invalid threshold band [%v, %v]", code, h.ThresholdMin, h.ThresholdMax))
		case len(h.Symptoms) == 0 && len(h.Requires) == 0:
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %s has no symptoms", code))
		}

		idx := len(kb.hypotheses)
		links := make([]int, 0, len(h.Symptoms))
		linked := make(map[int]bool, len(h.Symptoms))
		for _, sc := range h.Symptoms {
			si, ok := symptomByCode[strings.TrimSpace(sc)]
			if !ok {
				return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %s references unknown symptom %s", code, sc))
			}
			if linked[si] {
				return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %s lists symptom %s twice", code, sc))
			}
			linked[si] = true
			links = append(links, si)
		}

		kb.byID[h.ID] = idx
		kb.byCode[code] = idx
		kb.links = append(kb.links, links)
		kb.hypotheses = append(kb.hypotheses, models.Hypothesis{
			ID:           h.ID,
			Code:         code,
			Name:         strings.TrimSpace(h.Name),
			Description:  strings.TrimSpace(h.Description),
			ThresholdMin: h.ThresholdMin,
			ThresholdMax: h.ThresholdMax,
			Requires:     append([]string(nil), h.Requires...),
		})
	}
	if len(kb.hypotheses) == 0 {
		return nil, apperrors.ConfigInvalid("knowledge base has no hypotheses")
	}

	// Sub-goals resolve only after every hypothesis is indexed.
	kb.requires = make([][]int, len(kb.hypotheses))
	for i, h := range kb.hypotheses {
		for _, rc := range h.Requires {
			ri, ok := kb.byCode[strings.TrimSpace(rc)]
			if !ok {
				return nil, apperrors.ConfigInvalid(fmt.Sprintf("hypothesis %s requires unknown hypothesis %s", h.Code, rc))
			}
			kb.requires[i] = append(kb.requires[i], ri)
		}
	}

	for _, t := range def.Templates {
		hi, ok := kb.byCode[strings.TrimSpace(t.Hypothesis)]
		if !ok {
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("template references unknown hypothesis %s", t.Hypothesis))
		}
		level := models.AddictionLevel(strings.TrimSpace(t.Level))
		if !level.Valid() {
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("template for %s has unknown level %q", t.Hypothesis, t.Level))
		}
		key := templateKey{hypothesis: hi, level: level}
		if _, dup := kb.templates[key]; dup {
			return nil, apperrors.ConfigInvalid(fmt.Sprintf("duplicate template for %s/%s", t.Hypothesis, level))
		}
		kb.templates[key] = TextTemplate{
			Diagnosis:      strings.TrimSpace(t.Diagnosis),
			Recommendation: strings.TrimSpace(t.Recommendation),
		}
	}

	// Every goal must resolve without cycles before the base is accepted.
	chainer := NewBackwardChainer(kb)
	for _, h := range kb.hypotheses {
		if _, err := chainer.SelectQuestions(h.ID); err != nil {
			return nil, err
		}
	}

	for i, h := range kb.hypotheses {
		for _, level := range models.AddictionLevels {
			if _, ok := kb.templates[templateKey{hypothesis: i, level: level}]; !ok {
				logger.Warn("knowledge base is missing a text template",
					zap.String("hypothesis", h.Code),
					zap.String("level", string(level)))
			}
		}
	}

	logger.Info("knowledge base loaded",
		zap.String("version", kb.version),
		zap.Int("hypotheses", len(kb.hypotheses)),
		zap.Int("symptoms", len(kb.symptoms)),
		zap.Int("templates", len(kb.templates)))
	return kb, nil
}

// Version returns the definition version string.
func (kb *KnowledgeBase) Version() string { return kb.version }

// ListHypotheses returns all hypotheses in definition order.
func (kb *KnowledgeBase) ListHypotheses() []models.Hypothesis {
	out := make([]models.Hypothesis, len(kb.hypotheses))
	for i, h := range kb.hypotheses {
		h.Requires = append([]string(nil), h.Requires...)
		out[i] = h
	}
	return out
}

// Hypothesis returns a hypothesis by id.
func (kb *KnowledgeBase) Hypothesis(id int) (models.Hypothesis, error) {
	idx, ok := kb.byID[id]
	if !ok {
		return models.Hypothesis{}, apperrors.NotFound("hypothesis", id)
	}
	h := kb.hypotheses[idx]
	h.Requires = append([]string(nil), h.Requires...)
	return h, nil
}

// HypothesisByCode returns a hypothesis by its code.
func (kb *KnowledgeBase) HypothesisByCode(code string) (models.Hypothesis, error) {
	idx, ok := kb.byCode[code]
	if !ok {
		return models.Hypothesis{}, apperrors.NotFound("hypothesis", code)
	}
	return kb.Hypothesis(kb.hypotheses[idx].ID)
}

// Symptoms returns every symptom in definition order.
func (kb *KnowledgeBase) Symptoms() []models.Symptom {
	return append([]models.Symptom(nil), kb.symptoms...)
}

// SymptomsFor returns the symptoms directly associated with a hypothesis, in
// question order.
func (kb *KnowledgeBase) SymptomsFor(hypothesisID int) ([]models.Symptom, error) {
	idx, ok := kb.byID[hypothesisID]
	if !ok {
		return nil, apperrors.NotFound("hypothesis", hypothesisID)
	}
	out := make([]models.Symptom, 0, len(kb.links[idx]))
	for _, si := range kb.links[idx] {
		out = append(out, kb.symptoms[si])
	}
	return out, nil
}

// Template returns the texts for a hypothesis at a level.
func (kb *KnowledgeBase) Template(hypothesisID int, level models.AddictionLevel) (TextTemplate, error) {
	idx, ok := kb.byID[hypothesisID]
	if !ok {
		return TextTemplate{}, apperrors.NotFound("hypothesis", hypothesisID)
	}
	t, ok := kb.templates[templateKey{hypothesis: idx, level: level}]
	if !ok {
		return TextTemplate{}, apperrors.NoTextTemplate(kb.hypotheses[idx].Code, string(level))
	}
	return t, nil
}

// CFScale returns the fixed answer scale.
func (kb *KnowledgeBase) CFScale() []models.CFScaleOption {
	return append([]models.CFScaleOption(nil), models.CFScale...)
}

func hasKey[K comparable, V any](m map[K]V, k K) bool {
	_, ok := m[k]
	return ok
}

func inUnitInterval(v float64) bool {
	return v >= 0 && v <= 1
}
