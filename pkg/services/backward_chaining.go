package services

import (
	"fmt"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"
)

// Selector maps a goal hypothesis to the evidence needed to evaluate it.
// Swapping the implementation changes question selection without touching
// the CF arithmetic.
type Selector interface {
	SelectQuestions(hypothesisID int) ([]models.Symptom, error)
}

// BackwardChainer starts from the chosen goal and walks back to its leaf
// facts. A goal's own symptoms come first, then those of its sub-goals
// depth-first; a symptom reached twice is asked once. With no sub-goals this
// is exactly KnowledgeBase.SymptomsFor.
type BackwardChainer struct {
	kb *KnowledgeBase
}

// NewBackwardChainer creates a selector over kb.
func NewBackwardChainer(kb *KnowledgeBase) *BackwardChainer {
	return &BackwardChainer{kb: kb}
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

// SelectQuestions returns the ordered symptom set for a hypothesis.
func (b *BackwardChainer) SelectQuestions(hypothesisID int) ([]models.Symptom, error) {
	root, ok := b.kb.byID[hypothesisID]
	if !ok {
		return nil, apperrors.NotFound("hypothesis", hypothesisID)
	}

	state := make([]visitState, len(b.kb.hypotheses))
	seen := make(map[int]bool)
	var out []models.Symptom

	var visit func(idx int, path []string) error
	visit = func(idx int, path []string) error {
		code := b.kb.hypotheses[idx].Code
		switch state[idx] {
		case visited:
			return nil
		case visiting:
			return apperrors.ConfigInvalid(fmt.Sprintf("sub-goal cycle: %v -> %s", path, code))
		}
		state[idx] = visiting
		for _, si := range b.kb.links[idx] {
			if seen[si] {
				continue
			}
			seen[si] = true
			out = append(out, b.kb.symptoms[si])
		}
		for _, sub := range b.kb.requires[idx] {
			if err := visit(sub, append(path, code)); err != nil {
				return err
			}
		}
		state[idx] = visited
		return nil
	}

	if err := visit(root, nil); err != nil {
		return nil, err
	}
	return out, nil
}
