package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/google/uuid"
)

// ResultStore persists diagnosis results. Implementations assign the id and
// timestamp on Create; a record is never modified after that. Failures of the
// underlying storage are reported as STORE_UNAVAILABLE, unknown ids as
// NOT_FOUND.
type ResultStore interface {
	Create(ctx context.Context, result models.DiagnosisResult) (string, error)
	Get(ctx context.Context, id string) (models.DiagnosisResult, error)
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]models.DiagnosisResult, error)
	Close() error
}

// storeClock returns the creation timestamp. Stored times are UTC with
// microsecond precision so every backend round-trips them identically.
func storeClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

var errStoreClosed = errors.New("result store is closed")

func newResultID() string {
	return uuid.NewString()
}

// cloneResult copies the audit slice so callers never share it with the store.
func cloneResult(r models.DiagnosisResult) models.DiagnosisResult {
	r.IdentifiedSymptoms = append([]models.IdentifiedSymptom(nil), r.IdentifiedSymptoms...)
	return r
}

// sortResults orders by creation time, then id, oldest first.
func sortResults(results []models.DiagnosisResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
}

// MemoryResultStore keeps results in a map guarded by a RWMutex.
type MemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]models.DiagnosisResult
	closed  bool
	now     func() time.Time
	newID   func() string
}

// NewMemoryResultStore creates an empty in-process store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[string]models.DiagnosisResult),
		now:     storeClock,
		newID:   newResultID,
	}
}

func (s *MemoryResultStore) Create(ctx context.Context, result models.DiagnosisResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.StoreUnavailable("create", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", apperrors.StoreUnavailable("create", errStoreClosed)
	}

	result = cloneResult(result)
	result.ID = s.newID()
	result.CreatedAt = s.now()
	s.results[result.ID] = result
	return result.ID, nil
}

func (s *MemoryResultStore) Get(ctx context.Context, id string) (models.DiagnosisResult, error) {
	if err := ctx.Err(); err != nil {
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.DiagnosisResult{}, apperrors.StoreUnavailable("get", errStoreClosed)
	}

	r, ok := s.results[id]
	if !ok {
		return models.DiagnosisResult{}, apperrors.NotFound("result", id)
	}
	return cloneResult(r), nil
}

func (s *MemoryResultStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.StoreUnavailable("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.StoreUnavailable("delete", errStoreClosed)
	}

	if _, ok := s.results[id]; !ok {
		return apperrors.NotFound("result", id)
	}
	delete(s.results, id)
	return nil
}

func (s *MemoryResultStore) ListAll(ctx context.Context) ([]models.DiagnosisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.StoreUnavailable("list", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.StoreUnavailable("list", errStoreClosed)
	}

	out := make([]models.DiagnosisResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, cloneResult(r))
	}
	sortResults(out)
	return out, nil
}

func (s *MemoryResultStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
