package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type storeFactory func(t *testing.T) ResultStore

func storeBackends(t *testing.T) map[string]storeFactory {
	backends := map[string]storeFactory{
		"memory": func(t *testing.T) ResultStore {
			return NewMemoryResultStore()
		},
		"sqlite": func(t *testing.T) ResultStore {
			path := filepath.Join(t.TempDir(), "results.db")
			s, err := OpenSQLiteResultStore(context.Background(), path, zap.NewNop())
			require.NoError(t, err)
			return s
		},
	}

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		backends["postgres"] = func(t *testing.T) ResultStore {
			s, err := OpenPostgresResultStore(context.Background(), url, zap.NewNop())
			require.NoError(t, err)
			_, err = s.db.Exec(`DELETE FROM diagnosis_results`)
			require.NoError(t, err)
			return s
		}
	}
	if url := os.Getenv("TEST_QDRANT_URL"); url != "" {
		backends["qdrant"] = func(t *testing.T) ResultStore {
			collection := "test_results_" + uuid.NewString()[:8]
			s, err := NewQdrantResultStore(context.Background(), url, os.Getenv("TEST_QDRANT_API_KEY"), collection, zap.NewNop())
			require.NoError(t, err)
			return s
		}
	}
	return backends
}

func sampleResult(t *testing.T) models.DiagnosisResult {
	t.Helper()
	kb := exampleKB(t)
	r, err := NewCertaintyFactorEngine(kb, nil).Evaluate(1, testSubject(), []models.Answer{
		{SymptomID: 1, CFUser: 0.6},
		{SymptomID: 2, CFUser: 0.4},
		{SymptomID: 3, CFUser: 0.0},
	})
	require.NoError(t, err)
	return r
}

func TestResultStoreRoundTrip(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			ctx := context.Background()

			before := time.Now().UTC().Add(-time.Second)
			in := sampleResult(t)
			id, err := store.Create(ctx, in)
			require.NoError(t, err)
			require.NotEmpty(t, id)

			got, err := store.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.Equal(t, time.UTC, got.CreatedAt.Location())
			assert.True(t, got.CreatedAt.After(before))
			assert.Equal(t, got.CreatedAt, got.CreatedAt.Truncate(time.Microsecond))

			in.ID = got.ID
			in.CreatedAt = got.CreatedAt
			if diff := cmp.Diff(in, got); diff != "" {
				t.Errorf("stored result differs (-want +got):\n%s", diff)
			}

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, id, all[0].ID)
		})
	}
}

func TestResultStoreDelete(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			ctx := context.Background()

			id, err := store.Create(ctx, sampleResult(t))
			require.NoError(t, err)

			require.NoError(t, store.Delete(ctx, id))

			_, err = store.Get(ctx, id)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, id), apperrors.ErrNotFound)

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestResultStoreUnknownID(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()

			for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
				_, err := store.Get(context.Background(), id)
				assert.ErrorIs(t, err, apperrors.ErrNotFound, id)
			}
		})
	}
}

func TestResultStoreListOrderedByCreation(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			ctx := context.Background()

			base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
			tick := 0
			setClock(t, store, func() time.Time {
				tick++
				return base.Add(time.Duration(10-tick) * time.Minute)
			})

			var ids []string
			for i := 0; i < 3; i++ {
				id, err := store.Create(ctx, sampleResult(t))
				require.NoError(t, err)
				ids = append(ids, id)
			}

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			// Later inserts got earlier timestamps.
			assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
		})
	}
}

// setClock swaps the creation clock of the stores that expose one.
func setClock(t *testing.T, store ResultStore, now func() time.Time) {
	t.Helper()
	switch s := store.(type) {
	case *MemoryResultStore:
		s.now = now
	case *SQLResultStore:
		s.now = now
	case *QdrantResultStore:
		s.now = now
	default:
		t.Fatalf("unexpected store %T", store)
	}
}

func TestResultStoreConcurrentAccess(t *testing.T) {
	for name, open := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			defer store.Close()
			ctx := context.Background()
			result := sampleResult(t)

			const writers = 16
			var (
				mu  sync.Mutex
				ids = make(map[string]bool)
			)
			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < writers; i++ {
				g.Go(func() error {
					id, err := store.Create(gctx, result)
					if err != nil {
						return err
					}
					mu.Lock()
					ids[id] = true
					mu.Unlock()
					_, err = store.ListAll(gctx)
					return err
				})
			}
			require.NoError(t, g.Wait())
			assert.Len(t, ids, writers, "ids must be unique")

			// Delete half concurrently, then check exactly the rest remain.
			var deleted []string
			for id := range ids {
				if len(deleted) == writers/2 {
					break
				}
				deleted = append(deleted, id)
			}
			g, gctx = errgroup.WithContext(ctx)
			for _, id := range deleted {
				g.Go(func() error { return store.Delete(gctx, id) })
			}
			require.NoError(t, g.Wait())

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, writers-len(deleted))
		})
	}
}

func TestMemoryResultStoreIsolation(t *testing.T) {
	store := NewMemoryResultStore()
	ctx := context.Background()
	in := sampleResult(t)

	id, err := store.Create(ctx, in)
	require.NoError(t, err)

	in.IdentifiedSymptoms[0].CFUser = 0.9
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0.6, got.IdentifiedSymptoms[0].CFUser)

	got.IdentifiedSymptoms[0].CFUser = 0.1
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0.6, again.IdentifiedSymptoms[0].CFUser)
}

func TestMemoryResultStoreClosed(t *testing.T) {
	store := NewMemoryResultStore()
	require.NoError(t, store.Close())

	_, err := store.Create(context.Background(), sampleResult(t))
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	_, err = store.ListAll(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestMemoryResultStoreCancelledContext(t *testing.T) {
	store := NewMemoryResultStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, sampleResult(t))
	assert.Equal(t, apperrors.CodeStoreUnavailable, apperrors.GetCode(err))
}

func TestSQLResultStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	ctx := context.Background()

	first, err := OpenSQLiteResultStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := first.Create(ctx, sampleResult(t))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, first.Close())

	second, err := OpenSQLiteResultStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer second.Close()

	all, err := second.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(ids), fmt.Sprintf("results in %s should survive reopen", path))
}

func TestSQLResultStoreClosedIsUnavailable(t *testing.T) {
	store, err := OpenSQLiteResultStore(context.Background(), filepath.Join(t.TempDir(), "r.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.ListAll(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}
