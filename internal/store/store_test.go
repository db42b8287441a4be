package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "accel")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusRunning, run.Status)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "accel", got.FundID)
		assert.Equal(t, model.RunStatusRunning, got.Status)
		assert.Nil(t, got.Result)
		assert.Empty(t, got.Error)
	})

	t.Run("CompleteRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "gc")
		require.NoError(t, err)

		result := &model.RunResult{
			FundID:          "gc",
			Fetched:         40,
			Kept:            12,
			StageDrops:      model.StageDrops{Geography: 20, NoJobs: 8},
			UnmappedSectors: []string{"Quantum Widgets"},
		}
		require.NoError(t, s.CompleteRun(ctx, run.ID, result))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, *result, *got.Result)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, "blume")
		require.NoError(t, err)
		require.NoError(t, s.FailRun(ctx, run.ID, nil, errors.New("upstream fetch failed")))

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		assert.Equal(t, "upstream fetch failed", got.Error)
		assert.Nil(t, got.Result)
	})

	t.Run("UnknownRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "nope")
		assert.True(t, errors.Is(err, ErrRunNotFound))

		err = s.CompleteRun(ctx, "nope", &model.RunResult{})
		assert.True(t, errors.Is(err, ErrRunNotFound))
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		a, err := s.CreateRun(ctx, "accel")
		require.NoError(t, err)
		_, err = s.CreateRun(ctx, "gc")
		require.NoError(t, err)
		require.NoError(t, s.CompleteRun(ctx, a.ID, &model.RunResult{FundID: "accel"}))

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
		require.NoError(t, err)
		require.Len(t, done, 1)
		assert.Equal(t, a.ID, done[0].ID)

		gc, err := s.ListRuns(ctx, RunFilter{FundID: "gc"})
		require.NoError(t, err)
		require.Len(t, gc, 1)
		assert.Equal(t, "gc", gc[0].FundID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
