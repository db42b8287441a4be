package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/portfolio-jobs/internal/model"
	"github.com/sells-group/portfolio-jobs/internal/store"
)

// mockStore implements store.Store for testing. Runs are returned in the
// order given, which callers keep newest first.
type mockStore struct {
	runs    []model.Run
	listErr error
}

var _ store.Store = (*mockStore)(nil) // interface compliance check

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Run
	for _, r := range m.runs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Unused store methods satisfy the interface.
func (m *mockStore) CreateRun(context.Context, string) (*model.Run, error)          { return nil, nil }
func (m *mockStore) CompleteRun(context.Context, string, *model.RunResult) error    { return nil }
func (m *mockStore) FailRun(context.Context, string, *model.RunResult, error) error { return nil }
func (m *mockStore) GetRun(context.Context, string) (*model.Run, error)             { return nil, nil }
func (m *mockStore) Migrate(context.Context) error                                  { return nil }
func (m *mockStore) Close() error                                                   { return nil }

var fixedNow = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func run(fund string, status model.RunStatus, age time.Duration) model.Run {
	return model.Run{FundID: fund, Status: status, CreatedAt: fixedNow.Add(-age)}
}

func TestCollector_Collect(t *testing.T) {
	st := &mockStore{runs: []model.Run{
		run("accel", model.RunStatusFailed, 1*time.Hour),
		run("gc", model.RunStatusComplete, 2*time.Hour),
		run("accel", model.RunStatusComplete, 3*time.Hour),
		run("gc", model.RunStatusFailed, 4*time.Hour),
		run("blume", model.RunStatusRunning, 5*time.Hour),
		run("blume", model.RunStatusFailed, 48*time.Hour), // outside window
	}}
	c := NewCollector(st)
	c.now = func() time.Time { return fixedNow }

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 5, snap.RunsTotal)
	assert.Equal(t, 2, snap.RunsComplete)
	assert.Equal(t, 2, snap.RunsFailed)
	assert.Equal(t, 1, snap.RunsRunning)
	assert.InDelta(t, 0.5, snap.FailRate, 1e-9)
	assert.Equal(t, []string{"accel"}, snap.FailedFunds, "gc recovered; blume's failure is outside the window")
	assert.Equal(t, 24, snap.LookbackHours)
	assert.Equal(t, fixedNow, snap.CollectedAt)
}

func TestCollector_Collect_Empty(t *testing.T) {
	c := NewCollector(&mockStore{})
	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.RunsTotal)
	assert.InDelta(t, 0.0, snap.FailRate, 1e-9)
	assert.Empty(t, snap.FailedFunds)
}

func TestCollector_Collect_StoreError(t *testing.T) {
	c := NewCollector(&mockStore{listErr: errors.New("db down")})
	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}
