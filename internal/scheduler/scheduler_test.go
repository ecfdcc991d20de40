package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/model"
	"CoinDash/internal/recorder"
)

type builderFunc func(ctx context.Context) model.Dashboard

func (f builderFunc) BuildDashboard(ctx context.Context) model.Dashboard { return f(ctx) }

type fakeCatalog struct {
	err error
	n   int
}

func (c *fakeCatalog) Refresh(context.Context) error { return c.err }
func (c *fakeCatalog) Len() int                      { return c.n }

type memRecorder struct {
	mu     sync.Mutex
	events []recorder.RefreshEvent
}

func (m *memRecorder) RecordRefresh(evt *recorder.RefreshEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *evt)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func (m *memRecorder) snapshot() []recorder.RefreshEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recorder.RefreshEvent(nil), m.events...)
}

func TestRefreshNow_PublishesLatest(t *testing.T) {
	rec := &memRecorder{}
	b := builderFunc(func(context.Context) model.Dashboard {
		return model.Dashboard{
			RunID:   "run-1",
			Changes: model.ChangeTable{Rows: make([]model.ChangeMetrics, 9), Failed: 1},
		}
	})
	s := NewScheduler(context.Background(), b, &fakeCatalog{}, rec, time.Second)

	_, ok := s.Latest()
	assert.False(t, ok)

	d, err := s.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", d.RunID)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "run-1", latest.RunID)

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, recorder.KindDashboard, events[0].Kind)
	assert.Equal(t, 9, events[0].Rows)
	assert.Equal(t, 1, events[0].Failed)
	assert.NoError(t, events[0].Err)
}

func TestRefreshNow_NewerPassSupersedes(t *testing.T) {
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	b := builderFunc(func(ctx context.Context) model.Dashboard {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(started)
			<-ctx.Done()
			return model.Dashboard{RunID: "slow"}
		}
		return model.Dashboard{RunID: "fast"}
	})
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), b, &fakeCatalog{}, rec, 5*time.Second)

	errc := make(chan error, 1)
	go func() {
		_, err := s.RefreshNow(context.Background())
		errc <- err
	}()
	<-started

	d, err := s.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fast", d.RunID)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded pass was not cancelled")
	}

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "fast", latest.RunID)
	assert.Len(t, rec.snapshot(), 2)
}

func TestRefreshNow_CallerCancelKeepsLatest(t *testing.T) {
	var calls int
	b := builderFunc(func(ctx context.Context) model.Dashboard {
		calls++
		if calls == 1 {
			return model.Dashboard{RunID: "good", Changes: model.ChangeTable{Rows: make([]model.ChangeMetrics, 5)}}
		}
		<-ctx.Done()
		return model.Dashboard{RunID: "cancelled"}
	})
	rec := &memRecorder{}
	s := NewScheduler(context.Background(), b, &fakeCatalog{}, rec, 5*time.Second)

	_, err := s.RefreshNow(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	d, err := s.RefreshNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSuperseded)
	assert.Equal(t, "cancelled", d.RunID)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "good", latest.RunID)
	assert.Len(t, latest.Changes.Rows, 5)

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.NoError(t, events[0].Err)
	assert.ErrorIs(t, events[1].Err, context.Canceled)
}

func TestRefreshNow_PassTimeout(t *testing.T) {
	b := builderFunc(func(ctx context.Context) model.Dashboard {
		<-ctx.Done()
		return model.Dashboard{RunID: "timed-out"}
	})
	s := NewScheduler(context.Background(), b, &fakeCatalog{}, &memRecorder{}, 20*time.Millisecond)

	d, err := s.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "timed-out", d.RunID)
}

func TestRefreshCatalog_Records(t *testing.T) {
	rec := &memRecorder{}
	cat := &fakeCatalog{n: 42}
	s := NewScheduler(context.Background(), builderFunc(func(context.Context) model.Dashboard {
		return model.Dashboard{}
	}), cat, rec, time.Second)

	require.NoError(t, s.RefreshCatalog(context.Background()))
	cat.err = errors.New("exchange down")
	require.Error(t, s.RefreshCatalog(context.Background()))

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, recorder.KindCatalog, events[0].Kind)
	assert.Equal(t, 42, events[0].Rows)
	assert.NotEmpty(t, events[0].RunID)
	assert.Error(t, events[1].Err)
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), nil, &fakeCatalog{}, &memRecorder{}, 0)
	assert.Equal(t, 45*time.Second, s.PassTimeout)

	require.NoError(t, s.RegisterAll("0 * * * * *", "0 0 */6 * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	err := NewScheduler(context.Background(), nil, &fakeCatalog{}, &memRecorder{}, 0).RegisterAll("bad", "0 0 */6 * * *")
	assert.Error(t, err)
}
