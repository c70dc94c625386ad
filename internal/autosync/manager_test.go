package autosync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettings(t *testing.T) *settings.Store {
	t.Helper()
	kv, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	return settings.NewStore(kv, settings.Defaults(time.Hour))
}

func TestConcurrentManualTriggersMakeOneRoundTrip(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	m := New(Options{
		Settings: newSettings(t),
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			atomic.AddInt32(&calls, 1)
			close(entered)
			<-release
			return nil, nil
		}),
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := m.TriggerManualSync(context.Background())
		assert.NoError(t, err)
		assert.False(t, res.Skipped)
	}()

	<-entered
	assert.True(t, m.Status(context.Background()).InFlight)

	res, err := m.TriggerManualSync(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, m.Status(context.Background()).InFlight)
}

func TestFirstRunLooksBackOneDayAndAdvances(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	var sinces []time.Time
	var received []models.Post

	m := New(Options{
		Settings: newSettings(t),
		Now:      func() time.Time { return now },
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			sinces = append(sinces, since)
			return []models.Post{{ID: 1}, {ID: 2}}, nil
		}),
	})
	m.Subscribe(func(ctx context.Context, posts []models.Post) error {
		received = append(received, posts...)
		return nil
	})

	res, err := m.TriggerManualSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Posts)
	assert.True(t, now.Add(-24*time.Hour).Equal(sinces[0]))
	assert.Len(t, received, 2)
	assert.True(t, now.Equal(m.Config(ctx).LastSync))

	now = now.Add(time.Hour)
	_, err = m.TriggerManualSync(ctx)
	require.NoError(t, err)
	assert.True(t, now.Add(-time.Hour).Equal(sinces[1]), "second run starts at the previous sync time")
}

func TestEmptyPullDoesNotBroadcastOrAdvance(t *testing.T) {
	ctx := context.Background()
	called := false
	m := New(Options{
		Settings: newSettings(t),
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return nil, nil
		}),
	})
	m.Subscribe(func(ctx context.Context, posts []models.Post) error {
		called = true
		return nil
	})

	_, err := m.TriggerManualSync(ctx)
	require.NoError(t, err)
	assert.False(t, called)
	assert.True(t, m.Config(ctx).LastSync.IsZero())
}

func TestManualSyncErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("wordpress down")
	m := New(Options{
		Settings: newSettings(t),
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return nil, boom
		}),
	})

	_, err := m.TriggerManualSync(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, m.Config(ctx).LastSync.IsZero())
	assert.False(t, m.Status(ctx).InFlight)
}

func TestScheduledFailuresDoNotStopSchedule(t *testing.T) {
	ctx := context.Background()
	var calls int32
	store := newSettings(t)
	m := New(Options{
		Settings: store,
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return nil, errors.New("first tick fails")
			}
			return []models.Post{{ID: 9}}, nil
		}),
	})

	interval := 20 * time.Millisecond
	enabled := true
	_, err := m.UpdateConfig(ctx, Patch{Enabled: &enabled, Interval: &interval})
	require.NoError(t, err)
	defer m.Stop()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return !m.Config(ctx).LastSync.IsZero()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartDoesNotSyncImmediately(t *testing.T) {
	ctx := context.Background()
	var calls int32
	store := newSettings(t)
	_, err := store.Update(ctx, func(s *settings.Settings) {
		s.AutoSync.Enabled = true
		s.AutoSync.IntervalMS = time.Hour.Milliseconds()
	})
	require.NoError(t, err)

	m := New(Options{
		Settings: store,
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			atomic.AddInt32(&calls, 1)
			return nil, nil
		}),
	})
	m.Start(ctx)
	defer m.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.True(t, m.Status(ctx).Running)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestUpdateConfigStartsAndStops(t *testing.T) {
	ctx := context.Background()
	m := New(Options{
		Settings: newSettings(t),
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return nil, nil
		}),
	})
	m.Start(ctx)
	assert.False(t, m.Status(ctx).Running, "disabled by default")

	on, off := true, false
	cfg, err := m.UpdateConfig(ctx, Patch{Enabled: &on})
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.True(t, m.Status(ctx).Running)

	shorter := time.Minute
	cfg, err = m.UpdateConfig(ctx, Patch{Interval: &shorter})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Interval)
	assert.True(t, m.Status(ctx).Running)

	_, err = m.UpdateConfig(ctx, Patch{Enabled: &off})
	require.NoError(t, err)
	assert.False(t, m.Status(ctx).Running)

	zero := time.Duration(0)
	_, err = m.UpdateConfig(ctx, Patch{Interval: &zero})
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestSubMillisecondIntervalIsRejected(t *testing.T) {
	ctx := context.Background()
	m := New(Options{
		Settings: newSettings(t),
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			return nil, nil
		}),
	})
	m.Start(ctx)
	defer m.Stop()

	on := true
	_, err := m.UpdateConfig(ctx, Patch{Enabled: &on})
	require.NoError(t, err)

	tiny := 500 * time.Microsecond
	cfg, err := m.UpdateConfig(ctx, Patch{Interval: &tiny})
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.Equal(t, time.Hour, m.Config(ctx).Interval)
	assert.True(t, m.Status(ctx).Running)

	oneMS := time.Millisecond
	cfg, err = m.UpdateConfig(ctx, Patch{Interval: &oneMS})
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, cfg.Interval)
}

func TestListenerFailureKeepsSyncWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	var sinces []time.Time
	fail := true

	m := New(Options{
		Settings: newSettings(t),
		Now:      func() time.Time { return now },
		Fetcher: FetcherFunc(func(ctx context.Context, since time.Time) ([]models.Post, error) {
			sinces = append(sinces, since)
			return []models.Post{{ID: 5, Modified: "2026-10-18T11:30:00"}}, nil
		}),
	})
	var seen int
	m.Subscribe(func(ctx context.Context, posts []models.Post) error {
		seen++
		return nil
	})
	m.Subscribe(func(ctx context.Context, posts []models.Post) error {
		if fail {
			return errors.New("disk full")
		}
		return nil
	})

	_, err := m.TriggerManualSync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 1, seen, "other listeners still run")
	assert.True(t, m.Config(ctx).LastSync.IsZero())

	fail = false
	now = now.Add(time.Minute)
	_, err = m.TriggerManualSync(ctx)
	require.NoError(t, err)
	require.Len(t, sinces, 2)
	assert.True(t, sinces[0].Equal(sinces[1].Add(-time.Minute)), "failed batch is pulled again from the old window")
	assert.True(t, now.Equal(m.Config(ctx).LastSync))
}

func TestNewestModified(t *testing.T) {
	newest, ok := newestModified([]models.Post{
		{ID: 1, Modified: "2026-10-18T09:00:00"},
		{ID: 2, Modified: "not a date"},
		{ID: 3, Modified: "2026-10-18T11:30:00"},
	})
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 18, 11, 30, 0, 0, time.UTC), newest)

	_, ok = newestModified([]models.Post{{ID: 4}})
	assert.False(t, ok)
}
