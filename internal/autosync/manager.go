// Package autosync pulls recently modified WordPress posts on a schedule and
// hands them to the content collections.
package autosync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/rs/zerolog"
)

// DefaultLookback is how far back the first run looks.
const DefaultLookback = 24 * time.Hour

// ErrInvalidInterval rejects intervals below the persisted resolution of one
// millisecond.
var ErrInvalidInterval = errors.New("autosync: interval must be at least 1ms")

// Fetcher returns posts modified after since.
type Fetcher interface {
	FetchModifiedSince(ctx context.Context, since time.Time) ([]models.Post, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, since time.Time) ([]models.Post, error)

func (f FetcherFunc) FetchModifiedSince(ctx context.Context, since time.Time) ([]models.Post, error) {
	return f(ctx, since)
}

// Listener receives every non-empty batch of pulled posts. An error keeps the
// sync window where it was so the batch is pulled again on the next run.
type Listener func(ctx context.Context, posts []models.Post) error

// Config is the schedule as seen by callers.
type Config struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
	LastSync time.Time     `json:"lastSync"`
}

// Patch changes part of the config. Nil fields are left alone.
type Patch struct {
	Enabled  *bool
	Interval *time.Duration
}

// Result describes one sync run.
type Result struct {
	Skipped bool      `json:"skipped"`
	Since   time.Time `json:"since"`
	Posts   int       `json:"posts"`
	At      time.Time `json:"at"`
}

// Status is a snapshot for the admin API.
type Status struct {
	Config
	Running  bool `json:"running"`
	InFlight bool `json:"inFlight"`
}

// Options configures a Manager.
type Options struct {
	Settings *settings.Store
	Fetcher  Fetcher
	Lookback time.Duration
	Now      func() time.Time
}

// Manager runs the recurring pull. One instance is created at startup and
// passed to whoever needs it. At most one run is in flight; triggers that
// arrive meanwhile are dropped.
type Manager struct {
	settings *settings.Store
	fetcher  Fetcher
	lookback time.Duration
	now      func() time.Time
	log      zerolog.Logger

	inFlight atomic.Bool

	mu        sync.Mutex
	listeners []Listener
	base      context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	interval  time.Duration
}

// New creates a stopped manager.
func New(opts Options) *Manager {
	if opts.Lookback <= 0 {
		opts.Lookback = DefaultLookback
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		settings: opts.Settings,
		fetcher:  opts.Fetcher,
		lookback: opts.Lookback,
		now:      opts.Now,
		log:      logger.For("autosync"),
	}
}

// Subscribe registers l for pulled posts.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Config returns the persisted schedule.
func (m *Manager) Config(ctx context.Context) Config {
	return toConfig(m.settings.Load(ctx).AutoSync)
}

// Status returns the schedule plus runtime state.
func (m *Manager) Status(ctx context.Context) Status {
	m.mu.Lock()
	running := m.cancel != nil
	m.mu.Unlock()
	return Status{
		Config:   m.Config(ctx),
		Running:  running,
		InFlight: m.inFlight.Load(),
	}
}

// Start installs the recurring timer if the schedule is enabled. It does not
// sync immediately. ctx bounds the lifetime of the schedule, including
// restarts triggered later by UpdateConfig.
func (m *Manager) Start(ctx context.Context) {
	cfg := m.Config(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.base = ctx
	if !cfg.Enabled || cfg.Interval <= 0 {
		m.log.Info().Bool("enabled", cfg.Enabled).Msg("Auto-sync not started")
		return
	}
	m.startLocked(cfg.Interval)
}

func (m *Manager) startLocked(interval time.Duration) {
	if m.cancel != nil {
		return
	}
	if interval <= 0 {
		m.log.Warn().Dur("interval", interval).Msg("Auto-sync not started, interval is not positive")
		return
	}
	base := m.base
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.interval = interval

	go m.loop(ctx, interval, done)
	m.log.Info().Dur("interval", interval).Msg("Auto-sync started")
}

// Stop clears the timer and waits for the loop to exit. A run in flight is
// cancelled through its context.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.log.Info().Msg("Auto-sync stopped")
}

// UpdateConfig merges p into the schedule and persists it. Switching the
// schedule on starts the timer, switching it off stops it, and a new interval
// restarts a running timer.
func (m *Manager) UpdateConfig(ctx context.Context, p Patch) (Config, error) {
	if p.Interval != nil && *p.Interval < time.Millisecond {
		return m.Config(ctx), ErrInvalidInterval
	}

	var before settings.AutoSync
	st, err := m.settings.Update(ctx, func(s *settings.Settings) {
		before = s.AutoSync
		if p.Enabled != nil {
			s.AutoSync.Enabled = *p.Enabled
		}
		if p.Interval != nil {
			s.AutoSync.IntervalMS = p.Interval.Milliseconds()
		}
	})
	if err != nil {
		return m.Config(ctx), fmt.Errorf("save auto-sync config: %w", err)
	}
	after := toConfig(st.AutoSync)

	switch {
	case !before.Enabled && after.Enabled:
		m.mu.Lock()
		m.startLocked(after.Interval)
		m.mu.Unlock()
	case before.Enabled && !after.Enabled:
		m.Stop()
	case after.Enabled && before.Interval() != after.Interval:
		m.Stop()
		m.mu.Lock()
		m.startLocked(after.Interval)
		m.mu.Unlock()
	}
	return after, nil
}

// TriggerManualSync runs a sync now. If one is already running the call is
// dropped and reports Skipped. Errors are returned to the caller.
func (m *Manager) TriggerManualSync(ctx context.Context) (Result, error) {
	return m.run(ctx)
}

func (m *Manager) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := m.run(ctx)
			if err != nil {
				// The next tick retries.
				m.log.Error().Err(err).Msg("Scheduled sync failed")
				continue
			}
			if res.Skipped {
				m.log.Debug().Msg("Scheduled sync skipped, previous run still in flight")
			}
		}
	}
}

func (m *Manager) run(ctx context.Context) (Result, error) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	defer m.inFlight.Store(false)

	started := m.now()
	since := m.Config(ctx).LastSync
	if since.IsZero() {
		since = started.Add(-m.lookback)
	}

	posts, err := m.fetcher.FetchModifiedSince(ctx, since)
	if err != nil {
		return Result{Since: since, At: started}, fmt.Errorf("fetch posts modified since %s: %w", since.Format(time.RFC3339), err)
	}

	res := Result{Since: since, Posts: len(posts), At: started}
	if len(posts) == 0 {
		m.log.Debug().Time("since", since).Msg("No remote changes")
		return res, nil
	}

	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	var errs []error
	for _, l := range listeners {
		if err := l(ctx, posts); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return res, fmt.Errorf("apply %d pulled posts: %w", len(posts), err)
	}

	if _, err := m.settings.Update(ctx, func(s *settings.Settings) {
		s.AutoSync.LastSync = started
	}); err != nil {
		return res, fmt.Errorf("save last sync time: %w", err)
	}

	ev := m.log.Info().
		Int("posts", len(posts)).
		Time("since", since)
	if newest, ok := newestModified(posts); ok {
		ev = ev.Time("newest", newest)
	}
	ev.Msg("Pulled remote changes")
	return res, nil
}

func toConfig(a settings.AutoSync) Config {
	return Config{
		Enabled:  a.Enabled,
		Interval: a.Interval(),
		LastSync: a.LastSync,
	}
}

// newestModified returns the latest modification time in posts, skipping
// timestamps that do not parse.
func newestModified(posts []models.Post) (time.Time, bool) {
	var newest time.Time
	for _, p := range posts {
		t, err := p.ModifiedTime()
		if err != nil {
			continue
		}
		if t.After(newest) {
			newest = t
		}
	}
	return newest, !newest.IsZero()
}
