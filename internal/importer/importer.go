// Package importer pulls WordPress posts into the local news collection and
// keeps running totals of what it did.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 100
	maxPages        = 200
)

// ErrBidirectionalDisabled is returned by SyncBidirectional when the switch
// is off.
var ErrBidirectionalDisabled = errors.New("importer: bidirectional sync is disabled")

// Source lists remote posts.
type Source interface {
	GetPosts(ctx context.Context, q wordpress.PostQuery) ([]models.Post, error)
}

// Stats are the running totals since the last reset.
type Stats struct {
	Imported   int       `json:"imported"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	LastImport time.Time `json:"lastImport,omitempty"`
}

// Report describes one import run.
type Report struct {
	Fetched  int `json:"fetched"`
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// BidirectionalReport combines the pull and push halves.
type BidirectionalReport struct {
	Pulled Report             `json:"pulled"`
	Pushed content.PushResult `json:"pushed"`
}

// Options configures a Service.
type Options struct {
	Source Source
	News   *content.News
	// Events is optional. Posts linked to an event update that event
	// instead of becoming news.
	Events   *content.Events
	Settings *settings.Store
	KV       storage.KV
	PageSize int
	Now      func() time.Time
}

// Service runs imports. Runs are serialized.
type Service struct {
	source   Source
	news     *content.News
	events   *content.Events
	settings *settings.Store
	kv       storage.KV
	pageSize int
	now      func() time.Time
	log      zerolog.Logger

	mu sync.Mutex
}

// New creates an import service.
func New(opts Options) *Service {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		source:   opts.Source,
		news:     opts.News,
		events:   opts.Events,
		settings: opts.Settings,
		kv:       opts.KV,
		pageSize: opts.PageSize,
		now:      opts.Now,
		log:      logger.For("importer"),
	}
}

// ImportAll pages through every remote post.
func (s *Service) ImportAll(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importPages(ctx, wordpress.PostQuery{OrderBy: "date", Order: "desc"})
}

// ImportRecent imports posts modified after since. A zero since means the
// last 24 hours.
func (s *Service) ImportRecent(ctx context.Context, since time.Time) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importRecent(ctx, since)
}

func (s *Service) importRecent(ctx context.Context, since time.Time) (Report, error) {
	if since.IsZero() {
		since = s.now().Add(-24 * time.Hour)
	}
	return s.importPages(ctx, wordpress.PostQuery{
		OrderBy:       "modified",
		Order:         "desc",
		ModifiedAfter: since,
	})
}

func (s *Service) importPages(ctx context.Context, q wordpress.PostQuery) (Report, error) {
	var rep Report
	started := s.now()
	q.PerPage = s.pageSize

	for page := 1; page <= maxPages; page++ {
		q.Page = page
		posts, err := s.source.GetPosts(ctx, q)
		if err != nil {
			var wpErr *wordpress.Error
			if errors.As(err, &wpErr) && wpErr.Code == "rest_post_invalid_page_number" {
				break
			}
			s.record(ctx, rep, time.Time{})
			return rep, fmt.Errorf("fetch page %d: %w", page, err)
		}
		rep.Fetched += len(posts)

		res, err := content.Distribute(ctx, s.news, s.events, posts)
		if err != nil {
			rep.Failed += len(posts)
			s.log.Error().Err(err).Int("page", page).Msg("Failed to store imported posts")
		} else {
			rep.Imported += res.Imported()
			rep.Updated += res.Updated()
			rep.Skipped += res.News.Skipped + res.Events.Skipped
		}

		if len(posts) < q.PerPage {
			break
		}
	}

	s.record(ctx, rep, started)
	s.log.Info().
		Int("fetched", rep.Fetched).
		Int("imported", rep.Imported).
		Int("updated", rep.Updated).
		Int("failed", rep.Failed).
		Msg("Import finished")
	return rep, nil
}

// Stats returns the persisted totals.
func (s *Service) Stats(ctx context.Context) Stats {
	raw, err := s.kv.Get(ctx, storage.KeyImportStats)
	if err != nil {
		return Stats{}
	}
	var st Stats
	if err := json.Unmarshal(raw, &st); err != nil {
		s.log.Warn().Err(err).Msg("Malformed import stats, starting from zero")
		return Stats{}
	}
	return st
}

// ResetStats zeroes the totals.
func (s *Service) ResetStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveStats(ctx, Stats{})
}

// ExportPost pushes one local news item to WordPress.
func (s *Service) ExportPost(ctx context.Context, id int) (models.NewsItem, error) {
	return s.news.SyncItem(ctx, id)
}

// SyncBidirectional pulls remote changes since the last import and then
// pushes every local item that has no remote counterpart yet.
func (s *Service) SyncBidirectional(ctx context.Context) (BidirectionalReport, error) {
	var rep BidirectionalReport
	if !s.settings.Load(ctx).Bidirectional {
		return rep, ErrBidirectionalDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pulled, err := s.importRecent(ctx, s.Stats(ctx).LastImport)
	rep.Pulled = pulled
	if err != nil {
		return rep, err
	}

	pushed, err := s.news.PushUnsynced(ctx)
	rep.Pushed = pushed
	return rep, err
}

// record adds rep to the totals. A zero at keeps the previous import time.
func (s *Service) record(ctx context.Context, rep Report, at time.Time) {
	st := s.Stats(ctx)
	st.Imported += rep.Imported
	st.Updated += rep.Updated
	st.Failed += rep.Failed
	if !at.IsZero() {
		st.LastImport = at
	}
	if err := s.saveStats(ctx, st); err != nil {
		s.log.Error().Err(err).Msg("Failed to save import stats")
	}
}

func (s *Service) saveStats(ctx context.Context, st Stats) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, storage.KeyImportStats, raw)
}
