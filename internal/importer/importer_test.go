package importer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/wpsync/internal/content"
	"github.com/bilgisen/wpsync/internal/models"
	"github.com/bilgisen/wpsync/internal/settings"
	"github.com/bilgisen/wpsync/internal/storage"
	"github.com/bilgisen/wpsync/internal/wordpress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource serves a fixed list of posts page by page.
type pagedSource struct {
	mu      sync.Mutex
	posts   []models.Post
	queries []wordpress.PostQuery
	failAt  int
}

func (s *pagedSource) GetPosts(ctx context.Context, q wordpress.PostQuery) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.failAt > 0 && q.Page == s.failAt {
		return nil, fmt.Errorf("%w: connection reset", wordpress.ErrUnreachable)
	}
	start := (q.Page - 1) * q.PerPage
	if start >= len(s.posts) {
		if q.Page > 1 {
			return nil, &wordpress.Error{StatusCode: http.StatusBadRequest, Code: "rest_post_invalid_page_number"}
		}
		return nil, nil
	}
	end := start + q.PerPage
	if end > len(s.posts) {
		end = len(s.posts)
	}
	return s.posts[start:end], nil
}

type fakeRemote struct {
	next int
}

func (r *fakeRemote) CreatePost(ctx context.Context, p wordpress.PostPayload) (*models.Post, error) {
	r.next++
	return &models.Post{ID: 1000 + r.next, Status: p.Status}, nil
}

func (r *fakeRemote) UpdatePost(ctx context.Context, id int, p wordpress.PostPayload) (*models.Post, error) {
	return &models.Post{ID: id, Status: p.Status}, nil
}

func (r *fakeRemote) DeletePost(ctx context.Context, id int, force bool) error {
	return nil
}

func makePosts(n int) []models.Post {
	posts := make([]models.Post, n)
	for i := range posts {
		posts[i] = models.Post{
			ID:      i + 1,
			Title:   models.Rendered{Rendered: fmt.Sprintf("Bài viết %d", i+1)},
			Excerpt: models.Rendered{Rendered: "<p>Tóm tắt</p>"},
			Status:  "publish",
			Date:    "2026-10-01T08:00:00",
		}
	}
	return posts
}

type fixture struct {
	svc      *Service
	src      *pagedSource
	news     *content.News
	settings *settings.Store
}

func newFixture(t *testing.T, src *pagedSource, pageSize int, now time.Time) *fixture {
	t.Helper()
	kv, err := storage.NewFile(t.TempDir())
	require.NoError(t, err)
	st := settings.NewStore(kv, settings.Defaults(time.Hour))
	news := content.NewNews(content.Deps{KV: kv, Settings: st, Remote: &fakeRemote{}}, nil)
	require.NoError(t, news.Load(context.Background()))

	return &fixture{
		svc: New(Options{
			Source:   src,
			News:     news,
			Settings: st,
			KV:       kv,
			PageSize: pageSize,
			Now:      func() time.Time { return now },
		}),
		src:      src,
		news:     news,
		settings: st,
	}
}

func TestImportAllFollowsPagination(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, &pagedSource{posts: makePosts(5)}, 2, now)

	rep, err := f.svc.ImportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Fetched)
	assert.Equal(t, 5, rep.Imported)
	assert.Len(t, f.src.queries, 3, "short third page ends the run")
	assert.Equal(t, 5, f.news.Len())

	st := f.svc.Stats(ctx)
	assert.Equal(t, 5, st.Imported)
	assert.True(t, now.Equal(st.LastImport))

	// A second run updates instead of duplicating.
	rep, err = f.svc.ImportAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Updated)
	assert.Equal(t, 5, f.news.Len())
	assert.Equal(t, 5, f.svc.Stats(ctx).Updated)
}

func TestImportAllStopsOnInvalidPageNumber(t *testing.T) {
	f := newFixture(t, &pagedSource{posts: makePosts(4)}, 2, time.Now())

	rep, err := f.svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Imported)
	assert.Len(t, f.src.queries, 3)
}

func TestImportFailureKeepsPartialCountsAndLastImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &pagedSource{posts: makePosts(6), failAt: 2}, 2, time.Now())

	rep, err := f.svc.ImportAll(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, wordpress.ErrUnreachable))
	assert.Equal(t, 2, rep.Imported)

	st := f.svc.Stats(ctx)
	assert.Equal(t, 2, st.Imported)
	assert.True(t, st.LastImport.IsZero(), "failed run does not move the import watermark")
}

func TestImportRecentDefaultsToLastDay(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, &pagedSource{posts: makePosts(1)}, 10, now)

	_, err := f.svc.ImportRecent(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, f.src.queries, 1)
	q := f.src.queries[0]
	assert.True(t, now.Add(-24*time.Hour).Equal(q.ModifiedAfter))
	assert.Equal(t, "modified", q.OrderBy)
}

func TestResetStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &pagedSource{posts: makePosts(3)}, 10, time.Now())

	_, err := f.svc.ImportAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, f.svc.Stats(ctx).Imported)

	require.NoError(t, f.svc.ResetStats(ctx))
	assert.Equal(t, Stats{}, f.svc.Stats(ctx))
}

func TestSyncBidirectionalRequiresSwitch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &pagedSource{}, 10, time.Now())

	_, err := f.svc.SyncBidirectional(ctx)
	assert.ErrorIs(t, err, ErrBidirectionalDisabled)
	assert.Empty(t, f.src.queries)
}

func TestSyncBidirectionalPullsThenPushes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &pagedSource{posts: makePosts(2)}, 10, time.Now())
	_, err := f.settings.Update(ctx, func(s *settings.Settings) { s.Bidirectional = true })
	require.NoError(t, err)

	local, err := f.news.Add(ctx, models.NewsItem{Title: "Tin nội bộ", Status: models.StatusPublished})
	require.NoError(t, err)
	require.Nil(t, local.WPID)

	rep, err := f.svc.SyncBidirectional(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Pulled.Imported)
	assert.Equal(t, 1, rep.Pushed.Pushed)

	got, ok := f.news.GetByID(local.ID)
	require.True(t, ok)
	require.NotNil(t, got.WPID)
	assert.Equal(t, 1001, *got.WPID)
}

func TestExportPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &pagedSource{}, 10, time.Now())

	item, err := f.news.Add(ctx, models.NewsItem{Title: "Xuất bản", Status: models.StatusDraft})
	require.NoError(t, err)

	exported, err := f.svc.ExportPost(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, exported.WPID)

	_, err = f.svc.ExportPost(ctx, 999)
	assert.ErrorIs(t, err, content.ErrNotFound)
}
