package wordpress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/wpsync/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLister struct {
	calls int
	posts []models.Post
	err   error
}

func (s *stubLister) GetPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	s.calls++
	return s.posts, s.err
}

func TestBreakerPassesResultsThrough(t *testing.T) {
	stub := &stubLister{posts: []models.Post{{ID: 4}}}
	b := NewBreakerReader(stub, BreakerSettings{})

	posts, err := b.GetPosts(context.Background(), PostQuery{})
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubLister{err: ErrUnreachable}
	b := NewBreakerReader(stub, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.GetPosts(context.Background(), PostQuery{})
		assert.ErrorIs(t, err, ErrUnreachable)
	}

	_, err := b.GetPosts(context.Background(), PostQuery{})
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, "open", b.State())
}
