package wordpress

import (
	"context"
	"time"

	"github.com/bilgisen/wpsync/internal/logger"
	"github.com/bilgisen/wpsync/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
)

// PostLister is the read side used by scheduled pulls.
type PostLister interface {
	GetPosts(ctx context.Context, q PostQuery) ([]models.Post, error)
}

// BreakerReader guards a PostLister with a circuit breaker so a dead
// WordPress site is not polled on every tick.
type BreakerReader struct {
	next PostLister
	cb   *gobreaker.CircuitBreaker[[]models.Post]
}

// BreakerSettings tunes the breaker. Zero values use the defaults.
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// NewBreakerReader wraps next. The circuit opens after FailureThreshold
// consecutive failures (default 3) and probes again after OpenTimeout
// (default 2 minutes).
func NewBreakerReader(next PostLister, s BreakerSettings) *BreakerReader {
	if s.Name == "" {
		s.Name = "wordpress-posts"
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 3
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 2 * time.Minute
	}

	log := logger.For("breaker")
	cb := gobreaker.NewCircuitBreaker[[]models.Post](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		// Rejected payloads say nothing about the health of the site.
		IsSuccessful: func(err error) bool {
			return err == nil || IsValidationError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &BreakerReader{next: next, cb: cb}
}

// GetPosts runs the wrapped call through the breaker. While the circuit is
// open it fails fast with gobreaker.ErrOpenState.
func (b *BreakerReader) GetPosts(ctx context.Context, q PostQuery) ([]models.Post, error) {
	return b.cb.Execute(func() ([]models.Post, error) {
		return b.next.GetPosts(ctx, q)
	})
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerReader) State() string {
	return b.cb.State().String()
}
