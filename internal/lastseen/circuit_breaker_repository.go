package lastseen

import (
	"context"
	"fmt"

	"actiontag/internal/config"
	"actiontag/pkg/circuitbreaker"
	"actiontag/pkg/errors"
	"actiontag/pkg/models"
)

const breakerName = "redis-last-seen"

type CircuitBreakerRepository struct {
	repo Repository
	cb   *circuitbreaker.Wrapper
}

func NewCircuitBreakerRepository(repo Repository, cfg config.CircuitBreakerConfig) *CircuitBreakerRepository {
	if !cfg.Enabled {
		return &CircuitBreakerRepository{repo: repo}
	}
	return &CircuitBreakerRepository{
		repo: repo,
		cb:   circuitbreaker.NewWrapper(circuitbreaker.FromSettings(breakerName, cfg)),
	}
}

func (r *CircuitBreakerRepository) Record(ctx context.Context, doc models.Document) error {
	if r.cb == nil {
		return r.repo.Record(ctx, doc)
	}

	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, r.repo.Record(ctx, doc)
	})
	return r.wrap(err)
}

func (r *CircuitBreakerRepository) Get(ctx context.Context) (*Entry, error) {
	if r.cb == nil {
		return r.repo.Get(ctx)
	}

	var entry *Entry
	_, err := r.cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		e, err := r.repo.Get(ctx)
		if errors.IsNotFound(err) {
			// an empty key is not a backend failure
			return nil, nil
		}
		entry = e
		return nil, err
	})
	if err != nil {
		return nil, r.wrap(err)
	}
	if entry == nil {
		return nil, errors.ErrNotFound.WithDetail("key", "last_seen")
	}
	return entry, nil
}

func (r *CircuitBreakerRepository) State() string {
	if r.cb == nil {
		return "disabled"
	}
	return r.cb.State().String()
}

func (r *CircuitBreakerRepository) IsOpen() bool {
	if r.cb == nil {
		return false
	}
	return r.cb.IsOpen()
}

func (r *CircuitBreakerRepository) wrap(err error) error {
	if err != nil && r.cb.IsOpen() {
		return fmt.Errorf("circuit breaker is open for %s: %w", breakerName, err)
	}
	return err
}
