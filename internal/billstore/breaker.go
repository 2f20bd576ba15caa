package billstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/flateze/flateze/internal/metrics"
	"github.com/flateze/flateze/internal/model"
)

// BreakerConfig tunes the circuit breaker in front of a Store.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultBreakerConfig returns the settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "billstore",
		MaxRequests:  3,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.5,
	}
}

// BreakerStore fails fast once the wrapped store keeps erroring.
// ErrDuplicate is a normal answer and never counts as a failure.
type BreakerStore struct {
	store Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps store with a circuit breaker.
func NewBreakerStore(store Store, cfg BreakerConfig) *BreakerStore {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			recordState(name, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrDuplicate) || errors.Is(err, context.Canceled)
		},
	}
	cb := gobreaker.NewCircuitBreaker(settings)
	recordState(cfg.Name, cb.State())
	return &BreakerStore{store: store, cb: cb}
}

func (s *BreakerStore) FindDuplicate(ctx context.Context, key model.DedupeKey) (*model.Bill, error) {
	res, err := s.execute(ctx, func() (interface{}, error) {
		return s.store.FindDuplicate(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	b, _ := res.(*model.Bill)
	return b, nil
}

func (s *BreakerStore) CreateBill(ctx context.Context, bill model.Bill) (*model.Bill, error) {
	res, err := s.execute(ctx, func() (interface{}, error) {
		return s.store.CreateBill(ctx, bill)
	})
	if err != nil {
		return nil, err
	}
	b, _ := res.(*model.Bill)
	return b, nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (s *BreakerStore) State() string {
	return s.cb.State().String()
}

func (s *BreakerStore) execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("circuit breaker %s: %w", s.cb.Name(), err)
	}
	return res, err
}

func recordState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
}
