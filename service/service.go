package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/store"
	"github.com/DebRC/Vortex-Layer-1.5/verifier"
)

var (
	// ErrDiscovery means the ledger could not be queried for announcements.
	// The discovery round is abandoned and retried on the next tick.
	ErrDiscovery = errors.New("discovery failed")
	// ErrSubmission means a state commitment could not be submitted.
	ErrSubmission = errors.New("submission failed")
)

// Service drives proofs through their lifecycle.
// Discovery, verification and submission run as independent loops and only
// observe each other through the store.
type Service struct {
	cfg      Config
	store    *store.Store
	ledger   gateway.Gateway
	verifier verifier.Verifier
	clock    clock.Clock
	nonces   *nonceAllocator

	// watchers tracks the goroutines waiting for submission confirmations.
	watchers sync.WaitGroup
}

type newServiceOptionFunc func(*newServiceOptions)

type newServiceOptions struct {
	cfg   Config
	clock clock.Clock
}

func WithConfig(cfg Config) newServiceOptionFunc {
	return func(opts *newServiceOptions) {
		opts.cfg = cfg
	}
}

// WithClock sets the clock driving the loop tickers.
func WithClock(c clock.Clock) newServiceOptionFunc {
	return func(opts *newServiceOptions) {
		opts.clock = c
	}
}

func New(
	st *store.Store,
	ledger gateway.Gateway,
	v verifier.Verifier,
	opts ...newServiceOptionFunc,
) (*Service, error) {
	options := newServiceOptions{
		cfg:   DefaultConfig(),
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		cfg:      options.cfg,
		store:    st,
		ledger:   ledger,
		verifier: v,
		clock:    options.clock,
		nonces:   newNonceAllocator(ledger),
	}, nil
}

// Run recovers work interrupted by a previous shutdown and then runs the
// loops until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("service")
	ctx = logging.NewContext(ctx, logger)
	logger.Info("starting", zap.Inline(s.cfg))

	ctx, cancel := context.WithCancel(ctx)
	defer s.watchers.Wait()
	defer cancel()

	if err := s.recover(ctx); err != nil {
		return fmt.Errorf("recovering: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.loop(ctx, "discovery", s.cfg.FetchInterval, s.Discover)
		return nil
	})
	eg.Go(func() error {
		s.loop(ctx, "verification", s.cfg.VerifyInterval, s.Verify)
		return nil
	})
	eg.Go(func() error {
		s.loop(ctx, "submission", s.cfg.SubmitInterval, s.Submit)
		return nil
	})
	return eg.Wait()
}

func (s *Service) loop(ctx context.Context, name string, interval time.Duration, tick func(context.Context) error) {
	logger := logging.FromContext(ctx).Named(name)
	ctx = logging.NewContext(ctx, logger)
	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("stopped")
			return
		case <-ticker.C:
			tickCtx := logging.NewContext(ctx, logger.With(zap.String("tick", uuid.NewString())))
			if err := tick(tickCtx); err != nil {
				logger.Warn("round failed", zap.Error(err))
			}
			reportStatus(s.store)
		}
	}
}
