package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/store"
)

// Verify claims every pending proof and verifies the claimed ones concurrently.
// It returns once the whole batch has been verified.
func (s *Service) Verify(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var eg errgroup.Group
	if s.cfg.MaxConcurrentVerifications > 0 {
		eg.SetLimit(s.cfg.MaxConcurrentVerifications)
	}
	for _, r := range s.store.ListByStatus(store.Pending) {
		claimed, err := s.store.CompareAndSetStatus(ctx, r.ID, store.Pending, store.Verifying)
		if err != nil {
			logger.Error("failed to claim proof for verification", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		r := r
		eg.Go(func() error {
			s.verify(ctx, r)
			return nil
		})
	}
	return eg.Wait()
}

// verify runs the verifier on a record in the Verifying status and records the outcome.
// If the context is canceled the record is left in Verifying and picked up again on restart.
func (s *Service) verify(ctx context.Context, r store.Record) {
	logger := logging.FromContext(ctx).With(zap.String("id", r.ID))

	started := s.clock.Now()
	err := s.verifier.Verify(ctx, &r.Proof)
	verificationLatencyMetric.Observe(s.clock.Since(started).Seconds())

	next := store.Verified
	switch {
	case err != nil && ctx.Err() != nil:
		logger.Info("verification interrupted", zap.Error(err))
		return
	case err != nil:
		next = store.Failed
	}

	_, uerr := s.store.Update(ctx, r.ID, store.Verifying, next, func(rec *store.Record) error {
		if next == store.Failed {
			rec.FailReason = store.ReasonInvalid
		}
		return nil
	})
	if uerr != nil {
		logger.Error("failed to record verification result", zap.Error(uerr))
		return
	}

	if err != nil {
		verifiedMetric.WithLabelValues("invalid").Inc()
		logger.Warn("proof verification failed", zap.Error(err))
		return
	}
	verifiedMetric.WithLabelValues("valid").Inc()
	logger.Info("proof verified", zap.Uint64("announced_at", r.AnnouncedAt))
}
