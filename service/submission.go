package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/store"
)

var errNotRetryable = errors.New("submission is not retryable")

type candidate struct {
	record store.Record
	// expected is the status the record is claimed from.
	expected store.Status
}

// Submit expires proofs that left their window and submits the state of the
// proofs inside it. Every member of the batch gets its own nonce from a
// contiguous range. It returns once all transactions were broadcast; the
// confirmations are awaited in the background.
func (s *Service) Submit(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	height, err := s.ledger.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	delay := s.cfg.ConfirmationDelay

	var batch []candidate
	for _, r := range s.store.ListByStatus(store.Verified) {
		switch {
		case expired(r.AnnouncedAt, height, delay):
			s.expire(ctx, r, store.Verified, store.ReasonExpired, height)
		case eligible(r.AnnouncedAt, height, delay):
			batch = append(batch, candidate{record: r, expected: store.Verified})
		}
	}
	if s.cfg.MaxSubmitAttempts > 1 {
		for _, r := range s.store.ListByStatus(store.Submitting) {
			if !s.retryable(&r) {
				continue
			}
			switch {
			case expired(r.AnnouncedAt, height, delay):
				s.expire(ctx, r, store.Submitting, store.ReasonSubmitExpired, height)
			case eligible(r.AnnouncedAt, height, delay) && r.Submission.Attempts < s.cfg.MaxSubmitAttempts:
				batch = append(batch, candidate{record: r, expected: store.Submitting})
			}
		}
	}
	if len(batch) == 0 {
		return nil
	}

	base, err := s.nonces.Reserve(ctx, len(batch))
	if err != nil {
		submissionErrorsMetric.WithLabelValues("nonce").Inc()
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	var (
		eg      errgroup.Group
		claimed uint64
	)
	for _, c := range batch {
		nonce := base + claimed
		ok, err := s.store.Update(ctx, c.record.ID, c.expected, store.Submitting, func(r *store.Record) error {
			if c.expected == store.Submitting && !s.retryable(r) {
				return errNotRetryable
			}
			r.Submission.Nonce = nonce
			r.Submission.Attempts++
			r.Submission.TxHash = common.Hash{}
			r.Submission.Broadcast = false
			r.Submission.LastError = ""
			return nil
		})
		switch {
		case errors.Is(err, errNotRetryable):
			continue
		case err != nil:
			logger.Error("failed to claim proof for submission", zap.String("id", c.record.ID), zap.Error(err))
			continue
		case !ok:
			continue
		}
		claimed++
		record := c.record
		eg.Go(func() error {
			s.submit(ctx, record, nonce)
			return nil
		})
	}
	if claimed < uint64(len(batch)) {
		s.nonces.Release(base + claimed)
	}
	logger.Debug("submitting batch", zap.Uint64("height", height), zap.Uint64("base_nonce", base), zap.Uint64("size", claimed))
	return eg.Wait()
}

// retryable reports whether the last attempt of a Submitting record failed
// before the transaction was broadcast.
func (s *Service) retryable(r *store.Record) bool {
	return !r.Submission.Broadcast && r.Submission.LastError != ""
}

func (s *Service) expire(ctx context.Context, r store.Record, from store.Status, reason string, height uint64) {
	logger := logging.FromContext(ctx).With(zap.String("id", r.ID))
	ok, err := s.store.Update(ctx, r.ID, from, store.Failed, func(rec *store.Record) error {
		if from == store.Submitting && !s.retryable(rec) {
			return errNotRetryable
		}
		rec.FailReason = reason
		return nil
	})
	switch {
	case errors.Is(err, errNotRetryable):
		return
	case err != nil:
		logger.Error("failed to expire proof", zap.Error(err))
		return
	case !ok:
		return
	}
	expiredMetric.WithLabelValues(reason).Inc()
	logger.Info("proof left its submission window",
		zap.Uint64("announced_at", r.AnnouncedAt),
		zap.Uint64("height", height),
		zap.String("reason", reason),
	)
}

// submit broadcasts the state commitment of a record claimed for submission.
func (s *Service) submit(ctx context.Context, r store.Record, nonce uint64) {
	logger := logging.FromContext(ctx).With(zap.String("id", r.ID), zap.Uint64("nonce", nonce))

	commitment, err := r.Proof.Commitment()
	if err != nil {
		s.attemptFailed(ctx, r.ID, "commitment", err)
		return
	}

	gas, err := s.ledger.EstimateSubmitGas(ctx, r.ID, commitment)
	if err != nil {
		gasFallbackMetric.Inc()
		logger.Warn("gas estimation failed, using default gas limit", zap.Uint64("gas", s.cfg.DefaultGasLimit), zap.Error(err))
		gas = s.cfg.DefaultGasLimit
	}

	tx, err := s.ledger.SignSubmitState(ctx, r.ID, commitment, s.cfg.txOptions(nonce, gas))
	if err != nil {
		s.nonces.Reset()
		s.attemptFailed(ctx, r.ID, "sign", err)
		return
	}
	txHash := tx.Hash()

	// The hash is persisted before the broadcast so that a restart can always
	// look up the receipt of a transaction that may have reached the ledger.
	ok, err := s.store.Update(ctx, r.ID, store.Submitting, store.Submitting, func(rec *store.Record) error {
		rec.Submission.TxHash = txHash
		return nil
	})
	if err != nil || !ok {
		s.nonces.Reset()
		logger.Error("failed to record signed transaction", zap.Stringer("tx", txHash), zap.Bool("claimed", ok), zap.Error(err))
		return
	}

	if err := s.ledger.SubmitState(ctx, tx); err != nil {
		s.nonces.Reset()
		s.attemptFailed(ctx, r.ID, "broadcast", err)
		return
	}

	_, err = s.store.Update(ctx, r.ID, store.Submitting, store.Submitting, func(rec *store.Record) error {
		rec.Submission.Broadcast = true
		return nil
	})
	if err != nil {
		logger.Error("failed to record broadcast transaction", zap.Stringer("tx", txHash), zap.Error(err))
	}
	logger.Info("submitted state", zap.Stringer("tx", txHash), zap.Stringer("commitment", commitment), zap.Uint64("gas", gas))
	s.watch(ctx, r.ID, txHash)
}

// attemptFailed records a failed submission attempt. The record stays in Submitting.
func (s *Service) attemptFailed(ctx context.Context, id, stage string, cause error) {
	err := fmt.Errorf("%w: %s: %w", ErrSubmission, stage, cause)
	submissionErrorsMetric.WithLabelValues(stage).Inc()
	logging.FromContext(ctx).Error("failed to submit state", zap.String("id", id), zap.Error(err))

	_, uerr := s.store.Update(ctx, id, store.Submitting, store.Submitting, func(rec *store.Record) error {
		rec.Submission.Broadcast = false
		rec.Submission.LastError = err.Error()
		return nil
	})
	if uerr != nil {
		logging.FromContext(ctx).Error("failed to record submission error", zap.String("id", id), zap.Error(uerr))
	}
}

// watch waits in the background for the transaction to be confirmed and
// marks the record as submitted.
func (s *Service) watch(ctx context.Context, id string, txHash common.Hash) {
	logger := logging.FromContext(ctx).With(zap.String("id", id), zap.Stringer("tx", txHash))
	s.watchers.Add(1)
	go func() {
		defer s.watchers.Done()
		block, err := s.ledger.WaitConfirmed(ctx, txHash, s.cfg.Confirmations)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.attemptFailed(ctx, id, "confirmation", err)
			return
		}
		_, err = s.store.Update(ctx, id, store.Submitting, store.Submitted, func(rec *store.Record) error {
			rec.Submission.ConfirmedAt = block
			return nil
		})
		if err != nil {
			logger.Error("failed to record confirmation", zap.Error(err))
			return
		}
		submittedMetric.Inc()
		logger.Info("state confirmed", zap.Uint64("block", block))
	}()
}
