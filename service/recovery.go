package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/store"
)

// errInterrupted marks a submission attempt cut short by a shutdown.
var errInterrupted = errors.New("submission interrupted")

// recover resumes the work a previous run left behind:
//   - proofs claimed for verification are verified again,
//   - signed submissions are reconciled with their receipts,
//   - attempts that never signed a transaction are recorded as failed.
func (s *Service) recover(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("recovery")
	ctx = logging.NewContext(ctx, logger)

	verifying := s.store.ListByStatus(store.Verifying)
	for _, r := range verifying {
		logger.Info("verifying interrupted proof", zap.String("id", r.ID))
		s.verify(ctx, r)
	}

	var result *multierror.Error
	for _, r := range s.store.ListByStatus(store.Submitting) {
		if !r.Submission.Broadcast && r.Submission.TxHash == (common.Hash{}) {
			if r.Submission.LastError == "" {
				s.attemptFailed(ctx, r.ID, "interrupted", errInterrupted)
			}
			continue
		}
		if err := s.reconcile(ctx, r); err != nil {
			result = multierror.Append(result, fmt.Errorf("reconciling proof %s: %w", r.ID, err))
		}
	}
	reportStatus(s.store)
	return result.ErrorOrNil()
}

func (s *Service) reconcile(ctx context.Context, r store.Record) error {
	txHash := r.Submission.TxHash
	logger := logging.FromContext(ctx).With(zap.String("id", r.ID), zap.Stringer("tx", txHash))

	receipt, err := s.ledger.Receipt(ctx, txHash)
	switch {
	case errors.Is(err, gateway.ErrTxNotFound) && r.Submission.Broadcast:
		logger.Info("submission not mined yet, waiting for confirmation")
		s.watch(ctx, r.ID, txHash)
		return nil
	case errors.Is(err, gateway.ErrTxNotFound):
		// Signed but possibly never broadcast. A retry uses a fresh nonce.
		if r.Submission.LastError == "" {
			s.attemptFailed(ctx, r.ID, "interrupted", errInterrupted)
		}
		return nil
	case err != nil:
		return err
	case !receipt.Success:
		logger.Warn("submission reverted", zap.Uint64("block", receipt.Block))
		s.attemptFailed(ctx, r.ID, "confirmation", fmt.Errorf("%w: %s", gateway.ErrReverted, txHash))
		return nil
	}

	_, err = s.store.Update(ctx, r.ID, store.Submitting, store.Submitted, func(rec *store.Record) error {
		rec.Submission.ConfirmedAt = receipt.Block
		return nil
	})
	if err != nil {
		return err
	}
	submittedMetric.Inc()
	logger.Info("submission was mined while offline", zap.Uint64("block", receipt.Block))
	return nil
}
