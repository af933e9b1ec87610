package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/store"
)

// Discover scans the blocks after the discovery cursor for announced proofs
// and records the unknown ones as pending. The cursor only moves forward when
// the whole range was processed.
func (s *Service) Discover(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	height, err := s.ledger.LatestHeight(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	cursor, found, err := s.store.Cursor()
	if err != nil {
		return err
	}
	if !found {
		switch {
		case s.cfg.StartBlock > 0:
			cursor = s.cfg.StartBlock - 1
		case height > 0:
			cursor = height - 1
		}
	}
	if height <= cursor {
		return nil
	}

	from, to := cursor+1, height
	if s.cfg.MaxBlockRange > 0 && to-from+1 > s.cfg.MaxBlockRange {
		to = from + s.cfg.MaxBlockRange - 1
	}

	announcements, err := s.ledger.Announcements(ctx, from, to)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	records := make([]store.Record, 0, len(announcements))
	for _, a := range announcements {
		records = append(records, store.Record{
			ID:          a.ID,
			Status:      store.Pending,
			AnnouncedAt: a.Block,
			Proof:       a.Proof,
		})
	}
	inserted, err := s.store.Ingest(ctx, records, to)
	if err != nil {
		return fmt.Errorf("storing blocks %d-%d: %w", from, to, err)
	}
	for _, r := range inserted {
		discoveredMetric.Inc()
		logger.Info("discovered new proof", zap.String("id", r.ID), zap.Uint64("block", r.AnnouncedAt))
	}
	cursorMetric.Set(float64(to))
	logger.Debug("scanned blocks", zap.Uint64("from", from), zap.Uint64("to", to), zap.Int("announcements", len(announcements)))
	return nil
}
