package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownProof      = errors.New("unknown proof")
)

// Store is the keyed collection of proof lifecycle records shared by the
// discovery, verification and submission loops.
//
// Records are only ever handed out as copies. A record's status changes only
// through CompareAndSetStatus or Update, both of which are atomic with respect
// to each other, so two loops can never claim the same record for the same phase.
// Every mutation is written through to leveldb before it becomes visible.
type Store struct {
	mu      sync.RWMutex
	records map[string]*Record
	db      *database
}

func Open(ctx context.Context, dbdir string) (*Store, error) {
	db, err := newDatabase(filepath.Join(dbdir, "proofs"))
	if err != nil {
		return nil, fmt.Errorf("opening proofs database: %w", err)
	}

	s := &Store{
		records: make(map[string]*Record),
		db:      db,
	}
	err = db.LoadRecords(func(r Record) {
		s.records[r.ID] = &r
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("loading records: %w", err), db.Close())
	}
	logging.FromContext(ctx).Info("proof store opened", zap.String("dir", dbdir), zap.Int("records", len(s.records)))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertIfAbsent inserts the record unless a record with the same ID exists.
// It returns true if the record was inserted.
func (s *Store) UpsertIfAbsent(ctx context.Context, r Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return false, nil
	}
	rec := r.clone()
	if err := s.db.SaveRecord(&rec); err != nil {
		return false, err
	}
	s.records[rec.ID] = &rec
	return true, nil
}

// Ingest inserts the records whose ID is unknown and moves the discovery
// cursor to the given block. Either everything is persisted or nothing is.
// It returns the inserted records.
func (s *Store) Ingest(ctx context.Context, records []Record, cursor uint64) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []*Record
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := s.records[r.ID]; ok {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		rec := r.clone()
		fresh = append(fresh, &rec)
	}
	if err := s.db.SaveRecordsAndCursor(fresh, cursor); err != nil {
		return nil, err
	}

	inserted := make([]Record, 0, len(fresh))
	for _, rec := range fresh {
		s.records[rec.ID] = rec
		inserted = append(inserted, rec.clone())
	}
	logging.FromContext(ctx).Debug("ingested proofs", zap.Int("inserted", len(inserted)), zap.Uint64("cursor", cursor))
	return inserted, nil
}

// ListByStatus returns a snapshot of all records with the given status
// ordered by announcement height and then by ID.
func (s *Store) ListByStatus(status Status) []Record {
	s.mu.RLock()
	var out []Record
	for _, r := range s.records {
		if r.Status == status {
			out = append(out, r.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AnnouncedAt != out[j].AnnouncedAt {
			return out[i].AnnouncedAt < out[j].AnnouncedAt
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

// lessID orders decimal IDs numerically and falls back to lexical order.
func lessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// CompareAndSetStatus atomically moves the record from expected to next.
// It returns false without error when the record is not in the expected status.
func (s *Store) CompareAndSetStatus(ctx context.Context, id string, expected, next Status) (bool, error) {
	return s.Update(ctx, id, expected, next, nil)
}

// Update atomically moves the record from expected to next and applies mutate
// to a copy of the record before it is persisted. Passing next == expected
// keeps the status and only applies the mutation, which terminal records do
// not accept. If mutate returns an error
// nothing is changed and the error is returned.
// ID, AnnouncedAt and Proof are write-once and any change made to them by mutate is discarded.
func (s *Store) Update(
	ctx context.Context,
	id string,
	expected, next Status,
	mutate func(*Record) error,
) (bool, error) {
	if expected == next && expected.Terminal() || expected != next && !CanTransition(expected, next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, expected, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownProof, id)
	}
	if current.Status != expected {
		return false, nil
	}

	updated := current.clone()
	if mutate != nil {
		if err := mutate(&updated); err != nil {
			return false, err
		}
	}
	updated.ID = current.ID
	updated.AnnouncedAt = current.AnnouncedAt
	updated.Proof = current.clone().Proof
	updated.Status = next

	if err := s.db.SaveRecord(&updated); err != nil {
		return false, err
	}
	s.records[id] = &updated

	if expected != next {
		logging.FromContext(ctx).Debug("proof status changed",
			zap.String("id", id),
			zap.Stringer("from", expected),
			zap.Stringer("to", next),
		)
	}
	return true, nil
}

// Counts returns the number of records per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(Statuses))
	for _, r := range s.records {
		counts[r.Status]++
	}
	return counts
}

// Cursor returns the last block fully scanned by discovery.
// The boolean is false when discovery never completed a scan.
func (s *Store) Cursor() (uint64, bool, error) {
	block, err := s.db.GetCursor()
	switch {
	case errors.Is(err, ErrNotFound):
		return 0, false, nil
	case err != nil:
		return 0, false, err
	}
	return block, true, nil
}

func (s *Store) SetCursor(block uint64) error {
	return s.db.SaveCursor(block)
}
