package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	gatewaymocks "github.com/DebRC/Vortex-Layer-1.5/gateway/mocks"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
	"github.com/DebRC/Vortex-Layer-1.5/store"
	"github.com/DebRC/Vortex-Layer-1.5/verifier"
	"github.com/DebRC/Vortex-Layer-1.5/verifier/mocks"
)

func testContext(t *testing.T) context.Context {
	return logging.NewContext(context.Background(), zaptest.NewLogger(t))
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(testContext(t), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	return st
}

// acceptAll returns a verifier accepting every proof except the listed ids.
func acceptAll(t *testing.T, rejected ...string) verifier.Verifier {
	ctrl := gomock.NewController(t)
	v := mocks.NewMockVerifier(ctrl)
	v.EXPECT().Verify(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *shared.Proof) error {
		for _, id := range rejected {
			if p.Inputs[0] == id {
				return verifier.ErrInvalidProof
			}
		}
		return nil
	}).AnyTimes()
	return v
}

func newTestService(t *testing.T, ledger gateway.Gateway, v verifier.Verifier, cfg Config) (*Service, *store.Store) {
	t.Helper()
	st := openStore(t)
	svc, err := New(st, ledger, v, WithConfig(cfg))
	require.NoError(t, err)
	return svc, st
}

func requireStatus(t *testing.T, st *store.Store, id string, status store.Status) store.Record {
	t.Helper()
	r, ok := st.Get(id)
	require.True(t, ok, "proof %s not found", id)
	require.Equal(t, status, r.Status, "proof %s", id)
	return r
}

func TestEligibilityWindow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		height   uint64
		eligible bool
		expired  bool
	}{
		{height: 100},
		{height: 101},
		{height: 102, eligible: true},
		{height: 103, eligible: true},
		{height: 104, expired: true},
		{height: 200, expired: true},
	}
	for _, tc := range tests {
		require.Equal(t, tc.eligible, eligible(100, tc.height, 3), "height %d", tc.height)
		require.Equal(t, tc.expired, expired(100, tc.height, 3), "height %d", tc.height)
	}

	// with a delay of one block the announcement block itself is eligible
	require.True(t, eligible(100, 100, 1))
	require.True(t, eligible(100, 101, 1))
	require.False(t, eligible(100, 99, 1))
}

type pendingNonce uint64

func (p *pendingNonce) PendingNonce(context.Context) (uint64, error) {
	return uint64(*p), nil
}

func TestNonceAllocator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pending := pendingNonce(5)
	alloc := newNonceAllocator(&pending)

	base, err := alloc.Reserve(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(5), base)

	// the ledger has not seen the previous batch yet
	base, err = alloc.Reserve(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(8), base)

	// the ledger moved past the allocated range
	pending = 12
	base, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(12), base)

	pending = 9
	alloc.Reset()
	base, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(9), base)
}

func TestNonceAllocatorRelease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pending := pendingNonce(5)
	alloc := newNonceAllocator(&pending)

	base, err := alloc.Reserve(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(5), base)

	// only the first nonce was used, the ledger lags behind
	alloc.Release(6)
	base, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(6), base)

	// releasing above the allocated range is a no-op
	alloc.Release(100)
	base, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(7), base)

	// nothing to release after a reset
	alloc.Reset()
	alloc.Release(2)
	base, err = alloc.Reserve(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(5), base)
}

func TestProofReachesSubmittedInsideWindow(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 5)
	ledger.announce("7", 100)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	requireStatus(t, st, "7", store.Pending)

	require.NoError(t, svc.Verify(ctx))
	requireStatus(t, st, "7", store.Verified)

	// below the window
	ledger.setHeight(101)
	require.NoError(t, svc.Submit(ctx))
	requireStatus(t, st, "7", store.Verified)
	require.Empty(t, ledger.transactions())

	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	r := requireStatus(t, st, "7", store.Submitted)
	require.Equal(t, uint64(102), r.Submission.ConfirmedAt)
	require.Equal(t, uint64(5), r.Submission.Nonce)
	require.Equal(t, uint32(1), r.Submission.Attempts)

	txs := ledger.transactions()
	require.Len(t, txs, 1)
	proof := testProof("7")
	commitment, err := proof.Commitment()
	require.NoError(t, err)
	require.Equal(t, "7", txs[0].ID)
	require.Equal(t, commitment, txs[0].Commitment)
	require.Equal(t, txs[0].Hash, r.Submission.TxHash)
	require.Equal(t, uint64(5), txs[0].Opts.Nonce)
	require.Equal(t, uint64(60_000), txs[0].Opts.GasLimit)
	require.Equal(t, gwei(12), txs[0].Opts.MaxFee)
	require.Equal(t, gwei(2), txs[0].Opts.PriorityFee)
}

func TestRejectedProofIsNeverSubmitted(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("9", 100)
	svc, st := newTestService(t, ledger, acceptAll(t, "9"), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	r := requireStatus(t, st, "9", store.Failed)
	require.Equal(t, store.ReasonInvalid, r.FailReason)

	for h := uint64(101); h <= 104; h++ {
		ledger.setHeight(h)
		require.NoError(t, svc.Submit(ctx))
	}
	require.Empty(t, ledger.transactions())
	requireStatus(t, st, "9", store.Failed)
}

func TestBatchGetsConsecutiveNonces(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 40)
	ledger.announce("7", 100)
	ledger.announce("8", 100)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	require.Equal(t, uint64(40), requireStatus(t, st, "7", store.Submitted).Submission.Nonce)
	require.Equal(t, uint64(41), requireStatus(t, st, "8", store.Submitted).Submission.Nonce)

	nonces := map[uint64]string{}
	for _, tx := range ledger.transactions() {
		nonces[tx.Opts.Nonce] = tx.ID
	}
	require.Equal(t, map[uint64]string{40: "7", 41: "8"}, nonces)
}

func TestConsecutiveBatchesDoNotReuseNonces(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("1", 100)
	ledger.announce("2", 101)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	svc.cfg.StartBlock = 100
	ledger.setHeight(101)
	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))

	// the ledger does not account for the first transaction before the second batch
	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))
	ledger.set(func(f *fakeLedger) { f.pending = 0 })
	ledger.setHeight(104)
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	require.Equal(t, uint64(0), requireStatus(t, st, "1", store.Submitted).Submission.Nonce)
	require.Equal(t, uint64(1), requireStatus(t, st, "2", store.Submitted).Submission.Nonce)
}

func TestVerifiedProofExpires(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))

	ledger.setHeight(104)
	require.NoError(t, svc.Submit(ctx))
	r := requireStatus(t, st, "7", store.Failed)
	require.Equal(t, store.ReasonExpired, r.FailReason)
	require.Empty(t, ledger.transactions())
}

func TestGasEstimationFallback(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.estimateErr = gateway.ErrEstimation })
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	ledger.setHeight(103)
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	requireStatus(t, st, "7", store.Submitted)
	txs := ledger.transactions()
	require.Len(t, txs, 1)
	require.Equal(t, uint64(500_000), txs[0].Opts.GasLimit)
}

func TestSubmissionErrorKeepsSubmitting(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 3)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.submitErr["7"] = errors.New("replacement transaction underpriced") })
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))

	r := requireStatus(t, st, "7", store.Submitting)
	require.Equal(t, uint32(1), r.Submission.Attempts)
	require.False(t, r.Submission.Broadcast)
	require.Contains(t, r.Submission.LastError, "underpriced")

	// a single attempt is allowed
	ledger.set(func(f *fakeLedger) { delete(f.submitErr, "7") })
	ledger.setHeight(103)
	require.NoError(t, svc.Submit(ctx))
	ledger.setHeight(104)
	require.NoError(t, svc.Submit(ctx))
	require.Empty(t, ledger.transactions())
	requireStatus(t, st, "7", store.Submitting)
}

func TestFailedAttemptIsRetriedInsideWindow(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 3)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.submitErr["7"] = errors.New("connection reset") })
	cfg := DefaultConfig()
	cfg.MaxSubmitAttempts = 2
	svc, st := newTestService(t, ledger, acceptAll(t), cfg)

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))
	requireStatus(t, st, "7", store.Submitting)

	ledger.set(func(f *fakeLedger) { delete(f.submitErr, "7") })
	ledger.setHeight(103)
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	r := requireStatus(t, st, "7", store.Submitted)
	require.Equal(t, uint32(2), r.Submission.Attempts)
	// the failed broadcast reset the allocator to the ledger's pending nonce
	require.Equal(t, uint64(3), r.Submission.Nonce)
}

func TestFailedAttemptsExpire(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.submitErr["7"] = errors.New("connection reset") })
	cfg := DefaultConfig()
	cfg.MaxSubmitAttempts = 3
	svc, st := newTestService(t, ledger, acceptAll(t), cfg)

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	for h := uint64(102); h <= 104; h++ {
		ledger.setHeight(h)
		require.NoError(t, svc.Submit(ctx))
	}

	r := requireStatus(t, st, "7", store.Failed)
	require.Equal(t, store.ReasonSubmitExpired, r.FailReason)
	require.Equal(t, uint32(2), r.Submission.Attempts)
}

func TestSlowConfirmationDoesNotBlockSubmission(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	ledger.announce("8", 101)
	confirmed := make(chan struct{})
	ledger.set(func(f *fakeLedger) { f.confirmed = confirmed })
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	svc.cfg.StartBlock = 100
	ledger.setHeight(101)
	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))

	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))
	ledger.setHeight(103)
	require.NoError(t, svc.Submit(ctx))
	requireStatus(t, st, "7", store.Submitting)
	requireStatus(t, st, "8", store.Submitting)
	require.Len(t, ledger.transactions(), 2)

	close(confirmed)
	svc.watchers.Wait()
	requireStatus(t, st, "7", store.Submitted)
	requireStatus(t, st, "8", store.Submitted)
}

func TestDiscoveryIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	cfg := DefaultConfig()
	cfg.StartBlock = 90
	svc, st := newTestService(t, ledger, acceptAll(t), cfg)

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))

	// the same announcement observed again, e.g. after a cursor reset
	require.NoError(t, st.SetCursor(95))
	require.NoError(t, svc.Discover(ctx))
	requireStatus(t, st, "7", store.Verified)
	require.Len(t, st.ListByStatus(store.Pending), 0)
}

func TestDiscoveryRespectsBlockRange(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("1", 5)
	ledger.announce("2", 15)
	cfg := DefaultConfig()
	cfg.StartBlock = 1
	cfg.MaxBlockRange = 10
	svc, st := newTestService(t, ledger, acceptAll(t), cfg)

	require.NoError(t, svc.Discover(ctx))
	cursor, found, err := st.Cursor()
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(10), cursor)
	requireStatus(t, st, "1", store.Pending)
	_, ok := st.Get("2")
	require.False(t, ok)

	require.NoError(t, svc.Discover(ctx))
	requireStatus(t, st, "2", store.Pending)
}

func TestDiscoveryErrorKeepsCursor(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.announceErr = errors.New("rpc timeout") })
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.ErrorIs(t, svc.Discover(ctx), ErrDiscovery)
	_, found, err := st.Cursor()
	require.NoError(t, err)
	require.False(t, found)

	ledger.set(func(f *fakeLedger) { f.announceErr = nil })
	ledger.setHeight(101)
	require.NoError(t, svc.Discover(ctx))
	// the next round starts from the latest block again
	_, ok := st.Get("7")
	require.False(t, ok)
}

func TestDiscoveryAbandonedWhenHeightUnavailable(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	ledger := gatewaymocks.NewMockGateway(ctrl)
	ledger.EXPECT().LatestHeight(gomock.Any()).Return(uint64(0), errors.New("connection refused"))
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.ErrorIs(t, svc.Discover(testContext(t)), ErrDiscovery)
	_, found, err := st.Cursor()
	require.NoError(t, err)
	require.False(t, found)
}

func TestSubmissionAbandonedWhenNonceUnavailable(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ctrl := gomock.NewController(t)
	ledger := gatewaymocks.NewMockGateway(ctrl)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	_, err := st.UpsertIfAbsent(ctx, store.Record{ID: "7", AnnouncedAt: 100, Proof: testProof("7")})
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx))

	ledger.EXPECT().LatestHeight(gomock.Any()).Return(uint64(102), nil)
	ledger.EXPECT().PendingNonce(gomock.Any()).Return(uint64(0), errors.New("connection refused"))
	require.ErrorIs(t, svc.Submit(ctx), ErrSubmission)

	// the proof is still claimable in the next round
	requireStatus(t, st, "7", store.Verified)
}

func TestRecovery(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(110, 0)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	mined := common.HexToHash("0x01")
	inFlight := common.HexToHash("0x02")
	reverted := common.HexToHash("0x03")
	unknown := common.HexToHash("0x04")
	ledger.set(func(f *fakeLedger) {
		f.receipts[mined] = &gateway.Receipt{TxHash: mined, Block: 104, Success: true}
		f.receipts[reverted] = &gateway.Receipt{TxHash: reverted, Block: 104}
		f.receiptErr[unknown] = errors.New("rpc timeout")
	})

	add := func(id string, status store.Status, txHash common.Hash) {
		_, err := st.UpsertIfAbsent(ctx, store.Record{ID: id, AnnouncedAt: 100, Proof: testProof(id)})
		require.NoError(t, err)
		path := []store.Status{store.Pending, store.Verifying, store.Verified, store.Submitting}
		for i := 1; i < len(path) && path[i-1] != status; i++ {
			_, err := st.Update(ctx, id, path[i-1], path[i], func(r *store.Record) error {
				if path[i] == store.Submitting {
					r.Submission = store.Submission{TxHash: txHash, Broadcast: true, Attempts: 1}
				}
				return nil
			})
			require.NoError(t, err)
		}
		requireStatus(t, st, id, status)
	}
	add("1", store.Verifying, common.Hash{})
	add("2", store.Submitting, mined)
	add("3", store.Submitting, inFlight)
	add("4", store.Submitting, reverted)
	add("5", store.Submitting, unknown)

	err := svc.recover(ctx)
	require.ErrorContains(t, err, "reconciling proof 5")
	svc.watchers.Wait()

	requireStatus(t, st, "1", store.Verified)
	require.Equal(t, uint64(104), requireStatus(t, st, "2", store.Submitted).Submission.ConfirmedAt)
	require.Equal(t, uint64(110), requireStatus(t, st, "3", store.Submitted).Submission.ConfirmedAt)
	r := requireStatus(t, st, "4", store.Submitting)
	require.False(t, r.Submission.Broadcast)
	require.Contains(t, r.Submission.LastError, gateway.ErrReverted.Error())
	requireStatus(t, st, "5", store.Submitting)
}

// addSubmitting stores a record left in Submitting by a previous run.
func addSubmitting(t *testing.T, st *store.Store, id string, announced uint64, sub store.Submission) {
	t.Helper()
	ctx := testContext(t)
	_, err := st.UpsertIfAbsent(ctx, store.Record{ID: id, AnnouncedAt: announced, Proof: testProof(id)})
	require.NoError(t, err)
	path := []store.Status{store.Pending, store.Verifying, store.Verified, store.Submitting}
	for i := 1; i < len(path); i++ {
		_, err := st.Update(ctx, id, path[i-1], path[i], func(r *store.Record) error {
			if path[i] == store.Submitting {
				r.Submission = sub
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestRecoveryOfUnbroadcastSubmissions(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(101, 0)
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	minedSigned := common.HexToHash("0x11")
	lostSigned := common.HexToHash("0x12")
	ledger.set(func(f *fakeLedger) {
		f.receipts[minedSigned] = &gateway.Receipt{TxHash: minedSigned, Block: 101, Success: true}
	})

	// crashed between the claim and signing
	addSubmitting(t, st, "1", 100, store.Submission{Nonce: 3, Attempts: 1})
	// crashed after persisting the hash, the transaction made it to the ledger
	addSubmitting(t, st, "2", 100, store.Submission{Nonce: 4, Attempts: 1, TxHash: minedSigned})
	// crashed after persisting the hash, the transaction never reached the ledger
	addSubmitting(t, st, "3", 100, store.Submission{Nonce: 5, Attempts: 1, TxHash: lostSigned})

	require.NoError(t, svc.recover(ctx))
	svc.watchers.Wait()

	r := requireStatus(t, st, "1", store.Submitting)
	require.False(t, r.Submission.Broadcast)
	require.Contains(t, r.Submission.LastError, errInterrupted.Error())

	require.Equal(t, uint64(101), requireStatus(t, st, "2", store.Submitted).Submission.ConfirmedAt)

	r = requireStatus(t, st, "3", store.Submitting)
	require.Contains(t, r.Submission.LastError, errInterrupted.Error())
}

func TestInterruptedSubmissionIsRetriedOrExpired(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(102, 9)
	cfg := DefaultConfig()
	cfg.MaxSubmitAttempts = 2
	svc, st := newTestService(t, ledger, acceptAll(t), cfg)

	addSubmitting(t, st, "7", 100, store.Submission{Nonce: 8, Attempts: 1})
	addSubmitting(t, st, "8", 95, store.Submission{Nonce: 7, Attempts: 1})

	require.NoError(t, svc.recover(ctx))
	require.NoError(t, svc.Submit(ctx))
	svc.watchers.Wait()

	// inside its window: retried with a fresh nonce
	r := requireStatus(t, st, "7", store.Submitted)
	require.Equal(t, uint32(2), r.Submission.Attempts)
	require.Equal(t, uint64(9), r.Submission.Nonce)
	txs := ledger.transactions()
	require.Len(t, txs, 1)
	require.Equal(t, "7", txs[0].ID)
	require.Equal(t, txs[0].Hash, r.Submission.TxHash)

	// past its window
	r = requireStatus(t, st, "8", store.Failed)
	require.Equal(t, store.ReasonSubmitExpired, r.FailReason)
}

func TestSignedHashIsPersistedBeforeBroadcast(t *testing.T) {
	t.Parallel()
	ctx := testContext(t)
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	ledger.set(func(f *fakeLedger) { f.submitErr["7"] = errors.New("connection reset") })
	svc, st := newTestService(t, ledger, acceptAll(t), DefaultConfig())

	require.NoError(t, svc.Discover(ctx))
	require.NoError(t, svc.Verify(ctx))
	ledger.setHeight(102)
	require.NoError(t, svc.Submit(ctx))

	r := requireStatus(t, st, "7", store.Submitting)
	require.NotEqual(t, common.Hash{}, r.Submission.TxHash)
	require.False(t, r.Submission.Broadcast)

	var signed bool
	ledger.set(func(f *fakeLedger) { _, signed = f.signed[r.Submission.TxHash] })
	require.True(t, signed)
}

func TestRunWithMockClock(t *testing.T) {
	t.Parallel()
	ledger := newFakeLedger(100, 0)
	ledger.announce("7", 100)
	mockClock := clock.NewMock()
	st := openStore(t)
	svc, err := New(st, ledger, acceptAll(t), WithClock(mockClock))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	var eg errgroup.Group
	eg.Go(func() error { return svc.Run(ctx) })

	require.Eventually(t, func() bool {
		mockClock.Add(2 * time.Second)
		r, ok := st.Get("7")
		if !ok {
			return false
		}
		if r.Status == store.Verified {
			ledger.setHeight(102)
		}
		return r.Status == store.Submitted
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, eg.Wait())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConfirmationDelay = 0
	_, err := New(nil, newFakeLedger(0, 0), nil, WithConfig(cfg))
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxSubmitAttempts = 0
	_, err = New(nil, newFakeLedger(0, 0), nil, WithConfig(cfg))
	require.Error(t, err)
}
