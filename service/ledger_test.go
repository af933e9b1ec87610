package service

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

type sentTx struct {
	ID         string
	Commitment common.Hash
	Opts       gateway.TxOptions
	Hash       common.Hash
}

// fakeLedger is an in-memory ledger whose height is moved by the test.
type fakeLedger struct {
	mu            sync.Mutex
	height        uint64
	pending       uint64
	announcements []gateway.Announcement
	signed        map[common.Hash]sentTx
	sent          []sentTx
	receipts      map[common.Hash]*gateway.Receipt
	receiptErr    map[common.Hash]error

	heightErr   error
	announceErr error
	estimateErr error
	submitErr   map[string]error
	confirmErr  error
	// confirmed, when set, blocks WaitConfirmed until it is closed.
	confirmed chan struct{}
}

var _ gateway.Gateway = (*fakeLedger)(nil)

func newFakeLedger(height, pending uint64) *fakeLedger {
	return &fakeLedger{
		height:     height,
		pending:    pending,
		signed:     make(map[common.Hash]sentTx),
		receipts:   make(map[common.Hash]*gateway.Receipt),
		receiptErr: make(map[common.Hash]error),
		submitErr:  make(map[string]error),
	}
}

func testProof(id string) shared.Proof {
	return shared.Proof{
		A:      shared.G1{"1", "2"},
		B:      shared.G2{{"3", "4"}, {"5", "6"}},
		C:      shared.G1{"7", "8"},
		Inputs: []string{id},
	}
}

func (f *fakeLedger) announce(id string, block uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, gateway.Announcement{ID: id, Block: block, Proof: testProof(id)})
}

func (f *fakeLedger) setHeight(h uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height = h
}

func (f *fakeLedger) set(fn func(f *fakeLedger)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeLedger) transactions() []sentTx {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentTx(nil), f.sent...)
}

func (f *fakeLedger) LatestHeight(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, f.heightErr
}

func (f *fakeLedger) Announcements(_ context.Context, from, to uint64) ([]gateway.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.announceErr != nil {
		return nil, f.announceErr
	}
	var out []gateway.Announcement
	for _, a := range f.announcements {
		if a.Block >= from && a.Block <= to {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeLedger) SignSubmitState(
	_ context.Context,
	proofID string,
	commitment common.Hash,
	opts gateway.TxOptions,
) (*types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx := types.NewTx(&types.DynamicFeeTx{
		Nonce:     opts.Nonce,
		Gas:       opts.GasLimit,
		GasFeeCap: opts.MaxFee,
		GasTipCap: opts.PriorityFee,
		Data:      append([]byte(proofID+"/"), commitment.Bytes()...),
	})
	f.signed[tx.Hash()] = sentTx{ID: proofID, Commitment: commitment, Opts: opts, Hash: tx.Hash()}
	return tx, nil
}

func (f *fakeLedger) SubmitState(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sent, ok := f.signed[tx.Hash()]
	if !ok {
		return errors.New("unknown transaction")
	}
	if err := f.submitErr[sent.ID]; err != nil {
		return err
	}
	f.sent = append(f.sent, sent)
	f.pending++
	return nil
}

func (f *fakeLedger) WaitConfirmed(ctx context.Context, txHash common.Hash, _ uint64) (uint64, error) {
	f.mu.Lock()
	confirmed := f.confirmed
	f.mu.Unlock()
	if confirmed != nil {
		select {
		case <-confirmed:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return 0, f.confirmErr
	}
	return f.height, nil
}

func (f *fakeLedger) EstimateSubmitGas(context.Context, string, common.Hash) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return 60_000, nil
}

func (f *fakeLedger) PendingNonce(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, nil
}

func (f *fakeLedger) Receipt(_ context.Context, txHash common.Hash) (*gateway.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.receiptErr[txHash]; err != nil {
		return nil, err
	}
	if r, ok := f.receipts[txHash]; ok {
		return r, nil
	}
	return nil, gateway.ErrTxNotFound
}
