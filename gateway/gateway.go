package gateway

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

//go:generate mockgen -package mocks -destination mocks/gateway.go . Gateway

// Gateway is the view of the ledger used by the validator loops.
type Gateway interface {
	// LatestHeight returns the height of the most recent block.
	LatestHeight(ctx context.Context) (uint64, error)
	// Announcements returns the proofs announced in blocks [from, to].
	Announcements(ctx context.Context, from, to uint64) ([]Announcement, error)
	// SignSubmitState signs, without broadcasting, the transaction storing the
	// state commitment of a proof. Its hash is known before it reaches the ledger.
	SignSubmitState(ctx context.Context, proofID string, commitment common.Hash, opts TxOptions) (*types.Transaction, error)
	// SubmitState broadcasts a transaction returned by SignSubmitState.
	SubmitState(ctx context.Context, tx *types.Transaction) error
	// WaitConfirmed blocks until the transaction has the requested number of
	// confirmations and returns the block it was included in.
	WaitConfirmed(ctx context.Context, txHash common.Hash, confirmations uint64) (uint64, error)
	EstimateSubmitGas(ctx context.Context, proofID string, commitment common.Hash) (uint64, error)
	PendingNonce(ctx context.Context) (uint64, error)
	// Receipt returns the receipt of a mined transaction or ErrTxNotFound.
	Receipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// Announcement is a ProofAnnounced event observed on the ledger.
type Announcement struct {
	ID    string
	Block uint64
	Proof shared.Proof
}

type TxOptions struct {
	Nonce       uint64
	GasLimit    uint64
	MaxFee      *big.Int
	PriorityFee *big.Int
}

type Receipt struct {
	TxHash  common.Hash
	Block   uint64
	Success bool
}
