package gateway

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

// Client is a Gateway talking to an EVM ledger over JSON-RPC.
type Client struct {
	eth      *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	contract common.Address
	chainID  *big.Int
	cfg      Config
}

var _ Gateway = (*Client)(nil)

// Dial connects to the ledger. The connection is retried with exponential backoff
// for up to cfg.DialTimeout before giving up.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).Named("gateway")

	eb := backoff.NewExponentialBackOff()
	eb.MaxElapsedTime = cfg.DialTimeout

	var (
		eth     *ethclient.Client
		chainID *big.Int
	)
	connect := func() error {
		var err error
		if eth == nil {
			if eth, err = ethclient.DialContext(ctx, cfg.RPCURL); err != nil {
				return err
			}
		}
		reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
		chainID, err = eth.ChainID(reqCtx)
		return err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("ledger unreachable, retrying", zap.String("url", cfg.RPCURL), zap.Duration("in", next), zap.Error(err))
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(eb, ctx), notify); err != nil {
		if eth != nil {
			eth.Close()
		}
		return nil, fmt.Errorf("connecting to ledger at %s: %w", cfg.RPCURL, err)
	}

	c := &Client{
		eth:      eth,
		key:      cfg.PrivateKey.PrivateKey,
		from:     cfg.PrivateKey.Address(),
		contract: common.Address(cfg.Contract),
		chainID:  chainID,
		cfg:      cfg,
	}
	logger.Info("connected to ledger",
		zap.Stringer("chain_id", chainID),
		zap.Stringer("account", c.from),
		zap.Stringer("contract", c.contract),
	)
	return c, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Account is the address signing the transactions.
func (c *Client) Account() common.Address {
	return c.from
}

func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	height, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying block number: %w", err)
	}
	return height, nil
}

func (c *Client) Announcements(ctx context.Context, from, to uint64) ([]Announcement, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{vortexABI.Events[eventProofAnnounced].ID}},
	})
	if err != nil {
		return nil, fmt.Errorf("filtering logs [%d, %d]: %w", from, to, err)
	}

	announcements := make([]Announcement, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		a, err := decodeAnnouncement(log)
		if err != nil {
			logging.FromContext(ctx).Warn("skipping malformed announcement",
				zap.Stringer("tx", log.TxHash),
				zap.Uint("index", log.Index),
				zap.Error(err),
			)
			continue
		}
		announcements = append(announcements, a)
	}
	return announcements, nil
}

func (c *Client) PendingNonce(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return 0, fmt.Errorf("querying pending nonce of %s: %w", c.from, err)
	}
	return nonce, nil
}

func (c *Client) EstimateSubmitGas(ctx context.Context, proofID string, commitment common.Hash) (uint64, error) {
	data, err := packSubmitState(proofID, commitment)
	if err != nil {
		return 0, err
	}
	return c.estimate(ctx, data)
}

func (c *Client) SignSubmitState(
	_ context.Context,
	proofID string,
	commitment common.Hash,
	opts TxOptions,
) (*types.Transaction, error) {
	data, err := packSubmitState(proofID, commitment)
	if err != nil {
		return nil, err
	}
	return c.sign(data, opts)
}

func (c *Client) SubmitState(ctx context.Context, tx *types.Transaction) error {
	return c.broadcast(ctx, tx)
}

// EstimateAnnounceGas estimates the gas of announcing the proof.
func (c *Client) EstimateAnnounceGas(ctx context.Context, p *shared.Proof) (uint64, error) {
	data, err := packAnnounceProof(p)
	if err != nil {
		return 0, err
	}
	return c.estimate(ctx, data)
}

// AnnounceProof publishes the proof on the contract.
func (c *Client) AnnounceProof(ctx context.Context, p *shared.Proof, opts TxOptions) (common.Hash, error) {
	data, err := packAnnounceProof(p)
	if err != nil {
		return common.Hash{}, err
	}
	return c.send(ctx, data, opts)
}

func (c *Client) estimate(ctx context.Context, data []byte) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEstimation, err)
	}
	return gas, nil
}

func (c *Client) send(ctx context.Context, data []byte, opts TxOptions) (common.Hash, error) {
	tx, err := c.sign(data, opts)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.broadcast(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *Client) sign(data []byte, opts TxOptions) (*types.Transaction, error) {
	tx, err := types.SignNewTx(c.key, types.LatestSignerForChainID(c.chainID), &types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     opts.Nonce,
		GasTipCap: opts.PriorityFee,
		GasFeeCap: opts.MaxFee,
		Gas:       opts.GasLimit,
		To:        &c.contract,
		Value:     new(big.Int),
		Data:      data,
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return tx, nil
}

func (c *Client) broadcast(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	if err := c.eth.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("sending transaction %s with nonce %d: %w", tx.Hash(), tx.Nonce(), err)
	}
	return nil
}

func (c *Client) Receipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	r, err := c.eth.TransactionReceipt(ctx, txHash)
	switch {
	case errors.Is(err, ethereum.NotFound):
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, txHash)
	case err != nil:
		return nil, fmt.Errorf("querying receipt of %s: %w", txHash, err)
	}
	return &Receipt{
		TxHash:  txHash,
		Block:   r.BlockNumber.Uint64(),
		Success: r.Status == types.ReceiptStatusSuccessful,
	}, nil
}

func (c *Client) WaitConfirmed(ctx context.Context, txHash common.Hash, confirmations uint64) (uint64, error) {
	return waitConfirmed(ctx, c, txHash, confirmations, c.cfg.ReceiptPoll)
}

type receiptSource interface {
	LatestHeight(ctx context.Context) (uint64, error)
	Receipt(ctx context.Context, txHash common.Hash) (*Receipt, error)
}

// waitConfirmed polls for the receipt of the transaction until it is buried
// under the requested number of confirmations. A reverted transaction stops
// the wait with ErrReverted.
func waitConfirmed(
	ctx context.Context,
	src receiptSource,
	txHash common.Hash,
	confirmations uint64,
	poll time.Duration,
) (uint64, error) {
	if confirmations == 0 {
		confirmations = 1
	}
	var block uint64
	check := func() error {
		r, err := src.Receipt(ctx, txHash)
		if err != nil {
			return err
		}
		if !r.Success {
			return backoff.Permanent(fmt.Errorf("%w: %s in block %d", ErrReverted, txHash, r.Block))
		}
		height, err := src.LatestHeight(ctx)
		if err != nil {
			return err
		}
		var have uint64
		if height >= r.Block {
			have = height - r.Block + 1
		}
		if have < confirmations {
			return fmt.Errorf("%s has %d of %d confirmations", txHash, have, confirmations)
		}
		block = r.Block
		return nil
	}
	if err := backoff.Retry(check, backoff.WithContext(backoff.NewConstantBackOff(poll), ctx)); err != nil {
		return 0, err
	}
	return block, nil
}
