// Command announcer publishes a directory of snarkjs proofs on the Vortex
// contract, as a load generator for the validator.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

type config struct {
	Dir         string `long:"proofs"       description:"directory with one numbered sub-directory per proof" default:"proofs"`
	Count       int    `long:"count"        description:"number of proofs to announce, 0 for all"`
	Workers     int    `long:"workers"      description:"maximum number of concurrent broadcasts"              default:"50"`
	BaseFee     uint64 `long:"base-fee"     description:"base fee per gas in gwei"                             default:"10"`
	PriorityFee uint64 `long:"priority-fee" description:"priority fee per gas in gwei"                         default:"2"`
	DebugLog    bool   `long:"debuglog"     description:"Enable debug logs"`

	ReceiptTimeout time.Duration `long:"receipt-timeout" description:"how long to wait for each receipt, 0 to wait forever" default:"5m"`

	Ledger gateway.Config `group:"Ledger"`
}

type announcement struct {
	dir   string
	proof shared.Proof
}

// loadProofs reads <dir>/<n>/proof.json and public.json for every numbered
// sub-directory, in numeric order.
func loadProofs(dir string, count int) ([]announcement, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var numbers []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)
	if count > 0 && count < len(numbers) {
		numbers = numbers[:count]
	}

	proofs := make([]announcement, 0, len(numbers))
	for _, n := range numbers {
		sub := filepath.Join(dir, strconv.Itoa(n))
		p, err := shared.LoadSnarkJS(sub)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, announcement{dir: sub, proof: p})
	}
	return proofs, nil
}

type announcer interface {
	PendingNonce(ctx context.Context) (uint64, error)
	EstimateAnnounceGas(ctx context.Context, p *shared.Proof) (uint64, error)
	AnnounceProof(ctx context.Context, p *shared.Proof, opts gateway.TxOptions) (common.Hash, error)
	WaitConfirmed(ctx context.Context, txHash common.Hash, confirmations uint64) (uint64, error)
}

type summary struct {
	sent      atomic.Uint64
	confirmed atomic.Uint64
	failed    atomic.Uint64
}

// announce broadcasts every proof with consecutive nonces starting at the
// account's pending nonce and waits for the receipts. Gas is estimated for all
// proofs before the first broadcast, so a proof the contract rejects leaves no
// gap in the nonce sequence.
func announce(ctx context.Context, client announcer, proofs []announcement, cfg *config) (*summary, error) {
	logger := logging.FromContext(ctx)
	gas, err := estimate(ctx, client, proofs, cfg.Workers)
	if err != nil {
		return nil, err
	}
	base, err := client.PendingNonce(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}
	prio := new(big.Int).Mul(new(big.Int).SetUint64(cfg.PriorityFee), big.NewInt(params.GWei))
	maxFee := new(big.Int).Mul(new(big.Int).SetUint64(cfg.BaseFee+cfg.PriorityFee), big.NewInt(params.GWei))

	var s summary
	var eg errgroup.Group
	if cfg.Workers > 0 {
		eg.SetLimit(cfg.Workers)
	}
	for i, a := range proofs {
		i, a := i, a
		nonce := base + uint64(i)
		eg.Go(func() error {
			logger := logger.With(zap.String("proof", a.dir), zap.Uint64("nonce", nonce))
			tx, err := client.AnnounceProof(ctx, &a.proof, gateway.TxOptions{
				Nonce:       nonce,
				GasLimit:    gas[i],
				MaxFee:      maxFee,
				PriorityFee: prio,
			})
			if err != nil {
				s.failed.Add(1)
				logger.Warn("broadcast failed", zap.Error(err))
				return nil
			}
			s.sent.Add(1)
			block, err := waitReceipt(ctx, client, tx, cfg.ReceiptTimeout)
			if err != nil {
				s.failed.Add(1)
				logger.Warn("announcement not confirmed", zap.Stringer("tx", tx), zap.Error(err))
				return nil
			}
			s.confirmed.Add(1)
			logger.Debug("announced", zap.Stringer("tx", tx), zap.Uint64("block", block))
			return nil
		})
	}
	_ = eg.Wait()
	return &s, ctx.Err()
}

// estimate returns the gas limit of every proof, or the first estimation error.
func estimate(ctx context.Context, client announcer, proofs []announcement, workers int) ([]uint64, error) {
	gas := make([]uint64, len(proofs))
	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, a := range proofs {
		i, a := i, a
		eg.Go(func() error {
			g, err := client.EstimateAnnounceGas(ctx, &a.proof)
			if err != nil {
				return fmt.Errorf("estimating gas of %s: %w", a.dir, err)
			}
			gas[i] = g
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return gas, nil
}

// waitReceipt waits for one confirmation of tx. A transaction stuck behind a
// nonce that never reached the ledger is given up on after timeout.
func waitReceipt(ctx context.Context, client announcer, tx common.Hash, timeout time.Duration) (uint64, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return client.WaitConfirmed(ctx, tx, 1)
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	cfg := &config{Ledger: gateway.DefaultConfig()}
	if _, err := flags.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return err
	}

	level := zap.InfoLevel
	if cfg.DebugLog {
		level = zap.DebugLevel
	}
	logger := logging.New(level, logging.FileConfig{}, false)
	ctx, stop := signal.NotifyContext(logging.NewContext(context.Background(), logger), os.Interrupt)
	defer stop()

	proofs, err := loadProofs(cfg.Dir, cfg.Count)
	if err != nil {
		return fmt.Errorf("loading proofs: %w", err)
	}
	if len(proofs) == 0 {
		return fmt.Errorf("no proofs found in %s", cfg.Dir)
	}

	client, err := gateway.Dial(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("announcing proofs", zap.Int("count", len(proofs)), zap.Stringer("account", client.Account()))
	started := time.Now()
	s, err := announce(ctx, client, proofs, cfg)
	if s != nil {
		fmt.Printf("announced %d proofs in %s: %d sent, %d confirmed, %d failed\n",
			len(proofs), time.Since(started).Round(time.Millisecond), s.sent.Load(), s.confirmed.Load(), s.failed.Load())
	}
	return err
}

func main() {
	if err := run(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
