package service

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap/zapcore"

	"github.com/DebRC/Vortex-Layer-1.5/gateway"
)

const (
	defaultConfirmationDelay = 3
	defaultGasLimit          = 500_000
	defaultBaseFeeGwei       = 10
	defaultPriorityFeeGwei   = 2
)

func DefaultConfig() Config {
	return Config{
		FetchInterval:     2 * time.Second,
		VerifyInterval:    2 * time.Second,
		SubmitInterval:    2 * time.Second,
		ConfirmationDelay: defaultConfirmationDelay,
		Confirmations:     1,
		MaxBlockRange:     1000,
		MaxSubmitAttempts: 1,
		DefaultGasLimit:   defaultGasLimit,
		BaseFeeGwei:       defaultBaseFeeGwei,
		PriorityFeeGwei:   defaultPriorityFeeGwei,
	}
}

//nolint:lll
type Config struct {
	FetchInterval  time.Duration `long:"fetch-interval"  description:"interval between scans for new announcements" env:"FETCH_INTERVAL"`
	VerifyInterval time.Duration `long:"verify-interval" description:"interval between verification rounds"         env:"VERIFY_INTERVAL"`
	SubmitInterval time.Duration `long:"submit-interval" description:"interval between submission rounds"           env:"SUBMIT_INTERVAL"`

	ConfirmationDelay uint64 `long:"confirmation-delay" description:"number of blocks after the announcement at which the state is submitted" env:"CONFIRMATION_DELAY"`
	Confirmations     uint64 `long:"confirmations"      description:"number of confirmations before a submission is considered final"`

	StartBlock    uint64 `long:"start-block"     description:"first block to scan for announcements, 0 starts from the latest block"`
	MaxBlockRange uint64 `long:"max-block-range" description:"maximum number of blocks scanned in a single discovery round"`

	MaxConcurrentVerifications int    `long:"max-concurrent-verifications" description:"maximum number of proofs verified at once, 0 for no limit"`
	MaxSubmitAttempts          uint32 `long:"max-submit-attempts"          description:"number of attempts to broadcast the state of a proof within its window"`

	DefaultGasLimit uint64 `long:"default-gas-limit" description:"gas limit used when the estimation fails"`
	BaseFeeGwei     uint64 `long:"base-fee"          description:"base fee per gas in gwei"`
	PriorityFeeGwei uint64 `long:"priority-fee"      description:"priority fee per gas in gwei"`
}

func (c *Config) Validate() error {
	switch {
	case c.ConfirmationDelay < 1:
		return errors.New("confirmation delay must be at least 1 block")
	case c.FetchInterval <= 0 || c.VerifyInterval <= 0 || c.SubmitInterval <= 0:
		return errors.New("intervals must be positive")
	case c.MaxSubmitAttempts < 1:
		return errors.New("at least one submission attempt is required")
	case c.MaxConcurrentVerifications < 0:
		return errors.New("max concurrent verifications cannot be negative")
	}
	return nil
}

func gwei(v uint64) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(v), big.NewInt(params.GWei))
}

// txOptions returns EIP-1559 fee parameters: the max fee covers the base fee plus the tip.
func (c *Config) txOptions(nonce, gas uint64) gateway.TxOptions {
	return gateway.TxOptions{
		Nonce:       nonce,
		GasLimit:    gas,
		MaxFee:      gwei(c.BaseFeeGwei + c.PriorityFeeGwei),
		PriorityFee: gwei(c.PriorityFeeGwei),
	}
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddDuration("fetch_interval", c.FetchInterval)
	enc.AddDuration("verify_interval", c.VerifyInterval)
	enc.AddDuration("submit_interval", c.SubmitInterval)
	enc.AddUint64("confirmation_delay", c.ConfirmationDelay)
	enc.AddUint64("confirmations", c.Confirmations)
	enc.AddUint32("max_submit_attempts", c.MaxSubmitAttempts)
	return nil
}
