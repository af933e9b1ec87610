package verifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

var (
	// ErrVerification is wrapped by every error returned by a Verifier.
	ErrVerification = errors.New("verification failed")
	// ErrInvalidProof is a definitive rejection of the proof.
	ErrInvalidProof = fmt.Errorf("%w: proof rejected", ErrVerification)
)

//go:generate mockgen -package mocks -destination mocks/verifier.go . Verifier

// Verifier checks a Groth16 proof against a verification key.
// A nil error means the proof is valid.
type Verifier interface {
	Verify(ctx context.Context, proof *shared.Proof) error
}

// New creates the verifier selected by the config.
func New(ctx context.Context, cfg Config) (Verifier, error) {
	var (
		v   Verifier
		err error
	)
	switch cfg.Backend {
	case BackendExec:
		v, err = NewExec(cfg)
	case BackendGroth16:
		v, err = NewGroth16FromFile(ctx, cfg.VerificationKey)
	default:
		return nil, fmt.Errorf("unknown verifier backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCaching(cfg.CacheSize, v)
	}
	return v, nil
}
