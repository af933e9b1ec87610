package verifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

// Exec verifies proofs by running an external verifier (snarkjs by default)
// on proof.json and public.json files written to a scratch directory.
type Exec struct {
	command string
	args    []string
	vk      string
	marker  string
	timeout time.Duration
}

func NewExec(cfg Config) (*Exec, error) {
	if cfg.Command == "" {
		return nil, errors.New("verifier command is required")
	}
	if _, err := os.Stat(cfg.VerificationKey); err != nil {
		return nil, fmt.Errorf("verification key: %w", err)
	}
	return &Exec{
		command: cfg.Command,
		args:    strings.Fields(cfg.Args),
		vk:      cfg.VerificationKey,
		marker:  cfg.SuccessMarker,
		timeout: cfg.Timeout,
	}, nil
}

func (e *Exec) Verify(ctx context.Context, proof *shared.Proof) error {
	dir, err := os.MkdirTemp("", "vortex-proof-*")
	if err != nil {
		return fmt.Errorf("%w: creating work dir: %w", ErrVerification, err)
	}
	defer os.RemoveAll(dir)

	proofPath, publicPath, err := shared.WriteSnarkJS(dir, proof)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}

	replacer := strings.NewReplacer("{vk}", e.vk, "{proof}", proofPath, "{public}", publicPath)
	args := make([]string, len(e.args))
	for i, arg := range e.args {
		args[i] = replacer.Replace(arg)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, e.command, args...) //#nosec G204
	cmd.Stdout = &out
	cmd.Stderr = &out

	started := time.Now()
	err = cmd.Run()
	logger := logging.FromContext(ctx).With(
		zap.String("cmd", e.command),
		zap.Duration("took", time.Since(started)),
	)

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		logger.Debug("verifier rejected proof", zap.Int("code", exitErr.ExitCode()), zap.String("output", out.String()))
		return fmt.Errorf("%w: %s exited with code %d", ErrInvalidProof, e.command, exitErr.ExitCode())
	case err != nil:
		return fmt.Errorf("%w: running %s: %w", ErrVerification, e.command, err)
	case !strings.Contains(out.String(), e.marker):
		logger.Debug("verifier output lacks success marker", zap.String("output", out.String()))
		return fmt.Errorf("%w: %s did not report success", ErrInvalidProof, e.command)
	}
	logger.Debug("verifier accepted proof")
	return nil
}
