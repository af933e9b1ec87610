package verifier

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
	"github.com/DebRC/Vortex-Layer-1.5/util"
)

// VerifyingKey is the snarkjs verification_key.json layout.
type VerifyingKey struct {
	Protocol string       `json:"protocol"`
	Curve    string       `json:"curve"`
	NPublic  int          `json:"nPublic"`
	Alpha    [3]string    `json:"vk_alpha_1"`
	Beta     [3][2]string `json:"vk_beta_2"`
	Gamma    [3][2]string `json:"vk_gamma_2"`
	Delta    [3][2]string `json:"vk_delta_2"`
	IC       [][3]string  `json:"IC"`
}

// Groth16 verifies BN254 Groth16 proofs in process.
type Groth16 struct {
	alpha bn254.G1Affine
	beta  bn254.G2Affine
	gamma bn254.G2Affine
	delta bn254.G2Affine
	ic    []bn254.G1Affine
}

func NewGroth16FromFile(ctx context.Context, path string) (*Groth16, error) {
	var vk VerifyingKey
	if err := util.LoadJSON(path, &vk); err != nil {
		return nil, fmt.Errorf("loading verification key: %w", err)
	}
	g, err := NewGroth16(&vk)
	if err != nil {
		return nil, fmt.Errorf("verification key %s: %w", path, err)
	}
	logging.FromContext(ctx).Info("loaded verification key",
		zap.String("path", path),
		zap.Int("public_inputs", len(g.ic)-1),
		zap.Binary("fingerprint", vk.Fingerprint()),
	)
	return g, nil
}

func NewGroth16(vk *VerifyingKey) (*Groth16, error) {
	if vk.Protocol != "" && vk.Protocol != "groth16" {
		return nil, fmt.Errorf("unsupported protocol %q", vk.Protocol)
	}
	if len(vk.IC) == 0 {
		return nil, errors.New("missing IC points")
	}
	if vk.NPublic != 0 && vk.NPublic != len(vk.IC)-1 {
		return nil, fmt.Errorf("nPublic is %d but there are %d IC points", vk.NPublic, len(vk.IC))
	}

	var (
		g   Groth16
		err error
	)
	if g.alpha, err = g1(vk.Alpha[0], vk.Alpha[1]); err != nil {
		return nil, fmt.Errorf("alpha: %w", err)
	}
	if g.beta, err = g2(vk.Beta[0], vk.Beta[1]); err != nil {
		return nil, fmt.Errorf("beta: %w", err)
	}
	if g.gamma, err = g2(vk.Gamma[0], vk.Gamma[1]); err != nil {
		return nil, fmt.Errorf("gamma: %w", err)
	}
	if g.delta, err = g2(vk.Delta[0], vk.Delta[1]); err != nil {
		return nil, fmt.Errorf("delta: %w", err)
	}
	g.ic = make([]bn254.G1Affine, len(vk.IC))
	for i, p := range vk.IC {
		if g.ic[i], err = g1(p[0], p[1]); err != nil {
			return nil, fmt.Errorf("IC[%d]: %w", i, err)
		}
	}
	return &g, nil
}

// Fingerprint is a digest identifying the key in logs.
func (vk *VerifyingKey) Fingerprint() []byte {
	h := sha256.New()
	for _, p := range append([][3]string{vk.Alpha}, vk.IC...) {
		for _, c := range p[:2] {
			h.Write([]byte(c))
			h.Write([]byte{0})
		}
	}
	for _, p := range [][3][2]string{vk.Beta, vk.Gamma, vk.Delta} {
		for _, c := range p[:2] {
			h.Write([]byte(c[0]))
			h.Write([]byte{0})
			h.Write([]byte(c[1]))
			h.Write([]byte{0})
		}
	}
	return h.Sum(nil)[:8]
}

func (g *Groth16) Verify(ctx context.Context, proof *shared.Proof) error {
	if len(proof.Inputs) != len(g.ic)-1 {
		return fmt.Errorf("%w: expected %d public inputs, got %d", ErrInvalidProof, len(g.ic)-1, len(proof.Inputs))
	}
	a, err := g1(proof.A[0], proof.A[1])
	if err != nil {
		return fmt.Errorf("%w: A: %w", ErrInvalidProof, err)
	}
	b, err := g2(proof.B[0], proof.B[1])
	if err != nil {
		return fmt.Errorf("%w: B: %w", ErrInvalidProof, err)
	}
	c, err := g1(proof.C[0], proof.C[1])
	if err != nil {
		return fmt.Errorf("%w: C: %w", ErrInvalidProof, err)
	}

	// vk_x = IC[0] + sum(input[i] * IC[i+1])
	var vkX bn254.G1Jac
	vkX.FromAffine(&g.ic[0])
	modulus := fr.Modulus()
	for i, in := range proof.Inputs {
		s, ok := new(big.Int).SetString(in, 10)
		if !ok || s.Sign() < 0 || s.Cmp(modulus) >= 0 {
			return fmt.Errorf("%w: public input %d is not a scalar field element", ErrInvalidProof, i)
		}
		var term bn254.G1Affine
		term.ScalarMultiplication(&g.ic[i+1], s)
		vkX.AddMixed(&term)
	}
	var vkXAff bn254.G1Affine
	vkXAff.FromJacobian(&vkX)

	var negA bn254.G1Affine
	negA.Neg(&a)

	ok, err := bn254.PairingCheck(
		[]bn254.G1Affine{negA, g.alpha, vkXAff, c},
		[]bn254.G2Affine{b, g.beta, g.gamma, g.delta},
	)
	if err != nil {
		return fmt.Errorf("%w: pairing: %w", ErrVerification, err)
	}
	if !ok {
		return ErrInvalidProof
	}
	return nil
}

func g1(x, y string) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if err := setFp(&p.X, x); err != nil {
		return p, fmt.Errorf("x: %w", err)
	}
	if err := setFp(&p.Y, y); err != nil {
		return p, fmt.Errorf("y: %w", err)
	}
	if !p.IsOnCurve() {
		return p, errors.New("point is not on G1")
	}
	return p, nil
}

// g2 decodes a point given as [[x.c0, x.c1], [y.c0, y.c1]].
func g2(x, y [2]string) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if err := setFp(&p.X.A0, x[0]); err != nil {
		return p, fmt.Errorf("x.c0: %w", err)
	}
	if err := setFp(&p.X.A1, x[1]); err != nil {
		return p, fmt.Errorf("x.c1: %w", err)
	}
	if err := setFp(&p.Y.A0, y[0]); err != nil {
		return p, fmt.Errorf("y.c0: %w", err)
	}
	if err := setFp(&p.Y.A1, y[1]); err != nil {
		return p, fmt.Errorf("y.c1: %w", err)
	}
	if !p.IsOnCurve() || !p.IsInSubGroup() {
		return p, errors.New("point is not on G2")
	}
	return p, nil
}

func setFp(dst *fp.Element, s string) error {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("%q is not a decimal integer", s)
	}
	if v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return fmt.Errorf("%q is not a base field element", s)
	}
	dst.SetBigInt(v)
	return nil
}
