package shared

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap/zapcore"
)

var ErrMalformedProof = errors.New("malformed proof")

// G1 is an affine point on the BN254 G1 curve given as decimal coordinates.
type G1 [2]string

// G2 is an affine point on the BN254 G2 twist. Each coordinate is an Fp2
// element given as [c0, c1].
type G2 [2][2]string

// Proof is a Groth16 proof as announced on-chain, together with its public inputs.
// Values are kept in decimal form so that the record is stable across encodings
// (leveldb, snarkjs JSON, ABI words).
type Proof struct {
	A      G1
	B      G2
	C      G1
	Inputs []string
}

// ProofFromInts builds a Proof from the ABI-decoded announcement arguments.
func ProofFromInts(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, inputs []*big.Int) (Proof, error) {
	var p Proof
	for i := range a {
		if a[i] == nil || c[i] == nil {
			return Proof{}, fmt.Errorf("%w: nil G1 coordinate", ErrMalformedProof)
		}
		p.A[i] = a[i].String()
		p.C[i] = c[i].String()
		for j := range b[i] {
			if b[i][j] == nil {
				return Proof{}, fmt.Errorf("%w: nil G2 coordinate", ErrMalformedProof)
			}
			p.B[i][j] = b[i][j].String()
		}
	}
	p.Inputs = make([]string, 0, len(inputs))
	for i, in := range inputs {
		if in == nil {
			return Proof{}, fmt.Errorf("%w: nil public input %d", ErrMalformedProof, i)
		}
		p.Inputs = append(p.Inputs, in.String())
	}
	return p, nil
}

// Ints parses the decimal representation back into ABI-ready integers.
func (p *Proof) Ints() (a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, inputs []*big.Int, err error) {
	for i := 0; i < 2; i++ {
		if a[i], err = parseWord(p.A[i]); err != nil {
			return a, b, c, nil, fmt.Errorf("A[%d]: %w", i, err)
		}
		if c[i], err = parseWord(p.C[i]); err != nil {
			return a, b, c, nil, fmt.Errorf("C[%d]: %w", i, err)
		}
		for j := 0; j < 2; j++ {
			if b[i][j], err = parseWord(p.B[i][j]); err != nil {
				return a, b, c, nil, fmt.Errorf("B[%d][%d]: %w", i, j, err)
			}
		}
	}
	inputs = make([]*big.Int, len(p.Inputs))
	for i, in := range p.Inputs {
		if inputs[i], err = parseWord(in); err != nil {
			return a, b, c, nil, fmt.Errorf("input %d: %w", i, err)
		}
	}
	return a, b, c, inputs, nil
}

// Validate checks that every component is a well-formed uint256.
func (p *Proof) Validate() error {
	_, _, _, _, err := p.Ints()
	return err
}

var maxWord = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func parseWord(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a decimal integer", ErrMalformedProof, s)
	}
	if v.Sign() < 0 || v.Cmp(maxWord) > 0 {
		return nil, fmt.Errorf("%w: %q does not fit in uint256", ErrMalformedProof, s)
	}
	return v, nil
}

var commitmentArgs = abi.Arguments{
	{Type: mustType("uint256[2]")},
	{Type: mustType("uint256[2][2]")},
	{Type: mustType("uint256[2]")},
	{Type: mustType("uint256[]")},
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// Commitment is the state commitment submitted on-chain for a proof:
// keccak256(abi.encode(a, b, c, inputs)).
func (p *Proof) Commitment() (common.Hash, error) {
	a, b, c, inputs, err := p.Ints()
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := commitmentArgs.Pack(a, b, c, inputs)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encoding commitment: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (p Proof) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("a.x", p.A[0])
	enc.AddString("c.x", p.C[0])
	enc.AddInt("inputs", len(p.Inputs))
	return nil
}
