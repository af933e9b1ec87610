package shared

import (
	"fmt"
	"path/filepath"

	"github.com/DebRC/Vortex-Layer-1.5/util"
)

const (
	ProofFilename  = "proof.json"
	PublicFilename = "public.json"
)

// SnarkJSProof is the proof.json layout produced and consumed by snarkjs.
// Points are projective with the trailing coordinate set to one.
type SnarkJSProof struct {
	PiA      [3]string    `json:"pi_a"`
	PiB      [3][2]string `json:"pi_b"`
	PiC      [3]string    `json:"pi_c"`
	Protocol string       `json:"protocol"`
	Curve    string       `json:"curve"`
}

func (p *Proof) SnarkJS() SnarkJSProof {
	return SnarkJSProof{
		PiA:      [3]string{p.A[0], p.A[1], "1"},
		PiB:      [3][2]string{p.B[0], p.B[1], {"1", "0"}},
		PiC:      [3]string{p.C[0], p.C[1], "1"},
		Protocol: "groth16",
		Curve:    "bn128",
	}
}

func (s *SnarkJSProof) Proof(public []string) Proof {
	return Proof{
		A:      G1{s.PiA[0], s.PiA[1]},
		B:      G2{s.PiB[0], s.PiB[1]},
		C:      G1{s.PiC[0], s.PiC[1]},
		Inputs: append([]string{}, public...),
	}
}

// WriteSnarkJS writes proof.json and public.json for the proof into dir.
func WriteSnarkJS(dir string, p *Proof) (proofPath, publicPath string, err error) {
	proofPath = filepath.Join(dir, ProofFilename)
	publicPath = filepath.Join(dir, PublicFilename)
	if err := util.PersistJSON(proofPath, p.SnarkJS()); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", ProofFilename, err)
	}
	inputs := p.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	if err := util.PersistJSON(publicPath, inputs); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", PublicFilename, err)
	}
	return proofPath, publicPath, nil
}

// LoadSnarkJS reads proof.json and public.json from dir.
func LoadSnarkJS(dir string) (Proof, error) {
	var sp SnarkJSProof
	if err := util.LoadJSON(filepath.Join(dir, ProofFilename), &sp); err != nil {
		return Proof{}, err
	}
	var public []string
	if err := util.LoadJSON(filepath.Join(dir, PublicFilename), &public); err != nil {
		return Proof{}, err
	}
	p := sp.Proof(public)
	if err := p.Validate(); err != nil {
		return Proof{}, fmt.Errorf("proof in %s: %w", dir, err)
	}
	return p, nil
}
