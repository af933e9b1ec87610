package gateway

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

// VortexABI is the subset of the Vortex storage contract used by the validator.
const VortexABI = `[
  {
    "type": "event",
    "name": "ProofAnnounced",
    "anonymous": false,
    "inputs": [
      {"name": "proofId", "type": "uint256", "indexed": true},
      {"name": "a", "type": "uint256[2]", "indexed": false},
      {"name": "b", "type": "uint256[2][2]", "indexed": false},
      {"name": "c", "type": "uint256[2]", "indexed": false},
      {"name": "publicInputs", "type": "uint256[]", "indexed": false}
    ]
  },
  {
    "type": "function",
    "name": "submitState",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "proofId", "type": "uint256"},
      {"name": "state", "type": "bytes32"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "announceProof",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "a", "type": "uint256[2]"},
      {"name": "b", "type": "uint256[2][2]"},
      {"name": "c", "type": "uint256[2]"},
      {"name": "publicInputs", "type": "uint256[]"}
    ],
    "outputs": [{"name": "", "type": "uint256"}]
  }
]`

const (
	eventProofAnnounced = "ProofAnnounced"
	methodSubmitState   = "submitState"
	methodAnnounceProof = "announceProof"
)

var vortexABI = mustParseABI(VortexABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parsing contract ABI: %v", err))
	}
	return parsed
}

type proofAnnounced struct {
	A            [2]*big.Int
	B            [2][2]*big.Int
	C            [2]*big.Int
	PublicInputs []*big.Int
}

// decodeAnnouncement decodes a ProofAnnounced log.
func decodeAnnouncement(log types.Log) (Announcement, error) {
	event := vortexABI.Events[eventProofAnnounced]
	if len(log.Topics) != 2 || log.Topics[0] != event.ID {
		return Announcement{}, fmt.Errorf("log %s:%d is not a %s event", log.TxHash, log.Index, eventProofAnnounced)
	}

	var ev proofAnnounced
	if err := vortexABI.UnpackIntoInterface(&ev, eventProofAnnounced, log.Data); err != nil {
		return Announcement{}, fmt.Errorf("unpacking %s: %w", eventProofAnnounced, err)
	}
	proof, err := shared.ProofFromInts(ev.A, ev.B, ev.C, ev.PublicInputs)
	if err != nil {
		return Announcement{}, err
	}
	return Announcement{
		ID:    new(big.Int).SetBytes(log.Topics[1].Bytes()).String(),
		Block: log.BlockNumber,
		Proof: proof,
	}, nil
}

func parseProofID(id string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(id, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%w: %q", ErrBadProofID, id)
	}
	return v, nil
}

func packSubmitState(proofID string, commitment [32]byte) ([]byte, error) {
	id, err := parseProofID(proofID)
	if err != nil {
		return nil, err
	}
	return vortexABI.Pack(methodSubmitState, id, commitment)
}

func packAnnounceProof(p *shared.Proof) ([]byte, error) {
	a, b, c, inputs, err := p.Ints()
	if err != nil {
		return nil, err
	}
	return vortexABI.Pack(methodAnnounceProof, a, b, c, inputs)
}
