package gateway

import "errors"

var (
	// ErrEstimation is returned when the ledger cannot estimate gas for a submission.
	ErrEstimation = errors.New("gas estimation failed")
	ErrReverted   = errors.New("transaction reverted")
	ErrTxNotFound = errors.New("transaction not found")
	ErrBadProofID = errors.New("proof id is not a uint256")
)
