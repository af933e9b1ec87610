package store

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zapcore"

	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

// Status is the lifecycle stage of a proof.
type Status uint32

const (
	Pending Status = iota
	Verifying
	Verified
	Failed
	Submitting
	Submitted
)

var statusNames = map[Status]string{
	Pending:    "pending",
	Verifying:  "verifying",
	Verified:   "verified",
	Failed:     "failed",
	Submitting: "submitting",
	Submitted:  "submitted",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", uint32(s))
}

// Statuses lists every status in graph order.
var Statuses = []Status{Pending, Verifying, Verified, Submitting, Submitted, Failed}

// transitions is the lifecycle graph. Failed and Submitted are terminal.
var transitions = map[Status][]Status{
	Pending:    {Verifying},
	Verifying:  {Verified, Failed},
	Verified:   {Submitting, Failed},
	Submitting: {Submitted, Failed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

const (
	ReasonInvalid       = "invalid"
	ReasonExpired       = "expired"
	ReasonSubmitExpired = "submit-expired"
)

// Submission is the bookkeeping of the state commitment transaction of a proof.
type Submission struct {
	Nonce       uint64
	TxHash      common.Hash
	Attempts    uint32
	Broadcast   bool
	ConfirmedAt uint64
	LastError   string
}

// Started reports whether a submission attempt was ever made.
func (s *Submission) Started() bool {
	return s.Attempts > 0
}

// Record is the lifecycle record of a single announced proof.
type Record struct {
	ID          string
	Status      Status
	AnnouncedAt uint64
	Proof       shared.Proof
	Submission  Submission
	FailReason  string
}

func (r *Record) clone() Record {
	c := *r
	c.Proof.Inputs = append([]string(nil), r.Proof.Inputs...)
	return c
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r Record) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", r.ID)
	enc.AddString("status", r.Status.String())
	enc.AddUint64("announced_at", r.AnnouncedAt)
	if r.Submission.Started() {
		enc.AddUint64("nonce", r.Submission.Nonce)
		enc.AddUint32("attempts", r.Submission.Attempts)
	}
	if r.FailReason != "" {
		enc.AddString("fail_reason", r.FailReason)
	}
	return nil
}
