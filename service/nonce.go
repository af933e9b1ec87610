package service

import (
	"context"
	"fmt"
	"sync"
)

type nonceSource interface {
	PendingNonce(ctx context.Context) (uint64, error)
}

// nonceAllocator hands out contiguous nonce ranges. It never goes below what it
// already handed out, so a ledger that has not yet seen the previous batch
// cannot cause a nonce to be reused.
type nonceAllocator struct {
	mu    sync.Mutex
	src   nonceSource
	next  uint64
	valid bool
}

func newNonceAllocator(src nonceSource) *nonceAllocator {
	return &nonceAllocator{src: src}
}

// Reserve returns the first of n consecutive nonces.
func (a *nonceAllocator) Reserve(ctx context.Context, n int) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	pending, err := a.src.PendingNonce(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying pending nonce: %w", err)
	}
	base := pending
	if a.valid && a.next > base {
		base = a.next
	}
	a.next = base + uint64(n)
	a.valid = true
	return base, nil
}

// Release returns the nonces from next onwards to the allocator. It is used
// when fewer records than reserved were claimed.
func (a *nonceAllocator) Release(next uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.valid && next < a.next {
		a.next = next
	}
}

// Reset forgets the allocated range so that the next reservation starts from
// the ledger's pending nonce. Used after a broadcast failed and left a gap.
func (a *nonceAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.valid = false
}
