package verifier

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru"
	"github.com/minio/sha256-simd"
	"go.uber.org/zap"

	"github.com/DebRC/Vortex-Layer-1.5/logging"
	"github.com/DebRC/Vortex-Layer-1.5/shared"
)

// caching remembers definitive outcomes of its Verifier.
// Errors that do not wrap ErrInvalidProof are never cached.
type caching struct {
	cache    *lru.Cache
	verifier Verifier
}

type cachedResult struct {
	err error
}

func (c *caching) Verify(ctx context.Context, proof *shared.Proof) error {
	key := digest(proof)
	logger := logging.FromContext(ctx).With(zap.Binary("proof", key[:8]))
	if result, ok := c.cache.Get(key); ok {
		logger.Debug("retrieved verification result from the cache")
		// SAFETY: only *cachedResult values are inserted.
		return result.(*cachedResult).err
	}

	err := c.verifier.Verify(ctx, proof)
	if err == nil || errors.Is(err, ErrInvalidProof) {
		c.cache.Add(key, &cachedResult{err: err})
	}
	return err
}

func NewCaching(size int, verifier Verifier) (Verifier, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &caching{
		cache:    cache,
		verifier: verifier,
	}, nil
}

func digest(p *shared.Proof) [sha256.Size]byte {
	var out [sha256.Size]byte
	hasher := sha256.New()
	write := func(s string) {
		hasher.Write([]byte(s))
		hasher.Write([]byte{0})
	}
	for _, s := range [...]string{p.A[0], p.A[1], p.B[0][0], p.B[0][1], p.B[1][0], p.B[1][1], p.C[0], p.C[1]} {
		write(s)
	}
	hasher.Write([]byte{1})
	for _, s := range p.Inputs {
		write(s)
	}
	hasher.Sum(out[:0])
	return out
}
