package scorer

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"spam-detector/internal/sequence"
)

// Cached memoizes scores of identical encoded sequences. Errors are never cached.
type Cached struct {
	next  Scorer
	cache *lru.Cache[string, float64]
}

// NewCached wraps next with an LRU of the given size. A size of zero or less disables caching.
func NewCached(next Scorer, size int) (Scorer, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Score(ctx context.Context, seq sequence.Encoded) (float64, error) {
	key := seq.Key()
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.next.Score(ctx, seq)
	if err != nil {
		return 0, err
	}
	c.cache.Add(key, p)
	return p, nil
}

func (c *Cached) Health(ctx context.Context) error { return c.next.Health(ctx) }

func (c *Cached) Info() Info { return c.next.Info() }

// Len is the number of cached scores.
func (c *Cached) Len() int { return c.cache.Len() }
