package oracle

import (
	"container/list"
	"context"
	"sync"
)

const defaultCacheSize = 100_000

// Cached memoizes scores in a bounded LRU in front of Inner.
type Cached struct {
	Inner Oracle

	mu  sync.Mutex
	cap int
	ll  *list.List
	m   map[string]*list.Element

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key   string
	score float64
}

func NewCached(inner Oracle, capacity int) *Cached {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	return &Cached{
		Inner: inner,
		cap:   capacity,
		ll:    list.New(),
		m:     make(map[string]*list.Element),
	}
}

func (c *Cached) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	out := make([]float64, len(sequences))
	var missing []string
	var missingIdx []int

	c.mu.Lock()
	for i, seq := range sequences {
		if e, ok := c.m[seq]; ok {
			c.ll.MoveToFront(e)
			out[i] = e.Value.(*cacheEntry).score
			c.hits++
			continue
		}
		missing = append(missing, seq)
		missingIdx = append(missingIdx, i)
		c.misses++
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}
	scores, err := Score(ctx, c.Inner, missing)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for j, seq := range missing {
		out[missingIdx[j]] = scores[j]
		c.put(seq, scores[j])
	}
	return out, nil
}

func (c *Cached) put(key string, score float64) {
	if e, ok := c.m[key]; ok {
		c.ll.MoveToFront(e)
		e.Value.(*cacheEntry).score = score
		return
	}
	c.m[key] = c.ll.PushFront(&cacheEntry{key: key, score: score})
	if c.ll.Len() > c.cap {
		tail := c.ll.Back()
		c.ll.Remove(tail)
		delete(c.m, tail.Value.(*cacheEntry).key)
	}
}

// Stats returns the hit and miss counters.
func (c *Cached) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
