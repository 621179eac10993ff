package markup

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// CachedAnnotator memoises another Annotator's results keyed by a BLAKE2b
// digest of the text. The oldest entry is evicted once size is reached.
// Failed annotations are never cached. It is safe for concurrent use when the
// wrapped Annotator is.
type CachedAnnotator struct {
	next Annotator
	size int

	mu      sync.Mutex
	entries map[[blake2b.Size256]byte][]Mention
	order   *list.List // of [blake2b.Size256]byte, oldest first
}

// NewCachedAnnotator wraps next with a cache of at most size texts.
// A size of zero or less disables caching.
func NewCachedAnnotator(next Annotator, size int) *CachedAnnotator {
	return &CachedAnnotator{
		next:    next,
		size:    size,
		entries: make(map[[blake2b.Size256]byte][]Mention),
		order:   list.New(),
	}
}

// Annotate returns cached mentions for text or delegates to the wrapped
// Annotator.
func (c *CachedAnnotator) Annotate(ctx context.Context, text string) ([]Mention, error) {
	if c.size <= 0 {
		return c.next.Annotate(ctx, text)
	}

	key := blake2b.Sum256([]byte(text))

	c.mu.Lock()
	cached, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return cloneMentions(cached), nil
	}

	mentions, err := c.next.Annotate(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		for c.order.Len() >= c.size {
			oldest := c.order.Front()
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.([blake2b.Size256]byte))
		}
		c.entries[key] = cloneMentions(mentions)
		c.order.PushBack(key)
	}
	return mentions, nil
}

// Len returns the number of cached texts.
func (c *CachedAnnotator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneMentions(m []Mention) []Mention {
	if m == nil {
		return nil
	}
	out := make([]Mention, len(m))
	copy(out, m)
	return out
}
