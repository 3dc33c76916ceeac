package embedder

import "sync"

// DefaultCacheSize is the default maximum number of cached embeddings
const DefaultCacheSize = 10000

// Cache is an in-memory FIFO cache of embedding results keyed by exact
// text. When a new key is inserted at capacity, the oldest inserted entry
// is evicted regardless of access pattern. Updating an existing key keeps
// its insertion position and evicts nothing.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Result
	order   []string
	maxSize int
	hits    int
	misses  int
}

// CacheStats reports cache occupancy and effectiveness.
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int     `json:"hits"`
	Misses  int     `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCache creates a FIFO embedding cache. Non-positive sizes fall back to
// DefaultCacheSize.
func NewCache(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &Cache{
		entries: make(map[string]*Result),
		maxSize: maxSize,
	}
}

// Get returns a deep copy of the cached result for text, or false on a
// miss. Copies prevent caller mutations from reaching cached vectors.
func (c *Cache) Get(text string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return copyResult(result), true
}

// Put stores a result under its exact text key.
func (c *Cache) Put(text string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[text]; exists {
		c.entries[text] = copyResult(result)
		return
	}

	if len(c.entries) >= c.maxSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[text] = copyResult(result)
	c.order = append(c.order, text)
}

// Len returns the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    len(c.entries),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

func copyResult(r *Result) *Result {
	vector := make([]float32, len(r.Embedding))
	copy(vector, r.Embedding)
	return &Result{
		Text:       r.Text,
		Embedding:  vector,
		Model:      r.Model,
		TokenCount: r.TokenCount,
	}
}
