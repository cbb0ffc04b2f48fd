package kernel

import "sync"

// Kind selects the kernel family stored in the cache
type Kind int

const (
	KindSpatial Kind = iota
	KindGaussian
	KindLoG
)

type cacheKey struct {
	kind  Kind
	size  int
	sigma float64
}

// Cache keeps built kernels keyed by (kind, window size, sigma). Returned
// slices are shared and must not be modified.
type Cache struct {
	mu      sync.RWMutex
	kernels map[cacheKey][]float64
	maxLen  int
}

var defaultCache = NewCache(64)

// NewCache creates a kernel cache holding at most maxLen kernels
func NewCache(maxLen int) *Cache {
	return &Cache{
		kernels: make(map[cacheKey][]float64),
		maxLen:  maxLen,
	}
}

// Get retrieves a kernel from the cache or builds and stores it
func (c *Cache) Get(kind Kind, size int, sigma float64) []float64 {
	key := cacheKey{kind: kind, size: size, sigma: sigma}

	c.mu.RLock()
	if k, ok := c.kernels[key]; ok {
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	var k []float64
	switch kind {
	case KindGaussian:
		k = GaussianKernel(size, sigma)
	case KindLoG:
		k = LoGKernel(size, sigma)
	default:
		k = SpatialKernel(size, sigma)
	}

	c.mu.Lock()
	if len(c.kernels) >= c.maxLen {
		// drop everything; a call reuses only a handful of kernels
		c.kernels = make(map[cacheKey][]float64)
	}
	c.kernels[key] = k
	c.mu.Unlock()

	return k
}

// Len reports how many kernels are cached
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.kernels)
}

// Cached reads from the process-wide cache
func Cached(kind Kind, size int, sigma float64) []float64 {
	return defaultCache.Get(kind, size, sigma)
}
