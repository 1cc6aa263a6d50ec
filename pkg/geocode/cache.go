package geocode

import (
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache holds recent Search results keyed by normalized query text.
// Empty results are cached too; errors never are.
type Cache struct {
	c *cache.Cache
}

// NewCache creates a Cache whose entries expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

// Get returns the cached candidates for query.
func (c *Cache) Get(query string) ([]Candidate, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.c.Get(cacheKey(query))
	if !ok {
		return nil, false
	}
	return v.([]Candidate), true
}

// Set stores candidates for query using the default expiration.
func (c *Cache) Set(query string, candidates []Candidate) {
	if c == nil {
		return
	}
	c.c.SetDefault(cacheKey(query), candidates)
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.c.ItemCount()
}

func cacheKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
