package typeexpr

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct annotations kept by a Cache
// when no size is configured.
const DefaultCacheSize = 1024

// Cache memoizes Parse results. Types are immutable, so cached trees are
// shared between callers. Safe for concurrent use.
type Cache struct {
	entries *lru.Cache[string, *Type]
}

// NewCache returns a Cache holding up to size parsed annotations.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, *Type](size)
	if err != nil {
		return nil, fmt.Errorf("typeexpr: new cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Parse returns the cached tree for s, parsing it on a miss. A nil Cache
// parses directly.
func (c *Cache) Parse(s string) *Type {
	key := strings.TrimSpace(s)
	if c == nil {
		return Parse(key)
	}
	if t, ok := c.entries.Get(key); ok {
		return t
	}
	t := Parse(key)
	c.entries.Add(key, t)
	return t
}

// Len reports how many annotations are cached.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
