package fetch

import "sync"

// Cache maps URLs to responses fetched during one run.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Response
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Response)}
}

// Get returns the cached response for url
func (c *Cache) Get(url string) (*Response, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[url]
	return resp, ok
}

// Put stores resp under url
func (c *Cache) Put(url string, resp *Response) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = resp
}

// Len returns the number of cached URLs
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
