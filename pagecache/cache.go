// Package pagecache memoizes fetched pages by URL for the lifetime of a
// navigator.
package pagecache

import (
	"sync"

	"pagenav/page"
)

// Cache maps exact URL strings to fetched pages. Entries never expire; they
// are dropped only by Delete or Clear.
type Cache struct {
	mu    sync.RWMutex
	pages map[string]*page.FetchedPage
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{pages: make(map[string]*page.FetchedPage)}
}

// Get returns the page stored for url.
func (c *Cache) Get(url string) (*page.FetchedPage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pages[url]
	return p, ok
}

// Set stores p under url, replacing any previous entry.
func (c *Cache) Set(url string, p *page.FetchedPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[url] = p
}

// Has reports whether url is cached.
func (c *Cache) Has(url string) bool {
	_, ok := c.Get(url)
	return ok
}

// Delete drops a single entry.
func (c *Cache) Delete(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, url)
}

// Clear drops every entry. Call it after a server-side mutation whose result
// must show up on the next navigation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[string]*page.FetchedPage)
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
