package server

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// pageCache stores rendered pages. Entries are keyed by method, path, query
// string and Accept-Language and hold the full response.
type pageCache struct {
	entries  *gocache.Cache
	ttl      time.Duration
	disabled bool // dev mode or a zero TTL
}

// cachedPage is one rendered response.
type cachedPage struct {
	status  int
	headers http.Header
	body    []byte
}

// newPageCache creates a page cache. Caching is off in dev mode so edits
// show up on the next request.
func newPageCache(devMode bool, ttl time.Duration) *pageCache {
	c := &pageCache{ttl: ttl, disabled: devMode || ttl <= 0}
	if !c.disabled {
		c.entries = gocache.New(ttl, 2*ttl)
	}
	return c
}

// cacheKey generates a unique key for a request. Accept-Language is part of
// it because remote data is fetched in the client's language.
func cacheKey(r *http.Request) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(":"))
	h.Write([]byte(r.URL.Path))
	h.Write([]byte("?"))
	h.Write([]byte(r.URL.RawQuery))
	h.Write([]byte("\n"))
	h.Write([]byte(r.Header.Get("Accept-Language")))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached page for r, or nil.
func (c *pageCache) Get(r *http.Request) *cachedPage {
	if c.disabled {
		return nil
	}
	if v, ok := c.entries.Get(cacheKey(r)); ok {
		return v.(*cachedPage)
	}
	return nil
}

// Set stores a rendered page.
func (c *pageCache) Set(r *http.Request, status int, headers http.Header, body []byte) {
	if c.disabled {
		return
	}
	c.entries.SetDefault(cacheKey(r), &cachedPage{
		status:  status,
		headers: headers.Clone(),
		body:    body,
	})
}

// Clear removes all entries from the cache.
func (c *pageCache) Clear() {
	if c.disabled {
		return
	}
	c.entries.Flush()
}

// Size returns the number of entries in the cache.
func (c *pageCache) Size() int {
	if c.disabled {
		return 0
	}
	return c.entries.ItemCount()
}

// write replays a cached page.
func (p *cachedPage) write(w http.ResponseWriter) {
	for k, v := range p.headers {
		w.Header()[k] = append(w.Header()[k], v...)
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(p.status)
	w.Write(p.body)
}
