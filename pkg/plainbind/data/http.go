package data

import (
	"context"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html"

	"github.com/sambeau/plainbind/pkg/plainbind/errors"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultCleanupInterval = 10 * time.Minute

	// maxBodySize caps the size of a fetched data document.
	maxBodySize = 10 << 20
)

// NewCache returns a response cache for HTTPSource. Entries expire after
// ttl.
func NewCache(ttl time.Duration) *gocache.Cache {
	return gocache.New(ttl, DefaultCleanupInterval)
}

// HTTPSource fetches the data document from a URL.
type HTTPSource struct {
	URL     string
	Client  *http.Client   // http.DefaultClient when nil
	Cache   *gocache.Cache // optional; decoded objects keyed by URL and Header
	Timeout time.Duration  // DefaultTimeout when zero
	Header  http.Header    // extra request headers, e.g. forwarded cookies
}

// Load performs a GET request. Non-2xx responses and undecodable bodies are
// errors. Cached objects are copied in and out, so callers may modify the
// returned map.
func (s HTTPSource) Load(ctx context.Context, _ *html.Node) (map[string]any, error) {
	if s.Cache != nil {
		if cached, found := s.Cache.Get(s.cacheKey()); found {
			if obj, ok := cached.(map[string]any); ok {
				return cloneJSON(obj).(map[string]any), nil
			}
		}
	}

	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, s.fetchError(err)
	}
	for key, values := range s.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", jsonType)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, s.fetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New("FETCH-0001", map[string]any{"URL": s.URL, "Status": resp.StatusCode})
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, s.fetchError(err)
	}
	obj, err := Decode(b)
	if err != nil {
		return nil, s.fetchError(err)
	}

	if s.Cache != nil {
		s.Cache.SetDefault(s.cacheKey(), cloneJSON(obj))
	}
	return obj, nil
}

func (s HTTPSource) fetchError(err error) error {
	return errors.New("FETCH-0002", map[string]any{"URL": s.URL, "Err": err.Error()})
}

// cacheKey is the URL plus every forwarded header, since the response may
// differ by any of them (Accept-Language in particular).
func (s HTTPSource) cacheKey() string {
	if len(s.Header) == 0 {
		return s.URL
	}
	var b strings.Builder
	b.WriteString(s.URL)
	for _, k := range slices.Sorted(maps.Keys(s.Header)) {
		b.WriteString("\n")
		b.WriteString(http.CanonicalHeaderKey(k))
		b.WriteString(": ")
		b.WriteString(strings.Join(s.Header[k], ", "))
	}
	return b.String()
}

// cloneJSON deep-copies a decoded JSON value.
func cloneJSON(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneJSON(e)
		}
		return m
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = cloneJSON(e)
		}
		return a
	}
	return v
}
