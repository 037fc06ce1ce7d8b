package remote

import (
	"context"
	"io"
	"log"

	"braces.dev/errtrace"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// CachingFetcher wraps a Fetcher,
// deduplicating concurrent requests for the same URL
// and remembering successful responses in memory.
//
// Failures are never cached.
type CachingFetcher struct {
	fetcher Fetcher
	log     *log.Logger
	cache   *lru.Cache[string, string]
	group   singleflight.Group
}

// NewCachingFetcher builds a CachingFetcher that holds up to size bodies.
func NewCachingFetcher(f Fetcher, size int, logger *log.Logger) (*CachingFetcher, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &CachingFetcher{
		fetcher: f,
		log:     logger,
		cache:   cache,
	}, nil
}

// Fetch returns the cached body for url,
// or fetches it with the underlying Fetcher.
//
// Callers asking for the same URL concurrently share one request.
// A caller whose context ends stops waiting,
// but the shared request continues for the others.
func (c *CachingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if body, ok := c.cache.Get(url); ok {
		c.log.Printf("cache hit: %v", url)
		return body, nil
	}

	ch := c.group.DoChan(url, func() (any, error) {
		body, err := c.fetcher.Fetch(context.WithoutCancel(ctx), url)
		if err != nil {
			return nil, err
		}
		c.cache.Add(url, body)
		return body, nil
	})

	select {
	case <-ctx.Done():
		return "", errtrace.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", errtrace.Wrap(res.Err)
		}
		if res.Shared {
			c.log.Printf("shared fetch: %v", url)
		}
		return res.Val.(string), nil
	}
}
