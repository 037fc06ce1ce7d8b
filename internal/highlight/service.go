package highlight

import (
	"context"
	"io"
	"log"
	"strconv"

	"braces.dev/errtrace"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"
)

// Renderer is the highlighting engine behind a Service.
type Renderer interface {
	Highlight(src string, lang language.ID) (string, error)
}

var _ Renderer = (*Highlighter)(nil)

// Service highlights code at most once per (code, language) pair.
//
// Results are remembered in a bounded in-memory cache
// and concurrent requests for the same pair share a single render.
// Failures are not remembered.
type Service struct {
	renderer Renderer
	log      *log.Logger
	cache    *lru.Cache[xxh3.Uint128, string]
	group    singleflight.Group
}

// NewService builds a Service that remembers up to size results.
func NewService(r Renderer, size int, logger *log.Logger) (*Service, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	cache, err := lru.New[xxh3.Uint128, string](size)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	return &Service{
		renderer: r,
		log:      logger,
		cache:    cache,
	}, nil
}

// identity hashes a (code, language) pair.
func identity(code string, lang language.ID) xxh3.Uint128 {
	return xxh3.HashString128(string(lang) + "\x00" + code)
}

// Highlight returns highlighted markup for code.
//
// Languages that aren't available are rendered as plain text.
func (s *Service) Highlight(ctx context.Context, code string, lang language.ID) (string, error) {
	if !lang.Valid() {
		s.log.Printf("unsupported language %q: rendering as %v", lang, language.Plaintext)
		lang = language.Plaintext
	}

	key := identity(code, lang)
	if html, ok := s.cache.Get(key); ok {
		return html, nil
	}

	if err := ctx.Err(); err != nil {
		return "", errtrace.Wrap(err)
	}

	flightKey := strconv.FormatUint(key.Hi, 16) + ":" + strconv.FormatUint(key.Lo, 16)
	ch := s.group.DoChan(flightKey, func() (any, error) {
		html, err := s.renderer.Highlight(code, lang)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, html)
		return html, nil
	})

	select {
	case <-ctx.Done():
		return "", errtrace.Wrap(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", errtrace.Wrap(res.Err)
		}
		return res.Val.(string), nil
	}
}
