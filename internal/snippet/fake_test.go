package snippet

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tofupilot/codeblock/internal/iotest"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/remote"
)

const _testTimeout = 5 * time.Second

// fakeFetcher serves canned responses keyed by URL.
// URLs with a gate block until the gate is closed,
// ignoring context cancellation to simulate late arrivals.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	gates  map[string]chan struct{}
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) Serve(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
}

func (f *fakeFetcher) Fail(url, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = errors.New(msg)
}

// Gate makes fetches of url block until the returned function is called.
func (f *fakeFetcher) Gate(url string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[url] = gate
	return func() { close(gate) }
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	gate := f.gates[url]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if body, ok := f.bodies[url]; ok {
		return body, nil
	}
	return "", errors.New("404 Not Found")
}

// fakeHighlighter wraps code in a span.
// Code with a gate blocks until the gate is closed,
// ignoring context cancellation to simulate late results.
type fakeHighlighter struct {
	mu    sync.Mutex
	fail  map[string]error
	gates map[string]chan struct{}
	calls []string
}

func (h *fakeHighlighter) FailOn(code string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail == nil {
		h.fail = make(map[string]error)
	}
	h.fail[code] = err
}

// Gate makes highlighting of code block until the returned function is called.
func (h *fakeHighlighter) Gate(code string) (release func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gates == nil {
		h.gates = make(map[string]chan struct{})
	}
	gate := make(chan struct{})
	h.gates[code] = gate
	return func() { close(gate) }
}

func (h *fakeHighlighter) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHighlighter) Highlight(_ context.Context, code string, lang language.ID) (string, error) {
	h.mu.Lock()
	h.calls = append(h.calls, code)
	gate := h.gates[code]
	h.mu.Unlock()

	if gate != nil {
		<-gate
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.fail[code]; ok {
		return "", err
	}
	return `<span class="` + string(lang) + `">` + code + "</span>", nil
}

var _testRepo = remote.Repository{Org: "acme", Repo: "demo"}

func contentURL(path string) string {
	return _testRepo.ContentURL(remote.Reference{Path: path})
}

func newTestPipeline(t *testing.T) (*Pipeline, *fakeFetcher, *fakeHighlighter) {
	f := newFakeFetcher()
	h := new(fakeHighlighter)
	return &Pipeline{
		Fetcher:     f,
		Highlighter: h,
		Repository:  _testRepo,
		Log:         log.New(iotest.Writer(t), "", 0),
	}, f, h
}

func waitSettled(t *testing.T, s *Snippet) View {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), _testTimeout)
	defer cancel()

	v, err := s.Wait(ctx)
	require.NoError(t, err)
	return v
}
