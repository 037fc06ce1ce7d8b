// Package snippet drives the lifecycle of code snippets:
// fetching remote code, highlighting it,
// and tracking what should be displayed at each step.
//
// A [Snippet] never blocks its callers.
// Fetching and highlighting run in the background
// and [Snippet.View] reports whatever is displayable right now.
// Raw code is shown until highlighted markup replaces it.
//
// Every change of source starts a new generation.
// Results that arrive for an older generation are dropped,
// so a slow fetch or highlight can't overwrite newer content.
package snippet

import (
	"context"
	"errors"
	"html/template"
	"io"
	"log"
	"sync"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/remote"
)

// Fetcher retrieves the text stored at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

var _ Fetcher = (remote.Fetcher)(nil)

// Highlighter turns code into highlighted HTML markup.
type Highlighter interface {
	Highlight(ctx context.Context, code string, lang language.ID) (string, error)
}

// ErrClosed is returned when waiting on a snippet that was closed.
var ErrClosed = errors.New("snippet closed")

// Pipeline holds the collaborators shared by snippets.
type Pipeline struct {
	Fetcher     Fetcher     // required
	Highlighter Highlighter // required

	// Repository from which remote sources are fetched.
	// Defaults to remote.DefaultRepository.
	Repository remote.Repository

	// Log receives debug output, if set.
	Log *log.Logger
}

// New builds an empty snippet that renders in the given mode.
// Give it a source with [Snippet.Set].
func (p *Pipeline) New(mode Mode) *Snippet {
	logger := p.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	repo := p.Repository
	if repo == (remote.Repository{}) {
		repo = remote.DefaultRepository
	}

	ctx, stop := context.WithCancel(context.Background())
	return &Snippet{
		fetcher:     p.Fetcher,
		highlighter: p.Highlighter,
		repo:        repo,
		log:         logger,
		mode:        mode,
		ctx:         ctx,
		stop:        stop,
		view:        View{Mode: mode},
		changed:     make(chan struct{}),
	}
}

// Mount builds a snippet and starts loading src into it.
func (p *Pipeline) Mount(src Source, mode Mode) *Snippet {
	s := p.New(mode)
	s.Set(src)
	return s
}

// Snippet is one renderable unit of source code.
//
// It is safe for concurrent use.
type Snippet struct {
	fetcher     Fetcher
	highlighter Highlighter
	repo        remote.Repository
	log         *log.Logger
	mode        Mode

	ctx  context.Context // canceled on Close
	stop context.CancelFunc

	mu      sync.Mutex // guards the fields below
	gen     uint64
	src     Source
	view    View
	cancel  context.CancelFunc // cancels the current generation's work
	changed chan struct{}      // closed and replaced on every change
	closed  bool
}

// Mode reports the shape this snippet renders in.
func (s *Snippet) Mode() Mode {
	return s.mode
}

// Set changes the source of the snippet.
//
// A source with the same identity as the current one
// (same code and language, or same path and branch)
// keeps the snippet's progress; only its title is updated.
// Anything else starts over as a brand new snippet.
func (s *Snippet) Set(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.gen > 0 && src.identity() == s.src.identity() {
		if src.ResolvedTitle() != s.view.Title {
			s.src = src
			s.view.Title = src.ResolvedTitle()
			s.notifyLocked()
		}
		return
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.src = src

	lang := src.ResolvedLanguage()
	s.view = View{
		Mode:     s.mode,
		Title:    src.ResolvedTitle(),
		Language: lang,
	}

	if src.IsRemote() {
		url := s.repo.ContentURL(src.Ref)
		s.view.State = StateFetching
		s.notifyLocked()
		go s.fetch(ctx, gen, url, lang)
		return
	}

	s.view.State = StateHighlighting
	s.view.Code = src.Code
	s.notifyLocked()
	go s.highlight(ctx, gen, src.Code, lang)
}

func (s *Snippet) fetch(ctx context.Context, gen uint64, url string, lang language.ID) {
	code, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.log.Printf("fetch %v: %v", url, err)
		s.apply(gen, func(v *View) {
			v.State = StateError
			v.Err = err.Error()
		})
		return
	}

	ok := s.apply(gen, func(v *View) {
		v.State = StateHighlighting
		v.Code = code
	})
	if ok {
		s.highlight(ctx, gen, code, lang)
	}
}

func (s *Snippet) highlight(ctx context.Context, gen uint64, code string, lang language.ID) {
	markup, err := s.highlighter.Highlight(ctx, code, lang)
	if err != nil {
		s.log.Printf("highlight %v: %v", lang, err)
		s.apply(gen, func(v *View) {
			v.State = StateFallback
			v.HighlightErr = err
		})
		return
	}

	s.apply(gen, func(v *View) {
		v.State = StateReady
		v.Markup = template.HTML(markup)
	})
}

// apply updates the view with fn if gen is still the current generation.
// It reports whether the update was applied.
func (s *Snippet) apply(gen uint64, fn func(*View)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || gen != s.gen {
		s.log.Printf("discarding result for stale generation %d (current %d)", gen, s.gen)
		return false
	}

	fn(&s.view)
	s.notifyLocked()
	return true
}

func (s *Snippet) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// View reports what the snippet should display right now.
func (s *Snippet) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Watch returns the current view
// and a channel that is closed when the view next changes.
func (s *Snippet) Watch() (View, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.changed
}

// Wait blocks until the snippet settles or ctx ends,
// and returns the latest view either way.
func (s *Snippet) Wait(ctx context.Context) (View, error) {
	for {
		s.mu.Lock()
		v, changed, closed := s.view, s.changed, s.closed
		s.mu.Unlock()

		switch {
		case v.Settled():
			return v, nil
		case closed:
			return v, errtrace.Wrap(ErrClosed)
		}

		select {
		case <-ctx.Done():
			return v, errtrace.Wrap(ctx.Err())
		case <-changed:
		}
	}
}

// Close stops any outstanding work.
// Results that arrive afterwards are discarded.
func (s *Snippet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.stop()
	s.notifyLocked()
}
