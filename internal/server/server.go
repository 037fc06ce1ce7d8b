// Package server serves snippets over HTTP.
//
// Routes:
//
//	GET /             the configured manifest as a page
//	GET /snippet      a single snippet, once it settles
//	GET /snippet/ws   a single snippet, streamed as it loads
//	GET /_/*          static assets
//	GET /healthz      liveness
package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"braces.dev/errtrace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tofupilot/codeblock/internal/html"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/page"
	"github.com/tofupilot/codeblock/internal/snippet"
)

// DefaultTimeout bounds how long a request waits for snippets to settle.
const DefaultTimeout = 10 * time.Second

// Server serves snippets and pages of snippets.
type Server struct {
	Pipeline *snippet.Pipeline // required
	Renderer *html.Renderer    // required

	// Manifest served at the root.
	// The root 404s if this is nil.
	Manifest *page.Manifest

	// Timeout for snippets to settle before a response is written.
	// Snippets still loading are rendered as they stand.
	// Defaults to DefaultTimeout.
	Timeout time.Duration

	Log *log.Logger
}

// Handler builds the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	h := &handler{
		pipeline: s.Pipeline,
		renderer: s.Renderer,
		manifest: s.Manifest,
		timeout:  s.Timeout,
		log:      s.Log,
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	if h.log == nil {
		h.log = log.New(io.Discard, "", 0)
	}
	fragments := *s.Renderer
	fragments.Embedded = true
	h.fragments = &fragments

	staticURL := s.Renderer.StaticURL
	if staticURL == "" {
		staticURL = html.DefaultStaticURL
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", h.healthz)
	r.Get("/", h.page)
	r.Get("/snippet", h.snippet)
	r.Get("/snippet/ws", h.stream)
	r.Get("/"+strings.Trim(staticURL, "/")+"/*", h.static)
	return r
}

type handler struct {
	pipeline  *snippet.Pipeline
	renderer  *html.Renderer
	fragments *html.Renderer // embedded variant of renderer
	manifest  *page.Manifest
	timeout   time.Duration
	log       *log.Logger
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (h *handler) page(w http.ResponseWriter, r *http.Request) {
	if h.manifest == nil {
		http.NotFound(w, r)
		return
	}

	p := h.manifest.Mount(h.pipeline)
	defer p.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		h.log.Printf("page: rendering unsettled snippets: %v", err)
	}

	h.writeHTML(w, func(buf *bytes.Buffer) error {
		return h.renderer.RenderPage(buf, p.Info())
	})
}

func (h *handler) snippet(w http.ResponseWriter, r *http.Request) {
	src, mode, err := sourceFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sn := h.pipeline.Mount(src, mode)
	defer sn.Close()

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	v, err := sn.Wait(ctx)
	if err != nil {
		h.log.Printf("snippet: rendering unsettled snippet: %v", err)
	}

	h.writeHTML(w, func(buf *bytes.Buffer) error {
		return h.renderer.RenderSnippet(buf, &v)
	})
}

// writeHTML renders into a buffer first
// so that a failed render doesn't leave a partial response.
func (h *handler) writeHTML(w http.ResponseWriter, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		h.log.Printf("render: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, snippet.ErrNoMarkup) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (h *handler) static(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(chi.URLParam(r, "*"))
	bs, err := h.renderer.StaticFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		h.log.Printf("static %v: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if typ := mime.TypeByExtension(path.Ext(name)); typ != "" {
		w.Header().Set("Content-Type", typ)
	}
	_, _ = w.Write(bs)
}

// sourceFromQuery reads a snippet source from the request's query.
//
//	?path=examples/a.py&branch=dev&title=A
//	?code=print(1)&language=python&mode=bare
func sourceFromQuery(r *http.Request) (snippet.Source, snippet.Mode, error) {
	q := r.URL.Query()
	entry := page.Entry{
		Code:     q.Get("code"),
		Language: language.ID(q.Get("language")),
		Path:     q.Get("path"),
		Branch:   q.Get("branch"),
		Title:    q.Get("title"),
	}
	if err := entry.Validate(); err != nil {
		return snippet.Source{}, 0, errtrace.Wrap(err)
	}

	var mode snippet.Mode
	switch m := q.Get("mode"); m {
	case "", "panel":
		mode = snippet.ModePanel
	case "bare":
		mode = snippet.ModeBare
	default:
		return snippet.Source{}, 0, errtrace.Wrap(errors.New(`mode must be "panel" or "bare"`))
	}

	return entry.Source(), mode, nil
}
