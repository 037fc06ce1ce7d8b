// Package html renders snippets into HTML.
package html

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/must"
	"github.com/tofupilot/codeblock/internal/snippet"
)

// DefaultStaticURL is where pages expect static assets by default,
// relative to the page.
const DefaultStaticURL = "_"

var (
	//go:embed tmpl/*.html
	_tmplFS embed.FS

	//go:embed static/**
	_staticFS embed.FS

	// Trick borrowed from pkgsite:
	// Unusable function references at parse time,
	// and then Clone and replace at render time.
	// This way, template validity is still
	// verified at init.
	_snippetTmpl = template.Must(
		template.New("snippet.html").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/snippet.html", "tmpl/layout.html", "tmpl/blocks.html"),
	)

	_groupTmpl = template.Must(
		template.New("group.html").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/group.html", "tmpl/layout.html", "tmpl/blocks.html"),
	)

	_pageTmpl = template.Must(
		template.New("page.html").
			Funcs((*render)(nil).FuncMap()).
			ParseFS(_tmplFS, "tmpl/page.html", "tmpl/layout.html", "tmpl/blocks.html"),
	)
)

// Highlighter provides the styling for highlighted code.
type Highlighter interface {
	ContainerAttr() template.HTMLAttr
	WriteCSS(io.Writer) error
}

// Renderer renders snippets into HTML.
type Renderer struct {
	// Whether we're in embedded mode.
	// In this mode, output will only contain the snippets
	// and will not generate complete, stylized HTML pages.
	Embedded bool

	// Highlighter styles highlighted code.
	Highlighter Highlighter // required

	// StaticURL is the path at which pages reference static assets.
	// Defaults to DefaultStaticURL.
	StaticURL string

	// Log receives warnings about snippets
	// that had to be rendered with a fallback.
	Log *log.Logger
}

func (r *Renderer) templateName() string {
	if r.Embedded {
		return "Body"
	}
	return "Page"
}

func (r *Renderer) newRender() *render {
	logger := r.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	staticURL := r.StaticURL
	if staticURL == "" {
		staticURL = DefaultStaticURL
	}
	return &render{
		Highlighter: r.Highlighter,
		StaticURL:   staticURL,
		Log:         logger,
	}
}

func staticFiles() fs.FS {
	static, err := fs.Sub(_staticFS, "static")
	must.NotErrorf(err, "static/ must be embedded")
	return static
}

// StaticFile returns the contents of a static asset.
// name is a /-separated path relative to the static directory.
func (r *Renderer) StaticFile(name string) ([]byte, error) {
	bs, err := fs.ReadFile(staticFiles(), name)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}

	// FIXME: This is a hack. That we need to append to main.css
	// should be represented elsewhere.
	if name == "css/main.css" {
		buff := bytes.NewBuffer(bs)
		buff.WriteString("\n")
		if err := r.Highlighter.WriteCSS(buff); err != nil {
			return nil, errtrace.Wrap(err)
		}
		bs = buff.Bytes()
	}
	return bs, nil
}

// WriteStatic dumps the contents of static/ into the given directory.
//
// This is a no-op if the renderer is running in embedded mode.
func (r *Renderer) WriteStatic(dir string) error {
	if r.Embedded {
		return nil
	}

	return errtrace.Wrap(fs.WalkDir(staticFiles(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == "." {
			return err
		}

		outPath := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(outPath, 0o1755)
		}

		bs, err := r.StaticFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(outPath, bs, 0o644)
	}))
}

// RenderSnippet renders a single snippet in the shape its mode calls for.
//
// A bare snippet must have well-formed markup:
// if highlighting failed, this returns an error
// wrapping [snippet.ErrNoMarkup].
func (r *Renderer) RenderSnippet(w io.Writer, v *snippet.View) error {
	return errtrace.Wrap(template.Must(_snippetTmpl.Clone()).
		Funcs(r.newRender().FuncMap()).
		ExecuteTemplate(w, r.templateName(), v))
}

// GroupInfo is a set of snippets rendered as tabs.
type GroupInfo struct {
	Views []snippet.View
}

// RenderGroup renders snippets into a tabbed container.
//
// Snippets that have no markup fall back to their raw text.
func (r *Renderer) RenderGroup(w io.Writer, g *GroupInfo) error {
	return errtrace.Wrap(template.Must(_groupTmpl.Clone()).
		Funcs(r.newRender().FuncMap()).
		ExecuteTemplate(w, r.templateName(), g))
}

// Block is one entry on a page:
// either a standalone snippet or a group.
type Block struct {
	Snippet *snippet.View
	Group   *GroupInfo
}

// PageInfo specifies a page of snippets to render.
type PageInfo struct {
	Title  string
	Blocks []Block
}

// RenderPage renders a page of snippets.
func (r *Renderer) RenderPage(w io.Writer, p *PageInfo) error {
	return errtrace.Wrap(template.Must(_pageTmpl.Clone()).
		Funcs(r.newRender().FuncMap()).
		ExecuteTemplate(w, r.templateName(), p))
}

type render struct {
	Highlighter Highlighter
	StaticURL   string
	Log         *log.Logger
}

func (r *render) FuncMap() template.FuncMap {
	return template.FuncMap{
		"static":    r.static,
		"container": r.container,
		"bare":      r.bare,
		"bareOrRaw": r.bareOrRaw,
		"isBare":    isBare,
		"isError":   isError,
		"tabTitle":  tabTitle,
	}
}

func (r *render) static(p string) string {
	return path.Join(r.StaticURL, p)
}

func (r *render) container() template.HTMLAttr {
	return r.Highlighter.ContainerAttr()
}

func (r *render) bare(v snippet.View) (template.HTML, error) {
	return v.BareMarkup()
}

func (r *render) bareOrRaw(v snippet.View) template.HTML {
	html, err := v.BareMarkup()
	if err != nil {
		r.Log.Printf("%v: rendering raw text: %v", tabTitle(v), err)
		return template.HTML(template.HTMLEscapeString(v.Code))
	}
	return html
}

func isBare(v snippet.View) bool {
	return v.Mode == snippet.ModeBare
}

func isError(v snippet.View) bool {
	return v.State == snippet.StateError
}

func tabTitle(v snippet.View) string {
	if v.Title != "" {
		return v.Title
	}
	return string(v.Language)
}
