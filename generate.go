package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/errdefer"
	"github.com/tofupilot/codeblock/internal/html"
	"github.com/tofupilot/codeblock/internal/page"
	"github.com/tofupilot/codeblock/internal/snippet"
)

// Renderer renders a page of snippets to HTML.
type Renderer interface {
	WriteStatic(string) error
	RenderPage(io.Writer, *html.PageInfo) error
}

var _ Renderer = (*html.Renderer)(nil)

// Generator renders page manifests into static HTML files.
//
// In terms of code organization,
// Generator's purpose is to add a separation between main
// and the program's core logic to aid in testability.
type Generator struct {
	Log      *log.Logger
	Pipeline *snippet.Pipeline
	Renderer Renderer
	OutDir   string

	// Timeout for all snippets on the page to load.
	Timeout time.Duration
}

// Generate renders the manifest into OutDir/index.html
// alongside the static assets it needs.
//
// It fails if any snippet is still loading when the timeout expires,
// rather than writing a page that's stuck in a loading state.
func (g *Generator) Generate(ctx context.Context, m *page.Manifest) (err error) {
	if err := os.MkdirAll(g.OutDir, 0o1755); err != nil {
		return errtrace.Wrap(err)
	}
	if err := g.Renderer.WriteStatic(g.OutDir); err != nil {
		return errtrace.Wrap(fmt.Errorf("write static: %w", err))
	}

	p := m.Mount(g.Pipeline)
	defer p.Close()

	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	if err := p.Wait(ctx); err != nil {
		return errtrace.Wrap(fmt.Errorf("load snippets: %w", err))
	}

	info := p.Info()
	g.reportFailures(info)

	outFile := filepath.Join(g.OutDir, "index.html")
	g.Log.Printf("Rendering %v", outFile)
	f, err := os.Create(outFile)
	if err != nil {
		return errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, f)

	if err := g.Renderer.RenderPage(f, info); err != nil {
		return errtrace.Wrap(fmt.Errorf("render: %w", err))
	}
	return nil
}

// reportFailures logs snippets that will render as errors or raw text.
// These don't stop the page from being written.
func (g *Generator) reportFailures(info *html.PageInfo) {
	report := func(v *snippet.View) {
		switch v.State {
		case snippet.StateError:
			g.Log.Printf("%v: could not load: %v", v.Title, v.Err)
		case snippet.StateFallback:
			g.Log.Printf("%v: not highlighted: %v", v.Title, v.HighlightErr)
		}
	}

	for _, b := range info.Blocks {
		if b.Snippet != nil {
			report(b.Snippet)
		}
		if b.Group != nil {
			for i := range b.Group.Views {
				report(&b.Group.Views[i])
			}
		}
	}
}
