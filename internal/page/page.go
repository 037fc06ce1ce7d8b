package page

import (
	"context"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/html"
	"github.com/tofupilot/codeblock/internal/snippet"
	"golang.org/x/sync/errgroup"
)

// Page is a manifest whose snippets have been mounted.
type Page struct {
	title  string
	blocks []mountedBlock
}

type mountedBlock struct {
	snippet *snippet.Snippet // standalone snippet, or nil
	group   *snippet.Group
}

// Mount starts loading every snippet in the manifest.
// Close the page to stop any outstanding work.
func (m *Manifest) Mount(p *snippet.Pipeline) *Page {
	page := Page{
		title:  m.Title,
		blocks: make([]mountedBlock, len(m.Blocks)),
	}
	for i, b := range m.Blocks {
		if len(b.Group) == 0 {
			page.blocks[i].snippet = p.Mount(b.Entry.Source(), snippet.ModePanel)
			continue
		}

		g := p.NewGroup()
		for _, e := range b.Group {
			g.Add(e.Source())
		}
		page.blocks[i].group = g
	}
	return &page
}

// Wait waits until every snippet on the page settles or ctx ends.
func (p *Page) Wait(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, b := range p.blocks {
		if b.group != nil {
			eg.Go(func() error {
				_, err := b.group.Wait(ctx)
				return err
			})
			continue
		}
		eg.Go(func() error {
			_, err := b.snippet.Wait(ctx)
			return err
		})
	}
	return errtrace.Wrap(eg.Wait())
}

// Info snapshots the page for rendering.
func (p *Page) Info() *html.PageInfo {
	info := html.PageInfo{
		Title:  p.title,
		Blocks: make([]html.Block, len(p.blocks)),
	}
	for i, b := range p.blocks {
		if b.group != nil {
			info.Blocks[i].Group = &html.GroupInfo{Views: b.group.Views()}
			continue
		}
		v := b.snippet.View()
		info.Blocks[i].Snippet = &v
	}
	return &info
}

// Close stops loading all snippets on the page.
func (p *Page) Close() {
	for _, b := range p.blocks {
		if b.group != nil {
			b.group.Close()
		} else {
			b.snippet.Close()
		}
	}
}
