package snippet

import (
	"context"

	"braces.dev/errtrace"
	"golang.org/x/sync/errgroup"
)

// Group is a set of snippets displayed together in a tabbed container.
//
// Snippets in a group render in ModeBare
// so that the container can provide the chrome.
// They are otherwise independent:
// each has its own lifecycle, and one failing doesn't affect the others.
//
// A Group is not safe for concurrent use.
type Group struct {
	pipeline *Pipeline
	snippets []*Snippet
}

// NewGroup starts an empty group.
func (p *Pipeline) NewGroup() *Group {
	return &Group{pipeline: p}
}

// Add mounts a new snippet in the group.
func (g *Group) Add(src Source) *Snippet {
	s := g.pipeline.Mount(src, ModeBare)
	g.snippets = append(g.snippets, s)
	return s
}

// Views returns the current view of each snippet in the group.
func (g *Group) Views() []View {
	views := make([]View, len(g.snippets))
	for i, s := range g.snippets {
		views[i] = s.View()
	}
	return views
}

// Wait waits for every snippet in the group to settle.
// It returns the latest views even if ctx ends first.
func (g *Group) Wait(ctx context.Context) ([]View, error) {
	views := make([]View, len(g.snippets))
	eg, ctx := errgroup.WithContext(ctx)
	for i, s := range g.snippets {
		eg.Go(func() error {
			v, err := s.Wait(ctx)
			views[i] = v
			return err
		})
	}
	return views, errtrace.Wrap(eg.Wait())
}

// Close closes every snippet in the group.
func (g *Group) Close() {
	for _, s := range g.snippets {
		s.Close()
	}
}
