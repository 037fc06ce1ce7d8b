package highlight

import chroma "github.com/alecthomas/chroma/v2"

// Code is a code block comprised of multiple text nodes.
type Code struct {
	Spans []Span
}

type (
	// Span is a part of a code block.
	Span interface{ span() }

	// TokenSpan is a span of code
	// that is highlighted with chroma.
	TokenSpan struct {
		Tokens []chroma.Token
	}
)

var _ Span = (*TokenSpan)(nil)

func (*TokenSpan) span() {}
