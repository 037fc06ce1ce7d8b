package highlight

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sync"

	"braces.dev/errtrace"
	chroma "github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/tofupilot/codeblock/internal/language"
)

// Highlighter turns source code into HTML.
type Highlighter struct {
	// Style used for syntax highlighting of code.
	Style *chroma.Style

	// UseClasses specifies whether the highlighter
	// uses inline 'style' attributes for highlighting,
	// or classes, assumign use of an appropriate style sheet.
	UseClasses bool

	once      sync.Once
	formatter *chromahtml.Formatter
}

func (h *Highlighter) init() {
	h.once.Do(func() {
		if h.Style == nil {
			h.Style = PlainStyle
		}
		h.formatter = chromahtml.New(
			chromahtml.PreventSurroundingPre(true),
			chromahtml.WithClasses(h.UseClasses),
		)
	})
}

// WriteCSS writes the style classes for this highlighter to writer.
// If this highlighter is not using classes, WriteCSS is a no-op.
func (h *Highlighter) WriteCSS(w io.Writer) error {
	h.init()

	if !h.UseClasses {
		return nil
	}

	return errtrace.Wrap(h.formatter.WriteCSS(w, h.Style))
}

// ContainerAttr returns the attribute that should be placed
// on the element that wraps highlighted code.
func (h *Highlighter) ContainerAttr() template.HTMLAttr {
	h.init()

	if h.UseClasses {
		return template.HTMLAttr(fmt.Sprintf("class=%q", chroma.StandardTypes[chroma.PreWrapper]))
	}
	style := chromahtml.StyleEntryToCSS(h.Style.Get(chroma.PreWrapper))
	return template.HTMLAttr(fmt.Sprintf("style=%q", style))
}

// Lex splits src into highlighted spans for the given language.
func (h *Highlighter) Lex(src string, lang language.ID) (*Code, error) {
	tokens, err := LexerFor(lang).Lex(src)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("lex %v: %w", lang, err))
	}
	return &Code{
		Spans: []Span{&TokenSpan{Tokens: tokens}},
	}, nil
}

// Highlight lexes and renders src.
// The returned markup does not include a wrapping element.
func (h *Highlighter) Highlight(src string, lang language.ID) (string, error) {
	code, err := h.Lex(src, lang)
	if err != nil {
		return "", errtrace.Wrap(err)
	}
	return h.Render(code)
}

// Render renders the given code block into HTML.
func (h *Highlighter) Render(code *Code) (string, error) {
	h.init()

	if code == nil {
		return "", nil
	}

	r := codeRenderer{fmt: h.formatter, sty: h.Style}
	if err := r.RenderSpans(code.Spans); err != nil {
		return "", errtrace.Wrap(err)
	}
	return r.String(), nil
}

type codeRenderer struct {
	bytes.Buffer

	fmt chroma.Formatter
	sty *chroma.Style
}

func (r *codeRenderer) RenderSpans(spans []Span) error {
	for _, span := range spans {
		if err := r.RenderSpan(span); err != nil {
			return err
		}
	}
	return nil
}

func (r *codeRenderer) RenderSpan(span Span) error {
	switch b := span.(type) {
	case *TokenSpan:
		return r.fmt.Format(r, r.sty, chroma.Literator(b.Tokens...))
	default:
		panic(fmt.Sprintf("unrecognized node type %T", b))
	}
}
