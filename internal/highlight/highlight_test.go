package highlight

import (
	"bytes"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tofupilot/codeblock/internal/language"
)

func TestHighlighter_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		give Span
		want string
	}{
		{
			desc: "highlight",
			give: &TokenSpan{
				Tokens: []chroma.Token{
					{Type: chroma.Comment, Value: "/* foo */"},
					{Type: chroma.Text, Value: "bar"},
				},
			},
			want: `<span class="c">/* foo */</span>bar`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()

			h := Highlighter{
				Style:      PlainStyle,
				UseClasses: true,
			}
			got, err := h.Render(&Code{
				Spans: []Span{tt.give},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil", func(t *testing.T) {
		t.Parallel()

		got, err := new(Highlighter).Render(nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("unknown", func(t *testing.T) {
		type unknownSpan struct{ Span }

		assert.Panics(t, func() {
			h := Highlighter{
				Style: PlainStyle,
			}
			_, _ = h.Render(&Code{
				Spans: []Span{unknownSpan{}},
			})
		})
	})
}

func TestHighlighter_Render_noClasses(t *testing.T) {
	t.Parallel()

	h := Highlighter{Style: PlainStyle}
	want := `<span style="color:#666">/* foo */</span>bar`
	got, err := h.Render(&Code{
		Spans: []Span{
			&TokenSpan{
				Tokens: []chroma.Token{
					{Type: chroma.Comment, Value: "/* foo */"},
					{Type: chroma.Text, Value: "bar"},
				},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHighlighter_Highlight(t *testing.T) {
	t.Parallel()

	h := Highlighter{Style: PlainStyle, UseClasses: true}

	t.Run("python comment", func(t *testing.T) {
		t.Parallel()

		got, err := h.Highlight("# a < b\nprint(1)\n", language.Python)
		require.NoError(t, err)
		assert.Contains(t, got, `<span class="c`)
		assert.Contains(t, got, "# a &lt; b")
		assert.Contains(t, got, "print")
		assert.NotContains(t, got, "<pre")
	})

	t.Run("plaintext escapes", func(t *testing.T) {
		t.Parallel()

		got, err := h.Highlight("<b>&</b>", language.Plaintext)
		require.NoError(t, err)
		assert.Contains(t, got, "&lt;b&gt;&amp;&lt;/b&gt;")
		assert.NotContains(t, got, "<span")
	})

	t.Run("unsupported language", func(t *testing.T) {
		t.Parallel()

		got, err := h.Highlight("x <- 1", language.ID("cobol"))
		require.NoError(t, err)
		assert.Contains(t, got, "x &lt;- 1")
	})
}

func TestHighlighter_ContainerAttr(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		`class="chroma"`,
		string((&Highlighter{Style: PlainStyle, UseClasses: true}).ContainerAttr()))
	assert.Equal(t,
		`style="background-color: #eeeeee"`,
		string((&Highlighter{Style: PlainStyle}).ContainerAttr()))
}

func TestHighlighter_WriteCSS(t *testing.T) {
	t.Parallel()

	t.Run("classes", func(t *testing.T) {
		t.Parallel()

		var buff bytes.Buffer
		require.NoError(t, (&Highlighter{Style: PlainStyle, UseClasses: true}).WriteCSS(&buff))
		assert.Contains(t, buff.String(), ".chroma")
	})

	t.Run("inline", func(t *testing.T) {
		t.Parallel()

		var buff bytes.Buffer
		require.NoError(t, (&Highlighter{Style: PlainStyle}).WriteCSS(&buff))
		assert.Empty(t, buff.String())
	})
}

func TestLexerFor(t *testing.T) {
	t.Parallel()

	for _, id := range language.Available() {
		t.Run(string(id), func(t *testing.T) {
			t.Parallel()

			tokens, err := LexerFor(id).Lex("x\n")
			require.NoError(t, err)
			assert.NotEmpty(t, tokens)
		})
	}

	assert.Same(t, LexerFor(language.Go), LexerFor(language.Go))
}
