package snippet

import (
	"context"
	"errors"
	"html/template"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/remote"
)

func TestSnippet_literal(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	s := p.Mount(Literal("print(1)", language.Python, ""), ModePanel)
	defer s.Close()

	// Raw code is displayable immediately.
	v := s.View()
	assert.Equal(t, ModePanel, v.Mode)
	assert.Contains(t, []State{StateHighlighting, StateReady}, v.State)
	assert.Equal(t, "print(1)", v.Code)
	assert.Empty(t, v.Title)
	if v.State == StateHighlighting {
		assert.Equal(t, template.HTML("print(1)"), v.Body())
	}

	v = waitSettled(t, s)
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, language.Python, v.Language)
	assert.Equal(t, template.HTML(`<span class="python">print(1)</span>`), v.Body())
	assert.Equal(t, "print(1)", v.Code, "raw code must stay available for copying")

	assert.Equal(t, []string{"print(1)"}, h.Calls())
	assert.Empty(t, f.Calls())
}

func TestSnippet_literalLanguageFallback(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)

	for _, lang := range []language.ID{"", "cobol"} {
		s := p.Mount(Literal("x", lang, ""), ModePanel)
		v := waitSettled(t, s)
		assert.Equal(t, language.Plaintext, v.Language)
		s.Close()
	}
}

func TestSnippet_remote(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	url := contentURL("examples/read_temperature.py")
	f.Serve(url, "import pyvisa\n")
	release := f.Gate(url)

	s := p.Mount(Remote(remote.Reference{Path: "examples/read_temperature.py"}, ""), ModePanel)
	defer s.Close()

	v := s.View()
	assert.Equal(t, StateFetching, v.State)
	assert.Equal(t, "read_temperature.py", v.Title)
	assert.Equal(t, language.Python, v.Language)
	assert.Empty(t, v.Code)
	assert.Empty(t, h.Calls(), "must not highlight before the fetch completes")

	release()
	v = waitSettled(t, s)
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, "import pyvisa\n", v.Code)
	assert.Equal(t, template.HTML(`<span class="python">import pyvisa
</span>`), v.Markup)

	assert.Equal(t, []string{url}, f.Calls())
	assert.Equal(t, []string{"import pyvisa\n"}, h.Calls())
}

func TestSnippet_remoteExplicitTitle(t *testing.T) {
	t.Parallel()

	p, f, _ := newTestPipeline(t)
	f.Serve(contentURL("a/b.go"), "package b")

	s := p.Mount(Remote(remote.Reference{Path: "a/b.go"}, "Example"), ModePanel)
	defer s.Close()

	v := waitSettled(t, s)
	assert.Equal(t, "Example", v.Title)
	assert.Equal(t, language.Go, v.Language)
}

func TestSnippet_remoteFailure(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	f.Fail(contentURL("demo/read.py"), "404")

	s := p.Mount(Remote(remote.Reference{Path: "demo/read.py", Branch: "main"}, ""), ModePanel)
	defer s.Close()

	v := waitSettled(t, s)
	assert.Equal(t, StateError, v.State)
	assert.Equal(t, "404", v.Err)
	assert.Empty(t, v.Code)
	assert.Empty(t, v.Body())
	assert.Empty(t, h.Calls())

	_, err := v.BareMarkup()
	assert.ErrorIs(t, err, ErrNoMarkup)
}

func TestSnippet_highlightFailure(t *testing.T) {
	t.Parallel()

	p, _, h := newTestPipeline(t)
	h.FailOn("a < b", errors.New("great sadness"))

	s := p.Mount(Literal("a < b", language.Go, "t.go"), ModePanel)
	defer s.Close()

	v := waitSettled(t, s)
	assert.Equal(t, StateFallback, v.State)
	assert.Equal(t, template.HTML("a &lt; b"), v.Body())
	assert.ErrorContains(t, v.HighlightErr, "great sadness")

	_, err := v.BareMarkup()
	assert.ErrorIs(t, err, ErrNoMarkup)
	assert.ErrorContains(t, err, "great sadness")
}

func TestSnippet_sameIdentityIsIdempotent(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	f.Serve(contentURL("x.py"), "x = 1")

	s := p.Mount(Literal("print(1)", language.Python, ""), ModePanel)
	defer s.Close()
	waitSettled(t, s)

	s.Set(Literal("print(1)", language.Python, ""))
	v := s.View()
	assert.Equal(t, StateReady, v.State, "same identity must keep its markup")
	assert.Equal(t, []string{"print(1)"}, h.Calls())

	// A new title alone doesn't make a new identity.
	s.Set(Literal("print(1)", language.Python, "hello.py"))
	v = s.View()
	assert.Equal(t, StateReady, v.State)
	assert.Equal(t, "hello.py", v.Title)
	assert.Equal(t, []string{"print(1)"}, h.Calls())

	// Neither does spelling out the default branch.
	r := p.Mount(Remote(remote.Reference{Path: "x.py"}, ""), ModePanel)
	defer r.Close()
	waitSettled(t, r)
	r.Set(Remote(remote.Reference{Path: "x.py", Branch: "main"}, ""))
	assert.Equal(t, StateReady, r.View().State)
	assert.Len(t, f.Calls(), 1)
}

func TestSnippet_identityChangeResets(t *testing.T) {
	t.Parallel()

	p, f, _ := newTestPipeline(t)
	f.Serve(contentURL("demo/a.py"), "a = 1")
	f.Serve(contentURL("demo/b.py"), "b = 2")
	release := f.Gate(contentURL("demo/b.py"))
	defer release()

	s := p.Mount(Remote(remote.Reference{Path: "demo/a.py"}, ""), ModePanel)
	defer s.Close()
	v := waitSettled(t, s)
	require.Equal(t, StateReady, v.State)

	s.Set(Remote(remote.Reference{Path: "demo/b.py"}, ""))
	v = s.View()
	assert.Equal(t, StateFetching, v.State)
	assert.Equal(t, "b.py", v.Title)
	assert.Empty(t, v.Markup, "old markup must not be displayed")
	assert.Empty(t, v.Code)
}

func TestSnippet_literalChangeResets(t *testing.T) {
	t.Parallel()

	p, _, h := newTestPipeline(t)
	s := p.Mount(Literal("a", language.Go, ""), ModePanel)
	defer s.Close()
	waitSettled(t, s)

	s.Set(Literal("a", language.Python, ""))
	v := waitSettled(t, s)
	assert.Equal(t, template.HTML(`<span class="python">a</span>`), v.Markup)
	assert.Equal(t, []string{"a", "a"}, h.Calls())
}

func TestSnippet_staleFetchDiscarded(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	urlA, urlB := contentURL("demo/a.py"), contentURL("demo/b.py")
	f.Serve(urlA, "stale")
	f.Serve(urlB, "fresh")
	releaseA := f.Gate(urlA)

	s := p.Mount(Remote(remote.Reference{Path: "demo/a.py"}, ""), ModePanel)
	defer s.Close()

	require.Eventually(t, func() bool {
		return len(f.Calls()) == 1
	}, _testTimeout, time.Millisecond, "fetch for A never started")

	s.Set(Remote(remote.Reference{Path: "demo/b.py"}, ""))
	v := waitSettled(t, s)
	require.Equal(t, "fresh", v.Code)

	// A's fetch completes successfully after the switch.
	releaseA()
	assert.Never(t, func() bool {
		v := s.View()
		return v.Code != "fresh" || v.Title != "b.py"
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"fresh"}, h.Calls(), "stale content must never be highlighted")
}

func TestSnippet_staleFailureDiscarded(t *testing.T) {
	t.Parallel()

	p, f, _ := newTestPipeline(t)
	urlA := contentURL("demo/a.py")
	f.Fail(urlA, "boom")
	releaseA := f.Gate(urlA)

	s := p.Mount(Remote(remote.Reference{Path: "demo/a.py"}, ""), ModePanel)
	defer s.Close()

	s.Set(Literal("ok", language.Go, ""))
	v := waitSettled(t, s)
	require.Equal(t, StateReady, v.State)

	releaseA()
	assert.Never(t, func() bool {
		return s.View().State != StateReady
	}, 100*time.Millisecond, 5*time.Millisecond)
}

func TestSnippet_staleHighlightDiscarded(t *testing.T) {
	t.Parallel()

	p, _, h := newTestPipeline(t)
	releaseA := h.Gate("A")

	s := p.Mount(Literal("A", language.Go, ""), ModePanel)
	defer s.Close()

	require.Eventually(t, func() bool {
		return len(h.Calls()) == 1
	}, _testTimeout, time.Millisecond, "highlight for A never started")

	s.Set(Literal("B", language.Go, ""))
	v := waitSettled(t, s)
	require.Equal(t, StateReady, v.State)
	require.Equal(t, template.HTML(`<span class="go">B</span>`), v.Markup)

	// A's highlight completes after the switch.
	releaseA()
	assert.Never(t, func() bool {
		v := s.View()
		return v.State != StateReady || v.Markup != `<span class="go">B</span>` || v.Code != "B"
	}, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, []string{"A", "B"}, h.Calls())
}

func TestSnippet_waitTimeout(t *testing.T) {
	t.Parallel()

	p, f, _ := newTestPipeline(t)
	release := f.Gate(contentURL("slow.py"))
	defer release()

	s := p.Mount(Remote(remote.Reference{Path: "slow.py"}, ""), ModePanel)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	v, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFetching, v.State)
}

func TestSnippet_close(t *testing.T) {
	t.Parallel()

	p, f, h := newTestPipeline(t)
	url := contentURL("slow.py")
	f.Serve(url, "late")
	release := f.Gate(url)

	s := p.Mount(Remote(remote.Reference{Path: "slow.py"}, ""), ModePanel)

	done := make(chan error)
	go func() {
		_, err := s.Wait(context.Background())
		done <- err
	}()

	s.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(_testTimeout):
		t.Fatal("Wait did not return after Close")
	}

	release()
	assert.Never(t, func() bool {
		return s.View().State != StateFetching
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Empty(t, h.Calls())

	// Setting a closed snippet is a no-op.
	s.Set(Literal("x", language.Go, ""))
	assert.Equal(t, StateFetching, s.View().State)
	s.Close()
}

func TestSnippet_watch(t *testing.T) {
	t.Parallel()

	p, f, _ := newTestPipeline(t)
	url := contentURL("w.py")
	f.Serve(url, "w")
	release := f.Gate(url)

	s := p.Mount(Remote(remote.Reference{Path: "w.py"}, ""), ModePanel)
	defer s.Close()

	v, changed := s.Watch()
	require.Equal(t, StateFetching, v.State)

	release()
	select {
	case <-changed:
	case <-time.After(_testTimeout):
		t.Fatal("no change observed")
	}
	assert.NotEqual(t, StateFetching, s.View().State)
}

func TestSnippet_initState(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t)
	s := p.New(ModeBare)
	defer s.Close()

	assert.Equal(t, ModeBare, s.Mode())
	v := s.View()
	assert.Equal(t, StateInit, v.State)
	assert.False(t, v.Settled())
}

func TestPipeline_defaultRepository(t *testing.T) {
	t.Parallel()

	f := newFakeFetcher()
	p := Pipeline{Fetcher: f, Highlighter: new(fakeHighlighter)}
	s := p.Mount(Remote(remote.Reference{Path: "x.py"}, ""), ModePanel)
	defer s.Close()
	waitSettled(t, s)

	assert.Equal(t,
		[]string{"https://raw.githubusercontent.com/tofupilot/examples/main/x.py"},
		f.Calls())
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give State
		want string
	}{
		{StateInit, "init"},
		{StateFetching, "fetching"},
		{StateHighlighting, "highlighting"},
		{StateReady, "ready"},
		{StateFallback, "fallback"},
		{StateError, "error"},
		{State(42), "State(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.give.String())
	}

	assert.Equal(t, "panel", ModePanel.String())
	assert.Equal(t, "bare", ModeBare.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestView_BareMarkup_pending(t *testing.T) {
	t.Parallel()

	v := View{State: StateHighlighting, Code: "<x>"}
	got, err := v.BareMarkup()
	require.NoError(t, err)
	assert.Equal(t, template.HTML("&lt;x&gt;"), got)
}
