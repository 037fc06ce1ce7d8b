package snippet

import (
	"errors"
	"fmt"
	"html/template"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/language"
)

// Mode is the shape a snippet renders in.
type Mode int

const (
	// ModePanel renders a self-contained panel
	// with an optional title bar and a copy control.
	ModePanel Mode = iota

	// ModeBare renders only the code element,
	// leaving chrome to an enclosing tab group.
	ModeBare
)

func (m Mode) String() string {
	switch m {
	case ModePanel:
		return "panel"
	case ModeBare:
		return "bare"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// State is a step in a snippet's lifecycle.
type State int

const (
	// StateInit is a snippet that hasn't been given a source.
	StateInit State = iota

	// StateFetching is waiting for remote code.
	StateFetching

	// StateHighlighting shows raw code
	// while waiting for highlighted markup.
	StateHighlighting

	// StateReady shows highlighted markup.
	StateReady

	// StateFallback shows raw code after highlighting failed.
	StateFallback

	// StateError is a snippet whose code could not be fetched.
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateFetching:
		return "fetching"
	case StateHighlighting:
		return "highlighting"
	case StateReady:
		return "ready"
	case StateFallback:
		return "fallback"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Settled reports whether no further transitions will happen
// for the current source.
func (s State) Settled() bool {
	switch s {
	case StateReady, StateFallback, StateError:
		return true
	default:
		return false
	}
}

// ErrNoMarkup indicates that a snippet has no markup
// suitable for rendering as a bare code element.
var ErrNoMarkup = errors.New("highlighted markup unavailable")

// View is a point-in-time snapshot of a snippet.
type View struct {
	Mode     Mode
	State    State
	Title    string
	Language language.ID

	// Code is the raw source text.
	// Empty while fetching and after a fetch failure.
	Code string

	// Markup is the highlighted code.
	// Set only in StateReady.
	Markup template.HTML

	// Err describes why the code could not be fetched.
	// Set only in StateError.
	Err string

	// HighlightErr is why highlighting failed.
	// Set only in StateFallback.
	HighlightErr error
}

// Settled reports whether the snippet has reached a final state.
func (v View) Settled() bool {
	return v.State.Settled()
}

// Body returns the HTML to display for the code:
// highlighted markup if it's ready, the escaped raw text otherwise.
func (v View) Body() template.HTML {
	if v.State == StateReady {
		return v.Markup
	}
	return template.HTML(template.HTMLEscapeString(v.Code))
}

// BareMarkup returns the HTML for a bare code element.
//
// Bare rendering requires well-formed markup:
// it fails with [ErrNoMarkup] if highlighting failed
// or the code could not be fetched.
// Pending snippets yield their escaped raw text.
func (v View) BareMarkup() (template.HTML, error) {
	switch v.State {
	case StateFallback:
		return "", errtrace.Wrap(fmt.Errorf("%w: %w", ErrNoMarkup, v.HighlightErr))
	case StateError:
		return "", errtrace.Wrap(fmt.Errorf("%w: %v", ErrNoMarkup, v.Err))
	default:
		return v.Body(), nil
	}
}
