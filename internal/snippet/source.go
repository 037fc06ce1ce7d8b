package snippet

import (
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/remote"
)

// Source describes where a snippet's code comes from.
//
// Build one with [Literal] or [Remote].
type Source struct {
	// Code is the literal source text.
	// Unused for remote sources.
	Code string

	// Language of a literal source.
	// Remote sources infer their language from Ref.
	Language language.ID

	// Ref is the file that a remote source fetches.
	Ref remote.Reference

	// Title is shown above the snippet, if non-empty.
	// Remote sources default to the name of the referenced file.
	Title string

	remote bool
}

// Literal builds a source from code supplied by the page.
// An empty or unavailable language renders as plain text.
func Literal(code string, lang language.ID, title string) Source {
	return Source{Code: code, Language: lang, Title: title}
}

// Remote builds a source that fetches its code from a repository.
func Remote(ref remote.Reference, title string) Source {
	return Source{Ref: ref, Title: title, remote: true}
}

// IsRemote reports whether this source fetches its code.
func (s Source) IsRemote() bool {
	return s.remote
}

// ResolvedLanguage returns the language the code will be highlighted as.
func (s Source) ResolvedLanguage() language.ID {
	if s.remote {
		return s.Ref.Language()
	}
	if !s.Language.Valid() {
		return language.Plaintext
	}
	return s.Language
}

// ResolvedTitle returns the title shown for this source.
func (s Source) ResolvedTitle() string {
	if s.Title == "" && s.remote {
		return s.Ref.Filename()
	}
	return s.Title
}

// identity is the part of a Source whose change makes for a new snippet.
// Titles are not part of it.
type identity struct {
	remote bool
	code   string
	lang   language.ID
	path   string
	branch string
}

func (s Source) identity() identity {
	if s.remote {
		return identity{
			remote: true,
			path:   s.Ref.Path,
			branch: s.Ref.BranchOrDefault(),
		}
	}
	return identity{
		code: s.Code,
		lang: s.ResolvedLanguage(),
	}
}
