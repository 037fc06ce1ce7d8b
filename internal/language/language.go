// Package language maps file extensions to the languages
// that the highlighter knows how to render.
//
// The set of languages is closed:
// [Available] lists every [ID] that [Resolve] may return.
// Anything unrecognized resolves to [Plaintext].
package language

import (
	"path"
	"sort"
	"strings"
)

// ID identifies a language supported by the highlighter.
type ID string

// Plaintext is the fallback language.
// Code in this language is rendered without highlighting.
const Plaintext ID = "plaintext"

// Supported languages.
const (
	Bash       ID = "bash"
	C          ID = "c"
	CPP        ID = "cpp"
	CSS        ID = "css"
	Go         ID = "go"
	HTML       ID = "html"
	INI        ID = "ini"
	Java       ID = "java"
	JavaScript ID = "javascript"
	JSON       ID = "json"
	Markdown   ID = "markdown"
	PowerShell ID = "powershell"
	Python     ID = "python"
	Ruby       ID = "ruby"
	Rust       ID = "rust"
	SQL        ID = "sql"
	TOML       ID = "toml"
	TypeScript ID = "typescript"
	XML        ID = "xml"
	YAML       ID = "yaml"
)

// _extensions maps lowercase, dot-free file extensions to languages.
var _extensions = map[string]ID{
	"bash": Bash,
	"sh":   Bash,
	"zsh":  Bash,
	"c":    C,
	"h":    C,
	"cc":   CPP,
	"cpp":  CPP,
	"cxx":  CPP,
	"hpp":  CPP,
	"css":  CSS,
	"go":   Go,
	"htm":  HTML,
	"html": HTML,
	"cfg":  INI,
	"ini":  INI,
	"java": Java,
	"cjs":  JavaScript,
	"js":   JavaScript,
	"jsx":  JavaScript,
	"mjs":  JavaScript,
	"json": JSON,
	"md":   Markdown,
	"ps1":  PowerShell,
	"py":   Python,
	"pyw":  Python,
	"rb":   Ruby,
	"rs":   Rust,
	"sql":  SQL,
	"toml": TOML,
	"ts":   TypeScript,
	"tsx":  TypeScript,
	"xml":  XML,
	"yaml": YAML,
	"yml":  YAML,
	"txt":  Plaintext,
}

var _available = func() []ID {
	seen := map[ID]struct{}{Plaintext: {}}
	ids := []ID{Plaintext}
	for _, id := range _extensions {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}()

// Available returns all languages that Resolve can produce, sorted.
// The returned slice must not be modified.
func Available() []ID {
	return _available
}

// Resolve maps a lowercase, dot-free file extension to a language.
// Unknown and empty extensions resolve to [Plaintext].
func Resolve(ext string) ID {
	if id, ok := _extensions[ext]; ok {
		return id
	}
	return Plaintext
}

// Extension reports the lowercased suffix of name after its last '.',
// or an empty string if name has no '.'.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// FromFilename resolves the language of a file from its name.
// Directory components, if any, are ignored.
func FromFilename(name string) ID {
	return Resolve(Extension(path.Base(name)))
}

// Valid reports whether id is one of the available languages.
func (id ID) Valid() bool {
	if id == Plaintext {
		return true
	}
	for _, known := range _extensions {
		if known == id {
			return true
		}
	}
	return false
}

// String returns the name of the language.
func (id ID) String() string {
	return string(id)
}
