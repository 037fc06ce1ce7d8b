// Package remote retrieves snippet source code from a hosted repository.
//
// A [Reference] names a file in the repository by path and branch.
// A [Repository] turns references into raw-content URLs,
// and a [Fetcher] retrieves the text behind such a URL.
package remote

import (
	"strings"

	"github.com/tofupilot/codeblock/internal/language"
)

const (
	// DefaultBranch is used when a reference does not name a branch.
	DefaultBranch = "main"

	// UnknownFile labels references whose path has no final segment.
	UnknownFile = "Unknown file"
)

// Reference identifies a file in a remote repository.
type Reference struct {
	// Path of the file relative to the repository root.
	// This is passed through to the content URL verbatim.
	Path string

	// Branch holding the file.
	// Defaults to DefaultBranch if empty.
	Branch string
}

// BranchOrDefault returns the branch of this reference,
// or DefaultBranch if it doesn't specify one.
func (r Reference) BranchOrDefault() string {
	if r.Branch == "" {
		return DefaultBranch
	}
	return r.Branch
}

// Filename returns the last '/'-separated segment of the path,
// or UnknownFile if that segment is empty.
func (r Reference) Filename() string {
	name := r.Path
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	if name == "" {
		return UnknownFile
	}
	return name
}

// Extension returns the lowercased extension of the referenced file,
// or an empty string if it has none.
func (r Reference) Extension() string {
	name := r.Filename()
	if name == UnknownFile {
		return ""
	}
	return language.Extension(name)
}

// Language infers the language of the referenced file from its extension.
func (r Reference) Language() language.ID {
	return language.Resolve(r.Extension())
}

// Repository is a hosted repository with raw content access.
type Repository struct {
	Org  string // required
	Repo string // required
}

// DefaultRepository is the repository that holds the documentation examples.
var DefaultRepository = Repository{Org: "tofupilot", Repo: "examples"}

const _rawContentBase = "https://raw.githubusercontent.com/"

// ContentURL returns the URL from which the raw contents
// of the referenced file may be downloaded.
//
// Branch and path are substituted verbatim without escaping.
func (repo Repository) ContentURL(ref Reference) string {
	var sb strings.Builder
	sb.WriteString(_rawContentBase)
	sb.WriteString(repo.Org)
	sb.WriteByte('/')
	sb.WriteString(repo.Repo)
	sb.WriteByte('/')
	sb.WriteString(ref.BranchOrDefault())
	sb.WriteByte('/')
	sb.WriteString(ref.Path)
	return sb.String()
}
