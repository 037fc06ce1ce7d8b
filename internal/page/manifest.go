// Package page loads page manifests:
// YAML documents listing the snippets to show on a page.
//
//	title: Read temperature
//	blocks:
//	  - code: "print(1)"
//	    language: python
//	  - path: examples/read_temperature.py
//	    branch: main
//	  - group:
//	      - path: demo/read.py
//	      - code: echo hi
//	        title: shell.sh
package page

import (
	"errors"
	"fmt"
	"io"
	"os"

	"braces.dev/errtrace"
	"github.com/tofupilot/codeblock/internal/errdefer"
	"github.com/tofupilot/codeblock/internal/language"
	"github.com/tofupilot/codeblock/internal/remote"
	"github.com/tofupilot/codeblock/internal/snippet"
	"gopkg.in/yaml.v3"
)

// Manifest describes a page of snippets.
type Manifest struct {
	Title  string  `yaml:"title"`
	Blocks []Block `yaml:"blocks"`
}

// Block is an entry on a page.
// Exactly one of Code, Path, or Group is set.
type Block struct {
	Entry `yaml:",inline"`

	// Group lists snippets shown together as tabs.
	Group []Entry `yaml:"group"`
}

// Entry describes a single snippet.
// Exactly one of Code or Path is set.
type Entry struct {
	// Code is literal source text.
	Code string `yaml:"code"`

	// Language of literal code.
	// If empty, it's inferred from the title's extension.
	Language language.ID `yaml:"language"`

	// Path of a file in the remote repository.
	Path string `yaml:"path"`

	// Branch holding Path.
	Branch string `yaml:"branch"`

	Title string `yaml:"title"`
}

// Source converts the entry into a snippet source.
func (e *Entry) Source() snippet.Source {
	if e.Path != "" {
		return snippet.Remote(remote.Reference{Path: e.Path, Branch: e.Branch}, e.Title)
	}

	lang := e.Language
	if lang == "" {
		lang = language.FromFilename(e.Title)
	}
	return snippet.Literal(e.Code, lang, e.Title)
}

// Validate reports problems with the entry.
func (e *Entry) Validate() error {
	switch {
	case e.Code != "" && e.Path != "":
		return errtrace.Wrap(errors.New("code and path are mutually exclusive"))
	case e.Code == "" && e.Path == "":
		return errtrace.Wrap(errors.New("one of code or path is required"))
	case e.Path != "" && e.Language != "":
		return errtrace.Wrap(errors.New("language is inferred for path entries"))
	case e.Language != "" && !e.Language.Valid():
		return errtrace.Wrap(fmt.Errorf("unknown language %q: valid values are %q", e.Language, language.Available()))
	case e.Path == "" && e.Branch != "":
		return errtrace.Wrap(errors.New("branch requires path"))
	}
	return nil
}

func (b *Block) validate() error {
	if len(b.Group) == 0 {
		return errtrace.Wrap(b.Entry.Validate())
	}

	if b.Entry != (Entry{}) {
		return errtrace.Wrap(errors.New("group cannot be combined with code or path"))
	}
	for i, e := range b.Group {
		if err := e.Validate(); err != nil {
			return errtrace.Wrap(fmt.Errorf("group[%d]: %w", i, err))
		}
	}
	return nil
}

// Validate reports problems with the manifest.
func (m *Manifest) Validate() error {
	var errs []error
	for i, b := range m.Blocks {
		if err := b.validate(); err != nil {
			errs = append(errs, fmt.Errorf("blocks[%d]: %w", i, err))
		}
	}
	return errtrace.Wrap(errors.Join(errs...))
}

// Load decodes and validates a manifest.
func Load(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errtrace.Wrap(errors.New("empty manifest"))
		}
		return nil, errtrace.Wrap(fmt.Errorf("decode manifest: %w", err))
	}
	if err := m.Validate(); err != nil {
		return nil, errtrace.Wrap(err)
	}
	return &m, nil
}

// LoadFile decodes and validates the manifest at path.
func LoadFile(path string) (_ *Manifest, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	defer errdefer.Close(&err, f)

	m, err := Load(f)
	if err != nil {
		return nil, errtrace.Wrap(fmt.Errorf("%v: %w", path, err))
	}
	return m, nil
}
