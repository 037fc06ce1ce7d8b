package highlight

import (
	"sync"

	chroma "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/tofupilot/codeblock/internal/language"
)

// Lexer analyzes source code and generates a stream of tokens.
type Lexer interface {
	Lex(src string) ([]chroma.Token, error)
}

// chromaLexer builds a [Lexer] from a Chroma lexer.
type chromaLexer struct{ l chroma.Lexer }

// Lex lexically analyzes the given source code using Chroma.
func (cl *chromaLexer) Lex(src string) ([]chroma.Token, error) {
	return chroma.Tokenise(cl.l, nil, src)
}

// Chroma lexer names for languages
// whose ID is not already a name Chroma recognizes.
var _chromaNames = map[language.ID]string{
	language.CPP:       "c++",
	language.Plaintext: "plaintext",
}

var (
	_lexersMu sync.Mutex
	_lexers   = make(map[language.ID]Lexer)
)

// LexerFor returns the lexer for a language.
// Languages that Chroma does not know, and IDs that are not
// one of [language.Available], get a plain text lexer.
func LexerFor(id language.ID) Lexer {
	if !id.Valid() {
		id = language.Plaintext
	}

	_lexersMu.Lock()
	defer _lexersMu.Unlock()

	if l, ok := _lexers[id]; ok {
		return l
	}

	name, ok := _chromaNames[id]
	if !ok {
		name = string(id)
	}
	cl := lexers.Get(name)
	if cl == nil {
		cl = lexers.Fallback
	}
	l := &chromaLexer{l: chroma.Coalesce(cl)}
	_lexers[id] = l
	return l
}
