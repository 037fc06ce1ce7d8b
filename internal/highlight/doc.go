// Package highlight turns source code into syntax highlighted HTML.
// It uses the Chroma library to do this work.
//
// Source code is first lexed into a [Code] value,
// which is comprised of multiple [Span]s,
// and then rendered by a [Highlighter].
// [Service] sits in front of a Highlighter
// and remembers the result for each piece of code it has seen.
package highlight
