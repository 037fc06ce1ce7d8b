// Package must asserts program invariants,
// such as the presence of assets embedded at build time.
// The program panics if an invariant is violated.
package must

import "fmt"

// NotErrorf panics with the given message if the error is not nil.
func NotErrorf(err error, format string, args ...any) {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v\n%v", err, fmt.Sprintf(format, args...)))
	}
}
