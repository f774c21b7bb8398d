// Package script runs page scripts re-injected by the swapper.
package script

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// Runner executes scripts against the live page.
type Runner interface {
	// Run executes inline source. attrs are the element's attributes.
	Run(ctx context.Context, src string, attrs []html.Attribute) error
	// Load fetches and executes an external script asynchronously.
	Load(ctx context.Context, srcURL string) error
}

// Nop inserts scripts into the document but never executes them.
type Nop struct{}

func (Nop) Run(context.Context, string, []html.Attribute) error { return nil }
func (Nop) Load(context.Context, string) error { return nil }

var executableTypes = map[string]bool{
	"":                       true,
	"text/javascript":        true,
	"application/javascript": true,
	"text/ecmascript":        true,
	"application/ecmascript": true,
}

// Executable reports whether a script element's type attribute names
// classic JavaScript. Data blocks (JSON, templates) and modules are not run.
func Executable(attrs []html.Attribute) bool {
	for _, a := range attrs {
		if a.Key == "type" {
			return executableTypes[strings.ToLower(strings.TrimSpace(a.Val))]
		}
	}
	return true
}
