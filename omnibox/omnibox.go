// Package omnibox turns what the user types at the address prompt into a
// URL: full URLs, site-relative paths, bare hosts, or a search on the
// current site.
package omnibox

import (
	"net/url"
	"strings"
)

// Result represents the parsed omnibox input.
type Result struct {
	URL      string // The target URL to navigate to (empty when nothing fits)
	Query    string // Search query, when IsSearch
	IsSearch bool   // Whether this is a site search (vs direct navigation)
}

// DefaultSearchPath is the search page of the stock site.
const DefaultSearchPath = "/search"

// searchPrefixes force a site search even when the rest looks like a URL.
var searchPrefixes = []string{"s ", "search ", "s:", "search:"}

// Parser handles omnibox input parsing.
type Parser struct {
	searchPath string
}

// NewParser creates a new omnibox parser with default configuration.
func NewParser() *Parser {
	return &Parser{searchPath: DefaultSearchPath}
}

// SetSearchPath sets the path queried for site searches.
func (p *Parser) SetSearchPath(path string) {
	p.searchPath = path
}

// Parse parses omnibox input typed while the window is at current. current
// may be nil before anything is loaded.
func (p *Parser) Parse(input string, current *url.URL) Result {
	input = strings.TrimSpace(input)
	if input == "" {
		return Result{}
	}

	// Check for URL schemes first
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Result{URL: input}
	}

	for _, pfx := range searchPrefixes {
		if strings.HasPrefix(lower, pfx) {
			return p.search(strings.TrimSpace(input[len(pfx):]), current)
		}
	}

	// Site-relative references resolve against the page on screen
	if strings.HasPrefix(input, "/") || strings.HasPrefix(input, "?") || strings.HasPrefix(input, "./") {
		if !isWeb(current) {
			return Result{}
		}
		u, err := current.Parse(input)
		if err != nil {
			return Result{}
		}
		return Result{URL: u.String()}
	}

	if looksLikeURL(input) {
		if isLocal(lower) {
			return Result{URL: "http://" + input}
		}
		return Result{URL: "https://" + input}
	}

	return p.search(input, current)
}

func (p *Parser) search(query string, current *url.URL) Result {
	r := Result{Query: query, IsSearch: true}
	if query == "" || !isWeb(current) {
		return r
	}
	u := &url.URL{Scheme: current.Scheme, Host: current.Host, Path: p.searchPath}
	u.RawQuery = url.Values{"q": {query}}.Encode()
	r.URL = u.String()
	return r
}

func isWeb(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// looksLikeURL checks if input looks like a URL (has domain.tld pattern).
func looksLikeURL(input string) bool {
	// No spaces allowed in URLs
	if strings.Contains(input, " ") {
		return false
	}

	lower := strings.ToLower(input)
	if isLocal(lower) {
		return true
	}

	host, _, _ := strings.Cut(lower, "/")
	host, _, _ = strings.Cut(host, ":")
	tlds := []string{
		".com", ".org", ".net", ".io", ".dev", ".co", ".me", ".app",
		".edu", ".gov", ".uk", ".de", ".fr", ".jp", ".au", ".ca",
		".info", ".biz", ".tv", ".cc", ".xyz", ".tech", ".ai",
		".br", ".pt", ".test",
	}
	for _, tld := range tlds {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

// isLocal matches localhost and loopback addresses, which are served over
// plain http.
func isLocal(lower string) bool {
	return strings.HasPrefix(lower, "localhost") || strings.HasPrefix(lower, "127.")
}
