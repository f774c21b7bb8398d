// Package page extracts the parts of a fetched HTML page that the navigator
// swaps into the live document.
package page

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"pagenav/dom"
)

// Block is an inline <script> or <style> element.
type Block struct {
	Attrs []html.Attribute
	Text  string
}

// FetchedPage is one parsed response. Content is a detached subtree owned by
// the page; it is cloned on every use and never attached to a live document.
type FetchedPage struct {
	URL           string
	Title         string
	Content       *html.Node
	ScriptURLs    []string
	InlineScripts []Block
	StyleLinks    []string
	InlineStyles  []Block
}

// ParseError reports a response body that could not be turned into a page.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AdminContainer is the wrapper class admin pages render their content in.
const AdminContainer = ".admin-content-wrapper"

// contentSelectors is the fallback order for public pages.
var contentSelectors = []string{"main", ".main-content-container", ".container", "body"}

// Extract parses an HTML response for pageURL. Admin-prefixed URLs look for
// the admin wrapper first.
func Extract(r io.Reader, pageURL, adminPrefix string) (*FetchedPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, &ParseError{URL: pageURL, Err: err}
	}

	p := &FetchedPage{
		URL:   pageURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	var content *goquery.Selection
	if adminPrefix != "" && strings.HasPrefix(base.Path, adminPrefix) {
		content = doc.Find(AdminContainer).First()
	}
	if content == nil || content.Length() == 0 {
		for _, s := range contentSelectors {
			content = doc.Find(s).First()
			if content.Length() > 0 {
				break
			}
		}
	}
	if content.Length() == 0 {
		return nil, &ParseError{URL: pageURL, Err: fmt.Errorf("no content container")}
	}
	container := content.Get(0)
	p.Content = dom.Clone(container)

	inContent := func(s *goquery.Selection) bool {
		for n := s.Get(0); n != nil; n = n.Parent {
			if n == container {
				return true
			}
		}
		return false
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			if abs := Resolve(base, src); abs != "" {
				p.ScriptURLs = append(p.ScriptURLs, abs)
			}
			return
		}
		if inContent(s) {
			return
		}
		p.InlineScripts = append(p.InlineScripts, blockOf(s))
	})

	doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if abs := Resolve(base, href); abs != "" {
				p.StyleLinks = append(p.StyleLinks, abs)
			}
		}
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		if inContent(s) {
			return
		}
		p.InlineStyles = append(p.InlineStyles, blockOf(s))
	})

	return p, nil
}

// ExtractString parses HTML from a string.
func ExtractString(s, pageURL, adminPrefix string) (*FetchedPage, error) {
	return Extract(strings.NewReader(s), pageURL, adminPrefix)
}

// CloneContent returns fresh copies of the fragment's children, ready to be
// inserted into a live document.
func (p *FetchedPage) CloneContent() []*html.Node {
	if p.Content == nil {
		return nil
	}
	return dom.CloneChildren(p.Content)
}

func blockOf(s *goquery.Selection) Block {
	n := s.Get(0)
	return Block{
		Attrs: append([]html.Attribute(nil), n.Attr...),
		Text:  dom.TextContent(n),
	}
}

// Resolve makes ref absolute against base. It returns "" for empty or
// unparsable references.
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}
