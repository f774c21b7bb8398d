// Package dom provides the live document model the navigator operates on:
// an x/net/html tree plus event listeners, queried through goquery.
//
// A Document is not safe for concurrent use. Callers confine all access to
// the window's event loop.
package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML document with event listeners attached.
type Document struct {
	root *html.Node

	listeners     map[string][]*listener
	nodeListeners map[*html.Node]map[string][]*listener
	nextID        int
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return New(root), nil
}

// ParseString parses HTML from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// New wraps an already parsed tree.
func New(root *html.Node) *Document {
	return &Document{
		root:          root,
		listeners:     make(map[string][]*listener),
		nodeListeners: make(map[*html.Node]map[string][]*listener),
	}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Replace swaps in a whole new tree, as a full page load does. Element
// listeners die with the old nodes; document listeners are dropped too.
func (d *Document) Replace(root *html.Node) {
	d.root = root
	d.listeners = make(map[string][]*listener)
	d.nodeListeners = make(map[*html.Node]map[string][]*listener)
}

// Selection returns a goquery selection rooted at the document.
func (d *Document) Selection() *goquery.Selection {
	return goquery.NewDocumentFromNode(d.root).Selection
}

// Find returns all elements matching the CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.Selection().Find(selector)
}

// QueryFirst returns the first element matching selector, or nil.
func (d *Document) QueryFirst(selector string) *html.Node {
	sel := d.Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel.Get(0)
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// Head returns the <head> element.
func (d *Document) Head() *html.Node {
	return findAtom(d.root, atom.Head)
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	return findAtom(d.root, atom.Body)
}

// Title returns the text of the document's <title>.
func (d *Document) Title() string {
	t := findAtom(d.root, atom.Title)
	if t == nil {
		return ""
	}
	return strings.TrimSpace(TextContent(t))
}

// SetTitle sets the document title, creating <title> if needed.
func (d *Document) SetTitle(title string) {
	t := findAtom(d.root, atom.Title)
	if t == nil {
		head := d.Head()
		if head == nil {
			return
		}
		t = CreateElement("title")
		head.AppendChild(t)
	}
	SetText(t, title)
}

// Contains reports whether n is attached to the document tree.
func (d *Document) Contains(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// ReplaceChildren removes every child of container and appends nodes.
func (d *Document) ReplaceChildren(container *html.Node, nodes []*html.Node) {
	for c := container.FirstChild; c != nil; {
		next := c.NextSibling
		container.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		container.AppendChild(n)
	}
	d.Prune()
}

// Prune forgets element listeners whose nodes are no longer attached.
func (d *Document) Prune() {
	for n := range d.nodeListeners {
		if !d.Contains(n) {
			delete(d.nodeListeners, n)
		}
	}
}

// OuterHTML renders n.
func OuterHTML(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// InnerHTML renders the children of n.
func InnerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&sb, c); err != nil {
			return ""
		}
	}
	return sb.String()
}

// HTML renders the whole document.
func (d *Document) HTML() string {
	return OuterHTML(d.root)
}

func findAtom(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) bool {
		if c.Type == html.ElementNode && c.DataAtom == a {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
