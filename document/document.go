// Package document turns the live page into text for the command line:
// a markdown dump of the content region plus labelled links and inputs.
package document

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"pagenav/dom"
	"pagenav/page"
)

// Link represents a followable link in the document.
type Link struct {
	Label string
	Text  string
	Href  string // resolved
	Node  *html.Node
}

// Input represents an interactive form control in the document.
type Input struct {
	Label      string
	Name       string
	Value      string
	Type       string
	FormAction string
	FormMethod string
	Node       *html.Node
}

var contentRegions = []string{page.AdminContainer, ".main-content-container", "main", ".container", "#content", "body"}

// Content returns the element holding the page's main content.
func Content(doc *dom.Document) *html.Node {
	for _, sel := range contentRegions {
		if n := doc.QueryFirst(sel); n != nil {
			return n
		}
	}
	return doc.Root()
}

var md = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders the title and content region of doc as markdown.
// Relative links are made absolute against pageURL.
func Markdown(doc *dom.Document, pageURL string) (string, error) {
	body, err := md.ConvertString(dom.OuterHTML(Content(doc)), converter.WithDomain(pageURL))
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", pageURL, err)
	}
	var b strings.Builder
	if t := doc.Title(); t != "" {
		fmt.Fprintf(&b, "# %s\n\n", t)
	}
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n")
	return b.String(), nil
}

// Links lists the anchors of doc with jump labels, in document order.
func Links(doc *dom.Document, base *url.URL) []Link {
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		href := page.Resolve(base, dom.AttrOr(n, "href", ""))
		if href == "" {
			return
		}
		links = append(links, Link{
			Text: strings.Join(strings.Fields(s.Text()), " "),
			Href: href,
			Node: n,
		})
	})
	labels := GenerateLabels(len(links))
	for i := range links {
		if i < len(labels) {
			links[i].Label = labels[i]
		}
	}
	return links
}

// Inputs lists the text-like form controls of doc with jump labels.
func Inputs(doc *dom.Document) []Input {
	var inputs []Input
	doc.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		typ := strings.ToLower(dom.AttrOr(n, "type", n.Data))
		switch typ {
		case "hidden", "submit", "button", "reset", "image":
			return
		}
		in := Input{
			Name:  dom.AttrOr(n, "name", dom.AttrOr(n, "id", "")),
			Value: dom.Value(n),
			Type:  typ,
			Node:  n,
		}
		if form := dom.Closest(n, "form"); form != nil {
			in.FormAction = dom.AttrOr(form, "action", "")
			in.FormMethod = strings.ToUpper(dom.AttrOr(form, "method", "GET"))
		}
		inputs = append(inputs, in)
	})
	labels := GenerateLabels(len(inputs))
	for i := range inputs {
		if i < len(labels) {
			inputs[i].Label = labels[i]
		}
	}
	return inputs
}

// GenerateLabels creates short jump labels for the given number of items.
// Uses home row keys for speed: a, s, d, f, g, h, j, k, l
// Then combinations: aa, as, ad...
func GenerateLabels(count int) []string {
	keys := []byte("asdfghjkl")
	labels := make([]string, 0, count)

	for _, k := range keys {
		if len(labels) >= count {
			return labels
		}
		labels = append(labels, string(k))
	}

	for _, k1 := range keys {
		for _, k2 := range keys {
			if len(labels) >= count {
				return labels
			}
			labels = append(labels, string([]byte{k1, k2}))
		}
	}

	return labels
}
