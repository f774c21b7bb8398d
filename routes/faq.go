package routes

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagenav/dom"
)

// FAQ wires the accordion, the search filter and the suggestion chips.
func FAQ() Route {
	return &route{
		name:   "faq",
		paths:  []string{"/faq"},
		marker: cascadia.MustCompile(".faq-section"),
		init:   initFAQ,
	}
}

func initFAQ(c *Context) error {
	// a swapped-in page keeps the server's open state otherwise
	c.each(".faq-item", func(_ int, item *html.Node) { closeFAQ(item) })

	c.each(".faq-question", func(_ int, q *html.Node) {
		c.bindOnce(q, "faq-bound", dom.EventClick, func(*dom.Event) {
			toggleFAQ(c, q)
		})
	})

	search := c.Doc.ByID("faq-search")
	if search == nil {
		return nil
	}
	c.bindOnce(search, "faq-search-bound", dom.EventInput, func(*dom.Event) {
		filterFAQ(c, dom.Value(search))
	})
	if clear := c.Doc.ByID("search-clear"); clear != nil {
		c.bindOnce(clear, "faq-clear-bound", dom.EventClick, func(*dom.Event) {
			c.Win.Input(search, "")
		})
	}
	c.each(".search-suggestion", func(_ int, chip *html.Node) {
		c.bindOnce(chip, "faq-chip-bound", dom.EventClick, func(*dom.Event) {
			c.Win.Input(search, dom.AttrOr(chip, "data-search", ""))
		})
	})
	return nil
}

func toggleFAQ(c *Context, q *html.Node) {
	item := dom.ClosestMatch(q, ".faq-item")
	if item == nil {
		return
	}
	wasOpen := dom.HasClass(item, "active")
	c.each(".faq-item.active", func(_ int, other *html.Node) {
		if other != item {
			closeFAQ(other)
		}
	})
	if wasOpen {
		closeFAQ(item)
		return
	}
	dom.AddClass(item, "active")
	setIcon(item, "fa-plus", "fa-minus")
}

func closeFAQ(item *html.Node) {
	dom.RemoveClass(item, "active")
	if answer := dom.Sel(item).Find(".faq-answer").Get(0); answer != nil {
		dom.RemoveStyle(answer, "display", "max-height", "opacity")
	}
	setIcon(item, "fa-minus", "fa-plus")
}

func setIcon(item *html.Node, from, to string) {
	if icon := dom.Sel(item).Find(".faq-toggle i").Get(0); icon != nil {
		dom.RemoveClass(icon, from)
		dom.AddClass(icon, to)
	}
}

// filterFAQ shows the items whose keywords, question or answer contain
// term. An empty term shows everything.
func filterFAQ(c *Context, term string) {
	term = strings.ToLower(strings.TrimSpace(term))
	if clear := c.Doc.ByID("search-clear"); clear != nil {
		if term == "" {
			dom.SetStyle(clear, "display", "none")
		} else {
			dom.SetStyle(clear, "display", "block")
		}
	}

	visible := 0
	c.each(".faq-item", func(_ int, item *html.Node) {
		s := dom.Sel(item)
		haystack := strings.ToLower(strings.Join([]string{
			dom.AttrOr(item, "data-keywords", ""),
			s.Find(".faq-question h3").Text(),
			s.Find(".faq-answer p").Text(),
		}, " "))
		if term == "" || strings.Contains(haystack, term) {
			dom.SetStyle(item, "display", "block")
			visible++
			return
		}
		dom.SetStyle(item, "display", "none")
	})

	if empty := c.Doc.ByID("no-results"); empty != nil {
		if visible == 0 {
			dom.SetStyle(empty, "display", "block")
		} else {
			dom.SetStyle(empty, "display", "none")
		}
	}
}
