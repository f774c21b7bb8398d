package routes

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagenav/dom"
)

// Legal wires in-page anchors and the section reveal of the terms and
// privacy pages.
func Legal() Route {
	return &route{
		name:   "legal",
		paths:  []string{"/termos-de-uso", "/politica-de-privacidade"},
		marker: cascadia.MustCompile(".legal-page-section"),
		init:   initLegal,
	}
}

func initLegal(c *Context) error {
	c.each(`.legal-content a[href^="#"]`, func(_ int, a *html.Node) {
		c.bindOnce(a, "anchor-bound", dom.EventClick, func(ev *dom.Event) {
			ev.PreventDefault()
			id := strings.TrimPrefix(dom.AttrOr(a, "href", ""), "#")
			if target := c.Doc.ByID(id); target != nil {
				c.Win.ScrollIntoView(target)
			}
		})
	})

	var sections []*html.Node
	c.each(".legal-section", func(_ int, s *html.Node) {
		if !once(s, "reveal-bound") {
			return
		}
		dom.SetStyle(s, "opacity", "0")
		dom.SetStyle(s, "transform", "translateY(20px)")
		dom.SetStyle(s, "transition", "opacity 0.6s ease, transform 0.6s ease")
		sections = append(sections, s)
	})
	c.Win.Observe(sections, func(s *html.Node) {
		dom.SetStyle(s, "opacity", "1")
		dom.SetStyle(s, "transform", "translateY(0)")
	})
	return nil
}
