package routes

import (
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagenav/dom"
	"pagenav/swap"
)

// Profile wires the tabs and the avatar upload.
func Profile() Route {
	return &route{
		name:     "profile",
		prefixes: []string{"/profile"},
		marker:   cascadia.MustCompile(".profile-hero"),
		init:     initProfile,
	}
}

func initProfile(c *Context) error {
	swap.SetMedia(c.Doc, "profile-css", swap.MediaActive)

	c.each(".tab-button", func(_ int, btn *html.Node) {
		c.bindOnce(btn, "tab-bound", dom.EventClick, func(*dom.Event) {
			c.each(".tab-button", func(_ int, b *html.Node) { dom.RemoveClass(b, "active") })
			c.each(".tab-content-item", func(_ int, t *html.Node) { dom.RemoveClass(t, "active") })
			dom.AddClass(btn, "active")
			if tab := c.Doc.ByID(dom.AttrOr(btn, "data-tab", "") + "-content"); tab != nil {
				dom.AddClass(tab, "active")
			}
		})
	})

	form := c.Doc.ByID("profile-image-form")
	input := c.Doc.ByID("profile-image-input")
	if form != nil && input != nil {
		c.bindOnce(input, "upload-bound", dom.EventChange, func(*dom.Event) {
			if dom.Value(input) != "" {
				c.Win.SubmitNative(form)
			}
		})
	}

	for _, sel := range []string{".stat-card", ".info-item", ".social-card"} {
		c.stagger(sel, 100*time.Millisecond, "animate-fade-up")
	}
	return nil
}
