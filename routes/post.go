package routes

import (
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagenav/dom"
	"pagenav/swap"
)

const (
	lightboxOpen  = 10 * time.Millisecond
	lightboxClose = 300 * time.Millisecond
)

// Post wires the image lightbox, the share buttons and the entrance
// animations of a post page.
func Post() Route {
	return &route{
		name:     "post",
		prefixes: []string{"/post/"},
		marker:   cascadia.MustCompile(".post-hero-section"),
		extra:    isPostPath,
		init:     initPost,
	}
}

// isPostPath matches /<category>/<slug>.
func isPostPath(path string) bool {
	parts := strings.Split(path, "/")
	return len(parts) == 3 && parts[0] == "" && parts[1] != "" && parts[2] != ""
}

func initPost(c *Context) error {
	swap.SetMedia(c.Doc, "post-detail-css", swap.MediaActive)

	if box := c.Doc.QueryFirst(".post-image-container"); box != nil {
		c.bindOnce(box, "lightbox-bound", dom.EventClick, func(*dom.Event) {
			if img := dom.Sel(box).Find("img").Get(0); img != nil {
				openLightbox(c, img)
			}
		})
	}

	c.each(".share-btn", func(_ int, btn *html.Node) {
		platform := sharePlatform(btn)
		if platform == "" {
			return
		}
		c.bindOnce(btn, "share-bound", dom.EventClick, func(ev *dom.Event) {
			ev.PreventDefault()
			c.Win.OpenTab(ShareURL(platform, c.Win.Href(), c.Doc.Title()))
		})
	})

	c.stagger(".stat-item", 100*time.Millisecond, "animate-slide-up")
	c.stagger(".related-post-item", 100*time.Millisecond, "animate-slide-up")
	c.stagger(".tag-item", 50*time.Millisecond, "animate-fade-in")
	c.stagger(".share-btn", 100*time.Millisecond, "animate-slide-up")
	return nil
}

func openLightbox(c *Context, img *html.Node) {
	body := c.Doc.Body()
	if body == nil {
		return
	}
	box := dom.CreateElement("div", "class", "image-lightbox")
	content := dom.CreateElement("div", "class", "lightbox-content")
	closer := dom.CreateElement("span", "class", "lightbox-close")
	dom.SetText(closer, "×")
	content.AppendChild(closer)
	content.AppendChild(dom.CreateElement("img",
		"src", dom.AttrOr(img, "src", ""), "alt", dom.AttrOr(img, "alt", "")))
	box.AppendChild(content)
	body.AppendChild(box)

	c.After(lightboxOpen, func() { dom.AddClass(box, "active") })

	closeBox := func() {
		dom.RemoveClass(box, "active")
		c.After(lightboxClose, func() { dom.Remove(box) })
	}
	c.Doc.On(closer, dom.EventClick, func(*dom.Event) { closeBox() })
	c.Doc.On(box, dom.EventClick, func(ev *dom.Event) {
		if ev.Target == box {
			closeBox()
		}
	})
}

var sharePlatforms = []string{"facebook", "twitter", "whatsapp", "telegram", "linkedin"}

func sharePlatform(btn *html.Node) string {
	for _, p := range sharePlatforms {
		if dom.HasClass(btn, p) {
			return p
		}
	}
	return ""
}

// ShareURL returns the share dialog address of platform for a page.
func ShareURL(platform, pageURL, title string) string {
	u, t := url.QueryEscape(pageURL), url.QueryEscape(title)
	switch platform {
	case "facebook":
		return "https://www.facebook.com/sharer/sharer.php?u=" + u
	case "twitter":
		return "https://twitter.com/intent/tweet?url=" + u + "&text=" + t
	case "whatsapp":
		return "https://api.whatsapp.com/send?text=" + t + "%20" + u
	case "telegram":
		return "https://t.me/share/url?url=" + u + "&text=" + t
	case "linkedin":
		return "https://www.linkedin.com/sharing/share-offsite/?url=" + u
	}
	return ""
}
