package routes

import (
	"github.com/andybalholm/cascadia"

	"pagenav/dom"
)

// Home re-initializes the home search, the hero particles and favorites.
func Home() Route {
	return &route{
		name:   "home",
		paths:  []string{"/", "/home"},
		marker: cascadia.MustCompile("#hero-particles"),
		init: func(c *Context) error {
			if c.collab.HomeSearch != nil {
				// the search binds itself once per input
				if in := c.Doc.ByID("home-search-input"); in != nil {
					dom.RemoveAttr(in, "data-home-search-initialized")
				}
				c.Init("home-search", c.collab.HomeSearch)
			}
			c.Init("particles", c.collab.Particles)
			c.Init("favorites", c.collab.Favorites)
			return nil
		},
	}
}

// Plans initializes the subscription plans component.
func Plans() Route {
	return &route{
		name:   "plans",
		paths:  []string{"/plans", "/planos"},
		marker: cascadia.MustCompile(".plans-section"),
		init: func(c *Context) error {
			c.Init("plans", c.collab.Plans)
			return nil
		},
	}
}

// Admin runs the admin app's components and announces the page.
func Admin() Route {
	return NewRoute("admin",
		func(string, *dom.Document) bool { return true },
		func(c *Context) error {
			c.Init("admin-modals", c.collab.AdminModals)
			c.Init("modern-forms", c.collab.ModernForms)
			c.Init("profile-images", c.collab.ProfileImages)
			c.Doc.DispatchCustom(EventAdminPageLoaded, map[string]any{"url": c.URL.String()})
			return nil
		})
}
