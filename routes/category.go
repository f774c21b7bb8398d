package routes

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	nethtml "golang.org/x/net/html"

	"pagenav/dom"
	"pagenav/fetcher"
)

// Suggestion dropdown timings and copy.
const (
	suggestDebounce = 300 * time.Millisecond
	suggestHide     = 200 * time.Millisecond
	suggestMinLen   = 2
	NoSuggestions   = "Nenhuma sugestão encontrada"
)

// Category wires the category search dropdown and the post card entrance.
func Category() Route {
	return &route{
		name:     "category",
		paths:    []string{"/categorias"},
		prefixes: []string{"/categoria/"},
		marker:   cascadia.MustCompile(".category-hero"),
		init:     initCategory,
	}
}

func initCategory(c *Context) error {
	input := c.Doc.QueryFirst(".category-search-input")
	dropdown := c.Doc.QueryFirst(".search-suggestions-dropdown")
	if input != nil && dropdown != nil && once(input, "category-search-bound") {
		(&categorySearch{c: c, input: input, dropdown: dropdown}).bind()
	}

	c.stagger(".modern-post-card", 100*time.Millisecond, "animate-fade-up")
	return nil
}

type categorySearch struct {
	c        *Context
	input    *nethtml.Node
	dropdown *nethtml.Node

	query    string
	debounce func()
	hiding   func()
}

func (s *categorySearch) bind() {
	doc := s.c.Doc
	doc.On(s.input, dom.EventInput, func(*dom.Event) { s.changed() })
	doc.On(s.input, dom.EventFocus, func(*dom.Event) {
		if len([]rune(strings.TrimSpace(dom.Value(s.input)))) >= suggestMinLen {
			s.show()
		}
	})
	doc.On(s.input, dom.EventBlur, func(*dom.Event) { s.hide() })
	doc.On(s.input, dom.EventKeyDown, s.key)
}

func (s *categorySearch) changed() {
	query := strings.TrimSpace(dom.Value(s.input))
	category := dom.AttrOr(s.input, "data-category", "")
	s.query = query
	if s.debounce != nil {
		s.debounce()
		s.debounce = nil
	}
	if len([]rune(query)) < suggestMinLen {
		s.hide()
		return
	}
	s.debounce = s.c.After(suggestDebounce, func() {
		s.debounce = nil
		if s.query == query {
			s.fetch(query, category)
		}
	})
}

func (s *categorySearch) fetch(query, category string) {
	c := s.c
	if c.suggest == nil {
		s.render(nil)
		s.show()
		return
	}
	ctx, base := c.Win.Context(), c.Win.Href()
	c.Win.Loop.Go(func() func() {
		items, err := c.suggest.Suggestions(ctx, base, query, category)
		return func() {
			if err != nil {
				c.Logger.Warn("suggestions failed", "query", query, "error", err)
				items = nil
			}
			// a newer query owns the dropdown
			if s.query != query || !c.Doc.Contains(s.dropdown) {
				return
			}
			s.render(items)
			s.show()
		}
	})
}

func (s *categorySearch) render(items []fetcher.Suggestion) {
	markup := `<div class="no-suggestions">` + NoSuggestions + `</div>`
	if len(items) > 0 {
		var b strings.Builder
		for _, it := range items {
			fmt.Fprintf(&b, `<div class="suggestion-item" data-url="%s">`+
				`<div class="suggestion-icon"><i class="%s"></i></div>`+
				`<div class="suggestion-content"><div class="suggestion-title">%s</div>`+
				`<div class="suggestion-description">%s</div></div></div>`,
				html.EscapeString(it.URL), html.EscapeString(it.Icon),
				s.c.sanitize.Sanitize(it.Title), s.c.sanitize.Sanitize(it.Description))
		}
		markup = b.String()
	}
	nodes, err := dom.FragmentFromHTML(markup)
	if err != nil {
		s.c.Logger.Warn("render suggestions", "error", err)
		return
	}
	s.c.Doc.ReplaceChildren(s.dropdown, nodes)

	dom.Sel(s.dropdown).Find(".suggestion-item").Each(func(_ int, sel *goquery.Selection) {
		item := sel.Get(0)
		s.c.Doc.On(item, dom.EventClick, func(*dom.Event) { s.open(dom.AttrOr(item, "data-url", "")) })
	})
}

func (s *categorySearch) open(target string) {
	c := s.c
	abs, err := c.Win.Resolve(target)
	if err != nil {
		c.Logger.Warn("bad suggestion url", "url", target, "error", err)
		return
	}
	if c.Nav != nil {
		c.Nav.Load(abs)
		return
	}
	c.Win.Assign(abs)
}

func (s *categorySearch) show() {
	if s.hiding != nil {
		s.hiding()
		s.hiding = nil
	}
	dom.SetStyle(s.dropdown, "display", "block")
}

func (s *categorySearch) hide() {
	if s.hiding != nil {
		s.hiding()
	}
	s.hiding = s.c.After(suggestHide, func() {
		s.hiding = nil
		dom.SetStyle(s.dropdown, "display", "none")
	})
}

// key moves the highlight through the items with the arrow keys, opens
// the highlighted one on Enter and closes the dropdown on Escape.
func (s *categorySearch) key(ev *dom.Event) {
	items := dom.Sel(s.dropdown).Find(".suggestion-item").Nodes
	cur := -1
	for i, it := range items {
		if dom.HasClass(it, "highlighted") {
			cur = i
			break
		}
	}

	move := func(next int) {
		ev.PreventDefault()
		if len(items) == 0 {
			return
		}
		if cur >= 0 {
			dom.RemoveClass(items[cur], "highlighted")
		}
		dom.AddClass(items[(next+len(items))%len(items)], "highlighted")
	}

	switch ev.Key {
	case "ArrowDown":
		if cur < 0 {
			move(0)
		} else {
			move(cur + 1)
		}
	case "ArrowUp":
		if cur < 0 {
			move(-1)
		} else {
			move(cur - 1)
		}
	case "Enter":
		if cur >= 0 {
			ev.PreventDefault()
			s.c.Win.Click(items[cur])
		}
	case "Escape":
		s.hide()
		s.c.Win.Focus(s.input, true)
	}
}
