package routes

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/dom"
	"pagenav/fetcher"
)

// Navigator loads a URL through the dynamic loader.
type Navigator interface {
	Load(url string)
}

// Suggester queries the search suggestions endpoint.
type Suggester interface {
	Suggestions(ctx context.Context, base, query, category string) ([]fetcher.Suggestion, error)
}

// Component is an out-of-band page feature (favorites, particles, modals)
// re-initialized after each swap. Init must tolerate repeated calls.
type Component interface {
	Init(ctx context.Context, doc *dom.Document) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context, doc *dom.Document) error

func (f ComponentFunc) Init(ctx context.Context, doc *dom.Document) error { return f(ctx, doc) }

// InputBinder attaches behavior to a single input element.
type InputBinder interface {
	Bind(ctx context.Context, doc *dom.Document, input *html.Node) error
}

// Disposer is implemented by components holding resources beyond the
// document's lifetime.
type Disposer interface {
	Dispose()
}

// Collaborators are the external components the dispatcher calls into.
// Nil members are skipped.
type Collaborators struct {
	Favorites         Component
	HomeSearch        Component
	Particles         Component
	Plans             Component
	AdminModals       Component
	ModernForms       Component
	ProfileImages     Component
	FeatureModals     Component
	DownloadButtons   Component
	SearchSuggestions InputBinder
}

func (c Collaborators) all() []any {
	return []any{
		c.Favorites, c.HomeSearch, c.Particles, c.Plans, c.AdminModals,
		c.ModernForms, c.ProfileImages, c.FeatureModals, c.DownloadButtons,
		c.SearchSuggestions,
	}
}

// Mode says why a dispatch happens.
type Mode int

const (
	// FirstLoad is the server-rendered landing page.
	FirstLoad Mode = iota
	// AfterSwap follows a dynamic content swap.
	AfterSwap
)

func (m Mode) String() string {
	if m == FirstLoad {
		return "first-load"
	}
	return "after-swap"
}

// Context is handed to route initializers.
type Context struct {
	Win    *browser.Window
	Doc    *dom.Document
	URL    *url.URL
	Mode   Mode
	Nav    Navigator
	Logger *slog.Logger

	suggest  Suggester
	collab   Collaborators
	sanitize *bluemonday.Policy
	timers   *timers
}

// Path is the dispatched URL's path.
func (c *Context) Path() string { return c.URL.Path }

// After runs fn on the window loop after d. Pending timers are canceled
// when the dispatcher is disposed.
func (c *Context) After(d time.Duration, fn func()) func() {
	return c.timers.after(c.Win.Loop, d, fn)
}

// Init calls a collaborator if it is configured, logging failures.
func (c *Context) Init(name string, comp Component) {
	if comp == nil {
		return
	}
	if err := comp.Init(c.Win.Context(), c.Doc); err != nil {
		c.Logger.Warn("component init failed", "component", name, "error", err)
	}
}

// Collab returns the configured collaborators.
func (c *Context) Collab() Collaborators { return c.collab }

// each calls fn for every element matching selector.
func (c *Context) each(selector string, fn func(i int, n *html.Node)) {
	c.Doc.Find(selector).Each(func(i int, s *goquery.Selection) { fn(i, s.Get(0)) })
}

// bindOnce registers a listener on n unless one was already bound under
// key, which is recorded as a data attribute on the node.
func (c *Context) bindOnce(n *html.Node, key, typ string, fn dom.Listener) {
	if !once(n, key) {
		return
	}
	c.Doc.On(n, typ, fn)
}

// once marks n with data-<key> and reports whether it was unmarked.
func once(n *html.Node, key string) bool {
	attr := "data-" + key
	if dom.HasAttr(n, attr) {
		return false
	}
	dom.SetAttr(n, attr, "true")
	return true
}

// stagger sets increasing animation delays on the matched elements and
// adds class to each.
func (c *Context) stagger(selector string, step time.Duration, class string) {
	c.each(selector, func(i int, n *html.Node) {
		dom.SetStyle(n, "animation-delay", seconds(time.Duration(i)*step))
		if class != "" {
			dom.AddClass(n, class)
		}
	})
}

// seconds renders d as a CSS time in seconds.
func seconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', -1, 64) + "s"
}

// timers tracks pending callbacks so they can be canceled together.
type timers struct {
	next    int
	pending map[int]func()
}

func newTimers() *timers {
	return &timers{pending: make(map[int]func())}
}

func (t *timers) after(loop *browser.Loop, d time.Duration, fn func()) func() {
	t.next++
	id := t.next
	cancel := loop.SetTimeout(d, func() {
		delete(t.pending, id)
		fn()
	})
	t.pending[id] = cancel
	return func() {
		delete(t.pending, id)
		cancel()
	}
}

func (t *timers) cancelAll() {
	for id, cancel := range t.pending {
		cancel()
		delete(t.pending, id)
	}
}
