// Package routes runs page-specific initializers after the first load and
// after every dynamic swap.
package routes

import (
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/dom"
)

// Route is a page-specific initializer.
type Route interface {
	// Name returns a human-readable name for this route.
	Name() string

	// Match reports whether the route applies to path in doc.
	Match(path string, doc *dom.Document) bool

	// Init binds the page's behavior. It must tolerate running twice on
	// the same nodes.
	Init(c *Context) error
}

// Registry holds routes in registration order. Admin routes are kept
// apart; public routes never run on admin paths and vice versa.
type Registry struct {
	mu     sync.RWMutex
	public []Route
	admin  []Route
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a public route. Routes are checked in registration order.
func (r *Registry) Register(rt Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.public = append(r.public, rt)
}

// RegisterAdmin adds a route for the admin app.
func (r *Registry) RegisterAdmin(rt Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = append(r.admin, rt)
}

// Match returns every route matching path, in registration order.
func (r *Registry) Match(path string, doc *dom.Document, admin bool) []Route {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.public
	if admin {
		set = r.admin
	}
	var out []Route
	for _, rt := range set {
		if rt.Match(path, doc) {
			out = append(out, rt)
		}
	}
	return out
}

// Names lists the registered routes, public first.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for _, rt := range slices.Concat(r.public, r.admin) {
		names = append(names, rt.Name())
	}
	return names
}

// Default returns a registry with the stock site's routes.
func Default() *Registry {
	r := NewRegistry()
	r.Register(FAQ())
	r.Register(Contact())
	r.Register(About())
	r.Register(Category())
	r.Register(Profile())
	r.Register(Post())
	r.Register(Legal())
	r.Register(Home())
	r.Register(Plans())
	r.RegisterAdmin(Admin())
	return r
}

// route is a Route described by exact paths, path prefixes and a marker
// element whose presence also selects it.
type route struct {
	name     string
	paths    []string
	prefixes []string
	marker   cascadia.Sel
	extra    func(path string) bool
	init     func(c *Context) error
}

func (r *route) Name() string { return r.name }

func (r *route) Match(path string, doc *dom.Document) bool {
	if slices.Contains(r.paths, path) {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	if r.extra != nil && r.extra(path) {
		return true
	}
	return r.marker != nil && doc != nil && cascadia.Query(doc.Root(), r.marker) != nil
}

func (r *route) Init(c *Context) error { return r.init(c) }

// NewRoute builds a route from a match predicate and an initializer.
func NewRoute(name string, match func(path string, doc *dom.Document) bool, init func(c *Context) error) Route {
	return &funcRoute{name: name, match: match, init: init}
}

type funcRoute struct {
	name  string
	match func(string, *dom.Document) bool
	init  func(*Context) error
}

func (r *funcRoute) Name() string                              { return r.name }
func (r *funcRoute) Match(path string, doc *dom.Document) bool { return r.match(path, doc) }
func (r *funcRoute) Init(c *Context) error                     { return r.init(c) }

// Events fired on the document once initializers ran.
const (
	EventPageLoaded      = "pageLoaded"
	EventAdminPageLoaded = "adminPageLoaded"
)

// searchInputs are the inputs that get live suggestions.
const searchInputs = `input[name="q"], .search-bar input, #home-search-input`

// Options configures a Dispatcher.
type Options struct {
	InitDelay   time.Duration // first-load initializers wait this long
	AdminPrefix string
	Navigator   Navigator
	Suggester   Suggester
	Collab      Collaborators
	Logger      *slog.Logger
}

// Dispatcher runs the registry's routes against a window.
type Dispatcher struct {
	win      *browser.Window
	reg      *Registry
	opts     Options
	logger   *slog.Logger
	sanitize *bluemonday.Policy
	timers   *timers
}

// NewDispatcher creates a dispatcher for win.
func NewDispatcher(win *browser.Window, reg *Registry, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = Default()
	}
	return &Dispatcher{
		win:      win,
		reg:      reg,
		opts:     opts,
		logger:   logger,
		sanitize: bluemonday.StrictPolicy(),
		timers:   newTimers(),
	}
}

func (d *Dispatcher) isAdmin(path string) bool {
	return d.opts.AdminPrefix != "" && strings.HasPrefix(path, d.opts.AdminPrefix)
}

func (d *Dispatcher) context(u *url.URL, mode Mode) *Context {
	return &Context{
		Win:      d.win,
		Doc:      d.win.Doc,
		URL:      u,
		Mode:     mode,
		Nav:      d.opts.Navigator,
		Logger:   d.logger.With("url", u.String(), "mode", mode.String()),
		suggest:  d.opts.Suggester,
		collab:   d.opts.Collab,
		sanitize: d.sanitize,
		timers:   d.timers,
	}
}

// Dispatch runs the routes for rawURL. FirstLoad waits InitDelay and runs
// only the first matching route; AfterSwap runs every match at once and
// then fires pageLoaded.
func (d *Dispatcher) Dispatch(rawURL string, mode Mode) {
	u, err := url.Parse(rawURL)
	if err != nil {
		d.logger.Warn("dispatch: bad url", "url", rawURL, "error", err)
		return
	}

	if mode == FirstLoad {
		d.timers.after(d.win.Loop, d.opts.InitDelay, func() { d.dispatch(u, mode) })
		return
	}
	d.dispatch(u, mode)
}

func (d *Dispatcher) dispatch(u *url.URL, mode Mode) {
	c := d.context(u, mode)
	d.globals(c)

	rts := d.reg.Match(u.Path, c.Doc, d.isAdmin(u.Path))
	if mode == FirstLoad && len(rts) > 1 {
		rts = rts[:1]
	}
	for _, rt := range rts {
		d.run(c, rt)
	}

	c.Init("download-buttons", c.collab.DownloadButtons)
	if mode == AfterSwap {
		c.Doc.DispatchCustom(EventPageLoaded, map[string]any{"url": u.String()})
	}
}

func (d *Dispatcher) run(c *Context, rt Route) {
	c.Logger.Debug("route init", "route", rt.Name())
	if err := rt.Init(c); err != nil {
		c.Logger.Warn("route init failed", "route", rt.Name(), "error", err)
	}
}

// globals re-initializes the components that live outside any one route.
func (d *Dispatcher) globals(c *Context) {
	c.Init("favorites", c.collab.Favorites)

	if b := c.collab.SearchSuggestions; b != nil {
		c.each(searchInputs, func(_ int, n *html.Node) {
			if !once(n, "suggestions-initialized") {
				return
			}
			if err := b.Bind(c.Win.Context(), c.Doc, n); err != nil {
				c.Logger.Warn("search suggestions failed", "error", err)
			}
		})
	}

	c.Init("feature-modals", c.collab.FeatureModals)
}

// Dispose cancels pending initializer timers and releases collaborators
// that hold resources.
func (d *Dispatcher) Dispose() {
	d.timers.cancelAll()
	for _, c := range d.opts.Collab.all() {
		if dp, ok := c.(Disposer); ok {
			dp.Dispose()
		}
	}
}
