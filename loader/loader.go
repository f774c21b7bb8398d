// Package loader turns link clicks and form submissions into in-place
// content swaps with history entries, falling back to native navigation on
// any failure.
package loader

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"pagenav/browser"
	"pagenav/dom"
	"pagenav/fetcher"
	"pagenav/intercept"
	"pagenav/page"
	"pagenav/pagecache"
	"pagenav/routes"
	"pagenav/script"
	"pagenav/swap"
)

// IndicatorID is the id of the loading overlay.
const IndicatorID = "dynamic-loader"

const indicatorMarkup = `<div class="loader-spinner"><div class="spinner"></div><p>Carregando...</p></div>`

// Fetcher is the network surface the navigator needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*page.FetchedPage, error)
	Submit(ctx context.Context, s fetcher.Submission) (*fetcher.SubmitResult, error)
	Suggestions(ctx context.Context, base, query, category string) ([]fetcher.Suggestion, error)
}

// binder is implemented by script runners that expose the navigator to
// page scripts.
type binder interface {
	Bind(script.Loader)
}

type options struct {
	rules     intercept.Rules
	swap      swap.Options
	initDelay time.Duration
	runner    script.Runner
	registry  *routes.Registry
	collab    routes.Collaborators
	logger    *slog.Logger
}

// Option configures a Navigator.
type Option func(*options)

// WithRules sets the interception exclusions.
func WithRules(r intercept.Rules) Option { return func(o *options) { o.rules = r } }

// WithSwapOptions sets the swap timings and stylesheet table.
func WithSwapOptions(s swap.Options) Option { return func(o *options) { o.swap = s } }

// WithInitDelay sets how long first-load initializers wait.
func WithInitDelay(d time.Duration) Option { return func(o *options) { o.initDelay = d } }

// WithRunner sets the script runner used for re-inserted scripts.
func WithRunner(r script.Runner) Option { return func(o *options) { o.runner = r } }

// WithRegistry replaces the stock route registry.
func WithRegistry(r *routes.Registry) Option { return func(o *options) { o.registry = r } }

// WithCollaborators sets the out-of-band page components.
func WithCollaborators(c routes.Collaborators) Option { return func(o *options) { o.collab = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Navigator is the dynamic page loader bound to one window. All methods
// must be called from the window's loop.
type Navigator struct {
	win        *browser.Window
	fetch      Fetcher
	cache      *pagecache.Cache
	swapper    *swap.Swapper
	dispatcher *routes.Dispatcher
	rules      intercept.Rules
	runner     script.Runner
	logger     *slog.Logger

	group   singleflight.Group
	loading atomic.Bool
	current string
	ctx     context.Context
	active  bool
	closed  bool

	detach  func()
	offPop  func()
	offLoad func()
}

// New creates a navigator for win fetching through f.
func New(win *browser.Window, f Fetcher, opts ...Option) *Navigator {
	o := options{
		rules:     intercept.DefaultRules(),
		swap:      swap.DefaultOptions(),
		initDelay: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.runner == nil {
		o.runner = script.Nop{}
	}
	if o.swap.AdminPrefix == "" {
		o.swap.AdminPrefix = o.rules.AdminPrefix
	}

	n := &Navigator{
		win:    win,
		fetch:  f,
		cache:  pagecache.New(),
		rules:  o.rules,
		runner: o.runner,
		logger: o.logger.With("component", "loader"),
		ctx:    win.Context(),
	}
	n.swapper = swap.New(win, o.runner, o.swap, o.logger)
	n.dispatcher = routes.NewDispatcher(win, o.registry, routes.Options{
		InitDelay:   o.initDelay,
		AdminPrefix: o.rules.AdminPrefix,
		Navigator:   n,
		Suggester:   f,
		Collab:      o.collab,
		Logger:      o.logger,
	})
	return n
}

// Start activates the navigator on the current document: it installs the
// interceptors, records the landing entry and runs the first-load
// initializers. It reports false on admin pages, which are left to native
// navigation. Native loads later in the session re-run the same startup.
func (n *Navigator) Start(ctx context.Context) bool {
	if ctx != nil {
		n.ctx = ctx
	}
	if b, ok := n.runner.(binder); ok {
		b.Bind(n)
	}
	if n.offPop == nil {
		n.offPop = n.win.History.OnPopState(n.popstate)
		n.offLoad = n.win.OnLoad(n.nativeLoad)
	}
	return n.activate()
}

func (n *Navigator) activate() bool {
	n.deactivate()
	if n.isAdmin(n.win.Location().Path) {
		n.logger.Debug("admin page, loader inactive", "url", n.win.Href())
		return false
	}

	n.current = n.win.Href()
	n.ensureIndicator()
	n.detach = intercept.Attach(n.win.Doc, n.rules, n.win.Location, n)
	n.win.History.ReplaceState(map[string]any{"url": n.current}, n.current)
	n.active = true
	n.dispatcher.Dispatch(n.current, routes.FirstLoad)
	n.logger.Debug("loader started", "url", n.current)
	return true
}

func (n *Navigator) deactivate() {
	if n.detach != nil {
		n.detach()
		n.detach = nil
	}
	n.active = false
}

// nativeLoad runs after the window replaced its document. The old
// listeners and cached pages died with it, so the loader starts over.
func (n *Navigator) nativeLoad() {
	if n.closed {
		return
	}
	n.loading.Store(false)
	n.cache.Clear()
	n.activate()
}

// Dispose detaches every listener and cancels pending initializers.
func (n *Navigator) Dispose() {
	n.deactivate()
	n.closed = true
	if n.offPop != nil {
		n.offPop()
		n.offLoad()
		n.offPop, n.offLoad = nil, nil
	}
	n.dispatcher.Dispose()
	if b, ok := n.runner.(binder); ok {
		b.Bind(nil)
	}
}

func (n *Navigator) isAdmin(path string) bool {
	return n.rules.AdminPrefix != "" && strings.HasPrefix(path, n.rules.AdminPrefix)
}

// Loading reports whether a navigation is in flight.
func (n *Navigator) Loading() bool { return n.loading.Load() }

// CurrentURL returns the URL of the content on screen.
func (n *Navigator) CurrentURL() string { return n.current }

// Cache returns the page cache.
func (n *Navigator) Cache() *pagecache.Cache { return n.cache }

// ClearCache drops every cached page.
func (n *Navigator) ClearCache() {
	n.cache.Clear()
	n.logger.Debug("cache cleared")
}

// Load navigates to rawURL in place. It is dropped while another
// navigation is in flight or when rawURL is already on screen.
func (n *Navigator) Load(rawURL string) {
	n.load(rawURL, true, false)
}

func (n *Navigator) popstate(ev browser.PopStateEvent) {
	target, _ := ev.State["url"].(string)
	if target == "" {
		return
	}
	if !n.active {
		// the entry belongs to a document this loader no longer drives
		n.win.Reload()
		return
	}
	n.load(target, false, false)
}

func (n *Navigator) load(rawURL string, push, force bool) {
	if n.closed {
		return
	}
	abs, err := n.win.Resolve(rawURL)
	if err != nil {
		n.logger.Warn("bad navigation target", "url", rawURL, "error", err)
		return
	}
	if !force && abs == n.current {
		n.logger.Debug("already on page", "url", abs)
		return
	}
	if !n.loading.CompareAndSwap(false, true) {
		n.logger.Debug("navigation in flight, dropped", "url", abs)
		return
	}

	log := n.logger.With("nav_id", uuid.NewString(), "url", abs)
	n.showIndicator(true)

	if fp, ok := n.cache.Get(abs); ok && !force {
		log.Debug("cache hit")
		n.apply(log, abs, fp, push)
		return
	}

	ctx := n.ctx
	n.win.Loop.Go(func() func() {
		fp, err := n.page(ctx, abs)
		return func() {
			if n.closed {
				return
			}
			if err != nil {
				n.fail(log, abs, err)
				return
			}
			n.apply(log, abs, fp, push)
		}
	})
}

// page fetches abs and caches the result. Concurrent requests for the same
// URL share one fetch.
func (n *Navigator) page(ctx context.Context, abs string) (*page.FetchedPage, error) {
	v, err, shared := n.group.Do(abs, func() (any, error) {
		fp, err := n.fetch.Fetch(ctx, abs)
		if err != nil {
			return nil, err
		}
		n.cache.Set(abs, fp)
		return fp, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		n.logger.Debug("fetch shared", "url", abs)
	}
	return v.(*page.FetchedPage), nil
}

// apply swaps fp in for abs. The flag clears once the content is in place.
func (n *Navigator) apply(log *slog.Logger, abs string, fp *page.FetchedPage, push bool) {
	err := n.swapper.Apply(fp, abs, swap.Hooks{
		Swapped: n.finish,
		Settled: func() { n.dispatcher.Dispatch(abs, routes.AfterSwap) },
	})
	if err != nil {
		n.fail(log, abs, err)
		return
	}
	if push {
		n.win.History.PushState(map[string]any{"url": abs}, abs)
	}
	n.current = abs
	log.Info("navigated", "title", fp.Title, "push", push)
}

// fail logs err and hands the navigation to the browser.
func (n *Navigator) fail(log *slog.Logger, abs string, err error) {
	var netErr *fetcher.NetworkError
	var parseErr *page.ParseError
	switch {
	case errors.As(err, &netErr):
		log.Error("load failed, navigating natively", "status", netErr.Status, "error", err)
	case errors.As(err, &parseErr):
		log.Error("page unparseable, navigating natively", "error", err)
	case errors.Is(err, swap.ErrNoContainer):
		log.Error("no content container, navigating natively", "error", err)
	default:
		log.Error("load failed, navigating natively", "error", err)
	}
	n.finish()
	n.win.Assign(abs)
}

func (n *Navigator) finish() {
	n.loading.Store(false)
	n.showIndicator(false)
}

// SubmitForm submits form in the background and swaps in the response. A
// redirect loads its target; GET forms navigate to action?query.
func (n *Navigator) SubmitForm(form *html.Node) {
	if n.closed {
		return
	}
	action := dom.AttrOr(form, "action", "")
	abs, err := n.win.Resolve(action)
	if err != nil {
		n.logger.Warn("bad form action", "action", action, "error", err)
		return
	}
	values := dom.FormValues(form)

	if !strings.EqualFold(dom.AttrOr(form, "method", "get"), "post") {
		u, _ := url.Parse(abs)
		u.RawQuery = values.Encode()
		n.Load(u.String())
		return
	}

	if !n.loading.CompareAndSwap(false, true) {
		n.logger.Debug("navigation in flight, submit dropped", "action", abs)
		return
	}
	log := n.logger.With("nav_id", uuid.NewString(), "action", abs)
	n.showIndicator(true)

	sub := fetcher.Submission{
		Action:  abs,
		Method:  "POST",
		Enctype: "application/x-www-form-urlencoded",
		Values:  values,
	}
	ctx := n.ctx
	n.win.Loop.Go(func() func() {
		res, err := n.fetch.Submit(ctx, sub)
		return func() {
			if n.closed {
				return
			}
			if err != nil {
				log.Error("submit failed, submitting natively", "error", err)
				n.finish()
				n.win.SubmitNative(form)
				return
			}
			n.submitted(log, form, res)
		}
	})
}

func (n *Navigator) submitted(log *slog.Logger, form *html.Node, res *fetcher.SubmitResult) {
	if res.Redirected {
		log.Info("submit redirected", "target", res.FinalURL)
		n.cache.Delete(res.FinalURL)
		n.finish()
		n.load(res.FinalURL, true, true)
		return
	}

	here := n.win.Href()
	err := n.swapper.Apply(res.Page, here, swap.Hooks{
		Swapped: n.finish,
		Settled: func() { n.dispatcher.Dispatch(here, routes.AfterSwap) },
	})
	if err != nil {
		log.Error("submit response not swappable, submitting natively", "error", err)
		n.finish()
		n.win.SubmitNative(form)
		return
	}
	log.Info("submit response swapped", "title", res.Page.Title)
}

// Preload fetches rawURL into the cache unless it is there already.
// Failures are only logged.
func (n *Navigator) Preload(rawURL string) {
	abs, err := n.win.Resolve(rawURL)
	if err != nil {
		n.logger.Warn("bad preload target", "url", rawURL, "error", err)
		return
	}
	if n.cache.Has(abs) {
		return
	}
	ctx := n.ctx
	n.win.Loop.Go(func() func() {
		_, err := n.page(ctx, abs)
		return func() {
			if err != nil {
				n.logger.Warn("preload failed", "url", abs, "error", err)
				return
			}
			n.logger.Debug("preloaded", "url", abs)
		}
	})
}

func (n *Navigator) ensureIndicator() {
	if n.win.Doc.ByID(IndicatorID) != nil {
		return
	}
	body := n.win.Doc.Body()
	if body == nil {
		return
	}
	el := dom.CreateElement("div", "id", IndicatorID)
	dom.SetStyle(el, "display", "none")
	if nodes, err := dom.FragmentFromHTML(indicatorMarkup); err == nil {
		for _, c := range nodes {
			el.AppendChild(c)
		}
	}
	body.AppendChild(el)
}

func (n *Navigator) showIndicator(on bool) {
	el := n.win.Doc.ByID(IndicatorID)
	if el == nil {
		return
	}
	if on {
		dom.SetStyle(el, "display", "flex")
		return
	}
	dom.SetStyle(el, "display", "none")
}
