// Package browser is a headless stand-in for a web browser window: a live
// document, a location, session history and an event loop. Native
// navigations (link default actions, form submissions, location
// assignment) replace the whole document, as a real browser does.
package browser

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"pagenav/dom"
)

// PageSource fetches documents for native navigations.
type PageSource interface {
	Get(ctx context.Context, url string) (body, finalURL string, err error)
	Post(ctx context.Context, action, enctype string, values url.Values) (body, finalURL string, err error)
}

// Window owns the live document. Its methods must be called from the loop
// (or, in tests, from the goroutine driving RunUntilIdle).
type Window struct {
	Loop    *Loop
	Doc     *dom.Document
	History *History

	source PageSource
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	location   *url.URL
	scrollY    int
	scrolledTo *html.Node
	alerts     []string
	tabs       []string
	native     int
	onLoad     map[int]func()
	nextLoadID int
}

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *Window) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a window with an empty document.
func New(loop *Loop, src PageSource, opts ...Option) *Window {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Window{
		Loop:     loop,
		source:   src,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		location: &url.URL{Scheme: "about", Opaque: "blank"},
		onLoad:   make(map[int]func()),
	}
	w.History = newHistory(w)

	doc, _ := dom.ParseString("<html><head></head><body></body></html>")
	w.Doc = doc

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Close cancels any in-flight native loads.
func (w *Window) Close() {
	w.cancel()
}

// Context is canceled by Close.
func (w *Window) Context() context.Context { return w.ctx }

// Source returns the transport used for native loads.
func (w *Window) Source() PageSource { return w.source }

// Logger returns the window's logger.
func (w *Window) Logger() *slog.Logger { return w.logger }

// Location returns a copy of the current URL.
func (w *Window) Location() *url.URL {
	u := *w.location
	return &u
}

// Href returns the current URL as a string.
func (w *Window) Href() string { return w.location.String() }

// Resolve makes ref absolute against the current location.
func (w *Window) Resolve(ref string) (string, error) {
	u, err := w.location.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("resolving %q: %w", ref, err)
	}
	return u.String(), nil
}

func (w *Window) setLocation(raw string) {
	u, err := w.location.Parse(raw)
	if err != nil {
		w.logger.Warn("invalid location", "url", raw, "error", err)
		return
	}
	w.location = u
}

// Open performs the initial native load of rawURL.
func (w *Window) Open(rawURL string) {
	w.Assign(rawURL)
}

// Assign navigates natively to rawURL, as setting location.href does. The
// location changes at once; the document is replaced when the response
// arrives.
func (w *Window) Assign(rawURL string) {
	abs, err := w.Resolve(rawURL)
	if err != nil {
		w.logger.Warn("native navigation aborted", "error", err)
		return
	}
	w.load(abs, true)
}

// Reload reloads the current location natively without adding an entry.
func (w *Window) Reload() {
	w.load(w.Href(), false)
}

// LoadHTML replaces the document with markup as though it had been fetched
// from rawURL. It runs synchronously and records a history entry.
func (w *Window) LoadHTML(rawURL, markup string) {
	w.native++
	w.setLocation(rawURL)
	w.commit(w.Href(), markup, true)
}

func (w *Window) load(abs string, push bool) {
	w.native++
	w.setLocation(abs)
	w.logger.Debug("native navigation", "url", abs)

	ctx := w.ctx
	w.Loop.Go(func() func() {
		body, final, err := w.source.Get(ctx, abs)
		return func() {
			if err != nil {
				w.logger.Error("native load failed", "url", abs, "error", err)
				body, final = errorPage(abs, err), abs
			}
			w.commit(final, body, push)
		}
	})
}

// SubmitNative submits form as form.submit() does: no submit event, full
// document replacement with the response.
func (w *Window) SubmitNative(form *html.Node) {
	action := dom.AttrOr(form, "action", "")
	abs, err := w.Resolve(action)
	if err != nil {
		w.logger.Warn("native submit aborted", "error", err)
		return
	}
	values := dom.FormValues(form)
	method := strings.ToUpper(dom.AttrOr(form, "method", "GET"))

	if method != "POST" {
		u, _ := url.Parse(abs)
		u.RawQuery = values.Encode()
		w.load(u.String(), true)
		return
	}

	w.native++
	enctype := dom.AttrOr(form, "enctype", "application/x-www-form-urlencoded")
	w.logger.Debug("native submit", "action", abs, "enctype", enctype)

	ctx := w.ctx
	w.Loop.Go(func() func() {
		body, final, err := w.source.Post(ctx, abs, enctype, values)
		return func() {
			if err != nil {
				w.logger.Error("native submit failed", "action", abs, "error", err)
				body, final = errorPage(abs, err), abs
			}
			w.commit(final, body, true)
		}
	})
}

func (w *Window) commit(final, body string, push bool) {
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		root, _ = html.Parse(strings.NewReader(errorPage(final, err)))
	}
	w.Doc.Replace(root)
	if push {
		w.History.pushNative(final)
	}
	w.setLocation(final)
	w.scrollY = 0
	w.scrolledTo = nil

	for _, id := range slices.Sorted(maps.Keys(w.onLoad)) {
		if fn, ok := w.onLoad[id]; ok {
			fn()
		}
	}
}

var errorTmpl = template.Must(template.New("error").Parse(
	`<html><head><title>Error</title></head><body><h1>Page failed to load</h1><p>{{.URL}}</p><pre>{{.Err}}</pre></body></html>`))

func errorPage(u string, err error) string {
	var sb strings.Builder
	_ = errorTmpl.Execute(&sb, struct {
		URL string
		Err string
	}{u, err.Error()})
	return sb.String()
}

// OnLoad registers fn to run after every native document load and returns
// a function removing it.
func (w *Window) OnLoad(fn func()) func() {
	w.nextLoadID++
	id := w.nextLoadID
	w.onLoad[id] = fn
	return func() { delete(w.onLoad, id) }
}

// NativeNavigations counts full document loads started so far.
func (w *Window) NativeNavigations() int { return w.native }

// Click dispatches a click on n and, unless a listener prevented it, runs
// the default action: follow links, submit forms.
func (w *Window) Click(n *html.Node) {
	if !w.Doc.Dispatch(n, &dom.Event{Type: dom.EventClick}) {
		return
	}

	if a := dom.Closest(n, "a"); a != nil {
		w.followLink(a)
		return
	}

	if isSubmitButton(n) {
		if form := dom.Closest(n, "form"); form != nil {
			w.Submit(form)
		}
	}
}

func (w *Window) followLink(a *html.Node) {
	href, ok := dom.Attr(a, "href")
	if !ok {
		return
	}
	abs, err := w.Resolve(href)
	if err != nil {
		w.logger.Warn("bad link", "href", href, "error", err)
		return
	}
	if strings.EqualFold(dom.AttrOr(a, "target", ""), "_blank") {
		w.OpenTab(abs)
		return
	}

	u, _ := url.Parse(abs)
	cur := w.location
	if u.Fragment != "" && u.Scheme == cur.Scheme && u.Host == cur.Host &&
		u.Path == cur.Path && u.RawQuery == cur.RawQuery {
		if target := w.Doc.ByID(u.Fragment); target != nil {
			w.ScrollIntoView(target)
		}
		w.location = u
		return
	}
	w.Assign(abs)
}

func isSubmitButton(n *html.Node) bool {
	switch n.Data {
	case "button":
		t := strings.ToLower(dom.AttrOr(n, "type", "submit"))
		return t == "submit"
	case "input":
		t := strings.ToLower(dom.AttrOr(n, "type", ""))
		return t == "submit" || t == "image"
	}
	return false
}

// Submit fires a submit event on form and submits it natively unless a
// listener prevented the default.
func (w *Window) Submit(form *html.Node) {
	if w.Doc.Dispatch(form, &dom.Event{Type: dom.EventSubmit}) {
		w.SubmitNative(form)
	}
}

// Input sets the value of a control and fires an input event.
func (w *Window) Input(n *html.Node, value string) {
	dom.SetValue(n, value)
	w.Doc.Dispatch(n, &dom.Event{Type: dom.EventInput})
}

// Change fires a change event.
func (w *Window) Change(n *html.Node) {
	w.Doc.Dispatch(n, &dom.Event{Type: dom.EventChange})
}

// Key fires a keydown event. It returns false if the default was prevented.
func (w *Window) Key(n *html.Node, key string) bool {
	return w.Doc.Dispatch(n, &dom.Event{Type: dom.EventKeyDown, Key: key})
}

// Hover fires mouseenter, or mouseleave when leave is set.
func (w *Window) Hover(n *html.Node, leave bool) {
	typ := dom.EventMouseOver
	if leave {
		typ = dom.EventMouseOut
	}
	w.Doc.Dispatch(n, &dom.Event{Type: typ})
}

// Focus fires focus, or blur when lost is set.
func (w *Window) Focus(n *html.Node, lost bool) {
	typ := dom.EventFocus
	if lost {
		typ = dom.EventBlur
	}
	w.Doc.Dispatch(n, &dom.Event{Type: typ})
}

// ScrollTo sets the vertical scroll offset.
func (w *Window) ScrollTo(y int) {
	w.scrollY = y
	w.scrolledTo = nil
}

// ScrollY returns the vertical scroll offset.
func (w *Window) ScrollY() int { return w.scrollY }

// ScrollIntoView records n as the element scrolled to.
func (w *Window) ScrollIntoView(n *html.Node) {
	w.scrolledTo = n
}

// ScrolledTo returns the element last scrolled into view, if any.
func (w *Window) ScrolledTo() *html.Node { return w.scrolledTo }

// Observe reports each node as intersecting the viewport. A headless window
// has no layout, so every observed element is considered visible on the
// next loop turn.
func (w *Window) Observe(nodes []*html.Node, fn func(*html.Node)) {
	w.Loop.Post(func() {
		for _, n := range nodes {
			if w.Doc.Contains(n) {
				fn(n)
			}
		}
	})
}

// Alert records a user-visible message.
func (w *Window) Alert(msg string) {
	w.logger.Info("alert", "message", msg)
	w.alerts = append(w.alerts, msg)
}

// Alerts returns the messages shown so far.
func (w *Window) Alerts() []string { return append([]string(nil), w.alerts...) }

// OpenTab records a URL opened in a new tab or window.
func (w *Window) OpenTab(u string) {
	w.logger.Info("new tab", "url", u)
	w.tabs = append(w.tabs, u)
}

// Tabs returns the URLs opened in new tabs.
func (w *Window) Tabs() []string { return append([]string(nil), w.tabs...) }
