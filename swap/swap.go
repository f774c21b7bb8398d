// Package swap replaces the live document's main content with a fetched
// page and re-applies the page's stylesheets and scripts.
package swap

import (
	"errors"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/dom"
	"pagenav/page"
	"pagenav/script"
)

// ErrNoContainer means the live document has no content region to swap
// into.
var ErrNoContainer = errors.New("no content container in live document")

// Stylesheet media values.
const (
	MediaInert  = "print"
	MediaActive = "all"
)

// Markers set on injected elements.
const (
	AttrDynamicJS     = "data-dynamic-js"
	AttrDynamicInline = "data-dynamic-inline"
	AttrDynamicStyle  = "data-dynamic-style"
)

// Stylesheet is a page-specific <link> already present in the shell,
// identified by id, active on the listed paths.
type Stylesheet struct {
	ID       string
	Paths    []string
	Prefixes []string
}

// Matches reports whether the stylesheet belongs to path.
func (s Stylesheet) Matches(path string) bool {
	if slices.Contains(s.Paths, path) {
		return true
	}
	for _, p := range s.Prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// DefaultStylesheets is the stock site's table. The first match wins.
var DefaultStylesheets = []Stylesheet{
	{ID: "faq-css", Paths: []string{"/faq"}},
	{ID: "contact-css", Paths: []string{"/contact", "/contato"}},
	{ID: "about-css", Paths: []string{"/about", "/sobre"}},
	{ID: "category-css", Paths: []string{"/categorias"}, Prefixes: []string{"/categoria/"}},
	{ID: "profile-css", Prefixes: []string{"/profile"}},
	{ID: "plans-css", Paths: []string{"/plans", "/planos"}},
}

// Live containers, in lookup order.
var (
	adminContainers  = []string{page.AdminContainer}
	publicContainers = []string{".main-content-container", "main", ".container", "#content"}
)

// Options tunes the swapper.
type Options struct {
	FadeDelay   time.Duration // opacity 0 until the content changes
	ReinitDelay time.Duration // after the swap, before Settled
	AdminPrefix string
	Stylesheets []Stylesheet
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		FadeDelay:   150 * time.Millisecond,
		ReinitDelay: 200 * time.Millisecond,
		AdminPrefix: "/admin",
		Stylesheets: DefaultStylesheets,
	}
}

// Hooks are called as the swap progresses. Either may be nil.
type Hooks struct {
	Swapped func() // new content is in the document
	Settled func() // scripts had time to load; run initializers now
}

// Swapper applies fetched pages to a window.
type Swapper struct {
	win    *browser.Window
	runner script.Runner
	opts   Options
	logger *slog.Logger
}

// New creates a swapper. A nil runner inserts scripts without running them.
func New(win *browser.Window, runner script.Runner, opts Options, logger *slog.Logger) *Swapper {
	if runner == nil {
		runner = script.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Stylesheets == nil {
		opts.Stylesheets = DefaultStylesheets
	}
	return &Swapper{win: win, runner: runner, opts: opts, logger: logger}
}

// IsAdmin reports whether path belongs to the admin app.
func (s *Swapper) IsAdmin(path string) bool {
	return s.opts.AdminPrefix != "" && strings.HasPrefix(path, s.opts.AdminPrefix)
}

// Apply swaps fp into the live document for routeURL. Admin routes swap at
// once; public routes fade out for FadeDelay first. Errors are returned
// before the document is touched.
func (s *Swapper) Apply(fp *page.FetchedPage, routeURL string, h Hooks) error {
	u, err := url.Parse(routeURL)
	if err != nil {
		return err
	}
	admin := s.IsAdmin(u.Path)
	doc := s.win.Doc

	container := s.liveContainer(admin)
	if container == nil {
		return ErrNoContainer
	}

	doc.SetTitle(fp.Title)
	if !admin {
		s.toggleStylesheets(u.Path)
	}

	if admin {
		s.replace(container, fp)
		s.win.ScrollTo(0)
		call(h.Swapped)
		call(h.Settled)
	} else {
		dom.SetStyle(container, "opacity", "0")
		s.win.Loop.SetTimeout(s.opts.FadeDelay, func() {
			if !s.win.Doc.Contains(container) {
				// a native load replaced the document mid-fade
				s.logger.Debug("swap target detached", "url", routeURL)
				call(h.Swapped)
				return
			}
			s.replace(container, fp)
			dom.SetStyle(container, "opacity", "1")
			s.win.ScrollTo(0)
			call(h.Swapped)
			s.win.Loop.SetTimeout(s.opts.ReinitDelay, func() { call(h.Settled) })
		})
	}

	s.footer(u.Path)
	s.activeNav(u)
	return nil
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (s *Swapper) liveContainer(admin bool) *html.Node {
	var selectors []string
	if admin {
		selectors = append(selectors, adminContainers...)
	}
	selectors = append(selectors, publicContainers...)
	for _, sel := range selectors {
		if n := s.win.Doc.QueryFirst(sel); n != nil {
			return n
		}
	}
	return nil
}

// replace puts fresh copies of the fragment into container and re-applies
// the page's scripts and styles.
func (s *Swapper) replace(container *html.Node, fp *page.FetchedPage) {
	loaded := s.presentScripts()
	s.win.Doc.ReplaceChildren(container, fp.CloneContent())
	s.externalScripts(fp.ScriptURLs, loaded)
	s.inlineScripts(fp.InlineScripts)
	s.inlineStyles(fp.InlineStyles)
	base, err := url.Parse(fp.URL)
	if err != nil || fp.URL == "" {
		base = s.win.Location()
	}
	s.contentScripts(container, loaded, base)
}

// toggleStylesheets makes every known page stylesheet inert, then activates
// the first one whose table entry matches path.
func (s *Swapper) toggleStylesheets(path string) {
	activated := false
	for _, st := range s.opts.Stylesheets {
		link := s.win.Doc.ByID(st.ID)
		if link == nil {
			s.logger.Debug("page stylesheet missing", "id", st.ID)
			continue
		}
		if !activated && st.Matches(path) {
			dom.SetAttr(link, "media", MediaActive)
			activated = true
			continue
		}
		dom.SetAttr(link, "media", MediaInert)
	}
}

// SetMedia sets the media of the stylesheet with the given id. It reports
// whether the element exists.
func SetMedia(doc *dom.Document, id, media string) bool {
	link := doc.ByID(id)
	if link == nil {
		return false
	}
	dom.SetAttr(link, "media", media)
	return true
}

// presentScripts returns the absolute src of every external script in the
// document.
func (s *Swapper) presentScripts() map[string]bool {
	loc := s.win.Location()
	present := make(map[string]bool)
	s.win.Doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			present[page.Resolve(loc, src)] = true
		}
	})
	return present
}

// externalScripts appends the scripts not in present to <head> and loads
// them, recording each in present.
func (s *Swapper) externalScripts(urls []string, present map[string]bool) {
	head := s.win.Doc.Head()
	for _, src := range urls {
		if present[src] || head == nil {
			continue
		}
		present[src] = true
		head.AppendChild(dom.CreateElement("script", "src", src, "async", "", AttrDynamicJS, "true"))
		if err := s.runner.Load(s.win.Context(), src); err != nil {
			s.logger.Warn("script load failed", "src", src, "error", err)
		}
	}
}

func (s *Swapper) inlineScripts(blocks []page.Block) {
	doc := s.win.Doc
	doc.Find("script[" + AttrDynamicInline + "]").Each(func(_ int, sel *goquery.Selection) {
		dom.Remove(sel.Get(0))
	})

	body := doc.Body()
	if body == nil {
		return
	}
	for _, b := range blocks {
		el := dom.CreateElement("script")
		for _, a := range b.Attrs {
			if a.Key != "src" {
				dom.SetAttr(el, a.Key, a.Val)
			}
		}
		dom.SetAttr(el, AttrDynamicInline, "true")
		dom.SetText(el, b.Text)
		body.AppendChild(el)
		s.run(b.Text, el.Attr)
	}
}

func (s *Swapper) inlineStyles(blocks []page.Block) {
	doc := s.win.Doc
	doc.Find("style[" + AttrDynamicStyle + "]").Each(func(_ int, sel *goquery.Selection) {
		dom.Remove(sel.Get(0))
	})

	head := doc.Head()
	if head == nil {
		return
	}
	for _, b := range blocks {
		el := dom.CreateElement("style")
		for _, a := range b.Attrs {
			dom.SetAttr(el, a.Key, a.Val)
		}
		dom.SetAttr(el, AttrDynamicStyle, "true")
		dom.SetText(el, b.Text)
		head.AppendChild(el)
	}
}

// contentScripts replaces each script inside container with a fresh copy
// and executes it. External ones already loaded are not fetched twice.
func (s *Swapper) contentScripts(container *html.Node, loaded map[string]bool, base *url.URL) {
	var scripts []*html.Node
	dom.Sel(container).Find("script").Each(func(_ int, sel *goquery.Selection) {
		scripts = append(scripts, sel.Get(0))
	})

	for _, old := range scripts {
		fresh := dom.CreateElement("script")
		fresh.Attr = append(fresh.Attr, old.Attr...)
		text := dom.TextContent(old)
		if !dom.HasAttr(old, "src") {
			dom.SetText(fresh, text)
		}
		dom.ReplaceNode(old, fresh)

		if src, ok := dom.Attr(fresh, "src"); ok {
			if abs := page.Resolve(base, src); abs != "" && !loaded[abs] {
				if err := s.runner.Load(s.win.Context(), abs); err != nil {
					s.logger.Warn("script load failed", "src", abs, "error", err)
				}
			}
			continue
		}
		s.run(text, fresh.Attr)
	}
}

func (s *Swapper) run(src string, attrs []html.Attribute) {
	if err := s.runner.Run(s.win.Context(), src, attrs); err != nil {
		s.logger.Warn("inline script failed", "error", err)
	}
}

// footer hides the site footer under /profile and restores it elsewhere.
func (s *Swapper) footer(path string) {
	f := s.win.Doc.QueryFirst("footer")
	if f == nil {
		f = s.win.Doc.QueryFirst(".footer")
	}
	if f == nil {
		return
	}
	if strings.HasPrefix(path, "/profile") {
		dom.SetStyle(f, "display", "none")
		return
	}
	dom.SetStyle(f, "display", "")
}

// activeNav moves the active class to the menu link pointing at u.
func (s *Swapper) activeNav(u *url.URL) {
	target := u.String()
	found := false
	s.win.Doc.Find(".nav-menu a").Each(func(_ int, sel *goquery.Selection) {
		n := sel.Get(0)
		dom.RemoveClass(n, "active")
		if found {
			return
		}
		if href, ok := dom.Attr(n, "href"); ok && page.Resolve(u, href) == target {
			dom.AddClass(n, "active")
			found = true
		}
	})
}
