package routes

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"pagenav/browser"
	"pagenav/dom"
	"pagenav/fetcher"
)

type nopSource struct{}

func (nopSource) Get(context.Context, string) (string, string, error) { return "", "", nil }
func (nopSource) Post(context.Context, string, string, url.Values) (string, string, error) {
	return "", "", nil
}

type recordingNav struct{ loaded []string }

func (n *recordingNav) Load(u string) { n.loaded = append(n.loaded, u) }

type stubSuggester struct {
	items   []fetcher.Suggestion
	queries []string
}

func (s *stubSuggester) Suggestions(_ context.Context, _, q, cat string) ([]fetcher.Suggestion, error) {
	s.queries = append(s.queries, q+"@"+cat)
	return s.items, nil
}

type countingComponent struct {
	inits    int
	disposed bool
}

func (c *countingComponent) Init(context.Context, *dom.Document) error {
	c.inits++
	return nil
}

func (c *countingComponent) Dispose() { c.disposed = true }

func newWindow(t *testing.T, pageURL, body string) *browser.Window {
	t.Helper()
	w := browser.New(browser.NewLoop(), nopSource{})
	w.LoadHTML(pageURL, `<html><head><title>Page</title>
		<link rel="stylesheet" id="profile-css" media="print">
		<link rel="stylesheet" id="post-detail-css" media="print">
		</head><body>`+body+`</body></html>`)
	return w
}

func dispatch(t *testing.T, w *browser.Window, opts Options) *Dispatcher {
	t.Helper()
	if opts.AdminPrefix == "" {
		opts.AdminPrefix = "/admin"
	}
	d := NewDispatcher(w, Default(), opts)
	d.Dispatch(w.Href(), AfterSwap)
	w.Loop.RunUntilIdle()
	return d
}

func TestDefaultRegistryOrder(t *testing.T) {
	want := []string{"faq", "contact", "about", "category", "profile", "post", "legal", "home", "plans", "admin"}
	if got := Default().Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistryMatch(t *testing.T) {
	reg := Default()
	tests := []struct {
		path  string
		body  string
		admin bool
		want  []string
	}{
		{"/faq", "", false, []string{"faq"}},
		{"/contato", "", false, []string{"contact"}},
		{"/categoria/dev", "", false, []string{"category", "post"}},
		{"/post/42", "", false, []string{"post"}},
		{"/profile/settings", "", false, []string{"profile", "post"}},
		{"/anything", `<section class="faq-section"></section>`, false, []string{"faq"}},
		{"/", "", false, []string{"home"}},
		{"/planos", "", false, []string{"plans"}},
		{"/a/b/c", "", false, nil},
		{"/admin/posts", "", true, []string{"admin"}},
	}
	for _, tt := range tests {
		w := newWindow(t, "http://site.test"+tt.path, tt.body)
		var got []string
		for _, rt := range reg.Match(tt.path, w.Doc, tt.admin) {
			got = append(got, rt.Name())
		}
		if !slices.Equal(got, tt.want) {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDispatchModes(t *testing.T) {
	var ran []string
	reg := NewRegistry()
	for _, name := range []string{"first", "second"} {
		reg.Register(NewRoute(name,
			func(string, *dom.Document) bool { return true },
			func(c *Context) error {
				ran = append(ran, name+"@"+c.Mode.String())
				return nil
			}))
	}
	reg.Register(NewRoute("broken",
		func(string, *dom.Document) bool { return true },
		func(*Context) error { return errors.New("boom") }))

	w := newWindow(t, "http://site.test/x", "")
	var loaded []string
	w.Doc.AddEventListener(EventPageLoaded, func(ev *dom.Event) {
		loaded = append(loaded, ev.Detail["url"].(string))
	}, false)

	d := NewDispatcher(w, reg, Options{InitDelay: 100 * time.Millisecond})
	d.Dispatch(w.Href(), FirstLoad)
	if len(ran) != 0 {
		t.Fatal("first load ran before the init delay")
	}
	w.Loop.RunUntilIdle()
	if !slices.Equal(ran, []string{"first@first-load"}) {
		t.Errorf("first load ran %v", ran)
	}
	if len(loaded) != 0 {
		t.Error("pageLoaded fired on first load")
	}

	ran = nil
	d.Dispatch(w.Href(), AfterSwap)
	if !slices.Equal(ran, []string{"first@after-swap", "second@after-swap"}) {
		t.Errorf("after swap ran %v", ran)
	}
	if !slices.Equal(loaded, []string{"http://site.test/x"}) {
		t.Errorf("pageLoaded = %v", loaded)
	}
}

func TestDispatchCollaborators(t *testing.T) {
	fav, modals, dl := &countingComponent{}, &countingComponent{}, &countingComponent{}
	adminModals := &countingComponent{}
	var bound []string
	binder := inputBinderFunc(func(_ context.Context, _ *dom.Document, in *html.Node) error {
		bound = append(bound, dom.AttrOr(in, "id", ""))
		return nil
	})
	collab := Collaborators{
		Favorites:         fav,
		FeatureModals:     modals,
		DownloadButtons:   dl,
		AdminModals:       adminModals,
		SearchSuggestions: binder,
	}

	w := newWindow(t, "http://site.test/other",
		`<input id="q1" name="q"><div class="search-bar"><input id="q2"></div><input id="plain">`)
	d := NewDispatcher(w, Default(), Options{AdminPrefix: "/admin", Collab: collab})
	d.Dispatch(w.Href(), AfterSwap)
	d.Dispatch(w.Href(), AfterSwap)

	if fav.inits != 2 || modals.inits != 2 || dl.inits != 2 {
		t.Errorf("inits: favorites %d, modals %d, downloads %d", fav.inits, modals.inits, dl.inits)
	}
	if !slices.Equal(bound, []string{"q1", "q2"}) {
		t.Errorf("search suggestions bound %v, want each input once", bound)
	}
	if adminModals.inits != 0 {
		t.Error("admin components ran on a public page")
	}

	var adminLoaded bool
	w.Doc.AddEventListener(EventAdminPageLoaded, func(*dom.Event) { adminLoaded = true }, false)
	d.Dispatch("http://site.test/admin/users", AfterSwap)
	if adminModals.inits != 1 || !adminLoaded {
		t.Errorf("admin route: modals %d, adminPageLoaded %v", adminModals.inits, adminLoaded)
	}

	d.Dispose()
	if !fav.disposed || !dl.disposed {
		t.Error("Dispose did not reach collaborators")
	}
}

type inputBinderFunc func(context.Context, *dom.Document, *html.Node) error

func (f inputBinderFunc) Bind(ctx context.Context, doc *dom.Document, in *html.Node) error {
	return f(ctx, doc, in)
}

func TestDisposeCancelsPendingInit(t *testing.T) {
	ran := false
	reg := NewRegistry()
	reg.Register(NewRoute("r", func(string, *dom.Document) bool { return true },
		func(*Context) error { ran = true; return nil }))

	w := newWindow(t, "http://site.test/", "")
	d := NewDispatcher(w, reg, Options{InitDelay: 100 * time.Millisecond})
	d.Dispatch(w.Href(), FirstLoad)
	d.Dispose()
	w.Loop.RunUntilIdle()
	if ran {
		t.Error("route ran after Dispose")
	}
}

const faqBody = `<section class="faq-section">
<input id="faq-search"><button id="search-clear"></button>
<span class="search-suggestion" data-search="senha">senha</span>
<div class="faq-item active" data-keywords="login conta">
  <div class="faq-question"><h3>Como entrar?</h3><span class="faq-toggle"><i class="fas fa-minus"></i></span></div>
  <div class="faq-answer" style="display: block; max-height: 200px"><p>Use seu email.</p></div>
</div>
<div class="faq-item" data-keywords="senha">
  <div class="faq-question"><h3>Esqueci a senha</h3><span class="faq-toggle"><i class="fas fa-plus"></i></span></div>
  <div class="faq-answer"><p>Clique em recuperar.</p></div>
</div>
</section>`

func TestFAQ(t *testing.T) {
	w := newWindow(t, "http://site.test/faq", faqBody)
	dispatch(t, w, Options{})

	items := w.Doc.Find(".faq-item").Nodes
	first := items[0]
	if dom.HasClass(first, "active") {
		t.Error("items should start collapsed")
	}
	if dom.Style(w.Doc.QueryFirst(".faq-answer"), "max-height") != "" {
		t.Error("answer inline styles not cleared")
	}
	if !w.Doc.Find(".faq-item i").First().HasClass("fa-plus") {
		t.Error("icon not reset")
	}

	questions := w.Doc.Find(".faq-question").Nodes
	w.Click(questions[0])
	if !dom.HasClass(first, "active") {
		t.Fatal("question click did not open the item")
	}
	w.Click(questions[1])
	if dom.HasClass(first, "active") || !dom.HasClass(items[1], "active") {
		t.Error("opening one item must close the others")
	}
	w.Click(questions[1])
	if dom.HasClass(items[1], "active") {
		t.Error("second click should close the item")
	}

	search := w.Doc.ByID("faq-search")
	w.Input(search, "EMAIL")
	if dom.Style(first, "display") != "block" || dom.Style(items[1], "display") != "none" {
		t.Errorf("filter by answer: %q %q", dom.Style(first, "display"), dom.Style(items[1], "display"))
	}

	w.Click(w.Doc.QueryFirst(".search-suggestion"))
	if dom.Value(search) != "senha" || dom.Style(first, "display") != "none" {
		t.Error("suggestion chip did not filter by keyword")
	}

	w.Input(search, "  ")
	if dom.Style(first, "display") != "block" || dom.Style(items[1], "display") != "block" {
		t.Error("empty search should show everything")
	}
}

func TestRoutesAreIdempotent(t *testing.T) {
	w := newWindow(t, "http://site.test/faq", faqBody)
	d := dispatch(t, w, Options{})
	d.Dispatch(w.Href(), AfterSwap)
	w.Loop.RunUntilIdle()

	q := w.Doc.QueryFirst(".faq-question")
	if n := w.Doc.ListenerCount(q, dom.EventClick); n != 1 {
		t.Errorf("click listeners = %d, want 1", n)
	}
	w.Click(q)
	if !dom.HasClass(dom.ClosestMatch(q, ".faq-item"), "active") {
		t.Error("a double-bound toggle would cancel itself out")
	}
}

func TestContact(t *testing.T) {
	w := newWindow(t, "http://site.test/contato", `<section class="contact-hero"><div class="hero-particles"><span>old</span></div></section>
<form id="contact-form" action="/contato" method="post">
  <input name="name" value="Ana">
  <textarea id="message" name="message"></textarea>
  <span id="char-count">0</span>
  <button type="submit">Enviar</button>
</form>`)
	dispatch(t, w, Options{})

	if n := w.Doc.Find(".hero-particles .particle").Length(); n != 50 {
		t.Errorf("particles = %d", n)
	}
	if w.Doc.Find(".hero-particles span").Length() != 0 {
		t.Error("particle box not cleared")
	}

	counter := w.Doc.ByID("char-count")
	msg := w.Doc.ByID("message")
	tests := []struct {
		n     int
		color string
	}{
		{10, "#666"},
		{601, "#ffa726"},
		{801, "#ff6b6b"},
	}
	for _, tt := range tests {
		w.Input(msg, strings.Repeat("é", tt.n))
		if got := dom.TextContent(counter); got != strconv.Itoa(tt.n) {
			t.Errorf("count = %q, want %d", got, tt.n)
		}
		if got := dom.Style(counter, "color"); got != tt.color {
			t.Errorf("%d chars: color = %q, want %q", tt.n, got, tt.color)
		}
	}

	form := w.Doc.ByID("contact-form")
	btn := w.Doc.QueryFirst(`button[type="submit"]`)
	w.Submit(form)
	if !strings.Contains(dom.TextContent(btn), "Enviando...") || !dom.HasAttr(btn, "disabled") {
		t.Errorf("button = %q", dom.OuterHTML(btn))
	}
	if w.NativeNavigations() != 1 {
		t.Error("contact form must not submit natively")
	}

	w.Loop.RunUntilIdle()
	if a := w.Alerts(); len(a) != 1 || a[0] != ContactSentMessage {
		t.Errorf("alerts = %v", a)
	}
	if dom.TextContent(btn) != "Enviar" || dom.HasAttr(btn, "disabled") {
		t.Error("button not restored")
	}
	if dom.Value(msg) != "" || dom.TextContent(counter) != "0" {
		t.Error("form not reset")
	}
}

func TestAbout(t *testing.T) {
	w := newWindow(t, "http://site.test/sobre", `<div class="about-hero"></div>
<span class="stat-number">1500+</span><span class="stat-number">n/a</span>
<div class="mission-card"></div><div class="mission-card"></div><div class="mission-card"></div>
<div class="service-card"></div>`)
	d := NewDispatcher(w, Default(), Options{AdminPrefix: "/admin"})
	d.Dispatch(w.Href(), AfterSwap)

	stats := w.Doc.Find(".stat-number").Nodes
	w.Loop.Advance(31 * time.Millisecond)
	if got := dom.TextContent(stats[0]); got != "30" {
		t.Errorf("after one step = %q, want 30", got)
	}
	w.Loop.RunUntilIdle()
	if got := dom.TextContent(stats[0]); got != "1,500" {
		t.Errorf("final = %q", got)
	}
	if got := dom.TextContent(stats[1]); got != "n/a" {
		t.Errorf("non-numeric counter changed to %q", got)
	}

	cards := w.Doc.Find(".mission-card").Nodes
	if got := dom.Style(cards[2], "animation-delay"); got != "0.4s" {
		t.Errorf("third card delay = %q", got)
	}

	svc := w.Doc.QueryFirst(".service-card")
	w.Hover(svc, false)
	if dom.Style(svc, "transform") != "translateY(-10px) scale(1.02)" {
		t.Error("hover transform missing")
	}
	w.Hover(svc, true)
	if dom.Style(svc, "transform") != "translateY(0) scale(1)" {
		t.Error("leave transform missing")
	}
}

func TestCategorySearch(t *testing.T) {
	w := newWindow(t, "http://site.test/categoria/dev", `<div class="category-hero"></div>
<input class="category-search-input" data-category="dev">
<div class="search-suggestions-dropdown" style="display: none"></div>
<div class="modern-post-card"></div><div class="modern-post-card"></div>`)
	nav := &recordingNav{}
	sug := &stubSuggester{items: []fetcher.Suggestion{
		{Title: "<b>Go</b> tips", Description: "d1", URL: "/post/1", Icon: "fas fa-file"},
		{Title: "Go tools", Description: "<script>x()</script>d2", URL: "/post/2", Icon: "fas fa-file"},
	}}
	dispatch(t, w, Options{Navigator: nav, Suggester: sug})

	if got := dom.Style(w.Doc.Find(".modern-post-card").Nodes[1], "animation-delay"); got != "0.1s" {
		t.Errorf("card delay = %q", got)
	}

	input := w.Doc.QueryFirst(".category-search-input")
	dropdown := w.Doc.QueryFirst(".search-suggestions-dropdown")

	w.Input(input, "g")
	w.Input(input, "go")
	w.Input(input, " go ")
	w.Loop.RunUntilIdle()
	if !slices.Equal(sug.queries, []string{"go@dev"}) {
		t.Errorf("queries = %v, want one debounced query", sug.queries)
	}
	if dom.Style(dropdown, "display") != "block" {
		t.Error("dropdown not shown")
	}
	items := w.Doc.Find(".suggestion-item").Nodes
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	if w.Doc.Find(".suggestion-item b, .suggestion-item script").Length() != 0 {
		t.Error("suggestion text not sanitized")
	}
	if got := dom.TextContent(w.Doc.QueryFirst(".suggestion-title")); got != "Go tips" {
		t.Errorf("title = %q", got)
	}

	w.Key(input, "ArrowDown")
	w.Key(input, "ArrowDown")
	w.Key(input, "ArrowDown")
	if !dom.HasClass(items[0], "highlighted") || dom.HasClass(items[1], "highlighted") {
		t.Error("highlight should wrap to the first item")
	}
	w.Key(input, "ArrowUp")
	if !dom.HasClass(items[1], "highlighted") {
		t.Error("ArrowUp should wrap to the last item")
	}
	if w.Key(input, "Enter") {
		t.Error("Enter on a highlighted item should prevent the default")
	}
	if !slices.Equal(nav.loaded, []string{"http://site.test/post/2"}) {
		t.Errorf("navigated to %v", nav.loaded)
	}

	w.Key(input, "Escape")
	w.Loop.RunUntilIdle()
	if dom.Style(dropdown, "display") != "none" {
		t.Error("Escape should hide the dropdown")
	}

	sug.items = nil
	w.Input(input, "zz")
	w.Loop.RunUntilIdle()
	if got := dom.TextContent(dropdown); got != NoSuggestions {
		t.Errorf("empty result = %q", got)
	}
}

func TestProfile(t *testing.T) {
	w := newWindow(t, "http://site.test/profile", `<div class="profile-hero"></div>
<button class="tab-button active" data-tab="posts"></button><button class="tab-button" data-tab="settings"></button>
<div class="tab-content-item active" id="posts-content"></div><div class="tab-content-item" id="settings-content"></div>
<form id="profile-image-form" action="/profile/image" method="post"><input type="file" id="profile-image-input"></form>
<div class="stat-card"></div><div class="info-item"></div><div class="info-item"></div>`)
	dispatch(t, w, Options{})

	if dom.AttrOr(w.Doc.ByID("profile-css"), "media", "") != "all" {
		t.Error("profile-css not forced")
	}

	w.Click(w.Doc.Find(".tab-button").Nodes[1])
	if w.Doc.Find(".tab-button.active").AttrOr("data-tab", "") != "settings" {
		t.Error("tab button not switched")
	}
	if w.Doc.Find(".tab-content-item.active").AttrOr("id", "") != "settings-content" {
		t.Error("tab content not switched")
	}

	infos := w.Doc.Find(".info-item").Nodes
	if dom.Style(infos[1], "animation-delay") != "0.1s" || !dom.HasClass(infos[1], "animate-fade-up") {
		t.Error("info items not staggered")
	}

	input := w.Doc.ByID("profile-image-input")
	w.Change(input)
	if w.NativeNavigations() != 1 {
		t.Error("empty file input must not submit")
	}
	dom.SetValue(input, "me.png")
	w.Change(input)
	if w.NativeNavigations() != 2 {
		t.Error("choosing a file should submit the form natively")
	}
}

func TestPost(t *testing.T) {
	w := newWindow(t, "http://site.test/dev/hello", `<div class="post-image-container"><img src="/img/a.png" alt="A"></div>
<a class="share-btn twitter" href="#"></a><a class="share-btn linkedin" href="#"></a><span class="share-btn other"></span>
<span class="tag-item"></span><span class="tag-item"></span>`)
	dispatch(t, w, Options{})

	if dom.AttrOr(w.Doc.ByID("post-detail-css"), "media", "") != "all" {
		t.Error("post-detail-css not forced")
	}
	if got := dom.Style(w.Doc.Find(".tag-item").Nodes[1], "animation-delay"); got != "0.05s" {
		t.Errorf("tag delay = %q", got)
	}

	w.Click(w.Doc.QueryFirst(".share-btn.twitter"))
	tabs := w.Tabs()
	if len(tabs) != 1 || !strings.HasPrefix(tabs[0], "https://twitter.com/intent/tweet?url=http%3A%2F%2Fsite.test%2Fdev%2Fhello") {
		t.Errorf("tabs = %v", tabs)
	}
	w.Click(w.Doc.QueryFirst(".share-btn.other"))
	if len(w.Tabs()) != 1 {
		t.Error("unknown platform should not share")
	}

	w.Click(w.Doc.QueryFirst(".post-image-container img"))
	box := w.Doc.QueryFirst(".image-lightbox")
	if box == nil || dom.AttrOr(w.Doc.QueryFirst(".image-lightbox img"), "src", "") != "/img/a.png" {
		t.Fatal("lightbox not opened")
	}
	w.Loop.Advance(10 * time.Millisecond)
	if !dom.HasClass(box, "active") {
		t.Error("lightbox not activated")
	}
	w.Click(w.Doc.QueryFirst(".lightbox-close"))
	if dom.HasClass(box, "active") {
		t.Error("close should deactivate first")
	}
	w.Loop.RunUntilIdle()
	if w.Doc.QueryFirst(".image-lightbox") != nil {
		t.Error("lightbox not removed")
	}
}

func TestLegal(t *testing.T) {
	w := newWindow(t, "http://site.test/termos-de-uso", `<div class="legal-content">
<a href="#privacidade">ir</a>
<section class="legal-section" id="privacidade">x</section></div>`)
	d := NewDispatcher(w, Default(), Options{AdminPrefix: "/admin"})
	d.Dispatch(w.Href(), AfterSwap)

	sec := w.Doc.ByID("privacidade")
	if dom.Style(sec, "opacity") != "0" {
		t.Error("section should start hidden")
	}
	w.Loop.RunUntilIdle()
	if dom.Style(sec, "opacity") != "1" || dom.Style(sec, "transform") != "translateY(0)" {
		t.Error("section not revealed")
	}

	w.Click(w.Doc.QueryFirst(".legal-content a"))
	if w.ScrolledTo() != sec {
		t.Error("anchor did not scroll to its section")
	}
}

func TestHome(t *testing.T) {
	home, particles := &countingComponent{}, &countingComponent{}
	var seenFlag bool
	homeSearch := ComponentFunc(func(_ context.Context, doc *dom.Document) error {
		home.inits++
		seenFlag = dom.HasAttr(doc.ByID("home-search-input"), "data-home-search-initialized")
		return nil
	})
	w := newWindow(t, "http://site.test/", `<input id="home-search-input" data-home-search-initialized="true">`)
	dispatch(t, w, Options{Collab: Collaborators{HomeSearch: homeSearch, Particles: particles}})

	if home.inits != 1 || particles.inits != 1 {
		t.Errorf("home search %d, particles %d", home.inits, particles.inits)
	}
	if seenFlag {
		t.Error("home search flag should be cleared before re-init")
	}
}

func TestIsPostPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/dev/hello", true},
		{"/dev/", false},
		{"/dev", false},
		{"/a/b/c", false},
		{"//x", false},
	}
	for _, tt := range tests {
		if got := isPostPath(tt.path); got != tt.want {
			t.Errorf("isPostPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestShareURL(t *testing.T) {
	tests := []struct {
		platform string
		want     string
	}{
		{"facebook", "https://www.facebook.com/sharer/sharer.php?u=http%3A%2F%2Fs.test%2Fp"},
		{"whatsapp", "https://api.whatsapp.com/send?text=Hi+there%20http%3A%2F%2Fs.test%2Fp"},
		{"telegram", "https://t.me/share/url?url=http%3A%2F%2Fs.test%2Fp&text=Hi+there"},
		{"myspace", ""},
	}
	for _, tt := range tests {
		if got := ShareURL(tt.platform, "http://s.test/p", "Hi there"); got != tt.want {
			t.Errorf("ShareURL(%s) = %q, want %q", tt.platform, got, tt.want)
		}
	}
}
