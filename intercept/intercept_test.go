package intercept

import (
	"net/url"
	"testing"

	"golang.org/x/net/html"

	"pagenav/dom"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func anchor(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := dom.ParseString("<html><body>" + markup + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	return doc.QueryFirst("a")
}

func TestLink(t *testing.T) {
	loc := mustURL(t, "http://site.test/faq")
	rules := DefaultRules()

	tests := []struct {
		name   string
		markup string
		want   string
		ok     bool
	}{
		{"relative link", `<a href="/about">x</a>`, "http://site.test/about", true},
		{"absolute same origin", `<a href="http://site.test/categoria/bios?p=2">x</a>`, "http://site.test/categoria/bios?p=2", true},
		{"other fragment page", `<a href="/about#team">x</a>`, "http://site.test/about#team", true},
		{"no href", `<a>x</a>`, "", false},
		{"other host", `<a href="http://cdn.test/about">x</a>`, "", false},
		{"other port", `<a href="http://site.test:8080/about">x</a>`, "", false},
		{"other scheme", `<a href="https://site.test/about">x</a>`, "", false},
		{"blank target", `<a href="/about" target="_blank">x</a>`, "", false},
		{"download attribute", `<a href="/file.zip" download>x</a>`, "", false},
		{"download route", `<a href="/download/12">x</a>`, "", false},
		{"logout", `<a href="/logout">x</a>`, "", false},
		{"same page fragment", `<a href="#q3">x</a>`, "", false},
		{"same path fragment", `<a href="/faq#q3">x</a>`, "", false},
		{"admin", `<a href="/admin/posts">x</a>`, "", false},
		{"admin root", `<a href="/admin">x</a>`, "", false},
		{"mailto", `<a href="mailto:a@site.test">x</a>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := rules.Link(anchor(t, tt.markup), loc)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Link = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestForm(t *testing.T) {
	loc := mustURL(t, "http://site.test/contact")
	rules := DefaultRules()

	tests := []struct {
		name   string
		markup string
		want   bool
	}{
		{"plain post", `<form method="post" action="/contact"></form>`, true},
		{"no action", `<form method="post"></form>`, true},
		{"multipart", `<form method="post" enctype="multipart/form-data"></form>`, false},
		{"blank target", `<form target="_blank"></form>`, false},
		{"login id", `<form id="loginForm" action="/session"></form>`, false},
		{"login action", `<form action="/login?next=/"></form>`, false},
		{"edit profile", `<form id="editProfileForm"></form>`, false},
		{"change password", `<form id="changePasswordForm"></form>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := dom.ParseString("<html><body>" + tt.markup + "</body></html>")
			if err != nil {
				t.Fatal(err)
			}
			if got := rules.Form(doc.QueryFirst("form"), loc); got != tt.want {
				t.Errorf("Form = %v, want %v", got, tt.want)
			}
		})
	}
}

type recorder struct {
	loads []string
	forms []*html.Node
}

func (r *recorder) Load(u string) { r.loads = append(r.loads, u) }
func (r *recorder) SubmitForm(f *html.Node) { r.forms = append(r.forms, f) }

func TestAttach(t *testing.T) {
	doc, err := dom.ParseString(`<html><body>
		<a id="in" href="/about"><span id="inner">About</span></a>
		<a id="admin" href="/admin">Admin</a>
		<form id="f" method="post"><input name="q"></form>
	</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	loc := mustURL(t, "http://site.test/")
	rec := &recorder{}
	detach := Attach(doc, DefaultRules(), func() *url.URL { return loc }, rec)

	// a listener on the anchor must not run once the click is hijacked
	anchorRan := false
	doc.On(doc.ByID("in"), dom.EventClick, func(*dom.Event) { anchorRan = true })

	if doc.Dispatch(doc.ByID("inner"), &dom.Event{Type: dom.EventClick}) {
		t.Error("hijacked click should prevent default")
	}
	if anchorRan {
		t.Error("propagation not stopped")
	}
	if len(rec.loads) != 1 || rec.loads[0] != "http://site.test/about" {
		t.Errorf("loads = %v", rec.loads)
	}

	if !doc.Dispatch(doc.ByID("admin"), &dom.Event{Type: dom.EventClick}) {
		t.Error("admin click must fall through")
	}

	if doc.Dispatch(doc.ByID("f"), &dom.Event{Type: dom.EventSubmit}) {
		t.Error("hijacked submit should prevent default")
	}
	if len(rec.forms) != 1 {
		t.Errorf("forms = %d", len(rec.forms))
	}

	detach()
	if !doc.Dispatch(doc.ByID("in"), &dom.Event{Type: dom.EventClick}) {
		t.Error("detached listener still intercepting")
	}
	if len(rec.loads) != 1 {
		t.Errorf("loads after detach = %v", rec.loads)
	}
}
