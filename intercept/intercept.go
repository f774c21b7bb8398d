// Package intercept decides which clicks and form submissions the navigator
// takes over and which fall through to native browsing.
package intercept

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"pagenav/dom"
)

// Rules holds the site-specific exclusions.
type Rules struct {
	AdminPrefix      string   // paths under it belong to a separate app
	NeverIntercept   []string // href substrings always left to the browser
	LoginPath        string   // form actions containing it submit natively
	LoginFormID      string
	SelfManagedForms []string // ids of forms that submit themselves
}

// DefaultRules returns the exclusions of the stock site.
func DefaultRules() Rules {
	return Rules{
		AdminPrefix:      "/admin",
		NeverIntercept:   []string{"/download/", "/logout"},
		LoginPath:        "/login",
		LoginFormID:      "loginForm",
		SelfManagedForms: []string{"editProfileForm", "changePasswordForm"},
	}
}

// Link reports whether a click on anchor a should be hijacked while the
// document is at loc, and returns the absolute target.
func (r Rules) Link(a *html.Node, loc *url.URL) (string, bool) {
	if a == nil {
		return "", false
	}
	href, ok := dom.Attr(a, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	u, err := loc.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}

	switch {
	case u.Scheme != loc.Scheme || u.Host != loc.Host:
		return "", false
	case strings.EqualFold(dom.AttrOr(a, "target", ""), "_blank"):
		return "", false
	case dom.HasAttr(a, "download"):
		return "", false
	}

	abs := u.String()
	for _, s := range r.NeverIntercept {
		if strings.Contains(abs, s) {
			return "", false
		}
	}
	if strings.Contains(abs, "#") && u.Path == loc.Path {
		return "", false
	}
	if r.AdminPrefix != "" && strings.HasPrefix(u.Path, r.AdminPrefix) {
		return "", false
	}
	return abs, true
}

// Form reports whether a submission of form should be hijacked.
func (r Rules) Form(form *html.Node, loc *url.URL) bool {
	if form == nil {
		return false
	}
	if strings.EqualFold(dom.AttrOr(form, "enctype", ""), "multipart/form-data") {
		return false
	}
	if strings.EqualFold(dom.AttrOr(form, "target", ""), "_blank") {
		return false
	}

	id := dom.AttrOr(form, "id", "")
	if r.LoginFormID != "" && id == r.LoginFormID {
		return false
	}
	if r.LoginPath != "" {
		action := loc.String()
		if a := dom.AttrOr(form, "action", ""); a != "" {
			if u, err := loc.Parse(a); err == nil {
				action = u.String()
			}
		}
		if strings.Contains(action, r.LoginPath) {
			return false
		}
	}
	return !slices.Contains(r.SelfManagedForms, id)
}

// Handler receives hijacked navigations.
type Handler interface {
	Load(url string)
	SubmitForm(form *html.Node)
}

// Attach installs one capturing click listener and one submit listener on
// doc. loc reports the current location. The returned func detaches both.
func Attach(doc *dom.Document, rules Rules, loc func() *url.URL, h Handler) func() {
	offClick := doc.AddEventListener(dom.EventClick, func(ev *dom.Event) {
		target, ok := rules.Link(dom.Closest(ev.Target, "a"), loc())
		if !ok {
			return
		}
		ev.PreventDefault()
		ev.StopImmediatePropagation()
		h.Load(target)
	}, true)

	offSubmit := doc.AddEventListener(dom.EventSubmit, func(ev *dom.Event) {
		// a page handler that cancelled the submit owns it
		if ev.DefaultPrevented() {
			return
		}
		form := dom.Closest(ev.Target, "form")
		if !rules.Form(form, loc()) {
			return
		}
		ev.PreventDefault()
		h.SubmitForm(form)
	}, false)

	return func() {
		offClick()
		offSubmit()
	}
}
