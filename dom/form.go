package dom

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// FormValues collects the successful controls of form the way a browser
// serializes it: named, enabled inputs, checked checkboxes and radios, the
// selected options of selects. Buttons, file inputs and image inputs are
// skipped.
func FormValues(form *html.Node) url.Values {
	values := url.Values{}
	Sel(form).Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		name := AttrOr(n, "name", "")
		if name == "" || HasAttr(n, "disabled") {
			return
		}

		switch n.Data {
		case "input":
			switch strings.ToLower(AttrOr(n, "type", "text")) {
			case "submit", "button", "reset", "file", "image":
				return
			case "checkbox", "radio":
				if !HasAttr(n, "checked") {
					return
				}
				values.Add(name, AttrOr(n, "value", "on"))
				return
			}
			values.Add(name, Value(n))
		case "textarea":
			values.Add(name, Value(n))
		case "select":
			selected := false
			s.Find("option").Each(func(_ int, o *goquery.Selection) {
				opt := o.Get(0)
				if HasAttr(opt, "selected") {
					values.Add(name, optionValue(opt))
					selected = true
				}
			})
			if !selected {
				if first := s.Find("option").First(); first.Length() > 0 {
					values.Add(name, optionValue(first.Get(0)))
				}
			}
		}
	})
	return values
}

// ResetForm restores every control of form to an empty state.
func ResetForm(form *html.Node) {
	Sel(form).Find("input, textarea").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		switch strings.ToLower(AttrOr(n, "type", "text")) {
		case "submit", "button", "reset", "hidden":
			return
		case "checkbox", "radio":
			RemoveAttr(n, "checked")
			return
		}
		SetValue(n, "")
	})
}

func optionValue(n *html.Node) string {
	if v, ok := Attr(n, "value"); ok {
		return v
	}
	return strings.TrimSpace(TextContent(n))
}
