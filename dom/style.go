package dom

import (
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

type declaration struct {
	prop, value string
	important   bool
}

func declarations(n *html.Node) []declaration {
	raw, ok := Attr(n, "style")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	decls, err := parser.ParseDeclarations(raw)
	if err != nil {
		return nil
	}
	out := make([]declaration, 0, len(decls))
	for _, d := range decls {
		out = append(out, declaration{
			prop:      strings.ToLower(d.Property),
			value:     d.Value,
			important: d.Important,
		})
	}
	return out
}

func writeDeclarations(n *html.Node, decls []declaration) {
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		v := d.value
		if d.important {
			v += " !important"
		}
		parts = append(parts, d.prop+": "+v)
	}
	SetAttr(n, "style", strings.Join(parts, "; ")+";")
}

// Style returns the inline value of a CSS property, or "".
func Style(n *html.Node, prop string) string {
	prop = strings.ToLower(prop)
	for _, d := range declarations(n) {
		if d.prop == prop {
			return d.value
		}
	}
	return ""
}

// SetStyle sets an inline CSS property. An empty value removes it, like
// assigning "" to element.style.prop.
func SetStyle(n *html.Node, prop, value string) {
	prop = strings.ToLower(prop)
	decls := declarations(n)
	for i, d := range decls {
		if d.prop != prop {
			continue
		}
		if value == "" {
			decls = append(decls[:i], decls[i+1:]...)
		} else {
			decls[i].value = value
			decls[i].important = false
		}
		writeDeclarations(n, decls)
		return
	}
	if value == "" {
		return
	}
	writeDeclarations(n, append(decls, declaration{prop: prop, value: value}))
}

// RemoveStyle removes inline properties.
func RemoveStyle(n *html.Node, props ...string) {
	for _, p := range props {
		SetStyle(n, p, "")
	}
}
