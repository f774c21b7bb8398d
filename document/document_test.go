package document

import (
	"net/url"
	"strings"
	"testing"

	"pagenav/dom"
)

const sample = `<html><head><title>FAQ</title></head><body>
<nav><a href="/">Home</a></nav>
<main><h2>Perguntas</h2><p>Veja a <a href="/contato">página de contato</a>.</p>
<form action="/search" method="get"><input name="q" value="go"><input type="hidden" name="t" value="1"><textarea name="msg"></textarea><button>Ok</button></form>
</main></body></html>`

func parse(t *testing.T) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(sample)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown(parse(t), "http://site.test/faq")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "# FAQ\n\n") {
		t.Errorf("missing title heading: %q", out)
	}
	if !strings.Contains(out, "## Perguntas") {
		t.Errorf("missing content heading: %q", out)
	}
	if !strings.Contains(out, "(http://site.test/contato)") {
		t.Errorf("links not absolute: %q", out)
	}
	if strings.Contains(out, "Home") {
		t.Error("navigation outside the content region was rendered")
	}
}

func TestLinks(t *testing.T) {
	base, _ := url.Parse("http://site.test/faq")
	links := Links(parse(t), base)
	if len(links) != 2 {
		t.Fatalf("links = %d", len(links))
	}
	if links[1].Label != "s" || links[1].Text != "página de contato" || links[1].Href != "http://site.test/contato" {
		t.Errorf("link = %+v", links[1])
	}
}

func TestInputs(t *testing.T) {
	inputs := Inputs(parse(t))
	if len(inputs) != 2 {
		t.Fatalf("inputs = %d, want q and msg", len(inputs))
	}
	if inputs[0].Name != "q" || inputs[0].Value != "go" || inputs[0].FormMethod != "GET" || inputs[0].FormAction != "/search" {
		t.Errorf("input = %+v", inputs[0])
	}
	if inputs[1].Type != "textarea" {
		t.Errorf("type = %q", inputs[1].Type)
	}
}

func TestGenerateLabels(t *testing.T) {
	tests := []struct {
		count int
		last  string
	}{
		{1, "a"},
		{9, "l"},
		{10, "aa"},
		{11, "as"},
	}
	for _, tt := range tests {
		labels := GenerateLabels(tt.count)
		if len(labels) != tt.count || labels[len(labels)-1] != tt.last {
			t.Errorf("GenerateLabels(%d) ends with %q, want %q", tt.count, labels[len(labels)-1], tt.last)
		}
	}
}
