package pagecache

import (
	"testing"

	"pagenav/page"
)

func TestCache(t *testing.T) {
	c := New()
	a := &page.FetchedPage{URL: "http://example.com/a", Title: "A"}

	if _, ok := c.Get(a.URL); ok {
		t.Fatal("empty cache returned a page")
	}

	c.Set(a.URL, a)
	got, ok := c.Get(a.URL)
	if !ok || got != a {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	// keys are exact, query strings included
	if c.Has("http://example.com/a?x=1") {
		t.Error("query-string variant should miss")
	}
	if c.Has("http://example.com/a/") {
		t.Error("trailing-slash variant should miss")
	}

	c.Set("http://example.com/b", &page.FetchedPage{})
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Delete(a.URL)
	if c.Has(a.URL) {
		t.Error("Delete did not remove entry")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}
