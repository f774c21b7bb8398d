package favourites

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "favourites.json")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Fatalf("new store has %d entries", s.Len())
	}
	if !s.Add("http://site.test/faq", "FAQ") || !s.Add("http://site.test/sobre", "Sobre") {
		t.Fatal("Add refused a new url")
	}
	if s.Add("http://site.test/faq", "again") {
		t.Error("duplicate url added")
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 || got.Favourites[0].Title != "FAQ" || got.Favourites[0].AddedAt.IsZero() {
		t.Errorf("reloaded = %+v", got.Favourites)
	}
	if !got.Remove(0) || got.Remove(5) {
		t.Error("Remove index handling")
	}
	if got.Has("http://site.test/faq") || !got.Has("http://site.test/sobre") {
		t.Errorf("after remove = %+v", got.Favourites)
	}
}

func TestOpenCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favourites.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected a decode error")
	}
}

func TestOnSite(t *testing.T) {
	s := &Store{}
	s.Add("http://site.test/faq", "FAQ")
	s.Add("https://site.test/sobre", "Sobre")
	s.Add("http://other.test/", "Other")
	s.Add("http://site.test/plans", "Plans")

	site, _ := url.Parse("http://site.test/contato")
	got := s.OnSite(site)
	if len(got) != 2 || got[0].Title != "FAQ" || got[1].Title != "Plans" {
		t.Errorf("OnSite = %+v", got)
	}
	if s.OnSite(nil) != nil {
		t.Error("OnSite(nil) returned bookmarks")
	}
}
