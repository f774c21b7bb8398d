package browser

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type fakeSource struct {
	pages map[string]string
	gets  []string
	posts []url.Values
}

func (f *fakeSource) Get(_ context.Context, u string) (string, string, error) {
	f.gets = append(f.gets, u)
	body, ok := f.pages[u]
	if !ok {
		return "", "", fmt.Errorf("no page %s", u)
	}
	return body, u, nil
}

func (f *fakeSource) Post(_ context.Context, action, _ string, values url.Values) (string, string, error) {
	f.posts = append(f.posts, values)
	return f.pages[action], action, nil
}

func page(title, body string) string {
	return "<html><head><title>" + title + "</title></head><body>" + body + "</body></html>"
}

func newTestWindow() (*Window, *fakeSource) {
	src := &fakeSource{pages: map[string]string{
		"http://site.test/":      page("Home", `<a id="faq" href="/faq">FAQ</a><a id="out" href="/x" target="_blank">x</a><a id="jump" href="#s2">s2</a><h2 id="s2">S2</h2>`),
		"http://site.test/faq":   page("FAQ", `<form id="f" method="post" action="/echo"><input name="q" value="a"><button id="go">Go</button></form>`),
		"http://site.test/echo":  page("Echo", `<p>ok</p>`),
		"http://site.test/a?q=z": page("Search", ``),
	}}
	return New(NewLoop(), src), src
}

func TestLoopOrdering(t *testing.T) {
	l := NewLoop()
	var got []string
	l.SetTimeout(20*time.Millisecond, func() { got = append(got, "20ms") })
	l.SetTimeout(10*time.Millisecond, func() { got = append(got, "10ms") })
	l.Post(func() { got = append(got, "a") })
	l.Post(func() { got = append(got, "b") })
	cancel := l.SetTimeout(15*time.Millisecond, func() { got = append(got, "canceled") })
	cancel()

	l.RunUntilIdle()

	want := []string{"a", "b", "10ms", "20ms"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	if l.Now() != 20*time.Millisecond {
		t.Errorf("Now = %v, want 20ms", l.Now())
	}
}

func TestLoopGo(t *testing.T) {
	l := NewLoop()
	done := false
	l.Go(func() func() {
		time.Sleep(5 * time.Millisecond)
		return func() { done = true }
	})
	if l.Pending() == 0 {
		t.Fatal("Go work should be pending")
	}
	l.RunUntilIdle()
	if !done {
		t.Error("continuation did not run")
	}
}

func TestLoopAdvance(t *testing.T) {
	l := NewLoop()
	fired := 0
	l.SetTimeout(100*time.Millisecond, func() { fired++ })
	l.SetTimeout(300*time.Millisecond, func() { fired++ })

	l.Advance(150 * time.Millisecond)
	if fired != 1 {
		t.Errorf("fired = %d after 150ms, want 1", fired)
	}
	l.Advance(200 * time.Millisecond)
	if fired != 2 {
		t.Errorf("fired = %d after 350ms, want 2", fired)
	}
}

func TestLoopRunAndDo(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- l.Run(ctx) }()

	fired := make(chan struct{})
	l.Do(func() {
		l.SetTimeout(10*time.Millisecond, func() { close(fired) })
	})
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired under Run")
	}

	var ran bool
	l.Do(func() { ran = true })
	if !ran {
		t.Error("Do returned before fn ran")
	}

	cancel()
	if err := <-stopped; err != context.Canceled {
		t.Errorf("Run returned %v", err)
	}
}

func TestAssignAndLinks(t *testing.T) {
	w, _ := newTestWindow()
	loads := 0
	w.OnLoad(func() { loads++ })

	w.Open("http://site.test/")
	w.Loop.RunUntilIdle()

	if w.Doc.Title() != "Home" || loads != 1 {
		t.Fatalf("title %q loads %d", w.Doc.Title(), loads)
	}

	w.Click(w.Doc.ByID("jump"))
	if w.ScrolledTo() != w.Doc.ByID("s2") {
		t.Error("fragment link should scroll in place")
	}
	if w.NativeNavigations() != 1 {
		t.Errorf("fragment link navigated natively")
	}

	w.Click(w.Doc.ByID("out"))
	if tabs := w.Tabs(); len(tabs) != 1 || tabs[0] != "http://site.test/x" {
		t.Errorf("tabs = %v", tabs)
	}

	w.Click(w.Doc.ByID("faq"))
	if w.Href() != "http://site.test/faq" {
		t.Errorf("location not updated before load: %s", w.Href())
	}
	w.Loop.RunUntilIdle()
	if w.Doc.Title() != "FAQ" {
		t.Errorf("title = %q", w.Doc.Title())
	}
	if w.History.Len() != 2 || w.NativeNavigations() != 2 {
		t.Errorf("history %d native %d", w.History.Len(), w.NativeNavigations())
	}
}

func TestClickSubmitButton(t *testing.T) {
	w, src := newTestWindow()
	w.LoadHTML("http://site.test/faq", src.pages["http://site.test/faq"])

	w.Click(w.Doc.ByID("go"))
	w.Loop.RunUntilIdle()

	if len(src.posts) != 1 || src.posts[0].Get("q") != "a" {
		t.Fatalf("posts = %v", src.posts)
	}
	if w.Doc.Title() != "Echo" {
		t.Errorf("title = %q", w.Doc.Title())
	}
}

func TestHistoryPopState(t *testing.T) {
	w, _ := newTestWindow()
	w.LoadHTML("http://site.test/", page("Home", ""))

	var pops []string
	w.History.OnPopState(func(ev PopStateEvent) { pops = append(pops, ev.URL) })

	w.History.ReplaceState(map[string]any{"url": "http://site.test/"}, "http://site.test/")
	w.History.PushState(map[string]any{"url": "http://site.test/b"}, "http://site.test/b")
	w.History.PushState(map[string]any{"url": "http://site.test/c"}, "http://site.test/c")

	if w.Href() != "http://site.test/c" || w.History.PushCount() != 2 {
		t.Fatalf("href %s pushes %d", w.Href(), w.History.PushCount())
	}

	w.History.Back()
	w.History.Back()
	if w.History.Back() {
		t.Error("Back past the first entry should fail")
	}
	w.Loop.RunUntilIdle()

	want := []string{"http://site.test/b", "http://site.test/"}
	if !reflect.DeepEqual(pops, want) {
		t.Errorf("pops = %v, want %v", pops, want)
	}

	// pushing from the middle truncates forward entries
	w.History.PushState(map[string]any{"url": "http://site.test/d"}, "http://site.test/d")
	if w.History.Len() != 2 || w.History.Forward() {
		t.Errorf("len %d, forward should be empty", w.History.Len())
	}
}

func TestHistoryStatelessEntryReloads(t *testing.T) {
	w, src := newTestWindow()
	w.Open("http://site.test/")
	w.Loop.RunUntilIdle()
	w.Assign("/faq")
	w.Loop.RunUntilIdle()

	w.History.Back()
	w.Loop.RunUntilIdle()

	if w.Doc.Title() != "Home" {
		t.Errorf("title = %q", w.Doc.Title())
	}
	if w.History.Len() != 2 || w.History.Index() != 0 {
		t.Errorf("len %d index %d", w.History.Len(), w.History.Index())
	}
	if len(src.gets) != 3 {
		t.Errorf("gets = %v", src.gets)
	}
}

func TestFailedLoadShowsErrorPage(t *testing.T) {
	w, _ := newTestWindow()
	w.Open("http://site.test/missing")
	w.Loop.RunUntilIdle()

	if w.Doc.Title() != "Error" {
		t.Errorf("title = %q", w.Doc.Title())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	w, _ := newTestWindow()
	w.LoadHTML("http://site.test/", page("Home", ""))
	w.ScrollTo(120)
	w.History.PushState(map[string]any{"url": "http://site.test/faq"}, "http://site.test/faq")

	path := filepath.Join(t.TempDir(), "session.json")
	if err := SaveSession(path, w.History.Snapshot()); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(s.Entries) != 2 || s.Index != 1 || s.Entries[0].ScrollY != 120 {
		t.Fatalf("session = %+v", s)
	}

	w2, src := newTestWindow()
	if !w2.RestoreSession(s) {
		t.Fatal("restore failed")
	}
	w2.Loop.RunUntilIdle()
	if w2.History.Len() != 2 || src.gets[0] != "http://site.test/faq" {
		t.Errorf("history %d gets %v", w2.History.Len(), src.gets)
	}

	if err := ClearSession(path); err != nil {
		t.Fatal(err)
	}
	if err := ClearSession(path); err != nil {
		t.Errorf("clearing a missing session: %v", err)
	}
}
