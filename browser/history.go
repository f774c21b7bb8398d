package browser

import (
	"maps"
	"slices"
)

// Entry is one slot in the session history. State is nil for entries created
// by full page loads; traversing to such an entry reloads the page natively.
type Entry struct {
	URL     string         `json:"url"`
	State   map[string]any `json:"state,omitempty"`
	ScrollY int            `json:"scrollY"`
}

// PopStateEvent is delivered to popstate listeners when traversal lands on
// an entry that carries state.
type PopStateEvent struct {
	URL   string
	State map[string]any
}

// History is the window's joint session history.
type History struct {
	win       *Window
	entries   []Entry
	index     int
	pushes    int
	listeners map[int]func(PopStateEvent)
	nextID    int
}

func newHistory(w *Window) *History {
	return &History{win: w, index: -1, listeners: make(map[int]func(PopStateEvent))}
}

// PushState appends an entry after the current one, discarding any forward
// entries, and moves the location to url without loading it.
func (h *History) PushState(state map[string]any, url string) {
	h.saveScroll()
	h.entries = append(h.entries[:h.index+1], Entry{URL: url, State: state})
	h.index = len(h.entries) - 1
	h.pushes++
	h.win.setLocation(url)
}

// ReplaceState rewrites the current entry.
func (h *History) ReplaceState(state map[string]any, url string) {
	if h.index < 0 {
		h.entries = []Entry{{URL: url, State: state}}
		h.index = 0
	} else {
		h.entries[h.index].URL = url
		h.entries[h.index].State = state
	}
	h.win.setLocation(url)
}

// Back moves one entry back.
func (h *History) Back() bool { return h.Go(-1) }

// Forward moves one entry forward.
func (h *History) Forward() bool { return h.Go(1) }

// Go traverses delta entries. It returns false if the target is out of
// range. Popstate listeners run as a separate loop task, like the browser's.
func (h *History) Go(delta int) bool {
	target := h.index + delta
	if delta == 0 || target < 0 || target >= len(h.entries) {
		return false
	}
	h.saveScroll()
	h.index = target
	e := h.entries[target]
	h.win.setLocation(e.URL)

	if e.State == nil {
		h.win.load(e.URL, false)
		return true
	}

	h.win.Loop.Post(func() {
		ev := PopStateEvent{URL: e.URL, State: e.State}
		for _, id := range slices.Sorted(maps.Keys(h.listeners)) {
			if fn, ok := h.listeners[id]; ok {
				fn(ev)
			}
		}
	})
	return true
}

// OnPopState registers a popstate listener and returns a function removing
// it.
func (h *History) OnPopState(fn func(PopStateEvent)) func() {
	h.nextID++
	id := h.nextID
	h.listeners[id] = fn
	return func() { delete(h.listeners, id) }
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Index returns the position of the current entry.
func (h *History) Index() int { return h.index }

// Current returns the current entry.
func (h *History) Current() (Entry, bool) {
	if h.index < 0 {
		return Entry{}, false
	}
	return h.entries[h.index], true
}

// Entries returns a copy of the entry list.
func (h *History) Entries() []Entry {
	return append([]Entry(nil), h.entries...)
}

// PushCount returns how many times PushState has been called.
func (h *History) PushCount() int { return h.pushes }

// pushNative records a full page load.
func (h *History) pushNative(url string) {
	h.saveScroll()
	h.entries = append(h.entries[:h.index+1], Entry{URL: url})
	h.index = len(h.entries) - 1
}

func (h *History) saveScroll() {
	if h.index >= 0 && h.index < len(h.entries) {
		h.entries[h.index].ScrollY = h.win.scrollY
	}
}
