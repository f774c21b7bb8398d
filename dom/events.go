package dom

import "golang.org/x/net/html"

// Event types dispatched by the engine.
const (
	EventClick     = "click"
	EventSubmit    = "submit"
	EventInput     = "input"
	EventChange    = "change"
	EventKeyDown   = "keydown"
	EventFocus     = "focus"
	EventBlur      = "blur"
	EventMouseOver = "mouseenter"
	EventMouseOut  = "mouseleave"
)

// Event is a DOM event travelling from the document (capture) down to its
// target and back up (bubble).
type Event struct {
	Type   string
	Target *html.Node
	Detail map[string]any
	Key    string // keydown only

	defaultPrevented bool
	stopped          bool
	stoppedNow       bool
}

// PreventDefault cancels the event's default action.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation stops the event at the current node.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation also skips the remaining listeners on the
// current node.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedNow = true
}

// Listener handles an event.
type Listener func(*Event)

type listener struct {
	id      int
	fn      Listener
	capture bool
}

// AddEventListener registers a document-level listener and returns a
// function removing it.
func (d *Document) AddEventListener(typ string, fn Listener, capture bool) func() {
	d.nextID++
	l := &listener{id: d.nextID, fn: fn, capture: capture}
	d.listeners[typ] = append(d.listeners[typ], l)
	return func() {
		d.listeners[typ] = without(d.listeners[typ], l.id)
	}
}

// On registers a listener on element n. Listeners on nodes that are later
// removed from the tree are dropped by Prune.
func (d *Document) On(n *html.Node, typ string, fn Listener) func() {
	d.nextID++
	l := &listener{id: d.nextID, fn: fn}
	m := d.nodeListeners[n]
	if m == nil {
		m = make(map[string][]*listener)
		d.nodeListeners[n] = m
	}
	m[typ] = append(m[typ], l)
	return func() {
		if m := d.nodeListeners[n]; m != nil {
			m[typ] = without(m[typ], l.id)
		}
	}
}

// ListenerCount returns how many listeners of typ are bound to n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	return len(d.nodeListeners[n][typ])
}

// Dispatch delivers ev to target: document capture listeners first, then
// listeners from the target up through its ancestors, then document bubble
// listeners. It returns false if the default action was prevented.
func (d *Document) Dispatch(target *html.Node, ev *Event) bool {
	ev.Target = target

	if run(d.listeners[ev.Type], ev, true) {
		return !ev.defaultPrevented
	}
	for n := target; n != nil; n = n.Parent {
		if run(d.nodeListeners[n][ev.Type], ev, false) {
			return !ev.defaultPrevented
		}
	}
	run(d.listeners[ev.Type], ev, false)
	return !ev.defaultPrevented
}

// DispatchCustom fires a document-level custom event such as pageLoaded.
func (d *Document) DispatchCustom(typ string, detail map[string]any) {
	d.Dispatch(d.root, &Event{Type: typ, Detail: detail})
}

// run invokes the listeners of one phase and reports whether propagation
// stopped.
func run(ls []*listener, ev *Event, capture bool) bool {
	// copy so listeners may remove themselves
	snapshot := append([]*listener(nil), ls...)
	for _, l := range snapshot {
		if l.capture != capture {
			continue
		}
		l.fn(ev)
		if ev.stoppedNow {
			return true
		}
	}
	return ev.stopped
}

func without(ls []*listener, id int) []*listener {
	out := ls[:0]
	for _, l := range ls {
		if l.id != id {
			out = append(out, l)
		}
	}
	return out
}
