package routes

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/andybalholm/cascadia"
	"github.com/dustin/go-humanize"
	"golang.org/x/net/html"

	"pagenav/dom"
)

const (
	counterSteps    = 50
	counterInterval = 30 * time.Millisecond
)

// About animates the stat counters and the service card hover.
func About() Route {
	return &route{
		name:   "about",
		paths:  []string{"/about", "/sobre"},
		marker: cascadia.MustCompile(".about-hero"),
		init:   initAbout,
	}
}

func initAbout(c *Context) error {
	var counters []*html.Node
	c.each(".stat-number", func(_ int, n *html.Node) {
		if once(n, "counter-animated") {
			counters = append(counters, n)
		}
	})
	c.Win.Observe(counters, func(n *html.Node) { animateCounter(c, n) })

	c.stagger(".mission-card", 200*time.Millisecond, "")

	c.each(".service-card", func(_ int, card *html.Node) {
		if !once(card, "hover-bound") {
			return
		}
		c.Doc.On(card, dom.EventMouseOver, func(*dom.Event) {
			dom.SetStyle(card, "transform", "translateY(-10px) scale(1.02)")
		})
		c.Doc.On(card, dom.EventMouseOut, func(*dom.Event) {
			dom.SetStyle(card, "transform", "translateY(0) scale(1)")
		})
	})
	return nil
}

// animateCounter counts n's text up from zero to its number in even
// steps. Text without a leading number is left alone.
func animateCounter(c *Context, n *html.Node) {
	target, ok := leadingInt(dom.TextContent(n))
	if !ok {
		return
	}
	step := float64(target) / counterSteps
	current := 0.0

	var tick func()
	tick = func() {
		current += step
		if current >= float64(target) {
			dom.SetText(n, humanize.Comma(target))
			return
		}
		dom.SetText(n, humanize.Comma(int64(current)))
		c.After(counterInterval, tick)
	}
	c.After(counterInterval, tick)
}

// leadingInt parses the digits at the start of s, ignoring leading space.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(s)
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	return v, err == nil
}
