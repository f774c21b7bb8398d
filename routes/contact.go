package routes

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagenav/dom"
)

// Contact page constants.
const (
	ContactSentMessage = "Mensagem enviada com sucesso! Entraremos em contato em breve."
	contactSending     = `<i class="fas fa-spinner fa-spin"></i> Enviando...`
	contactSendDelay   = 2 * time.Second
	particleCount      = 50
)

// Contact wires the message counter, the simulated send and the hero
// particles.
func Contact() Route {
	return &route{
		name:   "contact",
		paths:  []string{"/contact", "/contato"},
		marker: cascadia.MustCompile(".contact-section"),
		init:   initContact,
	}
}

func initContact(c *Context) error {
	message := c.Doc.ByID("message")
	counter := c.Doc.ByID("char-count")
	if message != nil && counter != nil {
		c.bindOnce(message, "counter-bound", dom.EventInput, func(*dom.Event) {
			n := utf8.RuneCountInString(dom.Value(message))
			dom.SetText(counter, strconv.Itoa(n))
			dom.SetStyle(counter, "color", counterColor(n))
		})
	}

	if form := c.Doc.ByID("contact-form"); form != nil {
		c.bindOnce(form, "contact-bound", dom.EventSubmit, func(ev *dom.Event) {
			ev.PreventDefault()
			sendContact(c, form)
		})
	}

	c.each(".contact-hero .hero-particles", func(_ int, box *html.Node) {
		spawnParticles(box)
	})
	return nil
}

func counterColor(n int) string {
	switch {
	case n > 800:
		return "#ff6b6b"
	case n > 600:
		return "#ffa726"
	}
	return "#666"
}

// sendContact simulates a submission: the button shows progress for a
// while, then the form resets.
func sendContact(c *Context, form *html.Node) {
	btn := dom.Sel(form).Find(`button[type="submit"]`).Get(0)
	var saved []*html.Node
	if btn != nil {
		saved = dom.CloneChildren(btn)
		if nodes, err := dom.FragmentFromHTML(contactSending); err == nil {
			c.Doc.ReplaceChildren(btn, nodes)
		}
		dom.SetAttr(btn, "disabled", "")
	}

	c.After(contactSendDelay, func() {
		c.Win.Alert(ContactSentMessage)
		if btn != nil {
			c.Doc.ReplaceChildren(btn, saved)
			dom.RemoveAttr(btn, "disabled")
		}
		dom.ResetForm(form)
		if counter := c.Doc.ByID("char-count"); counter != nil {
			dom.SetText(counter, "0")
		}
	})
}

func spawnParticles(box *html.Node) {
	for box.FirstChild != nil {
		box.RemoveChild(box.FirstChild)
	}
	for range particleCount {
		p := dom.CreateElement("div", "class", "particle")
		dom.SetStyle(p, "left", fmt.Sprintf("%.2f%%", rand.Float64()*100))
		dom.SetStyle(p, "animation-delay", fmt.Sprintf("%.2fs", rand.Float64()*20))
		dom.SetStyle(p, "animation-duration", fmt.Sprintf("%.2fs", rand.Float64()*10+10))
		box.AppendChild(p)
	}
}
