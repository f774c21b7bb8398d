// Package testsite serves a small multi-page site with the markup the
// navigator and its route initializers expect. It counts requests per path
// so tests can tell cache hits from fetches.
package testsite

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pagenav/fetcher"
	"pagenav/swap"
)

// Site is the fixture site. It implements http.Handler.
type Site struct {
	router chi.Router
	logger *slog.Logger

	mu   sync.Mutex
	hits map[string]int
}

// New builds the site. A nil logger means slog.Default().
func New(logger *slog.Logger) *Site {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Site{logger: logger, hits: make(map[string]int)}
	s.router = s.buildRouter()
	return s
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hits returns how many requests reached path.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// DynamicHits returns how many in-page (X-Requested-With) requests reached
// path.
func (s *Site) DynamicHits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits["xhr "+path]
}

// Reset zeroes the counters.
func (s *Site) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.hits)
}

func (s *Site) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
			s.hits["xhr "+r.URL.Path]++
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Site) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)

	r.Get("/", s.page(homePage))
	r.Get("/home", s.page(homePage))
	r.Get("/faq", s.page(faqPage))
	r.Get("/contact", s.page(contactPage))
	r.Get("/contato", s.page(contactPage))
	r.Get("/about", s.page(aboutPage))
	r.Get("/sobre", s.page(aboutPage))
	r.Get("/categoria/{slug}", s.category)
	r.Get("/profile", s.page(profilePage))
	r.Get("/post/{id}", s.post)
	r.Get("/termos-de-uso", s.page(legalPage))
	r.Get("/politica-de-privacidade", s.page(legalPage))
	r.Get("/plans", s.page(plansPage))
	r.Get("/planos", s.page(plansPage))
	r.Get("/search", s.search)
	r.Get("/obrigado", s.page(thanksPage))
	r.Get("/broken", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	r.Post("/newsletter", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/obrigado", http.StatusSeeOther)
	})
	r.Post("/echo", s.echo)
	r.Post("/login", s.echo)

	r.Get("/logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})
	r.Get("/download/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "file %s", chi.URLParam(r, "id"))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/", s.admin)
		r.Get("/*", s.admin)
	})

	r.Get(fetcher.SuggestionsPath, s.suggestions)
	r.Get("/static/js/{name}", s.script)
	return r
}

// view is the data handed to the layout.
type view struct {
	Title       string
	Path        string
	Stylesheets []sheet
	Scripts     []string
	Inline      template.JS
	Body        template.HTML
}

type sheet struct {
	ID    string
	Media string
}

// content is one page's title, scripts and body.
type content struct {
	title   string
	scripts []string
	inline  string
	body    string
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="pt-BR"><head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/static/css/style.css">
{{range .Stylesheets}}<link rel="stylesheet" id="{{.ID}}" href="/static/css/{{.ID}}.css" media="{{.Media}}">
{{end}}<script src="/static/js/main.js"></script>
{{range .Scripts}}<script src="{{.}}"></script>
{{end}}{{if .Inline}}<script>{{.Inline}}</script>
{{end}}</head><body>
<nav class="nav-menu">
<a href="/">Início</a>
<a href="/faq">FAQ</a>
<a href="/contato">Contato</a>
<a href="/sobre">Sobre</a>
<a href="/plans">Planos</a>
<a href="/profile">Perfil</a>
</nav>
<main>{{.Body}}</main>
<footer class="footer"><a href="/termos-de-uso">Termos</a> <a href="/politica-de-privacidade">Privacidade</a></footer>
</body></html>`))

// stylesheets mirrors the server picking the page's stylesheet on a full
// load.
func stylesheets(path string) []sheet {
	var out []sheet
	active := false
	for _, st := range swap.DefaultStylesheets {
		media := swap.MediaInert
		if !active && st.Matches(path) {
			media, active = swap.MediaActive, true
		}
		out = append(out, sheet{ID: st.ID, Media: media})
	}
	detail := swap.MediaInert
	if strings.HasPrefix(path, "/post/") {
		detail = swap.MediaActive
	}
	return append(out, sheet{ID: "post-detail-css", Media: detail})
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, c content) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	v := view{
		Title:       c.title,
		Path:        r.URL.Path,
		Stylesheets: stylesheets(r.URL.Path),
		Scripts:     c.scripts,
		Inline:      template.JS(c.inline),
		Body:        template.HTML(c.body),
	}
	if err := layout.Execute(w, v); err != nil {
		s.logger.Error("render failed", "path", r.URL.Path, "error", err)
	}
}

func (s *Site) page(c content) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { s.render(w, r, c) }
}

func (s *Site) category(w http.ResponseWriter, r *http.Request) {
	slug := template.HTMLEscapeString(chi.URLParam(r, "slug"))
	s.render(w, r, content{
		title: "Categoria " + slug,
		body: `<section class="category-hero"><h1>` + slug + `</h1>
<form class="category-search-form" action="/search" method="get">
<input class="category-search-input" name="q" data-category="` + slug + `">
<div class="search-suggestions-dropdown" style="display: none"></div>
</form></section>
<div class="modern-post-card"><a href="/post/1">Primeiro post</a></div>
<div class="modern-post-card"><a href="/post/2">Segundo post</a></div>`,
	})
}

func (s *Site) post(w http.ResponseWriter, r *http.Request) {
	id := template.HTMLEscapeString(chi.URLParam(r, "id"))
	s.render(w, r, content{
		title: "Post " + id,
		body: `<section class="post-hero-section"><h1>Post ` + id + `</h1></section>
<div class="post-image-container"><img src="/static/img/` + id + `.png" alt="Capa"></div>
<div class="share-buttons"><a class="share-btn twitter" href="#">X</a><a class="share-btn whatsapp" href="#">WhatsApp</a></div>
<span class="tag-item">go</span><span class="tag-item">web</span>
<div class="related-post-item"><a href="/post/2">Relacionado</a></div>`,
	})
}

func (s *Site) search(w http.ResponseWriter, r *http.Request) {
	q := template.HTMLEscapeString(r.URL.Query().Get("q"))
	s.render(w, r, content{
		title: "Busca: " + q,
		body:  `<h1>Resultados para <span id="query">` + q + `</span></h1>`,
	})
}

// echo answers a posted form with its values.
func (s *Site) echo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var b strings.Builder
	b.WriteString(`<h1>Recebido</h1><dl id="echo">`)
	for _, k := range sortedKeys(r.PostForm) {
		fmt.Fprintf(&b, `<dt>%s</dt><dd>%s</dd>`,
			template.HTMLEscapeString(k), template.HTMLEscapeString(r.PostForm.Get(k)))
	}
	b.WriteString(`</dl>`)
	s.render(w, r, content{title: "Recebido", body: b.String()})
}

func (s *Site) admin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Admin</title></head><body>
<aside><a href="/admin">Painel</a> <a href="/admin/posts">Posts</a> <a href="/">Site</a></aside>
<div class="admin-content-wrapper"><h1>Admin %s</h1></div>
</body></html>`, template.HTMLEscapeString(r.URL.Path))
}

var suggestionIndex = []fetcher.Suggestion{
	{Type: "post", Title: "Go para iniciantes", Description: "Primeiros passos", Category: "dev", URL: "/post/1", Icon: "fas fa-file-alt"},
	{Type: "post", Title: "Goroutines na prática", Description: "Concorrência <b>simples</b>", Category: "dev", URL: "/post/2", Icon: "fas fa-file-alt"},
	{Type: "post", Title: "Design de APIs", Description: "REST e além", Category: "arquitetura", URL: "/post/3", Icon: "fas fa-file-alt"},
	{Type: "category", Title: "Golang", Description: "Categoria", URL: "/categoria/dev", Icon: "fas fa-folder"},
}

const maxSuggestions = 8

func (s *Site) suggestions(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	cat := r.URL.Query().Get("category")
	out := []fetcher.Suggestion{}
	for _, sg := range suggestionIndex {
		if cat != "" && sg.Category != "" && sg.Category != cat {
			continue
		}
		if q != "" && strings.Contains(strings.ToLower(sg.Title), q) {
			out = append(out, sg)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Error("encode suggestions", "error", err)
	}
}

var scripts = map[string]string{
	"main.js": `window.mainLoads = (window.mainLoads || 0) + 1;`,
	"faq.js":  `window.faqLoaded = true;`,
}

func (s *Site) script(w http.ResponseWriter, r *http.Request) {
	src, ok := scripts[chi.URLParam(r, "name")]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript")
	fmt.Fprint(w, src)
}
