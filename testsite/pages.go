package testsite

import (
	"net/url"
	"slices"
)

var homePage = content{
	title: "Início",
	body: `<section class="hero"><div id="hero-particles"></div>
<h1>Bem-vindo</h1>
<form class="home-search" action="/search" method="get"><input id="home-search" name="q" class="search-input"></form>
</section>
<ul class="links">
<li><a href="/faq">Perguntas frequentes</a></li>
<li><a href="/categoria/dev">Categoria dev</a></li>
<li><a href="/post/1">Primeiro post</a></li>
<li><a href="/admin">Administração</a></li>
<li><a href="/logout">Sair</a></li>
<li><a href="/download/7">Baixar arquivo</a></li>
<li><a href="/broken">Página quebrada</a></li>
<li><a href="https://elsewhere.test/">Outro site</a></li>
<li><a href="/sobre" target="_blank">Sobre em nova aba</a></li>
<li><a href="#top">Topo</a></li>
</ul>
<form id="newsletter" action="/newsletter" method="post"><input name="email" value=""><button type="submit">Assinar</button></form>
<form id="echo-form" action="/echo" method="post"><input name="nome" value=""><button type="submit">Enviar</button></form>`,
}

var faqPage = content{
	title:   "FAQ",
	scripts: []string{"/static/js/faq.js"},
	inline:  `window.faqInline = (window.faqInline || 0) + 1;`,
	body: `<section class="faq-section">
<input id="faq-search" placeholder="Buscar"><button id="search-clear" style="display: none">×</button>
<span class="search-suggestion" data-search="senha">senha</span>
<div class="faq-item" data-keywords="conta login">
<div class="faq-question"><h3>Como entro na minha conta?</h3><span class="faq-toggle"><i class="fas fa-plus"></i></span></div>
<div class="faq-answer"><p>Use o formulário de login.</p></div>
</div>
<div class="faq-item" data-keywords="senha recuperar">
<div class="faq-question"><h3>Esqueci a senha</h3><span class="faq-toggle"><i class="fas fa-plus"></i></span></div>
<div class="faq-answer"><p>Peça uma nova pelo e-mail.</p></div>
</div>
<div id="no-results" style="display: none">Nada encontrado</div>
</section>`,
}

var contactPage = content{
	title: "Contato",
	body: `<section class="contact-hero"><div class="hero-particles"></div><h1>Fale conosco</h1></section>
<section class="contact-section">
<form id="contact-form" action="/echo" method="post">
<input name="nome"><textarea id="message" name="message"></textarea><span id="char-count">0</span>
<button type="submit">Enviar</button>
</form></section>`,
}

var aboutPage = content{
	title: "Sobre",
	body: `<section class="about-hero"><h1>Sobre nós</h1></section>
<div class="stat-number">1500+</div><div class="stat-number">42</div>
<div class="mission-card">Missão</div><div class="mission-card">Visão</div>
<div class="service-card">Consultoria</div>`,
}

var profilePage = content{
	title: "Perfil",
	body: `<section class="profile-hero"><h1>Meu perfil</h1></section>
<button class="tab-button active" data-tab="info">Info</button><button class="tab-button" data-tab="posts">Posts</button>
<div id="info-content" class="tab-content-item active"><div class="info-item">Nome</div></div>
<div id="posts-content" class="tab-content-item"><div class="stat-card">3 posts</div></div>
<form id="editProfileForm" action="/echo" method="post"><input name="bio"><button type="submit">Salvar</button></form>`,
}

var legalPage = content{
	title: "Termos de uso",
	body: `<section class="legal-page-section">
<nav class="legal-toc"><a href="#uso">Uso</a> <a href="#dados">Dados</a></nav>
<div class="legal-section" id="uso"><h2>Uso</h2><p>Regras de uso.</p></div>
<div class="legal-section" id="dados"><h2>Dados</h2><p>Tratamento de dados.</p></div>
</section>`,
}

var plansPage = content{
	title: "Planos",
	body: `<section class="plans-section"><h1>Planos</h1>
<div class="plan-card">Básico</div><div class="plan-card">Pro</div></section>`,
}

var thanksPage = content{
	title: "Obrigado",
	body:  `<h1 id="thanks">Inscrição confirmada</h1><a href="/">Voltar</a>`,
}

func sortedKeys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
